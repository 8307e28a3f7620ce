package drafting

import "fmt"

const fallbackDocumentTemplate = `# %s

## Between Parties
- **Party A**: %s
- **Party B**: %s

## Terms and Conditions
The following document could not be fully generated due to technical issues. Please try again later or contact support.

### Basic Terms
1. This agreement is made between the parties mentioned above.
2. Both parties agree to fulfill their obligations in good faith.
3. Any disputes shall be resolved through mutual discussion and, if necessary, arbitration.

*Note: This is a basic fallback document created when the AI generation service encountered an error. Please regenerate for a complete legal document.*`

// FallbackDocument renders the placeholder returned by GenerateDocumentSafe.
// It depends only on req.
func FallbackDocument(req DraftRequest) string {
	return fmt.Sprintf(fallbackDocumentTemplate,
		orDefault(req.DocumentType, "Legal Agreement"),
		orDefault(req.PartyA, "First Party"),
		orDefault(req.PartyB, "Second Party"),
	)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
