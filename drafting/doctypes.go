package drafting

// Category groups document types.
type Category string

const (
	CategoryProperty   Category = "PROPERTY"
	CategoryBusiness   Category = "BUSINESS"
	CategoryPersonal   Category = "PERSONAL"
	CategoryEmployment Category = "EMPLOYMENT"
	CategoryOther      Category = "OTHER"
)

// DocumentTypeInfo describes a supported document type.
type DocumentTypeInfo struct {
	Name                 string   `json:"name"`
	Category             Category `json:"category"`
	Description          string   `json:"description"`
	CommonUses           []string `json:"common_uses"`
	RequiresNotarization bool     `json:"requires_notarization"`
	RequiresRegistration bool     `json:"requires_registration"`
	ValidityPeriod       string   `json:"validity_period,omitempty"`
	Complexity           string   `json:"complexity"` // "low", "medium", "high"
}

// DocumentTypes is the registry of supported document types. "Other" is
// always last.
var DocumentTypes = []DocumentTypeInfo{
	{
		Name:        "Rent Agreement",
		Category:    CategoryProperty,
		Description: "A legal agreement between landlord and tenant for property rental",
		CommonUses: []string{
			"Residential property rental",
			"Commercial space leasing",
			"Short-term vacation rentals",
		},
		RequiresRegistration: true,
		ValidityPeriod:       "Typically 11 months",
		Complexity:           "medium",
	},
	{
		Name:        "Employment Contract",
		Category:    CategoryEmployment,
		Description: "A formal agreement between employer and employee defining employment terms",
		CommonUses: []string{
			"Full-time employment",
			"Contractual work",
			"Consulting arrangements",
		},
		Complexity: "medium",
	},
	{
		Name:        "Non-Disclosure Agreement",
		Category:    CategoryBusiness,
		Description: "A contract establishing confidentiality of shared information",
		CommonUses: []string{
			"Business partnerships",
			"Employee confidentiality",
			"Before business negotiations",
		},
		Complexity: "medium",
	},
	{
		Name:        "Will",
		Category:    CategoryPersonal,
		Description: "A legal document expressing a person's wishes regarding asset distribution after death",
		CommonUses: []string{
			"Estate planning",
			"Asset distribution",
			"Appointing guardians for minors",
		},
		RequiresNotarization: true,
		Complexity:           "high",
	},
	{
		Name:        "Other",
		Category:    CategoryOther,
		Description: "Other customized legal document",
		CommonUses: []string{
			"Custom agreements",
			"Special arrangements",
			"Unique circumstances",
		},
		Complexity: "medium",
	},
}

// LookupDocumentType returns the registry entry for name. Matching is exact.
func LookupDocumentType(name string) (DocumentTypeInfo, bool) {
	for _, dt := range DocumentTypes {
		if dt.Name == name {
			return dt, true
		}
	}
	return DocumentTypeInfo{}, false
}

// IsValidDocumentType reports whether name is a supported document type.
func IsValidDocumentType(name string) bool {
	_, ok := LookupDocumentType(name)
	return ok
}

// DocumentTypeNames lists the supported document type names in registry order.
func DocumentTypeNames() []string {
	names := make([]string, len(DocumentTypes))
	for i, dt := range DocumentTypes {
		names[i] = dt.Name
	}
	return names
}
