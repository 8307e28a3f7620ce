package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/martinemde/lexdraft/drafting"
	"github.com/martinemde/lexdraft/unifiedllm"
)

type generateOptions struct {
	requestFile string
	outputFile  string
	stream      bool
	safe        bool
	req         drafting.DraftRequest
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft a legal document",
		Long: `Draft a legal document from the given parties and details.

Fields can be passed as flags or read from a TOML request file; flags
override values from the file. Supported document types are listed by
"lexdraft types".`,
		Example: `  lexdraft generate --type "Will" --party-a "Meera Iyer" --party-b "Arjun Iyer" \
    --details "Entire estate to the spouse" --specific "Executor is Arjun Iyer"
  lexdraft generate --request nda.toml --stream`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.stream && opts.safe {
				return fmt.Errorf("--stream and --safe cannot be combined")
			}
			req, err := opts.request(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.outputFile != "" {
				f, err := os.Create(opts.outputFile)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}

			d, err := ctx.newDrafter(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			switch {
			case opts.safe:
				return writeDocument(out, d.svc.GenerateDocumentSafe(cmd.Context(), req))
			case opts.stream:
				return streamDocument(cmd, out, d.svc, req)
			default:
				text, err := d.svc.GenerateDocument(cmd.Context(), req)
				if err != nil {
					return describeError(err)
				}
				return writeDocument(out, text)
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.requestFile, "request", "r", "", "TOML file with the request fields")
	flags.StringVarP(&opts.outputFile, "output", "o", "", "Write the document to this file instead of stdout")
	flags.BoolVar(&opts.stream, "stream", false, "Print the document as it is generated")
	flags.BoolVar(&opts.safe, "safe", false, "Print a placeholder document instead of failing")
	flags.StringVarP(&opts.req.DocumentType, "type", "t", "", "Document type")
	flags.StringVar(&opts.req.PartyA, "party-a", "", "First party")
	flags.StringVar(&opts.req.PartyB, "party-b", "", "Second party")
	flags.StringVar(&opts.req.AdditionalDetails, "details", "", "Additional details (at least 10 characters)")
	flags.StringVar(&opts.req.SpecificDetails, "specific", "", "Specific requirements (at least 10 characters)")
	flags.StringVar(&opts.req.State, "state", "", "Jurisdiction state")
	return cmd
}

// request merges the request file with flags that were set explicitly.
func (o *generateOptions) request(cmd *cobra.Command) (drafting.DraftRequest, error) {
	var req drafting.DraftRequest
	if o.requestFile != "" {
		data, err := os.ReadFile(o.requestFile)
		if err != nil {
			return req, fmt.Errorf("read request: %w", err)
		}
		if err := toml.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("parse request: %w", err)
		}
	}

	flags := cmd.Flags()
	for name, dst := range map[string]*string{
		"type":     &req.DocumentType,
		"party-a":  &req.PartyA,
		"party-b":  &req.PartyB,
		"details":  &req.AdditionalDetails,
		"specific": &req.SpecificDetails,
		"state":    &req.State,
	} {
		if flags.Changed(name) {
			v, _ := flags.GetString(name)
			*dst = v
		}
	}
	return req, nil
}

func streamDocument(cmd *cobra.Command, out io.Writer, svc *drafting.Service, req drafting.DraftRequest) error {
	errOut := cmd.ErrOrStderr()
	var writeErr error
	_, err := svc.StreamDocument(cmd.Context(), req,
		func(delta string, done bool) {
			if writeErr != nil {
				return
			}
			if done {
				_, writeErr = io.WriteString(out, "\n")
				return
			}
			_, writeErr = io.WriteString(out, delta)
		},
		drafting.OnRestart(func(next unifiedllm.Endpoint) {
			fmt.Fprintf(errOut, "\n-- generation restarted on %s model %s --\n", next.Role, next.Model)
		}),
	)
	if err != nil {
		return describeError(err)
	}
	if writeErr != nil {
		return fmt.Errorf("write document: %w", writeErr)
	}
	return nil
}

func writeDocument(out io.Writer, text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := io.WriteString(out, text); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// describeError shortens validation failures to the message shown to users.
func describeError(err error) error {
	var fe *drafting.FieldError
	if errors.As(err, &fe) {
		return fmt.Errorf("invalid %s: %s", fe.Field, unifiedllm.Classify(err).Message)
	}
	return err
}
