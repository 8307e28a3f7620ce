package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/martinemde/lexdraft/drafting"
)

func newTypesCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "types",
		Short:       "List the supported document types",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(drafting.DocumentTypes)
			}

			rows := make([][]string, 0, len(drafting.DocumentTypes))
			for _, dt := range drafting.DocumentTypes {
				rows = append(rows, []string{
					dt.Name,
					string(dt.Category),
					yesNo(dt.RequiresNotarization),
					yesNo(dt.RequiresRegistration),
					dt.Complexity,
					strings.Join(dt.CommonUses, ", "),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Type", "Category", "Notarization", "Registration", "Complexity", "Common uses"},
				rows, nil,
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
