package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/martinemde/lexdraft/unifiedllm"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "Show the configured models and the model catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			models := cfg.Models()

			fallback := models.Fallback
			if fallback == "" {
				fallback = "(disabled)"
			}
			fmt.Fprintf(out, "Provider: %s\nPrimary:  %s\nFallback: %s\n\n", cfg.LLM.Provider, models.Primary, fallback)

			provider := cfg.LLM.Provider
			if all {
				provider = ""
			}
			catalog := unifiedllm.ListModels(provider)
			if len(catalog) == 0 {
				fmt.Fprintf(out, "No catalog entries for provider %s.\n", cfg.LLM.Provider)
				return nil
			}

			rows := make([][]string, 0, len(catalog))
			for _, m := range catalog {
				maxOut := "-"
				if m.MaxOutput != nil {
					maxOut = strconv.Itoa(*m.MaxOutput)
				}
				rows = append(rows, []string{
					m.ID,
					m.Provider,
					m.Tier,
					strconv.Itoa(m.ContextWindow),
					maxOut,
					yesNo(m.Decommissioned),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Model", "Provider", "Tier", "Context", "Max output", "Retired"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "List models of every provider")
	return cmd
}
