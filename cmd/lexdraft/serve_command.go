package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/martinemde/lexdraft/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			addr := cfg.Server.Bind
			if strings.TrimSpace(bind) != "" {
				addr = bind
			}

			d, err := ctx.newDrafter(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			opts := []server.Option{
				server.WithLogger(ctx.logger),
				server.WithBind(addr),
			}
			if d.cache != nil {
				opts = append(opts, server.WithHealthCheck("cache", d.cache.Ping))
			}
			return server.New(d.svc, opts...).Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides server.bind)")
	return cmd
}
