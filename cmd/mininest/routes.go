package main

import (
	"github.com/spf13/cobra"
	"github.com/toyz/mininest/internal/example/app"
	"github.com/toyz/mininest/internal/example/users"
	"go.uber.org/zap"
)

func newRoutesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			report := opts.reporter(cmd)

			server, err := app.NewTransport(cfg.Server.Transport)
			if err != nil {
				return err
			}
			// An in-memory store keeps the command from dialing redis
			application, err := app.New(cmd.Context(), cfg, server, zap.NewNop(), users.NewMemoryStore())
			if err != nil {
				report.Error("%v", err)
				return err
			}
			defer func() { _ = application.Close(cmd.Context()) }()

			report.Header("routes (" + server.Name() + ")")
			report.Routes(application.GetRoutes())
			return nil
		},
	}
}
