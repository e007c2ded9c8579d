package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/toyz/mininest/internal/example/app"
	"github.com/toyz/mininest/internal/logging"
	"go.uber.org/zap"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		port      int
		transport string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("transport") {
				cfg.Server.Transport = transport
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.New(cfg.App.Env, cfg.Log.Level)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server, err := app.NewTransport(cfg.Server.Transport)
			if err != nil {
				return err
			}
			application, err := app.New(ctx, cfg, server, logger, nil)
			if err != nil {
				return fmt.Errorf("build application: %w", err)
			}

			if err := application.Listen(ctx, cfg.Server.Addr()); err != nil {
				return err
			}
			report := opts.reporter(cmd)
			report.Header(fmt.Sprintf("serving on http://%s via %s", application.Addr(), server.Name()))
			report.Verbose("API document at %s", app.DocsPath)

			var serveErr error
			select {
			case <-ctx.Done():
				logger.Info("shutdown signal received")
			case serveErr = <-application.Done():
				if serveErr != nil {
					logger.Error("server stopped", zap.Error(serveErr))
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := application.Close(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return serveErr
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 3000, "port to listen on")
	cmd.Flags().StringVarP(&transport, "transport", "t", "gin", "transport: gin, echo or fiber")
	return cmd
}
