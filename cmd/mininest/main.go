package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/toyz/mininest/internal/config"
	"github.com/toyz/mininest/internal/diagnostics"
)

type rootOptions struct {
	configPath string
	verbose    bool
	quiet      bool
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath)
}

func (o *rootOptions) reporter(cmd *cobra.Command) *diagnostics.Reporter {
	level := diagnostics.Normal
	switch {
	case o.quiet:
		level = diagnostics.Errors
	case o.verbose:
		level = diagnostics.Verbose
	}
	if cmd.OutOrStdout() == os.Stdout {
		return diagnostics.New(level)
	}
	return diagnostics.NewWithWriters(level, cmd.OutOrStdout(), cmd.ErrOrStderr(), false)
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "mininest",
		Short: "Example server built on the mininest framework",
		Long: `mininest serves the example users API through gin, echo or fiber.

Configuration is read from mininest.yaml (or --config) and MININEST_*
environment variables, e.g. MININEST_SERVER_PORT=8080.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./mininest.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "only print errors")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newRoutesCommand(opts))
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
