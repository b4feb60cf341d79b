// Package cli implements the flock command line: the API server, schema
// migrations and tenant administration.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flockhq/flock/internal/app/runtime"
	"github.com/flockhq/flock/internal/config"
	"github.com/flockhq/flock/pkg/logger"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "flock",
		Short:        "flock - church management API",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (defaults to $FLOCK_CONFIG)")

	cmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newTenantCmd(opts),
		newPlansCmd(),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) load() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.Logging), nil
}

// withApplication builds the wired application without starting the HTTP
// server, runs fn and releases storage afterwards.
func (o *rootOptions) withApplication(ctx context.Context, fn func(*runtime.Application) error) error {
	cfg, log, err := o.load()
	if err != nil {
		return err
	}
	defer log.Close()

	cfg.Jobs.Enabled = false
	a, err := runtime.NewApplication(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("shutdown")
		}
	}()
	return fn(a)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "flock %s\n", Version)
		},
	}
}
