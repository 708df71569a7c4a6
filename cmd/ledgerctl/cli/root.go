// Package cli implements the ledgerctl operations commands.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/app"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

type rootOptions struct {
	envFile string
	out     io.Writer
}

// NewRootCommand builds the ledgerctl command tree writing results to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{out: out}
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operations tooling for the FacturaDo ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment")

	root.AddCommand(
		newMigrateCommand(opts),
		newPettyCashCommand(opts),
		newTokenCommand(opts),
		newJobsCommand(opts),
	)
	return root
}

func (o *rootOptions) config() (*app.Config, *slog.Logger, error) {
	cfg, err := app.LoadConfig(o.envFile)
	if err != nil {
		return nil, nil, err
	}
	if err := shared.SetBusinessTimezone(cfg.BusinessTimezone); err != nil {
		return nil, nil, err
	}
	return cfg, app.NewLogger(cfg), nil
}
