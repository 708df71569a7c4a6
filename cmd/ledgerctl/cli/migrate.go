package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/migrate"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect schema migrations",
	}
	run := func(fn func(*migrate.Migrator, []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.config()
			if err != nil {
				return err
			}
			m, err := migrate.New(cfg.PGDSN, logger)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()
			return fn(m, args)
		}
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  run(func(m *migrate.Migrator, _ []string) error { return m.Up() }),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			Args:  cobra.NoArgs,
			RunE:  run(func(m *migrate.Migrator, _ []string) error { return m.Down() }),
		},
		&cobra.Command{
			Use:   "steps N",
			Short: "Apply N migrations, negative N rolls back",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(m *migrate.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("steps: %w", err)
				}
				return m.Steps(n)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: run(func(m *migrate.Migrator, _ []string) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(opts.out, "version=%d dirty=%t\n", version, dirty)
				return err
			}),
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(m *migrate.Migrator, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("force: %w", err)
				}
				return m.Force(version)
			}),
		},
	)
	return cmd
}
