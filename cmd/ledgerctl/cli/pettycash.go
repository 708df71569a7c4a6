package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/pettycash"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/db"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

func newPettyCashCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pettycash",
		Short: "Inspect the petty cash book",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the open period and the last closing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.config()
			if err != nil {
				return err
			}
			pool, err := db.New(cmd.Context(), cfg.PGDSN, db.Options{MaxConns: 2, StatementTimeout: cfg.PGStatementTimeout})
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := pettycash.NewRepository(pool)
			from, to := shared.BusinessDay(time.Now())
			state, err := repo.BookState(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			return printPettyCashStatus(opts.out, state.Last, state.HasClose, state.Open)
		},
	})
	return cmd
}

func printPettyCashStatus(out io.Writer, last pettycash.Closing, found bool, open pettycash.OpenTotals) error {
	opening := last.ClosingBalance
	if found {
		fmt.Fprintf(out, "last closing #%d at %s balance %s\n", last.ID, last.ClosedAt.In(shared.BusinessLocation()).Format("2006-01-02 15:04"), last.ClosingBalance.StringFixed(2))
	} else {
		fmt.Fprintln(out, "no closings yet")
	}
	balance := shared.RoundMoney(opening.Add(open.Income).Sub(open.Expense))
	_, err := fmt.Fprintf(out, "open period: %d transactions income %s expense %s balance %s\n",
		open.Count, open.Income.StringFixed(2), open.Expense.StringFixed(2), balance.StringFixed(2))
	return err
}
