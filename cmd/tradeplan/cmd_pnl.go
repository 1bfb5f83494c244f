package main

import (
	"fmt"
	"time"

	"github.com/ksred/tradeplan/internal/database"
	"github.com/ksred/tradeplan/internal/status"
	"github.com/spf13/cobra"
)

func newPnLCmd(a *app) *cobra.Command {
	var date, from, to string

	cmd := &cobra.Command{
		Use:   "pnl",
		Short: "Show the lowest, highest and final P&L of a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now()
			if date != "" {
				parsed, err := time.Parse("2006-01-02", date)
				if err != nil {
					return withCode(exitUsage, fmt.Errorf("--date must be YYYY-MM-DD: %w", err))
				}
				day = parsed
			}
			window, err := status.ParseWindow(from, to)
			if err != nil {
				return withCode(exitUsage, err)
			}

			db, err := a.openDB(false)
			if err != nil {
				return err
			}
			defer database.Close(db)

			summary, err := status.NewService(db, a.cfg.BackupDir).PnL(cmd.Context(), day, window, false)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "P&L for %s (%d entries)\n", summary.Date, summary.Entries)
			for _, line := range []struct {
				label string
				point status.PnLPoint
			}{
				{"Lowest", summary.Lowest},
				{"Highest", summary.Highest},
				{"Final", summary.Final},
			} {
				fmt.Fprintf(out, "  %-8s %10.2f (%s)\n", line.label, line.point.PL, line.point.Time.Format("15:04"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Session date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&from, "from", "", "Window start HH:MM (default 09:20)")
	cmd.Flags().StringVar(&to, "to", "", "Window end HH:MM (default 16:50)")
	return cmd
}
