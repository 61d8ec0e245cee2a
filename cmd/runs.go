package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, runsLimit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("no runs")
			return nil
		}

		for _, r := range runs {
			line := fmt.Sprintf("%s  %-8s  %s  %s",
				r.ID, r.Status, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Manifest)
			if r.Summary != nil {
				line += fmt.Sprintf("  (rows=%d unmatched=%d dropped=%d)",
					r.Summary.MergedRows, r.Summary.Unmatched, r.Summary.DroppedPoints)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "max runs to list")
	rootCmd.AddCommand(runsCmd)
}
