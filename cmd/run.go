package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urban-data-lab/tractjoin/internal/fetcher"
	"github.com/urban-data-lab/tractjoin/internal/manifest"
	"github.com/urban-data-lab/tractjoin/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run <manifest.yaml>",
	Short: "Execute one pipeline run from a manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		m, err := manifest.Load(args[0])
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		client := fetcher.NewClient(fetcher.HTTPOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetch.MaxRetries,
		})

		p := pipeline.New(client, st, cfg.Fetch.TempDir)

		run, err := p.Run(ctx, m)
		if err != nil {
			zap.L().Error("run failed", zap.String("manifest", m.Name), zap.Error(err))
			return err
		}

		s := run.Summary
		fmt.Printf("run %s complete\n", run.ID)
		fmt.Printf("  points:   %d parsed, %d dropped\n", s.Points, s.DroppedPoints)
		fmt.Printf("  spatial:  %d matched, %d outside all tracts\n", s.Matched, s.Unmatched)
		fmt.Printf("  tracts:   %d\n", s.Tracts)
		fmt.Printf("  entities: %d rows, %d dropped\n", s.EntityRows, s.DroppedEntities)
		fmt.Printf("  output:   %d merged rows\n", s.MergedRows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
