package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urban-data-lab/tractjoin/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tractjoin",
	Short: "Join incident points with Census tract polygons",
	Long: `Loads point incident data and tract boundaries, counts points per tract
with a completeness fill, merges the counts with a per-subject research
dataset, and stores one positionally-ordered merged table per run for the
rendering collaborator.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
