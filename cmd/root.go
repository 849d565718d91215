package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nysenate/geodistrict/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geodistrict",
	Short: "NY State address geocoding and political-district assignment service",
	Long:  "Geocodes addresses and assigns political/administrative districts via PostGIS polygon lookup, street-range tables, and an external WFS fallback.",
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
