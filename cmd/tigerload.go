package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nysenate/geodistrict/internal/model"
	"github.com/nysenate/geodistrict/internal/tigerload"
)

var tigerloadCmd = &cobra.Command{
	Use:   "tigerload",
	Short: "Load district boundary shapefiles into PostGIS",
	Long: `Downloads NY State political/administrative district boundary shapefiles
and loads them into geo.* tables for use by the PostGIS shapefile district
lookup. Required before polygon-based district assignment can work.

By default loads every supported district type.
Use --types to restrict to specific district types.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("tigerload"); err != nil {
			return err
		}

		pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "tigerload: connect")
		}
		defer pool.Close()

		log := zap.L().With(zap.String("command", "tigerload"))

		showStatus, _ := cmd.Flags().GetBool("status")
		if showStatus {
			return printLoadStatus(ctx, pool)
		}

		typesStr, _ := cmd.Flags().GetString("types")
		year, _ := cmd.Flags().GetInt("year")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		incremental, _ := cmd.Flags().GetBool("incremental")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		opts := tigerload.LoadOptions{
			TempDir:     cfg.Tigerload.TempDir,
			Concurrency: concurrency,
			Incremental: incremental,
			DryRun:      dryRun,
			Version:     fmt.Sprintf("%d", year),
		}
		if opts.Version == "0" {
			opts.Version = fmt.Sprintf("%d", cfg.Tigerload.Year)
		}

		if typesStr != "" {
			opts.Types = parseDistrictTypes(typesStr)
		}

		log.Info("starting district boundary load",
			zap.String("version", opts.Version),
			zap.Any("types", opts.Types),
			zap.Bool("incremental", opts.Incremental),
			zap.Bool("dry_run", opts.DryRun),
			zap.Int("concurrency", opts.Concurrency),
		)

		if err := tigerload.Load(ctx, pool, opts); err != nil {
			return eris.Wrap(err, "tigerload")
		}

		fmt.Println("district boundary load complete")
		return nil
	},
}

func init() {
	tigerloadCmd.Flags().String("types", "", "comma-separated district types (default: all supported)")
	tigerloadCmd.Flags().Int("year", 0, "dataset vintage tag recorded in load status (default: from config)")
	tigerloadCmd.Flags().Bool("incremental", true, "skip products already loaded at this version")
	tigerloadCmd.Flags().Bool("dry-run", false, "download and parse without loading")
	tigerloadCmd.Flags().Int("concurrency", 0, "parallel product downloads (default 3)")
	tigerloadCmd.Flags().Bool("status", false, "show current district boundary load status")
	rootCmd.AddCommand(tigerloadCmd)
}

// printLoadStatus displays the current district boundary load status.
func printLoadStatus(ctx context.Context, pool *pgxpool.Pool) error {
	status, err := tigerload.LoadStatus(ctx, pool)
	if err != nil {
		return eris.Wrap(err, "tigerload: get status")
	}

	if len(status) == 0 {
		fmt.Println("no district boundaries loaded yet")
		return nil
	}

	fmt.Printf("%-15s %-10s %12s %12s %s\n", "Type", "Version", "Rows", "Duration", "Loaded At")
	fmt.Println(strings.Repeat("-", 70))

	for _, s := range status {
		fmt.Printf("%-15s %-10s %12d %10dms %s\n",
			s.DistrictType, s.Version, s.RowCount, s.DurationMs, s.LoadedAt.Format("2006-01-02 15:04"))
	}

	return nil
}

// parseDistrictTypes parses a comma-separated list of district type names
// into their canonical model.DistrictType values, ignoring unknown names.
func parseDistrictTypes(csv string) []model.DistrictType {
	var out []model.DistrictType
	for _, part := range strings.Split(csv, ",") {
		name := strings.ToUpper(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		for _, t := range model.AllDistrictTypes {
			if string(t) == name {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
