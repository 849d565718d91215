package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nysenate/geodistrict/internal/api"
	"github.com/nysenate/geodistrict/internal/census"
	"github.com/nysenate/geodistrict/internal/geocache"
	"github.com/nysenate/geodistrict/internal/geopipeline"
	"github.com/nysenate/geodistrict/internal/google"
	"github.com/nysenate/geodistrict/internal/registry"
	"github.com/nysenate/geodistrict/internal/resolve"
	"github.com/nysenate/geodistrict/internal/shapefile"
	"github.com/nysenate/geodistrict/internal/store"
	"github.com/nysenate/geodistrict/internal/streetfile"
	"github.com/nysenate/geodistrict/internal/usps"
	"github.com/nysenate/geodistrict/internal/wfs"
)

var servePort int

// serveEnv bundles the long-lived collaborators serve wires together, so
// they can be torn down in one place on shutdown.
type serveEnv struct {
	Pool  *pgxpool.Pool
	Store store.Store
}

func (e *serveEnv) Close() {
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the district resolution HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		srv, env, err := buildServer(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := resolvePort(servePort, cfg.Server.Port)
		return startServer(ctx, srv.Router(), port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildServer assembles the district resolution pipeline and the api.Server
// wrapping it. Unlike cmd batch, it adds the USPS validator and the WFS
// fallback when enabled, registers google only when a key is set, and
// caches the district maps at startup.
func buildServer(ctx context.Context) (*api.Server, *serveEnv, error) {
	pgPool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, nil, eris.Wrap(err, "serve: connect postgres")
	}
	env := &serveEnv{Pool: pgPool}

	st, err := initStore(ctx)
	if err != nil {
		pgPool.Close()
		return nil, nil, eris.Wrap(err, "serve: init store")
	}
	env.Store = st

	reg := registry.New[geopipeline.Provider]()
	reg.RegisterDefault(cfg.Geocoder.Active, func() geopipeline.Provider {
		return census.New(census.WithBaseURL(cfg.Census.BaseURL), census.WithRateLimit(cfg.Census.RateLimit))
	})
	if cfg.Google.Key != "" {
		reg.Register("google", func() geopipeline.Provider {
			return google.New(cfg.Google.Key, google.WithBaseURL(cfg.Google.BaseURL), google.WithRateLimit(cfg.Google.RateLimit))
		})
	}
	reg.SetFallbackChain(cfg.Geocoder.RankOrder)
	for _, name := range cfg.Geocoder.Cacheable {
		reg.MarkCacheable(name)
	}

	cache := geocache.New(pgPool, st, geocache.Options{BufferSize: cfg.Geocache.BufferSize})
	gp := geopipeline.New(reg, cache, cfg.Geocoder.Threads)

	shp := shapefile.New(pgPool)
	if err := shp.CacheDistrictMaps(ctx); err != nil {
		zap.L().Warn("serve: could not cache district maps", zap.Error(err))
	}
	sf := streetfile.New(pgPool)

	var validator resolve.AddressValidator
	if cfg.USPS.Enabled {
		validator = usps.New(cfg.USPS.UserID, usps.WithBaseURL(cfg.USPS.BaseURL), usps.WithRateLimit(cfg.USPS.RateLimit))
	}

	pipeline := resolve.New(gp, shp, sf, validator, nil, cfg.District.ProximityThresholdMeters)

	if cfg.WFS.Enabled {
		pipeline.WFS = wfs.New(cfg.WFS.BaseURL, wfs.WithRateLimit(cfg.WFS.RateLimit))
	}

	srv := &api.Server{
		Pipeline:   pipeline,
		Validator:  validator,
		Streetfile: sf,
		Store:      st,
	}

	zap.L().Info("serve: pipeline initialized",
		zap.String("geocoder", cfg.Geocoder.Active),
		zap.Bool("usps_validate", cfg.USPS.Enabled),
		zap.Bool("wfs_fallback", cfg.WFS.Enabled),
	)

	return srv, env, nil
}

// startServer creates and runs the HTTP server with graceful shutdown.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}

	return nil
}

// resolvePort returns the port flag value if non-zero, otherwise the config default.
func resolvePort(flagPort, configPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return configPort
}
