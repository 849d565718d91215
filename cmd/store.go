package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/nysenate/geodistrict/internal/store"
)

// initStore builds the persistence backend named by cfg.Store.Driver.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.SQLitePath
		if dsn == "" {
			dsn = "geodistrict.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		poolCfg, err := pgxpool.ParseConfig(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "parse store.database_url")
		}
		if cfg.Store.MaxConns > 0 {
			poolCfg.MaxConns = cfg.Store.MaxConns
		}
		if cfg.Store.MinConns > 0 {
			poolCfg.MinConns = cfg.Store.MinConns
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, eris.Wrap(err, "connect store.database_url")
		}
		return store.NewPostgres(pool), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
