// Package geocache implements the write-through geocode cache (§4.2): a
// content-addressed lookup keyed on the normalized street address, backed by
// a bounded buffered channel so cache writes never block the geocode
// pipeline's hot path.
package geocache

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nysenate/geodistrict/internal/model"
)

// uniqueViolation is the Postgres SQLSTATE for a unique-key conflict (§7):
// a duplicate cache entry is suppressed, any other error is logged.
const uniqueViolation = "23505"

// Querier is the subset of db.Pool the cache needs for reads; writes go
// through the buffered flush path in flush.go.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Cache is the geocode cache: a lookup keyed by model.CacheKey, with writes
// queued onto a bounded channel and applied by a single background flusher.
type Cache struct {
	db Querier

	mu      sync.Mutex // gates the flush loop; only one flush runs at a time
	pending chan model.GeocodedAddress

	titleCaser cases.Caser
}

// Options configures a Cache.
type Options struct {
	BufferSize int // channel capacity; 0 defaults to 1000
}

// New creates a Cache backed by q for reads, with a background flusher that
// drains writes pushed through Put.
func New(q Querier, flusher Flusher, opts Options) *Cache {
	size := opts.BufferSize
	if size <= 0 {
		size = 1000
	}

	c := &Cache{
		db:         q,
		pending:    make(chan model.GeocodedAddress, size),
		titleCaser: cases.Title(language.English),
	}

	go c.runFlusher(flusher)
	return c
}

// Flusher persists one cache entry; implemented by store.Store in
// production and a stub in tests.
type Flusher interface {
	SaveGeocode(ctx context.Context, ga model.GeocodedAddress) error
}

// Get looks up a cached geocode by the address's composite key. Returns
// ok=false on a cache miss, for an address that is not Retrievable (§4.2),
// or when the stored row's quality is below HOUSE (§4.2) — a
// CITY- or ZIP-level row is not a reliable building match and must be
// treated the same as a miss.
func (c *Cache) Get(ctx context.Context, addr model.StreetAddress) (model.Geocode, bool, error) {
	if !addr.Retrievable() {
		return model.Geocode{}, false, nil
	}
	key := addr.Key()

	// §4.2: a lookup with a zip5 on file matches on zip5; one without falls
	// back to matching on city+state instead, rather than requiring both.
	row := c.db.QueryRow(ctx, `
		SELECT lat, lon, method, quality
		FROM public.geocode_cache
		WHERE bldg_num = $1 AND pre_dir = $2 AND street_name = $3 AND post_dir = $4
		  AND street_type = $5 AND po_box = $9
		  AND (
			($6 <> '' AND zip5 = $6)
			OR ($6 = '' AND location = $7 AND state = $8)
		  )
	`, key.BldgNum, key.PreDir, key.StreetName, key.PostDir, key.StreetType, key.Zip5, key.Location, key.State, key.POBox)

	var lat, lon float64
	var method, quality string
	if err := row.Scan(&lat, &lon, &method, &quality); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Geocode{}, false, nil
		}
		return model.Geocode{}, false, eris.Wrap(err, "geocache: lookup")
	}

	q := model.ParseQuality(quality)
	if q < model.QualityHouse {
		return model.Geocode{}, false, nil
	}
	return model.Geocode{Lat: lat, Lon: lon, Method: method, Quality: q, Cached: true}, true, nil
}

// Put enqueues a successful geocode for asynchronous write-through. Never
// blocks: when the buffer is full it drops the write and logs a warning — losing a cache write degrades performance, not
// correctness, so it must never stall the caller (§5).
func (c *Cache) Put(ga model.GeocodedAddress) {
	if !ga.Street.Cacheable() {
		return
	}
	ga.Street.Location = c.titleCaser.String(strings.ToLower(ga.Street.Location))

	select {
	case c.pending <- ga:
	default:
		zap.L().Warn("geocache: buffer full, dropping cache write",
			zap.String("street", ga.Street.StreetName))
	}
}

// runFlusher drains pending writes one at a time. Single-flusher discipline
// (the mutex) means concurrent Cache.Put callers never race on the
// underlying store, even though the store itself may be safe for concurrent
// writes — it keeps write ordering deterministic for tests.
func (c *Cache) runFlusher(f Flusher) {
	for ga := range c.pending {
		c.mu.Lock()
		if err := f.SaveGeocode(context.Background(), ga); err != nil {
			if isDuplicateKey(err) {
				zap.L().Debug("geocache: duplicate cache key, skipping", zap.String("street", ga.Street.StreetName))
			} else {
				zap.L().Warn("geocache: flush failed", zap.Error(err))
			}
		}
		c.mu.Unlock()
	}
}

// Close stops accepting new writes and lets the flusher drain the buffer.
func (c *Cache) Close() {
	close(c.pending)
}

func isDuplicateKey(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == uniqueViolation
	}
	return strings.Contains(err.Error(), uniqueViolation)
}
