// Package used loads the set of symbol IDs referenced by live broker and
// feed accounts. A strike present here must never be removed from the
// catalog, whatever a feed refresh says.
package used

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// cacheTTL bounds staleness: loading the used set is slow, so results are
// reused across resolutions for a while.
const cacheTTL = 2 * time.Hour

// Set is a loaded snapshot of used symbol IDs.
type Set map[string]struct{}

// Contains reports whether the symbol ID is referenced by any account.
func (s Set) Contains(symbolID string) bool {
	_, ok := s[symbolID]
	return ok
}

// Symbols loads used-symbol sets.
type Symbols interface {
	Load(ctx context.Context, includeDemo bool) (Set, error)
}

// Store is the database-backed Symbols implementation with a TTL cache.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	mu       sync.Mutex
	cached   Set
	demo     bool
	loadedAt time.Time
}

// NewStore wraps a pool. A nil logger falls back to slog.Default.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Load returns the used-symbol set, from cache when fresh enough. A cached
// set loaded with demo symbols serves both cases; one loaded without them
// cannot serve a demo-inclusive request.
func (s *Store) Load(ctx context.Context, includeDemo bool) (Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if servesFromCache(s.cached, s.demo, includeDemo, s.loadedAt, time.Now()) {
		return s.cached, nil
	}

	start := time.Now()
	set, err := s.query(ctx, includeDemo)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("loaded used symbols",
		"count", len(set),
		"include_demo", includeDemo,
		"elapsed", time.Since(start),
	)

	s.cached = set
	s.demo = includeDemo
	s.loadedAt = time.Now()
	return set, nil
}

// servesFromCache decides whether a cached set can answer a request. A set
// loaded with demo symbols serves both cases; one loaded without them never
// serves a demo-inclusive request. Staleness is bounded by cacheTTL.
func servesFromCache(cached Set, cachedDemo, includeDemo bool, loadedAt, now time.Time) bool {
	if cached == nil {
		return false
	}
	if now.Sub(loadedAt) >= cacheTTL {
		return false
	}
	return cachedDemo || !includeDemo
}

// Invalidate drops the cache; the next Load hits the database.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
}

func (s *Store) query(ctx context.Context, includeDemo bool) (Set, error) {
	tables := []string{"used_symbols"}
	if includeDemo {
		tables = append(tables, "used_symbols_demo")
	}

	set := Set{}
	for _, table := range tables {
		rows, err := s.pool.Query(ctx, "SELECT symbol_id FROM "+table)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", table, err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan %s: %w", table, err)
			}
			set[id] = struct{}{}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("read %s: %w", table, err)
		}
	}
	return set, nil
}
