package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/the-livingstone/sdb-options/internal/model"
)

// TreeSource lists the nodes under a subtree root. The catalog client
// satisfies it.
type TreeSource interface {
	GetHeirs(ctx context.Context, id string, recursive, full bool) ([]model.TreeNode, error)
}

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // refresh interval (default: 15m)
	Concurrency int           // max concurrent subtree fetches (default: 4)
	Timeout     time.Duration // per-subtree timeout (default: 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    15 * time.Minute,
		Concurrency: 4,
		Timeout:     30 * time.Second,
	}
}

// Poller periodically re-fetches watched subtrees and caches the results.
// Snapshot returns the last good fetch; resolution calls hand it to the
// series resolver instead of walking the catalog node by node.
type Poller struct {
	cfg    Config
	source TreeSource
	logger *slog.Logger

	mu        sync.RWMutex
	roots     []string
	snapshots map[string][]model.TreeNode
	fetchedAt map[string]time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	kick   chan struct{}
}

// New creates a new Poller.
func New(cfg Config, source TreeSource, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval == 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	return &Poller{
		cfg:       cfg,
		source:    source,
		logger:    logger,
		snapshots: make(map[string][]model.TreeNode),
		fetchedAt: make(map[string]time.Time),
		kick:      make(chan struct{}, 1),
	}
}

// Watch adds subtree roots to the refresh set. Newly watched roots are
// fetched on the next cycle; call Refresh to pull them in immediately.
func (p *Poller) Watch(rootIDs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range rootIDs {
		if _, ok := p.snapshots[id]; ok {
			continue
		}
		p.roots = append(p.roots, id)
		p.snapshots[id] = nil
	}
}

// Snapshot returns the cached subtree for a root and its fetch time.
// A nil slice means the root is unknown or not fetched yet.
func (p *Poller) Snapshot(rootID string) ([]model.TreeNode, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshots[rootID], p.fetchedAt[rootID]
}

// Fetch refreshes one subtree synchronously and returns the new snapshot.
// The root joins the watch set when it is not in it yet.
func (p *Poller) Fetch(ctx context.Context, rootID string) ([]model.TreeNode, error) {
	p.Watch(rootID)

	nodes, err := p.source.GetHeirs(ctx, rootID, true, true)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.snapshots[rootID] = nodes
	p.fetchedAt[rootID] = time.Now()
	p.mu.Unlock()

	return nodes, nil
}

// Refresh schedules an immediate refresh cycle.
func (p *Poller) Refresh() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Start begins the refresh loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("snapshot poller started",
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("snapshot poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main refresh loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Fetch immediately on start.
	p.pollAll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollAll()
		case <-p.kick:
			p.pollAll()
		}
	}
}

// pollAll fetches all watched subtrees concurrently.
func (p *Poller) pollAll() {
	start := time.Now()

	p.mu.RLock()
	roots := append([]string(nil), p.roots...)
	p.mu.RUnlock()

	if len(roots) == 0 {
		p.logger.Debug("no subtrees to refresh")
		return
	}

	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup
	var fetched, errors atomic.Int64

	for _, root := range roots {
		wg.Add(1)
		go func(rootID string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-p.ctx.Done():
				return
			}

			if err := p.pollRoot(rootID); err != nil {
				p.logger.Warn("failed to refresh subtree",
					"root", rootID,
					"err", err,
				)
				errors.Add(1)
				return
			}

			fetched.Add(1)
		}(root)
	}

	wg.Wait()

	p.logger.Info("refresh cycle complete",
		"subtrees", len(roots),
		"fetched", fetched.Load(),
		"errors", errors.Load(),
		"duration", time.Since(start),
	)
}

// pollRoot fetches one subtree and swaps it into the cache.
func (p *Poller) pollRoot(rootID string) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	nodes, err := p.source.GetHeirs(ctx, rootID, true, true)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.snapshots[rootID] = nodes
	p.fetchedAt[rootID] = time.Now()
	p.mu.Unlock()

	return nil
}
