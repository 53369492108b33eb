package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/the-livingstone/sdb-options/internal/config"
	"github.com/the-livingstone/sdb-options/internal/database"
	"github.com/the-livingstone/sdb-options/internal/feed"
	"github.com/the-livingstone/sdb-options/internal/model"
	"github.com/the-livingstone/sdb-options/internal/option"
	"github.com/the-livingstone/sdb-options/internal/poller"
	"github.com/the-livingstone/sdb-options/internal/sdb"
	"github.com/the-livingstone/sdb-options/internal/used"
	"github.com/the-livingstone/sdb-options/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/optadder.local.yaml", "path to config file")
	ticker := flag.String("ticker", "", "series ticker (required)")
	exchange := flag.String("exchange", "", "exchange name (required)")
	kindFlag := flag.String("kind", "", "product branch: OPTION or 'OPTION ON FUTURE' (resolved when empty)")
	shortname := flag.String("shortname", "", "short name, allows creating a series that does not exist yet")
	week := flag.Int("week", 0, "weekly cycle number 1-5, 0 for the monthly series")
	expiration := flag.String("expiration", "", "add or update a contract with this expiration date (YYYY-MM-DD)")
	maturity := flag.String("maturity", "", "explicit maturity label for the added contract")
	calls := flag.String("calls", "", "comma-separated call strikes for the added contract")
	puts := flag.String("puts", "", "comma-separated put strikes for the added contract")
	underlying := flag.String("underlying", "", "underlying future ticker hint")
	refresh := flag.Bool("refresh", false, "replace the live strike book instead of merging into it")
	unsafe := flag.Bool("unsafe", false, "skip the strike refresh safety checks")
	dryRun := flag.Bool("dry-run", false, "resolve and print pending changes without writing back")
	watch := flag.Bool("watch", false, "after resolving, follow catalog change events for the series")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting optadder",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	if *ticker == "" || *exchange == "" {
		logger.Error("both -ticker and -exchange are required")
		flag.Usage()
		os.Exit(2)
	}
	kind := model.ProductKind(*kindFlag)
	if kind != "" && !kind.Valid() {
		logger.Error("unknown product kind", "kind", *kindFlag)
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Create catalog client
	opts := []sdb.ClientOption{
		sdb.WithLogger(logger),
		sdb.WithTimeout(cfg.API.Timeout),
		sdb.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
	}
	if cfg.API.BaseURL != "" {
		opts = append(opts, sdb.WithBaseURL(cfg.API.BaseURL))
	}
	client := sdb.NewClient(sdb.Environment(cfg.Env), cfg.API.SessionID, opts...)

	deps := option.Deps{
		Tree:       client,
		Underlying: client,
		Logger:     logger,
	}

	// Used-symbols store guards strike removal; optional.
	var usedSymbols used.Set
	if cfg.Database.Enabled() {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		store := used.NewStore(pool, logger)
		usedSymbols, err = store.Load(ctx, cfg.Resolver.IncludeDemo)
		if err != nil {
			logger.Error("failed to load used symbols", "error", err)
			os.Exit(1)
		}
		logger.Info("used symbols loaded", "count", len(usedSymbols))
	}

	weekNumber := cfg.Resolver.WeekNumber
	if *week != 0 {
		weekNumber = *week
	}

	series, err := option.ResolveSeries(ctx, deps, option.Params{
		Ticker:     *ticker,
		Exchange:   *exchange,
		Shortname:  *shortname,
		Kind:       kind,
		WeekNumber: weekNumber,
	})
	if err != nil {
		logger.Error("failed to resolve series", "error", err)
		os.Exit(1)
	}
	logger.Info("series resolved",
		"ticker", series.Ticker,
		"exchange", series.Exchange,
		"kind", series.Kind,
		"contracts", len(series.Contracts),
		"weekly_commons", len(series.WeeklyCommons),
	)

	if *expiration != "" {
		strikes, err := parseStrikes(*puts, *calls)
		if err != nil {
			logger.Error("bad strike list", "error", err)
			os.Exit(2)
		}
		date, err := time.Parse("2006-01-02", *expiration)
		if err != nil {
			logger.Error("bad expiration date", "error", err)
			os.Exit(2)
		}
		if existing, owner, ok := series.FindExpiration(date, *maturity); ok {
			if *refresh {
				result := existing.RefreshStrikes(strikes, usedSymbols, !*unsafe)
				if result == nil {
					logger.Warn("strike refresh refused by safety checks", "symbol", existing.SymbolID())
				} else {
					logger.Info("strike book refreshed",
						"symbol", existing.SymbolID(),
						"added", result.Added,
						"removed", result.Removed,
						"preserved", result.Preserved,
					)
					owner.AddExpiration(existing)
				}
			} else {
				existing.AddStrikes(strikes)
				owner.AddExpiration(existing)
				logger.Info("updating existing contract", "symbol", existing.SymbolID())
			}
		} else {
			exp, err := option.BuildExpiration(ctx, series, option.Input{
				ExpirationDate: date,
				Maturity:       *maturity,
				Strikes:        strikes,
				Underlying:     *underlying,
			})
			if err != nil {
				logger.Error("failed to build expiration", "error", err)
				os.Exit(1)
			}
			series.AddExpiration(exp)
			logger.Info("adding new contract", "symbol", exp.SymbolID())
		}
	}

	changes := series.PendingChanges()
	summary, err := json.MarshalIndent(struct {
		Series  string                 `json:"series"`
		Changes *option.PendingChanges `json:"changes"`
		DryRun  bool                   `json:"dry_run"`
	}{
		Series:  fmt.Sprintf("%s.%s", series.Ticker, series.Exchange),
		Changes: changes,
		DryRun:  *dryRun,
	}, "", "  ")
	if err != nil {
		logger.Error("failed to render summary", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(summary))

	if *dryRun || changes.Empty() {
		logger.Info("nothing written", "dry_run", *dryRun)
	} else {
		if err := writeBack(ctx, client, series, logger); err != nil {
			logger.Error("write-back failed", "error", err)
			os.Exit(1)
		}
		logger.Info("write-back complete")
	}

	if *watch {
		if err := watchSeries(ctx, cfg, deps, series, client, logger); err != nil && err != context.Canceled {
			logger.Error("watch failed", "error", err)
			os.Exit(1)
		}
	}
}

// watchSeries follows the change feed for the series subtree. Every change
// event re-fetches the parent snapshot through the poller and re-resolves the
// series from it, so the log always reflects the current catalog state.
func watchSeries(ctx context.Context, cfg *config.Config, deps option.Deps, series *option.Series, client *sdb.Client, logger *slog.Logger) error {
	if series.Instrument.ID == "" {
		return fmt.Errorf("cannot watch a series that is not in the catalog yet")
	}
	parentID := series.Instrument.Parent()
	if parentID == "" {
		return fmt.Errorf("series %s has no parent folder in its path", series.Instrument.ID)
	}

	snapshots := poller.New(poller.Config{}, client, logger)
	snapshots.Watch(parentID)
	if err := snapshots.Start(ctx); err != nil {
		return err
	}
	defer snapshots.Stop(context.Background())

	feedCfg := feed.DefaultConfig()
	feedCfg.URL = cfg.Feed.URL
	feedCfg.SessionID = cfg.API.SessionID
	feedCfg.ReconnectBaseDelay = cfg.Feed.ReconnectBaseDelay
	feedCfg.ReconnectMaxDelay = cfg.Feed.ReconnectMaxDelay
	feedCfg.PingInterval = cfg.Feed.PingInterval
	feedCfg.ReadTimeout = cfg.Feed.ReadTimeout

	feedClient := feed.NewClient(feedCfg, logger)
	defer feedClient.Close()

	go feedClient.Run(ctx)
	if err := feedClient.Watch(series.Instrument.ID); err != nil && err != feed.ErrNotConnected {
		return err
	}

	logger.Info("watching series", "id", series.Instrument.ID, "parent", parentID)
	current := series
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-feedClient.Events():
			if !ok {
				return nil
			}
			logger.Info("catalog change",
				"event", ev.Kind,
				"node", ev.NodeID,
				"symbol", ev.SymbolID,
			)

			parentTree, err := snapshots.Fetch(ctx, parentID)
			if err != nil {
				logger.Warn("failed to refresh parent snapshot", "error", err)
				continue
			}
			fresh, err := option.ResolveSeries(ctx, deps, option.Params{
				Ticker:         current.Ticker,
				Exchange:       current.Exchange,
				Kind:           current.Kind,
				WeekNumber:     current.WeekNumber,
				ParentTree:     parentTree,
				ParentFolderID: parentID,
			})
			if err != nil {
				logger.Warn("failed to re-resolve series", "error", err)
				continue
			}

			if d := option.Diff(current.Instrument, fresh.Instrument); d != "" {
				logger.Info("series payload changed", "diff", d)
			}
			logger.Info("series refreshed",
				"contracts", len(fresh.Contracts),
				"weekly_commons", len(fresh.WeeklyCommons),
			)
			current = fresh
		}
	}
}

// writeBack persists the series folder first, so that new contracts carrying
// the series-ID placeholder can be rewired to the assigned ID, then the
// contracts in two batches.
func writeBack(ctx context.Context, client *sdb.Client, series *option.Series, logger *slog.Logger) error {
	seriesID := series.Instrument.ID
	if series.Reference == nil {
		res, err := client.Create(ctx, series.Instrument)
		if err != nil {
			return fmt.Errorf("create series folder: %w", err)
		}
		seriesID = res.ID
		logger.Info("series folder created", "id", seriesID)
	}

	var creates, updates []*model.TreeNode
	for _, exp := range series.NewExpirations {
		node := exp.Instrument.Clone()
		for i, seg := range node.Path {
			if seg == model.NewSeriesPlaceholder {
				node.Path[i] = seriesID
			}
		}
		creates = append(creates, node)
	}
	for _, exp := range series.UpdateExpirations {
		updates = append(updates, exp.Instrument)
	}
	for _, sub := range weekFolders(series) {
		for _, exp := range sub.NewExpirations {
			creates = append(creates, exp.Instrument)
		}
		for _, exp := range sub.UpdateExpirations {
			updates = append(updates, exp.Instrument)
		}
	}

	if len(creates) > 0 {
		res, err := client.BatchCreate(ctx, creates)
		if err != nil {
			return fmt.Errorf("batch create: %w", err)
		}
		logger.Info("contracts created", "count", len(creates), "message", res.Message)
	}
	if len(updates) > 0 {
		res, err := client.BatchUpdate(ctx, updates)
		if err != nil {
			return fmt.Errorf("batch update: %w", err)
		}
		logger.Info("contracts updated", "count", len(updates), "message", res.Message)
	}
	return nil
}

func weekFolders(series *option.Series) []*option.Series {
	var subs []*option.Series
	for _, wc := range series.WeeklyCommons {
		subs = append(subs, wc.WeekFolders...)
	}
	return subs
}

// parseStrikes turns "400,410.5" style flag values into per-side lists.
// Both sides empty yields nil so the builder keeps its own defaulting.
func parseStrikes(puts, calls string) (map[model.Side][]float64, error) {
	if puts == "" && calls == "" {
		return nil, nil
	}
	strikes := map[model.Side][]float64{}
	for side, raw := range map[model.Side]string{model.Put: puts, model.Call: calls} {
		if raw == "" {
			continue
		}
		for _, field := range strings.Split(raw, ",") {
			price, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("strike %q: %w", field, err)
			}
			strikes[side] = append(strikes[side], price)
		}
	}
	return strikes, nil
}
