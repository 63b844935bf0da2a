package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"stock-scout/config"
	"stock-scout/models"
	"stock-scout/observability"
	"stock-scout/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// State is the cache lifecycle state.
type State string

const (
	StateEmpty   State = "empty"
	StateWarming State = "warming"
	StateReady   State = "ready"
	StateStale   State = "stale"
)

// ErrSnapshotUnavailable is returned when no snapshot exists and an
// on-demand build failed. Callers should treat it as retryable.
var ErrSnapshotUnavailable = errors.New("snapshot unavailable")

// BuildAuditor records snapshot build attempts. Auditing is best-effort;
// a nil auditor disables it.
type BuildAuditor interface {
	RecordSnapshotBuild(ctx context.Context, build *models.SnapshotBuild) error
}

// buildCall tracks one in-flight snapshot build so concurrent refresh
// triggers collapse into it and share the result.
type buildCall struct {
	done chan struct{}
	snap *Snapshot
	err  error
}

// Cache maintains the current market snapshot. Readers only ever pay for a
// pointer read; the single-writer rule serializes builds.
type Cache struct {
	quotes       services.MarketDataService
	fundamentals services.FundamentalsService
	auditor      BuildAuditor
	symbols      []string
	concurrency  int
	buildTimeout time.Duration

	mu       sync.RWMutex
	current  *Snapshot
	previous *Snapshot
	state    State
	inflight *buildCall
}

// NewCache creates a Cache over the configured symbol universe.
func NewCache(cfg *config.Config, quotes services.MarketDataService, fundamentals services.FundamentalsService, auditor BuildAuditor) *Cache {
	return &Cache{
		quotes:       quotes,
		fundamentals: fundamentals,
		auditor:      auditor,
		symbols:      cfg.Cache.Symbols,
		concurrency:  cfg.Cache.FetchConcurrency,
		buildTimeout: time.Duration(cfg.Cache.BuildTimeoutSec) * time.Second,
		state:        StateEmpty,
	}
}

// State returns the cache lifecycle state.
func (c *Cache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Current returns the current snapshot, triggering one synchronous build if
// none exists yet. A stale snapshot is still served; staleness is preferred
// over unavailability.
func (c *Cache) Current(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	snap := c.current
	c.mu.RUnlock()

	if snap != nil {
		observability.GetMetrics().SetSnapshotAge(snap.Age())
		return snap, nil
	}

	snap, err := c.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
	}
	return snap, nil
}

// LastBuiltAt returns when the current snapshot was captured, or the zero
// time when no snapshot exists.
func (c *Cache) LastBuiltAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return time.Time{}
	}
	return c.current.CapturedAt
}

// Previous returns the superseded snapshot generation, if any.
func (c *Cache) Previous() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.previous
}

// Refresh builds a new snapshot and atomically swaps it in. Concurrent
// callers collapse into a single build and all receive the same snapshot
// reference. A failed build leaves the prior snapshot in place.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	if call := c.inflight; call != nil {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.snap, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &buildCall{done: make(chan struct{})}
	c.inflight = call
	if c.state == StateEmpty {
		c.state = StateWarming
	}
	c.mu.Unlock()

	snap, err := c.build(ctx)

	c.mu.Lock()
	c.inflight = nil
	if err == nil {
		c.previous = c.current
		c.current = snap
		c.state = StateReady
	} else if c.current == nil {
		c.state = StateEmpty
	}
	c.mu.Unlock()

	call.snap = snap
	call.err = err
	close(call.done)

	return snap, err
}

// MarkStale flags the cache as overdue for a refresh. The current snapshot
// remains readable.
func (c *Cache) MarkStale() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateReady {
		c.state = StateStale
	}
}

// fetchResult carries one symbol's fetch outcome out of the worker pool.
type fetchResult struct {
	index  int
	record *models.StockRecord
	err    error
}

// build fetches every tracked symbol and assembles a snapshot. A symbol
// whose fetch fails is omitted and retried at the next scheduled refresh;
// the build fails only when not a single symbol loads.
func (c *Cache) build(ctx context.Context) (*Snapshot, error) {
	metrics := observability.GetMetrics()
	started := time.Now()

	buildCtx, cancel := context.WithTimeout(ctx, c.buildTimeout)
	defer cancel()

	results := make(chan fetchResult, len(c.symbols))
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup

	for i, symbol := range c.symbols {
		wg.Add(1)
		go func(idx int, sym string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-buildCtx.Done():
				results <- fetchResult{index: idx, err: buildCtx.Err()}
				return
			}

			record, err := c.fetchSymbol(buildCtx, sym)
			results <- fetchResult{index: idx, record: record, err: err}
		}(i, symbol)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	loaded := make([]fetchResult, 0, len(c.symbols))
	for res := range results {
		if res.err != nil {
			observability.WithSymbol(c.symbols[res.index]).Warn(
				"symbol omitted from snapshot", "error", res.err)
			continue
		}
		loaded = append(loaded, res)
	}

	duration := time.Since(started)

	if len(loaded) == 0 {
		err := fmt.Errorf("snapshot build loaded 0 of %d symbols", len(c.symbols))
		metrics.RecordSnapshotBuild("failed", duration, 0)
		c.audit(ctx, nil, "failed", len(c.symbols), 0, err, started, duration)
		return nil, err
	}

	// Snapshot order follows the configured symbol order, which keeps
	// no-intent results deterministic across identical builds.
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].index < loaded[j].index })
	records := make([]models.StockRecord, 0, len(loaded))
	for _, res := range loaded {
		records = append(records, *res.record)
	}

	snap := NewSnapshot(records)
	metrics.RecordSnapshotBuild("completed", duration, len(records))
	c.audit(ctx, snap, "completed", len(c.symbols), len(records), nil, started, duration)

	observability.Info("snapshot built",
		"snapshot_id", snap.ID,
		"tracked", len(c.symbols),
		"loaded", len(records),
		"duration_ms", duration.Milliseconds())

	return snap, nil
}

// fetchSymbol merges the quote with extended metrics. Missing fundamentals
// cost the record its extended fields, not its place in the snapshot.
func (c *Cache) fetchSymbol(ctx context.Context, symbol string) (*models.StockRecord, error) {
	record, err := c.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if c.fundamentals != nil {
		if f, err := c.fundamentals.GetFundamentals(ctx, symbol); err == nil {
			applyFundamentals(record, f)
		} else {
			observability.WithSymbol(symbol).Debug(
				"fundamentals unavailable", "error", err)
		}
	}

	return record, nil
}

func applyFundamentals(record *models.StockRecord, f *services.Fundamentals) {
	if f.CompanyName != "" {
		record.CompanyName = f.CompanyName
	}
	record.Sector = f.Sector
	record.Industry = f.Industry
	record.MarketCap, _ = decimal.NewFromString(f.MarketCap)
	record.PERatio = f.PERatio
	record.ROE = f.ROE
	record.DebtToEquity = f.DebtToEquity
	record.EPS, _ = decimal.NewFromString(f.EPS)
	record.DividendYield = f.DividendYield
	record.RSI = f.RSI
	record.MACD = f.MACD
}

func (c *Cache) audit(ctx context.Context, snap *Snapshot, status string, tracked, loaded int, buildErr error, started time.Time, duration time.Duration) {
	if c.auditor == nil {
		return
	}

	build := &models.SnapshotBuild{
		ID:             uuid.New(),
		Status:         status,
		SymbolsTracked: tracked,
		SymbolsLoaded:  loaded,
		DurationMs:     duration.Milliseconds(),
		StartedAt:      started,
	}
	if snap != nil {
		id := snap.ID
		build.SnapshotID = &id
	}
	if buildErr != nil {
		msg := buildErr.Error()
		build.ErrorMessage = &msg
	}

	if err := c.auditor.RecordSnapshotBuild(ctx, build); err != nil {
		observability.Warn("failed to record snapshot build audit", "error", err)
	}
}
