package marketdata

import (
	"context"
	"time"

	"stock-scout/config"
	"stock-scout/observability"
)

// Scheduler drives the twice-daily snapshot refreshes. It is a coarse poll
// loop, not a cron: every poll interval it checks whether a refresh boundary
// has been crossed since the last successful warm, which tolerates process
// pauses and clock jitter at the cost of up to one interval of delay.
type Scheduler struct {
	cache        *Cache
	refreshTimes []refreshTime
	pollInterval time.Duration
	lastWarm     time.Time
	now          func() time.Time

	stop chan struct{}
	done chan struct{}
}

// refreshTime is a fixed wall-clock trigger.
type refreshTime struct {
	hour   int
	minute int
}

// NewScheduler creates a Scheduler for the configured refresh boundaries.
func NewScheduler(cfg *config.Config, cache *Cache) (*Scheduler, error) {
	times := make([]refreshTime, 0, len(cfg.Cache.RefreshTimes))
	for _, rt := range cfg.Cache.RefreshTimes {
		parsed, err := time.Parse("15:04", rt)
		if err != nil {
			return nil, err
		}
		times = append(times, refreshTime{hour: parsed.Hour(), minute: parsed.Minute()})
	}

	return &Scheduler{
		cache:        cache,
		refreshTimes: times,
		pollInterval: cfg.Cache.PollInterval,
		now:          time.Now,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}, nil
}

// Start launches the background poll loop.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop terminates the poll loop and waits for it to exit.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// tick refreshes when a boundary has been crossed since the last warm.
// A failed refresh leaves the cache stale; the next tick retries.
func (s *Scheduler) tick(ctx context.Context) {
	// A build outside this loop (startup warm, manual refresh) counts as a
	// warm too; without this the first tick would rebuild redundantly.
	if built := s.cache.LastBuiltAt(); built.After(s.lastWarm) {
		s.lastWarm = built
	}

	now := s.now()
	boundary, due := s.dueBoundary(now)
	if !due {
		return
	}

	s.cache.MarkStale()
	observability.Info("scheduled snapshot refresh triggered",
		"boundary", boundary.Format("15:04"))

	if _, err := s.cache.Refresh(ctx); err != nil {
		observability.WithError(err).Error("scheduled snapshot refresh failed",
			"boundary", boundary.Format("15:04"))
		return
	}

	s.lastWarm = now
}

// dueBoundary returns the most recent refresh boundary not yet warmed, if
// any boundary between the last warm and now has been crossed.
func (s *Scheduler) dueBoundary(now time.Time) (time.Time, bool) {
	var latest time.Time
	for _, rt := range s.refreshTimes {
		b := time.Date(now.Year(), now.Month(), now.Day(), rt.hour, rt.minute, 0, 0, now.Location())
		if b.After(now) {
			// Not reached today; the relevant crossing was yesterday.
			b = b.AddDate(0, 0, -1)
		}
		if b.After(latest) {
			latest = b
		}
	}

	if latest.IsZero() || !s.lastWarm.Before(latest) {
		return time.Time{}, false
	}
	return latest, true
}
