// Package monitor drives one update cycle over all configured sources:
// concurrent fetch with per-source retries, deduplication against a
// rolling event window, time-decayed scoring and snapshot persistence.
package monitor

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/trendmonitor/trend-monitor/internal/analysis"
	"github.com/trendmonitor/trend-monitor/internal/config"
	"github.com/trendmonitor/trend-monitor/internal/logging"
	"github.com/trendmonitor/trend-monitor/internal/metrics"
	"github.com/trendmonitor/trend-monitor/internal/source"
	"github.com/trendmonitor/trend-monitor/internal/storage"
)

// Event is one deduplicated item inside the retention window.
type Event struct {
	Source      string
	Item        source.Item
	Fingerprint string
	SeenAt      time.Time
}

// Monitor holds the rolling event window and the per-item dedup indexes.
// It is not safe for concurrent Update calls; the driver loop is the only
// caller.
type Monitor struct {
	sources []source.Source
	opts    config.Options
	store   *storage.Store // nil disables persistence
	metrics *metrics.Collector
	log     zerolog.Logger

	events   []Event
	seenByID map[string]time.Time // item id -> dedup entry expiry
	seenByFP map[string]time.Time // fingerprint -> dedup entry expiry

	now func() time.Time
}

// New builds a monitor. Out-of-range options are clamped to their
// minimums; a zero dedup TTL inherits the retention window.
func New(sources []source.Source, store *storage.Store, collector *metrics.Collector, opts config.Options) *Monitor {
	if opts.FetchRetries < 1 {
		opts.FetchRetries = 1
	}
	if opts.FetchBackoff < 0 {
		opts.FetchBackoff = 0
	}
	if opts.FetchConcurrency < 1 {
		opts.FetchConcurrency = 1
	}
	if opts.DedupTTL <= 0 {
		opts.DedupTTL = opts.Retention
	}
	if collector == nil {
		collector = metrics.Disabled()
	}
	return &Monitor{
		sources:  sources,
		opts:     opts,
		store:    store,
		metrics:  collector,
		log:      logging.Component("monitor"),
		seenByID: make(map[string]time.Time),
		seenByFP: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Update runs one full cycle and returns the filtered top trends. Neither
// source nor storage failures fail the cycle; a source that exhausts its
// retries just contributes nothing this round.
func (m *Monitor) Update(ctx context.Context) []analysis.Trend {
	start := time.Now()
	now := m.now().UTC()

	results := m.fetchAll(ctx)

	newEvents := 0
	for i, res := range results {
		name := m.sources[i].Name()
		for _, item := range res.Items {
			fp := item.Fingerprint()
			if m.isSeen(item.ID, fp, now) {
				continue
			}
			expiry := now.Add(m.opts.DedupTTL)
			if item.ID != "" {
				m.seenByID[item.ID] = expiry
			}
			m.seenByFP[fp] = expiry
			m.events = append(m.events, Event{Source: name, Item: item, Fingerprint: fp, SeenAt: now})
			newEvents++
		}
	}
	m.metrics.RecordNewEvents(newEvents)

	m.prune(now)
	m.sweepSeen(now)

	trends := m.score(now)
	filtered := trends[:0:0]
	for _, trend := range trends {
		if trend.Score >= m.opts.MinScore {
			filtered = append(filtered, trend)
		}
	}
	if m.opts.TopK > 0 && len(filtered) > m.opts.TopK {
		filtered = filtered[:m.opts.TopK]
	}

	// A storage failure costs the snapshot, not the iteration: the
	// computed trends are still returned and the loop keeps running.
	if m.store != nil {
		if err := m.store.Save(filtered, now); err != nil {
			m.log.Error().Err(err).Msg("snapshot not persisted")
		} else {
			m.metrics.RecordSnapshotSaved()
		}
	}

	m.metrics.RecordIterationDuration(time.Since(start).Seconds())
	return filtered
}

// fetchAll polls every source concurrently, at most FetchConcurrency at a
// time, and returns one result per source in source order.
func (m *Monitor) fetchAll(ctx context.Context) []source.FetchResult {
	results := make([]source.FetchResult, len(m.sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.FetchConcurrency)
	for i, src := range m.sources {
		g.Go(func() error {
			results[i] = m.fetchWithRetry(ctx, src)
			return nil
		})
	}
	g.Wait()
	return results
}

func (m *Monitor) fetchWithRetry(ctx context.Context, src source.Source) source.FetchResult {
	cfg := src.Config()
	attempts := m.opts.FetchRetries
	if cfg.MaxRetries > 0 {
		attempts = cfg.MaxRetries
	}
	backoff := m.opts.FetchBackoff
	if cfg.RetryBackoff > 0 {
		backoff = cfg.RetryBackoff
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		m.metrics.RecordFetchAttempt(src.Name())
		res, err := src.Fetch(ctx)
		if err == nil {
			m.metrics.RecordFetchSuccess(src.Name(), res.NotModified)
			return *res
		}

		if attempt == attempts {
			m.log.Warn().Err(err).Str("source", src.Name()).
				Int("attempt", attempt).Int("attempts", attempts).
				Msg("fetch failed, giving up")
			m.metrics.RecordFetchFailure(src.Name())
			break
		}

		delay := backoff
		if backoff > 1 {
			delay = math.Pow(backoff, float64(attempt-1))
		}
		wait := time.Duration(delay * (0.5 + rand.Float64()) * float64(time.Second))
		m.metrics.RecordFetchRetry(src.Name())
		m.log.Warn().Err(err).Str("source", src.Name()).
			Int("attempt", attempt).Int("attempts", attempts).
			Dur("wait", wait).Msg("fetch failed, retrying")
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return source.FetchResult{}
			case <-timer.C:
			}
		}
	}
	return source.FetchResult{}
}

// prune drops events older than the retention window from the front of
// the window, together with their dedup entries.
func (m *Monitor) prune(now time.Time) {
	threshold := now.Add(-m.opts.Retention)
	n := 0
	for n < len(m.events) && m.events[n].Item.Published.Before(threshold) {
		ev := m.events[n]
		delete(m.seenByID, ev.Item.ID)
		delete(m.seenByFP, ev.Fingerprint)
		n++
	}
	if n > 0 {
		m.events = append(m.events[:0], m.events[n:]...)
	}
}

// sweepSeen removes dedup entries whose TTL has lapsed even though their
// event may still be inside the retention window.
func (m *Monitor) sweepSeen(now time.Time) {
	for id, expiry := range m.seenByID {
		if !expiry.After(now) {
			delete(m.seenByID, id)
		}
	}
	for fp, expiry := range m.seenByFP {
		if !expiry.After(now) {
			delete(m.seenByFP, fp)
		}
	}
}

func (m *Monitor) isSeen(id, fingerprint string, now time.Time) bool {
	if id != "" {
		if expiry, ok := m.seenByID[id]; ok && expiry.After(now) {
			return true
		}
	}
	expiry, ok := m.seenByFP[fingerprint]
	return ok && expiry.After(now)
}

// score runs the analysis over the live window. A panic in scoring is
// contained to this cycle so one malformed item cannot take the loop
// down.
func (m *Monitor) score(now time.Time) (trends []analysis.Trend) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("scoring panicked, skipping cycle")
			trends = nil
		}
	}()

	items := make([]source.Item, len(m.events))
	for i, ev := range m.events {
		items[i] = ev.Item
	}
	cfg := analysis.Config{
		DecayHours:    m.opts.DecayHours,
		TitleWeight:   1.0,
		SummaryWeight: 0.6,
		UseStemmer:    m.opts.UseStemmer,
	}
	return analysis.ScoreTrends(items, now, cfg)
}

// EventCount reports the current size of the rolling window.
func (m *Monitor) EventCount() int {
	return len(m.events)
}
