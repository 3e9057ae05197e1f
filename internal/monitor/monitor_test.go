package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/trendmonitor/trend-monitor/internal/analysis"
	"github.com/trendmonitor/trend-monitor/internal/config"
	"github.com/trendmonitor/trend-monitor/internal/metrics"
	"github.com/trendmonitor/trend-monitor/internal/source"
	"github.com/trendmonitor/trend-monitor/internal/storage"
)

// fakeSource replays a scripted sequence of fetch outcomes; the last
// outcome repeats once the script runs out.
type fakeSource struct {
	name  string
	cfg   config.Source
	fetch []func() (*source.FetchResult, error)
	calls int
}

func (f *fakeSource) Name() string          { return f.name }
func (f *fakeSource) Config() config.Source { return f.cfg }

func (f *fakeSource) Fetch(ctx context.Context) (*source.FetchResult, error) {
	i := f.calls
	if i >= len(f.fetch) {
		i = len(f.fetch) - 1
	}
	f.calls++
	return f.fetch[i]()
}

func ok(items ...source.Item) func() (*source.FetchResult, error) {
	return func() (*source.FetchResult, error) {
		return &source.FetchResult{Items: items}, nil
	}
}

func fail(msg string) func() (*source.FetchResult, error) {
	return func() (*source.FetchResult, error) {
		return nil, &source.Error{URL: "https://example.com/feed", Err: errors.New(msg)}
	}
}

func testOpts() config.Options {
	return config.Options{
		Retention:        12 * time.Hour,
		DecayHours:       6.0,
		MinScore:         0.4,
		TopK:             20,
		FetchRetries:     3,
		FetchBackoff:     0, // no sleeping in tests
		FetchConcurrency: 5,
	}
}

func newItem(id, title string, published time.Time) source.Item {
	return source.Item{
		ID:        id,
		Title:     title,
		URL:       "https://example.com/" + id,
		Published: published,
		Language:  "en",
	}
}

// ─── Fetch and retry ─────────────────────────────────────────────────────────

func TestUpdateCollectsFromAllSources(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a := &fakeSource{name: "a", fetch: []func() (*source.FetchResult, error){
		ok(newItem("1", "Robots rising", now)),
	}}
	b := &fakeSource{name: "b", fetch: []func() (*source.FetchResult, error){
		ok(newItem("2", "Robots everywhere", now)),
	}}

	m := New([]source.Source{a, b}, nil, metrics.Disabled(), testOpts())
	m.now = func() time.Time { return now }

	trends := m.Update(context.Background())
	if m.EventCount() != 2 {
		t.Errorf("events = %d, want 2", m.EventCount())
	}

	var robot *analysis.Trend
	for i := range trends {
		if trends[i].Keyword == "robot" {
			robot = &trends[i]
		}
	}
	if robot == nil {
		t.Fatalf("trends missing robot: %v", trends)
	}
	if len(robot.Items) != 2 {
		t.Errorf("robot items = %d, want contributions from both sources", len(robot.Items))
	}
}

func TestUpdateRetriesThenSucceeds(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{name: "flaky", fetch: []func() (*source.FetchResult, error){
		fail("boom"),
		ok(newItem("1", "Robots", now)),
	}}

	coll := metrics.Disabled()
	m := New([]source.Source{src}, nil, coll, testOpts())
	m.now = func() time.Time { return now }

	m.Update(context.Background())
	if src.calls != 2 {
		t.Errorf("calls = %d, want success on the second attempt", src.calls)
	}

	snap := coll.Snapshot()
	if snap[metrics.KeyFetchRetries] != 1 {
		t.Errorf("fetch_retries = %d, want 1", snap[metrics.KeyFetchRetries])
	}
	if snap[metrics.KeyFetchFailures] != 0 {
		t.Errorf("fetch_failures = %d, want 0", snap[metrics.KeyFetchFailures])
	}
	if snap[metrics.KeyFetchAttempts] != 2 {
		t.Errorf("fetch_attempts = %d, want 2", snap[metrics.KeyFetchAttempts])
	}
}

func TestUpdateGivesUpAfterRetriesExhausted(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	broken := &fakeSource{name: "broken", fetch: []func() (*source.FetchResult, error){
		fail("always down"),
	}}
	healthy := &fakeSource{name: "healthy", fetch: []func() (*source.FetchResult, error){
		ok(newItem("1", "Robots", now)),
	}}

	coll := metrics.Disabled()
	m := New([]source.Source{broken, healthy}, nil, coll, testOpts())
	m.now = func() time.Time { return now }

	trends := m.Update(context.Background())
	if broken.calls != 3 {
		t.Errorf("calls = %d, want all 3 attempts", broken.calls)
	}
	if coll.Snapshot()[metrics.KeyFetchFailures] != 1 {
		t.Errorf("fetch_failures = %d, want 1", coll.Snapshot()[metrics.KeyFetchFailures])
	}
	if len(trends) == 0 {
		t.Error("healthy source contributed no trends")
	}
}

func TestPerSourceRetryOverride(t *testing.T) {
	src := &fakeSource{
		name: "one-shot",
		cfg:  config.Source{MaxRetries: 1},
		fetch: []func() (*source.FetchResult, error){
			fail("down"),
		},
	}
	m := New([]source.Source{src}, nil, metrics.Disabled(), testOpts())

	m.Update(context.Background())
	if src.calls != 1 {
		t.Errorf("calls = %d, want the per-source limit of 1", src.calls)
	}
}

// ─── Deduplication ───────────────────────────────────────────────────────────

func TestUpdateDeduplicatesRepeatedItems(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	item := newItem("1", "Robots", now)
	src := &fakeSource{name: "a", fetch: []func() (*source.FetchResult, error){
		ok(item),
	}}

	coll := metrics.Disabled()
	m := New([]source.Source{src}, nil, coll, testOpts())
	m.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		m.Update(context.Background())
	}
	if m.EventCount() != 1 {
		t.Errorf("events = %d, want the item admitted once", m.EventCount())
	}
	if got := coll.Snapshot()[metrics.KeyNewEvents]; got != 1 {
		t.Errorf("new_events = %d, want 1", got)
	}
}

func TestUpdateDeduplicatesByFingerprintWhenIDEmpty(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	item := newItem("", "Robots", now)
	src := &fakeSource{name: "a", fetch: []func() (*source.FetchResult, error){
		ok(item),
	}}

	m := New([]source.Source{src}, nil, metrics.Disabled(), testOpts())
	m.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		m.Update(context.Background())
	}
	if m.EventCount() != 1 {
		t.Errorf("events = %d, want fingerprint dedup without an id", m.EventCount())
	}
}

func TestUpdateReadmitsAfterDedupTTL(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := t0
	src := &fakeSource{name: "a", fetch: []func() (*source.FetchResult, error){
		func() (*source.FetchResult, error) {
			return &source.FetchResult{Items: []source.Item{newItem("1", "Robots", now)}}, nil
		},
	}}

	opts := testOpts()
	opts.DedupTTL = 10 * time.Minute
	m := New([]source.Source{src}, nil, metrics.Disabled(), opts)
	m.now = func() time.Time { return now }

	m.Update(context.Background())

	now = t0.Add(15 * time.Minute) // past the TTL, inside retention
	m.Update(context.Background())
	if m.EventCount() != 2 {
		t.Errorf("events = %d, want readmission after the dedup TTL lapsed", m.EventCount())
	}
}

// ─── Retention ───────────────────────────────────────────────────────────────

func TestUpdatePrunesExpiredEvents(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := t0
	src := &fakeSource{name: "a", fetch: []func() (*source.FetchResult, error){
		ok(newItem("1", "Robots", t0)),
		ok(), // nothing new afterwards
	}}

	m := New([]source.Source{src}, nil, metrics.Disabled(), testOpts())
	m.now = func() time.Time { return now }

	m.Update(context.Background())
	if m.EventCount() != 1 {
		t.Fatalf("events = %d, want 1", m.EventCount())
	}

	now = t0.Add(13 * time.Hour) // published is now outside retention
	m.Update(context.Background())
	if m.EventCount() != 0 {
		t.Errorf("events = %d, want the expired event pruned", m.EventCount())
	}
	if len(m.seenByID) != 0 || len(m.seenByFP) != 0 {
		t.Errorf("dedup entries survived pruning: id=%d fp=%d", len(m.seenByID), len(m.seenByFP))
	}
}

// ─── Filtering and persistence ───────────────────────────────────────────────

func TestUpdateAppliesMinScoreAndTopK(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	item := source.Item{
		ID:        "1",
		Title:     "alpha beta",
		Summary:   "gamma",
		URL:       "https://example.com/1",
		Published: now,
		Language:  "en",
	}
	src := &fakeSource{name: "a", fetch: []func() (*source.FetchResult, error){ok(item)}}

	opts := testOpts()
	opts.MinScore = 0.7 // summary-only keywords score 0.6
	opts.TopK = 1
	m := New([]source.Source{src}, nil, metrics.Disabled(), opts)
	m.now = func() time.Time { return now }

	trends := m.Update(context.Background())
	if len(trends) != 1 {
		t.Fatalf("trends = %v, want only the single top keyword", trends)
	}
	if trends[0].Keyword != "alpha" {
		t.Errorf("top keyword = %q, want alpha (first seen)", trends[0].Keyword)
	}
}

func TestUpdateSavesSnapshot(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{name: "a", fetch: []func() (*source.FetchResult, error){
		ok(newItem("1", "Robots", now)),
	}}

	store, err := storage.Open(filepath.Join(t.TempDir(), "trends.sqlite"), storage.DefaultRetention, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	coll := metrics.Disabled()
	m := New([]source.Source{src}, store, coll, testOpts())
	m.now = func() time.Time { return now }

	m.Update(context.Background())

	n, err := store.SnapshotCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("snapshots = %d, want 1", n)
	}
	if got := coll.Snapshot()[metrics.KeySnapshotsSaved]; got != 1 {
		t.Errorf("snapshots_saved = %d, want 1", got)
	}
}
