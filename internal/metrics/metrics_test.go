package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

// ─── Snapshot counters ───────────────────────────────────────────────────────

func TestCollectorSnapshot(t *testing.T) {
	c := New()

	c.RecordFetchAttempt("feed-a")
	c.RecordFetchAttempt("feed-a")
	c.RecordFetchSuccess("feed-a", false)
	c.RecordFetchSuccess("feed-b", true)
	c.RecordFetchFailure("feed-c")
	c.RecordFetchRetry("feed-c")
	c.RecordNewEvents(3)
	c.RecordSnapshotSaved()

	snap := c.Snapshot()
	want := map[string]int64{
		KeyFetchAttempts:    2,
		KeyFetchSuccess:     1,
		KeyFetchNotModified: 1,
		KeyFetchFailures:    1,
		KeyFetchRetries:     1,
		KeyNewEvents:        3,
		KeySnapshotsSaved:   1,
	}
	for key, n := range want {
		if snap[key] != n {
			t.Errorf("%s = %d, want %d", key, snap[key], n)
		}
	}
}

func TestNotModifiedExcludedFromSuccess(t *testing.T) {
	c := New()
	c.RecordFetchSuccess("feed-a", true)

	snap := c.Snapshot()
	if snap[KeyFetchSuccess] != 0 {
		t.Errorf("fetch_success = %d, want 0 for a 304", snap[KeyFetchSuccess])
	}
	if snap[KeyFetchNotModified] != 1 {
		t.Errorf("fetch_not_modified = %d, want 1", snap[KeyFetchNotModified])
	}
}

func TestCollectorSnapshotIsACopy(t *testing.T) {
	c := New()
	c.RecordNewEvents(1)

	snap := c.Snapshot()
	snap[KeyNewEvents] = 99

	if got := c.Snapshot()[KeyNewEvents]; got != 1 {
		t.Errorf("snapshot mutation leaked into collector: %d", got)
	}
}

func TestRecordNewEventsIgnoresNonPositive(t *testing.T) {
	c := New()
	c.RecordNewEvents(0)
	c.RecordNewEvents(-2)
	if got := c.Snapshot()[KeyNewEvents]; got != 0 {
		t.Errorf("new_events = %d, want 0", got)
	}
}

// ─── Disabled collector ──────────────────────────────────────────────────────

func TestDisabledCollectorCountsWithoutExport(t *testing.T) {
	c := Disabled()

	c.RecordFetchAttempt("feed-a")
	c.RecordFetchSuccess("feed-a", true)
	c.RecordIterationDuration(0.5)

	if got := c.Snapshot()[KeyFetchAttempts]; got != 1 {
		t.Errorf("fetch_attempts = %d, want 1", got)
	}
	if c.Handler() != nil {
		t.Error("disabled collector must not expose a handler")
	}
}

// ─── Exposition ──────────────────────────────────────────────────────────────

func TestHandlerExposesCounters(t *testing.T) {
	c := New()
	c.RecordFetchAttempt("feed-a")
	c.RecordSnapshotSaved()

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`trend_monitor_fetch_attempts_total{source="feed-a"} 1`,
		"trend_monitor_snapshots_saved_total 1",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q:\n%s", want, body)
		}
	}
}
