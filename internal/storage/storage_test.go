package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/trendmonitor/trend-monitor/internal/analysis"
	"github.com/trendmonitor/trend-monitor/internal/source"
)

func openStore(t *testing.T, retention time.Duration, vacuumEvery int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "trends.sqlite"), retention, vacuumEvery)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTrends(published time.Time) []analysis.Trend {
	return []analysis.Trend{
		{
			Keyword: "robot",
			Score:   1.6,
			Items: []source.Item{
				{
					ID:        "a",
					Title:     "Robots rising",
					URL:       "https://example.com/a",
					Published: published,
					Summary:   "robots everywhere",
				},
			},
		},
		{Keyword: "news", Score: 0.6},
	}
}

// ─── Save ────────────────────────────────────────────────────────────────────

func TestSaveWritesSnapshotTree(t *testing.T) {
	s := openStore(t, DefaultRetention, 0)
	now := time.Date(2024, 6, 1, 12, 0, 0, 500000000, time.UTC)

	if err := s.Save(sampleTrends(now), now); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var generatedAt string
	if err := s.db.QueryRow("SELECT generated_at FROM snapshots").Scan(&generatedAt); err != nil {
		t.Fatal(err)
	}
	if generatedAt != "2024-06-01T12:00:00" {
		t.Errorf("generated_at = %q, want second-truncated ISO", generatedAt)
	}

	var trendCount, itemCount int
	s.db.QueryRow("SELECT COUNT(*) FROM trends").Scan(&trendCount)
	s.db.QueryRow("SELECT COUNT(*) FROM trend_items").Scan(&itemCount)
	if trendCount != 2 || itemCount != 1 {
		t.Errorf("trends = %d items = %d, want 2 and 1", trendCount, itemCount)
	}

	var keyword string
	var score float64
	if err := s.db.QueryRow("SELECT keyword, score FROM trends ORDER BY id LIMIT 1").Scan(&keyword, &score); err != nil {
		t.Fatal(err)
	}
	if keyword != "robot" || score != 1.6 {
		t.Errorf("first trend = %q/%v", keyword, score)
	}
}

func TestSaveEmptySnapshot(t *testing.T) {
	s := openStore(t, DefaultRetention, 0)
	if err := s.Save(nil, time.Now().UTC()); err != nil {
		t.Fatalf("Save(nil): %v", err)
	}
	n, err := s.SnapshotCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("snapshots = %d, want 1 (empty snapshots are still recorded)", n)
	}
}

// ─── Retention ───────────────────────────────────────────────────────────────

func TestSavePrunesExpiredSnapshots(t *testing.T) {
	s := openStore(t, time.Hour, 0)
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{t0, t0.Add(30 * time.Minute), t0.Add(2 * time.Hour)} {
		if err := s.Save(sampleTrends(at), at); err != nil {
			t.Fatalf("Save at %s: %v", at, err)
		}
	}

	n, err := s.SnapshotCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("snapshots = %d, want only the one inside the retention window", n)
	}

	var generatedAt string
	if err := s.db.QueryRow("SELECT generated_at FROM snapshots").Scan(&generatedAt); err != nil {
		t.Fatal(err)
	}
	if generatedAt != "2024-06-01T14:00:00" {
		t.Errorf("surviving snapshot = %q", generatedAt)
	}
}

func TestPruneCascadesToTrendsAndItems(t *testing.T) {
	s := openStore(t, time.Hour, 0)
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := s.Save(sampleTrends(t0), t0); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(nil, t0.Add(2*time.Hour)); err != nil {
		t.Fatal(err)
	}

	var trendCount, itemCount int
	s.db.QueryRow("SELECT COUNT(*) FROM trends").Scan(&trendCount)
	s.db.QueryRow("SELECT COUNT(*) FROM trend_items").Scan(&itemCount)
	if trendCount != 0 || itemCount != 0 {
		t.Errorf("orphans after prune: trends = %d, items = %d", trendCount, itemCount)
	}
}

func TestZeroRetentionKeepsEverything(t *testing.T) {
	s := openStore(t, 0, 0)
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := s.Save(nil, t0.Add(time.Duration(i)*30*24*time.Hour)); err != nil {
			t.Fatal(err)
		}
	}
	n, _ := s.SnapshotCount()
	if n != 3 {
		t.Errorf("snapshots = %d, want 3 with pruning disabled", n)
	}
}

// ─── Vacuum ──────────────────────────────────────────────────────────────────

func TestVacuumRunsOnSchedule(t *testing.T) {
	s := openStore(t, 0, 2)
	now := time.Now().UTC()

	for i := 0; i < 4; i++ {
		if err := s.Save(sampleTrends(now), now); err != nil {
			t.Fatalf("Save #%d: %v", i+1, err)
		}
	}
	if s.saves != 4 {
		t.Errorf("saves = %d, want 4", s.saves)
	}
}
