// Package storage persists ranked trend snapshots to SQLite.
//
// Each save writes one snapshot row plus its trends and items in a single
// transaction, then deletes snapshots older than the retention window.
// Foreign keys cascade, so deleting a snapshot removes its whole subtree.
package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/trendmonitor/trend-monitor/internal/analysis"
	"github.com/trendmonitor/trend-monitor/internal/logging"
)

// Timestamps are stored as naive UTC ISO strings truncated to seconds,
// which keeps the retention comparison a plain string compare.
const isoSeconds = "2006-01-02T15:04:05"

var log = logging.Component("storage")

const (
	DefaultRetention   = 7 * 24 * time.Hour
	DefaultVacuumEvery = 500
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    generated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS trends (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
    keyword TEXT NOT NULL,
    score REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS trend_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    trend_id INTEGER NOT NULL REFERENCES trends(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    url TEXT,
    published TEXT NOT NULL,
    summary TEXT
);
CREATE INDEX IF NOT EXISTS idx_trends_snapshot ON trends(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_trend_items_trend ON trend_items(trend_id);
`

// Store writes trend snapshots to a SQLite file.
type Store struct {
	mu          sync.Mutex
	db          *sql.DB
	retention   time.Duration // <= 0 disables pruning
	vacuumEvery int           // <= 0 disables VACUUM
	saves       int
}

// Open creates or opens the database at path and ensures the schema.
func Open(path string, retention time.Duration, vacuumEvery int) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open trend DB: %w", err)
	}
	// modernc's driver is not safe for concurrent writers on one file.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init trend schema: %w", err)
	}

	return &Store{
		db:          db,
		retention:   retention,
		vacuumEvery: vacuumEvery,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists one snapshot atomically and prunes expired snapshots in
// the same transaction. Every vacuumEvery-th save runs VACUUM afterwards.
func (s *Store) Save(trends []analysis.Trend, generatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("INSERT INTO snapshots(generated_at) VALUES (?)",
		generatedAt.UTC().Truncate(time.Second).Format(isoSeconds))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	snapshotID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("snapshot id: %w", err)
	}

	for _, trend := range trends {
		tres, err := tx.Exec("INSERT INTO trends(snapshot_id, keyword, score) VALUES (?, ?, ?)",
			snapshotID, trend.Keyword, trend.Score)
		if err != nil {
			return fmt.Errorf("insert trend %q: %w", trend.Keyword, err)
		}
		trendID, err := tres.LastInsertId()
		if err != nil {
			return fmt.Errorf("trend id: %w", err)
		}
		for _, it := range trend.Items {
			_, err := tx.Exec(
				"INSERT INTO trend_items(trend_id, title, url, published, summary) VALUES (?, ?, ?, ?, ?)",
				trendID, it.Title, it.URL,
				it.Published.UTC().Truncate(time.Second).Format(isoSeconds),
				it.Summary)
			if err != nil {
				return fmt.Errorf("insert trend item: %w", err)
			}
		}
	}

	if s.retention > 0 {
		threshold := generatedAt.Add(-s.retention).UTC().Truncate(time.Second).Format(isoSeconds)
		if _, err := tx.Exec("DELETE FROM snapshots WHERE generated_at < ?", threshold); err != nil {
			return fmt.Errorf("prune snapshots: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	s.saves++
	if s.vacuumEvery > 0 && s.saves%s.vacuumEvery == 0 {
		if _, err := s.db.Exec("VACUUM"); err != nil {
			log.Warn().Err(err).Msg("vacuum failed")
		}
	}
	return nil
}

// SnapshotCount reports how many snapshots are currently stored.
func (s *Store) SnapshotCount() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&n)
	return n, err
}
