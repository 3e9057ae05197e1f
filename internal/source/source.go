// Package source defines the polled content sources and their canonical
// output.
//
// A Source wraps one remote endpoint (RSS/Atom feed or rendered video page)
// and turns each poll into a FetchResult of immutable Items. Conditional
// request state (ETag / Last-Modified) lives inside the adapter and is the
// only thing an adapter mutates between fetches.
package source

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/trendmonitor/trend-monitor/internal/config"
)

// UserAgent is sent on every outbound poll.
const UserAgent = "TrendMonitor/1.1 (+https://example.com/trend-monitor)"

// isoSeconds is the canonical timestamp form used in fingerprints and ids.
const isoSeconds = "2006-01-02T15:04:05"

// Error marks a transient source failure: network, HTTP status >= 400,
// malformed payload, or missing video metadata. The monitor retries on it.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

func errf(url, format string, args ...any) *Error {
	return &Error{URL: url, Err: fmt.Errorf(format, args...)}
}

// Item is one unit of ingested content. Never mutated after creation.
type Item struct {
	ID        string // may be empty; the fingerprint then stands in for identity
	Title     string
	URL       string
	Published time.Time // UTC, second precision
	Summary   string
	Language  string
}

// Fingerprint returns a stable content fingerprint: sha1 over the
// pipe-joined canonical fields, "sha1:"-prefixed. Identical fields produce
// an identical fingerprint across restarts.
func (it Item) Fingerprint() string {
	base := strings.Join([]string{
		it.ID,
		it.URL,
		it.Title,
		it.Published.Format(isoSeconds),
		it.Language,
	}, "|")
	sum := sha1.Sum([]byte(base))
	return "sha1:" + hex.EncodeToString(sum[:])
}

// FetchResult is the outcome of one poll. NotModified implies no items.
type FetchResult struct {
	Items       []Item
	NotModified bool
	Header      http.Header
}

// Source is one polled endpoint.
type Source interface {
	Name() string
	Config() config.Source
	Fetch(ctx context.Context) (*FetchResult, error)
}

// New builds the adapter for cfg.Kind. A nil client uses the shared tuned
// client with the source's timeout. Misconfigured sources (unknown kind,
// malformed URL) fail here, permanently.
func New(cfg config.Source, client *http.Client) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case config.KindVideo:
		return NewVideoPage(cfg, client), nil
	default: // "" defaults to rss, Validate rejected everything else
		return NewRSS(cfg, client), nil
	}
}
