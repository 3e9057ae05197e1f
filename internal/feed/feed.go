// Package feed parses RSS 2.0 and Atom 1.0 documents into canonical entries.
//
// Parsing is delegated to gofeed; this package owns the normalisation the
// monitor depends on: stable-id preference with sha1 synthesis when a feed
// carries no guid, the ranked published-date format ladder with a
// current-time fallback, and the placeholder title for nameless entries.
package feed

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/trendmonitor/trend-monitor/internal/logging"
)

// PlaceholderTitle is used when an entry has no usable title.
const PlaceholderTitle = "(без названия)"

// isoSeconds is the canonical timestamp form: UTC, second precision, no
// timezone marker.
const isoSeconds = "2006-01-02T15:04:05"

var log = logging.Component("feed")

// Entry is one canonical feed entry.
type Entry struct {
	ID        string
	Title     string
	URL       string
	Published time.Time // UTC
	Summary   string
}

// Parse parses an RSS/Atom document. A document that is not well-formed XML
// (or not a recognisable feed) fails as a whole; individual entries never
// fail, they fall back field by field.
func Parse(raw string) ([]Entry, error) {
	parsed, err := gofeed.NewParser().ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entries = append(entries, fromItem(item))
	}
	return entries, nil
}

func fromItem(item *gofeed.Item) Entry {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = PlaceholderTitle
	}

	url := strings.TrimSpace(item.Link)
	if url == "" && len(item.Links) > 0 {
		url = strings.TrimSpace(item.Links[0])
	}

	published := parseDate(item.PublishedParsed, item.Published)
	if published.IsZero() {
		published = parseDate(item.UpdatedParsed, item.Updated)
	}
	if published.IsZero() {
		raw := item.Published
		if raw == "" {
			raw = item.Updated
		}
		if raw != "" {
			log.Debug().Str("value", raw).Msg("unparseable published date, using current time")
		}
		published = time.Now().UTC().Truncate(time.Second)
	}

	// guid → Atom id → link@href → link text, all collapsed by gofeed into
	// GUID/Link; synthesise a stable id only when the feed provides none of
	// them. The link keeps dedup identity stable when an entry is retitled.
	id := strings.TrimSpace(item.GUID)
	if id == "" {
		id = url
	}
	if id == "" {
		id = SynthesizeID(url, title, published)
	}

	summary := strings.TrimSpace(item.Description)
	if summary == "" {
		summary = strings.TrimSpace(item.Content)
	}

	return Entry{
		ID:        id,
		Title:     title,
		URL:       url,
		Published: published,
		Summary:   summary,
	}
}

// SynthesizeID derives a stable sha1-based id from an entry's url, title and
// published time. Restart-stable for identical inputs.
func SynthesizeID(url, title string, published time.Time) string {
	base := strings.Join([]string{url, title, published.Format(isoSeconds)}, "|")
	sum := sha1.Sum([]byte(base))
	return "sha1:" + hex.EncodeToString(sum[:])
}

// dateLayouts is the ranked list of accepted published-date formats. Go's
// parser additionally accepts fractional seconds after any seconds field.
var dateLayouts = []string{
	time.RFC1123Z,               // Mon, 02 Jan 2006 15:04:05 -0700
	time.RFC1123,                // Mon, 02 Jan 2006 15:04:05 MST
	"2006-01-02T15:04:05Z",      // ISO-8601 zulu
	"2006-01-02T15:04:05-07:00", // ISO-8601 with offset
	"2006-01-02T15:04:05-0700",
}

// parseDate prefers the library's parsed value, then tries the format
// ladder. The zero time means "unparseable".
func parseDate(parsed *time.Time, raw string) time.Time {
	if parsed != nil {
		return parsed.UTC().Truncate(time.Second)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Truncate(time.Second)
		}
	}
	return time.Time{}
}
