// Package config holds the monitor tunables and per-source configuration.
//
// Settings are resolved in three layers, later wins:
//
//  1. compiled defaults (the values documented on the CLI flags)
//  2. TREND_MONITOR_* environment variables (call LoadEnvFile(".env") first
//     to pick up a local .env file)
//  3. CLI flags
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultInterval         = 900 * time.Second
	DefaultRetention        = 12 * time.Hour
	DefaultDecayHours       = 6.0
	DefaultMinScore         = 0.4
	DefaultTopK             = 20
	DefaultStoragePath      = "data/trends.sqlite"
	DefaultFetchRetries     = 3
	DefaultFetchBackoff     = 2.0
	DefaultFetchConcurrency = 5
	DefaultMetricsAddr      = "0.0.0.0"

	DefaultSourceTimeout = 30 * time.Second
)

// Source kinds understood by the source factory.
const (
	KindRSS   = "rss"
	KindVideo = "video"
)

// Source describes one polled content source. Immutable after load.
type Source struct {
	Name         string         `json:"name" yaml:"name"`
	URL          string         `json:"url" yaml:"url"`
	Interval     time.Duration  `json:"-" yaml:"-"`       // optional per-source poll interval; 0 = monitor interval
	Timeout      time.Duration  `json:"-" yaml:"-"`       // request timeout; 0 = DefaultSourceTimeout
	MaxRetries   int            `json:"max_retries" yaml:"max_retries"`     // 0 = monitor fetch retries
	RetryBackoff float64        `json:"retry_backoff" yaml:"retry_backoff"` // base seconds; 0 = monitor backoff
	Language     string         `json:"language" yaml:"language"`           // hint stamped onto fetched items
	Country      string         `json:"country" yaml:"country"`
	Kind         string         `json:"kind" yaml:"kind"` // "rss" (default) or "video"
	Options      map[string]any `json:"options" yaml:"options"`
}

// Validate reports a permanent misconfiguration (unknown kind, bad URL).
// Invalid sources are skipped at startup, not retried.
func (s Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("source has no name")
	}
	u, err := url.Parse(s.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("source %s: malformed url %q", s.Name, s.URL)
	}
	switch s.Kind {
	case "", KindRSS, KindVideo:
	default:
		return fmt.Errorf("source %s: unknown kind %q", s.Name, s.Kind)
	}
	return nil
}

// OptionBool reads a boolean from the open-ended options bag.
func (s Source) OptionBool(key string) bool {
	v, ok := s.Options[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// OptionInt reads an integer from the options bag. JSON numbers decode as
// float64, YAML as int; both are accepted.
func (s Source) OptionInt(key string, def int) int {
	switch v := s.Options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Options is the resolved monitor configuration.
type Options struct {
	Interval         time.Duration
	Retention        time.Duration
	DecayHours       float64
	MinScore         float64
	TopK             int
	StoragePath      string
	FetchRetries     int
	FetchBackoff     float64 // base seconds
	FetchConcurrency int
	DedupTTL         time.Duration // 0 = retention
	MetricsPort      int           // 0 = exporter disabled
	MetricsAddr      string
	SourcesPath      string
	Once             bool
	Verbose          bool
	UseStemmer       bool
}

// FromEnv returns Options with compiled defaults overridden by any
// TREND_MONITOR_* environment variables. CLI flags are layered on top by
// the caller.
func FromEnv() Options {
	return Options{
		Interval:         getEnvDuration("TREND_MONITOR_INTERVAL", DefaultInterval),
		Retention:        getEnvDuration("TREND_MONITOR_RETENTION", DefaultRetention),
		DecayHours:       getEnvFloat("TREND_MONITOR_DECAY_HOURS", DefaultDecayHours),
		MinScore:         getEnvFloat("TREND_MONITOR_MIN_SCORE", DefaultMinScore),
		TopK:             getEnvInt("TREND_MONITOR_TOP", DefaultTopK),
		StoragePath:      getEnv("TREND_MONITOR_STORAGE", DefaultStoragePath),
		FetchRetries:     getEnvInt("TREND_MONITOR_FETCH_RETRIES", DefaultFetchRetries),
		FetchBackoff:     getEnvFloat("TREND_MONITOR_FETCH_BACKOFF", DefaultFetchBackoff),
		FetchConcurrency: getEnvInt("TREND_MONITOR_FETCH_CONCURRENCY", DefaultFetchConcurrency),
		DedupTTL:         getEnvDuration("TREND_MONITOR_DEDUP_TTL", 0),
		MetricsPort:      getEnvInt("TREND_MONITOR_METRICS_PORT", 0),
		MetricsAddr:      getEnv("TREND_MONITOR_METRICS_ADDR", DefaultMetricsAddr),
		SourcesPath:      getEnv("TREND_MONITOR_SOURCES", ""),
		Verbose:          getEnvBool("TREND_MONITOR_VERBOSE", false),
		UseStemmer:       getEnvBool("TREND_MONITOR_STEMMER", false),
	}
}

// DefaultSources is the built-in source set polled when no -sources file
// adds more.
func DefaultSources() []Source {
	return []Source{
		{
			Name:     "Google Trends (US)",
			URL:      "https://trends.google.com/trends/trendingsearches/daily/rss?geo=US",
			Language: "en",
			Country:  "US",
			Kind:     KindRSS,
		},
		{
			Name:     "Hacker News",
			URL:      "https://hnrss.org/frontpage",
			Language: "en",
			Country:  "US",
			Kind:     KindRSS,
		},
		{
			Name:     "Lenta.ru",
			URL:      "https://lenta.ru/rss",
			Language: "ru",
			Country:  "RU",
			Kind:     KindRSS,
		},
	}
}
