package source

import (
	"context"
	"net/http"

	"github.com/trendmonitor/trend-monitor/internal/config"
	"github.com/trendmonitor/trend-monitor/internal/feed"
	"github.com/trendmonitor/trend-monitor/internal/httpclient"
	"github.com/trendmonitor/trend-monitor/internal/logging"
)

var rssLog = logging.Component("source.rss")

// RSS polls an RSS/Atom feed with conditional requests. The cached
// validators (ETag / Last-Modified) are updated on every 2xx response and
// replayed as If-None-Match / If-Modified-Since on the next fetch.
type RSS struct {
	cfg    config.Source
	client *http.Client

	lastETag     string
	lastModified string
}

func NewRSS(cfg config.Source, client *http.Client) *RSS {
	return &RSS{cfg: cfg, client: client}
}

func (s *RSS) Name() string          { return s.cfg.Name }
func (s *RSS) Config() config.Source { return s.cfg }

func (s *RSS) Fetch(ctx context.Context) (*FetchResult, error) {
	headers := map[string]string{"User-Agent": UserAgent}
	if s.lastModified != "" {
		headers["If-Modified-Since"] = s.lastModified
	}
	if s.lastETag != "" {
		headers["If-None-Match"] = s.lastETag
	}

	resp, err := httpclient.Get(ctx, s.client, s.cfg.URL, headers, s.cfg.Timeout)
	if err != nil {
		return nil, &Error{URL: s.cfg.URL, Err: err}
	}
	if resp.NotModified() {
		return &FetchResult{NotModified: true, Header: resp.Header}, nil
	}

	s.lastModified = resp.Header.Get("Last-Modified")
	s.lastETag = resp.Header.Get("ETag")

	entries, err := feed.Parse(resp.Body)
	if err != nil {
		return nil, errf(s.cfg.URL, "unable to parse feed %s: %w", s.cfg.URL, err)
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, Item{
			ID:        e.ID,
			Title:     e.Title,
			URL:       e.URL,
			Published: e.Published,
			Summary:   e.Summary,
			Language:  s.cfg.Language,
		})
	}
	rssLog.Debug().Str("source", s.cfg.Name).Int("items", len(items)).Msg("fetched feed")
	return &FetchResult{Items: items, Header: resp.Header}, nil
}
