package source

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/trendmonitor/trend-monitor/internal/config"
	"github.com/trendmonitor/trend-monitor/internal/httpclient"
	"github.com/trendmonitor/trend-monitor/internal/video"
)

// DefaultDescriptionLimit caps the description part of a video summary.
const DefaultDescriptionLimit = 280

// VideoPage polls one rendered video page and projects its metadata into a
// single item. The item id is derived from url + upload date + activity
// counters, so a page whose counters moved yields a new item.
type VideoPage struct {
	cfg    config.Source
	client *http.Client
	now    func() time.Time
}

func NewVideoPage(cfg config.Source, client *http.Client) *VideoPage {
	return &VideoPage{cfg: cfg, client: client, now: time.Now}
}

func (s *VideoPage) Name() string          { return s.cfg.Name }
func (s *VideoPage) Config() config.Source { return s.cfg }

func (s *VideoPage) Fetch(ctx context.Context) (*FetchResult, error) {
	headers := map[string]string{"User-Agent": UserAgent}
	resp, err := httpclient.Get(ctx, s.client, s.cfg.URL, headers, s.cfg.Timeout)
	if err != nil {
		return nil, &Error{URL: s.cfg.URL, Err: err}
	}

	meta := video.Parse(resp.Body)
	if meta == nil {
		return nil, errf(s.cfg.URL, "no video metadata found at %s", s.cfg.URL)
	}

	now := s.now().UTC().Truncate(time.Second)
	published := now
	if s.cfg.OptionBool("use_upload_date_as_published") && !meta.UploadDate.IsZero() {
		published = meta.UploadDate
	}

	title := meta.Title
	if title == "" {
		title = s.cfg.Name
	}
	url := meta.URL
	if url == "" {
		url = s.cfg.URL
	}
	language := meta.Language
	if language == "" {
		language = s.cfg.Language
	}

	limit := s.cfg.OptionInt("summary_description_limit", DefaultDescriptionLimit)
	if limit < 0 {
		limit = 0
	}

	item := Item{
		ID:        videoID(url, meta),
		Title:     title,
		URL:       url,
		Published: published,
		Summary:   formatVideoSummary(meta, limit),
		Language:  language,
	}
	return &FetchResult{Items: []Item{item}, Header: resp.Header}, nil
}

// videoID derives the item id from the page url, upload date and activity
// counters: "video:" + sha1 hex. Missing counters count as 0.
func videoID(url string, meta *video.Metadata) string {
	uploaded := ""
	if !meta.UploadDate.IsZero() {
		uploaded = meta.UploadDate.Format(isoSeconds)
	}
	base := strings.Join([]string{
		url,
		uploaded,
		strconv.FormatInt(countOrZero(meta.ViewCount), 10),
		strconv.FormatInt(countOrZero(meta.LikeCount), 10),
		strconv.FormatInt(countOrZero(meta.CommentCount), 10),
	}, "|")
	sum := sha1.Sum([]byte(base))
	return "video:" + hex.EncodeToString(sum[:])
}

func countOrZero(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}

// formatVideoSummary renders the human-readable pipe-joined summary in the
// monitor's UI language: author, activity metrics, upload timestamp, first
// five tags, truncated description.
func formatVideoSummary(meta *video.Metadata, maxDescription int) string {
	var parts []string

	if meta.AuthorName != "" {
		if meta.AuthorURL != "" {
			parts = append(parts, "Автор: "+meta.AuthorName+" ("+meta.AuthorURL+")")
		} else {
			parts = append(parts, "Автор: "+meta.AuthorName)
		}
	}

	var metrics []string
	if meta.ViewCount != nil {
		metrics = append(metrics, "просмотры "+formatNumber(*meta.ViewCount))
	}
	if meta.LikeCount != nil {
		metrics = append(metrics, "лайки "+formatNumber(*meta.LikeCount))
	}
	if meta.CommentCount != nil {
		metrics = append(metrics, "комментарии "+formatNumber(*meta.CommentCount))
	}
	if len(metrics) > 0 {
		parts = append(parts, "Метрики: "+strings.Join(metrics, ", "))
	}

	if !meta.UploadDate.IsZero() {
		parts = append(parts, "Загружено: "+meta.UploadDate.Format("2006-01-02 15:04"))
	}

	if len(meta.Keywords) > 0 {
		tags := meta.Keywords
		if len(tags) > 5 {
			tags = tags[:5]
		}
		parts = append(parts, "Теги: "+strings.Join(tags, ", "))
	}

	if desc := strings.TrimSpace(meta.Description); desc != "" {
		runes := []rune(desc)
		if maxDescription > 0 && len(runes) > maxDescription {
			cutoff := maxDescription - 3
			if cutoff < 0 {
				cutoff = 0
			}
			desc = strings.TrimRight(string(runes[:cutoff]), " ") + "…"
		}
		parts = append(parts, desc)
	}

	return strings.Join(parts, " | ")
}

// formatNumber groups thousands with spaces (1234567 → "1 234 567").
func formatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
