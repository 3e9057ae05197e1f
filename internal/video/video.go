// Package video extracts structured metadata from rendered video pages.
//
// Two extraction passes over the same document:
//
//  1. every <script type="application/ld+json"> block, walked recursively
//     for the first node whose @type ends in "VideoObject"
//  2. <meta name|property|itemprop=... content=...> tags plus <title>
//
// Per field, the first non-empty candidate wins, JSON-LD before meta.
// Parsing is deliberately lenient: malformed JSON-LD blocks are skipped,
// integers are recovered from digit runs ("UserPlays:1,024" → 1024).
package video

import (
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/net/html"
)

// Metadata is the structured result of parsing one video page.
type Metadata struct {
	Title        string
	Description  string
	URL          string
	UploadDate   time.Time // UTC, second precision; zero = unknown
	AuthorName   string
	AuthorURL    string
	ViewCount    *int64
	LikeCount    *int64
	CommentCount *int64
	Keywords     []string
	Language     string
}

// Parse extracts video metadata from an HTML document. Returns nil when no
// title can be resolved from any candidate; a page without a title is not
// a video page we can use.
func Parse(doc string) *Metadata {
	jsonLD := findVideoObject(doc)
	meta := extractMetaTags(doc)

	get := func(key string) string { return meta[key] }
	ld := func(key string) any {
		if jsonLD == nil {
			return nil
		}
		return jsonLD[key]
	}

	title := firstNonEmpty(asString(ld("name")), get("og:title"), get("twitter:title"), get("title"))
	if title == "" {
		return nil
	}

	m := &Metadata{
		Title:       title,
		Description: firstNonEmpty(asString(ld("description")), get("description"), get("og:description")),
		URL:         firstNonEmpty(asString(ld("url")), extractURL(ld("mainEntityOfPage")), get("og:url"), get("twitter:url")),
	}

	m.UploadDate = parseDate(ld("uploadDate"))
	if m.UploadDate.IsZero() {
		m.UploadDate = parseDate(ld("datePublished"))
	}
	if m.UploadDate.IsZero() {
		m.UploadDate = parseDate(get("uploaddate"))
	}
	if m.UploadDate.IsZero() {
		m.UploadDate = parseDate(get("article:published_time"))
	}

	m.AuthorName, m.AuthorURL = extractAuthor(ld("author"))
	if m.AuthorName == "" {
		m.AuthorName = firstNonEmpty(get("author"), get("og:video:actor"))
	}

	if jsonLD != nil {
		m.ViewCount = toInt(jsonLD["viewCount"])
		m.LikeCount = toInt(jsonLD["likeCount"])
		m.CommentCount = toInt(jsonLD["commentCount"])
		if stats := jsonLD["interactionStatistic"]; stats != nil {
			if m.ViewCount == nil {
				m.ViewCount = interactionCount(stats, "watch")
			}
			if m.LikeCount == nil {
				m.LikeCount = interactionCount(stats, "like")
			}
			if m.CommentCount == nil {
				m.CommentCount = interactionCount(stats, "comment")
			}
		}
	}
	if m.ViewCount == nil {
		m.ViewCount = toInt(get("interactioncount"))
	}
	if m.ViewCount == nil {
		m.ViewCount = toInt(get("og:video:views"))
	}
	if m.LikeCount == nil {
		m.LikeCount = toInt(get("og:video:likes"))
	}
	if m.CommentCount == nil {
		m.CommentCount = toInt(get("commentcount"))
	}

	m.Keywords = normalizeKeywords(ld("keywords"))
	if len(m.Keywords) == 0 {
		m.Keywords = normalizeKeywords(get("keywords"))
	}
	if len(m.Keywords) == 0 {
		m.Keywords = normalizeKeywords(get("og:video:tag"))
	}

	m.Language = normalizeLanguage(asString(ld("inLanguage")))
	if m.Language == "" {
		m.Language = normalizeLanguage(get("og:locale"))
	}

	return m
}

// ─── document scanning ────────────────────────────────────────────────────────

// findVideoObject decodes each JSON-LD block in document order and returns
// the first VideoObject node found.
func findVideoObject(doc string) map[string]any {
	for _, block := range jsonLDBlocks(doc) {
		var data any
		if err := json.Unmarshal([]byte(block), &data); err != nil {
			continue
		}
		if node := walkVideoObjects(data); node != nil {
			return node
		}
	}
	return nil
}

// jsonLDBlocks returns the text of every <script type="application/ld+json">
// in document order.
func jsonLDBlocks(doc string) []string {
	var blocks []string
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return blocks
		}
		if tt != html.StartTagToken {
			continue
		}
		tok := z.Token()
		if tok.Data != "script" || !hasAttr(tok, "type", "application/ld+json") {
			continue
		}
		if z.Next() == html.TextToken {
			if text := strings.TrimSpace(z.Token().Data); text != "" {
				blocks = append(blocks, text)
			}
		}
	}
}

func hasAttr(tok html.Token, key, want string) bool {
	for _, a := range tok.Attr {
		if a.Key == key && strings.EqualFold(strings.TrimSpace(a.Val), want) {
			return true
		}
	}
	return false
}

// extractMetaTags collects <meta> key/content pairs (name, property or
// itemprop as key, first occurrence wins) and the <title> text.
func extractMetaTags(doc string) map[string]string {
	meta := make(map[string]string)
	var titleParts []string
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		switch tok.Data {
		case "meta":
			attrs := make(map[string]string, len(tok.Attr))
			for _, a := range tok.Attr {
				attrs[a.Key] = a.Val
			}
			key := firstNonEmpty(attrs["name"], attrs["property"], attrs["itemprop"])
			content := strings.TrimSpace(attrs["content"])
			if key != "" && content != "" {
				key = strings.ToLower(key)
				if _, seen := meta[key]; !seen {
					meta[key] = content
				}
			}
		case "title":
			if z.Next() == html.TextToken {
				if part := strings.TrimSpace(z.Token().Data); part != "" {
					titleParts = append(titleParts, part)
				}
			}
		}
	}
	if _, seen := meta["title"]; !seen && len(titleParts) > 0 {
		meta["title"] = strings.Join(titleParts, " ")
	}
	return meta
}

// walkVideoObjects searches node recursively for a VideoObject. Lists keep
// document order; object values are visited @graph first, then remaining
// keys in sorted order so the walk is deterministic.
func walkVideoObjects(node any) map[string]any {
	switch n := node.(type) {
	case map[string]any:
		if isVideoType(n["@type"]) {
			return n
		}
		if graph, ok := n["@graph"]; ok {
			if found := walkVideoObjects(graph); found != nil {
				return found
			}
		}
		keys := make([]string, 0, len(n))
		for k := range n {
			if k != "@graph" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			if found := walkVideoObjects(n[k]); found != nil {
				return found
			}
		}
	case []any:
		for _, item := range n {
			if found := walkVideoObjects(item); found != nil {
				return found
			}
		}
	}
	return nil
}

func isVideoType(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.HasSuffix(strings.ToLower(t), "videoobject")
	case []any:
		for _, item := range t {
			if isVideoType(item) {
				return true
			}
		}
	}
	return false
}
