package video

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if s := strings.TrimSpace(c); s != "" {
			return s
		}
	}
	return ""
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// extractURL resolves a JSON-LD url value: a plain string, or an object
// with "@id"/"url".
func extractURL(v any) string {
	switch u := v.(type) {
	case string:
		return u
	case map[string]any:
		if id := asString(u["@id"]); id != "" {
			return id
		}
		return asString(u["url"])
	}
	return ""
}

// extractAuthor resolves the JSON-LD author field: a string, an object with
// name/url, or a list of either (first entry with a name wins).
func extractAuthor(v any) (name, url string) {
	switch a := v.(type) {
	case string:
		return strings.TrimSpace(a), ""
	case map[string]any:
		return strings.TrimSpace(asString(a["name"])), extractURL(a["url"])
	case []any:
		for _, item := range a {
			if n, u := extractAuthor(item); n != "" {
				return n, u
			}
		}
	}
	return "", ""
}

// interactionCount finds the interactionStatistic entry whose
// interactionType name contains target ("watch", "like" or "comment").
func interactionCount(stats any, target string) *int64 {
	entries, ok := stats.([]any)
	if !ok {
		entries = []any{stats}
	}
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		name := interactionTypeName(entry["interactionType"])
		if name == "" || !strings.Contains(name, target) {
			continue
		}
		if n := toInt(entry["userInteractionCount"]); n != nil {
			return n
		}
		if n := toInt(entry["interactionCount"]); n != nil {
			return n
		}
	}
	return nil
}

func interactionTypeName(v any) string {
	switch t := v.(type) {
	case string:
		return strings.ToLower(t)
	case map[string]any:
		for _, key := range []string{"@type", "@id", "name"} {
			if s := asString(t[key]); s != "" {
				return strings.ToLower(s)
			}
		}
	}
	return ""
}

var digitsRE = regexp.MustCompile(`\d+`)

// toInt converts leniently: numbers directly, strings by extracting and
// concatenating digit runs ("UserPlays:1,024" → 1024).
func toInt(v any) *int64 {
	switch n := v.(type) {
	case float64:
		i := int64(n)
		return &i
	case int64:
		return &n
	case string:
		runs := digitsRE.FindAllString(n, -1)
		if len(runs) == 0 {
			return nil
		}
		i, err := strconv.ParseInt(strings.Join(runs, ""), 10, 64)
		if err != nil {
			return nil
		}
		return &i
	}
	return nil
}

var keywordSplitRE = regexp.MustCompile(`[,;|]`)

// normalizeKeywords accepts a string ("a, b; c|d") or a list of strings.
// Order preserved, duplicates removed.
func normalizeKeywords(v any) []string {
	var raw []string
	switch k := v.(type) {
	case string:
		raw = keywordSplitRE.Split(k, -1)
	case []any:
		for _, item := range k {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	default:
		return nil
	}
	var out []string
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// normalizeLanguage lowercases and keeps the primary subtag
// ("ru_RU" → "ru", "en-US" → "en").
func normalizeLanguage(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return ""
	}
	if i := strings.IndexAny(v, "-_"); i >= 0 {
		v = v[:i]
	}
	return v
}

// uploadDateLayouts extends the feed date ladder with the date-only and
// space-separated forms seen in video markup.
var uploadDateLayouts = []string{
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDate accepts an ISO-8601-ish string or a unix timestamp. Result is
// UTC with the offset folded in; zero means unparseable.
func parseDate(v any) time.Time {
	switch d := v.(type) {
	case float64:
		return time.Unix(int64(d), 0).UTC()
	case string:
		d = strings.TrimSpace(d)
		if d == "" {
			return time.Time{}
		}
		for _, layout := range uploadDateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t.UTC().Truncate(time.Second)
			}
		}
	}
	return time.Time{}
}
