// Package analysis turns ingested items into a ranked list of keyword
// trends.
//
// The pipeline per item: detect language (item hint wins), tokenise title
// and summary separately, normalise tokens with the language's suffix
// rules, drop stopwords, then accumulate an exponentially time-decayed
// score per keyword with distinct title and summary weights.
package analysis

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/trendmonitor/trend-monitor/internal/source"
)

// Config holds the scoring tunables.
type Config struct {
	DecayHours    float64 // exponential decay time scale; 0 = no decay
	TitleWeight   float64
	SummaryWeight float64
	UseStemmer    bool // snowball instead of the rule-based normaliser (en/ru)
}

// DefaultConfig mirrors the monitor defaults.
func DefaultConfig() Config {
	return Config{DecayHours: 6.0, TitleWeight: 1.0, SummaryWeight: 0.6}
}

// Trend is one ranked keyword with its contributing items in
// first-occurrence order.
type Trend struct {
	Keyword string
	Score   float64 // rounded to 3 decimals, non-negative
	Items   []source.Item
}

var tokenRE = regexp.MustCompile(`[\p{L}\p{N}_\-']{3,}`)

// ExtractKeywords tokenises text and returns the normalised keywords for
// lang ("" = detect from the text). Order follows the text; duplicate
// occurrences are kept because each contributes to the score.
func ExtractKeywords(text, lang string) []string {
	return extractKeywords(text, lang, false)
}

func extractKeywords(text, lang string, useStemmer bool) []string {
	if text == "" {
		return nil
	}
	if lang == "" {
		lang = DetectLanguage(text)
	}
	lowered := strings.ToLower(norm.NFKC.String(text))

	var keywords []string
	for _, token := range tokenRE.FindAllString(lowered, -1) {
		token = strings.Trim(token, `-'"`)
		if token == "" {
			continue
		}
		token = stemToken(token, lang, useStemmer)
		if utf8.RuneCountInString(token) <= 2 {
			continue
		}
		if isStopword(token, lang) {
			continue
		}
		keywords = append(keywords, token)
	}
	return keywords
}

// ScoreTrends ranks the keywords of items as of now. Each occurrence adds
// weight * exp(-age/decay); the result is ordered by score descending with
// ties broken by first-seen keyword order.
func ScoreTrends(items []source.Item, now time.Time, cfg Config) []Trend {
	titleWeight := math.Max(cfg.TitleWeight, 0)
	summaryWeight := math.Max(cfg.SummaryWeight, 0)

	scores := make(map[string]float64)
	itemsByKeyword := make(map[string][]source.Item)
	seenFingerprints := make(map[string]map[string]struct{})
	var order []string

	add := func(keyword string, weight float64, item source.Item, fp string) {
		if _, ok := scores[keyword]; !ok {
			order = append(order, keyword)
			seenFingerprints[keyword] = make(map[string]struct{})
		}
		scores[keyword] += weight
		if _, dup := seenFingerprints[keyword][fp]; !dup {
			seenFingerprints[keyword][fp] = struct{}{}
			itemsByKeyword[keyword] = append(itemsByKeyword[keyword], item)
		}
	}

	for _, item := range items {
		lang := item.Language
		if lang == "" {
			lang = DetectLanguage(item.Title + " " + item.Summary)
		}

		age := now.Sub(item.Published).Seconds()
		if age < 0 {
			age = 0
		}
		base := 1.0
		if cfg.DecayHours != 0 {
			base = math.Exp(-age / (cfg.DecayHours * 3600))
		}

		fp := item.Fingerprint()
		for _, kw := range extractKeywords(item.Title, lang, cfg.UseStemmer) {
			add(kw, base*titleWeight, item, fp)
		}
		for _, kw := range extractKeywords(item.Summary, lang, cfg.UseStemmer) {
			add(kw, base*summaryWeight, item, fp)
		}
	}

	firstSeen := make(map[string]int, len(order))
	for i, kw := range order {
		firstSeen[kw] = i
	}

	trends := make([]Trend, 0, len(order))
	for _, kw := range order {
		trends = append(trends, Trend{
			Keyword: kw,
			Score:   math.Round(scores[kw]*1000) / 1000,
			Items:   itemsByKeyword[kw],
		})
	}
	sort.SliceStable(trends, func(i, j int) bool {
		if trends[i].Score != trends[j].Score {
			return trends[i].Score > trends[j].Score
		}
		return firstSeen[trends[i].Keyword] < firstSeen[trends[j].Keyword]
	})
	return trends
}
