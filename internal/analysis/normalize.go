package analysis

import (
	"strings"
	"unicode/utf8"

	"github.com/kljensen/snowball"
)

// Ordered suffix lists. First match wins, and a suffix is only stripped
// when at least three characters of stem remain.
var (
	suffixesEN = []string{
		"ingly", "ously", "ations", "ation", "ments", "ment",
		"ings", "ing", "ers", "er", "ed", "ies", "s",
	}
	suffixesRU = []string{
		"иями", "ями", "ами", "ов", "ев", "ых", "их", "ым", "им",
		"ах", "ях", "ый", "ий", "ое", "ая", "ые", "ие", "ии", "ую",
		"ешь", "ешься", "ете", "етеся",
	}
)

// Normalize reduces a token to its rule-based stem for the given language.
// Tokens of other languages pass through unchanged (the tokeniser already
// applied NFKC).
func Normalize(token, lang string) string {
	switch lang {
	case LangEN:
		return normalizeEN(token)
	case LangRU:
		return normalizeRU(token)
	default:
		return token
	}
}

func normalizeEN(token string) string {
	if strings.HasSuffix(token, "'s") {
		token = token[:len(token)-2]
	} else if strings.HasSuffix(token, "'") {
		token = token[:len(token)-1]
	}

	switch {
	case strings.HasSuffix(token, "ies") && len(token) > 4:
		token = token[:len(token)-3] + "y"
	case strings.HasSuffix(token, "sses") && len(token) > 4:
		token = token[:len(token)-2]
	default:
		for _, suf := range suffixesEN {
			if strings.HasSuffix(token, suf) && len(token)-len(suf) >= 3 {
				token = token[:len(token)-len(suf)]
				break
			}
		}
	}

	if len(token) > 3 && strings.HasSuffix(token, "nn") {
		token = token[:len(token)-1]
	}
	return token
}

func normalizeRU(token string) string {
	for _, suf := range suffixesRU {
		if strings.HasSuffix(token, suf) && utf8.RuneCountInString(token)-utf8.RuneCountInString(suf) >= 3 {
			token = token[:len(token)-len(suf)]
			break
		}
	}
	return strings.TrimRight(token, "ьй")
}

// stemToken is the normalisation entry point: the snowball stemmer when
// enabled (en/ru only), the rule-based path otherwise.
func stemToken(token, lang string, useStemmer bool) string {
	if useStemmer {
		var sbLang string
		switch lang {
		case LangEN:
			sbLang = "english"
		case LangRU:
			sbLang = "russian"
		}
		if sbLang != "" {
			if stemmed, err := snowball.Stem(token, sbLang, false); err == nil {
				return stemmed
			}
		}
	}
	return Normalize(token, lang)
}
