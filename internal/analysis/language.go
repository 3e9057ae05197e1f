package analysis

// Language tags produced by detection.
const (
	LangEN    = "en"
	LangRU    = "ru"
	LangOther = "other"
)

// DetectLanguage classifies text by its Latin vs Cyrillic letter counts.
// A script wins when it has at least 1.2x the letters of the other and at
// least one letter of its own. Everything else (digits, punctuation,
// mixed or empty text) is "other".
func DetectLanguage(text string) string {
	var latin, cyrillic int
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			latin++
		case r >= 'а' && r <= 'я', r >= 'А' && r <= 'Я', r == 'ё', r == 'Ё':
			cyrillic++
		}
	}
	switch {
	case cyrillic > 0 && float64(cyrillic) >= 1.2*float64(latin):
		return LangRU
	case latin > 0 && float64(latin) >= 1.2*float64(cyrillic):
		return LangEN
	default:
		return LangOther
	}
}
