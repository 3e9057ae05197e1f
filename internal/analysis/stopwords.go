package analysis

// Per-language stopword sets, applied to normalised tokens. Undetected
// languages use the union of both plus the generic novelty words.

var stopwordsEN = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {},
	"that": {}, "this": {}, "have": {}, "your": {}, "about": {},
	"trend": {},
}

var stopwordsRU = map[string]struct{}{
	"что": {}, "это": {}, "как": {}, "так": {}, "она": {},
	"они": {}, "или": {}, "если": {}, "чтобы": {}, "когда": {},
	"будет": {}, "тренд": {},
}

var stopwordsDefault = func() map[string]struct{} {
	m := make(map[string]struct{}, len(stopwordsEN)+len(stopwordsRU)+2)
	for w := range stopwordsEN {
		m[w] = struct{}{}
	}
	for w := range stopwordsRU {
		m[w] = struct{}{}
	}
	m["новое"] = struct{}{}
	m["new"] = struct{}{}
	return m
}()

func isStopword(token, lang string) bool {
	var set map[string]struct{}
	switch lang {
	case LangEN:
		set = stopwordsEN
	case LangRU:
		set = stopwordsRU
	default:
		set = stopwordsDefault
	}
	_, ok := set[token]
	return ok
}
