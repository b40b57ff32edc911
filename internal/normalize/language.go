package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Minimum evidence before a language is reported.
const (
	minWords     = 8
	minStopwords = 3
	minShare     = 0.12
)

var stopwords = map[language.Tag][]string{
	language.English:    {"the", "and", "of", "to", "in", "is", "that", "for", "it", "with", "as", "was", "on", "are", "this", "be", "by", "not", "or", "have"},
	language.French:     {"le", "la", "les", "et", "des", "est", "une", "un", "du", "que", "dans", "pour", "pas", "sur", "au", "sont", "avec", "ce", "qui", "nous"},
	language.German:     {"der", "die", "und", "das", "ist", "nicht", "ein", "eine", "zu", "den", "mit", "von", "sich", "auf", "für", "dem", "des", "auch", "wir", "sind"},
	language.Spanish:    {"el", "la", "los", "las", "y", "es", "que", "del", "en", "un", "una", "por", "con", "para", "se", "su", "al", "como", "pero", "está"},
	language.Italian:    {"il", "di", "che", "è", "e", "la", "per", "non", "una", "sono", "della", "gli", "nel", "con", "del", "anche", "questo", "alla", "più", "le"},
	language.Portuguese: {"o", "os", "que", "não", "uma", "um", "com", "para", "do", "da", "em", "é", "como", "mais", "mas", "ao", "dos", "das", "foi", "são"},
	language.Dutch:      {"de", "het", "een", "en", "van", "is", "dat", "niet", "op", "te", "zijn", "voor", "met", "die", "ook", "maar", "wij", "zij", "aan", "er"},
}

var detectOrder = []language.Tag{
	language.English, language.French, language.German, language.Spanish,
	language.Italian, language.Portuguese, language.Dutch,
}

var stopwordSets = func() map[language.Tag]map[string]bool {
	out := make(map[language.Tag]map[string]bool, len(stopwords))
	for tag, words := range stopwords {
		set := make(map[string]bool, len(words))
		for _, w := range words {
			set[norm.NFC.String(w)] = true
		}
		out[tag] = set
	}
	return out
}()

// DetectLanguage guesses the BCP 47 base language of text by counting
// common function words. It reports false when the text is too short or no
// language clearly dominates.
func DetectLanguage(text string) (string, bool) {
	words := strings.FieldsFunc(strings.ToLower(norm.NFC.String(text)), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) < minWords {
		return "", false
	}

	var best language.Tag
	bestHits, runnerUp := 0, 0
	for _, tag := range detectOrder {
		set := stopwordSets[tag]
		hits := 0
		for _, w := range words {
			if set[w] {
				hits++
			}
		}
		switch {
		case hits > bestHits:
			runnerUp = bestHits
			best, bestHits = tag, hits
		case hits > runnerUp:
			runnerUp = hits
		}
	}
	if bestHits < minStopwords || float64(bestHits)/float64(len(words)) < minShare || bestHits == runnerUp {
		return "", false
	}
	base, _ := best.Base()
	return base.String(), true
}
