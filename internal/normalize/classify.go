package normalize

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/tracedeck/internal/model"
)

var (
	bulletMarker   = regexp.MustCompile(`^[•▪◦‣∙·●○■□\-*–]\s+\S`)
	numberedMarker = regexp.MustCompile(`^\(?(?:\d{1,3}|[a-zA-Z]|[ivxlcIVXLC]{1,5})[.)]\s+\S`)
	captionPrefix  = regexp.MustCompile(`(?i)^(?:figure|fig\.|table|chart|diagram|image|plate|exhibit)\s*\d+[a-z]?\s*[.:\-–]`)
	sentenceEnd    = regexp.MustCompile(`[.!?]["')\]]?(?:\s|$)`)
)

// classify assigns a block type and a confidence to one candidate. Decoder
// styles are the strongest signal, then list and caption markers, then font
// size, then textual shape.
func classify(c model.BlockHint, bodySize float64) (string, float64) {
	text := strings.TrimSpace(c.Text)
	style := strings.ToLower(strings.ReplaceAll(c.Style, " ", ""))

	switch {
	case c.Level > 0:
		return model.BlockHeading, 0.98
	case strings.Contains(style, "list"):
		return model.BlockBullet, 0.95
	case strings.Contains(style, "caption"):
		return model.BlockCaption, 0.95
	}

	if bulletMarker.MatchString(text) {
		return model.BlockBullet, 0.9
	}
	if numberedMarker.MatchString(text) && !looksLikeHeading(text) {
		return model.BlockBullet, 0.75
	}
	if captionPrefix.MatchString(text) {
		return model.BlockCaption, 0.8
	}

	if bodySize > 0 && c.FontSize > 0 {
		ratio := c.FontSize / bodySize
		if ratio >= 1.3 && short(text) {
			if ratio >= 1.6 {
				return model.BlockHeading, 0.9
			}
			return model.BlockHeading, 0.8
		}
	}

	if looksLikeHeading(text) {
		if isUpper(text) {
			return model.BlockHeading, 0.7
		}
		return model.BlockHeading, 0.6
	}

	conf := 0.7
	if len(sentenceEnd.FindAllStringIndex(text, -1)) >= 2 || wordCount(text) > 20 {
		conf = 0.85
	}
	if c.FontSize > 0 {
		conf += 0.05
	}
	return model.BlockParagraph, conf
}

// looksLikeHeading reports whether text has the shape of a heading: one
// short line, starting with a capital or digit, no closing punctuation.
func looksLikeHeading(text string) bool {
	if strings.ContainsAny(text, "\n\t") || !short(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text)
	if !unicode.IsUpper(r) && !unicode.IsDigit(r) {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(text)
	return !strings.ContainsRune(".,;!?", last)
}

func short(text string) bool {
	return wordCount(text) <= 10 && utf8.RuneCountInString(text) <= 90
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func isUpper(text string) bool {
	letters := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return letters > 1
}

// bodyFontSize returns the size that covers the most characters among
// hinted candidates, rounded to half a point. Zero when no sizes are known.
func bodyFontSize(cands []model.BlockHint) float64 {
	weight := make(map[float64]int)
	for _, c := range cands {
		if c.FontSize <= 0 {
			continue
		}
		size := math.Round(c.FontSize*2) / 2
		weight[size] += utf8.RuneCountInString(c.Text)
	}
	if len(weight) == 0 {
		return 0
	}
	sizes := make([]float64, 0, len(weight))
	for s := range weight {
		sizes = append(sizes, s)
	}
	sort.Float64s(sizes)
	best := sizes[0]
	for _, s := range sizes[1:] {
		if weight[s] > weight[best] {
			best = s
		}
	}
	return best
}
