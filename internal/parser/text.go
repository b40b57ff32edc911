package parser

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeText cleans externally extracted text: NFC composition, LF line
// endings, form feeds as paragraph breaks, and paragraphs separated by
// exactly one blank line. Lines are not length-limited.
func normalizeText(raw string) string {
	raw = norm.NFC.String(raw)
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	raw = strings.ReplaceAll(raw, "\f", "\n\n")

	var paragraphs []string
	var current strings.Builder
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return strings.Join(paragraphs, "\n\n")
}

var listMarker = regexp.MustCompile(`^\s*(?:[•▪◦‣∙·\-*–]\s+|\(?\d{1,3}[.)]\s+|\(?[a-zA-Z][.)]\s+)`)

// hasListMarker reports whether a line opens with a bullet or an
// enumerator such as "1." or "a)".
func hasListMarker(line string) bool {
	return listMarker.MatchString(line)
}
