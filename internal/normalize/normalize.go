// Package normalize derives classified text blocks and a coarse document
// structure from decoder output.
package normalize

import (
	"regexp"
	"strings"

	"github.com/dgallion1/tracedeck/internal/format"
	"github.com/dgallion1/tracedeck/internal/model"
)

// Result is the normalizer output for one document.
type Result struct {
	Blocks    []model.TextBlock
	Structure model.DocumentStructure
}

// Normalize classifies the content's text and summarises its structure.
func Normalize(content *model.ExtractedContent) Result {
	blocks := Blocks(content)
	return Result{
		Blocks:    blocks,
		Structure: Structure(content, blocks),
	}
}

// imageConfidence is the fixed confidence of the single block produced for a
// raster image, which carries no classification signal.
const imageConfidence = 0.95

// Blocks splits the document into candidate blocks and classifies each one.
// Raster images always yield exactly one "content" block holding the
// (empty) document text.
func Blocks(content *model.ExtractedContent) []model.TextBlock {
	if format.Format(content.Metadata.FileType).Family() == format.FamilyImage {
		return []model.TextBlock{{
			Content:    content.Text,
			BlockType:  model.BlockContent,
			Confidence: imageConfidence,
		}}
	}

	cands := candidates(content)
	body := bodyFontSize(cands)
	blocks := make([]model.TextBlock, 0, len(cands))
	for _, c := range cands {
		kind, conf := classify(c, body)
		blocks = append(blocks, model.TextBlock{
			Content:    c.Text,
			BlockType:  kind,
			Confidence: clamp(conf),
		})
	}
	return blocks
}

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

// candidates returns the decoder's hints when it supplied any, otherwise the
// text split at blank lines.
func candidates(content *model.ExtractedContent) []model.BlockHint {
	if len(content.Hints) > 0 {
		out := make([]model.BlockHint, 0, len(content.Hints))
		for _, h := range content.Hints {
			if strings.TrimSpace(h.Text) != "" {
				out = append(out, h)
			}
		}
		return out
	}
	var out []model.BlockHint
	for _, part := range paragraphBreak.Split(content.Text, -1) {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, model.BlockHint{Text: t})
		}
	}
	return out
}

// Structure builds the document outline from classified blocks. Every
// heading opens a section; blocks before the first heading belong to none.
func Structure(content *model.ExtractedContent, blocks []model.TextBlock) model.DocumentStructure {
	s := model.DocumentStructure{
		Sections:   []model.Section{},
		TotalPages: content.Metadata.PageCount(),
	}
	for _, b := range blocks {
		if b.BlockType == model.BlockHeading {
			s.Sections = append(s.Sections, model.Section{Title: b.Content})
			continue
		}
		if n := len(s.Sections); n > 0 {
			s.Sections[n-1].ContentBlocks++
		}
	}
	if lang, ok := DetectLanguage(content.Text); ok {
		s.Language = model.Ptr(lang)
	}
	return s
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
