// Package structure assembles the processed view of a document from the
// decoder output and the normalizer's result.
package structure

import (
	"math"

	"github.com/dgallion1/tracedeck/internal/model"
	"github.com/dgallion1/tracedeck/internal/normalize"
)

// DefaultRowHeight is the vertical offset between stacked images that carry
// no layout coordinates.
const DefaultRowHeight = 100

// Structurer turns extracted content into ProcessedData.
type Structurer struct {
	RowHeight int
}

// New returns a Structurer stacking unplaced images rowHeight apart. Values
// below 1 select DefaultRowHeight.
func New(rowHeight int) *Structurer {
	if rowHeight < 1 {
		rowHeight = DefaultRowHeight
	}
	return &Structurer{RowHeight: rowHeight}
}

// Build combines content with the normalizer's result. Blocks pass through
// unchanged; the structure's page total is raised to at least 1.
func (s *Structurer) Build(content *model.ExtractedContent, norm normalize.Result) model.ProcessedData {
	blocks := norm.Blocks
	if blocks == nil {
		blocks = []model.TextBlock{}
	}
	st := norm.Structure
	if st.TotalPages < 1 {
		st.TotalPages = 1
	}
	if st.Sections == nil {
		st.Sections = []model.Section{}
	}
	return model.ProcessedData{
		TextBlocks:     blocks,
		VisualElements: s.VisualElements(content.Images),
		Structure:      st,
	}
}

// VisualElements derives one element per image. Images with decoder layout
// use their page coordinates; the rest are stacked at (0, index*RowHeight).
func (s *Structurer) VisualElements(images []model.ImageData) []model.VisualElement {
	rowHeight := s.RowHeight
	if rowHeight < 1 {
		rowHeight = DefaultRowHeight
	}
	out := make([]model.VisualElement, 0, len(images))
	for idx, img := range images {
		el := model.VisualElement{
			ElementType: model.ElementImage,
			Position:    [2]int{0, idx * rowHeight},
			Size:        [2]int{img.Width, img.Height},
			ImageID:     img.ID,
		}
		if p := img.Layout; p != nil {
			el.Position = [2]int{roundNonNeg(p.X), roundNonNeg(p.Y)}
			el.Page = p.Page
		}
		out = append(out, el)
	}
	return out
}

func roundNonNeg(v float64) int {
	if v < 0 {
		return 0
	}
	return int(math.Round(v))
}
