package parser

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/tracedeck/internal/model"
	pdflib "github.com/ledongthuc/pdf"
)

// textLine is one visual line of a page, top of page first.
type textLine struct {
	Y        float64
	X        float64
	Size     float64
	Text     string
	Segments []segment
}

// segment is a run of glyphs with no wide gap inside it. Table columns show
// up as multiple segments per line.
type segment struct {
	Start, End float64
	Text       string
}

// buildLines groups positioned glyph runs into lines in reading order. PDF
// user space has its origin at the bottom-left, so larger Y comes first.
func buildLines(runs []pdflib.Text) []textLine {
	if len(runs) == 0 {
		return nil
	}
	sorted := make([]pdflib.Text, 0, len(runs))
	for _, r := range runs {
		if r.S != "" {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y-sorted[j].Y) > lineTolerance(sorted[i].FontSize) {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lines []textLine
	var cur []pdflib.Text
	flush := func() {
		if len(cur) > 0 {
			if l, ok := assembleLine(cur); ok {
				lines = append(lines, l)
			}
		}
		cur = cur[:0]
	}
	for _, r := range sorted {
		if len(cur) > 0 && math.Abs(cur[0].Y-r.Y) > lineTolerance(cur[0].FontSize) {
			flush()
		}
		cur = append(cur, r)
	}
	flush()
	return lines
}

func lineTolerance(size float64) float64 {
	return math.Max(1.5, size*0.3)
}

// runEnd estimates where a glyph run ends when the font carries no widths.
func runEnd(r pdflib.Text) float64 {
	if r.W > 0 {
		return r.X + r.W
	}
	return r.X + 0.5*r.FontSize*float64(utf8.RuneCountInString(r.S))
}

func assembleLine(runs []pdflib.Text) (textLine, bool) {
	group := make([]pdflib.Text, len(runs))
	copy(group, runs)
	sort.SliceStable(group, func(i, j int) bool { return group[i].X < group[j].X })

	var segs []segment
	var sb strings.Builder
	var sizeSum float64
	segStart := group[0].X
	prevEnd := group[0].X
	for i, r := range group {
		sizeSum += r.FontSize
		size := math.Max(r.FontSize, 1)
		gap := r.X - prevEnd
		if i > 0 && gap > 2*size {
			if t := collapseSpaces(sb.String()); t != "" {
				segs = append(segs, segment{Start: segStart, End: prevEnd, Text: t})
			}
			sb.Reset()
			segStart = r.X
		} else if i > 0 && gap > 0.25*size {
			sb.WriteByte(' ')
		}
		sb.WriteString(r.S)
		prevEnd = math.Max(prevEnd, runEnd(r))
	}
	if t := collapseSpaces(sb.String()); t != "" {
		segs = append(segs, segment{Start: segStart, End: prevEnd, Text: t})
	}
	if len(segs) == 0 {
		return textLine{}, false
	}

	texts := make([]string, len(segs))
	for i, s := range segs {
		texts[i] = s.Text
	}
	return textLine{
		Y:        group[0].Y,
		X:        segs[0].Start,
		Size:     sizeSum / float64(len(group)),
		Text:     strings.Join(texts, "\t"),
		Segments: segs,
	}, true
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// paragraphHints merges consecutive lines into paragraph-level hints. A new
// paragraph starts on a vertical gap, a font size change or a list marker.
func paragraphHints(lines []textLine, page int) []model.BlockHint {
	if len(lines) == 0 {
		return nil
	}
	margin := lines[0].X
	for _, l := range lines {
		margin = math.Min(margin, l.X)
	}

	var hints []model.BlockHint
	var parts []string
	var first textLine
	var sizeSum float64
	flush := func() {
		if len(parts) == 0 {
			return
		}
		hints = append(hints, model.BlockHint{
			Text:     strings.Join(parts, " "),
			FontSize: round2(sizeSum / float64(len(parts))),
			Indent:   round2(first.X - margin),
			Page:     page,
		})
		parts = parts[:0]
		sizeSum = 0
	}

	for i, l := range lines {
		if i > 0 {
			prev := lines[i-1]
			lead := math.Max(prev.Size, l.Size)
			if lead <= 0 {
				lead = 10
			}
			gap := prev.Y - l.Y
			switch {
			case gap > 1.6*lead,
				sizeRatio(prev.Size, l.Size) > 1.15,
				len(l.Segments) > 1 || len(prev.Segments) > 1,
				hasListMarker(l.Text):
				flush()
			}
		}
		if len(parts) == 0 {
			first = l
		}
		parts = append(parts, l.Text)
		sizeSum += l.Size
	}
	flush()
	return hints
}

func sizeRatio(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 1
	}
	if a < b {
		a, b = b, a
	}
	return a / b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// detectTables finds runs of at least two consecutive lines that split into
// the same number (>= 2) of column-aligned segments. The first line of a run
// becomes the header.
func detectTables(lines []textLine) []model.TableData {
	var tables []model.TableData
	i := 0
	for i < len(lines) {
		n := len(lines[i].Segments)
		if n < 2 {
			i++
			continue
		}
		j := i + 1
		for j < len(lines) && columnsAligned(lines[i], lines[j]) {
			j++
		}
		if j-i >= 2 {
			headers := segmentTexts(lines[i])
			rows := make([][]string, 0, j-i-1)
			for _, l := range lines[i+1 : j] {
				rows = append(rows, segmentTexts(l))
			}
			tables = append(tables, model.NewTable(headers, rows))
		}
		i = j
	}
	return tables
}

func columnsAligned(head, l textLine) bool {
	if len(l.Segments) != len(head.Segments) {
		return false
	}
	tol := math.Max(4, head.Size)
	for k, hs := range head.Segments {
		s := l.Segments[k]
		if math.Abs(s.Start-hs.Start) > tol && math.Abs(s.End-hs.End) > tol {
			return false
		}
	}
	return true
}

func segmentTexts(l textLine) []string {
	out := make([]string, len(l.Segments))
	for i, s := range l.Segments {
		out[i] = s.Text
	}
	return out
}

// joinHints renders hints as the document text: one paragraph per hint,
// separated by blank lines.
func joinHints(hints []model.BlockHint) string {
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = h.Text
	}
	return strings.Join(parts, "\n\n")
}
