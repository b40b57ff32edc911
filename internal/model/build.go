package model

import "strings"

// NewTable builds a TableData whose rows all match the widest of the header
// and the data rows. Short headers and rows are padded with empty cells, and
// rows with no non-blank cell are dropped.
func NewTable(headers []string, rows [][]string) TableData {
	width := len(headers)
	for _, row := range rows {
		if !blankRow(row) {
			width = max(width, len(row))
		}
	}
	t := TableData{
		Headers: make([]string, width),
		Rows:    make([][]string, 0, len(rows)),
	}
	for i, h := range headers {
		t.Headers[i] = strings.TrimSpace(h)
	}
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		cells := make([]string, width)
		for i, c := range row {
			cells[i] = strings.TrimSpace(c)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// NewExtractedContent returns content with non-nil slices so it serializes
// as [] rather than null.
func NewExtractedContent(meta DocumentMetadata) ExtractedContent {
	return ExtractedContent{
		Images:   []ImageData{},
		Tables:   []TableData{},
		Metadata: meta,
	}
}

// PageCount returns the reported page count, or 1 when the decoder reported
// none.
func (m DocumentMetadata) PageCount() int {
	if m.Pages == nil || *m.Pages < 1 {
		return 1
	}
	return *m.Pages
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// OptionalString returns nil for blank strings.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
