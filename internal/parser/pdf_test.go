package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dgallion1/tracedeck/internal/docerr"
	"github.com/dgallion1/tracedeck/internal/format"
	"github.com/dgallion1/tracedeck/internal/model"
	pdflib "github.com/ledongthuc/pdf"
)

// buildPDF assembles a PDF with one page per content stream and a correct
// cross-reference table.
func buildPDF(info string, streams ...string) []byte {
	var objs []string
	n := len(streams)
	// 1 catalog, 2 pages, 3 font, then page/content pairs, then info.
	kids := make([]string, n)
	for i := range streams {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>", strings.Join(kids, " "), n),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)
	for i, s := range streams {
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(s), s),
		)
	}
	infoRef := ""
	if info != "" {
		objs = append(objs, info)
		infoRef = fmt.Sprintf(" /Info %d 0 R", len(objs))
	}
	return assemblePDF(objs, infoRef)
}

// assemblePDF numbers objs from 1, with object 1 as the catalog, and writes
// the cross-reference table and trailer.
func assemblePDF(objs []string, trailerExtra string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, trailerExtra, xref)
	return buf.Bytes()
}

// imagePDF is one letter-size page drawing a 4x2 DeviceGray image /Im0 at
// 72,600 scaled to 120x60 points.
func imagePDF() []byte {
	content := "q 120 0 0 60 72 600 cm /Im0 Do Q"
	pixels := "\x00\x40\x80\xff\xff\x80\x40\x00"
	return assemblePDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>",
		"<< /Type /Page /Parent 2 0 R /Resources << /XObject << /Im0 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		fmt.Sprintf("<< /Type /XObject /Subtype /Image /Width 4 /Height 2 /ColorSpace /DeviceGray /BitsPerComponent 8 /Length %d >>\nstream\n%s\nendstream", len(pixels), pixels),
	}, "")
}

func TestPDFDecoder_TextAndMetadata(t *testing.T) {
	data := buildPDF(
		"<< /Title (Field Notes) /Author (A. Writer) /CreationDate (D:20240102030405Z) >>",
		"BT /F1 12 Tf 72 700 Td (Hello World) Tj ET",
		"BT /F1 12 Tf 72 700 Td (Second page) Tj ET",
	)
	dec := &PDFDecoder{Logger: Options{}.logger()}
	out, err := dec.Decode(context.Background(), Source{Path: "notes.pdf", Format: format.PDF, Data: data})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Metadata.Pages == nil || *out.Metadata.Pages != 2 {
		t.Fatalf("expected 2 pages, got %v", out.Metadata.Pages)
	}
	if out.Metadata.FileSize != int64(len(data)) {
		t.Errorf("expected file size %d, got %d", len(data), out.Metadata.FileSize)
	}
	if out.Metadata.Title == nil || *out.Metadata.Title != "Field Notes" {
		t.Errorf("unexpected title: %v", out.Metadata.Title)
	}
	if out.Metadata.Author == nil || *out.Metadata.Author != "A. Writer" {
		t.Errorf("unexpected author: %v", out.Metadata.Author)
	}
	if out.Metadata.CreatedAt == nil || *out.Metadata.CreatedAt != "2024-01-02T03:04:05Z" {
		t.Errorf("unexpected created_at: %v", out.Metadata.CreatedAt)
	}
	if !strings.Contains(out.Text, "Hello") || !strings.Contains(out.Text, "Second") {
		t.Errorf("expected text from both pages, got %q", out.Text)
	}
	for _, h := range out.Hints {
		if h.Page < 1 || h.Page > 2 {
			t.Errorf("hint page out of range: %+v", h)
		}
	}
}

func TestPDFDecoder_Malformed(t *testing.T) {
	dec := &PDFDecoder{Logger: Options{}.logger()}
	_, err := dec.Decode(context.Background(), Source{Path: "bad.pdf", Format: format.PDF, Data: []byte("%PDF-1.4\ngarbage")})
	if !docerr.Is(err, docerr.KindPDF) {
		t.Errorf("expected pdf error, got %v", err)
	}
}

func TestPDFDecoder_Images(t *testing.T) {
	data := imagePDF()
	for _, include := range []bool{false, true} {
		t.Run(fmt.Sprintf("include_data=%v", include), func(t *testing.T) {
			dec := &PDFDecoder{IncludeImageData: include, Logger: Options{}.logger()}
			out, err := dec.Decode(context.Background(), Source{Path: "figure.pdf", Format: format.PDF, Data: data})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(out.Images) != 1 {
				t.Fatalf("expected 1 image, got %+v", out.Images)
			}
			img := out.Images[0]
			if img.ID != "img_0" || img.Width != 4 || img.Height != 2 {
				t.Errorf("unexpected image: %+v", img)
			}
			if include && len(img.Data) == 0 {
				t.Error("expected image payload")
			}
			if !include && len(img.Data) != 0 {
				t.Errorf("expected no payload, got %d bytes", len(img.Data))
			}
			if img.Layout == nil {
				t.Fatal("expected a placement")
			}
			want := model.Placement{Page: 1, X: 72, Y: 132, Width: 120, Height: 60}
			if *img.Layout != want {
				t.Errorf("expected layout %+v, got %+v", want, *img.Layout)
			}
		})
	}
}

func TestParsePDFDate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"D:20240102030405Z", "2024-01-02T03:04:05Z"},
		{"D:20240102030405+05'30'", "2024-01-02T03:04:05+05:30"},
		{"D:20240102030405-08'00", "2024-01-02T03:04:05-08:00"},
		{"D:2024", "2024-01-01T00:00:00Z"},
		{"20231231", "2023-12-31T00:00:00Z"},
		{"D:20241345", "D:20241345"},
		{"yesterday", "yesterday"},
		{"  D:19991231235959Z ", "1999-12-31T23:59:59Z"},
	}
	for _, tt := range tests {
		if got := ParsePDFDate(tt.in); got != tt.want {
			t.Errorf("ParsePDFDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScanImagePlacements(t *testing.T) {
	stream := []byte(`% header comment
q 1 0 0 1 50 100 cm
q 200 0 0 150 0 0 cm /Im1 Do Q
(text with \) Do inside) Tj
Q
q 0.5 0 0 0.5 0 0 cm 100 0 0 80 20 40 cm /Im2 Do Q
BI /W 2 /H 2 /BPC 8 /CS /G ID xxxx EI
/Im1 Do`)
	draws := scanImagePlacements(stream)
	if len(draws) != 3 {
		t.Fatalf("expected 3 draws, got %d: %+v", len(draws), draws)
	}

	first := draws[0]
	if first.Name != "Im1" || first.MinX != 50 || first.MinY != 100 || first.MaxX != 250 || first.MaxY != 250 {
		t.Errorf("unexpected first draw: %+v", first)
	}
	second := draws[1]
	if second.Name != "Im2" || second.MinX != 10 || second.MinY != 20 || second.MaxX != 60 || second.MaxY != 60 {
		t.Errorf("unexpected second draw: %+v", second)
	}
	if third := draws[2]; third.Name != "Im1" || third.MaxX != 1 || third.MaxY != 1 {
		t.Errorf("expected identity transform after Q, got %+v", third)
	}

	p, ok := placementFor("Im1", draws, pageBox{0, 0, 612, 792})
	if !ok {
		t.Fatal("expected placement for Im1")
	}
	if p.X != 50 || p.Y != 542 || p.Width != 200 || p.Height != 150 {
		t.Errorf("unexpected placement: %+v", p)
	}
	if _, ok := placementFor("Im9", draws, letterBox); ok {
		t.Error("expected no placement for an undrawn image")
	}
}

func TestScanImagePlacements_UnterminatedString(t *testing.T) {
	streams := []string{
		"q 100 0 0 50 10 20 cm /Im0 Do Q BT (abc\\",
		"q 100 0 0 50 10 20 cm /Im0 Do Q [(a) <<",
		"/Im0 Do <<",
	}
	for _, s := range streams {
		draws := scanImagePlacements([]byte(s))
		if len(draws) != 1 || draws[0].Name != "Im0" {
			t.Errorf("%q: expected the draw before the truncated operand, got %+v", s, draws)
		}
	}
}

func glyphs(y, size float64, x float64, s string) []pdflib.Text {
	var out []pdflib.Text
	for _, r := range s {
		out = append(out, pdflib.Text{X: x, Y: y, FontSize: size, W: size * 0.5, S: string(r)})
		x += size * 0.5
	}
	return out
}

func TestBuildLinesAndTables(t *testing.T) {
	var runs []pdflib.Text
	runs = append(runs, glyphs(760, 20, 72, "Title")...)
	runs = append(runs, glyphs(720, 10, 72, "Name")...)
	runs = append(runs, glyphs(720, 10, 300, "Qty")...)
	runs = append(runs, glyphs(706, 10, 72, "Apples")...)
	runs = append(runs, glyphs(706, 10, 300, "4")...)
	runs = append(runs, glyphs(692, 10, 72, "Pears")...)
	runs = append(runs, glyphs(692, 10, 300, "12")...)
	runs = append(runs, glyphs(650, 10, 72, "Closing words")...)

	lines := buildLines(runs)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if lines[0].Text != "Title" {
		t.Errorf("expected title first, got %q", lines[0].Text)
	}
	if lines[4].Text != "Closing words" {
		t.Errorf("unexpected closing line %q", lines[4].Text)
	}

	tables := detectTables(lines)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	tbl := tables[0]
	if strings.Join(tbl.Headers, ",") != "Name,Qty" {
		t.Errorf("unexpected headers: %v", tbl.Headers)
	}
	if len(tbl.Rows) != 2 || tbl.Rows[1][0] != "Pears" || tbl.Rows[1][1] != "12" {
		t.Errorf("unexpected rows: %v", tbl.Rows)
	}

	hints := paragraphHints(lines, 1)
	if len(hints) < 3 {
		t.Fatalf("expected separate title, table and closing hints, got %+v", hints)
	}
	if hints[0].Text != "Title" || hints[0].FontSize != 20 {
		t.Errorf("unexpected first hint: %+v", hints[0])
	}
	if last := hints[len(hints)-1]; last.Text != "Closing words" || last.Page != 1 {
		t.Errorf("unexpected last hint: %+v", last)
	}
}
