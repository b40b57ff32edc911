package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/tracedeck/internal/docerr"
	"github.com/dgallion1/tracedeck/internal/model"
)

func sampleResult() *model.DocumentResult {
	ex := model.NewExtractedContent(model.DocumentMetadata{
		FileType: "docx",
		FileSize: 2048,
		Title:    model.Ptr("Quarterly Report"),
		Author:   model.Ptr("Finance"),
	})
	ex.Text = "Summary\n\nRevenue grew."
	ex.Tables = append(ex.Tables, model.NewTable([]string{"Region", "Q1"}, [][]string{{"North", "1|2"}, {"South"}}))
	return &model.DocumentResult{
		Extracted: ex,
		Processed: model.ProcessedData{
			TextBlocks: []model.TextBlock{
				{Content: "Summary", BlockType: model.BlockHeading, Confidence: 0.98},
				{Content: "Revenue grew <script>alert(1)</script>.", BlockType: model.BlockParagraph, Confidence: 0.85},
				{Content: "• first point", BlockType: model.BlockBullet, Confidence: 0.9},
				{Content: "Figure 1: Growth", BlockType: model.BlockCaption, Confidence: 0.8},
			},
			VisualElements: []model.VisualElement{
				{ElementType: model.ElementImage, Position: [2]int{0, 0}, Size: [2]int{640, 480}, ImageID: "img_1"},
			},
			Structure: model.DocumentStructure{
				Sections:   []model.Section{{Title: "Summary", ContentBlocks: 3}},
				TotalPages: 1,
				Language:   model.Ptr("en"),
			},
		},
		ProcessingTimeMs: 12,
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path string
		want Format
		kind docerr.Kind
	}{
		{"out.json", JSON, ""},
		{"OUT.MD", Markdown, ""},
		{"notes.markdown", Markdown, ""},
		{"page.htm", HTML, ""},
		{"report.html", HTML, ""},
		{"report.xml", "", docerr.KindUnsupportedFormat},
		{"report", "", docerr.KindParse},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFor(tt.path)
			if tt.kind != "" {
				if !docerr.Is(err, tt.kind) {
					t.Errorf("expected %s error, got %v", tt.kind, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("FormatFor(%q) = %q, %v; want %q", tt.path, got, err, tt.want)
			}
		})
	}
}

func TestRenderMarkdown(t *testing.T) {
	out := string(RenderMarkdown("report.docx", sampleResult()))

	for _, want := range []string{
		"# Quarterly Report\n",
		"| Type | docx |",
		"| Size | 2.0 KiB |",
		"| Author | Finance |",
		"| Language | en |",
		"### Summary\n",
		"- first point\n",
		"*Figure 1: Growth*\n",
		"| Region | Q1 |\n| --- | --- |\n",
		`| North | 1\|2 |`,
		"| South |  |",
		"| img_1 | image | - | 0, 0 | 640 x 480 |",
		"- Summary (3 blocks)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected markdown to contain %q\n%s", want, out)
		}
	}
}

func TestRenderMarkdown_FallbackTitle(t *testing.T) {
	res := sampleResult()
	res.Extracted.Metadata.Title = nil
	out := string(RenderMarkdown("/tmp/in/scan.png", res))
	if !strings.HasPrefix(out, "# scan.png\n") {
		t.Errorf("expected file name title, got %q", out[:min(len(out), 40)])
	}
}

func TestRenderHTML(t *testing.T) {
	out, err := RenderHTML("report.docx", sampleResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page := string(out)
	for _, want := range []string{
		"<title>Quarterly Report</title>",
		"<h1>Quarterly Report</h1>",
		"<table>",
		"<th>Region</th>",
		"<em>Figure 1: Growth</em>",
		"<li>first point</li>",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("expected html to contain %q", want)
		}
	}
	if strings.Contains(page, "<script>") {
		t.Error("expected raw html in document text to be suppressed")
	}
}

func TestWriteFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	res := sampleResult()
	if err := WriteFile(path, "report.docx", res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var back model.DocumentResult
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ProcessingTimeMs != 12 || len(back.Processed.TextBlocks) != 4 {
		t.Errorf("unexpected round trip: %+v", back)
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Format("pdf"), "x", sampleResult()); !docerr.Is(err, docerr.KindUnsupportedFormat) {
		t.Errorf("expected unsupported error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Error("expected nothing written")
	}
}
