// Package export writes a DocumentResult as JSON, Markdown or HTML.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/tracedeck/internal/docerr"
	"github.com/dgallion1/tracedeck/internal/model"
	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Format is an export target, named by file extension.
type Format string

const (
	JSON     Format = "json"
	Markdown Format = "md"
	HTML     Format = "html"
)

// FormatFor picks the export format from an output path's extension.
func FormatFor(path string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "json":
		return JSON, nil
	case "md", "markdown":
		return Markdown, nil
	case "html", "htm":
		return HTML, nil
	case "":
		return "", docerr.MissingExtension(path)
	}
	return "", docerr.Unsupported(ext)
}

// WriteFile renders res in the format implied by outPath. source names the
// input document in rendered titles.
func WriteFile(outPath, source string, res *model.DocumentResult) error {
	f, err := FormatFor(outPath)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Write(&buf, f, source, res); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return docerr.IO(outPath, err)
	}
	return nil
}

// Write renders res to w.
func Write(w io.Writer, f Format, source string, res *model.DocumentResult) error {
	var out []byte
	switch f {
	case JSON:
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return docerr.JSON(err)
		}
		out = append(data, '\n')
	case Markdown:
		out = RenderMarkdown(source, res)
	case HTML:
		data, err := RenderHTML(source, res)
		if err != nil {
			return err
		}
		out = data
	default:
		return docerr.Unsupported(string(f))
	}
	if _, err := w.Write(out); err != nil {
		return docerr.IO(source, err)
	}
	return nil
}

func title(source string, res *model.DocumentResult) string {
	if t := res.Extracted.Metadata.Title; t != nil {
		return *t
	}
	if source == "" {
		return "Document"
	}
	return filepath.Base(source)
}

var leadingMarker = regexp.MustCompile(`^(?:[•▪◦‣∙·●○■□\-*–]|\(?(?:\d{1,3}|[a-zA-Z])[.)])\s+`)

// RenderMarkdown renders the classified blocks, tables, images and outline.
func RenderMarkdown(source string, res *model.DocumentResult) []byte {
	var b strings.Builder
	meta := res.Extracted.Metadata

	fmt.Fprintf(&b, "# %s\n\n", title(source, res))
	b.WriteString("| Field | Value |\n| --- | --- |\n")
	fmt.Fprintf(&b, "| Type | %s |\n", cell(meta.FileType))
	fmt.Fprintf(&b, "| Size | %s |\n", humanize.IBytes(uint64(meta.FileSize)))
	fmt.Fprintf(&b, "| Pages | %d |\n", res.Processed.Structure.TotalPages)
	if meta.Author != nil {
		fmt.Fprintf(&b, "| Author | %s |\n", cell(*meta.Author))
	}
	if meta.CreatedAt != nil {
		fmt.Fprintf(&b, "| Created | %s |\n", cell(*meta.CreatedAt))
	}
	if lang := res.Processed.Structure.Language; lang != nil {
		fmt.Fprintf(&b, "| Language | %s |\n", cell(*lang))
	}
	fmt.Fprintf(&b, "| Processing time | %d ms |\n\n", res.ProcessingTimeMs)

	if blocks := res.Processed.TextBlocks; len(blocks) > 0 && hasText(blocks) {
		b.WriteString("## Content\n\n")
		inList := false
		for _, tb := range blocks {
			text := strings.TrimSpace(tb.Content)
			if text == "" {
				continue
			}
			if inList && tb.BlockType != model.BlockBullet {
				b.WriteString("\n")
			}
			inList = tb.BlockType == model.BlockBullet
			switch tb.BlockType {
			case model.BlockHeading:
				fmt.Fprintf(&b, "### %s\n\n", oneLine(text))
			case model.BlockBullet:
				// Consecutive bullets form one tight list.
				fmt.Fprintf(&b, "- %s\n", oneLine(leadingMarker.ReplaceAllString(text, "")))
			case model.BlockCaption:
				fmt.Fprintf(&b, "*%s*\n\n", oneLine(text))
			default:
				fmt.Fprintf(&b, "%s\n\n", text)
			}
		}
		if inList {
			b.WriteString("\n")
		}
	}

	if tables := res.Extracted.Tables; len(tables) > 0 {
		b.WriteString("## Tables\n\n")
		for i, t := range tables {
			fmt.Fprintf(&b, "**Table %d**\n\n", i+1)
			writeTable(&b, t)
			b.WriteString("\n")
		}
	}

	if els := res.Processed.VisualElements; len(els) > 0 {
		b.WriteString("## Visual elements\n\n")
		b.WriteString("| ID | Type | Page | Position | Size |\n| --- | --- | --- | --- | --- |\n")
		for _, el := range els {
			page := "-"
			if el.Page > 0 {
				page = fmt.Sprint(el.Page)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %d, %d | %d x %d |\n",
				cell(el.ImageID), el.ElementType, page, el.Position[0], el.Position[1], el.Size[0], el.Size[1])
		}
		b.WriteString("\n")
	}

	if secs := res.Processed.Structure.Sections; len(secs) > 0 {
		b.WriteString("## Outline\n\n")
		for _, s := range secs {
			fmt.Fprintf(&b, "- %s (%d blocks)\n", oneLine(s.Title), s.ContentBlocks)
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func hasText(blocks []model.TextBlock) bool {
	for _, tb := range blocks {
		if strings.TrimSpace(tb.Content) != "" {
			return true
		}
	}
	return false
}

func writeTable(b *strings.Builder, t model.TableData) {
	width := len(t.Headers)
	if width == 0 {
		return
	}
	headers := make([]string, width)
	sep := make([]string, width)
	for i, h := range t.Headers {
		headers[i] = cell(h)
		sep[i] = "---"
	}
	fmt.Fprintf(b, "| %s |\n| %s |\n", strings.Join(headers, " | "), strings.Join(sep, " | "))
	for _, row := range t.Rows {
		cells := make([]string, width)
		for i := range cells {
			if i < len(row) {
				cells[i] = cell(row[i])
			}
		}
		fmt.Fprintf(b, "| %s |\n", strings.Join(cells, " | "))
	}
}

func cell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML renders the Markdown export as a standalone HTML page.
func RenderHTML(source string, res *model.DocumentResult) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert(RenderMarkdown(source, res), &body); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	var out bytes.Buffer
	fmt.Fprintf(&out, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n",
		html.EscapeString(title(source, res)))
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}
