package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/tracedeck/internal/docerr"
	"github.com/dgallion1/tracedeck/internal/model"
	"github.com/fumiama/go-docx"
)

const (
	docxMainPart = "word/document.xml"
	docxRelsPart = "word/_rels/document.xml.rels"
	docxCorePart = "docProps/core.xml"
	docxMediaDir = "word/media/"
	relTypeImage = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

// DOCXDecoder handles .docx files. Paragraph text, styles and tables come
// from go-docx; embedded media and core properties are read straight from
// the container.
type DOCXDecoder struct {
	IncludeImageData bool
	Logger           *slog.Logger
}

func (d *DOCXDecoder) Decode(ctx context.Context, src Source) (*model.ExtractedContent, error) {
	zr, err := zip.NewReader(bytes.NewReader(src.Data), int64(len(src.Data)))
	if err != nil {
		return nil, docerr.DOCX("open container", err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	if files[docxMainPart] == nil {
		return nil, docerr.DOCX("missing "+docxMainPart, nil)
	}

	doc, err := parseDocx(src.Data)
	if err != nil {
		return nil, docerr.DOCX("parse document", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta := metadataFor(src)
	if f := files[docxCorePart]; f != nil {
		if err := readCoreProps(f, &meta); err != nil {
			d.Logger.Debug("docx core properties unreadable", "path", src.Path, "error", err)
		}
	}
	content := model.NewExtractedContent(meta)

	var hints []model.BlockHint
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			text := docxParagraphText(it)
			if text == "" {
				continue
			}
			style := docxStyle(it)
			hints = append(hints, model.BlockHint{
				Text:  text,
				Style: style,
				Level: docxHeadingLevel(style),
			})
		case *docx.Table:
			t, ok := docxTable(it)
			if !ok {
				continue
			}
			content.Tables = append(content.Tables, t)
			// Rows also appear in the text at the table's position.
			for _, row := range append([][]string{t.Headers}, t.Rows...) {
				if line := strings.TrimSpace(strings.Join(row, "\t")); line != "" {
					hints = append(hints, model.BlockHint{Text: line, Style: "TableRow"})
				}
			}
		}
	}
	content.Hints = hints
	content.Text = joinHints(hints)

	images, err := d.readMedia(files)
	if err != nil {
		return nil, docerr.DOCX("read media", err)
	}
	content.Images = images
	return &content, nil
}

func parseDocx(data []byte) (doc *docx.Docx, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%v", r)
		}
	}()
	doc, err = docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err == nil && doc == nil {
		err = errors.New("empty document")
	}
	return doc, err
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

// docxHeadingLevel maps "Heading1" / "heading 1" style ids to 1..9 and the
// Title style to 1. Other styles are level 0.
func docxHeadingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if s == "title" {
		return 1
	}
	if !strings.HasPrefix(s, "heading") {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s, "heading"))
	if err != nil || n < 1 || n > 9 {
		return 0
	}
	return n
}

// docxParagraphText concatenates run text in document order, including
// runs nested in hyperlinks. Tabs become spaces and breaks end a line.
func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			writeRunText(&buf, c.Children)
		case *docx.Hyperlink:
			writeRunText(&buf, c.Run.Children)
		}
	}
	lines := strings.Split(buf.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = collapseSpaces(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func writeRunText(buf *strings.Builder, children []interface{}) {
	for _, rc := range children {
		switch c := rc.(type) {
		case *docx.Text:
			buf.WriteString(c.Text)
		case *docx.Tab:
			buf.WriteByte('\t')
		case *docx.BarterRabbet:
			buf.WriteByte('\n')
		}
	}
}

// docxTable converts a table; the first row supplies the headers. Leading
// rows without cells are skipped.
func docxTable(tbl *docx.Table) (model.TableData, bool) {
	var grid [][]string
	for _, row := range tbl.TableRows {
		cells := make([]string, 0, len(row.TableCells))
		for _, cell := range row.TableCells {
			parts := make([]string, 0, len(cell.Paragraphs))
			for _, p := range cell.Paragraphs {
				if t := docxParagraphText(p); t != "" {
					parts = append(parts, t)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		if len(cells) == 0 && len(grid) == 0 {
			continue
		}
		grid = append(grid, cells)
	}
	if len(grid) == 0 {
		return model.TableData{}, false
	}
	return model.NewTable(grid[0], grid[1:]), true
}

type coreProps struct {
	Title   string `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creator string `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Created string `xml:"http://purl.org/dc/terms/ created"`
}

func readCoreProps(f *zip.File, meta *model.DocumentMetadata) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	var cp coreProps
	if err := xml.NewDecoder(rc).Decode(&cp); err != nil {
		return err
	}
	meta.Title = model.OptionalString(cp.Title)
	meta.Author = model.OptionalString(cp.Creator)
	meta.CreatedAt = model.OptionalString(cp.Created)
	return nil
}

type relationships struct {
	Items []struct {
		ID         string `xml:"Id,attr"`
		Type       string `xml:"Type,attr"`
		Target     string `xml:"Target,attr"`
		TargetMode string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

// readMedia returns embedded images in the order the document body first
// references them, followed by unreferenced media sorted by name. Parts the
// image package cannot decode (EMF, WMF, SVG) are skipped.
func (d *DOCXDecoder) readMedia(files map[string]*zip.File) ([]model.ImageData, error) {
	targets, err := imageTargets(files[docxRelsPart])
	if err != nil {
		d.Logger.Debug("docx relationships unreadable", "error", err)
	}
	order, err := blipOrder(files[docxMainPart])
	if err != nil {
		return nil, err
	}

	var names []string
	seen := make(map[string]bool)
	for _, rid := range order {
		name, ok := targets[rid]
		if !ok || seen[name] || files[name] == nil {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	var rest []string
	for name := range files {
		if strings.HasPrefix(name, docxMediaDir) && !seen[name] && !strings.HasSuffix(name, "/") {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	names = append(names, rest...)

	images := []model.ImageData{}
	for _, name := range names {
		raw, err := readZipFile(files[name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
		if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
			d.Logger.Debug("docx media skipped", "part", name, "error", err)
			continue
		}
		img := model.ImageData{
			ID:     fmt.Sprintf("img_%d", len(images)),
			Format: imageFileType(path.Ext(name)),
			Width:  cfg.Width,
			Height: cfg.Height,
			Data:   []byte{},
		}
		if d.IncludeImageData {
			img.Data = raw
		}
		images = append(images, img)
	}
	return images, nil
}

// imageTargets maps relationship ids to zip part names for internal image
// relationships.
func imageTargets(f *zip.File) (map[string]string, error) {
	out := map[string]string{}
	if f == nil {
		return out, nil
	}
	raw, err := readZipFile(f)
	if err != nil {
		return out, err
	}
	var rels relationships
	if err := xml.Unmarshal(raw, &rels); err != nil {
		return out, err
	}
	for _, r := range rels.Items {
		if r.Type != relTypeImage || strings.EqualFold(r.TargetMode, "External") {
			continue
		}
		target := r.Target
		if strings.HasPrefix(target, "/") {
			target = strings.TrimPrefix(target, "/")
		} else {
			target = path.Join("word", target)
		}
		out[r.ID] = path.Clean(target)
	}
	return out, nil
}

// blipOrder lists r:embed ids of a:blip elements in document order.
func blipOrder(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var ids []string
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return ids, nil
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "blip" {
			continue
		}
		for _, a := range se.Attr {
			if a.Name.Local == "embed" && a.Value != "" {
				ids = append(ids, a.Value)
			}
		}
	}
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
