package parser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os/exec"
	"sort"
	"strings"

	"github.com/dgallion1/tracedeck/internal/docerr"
	"github.com/dgallion1/tracedeck/internal/model"
	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFDecoder handles PDF files. Text, page tree and the information
// dictionary come from ledongthuc/pdf; embedded images and where they are
// drawn come from pdfcpu. When the Go reader recovers no text at all it
// falls back to pdftotext if enabled and installed.
type PDFDecoder struct {
	FallbackPdftotext bool
	IncludeImageData  bool
	Logger            *slog.Logger
}

func (d *PDFDecoder) Decode(ctx context.Context, src Source) (out *model.ExtractedContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = docerr.PDF("malformed document", fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(src.Data), int64(len(src.Data)))
	if err != nil {
		return nil, docerr.PDF("open", err)
	}
	numPages := reader.NumPage()
	if numPages < 1 {
		return nil, docerr.PDF("page tree has no pages", nil)
	}

	meta := metadataFor(src)
	meta.Pages = model.Ptr(numPages)
	readInfoDict(reader, &meta)
	content := model.NewExtractedContent(meta)

	boxes := make(map[int]pageBox, numPages)
	var hints []model.BlockHint
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		box := mediaBox(page.V)
		boxes[i] = box

		lines := buildLines(page.Content().Text)
		hints = append(hints, paragraphHints(lines, i)...)
		content.Tables = append(content.Tables, detectTables(lines)...)
	}

	if len(hints) == 0 && d.FallbackPdftotext {
		text, err := extractPdftotext(ctx, src.Path)
		if err != nil {
			d.Logger.Debug("pdftotext fallback unavailable", "path", src.Path, "error", err)
		} else {
			content.Text = normalizeText(text)
		}
	} else {
		content.Hints = hints
		content.Text = joinHints(hints)
	}

	images, err := d.extractImages(ctx, src.Data, boxes)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		d.Logger.Warn("pdf image extraction skipped", "path", src.Path, "error", err)
	} else {
		content.Images = images
	}

	return &content, nil
}

// readInfoDict copies title, author and creation date from the trailer's
// Info dictionary.
func readInfoDict(r *pdflib.Reader, meta *model.DocumentMetadata) {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return
	}
	meta.Title = model.OptionalString(info.Key("Title").Text())
	meta.Author = model.OptionalString(info.Key("Author").Text())
	if raw := strings.TrimSpace(info.Key("CreationDate").Text()); raw != "" {
		meta.CreatedAt = model.Ptr(ParsePDFDate(raw))
	}
}

// pageBox is a page's MediaBox in user space.
type pageBox struct {
	X0, Y0, X1, Y1 float64
}

func (b pageBox) height() float64 { return b.Y1 - b.Y0 }

var letterBox = pageBox{0, 0, 612, 792}

// mediaBox resolves the MediaBox, following Parent links for inherited
// values.
func mediaBox(v pdflib.Value) pageBox {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		mb := v.Key("MediaBox")
		if mb.Len() == 4 {
			b := pageBox{mb.Index(0).Float64(), mb.Index(1).Float64(), mb.Index(2).Float64(), mb.Index(3).Float64()}
			if b.X1 < b.X0 {
				b.X0, b.X1 = b.X1, b.X0
			}
			if b.Y1 < b.Y0 {
				b.Y0, b.Y1 = b.Y1, b.Y0
			}
			if b.height() > 0 {
				return b
			}
		}
		v = v.Key("Parent")
	}
	return letterBox
}

// extractImages pulls image XObjects page by page and attaches placements
// recovered from each page's content stream. A page that fails to decode
// loses only its own images.
func (d *PDFDecoder) extractImages(ctx context.Context, data []byte, boxes map[int]pageBox) (images []model.ImageData, err error) {
	defer func() {
		if r := recover(); r != nil {
			images = nil
			err = fmt.Errorf("pdfcpu: %v", r)
		}
	}()

	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	images = []model.ImageData{}
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		box, ok := boxes[pageNr]
		if !ok {
			box = letterBox
		}
		found, err := d.pageImages(pctx, pageNr, box, len(images))
		if err != nil {
			d.Logger.Warn("page images unreadable", "page", pageNr, "error", err)
			continue
		}
		images = append(images, found...)
	}
	return images, nil
}

// pageImages returns one page's images with ids numbered from firstID.
// Dimensions come from the stub pass, which reads only the image
// dictionaries; payloads come from a second full pass when requested.
func (d *PDFDecoder) pageImages(pctx *pdfmodel.Context, pageNr int, box pageBox, firstID int) (out []model.ImageData, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("page %d: %v", pageNr, r)
		}
	}()

	stubs, err := pdfcpu.ExtractPageImages(pctx, pageNr, true)
	if err != nil {
		return nil, err
	}
	if len(stubs) == 0 {
		return nil, nil
	}
	var payloads map[int]pdfmodel.Image
	if d.IncludeImageData {
		if payloads, err = pdfcpu.ExtractPageImages(pctx, pageNr, false); err != nil {
			d.Logger.Debug("page image payloads unreadable", "page", pageNr, "error", err)
			payloads = nil
		}
	}

	var draws []drawnXObject
	if r, err := pdfcpu.ExtractPageContent(pctx, pageNr); err == nil && r != nil {
		if stream, err := io.ReadAll(r); err == nil {
			draws = scanImagePlacements(stream)
		}
	}

	for _, objNr := range orderPageImages(stubs, draws) {
		img := stubs[objNr]
		entry := model.ImageData{
			ID:     fmt.Sprintf("img_%d", firstID+len(out)),
			Format: imageFileType(img.FileType),
			Width:  img.Width,
			Height: img.Height,
			Data:   []byte{},
		}
		if full, ok := payloads[objNr]; ok && full.Reader != nil {
			if raw, err := io.ReadAll(full.Reader); err == nil {
				entry.Data = raw
				if full.FileType != "" {
					entry.Format = imageFileType(full.FileType)
				}
				if entry.Width <= 0 || entry.Height <= 0 {
					if cfg, _, err := image.DecodeConfig(bytes.NewReader(raw)); err == nil {
						entry.Width, entry.Height = cfg.Width, cfg.Height
					}
				}
			}
		}
		if entry.Width <= 0 || entry.Height <= 0 {
			d.Logger.Debug("pdf image without dimensions skipped", "page", pageNr, "name", img.Name)
			continue
		}
		if p, ok := placementFor(img.Name, draws, box); ok {
			p.Page = pageNr
			entry.Layout = &p
		}
		out = append(out, entry)
	}
	return out, nil
}

// orderPageImages returns a page's image object numbers in the order they
// are first drawn, then by object number for images never drawn directly.
func orderPageImages(found map[int]pdfmodel.Image, draws []drawnXObject) []int {
	firstDraw := make(map[string]int, len(draws))
	for i, dr := range draws {
		if _, seen := firstDraw[dr.Name]; !seen {
			firstDraw[dr.Name] = i
		}
	}
	objNrs := make([]int, 0, len(found))
	for nr := range found {
		objNrs = append(objNrs, nr)
	}
	rank := func(nr int) int {
		if i, ok := firstDraw[found[nr].Name]; ok {
			return i
		}
		return len(draws)
	}
	sort.Slice(objNrs, func(i, j int) bool {
		ri, rj := rank(objNrs[i]), rank(objNrs[j])
		if ri != rj {
			return ri < rj
		}
		return objNrs[i] < objNrs[j]
	})
	return objNrs
}

func imageFileType(ft string) string {
	ft = strings.ToLower(strings.TrimPrefix(ft, "."))
	switch ft {
	case "":
		return "raw"
	case "jpeg":
		return "jpg"
	}
	return ft
}

func extractPdftotext(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("pdftotext: no source path")
	}
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return "", err
	}
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

// PdftotextAvailable reports whether the fallback extractor is installed.
func PdftotextAvailable() bool {
	_, err := exec.LookPath("pdftotext")
	return err == nil
}
