package parser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/dgallion1/tracedeck/internal/docerr"
	"github.com/dgallion1/tracedeck/internal/format"
	"github.com/dgallion1/tracedeck/internal/model"
	_ "golang.org/x/image/webp"
)

// ImageDecoder handles raster images. The image itself becomes the
// document's only ImageData; text and tables stay empty.
type ImageDecoder struct {
	IncludeImageData bool
}

func (d *ImageDecoder) Decode(ctx context.Context, src Source) (*model.ExtractedContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, kind, err := image.DecodeConfig(bytes.NewReader(src.Data))
	if err != nil {
		return nil, docerr.Image("decode header", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, docerr.Image(fmt.Sprintf("invalid dimensions %dx%d", cfg.Width, cfg.Height), nil)
	}

	meta := metadataFor(src)
	meta.Pages = model.Ptr(1)
	out := model.NewExtractedContent(meta)

	img := model.ImageData{
		ID:     "img_0",
		Format: string(src.Format),
		Width:  cfg.Width,
		Height: cfg.Height,
		Data:   []byte{},
	}
	if kind != string(src.Format) && !(kind == "jpeg" && src.Format == format.JPG) {
		img.Format = kind
	}
	if d.IncludeImageData {
		img.Data = src.Data
	}
	out.Images = append(out.Images, img)
	return &out, nil
}

// RegisteredImageFormats lists the decoders linked into image.DecodeConfig.
func RegisteredImageFormats() []string {
	return []string{"png", "jpeg", "gif", "webp"}
}
