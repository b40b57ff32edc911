// Package parser decodes supported document formats into the common
// extracted-content model.
package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/tracedeck/internal/docerr"
	"github.com/dgallion1/tracedeck/internal/format"
	"github.com/dgallion1/tracedeck/internal/model"
)

// Source is a document read into memory. Data is the complete file as it
// was on disk at read time.
type Source struct {
	Path   string
	Format format.Format
	Data   []byte
}

// Decoder converts a Source into ExtractedContent.
type Decoder interface {
	Decode(ctx context.Context, src Source) (*model.ExtractedContent, error)
}

// Options configures the decoders returned by ForFormat.
type Options struct {
	Logger            *slog.Logger
	FallbackPdftotext bool
	IncludeImageData  bool
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// ForFormat returns the decoder for f.
func ForFormat(f format.Format, opts Options) (Decoder, error) {
	if !f.Valid() {
		return nil, docerr.Unsupported(string(f))
	}
	switch f.Family() {
	case format.FamilyPDF:
		return &PDFDecoder{
			FallbackPdftotext: opts.FallbackPdftotext,
			IncludeImageData:  opts.IncludeImageData,
			Logger:            opts.logger(),
		}, nil
	case format.FamilyDOCX:
		return &DOCXDecoder{
			IncludeImageData: opts.IncludeImageData,
			Logger:           opts.logger(),
		}, nil
	default:
		return &ImageDecoder{IncludeImageData: opts.IncludeImageData}, nil
	}
}

// ReadSource reads path into memory. maxBytes <= 0 disables the size limit.
func ReadSource(path string, f format.Format, maxBytes int64) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Source{}, docerr.IO(path, err)
	}
	if info.IsDir() {
		return Source{}, docerr.IO(path, fmt.Errorf("is a directory"))
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return Source{}, docerr.IO(path, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), maxBytes))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, docerr.IO(path, err)
	}
	return Source{Path: path, Format: f, Data: data}, nil
}

// DecodeFile reads and decodes path as format f.
func DecodeFile(ctx context.Context, path string, f format.Format, opts Options) (*model.ExtractedContent, error) {
	dec, err := ForFormat(f, opts)
	if err != nil {
		return nil, err
	}
	src, err := ReadSource(path, f, 0)
	if err != nil {
		return nil, err
	}
	return dec.Decode(ctx, src)
}

func metadataFor(src Source) model.DocumentMetadata {
	return model.DocumentMetadata{
		FileType: string(src.Format),
		FileSize: int64(len(src.Data)),
	}
}
