// Package pipeline runs documents through classification, decoding,
// normalization and structuring, synchronously or as queued jobs.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgallion1/tracedeck/internal/config"
	"github.com/dgallion1/tracedeck/internal/docerr"
	"github.com/dgallion1/tracedeck/internal/format"
	"github.com/dgallion1/tracedeck/internal/model"
	"github.com/dgallion1/tracedeck/internal/normalize"
	"github.com/dgallion1/tracedeck/internal/parser"
	"github.com/dgallion1/tracedeck/internal/stats"
	"github.com/dgallion1/tracedeck/internal/structure"
)

// Options configures a Processor.
type Options struct {
	Logger *slog.Logger
	Stats  *stats.Tracker // optional

	SniffMagic        bool
	MaxFileBytes      int64 // <= 0 disables the limit
	FallbackPdftotext bool
	IncludeImageData  bool
	RowHeight         int
}

// OptionsFromConfig maps configuration onto processor options.
func OptionsFromConfig(cfg config.Config, log *slog.Logger, st *stats.Tracker) Options {
	return Options{
		Logger:            log,
		Stats:             st,
		SniffMagic:        cfg.SniffMagic,
		MaxFileBytes:      cfg.MaxFileBytes,
		FallbackPdftotext: cfg.PDFFallbackPdftotext,
		IncludeImageData:  cfg.IncludeImageData,
		RowHeight:         cfg.LayoutRowHeight,
	}
}

// Processor turns one document path into a DocumentResult. It holds no
// per-document state and is safe for concurrent use.
type Processor struct {
	opts       Options
	log        *slog.Logger
	structurer *structure.Structurer
}

func NewProcessor(opts Options) *Processor {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Processor{
		opts:       opts,
		log:        log,
		structurer: structure.New(opts.RowHeight),
	}
}

// Process runs the whole pipeline for path. On failure no partial result is
// returned and the error is a *docerr.Error.
func (p *Processor) Process(ctx context.Context, path string) (*model.DocumentResult, error) {
	start := time.Now()
	res, fileType, err := p.run(ctx, path)
	elapsed := time.Since(start)

	if p.opts.Stats != nil {
		p.opts.Stats.Record(fileType, elapsed.Milliseconds(), err != nil)
	}
	if err != nil {
		p.log.Debug("document failed", "path", path, "kind", docerr.KindOf(err), "error", err)
		return nil, err
	}
	res.ProcessingTimeMs = elapsed.Milliseconds()
	p.log.Debug("document processed", "path", path, "type", fileType,
		"blocks", len(res.Processed.TextBlocks), "images", len(res.Extracted.Images),
		"duration_ms", res.ProcessingTimeMs)
	return res, nil
}

func (p *Processor) run(ctx context.Context, path string) (*model.DocumentResult, string, error) {
	f, err := format.Classify(path)
	if err != nil {
		return nil, "", err
	}
	fileType := string(f)

	src, err := parser.ReadSource(path, f, p.opts.MaxFileBytes)
	if err != nil {
		return nil, fileType, err
	}
	if p.opts.SniffMagic {
		if err := format.Verify(f, src.Data); err != nil {
			return nil, fileType, err
		}
	}

	dec, err := parser.ForFormat(f, parser.Options{
		Logger:            p.log,
		FallbackPdftotext: p.opts.FallbackPdftotext,
		IncludeImageData:  p.opts.IncludeImageData,
	})
	if err != nil {
		return nil, fileType, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fileType, interrupted(err)
	}
	content, err := dec.Decode(ctx, src)
	if err != nil {
		return nil, fileType, asDocErr(f, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fileType, interrupted(err)
	}

	norm := normalize.Normalize(content)
	processed := p.structurer.Build(content, norm)
	return &model.DocumentResult{
		Extracted: *content,
		Processed: processed,
	}, fileType, nil
}

func interrupted(err error) error {
	return docerr.Wrap(docerr.KindIO, "processing interrupted", err)
}

// asDocErr keeps typed errors and files anything else under the decoder's
// kind.
func asDocErr(f format.Format, err error) error {
	var de *docerr.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return interrupted(err)
	}
	switch f.Family() {
	case format.FamilyPDF:
		return docerr.PDF("decode", err)
	case format.FamilyDOCX:
		return docerr.DOCX("decode", err)
	default:
		return docerr.Image("decode", err)
	}
}
