// Package batch processes every document in a directory with bounded
// concurrency. Per-file failures are recorded, never fatal.
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/tracedeck/internal/model"
	"golang.org/x/sync/errgroup"
)

// Processor is the single-document entry point batch runs per file.
type Processor interface {
	Process(ctx context.Context, path string) (*model.DocumentResult, error)
}

// Options controls file selection and concurrency.
type Options struct {
	Extensions []string      // case-insensitive, with or without the dot; empty means all files
	Recursive  bool          // descend into subdirectories
	Workers    int           // concurrent documents; values below 1 mean 1
	Timeout    time.Duration // per-file deadline; 0 disables it

	// Progress, when set, is called after each file completes. Calls are
	// serialized.
	Progress func(done, total int, r FileResult)
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path     string
	Result   *model.DocumentResult
	Err      error
	Duration time.Duration
}

// OK reports whether the file was processed successfully.
func (r FileResult) OK() bool { return r.Err == nil }

// Summary aggregates a batch run. Files is in path order.
type Summary struct {
	Total     int
	Processed int
	Failed    int
	Elapsed   time.Duration
	Files     []FileResult
}

// SuccessRate returns the processed share in percent.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Processed) / float64(s.Total) * 100
}

// Collect lists the files in dir that match opts, sorted by path. Hidden
// files and directories are skipped.
func Collect(dir string, opts Options) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	allow := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			allow[e] = true
		}
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		hidden := strings.HasPrefix(d.Name(), ".")
		if d.IsDir() {
			if hidden || !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden || !d.Type().IsRegular() {
			return nil
		}
		if len(allow) > 0 {
			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
			if !allow[ext] {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Run processes the files selected from dir. The returned error is only
// non-nil when the directory cannot be listed or ctx ends the run early.
func Run(ctx context.Context, proc Processor, dir string, opts Options) (Summary, error) {
	files, err := Collect(dir, opts)
	if err != nil {
		return Summary{}, err
	}
	return RunFiles(ctx, proc, files, opts)
}

// RunFiles processes an explicit file list.
func RunFiles(ctx context.Context, proc Processor, files []string, opts Options) (Summary, error) {
	start := time.Now()
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]FileResult, len(files))
	var (
		mu   sync.Mutex
		done int
	)

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, path := range files {
		if ctx.Err() != nil {
			results[i] = FileResult{Path: path, Err: ctx.Err()}
			continue
		}
		g.Go(func() error {
			fctx := ctx
			if opts.Timeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, opts.Timeout)
				defer cancel()
			}
			t0 := time.Now()
			res, err := proc.Process(fctx, path)
			r := FileResult{Path: path, Result: res, Err: err, Duration: time.Since(t0)}
			results[i] = r

			if opts.Progress != nil {
				mu.Lock()
				done++
				opts.Progress(done, len(files), r)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{Total: len(files), Files: results, Elapsed: time.Since(start)}
	for _, r := range results {
		if r.OK() {
			sum.Processed++
		} else {
			sum.Failed++
		}
	}
	return sum, ctx.Err()
}
