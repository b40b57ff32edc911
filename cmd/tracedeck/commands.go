package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/tracedeck/internal/batch"
	"github.com/dgallion1/tracedeck/internal/export"
	"github.com/dgallion1/tracedeck/internal/format"
	"github.com/dgallion1/tracedeck/internal/model"
	"github.com/dgallion1/tracedeck/internal/parser"
	"github.com/dgallion1/tracedeck/internal/pipeline"
	"github.com/dgallion1/tracedeck/internal/ui"
)

func (env *cliEnv) processor() *pipeline.Processor {
	return pipeline.NewProcessor(pipeline.OptionsFromConfig(env.cfg, env.log, nil))
}

func (env *cliEnv) printer() *ui.Printer {
	return ui.New(env.stdout)
}

func runProcess(ctx context.Context, env *cliEnv, args []string) int {
	fs := newFlagSet(env, "process", "FILE [flags]")
	outFormat := fs.String("format", "pretty", "output format: json or pretty")
	timing := fs.Bool("timing", false, "print performance metrics")
	verbose := fs.Bool("verbose", false, "print document statistics")
	file, code, ok := oneArg(env, fs, args)
	if !ok {
		return code
	}
	if *outFormat != "json" && *outFormat != "pretty" {
		fmt.Fprintf(env.stderr, "invalid -format %q: want json or pretty\n", *outFormat)
		return 2
	}

	// Machine mode: the compact document on stdout and nothing else.
	if *outFormat == "json" {
		res, err := env.processor().Process(ctx, file)
		if err != nil {
			fmt.Fprintln(env.stderr, err)
			return 1
		}
		if err := json.NewEncoder(env.stdout).Encode(res); err != nil {
			fmt.Fprintln(env.stderr, err)
			return 1
		}
		return 0
	}

	p := env.printer()
	p.Header(appName, appVersion)
	p.Info("Processing document...")

	p.Subsection("Input Details")
	p.Pair("Path", file)
	if info, err := os.Stat(file); err == nil {
		p.Pair("Size", ui.FormatSize(info.Size()))
	}
	p.Pair("Type", fileType(file))
	fmt.Fprintln(env.stdout)

	start := time.Now()
	res, err := env.processor().Process(ctx, file)
	elapsed := time.Since(start)
	if err != nil {
		p.Error(err.Error())
		return 1
	}
	p.Success("Processing completed in " + ui.FormatDuration(elapsed))
	fmt.Fprintln(env.stdout)

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		p.Error(err.Error())
		return 1
	}
	fmt.Fprintln(env.stdout, string(data))

	if *timing {
		p.Rule()
		p.Subsection("Performance Metrics")
		p.Pair("Total Time", ui.FormatDuration(elapsed))
		p.Pair("Pipeline Time", ui.FormatDuration(time.Duration(res.ProcessingTimeMs)*time.Millisecond))
		p.Pair("Status", "Completed")
		fmt.Fprintln(env.stdout)
	}
	if *verbose {
		p.Rule()
		p.Subsection("Document Statistics")
		p.Pair("Text Blocks", strconv.Itoa(len(res.Processed.TextBlocks)))
		p.Pair("Block Types", blockSummary(res))
		p.Pair("Visual Elements", strconv.Itoa(len(res.Processed.VisualElements)))
		p.Pair("Tables", strconv.Itoa(len(res.Extracted.Tables)))
		p.Pair("Sections", strconv.Itoa(len(res.Processed.Structure.Sections)))
		for _, sec := range res.Processed.Structure.Sections {
			p.Verbose(fmt.Sprintf("%s (%d blocks)", sec.Title, sec.ContentBlocks))
		}
		p.Pair("Pages", strconv.Itoa(res.Extracted.Metadata.PageCount()))
		if lang := res.Processed.Structure.Language; lang != nil {
			p.Pair("Language", *lang)
		}
		p.Pair("Analyzed Size", ui.FormatSize(res.Extracted.Metadata.FileSize))
		fmt.Fprintln(env.stdout)
	}
	return 0
}

func fileType(path string) string {
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		return strings.ToLower(ext)
	}
	return "unknown"
}

func runExtract(ctx context.Context, env *cliEnv, args []string) int {
	fs := newFlagSet(env, "extract", "FILE [flags]")
	textOnly := fs.Bool("text-only", false, "print only the extracted text")
	file, code, ok := oneArg(env, fs, args)
	if !ok {
		return code
	}

	if *textOnly {
		res, err := env.processor().Process(ctx, file)
		if err != nil {
			fmt.Fprintln(env.stderr, err)
			return 1
		}
		fmt.Fprintln(env.stdout, res.Extracted.Text)
		return 0
	}

	p := env.printer()
	p.Header(appName, appVersion)
	p.Info("Extracting text...")
	p.Subsection("Target File")
	p.Pair("Path", file)
	fmt.Fprintln(env.stdout)

	res, err := env.processor().Process(ctx, file)
	if err != nil {
		p.Error(err.Error())
		return 1
	}
	meta := res.Extracted.Metadata

	p.Section("Text Content")
	fmt.Fprintln(env.stdout, res.Extracted.Text)

	p.Section("Document Metadata")
	t := ui.NewTable("Property", "Value")
	t.AddRow("Type", meta.FileType)
	t.AddRow("Size", ui.FormatSize(meta.FileSize))
	if meta.Pages != nil {
		t.AddRow("Pages", strconv.Itoa(*meta.Pages))
	}
	if meta.Title != nil {
		t.AddRow("Title", *meta.Title)
	}
	if meta.Author != nil {
		t.AddRow("Author", *meta.Author)
	}
	if meta.CreatedAt != nil {
		t.AddRow("Created", *meta.CreatedAt)
	}
	t.Print(p)

	if n := len(res.Extracted.Images); n > 0 {
		p.Info(fmt.Sprintf("Found %d images", n))
	}
	if n := len(res.Extracted.Tables); n > 0 {
		p.Info(fmt.Sprintf("Found %d tables", n))
	}
	return 0
}

func runBatch(ctx context.Context, env *cliEnv, args []string) int {
	fs := newFlagSet(env, "batch", "DIR [flags]")
	exts := fs.String("ext", "", "comma-separated extensions to include, e.g. pdf,docx")
	recursive := fs.Bool("recursive", false, "descend into subdirectories")
	workers := fs.Int("workers", env.cfg.WorkerCount, "documents processed concurrently")
	timeout := fs.Duration("timeout", env.cfg.FileTimeout, "per-file deadline (0 disables)")
	dir, code, ok := oneArg(env, fs, args)
	if !ok {
		return code
	}

	p := env.printer()
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		p.Error("Directory not found: " + dir)
		return 1
	}

	opts := batch.Options{
		Recursive: *recursive,
		Workers:   *workers,
		Timeout:   *timeout,
	}
	if *exts != "" {
		opts.Extensions = strings.Split(*exts, ",")
	}

	p.Header(appName, appVersion)
	p.Info("Starting batch processing...")
	p.Subsection("Configuration")
	p.Pair("Directory", dir)
	if *exts != "" {
		p.Pair("Filter", *exts)
	}
	p.Pair("Recursive", strconv.FormatBool(*recursive))
	p.Pair("Workers", strconv.Itoa(max(*workers, 1)))
	if *timeout > 0 {
		p.Pair("Timeout", timeout.String())
	}
	fmt.Fprintln(env.stdout)

	files, err := batch.Collect(dir, opts)
	if err != nil {
		p.Error(err.Error())
		return 1
	}
	if len(files) == 0 {
		p.Warning("No files found")
		return 0
	}
	p.Info(fmt.Sprintf("Found %d files", len(files)))

	p.Section("Processing")
	bar := ui.NewProgressBar(p, len(files))
	opts.Progress = func(done, total int, r batch.FileResult) {
		bar.Update(done)
		if !r.OK() {
			env.log.Debug("batch file failed", "path", r.Path, "error", r.Err)
		}
	}
	sum, err := batch.RunFiles(ctx, env.processor(), files, opts)
	bar.Finish()
	if err != nil {
		p.Warning("Batch interrupted: " + err.Error())
	}

	p.Section("Results")
	t := ui.NewTable("Metric", "Count")
	t.AddRow("Total Files", strconv.Itoa(sum.Total))
	t.AddRow("Processed", strconv.Itoa(sum.Processed))
	t.AddRow("Failed", strconv.Itoa(sum.Failed))
	t.AddRow("Success Rate", fmt.Sprintf("%.1f%%", sum.SuccessRate()))
	t.AddRow("Elapsed", ui.FormatDuration(sum.Elapsed))
	t.Print(p)

	if sum.Failed == 0 {
		p.Success("All files processed successfully")
		return 0
	}
	p.Warning(fmt.Sprintf("%d files failed", sum.Failed))
	failures := ui.NewTable("File", "Error")
	for _, r := range sum.Files {
		if !r.OK() {
			failures.AddRow(filepath.Base(r.Path), r.Err.Error())
		}
	}
	failures.Print(p)
	return 0
}

func runExport(ctx context.Context, env *cliEnv, args []string) int {
	fs := newFlagSet(env, "export", "FILE -o OUT")
	out := fs.String("o", "", "output path; the extension selects json, md or html")
	file, code, ok := oneArg(env, fs, args)
	if !ok {
		return code
	}
	if *out == "" {
		fs.Usage()
		return 2
	}

	p := env.printer()
	if _, err := export.FormatFor(*out); err != nil {
		p.Error(err.Error())
		return 1
	}
	res, err := env.processor().Process(ctx, file)
	if err != nil {
		p.Error(err.Error())
		return 1
	}
	if err := export.WriteFile(*out, file, res); err != nil {
		p.Error(err.Error())
		return 1
	}
	p.Success(fmt.Sprintf("Exported %s to %s", filepath.Base(file), *out))
	return 0
}

func runFormats(_ context.Context, env *cliEnv, _ []string) int {
	p := env.printer()
	p.Header(appName, appVersion)
	p.Section("Supported Formats")
	t := ui.NewTable("Format", "Extension", "Description")
	for _, f := range format.Catalogue {
		t.AddRow(f.Name, strings.Join(f.Extensions, ", "), f.Description)
	}
	t.Print(p)
	return 0
}

func runInfo(_ context.Context, env *cliEnv, _ []string) int {
	p := env.printer()
	p.Header(appName, appVersion)

	p.Section("Application Information")
	p.Pair("Name", appName)
	p.Pair("Version", appVersion)
	p.Pair("Processing", "Multi-format document analysis")
	fmt.Fprintln(env.stdout)

	p.Section("Capabilities")
	t := ui.NewTable("Category", "Features")
	t.AddRow("Input", strings.ToUpper(strings.Join(format.Extensions(), ", ")))
	t.AddRow("Output", "JSON, Markdown, HTML")
	t.AddRow("Processing", "Text, metadata, images, tables, outline")
	t.AddRow("Serving", "HTTP API with queued jobs")
	t.Print(p)

	p.Section("Available Commands")
	p.ListItems([][2]string{
		{"process", "Full document analysis"},
		{"extract", "Text extraction"},
		{"batch", "Multi-file processing"},
		{"export", "Export results"},
		{"formats", "Supported formats"},
		{"info", "System information"},
		{"check", "System capabilities"},
		{"serve", "HTTP API"},
	})
	fmt.Fprintln(env.stdout)
	return 0
}

func runCheck(_ context.Context, env *cliEnv, _ []string) int {
	p := env.printer()
	p.Header(appName, appVersion)
	p.Section("System Status")
	p.Success("Document parsing available")
	p.Success("Image decoders: " + strings.Join(parser.RegisteredImageFormats(), ", "))
	pdftotext := "not installed"
	if parser.PdftotextAvailable() {
		pdftotext = "available"
		p.Success("pdftotext fallback available")
	} else {
		p.Warning("pdftotext not found; scanned PDFs may yield no text")
	}
	fmt.Fprintln(env.stdout)

	p.Section("System Configuration")
	t := ui.NewTable("Component", "Status")
	t.AddRow("Workers", strconv.Itoa(env.cfg.WorkerCount))
	t.AddRow("File timeout", env.cfg.FileTimeout.String())
	t.AddRow("Max file size", ui.FormatSize(env.cfg.MaxFileBytes))
	t.AddRow("Magic sniffing", onOff(env.cfg.SniffMagic))
	t.AddRow("pdftotext", pdftotext)
	t.AddRow("Image data", onOff(env.cfg.IncludeImageData))
	t.AddRow("Log level", env.cfg.LogLevel)
	t.Print(p)
	return 0
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func blockSummary(res *model.DocumentResult) string {
	counts := make(map[string]int)
	for _, b := range res.Processed.TextBlocks {
		counts[b.BlockType]++
	}
	var parts []string
	for _, kind := range []string{model.BlockHeading, model.BlockParagraph, model.BlockBullet, model.BlockCaption, model.BlockContent} {
		if n := counts[kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", kind, n))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
