package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/tracedeck/internal/config"
	"github.com/dgallion1/tracedeck/internal/model"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv(config.FileEnv, "")
	t.Setenv("LOG_FORMAT", "")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_ProcessJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	writePNG(t, path, 12, 34)

	code, out, errOut := runCLI(t, "process", path, "-format", "json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	var res model.DocumentResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("expected only json on stdout: %v\n%s", err, out)
	}
	if img := res.Extracted.Images[0]; img.Width != 12 || img.Height != 34 {
		t.Errorf("unexpected image %+v", img)
	}
}

func TestRun_BareFileIsProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	writePNG(t, path, 4, 4)

	code, out, _ := runCLI(t, path)
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	for _, want := range []string{"Input Details", "Processing completed", `"file_type": "png"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output\n%s", want, out)
		}
	}
}

func TestRun_ProcessFailure(t *testing.T) {
	code, out, _ := runCLI(t, "process", filepath.Join(t.TempDir(), "missing.pdf"))
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(out, "[-]") {
		t.Errorf("expected an error line, got %q", out)
	}
}

func TestRun_Export(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.png")
	writePNG(t, src, 4, 4)

	out := filepath.Join(dir, "scan.md")
	if code, _, errOut := runCLI(t, "export", src, "-o", out); code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "# scan.png") {
		t.Errorf("unexpected markdown %q", data)
	}

	bad := filepath.Join(dir, "scan.xml")
	if code, _, _ := runCLI(t, "export", src, "-o", bad); code != 1 {
		t.Errorf("expected exit 1 for unsupported export, got %d", code)
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Error("expected no file for an unsupported export")
	}
}

func TestRun_Batch(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 2, 2)
	writePNG(t, filepath.Join(dir, "b.png"), 2, 2)
	if err := os.WriteFile(filepath.Join(dir, "c.gif"), []byte("GIF89a"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	code, out, _ := runCLI(t, "batch", dir, "-workers", "2")
	if code != 0 {
		t.Fatalf("expected failures to leave exit 0, got %d", code)
	}
	for _, want := range []string{"Total Files", "66.7%", "1 files failed", "c.gif"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output\n%s", want, out)
		}
	}
}

func TestRun_Listings(t *testing.T) {
	for _, cmd := range []string{"formats", "info", "check"} {
		code, out, _ := runCLI(t, cmd)
		if code != 0 || !strings.Contains(out, appName) {
			t.Errorf("%s: exit %d, output %q", cmd, code, out)
		}
	}
	if _, out, _ := runCLI(t, "formats"); !strings.Contains(out, ".jpg, .jpeg") {
		t.Errorf("expected jpeg extensions in formats listing\n%s", out)
	}
}

func TestRun_Usage(t *testing.T) {
	if code, _, errOut := runCLI(t); code != 2 || !strings.Contains(errOut, "Usage:") {
		t.Errorf("expected usage with exit 2, got %d %q", code, errOut)
	}
	if code, _, _ := runCLI(t, "-bogus"); code != 2 {
		t.Errorf("expected exit 2 for unknown flag, got %d", code)
	}
	if code, _, _ := runCLI(t, "process"); code != 2 {
		t.Errorf("expected exit 2 without a file, got %d", code)
	}
}

func TestParseInterspersed(t *testing.T) {
	fs := flag.NewFlagSet("x", flag.ContinueOnError)
	out := fs.String("o", "", "")
	verbose := fs.Bool("v", false, "")
	pos, err := parseInterspersed(fs, []string{"in.pdf", "-o", "out.md", "extra", "-v"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pos) != 2 || pos[0] != "in.pdf" || pos[1] != "extra" {
		t.Errorf("unexpected positionals %v", pos)
	}
	if *out != "out.md" || !*verbose {
		t.Errorf("flags not parsed: o=%q v=%v", *out, *verbose)
	}
}
