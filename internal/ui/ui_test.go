package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{1 << 20, "1.0 MiB"},
		{-1, "0 B"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.in); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{850 * time.Millisecond, "850 ms"},
		{2400 * time.Millisecond, "2.40 s"},
		{185 * time.Second, "3 m 5 s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTable_AlignsWideRunes(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlain(&buf)
	tbl := NewTable("Name", "Value")
	tbl.AddRow("日本語ファイル名のドキュメント", "1")
	tbl.AddRow("a", "2", "ignored")
	tbl.Print(p)

	lines := strings.Split(strings.Trim(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, rule and 2 rows, got %q", lines)
	}
	// Name column is 30 cells wide plus 2 padding.
	if !strings.HasPrefix(lines[3], "  a"+strings.Repeat(" ", 31)+"2") {
		t.Errorf("unexpected row alignment: %q", lines[3])
	}
	if strings.Contains(buf.String(), "ignored") {
		t.Error("expected extra cells to be dropped")
	}
	if strings.Contains(buf.String(), "\033[") {
		t.Error("expected no escape codes from a plain printer")
	}
}

func TestPrinter_NonTerminalIsPlain(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)
	p.Success("done")
	p.Pair("Type", "pdf")
	out := buf.String()
	if strings.Contains(out, "\033[") {
		t.Errorf("expected no colour for a buffer, got %q", out)
	}
	if !strings.Contains(out, "[+] done") || !strings.Contains(out, "Type:") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(NewPlain(&buf), 4)
	bar.Update(2)
	if !strings.HasSuffix(buf.String(), "] 50%") {
		t.Errorf("unexpected bar %q", buf.String())
	}
	bar.Update(9)
	if !strings.HasSuffix(buf.String(), "["+strings.Repeat("=", 40)+"] 100%") {
		t.Errorf("expected clamped full bar, got %q", buf.String())
	}
	bar.Finish()
}
