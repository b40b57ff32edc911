package format

import (
	"errors"
	"testing"

	"github.com/dgallion1/tracedeck/internal/docerr"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"report.pdf", PDF},
		{"report.PDF", PDF},
		{"/tmp/dir.v2/letter.DocX", DOCX},
		{"scan.png", PNG},
		{"photo.jpg", JPG},
		{"photo.JPEG", JPEG},
		{"anim.gif", GIF},
		{"hero.webp", WEBP},
	}
	for _, tt := range tests {
		got, err := Classify(tt.path)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.path, tt.want, got)
		}
	}
}

func TestClassify_UnsupportedExtension(t *testing.T) {
	_, err := Classify("report.xyz")
	if !docerr.Is(err, docerr.KindUnsupportedFormat) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
	if err.Error() != "Unsupported format: xyz" {
		t.Errorf("expected message to name the extension, got %q", err.Error())
	}
}

func TestClassify_MissingExtension(t *testing.T) {
	for _, path := range []string{"report", "/var/data/report", "report."} {
		_, err := Classify(path)
		if !docerr.Is(err, docerr.KindParse) {
			t.Errorf("%s: expected parse error, got %v", path, err)
		}
		if !errors.Is(err, docerr.ErrMissingExtension) {
			t.Errorf("%s: expected ErrMissingExtension, got %v", path, err)
		}
	}
}

func TestFamily(t *testing.T) {
	if PDF.Family() != FamilyPDF || DOCX.Family() != FamilyDOCX {
		t.Error("unexpected family for document formats")
	}
	for _, f := range []Format{PNG, JPG, JPEG, WEBP, GIF} {
		if f.Family() != FamilyImage {
			t.Errorf("%s: expected image family, got %q", f, f.Family())
		}
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   Format
		ok     bool
	}{
		{"pdf", []byte("%PDF-1.7\n%..."), PDF, true},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00"), PNG, true},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, JPEG, true},
		{"gif", []byte("GIF89a\x01\x00"), GIF, true},
		{"webp", []byte("RIFF\x10\x00\x00\x00WEBPVP8 "), WEBP, true},
		{"zip", []byte("PK\x03\x04\x14\x00"), DOCX, true},
		{"text", []byte("hello world"), "", false},
		{"empty", nil, "", false},
	}
	for _, tt := range tests {
		got, ok := Sniff(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("%s: expected (%q, %v), got (%q, %v)", tt.name, tt.want, tt.ok, got, ok)
		}
	}
}

func TestVerify(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n")
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xDB}

	if err := Verify(PNG, png); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Verify(JPG, jpeg); err != nil {
		t.Errorf("expected jpg and jpeg signatures to be compatible, got %v", err)
	}
	if err := Verify(DOCX, []byte("garbage")); err != nil {
		t.Errorf("expected unknown signatures to pass, got %v", err)
	}
	err := Verify(PDF, png)
	if !docerr.Is(err, docerr.KindFormatMismatch) {
		t.Fatalf("expected format mismatch, got %v", err)
	}
}

func TestExtensions(t *testing.T) {
	exts := Extensions()
	if len(exts) != 7 {
		t.Fatalf("expected 7 extensions, got %d: %v", len(exts), exts)
	}
	for _, e := range exts {
		if !IsSupported("file." + e) {
			t.Errorf("expected %q to be supported", e)
		}
	}
}
