// Package format maps document paths to the formats the pipeline can decode.
package format

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/dgallion1/tracedeck/internal/docerr"
)

// Format is a supported document kind, named by its canonical extension.
type Format string

const (
	PDF  Format = "pdf"
	DOCX Format = "docx"
	PNG  Format = "png"
	JPG  Format = "jpg"
	JPEG Format = "jpeg"
	WEBP Format = "webp"
	GIF  Format = "gif"
)

// Family groups formats that share a decoder.
type Family string

const (
	FamilyPDF   Family = "pdf"
	FamilyDOCX  Family = "docx"
	FamilyImage Family = "image"
)

// Info describes one supported format for listings.
type Info struct {
	Name        string   `json:"name"`
	Extensions  []string `json:"extensions"`
	Description string   `json:"description"`
}

// Catalogue lists supported formats in display order.
var Catalogue = []Info{
	{Name: "PDF", Extensions: []string{".pdf"}, Description: "Portable Document Format"},
	{Name: "Word", Extensions: []string{".docx"}, Description: "Microsoft Word Document"},
	{Name: "PNG", Extensions: []string{".png"}, Description: "Portable Network Graphics"},
	{Name: "JPEG", Extensions: []string{".jpg", ".jpeg"}, Description: "Joint Photographic Experts Group"},
	{Name: "GIF", Extensions: []string{".gif"}, Description: "Graphics Interchange Format"},
	{Name: "WebP", Extensions: []string{".webp"}, Description: "Modern Web Image Format"},
}

var byExt = map[string]Format{
	"pdf":  PDF,
	"docx": DOCX,
	"png":  PNG,
	"jpg":  JPG,
	"jpeg": JPEG,
	"webp": WEBP,
	"gif":  GIF,
}

// Classify returns the format for path based on its extension, compared
// case-insensitively.
func Classify(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" || ext == "." {
		return "", docerr.MissingExtension(path)
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	f, ok := byExt[ext]
	if !ok {
		return "", docerr.Unsupported(ext)
	}
	return f, nil
}

// IsSupported reports whether path has a supported extension.
func IsSupported(path string) bool {
	_, err := Classify(path)
	return err == nil
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	_, ok := byExt[string(f)]
	return ok
}

// Family returns the decoder family for f.
func (f Format) Family() Family {
	switch f {
	case PDF:
		return FamilyPDF
	case DOCX:
		return FamilyDOCX
	default:
		return FamilyImage
	}
}

// Extensions returns every supported extension without the leading dot.
func Extensions() []string {
	exts := make([]string, 0, len(byExt))
	for _, info := range Catalogue {
		for _, e := range info.Extensions {
			exts = append(exts, strings.TrimPrefix(e, "."))
		}
	}
	return exts
}

var (
	sigPDF  = []byte("%PDF-")
	sigZIP  = []byte("PK\x03\x04")
	sigPNG  = []byte("\x89PNG\r\n\x1a\n")
	sigJPEG = []byte{0xFF, 0xD8, 0xFF}
	sigGIF7 = []byte("GIF87a")
	sigGIF9 = []byte("GIF89a")
)

// SniffLen is the number of leading bytes Sniff looks at.
const SniffLen = 1024

// Sniff identifies a format from the leading bytes of a file. JPEG content
// is reported as JPEG regardless of the jpg/jpeg spelling.
func Sniff(header []byte) (Format, bool) {
	if len(header) > SniffLen {
		header = header[:SniffLen]
	}
	switch {
	case bytes.HasPrefix(header, sigPNG):
		return PNG, true
	case bytes.HasPrefix(header, sigJPEG):
		return JPEG, true
	case bytes.HasPrefix(header, sigGIF7), bytes.HasPrefix(header, sigGIF9):
		return GIF, true
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WEBP")):
		return WEBP, true
	case bytes.HasPrefix(header, sigZIP):
		return DOCX, true
	case bytes.Contains(header, sigPDF):
		return PDF, true
	}
	return "", false
}

// Verify checks the declared format against the file's leading bytes. An
// unrecognised signature passes so the decoder can report its own error.
func Verify(declared Format, header []byte) error {
	sniffed, ok := Sniff(header)
	if !ok || compatible(declared, sniffed) {
		return nil
	}
	return docerr.Mismatch(string(declared), string(sniffed))
}

func compatible(a, b Format) bool {
	if a == JPG {
		a = JPEG
	}
	if b == JPG {
		b = JPEG
	}
	return a == b
}
