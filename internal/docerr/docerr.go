// Package docerr defines the error kinds a document pipeline invocation can
// fail with.
package docerr

import (
	"errors"
	"fmt"
)

// Kind categorises a failure.
type Kind string

const (
	KindIO                Kind = "io"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindParse             Kind = "parse"
	KindFormatMismatch    Kind = "format_mismatch"
	KindPDF               Kind = "pdf"
	KindDOCX              Kind = "docx"
	KindImage             Kind = "image"
	KindJSON              Kind = "json"
)

var labels = map[Kind]string{
	KindIO:                "IO error",
	KindUnsupportedFormat: "Unsupported format",
	KindParse:             "Parse error",
	KindFormatMismatch:    "Format mismatch",
	KindPDF:               "PDF error",
	KindDOCX:              "DOCX error",
	KindImage:             "Image error",
	KindJSON:              "JSON error",
}

// ErrMissingExtension is wrapped by the parse error returned for paths
// without an extension.
var ErrMissingExtension = errors.New("no file extension")

// Error is a pipeline failure of a known kind.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	label := labels[e.Kind]
	if label == "" {
		label = string(e.Kind)
	}
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", label, e.Message, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", label, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", label, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around cause. It returns nil when
// cause is nil.
func Wrap(kind Kind, message string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// IO reports a filesystem failure on path.
func IO(path string, cause error) error {
	return Wrap(KindIO, path, cause)
}

// Unsupported reports an extension outside the supported set.
func Unsupported(ext string) *Error {
	return New(KindUnsupportedFormat, ext)
}

// MissingExtension reports a path that carries no extension.
func MissingExtension(path string) *Error {
	return &Error{Kind: KindParse, Message: path, Cause: ErrMissingExtension}
}

// Mismatch reports a file whose signature disagrees with its extension.
func Mismatch(declared, sniffed string) *Error {
	return New(KindFormatMismatch, fmt.Sprintf("extension says %s, content looks like %s", declared, sniffed))
}

// PDF, DOCX and Image report decoder-specific structural failures.
func PDF(message string, cause error) *Error {
	return &Error{Kind: KindPDF, Message: message, Cause: cause}
}

func DOCX(message string, cause error) *Error {
	return &Error{Kind: KindDOCX, Message: message, Cause: cause}
}

func Image(message string, cause error) *Error {
	return &Error{Kind: KindImage, Message: message, Cause: cause}
}

// JSON reports a serialization failure at the boundary.
func JSON(cause error) error {
	return Wrap(KindJSON, "", cause)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
