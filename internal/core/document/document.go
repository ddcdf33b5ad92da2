// Package document validates and normalizes a submitted batch into a single
// indexed slice of documents ready for classification
package document

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	perr "triage/internal/platform/errors"
)

// SourceKind says where a document came from
type SourceKind string

// Source kinds
const (
	SourceInline SourceKind = "inline"
	SourceFile   SourceKind = "file"
)

// Document is one unit of work. Immutable once Normalize returns.
// Err marks a per-item extraction failure that still occupies its index
type Document struct {
	Index     int
	Content   string
	Source    SourceKind
	Name      string // file source only
	SizeBytes int
	Err       error
}

// File is a raw uploaded file before extraction
type File struct {
	Name string
	Data []byte
}

// Extractor turns raw file bytes into text. Supports reports whether the
// lowercased extension (with dot) has a registered extractor
type Extractor interface {
	Supports(ext string) bool
	Extract(name string, data []byte) (string, error)
}

// Policy carries batch admission limits and the file extractor
type Policy struct {
	MaxTexts      int   // inline items per batch
	MaxFiles      int   // files per batch
	MaxTextBytes  int   // per inline item
	MaxFileBytes  int64 // per file
	MaxTotalBytes int64 // whole batch

	Extractor Extractor
}

// DefaultPolicy returns the stock admission limits
func DefaultPolicy() Policy {
	return Policy{
		MaxTexts:      20,
		MaxFiles:      20,
		MaxTextBytes:  100 << 10,
		MaxFileBytes:  5 << 20,
		MaxTotalBytes: 100 << 20,
	}
}

// Normalize validates the batch against pol and returns one indexed slice,
// inline texts first then files. Policy breaches abort the whole batch with
// a validation error before any extraction work. Per-item soft failures
// (empty content, extraction errors) mark the Document instead
func Normalize(texts []string, files []File, pol Policy) ([]Document, error) {
	if len(texts) > pol.MaxTexts {
		return nil, perr.Validationf("too many inline documents: %d exceeds limit of %d", len(texts), pol.MaxTexts)
	}
	if len(files) > pol.MaxFiles {
		return nil, perr.Validationf("too many files: %d exceeds limit of %d", len(files), pol.MaxFiles)
	}
	if len(texts)+len(files) == 0 {
		return nil, perr.Validationf("batch is empty")
	}

	var total int64
	for i, t := range texts {
		if len(t) > pol.MaxTextBytes {
			return nil, perr.Validationf("inline document %d is %d bytes, limit is %d", i, len(t), pol.MaxTextBytes)
		}
		total += int64(len(t))
	}
	for _, f := range files {
		if int64(len(f.Data)) > pol.MaxFileBytes {
			return nil, perr.Validationf("file %q is %d bytes, limit is %d", f.Name, len(f.Data), pol.MaxFileBytes)
		}
		if ext := extOf(f.Name); pol.Extractor == nil || !pol.Extractor.Supports(ext) {
			return nil, perr.Validationf("unsupported file type %q", ext)
		}
		total += int64(len(f.Data))
	}
	if total > pol.MaxTotalBytes {
		return nil, perr.Validationf("batch is %d bytes, limit is %d", total, pol.MaxTotalBytes)
	}

	docs := make([]Document, 0, len(texts)+len(files))
	for _, t := range texts {
		d := Document{
			Index:     len(docs),
			Source:    SourceInline,
			SizeBytes: len(t),
		}
		d.Content = Clean(t)
		if d.Content == "" {
			d.Err = fmt.Errorf("document is empty")
		}
		docs = append(docs, d)
	}
	for _, f := range files {
		d := Document{
			Index:     len(docs),
			Source:    SourceFile,
			Name:      f.Name,
			SizeBytes: len(f.Data),
		}
		text, err := pol.Extractor.Extract(f.Name, f.Data)
		switch {
		case err != nil:
			d.Err = err
		default:
			d.Content = Clean(text)
			if d.Content == "" {
				d.Err = fmt.Errorf("file %q has no extractable text", f.Name)
			}
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// Clean repairs invalid UTF-8, applies NFC, folds CRLF line endings to LF,
// and trims surrounding whitespace
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

// extOf returns the lowercased dotted extension of name
func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return strings.ToLower(name[i:])
	}
	return ""
}
