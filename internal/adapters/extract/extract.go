// Package extract turns uploaded file bytes into plain text.
// Extractors are registered per extension so new formats (pdf) can be added
// without touching the validator
package extract

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Func extracts text from raw file bytes
type Func func(name string, data []byte) (string, error)

// Registry maps lowercased dotted extensions to extractors
type Registry struct {
	mu  sync.RWMutex
	fns map[string]Func
}

// NewRegistry returns a registry with the builtin plain text extractor
func NewRegistry() *Registry {
	r := &Registry{fns: make(map[string]Func)}
	r.Register(".txt", PlainText)
	return r
}

// Register installs fn for ext, replacing any previous extractor
func (r *Registry) Register(ext string, fn Func) {
	r.mu.Lock()
	r.fns[strings.ToLower(ext)] = fn
	r.mu.Unlock()
}

// Supports reports whether ext has a registered extractor
func (r *Registry) Supports(ext string) bool {
	r.mu.RLock()
	_, ok := r.fns[strings.ToLower(ext)]
	r.mu.RUnlock()
	return ok
}

// Extract runs the registered extractor for the file's extension
func (r *Registry) Extract(name string, data []byte) (string, error) {
	ext := extOf(name)
	r.mu.RLock()
	fn, ok := r.fns[ext]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no extractor for %q", ext)
	}
	return fn(name, data)
}

// PlainText decodes bytes as UTF-8, falling back to latin-1 then cp1252
// for files saved by legacy editors
func PlainText(name string, data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	if s, err := charmap.ISO8859_1.NewDecoder().Bytes(data); err == nil {
		return string(s), nil
	}
	if s, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil {
		return string(s), nil
	}
	return "", fmt.Errorf("file %q is not decodable text", name)
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return strings.ToLower(name[i:])
	}
	return ""
}
