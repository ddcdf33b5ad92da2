package extract

import (
	"strings"
	"testing"
)

func TestRegistry_SupportsAndExtract(t *testing.T) {
	r := NewRegistry()

	if !r.Supports(".txt") {
		t.Fatalf("builtin .txt extractor missing")
	}
	if !r.Supports(".TXT") {
		t.Fatalf("extension match must be case-insensitive")
	}
	if r.Supports(".pdf") {
		t.Fatalf(".pdf should not be supported until registered")
	}

	r.Register(".pdf", func(name string, data []byte) (string, error) {
		return "pdf text", nil
	})
	if !r.Supports(".pdf") {
		t.Fatalf("registered .pdf not visible")
	}
	got, err := r.Extract("doc.PDF", nil)
	if err != nil || got != "pdf text" {
		t.Fatalf("Extract: %q, %v", got, err)
	}
}

func TestRegistry_UnknownExtension(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Extract("virus.exe", []byte("x")); err == nil {
		t.Fatalf("expected error for unknown extension")
	}
}

func TestPlainText_UTF8(t *testing.T) {
	got, err := PlainText("a.txt", []byte("olá, mundo"))
	if err != nil {
		t.Fatalf("PlainText: %v", err)
	}
	if got != "olá, mundo" {
		t.Fatalf("got %q", got)
	}
}

func TestPlainText_Latin1Fallback(t *testing.T) {
	// "ação" in latin-1: invalid as UTF-8
	raw := []byte{'a', 0xe7, 0xe3, 'o'}
	got, err := PlainText("legacy.txt", raw)
	if err != nil {
		t.Fatalf("PlainText: %v", err)
	}
	if !strings.Contains(got, "çã") {
		t.Fatalf("latin-1 fallback failed: %q", got)
	}
}
