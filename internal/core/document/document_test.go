package document

import (
	"fmt"
	"strings"
	"testing"

	perr "triage/internal/platform/errors"
)

// fakeExtractor supports .txt and returns data as-is, failing on demand
type fakeExtractor struct {
	failOn string
}

func (f fakeExtractor) Supports(ext string) bool { return ext == ".txt" }

func (f fakeExtractor) Extract(name string, data []byte) (string, error) {
	if f.failOn != "" && name == f.failOn {
		return "", fmt.Errorf("boom")
	}
	return string(data), nil
}

func testPolicy() Policy {
	p := DefaultPolicy()
	p.Extractor = fakeExtractor{}
	return p
}

func TestNormalize_OrderingInlineFirst(t *testing.T) {
	docs, err := Normalize(
		[]string{"alpha", "beta"},
		[]File{{Name: "a.txt", Data: []byte("gamma")}},
		testPolicy(),
	)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("want 3 docs, got %d", len(docs))
	}
	for i, d := range docs {
		if d.Index != i {
			t.Fatalf("doc %d has index %d", i, d.Index)
		}
	}
	if docs[0].Source != SourceInline || docs[1].Source != SourceInline {
		t.Fatalf("inline docs must come first: %v %v", docs[0].Source, docs[1].Source)
	}
	if docs[2].Source != SourceFile || docs[2].Name != "a.txt" {
		t.Fatalf("file doc misplaced: %+v", docs[2])
	}
	if docs[2].Content != "gamma" {
		t.Fatalf("file content: %q", docs[2].Content)
	}
}

func TestNormalize_PolicyBreachesAbort(t *testing.T) {
	pol := testPolicy()

	tests := []struct {
		name  string
		texts []string
		files []File
	}{
		{
			name:  "too many inline",
			texts: make([]string, pol.MaxTexts+1),
		},
		{
			name: "too many files",
			files: func() []File {
				fs := make([]File, pol.MaxFiles+1)
				for i := range fs {
					fs[i] = File{Name: "f.txt", Data: []byte("x")}
				}
				return fs
			}(),
		},
		{
			name:  "inline over per-item limit",
			texts: []string{strings.Repeat("x", pol.MaxTextBytes+1)},
		},
		{
			name:  "file over per-item limit",
			files: []File{{Name: "big.txt", Data: make([]byte, pol.MaxFileBytes+1)}},
		},
		{
			name:  "unsupported extension",
			files: []File{{Name: "evil.exe", Data: []byte("x")}},
		},
		{
			name: "empty batch",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			docs, err := Normalize(tc.texts, tc.files, pol)
			if err == nil {
				t.Fatalf("expected error, got %d docs", len(docs))
			}
			if !perr.IsCode(err, perr.ErrorCodeValidation) {
				t.Fatalf("expected validation code, got %v", err)
			}
			if docs != nil {
				t.Fatalf("breach must return nil docs")
			}
		})
	}
}

func TestNormalize_TotalBudget(t *testing.T) {
	pol := testPolicy()
	pol.MaxTextBytes = 1 << 20
	pol.MaxTotalBytes = 10

	_, err := Normalize([]string{strings.Repeat("x", 6), strings.Repeat("y", 6)}, nil, pol)
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestNormalize_SoftFailuresKeepIndex(t *testing.T) {
	pol := testPolicy()
	pol.Extractor = fakeExtractor{failOn: "bad.txt"}

	docs, err := Normalize(
		[]string{"ok", "   "},
		[]File{{Name: "bad.txt", Data: []byte("x")}, {Name: "good.txt", Data: []byte("fine")}},
		pol,
	)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(docs) != 4 {
		t.Fatalf("want 4 docs, got %d", len(docs))
	}
	if docs[0].Err != nil {
		t.Fatalf("doc 0 should be fine: %v", docs[0].Err)
	}
	if docs[1].Err == nil {
		t.Fatalf("whitespace-only doc must be marked")
	}
	if docs[2].Err == nil {
		t.Fatalf("failed extraction must be marked")
	}
	if docs[3].Err != nil || docs[3].Content != "fine" {
		t.Fatalf("doc 3: %+v", docs[3])
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{"identity", "hello", "hello"},
		{"utf8 repair", string([]byte{0xff, 'h', 'i', 0x80}), "hi"},
		{"crlf fold", "a\r\nb\rc", "a\nb\nc"},
		{"nfc compose", "café", "café"},
		{"trim", "  x  ", "x"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clean(tc.in); got != tc.out {
				t.Fatalf("Clean(%q) = %q, want %q", tc.in, got, tc.out)
			}
		})
	}
}
