package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"underscores", "123_Ada_Lovelace.md", "123 Ada Lovelace"},
		{"dashes", "section-one.md", "Section One"},
		{"nested path", filepath.Join("reports", "ada_lovelace.md"), "Ada Lovelace"},
		{"no extension", "report", "Report"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title(tt.in); got != tt.want {
				t.Errorf("Title(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPage(t *testing.T) {
	src := []byte("# 123 – Ada Lovelace\n\n" +
		`  <span style="color:red">C. Steam</span>` + "\n")
	page, err := Page(src, "123 Ada Lovelace")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	html := string(page)

	if !strings.Contains(html, "<title>123 Ada Lovelace</title>") {
		t.Error("page missing title")
	}
	if !strings.Contains(html, "123 – Ada Lovelace</h1>") {
		t.Error("page missing converted heading")
	}
	// Raw highlight spans from the composer must survive conversion.
	if !strings.Contains(html, `<span style="color:red">C. Steam</span>`) {
		t.Error("page missing raw highlight span")
	}
	if !strings.Contains(html, "#2C68AA") {
		t.Error("page missing theme styling")
	}
}

func TestDir(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()

	if err := os.WriteFile(filepath.Join(in, "123_Ada_Lovelace.md"), []byte("# Report\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(in, "notes.txt"), []byte("skip me"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	count, err := Dir(in, out)
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	data, err := os.ReadFile(filepath.Join(out, "123_Ada_Lovelace.html"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "Report</h1>") {
		t.Error("output missing converted content")
	}
	if _, err := os.Stat(filepath.Join(out, "notes.html")); !os.IsNotExist(err) {
		t.Error("non-markdown file should not be converted")
	}
}

func TestDirMissingInput(t *testing.T) {
	if _, err := Dir(filepath.Join(t.TempDir(), "nope"), t.TempDir()); err == nil {
		t.Fatal("expected error for missing input dir")
	}
}
