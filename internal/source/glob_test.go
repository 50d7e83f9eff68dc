package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpand(t *testing.T) {
	dir := t.TempDir()

	fileA := filepath.Join(dir, "a.log")
	fileB := filepath.Join(dir, "b.log")
	fileC := filepath.Join(dir, "c.txt")

	for _, path := range []string{fileA, fileB, fileC} {
		if err := os.WriteFile(path, []byte("test"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	files, err := Expand([]string{filepath.Join(dir, "*.log")})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}

	// A path covered by a glob is not listed twice.
	files, err = Expand([]string{fileA, filepath.Join(dir, "*.log")})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
}

func TestExpandNoMatch(t *testing.T) {
	dir := t.TempDir()

	if _, err := Expand([]string{filepath.Join(dir, "*.missing")}); err == nil {
		t.Fatal("expected error for unmatched glob")
	}
}

func TestExpandMissingFile(t *testing.T) {
	dir := t.TempDir()

	if _, err := Expand([]string{filepath.Join(dir, "absent.log")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExpandEmpty(t *testing.T) {
	if _, err := Expand(nil); err == nil {
		t.Fatal("expected error for empty pattern list")
	}
}
