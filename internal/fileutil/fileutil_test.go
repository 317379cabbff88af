package fileutil

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteLinesAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wav.scp")
	if err := WriteLinesAtomic(path, []string{"a /w/a.wav", "b /w/b.wav"}); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "a /w/a.wav\nb /w/b.wav\n" {
		t.Fatalf("unexpected content %q", got)
	}
	if !FileExists(path) {
		t.Fatal("expected FileExists to report the written file")
	}
}

func TestWriteFileAtomicKeepsOriginalOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "phonelvl.ctm")
	if err := os.WriteFile(path, []byte("original\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := WriteFileAtomic(path, 0o644, func(w *bufio.Writer) error {
		_, _ = w.WriteString("partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fill error, got %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "original\n" {
		t.Fatalf("original file modified: %q", got)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp file cleanup, found %d entries", len(entries))
	}
}

func TestFileExistsRejectsDirectories(t *testing.T) {
	dir := t.TempDir()
	if FileExists(dir) {
		t.Fatal("directory should not count as a file")
	}
	if FileExists(filepath.Join(dir, "missing")) {
		t.Fatal("missing path should not exist")
	}
}
