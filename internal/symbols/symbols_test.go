package symbols

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const phonesTxt = `<eps> 0
SIL 1
AH_B 52
AH_E 53
HH_B 120
sil_x 7
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseAndLookup(t *testing.T) {
	table, err := Parse(strings.NewReader(phonesTxt))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if table.Len() != 6 {
		t.Fatalf("expected 6 symbols, got %d", table.Len())
	}
	if sym, ok := table.Lookup(52); !ok || sym != "AH_B" {
		t.Fatalf("Lookup(52) = %q, %v", sym, ok)
	}
	if _, ok := table.Lookup(99); ok {
		t.Fatal("expected missing id")
	}
}

func TestParseRejectsBadTables(t *testing.T) {
	for _, input := range []string{"SIL\n", "SIL one\n", "A 1\nB 1\n"} {
		if _, err := Parse(strings.NewReader(input)); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestStripPosition(t *testing.T) {
	cases := map[string]string{
		"AH_B":  "AH",
		"AH_E":  "AH",
		"IY_I":  "IY",
		"T_S":   "T",
		"SIL":   "SIL",
		"sil_x": "sil_x",
		"_B":    "_B",
	}
	for in, want := range cases {
		if got := StripPosition(in); got != want {
			t.Errorf("StripPosition(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConvertPhones(t *testing.T) {
	dir := t.TempDir()
	phones := writeFile(t, dir, "phones.txt", phonesTxt)
	ctmPath := writeFile(t, dir, "phonelvl.ctm", "utt1 1 0.00 0.30 1\nutt1 1 0.30 0.09 120\nutt1 1 0.39 0.12 53\n")

	n, err := ConvertPhones(ctmPath, phones, true)
	if err != nil {
		t.Fatalf("ConvertPhones returned error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 converted entries, got %d", n)
	}
	got, err := os.ReadFile(ctmPath)
	if err != nil {
		t.Fatal(err)
	}
	want := "utt1 1 0.00 0.30 SIL\nutt1 1 0.30 0.09 HH\nutt1 1 0.39 0.12 AH\n"
	if string(got) != want {
		t.Fatalf("converted ctm = %q, want %q", got, want)
	}
}

func TestConvertPhonesKeepsPositionsWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	phones := writeFile(t, dir, "phones.txt", phonesTxt)
	ctmPath := writeFile(t, dir, "phonelvl.ctm", "utt1 1 0.30 0.09 120\n")
	if _, err := ConvertPhones(ctmPath, phones, false); err != nil {
		t.Fatalf("ConvertPhones returned error: %v", err)
	}
	got, _ := os.ReadFile(ctmPath)
	if string(got) != "utt1 1 0.30 0.09 HH_B\n" {
		t.Fatalf("unexpected ctm %q", got)
	}
}

func TestConvertWordsUnknownIDLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	words := writeFile(t, dir, "words.txt", "<eps> 0\nhello 4021\nworld 9876\n")
	original := "utt1 1 0.12 0.33 4021\nutt1 1 0.45 0.40 5555\n"
	ctmPath := writeFile(t, dir, "wordlvl.ctm", original)

	_, err := ConvertWords(ctmPath, words)
	if !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("expected ErrUnknownSymbol, got %v", err)
	}
	got, _ := os.ReadFile(ctmPath)
	if string(got) != original {
		t.Fatalf("file modified on failure: %q", got)
	}

	ctmPath = writeFile(t, dir, "converted.ctm", "utt1 1 0.12 0.33 hello\n")
	if _, err := ConvertWords(ctmPath, words); !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("expected already-converted ctm to be rejected, got %v", err)
	}
}

func TestConvertWords(t *testing.T) {
	dir := t.TempDir()
	words := writeFile(t, dir, "words.txt", "<eps> 0\nhello 4021\nworld 9876\n")
	ctmPath := writeFile(t, dir, "wordlvl.ctm", "utt1 1 0.12 0.33 4021\nutt1 1 0.45 0.40 9876\n")
	if _, err := ConvertWords(ctmPath, words); err != nil {
		t.Fatalf("ConvertWords returned error: %v", err)
	}
	got, _ := os.ReadFile(ctmPath)
	if string(got) != "utt1 1 0.12 0.33 hello\nutt1 1 0.45 0.40 world\n" {
		t.Fatalf("unexpected ctm %q", got)
	}
}
