package manifest_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"kaldialign/internal/kaldi"
	"kaldialign/internal/manifest"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("RIFF"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestUtteranceID(t *testing.T) {
	cases := map[string]string{
		"spk1.wav":          "spk1",
		"/a/b/Hello.WAV":    "Hello",
		"two\twords.wav":    "two_words",
		"cafe\u0301.wav":    "caf\u00e9",
		"archive.tar.wav":   "archive.tar",
		"line\u2028sep.wav": "line_sep",
	}
	for in, want := range cases {
		if got := manifest.UtteranceID(in); got != want {
			t.Errorf("UtteranceID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestScanWriteRoundTrip(t *testing.T) {
	wavDir := t.TempDir()
	touch(t, wavDir, "b.wav", "A.WAV", "a.wav", "notes.txt")
	if err := os.Mkdir(filepath.Join(wavDir, "nested.wav"), 0o755); err != nil {
		t.Fatal(err)
	}

	m, err := manifest.Scan(wavDir)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if got := m.IDs(); !reflect.DeepEqual(got, []string{"A", "a", "b"}) {
		t.Fatalf("unexpected ids %q", got)
	}

	data := kaldi.DataDir(filepath.Join(t.TempDir(), "alignme"))
	if err := m.Write(data); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	want := map[string]string{
		kaldi.WavSCP: "A " + filepath.Join(wavDir, "A.WAV") + "\n" +
			"a " + filepath.Join(wavDir, "a.wav") + "\n" +
			"b " + filepath.Join(wavDir, "b.wav") + "\n",
		kaldi.Utt2Spk: "A A\na a\nb b\n",
		kaldi.Spk2Utt: "A A\na a\nb b\n",
	}
	for name, content := range want {
		got, err := os.ReadFile(data.Path(name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != content {
			t.Fatalf("%s = %q, want %q", name, got, content)
		}
	}

	loaded, err := manifest.Load(data)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !reflect.DeepEqual(loaded.Utterances, m.Utterances) {
		t.Fatalf("loaded manifest differs:\n%#v\n%#v", loaded.Utterances, m.Utterances)
	}
	utt, ok := loaded.Lookup("b")
	if !ok || utt.Path != filepath.Join(wavDir, "b.wav") {
		t.Fatalf("unexpected lookup %#v %v", utt, ok)
	}
}

func TestScanErrors(t *testing.T) {
	empty := t.TempDir()
	touch(t, empty, "readme.md")
	if _, err := manifest.Scan(empty); !errors.Is(err, manifest.ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}

	spaced := t.TempDir()
	touch(t, spaced, "x y.wav")
	if _, err := manifest.Scan(spaced); !errors.Is(err, manifest.ErrUnsupportedPath) {
		t.Fatalf("expected whitespace path rejection, got %v", err)
	}

	dup := t.TempDir()
	touch(t, dup, "u1.wav", "u1.WAV")
	if _, err := manifest.Scan(dup); !errors.Is(err, manifest.ErrDuplicateUtterance) {
		t.Fatalf("expected duplicate id rejection, got %v", err)
	}

	if _, err := manifest.Scan(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := manifest.New([]manifest.Utterance{
		{ID: "u1", Speaker: "u1", Path: "/w/u1.wav"},
		{ID: "u1", Speaker: "u1", Path: "/w/u1.WAV"},
	})
	if !errors.Is(err, manifest.ErrDuplicateUtterance) {
		t.Fatalf("expected ErrDuplicateUtterance, got %v", err)
	}
}

func TestLoadWithoutUtt2Spk(t *testing.T) {
	data := kaldi.DataDir(t.TempDir())
	if err := os.WriteFile(data.Path(kaldi.WavSCP), []byte("u2 /w/u2.wav\nu1 /w/u1.wav\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := manifest.Load(data)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := m.IDs(); !reflect.DeepEqual(got, []string{"u1", "u2"}) {
		t.Fatalf("unexpected ids %q", got)
	}
	if m.Utterances[0].Speaker != "u1" {
		t.Fatalf("expected speaker to default to utterance id, got %q", m.Utterances[0].Speaker)
	}

	if err := os.WriteFile(data.Path(kaldi.WavSCP), []byte("broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := manifest.Load(data); err == nil {
		t.Fatal("expected error for malformed wav.scp")
	}
}
