package playback_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kaldialign/internal/config"
	"kaldialign/internal/kaldi"
	"kaldialign/internal/playback"
	"kaldialign/internal/services"
	"kaldialign/internal/testsupport"
)

type stubExecutor struct {
	calls []kaldi.Command
	err   error
}

func (s *stubExecutor) Run(_ context.Context, cmd kaldi.Command, _ func(kaldi.Line)) error {
	s.calls = append(s.calls, cmd)
	return s.err
}

func (s *stubExecutor) Pipe(context.Context, []kaldi.Command, func(kaldi.Line)) error {
	return errors.New("unexpected pipe")
}

func setup(t *testing.T) (wavDir, dataDir string) {
	t.Helper()
	base := t.TempDir()
	wavDir = filepath.Join(base, "wav")
	dataDir = filepath.Join(base, "data")
	testsupport.WriteWAV(t, filepath.Join(wavDir, "b.wav"), 0.1)
	testsupport.WriteWAV(t, filepath.Join(wavDir, "a.wav"), 0.1)
	for _, name := range []string{"a.TextGrid", "b.TextGrid"} {
		path := filepath.Join(dataDir, "tg", name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("grid"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return wavDir, dataDir
}

func TestParseAnswer(t *testing.T) {
	for answer, want := range map[string]bool{
		"y\n":   true,
		"YES":   true,
		" yes ": true,
		"n":     false,
		"":      false,
		"yep":   false,
	} {
		if got := playback.ParseAnswer(answer); got != want {
			t.Fatalf("ParseAnswer(%q) = %v, want %v", answer, got, want)
		}
	}
}

func TestOfferPromptsAndLaunches(t *testing.T) {
	wavDir, dataDir := setup(t)
	cfg := testsupport.NewConfig(t)
	cfg.Playback.Mode = config.PlaybackAsk
	exec := &stubExecutor{}
	var out bytes.Buffer

	player := playback.New(cfg,
		playback.WithPrompt(strings.NewReader("y\n"), &out, true),
		playback.WithExecutor(exec),
	)
	ran, err := player.Offer(context.Background(), wavDir, dataDir)
	if err != nil || !ran {
		t.Fatalf("Offer = %v, %v", ran, err)
	}
	if out.String() != playback.Prompt {
		t.Fatalf("prompt = %q", out.String())
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected one launch, got %d", len(exec.calls))
	}
	want := []string{
		"--open",
		filepath.Join(wavDir, "a.wav"),
		filepath.Join(wavDir, "b.wav"),
		filepath.Join(dataDir, "tg", "a.TextGrid"),
		filepath.Join(dataDir, "tg", "b.TextGrid"),
	}
	if got := exec.calls[0]; got.Binary != "praat" || strings.Join(got.Args, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected command %s", got)
	}
}

func TestOfferDeclined(t *testing.T) {
	wavDir, dataDir := setup(t)
	cfg := testsupport.NewConfig(t)
	cfg.Playback.Mode = config.PlaybackAsk
	exec := &stubExecutor{}

	player := playback.New(cfg, playback.WithPrompt(strings.NewReader("no\n"), &bytes.Buffer{}, true), playback.WithExecutor(exec))
	if ran, err := player.Offer(context.Background(), wavDir, dataDir); err != nil || ran {
		t.Fatalf("Offer = %v, %v", ran, err)
	}
	if len(exec.calls) != 0 {
		t.Fatal("viewer should not launch")
	}
}

func TestConfirmModes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var out bytes.Buffer

	cfg.Playback.Mode = config.PlaybackAsk
	nonInteractive := playback.New(cfg, playback.WithPrompt(strings.NewReader("y\n"), &out, false))
	if ok, _ := nonInteractive.Confirm(); ok {
		t.Fatal("non-interactive ask mode should skip")
	}
	if out.Len() != 0 {
		t.Fatalf("no prompt expected, got %q", out.String())
	}

	cfg.Playback.Mode = config.PlaybackAlways
	if ok, _ := playback.New(cfg, playback.WithPrompt(strings.NewReader(""), &out, false)).Confirm(); !ok {
		t.Fatal("always mode should launch")
	}

	cfg.Playback.Mode = config.PlaybackNever
	if ok, _ := playback.New(cfg, playback.WithPrompt(strings.NewReader("y\n"), &out, true)).Confirm(); ok {
		t.Fatal("never mode should skip")
	}
}

func TestLaunchFailure(t *testing.T) {
	wavDir, dataDir := setup(t)
	cfg := testsupport.NewConfig(t)
	exec := &stubExecutor{err: &kaldi.ToolError{Program: "praat", ExitCode: 2}}

	err := playback.New(cfg, playback.WithExecutor(exec)).Launch(context.Background(), wavDir, dataDir)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestCommandRequiresFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := playback.New(cfg).Command(t.TempDir(), t.TempDir()); err == nil {
		t.Fatal("expected error for empty directories")
	}
}

func TestCommandSkipsHiddenFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	wavDir := t.TempDir()
	dataDir := t.TempDir()
	tgDir := filepath.Join(dataDir, "tg")
	for _, path := range []string{
		filepath.Join(wavDir, "utt1.wav"),
		filepath.Join(wavDir, ".DS_Store"),
		filepath.Join(tgDir, "utt1.TextGrid"),
		filepath.Join(tgDir, ".utt1.TextGrid.123.tmp"),
	} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cmd, err := playback.New(cfg).Command(wavDir, dataDir)
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	want := []string{"--open", filepath.Join(wavDir, "utt1.wav"), filepath.Join(tgDir, "utt1.TextGrid")}
	if strings.Join(cmd.Args, "\n") != strings.Join(want, "\n") {
		t.Fatalf("args = %q, want %q", cmd.Args, want)
	}

	onlyHidden := t.TempDir()
	if err := os.WriteFile(filepath.Join(onlyHidden, ".hidden.wav"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := playback.New(cfg).Command(onlyHidden, t.TempDir()); err == nil {
		t.Fatal("expected error when only hidden files exist")
	}
}
