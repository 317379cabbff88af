package main

import (
	"os"
	"path/filepath"
	"testing"

	"kaldialign/internal/kaldi"
	"kaldialign/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestDepsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "deps")
	if err != nil {
		t.Fatalf("deps: %v\n%s", err, out)
	}
	requireContains(t, out, "nnet3-latgen-faster")
	requireContains(t, out, "Decoding graph")

	if err := os.Remove(kaldi.NewToolkit(env.cfg).Binary(kaldi.Lattice1Best)); err != nil {
		t.Fatal(err)
	}
	out, _, err = runCLI(t, env.configPath, "deps")
	if err == nil {
		t.Fatal("expected deps to fail with a missing program")
	}
	requireContains(t, out, "missing")
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env.configPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	if _, _, err := runCLI(t, env.configPath, "history", "show", "deadbeef"); err == nil {
		t.Fatal("expected unknown run error")
	}
}

func TestConvertCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	dataDir := t.TempDir()
	phones := filepath.Join(dataDir, kaldi.PhoneCTM)
	words := filepath.Join(dataDir, kaldi.WordCTM)
	if err := os.WriteFile(phones, []byte("a 1 0.00 0.30 1\na 1 0.30 0.30 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(words, []byte("a 1 0.30 0.30 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, env.configPath, "convert", "phones", "--keep-positions", phones)
	if err != nil {
		t.Fatalf("convert phones: %v", err)
	}
	requireContains(t, out, "Converted 2 entries")
	if got := testsupport.ReadFile(t, phones); got != "a 1 0.00 0.30 SIL\na 1 0.30 0.30 HH_B\n" {
		t.Fatalf("phones = %q", got)
	}

	if _, _, err := runCLI(t, env.configPath, "convert", "words", words); err != nil {
		t.Fatalf("convert words: %v", err)
	}
	if got := testsupport.ReadFile(t, words); got != "a 1 0.30 0.30 hello\n" {
		t.Fatalf("words = %q", got)
	}

	out, _, err = runCLI(t, env.configPath, "convert", "textgrid", env.wavDir, dataDir)
	if err != nil {
		t.Fatalf("convert textgrid: %v", err)
	}
	requireContains(t, out, "Wrote 2 TextGrids")
	if _, err := os.Stat(filepath.Join(dataDir, "tg", "b.TextGrid")); err != nil {
		t.Fatalf("expected TextGrid for utterance without alignments: %v", err)
	}
}
