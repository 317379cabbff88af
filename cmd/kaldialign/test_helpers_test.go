package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"kaldialign/internal/config"
	"kaldialign/internal/kaldi"
	"kaldialign/internal/testsupport"
)

const (
	stubPhoneCTM = "a 1 0.00 0.30 1\\na 1 0.30 0.30 2\\nb 1 0.00 0.20 5\\n"
	stubWordCTM  = "a 1 0.30 0.30 1\\nb 1 0.00 0.20 2\\n"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	wavDir     string
}

// setupCLITestEnv builds a config whose Kaldi programs are shell stubs that
// produce a two-utterance transcript and ID-valued CTMs.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithModelFiles(), testsupport.WithStubbedToolkit())
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	toolkit := kaldi.NewToolkit(cfg)
	writeStub(t, toolkit.Binary(kaldi.NNet3LatgenFaster),
		`echo "LOG (nnet3-latgen-faster) decoding" >&2
echo "a hello" >&2
echo "b world" >&2`)
	writeStub(t, toolkit.Binary(kaldi.AliToPhones),
		`for last; do :; done
printf '`+stubPhoneCTM+`' > "$last"`)
	writeStub(t, toolkit.Binary(kaldi.NBestToCTM),
		`cat > /dev/null
for last; do :; done
printf '`+stubWordCTM+`' > "$last"`)

	wavDir := filepath.Join(base, "wav")
	testsupport.WriteWAV(t, filepath.Join(wavDir, "a.wav"), 1.0)
	testsupport.WriteWAV(t, filepath.Join(wavDir, "b.wav"), 0.5)

	configPath := filepath.Join(base, "kaldialign.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, wavDir: wavDir}
}

func writeStub(t *testing.T, path, body string) {
	t.Helper()
	script := "#!/bin/sh\n" + body + "\nexit 0\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", path, err)
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	flags := []string{"--log-level", "error"}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
