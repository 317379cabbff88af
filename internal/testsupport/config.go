package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"kaldialign/internal/config"
	"kaldialign/internal/kaldi"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a unique temp directory: a fake
// Kaldi checkout under base/kaldi, data under base/data and state under
// base/state. Model paths are absolute. Playback is disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Toolkit.KaldiRoot = filepath.Join(base, "kaldi")
	cfgVal.Toolkit.RecipeDir = filepath.Join(base, "kaldi", "egs", "aspire", "s5")
	recipe := cfgVal.Toolkit.RecipeDir
	exp := filepath.Join(recipe, "exp", "tdnn_7b_chain_online")
	cfgVal.Model = config.Model{
		MFCCConfig:       filepath.Join(recipe, "conf", "mfcc_hires.conf"),
		LangDir:          filepath.Join(recipe, "data", "lang_pp_test"),
		IvectorExtractor: filepath.Join(exp, "ivector_extractor"),
		Phones:           filepath.Join(exp, "phones.txt"),
		Words:            filepath.Join(exp, "graph_pp", "words.txt"),
		Model:            filepath.Join(exp, "final.mdl"),
		Graph:            filepath.Join(exp, "graph_pp", "HCLG.fst"),
	}
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Playback.Mode = config.PlaybackNever

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Toolkit.KaldiRoot)
}

// DefaultPhones is the phones.txt written by WithModelFiles.
const DefaultPhones = "<eps> 0\nSIL 1\nHH_B 2\nAH_I 3\nL_I 4\nOW_E 5\n"

// DefaultWords is the words.txt written by WithModelFiles.
const DefaultWords = "<eps> 0\nhello 1\nworld 2\n"

// WithModelFiles creates every model file the config points at so preflight
// checks pass. Symbol tables get DefaultPhones and DefaultWords.
func WithModelFiles() ConfigOption {
	return func(b *configBuilder) {
		m := b.cfg.Model
		files := map[string]string{
			m.MFCCConfig:        "--use-energy=false\n",
			b.cfg.AlignLexicon(): "1 1 2 3 4 5\n",
			m.Phones:            DefaultPhones,
			m.Words:             DefaultWords,
			m.Model:             "model",
			m.Graph:             "graph",
			filepath.Join(m.IvectorExtractor, "final.ie"): "ie",
		}
		for path, content := range files {
			mustWrite(b.t, path, []byte(content), 0o644)
		}
	}
}

// WithStubbedToolkit writes executables at every Kaldi program path. Each stub
// appends its base name to base/calls.log and exits 0.
func WithStubbedToolkit() ConfigOption {
	return func(b *configBuilder) {
		callLog := filepath.Join(b.baseDir, "calls.log")
		script := []byte("#!/bin/sh\necho \"$(basename \"$0\")\" >> '" + callLog + "'\nexit 0\n")
		for _, req := range kaldi.NewToolkit(b.cfg).Requirements() {
			mustWrite(b.t, req.Command, script, 0o755)
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			mustWrite(b.t, filepath.Join(binDir, name), script, 0o755)
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

func mustWrite(t testing.TB, path string, data []byte, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
