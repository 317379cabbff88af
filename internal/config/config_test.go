package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"kaldialign/internal/config"
)

func TestLoadDefaultConfigUsesKaldiRootEnvAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	kaldiRoot := filepath.Join(t.TempDir(), "kaldi")
	t.Setenv("HOME", tempHome)
	t.Setenv("KALDI_ROOT", kaldiRoot)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Toolkit.KaldiRoot != kaldiRoot {
		t.Fatalf("expected kaldi root from env, got %q", cfg.Toolkit.KaldiRoot)
	}
	recipe := filepath.Join(kaldiRoot, "egs", "aspire", "s5")
	if cfg.Toolkit.RecipeDir != recipe {
		t.Fatalf("unexpected recipe dir: got %q want %q", cfg.Toolkit.RecipeDir, recipe)
	}
	if cfg.SrcDir() != filepath.Join(kaldiRoot, "src") {
		t.Fatalf("unexpected src dir: %q", cfg.SrcDir())
	}
	if cfg.Model.Model != filepath.Join(recipe, "exp", "tdnn_7b_chain_online", "final.mdl") {
		t.Fatalf("expected model resolved against recipe dir, got %q", cfg.Model.Model)
	}
	if cfg.Model.MFCCConfig != filepath.Join(recipe, "conf", "mfcc_hires.conf") {
		t.Fatalf("unexpected mfcc config: %q", cfg.Model.MFCCConfig)
	}
	if cfg.AlignLexicon() != filepath.Join(recipe, "data", "lang_pp_test", "phones", "align_lexicon.int") {
		t.Fatalf("unexpected align lexicon: %q", cfg.AlignLexicon())
	}
	if cfg.Paths.DataDir != filepath.Join(recipe, "data", "alignme") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	wantState := filepath.Join(tempHome, ".local", "share", "kaldialign")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.HistoryPath() != filepath.Join(wantState, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
	if cfg.Decode.Beam != 15.0 || cfg.Decode.LatticeBeam != 6.0 || cfg.Decode.MaxActive != 7000 {
		t.Fatalf("unexpected decode defaults: %+v", cfg.Decode)
	}
	if cfg.Alignment.FrameShift != 0.03 {
		t.Fatalf("unexpected frame shift: %v", cfg.Alignment.FrameShift)
	}
	if cfg.Playback.Mode != config.PlaybackAsk {
		t.Fatalf("unexpected playback mode: %q", cfg.Playback.Mode)
	}
	if cfg.StageTimeout() != 0 {
		t.Fatalf("expected no stage timeout by default, got %s", cfg.StageTimeout())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "kaldialign.toml")
	kaldiRoot := filepath.Join(tempDir, "kaldi")
	recipe := filepath.Join(tempDir, "recipe")

	type payload struct {
		Toolkit struct {
			KaldiRoot           string `toml:"kaldi_root"`
			RecipeDir           string `toml:"recipe_dir"`
			StageTimeoutSeconds int    `toml:"stage_timeout_seconds"`
		} `toml:"toolkit"`
		Model struct {
			Graph string `toml:"graph"`
		} `toml:"model"`
		Decode struct {
			Beam float64 `toml:"beam"`
		} `toml:"decode"`
		Logging struct {
			StageOverrides map[string]string `toml:"stage_overrides"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Toolkit.KaldiRoot = kaldiRoot
	custom.Toolkit.RecipeDir = recipe
	custom.Toolkit.StageTimeoutSeconds = 90
	custom.Model.Graph = "/models/HCLG.fst"
	custom.Decode.Beam = 11.5
	custom.Logging.StageOverrides = map[string]string{" Decode ": "DEBUG"}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Toolkit.RecipeDir != recipe {
		t.Fatalf("expected recipe override, got %q", cfg.Toolkit.RecipeDir)
	}
	if cfg.Model.Graph != "/models/HCLG.fst" {
		t.Fatalf("expected absolute graph to be kept, got %q", cfg.Model.Graph)
	}
	if cfg.Model.Words != filepath.Join(recipe, "exp", "tdnn_7b_chain_online", "graph_pp", "words.txt") {
		t.Fatalf("expected default words under custom recipe, got %q", cfg.Model.Words)
	}
	if cfg.Decode.Beam != 11.5 {
		t.Fatalf("expected beam override, got %v", cfg.Decode.Beam)
	}
	if cfg.StageTimeout().Seconds() != 90 {
		t.Fatalf("expected 90s stage timeout, got %s", cfg.StageTimeout())
	}
	if cfg.Logging.StageOverrides["decode"] != "debug" {
		t.Fatalf("expected normalized stage override, got %v", cfg.Logging.StageOverrides)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "kaldialign.toml")
	if err := os.WriteFile(configPath, []byte("[toolkit]\nkaldi_rot = \"/opt/kaldi\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "tdnn_7b_chain_online") {
		t.Fatalf("sample config missing model defaults: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Decode.MaxActive != 7000 {
		t.Fatalf("expected sample max_active 7000, got %d", cfg.Decode.MaxActive)
	}
	if !strings.Contains(cfg.Paths.StateDir, "kaldialign") {
		t.Fatalf("expected state dir to contain kaldialign, got %q", cfg.Paths.StateDir)
	}

	loaded, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists || loaded.Playback.Mode != config.PlaybackAsk {
		t.Fatalf("unexpected loaded sample: exists=%v mode=%q", exists, loaded.Playback.Mode)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Default()
		cfg.Toolkit.KaldiRoot = "/opt/kaldi"
		cfg.Toolkit.RecipeDir = "/opt/kaldi/egs/aspire/s5"
		return cfg
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	cfg = config.Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without kaldi root")
	}

	cfg = valid()
	cfg.Decode.MaxActive = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive max_active")
	}

	cfg = valid()
	cfg.Decode.Beam = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative beam")
	}

	cfg = valid()
	cfg.Alignment.FrameShift = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero frame shift")
	}

	cfg = valid()
	cfg.Playback.Mode = "sometimes"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown playback mode")
	}

	cfg = valid()
	cfg.Logging.StageOverrides = map[string]string{"decode": "verbose"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown override level")
	}

	cfg = valid()
	cfg.Logging.StageOverrides = map[string]string{"decod": "debug"}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), `unknown stage "decod"`) {
		t.Fatalf("expected error for misspelled stage, got %v", err)
	}

	cfg = valid()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}

	cfg = valid()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}
