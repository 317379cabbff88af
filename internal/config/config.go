package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Toolkit locates the Kaldi installation and the recipe the models belong to.
type Toolkit struct {
	KaldiRoot           string `toml:"kaldi_root"`
	RecipeDir           string `toml:"recipe_dir"`
	StageTimeoutSeconds int    `toml:"stage_timeout_seconds"`
}

// Model points at the pretrained acoustic model bundle. Relative paths are
// resolved against Toolkit.RecipeDir.
type Model struct {
	MFCCConfig       string `toml:"mfcc_config"`
	LangDir          string `toml:"lang_dir"`
	IvectorExtractor string `toml:"ivector_extractor"`
	Phones           string `toml:"phones"`
	Words            string `toml:"words"`
	Model            string `toml:"model"`
	Graph            string `toml:"graph"`
}

// Decode holds the nnet3 decoder search parameters.
type Decode struct {
	OnlineIvectorPeriod    int     `toml:"online_ivector_period"`
	FrameSubsamplingFactor int     `toml:"frame_subsampling_factor"`
	MaxActive              int     `toml:"max_active"`
	Beam                   float64 `toml:"beam"`
	LatticeBeam            float64 `toml:"lattice_beam"`
	AcousticScale          float64 `toml:"acoustic_scale"`
}

// Alignment controls CTM generation and label conversion.
type Alignment struct {
	// FrameShift is the frame length in seconds after subsampling (0.03 for chain models).
	FrameShift float64 `toml:"frame_shift"`
	// StripPhonePositions removes the _B/_E/_I/_S word-position suffixes from phone labels.
	StripPhonePositions bool `toml:"strip_phone_positions"`
}

// Paths contains output and bookkeeping directories.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Playback configures the optional Praat viewer launched after a run.
type Playback struct {
	Binary string `toml:"binary"`
	// Mode is one of "ask", "always" or "never".
	Mode string `toml:"mode"`
}

// History toggles the SQLite run ledger.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string            `toml:"format"`
	Level          string            `toml:"level"`
	RetentionDays  int               `toml:"retention_days"`
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Config encapsulates all configuration values for kaldialign.
//
// Configuration sections by subsystem:
//   - Toolkit: Kaldi installation and recipe directory
//   - Model: acoustic model, graph, symbol tables and feature config
//   - Decode: decoder beams and i-vector settings
//   - Alignment: CTM frame shift and label conversion
//   - Paths: default data directory, state and log directories
//   - Playback: Praat viewer settings
//   - History: run ledger toggle
//   - Logging: log format, level, retention and per-stage overrides
type Config struct {
	Toolkit   Toolkit   `toml:"toolkit"`
	Model     Model     `toml:"model"`
	Decode    Decode    `toml:"decode"`
	Alignment Alignment `toml:"alignment"`
	Paths     Paths     `toml:"paths"`
	Playback  Playback  `toml:"playback"`
	History   History   `toml:"history"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("kaldialign.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SrcDir returns the directory holding the Kaldi binaries (featbin, bin, latbin, ...).
func (c *Config) SrcDir() string {
	return filepath.Join(c.Toolkit.KaldiRoot, "src")
}

// AlignLexicon returns the integer alignment lexicon inside the lang directory.
func (c *Config) AlignLexicon() string {
	return filepath.Join(c.Model.LangDir, "phones", "align_lexicon.int")
}

// HistoryPath returns the SQLite database holding the run ledger.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// StageTimeout returns the per-stage deadline, or zero when stages may run indefinitely.
func (c *Config) StageTimeout() time.Duration {
	if c.Toolkit.StageTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Toolkit.StageTimeoutSeconds) * time.Second
}

// PlaybackBinary returns the Praat executable name.
func (c *Config) PlaybackBinary() string {
	if bin := strings.TrimSpace(c.Playback.Binary); bin != "" {
		return bin
	}
	return defaultPlaybackBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// expandRelativeTo expands tilde paths and anchors relative ones at base.
func expandRelativeTo(base, pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", nil
	}
	if !strings.HasPrefix(pathValue, "~") && !filepath.IsAbs(pathValue) {
		pathValue = filepath.Join(base, pathValue)
	}
	return expandPath(pathValue)
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
