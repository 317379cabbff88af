package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeToolkit(); err != nil {
		return err
	}
	if err := c.normalizeModel(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePlayback()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeToolkit() error {
	var err error
	c.Toolkit.KaldiRoot = strings.TrimSpace(c.Toolkit.KaldiRoot)
	if c.Toolkit.KaldiRoot == "" {
		if value, ok := os.LookupEnv("KALDI_ROOT"); ok && strings.TrimSpace(value) != "" {
			c.Toolkit.KaldiRoot = strings.TrimSpace(value)
		} else {
			c.Toolkit.KaldiRoot = defaultKaldiRoot
		}
	}
	if c.Toolkit.KaldiRoot, err = expandPath(c.Toolkit.KaldiRoot); err != nil {
		return fmt.Errorf("toolkit.kaldi_root: %w", err)
	}
	if strings.TrimSpace(c.Toolkit.RecipeDir) == "" {
		c.Toolkit.RecipeDir = filepath.Join(c.Toolkit.KaldiRoot, defaultRecipeSubdir)
	}
	if c.Toolkit.RecipeDir, err = expandRelativeTo(c.Toolkit.KaldiRoot, c.Toolkit.RecipeDir); err != nil {
		return fmt.Errorf("toolkit.recipe_dir: %w", err)
	}
	if c.Toolkit.StageTimeoutSeconds < 0 {
		c.Toolkit.StageTimeoutSeconds = 0
	}
	return nil
}

func (c *Config) normalizeModel() error {
	base := c.Toolkit.RecipeDir
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"model.mfcc_config", &c.Model.MFCCConfig, defaultMFCCConfig},
		{"model.lang_dir", &c.Model.LangDir, defaultLangDir},
		{"model.ivector_extractor", &c.Model.IvectorExtractor, defaultIvectorExtractor},
		{"model.phones", &c.Model.Phones, defaultPhones},
		{"model.words", &c.Model.Words, defaultWords},
		{"model.model", &c.Model.Model, defaultModel},
		{"model.graph", &c.Model.Graph, defaultGraph},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		resolved, err := expandRelativeTo(base, *field.value)
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = resolved
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandRelativeTo(c.Toolkit.RecipeDir, c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePlayback() {
	c.Playback.Binary = strings.TrimSpace(c.Playback.Binary)
	if c.Playback.Binary == "" {
		c.Playback.Binary = defaultPlaybackBinary
	}
	c.Playback.Mode = strings.ToLower(strings.TrimSpace(c.Playback.Mode))
	if c.Playback.Mode == "" {
		c.Playback.Mode = defaultPlaybackMode
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = normalizeLevel(c.Logging.Level)
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if len(c.Logging.StageOverrides) > 0 {
		overrides := make(map[string]string, len(c.Logging.StageOverrides))
		for stage, level := range c.Logging.StageOverrides {
			stage = strings.ToLower(strings.TrimSpace(stage))
			level = normalizeLevel(level)
			if stage == "" || level == "" {
				continue
			}
			overrides[stage] = level
		}
		c.Logging.StageOverrides = overrides
	}
}

func normalizeLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		return "warn"
	}
	return level
}
