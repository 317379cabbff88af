package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable. It does not touch the
// filesystem; missing model files are reported by preflight checks.
func (c *Config) Validate() error {
	if err := c.validateToolkit(); err != nil {
		return err
	}
	if err := c.validateDecode(); err != nil {
		return err
	}
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validatePlayback(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateToolkit() error {
	if strings.TrimSpace(c.Toolkit.KaldiRoot) == "" {
		return errors.New("toolkit.kaldi_root is required. Set KALDI_ROOT or edit the config file (create with 'kaldialign config init')")
	}
	if strings.TrimSpace(c.Toolkit.RecipeDir) == "" {
		return errors.New("toolkit.recipe_dir must be set")
	}
	if c.Toolkit.StageTimeoutSeconds < 0 {
		return errors.New("toolkit.stage_timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateDecode() error {
	if err := ensurePositiveMap(map[string]int{
		"decode.online_ivector_period":    c.Decode.OnlineIvectorPeriod,
		"decode.frame_subsampling_factor": c.Decode.FrameSubsamplingFactor,
		"decode.max_active":               c.Decode.MaxActive,
	}); err != nil {
		return err
	}
	if c.Decode.Beam <= 0 {
		return errors.New("decode.beam must be positive")
	}
	if c.Decode.LatticeBeam <= 0 {
		return errors.New("decode.lattice_beam must be positive")
	}
	if c.Decode.AcousticScale <= 0 {
		return errors.New("decode.acoustic_scale must be positive")
	}
	return nil
}

func (c *Config) validateAlignment() error {
	if c.Alignment.FrameShift <= 0 {
		return errors.New("alignment.frame_shift must be positive (seconds)")
	}
	return nil
}

func (c *Config) validatePlayback() error {
	switch c.Playback.Mode {
	case PlaybackAsk, PlaybackAlways, PlaybackNever:
		return nil
	default:
		return fmt.Errorf("playback.mode must be one of %q, %q or %q (got %q)", PlaybackAsk, PlaybackAlways, PlaybackNever, c.Playback.Mode)
	}
}

// StageNames lists the pipeline stages in execution order. It is the set of
// keys accepted by logging.stage_overrides.
var StageNames = []string{"manifest", "mfcc", "ivectors", "decode", "phone_ctm", "word_ctm", "textgrid"}

var logLevels = []string{"debug", "info", "warn", "error"}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be %q or %q (got %q)", "console", "json", c.Logging.Format)
	}
	if !slices.Contains(logLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of %s (got %q)", strings.Join(logLevels, ", "), c.Logging.Level)
	}
	for stage, level := range c.Logging.StageOverrides {
		if !slices.Contains(StageNames, stage) {
			return fmt.Errorf("logging.stage_overrides: unknown stage %q (stages: %s)", stage, strings.Join(StageNames, ", "))
		}
		if !slices.Contains(logLevels, level) {
			return fmt.Errorf("logging.stage_overrides.%s: unsupported level %q", stage, level)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
