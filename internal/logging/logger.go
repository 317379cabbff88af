package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"kaldialign/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// StageLevels lowers or raises the level for records logged under a stage.
	StageLevels StageLevels
	// OutputPaths accepts "stdout", "stderr" or file paths. Defaults to stderr so
	// stdout stays free for decoder transcripts.
	OutputPaths []string
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	base := ParseLevel(opts.Level)
	overrides := opts.StageLevels.parse()
	levelVar := new(slog.LevelVar)
	levelVar.Set(floor(base, overrides))

	writer, err := openWriters(opts.OutputPaths)
	if err != nil {
		return nil, err
	}
	handler, err := newHandler(opts.Format, writer, levelVar, opts.Development || base <= slog.LevelDebug)
	if err != nil {
		return nil, err
	}
	return slog.New(newStageLevelHandler(handler, base, overrides)), nil
}

// NewFromConfig creates the console logger described by the [logging] section.
// levelOverride, when non-empty, replaces the configured level (the --log-level flag).
// Stage overrides apply to this logger only; the per-run log always records debug.
func NewFromConfig(cfg *config.Config, levelOverride string) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: firstNonEmpty(levelOverride, "info"), Format: "console"})
	}
	return New(Options{
		Level:       firstNonEmpty(levelOverride, cfg.Logging.Level),
		Format:      cfg.Logging.Format,
		StageLevels: StageLevels(cfg.Logging.StageOverrides),
	})
}

// RunLog is the JSON log file written for a single pipeline run.
type RunLog struct {
	Path    string
	Handler slog.Handler
	file    *os.File
}

// Close flushes and closes the run log file.
func (l *RunLog) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// RunLogPattern matches the files created by OpenRunLog.
const RunLogPattern = "kaldialign-*.log"

// OpenRunLog creates <dir>/kaldialign-<runID>.log and returns a debug-level JSON
// handler writing to it. Combine it with the console logger using TeeLogger.
func OpenRunLog(dir, runID string) (*RunLog, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("run log: directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	path := filepath.Join(dir, "kaldialign-"+runID+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	handler, err := newJSONHandler(file, slog.LevelDebug, false)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &RunLog{Path: path, Handler: handler, file: file}, nil
}

// ParseLevel maps a configured level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(format string, w io.Writer, lvl *slog.LevelVar, addSource bool) (slog.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		return newPrettyHandler(w, lvl, addSource), nil
	case "json":
		return newJSONHandler(w, lvl, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", format)
	}
}

func openWriters(paths []string) (io.Writer, error) {
	if len(paths) == 0 {
		paths = []string{"stderr"}
	}
	seen := map[string]struct{}{}
	var writers []io.Writer
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("ensure log directory: %w", err)
				}
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			writers = append(writers, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stderr, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
