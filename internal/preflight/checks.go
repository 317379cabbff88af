package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"kaldialign/internal/config"
	"kaldialign/internal/deps"
	"kaldialign/internal/kaldi"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckReadableDirectory verifies that the directory exists and can be listed.
func CheckReadableDirectory(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "readable")
}

func checkDirectory(name, path string, mode uint32, ok string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, ok)}
}

// CheckCreatableDirectory passes when path is a writable directory or can be
// created beneath its nearest existing ancestor.
func CheckCreatableDirectory(name, path string) Result {
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	ancestor := filepath.Dir(path)
	for {
		if _, err := os.Stat(ancestor); err == nil {
			break
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			break
		}
		ancestor = parent
	}
	if err := unix.Access(ancestor, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, ancestor, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckReadableFile verifies that path is a readable regular file.
func CheckReadableFile(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckModelFiles verifies every file and directory of the model bundle.
func CheckModelFiles(cfg *config.Config) []Result {
	m := cfg.Model
	return []Result{
		CheckReadableFile("MFCC config", m.MFCCConfig),
		CheckReadableDirectory("Lang directory", m.LangDir),
		CheckReadableFile("Alignment lexicon", cfg.AlignLexicon()),
		CheckReadableDirectory("I-vector extractor", m.IvectorExtractor),
		CheckReadableFile("Phone symbols", m.Phones),
		CheckReadableFile("Word symbols", m.Words),
		CheckReadableFile("Acoustic model", m.Model),
		CheckReadableFile("Decoding graph", m.Graph),
	}
}

// CheckSystemDeps evaluates the Kaldi programs and, unless playback is
// disabled, the Praat viewer. Both the root command and deps use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := kaldi.NewToolkit(cfg).Requirements()
	if cfg.Playback.Mode != config.PlaybackNever {
		requirements = append(requirements, deps.Requirement{
			Name:        "praat",
			Command:     cfg.PlaybackBinary(),
			Stage:       "playback",
			Description: "Displays alignments after a run",
			Optional:    true,
		})
	}
	return deps.CheckBinaries(requirements)
}
