// Package playback opens the finished alignments in Praat.
package playback

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"kaldialign/internal/config"
	"kaldialign/internal/kaldi"
	"kaldialign/internal/logging"
	"kaldialign/internal/services"
)

// Prompt is shown before launching the viewer in ask mode.
const Prompt = "Display alignments using Praat right now? (y/n): "

// Player launches the configured viewer over the audio and TextGrid files.
type Player struct {
	binary      string
	mode        string
	in          io.Reader
	out         io.Writer
	interactive bool
	executor    kaldi.Executor
	logger      *slog.Logger
}

// Option customises a Player.
type Option func(*Player)

// WithPrompt sets the prompt streams and whether the input is a terminal.
func WithPrompt(in io.Reader, out io.Writer, interactive bool) Option {
	return func(p *Player) {
		p.in = in
		p.out = out
		p.interactive = interactive
	}
}

// WithExecutor replaces the subprocess executor.
func WithExecutor(executor kaldi.Executor) Option {
	return func(p *Player) {
		if executor != nil {
			p.executor = executor
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Player) {
		if logger != nil {
			p.logger = logging.NewComponentLogger(logger, "playback")
		}
	}
}

// New builds a Player from the [playback] section. The prompt reads stdin
// and is only offered when stdin is a terminal.
func New(cfg *config.Config, opts ...Option) *Player {
	p := &Player{
		binary:      cfg.PlaybackBinary(),
		mode:        cfg.Playback.Mode,
		in:          os.Stdin,
		out:         os.Stdout,
		interactive: isTerminal(os.Stdin),
		executor:    kaldi.NewExecutor(),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseAnswer accepts "y" and "yes" in any case.
func ParseAnswer(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Confirm decides whether to launch the viewer, prompting in ask mode.
func (p *Player) Confirm() (bool, error) {
	switch p.mode {
	case config.PlaybackAlways:
		return true, nil
	case config.PlaybackNever:
		return false, nil
	}
	if !p.interactive {
		p.logger.Debug("playback prompt skipped; stdin is not a terminal")
		return false, nil
	}
	if _, err := fmt.Fprint(p.out, Prompt); err != nil {
		return false, err
	}
	answer, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	return ParseAnswer(answer), nil
}

// Command renders `praat --open <wavdir>/* <datadir>/tg/*`, skipping hidden files.
func (p *Player) Command(wavDir, dataDir string) (kaldi.Command, error) {
	args := []string{"--open"}
	for _, pattern := range []string{
		filepath.Join(wavDir, "*"),
		kaldi.DataDir(dataDir).Path(kaldi.TextGridDir + "/*"),
	} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return kaldi.Command{}, err
		}
		for _, match := range matches {
			// Match shell glob behaviour: no dotfiles, so no atomic-write temps.
			if strings.HasPrefix(filepath.Base(match), ".") {
				continue
			}
			args = append(args, match)
		}
	}
	if len(args) == 1 {
		return kaldi.Command{}, fmt.Errorf("nothing to display in %s or %s", wavDir, dataDir)
	}
	return kaldi.Command{Binary: p.binary, Args: args}, nil
}

// Launch runs the viewer and waits for it to exit.
func (p *Player) Launch(ctx context.Context, wavDir, dataDir string) error {
	cmd, err := p.Command(wavDir, dataDir)
	if err != nil {
		return services.Wrap(services.ErrValidation, "playback", "collect files", "", err)
	}
	p.logger.Info("launching viewer",
		logging.String(logging.FieldEventType, "playback_start"),
		logging.String("binary", p.binary),
		logging.Int("files", len(cmd.Args)-1),
	)
	if err := p.executor.Run(ctx, cmd, nil); err != nil {
		return services.Wrap(services.ErrExternalTool, "playback", "run "+cmd.Name(), "", err)
	}
	return nil
}

// Offer confirms and then launches the viewer. It reports whether the viewer ran.
func (p *Player) Offer(ctx context.Context, wavDir, dataDir string) (bool, error) {
	ok, err := p.Confirm()
	if err != nil || !ok {
		return false, err
	}
	return true, p.Launch(ctx, wavDir, dataDir)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
