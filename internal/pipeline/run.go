package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"kaldialign/internal/config"
	"kaldialign/internal/kaldi"
	"kaldialign/internal/logging"
	"kaldialign/internal/manifest"
	"kaldialign/internal/services"
)

// Run carries the state shared by the stages of one pipeline run.
type Run struct {
	ID       string
	WavDir   string
	Data     kaldi.DataDir
	Config   *config.Config
	Toolkit  *kaldi.Toolkit
	Executor kaldi.Executor
	// Output receives decoder transcript lines as they are produced.
	Output   io.Writer
	Logger   *slog.Logger
	Manifest *manifest.Manifest
	// TextGrids lists the files written by the textgrid stage.
	TextGrids []string

	stage    string
	commands []string
}

// exec runs one external command on behalf of the current stage. Output
// lines go to onLine when set and to the debug log otherwise.
func (r *Run) exec(ctx context.Context, cmd kaldi.Command, onLine func(kaldi.Line)) error {
	r.commands = append(r.commands, cmd.String())
	r.Logger.Debug("running command",
		logging.String(logging.FieldEventType, "command_start"),
		logging.String(logging.FieldCommand, cmd.String()),
	)
	if onLine == nil {
		onLine = r.logLine
	}
	if err := r.Executor.Run(ctx, cmd, onLine); err != nil {
		return r.toolFailure(ctx, "run "+cmd.Name(), err)
	}
	return nil
}

// pipe runs cmds connected stdout to stdin.
func (r *Run) pipe(ctx context.Context, cmds []kaldi.Command) error {
	names := make([]string, len(cmds))
	rendered := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name()
		rendered[i] = c.String()
	}
	line := joinPipe(rendered)
	r.commands = append(r.commands, line)
	r.Logger.Debug("running pipeline",
		logging.String(logging.FieldEventType, "command_start"),
		logging.String(logging.FieldCommand, line),
	)
	if err := r.Executor.Pipe(ctx, cmds, r.logLine); err != nil {
		return r.toolFailure(ctx, "run "+joinPipe(names), err)
	}
	return nil
}

func (r *Run) logLine(line kaldi.Line) {
	r.Logger.Debug(line.Text,
		logging.String("program", line.Program),
		logging.String("stream", line.Stream.String()),
	)
}

func (r *Run) toolFailure(ctx context.Context, operation string, err error) error {
	marker := services.ErrExternalTool
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		marker = services.ErrTimeout
	case ctx.Err() != nil:
		marker = services.ErrCanceled
	}
	return services.Wrap(marker, r.stage, operation, "", err)
}

// Commands returns the command lines executed by the current stage.
func (r *Run) Commands() []string {
	return append([]string(nil), r.commands...)
}

func joinPipe(parts []string) string {
	return strings.Join(parts, " | ")
}
