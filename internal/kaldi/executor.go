package kaldi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	stderrTailLines = 20
	// waitDelay bounds how long Wait blocks on output pipes held open by
	// grandchildren after the direct child was killed.
	waitDelay = 2 * time.Second
)

// Command is a single external program invocation.
type Command struct {
	Binary string
	Args   []string
	// Dir is the working directory; Kaldi scripts expect the recipe directory.
	Dir string
}

// Name returns the program base name used in logs and errors.
func (c Command) Name() string {
	return filepath.Base(c.Binary)
}

// String renders the command line for logging.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Binary)
	parts = append(parts, c.Args...)
	return strings.Join(parts, " ")
}

// Stream identifies which output stream a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Line is one line of program output.
type Line struct {
	Program string
	Stream  Stream
	Text    string
}

// Executor abstracts command execution for testability.
type Executor interface {
	// Run executes cmd and reports each output line to onOutput.
	Run(ctx context.Context, cmd Command, onOutput func(Line)) error
	// Pipe connects cmds stdout-to-stdin and waits for all of them. Only the
	// last command's stdout and every command's stderr reach onOutput, which
	// may be called from several goroutines.
	Pipe(ctx context.Context, cmds []Command, onOutput func(Line)) error
}

// NewExecutor returns the subprocess-backed Executor.
func NewExecutor() Executor {
	return commandExecutor{}
}

// ToolError reports a program that failed to start or exited non-zero.
type ToolError struct {
	Program  string
	ExitCode int
	// Stderr holds the last lines the program wrote to stderr.
	Stderr []string
	Err    error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, "%s exited with status %d", e.Program, e.ExitCode)
	} else {
		fmt.Fprintf(&b, "%s failed: %v", e.Program, e.Err)
	}
	if n := len(e.Stderr); n > 0 {
		b.WriteString(": ")
		b.WriteString(e.Stderr[n-1])
	}
	return b.String()
}

func (e *ToolError) Unwrap() error { return e.Err }

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, c Command, onOutput func(Line)) error {
	cmd := exec.CommandContext(ctx, c.Binary, c.Args...) //nolint:gosec
	cmd.Dir = c.Dir
	cmd.WaitDelay = waitDelay
	stdout := newLineWriter(c.Name(), Stdout, onOutput, 0)
	stderr := newLineWriter(c.Name(), Stderr, onOutput, stderrTailLines)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()
	if err != nil {
		return toolError(ctx, c, err, stderr.Tail())
	}
	return nil
}

func (commandExecutor) Pipe(ctx context.Context, cmds []Command, onOutput func(Line)) error {
	if len(cmds) == 0 {
		return errors.New("pipe: no commands")
	}

	procs := make([]*exec.Cmd, len(cmds))
	stderrs := make([]*lineWriter, len(cmds))
	var stdout *lineWriter
	var parentEnds []*os.File
	closeParentEnds := func() {
		for _, f := range parentEnds {
			_ = f.Close()
		}
		parentEnds = nil
	}

	var upstream *os.File
	for i, c := range cmds {
		cmd := exec.CommandContext(ctx, c.Binary, c.Args...) //nolint:gosec
		cmd.Dir = c.Dir
		cmd.WaitDelay = waitDelay
		if upstream != nil {
			cmd.Stdin = upstream
		}
		if i < len(cmds)-1 {
			r, w, err := os.Pipe()
			if err != nil {
				closeParentEnds()
				return fmt.Errorf("pipe: %w", err)
			}
			parentEnds = append(parentEnds, r, w)
			cmd.Stdout = w
			upstream = r
		} else {
			stdout = newLineWriter(c.Name(), Stdout, onOutput, 0)
			cmd.Stdout = stdout
		}
		stderrs[i] = newLineWriter(c.Name(), Stderr, onOutput, stderrTailLines)
		cmd.Stderr = stderrs[i]
		procs[i] = cmd
	}

	for i, cmd := range procs {
		if err := cmd.Start(); err != nil {
			closeParentEnds()
			for _, started := range procs[:i] {
				_ = started.Process.Kill()
				_ = started.Wait()
			}
			return toolError(ctx, cmds[i], err, nil)
		}
	}
	// The children hold their own copies; keeping ours open would stop
	// downstream readers from ever seeing EOF.
	closeParentEnds()

	var wg sync.WaitGroup
	results := make([]error, len(procs))
	for i, cmd := range procs {
		wg.Add(1)
		go func(i int, cmd *exec.Cmd) {
			defer wg.Done()
			results[i] = cmd.Wait()
		}(i, cmd)
	}
	wg.Wait()

	stdout.Flush()
	var errs []error
	for i, err := range results {
		stderrs[i].Flush()
		if err != nil {
			errs = append(errs, toolError(ctx, cmds[i], err, stderrs[i].Tail()))
		}
	}
	return errors.Join(errs...)
}

func toolError(ctx context.Context, c Command, err error, tail []string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", c.Name(), ctxErr)
	}
	toolErr := &ToolError{Program: c.Name(), ExitCode: -1, Stderr: tail, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	}
	return toolErr
}

// lineWriter splits written bytes into lines and forwards them, retaining the
// last few lines for error reports.
type lineWriter struct {
	mu      sync.Mutex
	program string
	stream  Stream
	emit    func(Line)
	buf     []byte
	tail    []string
	limit   int
}

func newLineWriter(program string, stream Stream, emit func(Line), limit int) *lineWriter {
	return &lineWriter{program: program, stream: stream, emit: emit, limit: limit}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimRight(string(w.buf[:idx]), "\r")
		w.buf = append(w.buf[:0], w.buf[idx+1:]...)
		w.line(line)
	}
	return len(p), nil
}

// Flush forwards a trailing line that had no newline.
func (w *lineWriter) Flush() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		line := strings.TrimRight(string(w.buf), "\r")
		w.buf = w.buf[:0]
		w.line(line)
	}
}

// Tail returns a copy of the retained lines.
func (w *lineWriter) Tail() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.tail...)
}

func (w *lineWriter) line(text string) {
	if w.limit > 0 && strings.TrimSpace(text) != "" {
		w.tail = append(w.tail, text)
		if len(w.tail) > w.limit {
			w.tail = w.tail[len(w.tail)-w.limit:]
		}
	}
	if w.emit != nil {
		w.emit(Line{Program: w.program, Stream: w.stream, Text: text})
	}
}
