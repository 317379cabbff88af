package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"kaldialign/internal/config"
	"kaldialign/internal/history"
	"kaldialign/internal/kaldi"
	"kaldialign/internal/logging"
	"kaldialign/internal/services"
)

// Request names the inputs of one run.
type Request struct {
	WavDir string
	// DataDir defaults to paths.data_dir when empty. Relative values resolve
	// against the working directory.
	DataDir string
}

// StageResult describes one executed stage.
type StageResult struct {
	Name     string
	Outcome  services.Outcome
	Duration time.Duration
	Commands []string
	Err      error
}

// Result summarises a run. It is returned even when the run fails.
type Result struct {
	RunID      string
	WavDir     string
	DataDir    string
	LogPath    string
	Utterances int
	TextGrids  []string
	Stages     []StageResult
	Duration   time.Duration
}

// Orchestrator executes the stage sequence.
type Orchestrator struct {
	cfg      *config.Config
	toolkit  *kaldi.Toolkit
	executor kaldi.Executor
	recorder Recorder
	logger   *slog.Logger
	output   io.Writer
	stages   []Stage
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithExecutor replaces the subprocess executor.
func WithExecutor(executor kaldi.Executor) Option {
	return func(o *Orchestrator) {
		if executor != nil {
			o.executor = executor
		}
	}
}

// WithRecorder attaches a run history recorder.
func WithRecorder(recorder Recorder) Option {
	return func(o *Orchestrator) {
		if recorder != nil {
			o.recorder = recorder
		}
	}
}

// WithLogger sets the console logger. The per-run log file is added on top.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOutput sets where decoder transcripts are echoed. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) { o.output = w }
}

// WithStages replaces the stage sequence.
func WithStages(stages ...Stage) Option {
	return func(o *Orchestrator) { o.stages = stages }
}

// New builds an Orchestrator for cfg.
func New(cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		toolkit:  kaldi.NewToolkit(cfg),
		executor: kaldi.NewExecutor(),
		recorder: nopRecorder{},
		logger:   logging.NewNop(),
		output:   os.Stdout,
		stages:   DefaultStages(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ResolveDataDir returns the absolute data directory for req.
func (o *Orchestrator) ResolveDataDir(req Request) (string, error) {
	dir := strings.TrimSpace(req.DataDir)
	if dir == "" {
		dir = o.cfg.Paths.DataDir
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

// Run executes every stage in order and stops at the first failure.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	result := &Result{}

	wavDir, err := resolveWavDir(req.WavDir)
	if err != nil {
		return result, err
	}
	result.WavDir = wavDir
	dataDir, err := o.ResolveDataDir(req)
	if err != nil {
		return result, services.Wrap(services.ErrConfiguration, "", "resolve data dir", req.DataDir, err)
	}
	result.DataDir = dataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrConfiguration, "", "create data dir", dataDir, err)
	}

	lock, err := lockDataDir(dataDir)
	if err != nil {
		return result, services.Wrap(services.ErrValidation, "", "lock data dir", "", err)
	}
	defer func() { _ = lock.Unlock() }()

	runID := uuid.NewString()
	result.RunID = runID
	ctx = services.WithRunID(ctx, runID)

	logger := o.logger
	runLog, logErr := logging.OpenRunLog(o.cfg.Paths.LogDir, runID)
	if logErr != nil {
		logging.WarnWithContext(logger, "run log unavailable", "run_log_unavailable",
			logging.Error(logErr),
			logging.String(logging.FieldImpact, "this run is only logged to the console"),
		)
	} else {
		defer runLog.Close()
		result.LogPath = runLog.Path
		logger = logging.TeeLogger(logger, runLog.Handler)
	}
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "pipeline"))

	// History writes must survive cancellation of the run itself.
	recordCtx := context.WithoutCancel(ctx)
	if err := o.recorder.BeginRun(recordCtx, history.Run{
		ID:        runID,
		WavDir:    wavDir,
		DataDir:   dataDir,
		LogPath:   result.LogPath,
		StartedAt: start,
	}); err != nil {
		logger.Warn("run history unavailable", logging.Error(err))
	}

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("wav_dir", wavDir),
		logging.String("data_dir", dataDir),
		logging.String("log_path", result.LogPath),
	)

	run := &Run{
		ID:       runID,
		WavDir:   wavDir,
		Data:     kaldi.DataDir(dataDir),
		Config:   o.cfg,
		Toolkit:  o.toolkit,
		Executor: o.executor,
		Output:   o.output,
	}

	var runErr error
	for seq, stage := range o.stages {
		if ctxErr := ctx.Err(); ctxErr != nil {
			runErr = services.Wrap(services.ErrCanceled, stage.Name(), "", "run canceled before stage", ctxErr)
			break
		}
		stageResult, err := o.executeStage(ctx, logger, run, stage)
		result.Stages = append(result.Stages, stageResult)
		if recErr := o.recorder.RecordStage(recordCtx, runID, history.StageRecord{
			Seq:          seq,
			Name:         stageResult.Name,
			Outcome:      string(stageResult.Outcome),
			Command:      strings.Join(stageResult.Commands, "\n"),
			ErrorMessage: errorMessage(err),
			StartedAt:    time.Now().Add(-stageResult.Duration),
			Duration:     stageResult.Duration,
		}); recErr != nil {
			logger.Warn("failed to record stage", logging.String(logging.FieldStage, stage.Name()), logging.Error(recErr))
		}
		if err != nil {
			runErr = err
			break
		}
	}

	if run.Manifest != nil {
		result.Utterances = run.Manifest.Len()
	}
	result.TextGrids = run.TextGrids
	result.Duration = time.Since(start)

	status := history.StatusSucceeded
	if runErr != nil {
		status = history.StatusFailed
	}
	if err := o.recorder.FinishRun(recordCtx, runID, history.Result{
		Status:       status,
		Outcome:      string(services.Classify(runErr)),
		Utterances:   result.Utterances,
		ErrorMessage: errorMessage(runErr),
	}); err != nil {
		logger.Warn("failed to record run result", logging.Error(err))
	}

	if runErr != nil {
		logging.ErrorWithContext(logger, "run failed", "run_failure",
			logging.Error(runErr),
			logging.Duration("run_duration", result.Duration),
			logging.String(logging.FieldErrorHint, "see the run log for the tool output"),
		)
		return result, runErr
	}
	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("utterances", result.Utterances),
		logging.Int("textgrids", len(result.TextGrids)),
		logging.Duration("run_duration", result.Duration),
	)
	return result, nil
}

func (o *Orchestrator) executeStage(ctx context.Context, runLogger *slog.Logger, run *Run, stage Stage) (StageResult, error) {
	name := stage.Name()
	stageCtx := services.WithStage(ctx, name)
	// Console loggers built by logging.New switch to the stage's override
	// level when the stage attr is attached; the run log is unaffected.
	stageLogger := runLogger.With(logging.FieldStage, name)

	if timeout := o.cfg.StageTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(stageCtx, timeout)
		defer cancel()
	}

	run.stage = name
	run.commands = nil
	run.Logger = stageLogger

	start := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("stage_label", Label(name)),
	)

	err := stage.Execute(stageCtx, run)
	res := StageResult{
		Name:     name,
		Outcome:  services.Classify(err),
		Duration: time.Since(start),
		Commands: run.Commands(),
		Err:      err,
	}
	if err != nil {
		logging.ErrorWithContext(stageLogger, "stage failed", "stage_failure",
			logging.Error(err),
			logging.String("outcome", string(res.Outcome)),
			logging.Duration("stage_duration", res.Duration),
		)
		return res, err
	}
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", res.Duration),
	)
	return res, nil
}

func resolveWavDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", services.Wrap(services.ErrValidation, StageManifest, "resolve audio dir", "audio directory is required", nil)
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, StageManifest, "resolve audio dir", dir, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, StageManifest, "resolve audio dir", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, StageManifest, "resolve audio dir", abs, err)
		}
		return "", services.Wrap(services.ErrValidation, StageManifest, "resolve audio dir", abs, err)
	}
	if !info.IsDir() {
		return "", services.Wrap(services.ErrValidation, StageManifest, "resolve audio dir", fmt.Sprintf("%s is not a directory", abs), nil)
	}
	return abs, nil
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
