package pipeline

import (
	"context"

	"kaldialign/internal/history"
)

// Recorder persists run and stage outcomes. *history.Store satisfies it.
type Recorder interface {
	BeginRun(ctx context.Context, run history.Run) error
	RecordStage(ctx context.Context, runID string, stage history.StageRecord) error
	FinishRun(ctx context.Context, runID string, result history.Result) error
}

type nopRecorder struct{}

func (nopRecorder) BeginRun(context.Context, history.Run) error { return nil }

func (nopRecorder) RecordStage(context.Context, string, history.StageRecord) error { return nil }

func (nopRecorder) FinishRun(context.Context, string, history.Result) error { return nil }
