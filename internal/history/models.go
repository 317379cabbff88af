package history

import (
	"errors"
	"time"
)

// ErrRunNotFound indicates no run matches the requested ID.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousID indicates an ID prefix that matches more than one run.
var ErrAmbiguousID = errors.New("run id prefix is ambiguous")

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one invocation of the pipeline.
type Run struct {
	ID           string
	WavDir       string
	DataDir      string
	Status       Status
	Outcome      string
	Utterances   int
	ErrorMessage string
	LogPath      string
	StartedAt    time.Time
	FinishedAt   time.Time
	Stages       []StageRecord
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StageRecord is the outcome of one executed stage.
type StageRecord struct {
	Seq          int
	Name         string
	Outcome      string
	Command      string
	ErrorMessage string
	StartedAt    time.Time
	Duration     time.Duration
}

// Result finalises a run.
type Result struct {
	Status       Status
	Outcome      string
	Utterances   int
	ErrorMessage string
}
