package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"kaldialign/internal/history"
	"kaldialign/internal/testsupport"
)

func TestOpenCreatesDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	if got, want := store.Path(), filepath.Join(cfg.Paths.StateDir, "history.db"); got != want {
		t.Fatalf("Path = %q, want %q", got, want)
	}
	runs, err := store.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected empty history, got %d runs", len(runs))
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("update version: %v", err)
	}
	_ = db.Close()

	if _, err := history.Open(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	started := time.Now().Add(-time.Minute)
	run := history.Run{
		ID:        "3f2a9c10-0000-4000-8000-000000000001",
		WavDir:    "/audio",
		DataDir:   "/data",
		LogPath:   "/logs/kaldialign-3f2a9c10.log",
		StartedAt: started,
	}
	if err := store.BeginRun(ctx, run); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	stages := []history.StageRecord{
		{Seq: 0, Name: "manifest", Outcome: "success", StartedAt: started, Duration: 5 * time.Millisecond},
		{Seq: 1, Name: "mfcc", Outcome: "failure", Command: "compute-mfcc-feats --config=x", ErrorMessage: "exit status 1", StartedAt: started, Duration: 1500 * time.Millisecond},
	}
	for _, stage := range stages {
		if err := store.RecordStage(ctx, run.ID, stage); err != nil {
			t.Fatalf("RecordStage(%s): %v", stage.Name, err)
		}
	}
	if err := store.FinishRun(ctx, run.ID, history.Result{
		Status:       history.StatusFailed,
		Outcome:      "failure",
		Utterances:   2,
		ErrorMessage: "mfcc failed",
	}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := store.GetRun(ctx, "3f2a9c10")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.ID != run.ID || got.Status != history.StatusFailed || got.Utterances != 2 {
		t.Fatalf("unexpected run: %+v", got)
	}
	if got.ErrorMessage != "mfcc failed" || got.LogPath != run.LogPath {
		t.Fatalf("unexpected run details: %+v", got)
	}
	if got.FinishedAt.IsZero() || got.Duration() <= 0 {
		t.Fatalf("expected finished run with duration, got %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if len(got.Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(got.Stages))
	}
	if got.Stages[1].Name != "mfcc" || got.Stages[1].Command != "compute-mfcc-feats --config=x" || got.Stages[1].Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected stage: %+v", got.Stages[1])
	}
	if got.Stages[0].Command != "" {
		t.Fatalf("expected empty command for in-process stage, got %q", got.Stages[0].Command)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"aaaa", "bbbb", "cccc"} {
		if err := store.BeginRun(ctx, history.Run{ID: id, WavDir: "/w", DataDir: "/d", StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("BeginRun(%s): %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "cccc" || runs[1].ID != "bbbb" {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if runs[0].Status != history.StatusRunning || !runs[0].FinishedAt.IsZero() {
		t.Fatalf("expected running run, got %+v", runs[0])
	}
}

func TestListRunsOrdersWithinOneSecond(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	starts := map[string]time.Time{
		"early": base.Add(100 * time.Millisecond),
		"late":  base.Add(150 * time.Millisecond),
		"whole": base,
	}
	for id, started := range starts {
		if err := store.BeginRun(ctx, history.Run{ID: id, WavDir: "/w", DataDir: "/d", StartedAt: started}); err != nil {
			t.Fatalf("BeginRun(%s): %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "late" || runs[1].ID != "early" || runs[2].ID != "whole" {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if !runs[0].StartedAt.Equal(starts["late"]) {
		t.Fatalf("StartedAt = %v, want %v", runs[0].StartedAt, starts["late"])
	}
}

func TestGetRunErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"ab01", "ab02"} {
		if err := store.BeginRun(ctx, history.Run{ID: id, WavDir: "/w", DataDir: "/d"}); err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
	}
	if _, err := store.GetRun(ctx, "ab"); !errors.Is(err, history.ErrAmbiguousID) {
		t.Fatalf("expected ErrAmbiguousID, got %v", err)
	}
	if _, err := store.GetRun(ctx, "zz"); !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := store.GetRun(ctx, "ab02"); err != nil {
		t.Fatalf("GetRun exact: %v", err)
	}
	if err := store.FinishRun(ctx, "missing", history.Result{Status: history.StatusSucceeded}); !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound from FinishRun, got %v", err)
	}
}

func TestRecordStageRequiresRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	err := store.RecordStage(context.Background(), "missing", history.StageRecord{Name: "mfcc", Outcome: "success", StartedAt: time.Now()})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}
