package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, wav_dir, data_dir, status, outcome, utterances, error_message, log_path, started_at, finished_at"

// BeginRun inserts a run in the running state.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, wav_dir, data_dir, status, utterances, log_path, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.WavDir, run.DataDir, string(StatusRunning), run.Utterances, nullString(run.LogPath), formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordStage appends a stage outcome to a run.
func (s *Store) RecordStage(ctx context.Context, runID string, stage StageRecord) error {
	_, err := s.exec(ctx,
		`INSERT INTO stages (run_id, seq, name, outcome, command, error_message, started_at, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, stage.Seq, stage.Name, stage.Outcome, nullString(stage.Command), nullString(stage.ErrorMessage),
		formatTime(stage.StartedAt), stage.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert stage %s: %w", stage.Name, err)
	}
	return nil
}

// FinishRun records the final state of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, result Result) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, outcome = ?, utterances = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(result.Status), nullString(result.Outcome), result.Utterances, nullString(result.ErrorMessage),
		formatTime(time.Now()), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// ListRuns returns the most recent runs first, without stages. limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun loads a run and its stages. id may be a unique prefix.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}
	pattern := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(id) + "%"
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' ORDER BY id LIMIT 2`, pattern)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		matches = append(matches, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(matches) > 1 && matches[0].ID != id:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
	run := matches[0]
	stages, err := s.stages(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Stages = stages
	return &run, nil
}

func (s *Store) stages(ctx context.Context, runID string) ([]StageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, name, outcome, command, error_message, started_at, duration_ms FROM stages WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	var stages []StageRecord
	for rows.Next() {
		var (
			stage      StageRecord
			command    sql.NullString
			errMessage sql.NullString
			startedRaw string
			durationMS int64
		)
		if err := rows.Scan(&stage.Seq, &stage.Name, &stage.Outcome, &command, &errMessage, &startedRaw, &durationMS); err != nil {
			return nil, err
		}
		stage.Command = command.String
		stage.ErrorMessage = errMessage.String
		stage.StartedAt = parseTime(startedRaw)
		stage.Duration = time.Duration(durationMS) * time.Millisecond
		stages = append(stages, stage)
	}
	return stages, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		status      string
		outcome     sql.NullString
		errMessage  sql.NullString
		logPath     sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.WavDir,
		&run.DataDir,
		&status,
		&outcome,
		&run.Utterances,
		&errMessage,
		&logPath,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Run{}, err
	}
	run.Status = Status(status)
	run.Outcome = outcome.String
	run.ErrorMessage = errMessage.String
	run.LogPath = logPath.String
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	return run, nil
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

// timeLayout is fixed width so that text order in SQLite matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
