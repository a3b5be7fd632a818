package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"aaxconv/internal/job"
	"aaxconv/internal/scheduler"
	"aaxconv/internal/services"
)

// ErrRunNotFound is returned when no run matches a lookup.
var ErrRunNotFound = errors.New("run not found")

// RunInfo describes a run at start.
type RunInfo struct {
	Container string
	Quality   string
	Workers   int
	Total     int
}

// Run is a row of the runs table.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Container    string
	Quality      string
	Workers      int
	Total        int
	Completed    int
	Failed       int
	Cancelled    int
	Skipped      int
	WasCancelled bool
	Elapsed      time.Duration
}

// Finished reports whether FinishRun was recorded for the run.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Job is a row of the jobs table.
type Job struct {
	ID           int64
	RunID        string
	SourcePath   string
	ASIN         string
	Title        string
	State        string
	OutputPath   string
	ErrorMessage string
	Elapsed      time.Duration
	FinishedAt   time.Time
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(value sql.NullString) time.Time {
	if !value.Valid || value.String == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, value.String)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

// StartRun inserts a new run and returns its identifier.
func (s *Store) StartRun(ctx context.Context, info RunInfo) (string, error) {
	id := uuid.NewString()
	err := s.exec(ctx,
		`INSERT INTO runs (id, started_at, container, quality, workers, total)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, now(), info.Container, info.Quality, info.Workers, info.Total,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// RecordJob appends a job outcome to a run.
func (s *Store) RecordJob(ctx context.Context, runID string, outcome job.Outcome) error {
	var sourcePath, asin, title string
	if outcome.Book != nil {
		sourcePath = outcome.Book.SourcePath
		asin = outcome.Book.ASIN
		title, _ = outcome.Book.Tags.Get("title")
	}
	var message string
	if outcome.Err != nil {
		message = services.Describe(outcome.Err)
	}
	err := s.exec(ctx,
		`INSERT INTO jobs (run_id, source_path, asin, title, state, output_path, error_message, elapsed_ms, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, sourcePath, nullable(asin), nullable(title), outcome.State.String(),
		nullable(outcome.OutputPath), nullable(message), outcome.Elapsed.Milliseconds(), now(),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// FinishRun stores the final counters of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, summary scheduler.Summary) error {
	err := s.exec(ctx,
		`UPDATE runs SET finished_at = ?, completed = ?, failed = ?, cancelled = ?, skipped = ?,
		 was_cancelled = ?, elapsed_ms = ? WHERE id = ?`,
		now(), summary.Completed, summary.Failed, summary.Cancelled, summary.Skipped,
		summary.WasCancelled, summary.Elapsed.Milliseconds(), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, container, quality, workers, total,
	completed, failed, cancelled, skipped, was_cancelled, elapsed_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		startedAt  sql.NullString
		finishedAt sql.NullString
		elapsedMS  int64
	)
	err := row.Scan(&run.ID, &startedAt, &finishedAt, &run.Container, &run.Quality, &run.Workers,
		&run.Total, &run.Completed, &run.Failed, &run.Cancelled, &run.Skipped, &run.WasCancelled, &elapsedMS)
	if err != nil {
		return Run{}, err
	}
	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt)
	run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return run, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FindRun resolves a full run ID or a unique prefix of one.
func (s *Store) FindRun(ctx context.Context, idOrPrefix string) (Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return Run{}, ErrRunNotFound
	}
	pattern := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(idOrPrefix) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' ORDER BY rowid DESC LIMIT 2`, pattern)
	if err != nil {
		return Run{}, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch len(matches) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return Run{}, fmt.Errorf("run prefix %q is ambiguous", idOrPrefix)
	}
}

// JobsForRun returns the recorded jobs of a run in insertion order.
func (s *Store) JobsForRun(ctx context.Context, runID string) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, source_path, asin, title, state, output_path, error_message, elapsed_ms, finished_at
		 FROM jobs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			item                         Job
			asin, title, output, message sql.NullString
			finishedAt                   sql.NullString
			elapsedMS                    int64
		)
		if err := rows.Scan(&item.ID, &item.RunID, &item.SourcePath, &asin, &title, &item.State,
			&output, &message, &elapsedMS, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		item.ASIN = asin.String
		item.Title = title.String
		item.OutputPath = output.String
		item.ErrorMessage = message.String
		item.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		item.FinishedAt = parseTime(finishedAt)
		jobs = append(jobs, item)
	}
	return jobs, rows.Err()
}
