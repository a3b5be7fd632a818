package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"aaxconv/internal/book"
	"aaxconv/internal/job"
	"aaxconv/internal/logging"
	"aaxconv/internal/services"
)

// Executor runs one job to a terminal outcome.
type Executor interface {
	Run(ctx context.Context, b *book.Book) job.Outcome
}

// Reporter renders progress and user-facing messages.
type Reporter interface {
	Progress(Snapshot)
	Message(text string)
}

// Recorder persists job outcomes.
type Recorder interface {
	RecordOutcome(ctx context.Context, outcome job.Outcome) error
}

// Options configures a Scheduler.
type Options struct {
	Workers          int
	PollInterval     time.Duration
	ProgressInterval time.Duration
	Logger           *slog.Logger
	Reporter         Reporter
	Recorder         Recorder
}

const (
	defaultWorkers          = 4
	defaultPollInterval     = 100 * time.Millisecond
	defaultProgressInterval = time.Second
)

// Snapshot is a consistent view of the counters. Active + Pending + Done
// always equals Total.
type Snapshot struct {
	Total   int
	Active  int
	Pending int
	// Done counts jobs that reached any terminal state.
	Done      int
	Completed int
	Failed    int
	Cancelled int
}

// Fraction returns the finished share of the run in [0, 1].
func (s Snapshot) Fraction() float64 {
	if s.Total == 0 {
		return 1
	}
	return float64(s.Done) / float64(s.Total)
}

// Summary is the result of a run.
type Summary struct {
	Total     int
	Completed int
	Failed    int
	// Cancelled counts jobs that unwound after starting.
	Cancelled int
	// Skipped counts jobs that never started.
	Skipped      int
	WasCancelled bool
	// Fatal is set when a job reported a broken precondition and the run
	// was aborted.
	Fatal   error
	Started time.Time
	Elapsed time.Duration
}

// ExitCode is 1 if any job failed or the run was cancelled, 0 otherwise.
func (s Summary) ExitCode() int {
	if s.Failed > 0 || s.WasCancelled || s.Fatal != nil {
		return 1
	}
	return 0
}

// ErrRunning is returned when the queue is modified during a run.
var ErrRunning = errors.New("scheduler is running")

// Scheduler is the bounded dispatcher. A Scheduler runs once.
type Scheduler struct {
	exec     Executor
	workers  int
	poll     time.Duration
	progress time.Duration
	logger   *slog.Logger
	reporter Reporter
	recorder Recorder

	mu        sync.Mutex
	pending   []*book.Book
	counts    Snapshot
	running   bool
	cancelled bool
	cancel    context.CancelFunc
}

// New creates a Scheduler around exec.
func New(exec Executor, opts Options) *Scheduler {
	s := &Scheduler{
		exec:     exec,
		workers:  opts.Workers,
		poll:     opts.PollInterval,
		progress: opts.ProgressInterval,
		logger:   logging.NewComponentLogger(opts.Logger, "scheduler"),
		reporter: opts.Reporter,
		recorder: opts.Recorder,
	}
	if s.workers <= 0 {
		s.workers = defaultWorkers
	}
	if s.poll <= 0 {
		s.poll = defaultPollInterval
	}
	if s.progress < s.poll {
		s.progress = max(defaultProgressInterval, s.poll)
	}
	return s
}

// EnqueueAll replaces the pending queue with books sorted by ascending
// duration.
func (s *Scheduler) EnqueueAll(books []*book.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunning
	}
	pending := make([]*book.Book, len(books))
	copy(pending, books)
	book.SortByDuration(pending)
	s.pending = pending
	s.counts = Snapshot{Total: len(pending), Pending: len(pending)}
	return nil
}

// Snapshot returns the current counters.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

// Running reports whether Run is in progress.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Cancel stops the run: no further jobs start and running jobs unwind. It
// reports whether this call requested cancellation; repeated calls and calls
// outside a run are no-ops.
func (s *Scheduler) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.cancelled {
		return false
	}
	s.cancelled = true
	s.cancel()
	s.logger.Info("cancellation requested", logging.String(logging.FieldEventType, "run_cancel"))
	return true
}

// Run dispatches every pending job and blocks until the queue drains or the
// run is cancelled and all in-flight workers have returned.
func (s *Scheduler) Run(ctx context.Context) Summary {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return Summary{Fatal: fmt.Errorf("%w: %w", services.ErrPrecondition, ErrRunning)}
	}
	s.running = true
	s.cancel = cancel
	total := s.counts.Total
	s.mu.Unlock()

	summary := Summary{Total: total, Started: time.Now()}
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("jobs", total),
		logging.Int("workers", s.workers),
	)

	results := make(chan job.Outcome, s.workers)
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	done := runCtx.Done()
	lastProgress := time.Time{}
	for {
		if runCtx.Err() == nil {
			s.dispatch(runCtx, results)
		}
		if time.Since(lastProgress) >= s.progress {
			s.report()
			lastProgress = time.Now()
		}

		snap := s.Snapshot()
		if snap.Active == 0 && (snap.Pending == 0 || runCtx.Err() != nil) {
			break
		}

		select {
		case outcome := <-results:
			if err := s.complete(ctx, outcome); err != nil && summary.Fatal == nil {
				summary.Fatal = err
				cancel()
			}
		case <-done:
			done = nil
		case <-ticker.C:
		}
	}

	s.mu.Lock()
	s.running = false
	counts := s.counts
	summary.WasCancelled = s.cancelled || ctx.Err() != nil
	s.mu.Unlock()
	s.report()

	summary.Completed = counts.Completed
	summary.Failed = counts.Failed
	summary.Cancelled = counts.Cancelled
	summary.Skipped = counts.Pending
	summary.Elapsed = time.Since(summary.Started)

	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Int("cancelled", summary.Cancelled),
		logging.Int("skipped", summary.Skipped),
		logging.Bool("run_cancelled", summary.WasCancelled),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return summary
}

// dispatch starts at most one job when a worker slot is free.
func (s *Scheduler) dispatch(ctx context.Context, results chan<- job.Outcome) {
	s.mu.Lock()
	if s.counts.Active >= s.workers || len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	last := len(s.pending) - 1
	b := s.pending[last]
	s.pending[last] = nil
	s.pending = s.pending[:last]
	s.counts.Pending--
	s.counts.Active++
	s.mu.Unlock()

	s.logger.Debug("job dispatched",
		logging.String(logging.FieldJob, b.SourcePath),
		logging.Duration("duration", b.InputDuration),
	)
	go func() {
		results <- s.exec.Run(ctx, b)
	}()
}

// complete applies one outcome to the counters. It returns the error when
// the outcome is fatal to the run.
func (s *Scheduler) complete(ctx context.Context, outcome job.Outcome) error {
	s.mu.Lock()
	s.counts.Active--
	s.counts.Done++
	switch outcome.State {
	case job.Completed:
		s.counts.Completed++
	case job.Cancelled:
		s.counts.Cancelled++
	default:
		s.counts.Failed++
	}
	s.mu.Unlock()

	if s.recorder != nil {
		if err := s.recorder.RecordOutcome(context.WithoutCancel(ctx), outcome); err != nil {
			s.logger.Warn("failed to record job outcome", logging.Error(err))
		}
	}

	if outcome.State != job.Failed {
		return nil
	}
	if s.reporter != nil {
		s.reporter.Message(failureMessage(outcome))
	}
	if services.IsFatal(outcome.Err) {
		logging.ErrorWithContext(s.logger, "aborting run", "run_abort", logging.Error(outcome.Err))
		return outcome.Err
	}
	return nil
}

func (s *Scheduler) report() {
	if s.reporter != nil {
		s.reporter.Progress(s.Snapshot())
	}
}

func failureMessage(outcome job.Outcome) string {
	name := ""
	if outcome.Book != nil {
		name = outcome.Book.DisplayName()
	}
	msg := services.Describe(outcome.Err)
	if msg == "" {
		msg = "task failed"
	}
	if name == "" {
		return msg
	}
	return name + ": " + msg
}
