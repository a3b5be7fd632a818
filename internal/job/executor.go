package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"aaxconv/internal/book"
	"aaxconv/internal/encoding"
	"aaxconv/internal/fileutil"
	"aaxconv/internal/logging"
	"aaxconv/internal/metadata"
	"aaxconv/internal/process"
	"aaxconv/internal/services"
)

// Outcome is the terminal result of one job.
type Outcome struct {
	Book       *book.Book
	State      State
	OutputPath string
	Err        error
	Elapsed    time.Duration
}

// Observer is notified of every state the job enters.
type Observer func(b *book.Book, state State)

// Options configures an Executor.
type Options struct {
	Container encoding.Container
	Quality   encoding.Quality
	Tools     encoding.Tools
	ChunkSize int
	Metadata  metadata.Fetcher
	Runner    *process.Runner
	Logger    *slog.Logger
	Observer  Observer
}

// Executor runs jobs. It holds no per-job state and is safe for concurrent
// use.
type Executor struct {
	container encoding.Container
	quality   encoding.Quality
	tools     encoding.Tools
	chunkSize int
	metadata  metadata.Fetcher
	runner    *process.Runner
	logger    *slog.Logger
	observer  Observer
}

// NewExecutor validates opts and returns an Executor.
func NewExecutor(opts Options) (*Executor, error) {
	if opts.Metadata == nil {
		return nil, errors.New("metadata fetcher required")
	}
	if _, err := encoding.ParseContainer(string(opts.Container)); err != nil {
		return nil, err
	}
	if _, err := encoding.ParseQuality(string(opts.Quality)); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	runner := opts.Runner
	if runner == nil {
		runner = process.NewRunner(logger)
	}
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = process.DefaultChunkSize
	}
	return &Executor{
		container: opts.Container,
		quality:   opts.Quality,
		tools:     opts.Tools,
		chunkSize: chunk,
		metadata:  opts.Metadata,
		runner:    runner,
		logger:    logging.NewComponentLogger(logger, "executor"),
		observer:  opts.Observer,
	}, nil
}

// run carries the files one job touches so cleanup can find them.
type run struct {
	book         *book.Book
	logger       *slog.Logger
	intermediate string
	partial      string
	final        string
	sidecars     []string
}

// Run executes the job for b. Metadata is fetched first because every later
// step writes below the derived output path.
func (e *Executor) Run(ctx context.Context, b *book.Book) Outcome {
	started := time.Now()
	ctx = services.WithJob(ctx, b.SourcePath)
	r := &run{
		book:   b,
		logger: logging.WithContext(ctx, e.logger).With(logging.String(logging.FieldASIN, b.ASIN)),
	}

	steps := []struct {
		state State
		fn    func(context.Context, *run) error
	}{
		{MetadataFetch, e.fetchMetadata},
		{Preparing, e.prepare},
		{Transcoding, e.transcode},
		{Muxing, e.mux},
		{Finalizing, e.finalize},
	}

	for _, step := range steps {
		if err := e.enter(ctx, r, step.state); err != nil {
			return e.finish(ctx, r, started, err)
		}
		stepCtx := services.WithState(ctx, step.state.String())
		if err := step.fn(stepCtx, r); err != nil {
			return e.finish(ctx, r, started, err)
		}
	}
	return e.finish(ctx, r, started, nil)
}

func (e *Executor) enter(ctx context.Context, r *run, state State) error {
	if ctx.Err() != nil {
		return services.Cancelled(state.String())
	}
	r.logger.Debug("job state", logging.String(logging.FieldState, state.String()))
	e.notify(r.book, state)
	return nil
}

func (e *Executor) notify(b *book.Book, state State) {
	if e.observer != nil {
		e.observer(b, state)
	}
}

func (e *Executor) finish(ctx context.Context, r *run, started time.Time, err error) Outcome {
	outcome := Outcome{Book: r.book, Elapsed: time.Since(started)}
	switch {
	case err == nil:
		outcome.State = Completed
		outcome.OutputPath = r.final
		r.logger.Info("job completed",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.String("output", r.final),
			logging.Duration("elapsed", outcome.Elapsed),
		)
	case services.IsCancellation(ctx, err) || ctx.Err() != nil:
		outcome.State = Cancelled
		outcome.Err = err
		r.cleanup()
		r.logger.Info("job cancelled", logging.String(logging.FieldEventType, "job_cancelled"))
	default:
		outcome.State = Failed
		outcome.Err = err
		r.cleanup()
		logging.ErrorWithContext(r.logger, "job failed", "job_failure", logging.Error(err))
	}
	e.notify(r.book, outcome.State)
	return outcome
}

func (r *run) cleanup() {
	paths := append([]string{r.intermediate, r.partial}, r.sidecars...)
	if err := fileutil.RemoveFiles(paths...); err != nil {
		r.logger.Warn("failed to remove partial files", logging.Error(err))
	}
}

func (e *Executor) fetchMetadata(ctx context.Context, r *run) error {
	rec, err := e.metadata.Fetch(ctx, r.book.ASIN)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return services.Cancelled("metadata fetch")
	}
	if err := r.book.ApplyMetadata(rec); err != nil {
		return err
	}
	ext := e.container.Policy().Extension
	r.final = r.book.OutputPath(ext)
	r.partial = fileutil.PartialPath(r.final)
	if e.container.Policy().NeedsMux {
		r.intermediate = fileutil.PartialPath(r.book.OutputPath(encoding.IntermediateExtension))
	}
	r.logger.Debug("metadata applied", logging.String("output", r.final))
	return nil
}

func (e *Executor) prepare(ctx context.Context, r *run) error {
	info, err := os.Stat(r.book.OutputBaseDir)
	if err != nil {
		return services.Wrap(services.ErrValidation, "prepare", "stat output base", r.book.OutputBaseDir, err)
	}
	if err := os.MkdirAll(r.book.OutputDir, info.Mode().Perm()); err != nil {
		return services.Wrap(services.ErrValidation, "prepare", "create output dir", r.book.OutputDir, err)
	}
	return nil
}

func (e *Executor) transcode(ctx context.Context, r *run) error {
	target := r.partial
	if r.intermediate != "" {
		target = r.intermediate
	}
	pipeline := process.Pipeline{Runner: e.runner, ChunkSize: e.chunkSize}
	return pipeline.Run(ctx,
		e.tools.DecodeArgs(r.book, e.quality),
		e.tools.EncodeArgs(r.book, e.quality, e.container, target),
	)
}

func (e *Executor) mux(ctx context.Context, r *run) error {
	plan := e.tools.PlanMux(r.book, e.container, r.intermediate, r.partial)
	if plan == nil {
		return nil
	}
	for _, sidecar := range plan.Sidecars {
		if ctx.Err() != nil {
			return services.Cancelled("write sidecar")
		}
		r.sidecars = append(r.sidecars, sidecar.Path)
		if err := os.WriteFile(sidecar.Path, []byte(sidecar.Content), 0o644); err != nil {
			return services.Wrap(services.ErrExternalTool, "mux", "write sidecar", filepath.Base(sidecar.Path), err)
		}
	}
	if err := e.runner.Run(ctx, plan.Args, process.Streams{}); err != nil {
		return err
	}

	if err := fileutil.RemoveFiles(append(r.sidecars, r.intermediate)...); err != nil {
		r.logger.Warn("failed to remove mux inputs", logging.Error(err))
	}
	r.sidecars = nil
	r.intermediate = ""

	if r.book.CoverFile != "" {
		cover := filepath.Join(r.book.OutputDir, "cover.jpg")
		if err := fileutil.CopyFile(r.book.CoverFile, cover); err != nil {
			return services.Wrap(services.ErrExternalTool, "mux", "copy cover", r.book.CoverFile, err)
		}
	}
	return nil
}

func (e *Executor) finalize(ctx context.Context, r *run) error {
	if err := fileutil.Promote(r.partial, r.final); err != nil {
		return services.Wrap(services.ErrExternalTool, "finalize", "rename output", fmt.Sprintf("%s -> %s", r.partial, r.final), err)
	}
	r.partial = ""
	return nil
}
