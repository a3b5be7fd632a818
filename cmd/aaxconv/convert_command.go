package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"aaxconv/internal/book"
	"aaxconv/internal/config"
	"aaxconv/internal/encoding"
	"aaxconv/internal/history"
	"aaxconv/internal/job"
	"aaxconv/internal/logging"
	"aaxconv/internal/metadata"
	"aaxconv/internal/notifications"
	"aaxconv/internal/preflight"
	"aaxconv/internal/process"
	"aaxconv/internal/progress"
	"aaxconv/internal/scheduler"
	"aaxconv/internal/textutil"
)

const timeLayout = "2006-01-02 15:04:05.000"

type convertOptions struct {
	outputDir     string
	container     string
	quality       string
	workers       int
	quiet         bool
	combineTitles bool
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert <file.aaxc|dir>...",
		Short: "Convert aaxc files to Opus audiobooks",
		Long: "Convert one or more aaxc files, or every aaxc file in a directory.\n" +
			"Each file needs its .voucher and -chapters.json companions next to it.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCfg, err := applyConvertFlags(cmd, *cfg, opts)
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(runCfg)
			if err != nil {
				return err
			}
			code, err := runConvert(cmd.Context(), runCfg, logger, args, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts.quiet)
			if err != nil {
				return err
			}
			if code != 0 {
				return exitCodeError{code: code}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.outputDir, "output", "o", "", "Output directory (default from config)")
	flags.StringVarP(&opts.container, "container", "c", "", "Output container: "+joinContainers())
	flags.StringVarP(&opts.quality, "quality", "q", "", "Encoding quality: "+joinQualities())
	flags.IntVarP(&opts.workers, "threads", "t", 0, "Maximum concurrent jobs (default from config)")
	flags.BoolVar(&opts.quiet, "quiet", false, "Suppress progress and messages")
	flags.BoolVar(&opts.combineTitles, "combine-chapter-titles", false, "Prefix nested chapter titles with their parent title")
	return cmd
}

// applyConvertFlags layers explicitly set flags over the loaded config and
// revalidates the result.
func applyConvertFlags(cmd *cobra.Command, cfg config.Config, opts convertOptions) (*config.Config, error) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		dir, err := config.ExpandPath(opts.outputDir)
		if err != nil {
			return nil, fmt.Errorf("resolve output directory: %w", err)
		}
		cfg.Paths.OutputDir = dir
	}
	if flags.Changed("container") {
		cfg.Encoding.Container = opts.container
	}
	if flags.Changed("quality") {
		cfg.Encoding.Quality = opts.quality
	}
	if flags.Changed("threads") {
		cfg.Encoding.Workers = opts.workers
	}
	if flags.Changed("combine-chapter-titles") {
		cfg.Encoding.CombineChapterTitles = opts.combineTitles
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func runConvert(ctx context.Context, cfg *config.Config, logger *slog.Logger, inputs []string, stdout, stderr io.Writer, quiet bool) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := preflight.Conversion(cfg, cfg.Paths.OutputDir); err != nil {
		return 1, err
	}

	discovery, err := book.Discover(inputs)
	if err != nil {
		return 1, err
	}
	if len(discovery.Ignored) > 0 && !quiet {
		fmt.Fprintf(stderr, "Warning: input is a directory, ignoring: %s\n", strings.Join(discovery.Ignored, ", "))
	}

	books, err := book.LoadAll(discovery.Files, cfg.Paths.OutputDir, book.LoadOptions{
		CombineTitles: cfg.Encoding.CombineChapterTitles,
	})
	if err != nil {
		return 1, err
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return 1, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return 1, fmt.Errorf("another aaxconv conversion is already running (lock %s)", cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("release run lock failed", logging.Error(err))
		}
	}()

	ledger := openLedger(ctx, cfg, logger, len(books))
	if ledger != nil {
		defer ledger.close()
		logger = logger.With(logging.String(logging.FieldRunID, ledger.runID))
	}

	client, err := metadata.New(cfg.Metadata.BaseURL, cfg.MetadataTimeout(), metadata.WithUserAgent(cfg.Metadata.UserAgent))
	if err != nil {
		return 1, err
	}

	executor, err := job.NewExecutor(job.Options{
		Container: cfg.Container(),
		Quality:   cfg.Quality(),
		Tools:     cfg.Tools(),
		ChunkSize: cfg.ChunkSize(),
		Metadata:  client,
		Runner:    process.NewRunner(logger),
		Logger:    logger,
		Observer: func(b *book.Book, state job.State) {
			logger.Debug("job state",
				logging.String(logging.FieldJob, b.DisplayName()),
				logging.String(logging.FieldState, state.String()),
			)
		},
	})
	if err != nil {
		return 1, err
	}

	console := progress.New(stdout, progress.Options{Quiet: quiet})

	opts := scheduler.Options{
		Workers:          cfg.Encoding.Workers,
		PollInterval:     cfg.PollInterval(),
		ProgressInterval: cfg.ProgressInterval(),
		Logger:           logger,
		Reporter:         console,
	}
	if ledger != nil {
		opts.Recorder = ledger.recorder
	}
	sched := scheduler.New(executor, opts)
	if err := sched.EnqueueAll(books); err != nil {
		return 1, err
	}

	stopSignals := cancelOnSignal(sched, console)
	defer stopSignals()

	console.Printf("Enqueued %d jobs at: %s", len(books), time.Now().Format(timeLayout))
	summary := sched.Run(ctx)
	console.Finish()

	if ledger != nil {
		ledger.finish(summary)
	}

	notifier := notifications.NewService(cfg)
	notifyCtx := context.WithoutCancel(ctx)
	if summary.Fatal != nil {
		logging.ErrorWithContext(logger, "run aborted", "run_fatal", logging.Error(summary.Fatal))
		if err := notifier.NotifyError(notifyCtx, summary.Fatal, "convert"); err != nil {
			logger.Warn("notification failed", logging.Error(err))
		}
		return 1, summary.Fatal
	}
	console.Message(finishLine(summary, time.Now()))
	if err := notifier.NotifyRunCompleted(notifyCtx, notifications.RunReport{
		Total:        summary.Total,
		Completed:    summary.Completed,
		Failed:       summary.Failed,
		Cancelled:    summary.Cancelled + summary.Skipped,
		WasCancelled: summary.WasCancelled,
		Elapsed:      summary.Elapsed,
	}); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notify_failed", logging.Error(err))
	}
	return summary.ExitCode(), nil
}

func finishLine(summary scheduler.Summary, at time.Time) string {
	status := "successfully"
	switch {
	case summary.WasCancelled:
		status = "after cancellation"
		if summary.Failed > 0 {
			status += " with " + textutil.Plural(summary.Failed, "failure")
		}
	case summary.Failed > 0:
		status = "with " + textutil.Plural(summary.Failed, "failure")
	}
	return fmt.Sprintf("Finished at %s %s, elapsed: %.3fs", at.Format(timeLayout), status, summary.Elapsed.Seconds())
}

// cancelOnSignal turns SIGINT and SIGTERM into a scheduler cancellation. The
// returned func stops listening.
func cancelOnSignal(sched *scheduler.Scheduler, console *progress.Console) func() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-signals:
				if sched.Cancel() {
					console.Message("\nCancelling, please wait…\n")
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(signals)
		close(done)
	}
}

// runLedger ties a conversion to its history row. Every ledger error is
// logged and otherwise ignored.
type runLedger struct {
	store    *history.Store
	runID    string
	recorder *history.RunRecorder
	logger   *slog.Logger
	ctx      context.Context
}

func openLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger, total int) *runLedger {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := history.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the history database to reset it"),
		)
		return nil
	}
	runID, err := store.StartRun(ctx, history.RunInfo{
		Container: cfg.Container().String(),
		Quality:   string(cfg.Quality()),
		Workers:   cfg.Encoding.Workers,
		Total:     total,
	})
	if err != nil {
		logging.WarnWithContext(logger, "history run start failed", "history_write_failed", logging.Error(err))
		_ = store.Close()
		return nil
	}
	return &runLedger{
		store:    store,
		runID:    runID,
		recorder: store.Recorder(runID),
		logger:   logger,
		ctx:      context.WithoutCancel(ctx),
	}
}

func (l *runLedger) finish(summary scheduler.Summary) {
	if err := l.store.FinishRun(l.ctx, l.runID, summary); err != nil {
		logging.WarnWithContext(l.logger, "history run finish failed", "history_write_failed", logging.Error(err))
	}
}

func (l *runLedger) close() {
	if err := l.store.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		l.logger.Warn("close history failed", logging.Error(err))
	}
}

func joinContainers() string {
	names := make([]string, 0, 3)
	for _, c := range encoding.Containers() {
		names = append(names, c.String())
	}
	return strings.Join(names, ", ")
}

func joinQualities() string {
	names := make([]string, 0, 3)
	for _, q := range encoding.Qualities() {
		names = append(names, string(q))
	}
	return strings.Join(names, ", ")
}
