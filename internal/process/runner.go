package process

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"aaxconv/internal/logging"
	"aaxconv/internal/services"
)

var commandContext = exec.CommandContext

// Stdio selects how one standard stream of a child is wired.
type Stdio int

const (
	// Discard connects the stream to the null device.
	Discard Stdio = iota
	// Inherit shares the parent's stream.
	Inherit
	// Pipe exposes the stream to the caller through Process.
	Pipe
)

// Streams wires stdin, stdout, and stderr independently.
type Streams struct {
	Stdin  Stdio
	Stdout Stdio
	Stderr Stdio
}

// Runner launches external processes.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a Runner. A nil logger discards output.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{logger: logger}
}

// Process is a started child.
type Process struct {
	args    []string
	cmd     *exec.Cmd
	started time.Time
	logger  *slog.Logger

	// Stdin is the write end of the child's stdin when piped.
	Stdin *os.File
	// Stdout is the read end of the child's stdout when piped.
	Stdout *os.File

	done    chan struct{}
	waitErr error
}

// Run starts args and waits for it to exit.
func (r *Runner) Run(ctx context.Context, args []string, streams Streams) error {
	proc, err := r.Start(ctx, args, streams)
	if err != nil {
		return err
	}
	return proc.Wait(ctx)
}

// Start launches args. Piped ends are owned by the caller, who must close
// them; the child's ends are closed once the process is running.
func (r *Runner) Start(ctx context.Context, args []string, streams Streams) (*Process, error) {
	if len(args) == 0 {
		return nil, services.Wrap(services.ErrPrecondition, "process", "start", "empty argument vector", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, services.Cancelled("process start")
	}

	cmd := commandContext(ctx, args[0], args[1:]...) //nolint:gosec
	proc := &Process{
		args:   append([]string(nil), args...),
		cmd:    cmd,
		logger: r.logger,
		done:   make(chan struct{}),
	}

	var childEnds []*os.File
	closeAll := func() {
		for _, f := range childEnds {
			_ = f.Close()
		}
		if proc.Stdin != nil {
			_ = proc.Stdin.Close()
		}
		if proc.Stdout != nil {
			_ = proc.Stdout.Close()
		}
	}

	switch streams.Stdin {
	case Pipe:
		readEnd, writeEnd, err := os.Pipe()
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "process", "stdin pipe", args[0], err)
		}
		cmd.Stdin = readEnd
		proc.Stdin = writeEnd
		childEnds = append(childEnds, readEnd)
	case Inherit:
		cmd.Stdin = os.Stdin
	}

	switch streams.Stdout {
	case Pipe:
		readEnd, writeEnd, err := os.Pipe()
		if err != nil {
			closeAll()
			return nil, services.Wrap(services.ErrExternalTool, "process", "stdout pipe", args[0], err)
		}
		cmd.Stdout = writeEnd
		proc.Stdout = readEnd
		childEnds = append(childEnds, writeEnd)
	case Inherit:
		cmd.Stdout = os.Stdout
	}

	if streams.Stderr == Inherit {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		closeAll()
		if ctx.Err() != nil {
			return nil, services.Cancelled("process start")
		}
		return nil, services.Wrap(services.ErrExternalTool, "process", "start", args[0], err)
	}
	for _, f := range childEnds {
		_ = f.Close()
	}
	proc.started = time.Now()

	r.logger.Debug("process started",
		logging.String("command", args[0]),
		logging.Int("pid", cmd.Process.Pid),
	)

	go func() {
		proc.waitErr = cmd.Wait()
		close(proc.done)
	}()
	return proc, nil
}

// Args returns the argument vector the process was started with.
func (p *Process) Args() []string {
	return append([]string(nil), p.args...)
}

// Wait blocks until the process exits or ctx is cancelled. On cancellation
// the child is killed and reaped before Wait returns ErrCancelled.
func (p *Process) Wait(ctx context.Context) error {
	select {
	case <-p.done:
	case <-ctx.Done():
		p.Kill()
		<-p.done
		p.logger.Debug("process killed on cancellation", logging.String("command", p.args[0]))
		return services.Cancelled(p.args[0])
	}

	p.logger.Debug("process exited",
		logging.String("command", p.args[0]),
		logging.Int("exit_code", p.cmd.ProcessState.ExitCode()),
		logging.Duration("elapsed", time.Since(p.started)),
	)

	if p.waitErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return services.Cancelled(p.args[0])
	}
	var exitErr *exec.ExitError
	if errors.As(p.waitErr, &exitErr) {
		return services.NewProcessError(p.args, exitErr.ExitCode())
	}
	return services.Wrap(services.ErrExternalTool, "process", "wait", p.args[0], p.waitErr)
}

// Kill terminates the child if it is still running.
func (p *Process) Kill() {
	select {
	case <-p.done:
		return
	default:
	}
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}
