package process_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"aaxconv/internal/process"
	"aaxconv/internal/services"
	"aaxconv/internal/testsupport"
)

func TestRunnerSuccess(t *testing.T) {
	stub := testsupport.WriteStub(t, t.TempDir(), "ok", "exit 0")
	if err := process.NewRunner(nil).Run(context.Background(), []string{stub}, process.Streams{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestRunnerNonZeroExitCarriesArgsAndCode(t *testing.T) {
	stub := testsupport.WriteStub(t, t.TempDir(), "fail", "exit 3")
	args := []string{stub, "--flag", "two words"}

	err := process.NewRunner(nil).Run(context.Background(), args, process.Streams{})
	var procErr *services.ProcessError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ProcessError, got %v", err)
	}
	if procErr.ExitCode != 3 || !slices.Equal(procErr.Args, args) {
		t.Fatalf("unexpected process error %+v", procErr)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("process error should classify as external tool failure")
	}
}

func TestRunnerMissingBinary(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	err := process.NewRunner(nil).Run(context.Background(), []string{missing}, process.Streams{})
	var procErr *services.ProcessError
	if errors.As(err, &procErr) || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected start failure, got %v", err)
	}
}

func TestRunnerCancelKillsChild(t *testing.T) {
	stub := testsupport.WriteStub(t, t.TempDir(), "slow", "exec sleep 30")
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	err := process.NewRunner(nil).Run(ctx, []string{stub}, process.Streams{})
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancellation took %v", elapsed)
	}
}

func TestRunnerCancelledBeforeStart(t *testing.T) {
	stub := testsupport.WriteStub(t, t.TempDir(), "ok", "exit 0")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := process.NewRunner(nil).Run(ctx, []string{stub}, process.Streams{}); !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
