package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrMetadata      = errors.New("metadata unavailable")
	ErrPrecondition  = errors.New("precondition violated")
	ErrCancelled     = errors.New("operation cancelled")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Cancelled returns an ErrCancelled error annotated with the step that observed it.
func Cancelled(stage string) error {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %s", ErrCancelled, stage)
}

// IsCancellation reports whether err is a cooperative unwind rather than a
// genuine failure. Context cancellation counts, as do pipe teardown artifacts
// when ctx is already done.
func IsCancellation(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		return true
	}
	if ctx == nil || ctx.Err() == nil {
		return false
	}
	return IsPipeTeardown(err)
}

// IsPipeTeardown reports whether err is the kind of I/O error produced by a
// pipe closed underneath a reader or writer.
func IsPipeTeardown(err error) bool {
	switch {
	case errors.Is(err, syscall.EPIPE),
		errors.Is(err, os.ErrClosed),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	return false
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrPrecondition)
}

// Describe renders a single-line, user-facing cause for a failed job.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var procErr *ProcessError
	if errors.As(err, &procErr) {
		return procErr.Error()
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	return "task failed: " + msg
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
