package services

import (
	"fmt"

	"github.com/kballard/go-shellquote"
)

// ProcessError reports an external process that exited with a non-zero status.
type ProcessError struct {
	Args     []string
	ExitCode int
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("exec failed with code %d: %q", e.ExitCode, e.Command())
}

// Command returns the argument vector quoted for display in a shell.
func (e *ProcessError) Command() string {
	return shellquote.Join(e.Args...)
}

func (e *ProcessError) Unwrap() error {
	return ErrExternalTool
}

// NewProcessError copies args so later mutation by the caller cannot change the report.
func NewProcessError(args []string, code int) *ProcessError {
	return &ProcessError{Args: append([]string(nil), args...), ExitCode: code}
}
