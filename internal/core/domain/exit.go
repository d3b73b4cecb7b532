package domain

import (
	"errors"
	"fmt"
)

// ToolFailure carries the exit status of a failed external invocation.
type ToolFailure struct {
	Command string
	Code    int
	Err     error
}

func (e *ToolFailure) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

func (e *ToolFailure) Unwrap() error {
	return e.Err
}

// Is reports every tool failure as ErrExternalToolFailed.
func (e *ToolFailure) Is(target error) bool {
	return target == ErrExternalToolFailed
}

// ExitCode maps an error to a process exit status.
// A tool failure forwards the tool's own status; everything else is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var tf *ToolFailure
	if errors.As(err, &tf) && tf.Code > 0 {
		return tf.Code
	}
	return 1
}
