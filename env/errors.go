package env

import (
	"fmt"
	"syscall"
)

// ProcessError indicates that a command run with RunOptions.Check exited unsuccessfully. The
// full execution result stays available under Result.
type ProcessError struct {
	Result *CompletedProcess
}

// Error returns the error message.
func (e *ProcessError) Error() string {
	result := e.Result
	switch {
	case result.ExitCode < 0:
		return fmt.Sprintf(
			"command %q died with signal %s",
			result.Args[0],
			syscall.Signal(-result.ExitCode),
		)
	case result.ExitCode > 0:
		return fmt.Sprintf(
			"command %q returned non-zero exit status %d",
			result.Args[0],
			result.ExitCode,
		)
	default:
		return fmt.Sprintf("command %q completed successfully", result.Args[0])
	}
}
