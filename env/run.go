package env

import (
	"bytes"
	"fmt"
	"os/exec"
	"syscall"

	"github.com/kballard/go-shellquote"
)

// RunOptions adjusts a single command invocation.
type RunOptions struct {
	// Input is sent to the command's standard input.
	Input []byte
	// Dir overrides the working directory for this invocation. It is resolved against the
	// environment's working directory.
	Dir string
	// Check turns a non-zero exit status into a *ProcessError from Run.
	Check bool
}

// CompletedProcess holds everything known about a finished command.
type CompletedProcess struct {
	// Args is the executed command line, including the executable.
	Args []string
	// ExitCode is the command's exit status. A command killed by a signal reports the negated
	// signal number.
	ExitCode int
	// Stdout and Stderr hold the captured output streams.
	Stdout []byte
	Stderr []byte
}

// Command builds an exec.Cmd for this environment without starting it. The command may be a
// string, split on shell quoting rules, or a []string used as-is. The command runs with the
// environment's variables and working directory.
func (e *Environment) Command(command any, options RunOptions) (*exec.Cmd, error) {
	var args []string
	switch typed := command.(type) {
	case string:
		split, err := shellquote.Split(typed)
		if err != nil {
			return nil, fmt.Errorf("failed to split command %q (%w)", typed, err)
		}
		args = split
	case []string:
		args = typed
	default:
		return nil, fmt.Errorf("unsupported command type %T, expected string or []string", command)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("cannot run an empty command")
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Env = e.environ()
	if options.Dir != "" {
		cmd.Dir = e.Path(options.Dir)
	} else {
		cmd.Dir = e.cwd
	}
	if len(options.Input) > 0 {
		cmd.Stdin = bytes.NewReader(options.Input)
	}
	return cmd, nil
}

// Run executes a command and waits for it. Output streams are captured. A command that fails
// to start returns an error; a command that exits non-zero only returns an error (a
// *ProcessError) when options.Check is set.
func (e *Environment) Run(command any, options RunOptions) (*CompletedProcess, error) {
	cmd, err := e.Command(command, options)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			return nil, fmt.Errorf("failed to run command %q (%w)", cmd.Args[0], runErr)
		}
	}

	result := &CompletedProcess{
		Args:     cmd.Args,
		ExitCode: exitCode(cmd),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}
	if options.Check && result.ExitCode != 0 {
		return result, &ProcessError{Result: result}
	}
	return result, nil
}

// Start launches a command without waiting for it. The returned exec.Cmd has been started and
// the caller owns the Wait call. Output streams are not captured; configure streaming through
// Command instead if needed.
func (e *Environment) Start(command any, options RunOptions) (*exec.Cmd, error) {
	cmd, err := e.Command(command, options)
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command %q (%w)", cmd.Args[0], err)
	}
	return cmd, nil
}

// exitCode extracts the exit status, mapping death by signal to the negated signal number.
func exitCode(cmd *exec.Cmd) int {
	state := cmd.ProcessState
	if state == nil {
		return -1
	}
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return -int(status.Signal())
	}
	return state.ExitCode()
}
