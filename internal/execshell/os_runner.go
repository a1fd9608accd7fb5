package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"
)

const (
	environmentAssignmentTemplateConstant = "%s=%s"
	workingDirectoryErrorTemplateConstant = "working directory %s is unusable: %v"
	notDirectoryMessageConstant           = "not a directory"
	processWaitDelayConstant              = 2 * time.Second
)

var errNotDirectory = errors.New(notDirectoryMessageConstant)

// WorkingDirectoryError reports a working directory that does not exist or is not a directory.
type WorkingDirectoryError struct {
	Path  string
	Cause error
}

// Error describes the unusable directory.
func (directoryError WorkingDirectoryError) Error() string {
	return fmt.Sprintf(workingDirectoryErrorTemplateConstant, directoryError.Path, directoryError.Cause)
}

// Unwrap exposes the underlying cause.
func (directoryError WorkingDirectoryError) Unwrap() error {
	return directoryError.Cause
}

// OSCommandRunner executes commands as child processes of the current program.
// It applies no timeout: a process that never exits blocks until the supplied
// context is cancelled. After cancellation Run waits at most processWaitDelayConstant
// for the output pipes to close.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs a runner backed by os/exec.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// Run starts the command, waits for it and captures both output streams.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if workingDirectory := command.Details.WorkingDirectory; len(workingDirectory) > 0 {
		directoryInfo, statError := os.Stat(workingDirectory)
		if statError != nil {
			return ExecutionResult{}, WorkingDirectoryError{Path: workingDirectory, Cause: statError}
		}
		if !directoryInfo.IsDir() {
			return ExecutionResult{}, WorkingDirectoryError{Path: workingDirectory, Cause: errNotDirectory}
		}
	}

	process := exec.CommandContext(executionContext, string(command.Name), append([]string{}, command.Details.Arguments...)...)
	process.Dir = command.Details.WorkingDirectory
	// Grandchildren such as a bisect test command may hold the output pipes open after git is killed.
	process.WaitDelay = processWaitDelayConstant
	process.Env = mergeEnvironment(os.Environ(), command.Details.EnvironmentVariables)

	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	process.Stdout = &standardOutput
	process.Stderr = &standardError
	if len(command.Details.StandardInput) > 0 {
		process.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	runError := process.Run()
	result := ExecutionResult{
		StandardOutput: standardOutput.String(),
		StandardError:  standardError.String(),
	}
	if runError == nil {
		return result, nil
	}

	if errors.Is(runError, exec.ErrWaitDelay) && executionContext.Err() == nil {
		return result, nil
	}
	var exitError *exec.ExitError
	if errors.As(runError, &exitError) && executionContext.Err() == nil {
		result.ExitCode = exitError.ExitCode()
		return result, nil
	}
	if contextError := executionContext.Err(); contextError != nil {
		return ExecutionResult{}, contextError
	}
	return ExecutionResult{}, runError
}

// mergeEnvironment returns nil when no overrides exist so the child inherits the parent environment.
func mergeEnvironment(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil
	}
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	merged := append([]string{}, base...)
	for _, key := range keys {
		merged = append(merged, fmt.Sprintf(environmentAssignmentTemplateConstant, key, overrides[key]))
	}
	return merged
}
