package testsupport

import (
	"context"
	"strings"

	"github.com/temirov/mdk/internal/execshell"
)

const (
	argumentJoinSeparatorConstant = " "
	repositoryProbePrefixConstant = "rev-parse --is-inside-work-tree"
)

// ScriptedResponse is returned for invocations whose argument line starts with Prefix.
type ScriptedResponse struct {
	Prefix string
	Result execshell.ExecutionResult
	Error  error
}

// ScriptedGitExecutor records every command and answers from its script.
// Unscripted commands succeed with empty output. The repository probe prints
// "true" unless NotRepository (git fails) or BareRepository (git prints "false") is set.
//
// When Cancel is set it is called after the first command whose argument line
// starts with CancelAfterPrefix. Commands executed with an already cancelled
// context are listed in CancelledCommands.
type ScriptedGitExecutor struct {
	NotRepository     bool
	BareRepository    bool
	Responses         []ScriptedResponse
	CancelAfterPrefix string
	Cancel            context.CancelFunc
	ExecutedCommands  []execshell.ShellCommand
	CancelledCommands []string
}

// Execute implements gitrepo.GitExecutor.
func (executor *ScriptedGitExecutor) Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	executor.ExecutedCommands = append(executor.ExecutedCommands, command)
	argumentLine := strings.Join(command.Details.Arguments, argumentJoinSeparatorConstant)
	isProbe := strings.HasPrefix(argumentLine, repositoryProbePrefixConstant)

	if executionContext.Err() != nil && !isProbe {
		executor.CancelledCommands = append(executor.CancelledCommands, argumentLine)
	}
	if executor.Cancel != nil && !isProbe && strings.HasPrefix(argumentLine, executor.CancelAfterPrefix) {
		defer executor.Cancel()
	}

	if isProbe {
		switch {
		case executor.NotRepository:
			failed := execshell.ExecutionResult{ExitCode: 128, StandardError: "fatal: not a git repository"}
			return failed, execshell.CommandFailedError{Command: command, Result: failed}
		case executor.BareRepository:
			return execshell.ExecutionResult{StandardOutput: "false\n"}, nil
		default:
			return execshell.ExecutionResult{StandardOutput: "true\n"}, nil
		}
	}

	for _, response := range executor.Responses {
		if !strings.HasPrefix(argumentLine, response.Prefix) {
			continue
		}
		if response.Error != nil {
			return execshell.ExecutionResult{}, response.Error
		}
		if response.Result.ExitCode != 0 {
			return response.Result, execshell.CommandFailedError{Command: command, Result: response.Result}
		}
		return response.Result, nil
	}
	return execshell.ExecutionResult{}, nil
}

// ArgumentLines returns the executed commands, skipping repository probes, as space-joined argument lines.
func (executor *ScriptedGitExecutor) ArgumentLines() []string {
	lines := []string{}
	for _, command := range executor.ExecutedCommands {
		line := strings.Join(command.Details.Arguments, argumentJoinSeparatorConstant)
		if strings.HasPrefix(line, repositoryProbePrefixConstant) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
