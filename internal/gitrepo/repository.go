package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/temirov/mdk/internal/execshell"
)

const (
	// DetachedHeadSentinel is reported by CurrentBranch when HEAD is not a branch.
	DetachedHeadSentinel = "HEAD"
	// OriginRemoteName names the remote that stable branches are tracked from.
	OriginRemoteName = "origin"
	// DefaultExecutable is the git binary resolved through PATH.
	DefaultExecutable = "git"

	stashEmptyOutputPrefixConstant = "No local changes"

	gitRevParseSubcommandConstant    = "rev-parse"
	gitInsideWorkTreeFlagConstant    = "--is-inside-work-tree"
	insideWorkTreeAnswerConstant     = "true"
	gitSymbolicRefSubcommandConstant = "symbolic-ref"
	gitQuietShortFlagConstant        = "-q"
	gitHeadReferenceConstant         = "HEAD"
	gitHeadsPrefixConstant           = "refs/heads/"
	gitRemotesPrefixConstant         = "refs/remotes/"
	gitShowRefSubcommandConstant     = "show-ref"
	gitVerifyFlagConstant            = "--verify"
	gitQuietFlagConstant             = "--quiet"
	gitBranchSubcommandConstant      = "branch"
	gitTrackFlagConstant             = "--track"
	gitCheckoutSubcommandConstant    = "checkout"
	gitResetSubcommandConstant       = "reset"
	gitHardFlagConstant              = "--hard"
	gitFetchSubcommandConstant       = "fetch"
	gitPullSubcommandConstant        = "pull"
	gitPushSubcommandConstant        = "push"
	gitForceFlagConstant             = "--force"
	gitCherryPickSubcommandConstant  = "cherry-pick"
	gitRebaseSubcommandConstant      = "rebase"
	gitOntoFlagConstant              = "--onto"
	gitStashSubcommandConstant       = "stash"
	gitIncludeUntrackedFlagConstant  = "--include-untracked"
	gitStatusSubcommandConstant      = "status"
	gitConfigSubcommandConstant      = "config"
	gitGetFlagConstant               = "--get"
	gitRemoteSubcommandConstant      = "remote"
	gitAddSubcommandConstant         = "add"
	gitRevListSubcommandConstant     = "rev-list"
	gitMaxCountFlagTemplateConstant  = "--max-count=%d"
	gitBeforeFlagTemplateConstant    = "--before=%s"
	gitBisectSubcommandConstant      = "bisect"
	gitBisectStartSubcommandConstant = "start"
	gitBisectRunSubcommandConstant   = "run"
	gitBisectResetSubcommandConst    = "reset"
	gitBisectLogSubcommandConstant   = "log"
	cherryPickRangeTemplateConstant  = "%s/%s..%s/%s"
	remoteReferenceTemplateConstant  = "%s/%s"

	gitTerminalPromptEnvironmentNameConstant = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentDisableConst = "0"
	revisionListLineSeparatorConstant        = "\n"
)

// StashCommand selects the stash subcommand.
type StashCommand string

// Supported stash subcommands.
const (
	StashSave StashCommand = "save"
	StashPop  StashCommand = "pop"
)

// GitExecutor runs git invocations on behalf of a Repository.
type GitExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// RevisionQuery narrows a rev-list lookup.
type RevisionQuery struct {
	Reference string
	Limit     int
	Before    time.Time
}

// Repository is a typed facade over one working directory.
type Repository struct {
	executor   GitExecutor
	path       string
	executable string
}

// RepositoryOption customizes a Repository.
type RepositoryOption func(repository *Repository)

// WithExecutable overrides the git binary used for every invocation.
func WithExecutable(executable string) RepositoryOption {
	return func(repository *Repository) {
		trimmedExecutable := strings.TrimSpace(executable)
		if len(trimmedExecutable) > 0 {
			repository.executable = trimmedExecutable
		}
	}
}

// NewRepository binds a Repository to path. The path itself is validated lazily by each operation.
func NewRepository(executor GitExecutor, path string, options ...RepositoryOption) (*Repository, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return nil, ErrRepositoryPathRequired
	}

	repository := &Repository{executor: executor, path: trimmedPath, executable: DefaultExecutable}
	for _, option := range options {
		if option != nil {
			option(repository)
		}
	}
	return repository, nil
}

// Path returns the bound working directory.
func (repository *Repository) Path() string {
	return repository.path
}

// Executable returns the git binary used by the repository.
func (repository *Repository) Executable() string {
	return repository.executable
}

// IsRepository reports whether the bound path passes the repository probe.
func (repository *Repository) IsRepository(executionContext context.Context) bool {
	valid, _ := repository.probe(executionContext)
	return valid
}

// CurrentBranch returns the checked out branch or DetachedHeadSentinel.
func (repository *Repository) CurrentBranch(executionContext context.Context) (string, error) {
	result, executionError := repository.run(executionContext, gitSymbolicRefSubcommandConstant, gitQuietShortFlagConstant, gitHeadReferenceConstant)
	if executionError != nil {
		if errors.Is(executionError, ErrNotRepository) {
			return "", executionError
		}
		return DetachedHeadSentinel, nil
	}
	if result.ExitCode != 0 {
		return DetachedHeadSentinel, nil
	}
	branchName := strings.TrimPrefix(strings.TrimSpace(result.StandardOutput), gitHeadsPrefixConstant)
	if len(branchName) == 0 {
		return DetachedHeadSentinel, nil
	}
	return branchName, nil
}

// HasBranch reports whether a local branch, or remote-tracking branch when remoteName is set, exists.
func (repository *Repository) HasBranch(executionContext context.Context, branchName string, remoteName string) (bool, error) {
	reference := gitHeadsPrefixConstant + branchName
	if trimmedRemote := strings.TrimSpace(remoteName); len(trimmedRemote) > 0 {
		reference = gitRemotesPrefixConstant + trimmedRemote + "/" + branchName
	}
	return repository.succeeds(executionContext, gitShowRefSubcommandConstant, gitVerifyFlagConstant, gitQuietFlagConstant, reference)
}

// CreateBranch creates branchName, tracking trackReference when one is given.
func (repository *Repository) CreateBranch(executionContext context.Context, branchName string, trackReference string) (bool, error) {
	arguments := []string{gitBranchSubcommandConstant}
	if trimmedTrack := strings.TrimSpace(trackReference); len(trimmedTrack) > 0 {
		arguments = append(arguments, gitTrackFlagConstant, branchName, trimmedTrack)
	} else {
		arguments = append(arguments, branchName)
	}
	return repository.succeeds(executionContext, arguments...)
}

// Checkout switches to branchName. Being on that branch already, by name, counts as success.
func (repository *Repository) Checkout(executionContext context.Context, branchName string) (bool, error) {
	currentBranch, currentBranchError := repository.CurrentBranch(executionContext)
	if currentBranchError != nil {
		return false, currentBranchError
	}
	if currentBranch == branchName {
		return true, nil
	}
	return repository.succeeds(executionContext, gitCheckoutSubcommandConstant, branchName)
}

// Reset moves the current branch to reference. Every reset is hard; the flag only records caller intent.
func (repository *Repository) Reset(executionContext context.Context, reference string, _ bool) (bool, error) {
	return repository.succeeds(executionContext, gitResetSubcommandConstant, gitHardFlagConstant, reference)
}

// Fetch runs git fetch; empty arguments are omitted.
func (repository *Repository) Fetch(executionContext context.Context, remoteName string, referenceSpec string) (execshell.ExecutionResult, error) {
	arguments := appendNonEmpty([]string{gitFetchSubcommandConstant}, remoteName, referenceSpec)
	return repository.runNetwork(executionContext, arguments...)
}

// Pull runs git pull; empty arguments are omitted.
func (repository *Repository) Pull(executionContext context.Context, remoteName string, referenceSpec string) (execshell.ExecutionResult, error) {
	arguments := appendNonEmpty([]string{gitPullSubcommandConstant}, remoteName, referenceSpec)
	return repository.runNetwork(executionContext, arguments...)
}

// Push publishes branchName to remoteName.
func (repository *Repository) Push(executionContext context.Context, remoteName string, branchName string, force bool) (execshell.ExecutionResult, error) {
	arguments := []string{gitPushSubcommandConstant}
	if force {
		arguments = append(arguments, gitForceFlagConstant)
	}
	arguments = appendNonEmpty(arguments, remoteName, branchName)
	return repository.runNetwork(executionContext, arguments...)
}

// CherryPick replays the revisions selected by revisionRange onto the current branch.
// A conflict leaves the working tree as git left it.
func (repository *Repository) CherryPick(executionContext context.Context, revisionRange string) (execshell.ExecutionResult, error) {
	return repository.run(executionContext, gitCherryPickSubcommandConstant, revisionRange)
}

// Rebase rebases branchName, optionally onto ontoReference.
func (repository *Repository) Rebase(executionContext context.Context, branchName string, ontoReference string) (execshell.ExecutionResult, error) {
	arguments := []string{gitRebaseSubcommandConstant}
	if trimmedOnto := strings.TrimSpace(ontoReference); len(trimmedOnto) > 0 {
		arguments = append(arguments, gitOntoFlagConstant, trimmedOnto)
	}
	arguments = append(arguments, branchName)
	return repository.run(executionContext, arguments...)
}

// Stash runs a stash subcommand. Untracked files are only included when saving.
// Use StashWasEmpty to tell an empty save from a real one.
func (repository *Repository) Stash(executionContext context.Context, command StashCommand, includeUntracked bool) (execshell.ExecutionResult, error) {
	arguments := []string{gitStashSubcommandConstant, string(command)}
	if includeUntracked && command == StashSave {
		arguments = append(arguments, gitIncludeUntrackedFlagConstant)
	}
	return repository.run(executionContext, arguments...)
}

// Status runs git status.
func (repository *Repository) Status(executionContext context.Context) (execshell.ExecutionResult, error) {
	return repository.run(executionContext, gitStatusSubcommandConstant)
}

// GetConfig reads a configuration value. A missing key yields found=false without an error.
func (repository *Repository) GetConfig(executionContext context.Context, key string) (string, bool, error) {
	result, executionError := repository.run(executionContext, gitConfigSubcommandConstant, gitGetFlagConstant, key)
	if executionError != nil {
		return "", false, executionError
	}
	if result.ExitCode != 0 {
		return "", false, nil
	}
	return strings.TrimSpace(result.StandardOutput), true, nil
}

// SetConfig writes a repository-local configuration value.
func (repository *Repository) SetConfig(executionContext context.Context, key string, value string) (bool, error) {
	return repository.succeeds(executionContext, gitConfigSubcommandConstant, key, value)
}

// AddRemote registers a new remote.
func (repository *Repository) AddRemote(executionContext context.Context, remoteName string, remoteURL string) (bool, error) {
	return repository.succeeds(executionContext, gitRemoteSubcommandConstant, gitAddSubcommandConstant, remoteName, remoteURL)
}

// RevisionList returns revision hashes reachable from the query reference, newest first.
func (repository *Repository) RevisionList(executionContext context.Context, query RevisionQuery) ([]string, error) {
	arguments := []string{gitRevListSubcommandConstant}
	if query.Limit > 0 {
		arguments = append(arguments, fmt.Sprintf(gitMaxCountFlagTemplateConstant, query.Limit))
	}
	if !query.Before.IsZero() {
		arguments = append(arguments, fmt.Sprintf(gitBeforeFlagTemplateConstant, strconv.FormatInt(query.Before.Unix(), 10)))
	}
	reference := strings.TrimSpace(query.Reference)
	if len(reference) == 0 {
		reference = gitHeadReferenceConstant
	}
	arguments = append(arguments, reference)

	result, executionError := repository.run(executionContext, arguments...)
	if executionError != nil {
		return nil, executionError
	}
	if result.ExitCode != 0 {
		failure := execshell.CommandFailedError{Command: repository.command(arguments), Result: result}
		return nil, fmt.Errorf(revisionListFailureTemplateConstant, reference, failure)
	}

	revisions := []string{}
	for _, line := range strings.Split(result.StandardOutput, revisionListLineSeparatorConstant) {
		if trimmedLine := strings.TrimSpace(line); len(trimmedLine) > 0 {
			revisions = append(revisions, trimmedLine)
		}
	}
	return revisions, nil
}

// BisectStart begins a bisection between a bad and a good revision.
func (repository *Repository) BisectStart(executionContext context.Context, badRevision string, goodRevision string) (execshell.ExecutionResult, error) {
	return repository.run(executionContext, gitBisectSubcommandConstant, gitBisectStartSubcommandConstant, badRevision, goodRevision)
}

// BisectRun lets git drive the bisection with testCommand as the good/bad oracle.
// It blocks until git reports a culprit or gives up.
func (repository *Repository) BisectRun(executionContext context.Context, testCommand []string) (execshell.ExecutionResult, error) {
	arguments := append([]string{gitBisectSubcommandConstant, gitBisectRunSubcommandConstant}, testCommand...)
	return repository.run(executionContext, arguments...)
}

// BisectReset clears any bisection state and returns to the original HEAD.
func (repository *Repository) BisectReset(executionContext context.Context) (execshell.ExecutionResult, error) {
	return repository.run(executionContext, gitBisectSubcommandConstant, gitBisectResetSubcommandConst)
}

// BisectInProgress reports whether bisection state exists.
func (repository *Repository) BisectInProgress(executionContext context.Context) (bool, error) {
	return repository.succeeds(executionContext, gitBisectSubcommandConstant, gitBisectLogSubcommandConstant)
}

// StashWasEmpty reports whether a stash save found nothing to store.
func StashWasEmpty(result execshell.ExecutionResult) bool {
	return strings.HasPrefix(strings.TrimSpace(result.StandardOutput), stashEmptyOutputPrefixConstant)
}

// CherryPickRange selects the commits reachable from remoteName/sourceBranch but not from origin/stableBranch.
func CherryPickRange(remoteName string, sourceBranch string, stableBranch string) string {
	return fmt.Sprintf(cherryPickRangeTemplateConstant, OriginRemoteName, stableBranch, remoteName, sourceBranch)
}

// TrackingReference names the origin branch that local branches based on stableBranch follow.
func TrackingReference(stableBranch string) string {
	return fmt.Sprintf(remoteReferenceTemplateConstant, OriginRemoteName, stableBranch)
}

func (repository *Repository) succeeds(executionContext context.Context, arguments ...string) (bool, error) {
	result, executionError := repository.run(executionContext, arguments...)
	if executionError != nil {
		return false, executionError
	}
	return result.ExitCode == 0, nil
}

func (repository *Repository) runNetwork(executionContext context.Context, arguments ...string) (execshell.ExecutionResult, error) {
	return repository.invoke(executionContext, arguments, map[string]string{gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentDisableConst})
}

func (repository *Repository) run(executionContext context.Context, arguments ...string) (execshell.ExecutionResult, error) {
	return repository.invoke(executionContext, arguments, nil)
}

// invoke probes the repository, then runs the command. Non-zero exits come back as data.
func (repository *Repository) invoke(executionContext context.Context, arguments []string, environment map[string]string) (execshell.ExecutionResult, error) {
	valid, probeError := repository.probe(executionContext)
	if probeError != nil {
		return execshell.ExecutionResult{}, fmt.Errorf(repositoryProbeFailureTemplateConstant, repository.path, probeError)
	}
	if !valid {
		return execshell.ExecutionResult{}, NotRepositoryError{Path: repository.path}
	}

	command := repository.command(arguments)
	command.Details.EnvironmentVariables = environment
	result, executionError := repository.executor.Execute(executionContext, command)
	if executionError == nil {
		return result, nil
	}
	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) {
		return failedError.Result, nil
	}
	return execshell.ExecutionResult{}, fmt.Errorf(gitOperationFailureTemplateConstant, firstArgument(arguments), repository.path, executionError)
}

// probe returns false without error when git rejected the path or the directory is missing.
// A bare repository or a .git directory answers "false" and is not a working tree either.
func (repository *Repository) probe(executionContext context.Context) (bool, error) {
	result, executionError := repository.executor.Execute(executionContext, repository.command([]string{gitRevParseSubcommandConstant, gitInsideWorkTreeFlagConstant}))
	if executionError == nil {
		return strings.TrimSpace(result.StandardOutput) == insideWorkTreeAnswerConstant, nil
	}
	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) {
		return false, nil
	}
	var directoryError execshell.WorkingDirectoryError
	if errors.As(executionError, &directoryError) {
		return false, nil
	}
	return false, executionError
}

func (repository *Repository) command(arguments []string) execshell.ShellCommand {
	return execshell.ShellCommand{
		Name: execshell.CommandName(repository.executable),
		Details: execshell.CommandDetails{
			Arguments:        append([]string{}, arguments...),
			WorkingDirectory: repository.path,
		},
	}
}

func appendNonEmpty(arguments []string, values ...string) []string {
	for _, value := range values {
		if trimmedValue := strings.TrimSpace(value); len(trimmedValue) > 0 {
			arguments = append(arguments, trimmedValue)
		}
	}
	return arguments
}

func firstArgument(arguments []string) string {
	if len(arguments) == 0 {
		return ""
	}
	return arguments[0]
}
