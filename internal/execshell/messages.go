package execshell

import (
	"fmt"
	"path/filepath"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	describedStartTemplateConstant          = "%s %s in %s"
	describedSuccessTemplateConstant        = "%s %s in %s"
	describedFailureTemplateConstant        = "Failed to %s %s in %s (exit code %d%s)"
	describedExecutionFailureTemplateConst  = "Unable to %s %s in %s: %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	referenceFromRemoteTemplateConstant     = "%s from %s"
	remoteOnlyTemplateConstant              = "from %s"
	branchToRemoteTemplateConstant          = "%s to %s"
	branchFromStartPointTemplateConstant    = "%s from %s"
	rebaseOntoTemplateConstant              = "%s onto %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	allRemotesLabelConstant                 = "from all remotes"
	defaultRemoteLabelConstant              = "default remote"
	workingTreeLabelConstant                = "working tree"
	headReferenceLabelConstant              = "HEAD"
	flagPrefixConstant                      = "-"
	referenceListSeparatorConstant          = ", "
)

const (
	gitRevParseSubcommandNameConstant    = "rev-parse"
	gitSymbolicRefSubcommandNameConstant = "symbolic-ref"
	gitShowRefSubcommandNameConstant     = "show-ref"
	gitBranchSubcommandNameConstant      = "branch"
	gitCheckoutSubcommandNameConstant    = "checkout"
	gitResetSubcommandNameConstant       = "reset"
	gitFetchSubcommandNameConstant       = "fetch"
	gitPullSubcommandNameConstant        = "pull"
	gitPushSubcommandNameConstant        = "push"
	gitCherryPickSubcommandNameConstant  = "cherry-pick"
	gitRebaseSubcommandNameConstant      = "rebase"
	gitStashSubcommandNameConstant       = "stash"
	gitStatusSubcommandNameConstant      = "status"
	gitConfigSubcommandNameConstant      = "config"
	gitRemoteSubcommandNameConstant      = "remote"
	gitRevListSubcommandNameConstant     = "rev-list"
	gitBisectSubcommandNameConstant      = "bisect"
	gitOntoFlagConstant                  = "--onto"
	gitGetFlagConstant                   = "--get"
)

// gitVerbPhrases supplies the wording for one git subcommand in each tense a message needs.
type gitVerbPhrases struct {
	progressive string
	past        string
	infinitive  string
}

var gitVerbCatalog = map[string]gitVerbPhrases{
	gitRevParseSubcommandNameConstant:    {progressive: "Probing", past: "Probed", infinitive: "probe"},
	gitSymbolicRefSubcommandNameConstant: {progressive: "Reading", past: "Read", infinitive: "read"},
	gitShowRefSubcommandNameConstant:     {progressive: "Looking up", past: "Found", infinitive: "find"},
	gitBranchSubcommandNameConstant:      {progressive: "Creating branch", past: "Created branch", infinitive: "create branch"},
	gitCheckoutSubcommandNameConstant:    {progressive: "Switching to", past: "Switched to", infinitive: "switch to"},
	gitResetSubcommandNameConstant:       {progressive: "Resetting to", past: "Reset to", infinitive: "reset to"},
	gitFetchSubcommandNameConstant:       {progressive: "Fetching", past: "Fetched", infinitive: "fetch"},
	gitPullSubcommandNameConstant:        {progressive: "Pulling", past: "Pulled", infinitive: "pull"},
	gitPushSubcommandNameConstant:        {progressive: "Pushing", past: "Pushed", infinitive: "push"},
	gitCherryPickSubcommandNameConstant:  {progressive: "Cherry-picking", past: "Cherry-picked", infinitive: "cherry-pick"},
	gitRebaseSubcommandNameConstant:      {progressive: "Rebasing", past: "Rebased", infinitive: "rebase"},
	gitStashSubcommandNameConstant:       {progressive: "Running stash", past: "Ran stash", infinitive: "run stash"},
	gitStatusSubcommandNameConstant:      {progressive: "Reviewing status of", past: "Reviewed status of", infinitive: "review status of"},
	gitRemoteSubcommandNameConstant:      {progressive: "Configuring remote", past: "Configured remote", infinitive: "configure remote"},
	gitRevListSubcommandNameConstant:     {progressive: "Listing revisions of", past: "Listed revisions of", infinitive: "list revisions of"},
	gitBisectSubcommandNameConstant:      {progressive: "Running bisect", past: "Ran bisect", infinitive: "run bisect"},
}

var gitConfigReadPhrases = gitVerbPhrases{progressive: "Reading configuration", past: "Read configuration", infinitive: "read configuration"}

var gitConfigWritePhrases = gitVerbPhrases{progressive: "Writing configuration", past: "Wrote configuration", infinitive: "write configuration"}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if filepath.Base(string(command.Name)) != string(CommandGit) || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	phrases, known := formatter.resolvePhrases(subcommand, command.Details.Arguments)
	if !known {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subject := formatter.ensureValue(formatter.describeSubject(subcommand, command.Details.Arguments[1:]))
	workingDirectory := formatter.describeWorkingDirectory(command)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(describedStartTemplateConstant, phrases.progressive, subject, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(describedSuccessTemplateConstant, phrases.past, subject, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(describedFailureTemplateConstant, phrases.infinitive, subject, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(describedExecutionFailureTemplateConst, phrases.infinitive, subject, workingDirectory, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) resolvePhrases(subcommand string, arguments []string) (gitVerbPhrases, bool) {
	if subcommand == gitConfigSubcommandNameConstant {
		if containsArgument(arguments, gitGetFlagConstant) {
			return gitConfigReadPhrases, true
		}
		return gitConfigWritePhrases, true
	}
	phrases, known := gitVerbCatalog[subcommand]
	return phrases, known
}

func (formatter CommandMessageFormatter) describeSubject(subcommand string, arguments []string) string {
	positional := positionalArguments(arguments)
	switch subcommand {
	case gitRevParseSubcommandNameConstant:
		return strings.Join(arguments, commandArgumentsJoinSeparatorConstant)
	case gitSymbolicRefSubcommandNameConstant:
		return headReferenceLabelConstant
	case gitShowRefSubcommandNameConstant, gitCheckoutSubcommandNameConstant, gitResetSubcommandNameConstant,
		gitCherryPickSubcommandNameConstant, gitRevListSubcommandNameConstant:
		return lastValue(positional)
	case gitBranchSubcommandNameConstant:
		if len(positional) >= 2 {
			return fmt.Sprintf(branchFromStartPointTemplateConstant, positional[0], positional[1])
		}
		return lastValue(positional)
	case gitFetchSubcommandNameConstant, gitPullSubcommandNameConstant:
		if len(positional) == 0 {
			return allRemotesLabelConstant
		}
		if len(positional) == 1 {
			return fmt.Sprintf(remoteOnlyTemplateConstant, positional[0])
		}
		return fmt.Sprintf(referenceFromRemoteTemplateConstant, strings.Join(positional[1:], referenceListSeparatorConstant), positional[0])
	case gitPushSubcommandNameConstant:
		if len(positional) == 0 {
			return defaultRemoteLabelConstant
		}
		if len(positional) == 1 {
			return positional[0]
		}
		return fmt.Sprintf(branchToRemoteTemplateConstant, strings.Join(positional[1:], referenceListSeparatorConstant), positional[0])
	case gitRebaseSubcommandNameConstant:
		ontoTarget := findFlagValue(arguments, gitOntoFlagConstant)
		branchName := lastValue(positional)
		if len(ontoTarget) > 0 && branchName != ontoTarget {
			return fmt.Sprintf(rebaseOntoTemplateConstant, branchName, ontoTarget)
		}
		return branchName
	case gitStatusSubcommandNameConstant:
		return workingTreeLabelConstant
	default:
		return strings.Join(positional, commandArgumentsJoinSeparatorConstant)
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := formatCommandName(command)
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return commandLabel
	}
	return commandLabel + fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}

func findFlagValue(arguments []string, flag string) string {
	for index := 0; index+1 < len(arguments); index++ {
		if strings.TrimSpace(arguments[index]) == flag {
			return strings.TrimSpace(arguments[index+1])
		}
	}
	return emptyStringConstant
}

func positionalArguments(arguments []string) []string {
	positional := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, flagPrefixConstant) {
			continue
		}
		positional = append(positional, trimmed)
	}
	return positional
}

func lastValue(values []string) string {
	if len(values) == 0 {
		return emptyStringConstant
	}
	return values[len(values)-1]
}
