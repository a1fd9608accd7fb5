package backport

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/mdk/internal/dependencies"
	"github.com/temirov/mdk/internal/execshell"
	"github.com/temirov/mdk/internal/gitrepo"
	"github.com/temirov/mdk/internal/instances"
	flagutils "github.com/temirov/mdk/internal/utils/flags"
)

const (
	commandUseConstant              = "backport [name]"
	commandShortDescriptionConstant = "Backport an issue branch to other versions"
	commandLongDescriptionConstant  = "backport cherry-picks the commits of an issue branch onto the matching branch of every requested version instance, stashing and restoring local changes around each target."
	commandExampleConstant          = "mdk backport -i 12345 -v 23,24 --push stable_master"

	flagIssueNameConstant          = "issue"
	flagIssueShorthandConstant     = "i"
	flagIssueUsageConstant         = "The issue to backport"
	flagSuffixNameConstant         = "suffix"
	flagSuffixShorthandConstant    = "s"
	flagSuffixUsageConstant        = "The suffix of the branch of this issue"
	flagRemoteNameConstant         = "remote"
	flagRemoteShorthandConstant    = "r"
	flagRemoteUsageConstant        = "The remote to fetch the original branch from"
	flagVersionsNameConstant       = "versions"
	flagVersionsShorthandConstant  = "v"
	flagVersionsUsageConstant      = "Versions to backport to (repeatable or comma separated)"
	flagPushNameConstant           = "push"
	flagPushShorthandConstant      = "p"
	flagPushUsageConstant          = "Push the branch after a successful backport"
	flagPushToNameConstant         = "push-to"
	flagPushToShorthandConstant    = "t"
	flagPushToUsageConstant        = "The remote to push the branch to"
	flagForcePushNameConstant      = "force-push"
	flagForcePushShorthandConstant = "f"
	flagForcePushUsageConstant     = "Force the push"
	flagBranchNameConstant         = "branch"
	flagBranchUsageConstant        = "The original branch, when it does not follow the naming convention"
	flagReportNameConstant         = "report"
	flagReportUsageConstant        = "Report format."

	minimumVersionConstant                = 13
	invalidVersionMessageConstant         = "unsupported version"
	invalidVersionTemplateConstant        = "%w: %s (expected a release number from 13 or master)"
	versionAboveMaximumTemplateConstant   = "%w: %s (newest configured release is %d)"
	registryCreationErrorTemplate         = "unable to build instance registry: %w"
	backportFailedMessageConstant         = "one or more targets failed"
	workingDirectoryErrorTemplate         = "unable to determine working directory: %w"
	commandExecutionErrorTemplateConstant = "backport failed: %w"
)

// ErrInvalidVersion indicates a version outside the supported releases.
var ErrInvalidVersion = errors.New(invalidVersionMessageConstant)

// ErrTargetsFailed is returned after the report is written when a target ended in a failed-* status.
var ErrTargetsFailed = errors.New(backportFailedMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the backport cobra command.
type CommandBuilder struct {
	LoggerProvider                 LoggerProvider
	GitExecutor                    gitrepo.GitExecutor
	CommandEventsObserver          execshell.CommandEventObserver
	GitExecutableProvider          func() string
	ConfigurationProvider          func() CommandConfiguration
	InstancesConfigurationProvider func() instances.Configuration
	WorkingDirectory               string
}

// Build constructs the backport command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	configuration := builder.resolveConfiguration()

	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		Example:       commandExampleConstant,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.run,
	}

	command.Flags().StringP(flagIssueNameConstant, flagIssueShorthandConstant, "", flagIssueUsageConstant)
	command.Flags().StringP(flagSuffixNameConstant, flagSuffixShorthandConstant, "", flagSuffixUsageConstant)
	command.Flags().StringP(flagRemoteNameConstant, flagRemoteShorthandConstant, configuration.Remote, flagRemoteUsageConstant)
	command.Flags().StringSliceP(flagVersionsNameConstant, flagVersionsShorthandConstant, nil, flagVersionsUsageConstant)
	command.Flags().BoolP(flagPushNameConstant, flagPushShorthandConstant, configuration.Push, flagPushUsageConstant)
	command.Flags().StringP(flagPushToNameConstant, flagPushToShorthandConstant, configuration.PushRemote, flagPushToUsageConstant)
	command.Flags().BoolP(flagForcePushNameConstant, flagForcePushShorthandConstant, configuration.ForcePush, flagForcePushUsageConstant)
	command.Flags().String(flagBranchNameConstant, "", flagBranchUsageConstant)
	command.Flags().String(
		flagReportNameConstant,
		configuration.Report,
		flagutils.FormatChoiceUsage(configuration.Report, []string{string(ReportFormatText), string(ReportFormatYAML)}, flagReportUsageConstant),
	)
	_ = command.MarkFlagRequired(flagIssueNameConstant)
	_ = command.MarkFlagRequired(flagVersionsNameConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()

	options, optionsError := builder.parseOptions(command, arguments, configuration)
	if optionsError != nil {
		return optionsError
	}
	reportFormat, formatError := ParseReportFormat(flagutils.StringOverride(command, flagReportNameConstant, configuration.Report))
	if formatError != nil {
		return formatError
	}

	logger := dependencies.ResolveLogger(builder.LoggerProvider)
	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger, builder.CommandEventsObserver)
	if executorError != nil {
		return executorError
	}

	registry, registryError := instances.NewRegistry(builder.resolveInstancesConfiguration())
	if registryError != nil {
		return fmt.Errorf(registryCreationErrorTemplate, registryError)
	}

	opener := dependencies.RepositoryOpener{Executor: gitExecutor, Executable: builder.resolveGitExecutable()}
	service, serviceError := NewService(ServiceDependencies{
		Logger:   logger,
		Registry: registry,
		RepositoryFactory: func(path string) (Repository, error) {
			return opener.Open(path)
		},
	})
	if serviceError != nil {
		return serviceError
	}

	report, backportError := service.Backport(command.Context(), options)
	if backportError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, backportError)
	}
	if writeError := WriteReport(command.OutOrStdout(), report, reportFormat); writeError != nil {
		return writeError
	}
	if report.Failed() {
		return ErrTargetsFailed
	}
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string, configuration CommandConfiguration) (Options, error) {
	issue, _ := command.Flags().GetString(flagIssueNameConstant)
	suffix, _ := command.Flags().GetString(flagSuffixNameConstant)
	sourceBranch, _ := command.Flags().GetString(flagBranchNameConstant)
	versions := flagutils.StringSliceOverride(command, flagVersionsNameConstant, nil)
	for _, version := range versions {
		if validationError := validateVersion(version, configuration.MaximumVersion); validationError != nil {
			return Options{}, validationError
		}
	}

	instanceName := ""
	if len(arguments) > 0 {
		instanceName = strings.TrimSpace(arguments[0])
	}
	workingDirectory := builder.WorkingDirectory
	if len(instanceName) == 0 && len(workingDirectory) == 0 {
		currentDirectory, directoryError := os.Getwd()
		if directoryError != nil {
			return Options{}, fmt.Errorf(workingDirectoryErrorTemplate, directoryError)
		}
		workingDirectory = currentDirectory
	}

	return Options{
		Issue:            strings.TrimSpace(issue),
		Suffix:           strings.TrimSpace(suffix),
		InstanceName:     instanceName,
		WorkingDirectory: workingDirectory,
		SourceBranch:     strings.TrimSpace(sourceBranch),
		Versions:         versions,
		Remote:           flagutils.StringOverride(command, flagRemoteNameConstant, configuration.Remote),
		PushRemote:       flagutils.StringOverride(command, flagPushToNameConstant, configuration.PushRemote),
		Push:             flagutils.BoolOverride(command, flagPushNameConstant, configuration.Push),
		ForcePush:        flagutils.BoolOverride(command, flagForcePushNameConstant, configuration.ForcePush),
	}, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveInstancesConfiguration() instances.Configuration {
	if builder.InstancesConfigurationProvider == nil {
		return instances.DefaultConfiguration()
	}
	return builder.InstancesConfigurationProvider()
}

func (builder *CommandBuilder) resolveGitExecutable() string {
	if builder.GitExecutableProvider == nil {
		return gitrepo.DefaultExecutable
	}
	return builder.GitExecutableProvider()
}

// validateVersion accepts master and releases from 13 up to maximumVersion; zero leaves the range open.
func validateVersion(version string, maximumVersion int) error {
	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == instances.MasterVersion {
		return nil
	}
	number, parseError := strconv.Atoi(trimmedVersion)
	if parseError != nil || number < minimumVersionConstant {
		return fmt.Errorf(invalidVersionTemplateConstant, ErrInvalidVersion, version)
	}
	if maximumVersion > 0 && number > maximumVersion {
		return fmt.Errorf(versionAboveMaximumTemplateConstant, ErrInvalidVersion, version, maximumVersion)
	}
	return nil
}
