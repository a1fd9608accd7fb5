package bisect

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/mdk/internal/dependencies"
	"github.com/temirov/mdk/internal/execshell"
	"github.com/temirov/mdk/internal/gitrepo"
	"github.com/temirov/mdk/internal/instances"
	flagutils "github.com/temirov/mdk/internal/utils/flags"
	pathutils "github.com/temirov/mdk/internal/utils/path"
)

const (
	commandUseConstant              = "blame [name]"
	commandShortDescriptionConstant = "Find who broke this branch"
	commandLongDescriptionConstant  = "blame bisects the history of an instance between a good revision (by default the last commit older than a week) and HEAD, running the acceptance tests at every step, and reports the first bad commit."
	commandExampleConstant          = "mdk blame -f admin/tests/behat/login.feature stable_master"

	flagGoodHashNameConstant          = "goodhash"
	flagGoodHashUsageConstant         = "Good hash; the last commit older than a week when omitted"
	flagBadRevisionNameConstant       = "bad"
	flagBadRevisionUsageConstant      = "Bad revision"
	flagFeatureNameConstant           = "feature"
	flagFeatureShorthandConstant      = "f"
	flagFeatureUsageConstant          = "Path to a feature, or an argument understood by behat; converted to an absolute path"
	flagTestNameNameConstant          = "testname"
	flagTestNameShorthandConstant     = "n"
	flagTestNameUsageConstant         = "Only execute the feature elements which match part of the given name or regex"
	flagTagsNameConstant              = "tags"
	flagTagsShorthandConstant         = "t"
	flagTagsUsageConstant             = "Only execute the features or scenarios with tags matching the tag filter expression"
	flagProfileNameConstant           = "profile"
	flagProfileShorthandConstant      = "p"
	flagProfileUsageConstant          = "Behat profile, like phantomjs-linux"
	flagNoJavaScriptNameConstant      = "no-javascript"
	flagNoJavaScriptShorthandConstant = "j"
	flagNoJavaScriptUsageConstant     = "Do not start Selenium and ignore Javascript; cannot be combined with --tags or --testname"
	flagRunnerNameConstant            = "runner"
	flagRunnerUsageConstant           = "Test runner command executed at every bisection step"

	culpritTemplateConstant          = "First bad commit: %s\n"
	noCulpritMessageConstant         = "No culprit found"
	instanceNotFoundMessageConstant  = "instance not found"
	instanceNotFoundTemplateConstant = "%w: %s"
	registryCreationErrorTemplate    = "unable to build instance registry: %w"
	workingDirectoryErrorTemplate    = "unable to determine working directory: %w"
	commandExecutionErrorTemplate    = "blame failed: %w"
)

// ErrInstanceNotFound indicates the requested or current instance is not registered.
var ErrInstanceNotFound = errors.New(instanceNotFoundMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the blame cobra command.
type CommandBuilder struct {
	LoggerProvider                 LoggerProvider
	GitExecutor                    gitrepo.GitExecutor
	CommandEventsObserver          execshell.CommandEventObserver
	GitExecutableProvider          func() string
	ConfigurationProvider          func() CommandConfiguration
	InstancesConfigurationProvider func() instances.Configuration
	Clock                          Clock
	WorkingDirectory               string
}

// Build constructs the blame command.
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

	command.Flags().String(flagGoodHashNameConstant, "", flagGoodHashUsageConstant)
	command.Flags().String(flagBadRevisionNameConstant, defaultBadRevisionConstant, flagBadRevisionUsageConstant)
	command.Flags().StringP(flagFeatureNameConstant, flagFeatureShorthandConstant, "", flagFeatureUsageConstant)
	command.Flags().StringP(flagTestNameNameConstant, flagTestNameShorthandConstant, "", flagTestNameUsageConstant)
	command.Flags().StringP(flagTagsNameConstant, flagTagsShorthandConstant, "", flagTagsUsageConstant)
	command.Flags().StringP(flagProfileNameConstant, flagProfileShorthandConstant, "", flagProfileUsageConstant)
	command.Flags().BoolP(flagNoJavaScriptNameConstant, flagNoJavaScriptShorthandConstant, false, flagNoJavaScriptUsageConstant)
	command.Flags().String(flagRunnerNameConstant, configuration.RunnerCommand, flagRunnerUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()

	workingDirectory, directoryError := builder.resolveWorkingDirectory()
	if directoryError != nil {
		return directoryError
	}

	testCommandBuilder := TestCommandBuilder{
		RunnerCommand: flagutils.StringOverride(command, flagRunnerNameConstant, configuration.RunnerCommand),
		PathResolver:  pathutils.NewResolver(workingDirectory),
	}
	testCommand, testCommandError := testCommandBuilder.Build(builder.parseTestCommandOptions(command))
	if testCommandError != nil {
		return testCommandError
	}

	registry, registryError := instances.NewRegistry(builder.resolveInstancesConfiguration())
	if registryError != nil {
		return fmt.Errorf(registryCreationErrorTemplate, registryError)
	}
	instance, instanceError := locateInstance(registry, arguments, workingDirectory)
	if instanceError != nil {
		return instanceError
	}

	logger := dependencies.ResolveLogger(builder.LoggerProvider)
	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger, builder.CommandEventsObserver)
	if executorError != nil {
		return executorError
	}
	opener := dependencies.RepositoryOpener{Executor: gitExecutor, Executable: builder.resolveGitExecutable()}
	repository, openError := opener.Open(instance.Path)
	if openError != nil {
		return openError
	}

	goodRevision, _ := command.Flags().GetString(flagGoodHashNameConstant)
	badRevision, _ := command.Flags().GetString(flagBadRevisionNameConstant)
	service := NewService(ServiceDependencies{Logger: logger, Clock: builder.Clock})
	result, blameError := service.Blame(command.Context(), repository, Session{
		GoodRevision: goodRevision,
		BadRevision:  badRevision,
		TestCommand:  testCommand,
	})
	if blameError != nil {
		return fmt.Errorf(commandExecutionErrorTemplate, blameError)
	}

	if result.Found {
		fmt.Fprintf(command.OutOrStdout(), culpritTemplateConstant, result.Culprit)
		return nil
	}
	fmt.Fprintln(command.OutOrStdout(), noCulpritMessageConstant)
	return nil
}

func (builder *CommandBuilder) parseTestCommandOptions(command *cobra.Command) TestCommandOptions {
	feature, _ := command.Flags().GetString(flagFeatureNameConstant)
	testName, _ := command.Flags().GetString(flagTestNameNameConstant)
	tags, _ := command.Flags().GetString(flagTagsNameConstant)
	profile, _ := command.Flags().GetString(flagProfileNameConstant)
	noJavaScript, _ := command.Flags().GetBool(flagNoJavaScriptNameConstant)
	return TestCommandOptions{Feature: feature, TestName: testName, Tags: tags, NoJavaScript: noJavaScript, Profile: profile}
}

func (builder *CommandBuilder) resolveWorkingDirectory() (string, error) {
	if len(builder.WorkingDirectory) > 0 {
		return builder.WorkingDirectory, nil
	}
	currentDirectory, directoryError := os.Getwd()
	if directoryError != nil {
		return "", fmt.Errorf(workingDirectoryErrorTemplate, directoryError)
	}
	return currentDirectory, nil
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

func locateInstance(registry *instances.Registry, arguments []string, workingDirectory string) (instances.Instance, error) {
	if len(arguments) > 0 {
		if name := strings.TrimSpace(arguments[0]); len(name) > 0 {
			instance, found := registry.Lookup(name)
			if !found {
				return instances.Instance{}, fmt.Errorf(instanceNotFoundTemplateConstant, ErrInstanceNotFound, name)
			}
			return instance, nil
		}
	}
	instance, found := registry.LocateDirectory(workingDirectory)
	if !found {
		return instances.Instance{}, fmt.Errorf(instanceNotFoundTemplateConstant, ErrInstanceNotFound, workingDirectory)
	}
	return instance, nil
}
