package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/mdk/internal/backport"
	"github.com/temirov/mdk/internal/bisect"
	"github.com/temirov/mdk/internal/execshell"
	"github.com/temirov/mdk/internal/gitrepo"
	"github.com/temirov/mdk/internal/instances"
	"github.com/temirov/mdk/internal/ui"
	"github.com/temirov/mdk/internal/utils"
	flagutils "github.com/temirov/mdk/internal/utils/flags"
)

const (
	applicationNameConstant                 = "mdk"
	applicationShortDescriptionConstant     = "Manage the git workflows of parallel Moodle instances"
	applicationLongDescriptionConstant      = "mdk backports issue branches across version instances and bisects regressions with acceptance tests as the oracle."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	gitBinaryFlagNameConstant               = "git"
	gitBinaryFlagUsageConstant              = "Override the configured git executable."
	environmentPrefixConstant               = "MDK"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationSearchPathEnvironmentName  = "MDK_CONFIG_SEARCH_PATH"
	userConfigurationDirectoryNameConstant  = "mdk"
	defaultConfigurationSearchPathConstant  = "."
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationInstancesFieldConstant     = "instances"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	commandNotFoundTemplateConstant         = "unknown command %q"
	rootCommandInfoMessageConstant          = "mdk CLI executed"
	rootCommandDebugMessageConstant         = "mdk CLI diagnostics"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentCountConstant           = "argument_count"
	logFieldArgumentsConstant               = "arguments"
	loggerNotInitializedMessageConstant     = "logger not initialized"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Tools  ApplicationToolsConfiguration  `mapstructure:"tools"`
}

// ApplicationCommonConfiguration stores settings shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string                     `mapstructure:"log_level"`
	LogFormat string                     `mapstructure:"log_format"`
	GitBinary string                     `mapstructure:"git_binary"`
	LogFile   utils.LogFileConfiguration `mapstructure:"log_file"`
}

// ApplicationToolsConfiguration holds configuration for CLI subcommands.
type ApplicationToolsConfiguration struct {
	Instances instances.Configuration       `mapstructure:"instances"`
	Backport  backport.CommandConfiguration `mapstructure:"backport"`
	Blame     bisect.CommandConfiguration   `mapstructure:"blame"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	consoleCommandEvents  *ui.ConsoleCommandEventLogger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		configurationSearchPaths(),
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		logger:              zap.NewNop(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().String(logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().String(logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	cobraCommand.PersistentFlags().String(gitBinaryFlagNameConstant, "", gitBinaryFlagUsageConstant)

	commandEvents := commandEventRelay{application: application}

	backportBuilder := backport.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		CommandEventsObserver: commandEvents,
		GitExecutableProvider: application.gitExecutable,
		ConfigurationProvider: func() backport.CommandConfiguration {
			return application.configuration.Tools.Backport
		},
		InstancesConfigurationProvider: func() instances.Configuration {
			return application.configuration.Tools.Instances
		},
	}
	backportCommand, backportBuildError := backportBuilder.Build()
	if backportBuildError == nil {
		cobraCommand.AddCommand(backportCommand)
	}

	blameBuilder := bisect.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		CommandEventsObserver: commandEvents,
		GitExecutableProvider: application.gitExecutable,
		ConfigurationProvider: func() bisect.CommandConfiguration {
			return application.configuration.Tools.Blame
		},
		InstancesConfigurationProvider: func() instances.Configuration {
			return application.configuration.Tools.Instances
		},
	}
	blameCommand, blameBuildError := blameBuilder.Build()
	if blameBuildError == nil {
		cobraCommand.AddCommand(blameCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
// An interrupt cancels the command context, which stops the running git process.
func (application *Application) Execute() error {
	executionContext, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	executionError := application.rootCommand.ExecuteContext(executionContext)
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

// InitializeForCommand loads configuration as if the named subcommand were about to run.
func (application *Application) InitializeForCommand(commandUse string) error {
	for _, command := range application.rootCommand.Commands() {
		if command.Name() == commandUse {
			return application.initializeConfiguration(command)
		}
	}
	return fmt.Errorf(commandNotFoundTemplateConstant, commandUse)
}

// Configuration returns the configuration resolved by the last initialization.
func (application *Application) Configuration() ApplicationConfiguration {
	return application.configuration
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	application.configuration = ApplicationConfiguration{}
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, application.defaultValues(), &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	common := &application.configuration.Common
	common.LogLevel = flagutils.PersistentStringOverride(command, logLevelFlagNameConstant, common.LogLevel)
	common.LogFormat = flagutils.PersistentStringOverride(command, logFormatFlagNameConstant, common.LogFormat)
	common.GitBinary = flagutils.PersistentStringOverride(command, gitBinaryFlagNameConstant, common.GitBinary)

	logger, loggerCreationError := application.loggerFactory.CreateLoggerWithFile(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
		application.configuration.Common.LogFile,
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger
	application.consoleCommandEvents = nil
	if application.humanReadableLoggingEnabled() {
		application.consoleCommandEvents = ui.NewConsoleCommandEventLogger(logger)
	}

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.Int(configurationInstancesFieldConstant, len(application.configuration.Tools.Instances.Instances)),
	)

	return nil
}

func (application *Application) defaultValues() map[string]any {
	backportDefaults := backport.DefaultCommandConfiguration()
	instancesDefaults := instances.DefaultConfiguration()
	return map[string]any{
		"common.log_level":                   string(utils.LogLevelInfo),
		"common.log_format":                  string(utils.LogFormatConsole),
		"common.git_binary":                  gitrepo.DefaultExecutable,
		"tools.instances.stable_prefix":      instancesDefaults.StablePrefix,
		"tools.instances.integration_prefix": instancesDefaults.IntegrationPrefix,
		"tools.instances.issue_prefix":       instancesDefaults.IssuePrefix,
		"tools.backport.remote":              backportDefaults.Remote,
		"tools.backport.report":              backportDefaults.Report,
		"tools.blame.runner":                 bisect.DefaultCommandConfiguration().RunnerCommand,
	}
}

func (application *Application) gitExecutable() string {
	if executable := strings.TrimSpace(application.configuration.Common.GitBinary); len(executable) > 0 {
		return executable
	}
	return gitrepo.DefaultExecutable
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Debug(
		rootCommandInfoMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Int(logFieldArgumentCountConstant, len(arguments)),
	)

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	return command.Help()
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func configurationSearchPaths() []string {
	if overridden := strings.TrimSpace(os.Getenv(configurationSearchPathEnvironmentName)); len(overridden) > 0 {
		return filepath.SplitList(overridden)
	}

	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if userConfigurationDirectory, directoryError := os.UserConfigDir(); directoryError == nil {
		searchPaths = append(searchPaths, filepath.Join(userConfigurationDirectory, userConfigurationDirectoryNameConstant))
	}
	return searchPaths
}

// commandEventRelay forwards git lifecycle events to the console logger once console logging is configured.
type commandEventRelay struct {
	application *Application
}

func (relay commandEventRelay) CommandStarted(command execshell.ShellCommand) {
	if relay.application.consoleCommandEvents != nil {
		relay.application.consoleCommandEvents.CommandStarted(command)
	}
}

func (relay commandEventRelay) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if relay.application.consoleCommandEvents != nil {
		relay.application.consoleCommandEvents.CommandCompleted(command, result)
	}
}

func (relay commandEventRelay) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if relay.application.consoleCommandEvents != nil {
		relay.application.consoleCommandEvents.CommandExecutionFailed(command, failure)
	}
}
