package bisect

import "strings"

const defaultRunnerCommandConstant = "mdk behat -r -sof"

// CommandConfiguration captures persisted defaults for the blame command.
type CommandConfiguration struct {
	RunnerCommand string `mapstructure:"runner"`
}

// DefaultCommandConfiguration runs behat through mdk, skipping setup and stopping on the first failure.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{RunnerCommand: defaultRunnerCommandConstant}
}

// Sanitize trims values and restores the default runner when blank.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.RunnerCommand = strings.TrimSpace(configuration.RunnerCommand)
	if len(sanitized.RunnerCommand) == 0 {
		sanitized.RunnerCommand = defaultRunnerCommandConstant
	}
	return sanitized
}
