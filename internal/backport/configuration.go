package backport

import "strings"

const defaultRemoteNameConstant = "github"

// CommandConfiguration captures persisted defaults for the backport command.
// MaximumVersion caps the accepted target releases; zero accepts any release from 13 up.
type CommandConfiguration struct {
	Remote         string `mapstructure:"remote"`
	PushRemote     string `mapstructure:"push_remote"`
	Push           bool   `mapstructure:"push"`
	ForcePush      bool   `mapstructure:"force_push"`
	Report         string `mapstructure:"report"`
	MaximumVersion int    `mapstructure:"maximum_version"`
}

// DefaultCommandConfiguration fetches from and pushes to the personal "github" remote.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Remote:     defaultRemoteNameConstant,
		PushRemote: defaultRemoteNameConstant,
		Report:     string(ReportFormatText),
	}
}

// Sanitize trims values and restores defaults for blank remotes.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Remote = strings.TrimSpace(configuration.Remote)
	if len(sanitized.Remote) == 0 {
		sanitized.Remote = defaultRemoteNameConstant
	}
	sanitized.PushRemote = strings.TrimSpace(configuration.PushRemote)
	if len(sanitized.PushRemote) == 0 {
		sanitized.PushRemote = sanitized.Remote
	}
	sanitized.Report = strings.TrimSpace(configuration.Report)
	if sanitized.MaximumVersion < 0 {
		sanitized.MaximumVersion = 0
	}
	return sanitized
}
