package instances

import "strings"

const (
	defaultStablePrefixConstant      = "stable_"
	defaultIntegrationPrefixConstant = "integration_"
	defaultIssuePrefixConstant       = "MDL-"
)

// Configuration describes the instance registry section of the configuration file.
type Configuration struct {
	Storage           string                  `mapstructure:"storage"`
	StablePrefix      string                  `mapstructure:"stable_prefix"`
	IntegrationPrefix string                  `mapstructure:"integration_prefix"`
	IssuePrefix       string                  `mapstructure:"issue_prefix"`
	Instances         []InstanceConfiguration `mapstructure:"instances"`
}

// InstanceConfiguration describes one registered checkout.
type InstanceConfiguration struct {
	Name         string `mapstructure:"name"`
	Path         string `mapstructure:"path"`
	Version      string `mapstructure:"version"`
	StableBranch string `mapstructure:"stable_branch"`
	Integration  bool   `mapstructure:"integration"`
}

// DefaultConfiguration provides baseline registry settings with no instances.
func DefaultConfiguration() Configuration {
	return Configuration{
		StablePrefix:      defaultStablePrefixConstant,
		IntegrationPrefix: defaultIntegrationPrefixConstant,
		IssuePrefix:       defaultIssuePrefixConstant,
	}
}

func (configuration Configuration) sanitize() Configuration {
	sanitized := configuration
	sanitized.Storage = strings.TrimSpace(configuration.Storage)
	sanitized.StablePrefix = strings.TrimSpace(configuration.StablePrefix)
	if len(sanitized.StablePrefix) == 0 {
		sanitized.StablePrefix = defaultStablePrefixConstant
	}
	sanitized.IntegrationPrefix = strings.TrimSpace(configuration.IntegrationPrefix)
	if len(sanitized.IntegrationPrefix) == 0 {
		sanitized.IntegrationPrefix = defaultIntegrationPrefixConstant
	}
	sanitized.IssuePrefix = strings.TrimSpace(configuration.IssuePrefix)
	if len(sanitized.IssuePrefix) == 0 {
		sanitized.IssuePrefix = defaultIssuePrefixConstant
	}
	return sanitized
}
