package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	configurationKeyDelimiterConstant  = "."
	environmentKeyDelimiterConstant    = "_"
	listValueSeparatorConstant         = ","
	embeddedMergeErrorTemplateConstant = "failed to merge embedded configuration: %w"
	configurationReadErrorTemplate     = "failed to read configuration: %w"
	configurationDecodeErrorTemplate   = "failed to parse configuration: %w"
	configurationTypeUnsetMessage      = "configuration type must be provided"
)

// ErrConfigurationTypeRequired indicates a loader built without a file format.
var ErrConfigurationTypeRequired = errors.New(configurationTypeUnsetMessage)

// ConfigurationLoader layers configuration sources with increasing precedence:
// embedded defaults, explicit default values, a configuration file found on the
// search paths (or given explicitly) and finally prefixed environment variables.
type ConfigurationLoader struct {
	name              string
	format            string
	environmentPrefix string
	searchPaths       []string
	embedded          []byte
	embeddedFormat    string
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// NewConfigurationLoader creates a loader that searches the given paths for name.format.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		name:              configurationName,
		format:            configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       append([]string{}, searchPaths...),
	}
}

// SetEmbeddedConfiguration registers built-in configuration merged underneath every other source.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte, configurationType string) {
	if loader == nil {
		return
	}
	loader.embedded = bytes.Clone(configurationData)
	loader.embeddedFormat = strings.TrimSpace(configurationType)
}

// LoadConfiguration decodes the layered configuration into targetConfiguration.
// A missing configuration file on the search paths is not an error; an explicit
// configurationFilePath that cannot be read is.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	if len(strings.TrimSpace(loader.format)) == 0 {
		return LoadedConfiguration{}, ErrConfigurationTypeRequired
	}

	viperInstance := viper.New()
	if mergeError := loader.mergeEmbedded(viperInstance); mergeError != nil {
		return LoadedConfiguration{}, mergeError
	}
	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}
	loader.bindEnvironment(viperInstance)

	if readError := loader.mergeFile(viperInstance, strings.TrimSpace(configurationFilePath)); readError != nil {
		return LoadedConfiguration{}, readError
	}

	if decodeError := viperInstance.Unmarshal(targetConfiguration, viper.DecodeHook(configurationDecodeHook())); decodeError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationDecodeErrorTemplate, decodeError)
	}
	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}

func (loader *ConfigurationLoader) mergeEmbedded(viperInstance *viper.Viper) error {
	if len(loader.embedded) == 0 {
		return nil
	}
	embeddedFormat := loader.embeddedFormat
	if len(embeddedFormat) == 0 {
		embeddedFormat = loader.format
	}
	viperInstance.SetConfigType(embeddedFormat)
	if mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.embedded)); mergeError != nil {
		return fmt.Errorf(embeddedMergeErrorTemplateConstant, mergeError)
	}
	return nil
}

func (loader *ConfigurationLoader) bindEnvironment(viperInstance *viper.Viper) {
	if len(loader.environmentPrefix) > 0 {
		viperInstance.SetEnvPrefix(loader.environmentPrefix)
	}
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(configurationKeyDelimiterConstant, environmentKeyDelimiterConstant))
	viperInstance.AutomaticEnv()
}

func (loader *ConfigurationLoader) mergeFile(viperInstance *viper.Viper, configurationFilePath string) error {
	viperInstance.SetConfigType(loader.format)
	if len(configurationFilePath) > 0 {
		viperInstance.SetConfigFile(configurationFilePath)
	} else {
		viperInstance.SetConfigName(loader.name)
		for _, searchPath := range loader.searchPaths {
			viperInstance.AddConfigPath(searchPath)
		}
	}

	readError := viperInstance.MergeInConfig()
	if readError == nil {
		return nil
	}
	var notFoundError viper.ConfigFileNotFoundError
	if errors.As(readError, &notFoundError) {
		return nil
	}
	return fmt.Errorf(configurationReadErrorTemplate, readError)
}

// configurationDecodeHook lets environment variables carry lists as comma separated
// values and durations in time.ParseDuration syntax.
func configurationDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(listValueSeparatorConstant),
	)
}
