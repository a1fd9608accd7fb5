package flags

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// StringOverride returns the flag value when the user set it and fallback otherwise.
func StringOverride(command *cobra.Command, name string, fallback string) string {
	if command == nil || !command.Flags().Changed(name) {
		return fallback
	}
	value, valueError := command.Flags().GetString(name)
	if valueError != nil {
		return fallback
	}
	return strings.TrimSpace(value)
}

// BoolOverride returns the flag value when the user set it and fallback otherwise.
func BoolOverride(command *cobra.Command, name string, fallback bool) bool {
	if command == nil || !command.Flags().Changed(name) {
		return fallback
	}
	value, valueError := command.Flags().GetBool(name)
	if valueError != nil {
		return fallback
	}
	return value
}

// StringSliceOverride returns the flag values when the user set them and fallback otherwise.
func StringSliceOverride(command *cobra.Command, name string, fallback []string) []string {
	if command == nil || !command.Flags().Changed(name) {
		return fallback
	}
	values, valueError := command.Flags().GetStringSlice(name)
	if valueError != nil {
		return fallback
	}
	return values
}

// PersistentStringOverride resolves a persistent flag declared on any ancestor of command.
func PersistentStringOverride(command *cobra.Command, name string, fallback string) string {
	flagSet := changedFlagSet(command, name)
	if flagSet == nil {
		return fallback
	}
	value, valueError := flagSet.GetString(name)
	if valueError != nil {
		return fallback
	}
	return strings.TrimSpace(value)
}

func changedFlagSet(command *cobra.Command, name string) *pflag.FlagSet {
	if command == nil {
		return nil
	}
	candidates := []*pflag.FlagSet{command.Flags(), command.InheritedFlags()}
	if rootCommand := command.Root(); rootCommand != nil {
		candidates = append(candidates, rootCommand.PersistentFlags())
	}
	for _, flagSet := range candidates {
		if flagSet != nil && flagSet.Changed(name) {
			return flagSet
		}
	}
	return nil
}
