package flags_test

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/temirov/mdk/internal/utils/flags"
)

func TestOverridesPreferChangedFlags(testInstance *testing.T) {
	command := &cobra.Command{Use: "backport"}
	command.Flags().String("remote", "", "")
	command.Flags().Bool("push", false, "")
	command.Flags().StringSlice("versions", nil, "")
	command.Flags().String("suffix", "", "")

	require.NoError(testInstance, command.ParseFlags([]string{"--remote", " mine ", "--push=false", "--versions", "23,24"}))

	require.Equal(testInstance, "mine", flags.StringOverride(command, "remote", "github"))
	require.False(testInstance, flags.BoolOverride(command, "push", true))
	require.Equal(testInstance, []string{"23", "24"}, flags.StringSliceOverride(command, "versions", nil))
	require.Equal(testInstance, "wip", flags.StringOverride(command, "suffix", "wip"))
	require.Equal(testInstance, "fallback", flags.StringOverride(nil, "remote", "fallback"))
	require.True(testInstance, flags.BoolOverride(command, "missing", true))
}

func TestPersistentStringOverrideReadsRootFlags(testInstance *testing.T) {
	rootCommand := &cobra.Command{Use: "mdk"}
	rootCommand.PersistentFlags().String("log-level", "", "")
	rootCommand.PersistentFlags().String("git", "", "")
	subcommand := &cobra.Command{Use: "blame", Run: func(*cobra.Command, []string) {}}
	rootCommand.AddCommand(subcommand)

	require.NoError(testInstance, rootCommand.PersistentFlags().Set("log-level", "debug"))

	require.Equal(testInstance, "debug", flags.PersistentStringOverride(subcommand, "log-level", "info"))
	require.Equal(testInstance, "debug", flags.PersistentStringOverride(rootCommand, "log-level", "info"))
	require.Equal(testInstance, "git", flags.PersistentStringOverride(subcommand, "git", "git"))
	require.Equal(testInstance, "info", flags.PersistentStringOverride(nil, "log-level", "info"))
}
