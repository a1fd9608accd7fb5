package bisect_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/mdk/internal/bisect"
	pathutils "github.com/temirov/mdk/internal/utils/path"
)

func TestTestCommandBuilder(testInstance *testing.T) {
	builder := bisect.TestCommandBuilder{
		RunnerCommand: `/opt/mdk/mdk.py behat -r -sof --switch-completely "extra arg"`,
		PathResolver:  pathutils.Resolver{BaseDirectory: "/srv/moodles/stable_master/moodle"},
	}

	testCases := []struct {
		name     string
		options  bisect.TestCommandOptions
		expected []string
	}{
		{
			name:     "runner_only",
			expected: []string{"/opt/mdk/mdk.py", "behat", "-r", "-sof", "--switch-completely", "extra arg"},
		},
		{
			name: "all_filters",
			options: bisect.TestCommandOptions{
				Feature:  "admin/tests/behat/login.feature",
				TestName: "Log in as admin",
				Tags:     "@core_auth",
				Profile:  "phantomjs-linux",
			},
			expected: []string{
				"/opt/mdk/mdk.py", "behat", "-r", "-sof", "--switch-completely", "extra arg",
				"-f", filepath.Join("/srv/moodles/stable_master/moodle", "admin/tests/behat/login.feature"),
				"-n", "Log in as admin",
				"-t", "@core_auth",
				"-p", "phantomjs-linux",
			},
		},
		{
			name:     "no_javascript",
			options:  bisect.TestCommandOptions{Feature: "/abs/x.feature", NoJavaScript: true},
			expected: []string{"/opt/mdk/mdk.py", "behat", "-r", "-sof", "--switch-completely", "extra arg", "-f", "/abs/x.feature", "-j"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			arguments, buildError := builder.Build(testCase.options)
			require.NoError(testInstance, buildError)
			require.Equal(testInstance, testCase.expected, arguments)
		})
	}
}

func TestTestCommandBuilderRejectsInvalidInput(testInstance *testing.T) {
	builder := bisect.TestCommandBuilder{RunnerCommand: bisect.DefaultCommandConfiguration().RunnerCommand}

	_, buildError := builder.Build(bisect.TestCommandOptions{NoJavaScript: true, Tags: "@javascript"})
	require.ErrorIs(testInstance, buildError, bisect.ErrConflictingFilters)
	_, buildError = builder.Build(bisect.TestCommandOptions{NoJavaScript: true, TestName: "login"})
	require.ErrorIs(testInstance, buildError, bisect.ErrConflictingFilters)

	_, buildError = bisect.TestCommandBuilder{RunnerCommand: "  "}.Build(bisect.TestCommandOptions{})
	require.ErrorIs(testInstance, buildError, bisect.ErrRunnerCommandRequired)

	_, buildError = bisect.TestCommandBuilder{RunnerCommand: `mdk "behat`}.Build(bisect.TestCommandOptions{})
	require.Error(testInstance, buildError)

	arguments, buildError := builder.Build(bisect.TestCommandOptions{})
	require.NoError(testInstance, buildError)
	require.Equal(testInstance, []string{"mdk", "behat", "-r", "-sof"}, arguments)
}
