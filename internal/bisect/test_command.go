package bisect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"

	pathutils "github.com/temirov/mdk/internal/utils/path"
)

const (
	featureFlagConstant       = "-f"
	testNameFlagConstant      = "-n"
	tagsFlagConstant          = "-t"
	noJavaScriptFlagConstant  = "-j"
	profileFlagConstant       = "-p"
	runnerRequiredMessage     = "test runner command must be provided"
	conflictingFiltersMessage = "--no-javascript cannot be combined with --tags or --testname"
	runnerParseErrorTemplate  = "unable to parse test runner command %q: %w"
)

var (
	// ErrRunnerCommandRequired indicates a blank runner command.
	ErrRunnerCommandRequired = errors.New(runnerRequiredMessage)
	// ErrConflictingFilters indicates --no-javascript together with a tag or name filter.
	ErrConflictingFilters = errors.New(conflictingFiltersMessage)
)

// TestCommandOptions narrows the acceptance tests executed at each bisection step.
type TestCommandOptions struct {
	Feature      string
	TestName     string
	Tags         string
	NoJavaScript bool
	Profile      string
}

// TestCommandBuilder assembles the argument vector handed to git bisect run.
type TestCommandBuilder struct {
	RunnerCommand string
	PathResolver  pathutils.Resolver
}

// Build splits the runner command with shell quoting rules and appends the filter flags.
// Feature paths are made absolute because git bisect run executes from the repository root.
func (builder TestCommandBuilder) Build(options TestCommandOptions) ([]string, error) {
	if options.NoJavaScript && (len(strings.TrimSpace(options.Tags)) > 0 || len(strings.TrimSpace(options.TestName)) > 0) {
		return nil, ErrConflictingFilters
	}

	runnerCommand := strings.TrimSpace(builder.RunnerCommand)
	if len(runnerCommand) == 0 {
		return nil, ErrRunnerCommandRequired
	}
	arguments, splitError := shellquote.Split(runnerCommand)
	if splitError != nil {
		return nil, fmt.Errorf(runnerParseErrorTemplate, runnerCommand, splitError)
	}
	if len(arguments) == 0 {
		return nil, ErrRunnerCommandRequired
	}

	if feature := builder.PathResolver.Resolve(options.Feature); len(feature) > 0 {
		arguments = append(arguments, featureFlagConstant, feature)
	}
	if testName := strings.TrimSpace(options.TestName); len(testName) > 0 {
		arguments = append(arguments, testNameFlagConstant, testName)
	}
	if tags := strings.TrimSpace(options.Tags); len(tags) > 0 {
		arguments = append(arguments, tagsFlagConstant, tags)
	}
	if options.NoJavaScript {
		arguments = append(arguments, noJavaScriptFlagConstant)
	}
	if profile := strings.TrimSpace(options.Profile); len(profile) > 0 {
		arguments = append(arguments, profileFlagConstant, profile)
	}
	return arguments, nil
}
