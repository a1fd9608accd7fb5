package bisect_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/mdk/internal/bisect"
	"github.com/temirov/mdk/internal/execshell"
	"github.com/temirov/mdk/internal/gitrepo"
	"github.com/temirov/mdk/internal/testsupport"
)

const (
	testRepositoryPathConstant = "/srv/moodles/stable_master/moodle"
	testGoodRevisionConstant   = "0123456789abcdef0123456789abcdef01234567"
	testCulpritConstant        = "89abcdef0123456789abcdef0123456789abcdef"
	testBisectResetConstant    = "bisect reset"
)

var testTestCommand = []string{"mdk", "behat", "-r", "-sof"}

type fixedClock struct {
	now time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.now
}

func newBisectRepository(testInstance *testing.T, executor *testsupport.ScriptedGitExecutor) *gitrepo.Repository {
	testInstance.Helper()
	repository, repositoryError := gitrepo.NewRepository(executor, testRepositoryPathConstant)
	require.NoError(testInstance, repositoryError)
	return repository
}

func culpritOutput(culprit string) string {
	return "Bisecting: 0 revisions left to test after this (roughly 0 steps)\n" +
		culprit + " is the first bad commit\n" +
		"commit " + culprit + "\nAuthor: Dev <dev@example.com>\n\n    MDL-1 core: break login\n"
}

func TestBlameUsesLastWeekRevisionAndAlwaysResets(testInstance *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	executor := &testsupport.ScriptedGitExecutor{Responses: []testsupport.ScriptedResponse{
		{Prefix: "rev-list", Result: execshell.ExecutionResult{StandardOutput: testGoodRevisionConstant + "\n"}},
		{Prefix: "bisect run", Result: execshell.ExecutionResult{StandardOutput: culpritOutput(testCulpritConstant)}},
	}}
	observedCore, observedLogs := observer.New(zapcore.InfoLevel)
	service := bisect.NewService(bisect.ServiceDependencies{Logger: zap.New(observedCore), Clock: fixedClock{now: now}})

	result, blameError := service.Blame(context.Background(), newBisectRepository(testInstance, executor), bisect.Session{TestCommand: testTestCommand})
	require.NoError(testInstance, blameError)

	require.Equal(testInstance, bisect.Result{
		GoodRevision: testGoodRevisionConstant,
		BadRevision:  "HEAD",
		Culprit:      testCulpritConstant,
		Found:        true,
		Output:       culpritOutput(testCulpritConstant),
		State:        bisect.SessionReset,
	}, result)

	cutoff := now.Add(-bisect.GoodRevisionLookback).Unix()
	require.Equal(testInstance, []string{
		"rev-list --max-count=1 --before=" + strconv.FormatInt(cutoff, 10) + " HEAD",
		"bisect start HEAD " + testGoodRevisionConstant,
		"bisect run mdk behat -r -sof",
		testBisectResetConstant,
	}, executor.ArgumentLines())
	require.Equal(testInstance, 1, observedLogs.FilterMessage("First bad commit found").Len())
}

func TestBlameResetsAfterEveryFailure(testInstance *testing.T) {
	testCases := []struct {
		name          string
		responses     []testsupport.ScriptedResponse
		expectedError error
		expectedLines []string
	}{
		{
			name:          "start_rejected",
			responses:     []testsupport.ScriptedResponse{{Prefix: "bisect start", Result: execshell.ExecutionResult{ExitCode: 1, StandardError: "fatal: bad revision"}}},
			expectedError: bisect.ErrBisectStartFailed,
			expectedLines: []string{"bisect start HEAD " + testGoodRevisionConstant, testBisectResetConstant},
		},
		{
			name:          "start_launch_failure",
			responses:     []testsupport.ScriptedResponse{{Prefix: "bisect start", Error: errors.New("signal: killed")}},
			expectedError: nil,
			expectedLines: []string{"bisect start HEAD " + testGoodRevisionConstant, testBisectResetConstant},
		},
		{
			name:          "run_cannot_decide",
			responses:     []testsupport.ScriptedResponse{{Prefix: "bisect run", Result: execshell.ExecutionResult{ExitCode: 1, StandardOutput: "running mdk\n", StandardError: "bisect run failed: exit code 255 from 'mdk' is < 0 or >= 128"}}},
			expectedError: bisect.ErrBisectRunFailed,
			expectedLines: []string{"bisect start HEAD " + testGoodRevisionConstant, "bisect run mdk behat -r -sof", testBisectResetConstant},
		},
		{
			name:          "reset_rejected",
			responses:     []testsupport.ScriptedResponse{{Prefix: "bisect run", Result: execshell.ExecutionResult{StandardOutput: culpritOutput(testCulpritConstant)}}, {Prefix: "bisect reset", Result: execshell.ExecutionResult{ExitCode: 1}}},
			expectedError: bisect.ErrBisectResetFailed,
			expectedLines: []string{"bisect start HEAD " + testGoodRevisionConstant, "bisect run mdk behat -r -sof", testBisectResetConstant},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &testsupport.ScriptedGitExecutor{Responses: testCase.responses}
			service := bisect.NewService(bisect.ServiceDependencies{})

			_, blameError := service.Blame(context.Background(), newBisectRepository(testInstance, executor), bisect.Session{GoodRevision: testGoodRevisionConstant, TestCommand: testTestCommand})
			require.Error(testInstance, blameError)
			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, blameError, testCase.expectedError)
			}
			require.Equal(testInstance, testCase.expectedLines, executor.ArgumentLines())
		})
	}
}

func TestBlameResetsWithLiveContextAfterInterrupt(testInstance *testing.T) {
	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()
	executor := &testsupport.ScriptedGitExecutor{
		CancelAfterPrefix: "bisect run",
		Cancel:            cancel,
	}
	service := bisect.NewService(bisect.ServiceDependencies{Logger: zap.NewNop()})

	result, blameError := service.Blame(executionContext, newBisectRepository(testInstance, executor), bisect.Session{GoodRevision: testGoodRevisionConstant, TestCommand: testTestCommand})
	require.NoError(testInstance, blameError)

	require.Equal(testInstance, bisect.SessionReset, result.State)
	require.Contains(testInstance, executor.ArgumentLines(), testBisectResetConstant)
	require.Empty(testInstance, executor.CancelledCommands)
}

func TestBlameWithoutHistoryOlderThanAWeek(testInstance *testing.T) {
	executor := &testsupport.ScriptedGitExecutor{}
	service := bisect.NewService(bisect.ServiceDependencies{Clock: fixedClock{now: time.Now()}})

	_, blameError := service.Blame(context.Background(), newBisectRepository(testInstance, executor), bisect.Session{TestCommand: testTestCommand})
	require.ErrorIs(testInstance, blameError, bisect.ErrNoRevisionBeforeCutoff)
	require.Len(testInstance, executor.ArgumentLines(), 1)
}

func TestBlameValidatesSession(testInstance *testing.T) {
	service := bisect.NewService(bisect.ServiceDependencies{})
	_, blameError := service.Blame(context.Background(), newBisectRepository(testInstance, &testsupport.ScriptedGitExecutor{}), bisect.Session{})
	require.ErrorIs(testInstance, blameError, bisect.ErrTestCommandRequired)

	executor := &testsupport.ScriptedGitExecutor{NotRepository: true}
	_, blameError = service.Blame(context.Background(), newBisectRepository(testInstance, executor), bisect.Session{GoodRevision: testGoodRevisionConstant, TestCommand: testTestCommand})
	require.ErrorIs(testInstance, blameError, gitrepo.ErrNotRepository)
}

func TestParseFirstBadCommit(testInstance *testing.T) {
	culprit, found := bisect.ParseFirstBadCommit(culpritOutput(testCulpritConstant))
	require.True(testInstance, found)
	require.Equal(testInstance, testCulpritConstant, culprit)

	_, found = bisect.ParseFirstBadCommit("Bisecting: 3 revisions left to test after this\n")
	require.False(testInstance, found)
}
