package dependencies_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/mdk/internal/dependencies"
	"github.com/temirov/mdk/internal/execshell"
	"github.com/temirov/mdk/internal/testsupport"
)

func TestResolveGitExecutorPrefersExisting(testInstance *testing.T) {
	existing := &testsupport.ScriptedGitExecutor{}
	resolved, resolveError := dependencies.ResolveGitExecutor(existing, zap.NewNop(), nil)
	require.NoError(testInstance, resolveError)
	require.Same(testInstance, existing, resolved)
}

func TestResolveGitExecutorBuildsShellExecutor(testInstance *testing.T) {
	resolved, resolveError := dependencies.ResolveGitExecutor(nil, zap.NewNop(), nil)
	require.NoError(testInstance, resolveError)
	require.IsType(testInstance, &execshell.ShellExecutor{}, resolved)

	_, resolveError = dependencies.ResolveGitExecutor(nil, nil, nil)
	require.ErrorIs(testInstance, resolveError, execshell.ErrLoggerNotConfigured)
}

func TestResolveLoggerFallsBackToNop(testInstance *testing.T) {
	require.NotNil(testInstance, dependencies.ResolveLogger(nil))
	require.NotNil(testInstance, dependencies.ResolveLogger(func() *zap.Logger { return nil }))
	logger := zap.NewExample()
	require.Same(testInstance, logger, dependencies.ResolveLogger(func() *zap.Logger { return logger }))
}

func TestRepositoryOpenerAppliesExecutable(testInstance *testing.T) {
	opener := dependencies.RepositoryOpener{Executor: &testsupport.ScriptedGitExecutor{}, Executable: "/usr/local/bin/git"}
	repository, openError := opener.Open("/srv/moodles/stable_23/moodle")
	require.NoError(testInstance, openError)
	require.Equal(testInstance, "/usr/local/bin/git", repository.Executable())
	require.Equal(testInstance, "/srv/moodles/stable_23/moodle", repository.Path())
}
