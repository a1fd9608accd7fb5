package backport_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/mdk/internal/backport"
	"github.com/temirov/mdk/internal/dependencies"
	"github.com/temirov/mdk/internal/execshell"
	"github.com/temirov/mdk/internal/gitrepo"
	"github.com/temirov/mdk/internal/instances"
	"github.com/temirov/mdk/internal/testsupport"
)

func TestBackportTwiceAgainstRealGitIsIdempotent(testInstance *testing.T) {
	testsupport.RequireGitBinary(testInstance)

	now := time.Now()
	source := testsupport.NewRepositoryFixture(testInstance)
	source.Commit("Initial", now.Add(-48*time.Hour), map[string]string{"version.php": "master\n"})
	sourceFix := source.Commit("MDL-1 core: fix", now.Add(-time.Hour), map[string]string{"lib/fix.php": "fixed\n"})
	source.SetBranch(testSourceBranchConstant, sourceFix)

	target := testsupport.NewRepositoryFixture(testInstance)
	target.ConfigureIdentity()
	targetBase := target.Commit("Initial", now.Add(-48*time.Hour), map[string]string{"version.php": "23\n"})
	targetFix := target.Commit("MDL-1 core: fix", now.Add(-time.Hour), map[string]string{"lib/fix.php": "fixed\n"})
	target.AddRemote(gitrepo.OriginRemoteName)
	target.AddRemote("github")
	target.SetRemoteBranch(gitrepo.OriginRemoteName, "master", targetBase)
	target.SetRemoteBranch(gitrepo.OriginRemoteName, "MOODLE_23_STABLE", targetBase)
	target.SetRemoteBranch("github", testSourceBranchConstant, targetFix)
	target.WriteFile("notes.txt", "local work\n")

	registry, registryError := instances.NewRegistry(instances.Configuration{Instances: []instances.InstanceConfiguration{
		{Version: instances.MasterVersion, Path: source.Path},
		{Version: "23", Path: target.Path},
	}})
	require.NoError(testInstance, registryError)

	executor, executorError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner())
	require.NoError(testInstance, executorError)
	opener := dependencies.RepositoryOpener{Executor: executor}
	service, serviceError := backport.NewService(backport.ServiceDependencies{
		Registry: registry,
		RepositoryFactory: func(path string) (backport.Repository, error) {
			return opener.Open(path)
		},
	})
	require.NoError(testInstance, serviceError)

	targetRepository, openError := opener.Open(target.Path)
	require.NoError(testInstance, openError)
	executionContext := context.Background()

	for run := 0; run < 2; run++ {
		report, backportError := service.Backport(executionContext, defaultOptions("23"))
		require.NoError(testInstance, backportError)
		require.Len(testInstance, report.Outcomes, 1)
		require.Equal(testInstance, backport.StatusSucceeded, report.Outcomes[0].Status, report.Outcomes[0].Diagnostic)

		currentBranch, branchError := targetRepository.CurrentBranch(executionContext)
		require.NoError(testInstance, branchError)
		require.Equal(testInstance, testTargetBranchConstant, currentBranch)

		revisions, listError := targetRepository.RevisionList(executionContext, gitrepo.RevisionQuery{})
		require.NoError(testInstance, listError)
		require.Len(testInstance, revisions, 2)
		require.Equal(testInstance, targetBase.String(), revisions[1])

		notes, readError := os.ReadFile(filepath.Join(target.Path, "notes.txt"))
		require.NoError(testInstance, readError)
		require.Equal(testInstance, "local work\n", string(notes))
	}
}
