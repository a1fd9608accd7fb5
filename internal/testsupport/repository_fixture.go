package testsupport

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	fixtureAuthorNameConstant  = "Fixture Author"
	fixtureAuthorEmailConstant = "fixture@example.com"
	fixtureFilePermissions     = 0o644
)

// RepositoryFixture builds a throwaway repository on disk with go-git.
type RepositoryFixture struct {
	testInstance *testing.T
	Path         string
	Repository   *git.Repository
}

// RequireGitBinary skips the test when no git executable is available.
func RequireGitBinary(testInstance *testing.T) {
	testInstance.Helper()
	if _, lookupError := exec.LookPath("git"); lookupError != nil {
		testInstance.Skip("git executable not available")
	}
}

// NewRepositoryFixture initializes an empty repository in a temporary directory.
func NewRepositoryFixture(testInstance *testing.T) *RepositoryFixture {
	testInstance.Helper()
	directory := testInstance.TempDir()
	repository, initError := git.PlainInit(directory, false)
	if initError != nil {
		testInstance.Fatalf("init fixture repository: %v", initError)
	}
	return &RepositoryFixture{testInstance: testInstance, Path: directory, Repository: repository}
}

// Commit writes the files and records a commit authored at when.
func (fixture *RepositoryFixture) Commit(message string, when time.Time, files map[string]string) plumbing.Hash {
	fixture.testInstance.Helper()
	worktree, worktreeError := fixture.Repository.Worktree()
	if worktreeError != nil {
		fixture.testInstance.Fatalf("open worktree: %v", worktreeError)
	}
	for relativePath, content := range files {
		absolutePath := filepath.Join(fixture.Path, relativePath)
		if mkdirError := os.MkdirAll(filepath.Dir(absolutePath), 0o755); mkdirError != nil {
			fixture.testInstance.Fatalf("create directory for %s: %v", relativePath, mkdirError)
		}
		if writeError := os.WriteFile(absolutePath, []byte(content), fixtureFilePermissions); writeError != nil {
			fixture.testInstance.Fatalf("write %s: %v", relativePath, writeError)
		}
		if _, addError := worktree.Add(relativePath); addError != nil {
			fixture.testInstance.Fatalf("stage %s: %v", relativePath, addError)
		}
	}
	signature := &object.Signature{Name: fixtureAuthorNameConstant, Email: fixtureAuthorEmailConstant, When: when}
	hash, commitError := worktree.Commit(message, &git.CommitOptions{Author: signature, Committer: signature})
	if commitError != nil {
		fixture.testInstance.Fatalf("commit %q: %v", message, commitError)
	}
	return hash
}

// AddRemote registers a remote pointing back at the fixture itself.
func (fixture *RepositoryFixture) AddRemote(remoteName string) {
	fixture.testInstance.Helper()
	_, remoteError := fixture.Repository.CreateRemote(&gitconfig.RemoteConfig{Name: remoteName, URLs: []string{fixture.Path}})
	if remoteError != nil {
		fixture.testInstance.Fatalf("create remote %s: %v", remoteName, remoteError)
	}
}

// SetRemoteBranch points refs/remotes/<remote>/<branch> at hash.
func (fixture *RepositoryFixture) SetRemoteBranch(remoteName string, branchName string, hash plumbing.Hash) {
	fixture.testInstance.Helper()
	reference := plumbing.NewHashReference(plumbing.NewRemoteReferenceName(remoteName, branchName), hash)
	if setError := fixture.Repository.Storer.SetReference(reference); setError != nil {
		fixture.testInstance.Fatalf("set remote branch %s/%s: %v", remoteName, branchName, setError)
	}
}

// WriteFile writes an uncommitted file into the working tree.
func (fixture *RepositoryFixture) WriteFile(relativePath string, content string) {
	fixture.testInstance.Helper()
	if writeError := os.WriteFile(filepath.Join(fixture.Path, relativePath), []byte(content), fixtureFilePermissions); writeError != nil {
		fixture.testInstance.Fatalf("write %s: %v", relativePath, writeError)
	}
}

// SetBranch points refs/heads/<branch> at hash.
func (fixture *RepositoryFixture) SetBranch(branchName string, hash plumbing.Hash) {
	fixture.testInstance.Helper()
	reference := plumbing.NewHashReference(plumbing.NewBranchReferenceName(branchName), hash)
	if setError := fixture.Repository.Storer.SetReference(reference); setError != nil {
		fixture.testInstance.Fatalf("set branch %s: %v", branchName, setError)
	}
}

// ConfigureIdentity stores a committer identity in the repository configuration so git can commit.
func (fixture *RepositoryFixture) ConfigureIdentity() {
	fixture.testInstance.Helper()
	configuration, configurationError := fixture.Repository.Config()
	if configurationError != nil {
		fixture.testInstance.Fatalf("read fixture configuration: %v", configurationError)
	}
	configuration.User.Name = fixtureAuthorNameConstant
	configuration.User.Email = fixtureAuthorEmailConstant
	if setError := fixture.Repository.SetConfig(configuration); setError != nil {
		fixture.testInstance.Fatalf("write fixture configuration: %v", setError)
	}
}
