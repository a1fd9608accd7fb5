// Package dependencies supplies the default collaborators shared by command builders.
package dependencies

import (
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/mdk/internal/execshell"
	"github.com/temirov/mdk/internal/gitrepo"
)

// ResolveLogger returns the provided logger or a no-op logger.
func ResolveLogger(provider func() *zap.Logger) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// ResolveGitExecutor returns the provided executor or constructs a shell-backed default.
func ResolveGitExecutor(existing gitrepo.GitExecutor, logger *zap.Logger, observer execshell.CommandEventObserver) (gitrepo.GitExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	options := []execshell.ExecutorOption{}
	if observer != nil {
		options = append(options, execshell.WithCommandEventObserver(observer))
	}
	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), options...)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// RepositoryOpener binds repositories to one executor and git binary.
type RepositoryOpener struct {
	Executor   gitrepo.GitExecutor
	Executable string
}

// Open returns a repository client for path.
func (opener RepositoryOpener) Open(path string) (*gitrepo.Repository, error) {
	options := []gitrepo.RepositoryOption{}
	if executable := strings.TrimSpace(opener.Executable); len(executable) > 0 {
		options = append(options, gitrepo.WithExecutable(executable))
	}
	return gitrepo.NewRepository(opener.Executor, path, options...)
}
