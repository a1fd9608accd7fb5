package gitrepo

import (
	"errors"
	"fmt"
)

const (
	notRepositoryMessageConstant           = "not a git repository"
	notRepositoryTemplateConstant          = "%s is not a git repository"
	gitExecutorMissingMessageConstant      = "git executor not configured"
	repositoryPathRequiredMessageConstant  = "repository path must be provided"
	repositoryProbeFailureTemplateConstant = "unable to probe repository %s: %w"
	revisionListFailureTemplateConstant    = "failed to list revisions of %s: %w"
	gitOperationFailureTemplateConstant    = "git %s failed in %s: %w"
)

// ErrNotRepository is matched by every NotRepositoryError.
var ErrNotRepository = errors.New(notRepositoryMessageConstant)

// ErrGitExecutorNotConfigured indicates the executor dependency was missing.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// ErrRepositoryPathRequired indicates an empty repository path.
var ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessageConstant)

// NotRepositoryError reports that the bound path failed the repository probe.
type NotRepositoryError struct {
	Path string
}

// Error describes the offending path.
func (repositoryError NotRepositoryError) Error() string {
	return fmt.Sprintf(notRepositoryTemplateConstant, repositoryError.Path)
}

// Is allows errors.Is(err, ErrNotRepository).
func (repositoryError NotRepositoryError) Is(target error) bool {
	return target == ErrNotRepository
}
