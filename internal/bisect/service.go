package bisect

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/mdk/internal/execshell"
	"github.com/temirov/mdk/internal/gitrepo"
)

// GoodRevisionLookback is how far back the default good revision is taken from.
const GoodRevisionLookback = 7 * 24 * time.Hour

const (
	defaultBadRevisionConstant = "HEAD"

	noRevisionBeforeCutoffMessageConstant = "no revision older than one week; history must span at least a week or a good revision must be given"
	bisectStartFailedMessageConstant      = "git bisect start failed"
	bisectRunFailedMessageConstant        = "git bisect run failed"
	bisectResetFailedMessageConstant      = "git bisect reset failed"
	testCommandRequiredMessageConstant    = "test command must be provided"
	repositoryRequiredMessageConstant     = "repository must be provided"

	goodRevisionLookupErrorTemplateConstant = "unable to determine good revision: %w"
	commandFailureTemplateConstant          = "%w (exit code %d): %s"

	logMessageLookingUpGoodConstant = "No good revision given, using the last revision older than a week"
	logMessageStartingConstant      = "Starting bisection"
	logMessageRunningConstant       = "Running automated bisection"
	logMessageResettingConstant     = "Resetting bisection"
	logMessageCulpritFoundConstant  = "First bad commit found"
	logMessageNoCulpritConstant     = "Bisection finished without a culprit"

	logFieldGoodRevisionConstant = "good_revision"
	logFieldBadRevisionConstant  = "bad_revision"
	logFieldCutoffConstant       = "before"
	logFieldTestCommandConstant  = "test_command"
	logFieldCulpritConstant      = "culprit"
	logFieldStateConstant        = "state"
)

var (
	// ErrNoRevisionBeforeCutoff indicates the one-week fallback found nothing.
	ErrNoRevisionBeforeCutoff = errors.New(noRevisionBeforeCutoffMessageConstant)
	// ErrBisectStartFailed indicates git refused to start the bisection.
	ErrBisectStartFailed = errors.New(bisectStartFailedMessageConstant)
	// ErrBisectRunFailed indicates git bisect run stopped without naming a culprit.
	ErrBisectRunFailed = errors.New(bisectRunFailedMessageConstant)
	// ErrBisectResetFailed indicates the bisection state could not be cleared.
	ErrBisectResetFailed = errors.New(bisectResetFailedMessageConstant)
	// ErrTestCommandRequired indicates an empty test command.
	ErrTestCommandRequired = errors.New(testCommandRequiredMessageConstant)

	errRepositoryRequired = errors.New(repositoryRequiredMessageConstant)

	firstBadCommitPattern = regexp.MustCompile(`(?m)^([0-9a-f]{7,64}) is the first bad commit`)
)

// SessionState tracks a bisection through its lifecycle.
type SessionState string

// Session states.
const (
	SessionIdle    SessionState = "idle"
	SessionStarted SessionState = "started"
	SessionRunning SessionState = "running"
	SessionReset   SessionState = "reset"
)

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Repository is the subset of gitrepo.Repository a bisection needs.
type Repository interface {
	RevisionList(executionContext context.Context, query gitrepo.RevisionQuery) ([]string, error)
	BisectStart(executionContext context.Context, badRevision string, goodRevision string) (execshell.ExecutionResult, error)
	BisectRun(executionContext context.Context, testCommand []string) (execshell.ExecutionResult, error)
	BisectReset(executionContext context.Context) (execshell.ExecutionResult, error)
}

// Session describes one bisection request.
type Session struct {
	GoodRevision string
	BadRevision  string
	TestCommand  []string
}

// Result reports what a bisection found.
type Result struct {
	GoodRevision string
	BadRevision  string
	Culprit      string
	Found        bool
	Output       string
	State        SessionState
}

// ServiceDependencies describes the collaborators of a Service.
type ServiceDependencies struct {
	Logger *zap.Logger
	Clock  Clock
}

// Service runs bisection sessions.
type Service struct {
	logger *zap.Logger
	clock  Clock
}

// NewService constructs a Service, defaulting to a no-op logger and the system clock.
func NewService(dependencies ServiceDependencies) *Service {
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{logger: logger, clock: clock}
}

// Blame starts a bisection, lets the test command classify revisions and always resets afterwards.
// Reset failures are joined into the returned error.
func (service *Service) Blame(executionContext context.Context, repository Repository, session Session) (result Result, blameError error) {
	result.State = SessionIdle
	if repository == nil {
		return result, errRepositoryRequired
	}
	if len(session.TestCommand) == 0 {
		return result, ErrTestCommandRequired
	}

	goodRevision, lookupError := service.resolveGoodRevision(executionContext, repository, session.GoodRevision)
	if lookupError != nil {
		return result, lookupError
	}
	badRevision := strings.TrimSpace(session.BadRevision)
	if len(badRevision) == 0 {
		badRevision = defaultBadRevisionConstant
	}
	result.GoodRevision = goodRevision
	result.BadRevision = badRevision

	// The reset must run even after an interrupt cancelled executionContext.
	cleanupContext := context.WithoutCancel(executionContext)
	defer func() {
		service.logger.Info(logMessageResettingConstant, zap.String(logFieldStateConstant, string(result.State)))
		if resetError := service.reset(cleanupContext, repository); resetError != nil {
			blameError = errors.Join(blameError, resetError)
			return
		}
		result.State = SessionReset
	}()

	service.logger.Info(logMessageStartingConstant, zap.String(logFieldGoodRevisionConstant, goodRevision), zap.String(logFieldBadRevisionConstant, badRevision))
	startResult, startError := repository.BisectStart(executionContext, badRevision, goodRevision)
	if startError != nil {
		return result, startError
	}
	if startResult.ExitCode != 0 {
		return result, commandFailure(ErrBisectStartFailed, startResult)
	}
	result.State = SessionStarted

	service.logger.Info(logMessageRunningConstant, zap.Strings(logFieldTestCommandConstant, session.TestCommand))
	result.State = SessionRunning
	runResult, runError := repository.BisectRun(executionContext, session.TestCommand)
	if runError != nil {
		return result, runError
	}
	result.Output = runResult.StandardOutput
	if culprit, found := ParseFirstBadCommit(runResult.StandardOutput); found {
		result.Culprit = culprit
		result.Found = true
		service.logger.Info(logMessageCulpritFoundConstant, zap.String(logFieldCulpritConstant, culprit))
		return result, nil
	}
	if runResult.ExitCode != 0 {
		return result, commandFailure(ErrBisectRunFailed, runResult)
	}
	service.logger.Warn(logMessageNoCulpritConstant)
	return result, nil
}

func (service *Service) resolveGoodRevision(executionContext context.Context, repository Repository, explicit string) (string, error) {
	if trimmed := strings.TrimSpace(explicit); len(trimmed) > 0 {
		return trimmed, nil
	}

	cutoff := service.clock.Now().Add(-GoodRevisionLookback)
	service.logger.Info(logMessageLookingUpGoodConstant, zap.Time(logFieldCutoffConstant, cutoff))
	revisions, listError := repository.RevisionList(executionContext, gitrepo.RevisionQuery{Limit: 1, Before: cutoff})
	if listError != nil {
		return "", fmt.Errorf(goodRevisionLookupErrorTemplateConstant, listError)
	}
	if len(revisions) == 0 {
		return "", ErrNoRevisionBeforeCutoff
	}
	return revisions[0], nil
}

func (service *Service) reset(executionContext context.Context, repository Repository) error {
	resetResult, resetError := repository.BisectReset(executionContext)
	if resetError != nil {
		return fmt.Errorf("%w: %w", ErrBisectResetFailed, resetError)
	}
	if resetResult.ExitCode != 0 {
		return commandFailure(ErrBisectResetFailed, resetResult)
	}
	return nil
}

// ParseFirstBadCommit extracts the culprit from git bisect run output.
func ParseFirstBadCommit(output string) (string, bool) {
	match := firstBadCommitPattern.FindStringSubmatch(output)
	if len(match) < 2 {
		return "", false
	}
	return match[1], true
}

func commandFailure(sentinel error, result execshell.ExecutionResult) error {
	return fmt.Errorf(commandFailureTemplateConstant, sentinel, result.ExitCode, strings.TrimSpace(result.StandardError))
}
