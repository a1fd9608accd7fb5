package backport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/mdk/internal/execshell"
	"github.com/temirov/mdk/internal/gitrepo"
	"github.com/temirov/mdk/internal/instances"
)

const (
	registryMissingMessageConstant          = "instance registry not configured"
	repositoryFactoryMissingMessageConstant = "repository factory not configured"
	issueRequiredMessageConstant            = "issue must be provided"
	versionsRequiredMessageConstant         = "at least one target version must be provided"
	remoteRequiredMessageConstant           = "source remote must be provided"
	sourceInstanceNotFoundMessageConstant   = "source instance not found"
	sourceBranchMissingMessageConstant      = "original branch not found in source instance"

	sourceInstanceNotFoundTemplateConstant = "%w: %s"
	sourceBranchMissingTemplateConstant    = "%w: %s in %s"
	sourceRepositoryErrorTemplateConstant  = "unable to inspect source instance %s: %w"
	missingInstanceTemplateConstant        = "could not find instance %s for version %s"
	branchCreateTemplateConstant           = "could not create branch %s tracking %s in %s"
	branchCheckoutTemplateConstant         = "could not check out branch %s in %s"
	branchResetTemplateConstant            = "could not hard reset %s to %s in %s"
	stashPopFailureTemplateConstant        = "unable to restore stashed changes in %s: %s"

	logMessageTargetSkippedConstant    = "Could not find target instance"
	logMessagePreparingConstant        = "Preparing cherry-pick"
	logMessageStashedConstant          = "Stashed local changes"
	logMessageFetchingConstant         = "Fetching remote"
	logMessageFetchFailedConstant      = "Fetch failed, continuing with existing references"
	logMessageCreatingBranchConstant   = "Creating branch"
	logMessageResettingBranchConstant  = "Hard reset to stable branch"
	logMessageCherryPickingConstant    = "Cherry-picking"
	logMessagePushingConstant          = "Pushing branch"
	logMessagePoppedStashConstant      = "Popped the stash"
	logMessageStashPopFailedConstant   = "An error occurred while unstashing local changes"
	logMessageTargetFailedConstant     = "Backport failed for target"
	logMessageTargetSucceededConstant  = "Instance successfully patched"
	logMessageBackportCompleteConstant = "Backport complete"

	logFieldIssueConstant         = "issue"
	logFieldInstanceConstant      = "instance"
	logFieldVersionConstant       = "version"
	logFieldBranchConstant        = "branch"
	logFieldRemoteConstant        = "remote"
	logFieldRangeConstant         = "range"
	logFieldTrackConstant         = "track"
	logFieldStatusConstant        = "status"
	logFieldDiagnosticConstant    = "diagnostic"
	logFieldTargetCountConstant   = "targets"
	logFieldStandardErrorConstant = "stderr"
	logFieldFailedTargetsConstant = "failed_targets"
)

var (
	errRegistryMissing          = errors.New(registryMissingMessageConstant)
	errRepositoryFactoryMissing = errors.New(repositoryFactoryMissingMessageConstant)

	// ErrIssueRequired indicates an empty issue identifier.
	ErrIssueRequired = errors.New(issueRequiredMessageConstant)
	// ErrVersionsRequired indicates an empty target version list.
	ErrVersionsRequired = errors.New(versionsRequiredMessageConstant)
	// ErrRemoteRequired indicates no remote to fetch the original branch from.
	ErrRemoteRequired = errors.New(remoteRequiredMessageConstant)
	// ErrSourceInstanceNotFound indicates the source instance is not registered.
	ErrSourceInstanceNotFound = errors.New(sourceInstanceNotFoundMessageConstant)
	// ErrSourceBranchMissing indicates the source instance lacks the branch being backported.
	ErrSourceBranchMissing = errors.New(sourceBranchMissingMessageConstant)
)

// Repository is the subset of gitrepo.Repository used by a backport.
type Repository interface {
	HasBranch(executionContext context.Context, branchName string, remoteName string) (bool, error)
	CreateBranch(executionContext context.Context, branchName string, trackReference string) (bool, error)
	Checkout(executionContext context.Context, branchName string) (bool, error)
	Reset(executionContext context.Context, reference string, hard bool) (bool, error)
	Fetch(executionContext context.Context, remoteName string, referenceSpec string) (execshell.ExecutionResult, error)
	CherryPick(executionContext context.Context, revisionRange string) (execshell.ExecutionResult, error)
	Push(executionContext context.Context, remoteName string, branchName string, force bool) (execshell.ExecutionResult, error)
	Stash(executionContext context.Context, command gitrepo.StashCommand, includeUntracked bool) (execshell.ExecutionResult, error)
}

// RepositoryFactory opens the repository of an instance checkout.
type RepositoryFactory func(path string) (Repository, error)

// InstanceRegistry resolves instances and branch names.
type InstanceRegistry interface {
	Lookup(name string) (instances.Instance, bool)
	LocateDirectory(directory string) (instances.Instance, bool)
	Resolve(version string, integration bool) (instances.Instance, bool)
	InstanceName(version string, integration bool) string
	BranchName(issue string, version string, suffix string) string
}

// ServiceDependencies describes the collaborators of a Service.
type ServiceDependencies struct {
	Logger            *zap.Logger
	Registry          InstanceRegistry
	RepositoryFactory RepositoryFactory
}

// Service runs backports one target at a time.
type Service struct {
	logger            *zap.Logger
	registry          InstanceRegistry
	repositoryFactory RepositoryFactory
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Registry == nil {
		return nil, errRegistryMissing
	}
	if dependencies.RepositoryFactory == nil {
		return nil, errRepositoryFactoryMissing
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger, registry: dependencies.Registry, repositoryFactory: dependencies.RepositoryFactory}, nil
}

// Backport resolves the request and processes every target version in order.
// Only request-level problems are returned as errors; per-target failures live in the report.
func (service *Service) Backport(executionContext context.Context, options Options) (Report, error) {
	task, taskError := service.resolveTask(executionContext, options)
	if taskError != nil {
		return Report{}, taskError
	}

	report := Report{Task: task, Outcomes: make([]Outcome, 0, len(task.TargetVersions))}
	for _, version := range task.TargetVersions {
		outcome := service.backportTarget(executionContext, task, version)
		service.logOutcome(task, outcome)
		report.Outcomes = append(report.Outcomes, outcome)
	}

	service.logger.Info(
		logMessageBackportCompleteConstant,
		zap.String(logFieldIssueConstant, task.Issue),
		zap.Int(logFieldTargetCountConstant, len(report.Outcomes)),
		zap.Int(logFieldFailedTargetsConstant, countFailed(report.Outcomes)),
	)
	return report, nil
}

func (service *Service) resolveTask(executionContext context.Context, options Options) (Task, error) {
	issue := strings.TrimSpace(options.Issue)
	if len(issue) == 0 {
		return Task{}, ErrIssueRequired
	}
	versions := trimmedValues(options.Versions)
	if len(versions) == 0 {
		return Task{}, ErrVersionsRequired
	}
	remote := strings.TrimSpace(options.Remote)
	if len(remote) == 0 {
		return Task{}, ErrRemoteRequired
	}
	pushRemote := strings.TrimSpace(options.PushRemote)
	if len(pushRemote) == 0 {
		pushRemote = remote
	}

	source, sourceFound := service.locateSource(options)
	if !sourceFound {
		reference := strings.TrimSpace(options.InstanceName)
		if len(reference) == 0 {
			reference = options.WorkingDirectory
		}
		return Task{}, fmt.Errorf(sourceInstanceNotFoundTemplateConstant, ErrSourceInstanceNotFound, reference)
	}

	suffix := strings.TrimSpace(options.Suffix)
	sourceBranch := strings.TrimSpace(options.SourceBranch)
	if len(sourceBranch) == 0 {
		sourceBranch = service.registry.BranchName(issue, source.Version, suffix)
	}

	repository, openError := service.repositoryFactory(source.Path)
	if openError != nil {
		return Task{}, fmt.Errorf(sourceRepositoryErrorTemplateConstant, source.Name, openError)
	}
	hasBranch, branchError := repository.HasBranch(executionContext, sourceBranch, "")
	if branchError != nil {
		return Task{}, fmt.Errorf(sourceRepositoryErrorTemplateConstant, source.Name, branchError)
	}
	if !hasBranch {
		return Task{}, fmt.Errorf(sourceBranchMissingTemplateConstant, ErrSourceBranchMissing, sourceBranch, source.Name)
	}

	return Task{
		Issue:                   issue,
		Suffix:                  suffix,
		SourceInstance:          source.Name,
		SourceBranch:            sourceBranch,
		OriginatingStableBranch: source.StableBranch,
		TargetVersions:          versions,
		SourceRemote:            remote,
		PushRemote:              pushRemote,
		Push:                    options.Push,
		ForcePush:               options.ForcePush,
		Integration:             source.Integration,
	}, nil
}

func (service *Service) locateSource(options Options) (instances.Instance, bool) {
	if instanceName := strings.TrimSpace(options.InstanceName); len(instanceName) > 0 {
		return service.registry.Lookup(instanceName)
	}
	if workingDirectory := strings.TrimSpace(options.WorkingDirectory); len(workingDirectory) > 0 {
		return service.registry.LocateDirectory(workingDirectory)
	}
	return instances.Instance{}, false
}

// backportTarget never returns an error: everything that happens to the target is folded into the outcome.
func (service *Service) backportTarget(executionContext context.Context, task Task, version string) Outcome {
	outcome := Outcome{TargetVersion: version, InstanceName: service.registry.InstanceName(version, task.Integration)}

	target, found := service.registry.Resolve(version, task.Integration)
	if !found {
		outcome.Status = StatusSkippedMissingInstance
		outcome.Diagnostic = fmt.Sprintf(missingInstanceTemplateConstant, outcome.InstanceName, version)
		return outcome
	}
	outcome.InstanceName = target.Name
	outcome.BranchName = service.registry.BranchName(task.Issue, target.Version, task.Suffix)

	service.logger.Info(
		logMessagePreparingConstant,
		zap.String(logFieldInstanceConstant, target.Name),
		zap.String(logFieldRemoteConstant, task.SourceRemote),
		zap.String(logFieldBranchConstant, task.SourceBranch),
	)

	repository, openError := service.repositoryFactory(target.Path)
	if openError != nil {
		outcome.Status = StatusFailedStash
		outcome.Diagnostic = openError.Error()
		return outcome
	}

	stashResult, stashError := repository.Stash(executionContext, gitrepo.StashSave, true)
	if stashError != nil {
		outcome.Status = StatusFailedStash
		outcome.Diagnostic = stashError.Error()
		return outcome
	}
	if stashResult.ExitCode != 0 {
		outcome.Status = StatusFailedStash
		outcome.Diagnostic = strings.TrimSpace(stashResult.StandardError)
		return outcome
	}
	stashed := !gitrepo.StashWasEmpty(stashResult)
	if stashed {
		service.logger.Info(logMessageStashedConstant, zap.String(logFieldInstanceConstant, target.Name))
	}

	outcome.Status, outcome.Diagnostic = service.applyToTarget(executionContext, task, target, outcome.BranchName, repository)

	if stashed {
		service.restoreStash(context.WithoutCancel(executionContext), target, repository, &outcome)
	}
	return outcome
}

// applyToTarget fetches, prepares the branch, cherry-picks and optionally pushes.
func (service *Service) applyToTarget(executionContext context.Context, task Task, target instances.Instance, branchName string, repository Repository) (Status, string) {
	service.logger.Info(logMessageFetchingConstant, zap.String(logFieldInstanceConstant, target.Name), zap.String(logFieldRemoteConstant, task.SourceRemote))
	fetchResult, fetchError := repository.Fetch(executionContext, task.SourceRemote, "")
	if fetchError != nil {
		return StatusFailedFetch, fetchError.Error()
	}
	if fetchResult.ExitCode != 0 {
		service.logger.Warn(
			logMessageFetchFailedConstant,
			zap.String(logFieldInstanceConstant, target.Name),
			zap.String(logFieldRemoteConstant, task.SourceRemote),
			zap.String(logFieldStandardErrorConstant, strings.TrimSpace(fetchResult.StandardError)),
		)
	}

	if diagnostic, prepared := service.prepareBranch(executionContext, target, branchName, repository); !prepared {
		return StatusFailedBranchCreate, diagnostic
	}

	revisionRange := gitrepo.CherryPickRange(task.SourceRemote, task.SourceBranch, task.OriginatingStableBranch)
	service.logger.Info(logMessageCherryPickingConstant, zap.String(logFieldInstanceConstant, target.Name), zap.String(logFieldRangeConstant, revisionRange))
	pickResult, pickError := repository.CherryPick(executionContext, revisionRange)
	if pickError != nil {
		return StatusFailedCherryPick, pickError.Error()
	}
	if pickResult.ExitCode != 0 {
		return StatusFailedCherryPick, strings.TrimSpace(pickResult.StandardError)
	}

	if task.Push {
		service.logger.Info(logMessagePushingConstant, zap.String(logFieldBranchConstant, branchName), zap.String(logFieldRemoteConstant, task.PushRemote))
		pushResult, pushError := repository.Push(executionContext, task.PushRemote, branchName, task.ForcePush)
		if pushError != nil {
			return StatusFailedPush, pushError.Error()
		}
		if pushResult.ExitCode != 0 {
			return StatusFailedPush, strings.TrimSpace(pushResult.StandardError)
		}
	}

	return StatusSucceeded, ""
}

// prepareBranch creates the issue branch from the target's stable branch, or resets an existing one to it.
func (service *Service) prepareBranch(executionContext context.Context, target instances.Instance, branchName string, repository Repository) (string, bool) {
	trackReference := gitrepo.TrackingReference(target.StableBranch)

	exists, lookupError := repository.HasBranch(executionContext, branchName, "")
	if lookupError != nil {
		return lookupError.Error(), false
	}

	if !exists {
		service.logger.Info(logMessageCreatingBranchConstant, zap.String(logFieldBranchConstant, branchName), zap.String(logFieldTrackConstant, trackReference))
		created, createError := repository.CreateBranch(executionContext, branchName, trackReference)
		if createError != nil {
			return createError.Error(), false
		}
		if !created {
			return fmt.Sprintf(branchCreateTemplateConstant, branchName, trackReference, target.Name), false
		}
	}

	switched, checkoutError := repository.Checkout(executionContext, branchName)
	if checkoutError != nil {
		return checkoutError.Error(), false
	}
	if !switched {
		return fmt.Sprintf(branchCheckoutTemplateConstant, branchName, target.Name), false
	}

	if exists {
		service.logger.Info(logMessageResettingBranchConstant, zap.String(logFieldBranchConstant, branchName), zap.String(logFieldTrackConstant, trackReference))
		reset, resetError := repository.Reset(executionContext, trackReference, true)
		if resetError != nil {
			return resetError.Error(), false
		}
		if !reset {
			return fmt.Sprintf(branchResetTemplateConstant, branchName, trackReference, target.Name), false
		}
	}
	return "", true
}

func (service *Service) restoreStash(executionContext context.Context, target instances.Instance, repository Repository, outcome *Outcome) {
	popResult, popError := repository.Stash(executionContext, gitrepo.StashPop, false)
	failureDetail := ""
	switch {
	case popError != nil:
		failureDetail = popError.Error()
	case popResult.ExitCode != 0:
		failureDetail = strings.TrimSpace(popResult.StandardError)
	default:
		service.logger.Info(logMessagePoppedStashConstant, zap.String(logFieldInstanceConstant, target.Name))
		return
	}

	service.logger.Warn(logMessageStashPopFailedConstant, zap.String(logFieldInstanceConstant, target.Name), zap.String(logFieldDiagnosticConstant, failureDetail))
	outcome.StashPopWarning = true
	if outcome.Status == StatusSucceeded {
		outcome.Status = StatusStashPopWarning
		outcome.Diagnostic = fmt.Sprintf(stashPopFailureTemplateConstant, target.Name, failureDetail)
	}
}

func (service *Service) logOutcome(task Task, outcome Outcome) {
	fields := []zap.Field{
		zap.String(logFieldIssueConstant, task.Issue),
		zap.String(logFieldVersionConstant, outcome.TargetVersion),
		zap.String(logFieldInstanceConstant, outcome.InstanceName),
		zap.String(logFieldStatusConstant, string(outcome.Status)),
	}
	switch {
	case outcome.Status == StatusSucceeded:
		service.logger.Info(logMessageTargetSucceededConstant, fields...)
	case outcome.Status == StatusSkippedMissingInstance:
		service.logger.Warn(logMessageTargetSkippedConstant, fields...)
	case outcome.Status.Failed():
		service.logger.Error(logMessageTargetFailedConstant, append(fields, zap.String(logFieldDiagnosticConstant, outcome.Diagnostic))...)
	default:
		service.logger.Warn(logMessageTargetSucceededConstant, append(fields, zap.String(logFieldDiagnosticConstant, outcome.Diagnostic))...)
	}
}

func countFailed(outcomes []Outcome) int {
	failed := 0
	for _, outcome := range outcomes {
		if outcome.Status.Failed() {
			failed++
		}
	}
	return failed
}

func trimmedValues(values []string) []string {
	trimmed := make([]string, 0, len(values))
	for _, value := range values {
		if candidate := strings.TrimSpace(value); len(candidate) > 0 {
			trimmed = append(trimmed, candidate)
		}
	}
	return trimmed
}
