package backport

import "strings"

// Status classifies how a single target ended.
type Status string

// Target statuses.
const (
	StatusSucceeded              Status = "succeeded"
	StatusSkippedMissingInstance Status = "skipped-missing-instance"
	StatusFailedStash            Status = "failed-stash"
	StatusFailedFetch            Status = "failed-fetch"
	StatusFailedBranchCreate     Status = "failed-branch-create"
	StatusFailedCherryPick       Status = "failed-cherry-pick"
	StatusFailedPush             Status = "failed-push"
	StatusStashPopWarning        Status = "stash-pop-warning"
)

const failedStatusPrefixConstant = "failed-"

// Failed reports whether the status is one of the failed-* statuses.
func (status Status) Failed() bool {
	return strings.HasPrefix(string(status), failedStatusPrefixConstant)
}

// Options carries the caller's request before it is resolved against the registry.
type Options struct {
	Issue            string
	Suffix           string
	InstanceName     string
	WorkingDirectory string
	SourceBranch     string
	Versions         []string
	Remote           string
	PushRemote       string
	Push             bool
	ForcePush        bool
}

// Task is a fully resolved backport request.
type Task struct {
	Issue                   string   `yaml:"issue"`
	Suffix                  string   `yaml:"suffix,omitempty"`
	SourceInstance          string   `yaml:"source_instance"`
	SourceBranch            string   `yaml:"source_branch"`
	OriginatingStableBranch string   `yaml:"originating_stable_branch"`
	TargetVersions          []string `yaml:"target_versions"`
	SourceRemote            string   `yaml:"source_remote"`
	PushRemote              string   `yaml:"push_remote,omitempty"`
	Push                    bool     `yaml:"push"`
	ForcePush               bool     `yaml:"force_push"`
	Integration             bool     `yaml:"integration"`
}

// Outcome records what happened to one target version.
type Outcome struct {
	TargetVersion   string `yaml:"target_version"`
	InstanceName    string `yaml:"instance"`
	BranchName      string `yaml:"branch,omitempty"`
	Status          Status `yaml:"status"`
	Diagnostic      string `yaml:"diagnostic,omitempty"`
	StashPopWarning bool   `yaml:"stash_pop_warning"`
}

// Report lists the outcome of every target in input order.
type Report struct {
	Task     Task      `yaml:"task"`
	Outcomes []Outcome `yaml:"outcomes"`
}

// Failed reports whether any target ended in a failed-* status.
func (report Report) Failed() bool {
	for _, outcome := range report.Outcomes {
		if outcome.Status.Failed() {
			return true
		}
	}
	return false
}
