package instances

import (
	"strings"
	"unicode"
)

const branchNameSeparatorConstant = "-"

// BranchNamer builds issue branch names of the form <issue>-<version>[-<suffix>].
type BranchNamer struct {
	IssuePrefix string
}

// BranchName prefixes purely numeric issues with IssuePrefix.
func (namer BranchNamer) BranchName(issue string, version string, suffix string) string {
	parts := []string{namer.normalizeIssue(issue), strings.TrimSpace(version)}
	if trimmedSuffix := strings.TrimSpace(suffix); len(trimmedSuffix) > 0 {
		parts = append(parts, trimmedSuffix)
	}
	return strings.Join(parts, branchNameSeparatorConstant)
}

func (namer BranchNamer) normalizeIssue(issue string) string {
	trimmedIssue := strings.TrimSpace(issue)
	if len(trimmedIssue) == 0 || !isNumeric(trimmedIssue) {
		return trimmedIssue
	}
	prefix := namer.IssuePrefix
	if len(prefix) == 0 {
		prefix = defaultIssuePrefixConstant
	}
	return prefix + trimmedIssue
}

func isNumeric(value string) bool {
	for _, character := range value {
		if !unicode.IsDigit(character) {
			return false
		}
	}
	return true
}
