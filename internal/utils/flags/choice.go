// Package flags holds small helpers shared by cobra command builders.
package flags

import (
	"fmt"
	"strings"
)

const (
	choiceSeparatorConstant         = "|"
	choicePlaceholderTemplate       = "<%s>"
	choiceUsageTemplateConstant     = "`%s` %s"
	choiceBareUsageTemplateConstant = "`%s`"
)

// FormatChoiceUsage renders usage text listing the accepted choices with the default in upper case.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))
	rendered := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		trimmedChoice := strings.TrimSpace(choice)
		normalizedChoice := strings.ToLower(trimmedChoice)
		if len(trimmedChoice) == 0 {
			continue
		}
		if _, duplicate := seen[normalizedChoice]; duplicate {
			continue
		}
		seen[normalizedChoice] = struct{}{}
		if normalizedChoice == normalizedDefault {
			trimmedChoice = strings.ToUpper(trimmedChoice)
		}
		rendered = append(rendered, trimmedChoice)
	}

	placeholder := fmt.Sprintf(choicePlaceholderTemplate, strings.Join(rendered, choiceSeparatorConstant))
	if trimmedDescription := strings.TrimSpace(description); len(trimmedDescription) > 0 {
		return fmt.Sprintf(choiceUsageTemplateConstant, placeholder, trimmedDescription)
	}
	return fmt.Sprintf(choiceBareUsageTemplateConstant, placeholder)
}
