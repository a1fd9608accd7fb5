package backport

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReportFormat selects how a Report is rendered.
type ReportFormat string

// Supported report formats.
const (
	ReportFormatText ReportFormat = "text"
	ReportFormatYAML ReportFormat = "yaml"
)

const (
	unsupportedReportFormatMessageConstant  = "unsupported report format"
	unsupportedReportFormatTemplateConstant = "%w: %s"
	reportEncodeErrorTemplateConstant       = "unable to encode backport report: %w"
	textOutcomeTemplateConstant             = "%-8s %-22s %-26s %s"
	textDiagnosticTemplateConstant          = "         %s\n"
	textPopWarningSuffixConstant            = " (stash pop failed)"
	yamlIndentationConstant                 = 2
)

// ErrUnsupportedReportFormat indicates an unknown --report value.
var ErrUnsupportedReportFormat = errors.New(unsupportedReportFormatMessageConstant)

// ParseReportFormat accepts text or yaml, case-insensitively.
func ParseReportFormat(value string) (ReportFormat, error) {
	switch ReportFormat(strings.ToLower(strings.TrimSpace(value))) {
	case "", ReportFormatText:
		return ReportFormatText, nil
	case ReportFormatYAML:
		return ReportFormatYAML, nil
	default:
		return "", fmt.Errorf(unsupportedReportFormatTemplateConstant, ErrUnsupportedReportFormat, value)
	}
}

// WriteReport renders report to writer.
func WriteReport(writer io.Writer, report Report, format ReportFormat) error {
	if format == ReportFormatYAML {
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(yamlIndentationConstant)
		if encodeError := encoder.Encode(report); encodeError != nil {
			return fmt.Errorf(reportEncodeErrorTemplateConstant, encodeError)
		}
		return encoder.Close()
	}

	for _, outcome := range report.Outcomes {
		line := fmt.Sprintf(textOutcomeTemplateConstant, outcome.TargetVersion, outcome.InstanceName, outcome.Status, outcome.BranchName)
		line = strings.TrimRight(line, " ")
		if outcome.StashPopWarning && outcome.Status != StatusStashPopWarning {
			line += textPopWarningSuffixConstant
		}
		if _, writeError := fmt.Fprintln(writer, line); writeError != nil {
			return writeError
		}
		if len(outcome.Diagnostic) == 0 {
			continue
		}
		for _, diagnosticLine := range strings.Split(outcome.Diagnostic, "\n") {
			if _, writeError := fmt.Fprintf(writer, textDiagnosticTemplateConstant, diagnosticLine); writeError != nil {
				return writeError
			}
		}
	}
	return nil
}
