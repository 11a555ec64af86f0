package cmd

import (
	"github.com/fatih/color"

	"github.com/cybershield/shieldscan/internal/domain/finding"
	"github.com/cybershield/shieldscan/internal/risk"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorBold    = color.New(color.Bold).SprintFunc()
)

func formatSeverityWithColor(s finding.Severity) string {
	label := "[" + s.String() + "]"
	switch s {
	case finding.SeverityCritical, finding.SeverityHigh, finding.SeverityError:
		return colorError(label)
	case finding.SeverityMedium:
		return colorWarn(label)
	case finding.SeverityLow, finding.SeverityInfo:
		return colorInfo(label)
	default:
		return label
	}
}

// formatScoreWithColor colors a 0-100 score where higher is safer.
func formatScoreWithColor(score int) string {
	text := colorBold(score) + "/100"
	switch {
	case score >= risk.ExcellentThreshold:
		return colorSuccess(text)
	case score >= risk.GoodThreshold:
		return colorWarn(text)
	default:
		return colorError(text)
	}
}
