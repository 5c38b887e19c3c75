package slack

import (
	"fmt"
	"sort"
	"strings"

	goslack "github.com/slack-go/slack"

	"github.com/talonsec/talon/pkg/models"
)

const maxBlockTextLength = 2900

var stateEmoji = map[models.WorkflowState]string{
	models.WorkflowStateCompleted: ":white_check_mark:",
	models.WorkflowStateFailed:    ":x:",
	models.WorkflowStateCancelled: ":no_entry_sign:",
}

var stateLabel = map[models.WorkflowState]string{
	models.WorkflowStateCompleted: "Engagement Complete",
	models.WorkflowStateFailed:    "Engagement Failed",
	models.WorkflowStateCancelled: "Engagement Cancelled",
}

// severityOrder ranks severities for the summary line, worst first.
var severityOrder = map[string]int{
	"critical": 0, "high": 1, "medium": 2, "low": 3, "info": 4,
}

func runURL(runID, dashboardURL string) string {
	return fmt.Sprintf("%s/runs/%s", dashboardURL, runID)
}

// BuildRunCompletedMessage creates Block Kit blocks for a run terminal
// notification.
func BuildRunCompletedMessage(input RunCompletedInput, dashboardURL string) []goslack.Block {
	emoji := stateEmoji[input.State]
	if emoji == "" {
		emoji = ":question:"
	}
	label := stateLabel[input.State]
	if label == "" {
		label = "Engagement " + string(input.State)
	}

	header := fmt.Sprintf("%s *%s* - `%s`", emoji, label, input.Objective)
	if input.ErrorMessage != "" {
		header += fmt.Sprintf("\n\n*Error:*\n%s", truncateForSlack(input.ErrorMessage))
	}
	blocks := []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, header, false, false),
			nil, nil,
		),
	}

	if summary := severitySummary(input.FindingsBySeverity); summary != "" {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, "*Findings:* "+summary, false, false),
			nil, nil,
		))
	}

	if dashboardURL != "" {
		btn := goslack.NewButtonBlockElement("", "",
			goslack.NewTextBlockObject(goslack.PlainTextType, "View Report", false, false))
		btn.URL = runURL(input.RunID, dashboardURL)
		blocks = append(blocks, goslack.NewActionBlock("", btn))
	}
	return blocks
}

// BuildCriticalFindingMessage creates Block Kit blocks for an immediate
// critical-finding alert.
func BuildCriticalFindingMessage(finding models.Finding, dashboardURL string) []goslack.Block {
	text := fmt.Sprintf(":rotating_light: *Critical finding:* %s", finding.Title)
	if finding.AssetRef != "" {
		text += fmt.Sprintf("\n*Asset:* `%s`", finding.AssetRef)
	}
	if finding.Description != "" {
		text += "\n\n" + truncateForSlack(finding.Description)
	}

	blocks := []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
	return blocks
}

// severitySummary renders counts like "1 critical, 3 low", worst first.
func severitySummary(bySeverity map[string]int) string {
	keys := make([]string, 0, len(bySeverity))
	for severity, count := range bySeverity {
		if count > 0 {
			keys = append(keys, severity)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Slice(keys, func(i, j int) bool { return severityOrder[keys[i]] < severityOrder[keys[j]] })

	parts := make([]string, 0, len(keys))
	for _, severity := range keys {
		parts = append(parts, fmt.Sprintf("%d %s", bySeverity[severity], severity))
	}
	return strings.Join(parts, ", ")
}

func truncateForSlack(text string) string {
	if len(text) <= maxBlockTextLength {
		return text
	}
	return text[:maxBlockTextLength] + "\n\n_... (truncated - view full report in dashboard)_"
}
