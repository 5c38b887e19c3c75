package orchestrator

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/talonsec/talon/pkg/models"
)

// ReportFormat selects the report rendering
type ReportFormat string

const (
	ReportFormatJSON     ReportFormat = "json"
	ReportFormatMarkdown ReportFormat = "markdown"
	ReportFormatHTML     ReportFormat = "html"
	ReportFormatCSV      ReportFormat = "csv"
)

// IsValid checks if the report format is valid
func (f ReportFormat) IsValid() bool {
	switch f {
	case ReportFormatJSON, ReportFormatMarkdown, ReportFormatHTML, ReportFormatCSV:
		return true
	default:
		return false
	}
}

// Report is the assembled engagement report.
type Report struct {
	RunID       string                  `json:"run_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Summary     ReportSummary           `json:"summary"`
	Assets      []models.Asset          `json:"assets"`
	Results     []models.ScanResult     `json:"results"`
	Findings    []models.Finding        `json:"findings"`
	Violations  models.ViolationReport  `json:"violations"`
	Rates       map[string]float64      `json:"rates"`
}

// ReportSummary is the headline numbers.
type ReportSummary struct {
	State          models.WorkflowState `json:"state"`
	AssetCount     int                  `json:"asset_count"`
	ResultCount    int                  `json:"result_count"`
	FindingCount   int                  `json:"finding_count"`
	BySeverity     map[string]int       `json:"by_severity"`
	Duration       time.Duration        `json:"duration"`
	CompletedSteps int                  `json:"completed_steps"`
}

// BuildReport assembles the report data from the current run state.
func (o *Orchestrator) BuildReport() Report {
	snapshot := o.Context()

	var duration time.Duration
	if snapshot.StartTime != nil {
		end := time.Now().UTC()
		if snapshot.EndTime != nil {
			end = *snapshot.EndTime
		}
		duration = end.Sub(*snapshot.StartTime)
	}

	findings := o.processor.Findings()
	bySeverity := make(map[string]int)
	for _, f := range findings {
		bySeverity[string(f.Severity)]++
	}

	report := Report{
		RunID:       o.runID,
		GeneratedAt: time.Now().UTC(),
		Summary: ReportSummary{
			State:          snapshot.WorkflowState,
			AssetCount:     len(snapshot.Assets),
			ResultCount:    len(snapshot.ScanResults),
			FindingCount:   len(findings),
			BySeverity:     bySeverity,
			Duration:       duration,
			CompletedSteps: len(snapshot.CompletedSteps),
		},
		Assets:   snapshot.Assets,
		Results:  snapshot.ScanResults,
		Findings: findings,
		Rates:    map[string]float64{},
	}
	if o.engine != nil {
		report.Violations = o.engine.ViolationReport()
		report.Rates = o.engine.RateLimiter().Rates()
		report.Rates["global"] = o.engine.RateLimiter().GlobalRate()
	}
	return report
}

// GenerateReport renders the report in the requested format.
func (o *Orchestrator) GenerateReport(format ReportFormat) (string, error) {
	if !format.IsValid() {
		return "", fmt.Errorf("unsupported report format %q", format)
	}
	report := o.BuildReport()

	switch format {
	case ReportFormatJSON:
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to render JSON report: %w", err)
		}
		return string(out), nil
	case ReportFormatMarkdown:
		return renderMarkdown(report), nil
	case ReportFormatHTML:
		return renderHTML(report), nil
	default:
		return renderCSV(report)
	}
}

func renderMarkdown(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Engagement Report %s\n\n", r.RunID)
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- State: %s\n", r.Summary.State)
	fmt.Fprintf(&b, "- Assets: %d\n", r.Summary.AssetCount)
	fmt.Fprintf(&b, "- Scan results: %d\n", r.Summary.ResultCount)
	fmt.Fprintf(&b, "- Findings: %d\n", r.Summary.FindingCount)
	fmt.Fprintf(&b, "- Policy violations: %d\n", r.Violations.TotalViolations)
	fmt.Fprintf(&b, "- Duration: %s\n\n", r.Summary.Duration.Round(time.Second))

	b.WriteString("## Assets\n\n")
	for _, a := range r.Assets {
		fmt.Fprintf(&b, "- **%s** (%s): `%s`\n", a.Name, a.Kind, a.Value)
	}

	b.WriteString("\n## Findings\n\n")
	if len(r.Findings) == 0 {
		b.WriteString("No findings.\n")
	}
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "### %s [%s]\n\n%s\n\n", f.Title, strings.ToUpper(string(f.Severity)), f.Description)
		if f.Remediation != "" {
			fmt.Fprintf(&b, "Remediation: %s\n\n", f.Remediation)
		}
		if f.EvidencePath != "" {
			fmt.Fprintf(&b, "Evidence: `%s`\n\n", f.EvidencePath)
		}
	}

	b.WriteString("## Scan Results\n\n")
	b.WriteString("| Tool | Target | Status | Findings |\n|---|---|---|---|\n")
	for _, res := range r.Results {
		fmt.Fprintf(&b, "| %s | %s | %s | %d |\n", res.Tool, res.Target, res.Status, len(res.Findings))
	}

	if r.Violations.TotalViolations > 0 {
		b.WriteString("\n## Policy Violations\n\n")
		for _, v := range r.Violations.Violations {
			fmt.Fprintf(&b, "- [%s] %s: %s (%s)\n", v.Severity, v.ViolationType, v.Target, v.Details)
		}
	}
	return b.String()
}

func renderHTML(r Report) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head><title>Engagement Report ")
	b.WriteString(html.EscapeString(r.RunID))
	b.WriteString("</title></head>\n<body>\n")
	fmt.Fprintf(&b, "<h1>Engagement Report %s</h1>\n", html.EscapeString(r.RunID))
	fmt.Fprintf(&b, "<p>State: %s - %d asset(s), %d result(s), %d finding(s), %d violation(s)</p>\n",
		r.Summary.State, r.Summary.AssetCount, r.Summary.ResultCount,
		r.Summary.FindingCount, r.Violations.TotalViolations)

	b.WriteString("<h2>Findings</h2>\n<ul>\n")
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "<li><strong>%s</strong> [%s]: %s</li>\n",
			html.EscapeString(f.Title), f.Severity, html.EscapeString(f.Description))
	}
	b.WriteString("</ul>\n")

	b.WriteString("<h2>Scan Results</h2>\n<table border=\"1\">\n<tr><th>Tool</th><th>Target</th><th>Status</th></tr>\n")
	for _, res := range r.Results {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			html.EscapeString(res.Tool), html.EscapeString(res.Target), res.Status)
	}
	b.WriteString("</table>\n</body>\n</html>\n")
	return b.String()
}

// renderCSV emits the findings table; the CSV format is for spreadsheet
// triage, not full report fidelity.
func renderCSV(r Report) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)

	if err := w.Write([]string{"title", "severity", "asset", "category", "description", "remediation", "evidence_path"}); err != nil {
		return "", fmt.Errorf("failed to render CSV report: %w", err)
	}
	for _, f := range r.Findings {
		record := []string{f.Title, string(f.Severity), f.AssetRef, f.Category, f.Description, f.Remediation, f.EvidencePath}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to render CSV report: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to render CSV report: %w", err)
	}
	return b.String(), nil
}
