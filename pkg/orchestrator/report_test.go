package orchestrator

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talonsec/talon/pkg/llm"
	"github.com/talonsec/talon/pkg/models"
)

func reportOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	runner := newStubRunner()
	runner.results["whois"] = &models.AdapterResult{
		Status: models.AdapterStatusSuccess,
		Data:   map[string]any{"output": "Domain Name: EXAMPLE.COM"},
	}
	o := New(Options{
		Engine: testPolicyEngine(t),
		Runner: runner,
		Analyzer: &stubAnalyzer{findings: []llm.RawFinding{
			{Title: "Stale registration", Severity: "info", Description: "registrar expires soon"},
		}},
		PassiveTools: []string{"whois"},
	})
	require.NoError(t, o.AddAsset(domainAsset("example.com")))
	_, err := o.RunPassiveRecon(context.Background())
	require.NoError(t, err)
	return o
}

func TestGenerateReportJSON(t *testing.T) {
	o := reportOrchestrator(t)

	out, err := o.GenerateReport(ReportFormatJSON)
	require.NoError(t, err)

	var report Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, o.RunID(), report.RunID)
	assert.Equal(t, models.WorkflowStateCompleted, report.Summary.State)
	assert.Equal(t, 1, report.Summary.AssetCount)
	assert.Equal(t, 1, report.Summary.FindingCount)
	assert.Equal(t, 1, report.Summary.BySeverity["info"])
	assert.Contains(t, report.Rates, "global")
}

func TestGenerateReportMarkdown(t *testing.T) {
	o := reportOrchestrator(t)

	out, err := o.GenerateReport(ReportFormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, out, "# Engagement Report")
	assert.Contains(t, out, "### Stale registration [INFO]")
	assert.Contains(t, out, "| whois | example.com | success | 1 |")
}

func TestGenerateReportHTMLEscapes(t *testing.T) {
	o := New(Options{Runner: newStubRunner()})
	o.processor.results = append(o.processor.results, models.ScanResult{
		Tool:   "nmap",
		Target: "<script>alert(1)</script>",
		Status: models.AdapterStatusSuccess,
	})

	out, err := o.GenerateReport(ReportFormatHTML)
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestGenerateReportCSV(t *testing.T) {
	o := reportOrchestrator(t)

	out, err := o.GenerateReport(ReportFormatCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "title,severity,asset,category,description,remediation,evidence_path", lines[0])
	assert.Contains(t, lines[1], "Stale registration")
}

func TestGenerateReportRejectsUnknownFormat(t *testing.T) {
	o := New(Options{Runner: newStubRunner()})
	_, err := o.GenerateReport(ReportFormat("pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report format")
}
