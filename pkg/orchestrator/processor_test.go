package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talonsec/talon/pkg/llm"
	"github.com/talonsec/talon/pkg/models"
)

func TestProcessToolOutputSuccessExtractsFindings(t *testing.T) {
	analyzer := &stubAnalyzer{findings: []llm.RawFinding{
		{Title: "Open SSH", Severity: "low", Description: "port 22 open"},
	}}
	p := NewResultProcessor(analyzer, nil)

	scan := p.ProcessToolOutput(context.Background(), "nmap", "192.168.1.50", &models.AdapterResult{
		Status:       models.AdapterStatusSuccess,
		Data:         map[string]any{"output": "22/tcp open ssh"},
		EvidencePath: "evidence/nmap/192.168.1.50_1.txt",
	})
	require.NotNil(t, scan)
	assert.Equal(t, models.AdapterStatusSuccess, scan.Status)
	require.Len(t, scan.Findings, 1)
	assert.Equal(t, "Open SSH", scan.Findings[0].Title)
	assert.Equal(t, models.FindingSeverityLow, scan.Findings[0].Severity)
	assert.Equal(t, "192.168.1.50", scan.Findings[0].AssetRef)
	assert.Equal(t, scan.EvidencePath, scan.Findings[0].EvidencePath)
	assert.Len(t, p.Findings(), 1)
}

func TestProcessToolOutputFailureRecordsZeroFindings(t *testing.T) {
	analyzer := &stubAnalyzer{}
	p := NewResultProcessor(analyzer, nil)

	scan := p.ProcessToolOutput(context.Background(), "whois", "example.com", &models.AdapterResult{
		Status:       models.AdapterStatusFailure,
		ErrorMessage: "no entry found",
	})
	require.NotNil(t, scan)
	assert.Empty(t, scan.Findings)
	assert.Equal(t, "no entry found", scan.Error)
	assert.Zero(t, analyzer.calls, "failed output is never analyzed")
}

func TestProcessToolOutputTimeoutAndErrorReturnNil(t *testing.T) {
	p := NewResultProcessor(nil, nil)

	assert.Nil(t, p.ProcessToolOutput(context.Background(), "nmap", "x", &models.AdapterResult{
		Status: models.AdapterStatusTimeout,
	}))
	assert.Nil(t, p.ProcessToolOutput(context.Background(), "nmap", "x", &models.AdapterResult{
		Status:       models.AdapterStatusError,
		ErrorMessage: "BLOCKED: unauthorized target x",
	}))
	assert.Nil(t, p.ProcessToolOutput(context.Background(), "nmap", "x", nil))
	assert.Empty(t, p.Results())
}

func TestProcessToolOutputAnalysisFailureDegrades(t *testing.T) {
	p := NewResultProcessor(&stubAnalyzer{err: errPlannerDown}, nil)

	scan := p.ProcessToolOutput(context.Background(), "nmap", "192.168.1.50", &models.AdapterResult{
		Status: models.AdapterStatusSuccess,
		Data:   map[string]any{"output": "22/tcp open"},
	})
	require.NotNil(t, scan, "analysis failure must not lose the scan result")
	assert.Empty(t, scan.Findings)
}

type upperMasker struct{}

func (upperMasker) MaskFinding(content string) string {
	return strings.ReplaceAll(content, "hunter2", "***MASKED***")
}

func TestProcessToolOutputMasksFindings(t *testing.T) {
	analyzer := &stubAnalyzer{findings: []llm.RawFinding{
		{Title: "Credentials leaked", Severity: "critical", Description: "password hunter2 in response"},
	}}
	p := NewResultProcessor(analyzer, upperMasker{})

	scan := p.ProcessToolOutput(context.Background(), "http_probe", "http://example.com", &models.AdapterResult{
		Status: models.AdapterStatusSuccess,
		Data:   map[string]any{"output": "body"},
	})
	require.NotNil(t, scan)
	require.Len(t, scan.Findings, 1)
	assert.NotContains(t, scan.Findings[0].Description, "hunter2")
	assert.Contains(t, scan.Findings[0].Description, "***MASKED***")
}
