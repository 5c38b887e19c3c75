package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talonsec/talon/pkg/llm"
	"github.com/talonsec/talon/pkg/models"
)

// Analyzer extracts findings from raw tool output. llm.Service satisfies
// it; nil disables LLM-based extraction.
type Analyzer interface {
	AnalyzeFindings(ctx context.Context, output, toolCtx string) ([]llm.RawFinding, error)
}

// FindingMasker redacts secrets from finding text before persistence.
type FindingMasker interface {
	MaskFinding(content string) string
}

// ResultProcessor normalizes raw adapter results into ScanResults and
// findings. It keeps the raw results for report assembly.
type ResultProcessor struct {
	analyzer Analyzer
	masker   FindingMasker
	logger   *slog.Logger

	mu       sync.Mutex
	raw      []models.AdapterResult
	results  []models.ScanResult
	findings []models.Finding
}

// NewResultProcessor creates a processor. analyzer and masker may be nil.
func NewResultProcessor(analyzer Analyzer, masker FindingMasker) *ResultProcessor {
	return &ResultProcessor{
		analyzer: analyzer,
		masker:   masker,
		logger:   slog.Default().With("component", "result-processor"),
	}
}

// ProcessToolOutput normalizes one adapter result. Success yields a
// ScanResult with any extracted findings; failure yields a zero-finding
// ScanResult carrying the error; timeout and error outcomes are logged and
// yield nil.
func (p *ResultProcessor) ProcessToolOutput(ctx context.Context, tool, target string, result *models.AdapterResult) *models.ScanResult {
	if result == nil {
		return nil
	}

	p.mu.Lock()
	p.raw = append(p.raw, *result)
	p.mu.Unlock()

	switch result.Status {
	case models.AdapterStatusSuccess, models.AdapterStatusPartial:
		scan := &models.ScanResult{
			ID:           uuid.NewString(),
			Tool:         tool,
			Target:       target,
			Status:       result.Status,
			EvidencePath: result.EvidencePath,
			StartedAt:    time.Now().UTC().Add(-result.ExecutionTime),
			Duration:     result.ExecutionTime,
		}
		scan.Findings = p.extractFindings(ctx, tool, target, result)
		scan.Summary = fmt.Sprintf("%s against %s: %s, %d finding(s)",
			tool, target, result.Status, len(scan.Findings))

		p.mu.Lock()
		p.results = append(p.results, *scan)
		p.findings = append(p.findings, scan.Findings...)
		p.mu.Unlock()
		return scan

	case models.AdapterStatusFailure:
		scan := &models.ScanResult{
			ID:        uuid.NewString(),
			Tool:      tool,
			Target:    target,
			Status:    result.Status,
			Error:     result.ErrorMessage,
			StartedAt: time.Now().UTC().Add(-result.ExecutionTime),
			Duration:  result.ExecutionTime,
		}
		p.mu.Lock()
		p.results = append(p.results, *scan)
		p.mu.Unlock()
		return scan

	default:
		// timeout and error outcomes produce no scan result
		p.logger.Warn("Tool invocation produced no result",
			"tool", tool, "target", target,
			"status", result.Status, "error", result.ErrorMessage)
		return nil
	}
}

// extractFindings runs LLM analysis over successful output. Analysis
// failures degrade to zero findings; the scan result itself survives.
func (p *ResultProcessor) extractFindings(ctx context.Context, tool, target string, result *models.AdapterResult) []models.Finding {
	if p.analyzer == nil {
		return nil
	}
	output, ok := result.Data["output"].(string)
	if !ok || output == "" {
		return nil
	}

	raw, err := p.analyzer.AnalyzeFindings(ctx, output, fmt.Sprintf("%s against %s", tool, target))
	if err != nil {
		p.logger.Warn("Finding extraction failed", "tool", tool, "error", err)
		return nil
	}

	findings := make([]models.Finding, 0, len(raw))
	for _, f := range raw {
		finding := models.Finding{
			ID:           uuid.NewString(),
			Title:        f.Title,
			Severity:     f.SeverityLevel(),
			Description:  f.Description,
			AssetRef:     target,
			Category:     f.Category,
			Remediation:  f.Remediation,
			EvidencePath: result.EvidencePath,
			CreatedAt:    time.Now().UTC(),
		}
		if p.masker != nil {
			finding.Title = p.masker.MaskFinding(finding.Title)
			finding.Description = p.masker.MaskFinding(finding.Description)
		}
		findings = append(findings, finding)
	}
	return findings
}

// Results snapshots all processed scan results.
func (p *ResultProcessor) Results() []models.ScanResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.ScanResult, len(p.results))
	copy(out, p.results)
	return out
}

// Findings snapshots all extracted findings.
func (p *ResultProcessor) Findings() []models.Finding {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Finding, len(p.findings))
	copy(out, p.findings)
	return out
}

// Clear drops all accumulated state.
func (p *ResultProcessor) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.raw = nil
	p.results = nil
	p.findings = nil
}
