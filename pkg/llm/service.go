package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/talonsec/talon/pkg/models"
)

// ScanStep is one planned tool invocation in a scan plan.
type ScanStep struct {
	Tool       string         `json:"tool"`
	Target     string         `json:"target,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Rationale  string         `json:"rationale,omitempty"`
}

// RawFinding is the LLM's view of one finding before normalization.
type RawFinding struct {
	Title       string `json:"title"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}

// Service layers the planning and analysis conveniences over a raw client.
// Both methods demand a fixed JSON envelope and parse it tolerantly: models
// wrap JSON in code fences or prose often enough that strict parsing of the
// whole reply would fail constantly.
type Service struct {
	client Client
}

// NewService wraps a client.
func NewService(client Client) *Service {
	return &Service{client: client}
}

const planSystemPrompt = `You are a penetration-test planning assistant for an authorized engagement.
Given reconnaissance context and an objective, propose the next scan steps.
Respond with a JSON object of exactly this shape and nothing else:
{"scan_plan": [{"tool": "<tool name>", "target": "<target>", "parameters": {}, "rationale": "<why>"}]}
Only propose tools from the provided tool list. Only propose authorized targets.`

// PlanNextSteps asks the model for a scan plan given prior context and an
// objective. Transport failures propagate as *TransportError so the caller
// can fall back to a default plan.
func (s *Service) PlanNextSteps(ctx context.Context, summary, objective string) ([]ScanStep, error) {
	messages := []models.ConversationMessage{
		models.SystemMessage(planSystemPrompt),
		models.UserMessage(fmt.Sprintf("Context:\n%s\n\nObjective: %s", summary, objective)),
	}

	resp, err := s.client.Generate(ctx, messages, true)
	if err != nil {
		return nil, err
	}

	payload, err := ExtractJSONObject(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("scan plan response is not JSON: %w", err)
	}
	var envelope struct {
		ScanPlan []ScanStep `json:"scan_plan"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return nil, fmt.Errorf("scan plan envelope malformed: %w", err)
	}
	return envelope.ScanPlan, nil
}

const analyzeSystemPrompt = `You are a security analyst reviewing raw tool output from an authorized penetration test.
Extract concrete security findings. Do not speculate beyond the output.
Respond with a JSON object of exactly this shape and nothing else:
{"findings": [{"title": "...", "severity": "info|low|medium|high|critical", "description": "...", "category": "...", "remediation": "..."}]}
An empty findings list is a valid answer.`

// AnalyzeFindings asks the model to extract findings from raw tool output.
// toolCtx names the tool and target so the analysis has grounding.
func (s *Service) AnalyzeFindings(ctx context.Context, output, toolCtx string) ([]RawFinding, error) {
	messages := []models.ConversationMessage{
		models.SystemMessage(analyzeSystemPrompt),
		models.UserMessage(fmt.Sprintf("Tool context: %s\n\nOutput:\n%s", toolCtx, output)),
	}

	resp, err := s.client.Generate(ctx, messages, true)
	if err != nil {
		return nil, err
	}

	payload, err := ExtractJSONObject(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("analysis response is not JSON: %w", err)
	}
	var envelope struct {
		Findings []RawFinding `json:"findings"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return nil, fmt.Errorf("findings envelope malformed: %w", err)
	}
	return envelope.Findings, nil
}

// Severity maps the raw severity string onto the model enum, defaulting to
// info for anything unrecognized.
func (f RawFinding) SeverityLevel() models.FindingSeverity {
	sev := models.FindingSeverity(strings.ToLower(strings.TrimSpace(f.Severity)))
	if !sev.IsValid() {
		return models.FindingSeverityInfo
	}
	return sev
}

// ExtractJSONObject pulls the first balanced top-level {...} span out of a
// model reply, tolerating code fences, prose, and trailing commentary.
// String contents are tracked so braces inside values do not unbalance the
// scan.
func ExtractJSONObject(reply string) (string, error) {
	start := strings.IndexByte(reply, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object found")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(reply); i++ {
		c := reply[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return reply[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object")
}
