package events

import (
	"github.com/talonsec/talon/pkg/agent"
	"github.com/talonsec/talon/pkg/models"
)

// Event types published by the orchestrator and executor.
const (
	TypeRunStarted        = "run.started"
	TypeRunCompleted      = "run.completed"
	TypeStepStarted       = "step.started"
	TypeStepCompleted     = "step.completed"
	TypeViolationRecorded = "violation.recorded"

	TypeAgentThinking = "agent.thinking"
	TypeToolCall      = "tool.call"
	TypeToolResult    = "tool.result"
	TypeAgentWarning  = "agent.warning"
	TypeAgentAnswer   = "agent.answer"
)

// RunStarted builds a run.started event.
func RunStarted(runID string, mode models.ScanMode, assetCount int) Event {
	return Event{
		Type:  TypeRunStarted,
		RunID: runID,
		Payload: map[string]any{
			"mode":        string(mode),
			"asset_count": assetCount,
		},
	}
}

// RunCompleted builds a run.completed event.
func RunCompleted(runID string, state models.WorkflowState, findings int) Event {
	return Event{
		Type:  TypeRunCompleted,
		RunID: runID,
		Payload: map[string]any{
			"state":    string(state),
			"findings": findings,
		},
	}
}

// StepStarted builds a step.started event.
func StepStarted(runID string, step models.WorkflowStep) Event {
	return Event{
		Type:  TypeStepStarted,
		RunID: runID,
		Payload: map[string]any{
			"tool":   step.Tool,
			"target": step.Target,
			"name":   step.Name,
		},
	}
}

// StepCompleted builds a step.completed event.
func StepCompleted(runID string, step models.WorkflowStep, status models.AdapterStatus) Event {
	return Event{
		Type:  TypeStepCompleted,
		RunID: runID,
		Payload: map[string]any{
			"tool":   step.Tool,
			"target": step.Target,
			"status": string(status),
		},
	}
}

// ViolationRecorded builds a violation.recorded event.
func ViolationRecorded(runID string, v models.PolicyViolation) Event {
	return Event{
		Type:  TypeViolationRecorded,
		RunID: runID,
		Payload: map[string]any{
			"rule":           v.RuleName,
			"violation_type": string(v.ViolationType),
			"target":         v.Target,
			"severity":       string(v.Severity),
			"details":        v.Details,
		},
	}
}

// activityTypes maps executor activity kinds to bus event types.
var activityTypes = map[agent.ActivityKind]string{
	agent.ActivityThinking:   TypeAgentThinking,
	agent.ActivityToolCall:   TypeToolCall,
	agent.ActivityToolResult: TypeToolResult,
	agent.ActivityWarning:    TypeAgentWarning,
	agent.ActivityAnswer:     TypeAgentAnswer,
}

// ActivitySink adapts the bus to the executor's activity hook for one run.
func ActivitySink(bus Publisher, runID string) agent.ActivitySink {
	return agent.ActivityFunc(func(a agent.Activity) {
		eventType, ok := activityTypes[a.Kind]
		if !ok {
			return
		}
		bus.Publish(Event{
			Type:  eventType,
			RunID: runID,
			Payload: map[string]any{
				"agent":   a.Agent,
				"turn":    a.Turn,
				"tool":    a.Tool,
				"content": a.Content,
			},
		})
	})
}
