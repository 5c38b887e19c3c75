package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/talonsec/talon/pkg/llm"
)

// Action is the JSON shape the model must emit each turn.
type Action struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
	Rationale  string         `json:"rationale"`
}

// ParsedAction is the outcome of parsing one model reply. Exactly one of
// the two states holds: a valid action, or an invalid reply with the reason
// to feed back. Making the invalid state explicit keeps the recovery path
// visible in the loop instead of buried in error handling.
type ParsedAction struct {
	Valid  bool
	Action Action
	Reason string
}

// reasoningMarkers strips chain-of-thought wrappers some models emit before
// the action JSON.
var reasoningMarkers = regexp.MustCompile(`(?s)<think(?:ing)?>.*?</think(?:ing)?>`)

// ParseAction extracts the action from a model reply. The parser is
// forgiving about surroundings (prose, fences, reasoning markers) and
// strict about the payload: the first balanced JSON object must parse and
// must name a tool.
func ParseAction(reply string) ParsedAction {
	cleaned := strings.TrimSpace(reasoningMarkers.ReplaceAllString(reply, ""))

	payload, err := llm.ExtractJSONObject(cleaned)
	if err != nil {
		return ParsedAction{Reason: "response contained no JSON object"}
	}

	var action Action
	if err := json.Unmarshal([]byte(payload), &action); err != nil {
		return ParsedAction{Reason: "JSON object did not match the required shape"}
	}

	tool := strings.TrimSpace(action.Tool)
	if tool == "" || strings.EqualFold(tool, "none") || strings.EqualFold(tool, "null") {
		return ParsedAction{Reason: "no tool was named"}
	}
	action.Tool = tool
	if action.Parameters == nil {
		action.Parameters = map[string]any{}
	}
	return ParsedAction{Valid: true, Action: action}
}
