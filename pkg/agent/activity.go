package agent

// ActivityKind classifies one observable executor event
type ActivityKind string

const (
	ActivityThinking   ActivityKind = "thinking"
	ActivityToolCall   ActivityKind = "tool_call"
	ActivityToolResult ActivityKind = "tool_result"
	ActivityWarning    ActivityKind = "warning"
	ActivityAnswer     ActivityKind = "answer"
)

// Activity is one executor event for external observation.
type Activity struct {
	Kind    ActivityKind   `json:"kind"`
	Agent   string         `json:"agent"`
	Turn    int            `json:"turn"`
	Tool    string         `json:"tool,omitempty"`
	Content string         `json:"content,omitempty"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// ActivitySink receives executor events. Implementations must not block;
// the executor calls Emit synchronously inside the loop.
type ActivitySink interface {
	Emit(activity Activity)
}

// ActivityFunc adapts a function to the ActivitySink interface.
type ActivityFunc func(Activity)

// Emit calls the function.
func (f ActivityFunc) Emit(activity Activity) { f(activity) }
