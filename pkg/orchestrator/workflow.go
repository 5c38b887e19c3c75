package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/talonsec/talon/pkg/models"
)

// validTransitions is the workflow state machine. Terminal states admit
// nothing.
var validTransitions = map[models.WorkflowState][]models.WorkflowState{
	models.WorkflowStatePending: {
		models.WorkflowStateRunning,
		models.WorkflowStateCancelled,
	},
	models.WorkflowStateRunning: {
		models.WorkflowStatePaused,
		models.WorkflowStateCompleted,
		models.WorkflowStateFailed,
		models.WorkflowStateCancelled,
	},
	models.WorkflowStatePaused: {
		models.WorkflowStateRunning,
		models.WorkflowStateCancelled,
	},
}

// WorkflowManager tracks a run's lifecycle state with validated
// transitions.
type WorkflowManager struct {
	mu        sync.Mutex
	state     models.WorkflowState
	startTime *time.Time
	endTime   *time.Time
}

// NewWorkflowManager starts in pending.
func NewWorkflowManager() *WorkflowManager {
	return &WorkflowManager{state: models.WorkflowStatePending}
}

// State returns the current state.
func (w *WorkflowManager) State() models.WorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Transition moves to the target state, rejecting transitions the machine
// does not admit.
func (w *WorkflowManager) Transition(to models.WorkflowState) error {
	if !to.IsValid() {
		return fmt.Errorf("invalid workflow state %q", to)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, allowed := range validTransitions[w.state] {
		if allowed == to {
			now := time.Now().UTC()
			if to == models.WorkflowStateRunning && w.startTime == nil {
				w.startTime = &now
			}
			if to.IsTerminal() {
				w.endTime = &now
			}
			w.state = to
			return nil
		}
	}
	return fmt.Errorf("workflow transition %s -> %s is not allowed", w.state, to)
}

// Times returns the recorded start and end times, nil while unset.
func (w *WorkflowManager) Times() (start, end *time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.startTime, w.endTime
}

// Reset returns the machine to pending. Used by Cleanup.
func (w *WorkflowManager) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = models.WorkflowStatePending
	w.startTime = nil
	w.endTime = nil
}
