package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talonsec/talon/pkg/models"
)

func TestWorkflowTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []models.WorkflowState
		wantErr bool
	}{
		{"happy path", []models.WorkflowState{models.WorkflowStateRunning, models.WorkflowStateCompleted}, false},
		{"pause and resume", []models.WorkflowState{models.WorkflowStateRunning, models.WorkflowStatePaused, models.WorkflowStateRunning, models.WorkflowStateCompleted}, false},
		{"cancel while pending", []models.WorkflowState{models.WorkflowStateCancelled}, false},
		{"cannot complete from pending", []models.WorkflowState{models.WorkflowStateCompleted}, true},
		{"cannot leave terminal state", []models.WorkflowState{models.WorkflowStateRunning, models.WorkflowStateFailed, models.WorkflowStateRunning}, true},
		{"cannot pause while pending", []models.WorkflowState{models.WorkflowStatePaused}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorkflowManager()
			var err error
			for _, state := range tt.path {
				if err = w.Transition(state); err != nil {
					break
				}
			}
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.path[len(tt.path)-1], w.State())
			}
		})
	}
}

func TestWorkflowRecordsTimes(t *testing.T) {
	w := NewWorkflowManager()
	start, end := w.Times()
	assert.Nil(t, start)
	assert.Nil(t, end)

	require.NoError(t, w.Transition(models.WorkflowStateRunning))
	start, end = w.Times()
	require.NotNil(t, start)
	assert.Nil(t, end)

	require.NoError(t, w.Transition(models.WorkflowStateCompleted))
	_, end = w.Times()
	require.NotNil(t, end)
	assert.False(t, end.Before(*start))
}

func TestWorkflowRejectsInvalidState(t *testing.T) {
	w := NewWorkflowManager()
	err := w.Transition(models.WorkflowState("exploded"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid workflow state")
}
