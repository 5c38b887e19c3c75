package slack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talonsec/talon/pkg/models"
)

func TestService_NilReceiver(t *testing.T) {
	var s *Service

	// No-ops, must not panic.
	s.NotifyRunCompleted(context.Background(), RunCompletedInput{RunID: "run-1"})
	s.NotifyCriticalFinding(context.Background(), models.Finding{Severity: models.FindingSeverityCritical})
}

func TestNewService(t *testing.T) {
	t.Run("returns nil when token empty", func(t *testing.T) {
		assert.Nil(t, NewService(ServiceConfig{Token: "", Channel: "C123"}))
	})

	t.Run("returns nil when channel empty", func(t *testing.T) {
		assert.Nil(t, NewService(ServiceConfig{Token: "xoxb-test", Channel: ""}))
	})

	t.Run("returns service when configured", func(t *testing.T) {
		svc := NewService(ServiceConfig{
			Token:        "xoxb-test",
			Channel:      "C123",
			DashboardURL: "https://example.com",
		})
		assert.NotNil(t, svc)
	})
}

func newMockSlack(t *testing.T) (*Service, *atomic.Int32) {
	t.Helper()
	var posts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, _ *http.Request) {
		posts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1.23"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClientWithAPIURL("xoxb-test", "C123", server.URL+"/")
	return NewServiceWithClient(client, "https://example.com"), &posts
}

func TestNotifyRunCompletedPosts(t *testing.T) {
	svc, posts := newMockSlack(t)

	svc.NotifyRunCompleted(context.Background(), RunCompletedInput{
		RunID:     "run-1",
		Objective: "sweep",
		State:     models.WorkflowStateCompleted,
	})
	assert.Equal(t, int32(1), posts.Load())
}

func TestNotifyCriticalFindingSkipsLowerSeverity(t *testing.T) {
	svc, posts := newMockSlack(t)

	svc.NotifyCriticalFinding(context.Background(), models.Finding{
		Title:    "Open directory listing",
		Severity: models.FindingSeverityMedium,
	})
	assert.Zero(t, posts.Load(), "only critical findings alert")

	svc.NotifyCriticalFinding(context.Background(), models.Finding{
		Title:    "Remote code execution",
		Severity: models.FindingSeverityCritical,
	})
	assert.Equal(t, int32(1), posts.Load())
}
