// Package llm provides the chat-completion client the agents reason
// through, plus conversation memory and a small retrieval store. The
// endpoint is any OpenAI-compatible service; the system treats it as a
// black box that maps messages to text.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/models"
)

// Client is the provider-agnostic completion interface. structured hints
// that the caller expects a JSON object back; providers that support
// response formats honor it, others ignore it.
type Client interface {
	Generate(ctx context.Context, messages []models.ConversationMessage, structured bool) (*Response, error)
}

// Response is one completion.
type Response struct {
	Content string
	Usage   *Usage
}

// Usage is the token accounting for one completion, when the provider
// reports it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// TransportError marks a failure reaching or reading from the LLM service.
// Callers degrade on it (the orchestrator falls back to a default plan)
// instead of aborting the run.
type TransportError struct {
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("llm transport error during %s: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// OpenAIClient talks to an OpenAI-compatible chat-completion endpoint.
type OpenAIClient struct {
	api         *openai.Client
	model       string
	temperature *float32
	maxTokens   *int
	timeout     time.Duration
	logger      *slog.Logger
}

// NewOpenAIClient builds a client from resolved configuration. The API key
// is read from the configured environment variable at construction time.
func NewOpenAIClient(cfg *config.LLMConfig) (*OpenAIClient, error) {
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "LLM_API_KEY"
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("LLM API key environment variable %s is not set", keyEnv)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &OpenAIClient{
		api:         openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
		logger:      slog.Default().With("component", "llm-client"),
	}, nil
}

// Generate performs one completion over the given conversation.
func (c *OpenAIClient) Generate(ctx context.Context, messages []models.ConversationMessage, structured bool) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toChatMessages(messages),
	}
	if c.temperature != nil {
		req.Temperature = *c.temperature
	}
	if c.maxTokens != nil {
		req.MaxTokens = *c.maxTokens
	}
	if structured {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, &TransportError{Operation: "chat completion", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &TransportError{Operation: "chat completion", Err: fmt.Errorf("empty choice list")}
	}

	c.logger.Debug("Completion finished",
		"model", c.model,
		"duration", time.Since(start),
		"total_tokens", resp.Usage.TotalTokens)

	return &Response{
		Content: resp.Choices[0].Message.Content,
		Usage: &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func toChatMessages(messages []models.ConversationMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case models.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case models.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
