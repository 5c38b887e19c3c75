package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talonsec/talon/pkg/adapter"
	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/models"
	"github.com/talonsec/talon/pkg/version"
)

// HTTPProbe checks liveness of a web endpoint and captures response
// headers (network backend). Redirects are reported, not followed, so the
// probe sees the target itself.
type HTTPProbe struct {
	cfg    *config.AdapterConfig
	deps   Deps
	client *http.Client
}

// NewHTTPProbe creates the http_probe adapter.
func NewHTTPProbe(cfg *config.AdapterConfig, deps Deps) adapter.Adapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPProbe{
		cfg:  cfg,
		deps: deps,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (a *HTTPProbe) ValidateConfig() error {
	if keys := a.cfg.OptionKeys(); len(keys) > 0 {
		return adapter.ConfigError("http_probe", keys[0], "unknown field")
	}
	return nil
}

func (a *HTTPProbe) ValidateParams(params map[string]any) error {
	u, err := adapter.StringParam(params, "url")
	if err != nil {
		return err
	}
	return adapter.ValidateURL("url", u)
}

func (a *HTTPProbe) Execute(ctx context.Context, params map[string]any) (*models.AdapterResult, error) {
	u, _ := adapter.StringParam(params, "url")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("http_probe bad request: %v", err)), nil
	}
	req.Header.Set("User-Agent", version.Full())

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return netFailure("http_probe", u, err, time.Since(start)), nil
	}
	defer func() { _ = resp.Body.Close() }()

	// Header capture is the point; the body is discarded after a small read
	// to confirm the server actually responds.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	headers := make(map[string]string, len(resp.Header))
	for name := range resp.Header {
		headers[name] = resp.Header.Get(name)
	}

	result := &models.AdapterResult{
		Status: models.AdapterStatusSuccess,
		Data: map[string]any{
			"url":         u,
			"status_code": resp.StatusCode,
			"headers":     headers,
			"server":      resp.Header.Get("Server"),
			"location":    resp.Header.Get("Location"),
		},
		Metadata:      map[string]any{"target": u},
		ExecutionTime: time.Since(start),
	}

	if a.deps.Evidence != nil {
		transcript := fmt.Sprintf("GET %s\nHTTP %d\n\n%v\n\n%s", u, resp.StatusCode, resp.Header, body)
		if path, evErr := a.deps.Evidence.Write("http_probe", u, "txt", []byte(transcript)); evErr == nil {
			result.EvidencePath = path
		}
	}
	return result, nil
}

func (a *HTTPProbe) Info() models.AdapterInfo {
	return models.AdapterInfo{
		Name:         "http_probe",
		Version:      "1.0.0",
		Description:  "Web endpoint liveness and header capture",
		Capabilities: []string{"liveness", "header_capture"},
		Requirements: []string{"outbound HTTP(S)"},
		ExampleUsage: `{"tool":"http_probe","parameters":{"url":"https://example.com"}}`,
	}
}
