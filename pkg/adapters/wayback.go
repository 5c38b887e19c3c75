package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/talonsec/talon/pkg/adapter"
	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/models"
)

// Wayback queries the Internet Archive CDX index for historical URLs
// (network backend, passive).
type Wayback struct {
	cfg    *config.AdapterConfig
	deps   Deps
	client *adapter.HTTPClient
}

// NewWayback creates the wayback adapter.
func NewWayback(cfg *config.AdapterConfig, deps Deps) adapter.Adapter {
	return &Wayback{
		cfg:    cfg,
		deps:   deps,
		client: newNetClient(cfg),
	}
}

func (a *Wayback) ValidateConfig() error {
	if a.cfg.BaseURL == "" {
		return adapter.ConfigError("wayback", "base_url", "required")
	}
	for _, key := range a.cfg.OptionKeys() {
		if key != "max_results" {
			return adapter.ConfigError("wayback", key, "unknown field")
		}
	}
	return nil
}

func (a *Wayback) ValidateParams(params map[string]any) error {
	domain, err := adapter.StringParam(params, "domain")
	if err != nil {
		return err
	}
	return adapter.ValidateDomain("domain", domain)
}

func (a *Wayback) Execute(ctx context.Context, params map[string]any) (*models.AdapterResult, error) {
	domain, _ := adapter.StringParam(params, "domain")
	maxResults, ok := a.cfg.IntOption("max_results")
	if !ok {
		maxResults = 200
	}

	query := fmt.Sprintf("%s/cdx/search/cdx?url=%s&matchType=domain&output=json&collapse=urlkey&fl=original&limit=%d",
		a.cfg.BaseURL, url.QueryEscape(domain), maxResults)

	start := time.Now()
	body, err := a.client.Get(ctx, query)
	if err != nil {
		return netFailure("wayback", domain, err, time.Since(start)), nil
	}

	// CDX JSON output is an array of rows; the first row is the header.
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return models.FailureResult(fmt.Sprintf("wayback returned unparseable response: %v", err)), nil
	}
	var urls []string
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		urls = append(urls, row[0])
	}

	result := &models.AdapterResult{
		Status: models.AdapterStatusSuccess,
		Data: map[string]any{
			"domain": domain,
			"urls":   urls,
			"count":  len(urls),
		},
		Metadata:      map[string]any{"target": domain, "source": "web.archive.org"},
		ExecutionTime: time.Since(start),
	}

	if a.deps.Evidence != nil {
		if path, evErr := a.deps.Evidence.Write("wayback", domain, "json", body); evErr == nil {
			result.EvidencePath = path
		}
	}
	return result, nil
}

func (a *Wayback) Info() models.AdapterInfo {
	return models.AdapterInfo{
		Name:         "wayback",
		Version:      "1.0.0",
		Description:  "Historical URL discovery via the Internet Archive (passive)",
		Capabilities: []string{"url_history", "passive_recon"},
		Requirements: []string{"outbound HTTPS to web.archive.org"},
		ExampleUsage: `{"tool":"wayback","parameters":{"domain":"example.com"}}`,
	}
}
