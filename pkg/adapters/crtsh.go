package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/talonsec/talon/pkg/adapter"
	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/models"
)

// CrtSh queries certificate-transparency logs via crt.sh for subdomains
// (network backend, passive).
type CrtSh struct {
	cfg    *config.AdapterConfig
	deps   Deps
	client *adapter.HTTPClient
}

// NewCrtSh creates the crtsh adapter.
func NewCrtSh(cfg *config.AdapterConfig, deps Deps) adapter.Adapter {
	return &CrtSh{
		cfg:    cfg,
		deps:   deps,
		client: newNetClient(cfg),
	}
}

func (a *CrtSh) ValidateConfig() error {
	if a.cfg.BaseURL == "" {
		return adapter.ConfigError("crtsh", "base_url", "required")
	}
	for _, key := range a.cfg.OptionKeys() {
		if key != "max_results" {
			return adapter.ConfigError("crtsh", key, "unknown field")
		}
	}
	return nil
}

func (a *CrtSh) ValidateParams(params map[string]any) error {
	domain, err := adapter.StringParam(params, "domain")
	if err != nil {
		return err
	}
	return adapter.ValidateDomain("domain", domain)
}

type crtshEntry struct {
	NameValue string `json:"name_value"`
	Issuer    string `json:"issuer_name"`
	NotAfter  string `json:"not_after"`
}

func (a *CrtSh) Execute(ctx context.Context, params map[string]any) (*models.AdapterResult, error) {
	domain, _ := adapter.StringParam(params, "domain")
	maxResults, ok := a.cfg.IntOption("max_results")
	if !ok {
		maxResults = 100
	}

	query := fmt.Sprintf("%s/?q=%s&output=json", a.cfg.BaseURL, url.QueryEscape("%."+domain))
	start := time.Now()
	body, err := a.client.Get(ctx, query)
	if err != nil {
		return netFailure("crtsh", domain, err, time.Since(start)), nil
	}

	var entries []crtshEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return models.FailureResult(fmt.Sprintf("crt.sh returned unparseable response: %v", err)), nil
	}

	subdomains := uniqueSubdomains(entries, domain, maxResults)

	result := &models.AdapterResult{
		Status: models.AdapterStatusSuccess,
		Data: map[string]any{
			"domain":       domain,
			"subdomains":   subdomains,
			"total_certs":  len(entries),
			"result_limit": maxResults,
		},
		Metadata:      map[string]any{"target": domain, "source": "crt.sh"},
		ExecutionTime: time.Since(start),
	}

	if a.deps.Evidence != nil {
		if path, evErr := a.deps.Evidence.Write("crtsh", domain, "json", body); evErr == nil {
			result.EvidencePath = path
		}
	}
	return result, nil
}

func uniqueSubdomains(entries []crtshEntry, domain string, limit int) []string {
	seen := make(map[string]bool)
	for _, e := range entries {
		for _, name := range strings.Split(e.NameValue, "\n") {
			name = strings.ToLower(strings.TrimSpace(name))
			name = strings.TrimPrefix(name, "*.")
			if name == "" || !strings.HasSuffix(name, domain) {
				continue
			}
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > limit {
		names = names[:limit]
	}
	return names
}

func (a *CrtSh) Info() models.AdapterInfo {
	return models.AdapterInfo{
		Name:         "crtsh",
		Version:      "1.0.0",
		Description:  "Subdomain discovery via certificate-transparency logs (passive)",
		Capabilities: []string{"subdomain_enum", "passive_recon"},
		Requirements: []string{"outbound HTTPS to crt.sh"},
		ExampleUsage: `{"tool":"crtsh","parameters":{"domain":"example.com"}}`,
	}
}

// newNetClient builds the shared retrying HTTP client from adapter config.
func newNetClient(cfg *config.AdapterConfig) *adapter.HTTPClient {
	policy := adapter.DefaultRetryPolicy()
	if cfg.MaxRetries > 0 {
		policy.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryBaseDelay > 0 {
		policy.BaseDelay = cfg.RetryBaseDelay
	}
	return adapter.NewHTTPClient(cfg.Timeout, policy, cfg.RateLimitRPM)
}

// netFailure maps a transport error onto the result contract: client
// timeouts become timeout results, everything else a failure.
func netFailure(name, target string, err error, elapsed time.Duration) *models.AdapterResult {
	status := models.AdapterStatusFailure
	if ctxErr := err; ctxErr != nil && (strings.Contains(err.Error(), "context deadline exceeded") ||
		strings.Contains(err.Error(), "Client.Timeout")) {
		status = models.AdapterStatusTimeout
	}
	return &models.AdapterResult{
		Status:        status,
		ErrorMessage:  fmt.Sprintf("%s request failed: %v", name, err),
		Metadata:      map[string]any{"target": target},
		ExecutionTime: elapsed,
	}
}
