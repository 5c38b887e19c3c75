package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/talonsec/talon/pkg/adapter"
	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/models"
	"github.com/talonsec/talon/pkg/runner"
)

var dnsRecordTypes = []string{"A", "AAAA", "CNAME", "MX", "NS", "SOA", "TXT", "SRV", "CAA"}

// DNSLookup wraps dig for DNS record queries (process backend, passive).
type DNSLookup struct {
	cfg  *config.AdapterConfig
	deps Deps
}

// NewDNSLookup creates the dns_lookup adapter.
func NewDNSLookup(cfg *config.AdapterConfig, deps Deps) adapter.Adapter {
	return &DNSLookup{cfg: cfg, deps: deps}
}

func (a *DNSLookup) ValidateConfig() error {
	if a.cfg.Command == "" {
		return adapter.ConfigError("dns_lookup", "command", "required")
	}
	for _, key := range a.cfg.OptionKeys() {
		if key != "record_types" {
			return adapter.ConfigError("dns_lookup", key, "unknown field")
		}
	}
	for _, rt := range a.configuredRecordTypes() {
		if err := adapter.ValidateEnum("record_types", rt, dnsRecordTypes); err != nil {
			return adapter.ConfigError("dns_lookup", "record_types", err.Error())
		}
	}
	return nil
}

func (a *DNSLookup) ValidateParams(params map[string]any) error {
	domain, err := adapter.StringParam(params, "domain")
	if err != nil {
		return err
	}
	if err := adapter.ValidateDomain("domain", domain); err != nil {
		return err
	}
	if rt, err := adapter.OptionalStringParam(params, "record_type"); err != nil {
		return err
	} else if rt != "" {
		if err := adapter.ValidateEnum("record_type", strings.ToUpper(rt), dnsRecordTypes); err != nil {
			return err
		}
	}
	return nil
}

func (a *DNSLookup) Execute(ctx context.Context, params map[string]any) (*models.AdapterResult, error) {
	domain, _ := adapter.StringParam(params, "domain")

	recordTypes := a.configuredRecordTypes()
	if rt, _ := adapter.OptionalStringParam(params, "record_type"); rt != "" {
		recordTypes = []string{strings.ToUpper(rt)}
	}

	records := make(map[string]any, len(recordTypes))
	var transcript strings.Builder
	failures := 0
	start := time.Now()

	for _, rt := range recordTypes {
		res, err := a.deps.Process.Run(ctx,
			runSpec(a.cfg.Command, []string{"+short", domain, rt}, configTimeout(a.cfg, 30*time.Second)))
		if err != nil {
			return models.ErrorResult(fmt.Sprintf("dns_lookup runner error: %v", err)), nil
		}
		if res.Status != runner.RunStatusSuccess {
			failures++
			continue
		}
		lines := splitNonEmptyLines(res.Stdout)
		records[rt] = lines
		fmt.Fprintf(&transcript, ";; %s %s\n%s\n", domain, rt, res.Stdout)
	}

	result := &models.AdapterResult{
		Data:          map[string]any{"domain": domain, "records": records},
		Metadata:      map[string]any{"target": domain, "record_types": recordTypes},
		ExecutionTime: time.Since(start),
	}
	switch {
	case failures == len(recordTypes):
		result.Status = models.AdapterStatusFailure
		result.ErrorMessage = "all DNS queries failed"
		return result, nil
	case failures > 0:
		result.Status = models.AdapterStatusPartial
	default:
		result.Status = models.AdapterStatusSuccess
	}

	if a.deps.Evidence != nil && transcript.Len() > 0 {
		if path, err := a.deps.Evidence.Write("dns_lookup", domain, "txt", []byte(transcript.String())); err == nil {
			result.EvidencePath = path
		}
	}
	return result, nil
}

func (a *DNSLookup) configuredRecordTypes() []string {
	raw, ok := a.cfg.Options["record_types"]
	if !ok {
		return []string{"A", "AAAA", "MX", "NS", "TXT"}
	}
	list, ok := raw.([]any)
	if !ok {
		return []string{"A"}
	}
	types := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			types = append(types, strings.ToUpper(s))
		}
	}
	return types
}

func (a *DNSLookup) Info() models.AdapterInfo {
	return models.AdapterInfo{
		Name:         "dns_lookup",
		Version:      "1.0.0",
		Description:  "DNS record enumeration via dig (passive)",
		Capabilities: []string{"dns_records", "passive_recon"},
		Requirements: []string{"dig binary on PATH"},
		ExampleUsage: `{"tool":"dns_lookup","parameters":{"domain":"example.com","record_type":"MX"}}`,
	}
}

func splitNonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
