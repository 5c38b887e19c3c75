// Package masking redacts secrets from adapter evidence and finding text
// before anything touches disk, the store, or a notification channel.
package masking

import (
	"fmt"
	"log/slog"

	"github.com/talonsec/talon/pkg/config"
)

// redactionNotice replaces evidence wholesale when masking itself fails.
const redactionNotice = "[REDACTED: data masking failure - evidence could not be safely processed]"

// evidenceGroup is the default pattern group applied to all adapter output.
const evidenceGroup = "evidence"

// Service applies data masking to adapter evidence and finding text. Created
// once at application startup. Thread-safe and stateless aside from compiled
// patterns.
type Service struct {
	patterns map[string]*CompiledPattern // all compiled built-in patterns
	groups   map[string][]string         // group name → pattern names

	defaults []*CompiledPattern            // the evidence group, applied everywhere
	extras   map[string][]*CompiledPattern // adapter name → additional patterns
	logger   *slog.Logger
}

// NewService compiles the built-in patterns and resolves each adapter's extra
// masking_patterns from its configuration. All patterns are compiled eagerly;
// invalid ones are logged and skipped. A nil registry means no per-adapter
// extras.
func NewService(registry *config.AdapterRegistry) *Service {
	s := &Service{
		patterns: compileBuiltinPatterns(),
		groups:   config.GetBuiltinConfig().PatternGroups,
		extras:   make(map[string][]*CompiledPattern),
		logger:   slog.Default().With("component", "masking"),
	}
	s.defaults = s.resolve([]string{evidenceGroup})

	if registry != nil {
		for _, name := range registry.Names() {
			cfg, err := registry.Get(name)
			if err != nil || len(cfg.MaskingPatterns) == 0 {
				continue
			}
			s.extras[name] = s.resolve(cfg.MaskingPatterns)
		}
	}

	s.logger.Info("Masking service initialized",
		"compiled_patterns", len(s.patterns),
		"default_patterns", len(s.defaults),
		"adapters_with_extras", len(s.extras))
	return s
}

// MaskEvidence applies the default evidence patterns plus the adapter's extra
// patterns to raw tool output. On masking failure the content is replaced
// with a redaction notice; evidence never reaches disk unmasked.
func (s *Service) MaskEvidence(content, adapterName string) string {
	if content == "" {
		return content
	}

	patterns := make([]*CompiledPattern, 0, len(s.defaults)+len(s.extras[adapterName]))
	patterns = append(patterns, s.defaults...)
	patterns = append(patterns, s.extras[adapterName]...)

	masked, err := s.apply(content, patterns)
	if err != nil {
		s.logger.Error("Evidence masking failed, redacting content",
			"adapter", adapterName, "error", err)
		return redactionNotice
	}
	return masked
}

// MaskFinding applies the default patterns to finding text. On masking
// failure the original text is kept; losing a finding is worse than a
// secret in an already-access-controlled report.
func (s *Service) MaskFinding(content string) string {
	if content == "" {
		return content
	}

	masked, err := s.apply(content, s.defaults)
	if err != nil {
		s.logger.Error("Finding masking failed, keeping original text", "error", err)
		return content
	}
	return masked
}

// apply runs every pattern over the content. A panicking pattern is reported
// as an error so callers can choose their failure mode.
func (s *Service) apply(content string, patterns []*CompiledPattern) (masked string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("masking pattern panicked: %v", r)
		}
	}()

	masked = content
	for _, pattern := range patterns {
		masked = pattern.Regex.ReplaceAllString(masked, pattern.Replacement)
	}
	return masked, nil
}
