package masking

import (
	"log/slog"
	"regexp"

	"github.com/talonsec/talon/pkg/config"
)

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// compileBuiltinPatterns compiles all built-in regex patterns from config.
// Invalid patterns are logged and skipped.
func compileBuiltinPatterns() map[string]*CompiledPattern {
	patterns := make(map[string]*CompiledPattern)
	for name, pattern := range config.GetBuiltinConfig().MaskingPatterns {
		compiled, err := regexp.Compile(pattern.Pattern)
		if err != nil {
			slog.Error("Failed to compile built-in masking pattern, skipping",
				"pattern", name, "error", err)
			continue
		}
		patterns[name] = &CompiledPattern{
			Name:        name,
			Regex:       compiled,
			Replacement: pattern.Replacement,
			Description: pattern.Description,
		}
	}
	return patterns
}

// resolve expands a list of pattern or group names into deduplicated compiled
// patterns. Unknown names are skipped; a name that matches a pattern group
// expands to every pattern in the group.
func (s *Service) resolve(names []string) []*CompiledPattern {
	seen := make(map[string]bool)
	var resolved []*CompiledPattern

	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		if cp, ok := s.patterns[name]; ok {
			resolved = append(resolved, cp)
		}
	}

	for _, name := range names {
		if group, ok := s.groups[name]; ok {
			for _, member := range group {
				add(member)
			}
			continue
		}
		add(name)
	}
	return resolved
}
