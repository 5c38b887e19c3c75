// Package adapter defines the uniform contract every tool wrapper
// implements, plus the shared helpers adapters build on: parameter
// validation, argument sanitization, evidence persistence, and a retrying
// HTTP client for network-backed tools.
package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/talonsec/talon/pkg/models"
)

// Adapter is the contract every tool wrapper implements. Execute is total:
// tool failures come back as AdapterResult values with a non-success status,
// never as errors. The error return exists for programming errors only
// (contract breaches), which are allowed to propagate.
type Adapter interface {
	// ValidateConfig verifies static configuration at load time. A failure
	// excludes the adapter from the registry.
	ValidateConfig() error

	// ValidateParams verifies per-invocation inputs against the adapter's
	// constraints before any execution.
	ValidateParams(params map[string]any) error

	// Execute performs the work and always produces exactly one result.
	Execute(ctx context.Context, params map[string]any) (*models.AdapterResult, error)

	// Info returns the adapter's introspection record.
	Info() models.AdapterInfo
}

// Sentinel errors distinguishing the two validation failure classes of the
// contract.
var (
	// ErrConfiguration marks bad static configuration (load-time, fatal to
	// the adapter)
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation marks bad per-invocation parameters (surfaced to the
	// caller as a tool error)
	ErrValidation = errors.New("validation error")
)

// ConfigError builds a load-time configuration error for one field.
func ConfigError(adapterName, field string, reason string) error {
	return fmt.Errorf("%w: adapter %s: field %s: %s", ErrConfiguration, adapterName, field, reason)
}

// ParamError builds a per-invocation validation error for one parameter.
func ParamError(param string, reason string) error {
	return fmt.Errorf("%w: parameter %s: %s", ErrValidation, param, reason)
}

// StringParam extracts a required string parameter.
func StringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", ParamError(key, "required")
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", ParamError(key, "must be a non-empty string")
	}
	return s, nil
}

// OptionalStringParam extracts an optional string parameter; absence is not
// an error, a wrong type is.
func OptionalStringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", ParamError(key, "must be a string")
	}
	return s, nil
}

// OptionalIntParam extracts an optional integer parameter. JSON numbers
// arrive as float64, YAML as int; both are accepted.
func OptionalIntParam(params map[string]any, key string, fallback int) (int, error) {
	v, ok := params[key]
	if !ok {
		return fallback, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, ParamError(key, "must be a number")
	}
}

// ExtractTarget pulls the target out of invocation parameters, trying the
// conventional keys in order. Empty string means the invocation has no
// target (e.g. public_ip).
func ExtractTarget(params map[string]any) string {
	for _, key := range []string{"target", "domain", "host", "url"} {
		if v, ok := params[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
