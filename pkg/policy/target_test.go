package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talonsec/talon/pkg/config"
)

func newTestValidator(t *testing.T, cfg config.TargetValidationConfig) *TargetValidator {
	t.Helper()
	v, err := NewTargetValidator(cfg)
	require.NoError(t, err)
	return v
}

func TestTargetValidatorNetworks(t *testing.T) {
	v := newTestValidator(t, config.TargetValidationConfig{
		AuthorizedNetworks: []string{"192.168.1.0/24"},
		AuthorizedDomains:  []string{"example.com"},
	})

	tests := []struct {
		name    string
		target  string
		allowed bool
	}{
		{"ip inside network", "192.168.1.50", true},
		{"ip outside network", "10.0.0.1", false},
		{"network boundary low", "192.168.1.0", true},
		{"network boundary high", "192.168.1.255", true},
		{"adjacent network", "192.168.2.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, v.Validate(tt.target).Allowed)
		})
	}
}

func TestTargetValidatorDomains(t *testing.T) {
	v := newTestValidator(t, config.TargetValidationConfig{
		AuthorizedDomains: []string{"example.com"},
	})

	assert.True(t, v.Validate("example.com").Allowed)
	assert.True(t, v.Validate("www.example.com").Allowed)
	assert.True(t, v.Validate("deep.sub.example.com").Allowed)
	assert.True(t, v.Validate("EXAMPLE.COM").Allowed, "comparison is case-insensitive")
	assert.True(t, v.Validate("example.com.").Allowed, "trailing dot is canonical")

	assert.False(t, v.Validate("example.org").Allowed)
	assert.False(t, v.Validate("notexample.com").Allowed, "suffix match requires a label boundary")
	assert.False(t, v.Validate("example.com.evil.net").Allowed)
}

func TestTargetValidatorBlocklistWins(t *testing.T) {
	v := newTestValidator(t, config.TargetValidationConfig{
		AuthorizedNetworks: []string{"192.168.1.0/24"},
		AuthorizedDomains:  []string{"example.com"},
		BlockedTargets:     []string{"192.168.1.1", "admin.example.com"},
	})

	// Blocked targets are denied regardless of network/domain membership
	assert.False(t, v.Validate("192.168.1.1").Allowed)
	assert.False(t, v.Validate("admin.example.com").Allowed)
	assert.True(t, v.Validate("192.168.1.2").Allowed)
	assert.True(t, v.Validate("www.example.com").Allowed)
}

func TestTargetValidatorInvalidTargets(t *testing.T) {
	v := newTestValidator(t, config.TargetValidationConfig{
		AuthorizedDomains: []string{"example.com"},
	})

	for _, target := range []string{"", "not a domain", "256.1.2.3.4", "-bad.example.com", "exa_mple.com"} {
		d := v.Validate(target)
		assert.False(t, d.Allowed, target)
		assert.True(t, d.Invalid, target)
	}
}

func TestTargetValidatorUnrelatedDomainDoesNotAffectAdmission(t *testing.T) {
	base := config.TargetValidationConfig{
		AuthorizedDomains: []string{"example.com"},
	}
	v := newTestValidator(t, base)
	require.True(t, v.Validate("www.example.com").Allowed)

	widened := base
	widened.AuthorizedDomains = append([]string{"other.org"}, base.AuthorizedDomains...)
	v2 := newTestValidator(t, widened)
	assert.True(t, v2.Validate("www.example.com").Allowed)
}

func TestTargetValidatorBadCIDR(t *testing.T) {
	_, err := NewTargetValidator(config.TargetValidationConfig{
		AuthorizedNetworks: []string{"not-a-cidr/99"},
	})
	require.Error(t, err)
}

func TestTargetValidatorBareIPNetwork(t *testing.T) {
	v := newTestValidator(t, config.TargetValidationConfig{
		AuthorizedNetworks: []string{"203.0.113.7"},
	})
	assert.True(t, v.Validate("203.0.113.7").Allowed)
	assert.False(t, v.Validate("203.0.113.8").Allowed)
}
