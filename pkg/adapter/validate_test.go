package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDomain(t *testing.T) {
	assert.NoError(t, ValidateDomain("domain", "example.com"))
	assert.NoError(t, ValidateDomain("domain", "deep.sub.example.co.uk"))
	assert.NoError(t, ValidateDomain("domain", "xn--nxasmq6b.example"))

	assert.Error(t, ValidateDomain("domain", ""))
	assert.Error(t, ValidateDomain("domain", "no-tld"))
	assert.Error(t, ValidateDomain("domain", "-bad.example.com"))
	assert.Error(t, ValidateDomain("domain", "exa mple.com"))
	assert.Error(t, ValidateDomain("domain", "192.168.1.1"))
}

func TestValidateHost(t *testing.T) {
	assert.NoError(t, ValidateHost("host", "192.168.1.1"))
	assert.NoError(t, ValidateHost("host", "2001:db8::1"))
	assert.NoError(t, ValidateHost("host", "example.com"))
	assert.Error(t, ValidateHost("host", "not a host"))
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("url", "https://example.com/path?q=1"))
	assert.NoError(t, ValidateURL("url", "http://192.168.1.50:8080"))

	assert.Error(t, ValidateURL("url", "ftp://example.com"))
	assert.Error(t, ValidateURL("url", "example.com"))
	assert.Error(t, ValidateURL("url", "https://"))
}

func TestValidatePortSpec(t *testing.T) {
	assert.NoError(t, ValidatePortSpec("ports", "80"))
	assert.NoError(t, ValidatePortSpec("ports", "80,443,8080"))
	assert.NoError(t, ValidatePortSpec("ports", "1-1024"))
	assert.NoError(t, ValidatePortSpec("ports", "22,80-90,443"))

	assert.Error(t, ValidatePortSpec("ports", "0"))
	assert.Error(t, ValidatePortSpec("ports", "65536"))
	assert.Error(t, ValidatePortSpec("ports", "abc"))
	assert.Error(t, ValidatePortSpec("ports", "80;443"))
}

func TestValidateFlags(t *testing.T) {
	assert.NoError(t, ValidateFlags("flags", []string{"-sV", "-T4", "--top-ports=100"}))
	assert.NoError(t, ValidateFlags("flags", nil))

	assert.Error(t, ValidateFlags("flags", []string{"-sV; rm -rf /"}))
	assert.Error(t, ValidateFlags("flags", []string{"notaflag"}))
	assert.Error(t, ValidateFlags("flags", []string{"--script=$(id)"}))
}

func TestValidateEnum(t *testing.T) {
	assert.NoError(t, ValidateEnum("record_type", "A", []string{"A", "AAAA", "MX"}))
	assert.Error(t, ValidateEnum("record_type", "PTR", []string{"A", "AAAA", "MX"}))
}

func TestParamHelpers(t *testing.T) {
	params := map[string]any{
		"target": "example.com",
		"count":  float64(5),
		"flag":   true,
	}

	v, err := StringParam(params, "target")
	assert.NoError(t, err)
	assert.Equal(t, "example.com", v)

	_, err = StringParam(params, "missing")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = StringParam(params, "flag")
	assert.ErrorIs(t, err, ErrValidation)

	n, err := OptionalIntParam(params, "count", 10)
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = OptionalIntParam(params, "missing", 10)
	assert.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestExtractTarget(t *testing.T) {
	assert.Equal(t, "example.com", ExtractTarget(map[string]any{"target": "example.com"}))
	assert.Equal(t, "example.com", ExtractTarget(map[string]any{"domain": "example.com"}))
	assert.Equal(t, "10.0.0.1", ExtractTarget(map[string]any{"host": "10.0.0.1"}))
	assert.Equal(t, "https://example.com", ExtractTarget(map[string]any{"url": "https://example.com"}))
	// target wins over url when both are present
	assert.Equal(t, "a.com", ExtractTarget(map[string]any{"url": "https://b.com", "target": "a.com"}))
	assert.Empty(t, ExtractTarget(map[string]any{"other": "x"}))
	assert.Empty(t, ExtractTarget(nil))
}
