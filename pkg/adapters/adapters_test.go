package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talonsec/talon/pkg/adapter"
	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/models"
	"github.com/talonsec/talon/pkg/runner"
)

// stubRunner returns a canned result and records the spec it was given.
type stubRunner struct {
	result *runner.RunResult
	err    error
	specs  []runner.RunSpec
}

func (s *stubRunner) Run(_ context.Context, spec runner.RunSpec) (*runner.RunResult, error) {
	s.specs = append(s.specs, spec)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func successRun(stdout string) *runner.RunResult {
	code := 0
	return &runner.RunResult{
		Status:   runner.RunStatusSuccess,
		ExitCode: &code,
		Stdout:   stdout,
		Duration: 10 * time.Millisecond,
	}
}

func testDeps(t *testing.T, proc runner.Runner) Deps {
	t.Helper()
	return Deps{
		Process:   proc,
		Container: proc,
		Evidence:  adapter.NewEvidenceWriter(t.TempDir(), nil),
	}
}

func TestNamesCoversEveryFactory(t *testing.T) {
	names := Names()
	assert.Len(t, names, len(builtinFactories))
	for _, name := range names {
		f, ok := Lookup(name)
		require.True(t, ok, name)
		require.NotNil(t, f, name)
	}
	_, ok := Lookup("metasploit")
	assert.False(t, ok)
}

func TestNmapValidateParams(t *testing.T) {
	a := NewNmap(&config.AdapterConfig{Command: "nmap"}, Deps{})

	tests := []struct {
		name    string
		params  map[string]any
		wantErr bool
	}{
		{"valid host", map[string]any{"target": "192.168.1.50"}, false},
		{"valid with ports", map[string]any{"target": "example.com", "ports": "1-1024"}, false},
		{"missing target", map[string]any{}, true},
		{"shell metacharacter", map[string]any{"target": "example.com;rm -rf /"}, true},
		{"bad port spec", map[string]any{"target": "example.com", "ports": "1;2"}, true},
		{"unsafe flag", map[string]any{"target": "example.com", "flags": "-oN $(whoami)"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.ValidateParams(tt.params)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, adapter.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNmapBuildsArgsFromConfigDefaults(t *testing.T) {
	proc := &stubRunner{result: successRun("Nmap scan report for 192.168.1.50\n22/tcp open ssh")}
	a := NewNmap(&config.AdapterConfig{
		Command: "nmap",
		Options: map[string]any{"default_flags": "-sV -Pn", "top_ports": 100},
	}, testDeps(t, proc))

	result, err := a.Execute(context.Background(), map[string]any{"target": "192.168.1.50"})
	require.NoError(t, err)
	require.Equal(t, models.AdapterStatusSuccess, result.Status)

	require.Len(t, proc.specs, 1)
	assert.Equal(t, "nmap", proc.specs[0].Command)
	assert.Equal(t, []string{"-sV", "-Pn", "--top-ports", "100", "192.168.1.50"}, proc.specs[0].Args)

	// Explicit params override configured defaults.
	_, err = a.Execute(context.Background(), map[string]any{"target": "192.168.1.50", "ports": "80,443"})
	require.NoError(t, err)
	assert.Equal(t, []string{"-sV", "-Pn", "-p", "80,443", "192.168.1.50"}, proc.specs[1].Args)
}

func TestWhoisWritesEvidenceOnSuccess(t *testing.T) {
	proc := &stubRunner{result: successRun("Domain Name: EXAMPLE.COM\nRegistrar: IANA")}
	deps := testDeps(t, proc)
	a := NewWhois(&config.AdapterConfig{Command: "whois"}, deps)

	result, err := a.Execute(context.Background(), map[string]any{"domain": "example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.AdapterStatusSuccess, result.Status)
	require.NotEmpty(t, result.EvidencePath)

	content, err := os.ReadFile(result.EvidencePath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "EXAMPLE.COM")
	assert.Equal(t, "whois", filepath.Base(filepath.Dir(result.EvidencePath)))
}

func TestWhoisMapsFailureStatuses(t *testing.T) {
	code := 2
	proc := &stubRunner{result: &runner.RunResult{
		Status:   runner.RunStatusError,
		ExitCode: &code,
		Stderr:   "whois: no entry found",
	}}
	a := NewWhois(&config.AdapterConfig{Command: "whois"}, testDeps(t, proc))

	result, err := a.Execute(context.Background(), map[string]any{"domain": "example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.AdapterStatusFailure, result.Status)
	assert.Contains(t, result.ErrorMessage, "no entry found")

	proc.result = &runner.RunResult{Status: runner.RunStatusTimeout}
	result, err = a.Execute(context.Background(), map[string]any{"domain": "example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.AdapterStatusTimeout, result.Status)
}

func TestDNSLookupPartialWhenSomeQueriesFail(t *testing.T) {
	// First record type succeeds, the rest fail.
	proc := &flakyRunner{
		good: successRun("93.184.216.34\n"),
	}
	a := NewDNSLookup(&config.AdapterConfig{
		Command: "dig",
		Options: map[string]any{"record_types": []any{"A", "MX"}},
	}, testDeps(t, proc))

	result, err := a.Execute(context.Background(), map[string]any{"domain": "example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.AdapterStatusPartial, result.Status)
	records := result.Data["records"].(map[string]any)
	assert.Equal(t, []string{"93.184.216.34"}, records["A"])
	_, hasMX := records["MX"]
	assert.False(t, hasMX)
}

// flakyRunner succeeds on the first call and fails afterwards.
type flakyRunner struct {
	good  *runner.RunResult
	calls int
}

func (f *flakyRunner) Run(context.Context, runner.RunSpec) (*runner.RunResult, error) {
	f.calls++
	if f.calls == 1 {
		return f.good, nil
	}
	code := 9
	return &runner.RunResult{Status: runner.RunStatusError, ExitCode: &code, Stderr: "connection timed out"}, nil
}

func TestSQLMapMountsEvidenceVolume(t *testing.T) {
	cont := &stubRunner{result: successRun("sqlmap identified injection point")}
	deps := testDeps(t, cont)
	a := NewSQLMap(&config.AdapterConfig{Image: "sqlmap:latest", Network: "pentest-lab"}, deps)

	_, err := a.Execute(context.Background(), map[string]any{"url": "http://192.168.1.50/item?id=1"})
	require.NoError(t, err)

	require.Len(t, cont.specs, 1)
	spec := cont.specs[0]
	assert.Equal(t, "sqlmap:latest", spec.Image)
	assert.Equal(t, "pentest-lab", spec.Network)
	require.Len(t, spec.Volumes, 1)
	assert.Equal(t, "/evidence", spec.Volumes[0].ContainerPath)
}

func TestPublicIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("203.0.113.9\n"))
	}))
	defer srv.Close()

	a := NewPublicIP(&config.AdapterConfig{BaseURL: srv.URL}, Deps{})
	require.NoError(t, a.ValidateConfig())
	require.NoError(t, a.ValidateParams(nil))
	assert.Error(t, a.ValidateParams(map[string]any{"target": "x"}))

	result, err := a.Execute(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, models.AdapterStatusSuccess, result.Status)
	assert.Equal(t, "203.0.113.9", result.Data["ip"])
}

func TestPublicIPRejectsGarbageResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>blocked</html>"))
	}))
	defer srv.Close()

	a := NewPublicIP(&config.AdapterConfig{BaseURL: srv.URL}, Deps{})
	result, err := a.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.AdapterStatusFailure, result.Status)
}

func TestValidateConfigRejectsUnknownOptions(t *testing.T) {
	a := NewWhois(&config.AdapterConfig{
		Command: "whois",
		Options: map[string]any{"wordlist": "/lists/common.txt"},
	}, Deps{})
	err := a.ValidateConfig()
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrConfiguration)
	assert.Contains(t, err.Error(), "wordlist")
}
