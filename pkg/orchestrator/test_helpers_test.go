package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/talonsec/talon/pkg/llm"
	"github.com/talonsec/talon/pkg/models"
)

// stubRunner satisfies AdapterRunner with a per-tool results map.
type stubRunner struct {
	results  map[string]*models.AdapterResult
	errs     map[string]error
	calls    []string
	unloaded int
}

func newStubRunner() *stubRunner {
	return &stubRunner{
		results: make(map[string]*models.AdapterResult),
		errs:    make(map[string]error),
	}
}

func (r *stubRunner) RunAdapter(_ context.Context, name string, params map[string]any) (*models.AdapterResult, error) {
	r.calls = append(r.calls, name)
	if err, ok := r.errs[name]; ok {
		return nil, err
	}
	if result, ok := r.results[name]; ok {
		return result, nil
	}
	return &models.AdapterResult{
		Status: models.AdapterStatusSuccess,
		Data:   map[string]any{"output": fmt.Sprintf("%s output for %v", name, params)},
	}, nil
}

func (r *stubRunner) Discover() []string { return []string{"whois", "dns_lookup", "nmap"} }
func (r *stubRunner) Unload()            { r.unloaded++ }

// stubPlanner returns a canned plan or an error.
type stubPlanner struct {
	plan []llm.ScanStep
	err  error
}

func (p *stubPlanner) PlanNextSteps(context.Context, string, string) ([]llm.ScanStep, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.plan, nil
}

// stubAnalyzer returns one canned finding per analysis call.
type stubAnalyzer struct {
	findings []llm.RawFinding
	err      error
	calls    int
}

func (a *stubAnalyzer) AnalyzeFindings(context.Context, string, string) ([]llm.RawFinding, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return a.findings, nil
}

var errPlannerDown = errors.New("planner unavailable")
