// Package orchestrator drives an engagement: asset intake, the passive
// reconnaissance phase, LLM-planned active scanning, result normalization,
// and report assembly.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talonsec/talon/pkg/events"
	"github.com/talonsec/talon/pkg/llm"
	"github.com/talonsec/talon/pkg/models"
	"github.com/talonsec/talon/pkg/policy"
)

// ErrStepNotApproved means the operator declined a scan step at the
// approval gate.
var ErrStepNotApproved = errors.New("scan step was not approved")

// ErrAssetRejected means the policy engine denied an asset at intake.
var ErrAssetRejected = errors.New("asset rejected by policy")

// AdapterRunner is the execution surface the orchestrator drives. All tool
// invocations go through RunAdapter; the orchestrator holds no adapter
// instances.
type AdapterRunner interface {
	RunAdapter(ctx context.Context, name string, params map[string]any) (*models.AdapterResult, error)
	Discover() []string
	Unload()
}

// Planner produces scan plans. llm.Service satisfies it.
type Planner interface {
	PlanNextSteps(ctx context.Context, summary, objective string) ([]llm.ScanStep, error)
}

// Approver decides whether a gated scan step may run. Returning false skips
// the step.
type Approver func(step models.WorkflowStep) bool

// Orchestrator coordinates one engagement run.
type Orchestrator struct {
	runID        string
	engine       *policy.Engine
	runner       AdapterRunner
	planner      Planner
	processor    *ResultProcessor
	workflow     *WorkflowManager
	bus          events.Publisher
	approver     Approver
	passiveTools []string
	logger       *slog.Logger

	mu             sync.Mutex
	assets         []models.Asset
	completedSteps []string
}

// Options configures an orchestrator.
type Options struct {
	RunID        string
	Engine       *policy.Engine
	Runner       AdapterRunner
	Planner      Planner
	Analyzer     Analyzer
	Masker       FindingMasker
	Bus          events.Publisher
	Approver     Approver
	PassiveTools []string
}

// New creates an orchestrator for one run.
func New(opts Options) *Orchestrator {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Orchestrator{
		runID:        runID,
		engine:       opts.Engine,
		runner:       opts.Runner,
		planner:      opts.Planner,
		processor:    NewResultProcessor(opts.Analyzer, opts.Masker),
		workflow:     NewWorkflowManager(),
		bus:          opts.Bus,
		approver:     opts.Approver,
		passiveTools: opts.PassiveTools,
		logger:       slog.Default().With("component", "orchestrator", "run_id", runID),
	}
}

// RunID returns the run identifier.
func (o *Orchestrator) RunID() string { return o.runID }

// Workflow exposes the state machine.
func (o *Orchestrator) Workflow() *WorkflowManager { return o.workflow }

// Processor exposes accumulated results and findings.
func (o *Orchestrator) Processor() *ResultProcessor { return o.processor }

// AddAsset validates a target through the policy engine and registers it
// for the run. Denied assets are rejected with ErrAssetRejected; the denial
// is recorded as a violation by the engine.
func (o *Orchestrator) AddAsset(asset models.Asset) error {
	if !asset.Kind.IsValid() {
		return fmt.Errorf("invalid asset kind %q", asset.Kind)
	}
	if o.engine != nil {
		req := models.TargetRequest{Target: asset.Value, ToolName: "asset_registration"}
		if !o.engine.ValidateAsset(req) {
			return fmt.Errorf("%w: %s", ErrAssetRejected, asset.Value)
		}
	}

	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}

	o.mu.Lock()
	o.assets = append(o.assets, asset)
	o.mu.Unlock()

	o.logger.Info("Asset registered", "name", asset.Name, "kind", asset.Kind, "value", asset.Value)
	return nil
}

// Assets snapshots the registered assets.
func (o *Orchestrator) Assets() []models.Asset {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.Asset, len(o.assets))
	copy(out, o.assets)
	return out
}

// RunPassiveRecon runs every configured passive tool against every asset,
// continuing past individual failures, and returns the normalized results.
// The workflow transitions to running at the start and completed at the
// end.
func (o *Orchestrator) RunPassiveRecon(ctx context.Context) ([]models.ScanResult, error) {
	if o.workflow.State() == models.WorkflowStatePending {
		if err := o.workflow.Transition(models.WorkflowStateRunning); err != nil {
			return nil, err
		}
	}
	o.publish(events.RunStarted(o.runID, models.ScanModePassive, len(o.Assets())))

	results := o.passivePhase(ctx)

	if err := o.workflow.Transition(models.WorkflowStateCompleted); err != nil {
		return results, err
	}
	o.publish(events.RunCompleted(o.runID, o.workflow.State(), len(o.processor.Findings())))
	return results, nil
}

// passivePhase is the shared passive sweep without workflow transitions.
func (o *Orchestrator) passivePhase(ctx context.Context) []models.ScanResult {
	var results []models.ScanResult
	for _, asset := range o.Assets() {
		for _, tool := range o.passiveTools {
			step := models.WorkflowStep{
				Name:   fmt.Sprintf("passive %s %s", tool, asset.Value),
				Tool:   tool,
				Target: asset.Value,
			}
			o.publish(events.StepStarted(o.runID, step))

			params := paramsForTool(tool, asset.Value, nil)
			result, err := o.runner.RunAdapter(ctx, tool, params)
			if err != nil {
				o.logger.Warn("Passive step failed", "tool", tool, "target", asset.Value, "error", err)
				o.publish(events.StepCompleted(o.runID, step, models.AdapterStatusError))
				continue
			}
			o.publish(events.StepCompleted(o.runID, step, result.Status))

			if scan := o.processor.ProcessToolOutput(ctx, tool, asset.Value, result); scan != nil {
				results = append(results, *scan)
			}
			o.markCompleted(step.Name)
		}
	}
	return results
}

// PlanActiveScans asks the planner for the next steps given everything
// gathered so far. Any transport or parse failure falls back to the
// deterministic default plan for the mode.
func (o *Orchestrator) PlanActiveScans(ctx context.Context, mode models.ScanMode) []models.WorkflowStep {
	if !mode.IsValid() {
		mode = models.ScanModePassive
	}
	if o.planner == nil {
		return o.defaultPlan(mode)
	}

	objective := fmt.Sprintf("Propose the next %s-mode scan steps for the authorized assets.", mode)
	planned, err := o.planner.PlanNextSteps(ctx, o.contextSummary(), objective)
	if err != nil {
		o.logger.Warn("Planner unavailable, using default plan", "mode", mode, "error", err)
		return o.defaultPlan(mode)
	}
	if len(planned) == 0 {
		return o.defaultPlan(mode)
	}

	steps := make([]models.WorkflowStep, 0, len(planned))
	for i, p := range planned {
		steps = append(steps, models.WorkflowStep{
			Name:       fmt.Sprintf("planned %s %s", p.Tool, p.Target),
			Tool:       p.Tool,
			Target:     p.Target,
			Parameters: p.Parameters,
			Priority:   len(planned) - i,
			Rationale:  p.Rationale,
		})
	}
	return steps
}

// defaultPlans maps scan mode to the deterministic fallback toolset.
var defaultPlans = map[models.ScanMode][]string{
	models.ScanModePassive: {"whois", "dns_lookup"},
	models.ScanModeActive:  {"nmap", "sqlmap", "gobuster"},
	models.ScanModeLab:     {"nmap", "sqlmap", "gobuster", "nikto"},
}

func (o *Orchestrator) defaultPlan(mode models.ScanMode) []models.WorkflowStep {
	tools := defaultPlans[mode]
	var steps []models.WorkflowStep
	for _, asset := range o.Assets() {
		for i, tool := range tools {
			steps = append(steps, models.WorkflowStep{
				Name:      fmt.Sprintf("default %s %s", tool, asset.Value),
				Tool:      tool,
				Target:    asset.Value,
				Priority:  len(tools) - i,
				Rationale: "default plan for " + string(mode) + " mode",
			})
		}
	}
	return steps
}

// ExecuteScanStep runs one planned step: approval gate (auto-approved in
// lab mode), early policy feedback on the ephemeral target, then the gated
// execution path. The plugin manager's gate remains the authority; the
// early check only saves a doomed invocation.
func (o *Orchestrator) ExecuteScanStep(ctx context.Context, step models.WorkflowStep, mode models.ScanMode, approvalRequired bool) (*models.AdapterResult, error) {
	if approvalRequired && mode != models.ScanModeLab {
		if o.approver == nil || !o.approver(step) {
			o.logger.Info("Step skipped at approval gate", "tool", step.Tool, "target", step.Target)
			return nil, fmt.Errorf("%w: %s against %s", ErrStepNotApproved, step.Tool, step.Target)
		}
	}

	o.publish(events.StepStarted(o.runID, step))
	params := paramsForTool(step.Tool, step.Target, step.Parameters)

	result, err := o.runner.RunAdapter(ctx, step.Tool, params)
	if err != nil {
		o.publish(events.StepCompleted(o.runID, step, models.AdapterStatusError))
		return nil, err
	}
	o.publish(events.StepCompleted(o.runID, step, result.Status))
	o.markCompleted(step.Name)
	return result, nil
}

// RunEngagement drives the full phased run: passive sweep, planning, gated
// active execution, terminal transition.
func (o *Orchestrator) RunEngagement(ctx context.Context, mode models.ScanMode, approvalRequired bool) error {
	if err := o.workflow.Transition(models.WorkflowStateRunning); err != nil {
		return err
	}
	o.publish(events.RunStarted(o.runID, mode, len(o.Assets())))

	o.passivePhase(ctx)

	if mode != models.ScanModePassive {
		for _, step := range o.PlanActiveScans(ctx, mode) {
			if ctx.Err() != nil {
				_ = o.workflow.Transition(models.WorkflowStateCancelled)
				o.publish(events.RunCompleted(o.runID, o.workflow.State(), len(o.processor.Findings())))
				return ctx.Err()
			}
			result, err := o.ExecuteScanStep(ctx, step, mode, approvalRequired)
			if err != nil {
				o.logger.Warn("Active step not executed", "tool", step.Tool, "error", err)
				continue
			}
			o.processor.ProcessToolOutput(ctx, step.Tool, step.Target, result)
		}
	}

	if err := o.workflow.Transition(models.WorkflowStateCompleted); err != nil {
		return err
	}
	o.publish(events.RunCompleted(o.runID, o.workflow.State(), len(o.processor.Findings())))
	return nil
}

// Context snapshots the run state for status endpoints.
func (o *Orchestrator) Context() models.OrchestrationContext {
	start, end := o.workflow.Times()
	o.mu.Lock()
	completed := make([]string, len(o.completedSteps))
	copy(completed, o.completedSteps)
	o.mu.Unlock()

	return models.OrchestrationContext{
		Assets:         o.Assets(),
		ScanResults:    o.processor.Results(),
		CompletedSteps: completed,
		WorkflowState:  o.workflow.State(),
		StartTime:      start,
		EndTime:        end,
	}
}

// Cleanup unloads adapters and clears in-run state. Calling it twice is the
// same as calling it once.
func (o *Orchestrator) Cleanup() {
	o.runner.Unload()
	o.processor.Clear()
	o.workflow.Reset()

	o.mu.Lock()
	o.assets = nil
	o.completedSteps = nil
	o.mu.Unlock()

	o.logger.Info("Run state cleared")
}

// contextSummary renders prior results for the planning prompt.
func (o *Orchestrator) contextSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assets:\n")
	for _, a := range o.Assets() {
		fmt.Fprintf(&b, "- %s (%s): %s\n", a.Name, a.Kind, a.Value)
	}
	results := o.processor.Results()
	if len(results) == 0 {
		b.WriteString("\nNo scan results yet.")
		return b.String()
	}
	b.WriteString("\nResults so far:\n")
	for _, r := range results {
		fmt.Fprintf(&b, "- %s\n", r.Summary)
	}
	return b.String()
}

func (o *Orchestrator) markCompleted(name string) {
	o.mu.Lock()
	o.completedSteps = append(o.completedSteps, name)
	o.mu.Unlock()
}

func (o *Orchestrator) publish(event events.Event) {
	if o.bus != nil {
		o.bus.Publish(event)
	}
}

// paramsForTool places the target under the parameter key the tool expects,
// preserving any explicit parameters from the plan.
func paramsForTool(tool, target string, explicit map[string]any) map[string]any {
	params := make(map[string]any, len(explicit)+1)
	for k, v := range explicit {
		params[k] = v
	}
	if target == "" {
		return params
	}

	var key string
	switch tool {
	case "nmap":
		key = "target"
	case "gobuster", "sqlmap", "nikto", "http_probe":
		key = "url"
		if !strings.Contains(target, "://") {
			target = "http://" + target
		}
	case "whois", "dns_lookup", "crtsh", "wayback":
		key = "domain"
	default:
		key = "target"
	}
	if _, present := params[key]; !present {
		params[key] = target
	}
	return params
}
