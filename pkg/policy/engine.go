package policy

import (
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/models"
)

// Default rule names. Priority descends target > rate > exploit; the order
// decides which violation type is recorded when several checks would deny.
const (
	RuleTargetAuthorization = "target_authorization"
	RuleRateLimit           = "rate_limiting"
	RuleExploitGating       = "exploit_gating"
)

// Engine composes the target validator and rate limiter and adds exploit
// gating and violation accounting. It owns the violation log and the rate
// windows for the run's lifetime.
type Engine struct {
	validator       *TargetValidator
	limiter         *RateLimiter
	allowedExploits map[string]bool
	logger          *slog.Logger

	mu         sync.Mutex
	rules      []models.PolicyRule
	violations []models.PolicyViolation

	nowFunc func() time.Time // test seam
}

// NewEngine builds a policy engine from the authoritative policy config.
func NewEngine(cfg *config.PolicyConfig) (*Engine, error) {
	validator, err := NewTargetValidator(cfg.TargetValidation)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(cfg.AllowedExploits))
	for _, e := range cfg.AllowedExploits {
		allowed[e] = true
	}

	return &Engine{
		validator:       validator,
		limiter:         NewRateLimiter(cfg.RateLimiting),
		allowedExploits: allowed,
		logger:          slog.Default().With("component", "policy-engine"),
		rules:           defaultRules(),
		nowFunc:         time.Now,
	}, nil
}

func defaultRules() []models.PolicyRule {
	return []models.PolicyRule{
		{
			Name:          RuleTargetAuthorization,
			Description:   "Targets must be inside authorized networks or domains",
			Enabled:       true,
			Priority:      100,
			ViolationType: models.ViolationTypeUnauthorizedTarget,
		},
		{
			Name:          RuleRateLimit,
			Description:   "Adapter and global sliding-window limits must admit the request",
			Enabled:       true,
			Priority:      50,
			ViolationType: models.ViolationTypeRateLimitExceeded,
		},
		{
			Name:          RuleExploitGating,
			Description:   "Exploits run only in lab mode or from the allowlist",
			Enabled:       true,
			Priority:      10,
			ViolationType: models.ViolationTypeExploitNotAllowed,
		},
	}
}

// RateLimiter exposes the engine's limiter for recording admitted
// executions and reading current rates.
func (e *Engine) RateLimiter() *RateLimiter {
	return e.limiter
}

// ValidateAsset authorizes the target then checks rate admission for the
// asset's tool, in that order. The first failing check logs a violation and
// denies; the ordering decides which violation type is recorded.
func (e *Engine) ValidateAsset(req models.TargetRequest) bool {
	decision := e.validator.Validate(req.Target)
	if !decision.Allowed {
		vtype := models.ViolationTypeUnauthorizedTarget
		severity := models.ViolationSeverityHigh
		if decision.Invalid {
			vtype = models.ViolationTypeInvalidAsset
			severity = models.ViolationSeverityMedium
		}
		e.LogViolation(models.PolicyViolation{
			RuleName:      RuleTargetAuthorization,
			ViolationType: vtype,
			Target:        req.Target,
			Details:       decision.Reason + " (tool: " + req.ToolName + ")",
			Severity:      severity,
		})
		return false
	}

	if !e.limiter.Check(req.ToolName) {
		e.LogViolation(models.PolicyViolation{
			RuleName:      RuleRateLimit,
			ViolationType: models.ViolationTypeRateLimitExceeded,
			Target:        req.Target,
			Details:       "rate window full for tool " + req.ToolName,
			Severity:      models.ViolationSeverityMedium,
		})
		return false
	}

	return true
}

// EnforceRateLimits checks sliding-window admission for one tool, logging a
// violation on deny. It does not record; recording happens only after a
// successful execution.
func (e *Engine) EnforceRateLimits(toolName string) bool {
	if e.limiter.Check(toolName) {
		return true
	}
	e.LogViolation(models.PolicyViolation{
		RuleName:      RuleRateLimit,
		ViolationType: models.ViolationTypeRateLimitExceeded,
		Target:        toolName,
		Details:       "rate window full for tool " + toolName,
		Severity:      models.ViolationSeverityMedium,
	})
	return false
}

// CheckExploitPermissions gates exploit execution. Lab mode admits
// everything; otherwise only allowlisted exploits run.
func (e *Engine) CheckExploitPermissions(exploit string, labMode bool) bool {
	if labMode {
		return true
	}
	if e.allowedExploits[exploit] {
		return true
	}
	e.LogViolation(models.PolicyViolation{
		RuleName:      RuleExploitGating,
		ViolationType: models.ViolationTypeExploitNotAllowed,
		Target:        exploit,
		Details:       "exploit is not in the allowlist and lab mode is off",
		Severity:      models.ViolationSeverityHigh,
	})
	return false
}

// LogViolation appends to the in-memory violation log at a
// severity-appropriate log level. Timestamp is filled if the caller left
// it zero.
func (e *Engine) LogViolation(v models.PolicyViolation) {
	if v.Timestamp.IsZero() {
		v.Timestamp = e.nowFunc().UTC()
	}

	e.mu.Lock()
	e.violations = append(e.violations, v)
	e.mu.Unlock()

	attrs := []any{
		"rule", v.RuleName,
		"violation_type", v.ViolationType,
		"target", v.Target,
		"details", v.Details,
	}
	switch v.Severity {
	case models.ViolationSeverityHigh:
		e.logger.Error("Policy violation", attrs...)
	case models.ViolationSeverityMedium:
		e.logger.Warn("Policy violation", attrs...)
	default:
		e.logger.Info("Policy violation", attrs...)
	}
}

// ViolationReport snapshots the violation log for reporting.
func (e *Engine) ViolationReport() models.ViolationReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := models.ViolationReport{
		TotalViolations: len(e.violations),
		ByType:          make(map[string]int),
		Violations:      slices.Clone(e.violations),
	}
	for _, v := range e.violations {
		report.ByType[string(v.ViolationType)]++
	}
	return report
}

// Rules returns the current rule set in priority-descending order.
func (e *Engine) Rules() []models.PolicyRule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.rules)
}

// AddRule inserts or replaces a rule, keeping priority-descending order.
func (e *Engine) AddRule(rule models.PolicyRule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = slices.DeleteFunc(e.rules, func(r models.PolicyRule) bool {
		return r.Name == rule.Name
	})
	e.rules = append(e.rules, rule)
	sort.SliceStable(e.rules, func(i, j int) bool {
		return e.rules[i].Priority > e.rules[j].Priority
	})
}

// RemoveRule deletes a rule by name. Removing an unknown rule is a no-op.
func (e *Engine) RemoveRule(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = slices.DeleteFunc(e.rules, func(r models.PolicyRule) bool {
		return r.Name == name
	})
}
