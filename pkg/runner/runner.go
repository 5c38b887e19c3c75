// Package runner executes external tools for adapters: local processes and
// containers, both non-shell, argument-sanitized, and bounded by a hard
// wall-clock timeout.
package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// RunStatus classifies a runner execution outcome.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusTimeout RunStatus = "timeout"
	RunStatusError   RunStatus = "error"
)

// RunSpec describes one execution. Command is used by the process runner,
// Image / Volumes / Network by the container runner; the rest is shared.
type RunSpec struct {
	Command string
	Image   string
	Args    []string
	Env     map[string]string

	// Volumes are host:container mount pairs (container runner only)
	Volumes []VolumeMount
	// Network is the container network mode (container runner only)
	Network string

	// Workdir is the working directory inside the container
	Workdir string
	// Cwd is the working directory for process execution
	Cwd string

	Timeout time.Duration
}

// VolumeMount is one host path mounted into a container.
type VolumeMount struct {
	HostPath      string
	ContainerPath string
	ReadOnly      bool
}

// RunResult is the verbatim outcome of one execution. The runner never
// interprets stdout/stderr. ExitCode is nil on timeout and on failures that
// happen before the tool starts.
type RunResult struct {
	Status   RunStatus
	ExitCode *int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes a RunSpec. Execution errors that are the TOOL's fault
// travel inside RunResult; the error return is reserved for spec-level
// faults (bad arguments, missing binary/daemon).
type Runner interface {
	Run(ctx context.Context, spec RunSpec) (*RunResult, error)
}

// shellMetaChars are rejected in every argument regardless of runner;
// neither runner uses a shell but defense stacks.
const shellMetaChars = ";&|`$()><\n\r"

// SanitizeArgs rejects any argument containing shell metacharacters.
// Arguments are never escaped or rewritten, only refused.
func SanitizeArgs(args []string) error {
	for _, arg := range args {
		if strings.ContainsAny(arg, shellMetaChars) {
			return fmt.Errorf("argument contains shell metacharacters: %q", arg)
		}
	}
	return nil
}

// normalizeHostPath resolves a volume host path to absolute form with
// forward slashes, so mounts behave identically across platforms.
func normalizeHostPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve host path %q: %w", path, err)
	}
	return filepath.ToSlash(abs), nil
}

func intPtr(v int) *int {
	return &v
}
