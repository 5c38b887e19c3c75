package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// ProcessRunner spawns local binaries exec-style: no shell, arguments as a
// list, environment explicit.
type ProcessRunner struct {
	logger *slog.Logger
}

// NewProcessRunner creates a process runner.
func NewProcessRunner() *ProcessRunner {
	return &ProcessRunner{
		logger: slog.Default().With("component", "process-runner"),
	}
}

// Run executes the spec's command and waits for exit or timeout. On timeout
// the process is killed and the result carries status timeout with no exit
// code.
func (r *ProcessRunner) Run(ctx context.Context, spec RunSpec) (*RunResult, error) {
	if spec.Command == "" {
		return nil, errors.New("process run spec has no command")
	}
	if err := SanitizeArgs(append([]string{spec.Command}, spec.Args...)); err != nil {
		return nil, err
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, spec.Command, spec.Args...)
	cmd.Dir = spec.Cwd
	if len(spec.Env) > 0 {
		// Extra variables layer on top of the inherited environment so
		// tools keep PATH and friends.
		cmd.Env = os.Environ()
		for k, v := range spec.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		r.logger.Warn("Process timed out",
			"command", spec.Command,
			"timeout", timeout)
		result.Status = RunStatusTimeout
		return result, nil

	case err == nil:
		result.Status = RunStatusSuccess
		result.ExitCode = intPtr(0)
		return result, nil

	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The tool ran and exited non-zero; callers decide what
			// that means for their adapter.
			result.Status = RunStatusError
			result.ExitCode = intPtr(exitErr.ExitCode())
			return result, nil
		}
		// Spec-level fault: binary missing, permission denied, ...
		return nil, fmt.Errorf("failed to start %s: %w", spec.Command, err)
	}
}
