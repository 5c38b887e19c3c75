package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// pollInterval is the cadence for container state polling in the native
// client path.
const pollInterval = 200 * time.Millisecond

// ContainerRunner runs one-shot containers with mounted evidence volumes.
// Construction probes for a reachable Docker daemon via the native client;
// when the probe fails it falls back to driving the docker CLI through the
// process runner. Call sites never see the difference.
type ContainerRunner struct {
	docker  *client.Client
	cli     *ProcessRunner
	cliPath string
	logger  *slog.Logger
}

// NewContainerRunner probes the native client first and keeps the CLI
// fallback ready either way.
func NewContainerRunner(ctx context.Context) *ContainerRunner {
	r := &ContainerRunner{
		cli:     NewProcessRunner(),
		cliPath: "docker",
		logger:  slog.Default().With("component", "container-runner"),
	}

	docker, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err == nil {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if _, pingErr := docker.Ping(probeCtx); pingErr == nil {
			r.docker = docker
			r.logger.Info("Container runner using native client")
			return r
		}
		_ = docker.Close()
	}

	r.logger.Warn("Docker daemon not reachable via native client, using CLI fallback", "error", err)
	return r
}

// Run executes the spec's image. The container is removed on every exit
// path, timeout included.
func (r *ContainerRunner) Run(ctx context.Context, spec RunSpec) (*RunResult, error) {
	if spec.Image == "" {
		return nil, errors.New("container run spec has no image")
	}
	if err := SanitizeArgs(spec.Args); err != nil {
		return nil, err
	}

	if r.docker != nil {
		return r.runNative(ctx, spec)
	}
	return r.runCLI(ctx, spec)
}

func (r *ContainerRunner) runNative(ctx context.Context, spec RunSpec) (*RunResult, error) {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	var env []string
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}

	binds, err := buildBinds(spec.Volumes)
	if err != nil {
		return nil, err
	}

	hostConfig := &container.HostConfig{Binds: binds}
	if spec.Network != "" {
		hostConfig.NetworkMode = container.NetworkMode(spec.Network)
	}

	created, err := r.docker.ContainerCreate(ctx, &container.Config{
		Image:      spec.Image,
		Cmd:        spec.Args,
		Env:        env,
		WorkingDir: spec.Workdir,
	}, hostConfig, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create container for %s: %w", spec.Image, err)
	}
	id := created.ID

	// Removal must survive caller cancellation, hence Background.
	defer func() {
		removeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if rmErr := r.docker.ContainerRemove(removeCtx, id, container.RemoveOptions{Force: true}); rmErr != nil {
			r.logger.Warn("Failed to remove container", "container_id", id[:12], "error", rmErr)
		}
	}()

	start := time.Now()
	if err := r.docker.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container %s: %w", id[:12], err)
	}

	deadline := start.Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.stopContainer(id)
			return &RunResult{Status: RunStatusTimeout, Duration: time.Since(start)}, nil

		case <-ticker.C:
			inspect, inspectErr := r.docker.ContainerInspect(ctx, id)
			if inspectErr != nil {
				return nil, fmt.Errorf("failed to inspect container %s: %w", id[:12], inspectErr)
			}
			if !inspect.State.Running {
				stdout, stderr := r.collectLogs(ctx, id)
				result := &RunResult{
					ExitCode: intPtr(inspect.State.ExitCode),
					Stdout:   stdout,
					Stderr:   stderr,
					Duration: time.Since(start),
				}
				if inspect.State.ExitCode == 0 {
					result.Status = RunStatusSuccess
				} else {
					result.Status = RunStatusError
				}
				return result, nil
			}
			if time.Now().After(deadline) {
				r.logger.Warn("Container timed out",
					"image", spec.Image,
					"container_id", id[:12],
					"timeout", timeout)
				r.stopContainer(id)
				stdout, stderr := r.collectLogs(ctx, id)
				return &RunResult{
					Status:   RunStatusTimeout,
					Stdout:   stdout,
					Stderr:   stderr,
					Duration: time.Since(start),
				}, nil
			}
		}
	}
}

// stopContainer is the best-effort kill on the timeout/cancel paths.
func (r *ContainerRunner) stopContainer(id string) {
	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	stopTimeout := 5
	if err := r.docker.ContainerStop(stopCtx, id, container.StopOptions{Timeout: &stopTimeout}); err != nil {
		r.logger.Warn("Failed to stop container", "container_id", id[:12], "error", err)
	}
}

func (r *ContainerRunner) collectLogs(ctx context.Context, id string) (string, string) {
	logsCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	reader, err := r.docker.ContainerLogs(logsCtx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		r.logger.Warn("Failed to read container logs", "container_id", id[:12], "error", err)
		return "", ""
	}
	defer func() { _ = reader.Close() }()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, reader); err != nil {
		r.logger.Warn("Failed to demultiplex container logs", "container_id", id[:12], "error", err)
	}
	return stdout.String(), stderr.String()
}

// runCLI drives `docker run --rm` through the process runner. --rm handles
// removal on normal exit. On timeout the process runner only kills the
// docker client, which leaves the container scanning; the recorded
// container ID lets us force-remove it before returning.
func (r *ContainerRunner) runCLI(ctx context.Context, spec RunSpec) (*RunResult, error) {
	cidDir, err := os.MkdirTemp("", "talon-cid-")
	if err != nil {
		return nil, fmt.Errorf("failed to create cidfile dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(cidDir) }()
	cidFile := filepath.Join(cidDir, "cid")

	args := []string{"run", "--rm", "--cidfile", cidFile}

	for k, v := range spec.Env {
		args = append(args, "-e", k+"="+v)
	}
	binds, err := buildBinds(spec.Volumes)
	if err != nil {
		return nil, err
	}
	for _, bind := range binds {
		args = append(args, "-v", bind)
	}
	if spec.Network != "" {
		args = append(args, "--network", spec.Network)
	}
	if spec.Workdir != "" {
		args = append(args, "-w", spec.Workdir)
	}
	args = append(args, spec.Image)
	args = append(args, spec.Args...)

	result, err := r.cli.Run(ctx, RunSpec{
		Command: r.cliPath,
		Args:    args,
		Timeout: spec.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if result.Status == RunStatusTimeout {
		r.forceRemoveCLI(cidFile)
	}
	return result, nil
}

// forceRemoveCLI kills and removes the container whose ID the timed-out
// run wrote to the cidfile. Best effort; the daemon may already have
// reaped it.
func (r *ContainerRunner) forceRemoveCLI(cidFile string) {
	data, err := os.ReadFile(cidFile)
	id := strings.TrimSpace(string(data))
	if err != nil || id == "" {
		r.logger.Warn("Timed-out container left no ID to remove", "cidfile", cidFile, "error", err)
		return
	}

	rmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, rmErr := r.cli.Run(rmCtx, RunSpec{
		Command: r.cliPath,
		Args:    []string{"rm", "-f", id},
		Timeout: 30 * time.Second,
	}); rmErr != nil {
		r.logger.Warn("Failed to remove timed-out container", "container_id", shortID(id), "error", rmErr)
		return
	}
	r.logger.Warn("Removed timed-out container", "container_id", shortID(id))
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func buildBinds(volumes []VolumeMount) ([]string, error) {
	binds := make([]string, 0, len(volumes))
	for _, v := range volumes {
		host, err := normalizeHostPath(v.HostPath)
		if err != nil {
			return nil, err
		}
		bind := host + ":" + v.ContainerPath
		if v.ReadOnly {
			bind += ":ro"
		}
		binds = append(binds, bind)
	}
	return binds, nil
}
