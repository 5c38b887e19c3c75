package runner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDockerCLI writes a stand-in docker binary that records the container
// ID into any --cidfile it is given, outlives every test timeout on `run`,
// and logs `rm` invocations next to itself.
func fakeDockerCLI(t *testing.T) (cliPath, rmLog string) {
	t.Helper()
	dir := t.TempDir()
	cliPath = filepath.Join(dir, "docker")
	rmLog = filepath.Join(dir, "rm.log")

	script := `#!/bin/sh
cmd="$1"
shift
if [ "$cmd" = "run" ]; then
  while [ $# -gt 0 ]; do
    if [ "$1" = "--cidfile" ]; then
      echo "cafebabe1234deadbeef" > "$2"
    fi
    shift
  done
  # detach from the pipes so killing the script does not wait on us
  sleep 2 > /dev/null 2>&1
fi
if [ "$cmd" = "rm" ]; then
  echo "$@" >> "` + rmLog + `"
fi
`
	require.NoError(t, os.WriteFile(cliPath, []byte(script), 0o755))
	return cliPath, rmLog
}

func cliOnlyRunner(cliPath string) *ContainerRunner {
	return &ContainerRunner{
		cli:     NewProcessRunner(),
		cliPath: cliPath,
		logger:  slog.Default().With("component", "container-runner"),
	}
}

func TestContainerCLITimeoutRemovesContainer(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script stand-in")
	}
	cliPath, rmLog := fakeDockerCLI(t)
	r := cliOnlyRunner(cliPath)

	result, err := r.Run(context.Background(), RunSpec{
		Image:   "sqlmap/sqlmap",
		Args:    []string{"-u", "http://lab.example.com"},
		Timeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, RunStatusTimeout, result.Status)

	data, err := os.ReadFile(rmLog)
	require.NoError(t, err, "timed-out container must be force-removed")
	assert.Contains(t, string(data), "-f cafebabe1234deadbeef")
}

func TestContainerCLISuccessSkipsForcedRemoval(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script stand-in")
	}
	dir := t.TempDir()
	cliPath := filepath.Join(dir, "docker")
	rmLog := filepath.Join(dir, "rm.log")
	script := `#!/bin/sh
if [ "$1" = "rm" ]; then
  echo removed >> "` + rmLog + `"
fi
echo done
`
	require.NoError(t, os.WriteFile(cliPath, []byte(script), 0o755))

	r := cliOnlyRunner(cliPath)
	result, err := r.Run(context.Background(), RunSpec{
		Image:   "busybox",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, RunStatusSuccess, result.Status)
	assert.Equal(t, "done\n", result.Stdout)

	_, statErr := os.Stat(rmLog)
	assert.True(t, os.IsNotExist(statErr), "--rm covers removal on normal exit")
}

func TestContainerCLIBuildsRunArguments(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script stand-in")
	}
	dir := t.TempDir()
	cliPath := filepath.Join(dir, "docker")
	script := `#!/bin/sh
echo "$@"
`
	require.NoError(t, os.WriteFile(cliPath, []byte(script), 0o755))

	r := cliOnlyRunner(cliPath)
	result, err := r.Run(context.Background(), RunSpec{
		Image:   "nikto",
		Args:    []string{"-h", "http://lab.example.com"},
		Network: "none",
		Workdir: "/scan",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, RunStatusSuccess, result.Status)

	for _, fragment := range []string{"run --rm --cidfile", "--network none", "-w /scan", "nikto -h http://lab.example.com"} {
		assert.Contains(t, result.Stdout, fragment)
	}
	assert.True(t, strings.HasSuffix(strings.TrimSpace(result.Stdout), "nikto -h http://lab.example.com"))
}
