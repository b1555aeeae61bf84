package docker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/uploadkit/internal/model"
)

// TestBuildLabels verifies the label set applied to generated services.
func TestBuildLabels(t *testing.T) {
	created := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	p := &model.Project{Name: "photoApi", Port: 3002, CreatedAt: created}

	labels := BuildLabels(p)

	assert.Equal(t, ManagedByValue, labels[LabelManagedBy])
	assert.Equal(t, "photoApi", labels[LabelProject])
	assert.Equal(t, "3002", labels[LabelAppPort])
	assert.Equal(t, "2026-10-19T09:30:00Z", labels[LabelCreatedAt])
}

// TestBuildLabels_NoTimestamp verifies that a zero CreatedAt is omitted
// rather than written as year 1.
func TestBuildLabels_NoTimestamp(t *testing.T) {
	labels := BuildLabels(&model.Project{Name: "demo", Port: 3000})
	_, ok := labels[LabelCreatedAt]
	assert.False(t, ok)
	assert.Len(t, labels, 3)
}

// TestBuildComposeArgs verifies that each compose file gets its own -f flag.
func TestBuildComposeArgs(t *testing.T) {
	assert.Equal(t, []string{"compose"}, buildComposeArgs(nil))
	assert.Equal(t,
		[]string{"compose", "-f", "docker-compose.yml", "-f", "override.yml"},
		buildComposeArgs([]string{"docker-compose.yml", "override.yml"}))
}

func TestComposeEnv(t *testing.T) {
	env := composeEnv(map[string]string{"UPLOADKIT_DB_PORT": "5433", "APP_PORT": "3001"})
	assert.Equal(t, []string{"APP_PORT=3001", "UPLOADKIT_DB_PORT=5433"}, env)
	assert.Empty(t, composeEnv(nil))
}

// fakeDocker puts a docker script on PATH that records its arguments and
// the database port variable, then exits with code.
func fakeDocker(t *testing.T, code int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake docker is a shell script")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	bin := t.TempDir()
	record := filepath.Join(t.TempDir(), "record")
	script := fmt.Sprintf("#!/bin/sh\necho \"$* port=$UPLOADKIT_DB_PORT\" > %q\necho 'daemon gone' >&2\nexit %d\n", record, code)
	require.NoError(t, os.WriteFile(filepath.Join(bin, "docker"), []byte(script), 0o755))
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	return record
}

// TestComposeUp verifies the compose invocation and that the allocated
// port reaches compose through the environment.
func TestComposeUp(t *testing.T) {
	record := fakeDocker(t, 0)

	err := ComposeUp(context.Background(), t.TempDir(), []string{"docker-compose.yml"},
		map[string]string{"UPLOADKIT_DB_PORT": "5433"})
	require.NoError(t, err)

	got, err := os.ReadFile(record)
	require.NoError(t, err)
	assert.Equal(t, "compose -f docker-compose.yml up -d port=5433\n", string(got))
}

func TestComposeUp_Failure(t *testing.T) {
	fakeDocker(t, 1)

	err := ComposeUp(context.Background(), t.TempDir(), []string{"docker-compose.yml"}, nil)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitDockerNotRunning, cliErr.Code)
	assert.Contains(t, cliErr.Message, "daemon gone")
}

// TestDetectUnixSocket verifies socket discovery order with real files.
func TestDetectUnixSocket(t *testing.T) {
	dir := t.TempDir()
	second := filepath.Join(dir, "docker.sock")
	require.NoError(t, os.WriteFile(second, nil, 0o600))

	host, err := detectUnixSocket([]string{filepath.Join(dir, "missing.sock"), second})
	require.NoError(t, err)
	assert.Equal(t, "unix://"+second, host)

	_, err = detectUnixSocket([]string{filepath.Join(dir, "missing.sock")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is Docker running?")
}

// TestEnsureDaemon_Unreachable points DOCKER_HOST at a port nothing listens
// on and expects the CLIError for a missing daemon.
func TestEnsureDaemon_Unreachable(t *testing.T) {
	t.Setenv("DOCKER_HOST", "tcp://127.0.0.1:1")

	_, err := EnsureDaemon(context.Background())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitDockerNotRunning, cliErr.Code)
	assert.True(t, strings.Contains(cliErr.Message, "Docker"))
}
