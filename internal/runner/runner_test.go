package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/uploadkit/internal/model"
)

// requireShell skips tests that drive commands through /bin/sh.
func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-based runner tests need a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

// TestRun verifies that Run returns stdout and runs inside the given directory.
func TestRun(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	out, err := NewRunner().Run(context.Background(), dir, "sh", "-c", "echo hello && pwd")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "hello", lines[0])
	assert.Contains(t, lines[1], dir[strings.LastIndex(dir, "/")+1:])
}

// TestRun_Env verifies that the Runner's extra variables reach the command.
func TestRun_Env(t *testing.T) {
	requireShell(t)
	r := &Runner{Env: []string{"UPLOADKIT_TEST_VALUE=42"}}

	out, err := r.Run(context.Background(), "", "sh", "-c", "echo $UPLOADKIT_TEST_VALUE")
	require.NoError(t, err)
	assert.Equal(t, "42", strings.TrimSpace(out))
}

// TestRun_Failure verifies that a non-zero exit becomes a CLIError with
// ExitCommandFailed carrying stderr.
func TestRun_Failure(t *testing.T) {
	requireShell(t)

	_, err := NewRunner().Run(context.Background(), "", "sh", "-c", "echo broken dependency >&2; exit 3")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitCommandFailed, cliErr.Code)
	assert.Contains(t, cliErr.Message, "broken dependency")

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "the exec error stays reachable")
	assert.Equal(t, 3, exitErr.ExitCode())
}

// TestRun_NotFound verifies the message for a missing program.
func TestRun_NotFound(t *testing.T) {
	_, err := NewRunner().Run(context.Background(), "", "uploadkit-no-such-binary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command not found")
}

// TestStart_StreamsOutput verifies that a background process writes into the
// provided writers and that Wait reports a clean exit.
func TestStart_StreamsOutput(t *testing.T) {
	requireShell(t)
	var stdout, stderr bytes.Buffer

	p, err := NewRunner().Start(context.Background(), "", &stdout, &stderr, "sh", "-c", "echo up; echo oops >&2")
	require.NoError(t, err)

	require.NoError(t, p.Wait())
	assert.Equal(t, "up\n", stdout.String())
	assert.Equal(t, "oops\n", stderr.String())
}

// TestStart_ExitError verifies that Wait surfaces a failing exit.
func TestStart_ExitError(t *testing.T) {
	requireShell(t)

	p, err := NewRunner().Start(context.Background(), "", &bytes.Buffer{}, &bytes.Buffer{}, "sh", "-c", "exit 2")
	require.NoError(t, err)

	err = p.Wait()
	require.Error(t, err)
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitCommandFailed, cliErr.Code)
}

// TestProcess_Stop verifies that Stop ends a long-running process.
func TestProcess_Stop(t *testing.T) {
	requireShell(t)

	p, err := NewRunner().Start(context.Background(), "", &bytes.Buffer{}, &bytes.Buffer{}, "sleep", "30")
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, p.Stop())
	assert.Less(t, time.Since(start), 10*time.Second)

	select {
	case <-p.Done():
	default:
		t.Fatal("process should have exited after Stop")
	}

	// Stopping an exited process is a no-op.
	assert.NoError(t, p.Stop())
}

// lockedBuffer is a bytes.Buffer safe for the exec copy goroutine and the
// test to use at the same time.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// shortGracePeriod lowers stopGracePeriod for the duration of a test.
func shortGracePeriod(t *testing.T) {
	t.Helper()
	old := stopGracePeriod
	stopGracePeriod = 300 * time.Millisecond
	t.Cleanup(func() { stopGracePeriod = old })
}

// startWithChild starts a shell that leaves a background child holding the
// stderr pipe, the way `go run` leaves the compiled server behind.
func startWithChild(t *testing.T, ctx context.Context, script string) (*Process, *lockedBuffer) {
	t.Helper()
	var stderr lockedBuffer
	p, err := NewRunner().Start(ctx, "", &bytes.Buffer{}, NewPrefixWriter(&stderr, "server error: "), "sh", "-c", script)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(stderr.String(), "server error: up")
	}, 5*time.Second, 20*time.Millisecond)
	return p, &stderr
}

// requireReturns fails the test when fn has not returned within d.
func requireReturns(t *testing.T, d time.Duration, fn func() error) {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- fn() }()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(d):
		t.Fatalf("still blocked after %s", d)
	}
}

// TestProcess_Stop_ChildIgnoresInterrupt verifies that a child which
// ignores SIGINT and holds the output pipe is killed with its group.
func TestProcess_Stop_ChildIgnoresInterrupt(t *testing.T) {
	requireShell(t)
	shortGracePeriod(t)

	p, _ := startWithChild(t, context.Background(), `trap "" INT; sleep 300 & echo up >&2; wait`)

	requireReturns(t, 5*time.Second, p.Stop)
	select {
	case <-p.Done():
	default:
		t.Fatal("process should have exited after Stop")
	}
}

// TestProcess_Stop_ChildOutlivesParent verifies Stop returns when the
// started process exits on the interrupt but its child keeps running.
func TestProcess_Stop_ChildOutlivesParent(t *testing.T) {
	requireShell(t)
	shortGracePeriod(t)

	p, _ := startWithChild(t, context.Background(), `sleep 300 & echo up >&2; wait`)

	requireReturns(t, 5*time.Second, p.Stop)
}

// TestStart_CancelStopsGroup verifies that cancelling the context ends the
// whole process group, so Wait returns.
func TestStart_CancelStopsGroup(t *testing.T) {
	requireShell(t)
	shortGracePeriod(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p, _ := startWithChild(t, ctx, `trap "" INT; sleep 300 & echo up >&2; wait`)

	cancel()
	requireReturns(t, 5*time.Second, func() error {
		<-p.Done()
		return nil
	})
}

// TestOpenBrowser verifies browser command handling with stand-in programs.
func TestOpenBrowser(t *testing.T) {
	requireShell(t)
	r := NewRunner()

	assert.NoError(t, r.OpenBrowser(context.Background(), "true", "http://localhost:3000"))

	err := r.OpenBrowser(context.Background(), "false", "http://localhost:3000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "false http://localhost:3000 failed")
}

// TestOpenBrowser_StillRunning verifies that a browser that keeps running
// counts as opened.
func TestOpenBrowser_StillRunning(t *testing.T) {
	requireShell(t)

	start := time.Now()
	err := NewRunner().OpenBrowser(context.Background(), "sleep", "5")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		line     string
		wantName string
		wantArgs []string
		wantErr  bool
	}{
		{"go mod tidy", "go", []string{"mod", "tidy"}, false},
		{"  firefox  ", "firefox", []string{}, false},
		{"go run .", "go", []string{"run", "."}, false},
		{"", "", nil, true},
		{"   ", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			name, args, err := SplitCommand(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestDefaultBrowserCommand(t *testing.T) {
	name, _ := DefaultBrowserCommand()
	assert.NotEmpty(t, name)
}

func TestPrefixWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewPrefixWriter(&buf, "server error: ")

	n, err := w.Write([]byte("first\nsec"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	_, err = w.Write([]byte("ond\nthird\n"))
	require.NoError(t, err)

	assert.Equal(t, "server error: first\nserver error: second\nserver error: third\n", buf.String())
}
