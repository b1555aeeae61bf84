// Package runner executes the external commands the project generator
// depends on: the dependency install, the generated server process and
// the browser.
//
// Design decisions:
//   - Every command is an explicit step with its own error. A non-zero exit
//     becomes a model.CLIError with ExitCommandFailed carrying the trimmed
//     stderr, so the CLI can report which step failed and why.
//   - Commands are taken as a name plus argument list and never go through
//     a shell; user-provided command lines are split by SplitCommand.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/shinji-kodama/uploadkit/internal/model"
)

// stopGracePeriod is how long Stop waits after an interrupt before it
// kills the process group. It also bounds how long Wait keeps reading
// output pipes held open by children of an exited process.
var stopGracePeriod = 5 * time.Second

// browserSettleTime is how long OpenBrowser watches the browser command
// for an immediate failure.
const browserSettleTime = 3 * time.Second

// Runner runs external commands.
//
// Env holds extra KEY=VALUE pairs appended to the inherited environment of
// every command the Runner starts.
type Runner struct {
	Env []string
}

// NewRunner creates a Runner that passes the current environment through
// unchanged.
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes a command to completion in dir and returns its stdout.
//
// On failure it returns a model.CLIError with ExitCommandFailed. The message
// names the command and includes stderr for diagnostics.
func (r *Runner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	// #nosec G204 - the command line comes from the CLI user on purpose
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = r.environ()

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), commandError(name, args, stderr.String(), err)
	}
	return stdout.String(), nil
}

// Process is a handle to a command started in the background.
type Process struct {
	cmd   *exec.Cmd
	done  chan struct{}
	grace time.Duration

	mu  sync.Mutex
	err error
}

// Start launches a command in dir without waiting for it. Its stdout and
// stderr are copied to the given writers as the process produces output.
//
// The command runs in its own process group, so the programs it spawns
// (the server started by `go run`, for example) are stopped with it.
// Cancelling ctx has the same effect as Stop.
func (r *Runner) Start(ctx context.Context, dir string, stdout, stderr io.Writer, name string, args ...string) (*Process, error) {
	// #nosec G204 - the command line comes from the CLI user on purpose
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = r.environ()
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	setProcessGroup(cmd)

	grace := stopGracePeriod
	cmd.Cancel = func() error {
		time.AfterFunc(grace, func() { _ = killGroup(cmd.Process) })
		return interruptGroup(cmd.Process)
	}
	cmd.WaitDelay = grace

	if err := cmd.Start(); err != nil {
		return nil, commandError(name, args, "", err)
	}

	p := &Process{cmd: cmd, done: make(chan struct{}), grace: grace}
	go func() {
		err := cmd.Wait()
		if err != nil {
			err = commandError(name, args, "", err)
		}
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.done)
	}()
	return p, nil
}

// Done is closed when the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the process exits and returns its exit error, if any.
func (p *Process) Wait() error {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stop interrupts the process group and kills it if the process is still
// running after the grace period. Members of the group that outlive the
// process are killed as well, since they would keep its output pipes open.
// On Windows the process is killed right away.
//
// The error of the exited process is not returned: a process that was
// stopped on request is expected to exit non-zero.
func (p *Process) Stop() error {
	select {
	case <-p.done:
		return nil
	default:
	}

	if err := interruptGroup(p.cmd.Process); err == nil {
		select {
		case <-p.done:
		case <-time.After(p.grace):
		}
	}

	if err := killGroup(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-p.done
	return nil
}

// OpenBrowser opens url with the given browser command line (for example
// "firefox"). An empty browser selects the platform's default opener.
//
// Browsers often keep running for as long as the window is open, so
// OpenBrowser only waits browserSettleTime for an early failure. A browser
// still running after that is left alone and counts as success.
func (r *Runner) OpenBrowser(ctx context.Context, browser, url string) error {
	name, args := DefaultBrowserCommand()
	if strings.TrimSpace(browser) != "" {
		var err error
		name, args, err = SplitCommand(browser)
		if err != nil {
			return err
		}
	}
	args = append(args, url)

	// Not CommandContext: the browser must outlive this command.
	// #nosec G204 - the browser command comes from the CLI user on purpose
	cmd := exec.Command(name, args...)
	cmd.Env = r.environ()
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return commandError(name, args, "", err)
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	select {
	case err := <-exited:
		if err != nil {
			return commandError(name, args, stderr.String(), err)
		}
		return nil
	case <-time.After(browserSettleTime):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DefaultBrowserCommand returns the command that opens a URL in the user's
// default browser on the current platform.
func DefaultBrowserCommand() (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		return "open", nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}
	default:
		return "xdg-open", nil
	}
}

// SplitCommand splits a command line such as "go mod tidy" into the
// program name and its arguments. Arguments are separated by whitespace;
// quoting is not interpreted.
func SplitCommand(line string) (string, []string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}
	return fields[0], fields[1:], nil
}

// environ returns the inherited environment plus the Runner's extras.
func (r *Runner) environ() []string {
	env := os.Environ()
	return append(env, r.Env...)
}

// commandError converts an exec failure into a CLIError with
// ExitCommandFailed, keeping the original error for errors.Is/As.
func commandError(name string, args []string, stderr string, err error) error {
	message := fmt.Sprintf("%s failed", strings.TrimSpace(name+" "+strings.Join(args, " ")))
	if errors.Is(err, exec.ErrNotFound) {
		message = fmt.Sprintf("%s: command not found", name)
	}
	if s := strings.TrimSpace(stderr); s != "" {
		message = fmt.Sprintf("%s: %s", message, s)
	}
	return model.WrapCLIError(model.ExitCommandFailed, message, err)
}
