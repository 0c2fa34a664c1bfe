// Package powershell runs PowerShell scripts as child processes and owns the
// quoting rules for values embedded into those scripts.
package powershell

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrToolInvocationFailed indicates the process could not be started or its
// output streams could not be read.
var ErrToolInvocationFailed = errors.New("powershell: tool invocation failed")

// DefaultArgs precede the script on the command line.
var DefaultArgs = []string{"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-Command"}

// DefaultPath returns the PowerShell executable for the current platform.
func DefaultPath() string {
	if runtime.GOOS == "windows" {
		return "powershell.exe"
	}
	return "pwsh"
}

// Outcome is the captured result of one invocation. A non-zero ExitCode is
// not an error at this level; callers decide what it means.
type Outcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Succeeded reports whether the process exited with status 0.
func (o Outcome) Succeeded() bool { return o.ExitCode == 0 }

// Runner starts one process per Invoke call. It keeps no state between calls.
type Runner struct {
	Path   string
	Args   []string
	logger *slog.Logger
}

// New returns a Runner. Empty path and nil args select the platform defaults.
func New(path string, args []string, logger *slog.Logger) *Runner {
	if path == "" {
		path = DefaultPath()
	}
	if args == nil {
		args = DefaultArgs
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		Path:   path,
		Args:   slices.Clone(args),
		logger: logger.With("component", "powershell"),
	}
}

// Invoke runs script to completion. Both output streams are drained
// concurrently before the process is awaited, so neither pipe can fill up and
// stall the child. There is no timeout: the call returns when the process exits.
func (r *Runner) Invoke(script string) (Outcome, error) {
	cmd := r.command(script)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: stdout pipe: %w", ErrToolInvocationFailed, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: stderr pipe: %w", ErrToolInvocationFailed, err)
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return Outcome{}, fmt.Errorf("%w: start %s: %w", ErrToolInvocationFailed, r.Path, err)
	}
	r.logger.Debug("process started", "path", r.Path, "pid", cmd.Process.Pid, "script_bytes", len(script))

	var outBuf, errBuf strings.Builder
	var g errgroup.Group
	g.Go(func() error { return drain(&outBuf, stdout) })
	g.Go(func() error { return drain(&errBuf, stderr) })
	readErr := g.Wait()

	// Wait closes the pipes, so it must only run once both readers are done.
	waitErr := cmd.Wait()

	if readErr != nil {
		return Outcome{}, fmt.Errorf("%w: read output: %w", ErrToolInvocationFailed, readErr)
	}

	outcome := Outcome{
		Stdout: outBuf.String(),
		Stderr: errBuf.String(),
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return Outcome{}, fmt.Errorf("%w: wait: %w", ErrToolInvocationFailed, waitErr)
		}
		outcome.ExitCode = exitErr.ExitCode()
	}

	r.logger.Debug("process exited",
		"exit_code", outcome.ExitCode,
		"stdout_bytes", len(outcome.Stdout),
		"stderr_bytes", len(outcome.Stderr),
		"elapsed", time.Since(started))
	return outcome, nil
}

// drain copies a stream as UTF-8, dropping a leading byte order mark if
// PowerShell writes one.
func drain(dst io.Writer, src io.Reader) error {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	_, err := io.Copy(dst, transform.NewReader(src, dec))
	return err
}
