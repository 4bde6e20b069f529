package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	ierr "github.com/mark3labs/dualai/internal/errors"
	"github.com/mark3labs/dualai/internal/logger"
)

const (
	// DefaultTimeout is the per-attempt timeout when none is configured.
	DefaultTimeout = 120 * time.Second
	// DefaultMaxAttempts is the fixed number of attempts per Execute.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the fixed pause between attempts.
	DefaultRetryDelay = 2 * time.Second

	versionTimeout = 10 * time.Second
	// waitDelay bounds how long Wait blocks on pipes held open by grandchildren
	// after the tool itself was killed.
	waitDelay = 2 * time.Second
)

// Tool runs an external AI CLI as a one-shot subprocess: prompt on stdin,
// answer on stdout.
type Tool struct {
	name        string
	command     string
	args        []string
	timeout     time.Duration
	enabled     bool
	debug       bool
	maxAttempts int
	retryDelay  time.Duration
	workDir     string
}

var _ Agent = (*Tool)(nil)

// NewTool creates a Tool, filling defaults for unset fields.
func NewTool(cfg ToolConfig) *Tool {
	t := &Tool{
		name:        cfg.Name,
		command:     cfg.Command,
		args:        append([]string(nil), cfg.Args...),
		timeout:     cfg.Timeout,
		enabled:     cfg.Enabled,
		debug:       cfg.Debug,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		workDir:     cfg.WorkDir,
	}
	if t.command == "" {
		t.command = t.name
	}
	if t.timeout <= 0 {
		t.timeout = DefaultTimeout
	}
	if t.maxAttempts <= 0 {
		t.maxAttempts = DefaultMaxAttempts
	}
	if t.retryDelay < 0 {
		t.retryDelay = 0
	} else if t.retryDelay == 0 {
		t.retryDelay = DefaultRetryDelay
	}
	return t
}

// Name returns the tool identifier.
func (t *Tool) Name() string {
	return t.name
}

// Command returns the configured executable.
func (t *Tool) Command() string {
	return t.command
}

// Available reports whether the tool is enabled and its command resolves.
func (t *Tool) Available() bool {
	if !t.enabled {
		return false
	}
	_, err := exec.LookPath(t.command)
	return err == nil
}

// Execute runs the tool with retries. Every failure kind is retried up to the
// attempt bound with a fixed delay; the last failure is returned as a
// *errors.ToolError. Cancellation of ctx stops immediately with ctx.Err().
func (t *Tool) Execute(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	if !t.Available() {
		reason := fmt.Sprintf("command %q not found in PATH", t.command)
		if !t.enabled {
			reason = "disabled in configuration"
		}
		logger.Error("%s is not available: %s", t.name, reason)
		return "", ierr.NewToolError(ierr.KindUnavailable, t.name, reason, nil)
	}

	if timeout <= 0 {
		timeout = t.timeout
	}

	var lastErr error
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		logger.Info("Executing %s (attempt %d/%d)", t.name, attempt, t.maxAttempts)
		output, err := t.runOnce(ctx, prompt, timeout)
		if err == nil {
			logger.Debug("%s returned %d characters", t.name, len(output))
			return output, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		lastErr = err
		logger.Warn("%s attempt %d failed: %v", t.name, attempt, err)
		if attempt < t.maxAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(t.retryDelay):
			}
		}
	}

	logger.Error("%s failed after %d attempts: %v", t.name, t.maxAttempts, lastErr)
	return "", lastErr
}

// runOnce executes a single attempt.
func (t *Tool) runOnce(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, t.command, t.args...)
	cmd.Dir = t.workDir
	cmd.Env = t.env()
	cmd.Stdin = strings.NewReader(prompt)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Sending prompt to %s (length: %d)", t.name, len(prompt))
	err := cmd.Run()

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return "", ierr.NewToolError(ierr.KindTimeout, t.name,
			fmt.Sprintf("no response within %s", timeout), runCtx.Err())
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "unknown error"
		}
		return "", ierr.NewToolError(ierr.KindExecution, t.name, msg, err)
	}

	output := CleanOutput(stdout.String())
	if output == "" {
		return "", ierr.NewToolError(ierr.KindEmptyOutput, t.name, "", nil)
	}
	return output, nil
}

func (t *Tool) env() []string {
	env := os.Environ()
	if t.debug {
		env = append(env, "DEBUG=1")
	}
	return env
}

// Version runs "<command> --version" and returns its trimmed output.
func (t *Tool) Version(ctx context.Context) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, t.command, "--version")
	cmd.WaitDelay = waitDelay
	out, err := cmd.Output()
	if err != nil {
		logger.Warn("Failed to get %s version: %v", t.name, err)
		return "", fmt.Errorf("%s --version: %w", t.command, err)
	}
	version := strings.TrimSpace(string(out))
	if version == "" {
		return "unknown version", nil
	}
	return version, nil
}

// Status reports availability and version for display.
func (t *Tool) Status(ctx context.Context) Status {
	s := Status{
		Name:    t.name,
		Command: t.command,
		Enabled: t.enabled,
	}
	if path, err := exec.LookPath(t.command); err == nil {
		s.Path = path
	}
	s.Available = t.enabled && s.Path != ""
	if s.Available {
		if v, err := t.Version(ctx); err == nil {
			s.Version = v
		}
	}
	return s
}

// CleanOutput strips ANSI escape sequences, collapses runs of blank lines to
// a single blank line, and trims surrounding whitespace.
func CleanOutput(output string) string {
	output = ansi.Strip(output)

	lines := strings.Split(output, "\n")
	cleaned := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			cleaned = append(cleaned, line)
			blank = false
			continue
		}
		if !blank {
			cleaned = append(cleaned, line)
			blank = true
		}
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
