package hooks

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/dualai/internal/logger"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the hooks configuration file.
const ConfigFileName = ".dualai.hooks.yml"

// LoadConfig loads the hooks configuration from the working directory.
// Returns nil if the config file doesn't exist (hooks are optional).
// Returns an error only if the file exists but cannot be parsed.
func LoadConfig(workDir string) (*Config, error) {
	configPath := filepath.Join(workDir, ConfigFileName)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("No hooks config found at %s", configPath)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read hooks config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse hooks config: %w", err)
	}

	logger.Debug("Loaded hooks config from %s (version: %d)", configPath, cfg.Version)
	return &cfg, nil
}

// Variables holds template variables that can be expanded in hook commands.
// They are also exported to the hook as DUAL_AI_* environment variables.
type Variables struct {
	Session     string
	Implementer string
	Solution    string // Path of the saved solution file, if any
	Consensus   bool
}

func (v Variables) env() []string {
	return append(os.Environ(),
		"DUAL_AI_SESSION="+v.Session,
		"DUAL_AI_IMPLEMENTER="+v.Implementer,
		"DUAL_AI_SOLUTION="+v.Solution,
		"DUAL_AI_CONSENSUS="+strconv.FormatBool(v.Consensus),
	)
}

// Execute runs a hook command and returns its output.
// Template variables in the command ({{session}}, {{implementer}},
// {{solution}}, {{consensus}}) are expanded before execution.
// On error, returns an error message as output and nil error (graceful degradation).
// Only returns error for context cancellation.
func Execute(ctx context.Context, hook *HookConfig, workDir string, vars Variables) (string, error) {
	if hook == nil || hook.Command == "" {
		return "", nil
	}

	command := expandVariables(hook.Command, vars)
	logger.Debug("Executing hook command: %s", command)

	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = workDir
	cmd.Env = vars.env()
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	// Check for context cancellation (propagate this)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if execCtx.Err() == context.DeadlineExceeded {
		logger.Warn("Hook command timed out after %ds: %s", timeout, command)
		return fmt.Sprintf("[Hook timed out after %ds]\nPartial output:\n%s", timeout, stdout.String()), nil
	}

	// Graceful degradation: include the error in the output
	if err != nil {
		logger.Warn("Hook command failed: %v", err)
		output := stdout.String()
		if stderr.Len() > 0 {
			output += "\n[stderr]\n" + stderr.String()
		}
		return fmt.Sprintf("[Hook command failed: %v]\n%s", err, output), nil
	}

	output := stdout.String()
	if stderr.Len() > 0 {
		logger.Debug("Hook stderr: %s", stderr.String())
		output += "\n[stderr]\n" + stderr.String()
	}

	logger.Debug("Hook executed successfully, output length: %d bytes", len(output))
	return output, nil
}

// ExecuteAll runs hooks in order, discarding their output.
// Only returns error for context cancellation.
func ExecuteAll(ctx context.Context, hooks []*HookConfig, workDir string, vars Variables) error {
	for _, hook := range hooks {
		output, err := Execute(ctx, hook, workDir, vars)
		if err != nil {
			return err
		}
		if output != "" {
			logger.Debug("Hook output (%s): %s", hook.Command, strings.TrimSpace(output))
		}
	}
	return nil
}

// ExecuteAllPiped runs hooks in order and joins, with a newline, the output
// of those marked pipe_output. Hooks without pipe_output still run.
func ExecuteAllPiped(ctx context.Context, hooks []*HookConfig, workDir string, vars Variables) (string, error) {
	var outputs []string
	for _, hook := range hooks {
		output, err := Execute(ctx, hook, workDir, vars)
		if err != nil {
			return "", err
		}
		if hook.PipeOutput && output != "" {
			outputs = append(outputs, output)
		}
	}
	return strings.Join(outputs, "\n"), nil
}

// expandVariables replaces {{variable}} placeholders in the command string.
func expandVariables(command string, vars Variables) string {
	return strings.NewReplacer(
		"{{session}}", vars.Session,
		"{{implementer}}", vars.Implementer,
		"{{solution}}", vars.Solution,
		"{{consensus}}", strconv.FormatBool(vars.Consensus),
	).Replace(command)
}
