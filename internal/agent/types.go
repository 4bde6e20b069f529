package agent

import (
	"context"
	"time"
)

// Agent is the capability the negotiation loop needs from an external AI tool.
// Claude and Gemini are two configured instances of the same implementation.
type Agent interface {
	// Name returns the tool identifier, e.g. "claude".
	Name() string
	// Available reports whether the tool is enabled and its command can be found.
	// It never blocks on the tool itself.
	Available() bool
	// Execute feeds prompt on stdin and returns the cleaned stdout.
	// A zero timeout means the tool's configured default.
	Execute(ctx context.Context, prompt string, timeout time.Duration) (string, error)
}

// ToolConfig holds configuration for creating a Tool.
type ToolConfig struct {
	Name        string        // Tool identifier ("claude", "gemini")
	Command     string        // Executable name or path (default: Name)
	Args        []string      // Extra arguments passed before stdin is fed
	Timeout     time.Duration // Per-attempt timeout (default: DefaultTimeout)
	Enabled     bool          // Disabled tools are never available
	Debug       bool          // Adds DEBUG=1 to the child environment
	MaxAttempts int           // Attempts per Execute (default: DefaultMaxAttempts)
	RetryDelay  time.Duration // Fixed pause between attempts (default: DefaultRetryDelay, negative: none)
	WorkDir     string        // Working directory for the child (default: current)
}

// Status summarizes a tool for the doctor command.
type Status struct {
	Name      string
	Command   string
	Enabled   bool
	Available bool
	Path      string // Resolved executable path, empty when not found
	Version   string
}
