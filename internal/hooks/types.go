package hooks

// Config is the top-level configuration for hooks loaded from .dualai.hooks.yml.
type Config struct {
	Version int         `yaml:"version"`
	Hooks   HooksConfig `yaml:"hooks"`
}

// HooksConfig contains all hook configurations.
type HooksConfig struct {
	// PreSession hooks run before structuring. Output of hooks with
	// pipe_output is handed to the structurer as extra context.
	PreSession []*HookConfig `yaml:"pre_session"`
	// PostSession hooks run after a session produced its artifact.
	PostSession []*HookConfig `yaml:"post_session"`
}

// HookConfig defines a single hook's configuration.
type HookConfig struct {
	Command    string `yaml:"command"`
	Timeout    int    `yaml:"timeout"`     // seconds, default 30
	PipeOutput bool   `yaml:"pipe_output"` // include output in the session context
}

// DefaultTimeout is the default timeout for hook execution in seconds.
const DefaultTimeout = 30
