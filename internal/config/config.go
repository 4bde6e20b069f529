// Package config provides centralized configuration management using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/dualai/internal/logger"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ToolConfig configures one external AI tool.
type ToolConfig struct {
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args,omitempty"`
	Timeout int      `mapstructure:"timeout" yaml:"timeout"` // seconds per attempt
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
}

// TimeoutDuration returns Timeout as a duration.
func (t ToolConfig) TimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// Tools holds the per-tool settings.
type Tools struct {
	Claude ToolConfig `mapstructure:"claude" yaml:"claude"`
	Gemini ToolConfig `mapstructure:"gemini" yaml:"gemini"`
}

// Config holds all configuration values for dualai.
type Config struct {
	Debug            bool   `mapstructure:"debug" yaml:"debug"`
	LogLevel         string `mapstructure:"log_level" yaml:"log_level"`
	LogFile          string `mapstructure:"log_file" yaml:"log_file"`
	DataDir          string `mapstructure:"data_dir" yaml:"data_dir"`
	SolutionsDir     string `mapstructure:"solutions_dir" yaml:"solutions_dir"`
	AutoSave         bool   `mapstructure:"auto_save" yaml:"auto_save"`
	Persist          bool   `mapstructure:"persist" yaml:"persist"`
	Rounds           int    `mapstructure:"rounds" yaml:"rounds"`
	Implementer      string `mapstructure:"implementer" yaml:"implementer"`
	ImplementTimeout int    `mapstructure:"implement_timeout" yaml:"implement_timeout"` // seconds
	TemplatesDir     string `mapstructure:"templates_dir" yaml:"templates_dir"`
	TrackChanges     bool   `mapstructure:"track_changes" yaml:"track_changes"`
	Tools            Tools  `mapstructure:"tools" yaml:"tools"`
}

// ImplementTimeoutDuration returns ImplementTimeout as a duration.
func (c *Config) ImplementTimeoutDuration() time.Duration {
	return time.Duration(c.ImplementTimeout) * time.Second
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:         "info",
		DataDir:          ".dualai",
		SolutionsDir:     "~/.dual-ai/solutions",
		AutoSave:         true,
		Persist:          true,
		Rounds:           3,
		ImplementTimeout: 180,
		TrackChanges:     true,
		Tools: Tools{
			Claude: ToolConfig{Command: "claude", Timeout: 120, Enabled: true},
			Gemini: ToolConfig{Command: "gemini", Timeout: 120, Enabled: true},
		},
	}
}

// envBindings maps config keys to their environment variables. The first
// name follows the DUAL_AI_<KEY> scheme; extra names are short aliases.
var envBindings = map[string]string{
	"debug":                "DUAL_AI_DEBUG",
	"log_level":            "DUAL_AI_LOG_LEVEL",
	"log_file":             "DUAL_AI_LOG_FILE",
	"data_dir":             "DUAL_AI_DATA_DIR",
	"solutions_dir":        "DUAL_AI_SOLUTIONS_DIR",
	"auto_save":            "DUAL_AI_AUTO_SAVE",
	"persist":              "DUAL_AI_PERSIST",
	"rounds":               "DUAL_AI_ROUNDS DUAL_AI_MAX_ROUNDS",
	"implementer":          "DUAL_AI_IMPLEMENTER",
	"implement_timeout":    "DUAL_AI_IMPLEMENT_TIMEOUT",
	"templates_dir":        "DUAL_AI_TEMPLATES_DIR",
	"track_changes":        "DUAL_AI_TRACK_CHANGES",
	"tools.claude.command": "DUAL_AI_TOOLS_CLAUDE_COMMAND DUAL_AI_CLAUDE_COMMAND",
	"tools.claude.args":    "DUAL_AI_TOOLS_CLAUDE_ARGS DUAL_AI_CLAUDE_ARGS",
	"tools.claude.timeout": "DUAL_AI_TOOLS_CLAUDE_TIMEOUT DUAL_AI_CLAUDE_TIMEOUT",
	"tools.claude.enabled": "DUAL_AI_TOOLS_CLAUDE_ENABLED DUAL_AI_CLAUDE_ENABLED",
	"tools.gemini.command": "DUAL_AI_TOOLS_GEMINI_COMMAND DUAL_AI_GEMINI_COMMAND",
	"tools.gemini.args":    "DUAL_AI_TOOLS_GEMINI_ARGS DUAL_AI_GEMINI_ARGS",
	"tools.gemini.timeout": "DUAL_AI_TOOLS_GEMINI_TIMEOUT DUAL_AI_GEMINI_TIMEOUT",
	"tools.gemini.enabled": "DUAL_AI_TOOLS_GEMINI_ENABLED DUAL_AI_GEMINI_ENABLED",
}

// Load loads configuration with full precedence:
// CLI flags > ENV vars > project config > XDG global config > defaults
// (flags are applied by the caller on the returned value).
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file taking the place of the
// project config. An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("dualai")

	d := Default()
	v.SetDefault("debug", d.Debug)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("solutions_dir", d.SolutionsDir)
	v.SetDefault("auto_save", d.AutoSave)
	v.SetDefault("persist", d.Persist)
	v.SetDefault("rounds", d.Rounds)
	v.SetDefault("implementer", d.Implementer)
	v.SetDefault("implement_timeout", d.ImplementTimeout)
	v.SetDefault("templates_dir", d.TemplatesDir)
	v.SetDefault("track_changes", d.TrackChanges)
	for name, tool := range map[string]ToolConfig{"claude": d.Tools.Claude, "gemini": d.Tools.Gemini} {
		v.SetDefault("tools."+name+".command", tool.Command)
		v.SetDefault("tools."+name+".args", tool.Args)
		v.SetDefault("tools."+name+".timeout", tool.Timeout)
		v.SetDefault("tools."+name+".enabled", tool.Enabled)
	}

	// Setup ENV binding with DUAL_AI_ prefix
	v.SetEnvPrefix("DUAL_AI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit ENV bindings for aliases and better bool/int parsing
	for key, names := range envBindings {
		input := append([]string{key}, strings.Fields(names)...)
		if err := v.BindEnv(input...); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	// Load global config first (if exists)
	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	// Merge project (or explicit) config on top
	overlay := ProjectPath()
	if path != "" {
		if !fileExists(path) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		overlay = path
	}
	if fileExists(overlay) {
		v.SetConfigFile(overlay)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging config %s: %w", overlay, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration can drive a session.
func (c *Config) Validate() error {
	if c.Rounds < 1 {
		return fmt.Errorf("rounds must be at least 1, got %d", c.Rounds)
	}
	if c.ImplementTimeout <= 0 {
		return fmt.Errorf("implement_timeout must be positive, got %d", c.ImplementTimeout)
	}
	switch strings.ToLower(c.Implementer) {
	case "", "claude", "gemini":
	default:
		return fmt.Errorf("implementer must be claude or gemini, got %q", c.Implementer)
	}
	if c.LogLevel != "" {
		if _, err := logger.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	for name, tool := range map[string]ToolConfig{"claude": c.Tools.Claude, "gemini": c.Tools.Gemini} {
		if strings.TrimSpace(tool.Command) == "" {
			return fmt.Errorf("tools.%s.command must not be empty", name)
		}
		if tool.Timeout <= 0 {
			return fmt.Errorf("tools.%s.timeout must be positive, got %d", name, tool.Timeout)
		}
	}
	return nil
}

// Exists returns true if any config file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global config path.
// Returns ~/.config/dualai/dualai.yml or $XDG_CONFIG_HOME/dualai/dualai.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "dualai", "dualai.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "dualai", "dualai.yml")
}

// ProjectPath returns the project-local config path.
// Returns ./dualai.yml in the current working directory.
func ProjectPath() string {
	return "dualai.yml"
}

// WriteGlobal writes the config to the XDG global location.
func WriteGlobal(cfg *Config) error {
	path := GlobalPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return write(path, cfg)
}

// WriteProject writes the config to the project-local location.
func WriteProject(cfg *Config) error {
	return write(ProjectPath(), cfg)
}

func write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
