package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate runs the test in an empty working directory with an empty XDG
// config home and no DUAL_AI_* variables set.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))

	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "DUAL_AI_") {
			t.Setenv(name, "")
			_ = os.Unsetenv(name)
		}
	}
	return tmpDir
}

func TestGlobalPath(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		if got := GlobalPath(); got != "/custom/config/dualai/dualai.yml" {
			t.Errorf("GlobalPath() = %v, want /custom/config/dualai/dualai.yml", got)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		got := GlobalPath()
		if !filepath.IsAbs(got) {
			t.Errorf("GlobalPath() should return absolute path, got %v", got)
		}
		if !strings.HasSuffix(got, filepath.Join(".config", "dualai", "dualai.yml")) {
			t.Errorf("GlobalPath() should end with .config/dualai/dualai.yml, got %v", got)
		}
	})
}

func TestProjectPath(t *testing.T) {
	if got := ProjectPath(); got != "dualai.yml" {
		t.Errorf("ProjectPath() = %v, want dualai.yml", got)
	}
}

func TestExists(t *testing.T) {
	isolate(t)

	if Exists() {
		t.Error("Exists() = true, want false when no config files exist")
	}

	if err := os.WriteFile(ProjectPath(), []byte("rounds: 2\n"), 0644); err != nil {
		t.Fatalf("Failed to write project config: %v", err)
	}
	if !Exists() {
		t.Error("Exists() = false, want true when project config exists")
	}
	_ = os.Remove(ProjectPath())

	if err := WriteGlobal(Default()); err != nil {
		t.Fatalf("WriteGlobal() error = %v", err)
	}
	if !Exists() {
		t.Error("Exists() = false, want true when global config exists")
	}
}

func TestLoad_NoConfig(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	if cfg.Rounds != 3 {
		t.Errorf("Load() default Rounds = %v, want 3", cfg.Rounds)
	}
	if cfg.DataDir != ".dualai" {
		t.Errorf("Load() default DataDir = %v, want .dualai", cfg.DataDir)
	}
	if cfg.SolutionsDir != want.SolutionsDir {
		t.Errorf("Load() default SolutionsDir = %v, want %v", cfg.SolutionsDir, want.SolutionsDir)
	}
	if !cfg.AutoSave || !cfg.Persist || !cfg.TrackChanges {
		t.Error("Load() should default AutoSave, Persist and TrackChanges to true")
	}
	if cfg.ImplementTimeoutDuration() != 180*time.Second {
		t.Errorf("Load() default ImplementTimeout = %v, want 180s", cfg.ImplementTimeoutDuration())
	}
	if cfg.Tools.Claude.Command != "claude" || cfg.Tools.Gemini.Command != "gemini" {
		t.Errorf("Load() default commands = %q/%q", cfg.Tools.Claude.Command, cfg.Tools.Gemini.Command)
	}
	if cfg.Tools.Claude.TimeoutDuration() != 120*time.Second {
		t.Errorf("Load() default tool timeout = %v, want 120s", cfg.Tools.Claude.TimeoutDuration())
	}
	if !cfg.Tools.Claude.Enabled || !cfg.Tools.Gemini.Enabled {
		t.Error("Load() should enable both tools by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)

	global := Default()
	global.Rounds = 5
	global.LogLevel = "warn"
	global.Tools.Gemini.Command = "/opt/gemini"
	if err := WriteGlobal(global); err != nil {
		t.Fatalf("WriteGlobal() error = %v", err)
	}

	if err := os.WriteFile(ProjectPath(), []byte("rounds: 2\nimplementer: gemini\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Rounds != 2 {
		t.Errorf("project config should override global: Rounds = %d, want 2", cfg.Rounds)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("global value should survive merge: LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.Tools.Gemini.Command != "/opt/gemini" {
		t.Errorf("nested global value should survive merge: %q", cfg.Tools.Gemini.Command)
	}
	if cfg.Implementer != "gemini" {
		t.Errorf("Implementer = %q, want gemini", cfg.Implementer)
	}

	t.Setenv("DUAL_AI_ROUNDS", "7")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Rounds != 7 {
		t.Errorf("env should override files: Rounds = %d, want 7", cfg.Rounds)
	}
}

func TestLoad_EnvAliases(t *testing.T) {
	isolate(t)

	t.Setenv("DUAL_AI_DEBUG", "true")
	t.Setenv("DUAL_AI_MAX_ROUNDS", "4")
	t.Setenv("DUAL_AI_CLAUDE_COMMAND", "/usr/local/bin/claude")
	t.Setenv("DUAL_AI_GEMINI_TIMEOUT", "45")
	t.Setenv("DUAL_AI_CLAUDE_ARGS", "-p,--verbose")
	t.Setenv("DUAL_AI_LOG_LEVEL", "debug")
	t.Setenv("DUAL_AI_TRACK_CHANGES", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Debug {
		t.Error("DUAL_AI_DEBUG not applied")
	}
	if cfg.Rounds != 4 {
		t.Errorf("DUAL_AI_MAX_ROUNDS not applied: %d", cfg.Rounds)
	}
	if cfg.Tools.Claude.Command != "/usr/local/bin/claude" {
		t.Errorf("DUAL_AI_CLAUDE_COMMAND not applied: %q", cfg.Tools.Claude.Command)
	}
	if cfg.Tools.Gemini.Timeout != 45 {
		t.Errorf("DUAL_AI_GEMINI_TIMEOUT not applied: %d", cfg.Tools.Gemini.Timeout)
	}
	if len(cfg.Tools.Claude.Args) != 2 || cfg.Tools.Claude.Args[1] != "--verbose" {
		t.Errorf("DUAL_AI_CLAUDE_ARGS not applied: %v", cfg.Tools.Claude.Args)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("DUAL_AI_LOG_LEVEL not applied: %q", cfg.LogLevel)
	}
	if cfg.TrackChanges {
		t.Error("DUAL_AI_TRACK_CHANGES not applied")
	}
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)

	custom := filepath.Join(dir, "custom.yml")
	if err := os.WriteFile(custom, []byte("rounds: 9\ntools:\n  claude:\n    enabled: false\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(custom)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Rounds != 9 {
		t.Errorf("Rounds = %d, want 9", cfg.Rounds)
	}
	if cfg.Tools.Claude.Enabled {
		t.Error("tools.claude.enabled should be false")
	}
	if cfg.Tools.Claude.Command != "claude" {
		t.Errorf("unset nested key should keep default, got %q", cfg.Tools.Claude.Command)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("LoadFile() should fail for a missing explicit file")
	}
}

func TestWriteGlobal(t *testing.T) {
	isolate(t)

	cfg := Default()
	cfg.Rounds = 4
	cfg.Implementer = "claude"
	cfg.LogFile = "/tmp/test.log"
	cfg.Tools.Gemini.Args = []string{"--yolo"}

	if err := WriteGlobal(cfg); err != nil {
		t.Fatalf("WriteGlobal() error = %v", err)
	}

	data, err := os.ReadFile(GlobalPath())
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	content := string(data)
	expectedFields := []string{
		"rounds: 4",
		"implementer: claude",
		"log_file: /tmp/test.log",
		"implement_timeout: 180",
		"command: gemini",
		"- --yolo",
	}
	for _, field := range expectedFields {
		if !strings.Contains(content, field) {
			t.Errorf("Config file missing expected field: %s\nContent:\n%s", field, content)
		}
	}
}

func TestWriteProject(t *testing.T) {
	isolate(t)

	if err := WriteProject(Default()); err != nil {
		t.Fatalf("WriteProject() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Rounds != 3 || cfg.DataDir != ".dualai" {
		t.Errorf("round trip through project file changed values: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"default is valid", func(c *Config) {}, ""},
		{"implementer gemini", func(c *Config) { c.Implementer = "Gemini" }, ""},
		{"zero rounds", func(c *Config) { c.Rounds = 0 }, "rounds"},
		{"zero implement timeout", func(c *Config) { c.ImplementTimeout = 0 }, "implement_timeout"},
		{"unknown implementer", func(c *Config) { c.Implementer = "gpt" }, "implementer"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"empty command", func(c *Config) { c.Tools.Claude.Command = " " }, "tools.claude.command"},
		{"negative tool timeout", func(c *Config) { c.Tools.Gemini.Timeout = -1 }, "tools.gemini.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
