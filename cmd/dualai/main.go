package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/mark3labs/dualai/internal/config"
	"github.com/mark3labs/dualai/internal/logger"
	"github.com/mark3labs/dualai/internal/orchestrator"
	"github.com/spf13/cobra"
)

// Version set via ldflags during build
var version = "dev"

var rootFlags struct {
	config string
	debug  bool
}

// cfg is loaded once per invocation by the root PersistentPreRunE.
var cfg *config.Config

func main() {
	// Ensure logger is closed on exit
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dualai",
	Short: "Let Claude and Gemini debate a request, then implement the agreed solution",
	Long: `dualai orchestrates two AI command-line tools, claude and gemini.

Claude restates your request, then proposes a solution that Gemini reviews.
Rounds continue until Gemini agrees or the round limit is reached, and the
implementer of your choice writes the final solution. Sessions are recorded
in an embedded NATS JetStream store and solutions saved as markdown files.

Without a subcommand, dualai starts the interactive shell.`,
	PersistentPreRunE: loadConfig,
	RunE:              runChat,
	SilenceUsage:      true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFlags.config, "config", "c", "", "Config file (replaces ./dualai.yml)")
	rootCmd.PersistentFlags().BoolVarP(&rootFlags.debug, "debug", "d", false, "Debug logging to ~/.dual-ai/logs unless log_file is set")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(setupCmd)
}

// loadConfig loads configuration, applies global flags and configures logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFile(rootFlags.config)
	if err != nil {
		return err
	}
	if rootFlags.debug {
		c.Debug = true
	}

	level, file := c.LogLevel, c.LogFile
	if c.Debug {
		level = "debug"
		if file == "" {
			file = debugLogPath(time.Now())
		}
	}
	if err := logger.Configure(level, file); err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}

	cfg = c
	logger.Debug("Config loaded (rounds: %d, persist: %t, data dir: %s)", c.Rounds, c.Persist, c.DataDir)
	return nil
}

// debugLogPath returns ~/.dual-ai/logs/dual_ai_YYYYMMDD.log.
func debugLogPath(now time.Time) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".dual-ai", "logs", "dual_ai_"+now.Format("20060102")+".log")
}

// startOrchestrator builds an orchestrator from cfg and opens its store when
// persist is set.
func startOrchestrator(ctx context.Context, persist bool) (*orchestrator.Orchestrator, error) {
	o, err := orchestrator.New(orchestrator.Config{Settings: cfg, Persist: persist})
	if err != nil {
		return nil, err
	}
	if err := o.Start(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func stopOrchestrator(o *orchestrator.Orchestrator) {
	if err := o.Stop(); err != nil {
		logger.Warn("Error during shutdown: %v", err)
	}
}
