package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/dualai/internal/agent"
	"github.com/mark3labs/dualai/internal/display"
	"github.com/mark3labs/dualai/internal/orchestrator"
	"github.com/spf13/cobra"
)

// installHints tells how to install each supported tool.
var installHints = map[string]string{
	"claude": "npm install -g @anthropic-ai/claude-code",
	"gemini": "npm install -g @google/gemini-cli",
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the claude and gemini tools are installed",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	disp := display.New(os.Stdout, display.Options{Width: terminalWidth()})

	tools := []*agent.Tool{
		orchestrator.NewTool("claude", cfg.Tools.Claude, cfg.Debug, ""),
		orchestrator.NewTool("gemini", cfg.Tools.Gemini, cfg.Debug, ""),
	}

	statuses := make([]agent.Status, 0, len(tools))
	var missing []string
	for _, t := range tools {
		s := t.Status(ctx)
		statuses = append(statuses, s)
		if !s.Available {
			missing = append(missing, s.Name)
		}
	}
	disp.Tools(statuses)

	if len(missing) == 0 {
		disp.Success("✓ Tout est prêt")
		return nil
	}

	disp.Print("")
	for _, name := range missing {
		disp.Warn("%s indisponible", name)
		if hint, ok := installHints[name]; ok {
			disp.Info("  Installation: %s", hint)
		}
	}
	return fmt.Errorf("%d tool(s) unavailable", len(missing))
}
