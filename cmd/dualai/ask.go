package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/x/editor"
	"github.com/charmbracelet/x/term"
	"github.com/mark3labs/dualai/internal/display"
	"github.com/mark3labs/dualai/internal/negotiation"
	"github.com/mark3labs/dualai/internal/orchestrator"
	"github.com/spf13/cobra"
)

var askFlags struct {
	rounds      int
	implementer string
	useEditor   bool
	noSave      bool
	showDiff    bool
	noColor     bool
}

var askCmd = &cobra.Command{
	Use:   "ask [request...]",
	Short: "Run a single session and exit",
	Long: `Run a single session and exit.

The request is taken from the arguments, from $EDITOR with --editor, or
from standard input when it is not a terminal.`,
	Example: `  dualai ask "Écris un serveur HTTP minimal en Go"
  echo "Ajoute des tests" | dualai ask --implementer gemini
  dualai ask --editor --rounds 5`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askFlags.rounds, "rounds", "r", 0, "Round limit (default: from config)")
	askCmd.Flags().StringVarP(&askFlags.implementer, "implementer", "i", "", "Tool that implements the solution: claude or gemini (default: from config, else claude)")
	askCmd.Flags().BoolVarP(&askFlags.useEditor, "editor", "e", false, "Compose the request in $EDITOR")
	askCmd.Flags().BoolVar(&askFlags.noSave, "no-save", false, "Do not save the solution file")
	askCmd.Flags().BoolVar(&askFlags.showDiff, "show-diff", false, "Show how each proposal changed from the previous round")
	askCmd.Flags().BoolVar(&askFlags.noColor, "no-color", false, "Disable colors")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askFlags.rounds < 0 {
		return fmt.Errorf("rounds must be at least 1")
	}

	var impl negotiation.Implementer
	if askFlags.implementer != "" {
		var err error
		impl, err = negotiation.ParseImplementer(askFlags.implementer)
		if err != nil {
			return err
		}
	}

	request, err := readRequest(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(request) == "" {
		return fmt.Errorf("empty request")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o, err := startOrchestrator(ctx, cfg.Persist)
	if err != nil {
		return err
	}
	defer stopOrchestrator(o)

	disp := display.New(os.Stdout, display.Options{
		Width:    terminalWidth(),
		NoColor:  askFlags.noColor,
		ShowDiff: askFlags.showDiff,
	})

	out, err := o.Run(ctx, request, orchestrator.RunOptions{
		Rounds:      askFlags.rounds,
		Implementer: impl,
		Observer:    disp,
		NoSave:      askFlags.noSave,
	})
	disp.Stop()
	if err != nil {
		if ctx.Err() != nil {
			disp.Cancelled()
		}
		return err
	}
	if out.Solution != "" {
		disp.Saved(out.Solution)
	}
	disp.Changes(out.Changed)
	return nil
}

// readRequest returns the request from args, the editor or piped stdin.
func readRequest(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if askFlags.useEditor {
		return editRequest()
	}
	if !term.IsTerminal(os.Stdin.Fd()) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("no request given: pass it as arguments, pipe it on stdin or use --editor")
}

// editRequest opens $EDITOR on a temporary markdown file and returns its content.
func editRequest() (string, error) {
	tmpfile, err := os.CreateTemp("", "dualai-request-*.md")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmpfile.Name()
	_ = tmpfile.Close()
	defer func() { _ = os.Remove(path) }()

	c, err := editor.Command("dualai", path)
	if err != nil {
		return "", fmt.Errorf("failed to prepare editor: %w", err)
	}
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return "", fmt.Errorf("editor failed: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read edited request: %w", err)
	}
	return string(content), nil
}
