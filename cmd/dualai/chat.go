package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/x/term"
	"github.com/mark3labs/dualai/internal/display"
	"github.com/mark3labs/dualai/internal/logger"
	"github.com/mark3labs/dualai/internal/negotiation"
	"github.com/mark3labs/dualai/internal/orchestrator"
	"github.com/mark3labs/dualai/internal/state"
	"github.com/spf13/cobra"
)

var chatFlags struct {
	rounds   int
	showDiff bool
	noColor  bool
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive shell (default)",
	Long: `Start the interactive shell.

Each line you type starts a session. Shell commands:
  help, h, ?      show help
  exit, quit, q   leave the shell
  clear           clear the screen
  history         list the sessions completed in this shell

Ctrl+C cancels the running session and returns to the prompt.`,
	RunE: runChat,
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, chatCmd} {
		cmd.Flags().IntVarP(&chatFlags.rounds, "rounds", "r", 0, "Round limit per session (default: from config)")
		cmd.Flags().BoolVar(&chatFlags.showDiff, "show-diff", false, "Show how each proposal changed from the previous round")
		cmd.Flags().BoolVar(&chatFlags.noColor, "no-color", false, "Disable colors")
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatFlags.rounds < 0 {
		return fmt.Errorf("rounds must be at least 1")
	}

	// SIGINT cancels the running session only; SIGTERM ends the shell.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	o, err := startOrchestrator(ctx, cfg.Persist)
	if err != nil {
		return err
	}
	defer stopOrchestrator(o)

	disp := display.New(os.Stdout, display.Options{
		Width:    terminalWidth(),
		NoColor:  chatFlags.noColor,
		ShowDiff: chatFlags.showDiff,
	})

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	sh := &shell{
		in:         os.Stdin,
		disp:       disp,
		interrupts: interrupts,
		choose:     cfg.Implementer == "",
		prefs:      state.Load(cfg.DataDir),
		savePrefs: func(st *state.ShellState) error {
			return state.Save(cfg.DataDir, st)
		},
		run: func(ctx context.Context, request string, chooser negotiation.Chooser) (*orchestrator.Outcome, error) {
			return o.Run(ctx, request, orchestrator.RunOptions{
				Rounds:   chatFlags.rounds,
				Chooser:  chooser,
				Observer: disp,
			})
		},
	}

	disp.Clear()
	disp.Welcome()
	wd, _ := os.Getwd()
	disp.Header(version, o.Claude().Available(), o.Gemini().Available(), wd)
	disp.Instructions()

	sh.header = func() {
		disp.Header(version, o.Claude().Available(), o.Gemini().Available(), wd)
	}
	return sh.loop(ctx)
}

// terminalWidth returns the stdout width, or the display default.
func terminalWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return display.DefaultWidth
}

// runFunc runs one session. chooser is nil when the implementer is configured.
type runFunc func(ctx context.Context, request string, chooser negotiation.Chooser) (*orchestrator.Outcome, error)

// shell is the interactive read-eval loop. Input lines are read on a separate
// goroutine so an interrupt can be handled while waiting for input.
type shell struct {
	in         io.Reader
	disp       *display.Display
	interrupts <-chan os.Signal
	choose     bool // Ask for the implementer after each round loop
	run        runFunc
	header     func()
	prefs      *state.ShellState // Remembered across runs; may be nil
	savePrefs  func(*state.ShellState) error

	lines   chan string
	count   int // Prompts shown so far
	history []display.HistoryEntry
}

func (s *shell) readLines() {
	defer close(s.lines)
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("Reading input: %v", err)
	}
}

// loop runs until exit, end of input or cancellation of ctx.
func (s *shell) loop(ctx context.Context) error {
	s.lines = make(chan string)
	go s.readLines()

	for {
		s.count++
		s.disp.Prompt(s.count)

		var line string
		select {
		case <-ctx.Done():
			s.disp.Goodbye(len(s.history))
			return nil
		case <-s.interrupts:
			s.disp.Cancelled()
			continue
		case l, ok := <-s.lines:
			if !ok {
				s.disp.Print("")
				s.disp.Goodbye(len(s.history))
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "exit", "quit", "q":
			s.disp.Goodbye(len(s.history))
			return nil
		case "help", "h", "?":
			s.disp.Help()
			continue
		case "clear":
			s.disp.Clear()
			if s.header != nil {
				s.header()
			}
			continue
		case "history":
			s.disp.History(s.history)
			continue
		}

		s.process(ctx, line)
	}
}

// process runs a session; an interrupt cancels it and returns to the prompt.
func (s *shell) process(ctx context.Context, request string) {
	sessCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		select {
		case <-s.interrupts:
			cancel()
		case <-done:
		}
	}()
	defer func() {
		close(done)
		cancel()
	}()

	var chooser negotiation.Chooser
	if s.choose {
		chooser = s.chooseImplementer
	}

	out, err := s.run(sessCtx, request, chooser)
	s.disp.Stop()
	if err != nil {
		if sessCtx.Err() != nil && ctx.Err() == nil {
			s.disp.Cancelled()
			return
		}
		// The display already reported the failed session.
		logger.Debug("Session failed: %v", err)
		return
	}

	res := out.Result
	s.history = append(s.history, display.HistoryEntry{
		Request:     request,
		Implementer: res.Implementer,
		Consensus:   res.Consensus,
		RoundsUsed:  res.RoundsUsed,
	})
	if out.Solution != "" {
		s.disp.Saved(out.Solution)
	}
	s.disp.Changes(out.Changed)
	s.disp.Print("")
	s.remember(res.Implementer)
}

// remember stores the implementer of a completed session in the shell state.
func (s *shell) remember(impl negotiation.Implementer) {
	if s.prefs == nil {
		return
	}
	s.prefs.LastImplementer = impl
	s.prefs.SessionsCompleted++
	if s.savePrefs == nil {
		return
	}
	if err := s.savePrefs(s.prefs); err != nil {
		logger.Warn("Failed to save shell state: %v", err)
	}
}

// errNoInput is returned when input ends while waiting for a choice.
var errNoInput = errors.New("input closed before an implementer was chosen")

// chooseImplementer asks "1" (Claude) or "2" (Gemini) until a valid answer.
// An empty answer picks the implementer of the last completed session, if any.
func (s *shell) chooseImplementer(ctx context.Context, consensus bool) (negotiation.Implementer, error) {
	var last negotiation.Implementer
	if s.prefs != nil {
		last = s.prefs.LastImplementer
	}
	label := "Choix [1/2]"
	switch last {
	case negotiation.Claude:
		label = "Choix [1/2] (Entrée: 1)"
	case negotiation.Gemini:
		label = "Choix [1/2] (Entrée: 2)"
	}

	s.disp.Choices()
	for {
		s.disp.Ask(label)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case l, ok := <-s.lines:
			if !ok {
				return "", errNoInput
			}
			switch strings.TrimSpace(l) {
			case "":
				if last != "" {
					return last, nil
				}
			case "1":
				return negotiation.Claude, nil
			case "2":
				return negotiation.Gemini, nil
			}
			s.disp.Warn("Choix invalide, tapez 1 ou 2")
		}
	}
}
