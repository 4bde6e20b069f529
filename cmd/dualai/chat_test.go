package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/mark3labs/dualai/internal/display"
	"github.com/mark3labs/dualai/internal/negotiation"
	"github.com/mark3labs/dualai/internal/orchestrator"
	"github.com/mark3labs/dualai/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestShell(input string, run runFunc) (*shell, *bytes.Buffer, chan os.Signal) {
	var buf bytes.Buffer
	interrupts := make(chan os.Signal, 1)
	sh := &shell{
		in:         strings.NewReader(input),
		disp:       display.New(&buf, display.Options{NoColor: true}),
		interrupts: interrupts,
		run:        run,
	}
	return sh, &buf, interrupts
}

func noSession(t *testing.T) runFunc {
	return func(ctx context.Context, request string, chooser negotiation.Chooser) (*orchestrator.Outcome, error) {
		t.Errorf("unexpected session for %q", request)
		return nil, errors.New("unexpected")
	}
}

func doneOutcome(impl negotiation.Implementer) *orchestrator.Outcome {
	return &orchestrator.Outcome{
		Result: &negotiation.Result{
			Artifact:    "solution",
			Implementer: impl,
			Consensus:   true,
			RoundsUsed:  2,
		},
		Solution: "/tmp/solution.md",
	}
}

func TestShellCommands(t *testing.T) {
	sh, buf, _ := newTestShell("help\n\nHISTORY\nexit\n", noSession(t))

	require.NoError(t, sh.loop(context.Background()))

	out := ansi.Strip(buf.String())
	assert.Contains(t, out, "Commandes disponibles")
	assert.Contains(t, out, "Aucun historique pour cette session")
	assert.Contains(t, out, "Sessions complétées: 0")
	for _, p := range []string{"#01 ›", "#02 ›", "#03 ›", "#04 ›"} {
		assert.Contains(t, out, p)
	}
	assert.NotContains(t, out, "#05 ›")
}

func TestShellEndOfInput(t *testing.T) {
	sh, buf, _ := newTestShell("", noSession(t))

	require.NoError(t, sh.loop(context.Background()))

	assert.Contains(t, ansi.Strip(buf.String()), "Merci d'avoir utilisé Dual AI Orchestrator !")
}

func TestShellRecordsCompletedSessions(t *testing.T) {
	var requests []string
	run := func(ctx context.Context, request string, chooser negotiation.Chooser) (*orchestrator.Outcome, error) {
		requests = append(requests, request)
		if request == "échoue" {
			return nil, errors.New("gemini not found")
		}
		return doneOutcome(negotiation.Claude), nil
	}
	sh, buf, _ := newTestShell("  écris un tri  \néchoue\nhistory\nq\n", run)

	require.NoError(t, sh.loop(context.Background()))

	assert.Equal(t, []string{"écris un tri", "échoue"}, requests)
	out := ansi.Strip(buf.String())
	assert.Contains(t, out, "Solution sauvegardée: /tmp/solution.md")
	assert.Contains(t, out, "Historique de session")
	assert.Contains(t, out, "Oui (2 rounds)")
	assert.Contains(t, out, "Sessions complétées: 1")
}

func TestShellListsChangedFiles(t *testing.T) {
	run := func(ctx context.Context, request string, chooser negotiation.Chooser) (*orchestrator.Outcome, error) {
		out := doneOutcome(negotiation.Gemini)
		out.Changed = []string{"cache.go", "cache_test.go"}
		return out, nil
	}
	sh, buf, _ := newTestShell("ajoute un cache\nexit\n", run)

	require.NoError(t, sh.loop(context.Background()))

	out := ansi.Strip(buf.String())
	assert.Contains(t, out, "Fichiers modifiés (2)")
	assert.Contains(t, out, "cache_test.go")
}

func TestShellChooser(t *testing.T) {
	var chosen negotiation.Implementer
	run := func(ctx context.Context, request string, chooser negotiation.Chooser) (*orchestrator.Outcome, error) {
		require.NotNil(t, chooser)
		impl, err := chooser(ctx, false)
		if err != nil {
			return nil, err
		}
		chosen = impl
		return doneOutcome(impl), nil
	}
	sh, buf, _ := newTestShell("ajoute un cache\n3\n2\nexit\n", run)
	sh.choose = true

	require.NoError(t, sh.loop(context.Background()))

	assert.Equal(t, negotiation.Gemini, chosen)
	out := ansi.Strip(buf.String())
	assert.Contains(t, out, "Quelle IA doit implémenter la solution ?")
	assert.Contains(t, out, "Choix invalide, tapez 1 ou 2")
}

func TestShellChooserDefaultsToLastImplementer(t *testing.T) {
	var chosen []negotiation.Implementer
	run := func(ctx context.Context, request string, chooser negotiation.Chooser) (*orchestrator.Outcome, error) {
		impl, err := chooser(ctx, true)
		if err != nil {
			return nil, err
		}
		chosen = append(chosen, impl)
		return doneOutcome(impl), nil
	}
	var saved []state.ShellState
	sh, buf, _ := newTestShell("premier\n2\nsecond\n\nexit\n", run)
	sh.choose = true
	sh.prefs = &state.ShellState{}
	sh.savePrefs = func(st *state.ShellState) error {
		saved = append(saved, *st)
		return nil
	}

	require.NoError(t, sh.loop(context.Background()))

	assert.Equal(t, []negotiation.Implementer{negotiation.Gemini, negotiation.Gemini}, chosen)
	assert.Contains(t, ansi.Strip(buf.String()), "Choix [1/2] (Entrée: 2)")
	require.Len(t, saved, 2)
	assert.Equal(t, state.ShellState{LastImplementer: negotiation.Gemini, SessionsCompleted: 2}, saved[1])
}

func TestShellWithoutChooser(t *testing.T) {
	run := func(ctx context.Context, request string, chooser negotiation.Chooser) (*orchestrator.Outcome, error) {
		assert.Nil(t, chooser)
		return doneOutcome(negotiation.Claude), nil
	}
	sh, _, _ := newTestShell("ajoute un cache\nexit\n", run)

	require.NoError(t, sh.loop(context.Background()))
}

func TestShellInterruptCancelsSession(t *testing.T) {
	started := make(chan struct{})
	run := func(ctx context.Context, request string, chooser negotiation.Chooser) (*orchestrator.Outcome, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	sh, buf, interrupts := newTestShell("long\nexit\n", run)

	go func() {
		<-started
		interrupts <- os.Interrupt
	}()

	require.NoError(t, sh.loop(context.Background()))

	out := ansi.Strip(buf.String())
	assert.Contains(t, out, "Commande annulée")
	assert.Contains(t, out, "Sessions complétées: 0")
}

func TestShellCancelledContextEndsShell(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sawErr error
	run := func(sessCtx context.Context, request string, chooser negotiation.Chooser) (*orchestrator.Outcome, error) {
		cancel()
		<-sessCtx.Done()
		sawErr = sessCtx.Err()
		return nil, sawErr
	}
	// No "exit" line: only the cancellation can end the loop.
	sh, buf, _ := newTestShell("", run)
	sh.in = io.MultiReader(strings.NewReader("long\n"), blockingReader{ctx: ctx})

	require.NoError(t, sh.loop(ctx))

	assert.ErrorIs(t, sawErr, context.Canceled)
	out := ansi.Strip(buf.String())
	assert.NotContains(t, out, "Commande annulée")
	assert.Contains(t, out, "Sessions complétées: 0")
}

// blockingReader blocks until ctx is done, like a terminal with no input.
type blockingReader struct {
	ctx context.Context
}

func (r blockingReader) Read([]byte) (int, error) {
	<-r.ctx.Done()
	return 0, io.EOF
}

func TestDebugLogPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got := debugLogPath(mustParseDate(t, "2026-10-19"))
	assert.Equal(t, home+"/.dual-ai/logs/dual_ai_20261019.log", got)
}

func mustParseDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}
