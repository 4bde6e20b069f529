package display

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/mark3labs/dualai/internal/agent"
	"github.com/mark3labs/dualai/internal/consensus"
	"github.com/mark3labs/dualai/internal/negotiation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDisplay(opts Options) (*Display, *bytes.Buffer) {
	var buf bytes.Buffer
	opts.NoColor = true
	return New(&buf, opts), &buf
}

func plain(buf *bytes.Buffer) string {
	return ansi.Strip(buf.String())
}

func TestDisplaySessionWithConsensus(t *testing.T) {
	d, buf := newTestDisplay(Options{})

	d.StateChanged("", negotiation.StateStructuring)
	d.Structured("Objectif: un parseur CSV")
	d.RoundStarted(1, 3)
	d.Proposal(1, "Utiliser encoding/csv")
	d.Response(1, "D'accord, c'est parfait")
	d.ConsensusChecked(1, consensus.Analysis{KeywordHit: true, Agreed: true})
	d.Implementing(negotiation.Gemini)
	d.Finished(negotiation.Record{
		State:       negotiation.StateDone,
		Implementer: negotiation.Gemini,
		Artifact:    "# Parseur\n\nfunc Parse() {}",
	})

	out := plain(buf)
	for _, want := range []string{
		"Claude structure votre demande",
		"Demande structurée",
		"Objectif: un parseur CSV",
		"Round 1/3: Claude propose...",
		"Claude - Round 1",
		"Gemini - Round 1",
		"✅ Consensus atteint !",
		"Gemini implémente la solution",
		"Solution implémentée par Gemini",
		"Parseur",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Consensus non atteint")
}

func TestDisplayRoundsExhausted(t *testing.T) {
	d, buf := newTestDisplay(Options{})

	d.StateChanged("", negotiation.StateStructuring)
	d.RoundStarted(1, 2)
	d.ConsensusChecked(1, consensus.Analysis{Objections: []string{"mais"}})
	d.RoundStarted(2, 2)
	d.ConsensusChecked(2, consensus.Analysis{})
	d.StateChanged(negotiation.StateRoundReview, negotiation.StateRoundsExhausted)

	out := plain(buf)
	assert.Contains(t, out, "Consensus non atteint après 2 rounds")
	assert.NotContains(t, out, "Consensus atteint !")
}

func TestDisplayFailedSession(t *testing.T) {
	d, buf := newTestDisplay(Options{})

	d.Finished(negotiation.Record{State: negotiation.StateFailed, Err: "ROUND_REVIEW round 1: gemini timed out"})

	out := plain(buf)
	assert.Contains(t, out, "Erreur lors du traitement:")
	assert.Contains(t, out, "gemini timed out")
}

func TestDisplayStructuringFallback(t *testing.T) {
	d, buf := newTestDisplay(Options{})

	d.StructuringFallback(errors.New("claude not found"))

	assert.Contains(t, plain(buf), "claude not found")
}

func TestDisplayShowDiff(t *testing.T) {
	d, buf := newTestDisplay(Options{ShowDiff: true})

	d.StateChanged("", negotiation.StateStructuring)
	d.Proposal(1, "ligne commune\nancienne ligne")
	d.Proposal(2, "ligne commune\nnouvelle ligne")

	out := plain(buf)
	assert.Contains(t, out, "Évolution Round 1 → 2")
	assert.Contains(t, out, "-ancienne ligne")
	assert.Contains(t, out, "+nouvelle ligne")
}

func TestDisplayShowDiffDisabled(t *testing.T) {
	d, buf := newTestDisplay(Options{})

	d.Proposal(1, "a")
	d.Proposal(2, "b")

	assert.NotContains(t, plain(buf), "Évolution")
}

func TestDisplayDiffResetsBetweenSessions(t *testing.T) {
	d, buf := newTestDisplay(Options{ShowDiff: true})

	d.StateChanged("", negotiation.StateStructuring)
	d.Proposal(1, "premier")
	d.StateChanged(negotiation.StateDone, negotiation.StateStructuring)
	d.Proposal(1, "second")

	assert.NotContains(t, plain(buf), "Évolution")
}

func TestProposalDiff(t *testing.T) {
	assert.Empty(t, ProposalDiff(1, "same", 2, "same"))

	diff := ProposalDiff(1, "a\nb", 2, "a\nc")
	assert.Contains(t, diff, "--- round-1")
	assert.Contains(t, diff, "+++ round-2")
	assert.Contains(t, diff, "-b")
	assert.Contains(t, diff, "+c")
	assert.NotContains(t, diff, "No newline")
}

func TestDisplayHistory(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		d, buf := newTestDisplay(Options{})
		d.History(nil)
		assert.Contains(t, plain(buf), "Aucun historique pour cette session")
	})

	t.Run("entries", func(t *testing.T) {
		d, buf := newTestDisplay(Options{Width: 120})
		long := strings.Repeat("x", 60)
		d.History([]HistoryEntry{
			{Request: "Écris un tri rapide", Implementer: negotiation.Claude, Consensus: true, RoundsUsed: 1},
			{Request: long, Implementer: negotiation.Gemini, RoundsUsed: 3},
		})

		out := plain(buf)
		assert.Contains(t, out, "Historique de session")
		assert.Contains(t, out, "Écris un tri rapide")
		assert.Contains(t, out, strings.Repeat("x", 50)+"...")
		assert.NotContains(t, out, strings.Repeat("x", 51))
		assert.Contains(t, out, "Oui (1 rounds)")
		assert.Contains(t, out, "Non (3 rounds)")
	})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"court", 10, "court"},
		{"exactement", 10, "exactement"},
		{"beaucoup trop long", 8, "beaucoup..."},
		{"multi\nligne", 20, "multi ligne"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestDisplayTablesAndPanels(t *testing.T) {
	d, buf := newTestDisplay(Options{Width: 120})

	d.Header("dev", true, false, "/tmp/projet")
	d.Help()
	d.Choices()
	d.Goodbye(2)
	d.Prompt(7)

	out := plain(buf)
	for _, want := range []string{
		"Dual AI Orchestrator dev",
		"✓ Ready",
		"✗ Not found",
		"/tmp/projet",
		"help, h, ?",
		"exit, quit, q",
		"Quelle IA doit implémenter la solution ?",
		"IA d'Anthropic - Excellence en code propre",
		"IA de Google - Innovation et performance",
		"Sessions complétées: 2",
		"#07 › ",
	} {
		assert.Contains(t, out, want)
	}
}

func TestDisplaySessions(t *testing.T) {
	d, buf := newTestDisplay(Options{Width: 140})

	d.Sessions([]SessionRow{{
		ID:          "0123456789abcdef",
		Request:     "Ajoute un cache",
		State:       negotiation.StateDone,
		Consensus:   true,
		RoundsUsed:  2,
		Implementer: negotiation.Claude,
	}})

	out := plain(buf)
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "0123456789")
	assert.Contains(t, out, "Ajoute un cache")
	assert.Contains(t, out, "DONE")
}

func TestDisplayRecord(t *testing.T) {
	d, buf := newTestDisplay(Options{})

	d.Record(negotiation.Record{
		ID:                  "abc",
		Request:             "Ajoute un cache",
		StructuredRequest:   "Ajoute un cache",
		StructuringFallback: true,
		Rounds: []negotiation.Round{
			{Index: 1, Proposal: "LRU", Response: "Non, TTL"},
			{Index: 2, Proposal: "TTL", Response: "D'accord"},
		},
		RoundLimit:  3,
		RoundsUsed:  2,
		Consensus:   true,
		Implementer: negotiation.Claude,
		Artifact:    "type Cache struct{}",
		State:       negotiation.StateDone,
	})

	out := plain(buf)
	require.Contains(t, out, "Session: abc")
	assert.Contains(t, out, "Demande structurée (repli)")
	assert.Contains(t, out, "Consensus: Oui (2/3 rounds)")
	assert.Contains(t, out, "Gemini - Round 2")
	assert.Contains(t, out, "Solution implémentée par Claude")
}

func TestInterpolateColor(t *testing.T) {
	if got := interpolateColor("#000000", "#ffffff", 0); got != "#000000" {
		t.Errorf("pos 0 = %s", got)
	}
	if got := interpolateColor("#000000", "#ffffff", 1); got != "#ffffff" {
		t.Errorf("pos 1 = %s", got)
	}
	if got := interpolateColor("#000000", "#ffffff", 0.5); got != "#7f7f7f" {
		t.Errorf("pos 0.5 = %s", got)
	}
}

func TestDisplayTools(t *testing.T) {
	d, buf := newTestDisplay(Options{Width: 120})

	d.Tools([]agent.Status{
		{Name: "claude", Command: "claude", Enabled: true, Available: true, Version: "1.0.3 (Claude Code)"},
		{Name: "gemini", Command: "gemini", Enabled: true},
		{Name: "other", Command: "other"},
	})

	out := plain(buf)
	assert.Contains(t, out, "✓ Ready")
	assert.Contains(t, out, "1.0.3 (Claude Code)")
	assert.Contains(t, out, "✗ Not found")
	assert.Contains(t, out, "désactivé")
}

func TestDisplayChanges(t *testing.T) {
	d, buf := newTestDisplay(Options{})

	d.Changes(nil)
	assert.Empty(t, buf.String())

	d.Changes([]string{"main.go", "pkg/sort.go"})
	out := plain(buf)
	assert.Contains(t, out, "Fichiers modifiés (2)")
	assert.Contains(t, out, "   pkg/sort.go")
}
