package negotiation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short text keeps marker", "ok", 5, "ok..."},
		{"exact length", "abcde", 5, "abcde..."},
		{"cut", "abcdef", 5, "abcde..."},
		{"counts runes not bytes", "éééééé", 3, "ééé..."},
		{"empty", "", 3, "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, preview(tt.in, tt.n))
		})
	}
}

func TestRoundContext(t *testing.T) {
	assert.Equal(t, FirstRoundContext, RoundContext(nil, "Gemini"))

	rounds := []Round{
		{Index: 1, Proposal: "p1", Response: "r1"},
		{Index: 2, Proposal: "p2", Response: "r2"},
		{Index: 3, Proposal: "p3", Response: "r3"},
	}
	got := RoundContext(rounds, "Gemini")

	want := "Rounds précédents:\n\n" +
		"Round 2:\n- Ta proposition: p2...\n- Retour de Gemini: r2...\n\n" +
		"Round 3:\n- Ta proposition: p3...\n- Retour de Gemini: r3...\n\n"
	assert.Equal(t, want, got)
}

func TestRoundContextDoesNotMutateTranscript(t *testing.T) {
	long := strings.Repeat("x", 1000)
	rounds := []Round{{Index: 1, Proposal: long, Response: long}}

	_ = RoundContext(rounds, "Gemini")
	assert.Len(t, rounds[0].Proposal, 1000)
}

func TestFinalContext(t *testing.T) {
	rounds := []Round{
		{Index: 1, Proposal: "p1", Response: "r1"},
		{Index: 2, Proposal: "p2", Response: "CONSENSUS"},
	}

	got := FinalContext(rounds, true, "Claude", "Gemini")
	want := "Consensus atteint: Oui\n\n" +
		"Résumé du débat:\n" +
		"\nRound 1:\n- Claude: p1...\n- Gemini: r1...\n" +
		"\nRound 2:\n- Claude: p2...\n- Gemini: CONSENSUS...\n"
	assert.Equal(t, want, got)

	assert.True(t, strings.HasPrefix(FinalContext(nil, false, "Claude", "Gemini"), "Consensus atteint: Non\n"))
}

func TestFallbackStructuredRequest(t *testing.T) {
	assert.Equal(t,
		"Objectif: sort a list\nContraintes: Aucune spécifiée\nCritères: Solution fonctionnelle",
		FallbackStructuredRequest("sort a list"))
}

func TestObserversFanOut(t *testing.T) {
	a := &recordingObserver{}
	b := &recordingObserver{}
	obs := Observers(a, nil, b)

	obs.StateChanged(StateStructuring, StateRoundPropose)
	obs.Implementing(Gemini)

	assert.Equal(t, []string{"ROUND_PROPOSE", "implement gemini"}, a.events)
	assert.Equal(t, a.events, b.events)
}
