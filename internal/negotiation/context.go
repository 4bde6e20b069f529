package negotiation

import (
	"fmt"
	"strings"
)

const (
	// ContextWindow is the number of most recent rounds shown to the proposer.
	ContextWindow = 2
	// RoundPreviewLen bounds each text embedded in the proposer context.
	RoundPreviewLen = 300
	// FinalPreviewLen bounds each text embedded in the implementation context.
	FinalPreviewLen = 200

	// FirstRoundContext is the proposer context before any round exists.
	FirstRoundContext = "C'est le premier round de discussion."
)

// FallbackStructuredRequest is used when the structuring call fails.
func FallbackStructuredRequest(request string) string {
	return fmt.Sprintf("Objectif: %s\nContraintes: Aucune spécifiée\nCritères: Solution fonctionnelle", request)
}

// preview cuts s to at most n runes and marks it as an excerpt.
// The marker is appended even when nothing was cut.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + "..."
}

// RoundContext renders the proposer's view of the previous rounds: the last
// ContextWindow rounds with texts cut to RoundPreviewLen.
func RoundContext(rounds []Round, reviewer string) string {
	if len(rounds) == 0 {
		return FirstRoundContext
	}
	if len(rounds) > ContextWindow {
		rounds = rounds[len(rounds)-ContextWindow:]
	}

	var sb strings.Builder
	sb.WriteString("Rounds précédents:\n\n")
	for _, r := range rounds {
		fmt.Fprintf(&sb, "Round %d:\n", r.Index)
		fmt.Fprintf(&sb, "- Ta proposition: %s\n", preview(r.Proposal, RoundPreviewLen))
		fmt.Fprintf(&sb, "- Retour de %s: %s\n\n", reviewer, preview(r.Response, RoundPreviewLen))
	}
	return sb.String()
}

// FinalContext renders the debate summary handed to the implementer: the
// consensus line followed by every round with texts cut to FinalPreviewLen.
func FinalContext(rounds []Round, consensus bool, proposer, reviewer string) string {
	answer := "Non"
	if consensus {
		answer = "Oui"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Consensus atteint: %s\n\n", answer)
	sb.WriteString("Résumé du débat:\n")
	for _, r := range rounds {
		fmt.Fprintf(&sb, "\nRound %d:\n", r.Index)
		fmt.Fprintf(&sb, "- %s: %s\n", proposer, preview(r.Proposal, FinalPreviewLen))
		fmt.Fprintf(&sb, "- %s: %s\n", reviewer, preview(r.Response, FinalPreviewLen))
	}
	return sb.String()
}
