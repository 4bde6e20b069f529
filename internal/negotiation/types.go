package negotiation

import (
	"fmt"
	"strings"
	"time"
)

// State is a phase of the negotiation state machine.
type State string

const (
	StateStructuring     State = "STRUCTURING"
	StateRoundPropose    State = "ROUND_PROPOSE"
	StateRoundReview     State = "ROUND_REVIEW"
	StateConsensus       State = "CONSENSUS"
	StateRoundsExhausted State = "ROUNDS_EXHAUSTED"
	StateImplementing    State = "IMPLEMENTING"
	StateDone            State = "DONE"
	StateFailed          State = "FAILED"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Implementer selects which tool produces the final artifact.
type Implementer string

const (
	Claude Implementer = "claude"
	Gemini Implementer = "gemini"
)

// ParseImplementer accepts a tool name, case-insensitively.
func ParseImplementer(s string) (Implementer, error) {
	switch Implementer(strings.ToLower(strings.TrimSpace(s))) {
	case Claude:
		return Claude, nil
	case Gemini:
		return Gemini, nil
	default:
		return "", fmt.Errorf("invalid implementer %q (expected claude or gemini)", s)
	}
}

// DisplayName returns the capitalized tool name used in prompts.
func (i Implementer) DisplayName() string {
	switch i {
	case Claude:
		return "Claude"
	case Gemini:
		return "Gemini"
	default:
		return string(i)
	}
}

// Round is one proposal/response exchange. Indices start at 1.
type Round struct {
	Index    int    `json:"index"`
	Proposal string `json:"proposal"`
	Response string `json:"response"`
}

// Transcript is the append-only sequence of rounds of one session.
type Transcript struct {
	rounds []Round
}

// append adds the next round. Only the negotiator appends.
func (t *Transcript) append(r Round) {
	t.rounds = append(t.rounds, r)
}

// Len returns the number of rounds.
func (t *Transcript) Len() int {
	return len(t.rounds)
}

// Rounds returns a copy of the rounds in order.
func (t *Transcript) Rounds() []Round {
	return append([]Round(nil), t.rounds...)
}

// Record is everything known about one session. It is handed to the
// Recorder once the session reaches DONE or FAILED.
type Record struct {
	ID                  string      `json:"id"`
	Request             string      `json:"request"`
	StructuredRequest   string      `json:"structured_request"`
	StructuringFallback bool        `json:"structuring_fallback,omitempty"`
	Rounds              []Round     `json:"rounds"`
	RoundLimit          int         `json:"round_limit"`
	Consensus           bool        `json:"consensus"`
	RoundsUsed          int         `json:"rounds_used"`
	Implementer         Implementer `json:"implementer,omitempty"`
	Artifact            string      `json:"artifact,omitempty"`
	State               State       `json:"state"`
	Err                 string      `json:"error,omitempty"`
	StartedAt           time.Time   `json:"started_at"`
	EndedAt             time.Time   `json:"ended_at"`
}

// Result is the outcome of a successful session.
type Result struct {
	Artifact    string
	Implementer Implementer
	Consensus   bool
	RoundsUsed  int
	Record      Record
}
