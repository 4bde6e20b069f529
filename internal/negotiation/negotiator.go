package negotiation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/dualai/internal/agent"
	"github.com/mark3labs/dualai/internal/consensus"
	ierr "github.com/mark3labs/dualai/internal/errors"
	"github.com/mark3labs/dualai/internal/logger"
	"github.com/mark3labs/dualai/internal/template"
)

const (
	// DefaultRounds is the round limit when none is configured.
	DefaultRounds = 3
	// DefaultImplementTimeout bounds the implementation call.
	DefaultImplementTimeout = 180 * time.Second
)

// ErrAlreadyRun is returned when Run is called twice on the same Negotiator.
var ErrAlreadyRun = errors.New("negotiation: session already run")

// Config holds configuration for one session.
type Config struct {
	Claude           agent.Agent   // Structurer and proposer
	Gemini           agent.Agent   // Reviewer
	Rounds           int           // Round limit (default: DefaultRounds)
	ImplementTimeout time.Duration // Implementation call timeout (default: DefaultImplementTimeout)
	Implementer      Implementer   // Used when Chooser is nil (default: Claude)
	Templates        *template.Set // Prompt templates (default: embedded)
	Extra            string        // Extra context appended to the structuring prompt
	ID               string        // Session ID (default: random UUID)

	Chooser  Chooser  // Optional, asked once after the round loop
	Observer Observer // Optional progress notifications
	Recorder Recorder // Optional persistence of the finished session
}

// Negotiator runs a single session. Construct one per request.
type Negotiator struct {
	cfg        Config
	templates  template.Set
	observer   Observer
	state      State
	transcript Transcript
	record     Record
	agreed     bool
	ran        bool
}

// New creates a Negotiator, filling defaults for unset fields.
func New(cfg Config) (*Negotiator, error) {
	if cfg.Claude == nil || cfg.Gemini == nil {
		return nil, fmt.Errorf("negotiation: both claude and gemini agents are required")
	}
	if cfg.Rounds < 0 {
		return nil, fmt.Errorf("negotiation: round limit must be at least 1, got %d", cfg.Rounds)
	}
	if cfg.Rounds == 0 {
		cfg.Rounds = DefaultRounds
	}
	if cfg.ImplementTimeout <= 0 {
		cfg.ImplementTimeout = DefaultImplementTimeout
	}
	if cfg.Implementer == "" {
		cfg.Implementer = Claude
	} else if _, err := ParseImplementer(string(cfg.Implementer)); err != nil {
		return nil, err
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	n := &Negotiator{
		cfg:       cfg,
		templates: template.Defaults(),
		observer:  cfg.Observer,
		state:     StateStructuring,
	}
	if cfg.Templates != nil {
		n.templates = *cfg.Templates
	}
	if n.observer == nil {
		n.observer = NopObserver{}
	}
	return n, nil
}

// ID returns the session ID.
func (n *Negotiator) ID() string {
	return n.cfg.ID
}

// State returns the current state.
func (n *Negotiator) State() State {
	return n.state
}

// Transcript returns a copy of the rounds completed so far.
func (n *Negotiator) Transcript() []Round {
	return n.transcript.Rounds()
}

func (n *Negotiator) transition(to State) {
	from := n.state
	n.state = to
	logger.Debug("Session %s: %s -> %s", n.cfg.ID, from, to)
	n.observer.StateChanged(from, to)
}

// Run drives the session to DONE or FAILED. Failures in the round loop or the
// implementation call are returned as *errors.PhaseError wrapping the tool
// error. The Recorder, if any, is called exactly once before Run returns.
func (n *Negotiator) Run(ctx context.Context, request string) (*Result, error) {
	if n.ran {
		return nil, ErrAlreadyRun
	}
	n.ran = true

	n.record = Record{
		ID:         n.cfg.ID,
		Request:    request,
		RoundLimit: n.cfg.Rounds,
		State:      n.state,
		StartedAt:  time.Now(),
	}
	logger.Info("Session %s started (rounds: %d)", n.cfg.ID, n.cfg.Rounds)
	n.observer.StateChanged("", StateStructuring)

	if err := n.structure(ctx, request); err != nil {
		return nil, n.fail(ctx, err)
	}

	agreed, err := n.negotiate(ctx)
	if err != nil {
		return nil, n.fail(ctx, err)
	}

	impl, err := n.chooseImplementer(ctx, agreed)
	if err != nil {
		return nil, n.fail(ctx, &ierr.PhaseError{Phase: string(StateImplementing), Err: err})
	}

	artifact, err := n.implement(ctx, impl, agreed)
	if err != nil {
		return nil, n.fail(ctx, err)
	}

	n.record.Artifact = artifact
	n.transition(StateDone)
	n.finish(ctx, nil)

	return &Result{
		Artifact:    artifact,
		Implementer: impl,
		Consensus:   agreed,
		RoundsUsed:  n.transcript.Len(),
		Record:      n.record,
	}, nil
}

// structure runs the STRUCTURING phase. Tool failures fall back to a
// structured request derived from the raw text; only cancellation fails.
func (n *Negotiator) structure(ctx context.Context, request string) error {
	prompt := template.Render(n.templates.Structure, template.Variables{
		Request: request,
		Extra:   extraBlock(n.cfg.Extra),
	})

	structured, err := n.cfg.Claude.Execute(ctx, prompt, 0)
	if err != nil {
		if ctx.Err() != nil {
			return &ierr.PhaseError{Phase: string(StateStructuring), Err: ctx.Err()}
		}
		logger.Warn("Structuring failed, using fallback: %v", err)
		structured = FallbackStructuredRequest(request)
		n.record.StructuringFallback = true
		n.observer.StructuringFallback(err)
	}

	n.record.StructuredRequest = structured
	n.observer.Structured(structured)
	return nil
}

// negotiate runs the round loop and reports whether the reviewer agreed.
func (n *Negotiator) negotiate(ctx context.Context) (bool, error) {
	proposer := Claude.DisplayName()
	reviewer := Gemini.DisplayName()

	for index := 1; index <= n.cfg.Rounds; index++ {
		n.transition(StateRoundPropose)
		n.observer.RoundStarted(index, n.cfg.Rounds)
		logger.Info("Round %d/%d", index, n.cfg.Rounds)

		proposal, err := n.cfg.Claude.Execute(ctx, template.Render(n.templates.Propose, template.Variables{
			Structured: n.record.StructuredRequest,
			Context:    RoundContext(n.transcript.Rounds(), reviewer),
			Proposer:   proposer,
			Reviewer:   reviewer,
		}), 0)
		if err != nil {
			return false, &ierr.PhaseError{Phase: string(StateRoundPropose), Round: index, Err: err}
		}
		n.observer.Proposal(index, proposal)

		n.transition(StateRoundReview)
		response, err := n.cfg.Gemini.Execute(ctx, template.Render(n.templates.Review, template.Variables{
			Structured: n.record.StructuredRequest,
			Proposal:   proposal,
			Proposer:   proposer,
			Reviewer:   reviewer,
		}), 0)
		if err != nil {
			return false, &ierr.PhaseError{Phase: string(StateRoundReview), Round: index, Err: err}
		}
		n.observer.Response(index, response)

		n.transcript.append(Round{Index: index, Proposal: proposal, Response: response})

		analysis := consensus.Analyze(response)
		n.observer.ConsensusChecked(index, analysis)
		logger.Debug("Round %d agreement: keyword=%t objections=%v pattern=%t",
			index, analysis.KeywordHit, analysis.Objections, analysis.PatternHit)

		if analysis.Agreed {
			logger.Info("Consensus reached at round %d", index)
			n.agreed = true
			n.transition(StateConsensus)
			return true, nil
		}
	}

	logger.Info("No consensus after %d rounds", n.cfg.Rounds)
	n.transition(StateRoundsExhausted)
	return false, nil
}

func (n *Negotiator) chooseImplementer(ctx context.Context, agreed bool) (Implementer, error) {
	if n.cfg.Chooser == nil {
		return n.cfg.Implementer, nil
	}
	impl, err := n.cfg.Chooser(ctx, agreed)
	if err != nil {
		return "", fmt.Errorf("choosing implementer: %w", err)
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return ParseImplementer(string(impl))
}

// implement runs the IMPLEMENTING phase with the chosen tool.
func (n *Negotiator) implement(ctx context.Context, impl Implementer, agreed bool) (string, error) {
	n.record.Implementer = impl
	n.transition(StateImplementing)
	n.observer.Implementing(impl)
	logger.Info("Implementing with %s", impl)

	rounds := n.transcript.Rounds()
	prompt := template.Render(n.templates.Implement, template.Variables{
		Structured:  n.record.StructuredRequest,
		Context:     FinalContext(rounds, agreed, Claude.DisplayName(), Gemini.DisplayName()),
		Implementer: impl.DisplayName(),
	})

	tool := n.cfg.Claude
	if impl == Gemini {
		tool = n.cfg.Gemini
	}

	artifact, err := tool.Execute(ctx, prompt, n.cfg.ImplementTimeout)
	if err != nil {
		return "", &ierr.PhaseError{Phase: string(StateImplementing), Err: err}
	}
	return artifact, nil
}

// fail moves the session to FAILED and records it.
func (n *Negotiator) fail(ctx context.Context, err error) error {
	logger.Error("Session %s failed: %v", n.cfg.ID, err)
	n.transition(StateFailed)
	n.finish(ctx, err)
	return err
}

// finish completes the record and hands it to the recorder and observers.
// Recorder failures are logged; they never change the session outcome.
func (n *Negotiator) finish(ctx context.Context, err error) {
	n.record.Rounds = n.transcript.Rounds()
	n.record.RoundsUsed = n.transcript.Len()
	n.record.Consensus = n.agreed
	n.record.State = n.state
	n.record.EndedAt = time.Now()
	if err != nil {
		n.record.Err = err.Error()
	}

	if n.cfg.Recorder != nil {
		// The session context may already be cancelled; the record must still land.
		if rerr := n.cfg.Recorder.Record(context.WithoutCancel(ctx), n.record); rerr != nil {
			logger.Warn("Failed to record session %s: %v", n.cfg.ID, rerr)
		}
	}
	n.observer.Finished(n.record)
}

func extraBlock(extra string) string {
	if extra == "" {
		return ""
	}
	return "\n\nContexte supplémentaire:\n" + extra
}
