package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/dualai/internal/logger"
	"github.com/mark3labs/dualai/internal/nats"
	"github.com/mark3labs/dualai/internal/negotiation"
	"github.com/nats-io/nats.go/jetstream"
)

// Event represents a generic event stored in the JetStream event log.
// A session is stored as one "session" event, one "round" event per
// completed round and one "outcome" event.
type Event struct {
	ID        string          `json:"id"`        // NATS message sequence ID
	Timestamp time.Time       `json:"timestamp"` // When the event occurred
	Session   string          `json:"session"`   // Session ID
	Type      string          `json:"type"`      // Event type: session, round, outcome
	Action    string          `json:"action"`    // Action type: start, add, done, failed
	Meta      json.RawMessage `json:"meta"`      // Action-specific metadata
	Data      string          `json:"data"`      // Primary content (request, artifact)
}

// Event actions
const (
	ActionStart  = "start"
	ActionAdd    = "add"
	ActionDone   = "done"
	ActionFailed = "failed"
)

type sessionMeta struct {
	RoundLimit          int       `json:"round_limit"`
	StructuredRequest   string    `json:"structured_request"`
	StructuringFallback bool      `json:"structuring_fallback,omitempty"`
	StartedAt           time.Time `json:"started_at"`
}

type outcomeMeta struct {
	State       negotiation.State       `json:"state"`
	Consensus   bool                    `json:"consensus"`
	RoundsUsed  int                     `json:"rounds_used"`
	Implementer negotiation.Implementer `json:"implementer,omitempty"`
	Error       string                  `json:"error,omitempty"`
	EndedAt     time.Time               `json:"ended_at"`
}

// Store persists negotiation sessions through JetStream event sourcing.
type Store struct {
	js     jetstream.JetStream // JetStream context for operations
	stream jetstream.Stream    // The dualai_events stream
}

var _ negotiation.Recorder = (*Store)(nil)

// NewStore creates a new Store instance with the given JetStream context and stream.
func NewStore(js jetstream.JetStream, stream jetstream.Stream) *Store {
	return &Store{
		js:     js,
		stream: stream,
	}
}

// PublishEvent appends an event to the JetStream event log.
// Events are published to subjects following the pattern: dualai.{session}.{type}
func (s *Store) PublishEvent(ctx context.Context, event Event) (*jetstream.PubAck, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event: %v", err)
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := nats.SubjectForEvent(event.Session, event.Type)
	logger.Debug("Publishing event: session=%s type=%s action=%s", event.Session, event.Type, event.Action)

	ack, err := s.js.Publish(ctx, subject, data)
	if err != nil {
		logger.Error("Failed to publish event to subject %s: %v", subject, err)
		return nil, fmt.Errorf("failed to publish event: %w", err)
	}
	return ack, nil
}

// Record stores a finished session as its event sequence.
func (s *Store) Record(ctx context.Context, rec negotiation.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record has no session ID")
	}

	start, err := json.Marshal(sessionMeta{
		RoundLimit:          rec.RoundLimit,
		StructuredRequest:   rec.StructuredRequest,
		StructuringFallback: rec.StructuringFallback,
		StartedAt:           rec.StartedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session metadata: %w", err)
	}
	events := []Event{{
		Session:   rec.ID,
		Type:      nats.EventTypeSession,
		Action:    ActionStart,
		Meta:      start,
		Data:      rec.Request,
		Timestamp: rec.StartedAt,
	}}

	for _, r := range rec.Rounds {
		meta, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal round %d: %w", r.Index, err)
		}
		events = append(events, Event{
			Session: rec.ID,
			Type:    nats.EventTypeRound,
			Action:  ActionAdd,
			Meta:    meta,
		})
	}

	outcome, err := json.Marshal(outcomeMeta{
		State:       rec.State,
		Consensus:   rec.Consensus,
		RoundsUsed:  rec.RoundsUsed,
		Implementer: rec.Implementer,
		Error:       rec.Err,
		EndedAt:     rec.EndedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}
	action := ActionDone
	if rec.State == negotiation.StateFailed {
		action = ActionFailed
	}
	events = append(events, Event{
		Session:   rec.ID,
		Type:      nats.EventTypeOutcome,
		Action:    action,
		Meta:      outcome,
		Data:      rec.Artifact,
		Timestamp: rec.EndedAt,
	})

	for _, e := range events {
		if _, err := s.PublishEvent(ctx, e); err != nil {
			return err
		}
	}

	logger.Info("Recorded session %s (%d rounds, %s)", rec.ID, len(rec.Rounds), rec.State)
	return nil
}
