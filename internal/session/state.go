package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/dualai/internal/logger"
	"github.com/mark3labs/dualai/internal/nats"
	"github.com/mark3labs/dualai/internal/negotiation"
	"github.com/nats-io/nats.go/jetstream"
)

// ErrNotFound is returned when no events exist for a session ID.
var ErrNotFound = errors.New("session not found")

// Summary is the list view of a stored session.
type Summary struct {
	ID          string
	Request     string
	State       negotiation.State // Empty when the session never recorded an outcome
	Consensus   bool
	RoundsUsed  int
	Implementer negotiation.Implementer
	StartedAt   time.Time
}

// Apply applies an event to rec, implementing the reduce pattern.
func Apply(rec *negotiation.Record, event Event) {
	switch event.Type {
	case nats.EventTypeSession:
		var meta sessionMeta
		if err := json.Unmarshal(event.Meta, &meta); err != nil {
			logger.Warn("Malformed session metadata (id=%s): %v", event.ID, err)
		}
		rec.ID = event.Session
		rec.Request = event.Data
		rec.RoundLimit = meta.RoundLimit
		rec.StructuredRequest = meta.StructuredRequest
		rec.StructuringFallback = meta.StructuringFallback
		rec.StartedAt = meta.StartedAt
		if rec.StartedAt.IsZero() {
			rec.StartedAt = event.Timestamp
		}

	case nats.EventTypeRound:
		var round negotiation.Round
		if err := json.Unmarshal(event.Meta, &round); err != nil {
			logger.Warn("Malformed round event (id=%s): %v", event.ID, err)
			return
		}
		rec.Rounds = append(rec.Rounds, round)

	case nats.EventTypeOutcome:
		var meta outcomeMeta
		if err := json.Unmarshal(event.Meta, &meta); err != nil {
			logger.Warn("Malformed outcome metadata (id=%s): %v", event.ID, err)
		}
		rec.State = meta.State
		rec.Consensus = meta.Consensus
		rec.RoundsUsed = meta.RoundsUsed
		rec.Implementer = meta.Implementer
		rec.Err = meta.Error
		rec.EndedAt = meta.EndedAt
		rec.Artifact = event.Data
	}
}

// readEvents feeds every event matching the filter subjects to fn, in
// stream order. Malformed messages are skipped.
func (s *Store) readEvents(ctx context.Context, fn func(Event), filters ...string) error {
	cfg := jetstream.ConsumerConfig{
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	if len(filters) == 1 {
		cfg.FilterSubject = filters[0]
	} else {
		cfg.FilterSubjects = filters
	}

	consumer, err := s.stream.CreateOrUpdateConsumer(ctx, cfg)
	if err != nil {
		logger.Error("Failed to create consumer: %v", err)
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	const batchSize = 1000
	malformed := 0
	for {
		msgs, err := consumer.FetchNoWait(batchSize)
		if err != nil {
			break
		}

		count := 0
		for msg := range msgs.Messages() {
			count++
			var event Event
			if err := json.Unmarshal(msg.Data(), &event); err != nil {
				malformed++
				_ = msg.Ack()
				continue
			}
			if event.ID == "" {
				if meta, err := msg.Metadata(); err == nil {
					event.ID = fmt.Sprintf("%d", meta.Sequence.Stream)
				}
			}
			fn(event)
			_ = msg.Ack()
		}

		if count < batchSize {
			break
		}
	}

	if malformed > 0 {
		logger.Warn("Skipped %d malformed events", malformed)
	}
	return nil
}

// LoadRecord reconstructs a session by reducing its events.
func (s *Store) LoadRecord(ctx context.Context, id string) (*negotiation.Record, error) {
	logger.Debug("Loading record for session: %s", id)

	rec := &negotiation.Record{}
	events := 0
	err := s.readEvents(ctx, func(e Event) {
		events++
		Apply(rec, e)
	}, nats.SubjectForSession(id))
	if err != nil {
		return nil, err
	}
	if events == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// List returns a summary of every stored session, newest first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	byID := map[string]*negotiation.Record{}
	err := s.readEvents(ctx, func(e Event) {
		rec, ok := byID[e.Session]
		if !ok {
			rec = &negotiation.Record{ID: e.Session}
			byID[e.Session] = rec
		}
		Apply(rec, e)
	}, nats.SubjectForType(nats.EventTypeSession), nats.SubjectForType(nats.EventTypeOutcome))
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(byID))
	for _, rec := range byID {
		summaries = append(summaries, Summary{
			ID:          rec.ID,
			Request:     rec.Request,
			State:       rec.State,
			Consensus:   rec.Consensus,
			RoundsUsed:  rec.RoundsUsed,
			Implementer: rec.Implementer,
			StartedAt:   rec.StartedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].StartedAt.Equal(summaries[j].StartedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	return summaries, nil
}

// ResolveID resolves a session ID or prefix to a full session ID.
// Supports prefix matching with minimum 8 characters.
// Returns an error if the prefix is ambiguous or not found.
func (s *Store) ResolveID(ctx context.Context, idOrPrefix string) (string, error) {
	summaries, err := s.List(ctx)
	if err != nil {
		return "", err
	}

	for _, sum := range summaries {
		if sum.ID == idOrPrefix {
			return idOrPrefix, nil
		}
	}

	if len(idOrPrefix) < 8 {
		return "", fmt.Errorf("session ID prefix must be at least 8 characters (got %d)", len(idOrPrefix))
	}

	var matches []string
	for _, sum := range summaries {
		if strings.HasPrefix(sum.ID, idOrPrefix) {
			matches = append(matches, sum.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous session ID prefix: %s (matches %d sessions)", idOrPrefix, len(matches))
	}
}
