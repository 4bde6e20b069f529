package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Subject pattern constants and helpers
const (
	StreamName = "dualai_events"

	subjectPrefix = "dualai"

	// Event types
	EventTypeSession = "session"
	EventTypeRound   = "round"
	EventTypeOutcome = "outcome"
)

// SubjectAll matches every event of every session.
const SubjectAll = subjectPrefix + ".>"

// SubjectForSession returns the wildcard subject pattern for all events in a session.
// Example: "dualai.<id>.>"
func SubjectForSession(session string) string {
	return fmt.Sprintf("%s.%s.>", subjectPrefix, session)
}

// SubjectForEvent returns the specific subject for an event type in a session.
// Example: "dualai.<id>.round"
func SubjectForEvent(session, eventType string) string {
	return fmt.Sprintf("%s.%s.%s", subjectPrefix, session, eventType)
}

// SubjectForType matches one event type across all sessions.
// Example: "dualai.*.outcome"
func SubjectForType(eventType string) string {
	return fmt.Sprintf("%s.*.%s", subjectPrefix, eventType)
}

// SetupStream creates or updates the JetStream stream for dualai events.
// The stream captures all events for all sessions with 90-day retention.
func SetupStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	return js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectAll},
		Storage:  jetstream.FileStorage,
		MaxAge:   90 * 24 * time.Hour,
	})
}
