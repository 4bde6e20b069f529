package negotiation

import (
	"context"

	"github.com/mark3labs/dualai/internal/consensus"
)

// Observer receives progress notifications from a running session.
// Calls happen synchronously on the session goroutine, in order.
type Observer interface {
	StateChanged(from, to State)
	// StructuringFallback reports that the structuring call failed and the
	// fallback structured request is used instead.
	StructuringFallback(err error)
	Structured(text string)
	RoundStarted(index, limit int)
	Proposal(index int, text string)
	Response(index int, text string)
	ConsensusChecked(index int, analysis consensus.Analysis)
	Implementing(impl Implementer)
	Finished(rec Record)
}

// NopObserver ignores every notification. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) StateChanged(from, to State)              {}
func (NopObserver) StructuringFallback(err error)            {}
func (NopObserver) Structured(text string)                   {}
func (NopObserver) RoundStarted(index, limit int)            {}
func (NopObserver) Proposal(index int, text string)          {}
func (NopObserver) Response(index int, text string)          {}
func (NopObserver) ConsensusChecked(int, consensus.Analysis) {}
func (NopObserver) Implementing(impl Implementer)            {}
func (NopObserver) Finished(rec Record)                      {}

// Observers fans notifications out to several observers in order.
// Nil entries are skipped.
func Observers(obs ...Observer) Observer {
	m := multiObserver{}
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

type multiObserver []Observer

func (m multiObserver) StateChanged(from, to State) {
	for _, o := range m {
		o.StateChanged(from, to)
	}
}

func (m multiObserver) StructuringFallback(err error) {
	for _, o := range m {
		o.StructuringFallback(err)
	}
}

func (m multiObserver) Structured(text string) {
	for _, o := range m {
		o.Structured(text)
	}
}

func (m multiObserver) RoundStarted(index, limit int) {
	for _, o := range m {
		o.RoundStarted(index, limit)
	}
}

func (m multiObserver) Proposal(index int, text string) {
	for _, o := range m {
		o.Proposal(index, text)
	}
}

func (m multiObserver) Response(index int, text string) {
	for _, o := range m {
		o.Response(index, text)
	}
}

func (m multiObserver) ConsensusChecked(index int, analysis consensus.Analysis) {
	for _, o := range m {
		o.ConsensusChecked(index, analysis)
	}
}

func (m multiObserver) Implementing(impl Implementer) {
	for _, o := range m {
		o.Implementing(impl)
	}
}

func (m multiObserver) Finished(rec Record) {
	for _, o := range m {
		o.Finished(rec)
	}
}

// Recorder persists a finished session.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Chooser picks the implementer once the round loop is over.
// consensus reports whether the reviewer agreed.
type Chooser func(ctx context.Context, consensus bool) (Implementer, error)
