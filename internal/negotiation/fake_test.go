package negotiation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/dualai/internal/consensus"
	ierr "github.com/mark3labs/dualai/internal/errors"
)

// call is one recorded Execute invocation.
type call struct {
	Prompt  string
	Timeout time.Duration
}

// fakeAgent answers Execute from a script of replies; a reply with a non-nil
// err fails the call. Once the script runs out the last reply repeats.
type fakeAgent struct {
	mu      sync.Mutex
	name    string
	replies []reply
	calls   []call
}

type reply struct {
	out string
	err error
}

func newFakeAgent(name string, outputs ...string) *fakeAgent {
	f := &fakeAgent{name: name}
	for _, o := range outputs {
		f.replies = append(f.replies, reply{out: o})
	}
	return f
}

func (f *fakeAgent) then(out string, err error) *fakeAgent {
	f.replies = append(f.replies, reply{out: out, err: err})
	return f
}

func (f *fakeAgent) Name() string    { return f.name }
func (f *fakeAgent) Available() bool { return true }

func (f *fakeAgent) Execute(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call{Prompt: prompt, Timeout: timeout})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(f.replies) == 0 {
		return "", ierr.NewToolError(ierr.KindEmptyOutput, f.name, "", nil)
	}
	i := len(f.calls) - 1
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	r := f.replies[i]
	if r.err != nil {
		return "", r.err
	}
	return r.out, nil
}

func (f *fakeAgent) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

// recordingObserver captures notifications as strings.
type recordingObserver struct {
	NopObserver
	events   []string
	finished []Record
}

func (o *recordingObserver) StateChanged(from, to State) {
	o.events = append(o.events, string(to))
}

func (o *recordingObserver) StructuringFallback(err error) {
	o.events = append(o.events, "fallback")
}

func (o *recordingObserver) RoundStarted(index, limit int) {
	o.events = append(o.events, fmt.Sprintf("round %d/%d", index, limit))
}

func (o *recordingObserver) ConsensusChecked(index int, a consensus.Analysis) {
	o.events = append(o.events, fmt.Sprintf("agreed=%t", a.Agreed))
}

func (o *recordingObserver) Implementing(impl Implementer) {
	o.events = append(o.events, "implement "+string(impl))
}

func (o *recordingObserver) Finished(rec Record) {
	o.finished = append(o.finished, rec)
}

type memoryRecorder struct {
	records []Record
	err     error
}

func (r *memoryRecorder) Record(ctx context.Context, rec Record) error {
	r.records = append(r.records, rec)
	return r.err
}
