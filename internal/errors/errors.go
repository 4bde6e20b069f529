// Package errors defines the typed failures surfaced by tool invocations and
// negotiation phases, plus small helpers for collecting and recovering errors.
//
// Import it as ierr to avoid clashing with the standard library:
//
//	import ierr "github.com/mark3labs/dualai/internal/errors"
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// Kind classifies a tool failure.
type Kind int

const (
	KindUnavailable Kind = iota
	KindTimeout
	KindEmptyOutput
	KindExecution
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindEmptyOutput:
		return "empty output"
	case KindExecution:
		return "execution error"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against a *ToolError of the same kind.
var (
	ErrToolUnavailable = stderrors.New("tool unavailable")
	ErrToolTimeout     = stderrors.New("tool timed out")
	ErrToolEmptyOutput = stderrors.New("tool produced no output")
	ErrToolExecution   = stderrors.New("tool execution failed")
)

// ToolError is returned by the process invoker when a tool cannot produce output.
type ToolError struct {
	Kind Kind
	Tool string // Tool name, e.g. "claude"
	Msg  string // Detail (stderr text for execution errors)
	Err  error  // Underlying cause, if any
}

// NewToolError creates a ToolError.
func NewToolError(kind Kind, tool, msg string, err error) *ToolError {
	return &ToolError{Kind: kind, Tool: tool, Msg: msg, Err: err}
}

func (e *ToolError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Tool)
	sb.WriteString(": ")
	sb.WriteString(e.Kind.String())
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	return sb.String()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *ToolError) Is(target error) bool {
	switch target {
	case ErrToolUnavailable:
		return e.Kind == KindUnavailable
	case ErrToolTimeout:
		return e.Kind == KindTimeout
	case ErrToolEmptyOutput:
		return e.Kind == KindEmptyOutput
	case ErrToolExecution:
		return e.Kind == KindExecution
	}
	return false
}

// PhaseError attaches negotiation phase context to a failure.
type PhaseError struct {
	Phase string // Phase name, e.g. "ROUND_PROPOSE"
	Round int    // Round index, 0 outside the round loop
	Err   error
}

func (e *PhaseError) Error() string {
	if e.Round > 0 {
		return fmt.Sprintf("%s (round %d): %v", e.Phase, e.Round, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// TransientError marks a failure that did not corrupt any state, such as a
// component that was slow to shut down.
type TransientError struct {
	Op  string
	Err error
}

// NewTransientError creates a TransientError for the given operation.
func NewTransientError(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// MultiError collects errors from independent steps (e.g. shutdown).
type MultiError struct {
	Errors []error
}

// Append adds err if non-nil.
func (m *MultiError) Append(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d error(s): %s", len(m.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// ErrorOrNil returns nil when nothing was collected.
func (m *MultiError) ErrorOrNil() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

// PanicError wraps a recovered panic value.
type PanicError struct {
	Value      any
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recover runs fn and converts a panic into a *PanicError.
func Recover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, StackTrace: string(debug.Stack())}
		}
	}()
	return fn()
}
