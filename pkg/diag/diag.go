// Package diag collects non-fatal compilation diagnostics.
//
// Design: a diagnostic is a value attributed to a phase, a method and, when it
// comes from a bytecode instruction, the instruction index and opcode. Lists are
// owned by a single method compilation and merged by the pipeline.
package diag

import (
	"fmt"

	"github.com/GriffinCanCode/cdrv-compiler/pkg/logger"
)

// Severity of a diagnostic
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "unknown"
}

// Phases
const (
	PhaseBytecode = "bytecode"
	PhaseNative   = "native"
)

// NoIndex marks a diagnostic that is not tied to an instruction.
const NoIndex = -1

// Diagnostic is one reported problem.
type Diagnostic struct {
	Phase    string
	Method   string
	Index    int
	Op       string
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	if d.Index == NoIndex {
		return fmt.Sprintf("%s: %s [%s]: %s", d.Severity, d.Method, d.Phase, d.Message)
	}
	return fmt.Sprintf("%s: %s [%s] %04d %s: %s", d.Severity, d.Method, d.Phase, d.Index, d.Op, d.Message)
}

// List accumulates diagnostics in report order.
type List struct {
	items []Diagnostic
}

// Add records d and logs it.
func (l *List) Add(d Diagnostic) {
	l.items = append(l.items, d)
	if d.Severity == Info {
		logger.Debug(d.Message, "phase", d.Phase, "method", d.Method, "index", d.Index, "op", d.Op)
		return
	}
	logger.LogDiagnostic(d.Phase, d.Method, d.Index, d.Op, d.Message)
}

// Append copies every item of other into l without logging them again.
func (l *List) Append(other *List) {
	if other == nil {
		return
	}
	l.items = append(l.items, other.items...)
}

// Items returns a copy of the recorded diagnostics.
func (l *List) Items() []Diagnostic {
	out := make([]Diagnostic, len(l.items))
	copy(out, l.items)
	return out
}

func (l *List) Len() int { return len(l.items) }

// Count returns the number of diagnostics at severity s.
func (l *List) Count(s Severity) int {
	n := 0
	for _, d := range l.items {
		if d.Severity == s {
			n++
		}
	}
	return n
}
