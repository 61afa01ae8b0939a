// internal/errors/errors.go
package errors

import (
	"fmt"
	"strings"
)

// Kind classifies a REPL error by how the evaluator must react to it.
type Kind string

const (
	// ParseError means the round's text could not be read as a program or
	// command. Reported to the user; no state changes.
	ParseError Kind = "ParseError"

	// CompileFailure means the synthesized program was rejected by the
	// toolchain. Diagnostics are reported; no module is created and the
	// session is unchanged.
	CompileFailure Kind = "CompileFailure"

	// RuntimeFault means user code panicked inside the generated entry
	// boundary. It is reported but does not block committing the round's
	// declarations; compilation success alone gates commit.
	RuntimeFault Kind = "RuntimeFault"

	// FatalEngineError means a broken invariant or an unrecoverable
	// environment failure: missing sysroot, a native dependency that failed
	// to load, bootstrap failure, or a generated entry symbol that cannot
	// be resolved. These terminate the process.
	FatalEngineError Kind = "FatalEngineError"
)

// ReplError is an error tagged with its evaluator-facing kind and an
// optional list of toolchain diagnostic lines.
type ReplError struct {
	Kind        Kind
	Message     string
	Diagnostics []string
}

func (e *ReplError) Error() string {
	if len(e.Diagnostics) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s\n", e.Kind, e.Message))
	for _, d := range e.Diagnostics {
		sb.WriteString("  ")
		sb.WriteString(d)
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

// New creates a ReplError of the given kind.
func New(kind Kind, format string, args ...interface{}) *ReplError {
	return &ReplError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithDiagnostics attaches toolchain diagnostic lines to the error.
func (e *ReplError) WithDiagnostics(lines []string) *ReplError {
	e.Diagnostics = append(e.Diagnostics, lines...)
	return e
}

// IsFatal reports whether err carries a kind that must terminate the
// process rather than be reported and survived.
func IsFatal(err error) bool {
	re, ok := err.(*ReplError)
	return ok && re.Kind == FatalEngineError
}

// KindOf returns the kind of err, or the empty Kind for foreign errors.
func KindOf(err error) Kind {
	if re, ok := err.(*ReplError); ok {
		return re.Kind
	}
	return ""
}
