// internal/session/session.go
package session

import (
	"sort"
	"strings"

	"rondo/internal/input"
)

// Directive heads every synthesized unit. The compiler frontend honors it
// by suppressing unused-import diagnostics: declarations carried from
// prior rounds are expected to look unused in any one program.
const Directive = input.AllowUnusedDirective

// RuntimeAlias is the import alias of the display helper package compiled
// into every unit. The alias cannot collide with a user import because
// duplicate import paths under distinct names are legal.
const RuntimeAlias = "__rondo_fmt"

const scaffolding = "import " + RuntimeAlias + " \"fmt\"\n\nvar _ = " + RuntimeAlias + ".Sprint\n"

// Session is the append-only record of declarations accepted so far.
// It grows only when the evaluator commits a successful round and never
// shrinks for the life of the process.
type Session struct {
	attributes []string
	viewItems  []input.ViewItem
	items      []string
}

// New returns an empty session.
func New() *Session {
	return &Session{}
}

// Commit appends a committed round's declarations. The three appends are
// a single atomic step: the evaluator calls Commit exactly once, after a
// round has fully succeeded.
func (s *Session) Commit(in *input.Input) {
	s.attributes = append(s.attributes, in.Attributes...)
	s.viewItems = append(s.viewItems, in.ViewItems...)
	s.items = append(s.items, in.Items...)
}

// Attributes returns the accumulated attribute lines.
func (s *Session) Attributes() []string { return s.attributes }

// ViewItems returns the accumulated view-items.
func (s *Session) ViewItems() []input.ViewItem { return s.viewItems }

// Items returns the accumulated item declarations.
func (s *Session) Items() []string { return s.items }

// Synthesize merges the session with an optional new input and a trailing
// body into one compilable source unit. It is pure and deterministic:
// identical arguments always produce byte-identical text.
//
// View-items are stable-sorted so extern imports precede standard-library
// imports; within a kind, concatenation order is preserved.
func Synthesize(s *Session, in *input.Input, trailingBody string) string {
	attrs := s.attributes
	vitems := append([]input.ViewItem{}, s.viewItems...)
	items := s.items
	if in != nil {
		attrs = concat(attrs, in.Attributes)
		vitems = append(vitems, in.ViewItems...)
		items = concat(items, in.Items)
	}
	sort.SliceStable(vitems, func(i, j int) bool {
		return vitems[i].Kind < vitems[j].Kind
	})

	var sb strings.Builder
	sb.WriteString(Directive)
	sb.WriteByte('\n')
	for _, a := range attrs {
		sb.WriteString(a)
		sb.WriteByte('\n')
	}
	sb.WriteString("package main\n")
	if len(vitems) > 0 {
		sb.WriteByte('\n')
		for _, v := range vitems {
			sb.WriteString(v.Text)
			sb.WriteByte('\n')
		}
	}
	sb.WriteByte('\n')
	sb.WriteString(scaffolding)
	for _, it := range items {
		sb.WriteByte('\n')
		sb.WriteString(it)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	sb.WriteString(trailingBody)
	sb.WriteByte('\n')
	return sb.String()
}

func concat(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
