// internal/repl/repl.go
package repl

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"plugin"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"rondo/internal/compile"
	"rondo/internal/engine"
	rerrors "rondo/internal/errors"
	"rondo/internal/input"
	"rondo/internal/session"
)

const (
	// PromptDefault starts a round.
	PromptDefault = "rondo=> "
	// PromptMore continues an incomplete round.
	PromptMore = "rondo.> "
	// PromptBlock reads a `:block` round.
	PromptBlock = "rondo+> "
)

// commands is the fixed table of command names; lookup is by prefix.
var commands = []string{
	"block",
	"type",
}

// lookupCommand resolves a possibly abbreviated command name to its full
// form, e.g. "b" resolves to "block".
func lookupCommand(name string) (string, bool) {
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, name) {
			return cmd, true
		}
	}
	return "", false
}

// fatalf terminates the process on a FatalEngineError. Overridable so
// invariant paths are testable.
var fatalf = log.Fatalf

// executor is the slice of the execution engine the evaluator needs.
type executor interface {
	AddModule(source string) (*engine.Module, error)
	GetFunction(name string) (plugin.Symbol, bool)
	WithAnalysis(source string, probe func(*compile.Analysis)) error
}

// Repl evaluates rounds of input and maintains the persistent session.
//
// One round runs fully to completion before the next begins. A round
// that compiles successfully commits its declarations even if executing
// it faults at run time: the partially-broken declaration stays
// available, which is a deliberate choice, not an accident.
type Repl struct {
	eng     executor
	session *session.Session
	// readBlock makes the next round read as one multi-line block.
	readBlock bool
	out       io.Writer
}

// New constructs a Repl with additional native-library search paths.
func New(libs []string) (*Repl, error) {
	eng, err := engine.New(libs)
	if err != nil {
		return nil, err
	}
	return &Repl{eng: eng, session: session.New(), out: os.Stdout}, nil
}

// Run reads and evaluates rounds interactively until end of input. On an
// interactive terminal EOF prints a trailing newline before exiting.
func (r *Repl) Run() {
	more := false
	rd := input.NewInputReader()
	defer rd.Close()

	for {
		var res input.Result
		if r.readBlock {
			r.readBlock = false
			res = rd.ReadBlockInput(PromptBlock)
		} else {
			prompt := PromptDefault
			if more {
				prompt = PromptMore
			}
			res = rd.ReadInput(prompt)
		}

		switch res.Type {
		case input.ResultCommand:
			r.handleCommand(res.Name, res.Args, res.HasArgs)
		case input.ResultProgram:
			more = false
			r.handleInput(res.Program)
		case input.ResultEmpty:
		case input.ResultMore:
			more = true
		case input.ResultEOF:
			if isatty.IsTerminal(os.Stdin.Fd()) {
				fmt.Fprintln(r.out)
			}
			return
		case input.ResultError:
			if res.Err != "" {
				fmt.Fprintln(r.out, res.Err)
			}
			more = false
		}
	}
}

// RunFile evaluates rounds from the named file sequentially. The first
// fatal parse or compile failure stops processing. Returns true when the
// whole file was evaluated.
func (r *Repl) RunFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(r.out, "%s: %v\n", progName(), err)
		return false
	}
	defer f.Close()

	rd := input.NewFileReader(f)
	for {
		if r.readBlock {
			fmt.Fprintf(r.out, "%s: `block` command is not necessary when running a file\n", progName())
			return false
		}

		res := rd.ReadInput()
		switch res.Type {
		case input.ResultProgram:
			if !r.evalRound(res.Program) {
				return false
			}
		case input.ResultCommand:
			r.handleCommand(res.Name, res.Args, res.HasArgs)
		case input.ResultError:
			if res.Err != "" {
				fmt.Fprintf(r.out, "%s: %s\n", progName(), res.Err)
			}
			return false
		case input.ResultEOF:
			return true
		}
	}
}

// RunCommand runs a single command, with or without its `:` marker.
func (r *Repl) RunCommand(cmd string) {
	res := input.ParseCommand(strings.TrimPrefix(strings.TrimSpace(cmd), ":"))
	switch res.Type {
	case input.ResultCommand:
		r.handleCommand(res.Name, res.Args, res.HasArgs)
	case input.ResultError:
		if res.Err != "" {
			fmt.Fprintln(r.out, res.Err)
		}
	}
}

// Eval evaluates a single round of input text.
func (r *Repl) Eval(text string) {
	if res := input.Parse(text); res.Type == input.ResultProgram {
		r.handleInput(res.Program)
	}
}

func (r *Repl) handleCommand(name, args string, hasArgs bool) {
	full, ok := lookupCommand(name)
	if !ok {
		fmt.Fprintf(r.out, "unrecognized command `%s`\n", name)
		return
	}
	switch full {
	case "block":
		if hasArgs {
			fmt.Fprintln(r.out, "command `block` takes no arguments")
			return
		}
		r.readBlock = true
	case "type":
		if !hasArgs {
			fmt.Fprintln(r.out, "command `type` expects an expression")
			return
		}
		r.typeCommand(args)
	}
}

func (r *Repl) handleInput(in *input.Input) {
	r.evalRound(in)
}

// evalRound runs one program round: synthesize, compile, load, run, then
// commit or discard. Returns false on a compile failure, which leaves
// the session untouched.
func (r *Repl) evalRound(in *input.Input) bool {
	entry, body := entryFunction(in)

	prog := session.Synthesize(r.session, in, body)

	if _, err := r.eng.AddModule(prog); err != nil {
		if rerrors.IsFatal(err) {
			fatalf("%v", err)
			return false
		}
		fmt.Fprintln(r.out, err.Error())
		return false
	}

	sym, ok := r.eng.GetFunction(entry)
	if !ok {
		// A successful compile guarantees the entry symbol exists.
		fatalf("%v", rerrors.New(rerrors.FatalEngineError, "entry symbol %s not found", entry))
		return false
	}
	fn, ok := sym.(func())
	if !ok {
		fatalf("%v", rerrors.New(rerrors.FatalEngineError, "entry symbol %s has wrong type", entry))
		return false
	}

	fn()

	// The module stays loaded: goroutines started by the round may still
	// be running its code.

	r.session.Commit(in)
	return true
}

// entryFunction generates the uniquely named entry function for a round.
// The entry wraps an inner function in a recover boundary so a panic in
// user code is reported instead of terminating the process; the final
// bare expression, if any, is rewritten to display its value.
func entryFunction(in *input.Input) (name, body string) {
	suffix := uniqueSuffix()
	name = "Round_" + suffix
	inner := "roundInner_" + suffix

	stmts := append([]string(nil), in.Statements...)
	if in.LastExpr && len(stmts) > 0 {
		last := &stmts[len(stmts)-1]
		*last = session.RuntimeAlias + ".Println(" + *last + ")"
	}

	body = fmt.Sprintf(`func %s() {
	defer func() {
		if e := recover(); e != nil {
			%s.Println("panic:", e)
		}
	}()
	%s()
}

func %s() {
%s
}`, name, session.RuntimeAlias, inner, inner, strings.Join(stmts, "\n"))
	return name, body
}

func uniqueSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func progName() string {
	return filepath.Base(os.Args[0])
}
