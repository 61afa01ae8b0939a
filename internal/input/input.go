// internal/input/input.go
package input

// AllowUnusedDirective marks a synthesized unit whose unused imports must
// not be diagnosed. The synthesizer emits it; the compiler frontend
// honors it.
const AllowUnusedDirective = "//rondo:allow-unused"

// ViewKind tags a view-item with its sort group. Extern imports (packages
// resolved outside the standard library) always sort before use imports;
// the integer value is the sort key.
type ViewKind int

const (
	KindExtern ViewKind = iota
	KindUse
)

// ViewItem is one import carried into every synthesized program.
type ViewItem struct {
	Kind ViewKind
	Text string
}

// Input is one parsed program fragment. It is immutable once produced by
// the parser; the evaluator and synthesizer only read it.
type Input struct {
	// Attributes are compiler directive lines applied to the whole unit.
	Attributes []string
	// ViewItems are imports, one per import spec.
	ViewItems []ViewItem
	// Items are top-level declarations (func, type, import-free decls).
	Items []string
	// Statements run inside the generated entry function.
	Statements []string
	// LastExpr is true when the final statement is a bare value-producing
	// expression without an explicit `;` terminator.
	LastExpr bool
}

// ResultType discriminates the outcomes of reading one round of input.
type ResultType int

const (
	// ResultCommand is a `:name args` command line.
	ResultCommand ResultType = iota
	// ResultProgram is a complete program fragment.
	ResultProgram
	// ResultEmpty is blank input; the round is skipped.
	ResultEmpty
	// ResultMore means the text is incomplete and more lines are needed.
	ResultMore
	// ResultEOF means the input source is exhausted.
	ResultEOF
	// ResultError is a parse failure; Err may carry a message.
	ResultError
)

// Result is the outcome of parsing one round.
type Result struct {
	Type    ResultType
	Name    string // command name, for ResultCommand
	Args    string // command argument text
	HasArgs bool
	Program *Input // for ResultProgram
	Err     string // for ResultError; may be empty
}

func command(name, args string, hasArgs bool) Result {
	return Result{Type: ResultCommand, Name: name, Args: args, HasArgs: hasArgs}
}

func program(in *Input) Result {
	return Result{Type: ResultProgram, Program: in}
}

func parseError(msg string) Result {
	return Result{Type: ResultError, Err: msg}
}
