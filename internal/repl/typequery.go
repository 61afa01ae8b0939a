// internal/repl/typequery.go
package repl

import (
	"fmt"
	"go/ast"

	"rondo/internal/compile"
	"rondo/internal/session"
)

// typeCommand reports the statically inferred type of an expression. It
// synthesizes a probe function whose body discards the expression's
// value, compiles to the analysis stage only, and reads the type the
// checker recorded for the expression. The session is never touched.
func (r *Repl) typeCommand(expr string) {
	name := "Probe_" + uniqueSuffix()
	body := fmt.Sprintf("func %s() {\n\t_ = (%s)\n}", name, expr)

	prog := session.Synthesize(r.session, nil, body)

	var ty string
	var found bool
	err := r.eng.WithAnalysis(prog, func(a *compile.Analysis) {
		ty, found = exprType(a, name)
	})
	if err != nil {
		fmt.Fprintln(r.out, err.Error())
		return
	}
	if !found {
		// The probe's shape is fully under our control, so a miss here is
		// a broken expectation, not a user mistake.
		fmt.Fprintln(r.out, "no type found")
		return
	}
	fmt.Fprintf(r.out, "%s = %s\n", expr, ty)
}

// exprType locates the probe function in the analysis result and renders
// the type recorded for its discarded final expression.
func exprType(a *compile.Analysis, fnName string) (string, bool) {
	for _, decl := range a.File.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Name.Name != fnName {
			continue
		}
		if fd.Body == nil || len(fd.Body.List) == 0 {
			return "", false
		}
		assign, ok := fd.Body.List[len(fd.Body.List)-1].(*ast.AssignStmt)
		if !ok || len(assign.Rhs) != 1 {
			return "", false
		}
		expr := assign.Rhs[0]
		if paren, ok := expr.(*ast.ParenExpr); ok {
			expr = paren.X
		}
		tv, ok := a.Info.Types[expr]
		if !ok {
			return "", false
		}
		return tv.Type.String(), true
	}
	return "", false
}
