// internal/compile/analysis.go
package compile

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"

	"github.com/pkg/errors"
)

// Analysis is the result of compiling a unit up to the type-check stage.
// It is handed to a probe inside the analysis worker and must not be
// retained after the probe returns; extract what you need into plain
// values.
type Analysis struct {
	Fset *token.FileSet
	File *ast.File
	Pkg  *types.Package
	Info *types.Info
}

// WithAnalysis compiles the unit to the static-analysis stage only and
// invokes probe against the result. The work runs on an isolated worker
// goroutine joined synchronously; a panic in the type checker or in the
// probe is contained and reported as an error rather than unwinding the
// caller. Returns Diagnostics if the unit does not reach the analysis
// stage.
func (f *Frontend) WithAnalysis(source string, probe func(*Analysis)) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if e := recover(); e != nil {
				done <- errors.Errorf("analysis worker panicked: %v", e)
			}
		}()
		a, err := f.analyze(source)
		if err != nil {
			done <- err
			return
		}
		probe(a)
		done <- nil
	}()
	return <-done
}

func (f *Frontend) analyze(source string) (*Analysis, error) {
	src, derr := applyDirectives(source)
	if derr != nil {
		src = source
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, unitFile, src, parser.ParseComments)
	if err != nil {
		return nil, Diagnostics{err.Error()}
	}

	var diags Diagnostics
	conf := types.Config{
		Importer: importer.ForCompiler(fset, "source", nil),
		Error: func(err error) {
			diags = append(diags, err.Error())
		},
	}
	info := &types.Info{
		Types: make(map[ast.Expr]types.TypeAndValue),
		Defs:  make(map[*ast.Ident]types.Object),
		Uses:  make(map[*ast.Ident]types.Object),
	}
	pkg, err := conf.Check("round", fset, []*ast.File{file}, info)
	if len(diags) > 0 {
		return nil, diags
	}
	if err != nil {
		return nil, Diagnostics{err.Error()}
	}
	return &Analysis{Fset: fset, File: file, Pkg: pkg, Info: info}, nil
}
