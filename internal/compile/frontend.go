// internal/compile/frontend.go
package compile

import (
	"bytes"
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/mod/modfile"
	"golang.org/x/tools/go/ast/astutil"

	"rondo/internal/input"
)

// unitFile is the name the synthesized unit is written under inside each
// scratch workspace; diagnostics are rewritten to hide it.
const unitFile = "main.go"

// Diagnostics is the structured compiler output of a failed compile, one
// message per entry.
type Diagnostics []string

func (d Diagnostics) Error() string {
	return strings.Join(d, "\n")
}

// Frontend drives the installed Go toolchain. Each full compile runs the
// toolchain as a fresh subprocess, which doubles as the fault-containment
// worker: a compiler crash surfaces as an exit status, never as damage to
// this process.
type Frontend struct {
	// Sysroot is the toolchain installation root; <Sysroot>/bin/go is the
	// compiler executable and GOROOT is pointed at Sysroot for builds.
	Sysroot string
	// SearchPaths are extra native-library directories, used both to link
	// cgo code and to resolve the artifact's shared-object dependencies.
	SearchPaths []string
}

// Build compiles one synthesized unit to a loadable plugin. It returns
// the artifact path and the artifact's native dependencies in
// dependency-first order, or Diagnostics when the toolchain rejects the
// unit. Errors other than Diagnostics are environmental.
func (f *Frontend) Build(source string) (artifact string, deps []string, err error) {
	dir, err := os.MkdirTemp("", "rondo-round-")
	if err != nil {
		return "", nil, errors.Wrap(err, "creating scratch workspace")
	}

	src, derr := applyDirectives(source)
	if derr != nil {
		// The unit does not even scan; let the toolchain produce the
		// authoritative diagnostics.
		src = source
	}
	if err := os.WriteFile(filepath.Join(dir, unitFile), []byte(src), 0o644); err != nil {
		return "", nil, errors.Wrap(err, "writing unit")
	}
	if err := writeScratchModFile(dir); err != nil {
		return "", nil, err
	}

	artifact = filepath.Join(dir, "round.so")
	cmd := exec.Command(f.goBin(), "build", "-mod=mod", "-buildmode=plugin", "-o", artifact, ".")
	cmd.Dir = dir
	cmd.Env = f.buildEnv()

	var stderr bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return "", nil, filterDiagnostics(stderr.String())
		}
		return "", nil, errors.Wrap(err, "running compiler")
	}

	deps, err = resolveDeps(artifact, f.SearchPaths)
	if err != nil {
		return "", nil, err
	}
	return artifact, deps, nil
}

func (f *Frontend) goBin() string {
	exe := "go"
	if runtime.GOOS == "windows" {
		exe = "go.exe"
	}
	return filepath.Join(f.Sysroot, "bin", exe)
}

func (f *Frontend) buildEnv() []string {
	env := append([]string(nil), os.Environ()...)
	env = append(env, "GOROOT="+f.Sysroot, "GO111MODULE=on")
	if len(f.SearchPaths) > 0 {
		flags := make([]string, 0, len(f.SearchPaths))
		for _, p := range f.SearchPaths {
			flags = append(flags, "-L"+p)
		}
		env = append(env, "CGO_LDFLAGS="+strings.Join(flags, " "))
	}
	return env
}

// writeScratchModFile emits the go.mod for one scratch workspace.
func writeScratchModFile(dir string) error {
	mf := new(modfile.File)
	if err := mf.AddModuleStmt("rondo/round"); err != nil {
		return errors.Wrap(err, "module statement")
	}
	if err := mf.AddGoStmt("1.25"); err != nil {
		return errors.Wrap(err, "go statement")
	}
	data, err := mf.Format()
	if err != nil {
		return errors.Wrap(err, "formatting go.mod")
	}
	return errors.Wrap(os.WriteFile(filepath.Join(dir, "go.mod"), data, 0o644), "writing go.mod")
}

// applyDirectives rewrites the unit according to its directives. Under
// AllowUnusedDirective every unused import is blank-aliased so that
// declarations carried across rounds cannot fail the unit. The rewrite is
// a byte-surgical edit; everything else in the unit is untouched.
func applyDirectives(source string) (string, error) {
	if !strings.Contains(source, input.AllowUnusedDirective) {
		return source, nil
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, unitFile, source, parser.ParseComments)
	if err != nil {
		return source, err
	}

	type edit struct {
		from, to int // byte offsets into source
		text     string
	}
	var edits []edit
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		if imp.Name != nil && (imp.Name.Name == "_" || imp.Name.Name == ".") {
			continue
		}
		if astutil.UsesImport(file, path) {
			continue
		}
		if imp.Name != nil {
			from := fset.Position(imp.Name.Pos()).Offset
			to := fset.Position(imp.Name.End()).Offset
			edits = append(edits, edit{from, to, "_"})
		} else {
			at := fset.Position(imp.Path.Pos()).Offset
			edits = append(edits, edit{at, at, "_ "})
		}
	}
	if len(edits) == 0 {
		return source, nil
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].from > edits[j].from })
	out := source
	for _, e := range edits {
		out = out[:e.from] + e.text + out[e.to:]
	}
	return out, nil
}

// filterDiagnostics drops the toolchain's non-structured noise and keeps
// position-bearing messages, rewriting the scratch file name to `round`.
func filterDiagnostics(stderr string) Diagnostics {
	var out Diagnostics
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(trimmed, "exit status") {
			continue
		}
		line = strings.ReplaceAll(line, "./"+unitFile, "round")
		line = strings.ReplaceAll(line, unitFile, "round")
		out = append(out, line)
	}
	if len(out) == 0 {
		out = Diagnostics{"compilation failed"}
	}
	return out
}
