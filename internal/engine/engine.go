// internal/engine/engine.go
package engine

import (
	"log"
	"os"
	"path/filepath"
	"plugin"
	"reflect"
	"runtime"

	"github.com/ebitengine/purego"

	"rondo/internal/compile"
	rerrors "rondo/internal/errors"
)

// bootstrapUnit is the base module compiled at construction. It proves
// the resolved toolchain can produce and load an artifact before the
// first round runs.
const bootstrapUnit = "//rondo:allow-unused\npackage main\n"

// Symbols is the symbol table of one loaded module. The production
// implementation is *plugin.Plugin.
type Symbols interface {
	Lookup(name string) (plugin.Symbol, error)
}

// Module is a stable handle to a region of loaded native code. Handles
// remain valid for the process lifetime; see Engine.RemoveModule for why
// modules are normally never released.
type Module struct {
	// Index is the module's permanent slot in the engine's arena.
	Index int
	// Artifact is the path of the loaded shared object.
	Artifact string

	syms Symbols
}

// Engine owns every module loaded into the process and resolves symbols
// across them. Modules are kept in registration order; lookups scan the
// newest first, so a later module shadows an earlier one exporting the
// same name.
//
// The engine is confined to the evaluator's single thread. Code inside
// loaded modules may start arbitrary concurrent work; the engine neither
// tracks nor awaits it.
type Engine struct {
	frontend *compile.Frontend
	modules  []*Module
}

// New resolves the toolchain root from the PATH-like list in the
// environment, constructs the frontend over it, and bootstraps the base
// module. A missing toolchain or a failed bootstrap is a
// FatalEngineError.
func New(searchPaths []string) (*Engine, error) {
	sysroot, err := FindSysroot(os.Getenv("PATH"))
	if err != nil {
		return nil, err
	}
	debugf("sysroot %s", sysroot)

	e := &Engine{frontend: &compile.Frontend{
		Sysroot:     sysroot,
		SearchPaths: searchPaths,
	}}
	if _, err := e.AddModule(bootstrapUnit); err != nil {
		return nil, rerrors.New(rerrors.FatalEngineError, "bootstrap module failed: %v", err)
	}
	return e, nil
}

// FindSysroot scans the given PATH-like directory list for the toolchain
// executable and returns the parent of the directory containing it.
// The toolchain derives its root from its own executable path; since we
// are not the toolchain, we must go looking for it the same way.
func FindSysroot(pathList string) (string, error) {
	exe := "go"
	if runtime.GOOS == "windows" {
		exe = "go.exe"
	}
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			continue
		}
		cand := filepath.Join(dir, exe)
		fi, err := os.Stat(cand)
		if err != nil || fi.IsDir() {
			continue
		}
		if resolved, err := filepath.EvalSymlinks(cand); err == nil {
			cand = resolved
		}
		return filepath.Dir(filepath.Dir(cand)), nil
	}
	return "", rerrors.New(rerrors.FatalEngineError, "could not find sysroot: no `%s` in search path", exe)
}

// AddModule compiles a source unit and loads the result. On compile
// failure the engine is unchanged and the Diagnostics are returned; the
// caller decides how to report them. A dependency or artifact load
// failure is fatal: the process link state may already be partially
// mutated and cannot be rolled back.
func (e *Engine) AddModule(source string) (*Module, error) {
	artifact, deps, err := e.frontend.Build(source)
	if err != nil {
		if diags, ok := err.(compile.Diagnostics); ok {
			return nil, diags
		}
		return nil, rerrors.New(rerrors.FatalEngineError, "compiler frontend: %v", err)
	}

	if err := loadDeps(deps); err != nil {
		return nil, err
	}

	p, err := plugin.Open(artifact)
	if err != nil {
		// A successful compile must produce a loadable artifact.
		return nil, rerrors.New(rerrors.FatalEngineError, "loading %s: %v", artifact, err)
	}

	m := &Module{Index: len(e.modules), Artifact: artifact, syms: p}
	e.modules = append(e.modules, m)
	debugf("module %d loaded from %s (%d deps)", m.Index, artifact, len(deps))
	return m, nil
}

// RemoveModule detaches a module from symbol resolution. Its backing
// code stays mapped: loaded plugins cannot be unloaded, and code in the
// module may still be running on goroutines the engine does not track.
// Calling this while such code runs is a documented hazard, which is why
// normal operation never removes anything and module memory grows
// monotonically for the process lifetime.
func (e *Engine) RemoveModule(m *Module) {
	if m.Index < len(e.modules) && e.modules[m.Index] == m {
		e.modules[m.Index] = nil
	}
}

// GetFunction resolves an exported function symbol, searching modules in
// reverse registration order. Returns false if no module exports it.
func (e *Engine) GetFunction(name string) (plugin.Symbol, bool) {
	return e.lookup(name, reflect.Func)
}

// GetGlobal resolves an exported variable symbol, searching modules in
// reverse registration order. Returns false if no module exports it.
func (e *Engine) GetGlobal(name string) (plugin.Symbol, bool) {
	return e.lookup(name, reflect.Ptr)
}

func (e *Engine) lookup(name string, kind reflect.Kind) (plugin.Symbol, bool) {
	for i := len(e.modules) - 1; i >= 0; i-- {
		m := e.modules[i]
		if m == nil {
			continue
		}
		sym, err := m.syms.Lookup(name)
		if err != nil {
			continue
		}
		if reflect.TypeOf(sym).Kind() != kind {
			continue
		}
		return sym, true
	}
	return nil, false
}

// WithAnalysis compiles the unit to the static-analysis stage only and
// runs probe against the result inside the analysis worker. See the
// frontend for the worker contract.
func (e *Engine) WithAnalysis(source string, probe func(*compile.Analysis)) error {
	return e.frontend.WithAnalysis(source, probe)
}

// loadDeps loads native dependencies into the process, dependency-first.
// Any failure is fatal: earlier libraries in the list are already mapped
// and the link state cannot be restored.
func loadDeps(deps []string) error {
	for _, path := range deps {
		debugf("loading dependency %s", path)
		if _, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL); err != nil {
			return rerrors.New(rerrors.FatalEngineError, "failed to load %s: %v", path, err)
		}
	}
	return nil
}

func debugf(format string, args ...interface{}) {
	if os.Getenv("RONDO_DEBUG") != "" {
		log.Printf("engine: "+format, args...)
	}
}
