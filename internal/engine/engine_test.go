package engine

import (
	"os"
	"path/filepath"
	"plugin"
	"runtime"
	"strings"
	"testing"

	rerrors "rondo/internal/errors"
)

// stubSyms is a fake symbol table standing in for a loaded plugin.
type stubSyms map[string]plugin.Symbol

func (s stubSyms) Lookup(name string) (plugin.Symbol, error) {
	if sym, ok := s[name]; ok {
		return sym, nil
	}
	return nil, os.ErrNotExist
}

func newTestEngine(tables ...stubSyms) *Engine {
	e := &Engine{}
	for _, tbl := range tables {
		e.modules = append(e.modules, &Module{Index: len(e.modules), syms: tbl})
	}
	return e
}

func TestFindSysroot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fixture builds a unix layout")
	}
	root := t.TempDir()
	bin := filepath.Join(root, "bin")
	if err := os.Mkdir(bin, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bin, "go"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	pathList := strings.Join([]string{t.TempDir(), bin}, string(os.PathListSeparator))
	got, err := FindSysroot(pathList)
	if err != nil {
		t.Fatal(err)
	}
	// TempDir may itself contain symlinked components; compare resolved.
	want, _ := filepath.EvalSymlinks(root)
	gotResolved, _ := filepath.EvalSymlinks(got)
	if gotResolved != want {
		t.Errorf("FindSysroot = %q, want %q", got, root)
	}
}

func TestFindSysrootMissingIsFatal(t *testing.T) {
	_, err := FindSysroot(t.TempDir())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !rerrors.IsFatal(err) {
		t.Errorf("missing sysroot must be fatal, got %v", err)
	}
}

func TestLookupShadowing(t *testing.T) {
	var ran string
	e := newTestEngine(
		stubSyms{"Shared": func() { ran = "older" }, "OnlyOld": func() { ran = "only-old" }},
		stubSyms{"Shared": func() { ran = "newer" }},
	)

	sym, ok := e.GetFunction("Shared")
	if !ok {
		t.Fatal("symbol not found")
	}
	sym.(func())()
	if ran != "newer" {
		t.Errorf("lookup resolved %q, want the most recently registered module", ran)
	}

	sym, ok = e.GetFunction("OnlyOld")
	if !ok {
		t.Fatal("older modules must still resolve unshadowed symbols")
	}
	sym.(func())()
	if ran != "only-old" {
		t.Errorf("lookup resolved %q, want only-old", ran)
	}

	if _, ok := e.GetFunction("Absent"); ok {
		t.Error("absent symbol must yield none, not an error")
	}
}

func TestLookupKindFiltering(t *testing.T) {
	v := 42
	e := newTestEngine(stubSyms{"Fn": func() {}, "Global": &v})

	if _, ok := e.GetFunction("Global"); ok {
		t.Error("GetFunction must not return a variable symbol")
	}
	if _, ok := e.GetGlobal("Fn"); ok {
		t.Error("GetGlobal must not return a function symbol")
	}
	if _, ok := e.GetGlobal("Global"); !ok {
		t.Error("GetGlobal must resolve a variable symbol")
	}
}

func TestRemoveModuleDetaches(t *testing.T) {
	var ran string
	e := newTestEngine(
		stubSyms{"Shared": func() { ran = "older" }},
		stubSyms{"Shared": func() { ran = "newer" }},
	)
	e.RemoveModule(e.modules[1])

	sym, ok := e.GetFunction("Shared")
	if !ok {
		t.Fatal("symbol should still resolve from the older module")
	}
	sym.(func())()
	if ran != "older" {
		t.Errorf("lookup resolved %q after removal, want older", ran)
	}
}
