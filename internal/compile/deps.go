// internal/compile/deps.go
package compile

import (
	"debug/elf"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// resolveDeps reports the artifact's native shared-object dependencies in
// dependency-first order, so loading them left to right never loads a
// dependent before its dependency.
//
// Only libraries that resolve inside the search paths are reported; the
// rest (libc and friends) are left to the system loader when the artifact
// itself is opened.
func resolveDeps(artifact string, searchPaths []string) ([]string, error) {
	needed, err := neededLibs(artifact)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var ordered []string
	var walk func(path string) error
	walk = func(path string) error {
		if seen[path] {
			return nil
		}
		seen[path] = true
		subs, err := neededLibs(path)
		if err != nil {
			return err
		}
		for _, lib := range subs {
			if p := lookupLib(lib, searchPaths); p != "" {
				if err := walk(p); err != nil {
					return err
				}
			}
		}
		ordered = append(ordered, path)
		return nil
	}

	for _, lib := range needed {
		if p := lookupLib(lib, searchPaths); p != "" {
			if err := walk(p); err != nil {
				return nil, err
			}
		}
	}
	return ordered, nil
}

func neededLibs(path string) ([]string, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	defer f.Close()
	libs, err := f.ImportedLibraries()
	if err != nil {
		return nil, errors.Wrapf(err, "dependencies of %s", path)
	}
	return libs, nil
}

func lookupLib(name string, searchPaths []string) string {
	for _, dir := range searchPaths {
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p
		}
	}
	return ""
}
