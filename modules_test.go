package lang

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

// catchModuleError runs fn and converts a runtimeSignal panic (the way
// Load reports resolve/cycle/read failures, see modules.go) into a
// returned *RuntimeError, leaving any other panic to propagate.
func catchModuleError(fn func()) (caught *RuntimeError) {
	defer func() {
		if r := recover(); r != nil {
			if sig, ok := r.(runtimeSignal); ok {
				caught = sig.err
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}

func writeModuleFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	be.Err(t, os.WriteFile(path, []byte(content), 0o644), nil)
	return path
}

func TestLoaderLoadsExports(t *testing.T) {
	dir := t.TempDir()
	writeModuleFile(t, dir, "util.xu", `pub func double(x) { return x * 2 }`)
	entry := writeModuleFile(t, dir, "main.xu", `use util
let result = util.double(21)`)

	unit, err := Frontend(entry, readFileString(t, entry))
	be.Err(t, err, nil)
	loader := NewLoader()
	env, err := RunUnit(unit, loader, dir)
	be.Err(t, err, nil)
	v, err := env.Get("result")
	be.Err(t, err, nil)
	be.Equal(t, v.AsInt(), int64(42))
}

func TestLoaderExportsAreSortedAndPublicOnly(t *testing.T) {
	dir := t.TempDir()
	path := writeModuleFile(t, dir, "lib.xu", `
pub func zeta() { return 1 }
pub func alpha() { return 2 }
func hidden() { return 3 }
`)
	loader := NewLoader()
	var mv *ModuleValue
	rerr := catchModuleError(func() {
		var err error
		mv, err = loader.Load(path, "")
		be.Err(t, err, nil)
	})
	be.True(t, rerr == nil)
	be.Equal(t, mv.Exports.Len(), 2)
	be.Equal(t, mv.Exports.Order[0], Str("alpha"))
	be.Equal(t, mv.Exports.Order[1], Str("zeta"))
}

func TestLoaderCachesByResolvedPath(t *testing.T) {
	dir := t.TempDir()
	path := writeModuleFile(t, dir, "lib.xu", `pub func one() { return 1 }`)
	loader := NewLoader()
	var a, b *ModuleValue
	catchModuleError(func() {
		var err error
		a, err = loader.Load(path, "")
		be.Err(t, err, nil)
		b, err = loader.Load(path, "")
		be.Err(t, err, nil)
	})
	be.True(t, a == b)
}

func TestLoaderDetectsCycle(t *testing.T) {
	dir := t.TempDir()
	writeModuleFile(t, dir, "a.xu", `use b`)
	writeModuleFile(t, dir, "b.xu", `use a`)
	aPath := filepath.Join(dir, "a.xu")

	loader := NewLoader()
	rerr := catchModuleError(func() {
		_, _ = loader.Load(aPath, "")
	})
	be.True(t, rerr != nil)
	be.Equal(t, rerr.Code, CodeModuleCycle)
}

func TestLoaderNotFoundReportsModuleError(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader()
	rerr := catchModuleError(func() {
		_, _ = loader.Load("nonexistent", dir)
	})
	be.True(t, rerr != nil)
	be.Equal(t, rerr.Code, CodeModuleNotFound)
}

func readFileString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	be.Err(t, err, nil)
	return string(data)
}
