// modules.go
//
// The module loader (spec §4.7), grounded on daios-ai-msg/modules.go's
// ImportFile: resolve relative to the importer's directory, fall back
// to a configured search path (there MSGPATH, the teacher's
// MindScriptPath constant; here the same idea under this module's own
// env var name, XUSCRIPTPATH), normalize to an absolute path,
// key the cache by that path, detect cycles via an in-progress stack,
// and snapshot public bindings into an exports mapping on success.
//
// Unlike the teacher, this loader has no HTTP(S) resolution branch --
// spec §4.7's contract is filesystem-only, and the Non-goals exclude
// networked module resolution.
package lang

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// XUScriptPath is the search-path environment variable, the direct
// analog of the teacher's MindScriptPath constant.
const XUScriptPath = "XUSCRIPTPATH"

// ModuleValue is the exports surface produced by loading one module:
// an ordered mapping from each public top-level name to its value,
// plus the canonical path it was loaded from (spec §4.7 "Exports").
type ModuleValue struct {
	Path    string
	Exports *Mapping
}

// Loader owns the process-local import cache and in-progress stack
// (spec §5 "Shared resources": both are process-local, mutated only
// between top-level statements, never concurrently).
type Loader struct {
	cache      map[string]*ModuleValue
	inProgress []string
}

func NewLoader() *Loader {
	return &Loader{cache: map[string]*ModuleValue{}}
}

// resolve locates the file path as described in spec §4.7: an absolute
// import path as given, otherwise relative to the importer's directory
// first, then each directory on XUSCRIPTPATH.
func (l *Loader) resolve(importPath, importerDir string) (string, error) {
	candidates := []string{}
	if filepath.IsAbs(importPath) {
		candidates = append(candidates, importPath)
	} else if importerDir != "" {
		candidates = append(candidates, filepath.Join(importerDir, importPath))
	}
	for _, root := range searchRoots() {
		candidates = append(candidates, filepath.Join(root, importPath))
	}
	for _, c := range candidates {
		for _, try := range []string{c, c + ".xu"} {
			if info, err := os.Stat(try); err == nil && !info.IsDir() {
				abs, err := filepath.Abs(try)
				if err != nil {
					return "", err
				}
				return filepath.Clean(abs), nil
			}
		}
	}
	return "", fmt.Errorf("module not found: %s", importPath)
}

func searchRoots() []string {
	v := os.Getenv(XUScriptPath)
	if v == "" {
		return nil
	}
	return strings.Split(v, ":")
}

// Load implements the full cache/cycle/compile/execute/snapshot cycle.
func (l *Loader) Load(importPath, importerDir string) (*ModuleValue, error) {
	path, err := l.resolve(importPath, importerDir)
	if err != nil {
		throwModuleError(CodeModuleNotFound, "%s", err)
	}
	if mv, ok := l.cache[path]; ok {
		return mv, nil
	}
	for i, p := range l.inProgress {
		if p == path {
			chain := append(append([]string{}, l.inProgress[i:]...), path)
			throwModuleError(CodeModuleCycle, "circular import: %s", strings.Join(chain, " -> "))
		}
	}
	l.inProgress = append(l.inProgress, path)
	defer func() { l.inProgress = l.inProgress[:len(l.inProgress)-1] }()

	text, err := os.ReadFile(path)
	if err != nil {
		throwModuleError(CodeModuleNotFound, "cannot read %s: %v", path, err)
	}
	unit, err := Frontend(path, string(text))
	if err != nil {
		throwModuleError(CodeModuleBadPath, "parse error in %s: %v", path, err)
	}
	env, err := RunUnit(unit, l, filepath.Dir(path))
	if err != nil {
		code := CodeRuntimePanic
		var re *RuntimeError
		if errors.As(err, &re) {
			code = re.Code
		}
		throwModuleError(code, "%v", err)
	}
	exports := snapshotExports(unit.Module, env)
	mv := &ModuleValue{Path: path, Exports: exports}
	l.cache[path] = mv
	return mv, nil
}

// snapshotExports collects every `pub` top-level binding's current
// value into an exports mapping, sorted lexicographically for
// deterministic output, matching the teacher's sorted-export-keys
// behavior in modules.go's step 4.
func snapshotExports(mod *Module, env *Env) *Mapping {
	names := publicNames(mod)
	sortStrings(names)
	mp := NewMapping()
	for _, name := range names {
		if v, err := env.Get(name); err == nil {
			mp.Set(Str(name), v)
		}
	}
	return mp
}

func publicNames(mod *Module) []string {
	var out []string
	for _, item := range mod.Items {
		switch it := item.(type) {
		case *FuncDef:
			if it.Public {
				out = append(out, it.Name)
			}
		case *TypeDef:
			if it.Public {
				out = append(out, it.Name)
			}
		case *LetStmt:
			if it.Public {
				if it.Name != "" {
					out = append(out, it.Name)
				} else {
					out = append(out, it.Targets...)
				}
			}
		}
	}
	return out
}

func sortStrings(xs []string) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}

func throwModuleError(code, format string, args ...any) {
	panic(runtimeSignal{err: &RuntimeError{Code: code, Msg: fmt.Sprintf(format, args...)}})
}
