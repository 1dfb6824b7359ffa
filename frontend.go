// frontend.go
//
// The Frontend contract (spec §6.3): compile source text at a path into
// a CompiledUnit, or a string-described compilation error. This is the
// boundary the module loader calls through for a dynamic import.
// Frontend itself runs no semantic analysis; RunUnit, which the loader
// uses to execute every imported module, runs the resolver on each unit
// before interpreting it, so imported modules are fully analyzed.
//
// Grounded on daios-ai-msg/modules.go's ImportFile step 3 ("Parse +
// Evaluate"): that file wraps parse errors with the original source
// text for display, then evaluates in an isolated child env. Here the
// split is explicit: Frontend only lexes+parses (cheap, local), and
// the caller decides how to run it: modules.go and lctl's `run` use
// RunUnit (AST interpreter), the tests also use RunUnitVM (bytecode).
package lang

import "fmt"

// CompiledUnit is what Frontend hands back to a caller that wants to
// run a unit of source: either backend can execute it, since an AST
// Module and a compiled Program both satisfy "executable" (spec §6.3
// glossary).
type CompiledUnit struct {
	Path        string
	Module      *Module
	Diagnostics *Bag
}

// Frontend compiles source text at path: lex, then parse. Semantic
// analysis (resolver.go) is not run here; RunUnit and RunUnitVM run it
// on every unit they execute, imported modules included.
func Frontend(path, text string) (*CompiledUnit, error) {
	src := NewSource(path, text)
	mod, diags := Parse(src)
	if mod == nil {
		return nil, fmt.Errorf("compile error in %s: parser produced no module", path)
	}
	return &CompiledUnit{Path: path, Module: mod, Diagnostics: diags}, nil
}

// RunUnit resolves and interprets a CompiledUnit's module top-level
// under the AST backend, returning the module-level Env so its public
// bindings can be snapshotted into an exports mapping (modules.go).
// loader/dir may be nil/"" for a standalone unit with no import support.
func RunUnit(unit *CompiledUnit, loader *Loader, dir string) (*Env, error) {
	r := NewResolver()
	rdiags := r.Resolve(unit.Module)
	unit.Diagnostics.items = append(unit.Diagnostics.items, rdiags.Items()...)
	if rdiags.HasErrors() {
		return nil, fmt.Errorf("analysis error in %s", unit.Path)
	}
	ip := NewInterpreter(r.Methods, r.Types)
	ip.Loader, ip.Dir = loader, dir
	wireApply(ip, nil)
	_, err := ip.RunModule(unit.Module)
	if err != nil {
		return nil, fmt.Errorf("runtime error in %s: %w", unit.Path, err)
	}
	return ip.Global, nil
}

// RunUnitVM resolves and compiles a CompiledUnit's module top-level,
// then executes it under the bytecode VM instead of the tree-walker --
// the other half of spec §8 property 3's interpreter-VM equivalence
// check, exercised by the test suite rather than by the CLI (lctl's
// `run` subcommand always uses the tree-walker).
func RunUnitVM(unit *CompiledUnit) (Value, error) {
	r := NewResolver()
	rdiags := r.Resolve(unit.Module)
	unit.Diagnostics.items = append(unit.Diagnostics.items, rdiags.Items()...)
	if rdiags.HasErrors() {
		return Null, fmt.Errorf("analysis error in %s", unit.Path)
	}
	prog := Compile(unit.Module, r)
	globals := map[string]Value{}
	registerBuiltinGlobals(globals)
	vm := NewVM(prog, globals)
	wireApply(nil, vm)

	var result Value
	var runErr error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				if sig, ok := rec.(runtimeSignal); ok {
					runErr = sig.err
					return
				}
				panic(rec)
			}
		}()
		result = vm.Run()
	}()
	if runErr != nil {
		return Null, fmt.Errorf("runtime error in %s: %w", unit.Path, runErr)
	}
	return result, nil
}

// wireApply makes builtin_collections.go's callback-taking builtins
// (map/filter/reduce/sort_by, and the variant combinators) able to
// invoke user closures without either backend file depending on the
// other's internals. Exactly one of ip/vm is non-nil.
func wireApply(ip *Interpreter, vm *VM) {
	if ip != nil {
		globalApply = func(callee Value, args []Value, sp Span) Value { return ip.Apply(callee, args, sp) }
		return
	}
	globalApply = func(callee Value, args []Value, sp Span) Value { return vm.invoke(callee, args, sp) }
}
