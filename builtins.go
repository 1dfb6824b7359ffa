// builtins.go
//
// The built-in method/function registry (spec §4.8), grounded on
// daios-ai-msg/interpreter_ops.go's native-function registration idiom
// (a local `reg` closure that wraps each native body and installs it
// into a shared Env), adapted here to this module's Value/BuiltinFunc
// shape instead of the teacher's ParamSpec/CallCtx machinery.
//
// Method dispatch for built-in types is a flat name table rather than
// a type-indexed table of tables: `"list::map"`, `"string::upper"`,
// etc, mirroring the same "type::method" mangling scheme compiler.go
// and the resolver already use for user-defined struct methods (spec
// §9 "method dispatch uniformity").
package lang

var builtinNames []string

func collectBuiltinNames() []string {
	if builtinNames != nil {
		return builtinNames
	}
	seen := map[string]bool{}
	reg := func(name string, fn func(args []Value, sp Span) Value) {
		if !seen[name] {
			seen[name] = true
			builtinNames = append(builtinNames, name)
		}
	}
	registerCoreBuiltins(reg)
	registerCollectionBuiltins(reg)
	registerSumBuiltins(reg)
	registerIOBuiltins(reg)
	return builtinNames
}

// registerBuiltinsInto installs every free function and type::method
// builtin into env, used by the AST interpreter (env.go-backed).
func registerBuiltinsInto(env *Env) {
	reg := func(name string, fn func(args []Value, sp Span) Value) {
		env.Define(name, NewBuiltin(name, fn))
	}
	registerCoreBuiltins(reg)
	registerCollectionBuiltins(reg)
	registerSumBuiltins(reg)
	registerIOBuiltins(reg)
}

// builtinFunctionNames satisfies resolver.go's forward reference: the
// resolver pre-declares every builtin name so `foo(x)` where foo is a
// builtin resolves without a real Env around at analysis time.
func builtinFunctionNames() []string {
	return collectBuiltinNames()
}

// registerBuiltinGlobals installs the same table into a plain
// map[string]Value, the shape vm.go's Globals uses (the VM has no Env
// chain of its own once compiled; see vm.go's header comment).
func registerBuiltinGlobals(globals map[string]Value) {
	reg := func(name string, fn func(args []Value, sp Span) Value) {
		globals[name] = NewBuiltin(name, fn)
	}
	registerCoreBuiltins(reg)
	registerCollectionBuiltins(reg)
	registerSumBuiltins(reg)
	registerIOBuiltins(reg)
}

func argAt(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Null
}

func checkArgc(name string, args []Value, want int, sp Span) {
	if len(args) != want {
		throwRuntime(sp, CodeTypeArgCount, "%s expects %d argument(s), got %d", name, want, len(args))
	}
}
