// builtin_sum.go
//
// Option/result combinators (spec §4.8): map, then, or, or_else, map_err,
// each, filter over the built-in some/none/ok/err tagged-variant
// families. These are ordinary builtins, not special-cased by the
// compiler or interpreter -- a variant value dispatches to them the
// same way a struct instance dispatches to a `has`/`does` method (via
// getField's fallback to the global method table, spec §9).
package lang

func registerSumBuiltins(reg func(name string, fn func(args []Value, sp Span) Value)) {
	reg("variant::map", func(args []Value, sp Span) Value {
		checkArgc("variant::map", args, 2, sp)
		vi := args[0].Handle().Var
		switch vi.Tag {
		case "some":
			return Some(globalApply(args[1], []Value{vi.Args[0]}, sp))
		case "ok":
			return Ok(globalApply(args[1], []Value{vi.Args[0]}, sp))
		}
		return args[0]
	})
	reg("variant::map_err", func(args []Value, sp Span) Value {
		checkArgc("variant::map_err", args, 2, sp)
		vi := args[0].Handle().Var
		if vi.Tag == "err" {
			return Err(globalApply(args[1], []Value{vi.Args[0]}, sp))
		}
		return args[0]
	})
	reg("variant::then", func(args []Value, sp Span) Value {
		checkArgc("variant::then", args, 2, sp)
		vi := args[0].Handle().Var
		switch vi.Tag {
		case "some", "ok":
			return globalApply(args[1], []Value{vi.Args[0]}, sp)
		}
		return args[0]
	})
	reg("variant::or", func(args []Value, sp Span) Value {
		checkArgc("variant::or", args, 2, sp)
		vi := args[0].Handle().Var
		switch vi.Tag {
		case "none", "err":
			return args[1]
		}
		return args[0]
	})
	reg("variant::or_else", func(args []Value, sp Span) Value {
		checkArgc("variant::or_else", args, 2, sp)
		vi := args[0].Handle().Var
		switch vi.Tag {
		case "none":
			return globalApply(args[1], nil, sp)
		case "err":
			return globalApply(args[1], []Value{vi.Args[0]}, sp)
		}
		return args[0]
	})
	reg("variant::each", func(args []Value, sp Span) Value {
		checkArgc("variant::each", args, 2, sp)
		vi := args[0].Handle().Var
		switch vi.Tag {
		case "some", "ok":
			globalApply(args[1], []Value{vi.Args[0]}, sp)
		}
		return Null
	})
	reg("variant::filter", func(args []Value, sp Span) Value {
		checkArgc("variant::filter", args, 2, sp)
		vi := args[0].Handle().Var
		if vi.Tag != "some" {
			return args[0]
		}
		if globalApply(args[1], []Value{vi.Args[0]}, sp).IsTruthy() {
			return args[0]
		}
		return None()
	})
	reg("variant::unwrap", func(args []Value, sp Span) Value {
		checkArgc("variant::unwrap", args, 1, sp)
		vi := args[0].Handle().Var
		switch vi.Tag {
		case "some", "ok":
			return vi.Args[0]
		case "err":
			throwRuntime(sp, CodeRuntimePanic, "unwrap called on err(%s)", ToDisplayString(vi.Args[0]))
		}
		throwRuntime(sp, CodeRuntimePanic, "unwrap called on none")
		return Null
	})
	reg("variant::unwrap_or", func(args []Value, sp Span) Value {
		checkArgc("variant::unwrap_or", args, 2, sp)
		vi := args[0].Handle().Var
		switch vi.Tag {
		case "some", "ok":
			return vi.Args[0]
		}
		return args[1]
	})
	reg("variant::is_some", func(args []Value, sp Span) Value {
		checkArgc("variant::is_some", args, 1, sp)
		return Bool(args[0].Handle().Var.Tag == "some")
	})
	reg("variant::is_none", func(args []Value, sp Span) Value {
		checkArgc("variant::is_none", args, 1, sp)
		return Bool(args[0].Handle().Var.Tag == "none")
	})
	reg("variant::is_ok", func(args []Value, sp Span) Value {
		checkArgc("variant::is_ok", args, 1, sp)
		return Bool(args[0].Handle().Var.Tag == "ok")
	})
	reg("variant::is_err", func(args []Value, sp Span) Value {
		checkArgc("variant::is_err", args, 1, sp)
		return Bool(args[0].Handle().Var.Tag == "err")
	})
}
