// builtin_collections.go
//
// list/mapping/tuple/range methods (spec §4.8), plus the two internal
// helpers the compiler's for-loop lowering calls directly by name
// (compiler.go's compileFor emits calls to __iter_len/__iter_at rather
// than dedicated VM opcodes).
package lang

func registerCollectionBuiltins(reg func(name string, fn func(args []Value, sp Span) Value)) {
	reg("__iter_len", func(args []Value, sp Span) Value {
		return Int(int64(len(iterElems(argAt(args, 0), sp))))
	})
	reg("__iter_at", func(args []Value, sp Span) Value {
		elems := iterElems(argAt(args, 0), sp)
		i := argAt(args, 1).AsInt()
		if i < 0 || int(i) >= len(elems) {
			throwRuntime(sp, CodeRuntimeIndexRange, "index %d out of range (length %d)", i, len(elems))
		}
		return elems[i]
	})

	reg("list::len", func(args []Value, sp Span) Value {
		checkArgc("list::len", args, 1, sp)
		return Int(int64(len(args[0].Handle().List)))
	})
	reg("list::push", func(args []Value, sp Span) Value {
		checkArgc("list::push", args, 2, sp)
		h := args[0].Handle()
		h.List = append(h.List, args[1])
		return args[0]
	})
	reg("list::pop", func(args []Value, sp Span) Value {
		checkArgc("list::pop", args, 1, sp)
		h := args[0].Handle()
		if len(h.List) == 0 {
			return None()
		}
		last := h.List[len(h.List)-1]
		h.List = h.List[:len(h.List)-1]
		return Some(last)
	})
	reg("list::get", func(args []Value, sp Span) Value {
		checkArgc("list::get", args, 2, sp)
		elems := args[0].Handle().List
		i := args[1].AsInt()
		if i < 0 || int(i) >= len(elems) {
			return None()
		}
		return Some(elems[i])
	})
	reg("list::map", makeTransform(VList))
	reg("list::filter", makeFilter(VList))
	reg("list::each", makeEach(VList))
	reg("list::reduce", func(args []Value, sp Span) Value {
		checkArgc("list::reduce", args, 3, sp)
		acc := args[1]
		for _, el := range args[0].Handle().List {
			acc = globalApply(args[2], []Value{acc, el}, sp)
		}
		return acc
	})
	reg("list::contains", func(args []Value, sp Span) Value {
		checkArgc("list::contains", args, 2, sp)
		for _, el := range args[0].Handle().List {
			if Equal(el, args[1]) {
				return Bool(true)
			}
		}
		return Bool(false)
	})
	reg("list::join", func(args []Value, sp Span) Value {
		checkArgc("list::join", args, 2, sp)
		sep := args[1].AsString()
		out := ""
		for i, el := range args[0].Handle().List {
			if i > 0 {
				out += sep
			}
			out += ToDisplayString(el)
		}
		return Str(out)
	})
	reg("list::reverse", func(args []Value, sp Span) Value {
		checkArgc("list::reverse", args, 1, sp)
		src := args[0].Handle().List
		out := make([]Value, len(src))
		for i, v := range src {
			out[len(src)-1-i] = v
		}
		return NewList(out)
	})
	reg("list::sort_by", func(args []Value, sp Span) Value {
		checkArgc("list::sort_by", args, 2, sp)
		src := args[0].Handle().List
		out := make([]Value, len(src))
		copy(out, src)
		insertionSortBy(out, func(a, b Value) bool {
			return globalApply(args[1], []Value{a, b}, sp).AsInt() < 0
		})
		return NewList(out)
	})

	reg("tuple::len", func(args []Value, sp Span) Value {
		checkArgc("tuple::len", args, 1, sp)
		return Int(int64(len(args[0].Handle().Tup)))
	})

	reg("mapping::len", func(args []Value, sp Span) Value {
		checkArgc("mapping::len", args, 1, sp)
		return Int(int64(args[0].Handle().Map.Len()))
	})
	reg("mapping::get", func(args []Value, sp Span) Value {
		checkArgc("mapping::get", args, 2, sp)
		v, ok := args[0].Handle().Map.Get(args[1])
		if !ok {
			return None()
		}
		return Some(v)
	})
	reg("mapping::set", func(args []Value, sp Span) Value {
		checkArgc("mapping::set", args, 3, sp)
		args[0].Handle().Map.Set(args[1], args[2])
		return args[0]
	})
	reg("mapping::has", func(args []Value, sp Span) Value {
		checkArgc("mapping::has", args, 2, sp)
		_, ok := args[0].Handle().Map.Get(args[1])
		return Bool(ok)
	})
	reg("mapping::delete", func(args []Value, sp Span) Value {
		checkArgc("mapping::delete", args, 2, sp)
		args[0].Handle().Map.Delete(args[1])
		return args[0]
	})
	reg("mapping::keys", func(args []Value, sp Span) Value {
		checkArgc("mapping::keys", args, 1, sp)
		mp := args[0].Handle().Map
		out := make([]Value, len(mp.Order))
		copy(out, mp.Order)
		return NewList(out)
	})
	reg("mapping::values", func(args []Value, sp Span) Value {
		checkArgc("mapping::values", args, 1, sp)
		mp := args[0].Handle().Map
		out := make([]Value, 0, mp.Len())
		for _, k := range mp.Order {
			v, _ := mp.Get(k)
			out = append(out, v)
		}
		return NewList(out)
	})
}

// iterElems is the shared slice-of-values view behind `for x in iter`
// under both backends (interpreter.go's toIterable duplicates this for
// the AST walker, which never calls through builtins to stay
// self-contained; the VM always lowers to these two calls).
func iterElems(v Value, sp Span) []Value {
	switch v.Tag {
	case VList:
		return v.Handle().List
	case VTuple:
		return v.Handle().Tup
	case VMapping:
		mp := v.Handle().Map
		out := make([]Value, 0, mp.Len())
		for _, k := range mp.Order {
			v, _ := mp.Get(k)
			out = append(out, v)
		}
		return out
	}
	throwRuntime(sp, CodeTypeNotCallable, "value of type %s is not iterable", TypeOf(v))
	return nil
}

// globalApply is set by frontend.go at startup to whichever backend
// (interpreter or VM) is running, so collection builtins can invoke a
// user-supplied callback (map/filter/reduce/sort_by) without this file
// depending on either backend's internals.
var globalApply func(callee Value, args []Value, sp Span) Value

func makeTransform(tag ValueTag) func(args []Value, sp Span) Value {
	return func(args []Value, sp Span) Value {
		checkArgc("map", args, 2, sp)
		src := args[0].Handle().List
		out := make([]Value, len(src))
		for i, el := range src {
			out[i] = globalApply(args[1], []Value{el}, sp)
		}
		return NewList(out)
	}
}

func makeFilter(tag ValueTag) func(args []Value, sp Span) Value {
	return func(args []Value, sp Span) Value {
		checkArgc("filter", args, 2, sp)
		src := args[0].Handle().List
		var out []Value
		for _, el := range src {
			if globalApply(args[1], []Value{el}, sp).IsTruthy() {
				out = append(out, el)
			}
		}
		return NewList(out)
	}
}

func makeEach(tag ValueTag) func(args []Value, sp Span) Value {
	return func(args []Value, sp Span) Value {
		checkArgc("each", args, 2, sp)
		for _, el := range args[0].Handle().List {
			globalApply(args[1], []Value{el}, sp)
		}
		return Null
	}
}

func insertionSortBy(xs []Value, less func(a, b Value) bool) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && less(xs[j], xs[j-1]); j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}
