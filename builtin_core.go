// builtin_core.go
//
// Scalar free functions and int/float/bool/string methods (spec §4.8),
// named the same way the resolver's method-mangling scheme names
// struct methods: "string::upper", not a nested per-type table.
package lang

import (
	"fmt"
	"strconv"
	"strings"
)

func registerCoreBuiltins(reg func(name string, fn func(args []Value, sp Span) Value)) {
	reg("type_of", func(args []Value, sp Span) Value {
		checkArgc("type_of", args, 1, sp)
		return Str(TypeOf(args[0]))
	})
	reg("to_string", func(args []Value, sp Span) Value {
		checkArgc("to_string", args, 1, sp)
		return Str(ToDisplayString(args[0]))
	})
	reg("__to_string", func(args []Value, sp Span) Value {
		return Str(ToDisplayString(argAt(args, 0)))
	})
	reg("describe", func(args []Value, sp Span) Value {
		checkArgc("describe", args, 1, sp)
		v := args[0]
		doc := ""
		if v.Tag == VClosure {
			doc = v.Handle().Fn.Doc
		}
		if doc == "" {
			return Str(fmt.Sprintf("<%s>", TypeOf(v)))
		}
		return Str(doc)
	})

	reg("string::upper", func(args []Value, sp Span) Value {
		checkArgc("string::upper", args, 1, sp)
		return Str(strings.ToUpper(args[0].AsString()))
	})
	reg("string::lower", func(args []Value, sp Span) Value {
		checkArgc("string::lower", args, 1, sp)
		return Str(strings.ToLower(args[0].AsString()))
	})
	reg("string::trim", func(args []Value, sp Span) Value {
		checkArgc("string::trim", args, 1, sp)
		return Str(strings.TrimSpace(args[0].AsString()))
	})
	reg("string::len", func(args []Value, sp Span) Value {
		checkArgc("string::len", args, 1, sp)
		return Int(int64(len([]rune(args[0].AsString()))))
	})
	reg("string::split", func(args []Value, sp Span) Value {
		checkArgc("string::split", args, 2, sp)
		parts := strings.Split(args[0].AsString(), args[1].AsString())
		out := make([]Value, len(parts))
		for i, p := range parts {
			out[i] = Str(p)
		}
		return NewList(out)
	})
	reg("string::contains", func(args []Value, sp Span) Value {
		checkArgc("string::contains", args, 2, sp)
		return Bool(strings.Contains(args[0].AsString(), args[1].AsString()))
	})
	reg("string::to_int", func(args []Value, sp Span) Value {
		checkArgc("string::to_int", args, 1, sp)
		n, err := strconv.ParseInt(strings.TrimSpace(args[0].AsString()), 10, 64)
		if err != nil {
			return None()
		}
		return Some(Int(n))
	})
	reg("string::to_float", func(args []Value, sp Span) Value {
		checkArgc("string::to_float", args, 1, sp)
		f, err := strconv.ParseFloat(strings.TrimSpace(args[0].AsString()), 64)
		if err != nil {
			return None()
		}
		return Some(Float(f))
	})

	reg("int::to_float", func(args []Value, sp Span) Value {
		checkArgc("int::to_float", args, 1, sp)
		return Float(float64(args[0].AsInt()))
	})
	reg("int::abs", func(args []Value, sp Span) Value {
		checkArgc("int::abs", args, 1, sp)
		n := args[0].AsInt()
		if n < 0 {
			n = -n
		}
		return Int(n)
	})
	reg("float::to_int", func(args []Value, sp Span) Value {
		checkArgc("float::to_int", args, 1, sp)
		return Int(int64(args[0].AsFloat()))
	})
	reg("float::abs", func(args []Value, sp Span) Value {
		checkArgc("float::abs", args, 1, sp)
		f := args[0].AsFloat()
		if f < 0 {
			f = -f
		}
		return Float(f)
	})
	reg("bool::to_string", func(args []Value, sp Span) Value {
		checkArgc("bool::to_string", args, 1, sp)
		return Str(ToDisplayString(args[0]))
	})
}
