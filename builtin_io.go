// builtin_io.go
//
// Host I/O primitives (spec §4.8, §5 "suspension points"): print, file
// read, and wall-clock time are the only places user code can observe
// anything outside the process's own heap. Grounded on daios-ai-msg's
// own habit of writing program output straight to os.Stdout rather than
// through a logging abstraction (see SPEC_FULL.md's Ambient Stack note
// on the teacher's deliberate absence of a logging library).
package lang

import (
	"fmt"
	"os"
	"time"
)

func registerIOBuiltins(reg func(name string, fn func(args []Value, sp Span) Value)) {
	reg("print", func(args []Value, sp Span) Value {
		parts := make([]any, len(args))
		for i, a := range args {
			parts[i] = ToDisplayString(a)
		}
		fmt.Fprintln(os.Stdout, parts...)
		return Null
	})
	reg("eprint", func(args []Value, sp Span) Value {
		parts := make([]any, len(args))
		for i, a := range args {
			parts[i] = ToDisplayString(a)
		}
		fmt.Fprintln(os.Stderr, parts...)
		return Null
	})
	reg("read_file", func(args []Value, sp Span) Value {
		checkArgc("read_file", args, 1, sp)
		data, err := os.ReadFile(args[0].AsString())
		if err != nil {
			return Err(Str(err.Error()))
		}
		return Ok(Str(string(data)))
	})
	reg("write_file", func(args []Value, sp Span) Value {
		checkArgc("write_file", args, 2, sp)
		err := os.WriteFile(args[0].AsString(), []byte(args[1].AsString()), 0o644)
		if err != nil {
			return Err(Str(err.Error()))
		}
		return Ok(Null)
	})
	reg("now_millis", func(args []Value, sp Span) Value {
		checkArgc("now_millis", args, 0, sp)
		return Int(time.Now().UnixMilli())
	})
	reg("panic", func(args []Value, sp Span) Value {
		msg := "explicit panic"
		if len(args) > 0 {
			msg = ToDisplayString(args[0])
		}
		throwRuntime(sp, CodeRuntimePanic, "%s", msg)
		return Null
	})
}
