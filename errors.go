// errors.go
//
// ParseError and RuntimeError, plus the caret-snippet renderer. Directly
// adapted from daios-ai-msg/errors.go's WrapErrorWithSource /
// prettyErrorStringLabeled pair: same "header at line:col: message" plus
// offending-source-line plus caret shape (no surrounding context
// lines), generalized to the
// `Severity[Code]:line:col: file: message` format spec.md §6.1 mandates.
package lang

import (
	"fmt"
	"strings"
)

// ParseError is a single parse-stage failure.
type ParseError struct {
	Span Span
	Msg  string
	Code string
}

func (e *ParseError) Error() string { return e.Msg }

// RuntimeError is a fatal, stack-unwinding runtime failure (spec §4.6,
// §7): it terminates the current execution and yields a non-zero exit
// code. There is no user-catchable exception mechanism (spec §4.6).
type RuntimeError struct {
	Span Span
	Msg  string
	Code string
}

func (e *RuntimeError) Error() string { return e.Msg }

// runtimeSignal is the sentinel panic value used to unwind the AST
// interpreter and the VM to their top-level recover(), mirroring the
// teacher's rtErr + recover() pattern (runtime.go, interpreter.go).
type runtimeSignal struct {
	err *RuntimeError
}

func throwRuntime(sp Span, code, format string, args ...any) {
	panic(runtimeSignal{err: &RuntimeError{Span: sp, Code: code, Msg: fmt.Sprintf(format, args...)}})
}

// maxCallDepth bounds nested function calls in both backends so unbounded
// recursion panics with a diagnosable error instead of exhausting the Go
// goroutine stack, which os.Exit(2)s the whole process with no chance to
// recover or report a diagnostic.
const maxCallDepth = 10000

func throwRecursionLimit(sp Span) {
	throwRuntime(sp, CodeRuntimeRecursion, "call stack exceeded maximum depth of %d", maxCallDepth)
}

// checkFieldAnnotation enforces a struct field's declared `: Type`
// annotation against the value actually assigned to it. Both backends
// call this at struct-construction time (the interpreter from the
// resolver's Types table, the VM from the compiler's Program.Schemas)
// so a field-type mismatch panics identically under either backend.
func checkFieldAnnotation(declared, fieldName string, v Value, sp Span) {
	if declared == "" {
		return
	}
	if got := TypeOf(v); got != declared {
		throwRuntime(sp, CodeTypeFieldMismatch, "field %q declared as %s but assigned a value of type %s", fieldName, declared, got)
	}
}

// ToDiagnostic converts any lex/parse/resolve/runtime error type used in
// this module into a Diagnostic. Unrecognized error types become a
// generic E006 "explicit panic" diagnostic.
func ToDiagnostic(err error) Diagnostic {
	switch e := err.(type) {
	case *LexError:
		return Diagnostic{Code: e.Code, Severity: SevError, Span: e.Span, Message: e.Msg}
	case *ParseError:
		return Diagnostic{Code: e.Code, Severity: SevError, Span: e.Span, Message: e.Msg}
	case *ResolveError:
		return Diagnostic{Code: e.Code, Severity: e.Severity, Span: e.Span, Message: e.Msg}
	case *RuntimeError:
		return Diagnostic{Code: e.Code, Severity: SevError, Span: e.Span, Message: e.Msg}
	default:
		return Diagnostic{Code: CodeRuntimePanic, Severity: SevError, Message: err.Error()}
	}
}

// RenderCaret formats a Diagnostic in the
// `Severity[Code]:line:col: file: message` form spec §6.1 specifies,
// followed by a source-line excerpt and a caret pointing at the span
// start.
func RenderCaret(d Diagnostic) string {
	var b strings.Builder
	name := "<unknown>"
	line, col := 0, 0
	if d.Span.Source != nil {
		name = d.Span.Source.Name
		line, col = d.Span.Source.LineCol(d.Span.Start)
	}
	fmt.Fprintf(&b, "%s[%s]:%d:%d: %s: %s\n", d.Severity, d.Code, line, col, name, d.Message)
	if d.Span.Source != nil && line >= 1 {
		srcLine := d.Span.Source.Line(line)
		fmt.Fprintf(&b, "%4d | %s\n", line, srcLine)
		pad := col - 1
		if pad < 0 {
			pad = 0
		}
		fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", pad))
	}
	if d.Help != "" {
		fmt.Fprintf(&b, "     help: %s\n", d.Help)
	}
	if d.Note != "" {
		fmt.Fprintf(&b, "     note: %s\n", d.Note)
	}
	return b.String()
}
