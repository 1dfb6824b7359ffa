// repl.go
//
// Persistent-env REPL evaluation, the interactive analog of
// daios-ai-msg/interpreter.go's EvalPersistentSource: each line is
// lexed and parsed fresh, but evaluated against the same top-level Env
// and method/type tables across the whole session, so a `let` or
// `func` on one line is visible on the next.
//
// Unlike a full `run`, the REPL does not run the resolver per line --
// doing so would require re-deriving scope state incrementally across
// an open-ended sequence of fragments, which the resolver (a whole-
// module, two-pass analyzer) isn't shaped for. Undefined-name errors
// that full analysis would catch statically are instead caught here at
// the point of use, as ordinary runtime errors (env.go's Env.Get).
package lang

type ReplInterpreter struct {
	ip *Interpreter
}

func NewReplInterpreter(r *Resolver) *ReplInterpreter {
	ip := NewInterpreter(r.Methods, r.Types)
	wireApply(ip, nil)
	return &ReplInterpreter{ip: ip}
}

// Loader lets main.go attach import support to the REPL's interpreter.
func (r *ReplInterpreter) SetLoader(l *Loader, dir string) {
	r.ip.Loader, r.ip.Dir = l, dir
}

// EvalLine parses code as a module fragment and evaluates each item
// against the REPL's persistent Env, returning the last value produced
// (Null if the fragment was purely declarative).
func (r *ReplInterpreter) EvalLine(code string) (result Value, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if sig, ok := rec.(runtimeSignal); ok {
				err = sig.err
				return
			}
			panic(rec)
		}
	}()
	src := NewSource("<repl>", code)
	mod, diags := Parse(src)
	if diags.HasErrors() {
		d := diags.Items()[0]
		return Null, &RuntimeError{Span: d.Span, Code: d.Code, Msg: d.Message}
	}
	for _, item := range mod.Items {
		if td, ok := item.(*TypeDef); ok {
			for _, m := range td.Methods {
				r.ip.Methods[td.Name+"::"+m.Name] = m
			}
			r.ip.Types[td.Name] = td
		}
		if ed, ok := item.(*ExtensionDef); ok {
			for _, m := range ed.Methods {
				r.ip.Methods[ed.TypeName+"::"+m.Name] = m
			}
		}
		result = r.ip.evalTopLevel(item, r.ip.Global)
	}
	return result, nil
}

