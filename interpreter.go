// interpreter.go
//
// The tree-walking backend (spec §4.6): evaluates the AST directly
// against an Env chain, with no compilation step. Control-flow signals
// (return/break/continue) are plain Go panics recovered at the nearest
// matching construct, the same shape as the teacher's rtErr +
// recover() pattern in interpreter_ops.go, generalized to three signal
// kinds instead of one.
//
// This backend and vm.go must agree on every observable behavior spec
// §9 lists. Both backends throw CodeRuntimeRecursion once nested calls
// pass maxCallDepth (errors.go) rather than let recursion exhaust the
// Go goroutine stack. Neither backend reuses frames for tail calls
// (see DESIGN.md's Open Question decisions), so both count every
// recursive call toward the limit.
package lang

import "fmt"

type returnSignal struct{ value Value }
type breakSignal struct{ value Value }
type continueSignal struct{}

// Interpreter walks a resolved Module's statements/expressions.
type Interpreter struct {
	Global  *Env
	Methods map[string]*FuncDef
	Types   map[string]*TypeDef
	Loader  *Loader // nil when running a standalone unit with no import support
	Dir     string  // directory of the module being run, for relative imports
	depth   int
}

func NewInterpreter(methods map[string]*FuncDef, types map[string]*TypeDef) *Interpreter {
	ip := &Interpreter{Global: NewEnv(nil), Methods: methods, Types: types}
	registerBuiltinsInto(ip.Global)
	return ip
}

// RunModule evaluates every top-level item in order and returns the
// value of the module's final expression statement, or Null.
func (ip *Interpreter) RunModule(mod *Module) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if sig, ok := r.(runtimeSignal); ok {
				err = sig.err
				return
			}
			panic(r)
		}
	}()
	var last Value
	for _, item := range mod.Items {
		last = ip.evalTopLevel(item, ip.Global)
	}
	return last, nil
}

func (ip *Interpreter) evalTopLevel(n Node, env *Env) Value {
	switch it := n.(type) {
	case *ImportStmt:
		if ip.Loader == nil {
			env.Define(it.Alias, Null)
			return Null
		}
		mv, err := ip.Loader.Load(it.Path, ip.Dir)
		if err != nil {
			throwRuntime(it.Span(), CodeModuleNotFound, "%v", err)
		}
		env.Define(it.Alias, NewMapValue(mv.Exports))
		return Null
	case *TypeDef, *ExtensionDef:
		return Null // purely declarative; already captured by the resolver's Types/Methods
	case *FuncDef:
		env.Define(it.Name, NewClosureASTDoc(it.Name, it.Doc, it.Params, it.Body, env))
		return Null
	default:
		return ip.execStmt(n, env)
	}
}

func (ip *Interpreter) execBlock(b *Block, env *Env) Value {
	inner := NewEnv(env)
	var last Value
	for _, s := range b.Stmts {
		last = ip.execStmt(s, inner)
	}
	return last
}

func (ip *Interpreter) execStmt(n Node, env *Env) Value {
	switch s := n.(type) {
	case *LetStmt:
		v := ip.eval(s.Init, env)
		if s.Name != "" {
			env.Define(s.Name, v)
		} else {
			for i, t := range s.Targets {
				env.Define(t, indexValue(v, Int(int64(i)), s.Span()))
			}
		}
		return Null
	case *AssignStmt:
		v := ip.eval(s.Value, env)
		ip.assign(s.Target, v, env)
		return Null
	case *ExprStmt:
		return ip.eval(s.X, env)
	case *ReturnStmt:
		var v Value
		if s.Value != nil {
			v = ip.eval(s.Value, env)
		}
		panic(returnSignal{v})
	case *BreakStmt:
		var v Value
		if s.Value != nil {
			v = ip.eval(s.Value, env)
		}
		panic(breakSignal{v})
	case *ContinueStmt:
		panic(continueSignal{})
	case *IfStmt:
		if ip.eval(s.Cond, env).IsTruthy() {
			return ip.execBlock(s.Then, env)
		}
		if s.Else != nil {
			return ip.execStmt(s.Else, env)
		}
		return Null
	case *WhileStmt:
		ip.runLoop(func() bool { return ip.eval(s.Cond, env).IsTruthy() }, func() { ip.execBlock(s.Body, env) })
		return Null
	case *ForStmt:
		ip.execFor(s, env)
		return Null
	case *MatchStmt:
		return ip.execMatchArms(ip.eval(s.Subject, env), s.Arms, env, s.Span())
	case *Block:
		return ip.execBlock(s, env)
	case *FuncDef:
		env.Define(s.Name, NewClosureASTDoc(s.Name, s.Doc, s.Params, s.Body, env))
		return Null
	case *TypeDef, *ExtensionDef, *ImportStmt:
		return ip.evalTopLevel(s, env)
	}
	return Null
}

func (ip *Interpreter) runLoop(cond func() bool, body func()) {
	for cond() {
		if ip.runLoopBody(body) {
			break
		}
	}
}

// runLoopBody runs one iteration, catching break/continue; returns true
// if the loop should stop (a break occurred).
func (ip *Interpreter) runLoopBody(body func()) (stop bool) {
	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case breakSignal:
				stop = true
			case continueSignal:
				stop = false
			default:
				panic(r)
			}
		}
	}()
	body()
	return false
}

func (ip *Interpreter) execFor(s *ForStmt, env *Env) {
	iterVal := ip.eval(s.Iter, env)
	elems := toIterable(iterVal, s.Span())
	for _, el := range elems {
		loopEnv := NewEnv(env)
		loopEnv.Define(s.Var, el)
		if ip.runLoopBody(func() { ip.execBlock(s.Body, loopEnv) }) {
			break
		}
	}
}

// toIterable converts a for-loop subject to a concrete slice of values
// the walker can range over directly (list/tuple elements, or mapping
// values in insertion order; a range expression already evaluates to a
// list). Any other value, a struct included, is a runtime error.
func toIterable(v Value, sp Span) []Value {
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

func (ip *Interpreter) assign(target Expr, v Value, env *Env) {
	switch t := target.(type) {
	case *Ident:
		if err := env.Set(t.Name, v); err != nil {
			throwRuntime(t.Span(), CodeResolveUndefined, "%s", err)
		}
	case *FieldAccess:
		obj := ip.eval(t.X, env)
		setField(obj, t.Name, v, t.Span())
	case *IndexExpr:
		obj := ip.eval(t.X, env)
		idx := ip.eval(t.Index, env)
		setIndexValue(obj, idx, v, t.Span())
	}
}

func (ip *Interpreter) eval(n Expr, env *Env) Value {
	switch e := n.(type) {
	case *IntLit:
		return Int(e.Value)
	case *FloatLit:
		return Float(e.Value)
	case *BoolLit:
		return Bool(e.Value)
	case *NullLit:
		return Null
	case *StringLit:
		return Str(e.Value)
	case *StringInterp:
		return ip.evalStringInterp(e, env)
	case *Ident:
		v, err := env.Get(e.Name)
		if err != nil {
			throwRuntime(e.Span(), CodeResolveUndefined, "%s", err)
		}
		return v
	case *UnaryExpr:
		x := ip.eval(e.X, env)
		switch e.Op {
		case MINUS:
			if x.Tag == VInt {
				return Int(-x.AsInt())
			}
			return Float(-x.AsFloat())
		default:
			return Bool(!x.IsTruthy())
		}
	case *BinaryExpr:
		a, b := ip.eval(e.X, env), ip.eval(e.Y, env)
		return evalBinary(e.Op, a, b, e.Span())
	case *LogicalExpr:
		a := ip.eval(e.X, env)
		if e.Op == AND_AND || e.Op == KW_AND {
			if !a.IsTruthy() {
				return a
			}
			return ip.eval(e.Y, env)
		}
		if a.IsTruthy() {
			return a
		}
		return ip.eval(e.Y, env)
	case *RangeExpr:
		a, b := ip.eval(e.Start, env), ip.eval(e.End, env)
		return NewList(makeRange(a.AsInt(), b.AsInt(), e.Inclusive))
	case *FieldAccess:
		obj := ip.eval(e.X, env)
		return ip.getField(obj, e.Name, e.Span())
	case *IndexExpr:
		obj := ip.eval(e.X, env)
		idx := ip.eval(e.Index, env)
		return indexValue(obj, idx, e.Span())
	case *CallExpr:
		return ip.evalCall(e, env)
	case *TupleLit:
		return NewTuple(ip.evalList(e.Elems, env))
	case *ListLit:
		return NewList(ip.evalList(e.Elems, env))
	case *MapLit:
		mp := NewMapping()
		for _, ent := range e.Entries {
			mp.Set(ip.eval(ent.Key, env), ip.eval(ent.Value, env))
		}
		return NewMapValue(mp)
	case *StructLit:
		return ip.evalStructLit(e, env)
	case *VariantLit:
		return NewVariant(e.TypeName, e.Tag, ip.evalList(e.Args, env))
	case *FuncLit:
		return NewClosureAST("<anonymous>", e.Params, e.Body, env)
	case *IfExpr:
		if ip.eval(e.Cond, env).IsTruthy() {
			return ip.eval(e.Then, env)
		}
		return ip.eval(e.Else, env)
	case *MatchExpr:
		return ip.evalMatchExpr(e, env)
	case *GroupExpr:
		return ip.eval(e.X, env)
	}
	return Null
}

func (ip *Interpreter) evalList(xs []Expr, env *Env) []Value {
	out := make([]Value, len(xs))
	for i, x := range xs {
		out[i] = ip.eval(x, env)
	}
	return out
}

func (ip *Interpreter) evalStringInterp(e *StringInterp, env *Env) Value {
	out := e.Fragments[0]
	for i, x := range e.Exprs {
		out += ToDisplayString(ip.eval(x, env))
		out += e.Fragments[i+1]
	}
	return Str(out)
}

func (ip *Interpreter) evalStructLit(e *StructLit, env *Env) Value {
	fields := map[string]Value{}
	var order []string
	if e.Base != nil {
		base := ip.eval(e.Base, env)
		if base.Tag == VStruct {
			bi := base.Handle().St
			for _, k := range bi.Order {
				fields[k] = bi.Fields[k]
				order = append(order, k)
			}
		}
	}
	td := ip.Types[e.TypeName]
	for _, f := range e.Fields {
		if _, exists := fields[f.Name]; !exists {
			order = append(order, f.Name)
		}
		v := ip.eval(f.Value, env)
		if td != nil {
			for _, fd := range td.Fields {
				if fd.Name == f.Name {
					checkFieldAnnotation(annotationTypeName(fd.Annotation), f.Name, v, f.Value.Span())
					break
				}
			}
		}
		fields[f.Name] = v
	}
	return NewStruct(e.TypeName, order, fields)
}

func (ip *Interpreter) getField(obj Value, name string, sp Span) Value {
	switch obj.Tag {
	case VStruct:
		st := obj.Handle().St
		if v, ok := st.Fields[name]; ok {
			return v
		}
		if fd, ok := ip.Methods[st.TypeName+"::"+name]; ok {
			return ip.bindMethod(fd, obj)
		}
		throwRuntime(sp, CodeResolveUnknownMember, "struct %s has no field or method %q", st.TypeName, name)
	case VMapping:
		if v, ok := obj.Handle().Map.Get(Str(name)); ok {
			return v
		}
	case VVariant:
		if name == "tag" {
			return Str(obj.Handle().Var.Tag)
		}
	}
	if prefix := builtinMethodPrefix(obj.Tag); prefix != "" {
		if fn, err := ip.Global.Get(prefix + "::" + name); err == nil {
			return bindBuiltinReceiver(fn, obj)
		}
	}
	throwRuntime(sp, CodeResolveUnknownMember, "value of type %s has no field %q", TypeOf(obj), name)
	return Null
}

func setField(obj Value, name string, v Value, sp Span) {
	switch obj.Tag {
	case VStruct:
		st := obj.Handle().St
		if _, ok := st.Fields[name]; !ok {
			st.Order = append(st.Order, name)
		}
		st.Fields[name] = v
	case VMapping:
		obj.Handle().Map.Set(Str(name), v)
	default:
		throwRuntime(sp, CodeTypeNotCallable, "value of type %s does not support field assignment", TypeOf(obj))
	}
}

func (ip *Interpreter) bindMethod(fd *FuncDef, receiver Value) Value {
	env := NewEnv(nil)
	cl := &Closure{Name: fd.Name, Doc: fd.Doc, Params: fd.Params, AST: fd.Body, Env: env, Receiver: &receiver}
	return Value{Tag: VClosure, Data: &Handle{Kind: VClosure, Fn: cl, refs: 1}}
}

func indexValue(obj, idx Value, sp Span) Value {
	switch obj.Tag {
	case VList:
		return indexSlice(obj.Handle().List, idx, sp)
	case VTuple:
		return indexSlice(obj.Handle().Tup, idx, sp)
	case VMapping:
		v, ok := obj.Handle().Map.Get(idx)
		if !ok {
			throwRuntime(sp, CodeRuntimeKeyNotFound, "key not found in mapping")
		}
		return v
	case VString:
		runes := []rune(obj.AsString())
		i := idx.AsInt()
		if i < 0 || int(i) >= len(runes) {
			throwRuntime(sp, CodeRuntimeIndexRange, "index %d out of range (length %d)", i, len(runes))
		}
		return Str(string(runes[i]))
	}
	throwRuntime(sp, CodeTypeNotCallable, "value of type %s is not indexable", TypeOf(obj))
	return Null
}

func indexSlice(elems []Value, idx Value, sp Span) Value {
	i := idx.AsInt()
	if i < 0 || int(i) >= len(elems) {
		throwRuntime(sp, CodeRuntimeIndexRange, "index %d out of range (length %d)", i, len(elems))
	}
	return elems[i]
}

func setIndexValue(obj, idx, v Value, sp Span) {
	switch obj.Tag {
	case VList:
		elems := obj.Handle().List
		i := idx.AsInt()
		if i < 0 || int(i) >= len(elems) {
			throwRuntime(sp, CodeRuntimeIndexRange, "index %d out of range (length %d)", i, len(elems))
		}
		elems[i] = v
	case VMapping:
		obj.Handle().Map.Set(idx, v)
	default:
		throwRuntime(sp, CodeTypeNotCallable, "value of type %s does not support index assignment", TypeOf(obj))
	}
}

func (ip *Interpreter) evalCall(e *CallExpr, env *Env) Value {
	callee := ip.eval(e.Callee, env)
	args := ip.evalList(e.Args, env)
	return ip.Apply(callee, args, e.Span())
}

// Apply invokes any callable Value (closure or builtin), used both by
// evalCall and by builtins that take callback arguments (map/filter/etc
// in builtin_collections.go).
func (ip *Interpreter) Apply(callee Value, args []Value, sp Span) Value {
	switch callee.Tag {
	case VBuiltin:
		return callee.Data.(*BuiltinFunc).Fn(args, sp)
	case VClosure:
		if ip.depth >= maxCallDepth {
			throwRecursionLimit(sp)
		}
		cl := callee.Handle().Fn
		if cl.Receiver != nil {
			args = append([]Value{*cl.Receiver}, args...)
		}
		callEnv := NewEnv(cl.Env)
		for i, p := range cl.Params {
			if i < len(args) {
				callEnv.Define(p.Name, args[i])
			} else {
				callEnv.Define(p.Name, Null)
			}
		}
		ip.depth++
		defer func() { ip.depth-- }()
		return ip.runFuncBody(cl.AST, callEnv)
	}
	throwRuntime(sp, CodeTypeNotCallable, "value of type %s is not callable", TypeOf(callee))
	return Null
}

func (ip *Interpreter) runFuncBody(body *Block, env *Env) (result Value) {
	defer func() {
		if r := recover(); r != nil {
			if sig, ok := r.(returnSignal); ok {
				result = sig.value
				return
			}
			panic(r)
		}
	}()
	result = ip.execBlock(body, env)
	return
}

func (ip *Interpreter) execMatchArms(subject Value, arms []*MatchArm, env *Env, sp Span) Value {
	for _, arm := range arms {
		if bindings, ok := matchPattern(arm.Pattern, subject); ok {
			inner := NewEnv(env)
			for k, v := range bindings {
				inner.Define(k, v)
			}
			return ip.execBlock(arm.Body, inner)
		}
	}
	throwRuntime(sp, CodeRuntimeNonExhaustive, "no match arm matched value of type %s", TypeOf(subject))
	return Null
}

func (ip *Interpreter) evalMatchExpr(e *MatchExpr, env *Env) Value {
	subject := ip.eval(e.Subject, env)
	for _, arm := range e.Arms {
		if bindings, ok := matchPattern(arm.Pattern, subject); ok {
			inner := NewEnv(env)
			for k, v := range bindings {
				inner.Define(k, v)
			}
			return ip.eval(arm.Value, inner)
		}
	}
	throwRuntime(e.Span(), CodeRuntimeNonExhaustive, "no match arm matched value of type %s", TypeOf(subject))
	return Null
}

// matchPattern reports whether subject matches pat, returning the
// bindings introduced if so.
func matchPattern(pat Pattern, subject Value) (map[string]Value, bool) {
	switch p := pat.(type) {
	case *WildcardPattern:
		return map[string]Value{}, true
	case *BindPattern:
		return map[string]Value{p.Name: subject}, true
	case *LitPattern:
		lit := literalValue(p.Value)
		if Equal(lit, subject) {
			return map[string]Value{}, true
		}
		return nil, false
	case *TuplePattern:
		var elems []Value
		switch subject.Tag {
		case VTuple:
			elems = subject.Handle().Tup
		case VList:
			elems = subject.Handle().List
		default:
			return nil, false
		}
		if len(elems) != len(p.Elems) {
			return nil, false
		}
		out := map[string]Value{}
		for i, sub := range p.Elems {
			b, ok := matchPattern(sub, elems[i])
			if !ok {
				return nil, false
			}
			for k, v := range b {
				out[k] = v
			}
		}
		return out, true
	case *VariantPattern:
		if subject.Tag != VVariant {
			return nil, false
		}
		vi := subject.Handle().Var
		if vi.Tag != p.Tag {
			return nil, false
		}
		if len(p.Fields) > len(vi.Args) {
			return nil, false
		}
		out := map[string]Value{}
		for i, sub := range p.Fields {
			b, ok := matchPattern(sub, vi.Args[i])
			if !ok {
				return nil, false
			}
			for k, v := range b {
				out[k] = v
			}
		}
		return out, true
	}
	return nil, false
}

func literalValue(e Expr) Value {
	switch lit := e.(type) {
	case *IntLit:
		return Int(lit.Value)
	case *FloatLit:
		return Float(lit.Value)
	case *BoolLit:
		return Bool(lit.Value)
	case *StringLit:
		return Str(lit.Value)
	case *NullLit:
		return Null
	}
	return Null
}

func evalBinary(op TokenType, a, b Value, sp Span) Value {
	switch op {
	case PLUS:
		if a.Tag == VString && b.Tag == VString {
			return Str(a.AsString() + b.AsString())
		}
		return arith(OpAdd, a, b, sp)
	case MINUS:
		return arith(OpSub, a, b, sp)
	case STAR:
		return arith(OpMul, a, b, sp)
	case SLASH:
		return arith(OpDiv, a, b, sp)
	case PERCENT:
		return arith(OpMod, a, b, sp)
	case EQ, KW_IS:
		return Bool(Equal(a, b))
	case NEQ, KW_ISNT:
		return Bool(!Equal(a, b))
	case LT:
		return compare(OpLt, a, b, sp)
	case LE:
		return compare(OpLe, a, b, sp)
	case GT:
		return compare(OpGt, a, b, sp)
	case GE:
		return compare(OpGe, a, b, sp)
	}
	throwRuntime(sp, CodeTypeNotCallable, "unsupported operator")
	return Null
}

// ToDisplayString renders v the way string interpolation and the
// `print`/`describe` builtins do (spec §4.8), quoting strings with
// ReprString's "%q" convention only when nested inside a container.
func ToDisplayString(v Value) string {
	switch v.Tag {
	case VNull:
		return "null"
	case VBool:
		return fmt.Sprintf("%v", v.Data.(bool))
	case VInt:
		return fmt.Sprintf("%d", v.AsInt())
	case VFloat:
		return fmt.Sprintf("%g", v.AsFloat())
	case VString:
		return v.AsString()
	case VTuple:
		return joinDisplay(v.Handle().Tup, "(", ")")
	case VList:
		return joinDisplay(v.Handle().List, "[", "]")
	case VMapping:
		mp := v.Handle().Map
		s := "{"
		for i, k := range mp.Order {
			if i > 0 {
				s += ", "
			}
			ev, _ := mp.Get(k)
			s += ReprString(k) + ": " + ReprString(ev)
		}
		return s + "}"
	case VStruct:
		st := v.Handle().St
		s := st.TypeName + "{"
		for i, f := range st.Order {
			if i > 0 {
				s += ", "
			}
			s += f + ": " + ReprString(st.Fields[f])
		}
		return s + "}"
	case VVariant:
		vi := v.Handle().Var
		if len(vi.Args) == 0 {
			return vi.Tag
		}
		return vi.Tag + joinDisplay(vi.Args, "(", ")")
	case VClosure, VBuiltin:
		return "<function>"
	default:
		return "<" + v.Tag.String() + ">"
	}
}

// ReprString is ToDisplayString except strings are quoted, used for
// elements nested inside lists/mappings/structs so `["a", "b"]` doesn't
// print as `[a, b]`.
func ReprString(v Value) string {
	if v.Tag == VString {
		return fmt.Sprintf("%q", v.AsString())
	}
	return ToDisplayString(v)
}

func joinDisplay(elems []Value, open, close string) string {
	s := open
	for i, e := range elems {
		if i > 0 {
			s += ", "
		}
		s += ReprString(e)
	}
	return s + close
}
