// resolver.go
//
// Static semantic analysis pass between parsing and compilation (spec
// §4.3): name resolution, mutability checks, shadowing and unreachable-
// statement warnings, break/continue/return placement, and match
// exhaustiveness for tagged-variant subjects. The teacher resolves names
// dynamically at eval time via its Env chain (interpreter.go); this
// language instead resolves statically so the bytecode compiler can
// assign fixed local slots (spec §4.4), so this pass has no direct
// teacher analog. Its error type and "did you mean" suggestion helper
// are grounded on errors.go's ParseError shape and on the teacher's
// own closest-match identifier suggestion in interpreter.go.
package lang

import "fmt"

// ResolveError is a single semantic-analysis failure or warning.
type ResolveError struct {
	Span     Span
	Msg      string
	Code     string
	Severity Severity
}

func (e *ResolveError) Error() string { return e.Msg }

type scopeKind int

const (
	scopeBlock scopeKind = iota
	scopeFunc
	scopeLoop
)

type binding struct {
	name    string
	mutable bool
	used    bool
	span    Span
}

type scope struct {
	kind     scopeKind
	parent   *scope
	bindings map[string]*binding
}

func newScope(kind scopeKind, parent *scope) *scope {
	return &scope{kind: kind, parent: parent, bindings: map[string]*binding{}}
}

func (s *scope) lookup(name string) (*binding, *scope) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.bindings[name]; ok {
			return b, sc
		}
	}
	return nil, nil
}

func (s *scope) declare(name string, mutable bool, sp Span) *binding {
	b := &binding{name: name, mutable: mutable, span: sp}
	s.bindings[name] = b
	return b
}

func (s *scope) inLoop() bool {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.kind == scopeLoop {
			return true
		}
		if sc.kind == scopeFunc {
			return false
		}
	}
	return false
}

func (s *scope) inFunc() bool {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.kind == scopeFunc {
			return true
		}
	}
	return false
}

// Resolver walks a Module, recording diagnostics into Diags. It does not
// mutate the AST (the type schemas and mangled methods the resolver
// also collects are recorded on the side, in Types and Methods, for
// compiler.go to consume).
type Resolver struct {
	Diags   *Bag
	Types   map[string]*TypeDef
	Methods map[string]*FuncDef // mangled "Type::method" -> def
	cur     *scope
}

func NewResolver() *Resolver {
	return &Resolver{Diags: &Bag{}, Types: map[string]*TypeDef{}, Methods: map[string]*FuncDef{}}
}

// Resolve runs the full pass on an existing Resolver, leaving its
// Types/Methods tables populated for compiler.go (or the interpreter)
// to consume afterward.
func (r *Resolver) Resolve(mod *Module) *Bag {
	r.run(mod)
	r.Diags.Sort()
	return r.Diags
}

// Resolve is the package-level convenience form for callers that don't
// need the populated Types/Methods tables afterward.
func Resolve(mod *Module) *Bag {
	r := NewResolver()
	return r.Resolve(mod)
}

func (r *Resolver) errorf(sp Span, code, format string, args ...any) {
	r.Diags.Add(Diagnostic{Code: code, Severity: SevError, Span: sp, Message: fmt.Sprintf(format, args...)})
}

func (r *Resolver) warnf(sp Span, code, format string, args ...any) {
	r.Diags.Add(Diagnostic{Code: code, Severity: SevWarning, Span: sp, Message: fmt.Sprintf(format, args...)})
}

func (r *Resolver) run(mod *Module) {
	r.cur = newScope(scopeBlock, nil)
	r.registerBuiltins()
	// two passes: collect type/func declarations first so forward
	// references between top-level items resolve (spec §4.3).
	for _, item := range mod.Items {
		r.collectItem(item)
	}
	for _, item := range mod.Items {
		r.resolveItem(item)
	}
}

func (r *Resolver) registerBuiltins() {
	for _, name := range builtinFunctionNames() {
		r.cur.declare(name, false, NoSpan).used = true
	}
}

func (r *Resolver) collectItem(n Node) {
	switch it := n.(type) {
	case *TypeDef:
		r.Types[it.Name] = it
		for _, m := range it.Methods {
			r.Methods[it.Name+"::"+m.Name] = m
		}
		r.cur.declare(it.Name, false, it.Span())
		for _, v := range it.Variants {
			r.cur.declare(v.Name, false, it.Span())
		}
	case *ExtensionDef:
		for _, m := range it.Methods {
			r.Methods[it.TypeName+"::"+m.Name] = m
		}
	case *FuncDef:
		r.cur.declare(it.Name, false, it.Span())
	case *LetStmt:
		if it.Name != "" {
			r.cur.declare(it.Name, it.Mutable, it.Span())
		}
		for _, t := range it.Targets {
			r.cur.declare(t, it.Mutable, it.Span())
		}
	}
}

func (r *Resolver) resolveItem(n Node) {
	switch it := n.(type) {
	case *ImportStmt:
		r.cur.declare(it.Alias, false, it.Span())
	case *TypeDef:
		for _, m := range it.Methods {
			r.resolveFunc(m, it.Name)
		}
	case *ExtensionDef:
		for _, m := range it.Methods {
			r.resolveFunc(m, it.TypeName)
		}
	case *FuncDef:
		r.resolveFunc(it, "")
	case *LetStmt:
		// Top-level let/var names are already declared by collectItem
		// (so later items can forward-reference them); only the
		// initializer still needs resolving here.
		r.resolveExpr(it.Init)
		r.checkAnnotation(it.Annotation, it.Init, it.Span())
	default:
		r.resolveStmt(n)
	}
}

func (r *Resolver) resolveFunc(fd *FuncDef, receiverType string) {
	parent := r.cur
	r.cur = newScope(scopeFunc, parent)
	if receiverType != "" {
		r.cur.declare("self", false, fd.Span())
	}
	for _, p := range fd.Params {
		r.cur.declare(p.Name, false, fd.Span())
	}
	r.resolveBlock(fd.Body)
	r.checkUnused(r.cur)
	r.cur = parent
}

func (r *Resolver) resolveBlock(b *Block) {
	parent := r.cur
	r.cur = newScope(scopeBlock, parent)
	unreachable := false
	for i, s := range b.Stmts {
		if unreachable {
			r.warnf(s.Span(), CodeResolveUnreachable, "unreachable statement")
		}
		r.resolveStmt(s)
		switch s.(type) {
		case *ReturnStmt, *BreakStmt, *ContinueStmt:
			if i < len(b.Stmts)-1 {
				unreachable = true
			}
		}
	}
	r.checkUnused(r.cur)
	r.cur = parent
}

func (r *Resolver) checkUnused(s *scope) {
	for _, b := range s.bindings {
		if !b.used && b.name != "_" && b.name != "self" {
			r.warnf(b.span, CodeResolveShadowing, "binding %q is never used", b.name)
		}
	}
}

// staticLiteralType returns the scalar/structural type name a literal
// expression is known to have without evaluating it, or "" when init
// isn't a literal the resolver can reason about statically (a call, a
// name lookup, an arithmetic expression, etc. all legitimately produce
// a value of any type, so they are left to run-time checking instead).
func staticLiteralType(init Expr) string {
	switch lit := init.(type) {
	case *IntLit:
		return "int"
	case *FloatLit:
		return "float"
	case *BoolLit:
		return "bool"
	case *StringLit, *StringInterp:
		return "string"
	case *ListLit:
		return "list"
	case *MapLit:
		return "mapping"
	case *TupleLit:
		return "tuple"
	case *StructLit:
		return lit.TypeName
	case *FuncLit:
		return "function"
	}
	return ""
}

// checkAnnotation reports a mismatch between a `name: Type` annotation and
// a literal initializer whose type is known at resolve time (spec.md §4's
// type-annotation feature). Annotations on non-literal initializers, and
// optional/function-shaped annotations, aren't checked here — only the
// run-time backends can tell whether a call result matches `T?`.
func (r *Resolver) checkAnnotation(ann Node, init Expr, sp Span) {
	name := annotationTypeName(ann)
	if name == "" || init == nil {
		return
	}
	lit := staticLiteralType(init)
	if lit == "" || lit == name {
		return
	}
	r.errorf(sp, CodeResolveBadAnnotation, "type annotation %q does not match literal initializer of type %q", name, lit)
}

func (r *Resolver) declareShadowCheck(name string, mutable bool, sp Span) {
	if existing, sc := r.cur.lookup(name); existing != nil && sc == r.cur {
		r.warnf(sp, CodeResolveShadowing, "redeclaration of %q in the same scope", name)
	} else if existing != nil {
		r.warnf(sp, CodeResolveShadowing, "binding %q shadows an outer binding", name)
	}
	r.cur.declare(name, mutable, sp)
}

func (r *Resolver) resolveStmt(n Node) {
	switch st := n.(type) {
	case *LetStmt:
		r.resolveExpr(st.Init)
		r.checkAnnotation(st.Annotation, st.Init, st.Span())
		if st.Name != "" {
			r.declareShadowCheck(st.Name, st.Mutable, st.Span())
		}
		for _, t := range st.Targets {
			r.declareShadowCheck(t, st.Mutable, st.Span())
		}
	case *AssignStmt:
		r.resolveExpr(st.Value)
		r.resolveAssignTarget(st.Target)
	case *ExprStmt:
		r.resolveExpr(st.X)
	case *ReturnStmt:
		if !r.cur.inFunc() {
			r.errorf(st.Span(), CodeResolveBadControl, "'return' outside a function")
		}
		if st.Value != nil {
			r.resolveExpr(st.Value)
		}
	case *BreakStmt:
		if !r.cur.inLoop() {
			r.errorf(st.Span(), CodeResolveBadControl, "'break' outside a loop")
		}
		if st.Value != nil {
			r.resolveExpr(st.Value)
		}
	case *ContinueStmt:
		if !r.cur.inLoop() {
			r.errorf(st.Span(), CodeResolveBadControl, "'continue' outside a loop")
		}
	case *IfStmt:
		r.resolveExpr(st.Cond)
		r.resolveBlock(st.Then)
		if st.Else != nil {
			r.resolveItem(st.Else)
		}
	case *WhileStmt:
		r.resolveExpr(st.Cond)
		parent := r.cur
		r.cur = newScope(scopeLoop, parent)
		r.resolveBlock(st.Body)
		r.cur = parent
	case *ForStmt:
		r.resolveExpr(st.Iter)
		parent := r.cur
		r.cur = newScope(scopeLoop, parent)
		r.cur.declare(st.Var, false, st.Span())
		r.resolveBlock(st.Body)
		r.cur = parent
	case *MatchStmt:
		r.resolveExpr(st.Subject)
		sawWild := false
		for _, arm := range st.Arms {
			if _, ok := arm.Pattern.(*WildcardPattern); ok {
				sawWild = true
			}
			parent := r.cur
			r.cur = newScope(scopeBlock, parent)
			r.declarePattern(arm.Pattern)
			r.resolveBlock(arm.Body)
			r.cur = parent
		}
		if !sawWild {
			r.errorf(st.Span(), CodeParseNonExhaustive, "match is not exhaustive: missing a wildcard arm")
		}
	case *Block:
		r.resolveBlock(st)
	case *FuncDef:
		r.resolveFunc(st, "")
	case *TypeDef, *ExtensionDef, *ImportStmt:
		r.resolveItem(st)
	}
}

func (r *Resolver) resolveAssignTarget(x Expr) {
	switch t := x.(type) {
	case *Ident:
		b, _ := r.cur.lookup(t.Name)
		if b == nil {
			r.errorf(t.Span(), CodeResolveUndefined, "assignment to undefined name %q", t.Name)
			return
		}
		if !b.mutable {
			r.errorf(t.Span(), CodeResolveBadAssign, "cannot assign to immutable binding %q (declared with 'let', not 'var')", t.Name)
		}
		b.used = true
	case *FieldAccess:
		r.resolveExpr(t.X)
	case *IndexExpr:
		r.resolveExpr(t.X)
		r.resolveExpr(t.Index)
	default:
		r.errorf(x.Span(), CodeResolveBadAssign, "invalid assignment target")
	}
}

func (r *Resolver) declarePattern(p Pattern) {
	switch pt := p.(type) {
	case *BindPattern:
		r.cur.declare(pt.Name, false, pt.Span())
	case *TuplePattern:
		for _, e := range pt.Elems {
			r.declarePattern(e)
		}
	case *VariantPattern:
		for _, f := range pt.Fields {
			r.declarePattern(f)
		}
	case *LitPattern:
		r.resolveExpr(pt.Value)
	}
}

func (r *Resolver) resolveExpr(n Expr) {
	switch e := n.(type) {
	case *Ident:
		b, _ := r.cur.lookup(e.Name)
		if b == nil {
			suggestion := closestIdent(e.Name, r.cur)
			if suggestion != "" {
				r.errorf(e.Span(), CodeResolveUndefined, "undefined name %q (did you mean %q?)", e.Name, suggestion)
			} else {
				r.errorf(e.Span(), CodeResolveUndefined, "undefined name %q", e.Name)
			}
			return
		}
		b.used = true
	case *UnaryExpr:
		r.resolveExpr(e.X)
	case *BinaryExpr:
		r.resolveExpr(e.X)
		r.resolveExpr(e.Y)
	case *LogicalExpr:
		r.resolveExpr(e.X)
		r.resolveExpr(e.Y)
	case *FieldAccess:
		r.resolveExpr(e.X)
	case *IndexExpr:
		r.resolveExpr(e.X)
		r.resolveExpr(e.Index)
	case *CallExpr:
		r.resolveExpr(e.Callee)
		for _, a := range e.Args {
			r.resolveExpr(a)
		}
	case *TupleLit:
		for _, el := range e.Elems {
			r.resolveExpr(el)
		}
	case *ListLit:
		for _, el := range e.Elems {
			r.resolveExpr(el)
		}
	case *MapLit:
		for _, ent := range e.Entries {
			r.resolveExpr(ent.Key)
			r.resolveExpr(ent.Value)
		}
	case *RangeExpr:
		r.resolveExpr(e.Start)
		r.resolveExpr(e.End)
	case *StructLit:
		if e.Base != nil {
			r.resolveExpr(e.Base)
		}
		for _, f := range e.Fields {
			r.resolveExpr(f.Value)
		}
	case *VariantLit:
		for _, a := range e.Args {
			r.resolveExpr(a)
		}
	case *FuncLit:
		parent := r.cur
		r.cur = newScope(scopeFunc, parent)
		for _, p := range e.Params {
			r.cur.declare(p.Name, false, e.Span())
		}
		r.resolveBlock(e.Body)
		r.checkUnused(r.cur)
		r.cur = parent
	case *IfExpr:
		r.resolveExpr(e.Cond)
		r.resolveExpr(e.Then)
		r.resolveExpr(e.Else)
	case *MatchExpr:
		r.resolveExpr(e.Subject)
		sawWild := false
		for _, arm := range e.Arms {
			if _, ok := arm.Pattern.(*WildcardPattern); ok {
				sawWild = true
			}
			parent := r.cur
			r.cur = newScope(scopeBlock, parent)
			r.declarePattern(arm.Pattern)
			r.resolveExpr(arm.Value)
			r.cur = parent
		}
		if !sawWild {
			r.errorf(e.Span(), CodeParseNonExhaustive, "match expression is not exhaustive: missing a wildcard arm")
		}
	case *GroupExpr:
		r.resolveExpr(e.X)
	case *StringInterp:
		for _, x := range e.Exprs {
			r.resolveExpr(x)
		}
	}
}

// closestIdent returns the visible name with the smallest bounded edit
// distance to name (spec §4.3's "did you mean" suggestion), or "" if
// nothing is close enough to be worth suggesting.
func closestIdent(name string, s *scope) string {
	best := ""
	bestDist := 3 // suggestions beyond this distance are not useful
	for sc := s; sc != nil; sc = sc.parent {
		for n := range sc.bindings {
			d := editDistance(name, n)
			if d < bestDist {
				bestDist = d
				best = n
			}
		}
	}
	return best
}

func editDistance(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			cur[j] = min3(del, ins, sub)
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
