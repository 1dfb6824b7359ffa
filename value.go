// value.go
//
// The universal runtime value representation, directly modeled on
// daios-ai-msg/interpreter.go's Value{Tag, Data} carrier and its
// MapObject (ordered-map) shape. Two differences from the teacher:
//
//   - structural values (strings, lists, mappings, structs, closures,
//     variants) live behind a *Handle so the interpreter and VM can
//     share a refcounted heap (spec §3.1's "reference semantics for
//     structural values"; the teacher instead embeds Go's *MapObject /
//     []Value directly in Data with GC doing the reclaiming).
//   - ValueTag gains List/Struct/Variant/Tuple/Func cases this
//     language's type system needs that the teacher's duck-typed map
//     objects do not distinguish.
package lang

import (
	"fmt"
	"strconv"
	"strings"
)

type ValueTag int

const (
	VNull ValueTag = iota
	VBool
	VInt
	VFloat
	VString
	VTuple
	VList
	VMapping
	VStruct
	VVariant
	VClosure
	VBuiltin
	VModule
	VType
)

func (t ValueTag) String() string {
	switch t {
	case VNull:
		return "null"
	case VBool:
		return "bool"
	case VInt:
		return "int"
	case VFloat:
		return "float"
	case VString:
		return "string"
	case VTuple:
		return "tuple"
	case VList:
		return "list"
	case VMapping:
		return "mapping"
	case VStruct:
		return "struct"
	case VVariant:
		return "variant"
	case VClosure, VBuiltin:
		return "function"
	case VModule:
		return "module"
	case VType:
		return "type"
	}
	return "?"
}

// Value is the tagged union every expression evaluates to. Scalars carry
// their payload directly in Data; structural values carry a *Handle so
// list/mapping/struct/closure identity and refcounting are shared
// between the AST interpreter and the bytecode VM.
type Value struct {
	Tag  ValueTag
	Data any // bool | int64 | float64 | string | *Handle
}

var Null = Value{Tag: VNull}

func Bool(b bool) Value    { return Value{Tag: VBool, Data: b} }
func Int(n int64) Value    { return Value{Tag: VInt, Data: n} }
func Float(f float64) Value { return Value{Tag: VFloat, Data: f} }
func Str(s string) Value   { return Value{Tag: VString, Data: s} }

func (v Value) IsTruthy() bool {
	switch v.Tag {
	case VNull:
		return false
	case VBool:
		return v.Data.(bool)
	default:
		return true
	}
}

func (v Value) AsInt() int64     { return v.Data.(int64) }
func (v Value) AsFloat() float64 { return v.Data.(float64) }
func (v Value) AsString() string { return v.Data.(string) }
func (v Value) Handle() *Handle  { return v.Data.(*Handle) }

// Handle is the refcounted heap cell backing every structural Value.
// Refcount is incremented by Retain and decremented by Release; it is
// advisory bookkeeping (spec §3.1) that nothing in this package calls or
// reads, and no custom allocator uses it -- Go's GC owns the actual
// memory.
type Handle struct {
	refs int32
	Kind ValueTag
	List []Value              // VList
	Map  *Mapping             // VMapping
	Tup  []Value              // VTuple
	St   *StructInst          // VStruct
	Var  *VariantInst         // VVariant
	Fn   *Closure             // VClosure
}

func (h *Handle) Retain() *Handle {
	if h != nil {
		h.refs++
	}
	return h
}

func (h *Handle) Release() {
	if h != nil && h.refs > 0 {
		h.refs--
	}
}

func NewList(elems []Value) Value {
	return Value{Tag: VList, Data: &Handle{Kind: VList, List: elems, refs: 1}}
}

func NewTuple(elems []Value) Value {
	return Value{Tag: VTuple, Data: &Handle{Kind: VTuple, Tup: elems, refs: 1}}
}

// Mapping is an insertion-ordered key/value store, mirroring the
// teacher's MapObject (Entries + Keys) so iteration order matches
// literal-construction order (spec §3.1). Entries is keyed by
// mapKeyString rather than by Value directly: a Value holding a
// structural key (a tuple) carries a *Handle pointer in Data, and Go
// compares such Values by pointer identity, not by content, so two
// structurally-identical tuple keys built from separate literals would
// never collide as native Go map keys.
type Mapping struct {
	Entries map[string]Value
	Order   []Value // original normalized key Values, insertion order
}

func NewMapping() *Mapping {
	return &Mapping{Entries: map[string]Value{}}
}

func (m *Mapping) Get(key Value) (Value, bool) {
	v, ok := m.Entries[mapKeyString(normalizeKey(key))]
	return v, ok
}

func (m *Mapping) Set(key, val Value) {
	nk := normalizeKey(key)
	ks := mapKeyString(nk)
	if _, exists := m.Entries[ks]; !exists {
		m.Order = append(m.Order, nk)
	}
	m.Entries[ks] = val
}

func (m *Mapping) Delete(key Value) {
	nk := normalizeKey(key)
	ks := mapKeyString(nk)
	if _, exists := m.Entries[ks]; !exists {
		return
	}
	delete(m.Entries, ks)
	for i, k := range m.Order {
		if mapKeyString(k) == ks {
			m.Order = append(m.Order[:i], m.Order[i+1:]...)
			break
		}
	}
}

func (m *Mapping) Len() int { return len(m.Order) }

// normalizeKey collapses scalar keys to a canonical form (spec §3.1:
// integer and equal-valued float keys collide) before mapKeyString
// hashes them.
func normalizeKey(v Value) Value {
	if v.Tag == VInt {
		return v
	}
	if v.Tag == VFloat {
		f := v.AsFloat()
		if f == float64(int64(f)) {
			return Int(int64(f))
		}
	}
	if v.Tag == VTuple {
		elems := v.Handle().Tup
		normalized := make([]Value, len(elems))
		for i, e := range elems {
			normalized[i] = normalizeKey(e)
		}
		return NewTuple(normalized)
	}
	return v
}

// mapKeyString derives a stable, content-based hash key for a mapping
// key (spec §3.1/§4.5: "a hetero key still has a stable hash derived
// from its kind tag plus contents"). Every field is encoded with an
// explicit length prefix (a netstring-style scheme) so concatenating a
// tuple's encoded elements can never be confused with a different
// tuple whose elements happen to contain the same bytes in a different
// split.
func mapKeyString(v Value) string {
	switch v.Tag {
	case VBool:
		if v.Data.(bool) {
			return "b1:T"
		}
		return "b1:F"
	case VInt:
		s := strconv.FormatInt(v.AsInt(), 10)
		return "i" + strconv.Itoa(len(s)) + ":" + s
	case VString:
		s := v.AsString()
		return "s" + strconv.Itoa(len(s)) + ":" + s
	case VTuple:
		var b strings.Builder
		elems := v.Handle().Tup
		b.WriteByte('t')
		b.WriteString(strconv.Itoa(len(elems)))
		b.WriteByte(':')
		for _, e := range elems {
			b.WriteString(mapKeyString(e))
		}
		return b.String()
	default:
		return "?:" + ReprString(v)
	}
}

func NewMapValue(m *Mapping) Value {
	return Value{Tag: VMapping, Data: &Handle{Kind: VMapping, Map: m, refs: 1}}
}

// StructInst is an instance of a user-defined `has` schema.
type StructInst struct {
	TypeName string
	Fields   map[string]Value
	Order    []string
}

func NewStruct(typeName string, order []string, fields map[string]Value) Value {
	return Value{Tag: VStruct, Data: &Handle{Kind: VStruct, St: &StructInst{TypeName: typeName, Fields: fields, Order: order}, refs: 1}}
}

// VariantInst is an instance of a tagged-variant constructor, e.g.
// some(7), none, ok("done"), or a user `type` variant.
type VariantInst struct {
	TypeName string // "" for the built-in option/result families
	Tag      string
	Args     []Value
}

func NewVariant(typeName, tag string, args []Value) Value {
	return Value{Tag: VVariant, Data: &Handle{Kind: VVariant, Var: &VariantInst{TypeName: typeName, Tag: tag, Args: args}, refs: 1}}
}

func Some(v Value) Value { return NewVariant("", "some", []Value{v}) }
func None() Value         { return NewVariant("", "none", nil) }
func Ok(v Value) Value    { return NewVariant("", "ok", []Value{v}) }
func Err(v Value) Value   { return NewVariant("", "err", []Value{v}) }

// Closure is a user-defined function value: either an AST-bound closure
// (interpreted by interpreter.go) or a compiled FunctionProto bound to
// captured upvalues (run by vm.go). Exactly one of AST/Proto is set.
type Closure struct {
	Name     string
	Doc      string // captured leading comment block, see SPEC_FULL.md §4
	Params   []Param
	AST      *Block // set when running under the tree-walking interpreter
	Env      *Env   // captured lexical environment, AST mode
	Proto    *FunctionProto // set when running under the VM
	Upvalues []*Value       // captured cells, VM mode
	Receiver *Value         // bound `self`, nil for free functions
}

func NewClosureAST(name string, params []Param, body *Block, env *Env) Value {
	return Value{Tag: VClosure, Data: &Handle{Kind: VClosure, Fn: &Closure{Name: name, Params: params, AST: body, Env: env}, refs: 1}}
}

func NewClosureASTDoc(name, doc string, params []Param, body *Block, env *Env) Value {
	return Value{Tag: VClosure, Data: &Handle{Kind: VClosure, Fn: &Closure{Name: name, Doc: doc, Params: params, AST: body, Env: env}, refs: 1}}
}

// BuiltinFunc is a native function registered in the builtin tables
// (builtins.go), mirroring the teacher's VTFun-native-case dispatch.
type BuiltinFunc struct {
	Name string
	Fn   func(args []Value, sp Span) Value
}

func NewBuiltin(name string, fn func(args []Value, sp Span) Value) Value {
	return Value{Tag: VBuiltin, Data: &BuiltinFunc{Name: name, Fn: fn}}
}

// TypeOf names a value's runtime kind for error messages and the
// `type_of` builtin.
func TypeOf(v Value) string {
	if v.Tag == VStruct {
		return v.Handle().St.TypeName
	}
	if v.Tag == VVariant {
		vi := v.Handle().Var
		if vi.TypeName != "" {
			return vi.TypeName
		}
	}
	return v.Tag.String()
}

// Equal implements the structural, component-wise equality spec §3.1
// mandates for lists/mappings/tuples/structs: two structural values are
// equal iff their contents are equal, regardless of Handle identity.
func Equal(a, b Value) bool {
	if a.Tag != b.Tag {
		if isNumeric(a) && isNumeric(b) {
			return numEqual(a, b)
		}
		return false
	}
	switch a.Tag {
	case VNull:
		return true
	case VBool:
		return a.Data.(bool) == b.Data.(bool)
	case VInt:
		return a.AsInt() == b.AsInt()
	case VFloat:
		return a.AsFloat() == b.AsFloat()
	case VString:
		return a.AsString() == b.AsString()
	case VTuple:
		return equalSlice(a.Handle().Tup, b.Handle().Tup)
	case VList:
		return equalSlice(a.Handle().List, b.Handle().List)
	case VMapping:
		ma, mb := a.Handle().Map, b.Handle().Map
		if ma.Len() != mb.Len() {
			return false
		}
		for _, k := range ma.Order {
			va, _ := ma.Get(k)
			vb, ok := mb.Get(k)
			if !ok || !Equal(va, vb) {
				return false
			}
		}
		return true
	case VStruct:
		sa, sb := a.Handle().St, b.Handle().St
		if sa.TypeName != sb.TypeName || len(sa.Order) != len(sb.Order) {
			return false
		}
		for _, f := range sa.Order {
			if !Equal(sa.Fields[f], sb.Fields[f]) {
				return false
			}
		}
		return true
	case VVariant:
		va, vb := a.Handle().Var, b.Handle().Var
		if va.Tag != vb.Tag || va.TypeName != vb.TypeName || len(va.Args) != len(vb.Args) {
			return false
		}
		for i := range va.Args {
			if !Equal(va.Args[i], vb.Args[i]) {
				return false
			}
		}
		return true
	case VClosure, VBuiltin, VModule, VType:
		return a.Data == b.Data
	}
	return false
}

func equalSlice(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func isNumeric(v Value) bool { return v.Tag == VInt || v.Tag == VFloat }

func numEqual(a, b Value) bool {
	var af, bf float64
	if a.Tag == VInt {
		af = float64(a.AsInt())
	} else {
		af = a.AsFloat()
	}
	if b.Tag == VInt {
		bf = float64(b.AsInt())
	} else {
		bf = b.AsFloat()
	}
	return af == bf
}

func (v Value) GoString() string { return fmt.Sprintf("%s(%v)", v.Tag, v.Data) }
