// vm.go
//
// The bytecode VM: frames with a locals array and captured upvalue
// cells, an operand stack, and a call stack of frames. Stack growth
// (push doubles the backing array) and the overall "decode one packed
// instruction, dispatch on opcode" loop shape are taken directly from
// daios-ai-msg/vm.go; everything involving call frames, locals,
// upvalues, and tail calls is new, since the teacher's VM never runs a
// full function call itself. The OpTailCall handler below, which
// reuses the current frame for a call to the same proto, has no teacher
// analog either; the compiler never emits OpTailCall (see compiler.go's
// bodyIsSelfTailRecursive), so every call pushes a new frame.
package lang

import "math"

type frame struct {
	proto    *FunctionProto
	locals   []Value
	upvalues []*Value
	ip       int
}

type VM struct {
	Globals map[string]Value
	prog    *Program
	stack   []Value
	sp      int
	frames  []*frame
}

func NewVM(prog *Program, globals map[string]Value) *VM {
	return &VM{prog: prog, Globals: globals, stack: make([]Value, 0, 256)}
}

func (m *VM) push(v Value) {
	if m.sp >= len(m.stack) {
		newCap := len(m.stack) * 2
		if newCap == 0 {
			newCap = 16
		}
		ns := make([]Value, newCap)
		copy(ns, m.stack)
		m.stack = ns
	}
	m.stack[m.sp] = v
	m.sp++
}

func (m *VM) pop() Value {
	m.sp--
	return m.stack[m.sp]
}

func (m *VM) popN(n int) []Value {
	out := make([]Value, n)
	copy(out, m.stack[m.sp-n:m.sp])
	m.sp -= n
	return out
}

// Run executes proto index 0 (the module's top-level code) to completion
// and returns its result.
func (m *VM) Run() Value {
	proto := m.prog.Protos[0]
	return m.call(proto, nil, nil)
}

// RunFunc invokes an already-constructed closure Value with args,
// used by builtins that need to call back into user code (e.g. `map`).
func (m *VM) RunFunc(fn Value, args []Value) Value {
	return m.invoke(fn, args, NoSpan)
}

func (m *VM) call(proto *FunctionProto, locals []Value, upvalues []*Value) Value {
	if len(m.frames) >= maxCallDepth {
		throwRecursionLimit(NoSpan)
	}
	if locals == nil {
		locals = make([]Value, proto.NumLocals)
	} else if len(locals) < proto.NumLocals {
		grown := make([]Value, proto.NumLocals)
		copy(grown, locals)
		locals = grown
	}
	f := &frame{proto: proto, locals: locals, upvalues: upvalues}
	m.frames = append(m.frames, f)
	defer func() { m.frames = m.frames[:len(m.frames)-1] }()

	code := proto.Code
	for f.ip < len(code) {
		raw := code[f.ip]
		sp := proto.Spans[f.ip]
		f.ip++
		op := uop(raw)
		imm := uimm(raw)

		switch op {
		case OpNop:
		case OpConst:
			m.push(m.prog.Consts[imm])
		case OpNull:
			m.push(Null)
		case OpTrue:
			m.push(Bool(true))
		case OpFalse:
			m.push(Bool(false))

		case OpLoadLocal:
			m.push(f.locals[imm])
		case OpStoreLocal:
			f.locals[imm] = m.pop()
		case OpLoadUpvalue:
			m.push(*f.upvalues[imm])
		case OpStoreUpvalue:
			*f.upvalues[imm] = m.pop()
		case OpLoadGlobal:
			name := m.prog.Consts[imm].AsString()
			v, ok := m.Globals[name]
			if !ok {
				throwRuntime(sp, CodeResolveUndefined, "undefined name %q", name)
			}
			m.push(v)
		case OpStoreGlobal:
			name := m.prog.Consts[imm].AsString()
			m.Globals[name] = m.pop()

		case OpPop:
			m.pop()
		case OpDup:
			m.push(m.stack[m.sp-1])

		case OpMakeTuple:
			m.push(NewTuple(m.popN(int(imm))))
		case OpMakeList:
			m.push(NewList(m.popN(int(imm))))
		case OpMakeMap:
			n := int(imm)
			pairs := m.popN(2 * n)
			mp := NewMapping()
			for i := 0; i < n; i++ {
				mp.Set(pairs[2*i], pairs[2*i+1])
			}
			m.push(NewMapValue(mp))
		case OpMakeStruct:
			n := int(imm)
			typeName := m.pop().AsString()
			pairs := m.popN(2 * n)
			base := m.pop()
			fields := map[string]Value{}
			var order []string
			if base.Tag == VStruct {
				bi := base.Handle().St
				for _, k := range bi.Order {
					fields[k] = bi.Fields[k]
					order = append(order, k)
				}
			}
			schema := m.prog.Schemas[typeName]
			for i := 0; i < n; i++ {
				name := pairs[2*i].AsString()
				val := pairs[2*i+1]
				if _, exists := fields[name]; !exists {
					order = append(order, name)
				}
				if schema != nil {
					checkFieldAnnotation(schema.Annotations[name], name, val, sp)
				}
				fields[name] = val
			}
			m.push(NewStruct(typeName, order, fields))
		case OpMakeVariant:
			typeName := m.pop().AsString()
			tag := m.pop().AsString()
			args := m.popN(int(imm))
			m.push(NewVariant(typeName, tag, args))
		case OpMakeClosure:
			proto := m.prog.Protos[imm]
			cl := &Closure{Name: proto.Name, Proto: proto}
			cl.Upvalues = make([]*Value, len(proto.Captures))
			for i, cap := range proto.Captures {
				if cap.FromParentLocal {
					cl.Upvalues[i] = &f.locals[cap.Index]
				} else {
					cl.Upvalues[i] = f.upvalues[cap.Index]
				}
			}
			m.push(Value{Tag: VClosure, Data: &Handle{Kind: VClosure, Fn: cl, refs: 1}})

		case OpGetField:
			name := m.prog.Consts[imm].AsString()
			m.push(m.getField(m.pop(), name, sp))
		case OpGetIndex:
			idx := m.pop()
			obj := m.pop()
			m.push(m.getIndex(obj, idx, sp))
		case OpSetIndex:
			val := m.pop()
			key := m.pop()
			obj := m.pop()
			m.setIndex(obj, key, val, sp)

		case OpAdd, OpSub, OpMul, OpDiv, OpMod:
			b, a := m.pop(), m.pop()
			m.push(arith(op, a, b, sp))
		case OpNeg:
			a := m.pop()
			if a.Tag == VInt {
				m.push(Int(-a.AsInt()))
			} else {
				m.push(Float(-a.AsFloat()))
			}
		case OpNot:
			m.push(Bool(!m.pop().IsTruthy()))
		case OpEq:
			b, a := m.pop(), m.pop()
			m.push(Bool(Equal(a, b)))
		case OpNeq:
			b, a := m.pop(), m.pop()
			m.push(Bool(!Equal(a, b)))
		case OpLt, OpLe, OpGt, OpGe:
			b, a := m.pop(), m.pop()
			m.push(compare(op, a, b, sp))
		case OpRange:
			b, a := m.pop(), m.pop()
			elems := makeRange(a.AsInt(), b.AsInt(), imm == 1)
			m.push(NewList(elems))

		case OpJump:
			f.ip = int(imm)
		case OpJumpIfFalse:
			if !m.pop().IsTruthy() {
				f.ip = int(imm)
			}
		case OpJumpIfTrue:
			if m.stack[m.sp-1].IsTruthy() {
				f.ip = int(imm)
			}

		case OpCall, OpTailCall:
			argc := int(imm)
			args := m.popN(argc)
			callee := m.pop()
			if op == OpTailCall {
				if cl, ok := selfClosure(callee); ok && cl.Proto == f.proto {
					copy(f.locals, args)
					for i := len(args); i < len(f.locals); i++ {
						f.locals[i] = Null
					}
					f.ip = 0
					continue
				}
			}
			m.push(m.invoke(callee, args, sp))

		case OpReturn:
			return m.pop()

		case OpMatchTag:
			tag := m.prog.Consts[imm].AsString()
			top := m.stack[m.sp-1]
			m.push(Bool(top.Tag == VVariant && top.Handle().Var.Tag == tag))
		case OpDestructureVariant:
			v := m.pop()
			vi := v.Handle().Var
			for i := 0; i < int(imm); i++ {
				if i < len(vi.Args) {
					m.push(vi.Args[i])
				} else {
					m.push(Null)
				}
			}
		}
	}
	return Null
}

func selfClosure(v Value) (*Closure, bool) {
	if v.Tag != VClosure {
		return nil, false
	}
	cl := v.Handle().Fn
	return cl, cl.Proto != nil
}

func (m *VM) invoke(callee Value, args []Value, sp Span) Value {
	switch callee.Tag {
	case VClosure:
		cl := callee.Handle().Fn
		if cl.Receiver != nil {
			args = append([]Value{*cl.Receiver}, args...)
		}
		return m.call(cl.Proto, args, cl.Upvalues)
	case VBuiltin:
		bf := callee.Data.(*BuiltinFunc)
		return bf.Fn(args, sp)
	default:
		throwRuntime(sp, CodeTypeNotCallable, "value of type %s is not callable", TypeOf(callee))
		return Null
	}
}

func (m *VM) getField(v Value, name string, sp Span) Value {
	switch v.Tag {
	case VStruct:
		st := v.Handle().St
		if val, ok := st.Fields[name]; ok {
			return val
		}
		if fn, ok := m.Globals[st.TypeName+"::"+name]; ok {
			return bindReceiver(fn, v)
		}
		throwRuntime(sp, CodeResolveUnknownMember, "struct %s has no field or method %q", st.TypeName, name)
	case VMapping:
		key := Str(name)
		if val, ok := v.Handle().Map.Get(key); ok {
			return val
		}
	case VVariant:
		vi := v.Handle().Var
		if name == "tag" {
			return Str(vi.Tag)
		}
	}
	if prefix := builtinMethodPrefix(v.Tag); prefix != "" {
		if fn, ok := m.Globals[prefix+"::"+name]; ok {
			return bindBuiltinReceiver(fn, v)
		}
	}
	throwRuntime(sp, CodeResolveUnknownMember, "value of type %s has no field %q", TypeOf(v), name)
	return Null
}

// builtinMethodPrefix names the "Type::method" lookup key's left half
// for built-in (non-struct) values, mirroring the mangling scheme
// compiler.go uses for user-defined methods (spec §9).
func builtinMethodPrefix(tag ValueTag) string {
	switch tag {
	case VList:
		return "list"
	case VTuple:
		return "tuple"
	case VMapping:
		return "mapping"
	case VString:
		return "string"
	case VInt:
		return "int"
	case VFloat:
		return "float"
	case VBool:
		return "bool"
	case VVariant:
		return "variant"
	}
	return ""
}

// bindBuiltinReceiver wraps a builtin ("Type::method") so its next call
// prepends receiver as the first argument -- the built-in equivalent of
// bindReceiver for compiled struct methods.
func bindBuiltinReceiver(fn Value, receiver Value) Value {
	bf := fn.Data.(*BuiltinFunc)
	return NewBuiltin(bf.Name, func(args []Value, sp Span) Value {
		return bf.Fn(append([]Value{receiver}, args...), sp)
	})
}

// bindReceiver wraps an already-compiled (or AST) method closure so its
// next call prepends receiver as `self`, without recompiling anything:
// compiler.go already compiled every `has`/`does` method into an
// ordinary global closure keyed "Type::method", self as parameter 0.
func bindReceiver(fn Value, receiver Value) Value {
	orig := fn.Handle().Fn
	bound := &Closure{Name: orig.Name, Params: orig.Params, AST: orig.AST, Env: orig.Env, Proto: orig.Proto, Upvalues: orig.Upvalues, Receiver: &receiver}
	return Value{Tag: VClosure, Data: &Handle{Kind: VClosure, Fn: bound, refs: 1}}
}

func (m *VM) getIndex(obj, idx Value, sp Span) Value {
	switch obj.Tag {
	case VList:
		elems := obj.Handle().List
		i := idx.AsInt()
		if i < 0 || int(i) >= len(elems) {
			throwRuntime(sp, CodeRuntimeIndexRange, "index %d out of range (length %d)", i, len(elems))
		}
		return elems[i]
	case VTuple:
		elems := obj.Handle().Tup
		i := idx.AsInt()
		if i < 0 || int(i) >= len(elems) {
			throwRuntime(sp, CodeRuntimeIndexRange, "index %d out of range (length %d)", i, len(elems))
		}
		return elems[i]
	case VMapping:
		val, ok := obj.Handle().Map.Get(idx)
		if !ok {
			throwRuntime(sp, CodeRuntimeKeyNotFound, "key not found in mapping")
		}
		return val
	case VString:
		s := obj.AsString()
		i := idx.AsInt()
		runes := []rune(s)
		if i < 0 || int(i) >= len(runes) {
			throwRuntime(sp, CodeRuntimeIndexRange, "index %d out of range (length %d)", i, len(runes))
		}
		return Str(string(runes[i]))
	}
	throwRuntime(sp, CodeTypeNotCallable, "value of type %s is not indexable", TypeOf(obj))
	return Null
}

func (m *VM) setIndex(obj, key, val Value, sp Span) {
	switch obj.Tag {
	case VList:
		elems := obj.Handle().List
		i := key.AsInt()
		if i < 0 || int(i) >= len(elems) {
			throwRuntime(sp, CodeRuntimeIndexRange, "index %d out of range (length %d)", i, len(elems))
		}
		elems[i] = val
	case VMapping:
		obj.Handle().Map.Set(key, val)
	case VStruct:
		name := key.AsString()
		st := obj.Handle().St
		if _, ok := st.Fields[name]; !ok {
			st.Order = append(st.Order, name)
		}
		st.Fields[name] = val
	default:
		throwRuntime(sp, CodeTypeNotCallable, "value of type %s does not support index assignment", TypeOf(obj))
	}
}

func arith(op Opcode, a, b Value, sp Span) Value {
	if a.Tag == VString && b.Tag == VString && op == OpAdd {
		return Str(a.AsString() + b.AsString())
	}
	if a.Tag == VInt && b.Tag == VInt {
		x, y := a.AsInt(), b.AsInt()
		switch op {
		case OpAdd:
			return Int(x + y)
		case OpSub:
			return Int(x - y)
		case OpMul:
			return Int(x * y)
		case OpDiv:
			if y == 0 {
				throwRuntime(sp, CodeRuntimeDivByZero, "division by zero")
			}
			if x == math.MinInt64 && y == -1 {
				throwRuntime(sp, CodeRuntimeOverflow, "integer overflow: %d / %d", x, y)
			}
			return Int(x / y)
		case OpMod:
			if y == 0 {
				throwRuntime(sp, CodeRuntimeDivByZero, "division by zero")
			}
			if x == math.MinInt64 && y == -1 {
				throwRuntime(sp, CodeRuntimeOverflow, "integer overflow: %d %% %d", x, y)
			}
			return Int(x % y)
		}
	}
	if isNumeric(a) && isNumeric(b) {
		x, y := toF(a), toF(b)
		switch op {
		case OpAdd:
			return Float(x + y)
		case OpSub:
			return Float(x - y)
		case OpMul:
			return Float(x * y)
		case OpDiv:
			if y == 0 {
				throwRuntime(sp, CodeRuntimeDivByZero, "division by zero")
			}
			return Float(x / y)
		case OpMod:
			if y == 0 {
				throwRuntime(sp, CodeRuntimeDivByZero, "division by zero")
			}
			return Float(fmod(x, y))
		}
	}
	throwRuntime(sp, CodeTypeNotCallable, "unsupported operand types for arithmetic: %s, %s", TypeOf(a), TypeOf(b))
	return Null
}

func fmod(x, y float64) float64 {
	q := int64(x / y)
	return x - float64(q)*y
}

func toF(v Value) float64 {
	if v.Tag == VInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

func compare(op Opcode, a, b Value, sp Span) Value {
	if a.Tag == VString && b.Tag == VString {
		x, y := a.AsString(), b.AsString()
		switch op {
		case OpLt:
			return Bool(x < y)
		case OpLe:
			return Bool(x <= y)
		case OpGt:
			return Bool(x > y)
		case OpGe:
			return Bool(x >= y)
		}
	}
	if isNumeric(a) && isNumeric(b) {
		x, y := toF(a), toF(b)
		switch op {
		case OpLt:
			return Bool(x < y)
		case OpLe:
			return Bool(x <= y)
		case OpGt:
			return Bool(x > y)
		case OpGe:
			return Bool(x >= y)
		}
	}
	throwRuntime(sp, CodeTypeNotCallable, "unsupported operand types for comparison: %s, %s", TypeOf(a), TypeOf(b))
	return Null
}

func makeRange(start, end int64, inclusive bool) []Value {
	if inclusive {
		end++
	}
	if end < start {
		return nil
	}
	out := make([]Value, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, Int(i))
	}
	return out
}
