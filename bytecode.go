// bytecode.go
//
// Instruction encoding and the compiled-program container, grounded on
// daios-ai-msg/vm.go's packed-uint32 opcode scheme (pack/uop/uimm) and
// its Chunk{Code, Consts} shape. Extended with a per-function
// FunctionProto (locals count, capture descriptors, its own Code/Consts)
// since the teacher's VM has no call frames of its own -- it delegates
// CALL to Interpreter.Apply and runs only straight-line chunks. This
// VM instead owns full function calls (spec §4.4, §4.6).
package lang

type Opcode uint8

const (
	OpNop Opcode = iota

	OpConst     // push Consts[imm]
	OpNull      // push Null
	OpTrue      // push true
	OpFalse     // push false

	OpLoadLocal  // push Locals[imm]
	OpStoreLocal // pop -> Locals[imm]
	OpLoadUpvalue
	OpStoreUpvalue
	OpLoadGlobal  // push Globals[Consts[imm].(string)]
	OpStoreGlobal

	OpPop
	OpDup

	OpMakeTuple // pop N -> tuple; imm = N
	OpMakeList  // pop N -> list; imm = N
	OpMakeMap   // pop 2N (k,v interleaved) -> mapping; imm = N
	OpMakeStruct
	OpMakeVariant // imm = argc; pops type name and tag (pushed as constants), then argc args
	OpMakeClosure // imm = proto index in the enclosing program's Protos

	OpGetField
	OpGetIndex
	OpSetIndex

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpNot
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
	OpRange

	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpCall    // imm = argc
	OpTailCall
	OpReturn
	OpMatchTag // peeks at subject, checks variant tag == Consts[imm]; pushes bool, subject stays
	OpDestructureVariant // imm = field count; pops variant, pushes its N args
)

func pack(op Opcode, imm uint32) uint32 { return uint32(op)<<24 | (imm & 0xFFFFFF) }
func uop(i uint32) Opcode               { return Opcode(i >> 24) }
func uimm(i uint32) uint32              { return i & 0xFFFFFF }

// CaptureDesc describes one upvalue a nested function captures: either
// a local slot of the immediately enclosing frame (FromParentLocal) or
// an upvalue already captured by that enclosing frame (chained
// capture), mirroring the standard flat-closure compilation scheme.
type CaptureDesc struct {
	FromParentLocal bool
	Index           int
}

// FunctionProto is the compiled form of one function body (spec §4.4).
type FunctionProto struct {
	Name        string
	NumParams   int
	NumLocals   int
	Captures    []CaptureDesc
	Code        []uint32
	Spans       []Span // parallel to Code, for runtime error reporting
	IsTailCallable bool // set by bodyIsSelfTailRecursive after the body is compiled
}

// StructSchema records a struct type's declared field order and, where
// given, each field's `: Type` annotation (spec §4's type-annotation
// feature), so the VM can enforce the same field-type checks at struct-
// construction time that the AST interpreter enforces directly from the
// resolver's Types table.
type StructSchema struct {
	Fields      []string
	Annotations map[string]string // field name -> declared type name, "" if untyped
}

// Program is the top-level compiled unit: constants shared by every
// proto, plus every proto compiled from the module (index 0 is the
// module's implicit top-level function).
type Program struct {
	Consts  []Value
	Protos  []*FunctionProto
	Schemas map[string]*StructSchema
}

func (p *Program) addConst(v Value) int {
	p.Consts = append(p.Consts, v)
	return len(p.Consts) - 1
}
