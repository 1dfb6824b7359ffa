package lang

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestValueIsTruthy(t *testing.T) {
	be.Equal(t, Null.IsTruthy(), false)
	be.Equal(t, Bool(false).IsTruthy(), false)
	be.Equal(t, Bool(true).IsTruthy(), true)
	be.Equal(t, Int(0).IsTruthy(), true)
	be.Equal(t, Str("").IsTruthy(), true)
}

func TestValueEqualScalars(t *testing.T) {
	be.True(t, Equal(Int(1), Int(1)))
	be.True(t, !Equal(Int(1), Int(2)))
	be.True(t, Equal(Int(1), Float(1.0)))
	be.True(t, Equal(Str("a"), Str("a")))
	be.True(t, !Equal(Str("a"), Str("b")))
}

func TestValueEqualLists(t *testing.T) {
	a := NewList([]Value{Int(1), Int(2)})
	b := NewList([]Value{Int(1), Int(2)})
	c := NewList([]Value{Int(1), Int(3)})
	be.True(t, Equal(a, b))
	be.True(t, !Equal(a, c))
}

func TestValueEqualTuples(t *testing.T) {
	a := NewTuple([]Value{Int(1), Str("x")})
	b := NewTuple([]Value{Int(1), Str("x")})
	be.True(t, Equal(a, b))
}

func TestValueEqualStructs(t *testing.T) {
	a := NewStruct("Point", []string{"x", "y"}, map[string]Value{"x": Int(1), "y": Int(2)})
	b := NewStruct("Point", []string{"x", "y"}, map[string]Value{"x": Int(1), "y": Int(2)})
	c := NewStruct("Point", []string{"x", "y"}, map[string]Value{"x": Int(1), "y": Int(3)})
	be.True(t, Equal(a, b))
	be.True(t, !Equal(a, c))
}

func TestValueEqualVariants(t *testing.T) {
	be.True(t, Equal(Some(Int(1)), Some(Int(1))))
	be.True(t, !Equal(Some(Int(1)), Some(Int(2))))
	be.True(t, !Equal(Some(Int(1)), None()))
	be.True(t, Equal(None(), None()))
}

func TestTypeOfStruct(t *testing.T) {
	p := NewStruct("Point", []string{"x"}, map[string]Value{"x": Int(1)})
	be.Equal(t, TypeOf(p), "Point")
}

func TestTypeOfScalars(t *testing.T) {
	be.Equal(t, TypeOf(Int(1)), "int")
	be.Equal(t, TypeOf(Str("a")), "string")
	be.Equal(t, TypeOf(Bool(true)), "bool")
}

func TestMappingSetGetDelete(t *testing.T) {
	m := NewMapping()
	m.Set(Str("a"), Int(1))
	m.Set(Str("b"), Int(2))
	v, ok := m.Get(Str("a"))
	be.True(t, ok)
	be.Equal(t, v.AsInt(), int64(1))
	be.Equal(t, m.Len(), 2)
	m.Delete(Str("a"))
	be.Equal(t, m.Len(), 1)
	_, ok = m.Get(Str("a"))
	be.Equal(t, ok, false)
}

func TestMappingPreservesInsertionOrder(t *testing.T) {
	m := NewMapping()
	m.Set(Str("z"), Int(1))
	m.Set(Str("a"), Int(2))
	be.Equal(t, m.Order[0], Str("z"))
	be.Equal(t, m.Order[1], Str("a"))
}

func TestMappingFloatIntKeyNormalization(t *testing.T) {
	m := NewMapping()
	m.Set(Int(1), Str("one"))
	v, ok := m.Get(Float(1.0))
	be.True(t, ok)
	be.Equal(t, v.AsString(), "one")
}

func TestMappingTupleKeyCollidesByContent(t *testing.T) {
	m := NewMapping()
	m.Set(NewTuple([]Value{Int(1), Str("x")}), Str("first"))
	v, ok := m.Get(NewTuple([]Value{Int(1), Str("x")}))
	be.True(t, ok)
	be.Equal(t, v.AsString(), "first")
	be.Equal(t, m.Len(), 1)
	m.Set(NewTuple([]Value{Int(1), Str("x")}), Str("second"))
	be.Equal(t, m.Len(), 1)
	v, ok = m.Get(NewTuple([]Value{Int(1), Str("x")}))
	be.True(t, ok)
	be.Equal(t, v.AsString(), "second")
}

func TestMappingTupleKeyDistinguishesDifferentContents(t *testing.T) {
	m := NewMapping()
	m.Set(NewTuple([]Value{Int(1), Str("x")}), Str("a"))
	m.Set(NewTuple([]Value{Int(1), Str("xx")}), Str("b"))
	be.Equal(t, m.Len(), 2)
	_, ok := m.Get(NewTuple([]Value{Str("1"), Str("x")}))
	be.Equal(t, ok, false)
}

func TestSomeNoneOkErr(t *testing.T) {
	s := Some(Int(5))
	be.Equal(t, s.Tag, VVariant)
	be.Equal(t, s.Handle().Var.Tag, "some")
	be.Equal(t, s.Handle().Var.Args[0].AsInt(), int64(5))

	n := None()
	be.Equal(t, n.Handle().Var.Tag, "none")

	o := Ok(Str("done"))
	be.Equal(t, o.Handle().Var.Tag, "ok")

	e := Err(Str("bad"))
	be.Equal(t, e.Handle().Var.Tag, "err")
}
