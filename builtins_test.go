package lang

import (
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

func builtin(t *testing.T, name string) func(args []Value, sp Span) Value {
	t.Helper()
	env := NewEnv(nil)
	registerBuiltinsInto(env)
	v, err := env.Get(name)
	be.Err(t, err, nil)
	return v.Data.(*BuiltinFunc).Fn
}

func TestBuiltinTypeOf(t *testing.T) {
	fn := builtin(t, "type_of")
	be.Equal(t, fn([]Value{Int(1)}, NoSpan).AsString(), "int")
	be.Equal(t, fn([]Value{Str("x")}, NoSpan).AsString(), "string")
}

func TestBuiltinToString(t *testing.T) {
	fn := builtin(t, "to_string")
	be.Equal(t, fn([]Value{Int(42)}, NoSpan).AsString(), "42")
}

func TestBuiltinStringUpperLower(t *testing.T) {
	be.Equal(t, builtin(t, "string::upper")([]Value{Str("abc")}, NoSpan).AsString(), "ABC")
	be.Equal(t, builtin(t, "string::lower")([]Value{Str("ABC")}, NoSpan).AsString(), "abc")
}

func TestBuiltinStringSplit(t *testing.T) {
	fn := builtin(t, "string::split")
	v := fn([]Value{Str("a,b,c"), Str(",")}, NoSpan)
	elems := v.Handle().List
	be.Equal(t, len(elems), 3)
	be.Equal(t, elems[1].AsString(), "b")
}

func TestBuiltinStringToIntValid(t *testing.T) {
	fn := builtin(t, "string::to_int")
	v := fn([]Value{Str("42")}, NoSpan)
	be.Equal(t, v.Handle().Var.Tag, "some")
	be.Equal(t, v.Handle().Var.Args[0].AsInt(), int64(42))
}

func TestBuiltinStringToIntInvalid(t *testing.T) {
	fn := builtin(t, "string::to_int")
	v := fn([]Value{Str("nope")}, NoSpan)
	be.Equal(t, v.Handle().Var.Tag, "none")
}

func TestBuiltinIntAbs(t *testing.T) {
	fn := builtin(t, "int::abs")
	be.Equal(t, fn([]Value{Int(-5)}, NoSpan).AsInt(), int64(5))
	be.Equal(t, fn([]Value{Int(5)}, NoSpan).AsInt(), int64(5))
}

func TestBuiltinFloatAbs(t *testing.T) {
	fn := builtin(t, "float::abs")
	be.Equal(t, fn([]Value{Float(-2.5)}, NoSpan).AsFloat(), 2.5)
}

func TestBuiltinListPushPop(t *testing.T) {
	push := builtin(t, "list::push")
	pop := builtin(t, "list::pop")
	lst := NewList([]Value{Int(1), Int(2)})
	push([]Value{lst, Int(3)}, NoSpan)
	be.Equal(t, len(lst.Handle().List), 3)
	popped := pop([]Value{lst}, NoSpan)
	be.Equal(t, popped.Handle().Var.Tag, "some")
	be.Equal(t, popped.Handle().Var.Args[0].AsInt(), int64(3))
}

func TestBuiltinListContains(t *testing.T) {
	fn := builtin(t, "list::contains")
	lst := NewList([]Value{Int(1), Int(2), Int(3)})
	be.Equal(t, fn([]Value{lst, Int(2)}, NoSpan).IsTruthy(), true)
	be.Equal(t, fn([]Value{lst, Int(9)}, NoSpan).IsTruthy(), false)
}

func TestBuiltinListJoin(t *testing.T) {
	fn := builtin(t, "list::join")
	lst := NewList([]Value{Int(1), Int(2), Int(3)})
	be.Equal(t, fn([]Value{lst, Str("-")}, NoSpan).AsString(), "1-2-3")
}

func TestBuiltinListReverse(t *testing.T) {
	fn := builtin(t, "list::reverse")
	lst := NewList([]Value{Int(1), Int(2), Int(3)})
	out := fn([]Value{lst}, NoSpan)
	elems := out.Handle().List
	be.Equal(t, elems[0].AsInt(), int64(3))
	be.Equal(t, elems[2].AsInt(), int64(1))
}

func TestBuiltinMappingGetSetHasDelete(t *testing.T) {
	set := builtin(t, "mapping::set")
	get := builtin(t, "mapping::get")
	has := builtin(t, "mapping::has")
	del := builtin(t, "mapping::delete")
	m := NewMapValue(NewMapping())
	set([]Value{m, Str("a"), Int(1)}, NoSpan)
	be.Equal(t, has([]Value{m, Str("a")}, NoSpan).IsTruthy(), true)
	v := get([]Value{m, Str("a")}, NoSpan)
	be.Equal(t, v.Handle().Var.Args[0].AsInt(), int64(1))
	del([]Value{m, Str("a")}, NoSpan)
	be.Equal(t, has([]Value{m, Str("a")}, NoSpan).IsTruthy(), false)
}

func TestBuiltinVariantUnwrapOr(t *testing.T) {
	fn := builtin(t, "variant::unwrap_or")
	be.Equal(t, fn([]Value{Some(Int(5)), Int(0)}, NoSpan).AsInt(), int64(5))
	be.Equal(t, fn([]Value{None(), Int(0)}, NoSpan).AsInt(), int64(0))
}

func TestBuiltinReadWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	write := builtin(t, "write_file")
	read := builtin(t, "read_file")
	res := write([]Value{Str(path), Str("hello")}, NoSpan)
	be.Equal(t, res.Handle().Var.Tag, "ok")
	got := read([]Value{Str(path)}, NoSpan)
	be.Equal(t, got.Handle().Var.Tag, "ok")
	be.Equal(t, got.Handle().Var.Args[0].AsString(), "hello")
}

func TestBuiltinReadFileMissingReturnsErr(t *testing.T) {
	read := builtin(t, "read_file")
	got := read([]Value{Str(filepath.Join(t.TempDir(), "missing.txt"))}, NoSpan)
	be.Equal(t, got.Handle().Var.Tag, "err")
}

func TestCollectBuiltinNamesNoDuplicates(t *testing.T) {
	names := collectBuiltinNames()
	seen := map[string]bool{}
	for _, n := range names {
		be.Equal(t, seen[n], false)
		seen[n] = true
	}
	be.True(t, len(names) > 10)
}

func TestBuiltinNamesIncludeCoreSet(t *testing.T) {
	names := builtinFunctionNames()
	want := map[string]bool{"print": false, "list::map": false, "variant::unwrap": false, "type_of": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, ok := range want {
		if !ok {
			t.Fatalf("expected builtin %q to be registered", n)
		}
	}
}
