package lang

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
)

// runSrc resolves and interprets src under the AST backend, failing the
// test on any parse/resolve/runtime error.
func runSrc(t *testing.T, src string) Value {
	t.Helper()
	mod, diags := Parse(NewSource("<test>", src))
	for _, d := range diags.Items() {
		if d.IsError() {
			t.Fatalf("parse error: %s: %s", d.Code, d.Message)
		}
	}
	r := NewResolver()
	rdiags := r.Resolve(mod)
	for _, d := range rdiags.Items() {
		if d.IsError() {
			t.Fatalf("resolve error: %s: %s", d.Code, d.Message)
		}
	}
	ip := NewInterpreter(r.Methods, r.Types)
	wireApply(ip, nil)
	v, err := ip.RunModule(mod)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return v
}

// runSrcErr is runSrc's error-returning counterpart, for tests that
// expect a runtime panic rather than a clean result.
func runSrcErr(t *testing.T, src string) (Value, error) {
	t.Helper()
	mod, diags := Parse(NewSource("<test>", src))
	for _, d := range diags.Items() {
		if d.IsError() {
			t.Fatalf("parse error: %s: %s", d.Code, d.Message)
		}
	}
	r := NewResolver()
	rdiags := r.Resolve(mod)
	for _, d := range rdiags.Items() {
		if d.IsError() {
			t.Fatalf("resolve error: %s: %s", d.Code, d.Message)
		}
	}
	ip := NewInterpreter(r.Methods, r.Types)
	wireApply(ip, nil)
	return ip.RunModule(mod)
}

func TestInterpIntDivOverflowPanics(t *testing.T) {
	_, err := runSrcErr(t, "(-9223372036854775807 - 1) / -1")
	be.True(t, err != nil)
	var re *RuntimeError
	be.True(t, errors.As(err, &re))
	be.Equal(t, re.Code, CodeRuntimeOverflow)
}

func TestInterpIntModOverflowPanics(t *testing.T) {
	_, err := runSrcErr(t, "(-9223372036854775807 - 1) % -1")
	be.True(t, err != nil)
	var re *RuntimeError
	be.True(t, errors.As(err, &re))
	be.Equal(t, re.Code, CodeRuntimeOverflow)
}

func TestInterpDeepRecursionPanicsInsteadOfCrashing(t *testing.T) {
	_, err := runSrcErr(t, `
func f(n) { return 1 + f(n + 1) }
f(0)`)
	be.True(t, err != nil)
	var re *RuntimeError
	be.True(t, errors.As(err, &re))
	be.Equal(t, re.Code, CodeRuntimeRecursion)
}

func TestInterpStructFieldAnnotationMismatchPanics(t *testing.T) {
	_, err := runSrcErr(t, `
Point has { x: int, y: int }
Point { x: 1, y: "oops" }`)
	be.True(t, err != nil)
	var re *RuntimeError
	be.True(t, errors.As(err, &re))
	be.Equal(t, re.Code, CodeTypeFieldMismatch)
}

func TestInterpArithmeticPrecedence(t *testing.T) {
	v := runSrc(t, "let x = 2 + 3 * 4\nx")
	be.Equal(t, v.AsInt(), int64(14))
}

func TestInterpForLoopAccumulates(t *testing.T) {
	v := runSrc(t, `
var total = 0
for i in [1, 2, 3] {
	total = total + i
}
total`)
	be.Equal(t, v.AsInt(), int64(6))
}

func TestInterpStringInterpolation(t *testing.T) {
	v := runSrc(t, `let name = "world"
"hello {name}"`)
	be.Equal(t, v.AsString(), "hello world")
}

func TestInterpRecursiveFactorial(t *testing.T) {
	v := runSrc(t, `
func fact(n) {
	if n <= 1 { return 1 }
	return n * fact(n - 1)
}
fact(5)`)
	be.Equal(t, v.AsInt(), int64(120))
}

func TestInterpMappingIndexing(t *testing.T) {
	v := runSrc(t, `
let m = {"a": 1, "b": 2}
m["a"]`)
	be.Equal(t, v.AsInt(), int64(1))
}

func TestInterpMatchVariantDestructure(t *testing.T) {
	v := runSrc(t, `
let x = some(5)
match x {
	some(n) { n * 2 }
	none { 0 }
	_ { -1 }
}`)
	be.Equal(t, v.AsInt(), int64(10))
}

func TestInterpNullCoalesce(t *testing.T) {
	v := runSrc(t, `
let x = none
x ?? 42`)
	be.Equal(t, v.AsInt(), int64(42))
}

func TestInterpWhileLoopBreak(t *testing.T) {
	v := runSrc(t, `
var i = 0
while true {
	i = i + 1
	if i == 5 { break }
}
i`)
	be.Equal(t, v.AsInt(), int64(5))
}

func TestInterpListBuiltinMap(t *testing.T) {
	v := runSrc(t, `
let xs = [1, 2, 3]
xs.map(func(x) { return x * 2 })`)
	elems := v.Handle().List
	be.Equal(t, len(elems), 3)
	be.Equal(t, elems[0].AsInt(), int64(2))
	be.Equal(t, elems[2].AsInt(), int64(6))
}

func TestInterpStructFieldAccess(t *testing.T) {
	v := runSrc(t, `
Point has { x, y }
let p = Point { x: 1, y: 2 }
p.x + p.y`)
	be.Equal(t, v.AsInt(), int64(3))
}

func TestInterpStructMethod(t *testing.T) {
	v := runSrc(t, `
Point has {
	x, y
	func sum(self) { return self.x + self.y }
}
let p = Point { x: 1, y: 2 }
p.sum()`)
	be.Equal(t, v.AsInt(), int64(3))
}

func TestInterpVariantUnwrap(t *testing.T) {
	v := runSrc(t, `
let x = some(7)
x.unwrap()`)
	be.Equal(t, v.AsInt(), int64(7))
}

func TestInterpDescribeReturnsDocComment(t *testing.T) {
	v := runSrc(t, `
# doubles a number
func double(x) { return x * 2 }
describe(double)`)
	be.Equal(t, v.AsString(), "doubles a number")
}

func TestInterpDescribeForwardsDocPastPub(t *testing.T) {
	v := runSrc(t, `
# publicly doubles a number
pub func double(x) { return x * 2 }
describe(double)`)
	be.Equal(t, v.AsString(), "publicly doubles a number")
}

func TestInterpDescribeFallsBackWithoutDoc(t *testing.T) {
	v := runSrc(t, `
func plain(x) { return x }
describe(plain)`)
	be.Equal(t, v.AsString(), "<function>")
}
