package lang

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
)

// runSrcVM resolves, compiles, and runs src under the bytecode VM,
// mirroring runSrc's AST-backend counterpart (interpreter_test.go).
func runSrcVM(t *testing.T, src string) Value {
	t.Helper()
	unit, err := Frontend("<test>", src)
	be.Err(t, err, nil)
	for _, d := range unit.Diagnostics.Items() {
		if d.IsError() {
			t.Fatalf("parse error: %s: %s", d.Code, d.Message)
		}
	}
	v, err := RunUnitVM(unit)
	if err != nil {
		t.Fatalf("vm runtime error: %v", err)
	}
	return v
}

func TestVMArithmeticPrecedence(t *testing.T) {
	v := runSrcVM(t, "let x = 2 + 3 * 4\nx")
	be.Equal(t, v.AsInt(), int64(14))
}

func TestVMRecursiveFactorial(t *testing.T) {
	v := runSrcVM(t, `
func fact(n) {
	if n <= 1 { return 1 }
	return n * fact(n - 1)
}
fact(5)`)
	be.Equal(t, v.AsInt(), int64(120))
}

func TestVMForLoopAccumulates(t *testing.T) {
	v := runSrcVM(t, `
var total = 0
for i in [1, 2, 3] {
	total = total + i
}
total`)
	be.Equal(t, v.AsInt(), int64(6))
}

func TestVMStringInterpolation(t *testing.T) {
	v := runSrcVM(t, `let name = "world"
"hello {name}"`)
	be.Equal(t, v.AsString(), "hello world")
}

func TestVMMappingIndexing(t *testing.T) {
	v := runSrcVM(t, `
let m = {"a": 1, "b": 2}
m["a"]`)
	be.Equal(t, v.AsInt(), int64(1))
}

func TestVMStructFieldAccess(t *testing.T) {
	v := runSrcVM(t, `
Point has { x, y }
let p = Point { x: 1, y: 2 }
p.x + p.y`)
	be.Equal(t, v.AsInt(), int64(3))
}

func TestVMStructMethod(t *testing.T) {
	v := runSrcVM(t, `
Point has {
	x, y
	func sum(self) { return self.x + self.y }
}
let p = Point { x: 1, y: 2 }
p.sum()`)
	be.Equal(t, v.AsInt(), int64(3))
}

func TestVMIntDivOverflowPanics(t *testing.T) {
	unit, err := Frontend("<test>", "(-9223372036854775807 - 1) / -1")
	be.Err(t, err, nil)
	_, runErr := RunUnitVM(unit)
	be.True(t, runErr != nil)
	var re *RuntimeError
	be.True(t, errors.As(runErr, &re))
	be.Equal(t, re.Code, CodeRuntimeOverflow)
}

func TestVMDeepRecursionPanicsInsteadOfCrashing(t *testing.T) {
	unit, err := Frontend("<test>", `
func f(n) { return 1 + f(n + 1) }
f(0)`)
	be.Err(t, err, nil)
	_, runErr := RunUnitVM(unit)
	be.True(t, runErr != nil)
	var re *RuntimeError
	be.True(t, errors.As(runErr, &re))
	be.Equal(t, re.Code, CodeRuntimeRecursion)
}

func TestVMStructFieldAnnotationMismatchPanics(t *testing.T) {
	unit, err := Frontend("<test>", `
Point has { x: int, y: int }
Point { x: 1, y: "oops" }`)
	be.Err(t, err, nil)
	_, runErr := RunUnitVM(unit)
	be.True(t, runErr != nil)
	var re *RuntimeError
	be.True(t, errors.As(runErr, &re))
	be.Equal(t, re.Code, CodeTypeFieldMismatch)
}

func TestVMStructFieldAnnotationMatchOK(t *testing.T) {
	v := runSrcVM(t, `
Point has { x: int, y: int }
let p = Point { x: 1, y: 2 }
p.x + p.y`)
	be.Equal(t, v.AsInt(), int64(3))
}

// Spec §8 property 3: the two backends must agree on every observable
// result for the same program.
func TestInterpreterVMEquivalence(t *testing.T) {
	srcs := []string{
		"let x = 2 + 3 * 4\nx",
		`var total = 0
for i in [1, 2, 3] { total = total + i }
total`,
		`func fact(n) {
	if n <= 1 { return 1 }
	return n * fact(n - 1)
}
fact(6)`,
		`let name = "world"
"hello {name}"`,
		`let m = {"a": 1, "b": 2}
m["a"]`,
		`let x = none
x ?? 42`,
	}
	for _, src := range srcs {
		astResult := runSrc(t, src)
		vmResult := runSrcVM(t, src)
		be.True(t, Equal(astResult, vmResult))
	}
}
