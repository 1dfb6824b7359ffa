package lang

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestPrintLetStmt(t *testing.T) {
	mod := parseOK(t, "let x = 1")
	out := PrintModule(mod)
	be.Equal(t, strings.TrimSpace(out), "let x = 1")
}

func TestPrintBinaryExprParenthesized(t *testing.T) {
	mod := parseOK(t, "let x = 2 + 3 * 4")
	out := PrintModule(mod)
	be.True(t, strings.Contains(out, "(2 + (3 * 4))"))
}

func TestPrintFuncDef(t *testing.T) {
	mod := parseOK(t, "func add(a, b) { return a + b }")
	out := PrintModule(mod)
	be.True(t, strings.Contains(out, "func add(a, b) {"))
	be.True(t, strings.Contains(out, "return (a + b)"))
}

func TestPrintIfElse(t *testing.T) {
	mod := parseOK(t, "if x > 0 { print(x) } else { print(0) }")
	out := PrintModule(mod)
	be.True(t, strings.Contains(out, "if (x > 0) {"))
	be.True(t, strings.Contains(out, "} else {"))
}

func TestPrintStructDef(t *testing.T) {
	mod := parseOK(t, "Point has { x, y }")
	out := PrintModule(mod)
	be.True(t, strings.Contains(out, "Point has {"))
	be.True(t, strings.Contains(out, "x"))
	be.True(t, strings.Contains(out, "y"))
}

func TestPrintVariantDef(t *testing.T) {
	mod := parseOK(t, "type Option = some(value) | none")
	out := PrintModule(mod)
	be.True(t, strings.Contains(out, "type Option = some(value) | none"))
}

// Round-trip: printing a module and reparsing it should produce a module
// that prints identically a second time (spec §8 property 2), for every
// construct the printer actually supports -- the one documented exception
// is `when`, which is desugared to nested `match` before the printer ever
// sees it (see printer.go's header comment).
func TestPrintRoundTripStable(t *testing.T) {
	srcs := []string{
		"let x = 1",
		"func add(a, b) { return a + b }",
		"while x < 10 { x = x + 1 }",
		"for i in xs { print(i) }",
		"Point has { x, y }",
		"type Option = some(value) | none",
	}
	for _, src := range srcs {
		mod1 := parseOK(t, src)
		out1 := PrintModule(mod1)
		mod2 := parseOK(t, out1)
		out2 := PrintModule(mod2)
		be.Equal(t, out1, out2)
	}
}
