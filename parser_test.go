package lang

import (
	"testing"

	"github.com/nalgeon/be"
)

func parseOK(t *testing.T, src string) *Module {
	t.Helper()
	mod, diags := Parse(NewSource("<test>", src))
	for _, d := range diags.Items() {
		if d.IsError() {
			t.Fatalf("unexpected parse error: %s: %s", d.Code, d.Message)
		}
	}
	return mod
}

func TestParseLetStmt(t *testing.T) {
	mod := parseOK(t, "let x = 1")
	be.Equal(t, len(mod.Items), 1)
	let, ok := mod.Items[0].(*LetStmt)
	be.True(t, ok)
	be.Equal(t, let.Name, "x")
	be.Equal(t, let.Mutable, false)
}

func TestParseVarStmt(t *testing.T) {
	mod := parseOK(t, "var count = 0")
	let := mod.Items[0].(*LetStmt)
	be.Equal(t, let.Mutable, true)
}

func TestParseTupleDestructure(t *testing.T) {
	mod := parseOK(t, "let (a, b) = (1, 2)")
	let := mod.Items[0].(*LetStmt)
	be.Equal(t, len(let.Targets), 2)
	be.Equal(t, let.Targets[0], "a")
	be.Equal(t, let.Targets[1], "b")
}

func TestParseBinaryPrecedence(t *testing.T) {
	mod := parseOK(t, "let x = 2 + 3 * 4")
	let := mod.Items[0].(*LetStmt)
	bin, ok := let.Init.(*BinaryExpr)
	be.True(t, ok)
	be.Equal(t, bin.Op, PLUS)
	rhs, ok := bin.Y.(*BinaryExpr)
	be.True(t, ok)
	be.Equal(t, rhs.Op, STAR)
}

func TestParseFuncDef(t *testing.T) {
	mod := parseOK(t, "func add(a, b) { return a + b }")
	fd, ok := mod.Items[0].(*FuncDef)
	be.True(t, ok)
	be.Equal(t, fd.Name, "add")
	be.Equal(t, len(fd.Params), 2)
	be.Equal(t, len(fd.Body.Stmts), 1)
}

func TestParsePublicFuncDef(t *testing.T) {
	mod := parseOK(t, "pub func greet() { return 1 }")
	fd := mod.Items[0].(*FuncDef)
	be.Equal(t, fd.Public, true)
}

func TestParseIfStmt(t *testing.T) {
	mod := parseOK(t, "if x > 0 { print(x) } else { print(0) }")
	ifs, ok := mod.Items[0].(*IfStmt)
	be.True(t, ok)
	be.True(t, ifs.Else != nil)
}

func TestParseWhileStmt(t *testing.T) {
	mod := parseOK(t, "while x < 10 { x = x + 1 }")
	_, ok := mod.Items[0].(*WhileStmt)
	be.True(t, ok)
}

func TestParseForStmt(t *testing.T) {
	mod := parseOK(t, "for i in xs { print(i) }")
	fs, ok := mod.Items[0].(*ForStmt)
	be.True(t, ok)
	be.Equal(t, fs.Var, "i")
}

func TestParseStructDef(t *testing.T) {
	mod := parseOK(t, "Point has { x, y }")
	td, ok := mod.Items[0].(*TypeDef)
	be.True(t, ok)
	be.Equal(t, td.Name, "Point")
	be.Equal(t, len(td.Fields), 2)
}

func TestParseVariantDef(t *testing.T) {
	mod := parseOK(t, "type Option = some(value) | none")
	td := mod.Items[0].(*TypeDef)
	be.Equal(t, len(td.Variants), 2)
	be.Equal(t, td.Variants[0].Name, "some")
	be.Equal(t, td.Variants[1].Name, "none")
}

func TestParseImport(t *testing.T) {
	mod := parseOK(t, `use util`)
	imp, ok := mod.Items[0].(*ImportStmt)
	be.True(t, ok)
	be.Equal(t, imp.Path, "util")
	be.Equal(t, imp.Alias, "util")
}

func TestParseImportDottedPath(t *testing.T) {
	mod := parseOK(t, `use foo.bar in fb`)
	imp := mod.Items[0].(*ImportStmt)
	be.Equal(t, imp.Path, "foo.bar")
	be.Equal(t, imp.Alias, "fb")
}

func TestParseMatchStmt(t *testing.T) {
	mod := parseOK(t, `match x { 1 { print(1) } _ { print(0) } }`)
	ms, ok := mod.Items[0].(*MatchStmt)
	be.True(t, ok)
	be.Equal(t, len(ms.Arms), 2)
}

func TestParseStringInterp(t *testing.T) {
	mod := parseOK(t, `let x = "a {1+1} b"`)
	let := mod.Items[0].(*LetStmt)
	_, ok := let.Init.(*StringInterp)
	be.True(t, ok)
}

func TestParseRangeExpr(t *testing.T) {
	mod := parseOK(t, "let r = 1..10")
	let := mod.Items[0].(*LetStmt)
	rng, ok := let.Init.(*RangeExpr)
	be.True(t, ok)
	be.Equal(t, rng.Inclusive, false)
}

func TestParseInclusiveRangeExpr(t *testing.T) {
	mod := parseOK(t, "let r = 1..=10")
	let := mod.Items[0].(*LetStmt)
	rng := let.Init.(*RangeExpr)
	be.Equal(t, rng.Inclusive, true)
}

func TestParseListLit(t *testing.T) {
	mod := parseOK(t, "let xs = [1, 2, 3]")
	let := mod.Items[0].(*LetStmt)
	ll, ok := let.Init.(*ListLit)
	be.True(t, ok)
	be.Equal(t, len(ll.Elems), 3)
}

func TestParseUnclosedDelimReportsError(t *testing.T) {
	_, diags := Parse(NewSource("<test>", "let xs = [1, 2, 3"))
	be.True(t, diags.HasErrors())
}

func TestParseDuplicateFieldReportsError(t *testing.T) {
	_, diags := Parse(NewSource("<test>", "let p = Point { x: 1, x: 2 }"))
	be.True(t, diags.HasErrors())
	found := false
	for _, d := range diags.Items() {
		if d.Code == CodeParseDuplicateField {
			found = true
		}
	}
	be.True(t, found)
}
