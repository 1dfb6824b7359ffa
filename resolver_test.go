package lang

import (
	"testing"

	"github.com/nalgeon/be"
)

// resolveSrc parses src and resolves whatever AST comes back, even if
// parsing itself already reported errors (e.g. a non-exhaustive match,
// which both the parser and the resolver flag independently) -- unlike
// parseOK, it never fails the test on parse diagnostics.
func resolveSrc(t *testing.T, src string) *Resolver {
	t.Helper()
	mod, _ := Parse(NewSource("<test>", src))
	r := NewResolver()
	r.Resolve(mod)
	return r
}

func diagCodes(r *Resolver) []string {
	items := r.Diags.Items()
	codes := make([]string, 0, len(items))
	for _, d := range items {
		codes = append(codes, d.Code)
	}
	return codes
}

func hasCode(r *Resolver, code string) bool {
	for _, c := range diagCodes(r) {
		if c == code {
			return true
		}
	}
	return false
}

func TestResolveUndefinedName(t *testing.T) {
	r := resolveSrc(t, "let x = y")
	be.True(t, hasCode(r, CodeResolveUndefined))
}

func TestResolveUndefinedAssignTarget(t *testing.T) {
	r := resolveSrc(t, "z = 1")
	be.True(t, hasCode(r, CodeResolveUndefined))
}

func TestResolveImmutableAssignIsBadAssign(t *testing.T) {
	r := resolveSrc(t, "let x = 1\nx = 2")
	be.True(t, hasCode(r, CodeResolveBadAssign))
}

func TestResolveMutableAssignOK(t *testing.T) {
	r := resolveSrc(t, "var x = 1\nx = 2")
	be.Equal(t, r.Diags.HasErrors(), false)
}

func TestResolveShadowingWarnsOnRedeclaration(t *testing.T) {
	r := resolveSrc(t, "func f() { let x = 1\n let x = 2\n print(x) }")
	be.True(t, hasCode(r, CodeResolveShadowing))
}

func TestResolveUnusedBindingWarns(t *testing.T) {
	r := resolveSrc(t, "func f() { let unused = 1\n return 0 }")
	be.True(t, hasCode(r, CodeResolveShadowing))
}

func TestResolveUnreachableStatementWarns(t *testing.T) {
	r := resolveSrc(t, "func f() { return 1\n print(2) }")
	be.True(t, hasCode(r, CodeResolveUnreachable))
}

func TestResolveReturnOutsideFunctionIsBadControl(t *testing.T) {
	r := resolveSrc(t, "return 1")
	be.True(t, hasCode(r, CodeResolveBadControl))
}

func TestResolveBreakOutsideLoopIsBadControl(t *testing.T) {
	r := resolveSrc(t, "break")
	be.True(t, hasCode(r, CodeResolveBadControl))
}

func TestResolveContinueOutsideLoopIsBadControl(t *testing.T) {
	r := resolveSrc(t, "continue")
	be.True(t, hasCode(r, CodeResolveBadControl))
}

func TestResolveBreakInsideLoopOK(t *testing.T) {
	r := resolveSrc(t, "for i in [1, 2] { break }")
	be.Equal(t, hasCode(r, CodeResolveBadControl), false)
}

func TestResolveMatchStmtMissingWildcardIsNonExhaustive(t *testing.T) {
	r := resolveSrc(t, "match 1 { 1 { print(1) } }")
	be.True(t, hasCode(r, CodeParseNonExhaustive))
}

func TestResolveMatchStmtWithWildcardOK(t *testing.T) {
	r := resolveSrc(t, "match 1 { 1 { print(1) } _ { print(0) } }")
	be.Equal(t, hasCode(r, CodeParseNonExhaustive), false)
}

func TestResolveMatchExprMissingWildcardIsNonExhaustive(t *testing.T) {
	r := resolveSrc(t, "let x = match 1 { 1 { 1 } }")
	be.True(t, hasCode(r, CodeParseNonExhaustive))
}

func TestResolveForwardReferenceToTopLevelFuncOK(t *testing.T) {
	r := resolveSrc(t, "func a() { return b() }\nfunc b() { return 1 }")
	be.Equal(t, r.Diags.HasErrors(), false)
}

func TestResolveAnnotationMismatchOnLiteral(t *testing.T) {
	r := resolveSrc(t, "let x: string = 5")
	be.True(t, hasCode(r, CodeResolveBadAnnotation))
}

func TestResolveAnnotationMatchingLiteralOK(t *testing.T) {
	r := resolveSrc(t, `let x: string = "hi"`)
	be.Equal(t, hasCode(r, CodeResolveBadAnnotation), false)
}

func TestResolveAnnotationSkippedForNonLiteralInit(t *testing.T) {
	r := resolveSrc(t, "func f() { return 1 }\nlet x: string = f()")
	be.Equal(t, hasCode(r, CodeResolveBadAnnotation), false)
}

func TestResolveUndefinedNameSuggestsClosestMatch(t *testing.T) {
	r := resolveSrc(t, "func countItems() { return 1 }\nlet x = countItem()")
	found := false
	for _, d := range r.Diags.Items() {
		if d.Code == CodeResolveUndefined && len(d.Message) > 0 {
			found = true
		}
	}
	be.True(t, found)
}
