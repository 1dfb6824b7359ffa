package lang

import (
	"testing"

	"github.com/nalgeon/be"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	toks, errs := NewLexer(NewSource("<test>", src)).Scan()
	for _, e := range errs {
		t.Fatalf("unexpected lex error: %v", e)
	}
	return toks
}

func tokTypes(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestLexIntLiteral(t *testing.T) {
	toks := scanAll(t, "12345")
	be.Equal(t, toks[0].Type, INT)
	be.Equal(t, toks[0].Literal.(int64), int64(12345))
}

func TestLexFloatLiteral(t *testing.T) {
	toks := scanAll(t, "3.14")
	be.Equal(t, toks[0].Type, FLOAT)
	be.Equal(t, toks[0].Literal.(float64), 3.14)
}

func TestLexHexAndBinary(t *testing.T) {
	toks := scanAll(t, "0xFF")
	be.Equal(t, toks[0].Literal.(int64), int64(255))
	toks = scanAll(t, "0b101")
	be.Equal(t, toks[0].Literal.(int64), int64(5))
}

func TestLexUnderscoreSeparators(t *testing.T) {
	toks := scanAll(t, "1_000_000")
	be.Equal(t, toks[0].Literal.(int64), int64(1000000))
}

func TestLexIdentifier(t *testing.T) {
	toks := scanAll(t, "foobar")
	be.Equal(t, toks[0].Type, IDENT)
	be.Equal(t, toks[0].Lexeme, "foobar")
}

func TestLexKeywords(t *testing.T) {
	toks := scanAll(t, "let var func if else while for match when use type pub")
	want := []TokenType{KW_LET, KW_VAR, KW_FUNC, KW_IF, KW_ELSE, KW_WHILE, KW_FOR, KW_MATCH, KW_WHEN, KW_USE, KW_TYPE, KW_PUB}
	for i, w := range want {
		be.Equal(t, toks[i].Type, w)
	}
}

func TestLexStringLiteral(t *testing.T) {
	toks := scanAll(t, `"hello"`)
	be.Equal(t, toks[0].Type, STRING_FRAGMENT)
	be.Equal(t, toks[0].Literal.(StringFragment).Value, "hello")
}

func TestLexStringInterpolation(t *testing.T) {
	toks := scanAll(t, `"a {1+1} b"`)
	types := tokTypes(toks)
	hasInterp := false
	for _, tt := range types {
		if tt == STRING_INTERP_START {
			hasInterp = true
		}
	}
	be.True(t, hasInterp)
}

func TestLexIndentDedentBalance(t *testing.T) {
	_, errs := NewLexer(NewSource("<test>", "func f() {\n    1\n}\n")).Scan()
	be.Equal(t, len(errs), 0)
}

func TestLexOperators(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"+", PLUS}, {"-", MINUS}, {"*", STAR}, {"/", SLASH}, {"%", PERCENT},
		{"==", EQ}, {"!=", NEQ}, {"<", LT}, {"<=", LE}, {">", GT}, {">=", GE},
		{"&&", AND_AND}, {"||", OR_OR}, {"??", QUESTION_QUESTION},
		{"..", DOTDOT}, {"..=", DOTDOTEQ}, {"=>", ARROW},
	}
	for _, tt := range tests {
		toks := scanAll(t, tt.input)
		be.Equal(t, toks[0].Type, tt.want)
	}
}

func TestLexUnknownCharReported(t *testing.T) {
	_, errs := NewLexer(NewSource("<test>", "`")).Scan()
	be.True(t, len(errs) > 0)
	be.Equal(t, errs[0].Code, CodeLexUnknownChar)
}

func TestLexEndsInEOF(t *testing.T) {
	toks := scanAll(t, "1")
	be.Equal(t, toks[len(toks)-1].Type, EOF)
}

func TestLexCapturesLeadingCommentAsDoc(t *testing.T) {
	toks := scanAll(t, "# doubles a number\nfunc double(x) { return x * 2 }")
	var funcTok Token
	for _, tk := range toks {
		if tk.Type == KW_FUNC {
			funcTok = tk
			break
		}
	}
	be.Equal(t, funcTok.Doc, "doubles a number")
}

func TestLexCombinesMultiLineLeadingComment(t *testing.T) {
	toks := scanAll(t, "# line one\n# line two\nfunc f() { return 1 }")
	var funcTok Token
	for _, tk := range toks {
		if tk.Type == KW_FUNC {
			funcTok = tk
			break
		}
	}
	be.Equal(t, funcTok.Doc, "line one\nline two")
}

func TestLexBlankLineBreaksDocComment(t *testing.T) {
	toks := scanAll(t, "# orphaned\n\nfunc f() { return 1 }")
	var funcTok Token
	for _, tk := range toks {
		if tk.Type == KW_FUNC {
			funcTok = tk
			break
		}
	}
	be.Equal(t, funcTok.Doc, "")
}

func TestLexTrailingCommentIsNotDoc(t *testing.T) {
	toks := scanAll(t, "let x = 1 # not a doc comment\nfunc f() { return 1 }")
	var funcTok Token
	for _, tk := range toks {
		if tk.Type == KW_FUNC {
			funcTok = tk
			break
		}
	}
	be.Equal(t, funcTok.Doc, "")
}
