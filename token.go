// token.go
//
// Token kinds and the Token type itself. The keyword table, numeric/string
// literal payload shapes, and the INDENT/DEDENT/NEWLINE block-structure
// markers follow spec.md §3.2.
package lang

// TokenType enumerates every lexical category the lexer produces.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL
	NEWLINE
	INDENT
	DEDENT

	// Literals & identifiers
	IDENT
	INT
	FLOAT
	STRING_FRAGMENT // a literal piece of a (possibly interpolated) string
	STRING_INTERP_START
	STRING_INTERP_END

	// Punctuation
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	LBRACE
	RBRACE
	COMMA
	COLON
	DOT
	DOTDOT    // ".." range (exclusive)
	DOTDOTEQ  // "..=" range (inclusive)
	ARROW     // "=>"
	UNDERSCORE

	// Operators
	ASSIGN // "="
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	EQ
	NEQ
	LT
	LE
	GT
	GE
	BANG
	AND_AND
	OR_OR
	QUESTION
	QUESTION_QUESTION
	PIPE // "|" in tagged-variant type definitions

	// Keywords
	KW_LET
	KW_VAR
	KW_FUNC
	KW_RETURN
	KW_BREAK
	KW_CONTINUE
	KW_IF
	KW_ELSE
	KW_WHILE
	KW_FOR
	KW_IN
	KW_MATCH
	KW_WHEN
	KW_USE
	KW_TYPE
	KW_HAS
	KW_DOES
	KW_PUB
	KW_TRUE
	KW_FALSE
	KW_AND
	KW_OR
	KW_NOT
	KW_IS
	KW_ISNT

	// reserved-but-unused: rejected as identifiers (spec §4.1)
	KW_ASYNC
	KW_AWAIT
)

var keywords = map[string]TokenType{
	"let": KW_LET, "var": KW_VAR, "func": KW_FUNC, "return": KW_RETURN,
	"break": KW_BREAK, "continue": KW_CONTINUE, "if": KW_IF, "else": KW_ELSE,
	"while": KW_WHILE, "for": KW_FOR, "in": KW_IN, "match": KW_MATCH,
	"when": KW_WHEN, "use": KW_USE, "type": KW_TYPE, "has": KW_HAS,
	"does": KW_DOES, "pub": KW_PUB, "true": KW_TRUE, "false": KW_FALSE,
	"and": KW_AND, "or": KW_OR, "not": KW_NOT, "is": KW_IS, "isnt": KW_ISNT,
	"async": KW_ASYNC, "await": KW_AWAIT,
}

// reservedKeywords rejects these as identifiers even though they do not
// introduce any grammar production yet (spec §4.1: "reserved-but-unused
// keywords must be rejected as identifiers").
var reservedKeywords = map[TokenType]bool{KW_ASYNC: true, KW_AWAIT: true}

// Token is a single lexical token, carrying a typed Literal payload for
// numeric/string/bool tokens.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal any // int64 | float64 | bool | StringFragment | nil
	Span    Span
	Doc     string // leading '#'-comment block immediately above this token, if any
}

func (t Token) String() string { return t.Lexeme }
