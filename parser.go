// parser.go
//
// Parser turns a token stream into a Module AST plus parse diagnostics,
// per spec §4.2. It always produces a Module, using error-placeholder
// nodes when recovery is needed, and never panics on malformed input.
//
// The operator-precedence climbing loop (parseExpr/parseBinary) follows
// the shape of daios-ai-msg/parser.go's Pratt parser; the statement
// dispatch and synchronize-on-keyword recovery idiom is likewise adapted
// from that file's ParseError type and recovery helpers, generalized to
// this language's grammar (match/when/struct-literal/variant-construction
// forms the teacher's MindScript does not have).
package lang

import "fmt"

type Parser struct {
	src    *Source
	toks   []Token
	pos    int
	diags  *Bag
	interp map[string]Expr // cache of interpolation-fragment expr ASTs, keyed by source text
}

func NewParser(src *Source, toks []Token) *Parser {
	return &Parser{src: src, toks: toks, diags: &Bag{}, interp: map[string]Expr{}}
}

// Parse lexes and parses src in one step.
func Parse(src *Source) (*Module, *Bag) {
	lx := NewLexer(src)
	toks, lexErrs := lx.Scan()
	p := NewParser(src, toks)
	for _, e := range lexErrs {
		p.diags.Add(ToDiagnostic(e))
	}
	mod := p.parseModule()
	p.diags.Sort()
	return mod, p.diags
}

// ---- token helpers ----

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) at(tt TokenType) bool { return p.cur().Type == tt }
func (p *Parser) atEOF() bool { return p.cur().Type == EOF }

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(tt TokenType) bool { return p.cur().Type == tt }

func (p *Parser) match(tt TokenType) bool {
	if p.check(tt) {
		p.advance()
		return true
	}
	return false
}

// skipTrivia consumes NEWLINE/INDENT/DEDENT tokens, which are ambient
// (spec §4.1 bookkeeping) and not part of the brace-delimited grammar.
func (p *Parser) skipTrivia() {
	for p.at(NEWLINE) || p.at(INDENT) || p.at(DEDENT) {
		p.advance()
	}
}

func (p *Parser) errorf(sp Span, code, format string, args ...any) {
	p.diags.Add(Diagnostic{Code: code, Severity: SevError, Span: sp, Message: fmt.Sprintf(format, args...)})
}

func (p *Parser) expect(tt TokenType, code, what string) Token {
	p.skipTrivia()
	if p.check(tt) {
		return p.advance()
	}
	p.errorf(p.cur().Span, code, "expected %s but found %q", what, p.cur().Lexeme)
	return p.synchronizeToken()
}

// synchronizeToken consumes tokens until a synchronization point (spec
// §4.2: end-of-line, end-of-statement delimiter, top-level keyword start,
// or a closing delimiter) and returns the current (unconsumed) token so
// callers can continue building a placeholder node.
func (p *Parser) synchronizeToken() Token {
	for !p.atEOF() {
		switch p.cur().Type {
		case NEWLINE, RBRACE, RPAREN, RBRACKET, COMMA,
			KW_FUNC, KW_LET, KW_VAR, KW_IF, KW_WHILE, KW_FOR,
			KW_MATCH, KW_WHEN, KW_USE, KW_TYPE, KW_RETURN:
			return p.cur()
		}
		p.advance()
	}
	return p.cur()
}

// ---- module & items ----

func (p *Parser) parseModule() *Module {
	start := p.cur().Span
	m := &Module{Name: p.src.Name}
	p.skipTrivia()
	for !p.atEOF() {
		item := p.parseItem()
		if item != nil {
			m.Items = append(m.Items, item)
		}
		p.skipTrivia()
	}
	m.baseNode = baseNode{span: Join(start, p.cur().Span)}
	return m
}

func (p *Parser) parseItem() Node {
	p.skipTrivia()
	switch p.cur().Type {
	case KW_USE:
		return p.parseImport()
	case KW_TYPE:
		return p.parseTypeDef(false)
	case KW_PUB:
		doc := p.cur().Doc
		p.advance()
		if doc != "" && p.toks[p.pos].Doc == "" {
			p.toks[p.pos].Doc = doc // carry the doc comment past 'pub' onto 'func'
		}
		return p.parsePublicItem()
	case KW_FUNC:
		return p.parseFuncDef(false)
	case KW_LET, KW_VAR:
		return p.parseLetStmt(false)
	case IDENT:
		if p.toks[p.pos+1].Type == KW_HAS {
			return p.parseStructDef(false)
		}
		if p.toks[p.pos+1].Type == KW_DOES {
			return p.parseExtensionDef()
		}
	}
	return p.parseStatement()
}

func (p *Parser) parsePublicItem() Node {
	switch p.cur().Type {
	case KW_FUNC:
		return p.parseFuncDef(true)
	case KW_LET, KW_VAR:
		return p.parseLetStmt(true)
	case KW_TYPE:
		return p.parseTypeDef(true)
	case IDENT:
		if p.toks[p.pos+1].Type == KW_HAS {
			return p.parseStructDef(true)
		}
	}
	p.errorf(p.cur().Span, CodeParseExpectedToken, "expected a declaration after 'pub'")
	return p.parseStatement()
}

func (p *Parser) parseImport() Node {
	start := p.advance().Span // 'use'
	pathTok := p.expect(IDENT, CodeParseExpectedToken, "module path")
	path := pathTok.Lexeme
	for p.match(DOT) {
		seg := p.expect(IDENT, CodeParseExpectedToken, "path segment")
		path += "." + seg.Lexeme
	}
	alias := lastSegment(path)
	if p.match(KW_IN) { // `use path in alias`
		a := p.expect(IDENT, CodeParseExpectedToken, "alias")
		alias = a.Lexeme
	}
	return &ImportStmt{baseNode: baseNode{Join(start, p.prevSpan())}, Path: path, Alias: alias}
}

func lastSegment(path string) string {
	last := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			last = path[i+1:]
			break
		}
	}
	return last
}

func (p *Parser) prevSpan() Span {
	if p.pos == 0 {
		return p.toks[0].Span
	}
	return p.toks[p.pos-1].Span
}

// ---- type definitions: struct / tagged-variant / extension ----

func (p *Parser) parseStructDef(public bool) Node {
	nameTok := p.advance() // IDENT
	p.advance()            // 'has'
	p.expect(LBRACE, CodeParseUnclosedDelim, "'{'")
	td := &TypeDef{Name: nameTok.Lexeme, Public: public}
	p.skipTrivia()
	for !p.check(RBRACE) && !p.atEOF() {
		if p.check(KW_FUNC) {
			td.Methods = append(td.Methods, p.parseFuncDef(false).(*FuncDef))
		} else {
			td.Fields = append(td.Fields, p.parseFieldDef())
		}
		p.skipTrivia()
	}
	end := p.expect(RBRACE, CodeParseUnclosedDelim, "'}'")
	td.baseNode = baseNode{Join(nameTok.Span, end.Span)}
	return td
}

func (p *Parser) parseFieldDef() FieldDef {
	mutable := p.match(KW_VAR)
	if !mutable {
		p.match(KW_LET)
	}
	name := p.expect(IDENT, CodeParseExpectedToken, "field name")
	var ann Node
	if p.match(COLON) {
		ann = p.parseTypeExpr()
	}
	p.skipCommaOrNewline()
	return FieldDef{Name: name.Lexeme, Annotation: ann, Mutable: mutable}
}

func (p *Parser) skipCommaOrNewline() {
	p.match(COMMA)
	p.skipTrivia()
}

func (p *Parser) parseExtensionDef() Node {
	nameTok := p.advance() // IDENT
	p.advance()            // 'does'
	p.expect(LBRACE, CodeParseUnclosedDelim, "'{'")
	ext := &ExtensionDef{TypeName: nameTok.Lexeme}
	p.skipTrivia()
	for !p.check(RBRACE) && !p.atEOF() {
		ext.Methods = append(ext.Methods, p.parseFuncDef(false).(*FuncDef))
		p.skipTrivia()
	}
	end := p.expect(RBRACE, CodeParseUnclosedDelim, "'}'")
	ext.baseNode = baseNode{Join(nameTok.Span, end.Span)}
	return ext
}

func (p *Parser) parseTypeDef(public bool) Node {
	start := p.advance() // 'type'
	name := p.expect(IDENT, CodeParseExpectedToken, "type name")
	p.expect(ASSIGN, CodeParseExpectedToken, "'='")
	td := &TypeDef{Name: name.Lexeme, Public: public}
	for {
		v := p.parseVariantDef()
		td.Variants = append(td.Variants, v)
		if !p.match(PIPE) {
			break
		}
	}
	td.baseNode = baseNode{Join(start.Span, p.prevSpan())}
	return td
}

func (p *Parser) parseVariantDef() VariantDef {
	name := p.expect(IDENT, CodeParseExpectedToken, "variant tag")
	v := VariantDef{Name: name.Lexeme}
	if p.match(LPAREN) {
		for !p.check(RPAREN) && !p.atEOF() {
			f := p.expect(IDENT, CodeParseExpectedToken, "field name")
			v.Fields = append(v.Fields, f.Lexeme)
			if !p.match(COMMA) {
				break
			}
		}
		p.expect(RPAREN, CodeParseUnclosedDelim, "')'")
	}
	return v
}

// ---- type expressions ----

func (p *Parser) parseTypeExpr() Node {
	base := p.parseTypeAtom()
	if p.match(QUESTION) {
		base = &TypeOptional{baseNode: baseNode{Join(span(base), p.prevSpan())}, Base: base}
	}
	if p.match(ARROW) {
		result := p.parseTypeExpr()
		return &TypeFunc{baseNode: baseNode{Join(span(base), span(result))}, Param: base, Result: result}
	}
	return base
}

func (p *Parser) parseTypeAtom() Node {
	tok := p.expect(IDENT, CodeParseExpectedToken, "type name")
	return &TypeIdent{baseNode: baseNode{tok.Span}, Name: tok.Lexeme}
}

// ---- top-level / nested function definitions ----

func (p *Parser) parseFuncDef(public bool) Node {
	start := p.advance() // 'func'
	nameTok := p.expect(IDENT, CodeParseExpectedToken, "function name")
	params, retAnn := p.parseParamList()
	body := p.parseBlock()
	return &FuncDef{
		baseNode: baseNode{Join(start.Span, span(body))},
		Name:     nameTok.Lexeme, Public: public, Doc: start.Doc,
		Params: params, ReturnAnn: retAnn, Body: body,
	}
}

func (p *Parser) parseParamList() ([]Param, Node) {
	p.expect(LPAREN, CodeParseBadFuncSig, "'('")
	var params []Param
	for !p.check(RPAREN) && !p.atEOF() {
		name := p.expect(IDENT, CodeParseExpectedToken, "parameter name")
		var ann Node
		if p.match(COLON) {
			ann = p.parseTypeExpr()
		}
		params = append(params, Param{Name: name.Lexeme, Annotation: ann})
		if !p.match(COMMA) {
			break
		}
	}
	p.expect(RPAREN, CodeParseUnclosedDelim, "')'")
	var retAnn Node
	if p.match(ARROW) {
		retAnn = p.parseTypeExpr()
	}
	return params, retAnn
}

// ---- statements ----

func (p *Parser) parseBlock() *Block {
	start := p.expect(LBRACE, CodeParseUnclosedDelim, "'{'")
	b := &Block{}
	p.skipTrivia()
	for !p.check(RBRACE) && !p.atEOF() {
		s := p.parseStatement()
		if s != nil {
			b.Stmts = append(b.Stmts, s)
		}
		p.skipTrivia()
	}
	end := p.expect(RBRACE, CodeParseUnclosedDelim, "'}'")
	b.baseNode = baseNode{Join(start.Span, end.Span)}
	return b
}

// parseColonOrBlock implements spec §4.2's shorthand desugaring: a colon
// introduces a single statement treated as a one-statement block.
func (p *Parser) parseColonOrBlock() *Block {
	if p.check(LBRACE) {
		return p.parseBlock()
	}
	colon := p.expect(COLON, CodeParseExpectedToken, "':' or '{'")
	s := p.parseStatement()
	stmts := []Node{}
	if s != nil {
		stmts = append(stmts, s)
	}
	return &Block{baseNode: baseNode{Join(colon.Span, span(s))}, Stmts: stmts}
}

func (p *Parser) parseStatement() Node {
	p.skipTrivia()
	switch p.cur().Type {
	case KW_LET, KW_VAR:
		return p.parseLetStmt(false)
	case KW_PUB:
		doc := p.cur().Doc
		p.advance()
		if doc != "" && p.toks[p.pos].Doc == "" {
			p.toks[p.pos].Doc = doc // carry the doc comment past 'pub' onto 'func'
		}
		return p.parsePublicItem()
	case KW_RETURN:
		return p.parseReturn()
	case KW_BREAK:
		return p.parseBreak()
	case KW_CONTINUE:
		t := p.advance()
		return &ContinueStmt{baseNode{t.Span}}
	case KW_IF:
		return p.parseIf()
	case KW_WHILE:
		return p.parseWhile()
	case KW_FOR:
		return p.parseFor()
	case KW_MATCH:
		return p.parseMatchStmt()
	case KW_WHEN:
		return p.parseWhen()
	case KW_FUNC:
		return p.parseFuncDef(false)
	case KW_USE:
		return p.parseImport()
	case KW_TYPE:
		return p.parseTypeDef(false)
	case IDENT:
		if p.toks[p.pos+1].Type == KW_HAS {
			return p.parseStructDef(false)
		}
		if p.toks[p.pos+1].Type == KW_DOES {
			return p.parseExtensionDef()
		}
	}
	return p.parseExprOrAssignStmt()
}

func (p *Parser) parseLetStmt(public bool) Node {
	start := p.advance() // let|var
	mutable := start.Type == KW_VAR
	st := &LetStmt{Mutable: mutable, Public: public}
	if p.check(LPAREN) {
		p.advance()
		for !p.check(RPAREN) && !p.atEOF() {
			name := p.expect(IDENT, CodeParseExpectedToken, "binding name")
			st.Targets = append(st.Targets, name.Lexeme)
			if !p.match(COMMA) {
				break
			}
		}
		p.expect(RPAREN, CodeParseUnclosedDelim, "')'")
	} else {
		name := p.expect(IDENT, CodeParseExpectedToken, "binding name")
		st.Name = name.Lexeme
		if p.match(COLON) {
			st.Annotation = p.parseTypeExpr()
		}
	}
	if !p.match(ASSIGN) {
		p.errorf(p.cur().Span, CodeParseMissingInit, "let/var binding requires an initializer")
	} else {
		st.Init = p.parseExpr(precAssignRHS)
	}
	st.baseNode = baseNode{Join(start.Span, span(st.Init))}
	return st
}

func (p *Parser) parseExprOrAssignStmt() Node {
	start := p.cur().Span
	x := p.parseExpr(precLowest)
	if p.match(ASSIGN) {
		val := p.parseExpr(precAssignRHS)
		return &AssignStmt{baseNode: baseNode{Join(start, span(val))}, Target: x, Value: val}
	}
	return &ExprStmt{baseNode: baseNode{Join(start, span(x))}, X: x}
}

func (p *Parser) parseReturn() Node {
	start := p.advance()
	if p.check(NEWLINE) || p.check(RBRACE) || p.atEOF() {
		return &ReturnStmt{baseNode: baseNode{start.Span}}
	}
	v := p.parseExpr(precLowest)
	return &ReturnStmt{baseNode: baseNode{Join(start.Span, span(v))}, Value: v}
}

func (p *Parser) parseBreak() Node {
	start := p.advance()
	if p.check(NEWLINE) || p.check(RBRACE) || p.atEOF() {
		return &BreakStmt{baseNode: baseNode{start.Span}}
	}
	v := p.parseExpr(precLowest)
	return &BreakStmt{baseNode: baseNode{Join(start.Span, span(v))}, Value: v}
}

func (p *Parser) parseIf() Node {
	start := p.advance()
	cond := p.parseExpr(precLowest)
	then := p.parseColonOrBlock()
	st := &IfStmt{baseNode: baseNode{Join(start.Span, span(then))}, Cond: cond, Then: then}
	save := p.pos
	p.skipTrivia()
	if p.match(KW_ELSE) {
		if p.check(KW_IF) {
			st.Else = p.parseIf()
		} else {
			st.Else = p.parseColonOrBlock()
		}
		st.baseNode = baseNode{Join(start.Span, span(st.Else))}
	} else {
		p.pos = save
	}
	return st
}

func (p *Parser) parseWhile() Node {
	start := p.advance()
	cond := p.parseExpr(precLowest)
	body := p.parseColonOrBlock()
	return &WhileStmt{baseNode: baseNode{Join(start.Span, span(body))}, Cond: cond, Body: body}
}

func (p *Parser) parseFor() Node {
	start := p.advance()
	name := p.expect(IDENT, CodeParseExpectedToken, "loop variable")
	p.expect(KW_IN, CodeParseExpectedToken, "'in'")
	iter := p.parseExpr(precLowest)
	body := p.parseColonOrBlock()
	return &ForStmt{baseNode: baseNode{Join(start.Span, span(body))}, Var: name.Lexeme, Iter: iter, Body: body}
}

func (p *Parser) parseMatchStmt() Node {
	start := p.advance()
	subj := p.parseExpr(precLowest)
	p.expect(LBRACE, CodeParseUnclosedDelim, "'{'")
	ms := &MatchStmt{Subject: subj}
	p.skipTrivia()
	sawWildcard := false
	for !p.check(RBRACE) && !p.atEOF() {
		pat := p.parsePattern()
		if _, ok := pat.(*WildcardPattern); ok {
			sawWildcard = true
		}
		body := p.parseColonOrBlock()
		ms.Arms = append(ms.Arms, &MatchArm{baseNode: baseNode{Join(span(pat), span(body))}, Pattern: pat, Body: body})
		p.skipTrivia()
	}
	end := p.expect(RBRACE, CodeParseUnclosedDelim, "'}'")
	if !sawWildcard {
		p.errorf(end.Span, CodeParseNonExhaustive, "match is missing a terminal wildcard arm")
	}
	ms.baseNode = baseNode{Join(start.Span, end.Span)}
	return ms
}

// parseWhen desugars `when x = exprA, y = exprB { S } else { E }` into the
// nested tagged-variant match chain spec §4.2 specifies. Desugaring
// happens here, at parse time, so every later stage sees only ordinary
// match statements.
func (p *Parser) parseWhen() Node {
	start := p.advance()
	var bindings []WhenBinding
	for {
		name := p.expect(IDENT, CodeParseExpectedToken, "binding name")
		p.expect(ASSIGN, CodeParseExpectedToken, "'='")
		e := p.parseExpr(precAssignRHS)
		bindings = append(bindings, WhenBinding{Name: name.Lexeme, Expr: e})
		if !p.match(COMMA) {
			break
		}
	}
	then := p.parseBlock()
	var els *Block
	p.skipTrivia()
	if p.match(KW_ELSE) {
		els = p.parseBlock()
	}
	end := span(then)
	if els != nil {
		end = span(els)
	}
	return desugarWhen(start.Span, end, bindings, then, els)
}

func desugarWhen(start, end Span, bindings []WhenBinding, then, els *Block) Node {
	var elseBlock *Block
	if els != nil {
		elseBlock = els
	} else {
		elseBlock = &Block{baseNode: baseNode{end}}
	}
	var rec func(i int) *Block
	rec = func(i int) *Block {
		if i == len(bindings) {
			return then
		}
		b := bindings[i]
		inner := rec(i + 1)
		ms := &MatchStmt{
			baseNode: baseNode{end},
			Subject:  b.Expr,
			Arms: []*MatchArm{
				{Pattern: &VariantPattern{Tag: "some", Fields: []Pattern{&BindPattern{Name: b.Name}}}, Body: inner},
				{Pattern: &WildcardPattern{}, Body: elseBlock},
			},
		}
		return &Block{baseNode: baseNode{end}, Stmts: []Node{ms}}
	}
	result := rec(0)
	if len(result.Stmts) == 1 {
		if ms, ok := result.Stmts[0].(*MatchStmt); ok {
			ms.baseNode = baseNode{Join(start, end)}
			return ms
		}
	}
	return result
}

// ---- patterns ----

func (p *Parser) parsePattern() Pattern {
	switch p.cur().Type {
	case IDENT:
		name := p.cur().Lexeme
		if name == "_" {
			t := p.advance()
			return &WildcardPattern{basePattern{baseNode{t.Span}}}
		}
		if p.toks[p.pos+1].Type == LPAREN {
			t := p.advance()
			p.advance() // '('
			var fields []Pattern
			for !p.check(RPAREN) && !p.atEOF() {
				fields = append(fields, p.parsePattern())
				if !p.match(COMMA) {
					break
				}
			}
			end := p.expect(RPAREN, CodeParseUnclosedDelim, "')'")
			return &VariantPattern{basePattern: basePattern{baseNode{Join(t.Span, end.Span)}}, Tag: name, Fields: fields}
		}
		t := p.advance()
		return &BindPattern{basePattern{baseNode{t.Span}}, name}
	case LPAREN:
		start := p.advance()
		var elems []Pattern
		for !p.check(RPAREN) && !p.atEOF() {
			elems = append(elems, p.parsePattern())
			if !p.match(COMMA) {
				break
			}
		}
		end := p.expect(RPAREN, CodeParseUnclosedDelim, "')'")
		return &TuplePattern{basePattern{baseNode{Join(start.Span, end.Span)}}, elems}
	case INT, FLOAT, KW_TRUE, KW_FALSE:
		e := p.parsePrimary()
		return &LitPattern{basePattern{baseNode{span(e)}}, e}
	case STRING_FRAGMENT:
		e := p.parsePrimary()
		return &LitPattern{basePattern{baseNode{span(e)}}, e}
	}
	t := p.advance()
	p.errorf(t.Span, CodeParseExpectedToken, "expected a pattern but found %q", t.Lexeme)
	return &WildcardPattern{basePattern{baseNode{t.Span}}}
}

// ---- expressions: precedence-climbing ----

const (
	precLowest = iota
	precAssignRHS // right side of '=' / ':=' initializers; same as precLowest
	precOr
	precAnd
	precEquality
	precRelational
	precRange
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

func binPrec(tt TokenType) int {
	switch tt {
	case OR_OR, KW_OR, QUESTION_QUESTION:
		return precOr
	case AND_AND, KW_AND:
		return precAnd
	case EQ, NEQ, KW_IS, KW_ISNT:
		return precEquality
	case LT, LE, GT, GE:
		return precRelational
	case DOTDOT, DOTDOTEQ:
		return precRange
	case PLUS, MINUS:
		return precAdditive
	case STAR, SLASH, PERCENT:
		return precMultiplicative
	}
	return -1
}

func (p *Parser) parseExpr(minPrec int) Expr {
	left := p.parseUnary()
	for {
		tt := p.cur().Type
		prec := binPrec(tt)
		if prec < 0 || prec < minPrec {
			return left
		}
		op := p.advance()
		if tt == DOTDOT || tt == DOTDOTEQ {
			right := p.parseExpr(precRange + 1)
			left = &RangeExpr{baseExpr: baseExpr{baseNode{Join(span(left), span(right))}}, Start: left, End: right, Inclusive: tt == DOTDOTEQ}
			continue
		}
		right := p.parseExpr(prec + 1)
		switch tt {
		case AND_AND, KW_AND, OR_OR, KW_OR, QUESTION_QUESTION:
			logOp := op.Type
			if logOp == QUESTION_QUESTION {
				// `a ?? b` desugars to `when v = a { v } else { b }`, which
				// in expression position is `match a { some(v) { v } _ { b } }`.
				left = &MatchExpr{
					baseExpr: baseExpr{baseNode{Join(span(left), span(right))}},
					Subject:  left,
					Arms: []*MatchExprArm{
						{Pattern: &VariantPattern{Tag: "some", Fields: []Pattern{&BindPattern{Name: "__v"}}}, Value: &Ident{baseExpr{baseNode{span(left)}}, "__v"}},
						{Pattern: &WildcardPattern{}, Value: right},
					},
				}
				continue
			}
			left = &LogicalExpr{baseExpr: baseExpr{baseNode{Join(span(left), span(right))}}, Op: logOp, X: left, Y: right}
		default:
			left = &BinaryExpr{baseExpr: baseExpr{baseNode{Join(span(left), span(right))}}, Op: tt, X: left, Y: right}
		}
	}
}

func (p *Parser) parseUnary() Expr {
	switch p.cur().Type {
	case MINUS, BANG, KW_NOT:
		op := p.advance()
		x := p.parseUnary()
		return &UnaryExpr{baseExpr: baseExpr{baseNode{Join(op.Span, span(x))}}, Op: op.Type, X: x}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Expr {
	x := p.parsePrimary()
	for {
		switch p.cur().Type {
		case DOT:
			p.advance()
			name := p.expect(IDENT, CodeParseExpectedToken, "field name")
			x = &FieldAccess{baseExpr: baseExpr{baseNode{Join(span(x), name.Span)}}, X: x, Name: name.Lexeme}
		case LBRACKET:
			p.advance()
			idx := p.parseExpr(precLowest)
			end := p.expect(RBRACKET, CodeParseUnclosedDelim, "']'")
			x = &IndexExpr{baseExpr: baseExpr{baseNode{Join(span(x), end.Span)}}, X: x, Index: idx}
		case LPAREN:
			p.advance()
			var args []Expr
			for !p.check(RPAREN) && !p.atEOF() {
				args = append(args, p.parseExpr(precAssignRHS))
				if !p.match(COMMA) {
					break
				}
			}
			end := p.expect(RPAREN, CodeParseUnclosedDelim, "')'")
			x = &CallExpr{baseExpr: baseExpr{baseNode{Join(span(x), end.Span)}}, Callee: x, Args: args}
		default:
			return x
		}
	}
}

func (p *Parser) parsePrimary() Expr {
	t := p.cur()
	switch t.Type {
	case INT:
		p.advance()
		return &IntLit{baseExpr{baseNode{t.Span}}, t.Literal.(int64)}
	case FLOAT:
		p.advance()
		return &FloatLit{baseExpr{baseNode{t.Span}}, t.Literal.(float64)}
	case KW_TRUE, KW_FALSE:
		p.advance()
		return &BoolLit{baseExpr{baseNode{t.Span}}, t.Literal.(bool)}
	case STRING_FRAGMENT:
		return p.parseStringLiteral()
	case IDENT:
		p.advance()
		if p.check(LPAREN) && isVariantTagName(t.Lexeme) {
			return p.parseVariantOrCall(t)
		}
		return p.parseIdentOrStructLit(t)
	case LPAREN:
		p.advance()
		first := p.parseExpr(precLowest)
		if p.match(COMMA) {
			elems := []Expr{first}
			for !p.check(RPAREN) && !p.atEOF() {
				elems = append(elems, p.parseExpr(precAssignRHS))
				if !p.match(COMMA) {
					break
				}
			}
			end := p.expect(RPAREN, CodeParseUnclosedDelim, "')'")
			return &TupleLit{baseExpr{baseNode{Join(t.Span, end.Span)}}, elems}
		}
		end := p.expect(RPAREN, CodeParseUnclosedDelim, "')'")
		return &GroupExpr{baseExpr{baseNode{Join(t.Span, end.Span)}}, first}
	case LBRACKET:
		return p.parseListLit()
	case LBRACE:
		return p.parseMapLit()
	case KW_FUNC:
		return p.parseFuncLit()
	case KW_IF:
		return p.parseIfExpr()
	case KW_MATCH:
		return p.parseMatchExpr()
	}
	p.advance()
	p.errorf(t.Span, CodeParseExpectedToken, "expected an expression but found %q", t.Lexeme)
	return &NullLit{baseExpr{baseNode{t.Span}}}
}

// isVariantTagName treats an identifier immediately followed by '(' as a
// variant-construction call when it is one of the built-in option/result
// tags (some/none/ok/err) or is capitalized; every other name followed
// by '(' parses as an ordinary CallExpr. The resolver does not revisit
// this choice.
func isVariantTagName(name string) bool {
	switch name {
	case "some", "none", "ok", "err":
		return true
	}
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}

func (p *Parser) parseVariantOrCall(tag Token) Expr {
	p.advance() // '('
	var args []Expr
	for !p.check(RPAREN) && !p.atEOF() {
		args = append(args, p.parseExpr(precAssignRHS))
		if !p.match(COMMA) {
			break
		}
	}
	end := p.expect(RPAREN, CodeParseUnclosedDelim, "')'")
	return &VariantLit{baseExpr: baseExpr{baseNode{Join(tag.Span, end.Span)}}, Tag: tag.Lexeme, Args: args}
}

func (p *Parser) parseIdentOrStructLit(t Token) Expr {
	if p.check(LBRACE) && isCapitalized(t.Lexeme) {
		return p.parseStructLit(t)
	}
	if t.Lexeme == "none" {
		return &VariantLit{baseExpr: baseExpr{baseNode{t.Span}}, Tag: "none"}
	}
	return &Ident{baseExpr{baseNode{t.Span}}, t.Lexeme}
}

func isCapitalized(s string) bool { return len(s) > 0 && s[0] >= 'A' && s[0] <= 'Z' }

func (p *Parser) parseStructLit(nameTok Token) Expr {
	p.advance() // '{'
	sl := &StructLit{TypeName: nameTok.Lexeme}
	p.skipTrivia()
	if p.match(DOTDOT) { // spread base: ...base, field: v, ...
	}
	for !p.check(RBRACE) && !p.atEOF() {
		if p.match(DOTDOT) {
			sl.Base = p.parseExpr(precAssignRHS)
		} else {
			fname := p.expect(IDENT, CodeParseExpectedToken, "field name")
			p.expect(COLON, CodeParseExpectedToken, "':'")
			v := p.parseExpr(precAssignRHS)
			for _, f := range sl.Fields {
				if f.Name == fname.Lexeme {
					p.errorf(fname.Span, CodeParseDuplicateField, "duplicate field %q in struct literal", fname.Lexeme)
				}
			}
			sl.Fields = append(sl.Fields, StructFieldInit{Name: fname.Lexeme, Value: v})
		}
		if !p.match(COMMA) {
			break
		}
		p.skipTrivia()
	}
	end := p.expect(RBRACE, CodeParseUnclosedDelim, "'}'")
	sl.baseNode = baseNode{Join(nameTok.Span, end.Span)}
	return sl
}

func (p *Parser) parseListLit() Expr {
	start := p.advance()
	ll := &ListLit{}
	for !p.check(RBRACKET) && !p.atEOF() {
		ll.Elems = append(ll.Elems, p.parseExpr(precAssignRHS))
		if !p.match(COMMA) {
			break
		}
	}
	end := p.expect(RBRACKET, CodeParseUnclosedDelim, "']'")
	ll.baseNode = baseNode{Join(start.Span, end.Span)}
	return ll
}

func (p *Parser) parseMapLit() Expr {
	start := p.advance()
	ml := &MapLit{}
	p.skipTrivia()
	for !p.check(RBRACE) && !p.atEOF() {
		key := p.parseExpr(precAssignRHS)
		p.expect(COLON, CodeParseExpectedToken, "':'")
		val := p.parseExpr(precAssignRHS)
		ml.Entries = append(ml.Entries, MapEntry{Key: key, Value: val})
		if !p.match(COMMA) {
			break
		}
		p.skipTrivia()
	}
	end := p.expect(RBRACE, CodeParseUnclosedDelim, "'}'")
	ml.baseNode = baseNode{Join(start.Span, end.Span)}
	return ml
}

func (p *Parser) parseFuncLit() Expr {
	start := p.advance()
	params, retAnn := p.parseParamList()
	body := p.parseBlock()
	return &FuncLit{baseExpr: baseExpr{baseNode{Join(start.Span, span(body))}}, Params: params, ReturnAnn: retAnn, Body: body}
}

func (p *Parser) parseIfExpr() Expr {
	start := p.advance()
	cond := p.parseExpr(precLowest)
	p.expect(LBRACE, CodeParseUnclosedDelim, "'{'")
	thenVal := p.parseExpr(precLowest)
	p.skipTrivia()
	p.expect(RBRACE, CodeParseUnclosedDelim, "'}'")
	p.skipTrivia()
	p.expect(KW_ELSE, CodeParseExpectedToken, "'else'")
	p.expect(LBRACE, CodeParseUnclosedDelim, "'{'")
	elseVal := p.parseExpr(precLowest)
	p.skipTrivia()
	end := p.expect(RBRACE, CodeParseUnclosedDelim, "'}'")
	return &IfExpr{baseExpr: baseExpr{baseNode{Join(start.Span, end.Span)}}, Cond: cond, Then: thenVal, Else: elseVal}
}

func (p *Parser) parseMatchExpr() Expr {
	start := p.advance()
	subj := p.parseExpr(precLowest)
	p.expect(LBRACE, CodeParseUnclosedDelim, "'{'")
	me := &MatchExpr{Subject: subj}
	p.skipTrivia()
	sawWildcard := false
	for !p.check(RBRACE) && !p.atEOF() {
		pat := p.parsePattern()
		if _, ok := pat.(*WildcardPattern); ok {
			sawWildcard = true
		}
		p.expect(LBRACE, CodeParseUnclosedDelim, "'{'")
		val := p.parseExpr(precLowest)
		p.skipTrivia()
		armEnd := p.expect(RBRACE, CodeParseUnclosedDelim, "'}'")
		me.Arms = append(me.Arms, &MatchExprArm{baseNode: baseNode{Join(span(pat), armEnd.Span)}, Pattern: pat, Value: val})
		p.skipTrivia()
	}
	end := p.expect(RBRACE, CodeParseUnclosedDelim, "'}'")
	if !sawWildcard {
		p.errorf(end.Span, CodeParseNonExhaustive, "match is missing a terminal wildcard arm")
	}
	me.baseExpr = baseExpr{baseNode{Join(start.Span, end.Span)}}
	return me
}

// parseStringLiteral builds either a plain StringLit or a StringInterp,
// consuming the alternating STRING_FRAGMENT / STRING_INTERP_START expr
// STRING_INTERP_END stream the lexer produces. Embedded-expression ASTs
// are cached by their source text so repeated fragments across a file
// reuse one parse, per spec §4.2.
func (p *Parser) parseStringLiteral() Expr {
	startTok := p.cur()
	frag := p.advance()
	f := frag.Literal.(StringFragment)
	if f.Last {
		return &StringLit{baseExpr{baseNode{frag.Span}}, f.Value}
	}
	si := &StringInterp{Fragments: []string{f.Value}}
	for {
		p.expect(STRING_INTERP_START, CodeParseExpectedToken, "'{'")
		exprStart := p.cur()
		var e Expr
		key := exprKeyFromTokens(p.toks, p.pos)
		if cached, ok := p.interp[key]; ok && key != "" {
			e = cached
			for p.cur().Type != STRING_INTERP_END && !p.atEOF() {
				p.advance()
			}
		} else {
			e = p.parseExpr(precLowest)
			if key != "" {
				p.interp[key] = e
			}
		}
		_ = exprStart
		p.expect(STRING_INTERP_END, CodeParseExpectedToken, "'}'")
		next := p.expect(STRING_FRAGMENT, CodeParseExpectedToken, "string continuation")
		nf := next.Literal.(StringFragment)
		si.Exprs = append(si.Exprs, e)
		si.Fragments = append(si.Fragments, nf.Value)
		if nf.Last {
			break
		}
	}
	endSpan := p.prevSpan()
	si.baseExpr = baseExpr{baseNode{Join(startTok.Span, endSpan)}}
	return si
}

// exprKeyFromTokens produces a cache key from the literal text spanned by
// the upcoming interpolation expression, bounded by matching braces so it
// does not run off the end of the token stream.
func exprKeyFromTokens(toks []Token, pos int) string {
	depth := 0
	i := pos
	for i < len(toks) {
		switch toks[i].Type {
		case STRING_INTERP_START, LBRACE:
			depth++
		case STRING_INTERP_END, RBRACE:
			if depth == 0 {
				goto done
			}
			depth--
		}
		i++
	}
done:
	if i >= len(toks) || i == pos {
		return ""
	}
	sp := Join(toks[pos].Span, toks[i-1].Span)
	return sp.Text()
}
