// printer.go
//
// Stable textual AST pretty-printer (spec §6.1 `ast` subcommand, spec
// §8 property 2's round-trip requirement). Emits the language's own
// concrete syntax rather than an s-expression dump, brace-delimited
// throughout (this module's grammar allows braces everywhere, so the
// printer never needs the indentation-sensitive form lexer.go also
// accepts -- see lexer.go's header comment on that coexistence).
//
// Known gap: `when` statements are desugared to nested MatchStmt trees
// at parse time (parser.go's desugarWhen) and never survive into the
// AST the printer walks, so a desugared `when` prints back out as
// nested `match` statements rather than re-sugaring to `when`. This is
// an accepted limitation, not a bug.
package lang

import (
	"fmt"
	"strings"
)

type printer struct {
	b      strings.Builder
	indent int
}

func (p *printer) line(format string, args ...any) {
	p.b.WriteString(strings.Repeat("    ", p.indent))
	fmt.Fprintf(&p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p *printer) raw(s string) { p.b.WriteString(s) }

// PrintModule renders mod in the stable textual form used by the `ast`
// CLI subcommand and by round-trip tests.
func PrintModule(mod *Module) string {
	p := &printer{}
	for _, item := range mod.Items {
		p.printItem(item)
	}
	return p.b.String()
}

func (p *printer) printItem(n Node) {
	switch it := n.(type) {
	case *ImportStmt:
		p.line("use %s in %s", it.Path, it.Alias)
	case *TypeDef:
		p.printTypeDef(it)
	case *ExtensionDef:
		p.line("%s does {", it.TypeName)
		p.indent++
		for _, m := range it.Methods {
			p.printFuncDef(m)
		}
		p.indent--
		p.line("}")
	case *FuncDef:
		p.printFuncDef(it)
	default:
		p.printStmt(n)
	}
}

func (p *printer) printTypeDef(it *TypeDef) {
	if len(it.Variants) > 0 {
		parts := make([]string, len(it.Variants))
		for i, v := range it.Variants {
			if len(v.Fields) == 0 {
				parts[i] = v.Name
			} else {
				parts[i] = v.Name + "(" + strings.Join(v.Fields, ", ") + ")"
			}
		}
		pub := ""
		if it.Public {
			pub = "pub "
		}
		p.line("%stype %s = %s", pub, it.Name, strings.Join(parts, " | "))
		return
	}
	pub := ""
	if it.Public {
		pub = "pub "
	}
	p.line("%s%s has {", pub, it.Name)
	p.indent++
	for _, f := range it.Fields {
		mut := ""
		if f.Mutable {
			mut = "var "
		}
		p.line("%s%s", mut, f.Name)
	}
	for _, m := range it.Methods {
		p.printFuncDef(m)
	}
	p.indent--
	p.line("}")
}

func (p *printer) printFuncDef(fd *FuncDef) {
	pub := ""
	if fd.Public {
		pub = "pub "
	}
	params := make([]string, len(fd.Params))
	for i, pm := range fd.Params {
		params[i] = pm.Name
	}
	p.line("%sfunc %s(%s) {", pub, fd.Name, strings.Join(params, ", "))
	p.indent++
	p.printBlockStmts(fd.Body)
	p.indent--
	p.line("}")
}

func (p *printer) printBlockStmts(b *Block) {
	for _, s := range b.Stmts {
		p.printStmt(s)
	}
}

func (p *printer) printStmt(n Node) {
	switch s := n.(type) {
	case *LetStmt:
		kw := "let"
		if s.Mutable {
			kw = "var"
		}
		pub := ""
		if s.Public {
			pub = "pub "
		}
		if s.Name != "" {
			p.line("%s%s %s = %s", pub, kw, s.Name, printExpr(s.Init))
		} else {
			p.line("%s%s (%s) = %s", pub, kw, strings.Join(s.Targets, ", "), printExpr(s.Init))
		}
	case *AssignStmt:
		p.line("%s = %s", printExpr(s.Target), printExpr(s.Value))
	case *ExprStmt:
		p.line("%s", printExpr(s.X))
	case *ReturnStmt:
		if s.Value == nil {
			p.line("return")
		} else {
			p.line("return %s", printExpr(s.Value))
		}
	case *BreakStmt:
		if s.Value == nil {
			p.line("break")
		} else {
			p.line("break %s", printExpr(s.Value))
		}
	case *ContinueStmt:
		p.line("continue")
	case *IfStmt:
		p.line("if %s {", printExpr(s.Cond))
		p.indent++
		p.printBlockStmts(s.Then)
		p.indent--
		if s.Else != nil {
			p.line("} else {")
			p.indent++
			switch e := s.Else.(type) {
			case *Block:
				p.printBlockStmts(e)
			default:
				p.printStmt(e)
			}
			p.indent--
		}
		p.line("}")
	case *WhileStmt:
		p.line("while %s {", printExpr(s.Cond))
		p.indent++
		p.printBlockStmts(s.Body)
		p.indent--
		p.line("}")
	case *ForStmt:
		p.line("for %s in %s {", s.Var, printExpr(s.Iter))
		p.indent++
		p.printBlockStmts(s.Body)
		p.indent--
		p.line("}")
	case *MatchStmt:
		p.line("match %s {", printExpr(s.Subject))
		p.indent++
		for _, arm := range s.Arms {
			p.line("%s {", printPattern(arm.Pattern))
			p.indent++
			p.printBlockStmts(arm.Body)
			p.indent--
			p.line("}")
		}
		p.indent--
		p.line("}")
	case *Block:
		p.line("{")
		p.indent++
		p.printBlockStmts(s)
		p.indent--
		p.line("}")
	case *FuncDef:
		p.printFuncDef(s)
	case *TypeDef, *ExtensionDef, *ImportStmt:
		p.printItem(s)
	}
}

func printPattern(p Pattern) string {
	switch pat := p.(type) {
	case *WildcardPattern:
		return "_"
	case *BindPattern:
		return pat.Name
	case *LitPattern:
		return printExpr(pat.Value)
	case *TuplePattern:
		parts := make([]string, len(pat.Elems))
		for i, e := range pat.Elems {
			parts[i] = printPattern(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *VariantPattern:
		if len(pat.Fields) == 0 {
			return pat.Tag
		}
		parts := make([]string, len(pat.Fields))
		for i, f := range pat.Fields {
			parts[i] = printPattern(f)
		}
		return pat.Tag + "(" + strings.Join(parts, ", ") + ")"
	}
	return "_"
}

func printExpr(e Expr) string {
	switch x := e.(type) {
	case *IntLit:
		return fmt.Sprintf("%d", x.Value)
	case *FloatLit:
		return fmt.Sprintf("%g", x.Value)
	case *BoolLit:
		return fmt.Sprintf("%v", x.Value)
	case *NullLit:
		return "null"
	case *StringLit:
		return fmt.Sprintf("%q", x.Value)
	case *StringInterp:
		var b strings.Builder
		b.WriteByte('"')
		for i, frag := range x.Fragments {
			b.WriteString(frag)
			if i < len(x.Exprs) {
				b.WriteByte('{')
				b.WriteString(printExpr(x.Exprs[i]))
				b.WriteByte('}')
			}
		}
		b.WriteByte('"')
		return b.String()
	case *Ident:
		return x.Name
	case *UnaryExpr:
		return tokenText(x.Op) + printExpr(x.X)
	case *BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", printExpr(x.X), tokenText(x.Op), printExpr(x.Y))
	case *LogicalExpr:
		return fmt.Sprintf("(%s %s %s)", printExpr(x.X), tokenText(x.Op), printExpr(x.Y))
	case *RangeExpr:
		op := ".."
		if x.Inclusive {
			op = "..="
		}
		return fmt.Sprintf("(%s%s%s)", printExpr(x.Start), op, printExpr(x.End))
	case *FieldAccess:
		return printExpr(x.X) + "." + x.Name
	case *IndexExpr:
		return fmt.Sprintf("%s[%s]", printExpr(x.X), printExpr(x.Index))
	case *CallExpr:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = printExpr(a)
		}
		return fmt.Sprintf("%s(%s)", printExpr(x.Callee), strings.Join(args, ", "))
	case *TupleLit:
		parts := make([]string, len(x.Elems))
		for i, el := range x.Elems {
			parts[i] = printExpr(el)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *ListLit:
		parts := make([]string, len(x.Elems))
		for i, el := range x.Elems {
			parts[i] = printExpr(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *MapLit:
		parts := make([]string, len(x.Entries))
		for i, ent := range x.Entries {
			parts[i] = printExpr(ent.Key) + ": " + printExpr(ent.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *StructLit:
		parts := []string{}
		if x.Base != nil {
			parts = append(parts, "..."+printExpr(x.Base))
		}
		for _, f := range x.Fields {
			parts = append(parts, f.Name+": "+printExpr(f.Value))
		}
		return x.TypeName + "{" + strings.Join(parts, ", ") + "}"
	case *VariantLit:
		if len(x.Args) == 0 {
			return x.Tag
		}
		parts := make([]string, len(x.Args))
		for i, a := range x.Args {
			parts[i] = printExpr(a)
		}
		return x.Tag + "(" + strings.Join(parts, ", ") + ")"
	case *FuncLit:
		params := make([]string, len(x.Params))
		for i, pm := range x.Params {
			params[i] = pm.Name
		}
		return fmt.Sprintf("func(%s) { ... }", strings.Join(params, ", "))
	case *IfExpr:
		return fmt.Sprintf("(if %s { %s } else { %s })", printExpr(x.Cond), printExpr(x.Then), printExpr(x.Else))
	case *MatchExpr:
		parts := make([]string, len(x.Arms))
		for i, arm := range x.Arms {
			parts[i] = fmt.Sprintf("%s { %s }", printPattern(arm.Pattern), printExpr(arm.Value))
		}
		return fmt.Sprintf("match %s { %s }", printExpr(x.Subject), strings.Join(parts, " "))
	case *GroupExpr:
		// The inner expression already parenthesizes itself wherever
		// disambiguation matters (BinaryExpr/LogicalExpr/RangeExpr/
		// IfExpr all self-wrap), so forwarding here rather than adding
		// another layer keeps printing idempotent on reparse.
		return printExpr(x.X)
	}
	return "<?>"
}

func tokenText(tt TokenType) string {
	switch tt {
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case STAR:
		return "*"
	case SLASH:
		return "/"
	case PERCENT:
		return "%"
	case EQ:
		return "=="
	case NEQ:
		return "!="
	case LT:
		return "<"
	case LE:
		return "<="
	case GT:
		return ">"
	case GE:
		return ">="
	case AND_AND:
		return "&&"
	case OR_OR:
		return "||"
	case BANG:
		return "!"
	case KW_NOT:
		return "not"
	case KW_AND:
		return "and"
	case KW_OR:
		return "or"
	case KW_IS:
		return "is"
	case KW_ISNT:
		return "isnt"
	case QUESTION_QUESTION:
		return "??"
	}
	return "?"
}
