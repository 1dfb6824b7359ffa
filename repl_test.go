package lang

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestReplEvalLinePersistsBindings(t *testing.T) {
	repl := NewReplInterpreter(NewResolver())
	_, err := repl.EvalLine("let x = 10")
	be.Err(t, err, nil)
	v, err := repl.EvalLine("x + 5")
	be.Err(t, err, nil)
	be.Equal(t, v.AsInt(), int64(15))
}

func TestReplEvalLinePersistsFuncDefs(t *testing.T) {
	repl := NewReplInterpreter(NewResolver())
	_, err := repl.EvalLine("func double(n) { return n * 2 }")
	be.Err(t, err, nil)
	v, err := repl.EvalLine("double(21)")
	be.Err(t, err, nil)
	be.Equal(t, v.AsInt(), int64(42))
}

func TestReplEvalLineTypeDefMethodsUsable(t *testing.T) {
	repl := NewReplInterpreter(NewResolver())
	_, err := repl.EvalLine("Point has { x, y func sum(self) { return self.x + self.y } }")
	be.Err(t, err, nil)
	_, err = repl.EvalLine("let p = Point { x: 1, y: 2 }")
	be.Err(t, err, nil)
	v, err := repl.EvalLine("p.sum()")
	be.Err(t, err, nil)
	be.Equal(t, v.AsInt(), int64(3))
}

func TestReplEvalLineParseErrorReturnsRuntimeError(t *testing.T) {
	repl := NewReplInterpreter(NewResolver())
	_, err := repl.EvalLine("let x = [1, 2")
	be.True(t, err != nil)
}

func TestReplEvalLineUndefinedNameIsRuntimeError(t *testing.T) {
	repl := NewReplInterpreter(NewResolver())
	_, err := repl.EvalLine("undefined_name + 1")
	be.True(t, err != nil)
}
