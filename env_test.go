package lang

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestEnvDefineAndGet(t *testing.T) {
	e := NewEnv(nil)
	e.Define("x", Int(1))
	v, err := e.Get("x")
	be.Err(t, err, nil)
	be.Equal(t, v.AsInt(), int64(1))
}

func TestEnvGetUndefined(t *testing.T) {
	e := NewEnv(nil)
	_, err := e.Get("missing")
	be.True(t, err != nil)
}

func TestEnvChildSeesParent(t *testing.T) {
	parent := NewEnv(nil)
	parent.Define("x", Int(1))
	child := NewEnv(parent)
	v, err := child.Get("x")
	be.Err(t, err, nil)
	be.Equal(t, v.AsInt(), int64(1))
}

func TestEnvSetClimbsToParent(t *testing.T) {
	parent := NewEnv(nil)
	parent.Define("x", Int(1))
	child := NewEnv(parent)
	be.Err(t, child.Set("x", Int(2)), nil)
	v, _ := parent.Get("x")
	be.Equal(t, v.AsInt(), int64(2))
}

func TestEnvSetUndefinedErrors(t *testing.T) {
	e := NewEnv(nil)
	err := e.Set("missing", Int(1))
	be.True(t, err != nil)
}

func TestEnvShadowing(t *testing.T) {
	parent := NewEnv(nil)
	parent.Define("x", Int(1))
	child := NewEnv(parent)
	child.Define("x", Int(2))
	v, _ := child.Get("x")
	be.Equal(t, v.AsInt(), int64(2))
	pv, _ := parent.Get("x")
	be.Equal(t, pv.AsInt(), int64(1))
}

func TestEnvSealedParentBlocksBuiltinAssign(t *testing.T) {
	parent := NewEnv(nil)
	parent.Define("print", Int(0))
	child := NewEnv(parent)
	child.SealParentWrites()
	err := child.Set("print", Int(1))
	be.True(t, err != nil)
}

func TestEnvHas(t *testing.T) {
	e := NewEnv(nil)
	be.Equal(t, e.Has("x"), false)
	e.Define("x", Int(1))
	be.Equal(t, e.Has("x"), true)
}
