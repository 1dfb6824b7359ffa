package lang

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestFrontendParsesAndReportsNoDiagnostics(t *testing.T) {
	unit, err := Frontend("<test>", "let x = 1 + 2")
	be.Err(t, err, nil)
	be.Equal(t, unit.Path, "<test>")
	be.Equal(t, unit.Diagnostics.HasErrors(), false)
}

func TestFrontendReportsParseErrors(t *testing.T) {
	unit, err := Frontend("<test>", "let x = [1, 2")
	be.Err(t, err, nil)
	be.True(t, unit.Diagnostics.HasErrors())
}

func TestRunUnitExecutesModule(t *testing.T) {
	unit, err := Frontend("<test>", "let x = 2 + 2")
	be.Err(t, err, nil)
	env, err := RunUnit(unit, nil, "")
	be.Err(t, err, nil)
	v, err := env.Get("x")
	be.Err(t, err, nil)
	be.Equal(t, v.AsInt(), int64(4))
}

func TestRunUnitReportsResolveErrors(t *testing.T) {
	unit, err := Frontend("<test>", "let x = y")
	be.Err(t, err, nil)
	_, err = RunUnit(unit, nil, "")
	be.True(t, err != nil)
}

func TestRunUnitVMExecutesModule(t *testing.T) {
	unit, err := Frontend("<test>", "let x = 2 + 2\nx")
	be.Err(t, err, nil)
	v, err := RunUnitVM(unit)
	be.Err(t, err, nil)
	be.Equal(t, v.AsInt(), int64(4))
}
