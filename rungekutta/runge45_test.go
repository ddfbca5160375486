package rungekutta_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dtolpin/tapead/ad"
	"github.com/dtolpin/tapead/rungekutta"
	"github.com/dtolpin/tapead/vector"
)

func decay(t ad.Value[float64], x []ad.Value[float64]) []ad.Value[float64] {
	return []ad.Value[float64]{x[0].Neg()}
}

func TestSolveExponentialDecay(t *testing.T) {
	field := &ad.Float64Field
	ti := ad.Const(field, 0.0)
	tf := ad.Const(field, 1.0)
	xi := vector.Of([]ad.Value[float64]{ad.Const(field, 1.0)})

	xf, e := rungekutta.Solve(field, decay, 10, ti, tf, xi)

	assert.InDelta(t, math.Exp(-1), xf.At(0).Primal(), 1e-6)
	assert.Less(t, e.At(0).Primal(), 1e-6)
}

func TestSolveIsDifferentiable(t *testing.T) {
	x := []ad.Value[float64]{ad.Const(&ad.Float64Field, 0)}
	rec := ad.Independent(ad.Float64Field, x)

	field := &ad.Float64Field
	ti := ad.Const(field, 0.0)
	tf := ad.Const(field, 1.0)
	xf, _ := rungekutta.Solve(field, decay, 10, ti, tf, vector.Of(x))

	fn := ad.NewFunction(rec, xf.Slice())
	y := fn.Forward(0, []float64{1})
	assert.InDelta(t, math.Exp(-1), y[0], 1e-6)

	grad := fn.Reverse(0, []float64{1})
	// d/dx0[x0*exp(-1)] = exp(-1), since the decay is linear in x0.
	assert.InDelta(t, math.Exp(-1), grad[0], 1e-6)
}
