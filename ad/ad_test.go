package ad_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtolpin/tapead/ad"
)

func trace(n int, f func(x []ad.Value[float64]) []ad.Value[float64]) *ad.Function[float64] {
	x := make([]ad.Value[float64], n)
	for i := range x {
		x[i] = ad.Const(&ad.Float64Field, 0)
	}
	rec := ad.Independent(ad.Float64Field, x)
	y := f(x)
	return ad.NewFunction(rec, y)
}

func gradientAt(t *testing.T, fn *ad.Function[float64], x0 []float64) []float64 {
	t.Helper()
	y0 := fn.Forward(0, x0)
	w := make([]float64, len(y0))
	for i := range w {
		w[i] = 1
	}
	return fn.Reverse(0, w)
}

func finiteDiffGrad(t *testing.T, fn *ad.Function[float64], x0 []float64, eps float64) []float64 {
	t.Helper()
	n := len(x0)
	grad := make([]float64, n)
	for i := 0; i < n; i++ {
		xp := append([]float64(nil), x0...)
		xm := append([]float64(nil), x0...)
		xp[i] += eps
		xm[i] -= eps
		yp := fn.Forward(0, xp)
		ym := fn.Forward(0, xm)
		require.Len(t, yp, 1)
		grad[i] = (yp[0] - ym[0]) / (2 * eps)
	}
	// restore order-0 state at x0 so callers can keep using fn
	fn.Forward(0, x0)
	return grad
}

func TestIdentity(t *testing.T) {
	fn := trace(1, func(x []ad.Value[float64]) []ad.Value[float64] { return x })
	y := fn.Forward(0, []float64{3.25})
	assert.Equal(t, []float64{3.25}, y)
	grad := fn.Reverse(0, []float64{1})
	assert.Equal(t, []float64{1}, grad)
}

func TestReverseSeedsOnlyOrderDColumn(t *testing.T) {
	// Reverse(d, w) takes one weight per dependent and places it at
	// adjoint column d only; lower-order columns must come out zero,
	// not echo w back into them.
	fn := trace(1, func(x []ad.Value[float64]) []ad.Value[float64] { return x })
	fn.Forward(0, []float64{5})
	fn.Forward(1, []float64{1})

	grad := fn.Reverse(1, []float64{1})
	assert.Equal(t, []float64{0, 1}, grad)
}

func TestNestedFieldADOfAD(t *testing.T) {
	// Value[float64] itself can be the scalar of a tape: NestedField
	// turns Float64Field into Field[Value[float64]], so a Value[Value[float64]]
	// tape differentiates through an already-differentiable Value[float64].
	// Here the inner values are plain Consts, so the outer pass reduces
	// to ordinary f(x)=x^3 calculus: f(2)=8, f'(2)=12.
	outer := ad.NestedField(ad.Float64Field)
	x := []ad.Value[ad.Value[float64]]{ad.Const(&outer, ad.Const(&ad.Float64Field, 2))}
	rec := ad.Independent(outer, x)
	y := []ad.Value[ad.Value[float64]]{x[0].Mul(x[0]).Mul(x[0])}
	fn := ad.NewFunction(rec, y)

	x0 := []ad.Value[float64]{ad.Const(&ad.Float64Field, 2)}
	yp := fn.Forward(0, x0)
	assert.InDelta(t, 8.0, yp[0].Primal(), 1e-9)

	grad := fn.Reverse(0, []ad.Value[float64]{ad.Const(&ad.Float64Field, 1)})
	assert.InDelta(t, 12.0, grad[0].Primal(), 1e-9)
}

func TestPolynomial(t *testing.T) {
	// f(x) = x^3 + 2x^2
	fn := trace(1, func(x []ad.Value[float64]) []ad.Value[float64] {
		x2 := x[0].Mul(x[0])
		x3 := x2.Mul(x[0])
		two := ad.Const(&ad.Float64Field, 2)
		return []ad.Value[float64]{x3.Add(two.Mul(x2))}
	})
	x0 := []float64{2}
	y := fn.Forward(0, x0)
	assert.InDelta(t, 16.0, y[0], 1e-9) // 8 + 2*4

	grad := gradientAt(t, fn, x0)
	assert.InDelta(t, 20.0, grad[0], 1e-9) // 3*4 + 4*2 = 20

	fd := finiteDiffGrad(t, fn, x0, 1e-5)
	assert.InDelta(t, fd[0], grad[0], 1e-4)
}

func TestElementaryExpSin(t *testing.T) {
	fn := trace(2, func(x []ad.Value[float64]) []ad.Value[float64] {
		return []ad.Value[float64]{x[0].Exp().Mul(x[1].Sin())}
	})
	x0 := []float64{0.3, 0.7}
	y := fn.Forward(0, x0)
	want := math.Exp(0.3) * math.Sin(0.7)
	assert.InDelta(t, want, y[0], 1e-9)

	grad := gradientAt(t, fn, x0)
	fd := finiteDiffGrad(t, fn, x0, 1e-6)
	for i := range grad {
		assert.InDelta(t, fd[i], grad[i], 1e-4)
	}
}

func TestVectorJacobian(t *testing.T) {
	// f(x,y) = (x*y, x+y): a two-output function, checked one row at
	// a time via Reverse with a one-hot weight.
	fn := trace(2, func(x []ad.Value[float64]) []ad.Value[float64] {
		return []ad.Value[float64]{x[0].Mul(x[1]), x[0].Add(x[1])}
	})
	x0 := []float64{2, 5}
	y := fn.Forward(0, x0)
	assert.Equal(t, []float64{10, 7}, y)

	row0 := fn.Reverse(0, []float64{1, 0})
	assert.Equal(t, []float64{5, 2}, row0) // d(xy)/dx=y, d(xy)/dy=x

	row1 := fn.Reverse(0, []float64{0, 1})
	assert.Equal(t, []float64{1, 1}, row1) // d(x+y)/dx=1, d(x+y)/dy=1
}

func TestCondExpBranches(t *testing.T) {
	fn := trace(1, func(x []ad.Value[float64]) []ad.Value[float64] {
		sq := x[0].Mul(x[0])
		return []ad.Value[float64]{ad.CondExp(x[0], sq, x[0])}
	})

	yPos := fn.Forward(0, []float64{3})
	assert.InDelta(t, 9.0, yPos[0], 1e-9)
	gradPos := fn.Reverse(0, []float64{1})
	assert.InDelta(t, 6.0, gradPos[0], 1e-9) // d(x^2)/dx at x=3

	yNeg := fn.Forward(0, []float64{-3})
	assert.InDelta(t, -3.0, yNeg[0], 1e-9)
	gradNeg := fn.Reverse(0, []float64{1})
	assert.InDelta(t, 1.0, gradNeg[0], 1e-9) // d(x)/dx
}

func TestCompareChangeDetectsBranchFlip(t *testing.T) {
	fn := trace(1, func(x []ad.Value[float64]) []ad.Value[float64] {
		zero := ad.Const(&ad.Float64Field, 0)
		lt := x[0].Lt(zero)
		_ = lt
		return []ad.Value[float64]{x[0].Mul(x[0])}
	})

	// Recorded at x==0, where x<0 is false; a later Forward at a point
	// that flips the outcome is reported via CompareChange.
	fn.Forward(0, []float64{-1})
	assert.Equal(t, 1, fn.CompareChange())

	fn.Forward(0, []float64{1})
	assert.Equal(t, 0, fn.CompareChange())
}

func TestAbsDerivativeAtZero(t *testing.T) {
	fn := trace(1, func(x []ad.Value[float64]) []ad.Value[float64] {
		return []ad.Value[float64]{x[0].Abs()}
	})
	fn.Forward(0, []float64{0})
	grad := fn.Reverse(0, []float64{1})
	assert.Equal(t, 0.0, grad[0])
}

func TestElementalHostGradient(t *testing.T) {
	fn := trace(1, func(x []ad.Value[float64]) []ad.Value[float64] {
		return []ad.Value[float64]{ad.Elemental(&ad.Float64Field, math.Erf, x[0])}
	})
	x0 := []float64{0.5}
	y := fn.Forward(0, x0)
	assert.InDelta(t, math.Erf(0.5), y[0], 1e-9)

	grad := gradientAt(t, fn, x0)
	want := 2 / math.Sqrt(math.Pi) * math.Exp(-0.25)
	assert.InDelta(t, want, grad[0], 1e-9)
}

func TestHigherOrderForwardMatchesSecondDerivative(t *testing.T) {
	// f(x) = x^3: f''(x)/2! is the order-2 Taylor coefficient when the
	// order-1 seed is 1 and order-2 seed is 0 (x(t) = x0 + t).
	fn := trace(1, func(x []ad.Value[float64]) []ad.Value[float64] {
		x2 := x[0].Mul(x[0])
		return []ad.Value[float64]{x2.Mul(x[0])}
	})
	fn.Forward(0, []float64{2})
	fn.Forward(1, []float64{1})
	y2 := fn.Forward(2, []float64{0})
	// f(x0+t) = x0^3 + 3x0^2 t + 3x0 t^2 + t^3, so the order-2
	// coefficient is 3*x0 = 6.
	assert.InDelta(t, 6.0, y2[0], 1e-9)
}
