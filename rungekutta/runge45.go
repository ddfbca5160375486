// Package rungekutta implements the Cash-Karp embedded 4th/5th order
// Runge-Kutta ODE solver (C11), grounded directly in
// original_source/CppAD/Runge45.h. It is templated the same way the
// original is: Solve is generic over the scalar type, so instantiating
// it with ad.Value[float64] differentiates straight through the
// integration, the same trick CppAD's own Runge45<Scalar,Vector,Fun>
// gets by being a template over Base rather than hard-coded to double.
// The original is further templated on a Vector type for xi/xf/e (its
// own CppAD_vector.h bounded container); this module's direct
// counterpart is vector.Vector[T] (C12), used here at exactly that
// boundary.
package rungekutta

import (
	"github.com/dtolpin/tapead/ad"
	"github.com/dtolpin/tapead/vector"
)

// Fun evaluates dx/dt at (t, x), the Go counterpart of CppAD's
// F.Ode(t, x, f) member function.
type Fun[T any] func(t ad.Value[T], x []ad.Value[T]) []ad.Value[T]

// Solve integrates f from ti to tf in m equal steps starting at xi,
// returning the state at tf together with a per-component error
// estimate derived from the 4th/5th order coefficient difference.
func Solve[T any](field *ad.Field[T], f Fun[T], m int, ti, tf ad.Value[T], xi vector.Vector[ad.Value[T]]) (xf, e vector.Vector[ad.Value[T]]) {
	xfSlice, eSlice := solve(field, f, m, ti, tf, xi.Slice())
	return vector.Of(xfSlice), vector.Of(eSlice)
}

// solve is the slice-based working implementation: the per-step
// combine/hf arithmetic is cheaper to express over a bare slice, so
// Solve converts at the Vector[T] boundary and back rather than
// threading Vector[T] through every intermediate stage value.
func solve[T any](field *ad.Field[T], f Fun[T], m int, ti, tf ad.Value[T], xi []ad.Value[T]) (xf, e []ad.Value[T]) {
	n := len(xi)
	h := scale(field, 1/float64(m), tf.Sub(ti))

	x := append([]ad.Value[T](nil), xi...)
	e = make([]ad.Value[T], n)
	for i := range e {
		e[i] = ad.Const(field, field.Zero())
	}
	t := ti

	for step := 0; step < m; step++ {
		x4, x5 := cashKarpStep(field, f, t, x, h)
		for i := 0; i < n; i++ {
			diff := x5[i].Sub(x4[i])
			if field.Cmp(diff.Primal(), field.Zero()) < 0 {
				diff = diff.Neg()
			}
			e[i] = e[i].Add(diff)
		}
		x = x5
		t = t.Add(h)
	}
	return x, e
}

func scale[T any](field *ad.Field[T], c float64, v ad.Value[T]) ad.Value[T] {
	return ad.Const(field, field.FromFloat64(c)).Mul(v)
}

// combine returns base + sum(coefs[i]*ks[i]), skipping zero
// coefficients.
func combine[T any](field *ad.Field[T], coefs []float64, ks [][]ad.Value[T], base []ad.Value[T]) []ad.Value[T] {
	out := append([]ad.Value[T](nil), base...)
	for i, c := range coefs {
		if c == 0 {
			continue
		}
		cv := ad.Const(field, field.FromFloat64(c))
		for j := range out {
			out[j] = out[j].Add(cv.Mul(ks[i][j]))
		}
	}
	return out
}

// hf evaluates h*f(t,x).
func hf[T any](f Fun[T], t ad.Value[T], x []ad.Value[T], h ad.Value[T]) []ad.Value[T] {
	d := f(t, x)
	out := make([]ad.Value[T], len(d))
	for i := range d {
		out[i] = h.Mul(d[i])
	}
	return out
}

// cashKarpStep advances one step of size h from (t, x), returning the
// 4th and 5th order estimates of x(t+h). Coefficients are the
// Cash-Karp Butcher tableau exactly as tabulated in
// original_source/CppAD/Runge45.h (its a/b/c4/c5 arrays).
func cashKarpStep[T any](field *ad.Field[T], f Fun[T], t ad.Value[T], x []ad.Value[T], h ad.Value[T]) (x4, x5 []ad.Value[T]) {
	k1 := hf(f, t, x, h)
	k2 := hf(f, t.Add(scale(field, 1.0/5, h)),
		combine(field, []float64{1.0 / 5}, [][]ad.Value[T]{k1}, x), h)
	k3 := hf(f, t.Add(scale(field, 3.0/10, h)),
		combine(field, []float64{3.0 / 40, 9.0 / 40}, [][]ad.Value[T]{k1, k2}, x), h)
	k4 := hf(f, t.Add(scale(field, 3.0/5, h)),
		combine(field, []float64{3.0 / 10, -9.0 / 10, 6.0 / 5}, [][]ad.Value[T]{k1, k2, k3}, x), h)
	k5 := hf(f, t.Add(h),
		combine(field, []float64{-11.0 / 54, 5.0 / 2, -70.0 / 27, 35.0 / 27}, [][]ad.Value[T]{k1, k2, k3, k4}, x), h)
	k6 := hf(f, t.Add(scale(field, 7.0/8, h)),
		combine(field, []float64{1631.0 / 55296, 175.0 / 512, 575.0 / 13824, 44275.0 / 110592, 253.0 / 4096}, [][]ad.Value[T]{k1, k2, k3, k4, k5}, x), h)

	x4 = combine(field, []float64{2825.0 / 27648, 0, 18575.0 / 48384, 13525.0 / 55296, 277.0 / 14336, 1.0 / 4},
		[][]ad.Value[T]{k1, k2, k3, k4, k5, k6}, x)
	x5 = combine(field, []float64{37.0 / 378, 0, 250.0 / 621, 125.0 / 594, 0, 512.0 / 1771},
		[][]ad.Value[T]{k1, k2, k3, k4, k5, k6}, x)
	return x4, x5
}
