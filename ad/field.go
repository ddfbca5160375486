// Package ad implements a tape-based algorithmic differentiation engine.
// Values of type Value[T] record the elementary operations performed on
// them onto an active tape; the tape is later replayed forward to
// propagate Taylor coefficients and backward to propagate adjoints.
//
// The engine is polymorphic in the underlying scalar type T, so that a
// Value[T] tape can itself be built on top of another Value[S] scalar,
// giving higher-order derivatives by nesting: NestedField(inner) turns
// a Field[S] into the Field[Value[S]] needed to instantiate
// Value[Value[S]], CppAD's AD<AD<Base>> trick done by making Value[S]'s
// own arithmetic methods the outer tape's function table.
package ad

import "math"

// Field describes the arithmetic a scalar type T must support to be
// used as the underlying scalar of a tape. It plays the role CppAD
// fills with a templated Base type and plain operator overloading;
// Go has no operator overloading, so the engine takes the arithmetic
// as an explicit table of functions instead.
type Field[T any] struct {
	Zero, One                                           func() T
	Add, Sub, Mul, Div                                  func(T, T) T
	Neg, Abs, Sqrt, Exp, Log, Sin, Cos, Asin, Acos, Atan func(T) T
	// Cmp returns a negative, zero or positive value with the sign of
	// a-b; used by comparison operators and CondExp.
	Cmp func(a, b T) int
	// FromFloat64 and ToFloat64 convert literal constants (e.g. the
	// rational coefficients in the Taylor recurrences) into and out
	// of T.
	FromFloat64 func(float64) T
	ToFloat64   func(T) float64
}

// Float64Field is the Field for plain float64, the base case of the
// nesting recursion.
var Float64Field = Field[float64]{
	Zero:        func() float64 { return 0 },
	One:         func() float64 { return 1 },
	Add:         func(a, b float64) float64 { return a + b },
	Sub:         func(a, b float64) float64 { return a - b },
	Mul:         func(a, b float64) float64 { return a * b },
	Div:         func(a, b float64) float64 { return a / b },
	Neg:         func(a float64) float64 { return -a },
	Abs:         math.Abs,
	Sqrt:        math.Sqrt,
	Exp:         math.Exp,
	Log:         math.Log,
	Sin:         math.Sin,
	Cos:         math.Cos,
	Asin:        math.Asin,
	Acos:        math.Acos,
	Atan:        math.Atan,
	Cmp: func(a, b float64) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	},
	FromFloat64: func(f float64) float64 { return f },
	ToFloat64:   func(f float64) float64 { return f },
}

// NestedField builds the Field for Value[T] itself, given T's own
// Field. Instantiating a tape with Value[T] as its scalar (i.e.
// Value[Value[T]]) makes the outer tape differentiate through values
// that are themselves already differentiable — CppAD's AD<AD<Base>>
// nesting. Its function table is just Value[T]'s own methods: the
// arithmetic inner Values perform while an outer Forward/Reverse
// sweep runs is recorded on whatever inner tape happens to still be
// open, which is what makes the nesting work.
func NestedField[T any](inner Field[T]) Field[Value[T]] {
	return Field[Value[T]]{
		Zero:        func() Value[T] { return Const(&inner, inner.Zero()) },
		One:         func() Value[T] { return Const(&inner, inner.One()) },
		Add:         func(a, b Value[T]) Value[T] { return a.Add(b) },
		Sub:         func(a, b Value[T]) Value[T] { return a.Sub(b) },
		Mul:         func(a, b Value[T]) Value[T] { return a.Mul(b) },
		Div:         func(a, b Value[T]) Value[T] { return a.Div(b) },
		Neg:         func(a Value[T]) Value[T] { return a.Neg() },
		Abs:         func(a Value[T]) Value[T] { return a.Abs() },
		Sqrt:        func(a Value[T]) Value[T] { return a.Sqrt() },
		Exp:         func(a Value[T]) Value[T] { return a.Exp() },
		Log:         func(a Value[T]) Value[T] { return a.Log() },
		Sin:         func(a Value[T]) Value[T] { return a.Sin() },
		Cos:         func(a Value[T]) Value[T] { return a.Cos() },
		Asin:        func(a Value[T]) Value[T] { return a.Asin() },
		Acos:        func(a Value[T]) Value[T] { return a.Acos() },
		Atan:        func(a Value[T]) Value[T] { return a.Atan() },
		Cmp:         func(a, b Value[T]) int { return a.Cmp(b) },
		FromFloat64: func(f float64) Value[T] { return Const(&inner, inner.FromFloat64(f)) },
		ToFloat64:   func(a Value[T]) float64 { return inner.ToFloat64(a.Primal()) },
	}
}
