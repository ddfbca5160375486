package ad

// Function is a frozen recording together with the Taylor matrix used
// to propagate coefficients through it (C8). T[v,k] is the order-k
// Taylor coefficient of tape variable v; rows grow by doubling, as in
// the teacher's underlying model (original_source/CppAD/local/Forward.h's
// TaylorRowDim doubling).
type Function[T any] struct {
	tape   *Tape[T]
	field  Field[T]
	indvar []int
	depvar []int

	taylor []T
	rowDim int
	order  int // highest order for which T[:,0..order] is valid; -1 before the first Forward call

	compareChange int

	// varBase[i]/indBase[i] are the first variable index / first
	// operand-index offset produced by tape op i, precomputed once so
	// the reverse sweep can walk the tape back to front without
	// re-deriving arity as it goes.
	varBase []int
	indBase []int
}

// NewFunction freezes rec into a Function with the given dependent
// values. Any dependent not already a variable on rec's tape is
// promoted through a ParOp (e.g. a dependent that collapsed to a
// constant during recording). This consumes rec: the active-tape slot
// for T is cleared, so a new Independent call can start a fresh
// recording.
func NewFunction[T any](rec *Recording[T], dep []Value[T]) *Function[T] {
	if len(dep) == 0 {
		usageError("NewFunction: dependent sequence must not be empty")
	}
	tape := rec.tape
	if activeTape[T]() != tape {
		usageError("NewFunction: recording is not the active tape for its scalar type")
	}

	depvar := make([]int, len(dep))
	for i, d := range dep {
		depvar[i] = asVar(tape, d)
	}
	clearActiveTape[T]()

	fn := &Function[T]{
		tape:   tape,
		field:  tape.field,
		indvar: append([]int(nil), rec.indvar...),
		depvar: depvar,
		rowDim: 1,
		order:  -1,
	}
	fn.taylor = make([]T, tape.TotNumVar()*fn.rowDim)

	fn.varBase = make([]int, tape.NumOp())
	fn.indBase = make([]int, tape.NumOp())
	varIdx, indIdx := 0, 0
	for i := 0; i < tape.NumOp(); i++ {
		op := tape.GetOp(i)
		fn.varBase[i] = varIdx
		fn.indBase[i] = indIdx
		varIdx += NumVar(op)
		indIdx += NumInd(op)
	}

	return fn
}

// Domain returns the number of independent variables.
func (fn *Function[T]) Domain() int { return len(fn.indvar) }

// Range returns the number of dependent variables.
func (fn *Function[T]) Range() int { return len(fn.depvar) }

// Order returns the highest Taylor order computed so far, or -1 if
// Forward has never been called.
func (fn *Function[T]) Order() int { return fn.order }

// CompareChange returns the number of taped comparisons whose
// observed outcome differed from the outcome recorded at taping time,
// as of the most recent order-0 Forward call (each order-0 call
// replaces the previous count).
func (fn *Function[T]) CompareChange() int { return fn.compareChange }

func (fn *Function[T]) at(v, k int) T { return fn.taylor[v*fn.rowDim+k] }

func (fn *Function[T]) set(v, k int, x T) { fn.taylor[v*fn.rowDim+k] = x }

func (fn *Function[T]) growTaylor(newRowDim int) {
	numVar := fn.tape.TotNumVar()
	newTaylor := make([]T, numVar*newRowDim)
	oldRowDim := fn.rowDim
	copyCols := fn.order + 1
	for v := 0; v < numVar; v++ {
		for k := 0; k < copyCols; k++ {
			newTaylor[v*newRowDim+k] = fn.taylor[v*oldRowDim+k]
		}
	}
	fn.taylor = newTaylor
	fn.rowDim = newRowDim
}

// Forward computes order-p Taylor coefficients for every variable on
// the tape, given the order-p coefficients xp of the independent
// variables, and returns the order-p coefficients of the dependent
// variables. p may be at most one more than the highest order computed
// so far, so the first call must have p==0; a call with a lower p
// recomputes that order and lowers Order() to p.
func (fn *Function[T]) Forward(p int, xp []T) []T {
	if len(xp) != fn.Domain() {
		usageError("Forward: got %d independent values, want %d", len(xp), fn.Domain())
	}
	if p > fn.order+1 {
		usageError("Forward: order %d skips order %d", p, fn.order+1)
	}
	if p < 0 {
		usageError("Forward: negative order %d", p)
	}

	if p >= fn.rowDim {
		newRowDim := fn.rowDim
		for newRowDim <= p {
			newRowDim *= 2
		}
		fn.growTaylor(newRowDim)
	}

	for i, v := range fn.indvar {
		fn.set(v, p, xp[i])
	}

	changes := forwardSweep(fn, p)
	if p == 0 {
		fn.compareChange = changes
	} else {
		fn.compareChange += changes
	}
	fn.order = p

	yp := make([]T, fn.Range())
	for i, v := range fn.depvar {
		yp[i] = fn.at(v, p)
	}
	return yp
}

// Reverse computes, for every order 0..d Taylor coefficient of every
// independent variable, the partial derivative of the order-d Taylor
// coefficient of w·y (w seeding only column d of each dependent's
// adjoint; lower orders start at zero). Forward must already have
// computed orders 0..d. Returns P[indvar[i], k] for k=0..d, i=0..Domain()-1,
// flattened row-major.
func (fn *Function[T]) Reverse(d int, w []T) []T {
	if d > fn.order {
		usageError("Reverse: order %d exceeds highest computed order %d", d, fn.order)
	}
	if len(w) != fn.Range() {
		usageError("Reverse: got %d weights, want %d", len(w), fn.Range())
	}
	return reverseSweep(fn, d, w)
}
