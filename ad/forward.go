package ad

// forwardSweep computes order-k Taylor coefficients for every
// variable on fn's tape, in tape order, and reports the number of
// taped comparisons whose outcome at this order differs from the
// outcome recorded at taping time. It is the Go counterpart of
// original_source/CppAD/local/Forward.h's ADForward, generalized from
// a single Base type to Field[T].
func forwardSweep[T any](fn *Function[T], k int) int {
	tape := fn.tape
	field := fn.field
	changes := 0
	indOff := 0
	varIdx := 0 // advanced by NumVar(op) for each opcode, including NonOp at 0

	for i := 0; i < tape.NumOp(); i++ {
		op := tape.GetOp(i)
		n := NumInd(op)
		ind := tape.GetInd(n, indOff)
		indOff += n
		base := varIdx
		varIdx += NumVar(op)

		switch op {
		case NonOp, InvOp:
			// no computation: Inv's order-k coefficient is seeded by Forward itself

		case ParOp:
			fn.set(base, k, paramAt(tape, field, ind[0], k))

		case PripOp, PrivOp:
			// tracing hooks, derivative-inert and value-inert

		case AbsOp:
			u0 := fn.at(ind[0], 0)
			if k == 0 {
				fn.set(base, 0, field.Abs(u0))
			} else {
				fn.set(base, k, signedCoef(field, u0, fn.at(ind[0], k)))
			}

		case SqrtOp:
			forwardSqrt(fn, field, base, ind[0], k)

		case ExpOp:
			forwardExp(fn, field, base, ind[0], k)

		case LogOp:
			forwardLog(fn, field, base, ind[0], k)

		case SinOp:
			forwardSinCosPair(fn, field, base, base+1, ind[0], k)

		case CosOp:
			forwardSinCosPair(fn, field, base+1, base, ind[0], k)

		case AsinOp:
			forwardAsinAcos(fn, field, base, base+1, ind[0], k, false)

		case AcosOp:
			forwardAsinAcos(fn, field, base, base+1, ind[0], k, true)

		case AtanOp:
			forwardAtan(fn, field, base, base+1, ind[0], k)

		case AddvvOp:
			fn.set(base, k, field.Add(fn.at(ind[0], k), fn.at(ind[1], k)))
		case AddpvOp:
			fn.set(base, k, field.Add(paramAt(tape, field, ind[0], k), fn.at(ind[1], k)))
		case AddvpOp:
			fn.set(base, k, field.Add(fn.at(ind[0], k), paramAt(tape, field, ind[1], k)))

		case SubvvOp:
			fn.set(base, k, field.Sub(fn.at(ind[0], k), fn.at(ind[1], k)))
		case SubpvOp:
			fn.set(base, k, field.Sub(paramAt(tape, field, ind[0], k), fn.at(ind[1], k)))
		case SubvpOp:
			fn.set(base, k, field.Sub(fn.at(ind[0], k), paramAt(tape, field, ind[1], k)))

		case MulvvOp:
			fn.set(base, k, cauchy(fn, field, ind[0], ind[1], k))
		case MulpvOp:
			fn.set(base, k, field.Mul(tape.GetPar(ind[0]), fn.at(ind[1], k)))
		case MulvpOp:
			fn.set(base, k, field.Mul(fn.at(ind[0], k), tape.GetPar(ind[1])))

		case DivvvOp:
			forwardDivvv(fn, field, base, ind[0], ind[1], k)
		case DivpvOp:
			forwardDivpv(fn, field, base, tape, ind[0], ind[1], k)
		case DivvpOp:
			p := tape.GetPar(ind[1])
			fn.set(base, k, field.Div(fn.at(ind[0], k), p))

		case CEvvvOp, CEvvpOp, CEvpvOp, CEvppOp, CEpvvOp, CEpvpOp, CEppvOp, CEpppOp:
			forwardCondExp(fn, field, tape, op, base, ind, k)

		case EqtppOp, EqtpvOp, EqtvpOp, EqtvvOp,
			EqfppOp, EqfpvOp, EqfvpOp, EqfvvOp,
			LetppOp, LetpvOp, LetvpOp, LetvvOp,
			LefppOp, LefpvOp, LefvpOp, LefvvOp,
			LttppOp, LttpvOp, LttvpOp, LttvvOp,
			LtfppOp, LtfpvOp, LtfvpOp, LtfvvOp:
			if k == 0 && compareChanged(fn, field, tape, op, ind) {
				changes++
			}

		case StppOp, StpvOp, StvpOp, StvvOp:
			// the buffer itself lives in VecAD, not the tape; nothing to
			// propagate forward.

		case LdpOp, LdvOp:
			if ind[2] == 1 {
				fn.set(base, k, fn.at(ind[3], k))
			} else {
				fn.set(base, k, paramAt(tape, field, ind[3], k))
			}

		case DisOp:
			if k == 0 {
				f := tape.discreteAt(ind[0])
				fn.set(base, 0, field.FromFloat64(f(field.ToFloat64(fn.at(ind[1], 0)))))
			}
			// derivative-inert above order 0: leave as zero value of T

		case ElemOp:
			forwardElemental(fn, field, tape, base, ind[0], ind[1], k)

		default:
			assertUnknown(false, "forwardSweep: unhandled opcode %d", op)
		}
	}
	return changes
}

// paramAt returns the order-k Taylor coefficient of parameter pool
// entry i, which is just the parameter's value at k==0 and zero
// otherwise.
func paramAt[T any](tape *Tape[T], field Field[T], i, k int) T {
	if k == 0 {
		return tape.GetPar(i)
	}
	return field.Zero()
}

func signedCoef[T any](field Field[T], u0, uk T) T {
	switch field.Cmp(u0, field.Zero()) {
	case 1:
		return uk
	case -1:
		return field.Neg(uk)
	default:
		return field.Zero()
	}
}

func cauchy[T any](fn *Function[T], field Field[T], uIdx, vIdx, k int) T {
	sum := field.Zero()
	for j := 0; j <= k; j++ {
		sum = field.Add(sum, field.Mul(fn.at(uIdx, j), fn.at(vIdx, k-j)))
	}
	return sum
}

func forwardSqrt[T any](fn *Function[T], field Field[T], yIdx, uIdx, k int) {
	if k == 0 {
		fn.set(yIdx, 0, field.Sqrt(fn.at(uIdx, 0)))
		return
	}
	sum := field.Zero()
	for j := 1; j < k; j++ {
		sum = field.Add(sum, field.Mul(fn.at(yIdx, j), fn.at(yIdx, k-j)))
	}
	num := field.Sub(fn.at(uIdx, k), sum)
	fn.set(yIdx, k, field.Div(num, field.Mul(field.FromFloat64(2), fn.at(yIdx, 0))))
}

func forwardExp[T any](fn *Function[T], field Field[T], yIdx, uIdx, k int) {
	if k == 0 {
		fn.set(yIdx, 0, field.Exp(fn.at(uIdx, 0)))
		return
	}
	sum := field.Zero()
	for j := 1; j <= k; j++ {
		term := field.Mul(field.FromFloat64(float64(j)), field.Mul(fn.at(uIdx, j), fn.at(yIdx, k-j)))
		sum = field.Add(sum, term)
	}
	fn.set(yIdx, k, field.Div(sum, field.FromFloat64(float64(k))))
}

func forwardLog[T any](fn *Function[T], field Field[T], yIdx, uIdx, k int) {
	u0 := fn.at(uIdx, 0)
	if k == 0 {
		fn.set(yIdx, 0, field.Log(u0))
		return
	}
	sum := field.Zero()
	for j := 1; j < k; j++ {
		term := field.Mul(field.FromFloat64(float64(j)), field.Mul(fn.at(yIdx, j), fn.at(uIdx, k-j)))
		sum = field.Add(sum, term)
	}
	num := field.Sub(fn.at(uIdx, k), field.Div(sum, field.FromFloat64(float64(k))))
	fn.set(yIdx, k, field.Div(num, u0))
}

// forwardSinCosPair fills the order-k coefficient of sin(u) at sinIdx
// and cos(u) at cosIdx together, from y'=z*u', z'=-y*u'.
func forwardSinCosPair[T any](fn *Function[T], field Field[T], sinIdx, cosIdx, uIdx, k int) {
	u0 := fn.at(uIdx, 0)
	if k == 0 {
		fn.set(sinIdx, 0, field.Sin(u0))
		fn.set(cosIdx, 0, field.Cos(u0))
		return
	}
	sumY := field.Zero()
	sumZ := field.Zero()
	for j := 1; j <= k; j++ {
		jf := field.FromFloat64(float64(j))
		sumY = field.Add(sumY, field.Mul(jf, field.Mul(fn.at(uIdx, j), fn.at(cosIdx, k-j))))
		sumZ = field.Add(sumZ, field.Mul(jf, field.Mul(fn.at(uIdx, j), fn.at(sinIdx, k-j))))
	}
	kf := field.FromFloat64(float64(k))
	fn.set(sinIdx, k, field.Div(sumY, kf))
	fn.set(cosIdx, k, field.Neg(field.Div(sumZ, kf)))
}

// forwardAsinAcos fills order-k coefficients for asin (negate=false)
// or acos (negate=true) together with their shared companion
// sqrt(1-u^2).
func forwardAsinAcos[T any](fn *Function[T], field Field[T], yIdx, wIdx, uIdx, k int, negate bool) {
	if k == 0 {
		u0 := fn.at(uIdx, 0)
		if negate {
			fn.set(yIdx, 0, field.Acos(u0))
		} else {
			fn.set(yIdx, 0, field.Asin(u0))
		}
		fn.set(wIdx, 0, sqrtOneMinusSq(&field, u0))
		return
	}
	m := cauchy(fn, field, uIdx, uIdx, k) // (u*u)_k
	oneMinusMk := field.Neg(m)
	sumWW := field.Zero()
	for j := 1; j < k; j++ {
		sumWW = field.Add(sumWW, field.Mul(fn.at(wIdx, j), fn.at(wIdx, k-j)))
	}
	w0 := fn.at(wIdx, 0)
	wk := field.Div(field.Sub(oneMinusMk, sumWW), field.Mul(field.FromFloat64(2), w0))
	fn.set(wIdx, k, wk)

	sumYW := field.Zero()
	for j := 1; j < k; j++ {
		jf := field.FromFloat64(float64(j))
		sumYW = field.Add(sumYW, field.Mul(jf, field.Mul(fn.at(yIdx, j), fn.at(wIdx, k-j))))
	}
	kf := field.FromFloat64(float64(k))
	uk := fn.at(uIdx, k)
	sign := field.FromFloat64(1)
	if negate {
		sign = field.FromFloat64(-1)
	}
	num := field.Sub(field.Mul(sign, uk), field.Div(sumYW, kf))
	fn.set(yIdx, k, field.Div(num, w0))
}

func forwardAtan[T any](fn *Function[T], field Field[T], yIdx, cIdx, uIdx, k int) {
	if k == 0 {
		u0 := fn.at(uIdx, 0)
		fn.set(yIdx, 0, field.Atan(u0))
		fn.set(cIdx, 0, field.Add(field.One(), field.Mul(u0, u0)))
		return
	}
	m := cauchy(fn, field, uIdx, uIdx, k)
	fn.set(cIdx, k, m)

	sumYC := field.Zero()
	for j := 1; j < k; j++ {
		jf := field.FromFloat64(float64(j))
		sumYC = field.Add(sumYC, field.Mul(jf, field.Mul(fn.at(yIdx, j), fn.at(cIdx, k-j))))
	}
	kf := field.FromFloat64(float64(k))
	c0 := fn.at(cIdx, 0)
	num := field.Sub(fn.at(uIdx, k), field.Div(sumYC, kf))
	fn.set(yIdx, k, field.Div(num, c0))
}

func forwardDivvv[T any](fn *Function[T], field Field[T], yIdx, uIdx, vIdx, k int) {
	v0 := fn.at(vIdx, 0)
	if k == 0 {
		fn.set(yIdx, 0, field.Div(fn.at(uIdx, 0), v0))
		return
	}
	sum := field.Zero()
	for j := 0; j < k; j++ {
		sum = field.Add(sum, field.Mul(fn.at(yIdx, j), fn.at(vIdx, k-j)))
	}
	num := field.Sub(fn.at(uIdx, k), sum)
	fn.set(yIdx, k, field.Div(num, v0))
}

func forwardDivpv[T any](fn *Function[T], field Field[T], yIdx int, tape *Tape[T], pIdx, vIdx, k int) {
	v0 := fn.at(vIdx, 0)
	if k == 0 {
		fn.set(yIdx, 0, field.Div(tape.GetPar(pIdx), v0))
		return
	}
	sum := field.Zero()
	for j := 0; j < k; j++ {
		sum = field.Add(sum, field.Mul(fn.at(yIdx, j), fn.at(vIdx, k-j)))
	}
	fn.set(yIdx, k, field.Div(field.Neg(sum), v0))
}

// forwardElemental fills order-k of a host function applied through
// Elemental. Only orders 0 and 1 are meaningful: a registered
// ElementalGradientFunc supplies a single derivative value, not a
// Taylor series, so order k>=2 is taped as zero.
func forwardElemental[T any](fn *Function[T], field Field[T], tape *Tape[T], yIdx, handle, uIdx, k int) {
	entry := tape.elementalAt(handle)
	u0 := fn.at(uIdx, 0)
	if k == 0 {
		fn.set(yIdx, 0, field.FromFloat64(entry.f(field.ToFloat64(u0))))
		return
	}
	if k > 1 {
		fn.set(yIdx, k, field.Zero())
		return
	}
	g := entry.grad(entry.f(field.ToFloat64(u0)), field.ToFloat64(u0))
	fn.set(yIdx, 1, field.Mul(field.FromFloat64(g[0]), fn.at(uIdx, 1)))
}

// operandAt reads the order-k coefficient of a CondExp/comparison
// operand, which may be a parameter-pool index or a variable index
// depending on isVar.
func operandAt[T any](fn *Function[T], tape *Tape[T], field Field[T], idx int, isVar bool, k int) T {
	if isVar {
		return fn.at(idx, k)
	}
	return paramAt(tape, field, idx, k)
}

var condExpFlavor = map[Opcode][3]bool{
	CEvvvOp: {true, true, true},
	CEvvpOp: {true, true, false},
	CEvpvOp: {true, false, true},
	CEvppOp: {true, false, false},
	CEpvvOp: {false, true, true},
	CEpvpOp: {false, true, false},
	CEppvOp: {false, false, true},
	CEpppOp: {false, false, false},
}

func forwardCondExp[T any](fn *Function[T], field Field[T], tape *Tape[T], op Opcode, base int, ind []int, k int) {
	flavor := condExpFlavor[op]
	cVar, aVar, bVar := flavor[0], flavor[1], flavor[2]
	c0 := operandAt(fn, tape, field, ind[0], cVar, 0)
	choose := field.Cmp(c0, field.Zero()) >= 0
	if choose {
		fn.set(base, k, operandAt(fn, tape, field, ind[1], aVar, k))
	} else {
		fn.set(base, k, operandAt(fn, tape, field, ind[2], bVar, k))
	}
}

var cmpOutcomeTable = map[Opcode]struct {
	kind    cmpKind
	outcome bool
	cVar    bool
	vVar    bool
}{
	EqtppOp: {cmpEq, true, false, false}, EqtpvOp: {cmpEq, true, false, true},
	EqtvpOp: {cmpEq, true, true, false}, EqtvvOp: {cmpEq, true, true, true},
	EqfppOp: {cmpEq, false, false, false}, EqfpvOp: {cmpEq, false, false, true},
	EqfvpOp: {cmpEq, false, true, false}, EqfvvOp: {cmpEq, false, true, true},
	LetppOp: {cmpLe, true, false, false}, LetpvOp: {cmpLe, true, false, true},
	LetvpOp: {cmpLe, true, true, false}, LetvvOp: {cmpLe, true, true, true},
	LefppOp: {cmpLe, false, false, false}, LefpvOp: {cmpLe, false, false, true},
	LefvpOp: {cmpLe, false, true, false}, LefvvOp: {cmpLe, false, true, true},
	LttppOp: {cmpLt, true, false, false}, LttpvOp: {cmpLt, true, false, true},
	LttvpOp: {cmpLt, true, true, false}, LttvvOp: {cmpLt, true, true, true},
	LtfppOp: {cmpLt, false, false, false}, LtfpvOp: {cmpLt, false, false, true},
	LtfvpOp: {cmpLt, false, true, false}, LtfvvOp: {cmpLt, false, true, true},
}

func compareChanged[T any](fn *Function[T], field Field[T], tape *Tape[T], op Opcode, ind []int) bool {
	e := cmpOutcomeTable[op]
	a := operandAt(fn, tape, field, ind[0], e.cVar, 0)
	b := operandAt(fn, tape, field, ind[1], e.vVar, 0)
	var now bool
	switch e.kind {
	case cmpEq:
		now = field.Cmp(a, b) == 0
	case cmpLe:
		now = field.Cmp(a, b) <= 0
	default:
		now = field.Cmp(a, b) < 0
	}
	return now != e.outcome
}
