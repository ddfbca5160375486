package ad

// reverseSweep computes, for every order 0..d Taylor coefficient of
// every independent variable, the adjoint resulting from seeding each
// dependent's order-d adjoint column with w (one weight per dependent;
// lower-order columns start at zero, as in
// original_source/CppAD/local/ADReverse.h's own Partial vector, which
// is sized n and placed only at column d). It walks the tape from its
// last opcode back to (but excluding) the NonOp backstop at position
// 0, mirroring
// original_source/CppAD/local/ADReverse.h's ADReverse, generalized
// from a single Base type to Field[T] and from a single order to the
// whole 0..d range per call (each kernel below handles its own
// order-d-down-to-0 loop, since a variable's own Taylor recurrence
// can reference its own lower orders).
func reverseSweep[T any](fn *Function[T], d int, w []T) []T {
	tape := fn.tape
	field := fn.field
	K := d + 1
	numVar := tape.TotNumVar()
	partial := make([]T, numVar*K)
	for i := range partial {
		partial[i] = field.Zero()
	}

	p := func(v, k int) T { return partial[v*K+k] }
	addp := func(v, k int, x T) {
		if v == 0 {
			return // NonOp's slot never carries an adjoint
		}
		partial[v*K+k] = field.Add(partial[v*K+k], x)
	}

	// w seeds only column d; lower-order adjoint columns of the
	// dependents start at zero per the engine's contract.
	for i, v := range fn.depvar {
		addp(v, d, w[i])
	}

	for i := tape.NumOp() - 1; i >= 1; i-- {
		op := tape.GetOp(i)
		n := NumInd(op)
		ind := tape.GetInd(n, fn.indBase[i])
		base := fn.varBase[i]

		switch op {
		case InvOp, ParOp, PripOp, PrivOp, NonOp:
			// Inv's adjoint is read directly from partial by the caller;
			// Par/Pri have no upstream operand to propagate to.

		case AbsOp:
			u0 := fn.at(ind[0], 0)
			for k := 0; k <= d; k++ {
				addp(ind[0], k, signedCoef(field, u0, p(base, k)))
			}

		case SqrtOp:
			reverseSqrt(fn, field, p, addp, base, ind[0], d)

		case ExpOp:
			reverseExp(fn, field, p, addp, base, ind[0], d)

		case LogOp:
			reverseLog(fn, field, p, addp, base, ind[0], d)

		case SinOp:
			reverseSinCos(fn, field, p, addp, base, base+1, ind[0], d)

		case CosOp:
			reverseSinCos(fn, field, p, addp, base+1, base, ind[0], d)

		case AsinOp:
			reverseAsinAcos(fn, field, p, addp, base, base+1, ind[0], d, false)

		case AcosOp:
			reverseAsinAcos(fn, field, p, addp, base, base+1, ind[0], d, true)

		case AtanOp:
			reverseAtan(fn, field, p, addp, base, base+1, ind[0], d)

		case AddvvOp:
			for k := 0; k <= d; k++ {
				addp(ind[0], k, p(base, k))
				addp(ind[1], k, p(base, k))
			}
		case AddpvOp:
			for k := 0; k <= d; k++ {
				addp(ind[1], k, p(base, k))
			}
		case AddvpOp:
			for k := 0; k <= d; k++ {
				addp(ind[0], k, p(base, k))
			}

		case SubvvOp:
			for k := 0; k <= d; k++ {
				addp(ind[0], k, p(base, k))
				addp(ind[1], k, field.Neg(p(base, k)))
			}
		case SubpvOp:
			for k := 0; k <= d; k++ {
				addp(ind[1], k, field.Neg(p(base, k)))
			}
		case SubvpOp:
			for k := 0; k <= d; k++ {
				addp(ind[0], k, p(base, k))
			}

		case MulvvOp:
			reverseMulSame(fn, field, p, addp, base, ind[0], ind[1], d)
		case MulpvOp:
			pv := tape.GetPar(ind[0])
			for k := 0; k <= d; k++ {
				addp(ind[1], k, field.Mul(p(base, k), pv))
			}
		case MulvpOp:
			pv := tape.GetPar(ind[1])
			for k := 0; k <= d; k++ {
				addp(ind[0], k, field.Mul(p(base, k), pv))
			}

		case DivvvOp:
			reverseDivvv(fn, field, p, addp, base, ind[0], ind[1], d)
		case DivpvOp:
			reverseDivpv(fn, field, p, addp, base, ind[1], d)
		case DivvpOp:
			pv := tape.GetPar(ind[1])
			for k := 0; k <= d; k++ {
				addp(ind[0], k, field.Div(p(base, k), pv))
			}

		case CEvvvOp, CEvvpOp, CEvpvOp, CEvppOp, CEpvvOp, CEpvpOp, CEppvOp, CEpppOp:
			reverseCondExp(fn, field, tape, p, addp, op, base, ind, d)

		case EqtppOp, EqtpvOp, EqtvpOp, EqtvvOp,
			EqfppOp, EqfpvOp, EqfvpOp, EqfvvOp,
			LetppOp, LetpvOp, LetvpOp, LetvvOp,
			LefppOp, LefpvOp, LefvpOp, LefvvOp,
			LttppOp, LttpvOp, LttvpOp, LttvvOp,
			LtfppOp, LtfpvOp, LtfvpOp, LtfvvOp,
			StppOp, StpvOp, StvpOp, StvvOp,
			DisOp:
			// derivative-inert: no upstream operand carries an adjoint

		case LdpOp, LdvOp:
			if ind[2] == 1 {
				for k := 0; k <= d; k++ {
					addp(ind[3], k, p(base, k))
				}
			}

		case ElemOp:
			reverseElemental(fn, field, tape, p, addp, base, ind[0], ind[1], d)

		default:
			assertUnknown(false, "reverseSweep: unhandled opcode %d", op)
		}
	}

	out := make([]T, fn.Domain()*K)
	for i, v := range fn.indvar {
		for k := 0; k < K; k++ {
			out[i*K+k] = p(v, k)
		}
	}
	return out
}

type partialGet[T any] func(v, k int) T
type partialAdd[T any] func(v, k int, x T)

func reverseSqrt[T any](fn *Function[T], field Field[T], p partialGet[T], addp partialAdd[T], yIdx, uIdx, d int) {
	y0 := fn.at(yIdx, 0)
	two := field.FromFloat64(2)
	for k := d; k >= 0; k-- {
		py := p(yIdx, k)
		if k == 0 {
			addp(uIdx, 0, field.Div(py, field.Mul(two, y0)))
			continue
		}
		addp(uIdx, k, field.Div(py, field.Mul(two, y0)))
		addp(yIdx, 0, field.Neg(field.Mul(py, field.Div(fn.at(yIdx, k), y0))))
		for m := 1; m < k; m++ {
			addp(yIdx, m, field.Neg(field.Mul(py, field.Div(fn.at(yIdx, k-m), y0))))
		}
	}
}

func reverseExp[T any](fn *Function[T], field Field[T], p partialGet[T], addp partialAdd[T], yIdx, uIdx, d int) {
	for k := d; k >= 0; k-- {
		py := p(yIdx, k)
		if k == 0 {
			addp(uIdx, 0, field.Mul(py, fn.at(yIdx, 0)))
			continue
		}
		kf := field.FromFloat64(float64(k))
		for j := 1; j <= k; j++ {
			coeff := field.Div(field.FromFloat64(float64(j)), kf)
			addp(uIdx, j, field.Mul(py, field.Mul(coeff, fn.at(yIdx, k-j))))
			addp(yIdx, k-j, field.Mul(py, field.Mul(coeff, fn.at(uIdx, j))))
		}
	}
}

func reverseLog[T any](fn *Function[T], field Field[T], p partialGet[T], addp partialAdd[T], yIdx, uIdx, d int) {
	u0 := fn.at(uIdx, 0)
	for k := d; k >= 0; k-- {
		py := p(yIdx, k)
		if k == 0 {
			addp(uIdx, 0, field.Div(py, u0))
			continue
		}
		addp(uIdx, k, field.Div(py, u0))
		addp(uIdx, 0, field.Neg(field.Mul(py, field.Div(fn.at(yIdx, k), u0))))
		kf := field.FromFloat64(float64(k))
		for j := 1; j < k; j++ {
			coeff := field.Div(field.FromFloat64(float64(j)), field.Mul(kf, u0))
			addp(uIdx, k-j, field.Neg(field.Mul(py, field.Mul(coeff, fn.at(yIdx, j)))))
			addp(yIdx, j, field.Neg(field.Mul(py, field.Mul(coeff, fn.at(uIdx, k-j)))))
		}
	}
}

func reverseSinCos[T any](fn *Function[T], field Field[T], p partialGet[T], addp partialAdd[T], sinIdx, cosIdx, uIdx, d int) {
	for k := d; k >= 0; k-- {
		py := p(sinIdx, k)
		pz := p(cosIdx, k)
		if k == 0 {
			addp(uIdx, 0, field.Add(field.Mul(py, fn.at(cosIdx, 0)), field.Neg(field.Mul(pz, fn.at(sinIdx, 0)))))
			continue
		}
		kf := field.FromFloat64(float64(k))
		for j := 1; j <= k; j++ {
			coeff := field.Div(field.FromFloat64(float64(j)), kf)
			// y_k = (1/k) sum j u_j z_{k-j}
			addp(uIdx, j, field.Mul(py, field.Mul(coeff, fn.at(cosIdx, k-j))))
			addp(cosIdx, k-j, field.Mul(py, field.Mul(coeff, fn.at(uIdx, j))))
			// z_k = -(1/k) sum j u_j y_{k-j}
			addp(uIdx, j, field.Neg(field.Mul(pz, field.Mul(coeff, fn.at(sinIdx, k-j)))))
			addp(sinIdx, k-j, field.Neg(field.Mul(pz, field.Mul(coeff, fn.at(uIdx, j)))))
		}
	}
}

// reverseYW reverses the shared "A*Y' = sign*U'" recurrence used by
// asin/acos/atan (A is the companion w or c), accumulating into pu
// and into the local pw array (the companion's own adjoint, which the
// caller then reverses through the companion's own definition).
func reverseYW[T any](fn *Function[T], field Field[T], p partialGet[T], addp partialAdd[T], pw []T, yIdx, wIdx, uIdx, d int, sign T) {
	w0 := fn.at(wIdx, 0)
	for k := d; k >= 0; k-- {
		py := p(yIdx, k)
		if k == 0 {
			addp(uIdx, 0, field.Div(field.Mul(py, sign), w0))
			continue
		}
		kf := field.FromFloat64(float64(k))
		addp(uIdx, k, field.Div(field.Mul(py, sign), w0))
		pw[0] = field.Add(pw[0], field.Neg(field.Mul(py, field.Div(fn.at(yIdx, k), w0))))
		for j := 1; j < k; j++ {
			coeff := field.Div(field.FromFloat64(float64(j)), field.Mul(kf, w0))
			pw[k-j] = field.Add(pw[k-j], field.Neg(field.Mul(py, field.Mul(coeff, fn.at(yIdx, j)))))
			addp(yIdx, j, field.Neg(field.Mul(py, field.Mul(coeff, fn.at(wIdx, k-j)))))
		}
	}
}

// reverseSelfSquare reverses m = u*u (the Cauchy self-product used by
// asin/acos/atan's companion), given the companion's fully
// accumulated local adjoint pm, into u's partial row.
func reverseSelfSquare[T any](fn *Function[T], field Field[T], addp partialAdd[T], pm []T, uIdx, d int) {
	for k := d; k >= 0; k-- {
		pmk := pm[k]
		for j := 0; j <= k; j++ {
			addp(uIdx, j, field.Mul(pmk, fn.at(uIdx, k-j)))
			addp(uIdx, k-j, field.Mul(pmk, fn.at(uIdx, j)))
		}
	}
}

func reverseAsinAcos[T any](fn *Function[T], field Field[T], p partialGet[T], addp partialAdd[T], yIdx, wIdx, uIdx, d int, negate bool) {
	K := d + 1
	pw := make([]T, K)
	sign := field.FromFloat64(1)
	if negate {
		sign = field.FromFloat64(-1)
	}
	reverseYW(fn, field, p, addp, pw, yIdx, wIdx, uIdx, d, sign)

	// w_k = sqrt(1-m)_k; d(onem)/dm = -1 at every order.
	ponem := make([]T, K)
	reverseSqrtSeries(fn, field, pw, ponem, wIdx, d)
	pm := make([]T, K)
	for k := 0; k < K; k++ {
		pm[k] = field.Neg(ponem[k])
	}
	reverseSelfSquare(fn, field, addp, pm, uIdx, d)
}

func reverseAtan[T any](fn *Function[T], field Field[T], p partialGet[T], addp partialAdd[T], yIdx, cIdx, uIdx, d int) {
	K := d + 1
	pc := make([]T, K)
	reverseYW(fn, field, p, addp, pc, yIdx, cIdx, uIdx, d, field.FromFloat64(1))
	reverseSelfSquare(fn, field, addp, pc, uIdx, d) // dc_k/dm_k = 1 for all k (c_0 = 1+m_0)
}

// reverseSqrtSeries reverses w = sqrt(x) where x is a local series
// (not itself a tape variable), given w's fully accumulated adjoint
// pw, producing x's adjoint into px.
func reverseSqrtSeries[T any](fn *Function[T], field Field[T], pw, px []T, wIdx, d int) {
	w0 := fn.at(wIdx, 0)
	two := field.FromFloat64(2)
	for k := d; k >= 0; k-- {
		pwk := pw[k]
		if k == 0 {
			px[0] = field.Add(px[0], field.Div(pwk, field.Mul(two, w0)))
			continue
		}
		px[k] = field.Add(px[k], field.Div(pwk, field.Mul(two, w0)))
		pw[0] = field.Add(pw[0], field.Neg(field.Mul(pwk, field.Div(fn.at(wIdx, k), w0))))
		for m := 1; m < k; m++ {
			pw[m] = field.Add(pw[m], field.Neg(field.Mul(pwk, field.Div(fn.at(wIdx, k-m), w0))))
		}
	}
}

func reverseMulSame[T any](fn *Function[T], field Field[T], p partialGet[T], addp partialAdd[T], yIdx, uIdx, vIdx, d int) {
	for k := d; k >= 0; k-- {
		py := p(yIdx, k)
		for j := 0; j <= k; j++ {
			addp(uIdx, j, field.Mul(py, fn.at(vIdx, k-j)))
			addp(vIdx, k-j, field.Mul(py, fn.at(uIdx, j)))
		}
	}
}

func reverseDivvv[T any](fn *Function[T], field Field[T], p partialGet[T], addp partialAdd[T], yIdx, uIdx, vIdx, d int) {
	v0 := fn.at(vIdx, 0)
	for k := d; k >= 0; k-- {
		py := p(yIdx, k)
		addp(uIdx, k, field.Div(py, v0))
		addp(vIdx, 0, field.Neg(field.Mul(py, field.Div(fn.at(yIdx, k), v0))))
		for j := 0; j < k; j++ {
			addp(vIdx, k-j, field.Neg(field.Mul(py, field.Div(fn.at(yIdx, j), v0))))
			addp(yIdx, j, field.Neg(field.Mul(py, field.Div(fn.at(vIdx, k-j), v0))))
		}
	}
}

func reverseDivpv[T any](fn *Function[T], field Field[T], p partialGet[T], addp partialAdd[T], yIdx, vIdx, d int) {
	v0 := fn.at(vIdx, 0)
	for k := d; k >= 0; k-- {
		py := p(yIdx, k)
		addp(vIdx, 0, field.Neg(field.Mul(py, field.Div(fn.at(yIdx, k), v0))))
		for j := 0; j < k; j++ {
			addp(vIdx, k-j, field.Neg(field.Mul(py, field.Div(fn.at(yIdx, j), v0))))
			addp(yIdx, j, field.Neg(field.Mul(py, field.Div(fn.at(vIdx, k-j), v0))))
		}
	}
}

// reverseElemental mirrors forwardElemental's order restriction: only
// orders 0 and 1 carry a real adjoint contribution, using the same
// single gradient value the forward sweep used.
func reverseElemental[T any](fn *Function[T], field Field[T], tape *Tape[T], p partialGet[T], addp partialAdd[T], yIdx, handle, uIdx, d int) {
	entry := tape.elementalAt(handle)
	u0 := fn.at(uIdx, 0)
	g := entry.grad(entry.f(field.ToFloat64(u0)), field.ToFloat64(u0))
	gv := field.FromFloat64(g[0])
	limit := d
	if limit > 1 {
		limit = 1
	}
	for k := 0; k <= limit; k++ {
		addp(uIdx, k, field.Mul(gv, p(yIdx, k)))
	}
}

func reverseCondExp[T any](fn *Function[T], field Field[T], tape *Tape[T], p partialGet[T], addp partialAdd[T], op Opcode, base int, ind []int, d int) {
	flavor := condExpFlavor[op]
	cVar, aVar, bVar := flavor[0], flavor[1], flavor[2]
	c0 := operandAt(fn, tape, field, ind[0], cVar, 0)
	choose := field.Cmp(c0, field.Zero()) >= 0
	for k := 0; k <= d; k++ {
		py := p(base, k)
		if choose {
			if aVar {
				addp(ind[1], k, py)
			}
		} else {
			if bVar {
				addp(ind[2], k, py)
			}
		}
	}
}
