package ad

// Value[T] is the tracked scalar (C3). It carries a primal of type T
// and, while it is bound to the currently-recording tape for T, a
// variable index on that tape. Go has no operator overloading, so
// arithmetic is exposed as methods in the idiom of math/big.Int
// rather than as operators; each method both computes the primal
// result and, when applicable, appends the corresponding opcode to
// the active tape.
type Value[T any] struct {
	v     T
	tape  *Tape[T]
	idx   int
	field *Field[T]
}

// Const wraps a plain constant as a Value, with no variable binding.
func Const[T any](field *Field[T], v T) Value[T] {
	return Value[T]{v: v, field: field}
}

// Primal returns the underlying value, discarding any variable
// binding (the engine's Value(a) -> T extraction).
func (a Value[T]) Primal() T { return a.v }

// Field returns a's arithmetic table. A host builds AD-of-AD nesting
// by passing NestedField(*a.Field()) as the Field for an outer
// Value[Value[T]] tape (see the ad package doc).
func (a Value[T]) Field() *Field[T] { return a.field }

// Cmp returns a negative, zero, or positive value with the sign of
// a.Primal()-b.Primal(), the exported form of the comparator Eq/Le/Lt
// use internally. It exists so a Field[Value[T]] built by NestedField
// can delegate its own Cmp to Value[T] rather than inspect primals
// directly.
func (a Value[T]) Cmp(b Value[T]) int { return a.field.Cmp(a.v, b.v) }

// isVarOn reports whether a is bound to the given (necessarily
// active) tape as a variable, as opposed to a plain parameter or a
// variable foreign to some other tape.
func (a Value[T]) isVarOn(tape *Tape[T]) bool {
	return tape != nil && a.tape == tape && a.idx > 0
}

func operandIdx[T any](tape *Tape[T], isVar bool, v Value[T]) int {
	if isVar {
		return v.idx
	}
	return tape.PutPar(v.v)
}

// asVar materializes a as a variable on tape, promoting it through a
// ParOp if it is not already a variable there.
func asVar[T any](tape *Tape[T], a Value[T]) int {
	if a.isVarOn(tape) {
		return a.idx
	}
	pi := tape.PutPar(a.v)
	base := tape.PutOp(ParOp)
	tape.PutInd(pi)
	return base
}

// Binary arithmetic (C3 step 1-3).

func binOp[T any](
	opVV, opPV, opVP Opcode,
	primal func(T, T) T,
	a, b Value[T],
) Value[T] {
	field := a.field
	if field == nil {
		field = b.field
	}
	tape := activeTape[T]()
	aVar := a.isVarOn(tape)
	bVar := b.isVarOn(tape)
	result := primal(a.v, b.v)

	if tape == nil || (!aVar && !bVar) {
		return Value[T]{v: result, field: field}
	}

	var op Opcode
	var i0, i1 int
	switch {
	case aVar && bVar:
		op, i0, i1 = opVV, a.idx, b.idx
	case bVar:
		op, i0, i1 = opPV, tape.PutPar(a.v), b.idx
	default:
		op, i0, i1 = opVP, a.idx, tape.PutPar(b.v)
	}
	base := tape.PutOp(op)
	tape.PutInd(i0, i1)
	return Value[T]{v: result, tape: tape, idx: base, field: field}
}

// Add returns a + b.
func (a Value[T]) Add(b Value[T]) Value[T] {
	return binOp(AddvvOp, AddpvOp, AddvpOp, a.field.Add, a, b)
}

// Sub returns a - b.
func (a Value[T]) Sub(b Value[T]) Value[T] {
	return binOp(SubvvOp, SubpvOp, SubvpOp, a.field.Sub, a, b)
}

// Mul returns a * b.
func (a Value[T]) Mul(b Value[T]) Value[T] {
	return binOp(MulvvOp, MulpvOp, MulvpOp, a.field.Mul, a, b)
}

// Div returns a / b.
func (a Value[T]) Div(b Value[T]) Value[T] {
	return binOp(DivvvOp, DivpvOp, DivvpOp, a.field.Div, a, b)
}

// Neg returns -a, taped as the subtraction 0 - a (the engine has no
// dedicated negation opcode).
func (a Value[T]) Neg() Value[T] {
	return Const(a.field, a.field.Zero()).Sub(a)
}

// Unary elementary functions, single result.

func unaryOp[T any](op Opcode, primal func(T) T, a Value[T]) Value[T] {
	tape := activeTape[T]()
	result := primal(a.v)
	if !a.isVarOn(tape) {
		return Value[T]{v: result, field: a.field}
	}
	base := tape.PutOp(op)
	tape.PutInd(a.idx)
	return Value[T]{v: result, tape: tape, idx: base, field: a.field}
}

// Abs returns |a|. The derivative at a==0 is taped as zero; this is
// the documented, deliberately unresolved behavior at the boundary
// (SPEC_FULL.md §9 open question), pinned by tests.
func (a Value[T]) Abs() Value[T] { return unaryOp(AbsOp, a.field.Abs, a) }

// Sqrt returns sqrt(a).
func (a Value[T]) Sqrt() Value[T] { return unaryOp(SqrtOp, a.field.Sqrt, a) }

// Exp returns exp(a).
func (a Value[T]) Exp() Value[T] { return unaryOp(ExpOp, a.field.Exp, a) }

// Log returns log(a).
func (a Value[T]) Log() Value[T] { return unaryOp(LogOp, a.field.Log, a) }

// Pair-producing elementary functions (I-pair-adjacency): each tapes
// a companion variable at the immediately following index. The
// companion's own value is never needed at record time — the
// forward sweep's kernel (forwardSinCosPair and friends) recomputes
// both rows of the pair together from u's Taylor coefficients — so
// pairOp only has to tape the primal result and the operand index.

func pairOp[T any](op Opcode, primal func(T) T, a Value[T]) Value[T] {
	tape := activeTape[T]()
	result := primal(a.v)
	if !a.isVarOn(tape) {
		return Value[T]{v: result, field: a.field}
	}
	base := tape.PutOp(op)
	tape.PutInd(a.idx)
	return Value[T]{v: result, tape: tape, idx: base, field: a.field}
}

// Sin returns sin(a); cos(a) is taped as the companion variable.
func (a Value[T]) Sin() Value[T] {
	return pairOp(SinOp, a.field.Sin, a)
}

// Cos returns cos(a); sin(a) is taped as the companion variable.
func (a Value[T]) Cos() Value[T] {
	return pairOp(CosOp, a.field.Cos, a)
}

func sqrtOneMinusSq[T any](field *Field[T], x T) T {
	return field.Sqrt(field.Sub(field.One(), field.Mul(x, x)))
}

// Asin returns asin(a); sqrt(1-a^2) is taped as the companion.
func (a Value[T]) Asin() Value[T] {
	return pairOp(AsinOp, a.field.Asin, a)
}

// Acos returns acos(a); sqrt(1-a^2) is taped as the companion.
func (a Value[T]) Acos() Value[T] {
	return pairOp(AcosOp, a.field.Acos, a)
}

// Atan returns atan(a); 1+a^2 is taped as the companion.
func (a Value[T]) Atan() Value[T] {
	return pairOp(AtanOp, a.field.Atan, a)
}

// Comparisons. These tape the observed outcome, never the relation
// itself, so that a later Forward sweep at a different point can
// detect a branch change via CompareChange.

type cmpKind int

const (
	cmpEq cmpKind = iota
	cmpLe
	cmpLt
)

var cmpOpTable = map[cmpKind][2][4]Opcode{
	cmpEq: {
		{EqtppOp, EqtpvOp, EqtvpOp, EqtvvOp}, // observed true
		{EqfppOp, EqfpvOp, EqfvpOp, EqfvvOp}, // observed false
	},
	cmpLe: {
		{LetppOp, LetpvOp, LetvpOp, LetvvOp},
		{LefppOp, LefpvOp, LefvpOp, LefvvOp},
	},
	cmpLt: {
		{LttppOp, LttpvOp, LttvpOp, LttvvOp},
		{LtfppOp, LtfpvOp, LtfvpOp, LtfvvOp},
	},
}

func flavorIndex(aVar, bVar bool) int {
	switch {
	case !aVar && !bVar:
		return 0 // pp
	case !aVar && bVar:
		return 1 // pv
	case aVar && !bVar:
		return 2 // vp
	default:
		return 3 // vv
	}
}

func compare[T any](kind cmpKind, outcome bool, a, b Value[T]) bool {
	tape := activeTape[T]()
	if tape != nil {
		aVar, bVar := a.isVarOn(tape), b.isVarOn(tape)
		op := cmpOpTable[kind][boolIndex(!outcome)][flavorIndex(aVar, bVar)]
		i0 := operandIdx(tape, aVar, a)
		i1 := operandIdx(tape, bVar, b)
		tape.PutOp(op)
		tape.PutInd(i0, i1)
	}
	return outcome
}

func boolIndex(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Eq returns a == b, taping the observed outcome.
func (a Value[T]) Eq(b Value[T]) bool {
	return compare(cmpEq, a.field.Cmp(a.v, b.v) == 0, a, b)
}

// Le returns a <= b, taping the observed outcome.
func (a Value[T]) Le(b Value[T]) bool {
	return compare(cmpLe, a.field.Cmp(a.v, b.v) <= 0, a, b)
}

// Lt returns a < b, taping the observed outcome.
func (a Value[T]) Lt(b Value[T]) bool {
	return compare(cmpLt, a.field.Cmp(a.v, b.v) < 0, a, b)
}

// CondExp implements the three-operand conditional assignment: a if
// cmp chooses the true branch (cmp >= 0), else b.
func CondExp[T any](cmp, a, b Value[T]) Value[T] {
	field := cmp.field
	tape := activeTape[T]()
	choose := field.Cmp(cmp.v, field.Zero()) >= 0
	var result T
	if choose {
		result = a.v
	} else {
		result = b.v
	}
	if tape == nil {
		return Value[T]{v: result, field: field}
	}

	cVar, aVar, bVar := cmp.isVarOn(tape), a.isVarOn(tape), b.isVarOn(tape)
	op := condExpOpcode(cVar, aVar, bVar)
	ic := operandIdx(tape, cVar, cmp)
	ia := operandIdx(tape, aVar, a)
	ib := operandIdx(tape, bVar, b)
	base := tape.PutOp(op)
	tape.PutInd(ic, ia, ib)
	return Value[T]{v: result, tape: tape, idx: base, field: field}
}

func condExpOpcode(cVar, aVar, bVar bool) Opcode {
	idx := 0
	if cVar {
		idx |= 4
	}
	if aVar {
		idx |= 2
	}
	if bVar {
		idx |= 1
	}
	table := [8]Opcode{
		CEpppOp, CEppvOp, CEpvpOp, CEpvvOp,
		CEvppOp, CEvpvOp, CEvvpOp, CEvvvOp,
	}
	return table[idx]
}
