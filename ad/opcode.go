package ad

// Opcode is a tape instruction. Each opcode has two fixed constants,
// tabulated below: the number of variables it produces (NumVar) and
// the number of operand indices it carries (NumInd). The reverse
// sweep relies on both tables to walk the tape backward without
// re-deriving arity from the instruction itself.
type Opcode int

const (
	NonOp Opcode = iota // sentinel at variable index 0

	InvOp  // independent variable
	ParOp  // materializes a parameter as a variable
	PripOp // tracing hook, parameter operand, derivative-inert
	PrivOp // tracing hook, variable operand, derivative-inert

	AbsOp
	SqrtOp
	ExpOp
	LogOp
	SinOp // produces (sin, cos) as a pair
	CosOp // produces (cos, sin) as a pair
	AsinOp
	AcosOp
	AtanOp

	AddvvOp
	AddpvOp
	AddvpOp
	SubvvOp
	SubpvOp
	SubvpOp
	MulvvOp
	MulpvOp
	MulvpOp
	DivvvOp
	DivpvOp
	DivvpOp

	// CondExp(cmp, a, b): result is a if cmp>=0 else b. The three
	// letters after CE give the flavor of cmp, a, b respectively.
	CEvvvOp
	CEvvpOp
	CEvpvOp
	CEvppOp
	CEpvvOp
	CEpvpOp
	CEppvOp
	CEpppOp

	// Comparisons tape the *observed* outcome so the reverse and a
	// later re-evaluation can detect a branch change; they produce no
	// variables.
	EqtppOp
	EqtpvOp
	EqtvpOp
	EqtvvOp
	EqfppOp
	EqfpvOp
	EqfvpOp
	EqfvvOp
	LetppOp
	LetpvOp
	LetvpOp
	LetvvOp
	LefppOp
	LefpvOp
	LefvpOp
	LefvvOp
	LttppOp
	LttpvOp
	LttvpOp
	LttvvOp
	LtfppOp
	LtfpvOp
	LtfvpOp
	LtfvvOp

	// Write-once indexed buffer (VecAD), used to tape table lookups.
	StppOp
	StpvOp
	StvpOp
	StvvOp
	LdpOp
	LdvOp

	DisOp  // discrete, piecewise-constant, derivative-inert step
	ElemOp // host function with a registered first-order gradient rule

	numOpcodes
)

// numVarTable[op] is the number of variables opcode op produces.
var numVarTable = [numOpcodes]int{
	NonOp:  1,
	InvOp:  1,
	ParOp:  1,
	PripOp: 1,
	PrivOp: 1,

	AbsOp:  1,
	SqrtOp: 1,
	ExpOp:  1,
	LogOp:  1,
	SinOp:  2,
	CosOp:  2,
	AsinOp: 2,
	AcosOp: 2,
	AtanOp: 2,

	AddvvOp: 1, AddpvOp: 1, AddvpOp: 1,
	SubvvOp: 1, SubpvOp: 1, SubvpOp: 1,
	MulvvOp: 1, MulpvOp: 1, MulvpOp: 1,
	DivvvOp: 1, DivpvOp: 1, DivvpOp: 1,

	CEvvvOp: 1, CEvvpOp: 1, CEvpvOp: 1, CEvppOp: 1,
	CEpvvOp: 1, CEpvpOp: 1, CEppvOp: 1, CEpppOp: 1,

	// comparisons produce no variables

	StppOp: 0, StpvOp: 0, StvpOp: 0, StvvOp: 0,
	LdpOp: 1, LdvOp: 1,

	DisOp:  1,
	ElemOp: 1,
}

// numIndTable[op] is the number of operand indices opcode op carries.
var numIndTable = [numOpcodes]int{
	NonOp:  0,
	InvOp:  0,
	ParOp:  1,
	PripOp: 2,
	PrivOp: 2,

	AbsOp:  1,
	SqrtOp: 1,
	ExpOp:  1,
	LogOp:  1,
	SinOp:  1,
	CosOp:  1,
	AsinOp: 1,
	AcosOp: 1,
	AtanOp: 1,

	AddvvOp: 2, AddpvOp: 2, AddvpOp: 2,
	SubvvOp: 2, SubpvOp: 2, SubvpOp: 2,
	MulvvOp: 2, MulpvOp: 2, MulvpOp: 2,
	DivvvOp: 2, DivpvOp: 2, DivvpOp: 2,

	CEvvvOp: 3, CEvvpOp: 3, CEvpvOp: 3, CEvppOp: 3,
	CEpvvOp: 3, CEpvpOp: 3, CEppvOp: 3, CEpppOp: 3,

	EqtppOp: 2, EqtpvOp: 2, EqtvpOp: 2, EqtvvOp: 2,
	EqfppOp: 2, EqfpvOp: 2, EqfvpOp: 2, EqfvvOp: 2,
	LetppOp: 2, LetpvOp: 2, LetvpOp: 2, LetvvOp: 2,
	LefppOp: 2, LefpvOp: 2, LefvpOp: 2, LefvvOp: 2,
	LttppOp: 2, LttpvOp: 2, LttvpOp: 2, LttvvOp: 2,
	LtfppOp: 2, LtfpvOp: 2, LtfvpOp: 2, LtfvvOp: 2,

	StppOp: 3, StpvOp: 3, StvpOp: 3, StvvOp: 3,
	// Ld carries a 4th index: a 0/1 flag saying whether the stored
	// value being loaded was itself a variable, since Ldp/Ldv's own
	// flavor only distinguishes the index operand's flavor.
	LdpOp: 4, LdvOp: 4,

	DisOp:  2,
	ElemOp: 2,
}

// NumVar returns the number of variables opcode op produces.
func NumVar(op Opcode) int { return numVarTable[op] }

// NumInd returns the number of operand indices opcode op carries.
func NumInd(op Opcode) int { return numIndTable[op] }

// isPairOp returns true for opcodes that tape a companion variable
// immediately following their primary result (I-pair-adjacency).
func isPairOp(op Opcode) bool {
	switch op {
	case SinOp, CosOp, AsinOp, AcosOp, AtanOp:
		return true
	default:
		return false
	}
}
