package ir

// OpCode identifies an IR op's shape. Values are not the MSBC byte encoding;
// internal/msbc maps between the two explicitly.
type OpCode uint8

const (
	OpLConst OpCode = iota
	OpLLocal
	OpSLocal
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
	OpNot
	OpInc
	OpDec
	OpLabel
	OpJump
	OpBrTrue
	OpBrFalse
	OpHalt
	OpCall
	OpCallLabel
	OpRet
	OpArrayNew
	OpArrayGet
	OpArraySet
	OpGetProp
	OpSetProp
	OpLoadGlobal
)

var opNames = map[OpCode]string{
	OpLConst: "LConst", OpLLocal: "LLocal", OpSLocal: "SLocal",
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpMod: "Mod",
	OpEq: "Eq", OpNeq: "Neq", OpLt: "Lt", OpLte: "Lte", OpGt: "Gt", OpGte: "Gte",
	OpAnd: "And", OpOr: "Or", OpNot: "Not",
	OpInc: "Inc", OpDec: "Dec",
	OpLabel: "Label", OpJump: "Jump", OpBrTrue: "BrTrue", OpBrFalse: "BrFalse",
	OpHalt: "Halt", OpCall: "Call", OpCallLabel: "CallLabel", OpRet: "Ret",
	OpArrayNew: "ArrayNew", OpArrayGet: "ArrayGet", OpArraySet: "ArraySet",
	OpGetProp: "GetProp", OpSetProp: "SetProp", OpLoadGlobal: "LoadGlobal",
}

func (c OpCode) String() string {
	if n, ok := opNames[c]; ok {
		return n
	}
	return "Unknown"
}

// Op is a single IR instruction. It carries every field any variant might
// need; Code selects which fields are meaningful. This flat shape (rather
// than a Go sum type via interfaces) keeps register rewriting, the
// operation every optimizer pass performs, a single switch over Code
// instead of a type assertion per variant.
type Op struct {
	Code OpCode

	Dest int
	Src  int
	Src1 int
	Src2 int

	// LLocal/SLocal
	Local int

	// Jump/BrTrue/BrFalse target op index; Label's own position is implied
	// by where it sits in Module.Ops.
	Target int

	// Call/CallLabel
	Func       int // register holding the Symbol, for Call
	LabelIndex int // for CallLabel
	Args       []int

	// ArrayNew
	Elems []int

	// ArrayGet/ArraySet
	Array int
	Index int

	// GetProp/SetProp
	Obj int
	Key int

	// LConst payload
	Value Value

	// Label name / string payload
	Name string
}

// WritesReg reports the register this op assigns, if any.
func (o Op) WritesReg() (int, bool) {
	switch o.Code {
	case OpLConst, OpLLocal, OpAdd, OpSub, OpMul, OpDiv, OpMod,
		OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpAnd, OpOr, OpNot,
		OpInc, OpDec, OpArrayNew, OpArrayGet, OpGetProp, OpLoadGlobal:
		return o.Dest, true
	case OpCall, OpCallLabel:
		return o.Dest, true
	}
	return 0, false
}

// ReadsRegs appends every register this op reads to out and returns it.
func (o Op) ReadsRegs(out []int) []int {
	switch o.Code {
	case OpSLocal:
		out = append(out, o.Src)
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpAnd, OpOr:
		out = append(out, o.Src1, o.Src2)
	case OpNot:
		out = append(out, o.Src)
	case OpInc, OpDec:
		out = append(out, o.Dest)
	case OpBrTrue, OpBrFalse:
		out = append(out, o.Src)
	case OpCall:
		out = append(out, o.Func)
		out = append(out, o.Args...)
	case OpCallLabel:
		out = append(out, o.Args...)
	case OpArrayNew:
		out = append(out, o.Elems...)
	case OpArrayGet:
		out = append(out, o.Array, o.Index)
	case OpArraySet:
		out = append(out, o.Array, o.Index, o.Src)
	case OpGetProp:
		out = append(out, o.Obj, o.Key)
	case OpSetProp:
		out = append(out, o.Obj, o.Key, o.Src)
	case OpLoadGlobal:
		out = append(out, o.Src)
	case OpRet:
		out = append(out, o.Src)
	case OpLLocal:
		// reads a local slot, not a register
	}
	return out
}

// RewriteRegs rewrites every register operand through remap, chasing chains
// to a fixed point (remap may itself contain multi-hop aliases).
func (o *Op) RewriteRegs(remap map[int]int) {
	rw := func(r int) int {
		seen := map[int]bool{}
		for {
			nr, ok := remap[r]
			if !ok || nr == r || seen[r] {
				return r
			}
			seen[r] = true
			r = nr
		}
	}
	switch o.Code {
	case OpLConst:
		o.Dest = rw(o.Dest)
	case OpLLocal:
		o.Dest = rw(o.Dest)
	case OpSLocal:
		o.Src = rw(o.Src)
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpAnd, OpOr:
		o.Dest, o.Src1, o.Src2 = rw(o.Dest), rw(o.Src1), rw(o.Src2)
	case OpNot:
		o.Dest, o.Src = rw(o.Dest), rw(o.Src)
	case OpInc, OpDec:
		o.Dest = rw(o.Dest)
	case OpBrTrue, OpBrFalse:
		o.Src = rw(o.Src)
	case OpCall:
		o.Dest, o.Func = rw(o.Dest), rw(o.Func)
		for i := range o.Args {
			o.Args[i] = rw(o.Args[i])
		}
	case OpCallLabel:
		o.Dest = rw(o.Dest)
		for i := range o.Args {
			o.Args[i] = rw(o.Args[i])
		}
	case OpArrayNew:
		o.Dest = rw(o.Dest)
		for i := range o.Elems {
			o.Elems[i] = rw(o.Elems[i])
		}
	case OpArrayGet:
		o.Dest, o.Array, o.Index = rw(o.Dest), rw(o.Array), rw(o.Index)
	case OpArraySet:
		o.Array, o.Index, o.Src = rw(o.Array), rw(o.Index), rw(o.Src)
	case OpGetProp:
		o.Dest, o.Obj, o.Key = rw(o.Dest), rw(o.Obj), rw(o.Key)
	case OpSetProp:
		o.Obj, o.Key, o.Src = rw(o.Obj), rw(o.Key), rw(o.Src)
	case OpLoadGlobal:
		o.Dest, o.Src = rw(o.Dest), rw(o.Src)
	case OpRet:
		o.Src = rw(o.Src)
	}
}

// IsPure reports whether the op's only effect is writing Dest, the
// const-fold/DCE purity set (arithmetic, comparison, logical, Not) plus the
// other value-only ops (LConst/LLocal/Inc/Dec/ArrayNew/ArrayGet/GetProp/LoadGlobal).
// Calls, SetProp, ArraySet, SLocal, control flow, and labels are never pure.
func (o Op) IsPure() bool {
	switch o.Code {
	case OpLConst, OpLLocal, OpAdd, OpSub, OpMul, OpDiv, OpMod,
		OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpAnd, OpOr, OpNot,
		OpInc, OpDec, OpArrayNew, OpArrayGet, OpGetProp, OpLoadGlobal:
		return true
	}
	return false
}

// IsFoldable reports membership in the strict const-fold purity set
// (arithmetic, comparison, logical, Not) per §4.2, narrower than IsPure,
// which also covers ops that const-propagate (not const-fold) may resolve.
func (o Op) IsFoldable() bool {
	switch o.Code {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod,
		OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpAnd, OpOr, OpNot:
		return true
	}
	return false
}
