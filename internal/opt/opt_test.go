package opt

import (
	"testing"

	"github.com/ColtMcG1/Mainstage/internal/ir"
)

func buildAddConst(a, b int64) *ir.Module {
	m := ir.NewModule()
	ra := m.AllocReg()
	rb := m.AllocReg()
	rd := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: ra, Value: ir.Int(a)})
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: rb, Value: ir.Int(b)})
	m.Emit(ir.Op{Code: ir.OpAdd, Dest: rd, Src1: ra, Src2: rb})
	m.MarkExternal(rd)
	return m
}

func TestConstFoldReplacesAddWithLConst(t *testing.T) {
	m := buildAddConst(2, 3)
	if !ConstFold(m) {
		t.Fatal("expected ConstFold to report a change")
	}
	last := m.Ops[len(m.Ops)-1]
	if last.Code != ir.OpLConst || last.Value.Int != 5 {
		t.Fatalf("expected folded Add to become LConst 5, got %v", last)
	}
}

func TestConstFoldSkipsSelfReferentialUpdate(t *testing.T) {
	m := ir.NewModule()
	r := m.AllocReg()
	one := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: r, Value: ir.Int(0)})
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: one, Value: ir.Int(1)})
	loopIdx := m.Emit(ir.Op{Code: ir.OpAdd, Dest: r, Src1: r, Src2: one})
	ConstFold(m)
	if m.Ops[loopIdx].Code != ir.OpAdd {
		t.Fatalf("self-referential update must never be folded, got %v", m.Ops[loopIdx])
	}
}

func TestConstFoldLeavesDivisionByZeroUnfolded(t *testing.T) {
	m := ir.NewModule()
	ra := m.AllocReg()
	rb := m.AllocReg()
	rd := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: ra, Value: ir.Int(10)})
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: rb, Value: ir.Int(0)})
	divIdx := m.Emit(ir.Op{Code: ir.OpDiv, Dest: rd, Src1: ra, Src2: rb})
	ConstFold(m)
	if m.Ops[divIdx].Code != ir.OpDiv {
		t.Fatalf("division by zero must be left to trap at runtime, got %v", m.Ops[divIdx])
	}
}

func TestConstPropagateResolvesConstantGetProp(t *testing.T) {
	m := ir.NewModule()
	obj := m.AllocReg()
	key := m.AllocReg()
	dest := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: obj, Value: ir.Obj(map[string]ir.Value{"x": ir.Int(42)})})
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: key, Value: ir.Symbol("x")})
	gpIdx := m.Emit(ir.Op{Code: ir.OpGetProp, Dest: dest, Obj: obj, Key: key})
	if !ConstPropagate(m) {
		t.Fatal("expected ConstPropagate to fold constant-container GetProp")
	}
	if m.Ops[gpIdx].Code != ir.OpLConst || m.Ops[gpIdx].Value.Int != 42 {
		t.Fatalf("expected GetProp folded to LConst 42, got %v", m.Ops[gpIdx])
	}
}

func TestConstPropagateDoesNotFoldGetPropAfterSetProp(t *testing.T) {
	m := ir.NewModule()
	obj := m.AllocReg()
	key := m.AllocReg()
	val := m.AllocReg()
	dest := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: obj, Value: ir.Obj(map[string]ir.Value{})})
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: key, Value: ir.Symbol("x")})
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: val, Value: ir.Int(5)})
	m.Emit(ir.Op{Code: ir.OpSetProp, Obj: obj, Key: key, Src: val})
	gpIdx := m.Emit(ir.Op{Code: ir.OpGetProp, Dest: dest, Obj: obj, Key: key})
	ConstPropagate(m)
	if m.Ops[gpIdx].Code == ir.OpLConst {
		t.Fatalf("GetProp must not fold against a container's pre-SetProp snapshot, got %v", m.Ops[gpIdx])
	}
}

func TestConstPropagateDoesNotFoldArrayGetAfterArraySet(t *testing.T) {
	m := ir.NewModule()
	arr := m.AllocReg()
	idx := m.AllocReg()
	val := m.AllocReg()
	dest := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpArrayNew, Dest: arr})
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: idx, Value: ir.Int(0)})
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: val, Value: ir.Int(9)})
	m.Emit(ir.Op{Code: ir.OpArraySet, Array: arr, Index: idx, Src: val})
	agIdx := m.Emit(ir.Op{Code: ir.OpArrayGet, Dest: dest, Array: arr, Index: idx})
	ConstPropagate(m)
	if m.Ops[agIdx].Code == ir.OpLConst {
		t.Fatalf("ArrayGet must not fold against a container's pre-ArraySet snapshot, got %v", m.Ops[agIdx])
	}
}

func TestConstPropagateDoesNotFoldThroughLocalAfterSetProp(t *testing.T) {
	// The object is stored to a local before mutation, then re-read from
	// that same local through a fresh register after the mutation; the
	// local snapshot must not survive the SetProp either.
	m := ir.NewModule()
	obj := m.AllocReg()
	key := m.AllocReg()
	val := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: obj, Value: ir.Obj(map[string]ir.Value{})})
	m.Emit(ir.Op{Code: ir.OpSLocal, Src: obj, Local: 0})
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: key, Value: ir.Symbol("x")})
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: val, Value: ir.Int(5)})
	reload := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLLocal, Dest: reload, Local: 0})
	m.Emit(ir.Op{Code: ir.OpSetProp, Obj: reload, Key: key, Src: val})
	secondLoad := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLLocal, Dest: secondLoad, Local: 0})
	dest := m.AllocReg()
	gpIdx := m.Emit(ir.Op{Code: ir.OpGetProp, Dest: dest, Obj: secondLoad, Key: key})
	ConstPropagate(m)
	if m.Ops[gpIdx].Code == ir.OpLConst {
		t.Fatalf("GetProp must not fold against a local's pre-mutation object snapshot, got %v", m.Ops[gpIdx])
	}
}

func TestConstPropagateClearsLocalsAcrossLabel(t *testing.T) {
	m := ir.NewModule()
	r := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: r, Value: ir.Int(7)})
	m.Emit(ir.Op{Code: ir.OpSLocal, Src: r, Local: 0})
	m.Emit(ir.Op{Code: ir.OpLabel, Name: "L0"})
	dest := m.AllocReg()
	llIdx := m.Emit(ir.Op{Code: ir.OpLLocal, Dest: dest, Local: 0})
	ConstPropagate(m)
	if m.Ops[llIdx].Code == ir.OpLConst {
		t.Fatalf("local constant must not survive across a Label boundary, got %v", m.Ops[llIdx])
	}
}

func TestConstCanonicalizeMergesDuplicateConstants(t *testing.T) {
	m := ir.NewModule()
	r1 := m.AllocReg()
	r2 := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: r1, Value: ir.Int(9)})
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: r2, Value: ir.Int(9)})
	use := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpAdd, Dest: use, Src1: r1, Src2: r2})
	if !ConstCanonicalize(m) {
		t.Fatal("expected ConstCanonicalize to merge duplicate LConst 9 registers")
	}
	if len(m.Ops) != 2 {
		t.Fatalf("expected the duplicate LConst to be removed, got %d ops:\n%s", len(m.Ops), m.Disassemble())
	}
}

func TestConstCanonicalizeNeverMergesAwayPluginProducer(t *testing.T) {
	m := ir.NewModule()
	r1 := m.AllocReg()
	r2 := m.AllocReg()
	idx1 := m.Emit(ir.Op{Code: ir.OpLConst, Dest: r1, Value: ir.Int(1)})
	idx2 := m.Emit(ir.Op{Code: ir.OpLConst, Dest: r2, Value: ir.Int(1)})
	m.MarkPluginProducer(idx2)
	ConstCanonicalize(m)
	if m.Ops[idx1].Code != ir.OpLConst || m.Ops[idx2].Code != ir.OpLConst {
		t.Fatalf("plugin-producer LConst must never be elided, got:\n%s", m.Disassemble())
	}
}

func TestConstCanonicalizeNeverMergesLoopCarriedRegister(t *testing.T) {
	m := ir.NewModule()
	r := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: r, Value: ir.Int(0)})
	head := m.Emit(ir.Op{Code: ir.OpLabel, Name: "Lhead"})
	m.Emit(ir.Op{Code: ir.OpInc, Dest: r})
	m.Emit(ir.Op{Code: ir.OpJump, Target: head})
	other := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: other, Value: ir.Int(0)})
	if ConstCanonicalize(m) {
		// merging is only illegal if it actually tried to fold the
		// loop-carried register away; verify r's own LConst op is untouched.
		if m.Ops[0].Code != ir.OpLConst || m.Ops[0].Dest != r {
			t.Fatalf("loop-carried register's LConst must not be merged away, got:\n%s", m.Disassemble())
		}
	}
}

func TestDCERemovesUnusedPureOp(t *testing.T) {
	m := ir.NewModule()
	r := m.AllocReg()
	dead := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: r, Value: ir.Int(1)})
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: dead, Value: ir.Int(2)})
	m.MarkExternal(r)
	if !DCE(m) {
		t.Fatal("expected DCE to remove the unused constant")
	}
	if len(m.Ops) != 1 {
		t.Fatalf("expected exactly one surviving op, got %d:\n%s", len(m.Ops), m.Disassemble())
	}
}

func TestDCENeverRemovesSLocalEvenWhenLocalUnread(t *testing.T) {
	m := ir.NewModule()
	r := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: r, Value: ir.Int(1)})
	m.Emit(ir.Op{Code: ir.OpSLocal, Src: r, Local: 0})
	m.MarkExternal(r)
	DCE(m)
	found := false
	for _, op := range m.Ops {
		if op.Code == ir.OpSLocal {
			found = true
		}
	}
	if !found {
		t.Fatalf("SLocal must never be eliminated by DCE, got:\n%s", m.Disassemble())
	}
}

func TestDCEPreservesLoopCounterAcrossBackwardJump(t *testing.T) {
	// A register written once before a loop, read only at the top of the
	// next iteration via a backward Jump: single-pass backward liveness
	// would wrongly call the Inc dead; the fixed-point CFG liveness must not.
	m := ir.NewModule()
	ri := m.AllocReg()
	limit := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: ri, Value: ir.Int(0)})
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: limit, Value: ir.Int(10)})
	head := m.Emit(ir.Op{Code: ir.OpLabel, Name: "Lhead"})
	rc := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLt, Dest: rc, Src1: ri, Src2: limit})
	brIdx := m.Emit(ir.Op{Code: ir.OpBrFalse, Src: rc, Target: 0})
	incIdx := m.Emit(ir.Op{Code: ir.OpInc, Dest: ri})
	m.Emit(ir.Op{Code: ir.OpJump, Target: head})
	end := m.Emit(ir.Op{Code: ir.OpLabel, Name: "Lend"})
	m.Ops[brIdx].Target = end

	DCE(m)
	foundInc := false
	for _, op := range m.Ops {
		if op.Code == ir.OpInc && op.Dest == ri {
			foundInc = true
		}
	}
	_ = incIdx
	if !foundInc {
		t.Fatalf("loop counter Inc must survive since it feeds the next iteration's Lt, got:\n%s", m.Disassemble())
	}
}

func TestVerifyRejectsUseBeforeDef(t *testing.T) {
	m := ir.NewModule()
	r := m.AllocReg()
	undefined := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpAdd, Dest: r, Src1: undefined, Src2: undefined})
	if err := Verify(m); err == nil {
		t.Fatal("expected Verify to reject a read of an undefined register")
	}
}

func TestVerifyRejectsUnresolvedCallLabel(t *testing.T) {
	m := ir.NewModule()
	dest := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpCallLabel, Dest: dest, LabelIndex: 3})
	if err := Verify(m); err == nil {
		t.Fatal("expected Verify to reject a CallLabel with no matching Label")
	}
}

func TestVerifyRejectsOutOfRangeBranchTarget(t *testing.T) {
	m := ir.NewModule()
	cond := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: cond, Value: ir.Bool(true)})
	m.Emit(ir.Op{Code: ir.OpBrFalse, Src: cond, Target: 99})
	if err := Verify(m); err == nil {
		t.Fatal("expected Verify to reject an out-of-range branch target")
	}
}

func TestOptimizeIsIdempotent(t *testing.T) {
	m := buildAddConst(2, 3)
	if err := Optimize(m); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	snapshot := m.Disassemble()
	if err := Optimize(m); err != nil {
		t.Fatalf("second Optimize failed: %v", err)
	}
	if m.Disassemble() != snapshot {
		t.Fatalf("Optimize must be idempotent, got different output on second pass:\nfirst:\n%s\nsecond:\n%s", snapshot, m.Disassemble())
	}
}

func TestOptimizeConvergesWithinSweepCap(t *testing.T) {
	m := buildAddConst(1, 1)
	if err := Optimize(m); err != nil {
		t.Fatalf("expected convergence within %d sweeps, got %v", MaxSweeps, err)
	}
}
