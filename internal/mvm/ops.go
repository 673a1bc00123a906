package mvm

import (
	"fmt"

	"github.com/ColtMcG1/Mainstage/internal/ir"
)

// exec runs one op against the current frame, advancing vm.pc per the
// op's own control-transfer rule (or pc+1 by default). halt is true once
// the top frame's Ret or an explicit Halt has been reached.
func (vm *VM) exec(op ir.Op) (halt bool, err error) {
	f := vm.frame()
	advance := true

	switch op.Code {
	case ir.OpLConst:
		f.setReg(op.Dest, op.Value.Clone())

	case ir.OpLLocal:
		f.setReg(op.Dest, f.getLocal(op.Local))

	case ir.OpSLocal:
		f.setLocal(op.Local, f.getReg(op.Src))

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod,
		ir.OpEq, ir.OpNeq, ir.OpLt, ir.OpLte, ir.OpGt, ir.OpGte, ir.OpAnd, ir.OpOr:
		f.setReg(op.Dest, evalBinop(op.Code, f.getReg(op.Src1), f.getReg(op.Src2)))

	case ir.OpNot:
		f.setReg(op.Dest, evalNot(f.getReg(op.Src)))

	case ir.OpInc:
		cur := f.getReg(op.Dest)
		if cur.Kind == ir.KindInt {
			f.setReg(op.Dest, ir.Int(cur.Int+1))
		}

	case ir.OpDec:
		cur := f.getReg(op.Dest)
		if cur.Kind == ir.KindInt {
			f.setReg(op.Dest, ir.Int(cur.Int-1))
		}

	case ir.OpLabel:
		// marker only

	case ir.OpJump:
		vm.pc = op.Target
		advance = false

	case ir.OpBrTrue:
		if f.getReg(op.Src).AsBool() {
			vm.pc = op.Target
			advance = false
		}

	case ir.OpBrFalse:
		if !f.getReg(op.Src).AsBool() {
			vm.pc = op.Target
			advance = false
		}

	case ir.OpHalt:
		return true, nil

	case ir.OpCall:
		vm.execCall(f, op)

	case ir.OpCallLabel:
		vm.execCallLabel(f, op)
		advance = false

	case ir.OpRet:
		h, e := vm.execRet(f, op)
		return h, e

	case ir.OpArrayNew:
		elems := make([]ir.Value, len(op.Elems))
		for i, r := range op.Elems {
			elems[i] = f.getReg(r).Clone()
		}
		f.setReg(op.Dest, ir.Arr(elems))

	case ir.OpArrayGet:
		arr := f.getReg(op.Array)
		idx := f.getReg(op.Index)
		f.setReg(op.Dest, arrayGet(arr, idx))

	case ir.OpArraySet:
		vm.execArraySet(f, op)

	case ir.OpGetProp:
		obj := f.getReg(op.Obj)
		key := f.getReg(op.Key)
		f.setReg(op.Dest, getProp(obj, key))

	case ir.OpSetProp:
		vm.execSetProp(f, op)

	case ir.OpLoadGlobal:
		f.setReg(op.Dest, vm.globalFrame().getReg(op.Src).Clone())

	default:
		return false, fmt.Errorf("mvm: unhandled opcode %s", op.Code)
	}

	if advance {
		vm.pc++
	}
	return false, nil
}

func (vm *VM) execCallLabel(f *Frame, op ir.Op) {
	name := fmt.Sprintf("L%d", op.LabelIndex)
	idx, ok := vm.Module.Labels[name]
	if !ok {
		f.setReg(op.Dest, ir.Str(fmt.Sprintf("unresolved call to %s", name)))
		vm.pc++
		return
	}
	callee := newFrame()
	callee.HasCaller = true
	callee.ReturnPC = vm.pc + 1
	callee.ReturnReg = op.Dest
	for i, r := range op.Args {
		callee.setLocal(i, f.getReg(r).Clone())
	}
	vm.frames = append(vm.frames, callee)
	vm.pc = idx + 1
}

func (vm *VM) execRet(f *Frame, op ir.Op) (bool, error) {
	value := f.getReg(op.Src)
	vm.last = value
	popped := f
	vm.frames = vm.frames[:len(vm.frames)-1]
	if !popped.HasCaller {
		return true, nil
	}
	caller := vm.frame()
	caller.setReg(popped.ReturnReg, value)
	vm.pc = popped.ReturnPC
	return false, nil
}
