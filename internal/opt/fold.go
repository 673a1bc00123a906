// Package opt implements the fixed-point optimizer pipeline over an IR
// module: const-fold, const-propagate, const-canonicalize+remap, and dead
// code elimination, plus the verifier run after every sweep.
package opt

import "github.com/ColtMcG1/Mainstage/internal/ir"

// ConstFold replaces pure ops whose operands are statically known constants
// with LConst, skipping a self-referential update (dest equal to one of its
// own sources) even when the current value happens to be known, since that
// op is re-executed on every loop iteration and folding it would bake in a
// stale value.
func ConstFold(m *ir.Module) bool {
	known := map[int]ir.Value{}
	changed := false

	for i := range m.Ops {
		op := &m.Ops[i]

		if op.Code == ir.OpLabel {
			known = map[int]ir.Value{}
			continue
		}
		if op.Code == ir.OpLConst {
			known[op.Dest] = op.Value
			continue
		}

		if op.IsFoldable() && !selfReferential(op) {
			if v, ok := tryFold(op, known); ok {
				*op = ir.Op{Code: ir.OpLConst, Dest: op.Dest, Value: v}
				known[op.Dest] = v
				changed = true
				continue
			}
		}

		if dest, ok := op.WritesReg(); ok {
			delete(known, dest)
		}
	}
	return changed
}

func selfReferential(op *ir.Op) bool {
	if op.Code == ir.OpNot {
		return op.Dest == op.Src
	}
	return op.Dest == op.Src1 || op.Dest == op.Src2
}

func tryFold(op *ir.Op, known map[int]ir.Value) (ir.Value, bool) {
	if op.Code == ir.OpNot {
		a, ok := known[op.Src]
		if !ok {
			return ir.Value{}, false
		}
		return ir.ComputeBinop(op.Code, a, ir.Value{})
	}
	a, okA := known[op.Src1]
	b, okB := known[op.Src2]
	if !okA || !okB {
		return ir.Value{}, false
	}
	return ir.ComputeBinop(op.Code, a, b)
}
