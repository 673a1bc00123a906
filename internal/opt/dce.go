package opt

import "github.com/ColtMcG1/Mainstage/internal/ir"

// DCE removes ops whose destination register is never used downstream and
// which are pure and not a plugin producer. Calls, SetProp, ArraySet,
// SLocal, Ret, Jump, branches, and labels are never pure, so they always
// survive regardless of whether their result looks used; this explicitly
// keeps SLocal even when its local is never subsequently read.
//
// Liveness is a backward dataflow fixed point over the op graph (following
// Jump/BrTrue/BrFalse edges), not a single linear pass, because a
// loop-carried register is read by an earlier-indexed op on the next
// iteration via a backward Jump.
func DCE(m *ir.Module) bool {
	n := len(m.Ops)
	if n == 0 {
		return false
	}

	liveIn := make([]map[int]bool, n)
	liveOut := make([]map[int]bool, n)
	for i := 0; i < n; i++ {
		liveIn[i] = map[int]bool{}
		liveOut[i] = map[int]bool{}
	}

	maxIter := n*4 + 32
	for iter := 0; iter < maxIter; iter++ {
		anyChange := false
		for i := n - 1; i >= 0; i-- {
			newOut := map[int]bool{}
			for r := range m.ExternallyVisible {
				newOut[r] = true
			}
			for _, s := range successors(m, i) {
				for r := range liveIn[s] {
					newOut[r] = true
				}
			}
			if !mapsEqual(newOut, liveOut[i]) {
				liveOut[i] = newOut
				anyChange = true
			}

			newIn := map[int]bool{}
			for r := range liveOut[i] {
				newIn[r] = true
			}
			if dest, ok := m.Ops[i].WritesReg(); ok {
				delete(newIn, dest)
			}
			var reads []int
			reads = m.Ops[i].ReadsRegs(reads)
			for _, r := range reads {
				newIn[r] = true
			}
			if !mapsEqual(newIn, liveIn[i]) {
				liveIn[i] = newIn
				anyChange = true
			}
		}
		if !anyChange {
			break
		}
	}

	keep := make([]bool, n)
	changed := false
	for i, op := range m.Ops {
		mustKeep := !op.IsPure() || m.PluginProducers[i]
		if !mustKeep {
			if dest, ok := op.WritesReg(); ok {
				mustKeep = liveOut[i][dest]
			}
		}
		keep[i] = mustKeep
		if !mustKeep {
			changed = true
		}
	}
	if !changed {
		return false
	}
	m.Reindex(keep)
	return true
}

func successors(m *ir.Module, i int) []int {
	op := m.Ops[i]
	switch op.Code {
	case ir.OpJump:
		if op.Target >= 0 && op.Target < len(m.Ops) {
			return []int{op.Target}
		}
		return nil
	case ir.OpBrTrue, ir.OpBrFalse:
		var out []int
		if i+1 < len(m.Ops) {
			out = append(out, i+1)
		}
		if op.Target >= 0 && op.Target < len(m.Ops) {
			out = append(out, op.Target)
		}
		return out
	case ir.OpRet:
		return nil
	}
	if i+1 < len(m.Ops) {
		return []int{i + 1}
	}
	return nil
}

func mapsEqual(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
