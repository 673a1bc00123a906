package opt

import "github.com/ColtMcG1/Mainstage/internal/ir"

// ConstCanonicalize merges LConst ops that provably hold the same constant
// into one canonical register, rewriting every use through the merge and
// removing the now-redundant duplicate. A register is only eligible to be
// merged away, or to serve as the canonical target of a merge, if it is
// written exactly once in the whole module; a register rewritten again
// later (a loop-carried counter, say) can't safely alias another register's
// identity. An LConst whose op index is a plugin producer is never merged
// away, even when an identical constant already has a canonical register.
func ConstCanonicalize(m *ir.Module) bool {
	writeCount := map[int]int{}
	for _, op := range m.Ops {
		if dest, ok := op.WritesReg(); ok {
			writeCount[dest]++
		}
	}

	canonical := map[string]int{}
	remap := map[int]int{}
	keep := make([]bool, len(m.Ops))
	for i := range keep {
		keep[i] = true
	}
	changed := false

	for i, op := range m.Ops {
		if op.Code != ir.OpLConst {
			continue
		}
		if writeCount[op.Dest] != 1 {
			continue
		}
		if m.PluginProducers[i] {
			continue
		}
		key := op.Value.ConstKey()
		if canon, ok := canonical[key]; ok {
			remap[op.Dest] = canon
			keep[i] = false
			changed = true
			continue
		}
		canonical[key] = op.Dest
	}

	if !changed {
		return false
	}
	m.RewriteRegs(remap)
	m.Reindex(keep)
	return true
}
