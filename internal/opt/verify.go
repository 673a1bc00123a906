package opt

import (
	"fmt"

	"github.com/ColtMcG1/Mainstage/internal/ir"
)

// VerifyError reports a use-before-def, an out-of-range branch target, or an
// unresolved CallLabel found by Verify, naming the offending op index.
type VerifyError struct {
	OpIndex int
	Reason  string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("opt: verify failed at op %d: %s", e.OpIndex, e.Reason)
}

// Verify checks the three invariants the optimizer must never violate:
// every register read has a reachable prior writer, every branch/jump
// target is a valid op index, and every CallLabel resolves to an emitted
// Label.
func Verify(m *ir.Module) error {
	for i, op := range m.Ops {
		switch op.Code {
		case ir.OpJump, ir.OpBrTrue, ir.OpBrFalse:
			if op.Target < 0 || op.Target >= len(m.Ops) {
				return &VerifyError{OpIndex: i, Reason: fmt.Sprintf("branch target %d out of range", op.Target)}
			}
		case ir.OpCallLabel:
			name := fmt.Sprintf("L%d", op.LabelIndex)
			if _, ok := m.Labels[name]; !ok {
				return &VerifyError{OpIndex: i, Reason: fmt.Sprintf("CallLabel target %s does not resolve", name)}
			}
		}
	}
	if err := verifyUseBeforeDef(m); err != nil {
		return err
	}
	return nil
}

// verifyUseBeforeDef runs a forward fixed point over written-register sets
// per op (the dataflow dual of DCE's liveness) and fails if any op reads a
// register not guaranteed written on every path reaching it.
func verifyUseBeforeDef(m *ir.Module) error {
	n := len(m.Ops)
	if n == 0 {
		return nil
	}
	writtenBefore := make([]map[int]bool, n)
	for i := range writtenBefore {
		writtenBefore[i] = nil // nil = not yet computed (top, i.e. "everything")
	}
	entryLive := map[int]bool{}
	writtenBefore[0] = entryLive

	preds := make([][]int, n)
	for i := 0; i < n; i++ {
		for _, s := range successors(m, i) {
			preds[s] = append(preds[s], i)
		}
	}

	maxIter := n*4 + 32
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			var in map[int]bool
			if i == 0 {
				in = map[int]bool{}
			} else if len(preds[i]) == 0 {
				// Unreached by any predecessor edge (a function entry Label
				// reached only via CallLabel, not a static fallthrough),
				// treat as its own fresh entry.
				in = map[int]bool{}
			} else {
				first := true
				for _, p := range preds[i] {
					if writtenBefore[p] == nil {
						continue
					}
					after := withWrite(writtenBefore[p], m.Ops[p])
					if first {
						in = copySet(after)
						first = false
					} else {
						in = intersect(in, after)
					}
				}
				if first {
					continue // no predecessor computed yet
				}
			}
			if !mapsEqual(in, writtenBefore[i]) {
				writtenBefore[i] = in
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for i, op := range m.Ops {
		wb := writtenBefore[i]
		if wb == nil {
			continue
		}
		var reads []int
		reads = op.ReadsRegs(reads)
		for _, r := range reads {
			if !wb[r] {
				return &VerifyError{OpIndex: i, Reason: fmt.Sprintf("register %d read before definition on some path", r)}
			}
		}
	}
	return nil
}

func withWrite(in map[int]bool, op ir.Op) map[int]bool {
	out := copySet(in)
	if dest, ok := op.WritesReg(); ok {
		out[dest] = true
	}
	return out
}

func copySet(in map[int]bool) map[int]bool {
	out := make(map[int]bool, len(in))
	for k := range in {
		out[k] = true
	}
	return out
}

func intersect(a, b map[int]bool) map[int]bool {
	out := map[int]bool{}
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}
