package ir

import "fmt"

// Module is the in-memory IR the optimizer mutates in place before emission.
type Module struct {
	Ops []Op

	// Labels maps a label name to its op index. Populated as Label ops are
	// emitted, kept in sync by the optimizer whenever ops are removed or
	// reordered (via Reindex).
	Labels map[string]int

	// ExternallyVisible holds every register whose final value must remain
	// observable after optimization: top-level statement results, and every
	// register that feeds a host or plugin call.
	ExternallyVisible map[int]bool

	// PluginProducers holds op indices that feed a plugin call and must
	// survive DCE even if their value looks unused downstream.
	PluginProducers map[int]bool

	nextReg int
}

func NewModule() *Module {
	return &Module{
		Labels:            map[string]int{},
		ExternallyVisible: map[int]bool{},
		PluginProducers:   map[int]bool{},
	}
}

// AllocReg returns a fresh register index.
func (m *Module) AllocReg() int {
	r := m.nextReg
	m.nextReg++
	return r
}

// Emit appends op and records a Label op's position.
func (m *Module) Emit(op Op) int {
	idx := len(m.Ops)
	m.Ops = append(m.Ops, op)
	if op.Code == OpLabel {
		m.Labels[op.Name] = idx
	}
	return idx
}

// MarkExternal records reg as externally visible.
func (m *Module) MarkExternal(reg int) {
	m.ExternallyVisible[reg] = true
}

// MarkPluginProducer records idx as an op index that must survive DCE.
func (m *Module) MarkPluginProducer(idx int) {
	m.PluginProducers[idx] = true
}

// RewriteRegs applies remap to every op, to ExternallyVisible, and leaves
// PluginProducers untouched (it indexes ops, not registers; canonicalize.go
// is responsible for keeping plugin-producer ops un-elided instead).
func (m *Module) RewriteRegs(remap map[int]int) {
	if len(remap) == 0 {
		return
	}
	for i := range m.Ops {
		m.Ops[i].RewriteRegs(remap)
	}
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
	newVis := map[int]bool{}
	for r := range m.ExternallyVisible {
		newVis[rw(r)] = true
	}
	m.ExternallyVisible = newVis
}

// Reindex drops every op i with keep[i] false from the Ops slice, then
// rewrites Jump/BrTrue/BrFalse targets, the Labels map and PluginProducers
// to the surviving ops' new indices.
func (m *Module) Reindex(keep []bool) {
	oldToNew := make([]int, len(keep))
	newOps := make([]Op, 0, len(m.Ops))
	nextPluginProducers := map[int]bool{}
	pos := 0
	for i, k := range keep {
		if k {
			oldToNew[i] = pos
			if m.PluginProducers[i] {
				nextPluginProducers[pos] = true
			}
			newOps = append(newOps, m.Ops[i])
			pos++
		} else {
			oldToNew[i] = -1
		}
	}
	for i := range newOps {
		switch newOps[i].Code {
		case OpJump, OpBrTrue, OpBrFalse:
			if t := newOps[i].Target; t >= 0 && t < len(oldToNew) {
				newOps[i].Target = oldToNew[t]
			}
		}
	}
	newLabels := map[string]int{}
	for name, idx := range m.Labels {
		if idx >= 0 && idx < len(oldToNew) && oldToNew[idx] >= 0 {
			newLabels[name] = oldToNew[idx]
		}
	}
	m.Ops = newOps
	m.Labels = newLabels
	m.PluginProducers = nextPluginProducers
}

// Disassemble renders the module one line per op, "{index:04d}: {mnemonic} {operands}".
func (m *Module) Disassemble() string {
	s := ""
	for i, op := range m.Ops {
		s += fmt.Sprintf("%04d: %s\n", i, describeOp(op))
	}
	return s
}

func describeOp(op Op) string {
	switch op.Code {
	case OpLConst:
		return fmt.Sprintf("LConst r%d <- %s", op.Dest, op.Value.String())
	case OpLLocal:
		return fmt.Sprintf("LLocal r%d <- local[%d]", op.Dest, op.Local)
	case OpSLocal:
		return fmt.Sprintf("SLocal local[%d] <- r%d", op.Local, op.Src)
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpAnd, OpOr:
		return fmt.Sprintf("%s r%d <- r%d, r%d", op.Code, op.Dest, op.Src1, op.Src2)
	case OpNot:
		return fmt.Sprintf("Not r%d <- r%d", op.Dest, op.Src)
	case OpInc, OpDec:
		return fmt.Sprintf("%s r%d", op.Code, op.Dest)
	case OpLabel:
		return fmt.Sprintf("Label %s", op.Name)
	case OpJump:
		return fmt.Sprintf("Jump -> %d", op.Target)
	case OpBrTrue, OpBrFalse:
		return fmt.Sprintf("%s r%d -> %d", op.Code, op.Src, op.Target)
	case OpHalt:
		return "Halt"
	case OpCall:
		return fmt.Sprintf("Call r%d <- r%d(%v)", op.Dest, op.Func, op.Args)
	case OpCallLabel:
		return fmt.Sprintf("CallLabel r%d <- L%d(%v)", op.Dest, op.LabelIndex, op.Args)
	case OpRet:
		return fmt.Sprintf("Ret r%d", op.Src)
	case OpArrayNew:
		return fmt.Sprintf("ArrayNew r%d <- %v", op.Dest, op.Elems)
	case OpArrayGet:
		return fmt.Sprintf("ArrayGet r%d <- r%d[r%d]", op.Dest, op.Array, op.Index)
	case OpArraySet:
		return fmt.Sprintf("ArraySet r%d[r%d] <- r%d", op.Array, op.Index, op.Src)
	case OpGetProp:
		return fmt.Sprintf("GetProp r%d <- r%d.r%d", op.Dest, op.Obj, op.Key)
	case OpSetProp:
		return fmt.Sprintf("SetProp r%d.r%d <- r%d", op.Obj, op.Key, op.Src)
	case OpLoadGlobal:
		return fmt.Sprintf("LoadGlobal r%d <- r%d", op.Dest, op.Src)
	}
	return "???"
}
