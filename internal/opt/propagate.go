package opt

import "github.com/ColtMcG1/Mainstage/internal/ir"

// ConstPropagate tracks known constant values per register and per local
// slot across straight-line code, clearing both at every Label (a function
// boundary, or a loop/branch join point a callee may reach with varying
// arguments even when one call site passes a literal). Beyond what
// ConstFold already resolves, it also folds GetProp/ArrayGet against a
// statically known container and key/index; a SetProp/ArraySet on that
// container invalidates its entry so a later read can't fold against its
// pre-mutation snapshot.
func ConstPropagate(m *ir.Module) bool {
	known := map[int]ir.Value{}
	locals := map[int]ir.Value{}
	changed := false

	for i := range m.Ops {
		op := &m.Ops[i]

		switch op.Code {
		case ir.OpLabel:
			known = map[int]ir.Value{}
			locals = map[int]ir.Value{}
			continue

		case ir.OpLConst:
			known[op.Dest] = op.Value
			continue

		case ir.OpSLocal:
			if v, ok := known[op.Src]; ok {
				locals[op.Local] = v
			} else {
				delete(locals, op.Local)
			}
			continue

		case ir.OpLLocal:
			if v, ok := locals[op.Local]; ok {
				*op = ir.Op{Code: ir.OpLConst, Dest: op.Dest, Value: v}
				known[op.Dest] = v
				changed = true
			} else {
				delete(known, op.Dest)
			}
			continue

		case ir.OpGetProp:
			if obj, ok := known[op.Obj]; ok && (obj.Kind == ir.KindObject || obj.Kind == ir.KindArray || obj.Kind == ir.KindStr) {
				if key, ok := known[op.Key]; ok && (key.Kind == ir.KindStr || key.Kind == ir.KindSymbol) {
					v, resolved := resolveConstProp(obj, key.Str)
					if resolved {
						*op = ir.Op{Code: ir.OpLConst, Dest: op.Dest, Value: v}
						known[op.Dest] = v
						changed = true
						continue
					}
				}
			}

		case ir.OpArrayGet:
			if arr, ok := known[op.Array]; ok && arr.Kind == ir.KindArray {
				if idx, ok := known[op.Index]; ok && idx.Kind == ir.KindInt {
					var v ir.Value
					if idx.Int >= 0 && idx.Int < int64(len(arr.Array)) {
						v = arr.Array[idx.Int]
					} else {
						v = ir.Null()
					}
					*op = ir.Op{Code: ir.OpLConst, Dest: op.Dest, Value: v}
					known[op.Dest] = v
					changed = true
					continue
				}
			}

		case ir.OpSetProp:
			delete(known, op.Obj)
			// A local slot may hold the same container by identity (stored
			// via SLocal before this mutation, reachable again via LLocal
			// after it); the analysis has no reverse register-to-local
			// mapping to invalidate precisely, so drop every local snapshot.
			locals = map[int]ir.Value{}
			continue

		case ir.OpArraySet:
			delete(known, op.Array)
			locals = map[int]ir.Value{}
			continue
		}

		if dest, ok := op.WritesReg(); ok {
			delete(known, dest)
		}
	}
	return changed
}

func resolveConstProp(container ir.Value, key string) (ir.Value, bool) {
	switch container.Kind {
	case ir.KindObject:
		if key == "length" {
			return ir.Int(int64(len(container.Object))), true
		}
		if v, ok := container.Object[key]; ok {
			return v, true
		}
		return ir.Null(), true
	case ir.KindArray:
		if key == "length" {
			return ir.Int(int64(len(container.Array))), true
		}
		return ir.Value{}, false
	case ir.KindStr:
		if key == "length" {
			return ir.Int(int64(len(container.Str))), true
		}
		return ir.Value{}, false
	}
	return ir.Value{}, false
}
