package mvm

import "github.com/ColtMcG1/Mainstage/internal/ir"

// arrayGet returns Null for a non-Array target, a non-Int index, or an
// out-of-range index (§4.4, §8 boundary behaviors).
func arrayGet(arr, idx ir.Value) ir.Value {
	if arr.Kind != ir.KindArray || idx.Kind != ir.KindInt {
		return ir.Null()
	}
	if idx.Int < 0 || idx.Int >= int64(len(arr.Array)) {
		return ir.Null()
	}
	return arr.Array[idx.Int].Clone()
}

// getProp supports "length" on Str (UTF-8 bytes)/Array/Object and otherwise looks up an
// Object's key; a non-Object with a non-length key yields Null.
func getProp(obj, key ir.Value) ir.Value {
	name := key.Str
	switch obj.Kind {
	case ir.KindStr:
		if name == "length" {
			return ir.Int(int64(len(obj.Str)))
		}
		return ir.Null()
	case ir.KindArray:
		if name == "length" {
			return ir.Int(int64(len(obj.Array)))
		}
		return ir.Null()
	case ir.KindObject:
		if name == "length" {
			return ir.Int(int64(len(obj.Object)))
		}
		if v, ok := obj.Object[name]; ok {
			return v.Clone()
		}
		return ir.Null()
	}
	return ir.Null()
}

// execArraySet grows the array with Null fill if the index exceeds length,
// and promotes a non-Array target in place to a fresh single-element Array
// padded with Null up to the index before writing (adopted from
// original-source behavior filling a spec silence, §4.4).
func (vm *VM) execArraySet(f *Frame, op ir.Op) {
	target := f.getReg(op.Array)
	idx := f.getReg(op.Index)
	val := f.getReg(op.Src)

	if idx.Kind != ir.KindInt || idx.Int < 0 {
		return
	}

	var arr []ir.Value
	if target.Kind == ir.KindArray {
		arr = target.Array
	} else {
		arr = nil
	}
	for int64(len(arr)) <= idx.Int {
		arr = append(arr, ir.Null())
	}
	arr[idx.Int] = val.Clone()
	f.setReg(op.Array, ir.Arr(arr))
}

// execSetProp promotes a non-Object target to a new empty Object before
// assignment (§4.4).
func (vm *VM) execSetProp(f *Frame, op ir.Op) {
	target := f.getReg(op.Obj)
	key := f.getReg(op.Key)
	val := f.getReg(op.Src)

	var obj map[string]ir.Value
	if target.Kind == ir.KindObject {
		obj = target.Object
	} else {
		obj = map[string]ir.Value{}
	}
	obj[key.Str] = val.Clone()
	f.setReg(op.Obj, ir.Obj(obj))
}
