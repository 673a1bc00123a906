package msbc

import (
	"fmt"

	"github.com/ColtMcG1/Mainstage/internal/ir"
	"github.com/ColtMcG1/Mainstage/internal/merr"
)

// Parse decodes an MSBC byte stream into an ir.Module, rejecting bad magic,
// unsupported version, truncated payloads, unknown opcodes, and CallLabels
// that reference a label never emitted.
func Parse(data []byte) (*ir.Module, error) {
	if len(data) < 4 || string(data[:4]) != magic {
		return nil, &merr.LoadError{Offset: 0, Reason: "bad magic"}
	}
	r := &reader{data: data, pos: 4}

	version, err := r.u32()
	if err != nil {
		return nil, err
	}
	if version != fileVersion {
		return nil, &merr.LoadError{Offset: 4, Reason: fmt.Sprintf("unsupported version %d", version)}
	}

	opCount, err := r.u32()
	if err != nil {
		return nil, err
	}

	m := ir.NewModule()
	for i := uint32(0); i < opCount; i++ {
		op, err := decodeOp(r)
		if err != nil {
			return nil, err
		}
		m.Emit(op)
	}

	for i, op := range m.Ops {
		if op.Code == ir.OpCallLabel {
			name := fmt.Sprintf("L%d", op.LabelIndex)
			if _, ok := m.Labels[name]; !ok {
				return nil, &merr.LoadError{Offset: -1, Reason: fmt.Sprintf("op %d: CallLabel target %s unresolved", i, name)}
			}
		}
	}
	return m, nil
}

func decodeOp(r *reader) (ir.Op, error) {
	b, err := r.byte()
	if err != nil {
		return ir.Op{}, err
	}
	code, ok := byteOp[b]
	if !ok {
		return ir.Op{}, &merr.LoadError{Offset: r.pos - 1, Reason: fmt.Sprintf("unknown opcode byte 0x%02x", b)}
	}

	u32 := func() (int, error) {
		v, err := r.u32()
		return int(v), err
	}

	op := ir.Op{Code: code}
	var e error
	switch code {
	case ir.OpLConst:
		if op.Dest, e = u32(); e != nil {
			return op, e
		}
		if op.Value, e = decodeValue(r); e != nil {
			return op, e
		}
	case ir.OpLLocal:
		op.Dest, e = u32()
		if e == nil {
			op.Local, e = u32()
		}
	case ir.OpSLocal:
		op.Src, e = u32()
		if e == nil {
			op.Local, e = u32()
		}
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod,
		ir.OpEq, ir.OpNeq, ir.OpLt, ir.OpLte, ir.OpGt, ir.OpGte, ir.OpAnd, ir.OpOr:
		if op.Dest, e = u32(); e == nil {
			if op.Src1, e = u32(); e == nil {
				op.Src2, e = u32()
			}
		}
	case ir.OpNot:
		if op.Dest, e = u32(); e == nil {
			op.Src, e = u32()
		}
	case ir.OpInc, ir.OpDec:
		op.Dest, e = u32()
	case ir.OpLabel:
		op.Name, e = r.string()
	case ir.OpJump:
		op.Target, e = u32()
	case ir.OpBrTrue, ir.OpBrFalse:
		if op.Src, e = u32(); e == nil {
			op.Target, e = u32()
		}
	case ir.OpHalt:
		// no payload
	case ir.OpCall:
		if op.Dest, e = u32(); e == nil {
			if op.Func, e = u32(); e == nil {
				op.Args, e = decodeArgs(r, u32)
			}
		}
	case ir.OpCallLabel:
		if op.Dest, e = u32(); e == nil {
			if op.LabelIndex, e = u32(); e == nil {
				op.Args, e = decodeArgs(r, u32)
			}
		}
	case ir.OpRet:
		op.Src, e = u32()
	case ir.OpArrayNew:
		if op.Dest, e = u32(); e == nil {
			op.Elems, e = decodeArgs(r, u32)
		}
	case ir.OpArrayGet:
		if op.Dest, e = u32(); e == nil {
			if op.Array, e = u32(); e == nil {
				op.Index, e = u32()
			}
		}
	case ir.OpArraySet:
		if op.Array, e = u32(); e == nil {
			if op.Index, e = u32(); e == nil {
				op.Src, e = u32()
			}
		}
	case ir.OpGetProp:
		if op.Dest, e = u32(); e == nil {
			if op.Obj, e = u32(); e == nil {
				op.Key, e = u32()
			}
		}
	case ir.OpSetProp:
		if op.Obj, e = u32(); e == nil {
			if op.Key, e = u32(); e == nil {
				op.Src, e = u32()
			}
		}
	case ir.OpLoadGlobal:
		if op.Dest, e = u32(); e == nil {
			op.Src, e = u32()
		}
	}
	if e != nil {
		return op, e
	}
	return op, nil
}

func decodeArgs(r *reader, u32 func() (int, error)) ([]int, error) {
	n, err := u32()
	if err != nil {
		return nil, err
	}
	args := make([]int, n)
	for i := range args {
		args[i], err = u32()
		if err != nil {
			return nil, err
		}
	}
	return args, nil
}
