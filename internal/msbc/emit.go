package msbc

import (
	"fmt"

	"github.com/ColtMcG1/Mainstage/internal/ir"
)

// Emit serializes m to the MSBC byte format, deterministically: ops are
// written in module order and object constant keys are sorted, so the same
// module always produces the same bytes.
func Emit(m *ir.Module) ([]byte, error) {
	buf := make([]byte, 0, 64+len(m.Ops)*12)
	buf = append(buf, magic...)
	buf = putU32(buf, fileVersion)
	buf = putU32(buf, uint32(len(m.Ops)))

	for i, op := range m.Ops {
		b, ok := opByte[op.Code]
		if !ok {
			return nil, fmt.Errorf("msbc: op %d has no wire encoding for %s", i, op.Code)
		}
		buf = append(buf, b)
		buf = encodeOpPayload(buf, op)
	}
	return buf, nil
}

func encodeOpPayload(buf []byte, op ir.Op) []byte {
	switch op.Code {
	case ir.OpLConst:
		buf = putU32(buf, uint32(op.Dest))
		buf = encodeValue(buf, op.Value)
	case ir.OpLLocal:
		buf = putU32(buf, uint32(op.Dest))
		buf = putU32(buf, uint32(op.Local))
	case ir.OpSLocal:
		buf = putU32(buf, uint32(op.Src))
		buf = putU32(buf, uint32(op.Local))
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod,
		ir.OpEq, ir.OpNeq, ir.OpLt, ir.OpLte, ir.OpGt, ir.OpGte, ir.OpAnd, ir.OpOr:
		buf = putU32(buf, uint32(op.Dest))
		buf = putU32(buf, uint32(op.Src1))
		buf = putU32(buf, uint32(op.Src2))
	case ir.OpNot:
		buf = putU32(buf, uint32(op.Dest))
		buf = putU32(buf, uint32(op.Src))
	case ir.OpInc, ir.OpDec:
		buf = putU32(buf, uint32(op.Dest))
	case ir.OpLabel:
		buf = putString(buf, op.Name)
	case ir.OpJump:
		buf = putU32(buf, uint32(op.Target))
	case ir.OpBrTrue, ir.OpBrFalse:
		buf = putU32(buf, uint32(op.Src))
		buf = putU32(buf, uint32(op.Target))
	case ir.OpHalt:
		// no payload
	case ir.OpCall:
		buf = putU32(buf, uint32(op.Dest))
		buf = putU32(buf, uint32(op.Func))
		buf = putU32(buf, uint32(len(op.Args)))
		for _, a := range op.Args {
			buf = putU32(buf, uint32(a))
		}
	case ir.OpCallLabel:
		buf = putU32(buf, uint32(op.Dest))
		buf = putU32(buf, uint32(op.LabelIndex))
		buf = putU32(buf, uint32(len(op.Args)))
		for _, a := range op.Args {
			buf = putU32(buf, uint32(a))
		}
	case ir.OpRet:
		buf = putU32(buf, uint32(op.Src))
	case ir.OpArrayNew:
		buf = putU32(buf, uint32(op.Dest))
		buf = putU32(buf, uint32(len(op.Elems)))
		for _, e := range op.Elems {
			buf = putU32(buf, uint32(e))
		}
	case ir.OpArrayGet:
		buf = putU32(buf, uint32(op.Dest))
		buf = putU32(buf, uint32(op.Array))
		buf = putU32(buf, uint32(op.Index))
	case ir.OpArraySet:
		buf = putU32(buf, uint32(op.Array))
		buf = putU32(buf, uint32(op.Index))
		buf = putU32(buf, uint32(op.Src))
	case ir.OpGetProp:
		buf = putU32(buf, uint32(op.Dest))
		buf = putU32(buf, uint32(op.Obj))
		buf = putU32(buf, uint32(op.Key))
	case ir.OpSetProp:
		buf = putU32(buf, uint32(op.Obj))
		buf = putU32(buf, uint32(op.Key))
		buf = putU32(buf, uint32(op.Src))
	case ir.OpLoadGlobal:
		buf = putU32(buf, uint32(op.Dest))
		buf = putU32(buf, uint32(op.Src))
	}
	return buf
}
