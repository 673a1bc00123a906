// Package msbc implements the MSBC bytecode binary format: a deterministic
// encoder from an IR module and a decoder back into op/label structures,
// bit-exact with the wire opcode and value-tag tables.
package msbc

import "github.com/ColtMcG1/Mainstage/internal/ir"

const (
	magic        = "MSBC"
	fileVersion  = uint32(1)
	tagInt       = 0x01
	tagFloat     = 0x02
	tagBool      = 0x03
	tagStr       = 0x04
	tagSymbol    = 0x05
	tagArray     = 0x06
	tagNull      = 0x07
	tagObject    = 0x08
)

// opByte/byteOp map between ir.OpCode (Go-internal iota ordering) and the
// MSBC wire byte values, which are fixed and unrelated to iota order.
var opByte = map[ir.OpCode]byte{
	ir.OpLConst: 0x01,
	ir.OpLLocal: 0x02,
	ir.OpSLocal: 0x03,

	ir.OpAdd: 0x10,
	ir.OpSub: 0x11,
	ir.OpMul: 0x12,
	ir.OpDiv: 0x13,
	ir.OpMod: 0x14,

	ir.OpEq:  0x20,
	ir.OpNeq: 0x21,
	ir.OpLt:  0x22,
	ir.OpLte: 0x23,
	ir.OpGt:  0x24,
	ir.OpGte: 0x25,

	ir.OpAnd: 0x26,
	ir.OpOr:  0x27,
	ir.OpNot: 0x28,

	ir.OpInc: 0x30,
	ir.OpDec: 0x31,

	ir.OpLabel:   0x40,
	ir.OpJump:    0x41,
	ir.OpBrTrue:  0x42,
	ir.OpBrFalse: 0x43,

	ir.OpHalt: 0x50,

	ir.OpCall:      0x70,
	ir.OpCallLabel: 0x71,

	ir.OpRet: 0x80,

	ir.OpArrayNew: 0x90,
	ir.OpArrayGet: 0x91,
	ir.OpArraySet: 0x92,
	ir.OpGetProp:  0x93,
	ir.OpSetProp:  0x94,
	ir.OpLoadGlobal: 0x95,
}

var byteOp = func() map[byte]ir.OpCode {
	m := make(map[byte]ir.OpCode, len(opByte))
	for k, v := range opByte {
		m[v] = k
	}
	return m
}()
