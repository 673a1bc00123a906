package msbc

import (
	"testing"

	"github.com/ColtMcG1/Mainstage/internal/ir"
)

func sampleModule() *ir.Module {
	m := ir.NewModule()
	ra := m.AllocReg()
	rb := m.AllocReg()
	rd := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: ra, Value: ir.Int(7)})
	m.Emit(ir.Op{Code: ir.OpLConst, Dest: rb, Value: ir.Obj(map[string]ir.Value{"b": ir.Bool(true), "a": ir.Int(1)})})
	m.Emit(ir.Op{Code: ir.OpAdd, Dest: rd, Src1: ra, Src2: ra})
	m.Emit(ir.Op{Code: ir.OpLabel, Name: "L0"})
	m.Emit(ir.Op{Code: ir.OpRet, Src: rd})
	return m
}

func TestRoundTripPreservesOpsAndLabels(t *testing.T) {
	m := sampleModule()
	data, err := Emit(m)
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(got.Ops) != len(m.Ops) {
		t.Fatalf("op count mismatch: want %d got %d", len(m.Ops), len(got.Ops))
	}
	for i := range m.Ops {
		if got.Ops[i].Code != m.Ops[i].Code {
			t.Fatalf("op %d code mismatch: want %s got %s", i, m.Ops[i].Code, got.Ops[i].Code)
		}
	}
	if got.Labels["L0"] != m.Labels["L0"] {
		t.Fatalf("label L0 index mismatch: want %d got %d", m.Labels["L0"], got.Labels["L0"])
	}
}

func TestEmitIsDeterministicAcrossObjectKeyOrder(t *testing.T) {
	m1 := ir.NewModule()
	r1 := m1.AllocReg()
	m1.Emit(ir.Op{Code: ir.OpLConst, Dest: r1, Value: ir.Obj(map[string]ir.Value{"z": ir.Int(1), "a": ir.Int(2)})})

	m2 := ir.NewModule()
	r2 := m2.AllocReg()
	m2.Emit(ir.Op{Code: ir.OpLConst, Dest: r2, Value: ir.Obj(map[string]ir.Value{"a": ir.Int(2), "z": ir.Int(1)})})

	d1, err := Emit(m1)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := Emit(m2)
	if err != nil {
		t.Fatal(err)
	}
	if string(d1) != string(d2) {
		t.Fatalf("expected identical bytes regardless of Go map iteration order")
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse([]byte("XXXX\x01\x00\x00\x00\x00\x00\x00\x00"))
	if err == nil {
		t.Fatal("expected an error for bad magic")
	}
}

func TestParseRejectsUnsupportedVersion(t *testing.T) {
	buf := []byte(magic)
	buf = putU32(buf, 99)
	buf = putU32(buf, 0)
	_, err := Parse(buf)
	if err == nil {
		t.Fatal("expected an error for unsupported version")
	}
}

func TestParseRejectsTruncatedStream(t *testing.T) {
	m := sampleModule()
	data, err := Emit(m)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Parse(data[:len(data)-3])
	if err == nil {
		t.Fatal("expected an error for a truncated stream")
	}
}

func TestParseRejectsUnknownOpcode(t *testing.T) {
	buf := []byte(magic)
	buf = putU32(buf, fileVersion)
	buf = putU32(buf, 1)
	buf = append(buf, 0xEE) // not a defined opcode byte
	_, err := Parse(buf)
	if err == nil {
		t.Fatal("expected an error for an unknown opcode byte")
	}
}

func TestParseRejectsUnresolvedCallLabel(t *testing.T) {
	m := ir.NewModule()
	dest := m.AllocReg()
	m.Emit(ir.Op{Code: ir.OpCallLabel, Dest: dest, LabelIndex: 4})
	data, err := Emit(m)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Parse(data)
	if err == nil {
		t.Fatal("expected an error for a CallLabel with no matching Label")
	}
}

func TestDisassembleBytesMatchesLiveModule(t *testing.T) {
	m := sampleModule()
	data, err := Emit(m)
	if err != nil {
		t.Fatal(err)
	}
	want := Disassemble(m)
	got, err := DisassembleBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("disassembly mismatch:\nwant:\n%s\ngot:\n%s", want, got)
	}
}
