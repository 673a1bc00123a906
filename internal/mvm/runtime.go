package mvm

import "github.com/ColtMcG1/Mainstage/internal/ir"

// evalBinop computes a binary op's runtime result leniently (§7:
// type-mismatched operations yield Null rather than aborting), except for
// Int/Int division or modulo by zero, which §7 classifies as a Runtime
// error surfaced as an error Str in the destination register rather than a
// silent Null. Float division by zero follows IEEE-754 instead.
func evalBinop(code ir.OpCode, a, b ir.Value) ir.Value {
	switch code {
	case ir.OpAdd:
		if a.Kind == ir.KindStr || b.Kind == ir.KindStr || a.Kind == ir.KindSymbol || b.Kind == ir.KindSymbol {
			return ir.Str(a.String() + b.String())
		}
		if v, ok := ir.ComputeBinop(code, a, b); ok {
			return v
		}
		return ir.Null()

	case ir.OpSub, ir.OpMul:
		if v, ok := ir.ComputeBinop(code, a, b); ok {
			return v
		}
		return ir.Null()

	case ir.OpDiv:
		if a.Kind == ir.KindInt && b.Kind == ir.KindInt {
			if b.Int == 0 {
				return ir.Str("division by zero")
			}
			return ir.Int(a.Int / b.Int)
		}
		fa, ok1 := a.AsFloat64()
		fb, ok2 := b.AsFloat64()
		if !ok1 || !ok2 {
			return ir.Null()
		}
		return ir.Float(fa / fb) // IEEE-754 governs fb == 0 (±Inf/NaN)

	case ir.OpMod:
		if a.Kind == ir.KindInt && b.Kind == ir.KindInt {
			if b.Int == 0 {
				return ir.Str("modulo by zero")
			}
			return ir.Int(a.Int % b.Int)
		}
		return ir.Null()

	case ir.OpEq, ir.OpNeq, ir.OpLt, ir.OpLte, ir.OpGt, ir.OpGte, ir.OpAnd, ir.OpOr:
		if v, ok := ir.ComputeBinop(code, a, b); ok {
			return v
		}
		return ir.Null()
	}
	return ir.Null()
}

func evalNot(a ir.Value) ir.Value {
	return ir.Bool(!a.AsBool())
}
