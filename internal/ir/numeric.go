package ir

// ComputeBinop evaluates a pure binary or unary op given its already-resolved
// constant operand(s). It returns ok=false when the op cannot be folded
// (wrong operand kinds, or division/modulo by zero; those are left to trap
// at runtime per §4.2).
func ComputeBinop(code OpCode, a, b Value) (Value, bool) {
	switch code {
	case OpAdd:
		if a.Kind == KindStr || b.Kind == KindStr || a.Kind == KindSymbol || b.Kind == KindSymbol {
			return Str(a.String() + b.String()), true
		}
		return numericBinop(a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
	case OpSub:
		return numericBinop(a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
	case OpMul:
		return numericBinop(a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
	case OpDiv:
		if a.Kind == KindInt && b.Kind == KindInt {
			if b.Int == 0 {
				return Value{}, false
			}
			return numericBinop(a, b, func(x, y int64) int64 { return x / y }, func(x, y float64) float64 { return x / y })
		}
		fa, ok1 := a.AsFloat64()
		fb, ok2 := b.AsFloat64()
		if !ok1 || !ok2 || fb == 0 {
			return Value{}, false
		}
		return Float(fa / fb), true
	case OpMod:
		if a.Kind == KindInt && b.Kind == KindInt {
			if b.Int == 0 {
				return Value{}, false
			}
			return Int(a.Int % b.Int), true
		}
		return Value{}, false
	case OpEq:
		return Bool(valuesEqualLoose(a, b)), true
	case OpNeq:
		return Bool(!valuesEqualLoose(a, b)), true
	case OpLt, OpLte, OpGt, OpGte:
		return numericCompare(code, a, b)
	case OpAnd:
		return Bool(a.AsBool() && b.AsBool()), true
	case OpOr:
		return Bool(a.AsBool() || b.AsBool()), true
	case OpNot:
		if a.Kind == KindBool {
			return Bool(!a.Bool), true
		}
		return Value{}, false
	}
	return Value{}, false
}

func numericBinop(a, b Value, intOp func(int64, int64) int64, floatOp func(float64, float64) float64) (Value, bool) {
	if a.Kind == KindInt && b.Kind == KindInt {
		return Int(intOp(a.Int, b.Int)), true
	}
	fa, ok1 := a.AsFloat64()
	fb, ok2 := b.AsFloat64()
	if !ok1 || !ok2 {
		return Value{}, false
	}
	return Float(floatOp(fa, fb)), true
}

func valuesEqualLoose(a, b Value) bool {
	if a.IsNumeric() && b.IsNumeric() {
		fa, _ := a.AsFloat64()
		fb, _ := b.AsFloat64()
		return fa == fb
	}
	return Equal(a, b)
}

func numericCompare(code OpCode, a, b Value) (Value, bool) {
	if !a.IsNumeric() || !b.IsNumeric() {
		// per §4.4, comparisons across incompatible types yield false for
		// Lt/Lte/Gt/Gte, not a fold failure; but const-fold only folds the
		// foldable purity set when the comparison is meaningful, so keep
		// this consistent with the VM's runtime behavior instead of
		// refusing to fold.
		switch code {
		case OpLte, OpGte:
			return Bool(false), true
		default:
			return Bool(false), true
		}
	}
	fa, _ := a.AsFloat64()
	fb, _ := b.AsFloat64()
	switch code {
	case OpLt:
		return Bool(fa < fb), true
	case OpLte:
		return Bool(fa <= fb), true
	case OpGt:
		return Bool(fa > fb), true
	case OpGte:
		return Bool(fa >= fb), true
	}
	return Value{}, false
}
