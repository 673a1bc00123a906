// Package lower translates the minimal AST in internal/ast into the IR
// defined by internal/ir, following the control-flow and call lowering
// rules from the lowerer component design.
package lower

import (
	"fmt"

	"github.com/ColtMcG1/Mainstage/internal/ast"
	"github.com/ColtMcG1/Mainstage/internal/ir"
)

// ctx carries the lowering state for one Program: a stable stage ordinal
// table assigned before any body is lowered (so forward calls resolve), a
// module-level global table for workspace-scope assignments, and the
// current function's local-name table (nil while lowering workspace code,
// which has no frame-local binding of its own; workspace scope writes are
// module-level registers, not locals).
type ctx struct {
	mod      *ir.Module
	ordinals map[string]int
	globals  map[string]int
	locals   map[string]int
	nextLbl  int
}

// Lower builds an ir.Module for prog: workspace bodies first (so execution
// starting at op 0 runs workspace code), each ending in an explicit Ret that
// halts the top frame, followed by every stage's Label and body.
func Lower(prog *ast.Program) *ir.Module {
	c := &ctx{
		mod:      ir.NewModule(),
		ordinals: map[string]int{},
		globals:  map[string]int{},
	}
	for i, s := range prog.Stages {
		c.ordinals[s.Name] = i
	}

	for _, w := range prog.Workspaces {
		c.locals = nil
		c.lowerStmt(w.Body)
		last := ir.Op{Code: ir.OpLConst, Dest: c.mod.AllocReg(), Value: ir.Null()}
		c.mod.Emit(last)
		c.mod.Emit(ir.Op{Code: ir.OpRet, Src: last.Dest})
	}

	for _, s := range prog.Stages {
		c.lowerStage(s)
	}
	return c.mod
}

func (c *ctx) label(prefix string) string {
	n := fmt.Sprintf("%s%d", prefix, c.nextLbl)
	c.nextLbl++
	return n
}

func (c *ctx) lowerStage(s *ast.StageDecl) {
	n := c.ordinals[s.Name]
	c.mod.Emit(ir.Op{Code: ir.OpLabel, Name: fmt.Sprintf("L%d", n)})
	c.locals = map[string]int{}
	for i, p := range s.Params {
		c.locals[p] = i
	}
	c.lowerStmt(s.Body)
	if len(c.mod.Ops) == 0 || c.mod.Ops[len(c.mod.Ops)-1].Code != ir.OpRet {
		r := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: r, Value: ir.Null()})
		c.mod.Emit(ir.Op{Code: ir.OpRet, Src: r})
	}
	c.locals = nil
}

func (c *ctx) getOrCreateLocal(name string) int {
	if idx, ok := c.locals[name]; ok {
		return idx
	}
	idx := len(c.locals)
	c.locals[name] = idx
	return idx
}

// resolveIdentifier lowers a read of name to a fresh register.
func (c *ctx) resolveIdentifier(name string) int {
	if c.locals != nil {
		if idx, ok := c.locals[name]; ok {
			r := c.mod.AllocReg()
			c.mod.Emit(ir.Op{Code: ir.OpLLocal, Dest: r, Local: idx})
			return r
		}
	}
	if g, ok := c.globals[name]; ok {
		if c.locals == nil {
			return g
		}
		r := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpLoadGlobal, Dest: r, Src: g})
		return r
	}
	// Unknown identifier: lenient per §7 (VM treats the unresolved case as
	// Null rather than aborting compilation).
	r := c.mod.AllocReg()
	c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: r, Value: ir.Null()})
	return r
}

func binOpCode(op ast.BinOp) ir.OpCode {
	switch op {
	case ast.Add:
		return ir.OpAdd
	case ast.Sub:
		return ir.OpSub
	case ast.Mul:
		return ir.OpMul
	case ast.Div:
		return ir.OpDiv
	case ast.Mod:
		return ir.OpMod
	case ast.Eq:
		return ir.OpEq
	case ast.Ne:
		return ir.OpNeq
	case ast.Lt:
		return ir.OpLt
	case ast.Le:
		return ir.OpLte
	case ast.Gt:
		return ir.OpGt
	case ast.Ge:
		return ir.OpGte
	case ast.And:
		return ir.OpAnd
	case ast.Or:
		return ir.OpOr
	}
	panic("lower: unknown BinOp")
}

// hostNames are the Symbol-dispatched built-ins; calls to these always lower
// to Call with an LConst Symbol, never to CallLabel, even if a stage happens
// to share the name (host built-ins take precedence, §9).
var hostNames = map[string]bool{"say": true, "fmt": true, "ask": true, "read": true, "write": true}

// lowerExpr lowers expr postorder to a fresh destination register and
// returns it, per §4.1.
func (c *ctx) lowerExpr(n ast.Node) int {
	switch e := n.(type) {
	case *ast.IntLit:
		r := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: r, Value: ir.Int(e.Value)})
		return r
	case *ast.FloatLit:
		r := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: r, Value: ir.Float(e.Value)})
		return r
	case *ast.BoolLit:
		r := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: r, Value: ir.Bool(e.Value)})
		return r
	case *ast.StrLit:
		r := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: r, Value: ir.Str(e.Value)})
		return r
	case *ast.NullLit:
		r := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: r, Value: ir.Null()})
		return r
	case *ast.Identifier:
		return c.resolveIdentifier(e.Name)
	case *ast.ArrayLit:
		elems := make([]int, len(e.Elems))
		for i, el := range e.Elems {
			elems[i] = c.lowerExpr(el)
		}
		r := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpArrayNew, Dest: r, Elems: elems})
		return r
	case *ast.ObjectLit:
		// No dedicated IR op builds an Object from registers at once; build
		// it via an empty object constant promoted by successive SetProp,
		// matching the VM's own promote-on-SetProp rule instead of adding a
		// new opcode outside §6.1's table.
		obj := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: obj, Value: ir.Obj(map[string]ir.Value{})})
		for i, k := range e.Keys {
			kr := c.mod.AllocReg()
			c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: kr, Value: ir.Symbol(k)})
			vr := c.lowerExpr(e.Values[i])
			c.mod.Emit(ir.Op{Code: ir.OpSetProp, Obj: obj, Key: kr, Src: vr})
		}
		return obj
	case *ast.Member:
		objr := c.lowerExpr(e.Object)
		kr := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: kr, Value: ir.Symbol(e.Property)})
		r := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpGetProp, Dest: r, Obj: objr, Key: kr})
		return r
	case *ast.Binary:
		l := c.lowerExpr(e.Left)
		rr := c.lowerExpr(e.Right)
		dest := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: binOpCode(e.Op), Dest: dest, Src1: l, Src2: rr})
		return dest
	case *ast.Unary:
		src := c.lowerExpr(e.Expr)
		dest := c.mod.AllocReg()
		if !e.Not {
			// Unary minus: 0 - x.
			zero := c.mod.AllocReg()
			c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: zero, Value: ir.Int(0)})
			c.mod.Emit(ir.Op{Code: ir.OpSub, Dest: dest, Src1: zero, Src2: src})
			return dest
		}
		c.mod.Emit(ir.Op{Code: ir.OpNot, Dest: dest, Src: src})
		return dest
	case *ast.IncDec:
		return c.lowerIncDec(e)
	case *ast.Call:
		return c.lowerCall(e)
	}
	panic(fmt.Sprintf("lower: unhandled expr node %T", n))
}

// lowerIncDec implements "prefix vs postfix differ by whether the
// pre-increment value is copied to a fresh register before Inc/Dec" (§4.1).
func (c *ctx) lowerIncDec(e *ast.IncDec) int {
	id, ok := e.Target.(*ast.Identifier)
	if !ok {
		// Member target: not a register at all, so Inc/Dec (which mutate a
		// register in place) can't apply directly; lower as obj.x = obj.x +/- 1.
		mem := e.Target.(*ast.Member)
		objr := c.lowerExpr(mem.Object)
		kr := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: kr, Value: ir.Symbol(mem.Property)})
		cur := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpGetProp, Dest: cur, Obj: objr, Key: kr})
		one := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: one, Value: ir.Int(1)})
		op := ir.OpAdd
		if !e.Inc {
			op = ir.OpSub
		}
		next := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: op, Dest: next, Src1: cur, Src2: one})
		c.mod.Emit(ir.Op{Code: ir.OpSetProp, Obj: objr, Key: kr, Src: next})
		if e.Postfix {
			return cur
		}
		return next
	}

	reg := c.resolveIdentifier(id.Name)
	opCode := ir.OpInc
	if !e.Inc {
		opCode = ir.OpDec
	}
	if e.Postfix {
		saved := c.mod.AllocReg()
		c.copyReg(saved, reg)
		c.mod.Emit(ir.Op{Code: opCode, Dest: reg})
		c.storeIdentifier(id.Name, reg)
		return saved
	}
	c.mod.Emit(ir.Op{Code: opCode, Dest: reg})
	c.storeIdentifier(id.Name, reg)
	return reg
}

// copyReg materializes the current value of src into dest. Inside a stage
// it uses a local round-trip (SLocal then LLocal), since the IR has no
// direct register-copy op; workspace code has no local table and runs in
// the global frame itself, where LoadGlobal is a plain register copy.
func (c *ctx) copyReg(dest, src int) {
	if c.locals == nil {
		c.mod.Emit(ir.Op{Code: ir.OpLoadGlobal, Dest: dest, Src: src})
		return
	}
	tmp := c.getOrCreateLocal(fmt.Sprintf("__tmp%d", dest))
	c.mod.Emit(ir.Op{Code: ir.OpSLocal, Src: src, Local: tmp})
	c.mod.Emit(ir.Op{Code: ir.OpLLocal, Dest: dest, Local: tmp})
}

// storeIdentifier writes reg back to name's local slot (functions) or
// updates the tracked global register (workspace scope).
func (c *ctx) storeIdentifier(name string, reg int) {
	if c.locals != nil {
		idx := c.getOrCreateLocal(name)
		c.mod.Emit(ir.Op{Code: ir.OpSLocal, Src: reg, Local: idx})
		return
	}
	c.globals[name] = reg
}

func (c *ctx) lowerCall(e *ast.Call) int {
	id, isIdent := e.Callee.(*ast.Identifier)
	args := make([]int, len(e.Args))
	for i, a := range e.Args {
		args[i] = c.lowerExpr(a)
	}
	dest := c.mod.AllocReg()
	if isIdent {
		if !hostNames[id.Name] {
			if ord, ok := c.ordinals[id.Name]; ok {
				c.mod.Emit(ir.Op{Code: ir.OpCallLabel, Dest: dest, LabelIndex: ord, Args: args})
				c.mod.MarkExternal(dest)
				return dest
			}
		}
	}
	// Every argument of a Symbol-dispatched Call feeds a host or plugin call.
	for _, a := range args {
		c.mod.MarkExternal(a)
	}
	if isIdent {
		fn := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: fn, Value: ir.Symbol(id.Name)})
		c.mod.Emit(ir.Op{Code: ir.OpCall, Dest: dest, Func: fn, Args: args})
		c.mod.MarkExternal(dest)
		return dest
	}
	// Non-identifier callee (e.g. a computed function value): lower the
	// callee expression to a register and Call through it directly.
	fn := c.lowerExpr(e.Callee)
	c.mod.Emit(ir.Op{Code: ir.OpCall, Dest: dest, Func: fn, Args: args})
	c.mod.MarkExternal(dest)
	return dest
}

func (c *ctx) lowerStmt(n ast.Node) {
	switch s := n.(type) {
	case *ast.ExprStmt:
		r := c.lowerExpr(s.Expr)
		c.mod.MarkExternal(r)
	case *ast.Block:
		for _, st := range s.Stmts {
			c.lowerStmt(st)
		}
	case *ast.Assign:
		c.lowerAssign(s)
	case *ast.If:
		c.lowerIf(s)
	case *ast.While:
		c.lowerWhile(s)
	case *ast.ForIn:
		c.lowerForIn(s)
	case *ast.ForTo:
		c.lowerForTo(s)
	case *ast.Return:
		c.lowerReturn(s)
	default:
		// An expression used in statement position (e.g. a bare call).
		r := c.lowerExpr(n)
		c.mod.MarkExternal(r)
	}
}

// lowerAssign implements plain and compound assignment to identifiers and
// member targets. Compound assignment to a member target lowers to GetProp,
// the binary op, then SetProp (§4.1, resolving the Open Question on
// non-local compound-assignment targets).
func (c *ctx) lowerAssign(s *ast.Assign) {
	switch t := s.Target.(type) {
	case *ast.Identifier:
		var vr int
		if s.CompoundOp != nil {
			cur := c.resolveIdentifier(t.Name)
			rhs := c.lowerExpr(s.Value)
			dest := c.mod.AllocReg()
			c.mod.Emit(ir.Op{Code: binOpCode(*s.CompoundOp), Dest: dest, Src1: cur, Src2: rhs})
			vr = dest
		} else {
			vr = c.lowerExpr(s.Value)
		}
		c.storeIdentifier(t.Name, vr)
	case *ast.Member:
		objr := c.lowerExpr(t.Object)
		kr := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: kr, Value: ir.Symbol(t.Property)})
		var vr int
		if s.CompoundOp != nil {
			cur := c.mod.AllocReg()
			c.mod.Emit(ir.Op{Code: ir.OpGetProp, Dest: cur, Obj: objr, Key: kr})
			rhs := c.lowerExpr(s.Value)
			dest := c.mod.AllocReg()
			c.mod.Emit(ir.Op{Code: binOpCode(*s.CompoundOp), Dest: dest, Src1: cur, Src2: rhs})
			vr = dest
		} else {
			vr = c.lowerExpr(s.Value)
		}
		c.mod.Emit(ir.Op{Code: ir.OpSetProp, Obj: objr, Key: kr, Src: vr})
	default:
		panic("lower: unsupported assignment target")
	}
}

func (c *ctx) lowerIf(s *ast.If) {
	cond := c.lowerExpr(s.Cond)
	if s.Else == nil {
		brPos := c.mod.Emit(ir.Op{Code: ir.OpBrFalse, Src: cond, Target: 0})
		c.lowerStmt(s.Then)
		lend := c.label("Lend")
		after := c.mod.Emit(ir.Op{Code: ir.OpLabel, Name: lend})
		c.mod.Ops[brPos].Target = after
		return
	}
	lelse := c.label("Lelse")
	brPos := c.mod.Emit(ir.Op{Code: ir.OpBrFalse, Src: cond, Target: 0})
	c.lowerStmt(s.Then)
	jmpPos := c.mod.Emit(ir.Op{Code: ir.OpJump, Target: 0})
	elseStart := c.mod.Emit(ir.Op{Code: ir.OpLabel, Name: lelse})
	c.mod.Ops[brPos].Target = elseStart
	c.lowerStmt(s.Else)
	lend := c.label("Lend")
	after := c.mod.Emit(ir.Op{Code: ir.OpLabel, Name: lend})
	c.mod.Ops[jmpPos].Target = after
}

func (c *ctx) lowerWhile(s *ast.While) {
	lhead := c.label("Lhead")
	head := c.mod.Emit(ir.Op{Code: ir.OpLabel, Name: lhead})
	cond := c.lowerExpr(s.Cond)
	brPos := c.mod.Emit(ir.Op{Code: ir.OpBrFalse, Src: cond, Target: 0})
	c.lowerStmt(s.Body)
	c.mod.Emit(ir.Op{Code: ir.OpJump, Target: head})
	lend := c.label("Lend")
	after := c.mod.Emit(ir.Op{Code: ir.OpLabel, Name: lend})
	c.mod.Ops[brPos].Target = after
}

func (c *ctx) lowerForIn(s *ast.ForIn) {
	ra := c.lowerExpr(s.Iterable)
	ri := c.mod.AllocReg()
	c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: ri, Value: ir.Int(0)})

	lhead := c.label("Lhead")
	head := c.mod.Emit(ir.Op{Code: ir.OpLabel, Name: lhead})

	lenKey := c.mod.AllocReg()
	c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: lenKey, Value: ir.Symbol("length")})
	rlen := c.mod.AllocReg()
	c.mod.Emit(ir.Op{Code: ir.OpGetProp, Dest: rlen, Obj: ra, Key: lenKey})
	rc := c.mod.AllocReg()
	c.mod.Emit(ir.Op{Code: ir.OpLt, Dest: rc, Src1: ri, Src2: rlen})
	brPos := c.mod.Emit(ir.Op{Code: ir.OpBrFalse, Src: rc, Target: 0})

	rit := c.mod.AllocReg()
	c.mod.Emit(ir.Op{Code: ir.OpArrayGet, Dest: rit, Array: ra, Index: ri})
	c.storeIdentifier(s.Var, rit)

	c.lowerStmt(s.Body)

	c.mod.Emit(ir.Op{Code: ir.OpInc, Dest: ri})
	c.mod.Emit(ir.Op{Code: ir.OpJump, Target: head})
	lend := c.label("Lend")
	after := c.mod.Emit(ir.Op{Code: ir.OpLabel, Name: lend})
	c.mod.Ops[brPos].Target = after
}

// lowerForTo implements "for init to E { B }" as "while var < E { B; var++ }".
func (c *ctx) lowerForTo(s *ast.ForTo) {
	c.lowerAssign(s.Init)
	id := s.Init.Target.(*ast.Identifier)

	lhead := c.label("Lhead")
	head := c.mod.Emit(ir.Op{Code: ir.OpLabel, Name: lhead})
	cur := c.resolveIdentifier(id.Name)
	limit := c.lowerExpr(s.Limit)
	rc := c.mod.AllocReg()
	c.mod.Emit(ir.Op{Code: ir.OpLt, Dest: rc, Src1: cur, Src2: limit})
	brPos := c.mod.Emit(ir.Op{Code: ir.OpBrFalse, Src: rc, Target: 0})

	c.lowerStmt(s.Body)

	c.lowerIncDec(&ast.IncDec{Target: &ast.Identifier{Name: id.Name}, Inc: true, Postfix: true})
	c.mod.Emit(ir.Op{Code: ir.OpJump, Target: head})
	lend := c.label("Lend")
	after := c.mod.Emit(ir.Op{Code: ir.OpLabel, Name: lend})
	c.mod.Ops[brPos].Target = after
}

func (c *ctx) lowerReturn(s *ast.Return) {
	if s.Value == nil {
		r := c.mod.AllocReg()
		c.mod.Emit(ir.Op{Code: ir.OpLConst, Dest: r, Value: ir.Null()})
		c.mod.Emit(ir.Op{Code: ir.OpRet, Src: r})
		return
	}
	r := c.lowerExpr(s.Value)
	c.mod.Emit(ir.Op{Code: ir.OpRet, Src: r})
}
