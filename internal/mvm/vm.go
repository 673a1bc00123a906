// Package mvm implements the register-based virtual machine that executes
// an IR module (or, via internal/msbc, a loaded MSBC file): a frame stack,
// lazily-grown per-frame register and local vectors, a host function
// table, and an optional in-process plugin registry.
package mvm

import (
	"fmt"
	"io"

	"github.com/ColtMcG1/Mainstage/internal/ir"
	"github.com/ColtMcG1/Mainstage/internal/merr"
)

// DefaultStepLimit is the VM's default maximum step count, used in tests;
// production runs typically pass 0 (unbounded).
const DefaultStepLimit = 200

// HostFunc is a built-in exposed to scripts by Symbol name.
type HostFunc func(vm *VM, args []ir.Value) (ir.Value, error)

// PluginRegistry is the subset of internal/plugin.Registry the VM needs:
// dispatch a Call whose Symbol name is not a host built-in. found is false
// when no registered plugin exports that name.
type PluginRegistry interface {
	Call(name string, args []ir.Value) (ir.Value, bool, error)
}

// Frame is one call frame: a local-variable vector (sized by the callee's
// own SLocal/LLocal traffic) and a register vector (sized lazily by
// whichever register index is first written).
type Frame struct {
	Locals    []ir.Value
	Regs      []ir.Value
	ReturnPC  int
	ReturnReg int
	HasCaller bool
}

func newFrame() *Frame {
	return &Frame{}
}

func (f *Frame) setReg(i int, v ir.Value) {
	for len(f.Regs) <= i {
		f.Regs = append(f.Regs, ir.Null())
	}
	f.Regs[i] = v
}

func (f *Frame) getReg(i int) ir.Value {
	if i < 0 || i >= len(f.Regs) {
		return ir.Null()
	}
	return f.Regs[i]
}

func (f *Frame) setLocal(i int, v ir.Value) {
	for len(f.Locals) <= i {
		f.Locals = append(f.Locals, ir.Null())
	}
	f.Locals[i] = v
}

func (f *Frame) getLocal(i int) ir.Value {
	if i < 0 || i >= len(f.Locals) {
		return ir.Null()
	}
	return f.Locals[i]
}

// VM executes a single ir.Module. Host and Plugins are read-mostly tables
// installed before Run and treated as immutable during execution (§5).
type VM struct {
	Module    *ir.Module
	Host      map[string]HostFunc
	Plugins   PluginRegistry
	StepLimit int // 0 means unbounded
	Trace     bool
	TraceOut  io.Writer

	frames []*Frame
	pc     int
	steps  int
	last   ir.Value
}

// New builds a VM ready to Run m, with host installed but no plugin
// registry (set VM.Plugins afterward to enable plugin dispatch).
func New(m *ir.Module, host map[string]HostFunc) *VM {
	return &VM{
		Module: m,
		Host:   host,
		last:   ir.Null(),
	}
}

func (vm *VM) frame() *Frame { return vm.frames[len(vm.frames)-1] }

// globalFrame is the workspace's own top-level frame, where registers
// LoadGlobal reaches for are written (§4.1: a stage body only ever sees
// its own locals and registers, so workspace-scope values cross frames
// through LoadGlobal rather than through the callee's register vector).
func (vm *VM) globalFrame() *Frame { return vm.frames[0] }

// Run executes the module from op 0 until Halt or the top frame's Ret, and
// returns the last Ret value (or Null if the module halted without one).
func (vm *VM) Run() (ir.Value, error) {
	top := newFrame()
	top.HasCaller = false
	vm.frames = []*Frame{top}
	vm.pc = 0
	vm.steps = 0

	for {
		if vm.pc >= len(vm.Module.Ops) {
			return vm.last, nil
		}
		if vm.StepLimit > 0 && vm.steps >= vm.StepLimit {
			return vm.last, &merr.RuntimeError{OpIndex: vm.pc, Reason: "step limit exceeded"}
		}
		vm.steps++

		op := vm.Module.Ops[vm.pc]
		if vm.Trace && vm.TraceOut != nil {
			if op.Code == ir.OpLabel {
				fmt.Fprintf(vm.TraceOut, "== Label: %s ==\n", op.Name)
			} else {
				fmt.Fprintf(vm.TraceOut, "PC %d: %s\n", vm.pc, ir.OpCode(op.Code))
			}
		}

		halt, err := vm.exec(op)
		if err != nil {
			return vm.last, err
		}
		if halt {
			return vm.last, nil
		}
	}
}
