package mvm

import (
	"fmt"

	"github.com/ColtMcG1/Mainstage/internal/ir"
)

// execCall dispatches a Symbol-named Call: host built-ins are checked
// before the plugin registry, so a plugin can never shadow a host name
// (§9, Host/Plugin dispatch precedence). An unresolved symbol, or a failure
// inside the host function or plugin, surfaces as an error Str written to
// dest rather than aborting the VM (§7: only step-limit and load errors are
// fatal).
func (vm *VM) execCall(f *Frame, op ir.Op) {
	funcVal := f.getReg(op.Func)
	args := make([]ir.Value, len(op.Args))
	for i, r := range op.Args {
		args[i] = f.getReg(r).Clone()
	}

	if funcVal.Kind != ir.KindSymbol {
		f.setReg(op.Dest, ir.Str("call target is not a Symbol"))
		return
	}
	name := funcVal.Str

	if fn, ok := vm.Host[name]; ok {
		result, err := fn(vm, args)
		if err != nil {
			f.setReg(op.Dest, ir.Str(fmt.Sprintf("host error in %s: %v", name, err)))
			return
		}
		f.setReg(op.Dest, result)
		return
	}

	if vm.Plugins != nil {
		result, found, err := vm.Plugins.Call(name, args)
		if found {
			if err != nil {
				f.setReg(op.Dest, ir.Str(fmt.Sprintf("plugin error in %s: %v", name, err)))
				return
			}
			f.setReg(op.Dest, result)
			return
		}
	}

	f.setReg(op.Dest, ir.Str(fmt.Sprintf("unknown host symbol: %s", name)))
}
