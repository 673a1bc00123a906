// Package host implements the built-in host functions that bytecode reaches
// via a Call op naming a Symbol not bound to any stage: say, fmt, ask, read,
// write. They are ordinary mvm.HostFunc values, wired into a VM's Host table
// by Builtins.
package host

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ColtMcG1/Mainstage/internal/ir"
	"github.com/ColtMcG1/Mainstage/internal/merr"
	"github.com/ColtMcG1/Mainstage/internal/mvm"
)

// Builtins returns the standard say/fmt/ask/read/write host table. in and out
// back ask's stdin read and say's stdout write respectively; passing nil for
// either defaults to os.Stdin/os.Stdout.
func Builtins(in *os.File, out *os.File) map[string]mvm.HostFunc {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	reader := bufio.NewReader(in)
	return map[string]mvm.HostFunc{
		"say":   sayFn(out),
		"fmt":   fmtFn,
		"ask":   askFn(reader, out),
		"read":  readFn,
		"write": writeFn,
	}
}

// display renders a single Value the way say prints a non-Array argument and
// fmt substitutes a placeholder: strings and symbols print bare, everything
// else uses Value.String.
func display(v ir.Value) string {
	switch v.Kind {
	case ir.KindStr, ir.KindSymbol:
		return v.Str
	default:
		return v.String()
	}
}

func sayFn(out *os.File) mvm.HostFunc {
	return func(vm *mvm.VM, args []ir.Value) (ir.Value, error) {
		if len(args) == 0 {
			return ir.Null(), nil
		}
		a := args[0]
		if a.Kind == ir.KindArray {
			for _, item := range a.Array {
				fmt.Fprintln(out, display(item))
			}
			return ir.Null(), nil
		}
		fmt.Fprintln(out, display(a))
		return ir.Null(), nil
	}
}

// fmtFn scans the format string for {} placeholders, consumed left to right
// by the remaining arguments; {{ and }} escape a literal brace. A placeholder
// beyond the supplied argument count substitutes "<missing>"; surplus
// arguments are ignored.
func fmtFn(vm *mvm.VM, args []ir.Value) (ir.Value, error) {
	if len(args) == 0 || args[0].Kind != ir.KindStr {
		return ir.Null(), &merr.HostError{Symbol: "fmt", Reason: "first argument must be a format string"}
	}
	spec := args[0].Str
	rest := args[1:]
	argIdx := 0

	var out strings.Builder
	runes := []rune(spec)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '{':
			if i+1 < len(runes) && runes[i+1] == '{' {
				out.WriteByte('{')
				i++
				continue
			}
			if i+1 < len(runes) && runes[i+1] == '}' {
				if argIdx < len(rest) {
					out.WriteString(display(rest[argIdx]))
					argIdx++
				} else {
					out.WriteString("<missing>")
				}
				i++
				continue
			}
			out.WriteByte('{')
		case '}':
			if i+1 < len(runes) && runes[i+1] == '}' {
				out.WriteByte('}')
				i++
				continue
			}
			out.WriteByte('}')
		default:
			out.WriteRune(runes[i])
		}
	}
	return ir.Str(out.String()), nil
}

func askFn(reader *bufio.Reader, out *os.File) mvm.HostFunc {
	return func(vm *mvm.VM, args []ir.Value) (ir.Value, error) {
		if len(args) > 0 && args[0].Kind == ir.KindStr {
			fmt.Fprint(out, args[0].Str)
		}
		line, _ := reader.ReadString('\n')
		s := strings.TrimSpace(line)

		switch strings.ToLower(s) {
		case "true":
			return ir.Bool(true), nil
		case "false":
			return ir.Bool(false), nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ir.Int(n), nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return ir.Float(f), nil
		}
		return ir.Str(s), nil
	}
}

// readFn expands each argument (a literal path or glob pattern, or an Array
// of the same) relative to the VM's working directory and returns an Array
// of file contents. A pattern matching zero files contributes no items; a
// glob or read failure contributes an error Str in its place rather than
// failing the call.
func readFn(vm *mvm.VM, args []ir.Value) (ir.Value, error) {
	var patterns []string
	for _, a := range args {
		switch a.Kind {
		case ir.KindStr:
			patterns = append(patterns, a.Str)
		case ir.KindArray:
			for _, e := range a.Array {
				if e.Kind == ir.KindStr {
					patterns = append(patterns, e.Str)
				}
			}
		}
	}

	var out []ir.Value
	for _, pat := range patterns {
		matches, err := filepath.Glob(pat)
		if err != nil {
			out = append(out, ir.Str(fmt.Sprintf("glob error: %v", err)))
			continue
		}
		for _, path := range matches {
			data, err := os.ReadFile(path)
			if err != nil {
				out = append(out, ir.Str(fmt.Sprintf("read error for %s: %v", path, err)))
				continue
			}
			out = append(out, ir.Str(string(data)))
		}
	}
	return ir.Arr(out), nil
}

func writeFn(vm *mvm.VM, args []ir.Value) (ir.Value, error) {
	if len(args) < 2 || args[0].Kind != ir.KindStr || args[1].Kind != ir.KindStr {
		return ir.Str("write: invalid arguments"), nil
	}
	if err := os.WriteFile(args[0].Str, []byte(args[1].Str), 0o644); err != nil {
		return ir.Str(fmt.Sprintf("write error: %v", err)), nil
	}
	return ir.Bool(true), nil
}
