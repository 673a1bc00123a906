package msbc

import "github.com/ColtMcG1/Mainstage/internal/ir"

// Disassemble renders an already-loaded module; DisassembleBytes parses a
// raw MSBC file first. Both back the CLI's disasm subcommand.
func Disassemble(m *ir.Module) string {
	return m.Disassemble()
}

func DisassembleBytes(data []byte) (string, error) {
	m, err := Parse(data)
	if err != nil {
		return "", err
	}
	return m.Disassemble(), nil
}
