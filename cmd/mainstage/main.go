// cmd/mainstage/main.go
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	_ "github.com/tliron/commonlog/simple"

	"github.com/ColtMcG1/Mainstage/internal/config"
	"github.com/ColtMcG1/Mainstage/internal/host"
	"github.com/ColtMcG1/Mainstage/internal/merr"
	"github.com/ColtMcG1/Mainstage/internal/msbc"
	"github.com/ColtMcG1/Mainstage/internal/mvm"
	"github.com/ColtMcG1/Mainstage/internal/plugin"
)

const version = "0.1.0"

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	switch args[0] {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		showVersion()
	case "run":
		if len(args) < 2 {
			log.Fatal("usage: mainstage run <file.msbc>")
		}
		runFile(args[1])
	case "disasm":
		if len(args) < 2 {
			log.Fatal("usage: mainstage disasm <file.msbc>")
		}
		disasmFile(args[1])
	case "plugins":
		if len(args) < 3 || args[1] != "list" {
			log.Fatal("usage: mainstage plugins list <dir>")
		}
		listPlugins(args[2])
	default:
		showUsage()
		os.Exit(1)
	}
}

func runFile(path string) {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	m, err := msbc.Parse(data)
	if err != nil {
		log.Fatalf("load %s: %v", path, err)
	}

	vm := mvm.New(m, host.Builtins(nil, nil))
	if cfg.VM.StepLimit > 0 {
		vm.StepLimit = cfg.VM.StepLimit
	}
	vm.Trace = cfg.VM.Trace
	vm.TraceOut = os.Stderr

	if cfg.VM.PluginDir != "" {
		reg := plugin.NewRegistry()
		for _, loadErr := range reg.LoadDir(cfg.VM.PluginDir) {
			fmt.Fprintf(os.Stderr, "mainstage: plugin load: %v\n", loadErr)
		}
		vm.Plugins = reg
	}

	result, err := vm.Run()
	if err != nil {
		var re *merr.RuntimeError
		if errors.As(err, &re) {
			log.Fatalf("runtime error at op %d: %s", re.OpIndex, re.Reason)
		}
		log.Fatalf("run failed: %v", err)
	}
	fmt.Println(result.String())
}

func disasmFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	text, err := msbc.DisassembleBytes(data)
	if err != nil {
		log.Fatalf("disasm %s: %v", path, err)
	}
	fmt.Print(text)
}

func listPlugins(dir string) {
	manifests, err := plugin.Discover(dir)
	if err != nil {
		log.Fatalf("discover plugins in %s: %v", dir, err)
	}
	if len(manifests) == 0 {
		fmt.Println("no plugins found")
		return
	}
	for _, m := range manifests {
		fmt.Printf("%s (%s) - %s\n", m.Name, m.ABI, m.Description)
		for _, f := range m.Functions {
			fmt.Printf("  %s(%d args)\n", f.Name, len(f.Args))
		}
	}
}

func showUsage() {
	fmt.Println("Mainstage - compiled scripting VM")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mainstage run <file.msbc>      Run a compiled bytecode file")
	fmt.Println("  mainstage disasm <file.msbc>   Disassemble a compiled bytecode file")
	fmt.Println("  mainstage plugins list <dir>   List discoverable plugins in a directory")
	fmt.Println("  mainstage version              Print version information")
}

func showVersion() {
	fmt.Printf("Mainstage v%s\n", version)
}
