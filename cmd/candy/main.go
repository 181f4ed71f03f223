package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	candy "github.com/candy-lang/candy-go"
	"github.com/candy-lang/candy-go/fuzzer"
)

const usage = `candy is the compiler and VM for the Candy language.

Usage:
  candy build <file> [--debug] [--watch]
  candy run <file>
  candy fuzz <file> [--concurrency N]
  candy lsp
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "build":
		os.Exit(runBuild(os.Args[2:]))
	case "run":
		os.Exit(runRun(os.Args[2:]))
	case "fuzz":
		os.Exit(runFuzz(os.Args[2:]))
	case "lsp":
		// Speaking the Language Server Protocol on stdio is an
		// external collaborator, not part of this core (spec §1, §6).
		log.Fatal("lsp: not implemented, out of scope for candy-go's core")
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// loadModule turns a CLI file argument into the (provider, module) pair
// every subcommand compiles, rooting the provider at the file's parent
// directory so `useModule` resolves sibling files the way the teacher's
// own import loader resolves grammars relative to the importing file.
func loadModule(path string) (*candy.FilesystemModuleProvider, candy.Module) {
	abs, err := filepath.Abs(path)
	if err != nil {
		log.Fatalf("candy: can't resolve %s: %s", path, err)
	}
	root := filepath.Dir(abs)
	name := strings.TrimSuffix(filepath.Base(abs), ".candy")
	provider := candy.NewFilesystemModuleProvider(root)
	module := candy.NewCodeModule("main", name)
	return provider, module
}

func printDiagnostics(diags *candy.Diagnostics) bool {
	hadErrors := false
	for _, e := range diags.Errors() {
		hadErrors = true
		fmt.Fprintln(os.Stderr, e.Error())
	}
	return hadErrors
}

func dumpDebugIR(dir, name string, result *candy.CompileResult) {
	writeOne := func(suffix, contents string) {
		path := filepath.Join(dir, name+suffix)
		if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
			log.Fatalf("candy: can't write %s: %s", path, err)
		}
	}
	writeOne(".mir.txt", candy.PrintMir(result.Module))
	writeOne(".lir.txt", candy.PrintLir(result.Lir))
}

func runBuild(args []string) int {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	debug := fs.Bool("debug", false, "dump the MIR and LIR to sibling .mir.txt/.lir.txt files (other IRs are not dumped)")
	watch := fs.Bool("watch", false, "rebuild whenever the file changes")
	fs.Parse(args)

	if fs.NArg() != 1 {
		log.Fatal("build: expected exactly one file argument")
	}
	path := fs.Arg(0)

	build := func() bool {
		provider, module := loadModule(path)
		cfg := candy.NewConfig()
		compiler := candy.NewCompiler(provider, cfg)
		compiler.Debug = *debug

		result, err := compiler.CompileModule(module)
		if err != nil {
			log.Fatalf("build: %s", err)
		}
		hadErrors := printDiagnostics(result.Diags)
		if *debug {
			dumpDebugIR(provider.Root, module.Path[len(module.Path)-1], result)
		}
		return hadErrors
	}

	if !*watch {
		if build() {
			return 1
		}
		return 0
	}

	log.Println("build: watching", path, "(Ctrl-C to stop)")
	var lastModTime time.Time
	for {
		info, err := os.Stat(path)
		if err != nil {
			log.Fatalf("build: %s", err)
		}
		if info.ModTime().After(lastModTime) {
			lastModTime = info.ModTime()
			log.Println("build: rebuilding", path)
			build()
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		log.Fatal("run: expected exactly one file argument")
	}

	provider, module := loadModule(fs.Arg(0))
	cfg := candy.NewConfig()
	compiler := candy.NewCompiler(provider, cfg)

	result, err := compiler.CompileModule(module)
	if err != nil {
		log.Fatalf("run: %s", err)
	}
	if printDiagnostics(result.Diags) {
		return 1
	}

	env := candy.NewStdEnvironment(os.Stdout, os.Stdin)
	tracer := candy.NewFullTracer()
	sched := candy.NewScheduler(cfg, env, tracer)
	fiberID := sched.SpawnModule(module, result.Lir.Body)

	// A generous but finite budget: RunN itself bails out of its
	// internal round-robin the moment a full pass makes no progress
	// (spec §7 "WaitingForOperations (deadlock/starvation)"), so this
	// single call either finishes the program or detects the stall.
	const runBudget = 50_000_000
	sched.RunN(runBudget)

	fib := sched.Fiber(fiberID)
	switch fib.Status {
	case candy.FiberPanicked:
		fmt.Fprintln(os.Stderr, tracer.FormatPanicStackTrace(formatValue(fib.PanicReason)))
		fmt.Fprintf(os.Stderr, "  responsible: %s\n", fib.PanicResponsible)
		return 1
	case candy.FiberDone:
		return 0
	default:
		log.Println("run: program stalled (deadlock or starvation)")
		return 1
	}
}

func runFuzz(args []string) int {
	fs := flag.NewFlagSet("fuzz", flag.ExitOnError)
	concurrency := fs.Int("concurrency", 0, "max concurrent fuzzing workers (0 = GOMAXPROCS)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		log.Fatal("fuzz: expected exactly one file argument")
	}

	provider, module := loadModule(fs.Arg(0))
	cfg := candy.NewConfig()
	compiler := candy.NewCompiler(provider, cfg)

	cases, err := fuzzer.FuzzModule(context.Background(), compiler, module, cfg, *concurrency)
	if err != nil {
		log.Fatalf("fuzz: %s", err)
	}
	if len(cases) == 0 {
		log.Println("fuzz: no panics found")
		return 0
	}

	for _, c := range cases {
		fmt.Fprintf(os.Stderr, "%s\n", c.StackTrace)
		fmt.Fprintf(os.Stderr, "  function: %s\n  responsible: %s\n  reason: %s\n\n",
			c.Function, c.Responsible, formatValue(c.Reason))
	}
	return 1
}

// formatValue renders a runtime Value for a terminal, the CLI's only
// consumer of Value beyond the VM itself.
func formatValue(v candy.Value) string {
	switch val := v.(type) {
	case candy.IntValue:
		return val.Value.String()
	case candy.TextValue:
		return val.Value
	case candy.SymbolValue:
		return val.Name
	case candy.TagValue:
		return val.Name + " " + formatValue(val.Value)
	case *candy.StructValue:
		parts := make([]string, len(val.Keys))
		for i := range val.Keys {
			parts[i] = formatValue(val.Keys[i]) + ": " + formatValue(val.Values[i])
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *candy.ClosureValue:
		return fmt.Sprintf("closure@%s", val.Origin)
	default:
		return v.Type()
	}
}
