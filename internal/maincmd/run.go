package maincmd

import (
	"context"
	goscanner "go/scanner"
	"os"

	"github.com/mna/mainer"

	"github.com/opo-lang/opo/lang/compiler"
	"github.com/opo-lang/opo/lang/vm"
)

// Run implements the `run <file> [-- <arg>...]` command (§6): compile the
// named file against baseDir = its own directory and stdlibDir from
// OPO_STDLIB_DIR (or "<exe-dir>/lib"), then execute its `main`. Arguments
// after a literal "--" become the args() native's return value.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) == 0 {
		return exitErr(vm.ExitUsageError, errUsage("run: a file path must be provided"))
	}
	path := args[0]
	progArgs := splitProgArgs(args[1:])

	chunk, err := compileFile(path, c.stdlibDir())
	if err != nil {
		printCompileError(stdio, err)
		return exitErr(vm.ExitCompileError, err)
	}

	code := vm.Run(chunk, vm.Config{
		Argv:     progArgs,
		Stdout:   stdio.Stdout,
		Stderr:   stdio.Stderr,
		Stdin:    stdio.Stdin,
		MaxSteps: c.env.MaxSteps,
	})
	if code != vm.ExitOK {
		return exitErr(code, errRuntime("program exited with a non-zero status"))
	}
	return nil
}

// splitProgArgs drops a leading "--" separator if present; it is purely a
// CLI ergonomics convention (§6 does not mandate one), letting `opo run`
// flags and the program's own argv coexist unambiguously on one line.
func splitProgArgs(rest []string) []string {
	for i, a := range rest {
		if a == "--" {
			return rest[i+1:]
		}
	}
	return rest
}

// compileFile reads path and compiles it with baseDir set to its
// containing directory (§6: "relative to the main source file's
// directory").
func compileFile(path, stdlibDir string) (*compiler.Chunk, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errFileOpen(err.Error())
	}
	baseDir := dirOf(path)
	return compiler.Compile(path, string(src), baseDir, stdlibDir)
}

// printCompileError renders compile errors in §7's
// "[<source>:line N] Error at '<token>': <message>" shape. lang/compiler
// collects *go/scanner.Error values (position + message, the message
// already of the form "at '<token>': <reason>") into a go/scanner.ErrorList
// (SPEC_FULL §B); this just reformats that list the way the language's own
// error policy names it, rather than go/scanner's own default
// "file:line:col: msg" rendering.
func printCompileError(stdio mainer.Stdio, err error) {
	var list goscanner.ErrorList
	if errs, ok := err.(goscanner.ErrorList); ok {
		list = errs
	} else if p, ok := err.(*goscanner.ErrorList); ok {
		list = *p
	} else {
		printError(stdio, err)
		return
	}
	for _, e := range list {
		printError(stdio, errCompile(e.Pos.Filename, e.Pos.Line, e.Msg))
	}
}
