package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/opo-lang/opo/lang/compiler"
	"github.com/opo-lang/opo/lang/vm"
)

// Disasm implements the `disasm <file>` debug command (SPEC_FULL §B, §E):
// compiles the file and prints its Chunk in compiler.Dasm's textual form.
// This is a pure stdout debugging aid, never a serialization format —
// there is no corresponding `asm` command that reads it back, unlike the
// teacher's round-tripping Asm/Dasm pair (§1 Non-goals: no bytecode
// persistence).
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) == 0 {
		return exitErr(vm.ExitUsageError, errUsage("disasm: a file path must be provided"))
	}
	chunk, err := compileFile(args[0], c.stdlibDir())
	if err != nil {
		printCompileError(stdio, err)
		return exitErr(vm.ExitCompileError, err)
	}
	fmt.Fprint(stdio.Stdout, compiler.Dasm(chunk))
	return nil
}
