package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/opo-lang/opo/lang/lexer"
	"github.com/opo-lang/opo/lang/vm"
)

// Tokenize implements the `tokenize <file>` debug command (§4.1, SPEC_FULL
// §B): runs only the Lexer phase and prints one line per token, mirroring
// the teacher's own `tokenize` subcommand (internal/maincmd/tokenize.go)
// but over lang/lexer.All instead of lang/scanner.ScanFiles.
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) == 0 {
		return exitErr(vm.ExitUsageError, errUsage("tokenize: a file path must be provided"))
	}
	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		printError(stdio, err)
		return exitErr(vm.ExitFileOpenError, err)
	}

	toks, errs := lexer.All(path, string(src))
	for _, tok := range toks {
		line, col := tok.Pos.LineCol()
		fmt.Fprintf(stdio.Stdout, "%s:%d:%d: %s", path, line, col, tok.Kind)
		if tok.Lit != "" {
			fmt.Fprintf(stdio.Stdout, " %q", tok.Lit)
		}
		fmt.Fprintln(stdio.Stdout)
	}
	if len(errs) > 0 {
		for _, e := range errs {
			printError(stdio, e)
		}
		return exitErr(vm.ExitCompileError, errs)
	}
	return nil
}
