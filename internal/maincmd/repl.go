package maincmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mna/mainer"

	"github.com/opo-lang/opo/lang/compiler"
	"github.com/opo-lang/opo/lang/vm"
)

// Repl implements the `repl` command (§6): each entered line is wrapped in
// a synthetic `main` and compiled/run independently (the original opo REPL
// keeps no state between lines beyond what `main`'s own body does, SPEC_FULL
// §D). A bare expression with no trailing ';' is wrapped with postfix print
// so evaluating `1 + 2` at the prompt shows its value, exactly as the
// original implementation's REPL does.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	interactive := isTerminal(stdio.Stdin)

	scanner := bufio.NewScanner(stdio.Stdin)
	stdlibDir := c.stdlibDir()
	cwd, _ := os.Getwd()

	for {
		if interactive {
			fmt.Fprint(stdio.Stdout, "opo> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		source := wrapReplLine(line)
		chunk, err := compiler.Compile("<repl>", source, cwd, stdlibDir)
		if err != nil {
			printCompileError(stdio, err)
			continue
		}
		vm.Run(chunk, vm.Config{
			Stdout:   stdio.Stdout,
			Stderr:   stdio.Stderr,
			Stdin:    stdio.Stdin,
			MaxSteps: c.env.MaxSteps,
		})
	}
	return scanner.Err()
}

// wrapReplLine builds the synthetic `main` body for one REPL line (§6,
// SPEC_FULL §D): a line ending in ';' is used as-is (it is already a
// complete statement, e.g. a declaration); otherwise it is treated as a
// bare expression and given an implicit postfix print.
func wrapReplLine(line string) string {
	var body string
	if strings.HasSuffix(line, ";") {
		body = line
	} else {
		body = "(" + line + ")!!;"
	}
	return fmt.Sprintf("<> -> void: main [ %s ]", body)
}

// isTerminal reports whether r is an *os.File attached to a terminal,
// using the teacher tool family's own go-isatty check (SPEC_FULL §C) to
// decide whether the REPL prints its interactive prompt or runs in piped
// (non-interactive) line mode.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
