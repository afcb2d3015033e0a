// Package vm is opo's bytecode interpreter: a switched fetch-decode-execute
// loop over the Chunk a lang/compiler.Compile call produced, grounded on
// the teacher's lang/machine package (machine.go's `run` function and
// thread.go's `Thread`) but restructured around opo's much simpler
// single-frame-kind calling convention (§4.5) rather than the teacher's
// tuple-returning, defer-stack interpreter.
//
// A Machine owns one operand stack, one flat locals slab and one call
// frame stack; it is never shared between goroutines. Every `go` statement
// spawns a brand new Machine that shares only the read-only Chunk and the
// process-wide natives.Context with its parent (§5) — there is no join, no
// cancellation and no shared mutable VM state across tasks, matching the
// concurrency model's "communicate only through channels" rule.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/opo-lang/opo/lang/compiler"
	"github.com/opo-lang/opo/lang/natives"
	"github.com/opo-lang/opo/lang/types"
)

// Exit codes (§6).
const (
	ExitOK             = 0
	ExitRuntimeError   = 1
	ExitUsageError     = 64
	ExitCompileError   = 65
	ExitFileOpenError  = 74
)

// Config bundles the host collaborators and tunables a Run call needs.
// MaxSteps mirrors the teacher's Thread.MaxSteps (lang/machine/thread.go)
// and is bound from OPO_MAX_STEPS by internal/maincmd; zero means no
// budget is enforced.
type Config struct {
	Argv     []string
	Stdout   io.Writer
	Stderr   io.Writer
	Stdin    io.Reader
	MaxSteps int64
}

// exitRequest is the panic sentinel the `exit` native (#10) raises to
// unwind straight out of Run regardless of how many call frames or
// nested try blocks are active (natives.Context.Exit's doc comment).
type exitRequest struct{ code int }

// Run executes chunk's compiled "main" function to completion and returns
// the process exit code (§6): 0 on a normal return, 1 if the program threw
// an error with no handler or an `exit` native call requested it, or
// whatever code `exit` itself was given.
func Run(chunk *compiler.Chunk, cfg Config) (code int) {
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	stdin := cfg.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}

	shared := newShared(chunk, cfg, stdout, stderr, stdin)

	code = ExitOK
	func() {
		defer func() {
			if r := recover(); r != nil {
				if er, ok := r.(exitRequest); ok {
					code = er.code
					return
				}
				panic(r)
			}
		}()
		// compiler.Compile ends every Chunk with "CALL main; HALT" and
		// skips each function body with a top-level JUMP, so the root
		// Machine just runs from offset 0 like any other
		// bytecode stream; main's own locals frame is pushed by the CALL
		// opcode handler exactly as a nested user call would be.
		m := newMachine(shared)
		if err := m.run(0); err != nil {
			fmt.Fprintln(stderr, formatUncaught(err))
			code = ExitRuntimeError
		}
	}()
	return code
}

// formatUncaught implements §7's two uncaught-error message shapes:
// interpreter-raised faults are delivered as plain strings ("Runtime
// Error: <msg>"), while a value the program itself passed to `throw`
// (typically built with the error() native, which wraps it in an err Obj)
// is rendered as "Unhandled Exception: <v>". The distinction is made on
// the thrown value's runtime Kind, not on any separate "origin" flag: §7
// itself describes interpreter-raised errors as delivered "as a value (a
// heap string for interpreter-raised ones, or whatever the user passed to
// throw)", so a plain string is always interpreter-raised by construction.
func formatUncaught(err error) string {
	t, ok := err.(throwable)
	if !ok {
		return "Runtime Error: " + err.Error()
	}
	if t.v.Kind() == types.KindStr {
		return "Runtime Error: " + t.v.AsStr()
	}
	return "Unhandled Exception: " + t.v.String()
}

// shared is the read-only state every Machine spawned while running one
// program holds a pointer to: the compiled Chunk, a lookup from function
// entry address to its FuncMeta (CALL's calling convention needs this,
// compiled.go's doc comment), the natives dispatch table and one
// process-wide natives.Context.
type shared struct {
	chunk     *compiler.Chunk
	addrIndex map[int64]*compiler.FuncMeta
	ctx       *natives.Context
	maxSteps  int64
}

func newShared(chunk *compiler.Chunk, cfg Config, stdout, stderr io.Writer, stdin io.Reader) *shared {
	addrIndex := make(map[int64]*compiler.FuncMeta, len(chunk.Funcs))
	for i := range chunk.Funcs {
		addrIndex[chunk.Funcs[i].Addr] = &chunk.Funcs[i]
	}
	return &shared{
		chunk:     chunk,
		addrIndex: addrIndex,
		maxSteps:  cfg.MaxSteps,
		ctx: &natives.Context{
			Argv:   cfg.Argv,
			Stdout: &lockedWriter{w: stdout},
			Stderr: &lockedWriter{w: stderr},
			Stdin:  bufReader(stdin),
			Rand:   newRand(),
			Exit:   func(code int) { panic(exitRequest{code}) },
		},
	}
}
