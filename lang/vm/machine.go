package vm

import (
	"fmt"

	"github.com/opo-lang/opo/lang/compiler"
	"github.com/opo-lang/opo/lang/types"
)

const (
	// stackMax bounds the shared operand stack, per Machine.
	stackMax = 1 << 16
	// maxFrames bounds call depth, per Machine; exceeding it throws a
	// "stack overflow" runtime error rather than corrupting the fixed
	// locals slab (machine.locals is sized maxFrames*compiler.MaxLocals).
	maxFrames = 512
)

// haltReturn marks a call frame whose RET should stop the Machine's run
// loop instead of resuming bytecode at a recorded return address: the
// root Machine never has one (CALL/RET always resume into the "CALL main;
// HALT" wrapper, §4.5), but every `go`-spawned Machine starts with exactly
// one, since there is no caller bytecode to resume into.
const haltReturn = -1

// frame is one call frame: where to resume (or haltReturn), the base
// offset into the flat locals slab this call's locals 0..N-1 live at, and
// the enclosing function's declared return kind, which is what RET
// consults to decide whether a value needs popping (§4.5: "RET's value-pop
// behavior depends on the callee's declared return type, not the opcode
// itself").
type frame struct {
	returnIP  int
	localsOff int
	retKind   types.Kind
}

// tryFrame is one entry of the try/throw unwind stack (§4.5): the catch
// handler's bytecode address and the operand-stack/call-frame depths to
// restore before jumping there.
type tryFrame struct {
	handlerIP int
	stackPtr  int
	framePtr  int
}

// machine is one running VM instance: either the top-level program or one
// `go`-spawned task. It owns its own operand stack, locals slab, call
// frame stack and try stack outright; the only state it shares with
// siblings is the read-only *shared (Chunk + natives Context).
type machine struct {
	sh *shared

	stack []types.Value
	sp    int

	locals []types.Value
	frames []frame
	fp     int

	tryStack []tryFrame

	steps int64
}

func newMachine(sh *shared) *machine {
	return &machine{
		sh:     sh,
		stack:  make([]types.Value, stackMax),
		locals: make([]types.Value, maxFrames*compiler.MaxLocals),
		frames: make([]frame, maxFrames),
		fp:     -1,
	}
}

func (m *machine) push(v types.Value) {
	if m.sp >= len(m.stack) {
		m.runtimeError("stack overflow")
	}
	m.stack[m.sp] = v
	m.sp++
}

func (m *machine) pop() types.Value {
	m.sp--
	v := m.stack[m.sp]
	m.stack[m.sp] = types.Zero
	return v
}

func (m *machine) peek(back int) types.Value {
	return m.stack[m.sp-1-back]
}

// localsBase returns the current frame's slab offset.
func (m *machine) localsBase() int {
	return m.frames[m.fp].localsOff
}

// throwable is the internal control-flow error run() uses to unwind a Go
// call stack back up to Run when a throw (user or interpreter-raised)
// finds no handler anywhere on this Machine's own tryStack. It is never
// exposed outside the package; Run turns it into the §7 message shapes.
type throwable struct{ v types.Value }

func (t throwable) Error() string { return t.v.String() }

// runtimeError raises an interpreter-detected fault (§7): delivered to a
// handler (or to Run, if none) as a plain heap string, never as a err-kind
// Value, so it formats identically whether caught (str(e) yields the bare
// message) or left uncaught ("Runtime Error: <msg>").
func (m *machine) runtimeError(format string, args ...any) {
	panic(throwable{v: types.Str(fmt.Sprintf(format, args...))})
}
