package vm

import (
	"fmt"
	"os"

	"github.com/opo-lang/opo/lang/compiler"
	"github.com/opo-lang/opo/lang/types"
)

// throw implements §4.5's unwind: find the nearest try frame on this
// Machine's own tryStack, release every value above its saved stack depth
// and clear every call frame above its saved frame depth (releasing their
// locals), then push v and return the handler's bytecode address so run's
// dispatch loop can jump straight there. When no try frame exists, throw
// panics with the throwable sentinel run's recover clause understands,
// unwinding the whole Go call stack back up to Run (§7: "otherwise print
// ... and exit").
func (m *machine) throw(v types.Value) int {
	if len(m.tryStack) == 0 {
		panic(throwable{v: v})
	}

	tf := m.tryStack[len(m.tryStack)-1]
	m.tryStack = m.tryStack[:len(m.tryStack)-1]

	for m.sp > tf.stackPtr {
		m.pop().Release()
	}

	for m.fp > tf.framePtr {
		base := m.frames[m.fp].localsOff
		for i := 0; i < compiler.MaxLocals; i++ {
			m.locals[base+i].Release()
			m.locals[base+i] = types.Zero
		}
		m.fp--
	}

	m.push(v)
	return tf.handlerIP
}

// spawn implements the `go` statement (§5, §4.4 GO): start a brand new
// Machine on its own goroutine, sharing only m.sh (the read-only Chunk and
// the process-wide natives.Context) with the parent. Ownership of args
// transfers to the child — they were already popped off the parent's own
// operand stack by the GO opcode handler, so no extra retain is needed.
//
// There is no join (§5: "the language provides no join other than through
// channels"). An uncaught throw inside a spawned task prints and ends the
// whole process, matching §5's single-address-space consequence rather
// than silently swallowing the task's failure.
func (m *machine) spawn(addr int64, fm *compiler.FuncMeta, args []types.Value) {
	sh := m.sh
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if er, ok := r.(exitRequest); ok {
					os.Exit(er.code)
				}
				panic(r)
			}
		}()
		child := newMachine(sh)
		child.fp = 0
		child.frames[0] = frame{returnIP: haltReturn, localsOff: 0, retKind: types.Kind(fm.ReturnKind)}
		for i, a := range args {
			child.locals[i] = a
		}
		if err := child.run(int(addr)); err != nil {
			fmt.Fprintln(sh.ctx.Stderr, formatUncaught(err))
			os.Exit(ExitRuntimeError)
		}
	}()
}
