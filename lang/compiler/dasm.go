package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/opo-lang/opo/lang/natives"
	"github.com/opo-lang/opo/lang/types"
)

// Dasm renders chunk's bytecode in a human-readable textual form, one
// instruction per line prefixed by its byte offset. It is a pure stdout
// debugging aid for the CLI's `disasm` subcommand (§1 Non-goals / SPEC_FULL
// §E): unlike the teacher's Asm/Dasm pair, there is no corresponding Asm
// that parses this text back into a Chunk — opo's bytecode is never
// persisted or round-tripped, only ever produced by Compile and consumed
// by lang/vm.
func Dasm(c *Chunk) string {
	var b strings.Builder
	pc := 0
	for pc < len(c.Code) {
		op := Op(c.Code[pc])
		fmt.Fprintf(&b, "%6d  %s", pc, op)
		operandPC := pc + 1
		switch op {
		case PUSH_INT:
			fmt.Fprintf(&b, " %d", DecodeI64(c.Code, operandPC))
		case PUSH_FLT:
			fmt.Fprintf(&b, " %s", strconv.FormatFloat(math.Float64frombits(uint64(DecodeI64(c.Code, operandPC))), 'g', -1, 64))
		case PUSH_STR:
			idx := DecodeU8(c.Code, operandPC)
			b.WriteByte(' ')
			if int(idx) < len(c.Strings) {
				fmt.Fprintf(&b, "%d %q", idx, c.Strings[idx])
			} else {
				fmt.Fprintf(&b, "%d <out of range>", idx)
			}
		case PUSH_BOOL, STORE, LOAD, LOAD_G, GO, GET_MEMBER, SET_MEMBER, STRUCT:
			fmt.Fprintf(&b, " %d", DecodeU8(c.Code, operandPC))
		case INVOKE:
			idx := DecodeU8(c.Code, operandPC)
			name := "?"
			if int(idx) < len(natives.ByIndex) {
				name = natives.ByIndex[idx].Name
			}
			fmt.Fprintf(&b, " %s(%d) argc=%d", name, idx, DecodeU8(c.Code, operandPC+1))
		case CHECK_TYPE:
			fmt.Fprintf(&b, " %s", types.Kind(DecodeU8(c.Code, operandPC)))
		case PUSH_FUNC:
			fmt.Fprintf(&b, " addr=%d kind=%s", DecodeI64(c.Code, operandPC), types.Kind(DecodeU8(c.Code, operandPC+8)))
		case JUMP, JUMP_IF_F, CALL, TRY:
			fmt.Fprintf(&b, " %d", DecodeI32(c.Code, operandPC))
		case CHECK_VARIANT:
			fmt.Fprintf(&b, " variant=%d", DecodeI32(c.Code, operandPC))
		case AS_TYPE, CHAN:
			fmt.Fprintf(&b, " %s", types.Type(DecodeI32(c.Code, operandPC)))
		case ARRAY, MAP:
			fmt.Fprintf(&b, " %s n=%d", types.Type(DecodeI32(c.Code, operandPC)), DecodeU8(c.Code, operandPC+4))
		case ENUM_VARIANT:
			labelIdx := DecodeU8(c.Code, operandPC+6)
			label := ""
			if int(labelIdx) < len(c.Strings) {
				label = c.Strings[labelIdx]
			}
			fmt.Fprintf(&b, " %s variant=%d has=%d label=%q", types.Type(DecodeI32(c.Code, operandPC)),
				DecodeU8(c.Code, operandPC+4), DecodeU8(c.Code, operandPC+5), label)
		}
		b.WriteByte('\n')
		pc += 1 + OperandLen(op)
	}
	return b.String()
}
