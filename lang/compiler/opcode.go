package compiler

import (
	"encoding/binary"
	"fmt"
)

// Op is a single bytecode instruction's opcode, one byte wide, as laid out
// in §4.4. All jump and constant operands are little-endian and inline
// immediately after the opcode byte; the comment on each constant repeats
// the §4.4 Operands column.
type Op byte

//nolint:revive
const (
	HALT Op = iota

	PUSH_INT  // i64
	PUSH_FLT  // i64 (bits)
	PUSH_STR  // u8 idx
	PUSH_BOOL // u8
	PUSH_FUNC // i64 addr, u8 type-kind

	ADD
	SUB
	MUL
	DIV
	MOD
	NEG

	EQ
	LT
	GT
	LTE
	GTE

	AND
	OR
	NOT

	PRINT

	STORE // u8
	LOAD  // u8
	LOAD_G

	POP

	JUMP      // i32
	JUMP_IF_F // i32
	IS_TRUTHY

	CALL   // i32
	INVOKE // u8 native idx, u8 argc
	GO     // u8 n
	RET

	TYPEOF

	INDEX
	SET_INDEX

	GET_MEMBER // u8
	SET_MEMBER // u8

	ARRAY  // i32 type, u8 n
	MAP    // i32 type, u8 n
	STRUCT // u8 n

	ENUM_VARIANT  // i32 type, u8 variant id, u8 has, u8 label str idx
	CHECK_VARIANT // i32 variant id
	CHECK_TYPE    // u8 kind
	AS_TYPE       // i32 type

	GET_ENUM_PAYLOAD
	EXTRACT_ENUM_PAYLOAD

	TRY // i32 addr
	END_TRY
	THROW

	CHAN // i32 type
	SEND
	RECV

	numOps
)

var opNames = [numOps]string{
	HALT: "HALT", PUSH_INT: "PUSH_INT", PUSH_FLT: "PUSH_FLT", PUSH_STR: "PUSH_STR",
	PUSH_BOOL: "PUSH_BOOL", PUSH_FUNC: "PUSH_FUNC", ADD: "ADD", SUB: "SUB", MUL: "MUL",
	DIV: "DIV", MOD: "MOD", NEG: "NEG", EQ: "EQ", LT: "LT", GT: "GT", LTE: "LTE",
	GTE: "GTE", AND: "AND", OR: "OR", NOT: "NOT", PRINT: "PRINT", STORE: "STORE",
	LOAD: "LOAD", LOAD_G: "LOAD_G", POP: "POP", JUMP: "JUMP", JUMP_IF_F: "JUMP_IF_F",
	IS_TRUTHY: "IS_TRUTHY", CALL: "CALL", INVOKE: "INVOKE", GO: "GO", RET: "RET",
	TYPEOF: "TYPEOF", INDEX: "INDEX", SET_INDEX: "SET_INDEX", GET_MEMBER: "GET_MEMBER",
	SET_MEMBER: "SET_MEMBER", ARRAY: "ARRAY", MAP: "MAP", STRUCT: "STRUCT",
	ENUM_VARIANT: "ENUM_VARIANT", CHECK_VARIANT: "CHECK_VARIANT", CHECK_TYPE: "CHECK_TYPE",
	AS_TYPE: "AS_TYPE", GET_ENUM_PAYLOAD: "GET_ENUM_PAYLOAD",
	EXTRACT_ENUM_PAYLOAD: "EXTRACT_ENUM_PAYLOAD", TRY: "TRY", END_TRY: "END_TRY",
	THROW: "THROW", CHAN: "CHAN", SEND: "SEND", RECV: "RECV",
}

func (op Op) String() string {
	if op < numOps {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", byte(op))
}

// --- little-endian operand encode/decode helpers, shared with lang/vm's
// fetch-decode loop (§4.4: "all jump targets are absolute 32-bit
// little-endian byte offsets... integers are 8 bytes little-endian").

func putU8(buf []byte, v uint8) []byte   { return append(buf, v) }
func putI32(buf []byte, v int32) []byte  { return binary.LittleEndian.AppendUint32(buf, uint32(v)) }
func putU32(buf []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(buf, v) }
func putI64(buf []byte, v int64) []byte  { return binary.LittleEndian.AppendUint64(buf, uint64(v)) }

// DecodeU8 reads a u8 operand at code[pc].
func DecodeU8(code []byte, pc int) uint8 { return code[pc] }

// DecodeI32 reads an i32 operand at code[pc:pc+4].
func DecodeI32(code []byte, pc int) int32 {
	return int32(binary.LittleEndian.Uint32(code[pc : pc+4]))
}

// DecodeU32 reads a u32 operand at code[pc:pc+4].
func DecodeU32(code []byte, pc int) uint32 {
	return binary.LittleEndian.Uint32(code[pc : pc+4])
}

// DecodeI64 reads an i64 operand at code[pc:pc+8].
func DecodeI64(code []byte, pc int) int64 {
	return int64(binary.LittleEndian.Uint64(code[pc : pc+8]))
}

// PatchI32 overwrites the i32 operand at code[pc:pc+4] in place, used to
// back-patch forward jump targets once they are known.
func PatchI32(code []byte, pc int, v int32) {
	binary.LittleEndian.PutUint32(code[pc:pc+4], uint32(v))
}

// OperandLen returns the number of operand bytes following op's opcode
// byte, used by the disassembler (and by tests) to step through Code
// without a full fetch-decode-execute loop.
func OperandLen(op Op) int {
	switch op {
	case PUSH_INT, PUSH_FLT:
		return 8
	case PUSH_FUNC:
		return 9
	case PUSH_STR, PUSH_BOOL, STORE, LOAD, LOAD_G, GO,
		GET_MEMBER, SET_MEMBER, STRUCT, CHECK_TYPE:
		return 1
	case INVOKE:
		return 2
	case JUMP, JUMP_IF_F, CALL, CHECK_VARIANT, AS_TYPE, TRY, CHAN:
		return 4
	case ARRAY, MAP:
		return 5
	case ENUM_VARIANT:
		return 7
	default:
		return 0
	}
}
