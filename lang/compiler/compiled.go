// Package compiler implements opo's single-pass Pratt compiler: the Lexer
// is driven token-by-token while name resolution, type stacking and
// bytecode emission all happen in the same left-to-right walk (§2, §4.3).
// There is no intermediate AST and no separate resolver phase, unlike the
// teacher's scan→parse→resolve→compile pipeline this package is adapted
// from (lang/compiler/compiler.go there walks an already-built
// *ast.File); opo collapses that into Compile(source) -> (*Chunk, error).
package compiler

// Chunk is the sole output of compilation (§3): a byte vector of opcodes
// and operands plus an append-index-stable string literal table. There is
// no separate per-function section — every function body is inlined
// directly into Code, bracketed by an unconditional jump that skips it at
// top-level, so Chunk carries no symbol table, no line-number table beyond
// what natively rides along in compile errors, and is never serialized
// (§1 Non-goals: no bytecode persistence).
//
// Funcs is the one narrow exception: CALL addr (§4.4) carries no argument
// count of its own (unlike INVOKE/GO, which encode it inline), so lang/vm
// needs some way to know how many already-evaluated operand-stack values a
// direct call should bind into the callee's fresh locals frame. Funcs
// records exactly that — entry address, parameter count, return kind —
// for every function the compiler declared; it is not a general symbol
// table (no names needed at runtime, Name is carried only for runtime
// error messages) and never grows beyond what CALL's calling convention
// requires.
type Chunk struct {
	Code    []byte
	Strings []string
	Funcs   []FuncMeta
}

// FuncMeta is one Funcs entry (see Chunk.Funcs).
type FuncMeta struct {
	Name       string
	Addr       int64
	NumParams  int
	ReturnKind uint8
}

// Reserved string-table indices for the fixed typeof-strings (§3): every
// Chunk's Strings table begins with these six entries in this order. The
// compiler has no `typeof` builtin and emits no PUSH_STR against these
// indices; the VM's TYPEOF handler builds its string at run time with
// types.Type.TypeOfString.
const (
	StrNone = iota
	StrInt
	StrFlt
	StrBool
	StrStr
	StrVoid
	numReservedStrings
)

var reservedStrings = [numReservedStrings]string{
	StrNone: "none",
	StrInt:  "int",
	StrFlt:  "flt",
	StrBool: "bol",
	StrStr:  "str",
	StrVoid: "void",
}

func newChunk() *Chunk {
	return &Chunk{Strings: append([]string(nil), reservedStrings[:]...)}
}

// AddString appends s to the string table (unless it is already one of the
// reserved entries or a prior literal with the same text, which it reuses)
// and returns its stable index.
func (c *Chunk) AddString(s string) uint8 {
	for i, existing := range c.Strings {
		if existing == s {
			return uint8(i)
		}
	}
	c.Strings = append(c.Strings, s)
	return uint8(len(c.Strings) - 1)
}
