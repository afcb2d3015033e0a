package compiler

import (
	"fmt"
	goscanner "go/scanner"
	gotoken "go/token"

	"github.com/opo-lang/opo/lang/lexer"
	"github.com/opo-lang/opo/lang/token"
	"github.com/opo-lang/opo/lang/types"
)

// Per-declaration-table capacities (§3: "each table... is capped").
// MaxLocals is also the locals-per-frame slab size lang/vm allocates for
// every call frame (§4.5): a function can never declare more locals than a
// frame has slots for.
const (
	MaxLocals    = 256
	maxFunctions = 256
	maxStructs   = 64
	maxEnums     = 64
)

// localVar is one entry of the current function's compile-time locals
// table: name, declared type, the lexical scope depth it belongs to, its
// frame-relative slot, and narrowing state (§4.3).
type localVar struct {
	name           string
	typ            types.Type
	depth          int
	slot           int
	guardedDepth   int // 0 means "not narrowed"; else scopeDepth+1 at the guard site
	guardedVariant int
}

// funcDecl is a function's signature, recorded before its body is compiled
// so self-calls and calls from later top-level items resolve (§4.3).
type funcDecl struct {
	name       string
	addr       int64
	returnType types.Type
	paramTypes []types.Type
	isPublic   bool
}

type structDecl struct {
	name     string
	decl     *types.StructDecl
	isPublic bool
}

type enumDecl struct {
	name     string
	decl     *types.EnumDecl
	isPublic bool
}

// loopCtx is one entry of the current function's loop stack: the
// while-condition's address (the continue target) and the break-jump
// operand offsets still to be patched to the loop's exit (§4.3).
type loopCtx struct {
	start      int
	breakPatch []int
}

// fnCtx is the compile-time state reset on entering a function body: its
// own locals table, scope depth, next free slot, expected return type, and
// loop stack (§4.3: "entering a function body resets the type stack and
// records the expected return type").
type fnCtx struct {
	name       string
	locals     []localVar
	scopeDepth int
	nextSlot   int
	returnType types.Type
	loops      []loopCtx
}

// tsEntry is one entry of the compile-time type stack mirroring the
// runtime operand stack: the static type an expression production left
// behind, and — when that production was a bare load of a local — the
// local's index, which narrowing uses to find what to guard (§4.3).
type tsEntry struct {
	typ      types.Type
	localIdx int // index into fn.locals, or -1
}

// Compiler drives a lexer.Lexer token-by-token, resolving names, growing a
// compile-time type stack and emitting bytecode into a shared Chunk, all in
// one left-to-right pass (§2, §4.3). compileUnit is re-entrant: each import
// swaps in a fresh Lexer/filename/alias and restores the caller's on
// return, generalizing the teacher's own single-global-parser import trick
// to this struct's fields (see lang/compiler/imports.go).
type Compiler struct {
	lex      *lexer.Lexer
	cur, prv lexer.Token
	filename string

	chunk     *Chunk
	errs      goscanner.ErrorList
	panicMode bool
	hadError  bool

	typeStack []tsEntry

	fn        *fnCtx
	functions []funcDecl
	structs   []structDecl
	enums     []enumDecl

	aliasPrefix string // qualifies names declared while compiling an import

	baseDir, stdlibDir string
	importStack        []string // cycle detection, by resolved absolute path
	importedPaths       map[string]bool
}

// Compile compiles the named source file's contents into a Chunk. baseDir
// is the directory relative imports resolve against (absolute import paths
// are used as-is); stdlibDir is resolved for `std/...` imports (SPEC_FULL §C).
func Compile(filename, source, baseDir, stdlibDir string) (*Chunk, error) {
	c := &Compiler{
		chunk:         newChunk(),
		// Slot 0 stands for the built-in Option enum (types.OptionEnumID),
		// so user-declared enums get ids from 1 and never alias it.
		enums:         []enumDecl{{}},
		baseDir:       baseDir,
		stdlibDir:     stdlibDir,
		importedPaths: map[string]bool{},
	}
	c.compileUnit(filename, source)
	if c.hadError {
		return nil, c.errs
	}

	mainIdx := -1
	for i, f := range c.functions {
		if f.name == "main" {
			mainIdx = i
			break
		}
	}
	if mainIdx == -1 {
		c.errs.Add(gotoken.Position{Filename: filename}, "no 'main' function declared")
		return nil, c.errs
	}

	c.chunk.Funcs = make([]FuncMeta, len(c.functions))
	for i, f := range c.functions {
		c.chunk.Funcs[i] = FuncMeta{
			Name: f.name, Addr: f.addr,
			NumParams: len(f.paramTypes), ReturnKind: uint8(f.returnType.Kind()),
		}
	}

	c.emitByte(CALL)
	c.emitI32(int32(c.functions[mainIdx].addr))
	c.emitByte(HALT)
	return c.chunk, nil
}

// compileUnit lexes and compiles one file's top-level items in order,
// growing c.functions/structs/enums/chunk. It is invoked once for the main
// file and once per distinct resolved import path.
func (c *Compiler) compileUnit(filename, source string) {
	savedLex, savedCur, savedPrv, savedFile := c.lex, c.cur, c.prv, c.filename
	c.lex = lexer.New(filename, source)
	c.filename = filename
	c.advance()
	for !c.check(token.EOF) {
		c.item()
		for c.match(token.SEMI) {
		}
		if c.panicMode {
			c.synchronize()
		}
	}
	c.lex, c.cur, c.prv, c.filename = savedLex, savedCur, savedPrv, savedFile
}

// --- token stream plumbing ---

func (c *Compiler) advance() {
	c.prv = c.cur
	c.cur = c.lex.Next()
	for _, e := range c.lex.Errors {
		c.hadError = true
		c.errs = append(c.errs, e)
	}
	c.lex.Errors = nil
}

func (c *Compiler) check(k token.Token) bool { return c.cur.Kind == k }

func (c *Compiler) match(k token.Token) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) expect(k token.Token, msg string) lexer.Token {
	if c.check(k) {
		tok := c.cur
		c.advance()
		return tok
	}
	c.errorAtCurrent(msg)
	return c.cur
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.cur, msg) }
func (c *Compiler) errorAtPrev(msg string)    { c.errorAt(c.prv, msg) }

// errorAt records one diagnostic and enters panic mode, so a single
// malformed construct does not cascade into spurious follow-on errors
// (§7, mirroring go/scanner.ErrorList's accumulate-then-report shape).
func (c *Compiler) errorAt(tok lexer.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	line, col := tok.Pos.LineCol()
	lit := tok.Lit
	if tok.Kind == token.EOF {
		lit = "<eof>"
	}
	c.errs.Add(gotoken.Position{Filename: c.filename, Line: line, Column: col},
		fmt.Sprintf("at '%s': %s", lit, msg))
}

// synchronize skips tokens until a statement or item boundary so the next
// construct gets a clean parse attempt.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for !c.check(token.EOF) {
		if c.prv.Kind == token.SEMI {
			return
		}
		switch c.cur.Kind {
		case token.STRUCT, token.ENUM, token.LANGLE, token.PUB, token.MATCH,
			token.TRY, token.THROW:
			return
		}
		c.advance()
	}
}

// --- compile-time type stack ---

func (c *Compiler) push(t types.Type) { c.typeStack = append(c.typeStack, tsEntry{typ: t, localIdx: -1}) }

func (c *Compiler) pushLocal(t types.Type, idx int) {
	c.typeStack = append(c.typeStack, tsEntry{typ: t, localIdx: idx})
}

func (c *Compiler) pop() types.Type { return c.popEntry().typ }

func (c *Compiler) popEntry() tsEntry {
	if len(c.typeStack) == 0 {
		return tsEntry{typ: types.TypeVoid, localIdx: -1}
	}
	e := c.typeStack[len(c.typeStack)-1]
	c.typeStack = c.typeStack[:len(c.typeStack)-1]
	return e
}

// --- bytecode emission ---

func (c *Compiler) emitByte(op Op)  { c.chunk.Code = append(c.chunk.Code, byte(op)) }
func (c *Compiler) emitU8(v uint8)  { c.chunk.Code = putU8(c.chunk.Code, v) }
func (c *Compiler) emitI32(v int32) { c.chunk.Code = putI32(c.chunk.Code, v) }
func (c *Compiler) emitI64(v int64) { c.chunk.Code = putI64(c.chunk.Code, v) }
func (c *Compiler) pc() int         { return len(c.chunk.Code) }

// emitJump emits op followed by a placeholder i32 target and returns the
// operand's byte offset for a later patchJump.
func (c *Compiler) emitJump(op Op) int {
	c.emitByte(op)
	at := c.pc()
	c.emitI32(0)
	return at
}

func (c *Compiler) patchJump(at int) { PatchI32(c.chunk.Code, at, int32(c.pc())) }

func (c *Compiler) emitLoop(start int) {
	c.emitByte(JUMP)
	c.emitI32(int32(start))
}

// addString interns s in the chunk's string table, returning its index.
func (c *Compiler) addString(s string) uint8 {
	if len(c.chunk.Strings) >= 256 {
		c.errorAtPrev("too many distinct strings in program")
		return 0
	}
	return c.chunk.AddString(s)
}

// --- name resolution ---

func (c *Compiler) qualified(name string) string {
	if c.aliasPrefix == "" {
		return name
	}
	return c.aliasPrefix + "." + name
}

func (c *Compiler) findFunction(name string) (int, bool) {
	for i, f := range c.functions {
		if f.name == name {
			return i, true
		}
	}
	return -1, false
}

func (c *Compiler) findStruct(name string) (int, bool) {
	for i, s := range c.structs {
		if s.name == name {
			return i, true
		}
	}
	return -1, false
}

func (c *Compiler) findEnum(name string) (int, bool) {
	for i, e := range c.enums {
		if e.name == name {
			return i, true
		}
	}
	return -1, false
}

// resolveLocal searches the current function's locals innermost-scope
// first, so shadowing resolves to the nearest declaration.
func (c *Compiler) resolveLocal(name string) (int, bool) {
	if c.fn == nil {
		return -1, false
	}
	for i := len(c.fn.locals) - 1; i >= 0; i-- {
		if c.fn.locals[i].name == name {
			return i, true
		}
	}
	return -1, false
}

func (c *Compiler) declareLocal(name string, typ types.Type) int {
	if c.fn == nil {
		return -1
	}
	if len(c.fn.locals) >= MaxLocals {
		c.errorAtPrev("too many locals in function")
		return -1
	}
	slot := c.fn.nextSlot
	c.fn.nextSlot++
	c.fn.locals = append(c.fn.locals, localVar{name: name, typ: typ, depth: c.fn.scopeDepth, slot: slot})
	return len(c.fn.locals) - 1
}

func (c *Compiler) beginScope() {
	if c.fn != nil {
		c.fn.scopeDepth++
	}
}

// endScope drops locals declared in the exiting scope from the
// name-resolution table. Their storage is not reclaimed here: the §4.5
// paged locals slab is released wholesale by RET, not per-scope.
func (c *Compiler) endScope() {
	if c.fn == nil {
		return
	}
	c.fn.scopeDepth--
	for len(c.fn.locals) > 0 && c.fn.locals[len(c.fn.locals)-1].depth > c.fn.scopeDepth {
		c.fn.locals = c.fn.locals[:len(c.fn.locals)-1]
	}
}

// --- type parsing ---

// parseType parses a type annotation: a primitive/any/void/err keyword, a
// struct or enum name, "chan<T>", "[T]" (array), "{K:V}" (map), "fun" (the
// bare function kind erased of signature), or any of those followed by a
// postfix "?" for Option<T> (§4.2).
func (c *Compiler) parseType() types.Type {
	base := c.parseTypeAtom()
	if c.match(token.QUESTION) {
		return types.OptionOf(base.Kind())
	}
	return base
}

func (c *Compiler) parseTypeAtom() types.Type {
	switch {
	case c.check(token.CHAN):
		c.advance()
		c.expect(token.LANGLE, "expected '<' after 'chan'")
		inner := c.parseType()
		c.expect(token.RANGLE, "expected '>' to close chan type")
		return types.ChanOf(inner.Kind())
	case c.check(token.LBRACK):
		c.advance()
		inner := c.parseType()
		c.expect(token.RBRACK, "expected ']' to close array type")
		return types.ArrayOf(inner.Kind())
	case c.check(token.LBRACE):
		c.advance()
		key := c.parseType()
		c.expect(token.COLON, "expected ':' in map type")
		val := c.parseType()
		c.expect(token.RBRACE, "expected '}' to close map type")
		return types.MapOf(key.Kind(), val.Kind())
	case c.check(token.ERR):
		c.advance()
		return types.TypeErr
	case c.check(token.IDENT):
		name := c.cur.Lit
		c.advance()
		switch name {
		case "int":
			return types.TypeInt
		case "flt":
			return types.TypeFlt
		case "bol":
			return types.TypeBool
		case "str":
			return types.TypeStr
		case "void":
			return types.TypeVoid
		case "any":
			return types.TypeAny
		case "fun":
			return types.FuncAny
		}
		if i, ok := c.findStruct(name); ok {
			return types.StructType(uint8(i))
		}
		if i, ok := c.findEnum(name); ok {
			return types.EnumType(uint8(i))
		}
		c.errorAtPrev(fmt.Sprintf("unknown type '%s'", name))
		return types.TypeAny
	default:
		c.errorAtCurrent("expected a type")
		return types.TypeAny
	}
}

// item compiles one top-level declaration: a struct, enum, function or
// import, each optionally prefixed by 'pub' (§4.3, §6).
func (c *Compiler) item() {
	isPublic := c.match(token.PUB)
	switch {
	case c.check(token.STRUCT):
		c.structDef(isPublic)
	case c.check(token.ENUM):
		c.enumDef(isPublic)
	case c.check(token.LANGLE):
		c.funcDef(isPublic)
	case c.check(token.STRING):
		c.importDecl()
	default:
		c.errorAtCurrent("expected a struct, enum, function or import declaration")
		c.advance()
	}
}
