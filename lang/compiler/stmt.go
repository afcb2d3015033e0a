package compiler

import (
	"fmt"

	"github.com/opo-lang/opo/lang/token"
	"github.com/opo-lang/opo/lang/types"
)

// block compiles `[ stmt; stmt; ... ]`. The caller is responsible for any
// scope it wants wrapped around the block (funcDef manages its own
// top-level scope directly; scopedBlock wraps nested uses).
func (c *Compiler) block() {
	c.expect(token.LBRACK, "expected '[' to open a block")
	for !c.check(token.RBRACK) && !c.check(token.EOF) {
		c.statement()
		for c.match(token.SEMI) {
		}
		if c.panicMode {
			c.synchronize()
		}
	}
	c.expect(token.RBRACK, "expected ']' to close a block")
}

func (c *Compiler) scopedBlock() {
	c.beginScope()
	c.block()
	c.endScope()
}

// statement compiles one statement. Every statement production leaves the
// runtime operand stack exactly as it found it (§4.3's "statements are
// void"), the invariant finishDeclare/finishPrint/exprStatement's default
// POP case and the loop/try/match forms all maintain.
func (c *Compiler) statement() {
	switch {
	case c.check(token.LBRACK):
		c.scopedBlock()
	case c.check(token.ASSIGN):
		c.mutation()
	case c.check(token.CARET):
		c.returnStmt()
	case c.check(token.DOT):
		c.breakStmt()
	case c.check(token.DOTDOT):
		c.continueStmt()
	case c.check(token.THROW):
		c.throwStmt()
	case c.check(token.TRY):
		c.tryCatchStmt()
	case c.check(token.MATCH):
		c.matchStmt()
	case c.check(token.GO):
		c.goStmt()
	default:
		c.exprStatement()
	}
}

// exprStatement compiles a bare expression followed by one of its
// statement-level suffixes: "=> name : type" (declare), "=> name"
// (re-assign), "@ body" (while),
// "? then [: else]" (conditional) or "!!" (print); with none of those, the
// expression's value (if any) is simply discarded.
func (c *Compiler) exprStatement() {
	start := c.pc()
	entry := c.parseExpressionEntry()
	switch {
	case c.match(token.ASSIGN):
		c.finishDeclare(entry)
	case c.match(token.AT):
		c.finishWhile(entry, start)
	case c.match(token.QUESTION):
		c.finishConditional(entry)
	case c.match(token.BANGBANG):
		c.finishPrint(entry)
	default:
		if entry.typ.Kind() != types.KindVoid {
			c.emitByte(POP)
		}
	}
}

// finishDeclare compiles the "=> name : type" suffix of a local
// declaration (§4.3), or the "=> name" suffix that stores into an already
// declared local: init is already on the stack.
func (c *Compiler) finishDeclare(init tsEntry) {
	nameTok := c.expect(token.IDENT, "expected a name after '=>'")
	if !c.check(token.COLON) {
		// `expr => name` without a type re-assigns an existing local.
		idx, ok := c.resolveLocal(nameTok.Lit)
		if !ok {
			c.errorAtPrev("undefined local '" + nameTok.Lit + "'")
			return
		}
		if !init.typ.AssignableTo(c.fn.locals[idx].typ) {
			c.errorAtPrev("value does not match local's declared type")
		}
		c.emitByte(STORE)
		c.emitU8(uint8(c.fn.locals[idx].slot))
		return
	}
	c.expect(token.COLON, "expected ':' after declared name")
	declType := c.parseType()
	if init.typ.IsOption() && init.typ.Sub() == types.KindAny && declType.IsOption() {
		// A bare `none` literal defers its inner kind to the declaration
		// it initializes (see noneExpr).
		init.typ = declType
	}
	if !init.typ.AssignableTo(declType) {
		c.errorAtPrev(fmt.Sprintf("cannot assign %s to declared type %s", init.typ, declType))
	}
	idx := c.declareLocal(nameTok.Lit, declType)
	if idx < 0 {
		return
	}
	c.emitByte(STORE)
	c.emitU8(uint8(c.fn.locals[idx].slot))
}

// finishWhile compiles the "@ body" suffix of a while loop (§4.3). start
// is the pc where the condition's own bytecode began, which doubles as
// both the loop's re-check target and the continue target.
func (c *Compiler) finishWhile(cond tsEntry, start int) {
	c.compileTruthiness(cond)
	exit := c.emitJump(JUMP_IF_F)
	c.fn.loops = append(c.fn.loops, loopCtx{start: start})
	c.scopedBlock()
	loop := c.fn.loops[len(c.fn.loops)-1]
	c.fn.loops = c.fn.loops[:len(c.fn.loops)-1]
	c.emitLoop(start)
	c.patchJump(exit)
	for _, p := range loop.breakPatch {
		c.patchJump(p)
	}
}

// finishConditional compiles the "? then [: else]" suffix (§4.3). Both
// branches are ordinary statements (possibly blocks). The conditional is a
// pure control construct and never itself yields a value, so neither
// branch may leave a residual operand.
func (c *Compiler) finishConditional(cond tsEntry) {
	c.compileTruthiness(cond)
	thenJump := c.emitJump(JUMP_IF_F)
	c.withOptionGuard(cond, c.conditionalBranch)
	if c.match(token.COLON) {
		elseJump := c.emitJump(JUMP)
		c.patchJump(thenJump)
		c.conditionalBranch()
		c.patchJump(elseJump)
	} else {
		c.patchJump(thenJump)
	}
}

// withOptionGuard compiles branch with cond's backing local (when cond is
// a bare Option-typed local reference, the "sole scrutinee" case §4.3
// describes) narrowed to the "some" variant for branch's duration, then
// restores whatever guard state preceded it. A condition that isn't a
// bare local — a field access, a call result, a literal — narrows
// nothing, matching "sole scrutinee" literally.
func (c *Compiler) withOptionGuard(cond tsEntry, branch func()) {
	if cond.localIdx < 0 || !cond.typ.IsOption() {
		branch()
		return
	}
	idx := cond.localIdx
	savedDepth, savedVariant := c.fn.locals[idx].guardedDepth, c.fn.locals[idx].guardedVariant
	c.fn.locals[idx].guardedDepth = c.fn.scopeDepth + 1
	c.fn.locals[idx].guardedVariant = types.VariantSome
	branch()
	c.fn.locals[idx].guardedDepth, c.fn.locals[idx].guardedVariant = savedDepth, savedVariant
}

// conditionalBranch compiles one branch of a "?" conditional: a block, a
// bare statement, or a single statement wrapped in parens (the form every
// §8 example uses, e.g. "(\"big\"!!)" or "(.)"). The wrapping parens
// cannot be parsed as ordinary expression-grouping the way
// parsePrimary's LPAREN case does, since a statement-level suffix like
// "!!" or a bare "." break has no meaning inside an expression.
func (c *Compiler) conditionalBranch() {
	if c.match(token.LPAREN) {
		c.statement()
		c.expect(token.RPAREN, "expected ')'")
		return
	}
	c.statement()
}

// compileTruthiness validates and, for an Option scrutinee, converts a
// would-be condition to a real bool via IS_TRUTHY (§4.2: "Option is
// usable directly as a truthy condition; some(_) is true, none is
// false"). Plain bool conditions need no conversion.
func (c *Compiler) compileTruthiness(cond tsEntry) {
	switch {
	case cond.typ.Kind() == types.KindBool:
	case cond.typ.IsOption():
		c.emitByte(IS_TRUTHY)
	default:
		c.errorAtPrev("condition must be a bool or an Option")
	}
}

func (c *Compiler) finishPrint(v tsEntry) {
	if v.typ.Kind() == types.KindVoid {
		c.errorAtPrev("cannot print a void value")
	}
	c.emitByte(PRINT)
}

// mutation compiles "=> name value", "=> obj.field value" or
// "=> arr.(index) value" (§4.3): a prefix-keyed assignment exactly one
// hop deep, matching the literal grammar text.
func (c *Compiler) mutation() {
	c.expect(token.ASSIGN, "expected '=>'")
	nameTok := c.expect(token.IDENT, "expected a name after '=>'")
	idx, ok := c.resolveLocal(nameTok.Lit)
	if !ok {
		c.errorAtPrev("undefined local '" + nameTok.Lit + "'")
		return
	}
	local := c.fn.locals[idx]

	if c.match(token.DOT) {
		if c.match(token.LPAREN) {
			c.emitByte(LOAD)
			c.emitU8(uint8(local.slot))
			key := c.parsePrecedence(precOr)
			c.expect(token.RPAREN, "expected ')'")
			if local.typ.Kind() != types.KindArray && local.typ.Kind() != types.KindMap {
				c.errorAtPrev("'.( )' mutation requires an array or map")
			}
			if local.typ.Kind() == types.KindArray && key.typ.Kind() != types.KindInt {
				c.errorAtPrev("array index must be an int")
			}
			val := c.parsePrecedence(precOr)
			elemType := types.Simple(local.typ.Sub())
			if !val.typ.AssignableTo(elemType) {
				c.errorAtPrev("value does not match element type")
			}
			c.emitByte(SET_INDEX)
			return
		}
		fieldTok := c.expect(token.IDENT, "expected field name")
		if local.typ.Kind() != types.KindStruct {
			c.errorAtPrev("'.' mutation requires a struct")
			return
		}
		decl := c.structs[local.typ.Reserved()].decl
		fi := decl.FieldIndex(fieldTok.Lit)
		if fi < 0 {
			c.errorAtPrev("unknown field '" + fieldTok.Lit + "'")
			return
		}
		c.emitByte(LOAD)
		c.emitU8(uint8(local.slot))
		val := c.parsePrecedence(precOr)
		if !val.typ.AssignableTo(decl.FieldTypes[fi]) {
			c.errorAtPrev("value does not match field type")
		}
		c.emitByte(SET_MEMBER)
		c.emitU8(uint8(fi))
		return
	}

	val := c.parsePrecedence(precOr)
	if !val.typ.AssignableTo(local.typ) {
		c.errorAtPrev("value does not match local's declared type")
	}
	c.emitByte(STORE)
	c.emitU8(uint8(local.slot))
}

func (c *Compiler) breakStmt() {
	c.expect(token.DOT, "expected '.'")
	if len(c.fn.loops) == 0 {
		c.errorAtPrev("'.' (break) outside a loop")
		return
	}
	j := c.emitJump(JUMP)
	top := len(c.fn.loops) - 1
	c.fn.loops[top].breakPatch = append(c.fn.loops[top].breakPatch, j)
}

func (c *Compiler) continueStmt() {
	c.expect(token.DOTDOT, "expected '..'")
	if len(c.fn.loops) == 0 {
		c.errorAtPrev("'..' (continue) outside a loop")
		return
	}
	c.emitLoop(c.fn.loops[len(c.fn.loops)-1].start)
}

// returnStmt compiles "^" (bare void return) or "^ expr" (§4.3). RET's
// runtime stack effect depends on the enclosing function's declared
// return type, not on the opcode itself: lang/vm reads the current
// frame's function return type to decide whether to pop a value.
func (c *Compiler) returnStmt() {
	c.expect(token.CARET, "expected '^'")
	if c.fn.returnType.Kind() == types.KindVoid {
		c.emitByte(RET)
		return
	}
	entry := c.parseExpressionEntry()
	if !entry.typ.AssignableTo(c.fn.returnType) {
		c.errorAtPrev("returned value does not match function's return type")
	}
	c.emitByte(RET)
}

func (c *Compiler) throwStmt() {
	c.expect(token.THROW, "expected 'throw'")
	entry := c.parseExpressionEntry()
	if entry.typ.Kind() != types.KindErr {
		c.errorAtPrev("'throw' requires an err value")
	}
	c.emitByte(THROW)
}

// tryCatchStmt compiles "try block catch name block" (§4.3). TRY pushes a
// try-region onto the VM's unwind stack recording the catch handler's
// address; END_TRY pops it on the normal (non-throwing) path.
func (c *Compiler) tryCatchStmt() {
	c.expect(token.TRY, "expected 'try'")
	tryAt := c.emitJump(TRY)
	c.scopedBlock()
	c.emitByte(END_TRY)
	afterTry := c.emitJump(JUMP)
	c.patchJump(tryAt)

	c.expect(token.CATCH, "expected 'catch'")
	nameTok := c.expect(token.IDENT, "expected a name after 'catch'")
	c.beginScope()
	idx := c.declareLocal(nameTok.Lit, types.TypeErr)
	c.emitByte(STORE)
	c.emitU8(uint8(c.fn.locals[idx].slot))
	c.block()
	c.endScope()

	c.patchJump(afterTry)
}

func (c *Compiler) goStmt() {
	c.expect(token.GO, "expected 'go'")
	nameTok := c.expect(token.IDENT, "expected a function name after 'go'")
	fi, ok := c.findFunction(nameTok.Lit)
	if !ok {
		c.errorAtPrev("undefined function '" + nameTok.Lit + "'")
		return
	}
	f := c.functions[fi]
	c.emitByte(PUSH_FUNC)
	c.emitI64(f.addr)
	c.emitU8(uint8(f.returnType.Kind()))

	c.expect(token.LPAREN, "expected '('")
	n := 0
	for !c.check(token.RPAREN) && !c.check(token.EOF) {
		arg := c.parsePrecedence(precOr)
		if n < len(f.paramTypes) && !arg.typ.AssignableTo(f.paramTypes[n]) {
			c.errorAtPrev(fmt.Sprintf("argument %d to '%s' has the wrong type", n, f.name))
		}
		n++
		if !c.match(token.COMMA) {
			break
		}
	}
	c.expect(token.RPAREN, "expected ')'")
	if n != len(f.paramTypes) {
		c.errorAtPrev(fmt.Sprintf("'%s' expects %d arguments, got %d", f.name, len(f.paramTypes), n))
	}
	c.emitByte(GO)
	c.emitU8(uint8(n))
}

// matchStmt compiles `match scrutinee [ arm; arm; ... ]` (§4.3). Each arm
// peeks the scrutinee's variant/type (CHECK_VARIANT/CHECK_TYPE are
// non-destructive), so a failed check falls through to the next arm with
// the scrutinee still on the stack; the matching arm consumes it, either
// via EXTRACT_ENUM_PAYLOAD into a bound local or a plain POP.
func (c *Compiler) matchStmt() {
	c.expect(token.MATCH, "expected 'match'")
	scrut := c.parseExpressionEntry()
	isAny := scrut.typ.Kind() == types.KindAny
	var decl *types.EnumDecl
	if !isAny && !scrut.typ.IsOption() {
		if scrut.typ.Kind() != types.KindEnum {
			c.errorAtPrev("match requires an Option, enum or any value")
		} else {
			decl = c.enums[scrut.typ.Reserved()].decl
		}
	}

	c.expect(token.LBRACK, "expected '[' to open match arms")
	var endJumps []int
	seenVariant := map[int]bool{}
	seenKind := map[types.Kind]bool{}
	for !c.check(token.RBRACK) && !c.check(token.EOF) {
		var bindType types.Type
		var asAnyKind types.Kind
		switch {
		case isAny:
			k, name := c.parsePrimitiveKindName()
			if seenKind[k] {
				c.errorAtPrev("duplicate match arm for type " + name)
			}
			seenKind[k] = true
			asAnyKind = k
			bindType = types.Simple(k)
			c.emitByte(CHECK_TYPE)
			c.emitU8(uint8(k))
		case scrut.typ.IsOption():
			var vi int
			switch {
			case c.match(token.SOME):
				vi = types.VariantSome
				bindType = types.Simple(scrut.typ.Sub())
			case c.match(token.NONE):
				vi = types.VariantNone
			default:
				c.errorAtCurrent("expected 'some' or 'none'")
			}
			if seenVariant[vi] {
				c.errorAtPrev("duplicate match arm")
			}
			seenVariant[vi] = true
			c.emitByte(CHECK_VARIANT)
			c.emitI32(int32(vi))
		default:
			variantTok := c.expect(token.IDENT, "expected a variant name")
			vi := decl.VariantIndex(variantTok.Lit)
			if vi < 0 {
				c.errorAtPrev("unknown variant '" + variantTok.Lit + "'")
			} else {
				if seenVariant[vi] {
					c.errorAtPrev("duplicate match arm for '" + variantTok.Lit + "'")
				}
				seenVariant[vi] = true
				if decl.HasPayload[vi] {
					bindType = decl.PayloadTypes[vi]
				}
			}
			c.emitByte(CHECK_VARIANT)
			c.emitI32(int32(vi))
		}

		armFail := c.emitJump(JUMP_IF_F)

		hasBinding := false
		var bindName string
		if c.match(token.LPAREN) {
			hasBinding = true
			bindName = c.expect(token.IDENT, "expected a binding name").Lit
			c.expect(token.RPAREN, "expected ')'")
		}

		c.beginScope()
		if isAny {
			c.emitByte(AS_TYPE)
			c.emitI32(int32(types.Simple(asAnyKind)))
			if hasBinding {
				slot := c.declareLocal(bindName, bindType)
				c.emitByte(STORE)
				c.emitU8(uint8(c.fn.locals[slot].slot))
			} else {
				c.emitByte(POP)
			}
		} else if hasBinding {
			c.emitByte(EXTRACT_ENUM_PAYLOAD)
			slot := c.declareLocal(bindName, bindType)
			c.emitByte(STORE)
			c.emitU8(uint8(c.fn.locals[slot].slot))
		} else {
			c.emitByte(POP)
		}

		c.block()
		c.endScope()
		endJumps = append(endJumps, c.emitJump(JUMP))
		c.patchJump(armFail)

		for c.match(token.SEMI) {
		}
	}
	c.expect(token.RBRACK, "expected ']' to close match")
	for _, j := range endJumps {
		c.patchJump(j)
	}

	if scrut.typ.IsOption() {
		if !seenVariant[types.VariantSome] || !seenVariant[types.VariantNone] {
			c.errorAtPrev("match on an Option must cover both 'some' and 'none'")
		}
	} else if decl != nil {
		for i := range decl.VariantNames {
			if !seenVariant[i] {
				c.errorAtPrev("match is not exhaustive: missing '" + decl.VariantNames[i] + "'")
				break
			}
		}
	}
}

// parsePrimitiveKindName parses one of the primitive type keywords used as
// an `any`-scrutinee match arm's discriminant.
func (c *Compiler) parsePrimitiveKindName() (types.Kind, string) {
	name := c.expect(token.IDENT, "expected a type name").Lit
	switch name {
	case "int":
		return types.KindInt, name
	case "flt":
		return types.KindFlt, name
	case "bol":
		return types.KindBool, name
	case "str":
		return types.KindStr, name
	}
	c.errorAtPrev("unknown type name '" + name + "' in match arm")
	return types.KindAny, name
}
