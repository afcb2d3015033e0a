package compiler

import (
	"fmt"
	"math"
	"strconv"

	"github.com/opo-lang/opo/lang/natives"
	"github.com/opo-lang/opo/lang/token"
	"github.com/opo-lang/opo/lang/types"
)

// Operator precedence levels, lowest to highest. Assignment/declaration
// (=>), the while-loop suffix (@), the conditional suffix (?) and the
// print suffix (!!) are statement-level forms, not part of this table
// (§4.3's "notable forms" are each statements, never nested inside a
// larger expression).
const (
	precNone = iota
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
)

func precedenceOf(tok token.Token) int {
	switch tok {
	case token.PIPEPIPE:
		return precOr
	case token.AMPAMP:
		return precAnd
	case token.EQEQ, token.BANGEQ:
		return precEquality
	case token.LANGLE, token.RANGLE, token.LTE, token.GTE:
		return precComparison
	case token.PLUS, token.MINUS:
		return precTerm
	case token.STAR, token.SLASH, token.PERCENT:
		return precFactor
	case token.LARROW: // `ch <- value` send; binds loosest so the RHS
		// captures a full expression.
		return precOr
	}
	return precNone
}

// parseExpressionEntry parses one full expression at the lowest
// precedence and returns the tsEntry its final production left behind.
// The corresponding value is already emitted onto the runtime operand
// stack; it is the caller's job to consume it (STORE, PRINT, POP, a
// JUMP_IF_F condition, ...).
func (c *Compiler) parseExpressionEntry() tsEntry {
	return c.parsePrecedence(precOr)
}

func (c *Compiler) parsePrecedence(min int) tsEntry {
	left := c.parsePrimary()
	for {
		p := precedenceOf(c.cur.Kind)
		if p == precNone || p < min {
			break
		}
		left = c.parseInfix(left, p)
	}
	return left
}

func (c *Compiler) parseInfix(left tsEntry, prec int) tsEntry {
	opTok := c.cur.Kind
	c.advance()

	if opTok == token.LARROW {
		return c.finishSend(left)
	}

	right := c.parsePrecedence(prec + 1)
	return c.finishBinary(opTok, left, right)
}

// finishSend compiles `ch <- value`, a send expression of static type
// void (§4.3). LARROW binds loosest of all infix operators (see
// precedenceOf) so the right-hand side captures a full expression, the
// way an assignment operator would in a conventional precedence table;
// finishSend parses it directly rather than through parseInfix's usual
// prec+1 recursion.
func (c *Compiler) finishSend(ch tsEntry) tsEntry {
	if ch.typ.Kind() != types.KindChan {
		c.errorAtPrev("left of '<-' must be a channel")
	}
	value := c.parsePrecedence(precOr)
	if ch.typ.Kind() == types.KindChan && !value.typ.AssignableTo(types.Simple(ch.typ.Sub())) {
		c.errorAtPrev("sent value does not match channel element type")
	}
	c.emitByte(SEND)
	return tsEntry{typ: types.TypeVoid, localIdx: -1}
}

// finishBinary type-checks and emits one binary operator application. The
// language has no implicit numeric widening (int/flt are never mixed) and
// string "+" is the only non-numeric arithmetic operator, per the
// supplemented "strict string-concat typing" rule (SPEC_FULL).
func (c *Compiler) finishBinary(op token.Token, left, right tsEntry) tsEntry {
	lt, rt := left.typ, right.typ
	switch op {
	case token.PLUS:
		if lt.Kind() == types.KindStr && rt.Kind() == types.KindStr {
			c.emitByte(ADD)
			return tsEntry{typ: types.TypeStr, localIdx: -1}
		}
		if lt.Kind() == types.KindInt && rt.Kind() == types.KindInt {
			c.emitByte(ADD)
			return tsEntry{typ: types.TypeInt, localIdx: -1}
		}
		if lt.Kind() == types.KindFlt && rt.Kind() == types.KindFlt {
			c.emitByte(ADD)
			return tsEntry{typ: types.TypeFlt, localIdx: -1}
		}
		c.errorAtPrev("'+' requires two ints, two flts or two strs")
		return tsEntry{typ: types.TypeVoid, localIdx: -1}
	case token.MINUS, token.STAR, token.SLASH:
		return tsEntry{typ: c.numericBinOp(op, lt, rt), localIdx: -1}
	case token.PERCENT:
		if lt.Kind() != types.KindInt || rt.Kind() != types.KindInt {
			c.errorAtPrev("'%' requires two ints")
		}
		c.emitByte(MOD)
		return tsEntry{typ: types.TypeInt, localIdx: -1}
	case token.EQEQ, token.BANGEQ:
		if lt.Kind() != rt.Kind() {
			c.errorAtPrev("cannot compare values of different kinds")
		}
		c.emitByte(EQ)
		if op == token.BANGEQ {
			c.emitByte(NOT)
		}
		return tsEntry{typ: types.TypeBool, localIdx: -1}
	case token.LANGLE, token.RANGLE, token.LTE, token.GTE:
		if (lt.Kind() != types.KindInt && lt.Kind() != types.KindFlt) || lt.Kind() != rt.Kind() {
			c.errorAtPrev("comparison requires two ints or two flts")
		}
		switch op {
		case token.LANGLE:
			c.emitByte(LT)
		case token.RANGLE:
			c.emitByte(GT)
		case token.LTE:
			c.emitByte(LTE)
		case token.GTE:
			c.emitByte(GTE)
		}
		return tsEntry{typ: types.TypeBool, localIdx: -1}
	case token.AMPAMP, token.PIPEPIPE:
		if lt.Kind() != types.KindBool || rt.Kind() != types.KindBool {
			c.errorAtPrev("'&&'/'||' require bool operands")
		}
		if op == token.AMPAMP {
			c.emitByte(AND)
		} else {
			c.emitByte(OR)
		}
		return tsEntry{typ: types.TypeBool, localIdx: -1}
	}
	c.errorAtPrev("unsupported operator")
	return tsEntry{typ: types.TypeVoid, localIdx: -1}
}

func (c *Compiler) numericBinOp(op token.Token, lt, rt types.Type) types.Type {
	if lt.Kind() != rt.Kind() || (lt.Kind() != types.KindInt && lt.Kind() != types.KindFlt) {
		c.errorAtPrev("arithmetic requires two ints or two flts")
		return types.TypeVoid
	}
	switch op {
	case token.MINUS:
		c.emitByte(SUB)
	case token.STAR:
		c.emitByte(MUL)
	case token.SLASH:
		c.emitByte(DIV)
	}
	return lt
}

// --- primaries ---

func (c *Compiler) parsePrimary() tsEntry {
	switch {
	case c.match(token.MINUS):
		operand := c.parsePrecedence(precUnary)
		if operand.typ.Kind() != types.KindInt && operand.typ.Kind() != types.KindFlt {
			c.errorAtPrev("unary '-' requires an int or flt")
		}
		c.emitByte(NEG)
		return tsEntry{typ: operand.typ, localIdx: -1}
	case c.match(token.BANG):
		operand := c.parsePrecedence(precUnary)
		if operand.typ.Kind() != types.KindBool {
			c.errorAtPrev("unary '!' requires a bool")
		}
		c.emitByte(NOT)
		return tsEntry{typ: types.TypeBool, localIdx: -1}
	case c.match(token.LARROW):
		ch := c.parsePrecedence(precUnary)
		if ch.typ.Kind() != types.KindChan {
			c.errorAtPrev("'<-' requires a channel")
		}
		c.emitByte(RECV)
		return tsEntry{typ: types.Simple(ch.typ.Sub()), localIdx: -1}
	case c.check(token.INT):
		v, _ := strconv.ParseInt(c.cur.Lit, 10, 64)
		c.advance()
		c.emitByte(PUSH_INT)
		c.emitI64(v)
		return tsEntry{typ: types.TypeInt, localIdx: -1}
	case c.check(token.FLOAT):
		v, _ := strconv.ParseFloat(c.cur.Lit, 64)
		c.advance()
		c.emitByte(PUSH_FLT)
		c.emitI64(int64(math.Float64bits(v)))
		return tsEntry{typ: types.TypeFlt, localIdx: -1}
	case c.check(token.STRING):
		lit := c.cur.Lit
		c.advance()
		c.emitByte(PUSH_STR)
		c.emitU8(c.addString(lit))
		return tsEntry{typ: types.TypeStr, localIdx: -1}
	case c.check(token.BOOL):
		b := c.cur.Lit == "tru"
		c.advance()
		c.emitByte(PUSH_BOOL)
		if b {
			c.emitU8(1)
		} else {
			c.emitU8(0)
		}
		return tsEntry{typ: types.TypeBool, localIdx: -1}
	case c.check(token.SOME):
		return c.someExpr()
	case c.check(token.NONE):
		return c.noneExpr()
	case c.check(token.CHAN):
		return c.chanExpr()
	case c.match(token.LPAREN):
		e := c.parsePrecedence(precOr)
		c.expect(token.RPAREN, "expected ')'")
		return e
	case c.check(token.LBRACK):
		return c.arrayLiteral()
	case c.check(token.LBRACE):
		return c.mapLiteral()
	case c.check(token.IDENT):
		return c.identifierExpr()
	default:
		c.errorAtCurrent("expected an expression")
		c.advance()
		return tsEntry{typ: types.TypeVoid, localIdx: -1}
	}
}

func (c *Compiler) someExpr() tsEntry {
	c.expect(token.SOME, "expected 'some'")
	c.expect(token.LPAREN, "expected '(' after 'some'")
	payload := c.parsePrecedence(precOr)
	c.expect(token.RPAREN, "expected ')'")
	typ := types.OptionOf(payload.typ.Kind())
	c.emitByte(ENUM_VARIANT)
	c.emitI32(int32(typ))
	c.emitU8(types.VariantSome)
	c.emitU8(1)
	c.emitU8(0)
	return tsEntry{typ: typ, localIdx: -1}
}

func (c *Compiler) noneExpr() tsEntry {
	c.expect(token.NONE, "expected 'none'")
	// Bare "none" carries no inner-kind annotation; it takes its Option
	// inner kind from context (a declaration's type or a function's
	// declared return type), resolved by the caller rewriting the pushed
	// tsEntry's Sub() where that context is known, mirroring how the
	// original implementation resolves a bare NONE literal's element type
	// from its assignment target.
	typ := types.OptionOf(types.KindAny)
	c.emitByte(ENUM_VARIANT)
	c.emitI32(int32(typ))
	c.emitU8(types.VariantNone)
	c.emitU8(0)
	c.emitU8(0)
	return tsEntry{typ: typ, localIdx: -1}
}

func (c *Compiler) chanExpr() tsEntry {
	c.expect(token.CHAN, "expected 'chan'")
	c.expect(token.LANGLE, "expected '<' after 'chan'")
	elem := c.parseType()
	c.expect(token.RANGLE, "expected '>' to close chan type")
	c.expect(token.LPAREN, "expected '(' for channel capacity")
	capEntry := c.parsePrecedence(precOr)
	if capEntry.typ.Kind() != types.KindInt {
		c.errorAtPrev("channel capacity must be an int")
	}
	c.expect(token.RPAREN, "expected ')'")
	typ := types.ChanOf(elem.Kind())
	c.emitByte(CHAN)
	c.emitI32(int32(typ))
	return tsEntry{typ: typ, localIdx: -1}
}

// arrayLiteral compiles `[e1, e2, ...]` (§4.3). All elements must share
// the same kind; an empty literal's element kind is `any`.
func (c *Compiler) arrayLiteral() tsEntry {
	c.expect(token.LBRACK, "expected '['")
	elem := types.KindAny
	n := 0
	for !c.check(token.RBRACK) && !c.check(token.EOF) {
		e := c.parsePrecedence(precOr)
		if n == 0 {
			elem = e.typ.Kind()
		} else if e.typ.Kind() != elem {
			c.errorAtPrev("array elements must share the same type")
		}
		n++
		if !c.match(token.COMMA) {
			break
		}
	}
	c.expect(token.RBRACK, "expected ']' to close array literal")
	typ := types.ArrayOf(elem)
	c.emitByte(ARRAY)
	c.emitI32(int32(typ))
	c.emitU8(uint8(n))
	return tsEntry{typ: typ, localIdx: -1}
}

// mapLiteral compiles `{k1: v1, k2: v2, ...}` (§4.3).
func (c *Compiler) mapLiteral() tsEntry {
	c.expect(token.LBRACE, "expected '{'")
	key, val := types.KindAny, types.KindAny
	n := 0
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		k := c.parsePrecedence(precOr)
		c.expect(token.COLON, "expected ':' in map literal")
		v := c.parsePrecedence(precOr)
		if n == 0 {
			key, val = k.typ.Kind(), v.typ.Kind()
		} else if k.typ.Kind() != key || v.typ.Kind() != val {
			c.errorAtPrev("map entries must share the same key/value types")
		}
		n++
		if !c.match(token.COMMA) {
			break
		}
	}
	c.expect(token.RBRACE, "expected '}' to close map literal")
	typ := types.MapOf(key, val)
	c.emitByte(MAP)
	c.emitI32(int32(typ))
	c.emitU8(uint8(n))
	return tsEntry{typ: typ, localIdx: -1}
}

// identifierExpr resolves a bare name against, in order, the current
// function's locals, the struct table (construction call), the enum
// table (variant construction), the function table, and finally the
// native dispatch table (§4.3). A resolved local may be followed by any
// number of `.field` / `.(index)` read chains.
func (c *Compiler) identifierExpr() tsEntry {
	nameTok := c.cur
	name := nameTok.Lit
	c.advance()

	if idx, ok := c.resolveLocal(name); ok {
		local := c.fn.locals[idx]
		c.emitByte(LOAD)
		c.emitU8(uint8(local.slot))
		return c.parsePostfixChain(tsEntry{typ: local.typ, localIdx: idx})
	}
	if si, ok := c.findStruct(name); ok && c.check(token.LPAREN) {
		return c.structConstruct(si)
	}
	if ei, ok := c.findEnum(name); ok && c.check(token.DOT) {
		return c.enumConstruct(ei)
	}
	if fi, ok := c.findFunction(name); ok && c.check(token.LPAREN) {
		return c.callUser(fi)
	}
	if n, ok := natives.ByName[name]; ok && c.check(token.LPAREN) {
		return c.callNative(n)
	}
	c.errorAtPrev(fmt.Sprintf("undefined name '%s'", name))
	return tsEntry{typ: types.TypeVoid, localIdx: -1}
}

// parsePostfixChain consumes zero or more `.field` or `.(index)`
// accessors applied to whatever is currently on top of the runtime
// stack, narrowing `cur`'s static type as each link is taken.
func (c *Compiler) parsePostfixChain(cur tsEntry) tsEntry {
	for c.check(token.DOT) {
		c.advance()
		if c.match(token.LPAREN) {
			idx := c.parsePrecedence(precOr)
			c.expect(token.RPAREN, "expected ')'")
			switch cur.typ.Kind() {
			case types.KindArray:
				if idx.typ.Kind() != types.KindInt {
					c.errorAtPrev("array index must be an int")
				}
				cur = tsEntry{typ: types.Simple(cur.typ.Sub()), localIdx: -1}
			case types.KindStr:
				if idx.typ.Kind() != types.KindInt {
					c.errorAtPrev("string index must be an int")
				}
				cur = tsEntry{typ: types.TypeStr, localIdx: -1}
			case types.KindMap:
				if idx.typ.Kind() != cur.typ.Key() && cur.typ.Key() != types.KindAny {
					c.errorAtPrev("map key type mismatch")
				}
				cur = tsEntry{typ: types.Simple(cur.typ.Sub()), localIdx: -1}
			default:
				c.errorAtPrev("'.( )' requires an array, string or map")
			}
			c.emitByte(INDEX)
			continue
		}
		fieldTok := c.cur
		if !c.match(token.SOME) {
			fieldTok = c.expect(token.IDENT, "expected field name")
		}
		if cur.typ.IsOption() && fieldTok.Lit == "some" {
			// `.some` is a pseudo-field unwrapping an Option's payload,
			// but only inside the guarded scope its backing local was
			// narrowed in by an enclosing `if`'s truthiness check (§4.3's
			// narrowing rule); everywhere else it is a static error, since
			// nothing has proven the value isn't `none`.
			if cur.localIdx < 0 || c.fn.locals[cur.localIdx].guardedDepth == 0 ||
				c.fn.locals[cur.localIdx].guardedVariant != types.VariantSome {
				c.errorAtPrev("unsafe unwrap: '.some' requires a narrowed Option")
			}
			// EXTRACT_ENUM_PAYLOAD (not the non-destructive
			// GET_ENUM_PAYLOAD) since the postfix chain replaces the
			// Option on the stack with its payload rather than stacking
			// both.
			c.emitByte(EXTRACT_ENUM_PAYLOAD)
			cur = tsEntry{typ: types.Simple(cur.typ.Sub()), localIdx: -1}
			continue
		}
		if cur.typ.Kind() != types.KindStruct {
			c.errorAtPrev("'.' field access requires a struct")
			cur = tsEntry{typ: types.TypeVoid, localIdx: -1}
			continue
		}
		decl := c.structs[cur.typ.Reserved()].decl
		fi := decl.FieldIndex(fieldTok.Lit)
		if fi < 0 {
			c.errorAtPrev("unknown field '" + fieldTok.Lit + "'")
			continue
		}
		c.emitByte(GET_MEMBER)
		c.emitU8(uint8(fi))
		cur = tsEntry{typ: decl.FieldTypes[fi], localIdx: -1}
	}
	return cur
}

// structConstruct compiles `StructName(v1, v2, ...)` (§4.3): the
// declared struct's fields are positional, so argument order must match
// declaration order.
func (c *Compiler) structConstruct(si int) tsEntry {
	decl := c.structs[si].decl
	c.expect(token.LPAREN, "expected '('")
	n := 0
	for !c.check(token.RPAREN) && !c.check(token.EOF) {
		arg := c.parsePrecedence(precOr)
		if n < len(decl.FieldTypes) && !arg.typ.AssignableTo(decl.FieldTypes[n]) {
			c.errorAtPrev(fmt.Sprintf("argument %d does not match field type", n))
		}
		n++
		if !c.match(token.COMMA) {
			break
		}
	}
	c.expect(token.RPAREN, "expected ')'")
	if n != len(decl.FieldTypes) {
		c.errorAtPrev("wrong number of struct constructor arguments")
	}
	typ := types.StructType(uint8(si))
	c.emitByte(STRUCT)
	c.emitU8(uint8(n))
	return tsEntry{typ: typ, localIdx: -1}
}

// enumConstruct compiles `EnumName.Variant` or `EnumName.Variant(payload)`
// (§4.3), baking the printable "EnumName.Variant" label into the string
// table for ENUM_VARIANT's fourth operand (see lang/types/enum.go).
func (c *Compiler) enumConstruct(ei int) tsEntry {
	decl := c.enums[ei].decl
	c.expect(token.DOT, "expected '.'")
	variantTok := c.expect(token.IDENT, "expected enum variant name")
	vi := decl.VariantIndex(variantTok.Lit)
	if vi < 0 {
		c.errorAtPrev("unknown variant '" + variantTok.Lit + "'")
		vi = 0
	}
	has := vi >= 0 && vi < len(decl.HasPayload) && decl.HasPayload[vi]
	if has {
		c.expect(token.LPAREN, "expected '(' for variant payload")
		payload := c.parsePrecedence(precOr)
		if !payload.typ.AssignableTo(decl.PayloadTypes[vi]) {
			c.errorAtPrev("payload type does not match variant declaration")
		}
		c.expect(token.RPAREN, "expected ')'")
	} else if c.check(token.LPAREN) {
		c.errorAtPrev("variant '" + variantTok.Lit + "' takes no payload")
	}
	typ := types.EnumType(uint8(ei))
	label := c.addString(decl.Name + "." + variantTok.Lit)
	c.emitByte(ENUM_VARIANT)
	c.emitI32(int32(typ))
	c.emitU8(uint8(vi))
	if has {
		c.emitU8(1)
	} else {
		c.emitU8(0)
	}
	c.emitU8(label)
	return tsEntry{typ: typ, localIdx: -1}
}

func (c *Compiler) callUser(fi int) tsEntry {
	f := c.functions[fi]
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
	c.emitByte(CALL)
	c.emitI32(int32(f.addr))
	return tsEntry{typ: f.returnType, localIdx: -1}
}

func (c *Compiler) callNative(n *natives.Native) tsEntry {
	c.expect(token.LPAREN, "expected '('")
	argc := 0
	for !c.check(token.RPAREN) && !c.check(token.EOF) {
		arg := c.parsePrecedence(precOr)
		if argc < len(n.ParamTypes) && !arg.typ.AssignableTo(n.ParamTypes[argc]) {
			c.errorAtPrev(fmt.Sprintf("argument %d to '%s' has the wrong type", argc, n.Name))
		}
		argc++
		if !c.match(token.COMMA) {
			break
		}
	}
	c.expect(token.RPAREN, "expected ')'")
	if n.Variadic {
		if argc < len(n.ParamTypes) {
			c.errorAtPrev(fmt.Sprintf("'%s' expects at least %d arguments, got %d", n.Name, len(n.ParamTypes), argc))
		}
	} else if argc != len(n.ParamTypes) {
		c.errorAtPrev(fmt.Sprintf("'%s' expects %d arguments, got %d", n.Name, len(n.ParamTypes), argc))
	}
	// INVOKE's second operand carries the actual argument count, distinct
	// from the native's registered ParamTypes length, so lang/vm can pop
	// the right number of stack slots for a variadic native (ffiCall, #29)
	// without needing to special-case it (SPEC_FULL §C/D).
	c.emitByte(INVOKE)
	c.emitU8(uint8(n.Index))
	c.emitU8(uint8(argc))
	return tsEntry{typ: n.ReturnType, localIdx: -1}
}
