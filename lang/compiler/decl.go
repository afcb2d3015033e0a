package compiler

import (
	"github.com/opo-lang/opo/lang/token"
	"github.com/opo-lang/opo/lang/types"
)

// structDef compiles `struct [ name:type, ... ] => Name : type` (§4.3):
// the field list is not itself bytecode — it only grows the compiler's
// struct table, the way a Go type declaration has no runtime
// representation of its own.
func (c *Compiler) structDef(isPublic bool) {
	c.expect(token.STRUCT, "expected 'struct'")
	c.expect(token.LBRACK, "expected '[' to open struct field list")
	decl := &types.StructDecl{}
	for !c.check(token.RBRACK) && !c.check(token.EOF) {
		name := c.expect(token.IDENT, "expected field name").Lit
		c.expect(token.COLON, "expected ':' after field name")
		typ := c.parseType()
		decl.FieldNames = append(decl.FieldNames, name)
		decl.FieldTypes = append(decl.FieldTypes, typ)
		if !c.match(token.COMMA) {
			break
		}
	}
	c.expect(token.RBRACK, "expected ']' to close struct field list")
	c.expect(token.ASSIGN, "expected '=>' after struct field list")
	nameTok := c.expect(token.IDENT, "expected struct name")
	c.expect(token.COLON, "expected ':' before 'type'")
	c.expect(token.TYPE, "expected 'type'")

	if len(c.structs) >= maxStructs {
		c.errorAtPrev("too many struct declarations")
		return
	}
	if _, exists := c.findStruct(nameTok.Lit); exists {
		c.errorAtPrev("struct already declared: " + nameTok.Lit)
		return
	}
	decl.Name = c.qualified(nameTok.Lit)
	c.structs = append(c.structs, structDecl{name: c.qualified(nameTok.Lit), decl: decl, isPublic: isPublic})
}

// enumDef compiles `enum [ Variant(type)?, ... ] => Name : type` (§4.3).
// A variant with no parenthesized payload type is a bare tag, like
// Option's "none".
func (c *Compiler) enumDef(isPublic bool) {
	c.expect(token.ENUM, "expected 'enum'")
	c.expect(token.LBRACK, "expected '[' to open enum variant list")
	decl := &types.EnumDecl{}
	for !c.check(token.RBRACK) && !c.check(token.EOF) {
		name := c.expect(token.IDENT, "expected variant name").Lit
		hasPayload := false
		var payloadType types.Type
		if c.match(token.LPAREN) {
			hasPayload = true
			payloadType = c.parseType()
			c.expect(token.RPAREN, "expected ')' after variant payload type")
		}
		decl.VariantNames = append(decl.VariantNames, name)
		decl.HasPayload = append(decl.HasPayload, hasPayload)
		decl.PayloadTypes = append(decl.PayloadTypes, payloadType)
		if !c.match(token.COMMA) {
			break
		}
	}
	c.expect(token.RBRACK, "expected ']' to close enum variant list")
	c.expect(token.ASSIGN, "expected '=>' after enum variant list")
	nameTok := c.expect(token.IDENT, "expected enum name")
	c.expect(token.COLON, "expected ':' before 'type'")
	c.expect(token.TYPE, "expected 'type'")

	if len(c.enums) >= maxEnums {
		c.errorAtPrev("too many enum declarations")
		return
	}
	if _, exists := c.findEnum(nameTok.Lit); exists {
		c.errorAtPrev("enum already declared: " + nameTok.Lit)
		return
	}
	decl.Name = c.qualified(nameTok.Lit)
	c.enums = append(c.enums, enumDecl{name: c.qualified(nameTok.Lit), decl: decl, isPublic: isPublic})
}

// funcDef compiles `< (name:type,)* > -> rettype : name block` (§4.3).
// The body is emitted inline, bracketed by an unconditional JUMP that
// skips it during top-level execution; its entry address is recorded in
// the function table before the body is compiled so the function may call
// itself, and may be called by any sibling item compiled after it.
func (c *Compiler) funcDef(isPublic bool) {
	c.expect(token.LANGLE, "expected '<' to open parameter list")
	var paramNames []string
	var paramTypes []types.Type
	for !c.check(token.RANGLE) && !c.check(token.EOF) {
		name := c.expect(token.IDENT, "expected parameter name").Lit
		c.expect(token.COLON, "expected ':' after parameter name")
		typ := c.parseType()
		paramNames = append(paramNames, name)
		paramTypes = append(paramTypes, typ)
		if !c.match(token.COMMA) {
			break
		}
	}
	c.expect(token.RANGLE, "expected '>' to close parameter list")
	c.expect(token.ARROW, "expected '->' before return type")
	returnType := c.parseType()
	c.expect(token.COLON, "expected ':' before function name")
	nameTok := c.expect(token.IDENT, "expected function name")

	if len(c.functions) >= maxFunctions {
		c.errorAtPrev("too many function declarations")
		return
	}
	if _, exists := c.findFunction(nameTok.Lit); exists {
		c.errorAtPrev("function already declared: " + nameTok.Lit)
		return
	}

	skip := c.emitJump(JUMP)
	entry := int64(c.pc())
	c.functions = append(c.functions, funcDecl{
		name: c.qualified(nameTok.Lit), addr: entry,
		returnType: returnType, paramTypes: paramTypes, isPublic: isPublic,
	})

	outerFn := c.fn
	c.fn = &fnCtx{name: nameTok.Lit, returnType: returnType}
	for i, pname := range paramNames {
		c.declareLocal(pname, paramTypes[i])
	}
	c.beginScope()
	c.block()
	c.endScope()
	// Every statement production leaves the runtime stack exactly as it
	// found it (expression-statements POP their value, `^ expr` is the one
	// exception and always falls straight into RET via returnStmt). A
	// function whose body falls off the end without an explicit `^` has a
	// balanced stack here, so a bare RET is correct for void functions;
	// falling off the end of a non-void function is not diagnosed at
	// compile time.
	c.emitByte(RET)
	c.fn = outerFn

	c.patchJump(skip)
}

// importDecl compiles `"path" => alias : imp` (§4.3, §6). The imported
// unit is compiled (once per distinct resolved path — re-imports are a
// no-op) with its declarations qualified by alias, so `alias.Name` resolves
// through the normal struct/enum/function tables without a separate
// module-scoping mechanism.
func (c *Compiler) importDecl() {
	pathTok := c.expect(token.STRING, "expected import path string")
	c.expect(token.ASSIGN, "expected '=>' after import path")
	aliasTok := c.expect(token.IDENT, "expected import alias")
	c.expect(token.COLON, "expected ':' before 'imp'")
	c.expect(token.IMP, "expected 'imp'")
	c.compileImport(pathTok.Lit, aliasTok.Lit)
}
