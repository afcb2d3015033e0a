package types

import "fmt"

// EnumDecl describes a user-declared enum type's shape, as recorded by the
// compiler when it processes an `enum` declaration. Variant order is
// significant: it is the variant index stored in EnumData and the order
// `match` exhaustiveness checking walks. The built-in Option enum
// (declIndex 0, §3) is never registered here; its two variants are
// synthesized directly by EnumData helpers below.
type EnumDecl struct {
	Name         string
	VariantNames []string
	HasPayload   []bool
	PayloadTypes []Type
}

// VariantIndex returns the index of the named variant, or -1.
func (d *EnumDecl) VariantIndex(name string) int {
	for i, n := range d.VariantNames {
		if n == name {
			return i
		}
	}
	return -1
}

// EnumData is the payload of a KindEnum Obj: a tagged variant index plus an
// optional payload Value, mirroring the original's ObjEnum
// (original_source/src/common.h: variant_index, has_payload, payload).
//
// Chunk carries no struct/enum declaration section (§3: "no other
// sections"), so a value's enum/variant *name* cannot be recovered at
// runtime from a declaration table the way field names could be if Chunk
// had one. Instead the compiler bakes the "EnumName.variant" label for
// OP_ENUM_VARIANT directly into the string table and the opcode carries its
// index (§4.4 ENUM_VARIANT is extended with a fourth operand byte for
// this); Label is that string, already resolved, cached
// on construction rather than re-looked-up on every print. The built-in
// Option enum never sets Label: its formatting ("none" / "some(v)") is
// synthesized directly from Variant/Payload.
type EnumData struct {
	Label   string
	Variant int
	Has     bool
	Payload Value
}

// NewEnum returns a Value wrapping a new user-declared enum cell. payload
// is ignored (and must be the zero Value) when has is false.
func NewEnum(typ Type, label string, variant int, has bool, payload Value) Value {
	o := newObj(objEnum)
	o.Enum = &EnumData{Label: label, Variant: variant, Has: has, Payload: payload}
	if has {
		payload.Retain()
	}
	return Value{typ: typ, obj: o}
}

// NewOption wraps payload in an Option<_> enum cell with the some(1)
// variant; inner is the option's declared inner Kind.
func NewOption(inner Kind, payload Value) Value {
	return NewEnum(OptionOf(inner), "", VariantSome, true, payload)
}

// NewNone returns the none(0) Option<inner> value.
func NewNone(inner Kind) Value {
	return NewEnum(OptionOf(inner), "", VariantNone, false, Zero)
}

func formatEnum(typ Type, e *EnumData) string {
	if typ.IsOption() {
		if e.Variant == VariantSome {
			return fmt.Sprintf("some(%s)", e.Payload.String())
		}
		return "none"
	}
	if e.Has {
		return fmt.Sprintf("%s(%s)", e.Label, e.Payload.String())
	}
	return e.Label
}
