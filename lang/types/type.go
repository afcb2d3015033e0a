// Package types implements opo's packed type descriptors and runtime value
// representation: the Value union, reference-counted heap objects, the
// print formatter and the native function signature tables.
package types

import "fmt"

// Kind identifies the top-level shape of a Type or Value.
type Kind uint8

//nolint:revive
const (
	KindInvalid Kind = iota
	KindInt
	KindFlt
	KindBool
	KindStr
	KindVoid
	KindAny
	KindArray
	KindMap
	KindStruct
	KindEnum
	KindFunc
	KindChan
	KindErr
)

// OptionEnumID is the reserved enum declaration index for the built-in
// Option enum (§3: "the special enum id 0 is reserved for the built-in
// Option enum"). It never appears in the compiler's user-declared enum
// table; EnumType(OptionEnumID) always means "option of Sub()".
const OptionEnumID = 0

// Option variant indices, fixed by §3.
const (
	VariantNone = 0
	VariantSome = 1
)

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindInt:     "int",
	KindFlt:     "flt",
	KindBool:    "bool",
	KindStr:     "str",
	KindVoid:    "void",
	KindAny:     "any",
	KindArray:   "array",
	KindMap:     "map",
	KindStruct:  "struct",
	KindEnum:    "enum",
	KindFunc:    "func",
	KindChan:    "chan",
	KindErr:     "err",
}

// Type is a packed 32-bit type descriptor: (kind:8, sub:8, key:8,
// reserved:8). For container kinds, sub (and key, for maps) name the kind of
// the elements one level down rather than a fully recursive Type, mirroring
// the original implementation's MAKE_TYPE(kind, sub, key) packing
// (original_source/src/common.h) extended with a fourth "reserved" byte that
// indexes into the compiler's struct/enum definition table (§3) so a
// KindStruct or KindEnum Type can be mapped back to its declaration.
type Type uint32

// MakeType packs kind, sub, key and reserved into a Type.
func MakeType(kind, sub, key Kind, reserved uint8) Type {
	return Type(uint32(kind) | uint32(sub)<<8 | uint32(key)<<16 | uint32(reserved)<<24)
}

// Simple builds a Type for a kind with no element/key/declaration info.
func Simple(kind Kind) Type { return MakeType(kind, KindInvalid, KindInvalid, 0) }

var (
	TypeInt  = Simple(KindInt)
	TypeFlt  = Simple(KindFlt)
	TypeBool = Simple(KindBool)
	TypeStr  = Simple(KindStr)
	TypeVoid = Simple(KindVoid)
	TypeAny  = Simple(KindAny)
	TypeErr  = Simple(KindErr)
	// FuncAny is the bare "func" kind (§4.2: "any function-kind is
	// compatible with the bare func kind in either direction"), used as the
	// declared type of function-valued parameters/locals that accept any
	// signature.
	FuncAny = MakeType(KindFunc, KindInvalid, KindInvalid, 0)
)

// Kind returns the top-level kind of t.
func (t Type) Kind() Kind { return Kind(t & 0xff) }

// Sub returns the element kind of an array/chan Type, or the value kind of
// a map Type.
func (t Type) Sub() Kind { return Kind((t >> 8) & 0xff) }

// Key returns the key kind of a map Type.
func (t Type) Key() Kind { return Kind((t >> 16) & 0xff) }

// Reserved returns the declaration-table index of a struct/enum Type.
func (t Type) Reserved() uint8 { return uint8((t >> 24) & 0xff) }

// ArrayOf returns the Type for an array whose elements have kind elem.
func ArrayOf(elem Kind) Type { return MakeType(KindArray, elem, KindInvalid, 0) }

// MapOf returns the Type for a map from key to value.
func MapOf(key, value Kind) Type { return MakeType(KindMap, value, key, 0) }

// ChanOf returns the Type for a channel carrying elements of kind elem.
func ChanOf(elem Kind) Type { return MakeType(KindChan, elem, KindInvalid, 0) }

// StructType returns the Type for the struct declared at declIndex in the
// compiler's struct table.
func StructType(declIndex uint8) Type { return MakeType(KindStruct, KindInvalid, KindInvalid, declIndex) }

// EnumType returns the Type for the enum declared at declIndex in the
// compiler's enum table.
func EnumType(declIndex uint8) Type { return MakeType(KindEnum, KindInvalid, KindInvalid, declIndex) }

// FuncType returns the Type for a function returning a value of kind ret.
// Sub carries the return kind the way an array's Sub carries its element
// kind; a bare, return-type-erased function (FuncAny) has Sub == KindInvalid.
func FuncType(ret Kind) Type { return MakeType(KindFunc, ret, KindInvalid, 0) }

// OptionOf returns the Type for Option<inner>, encoded as the reserved
// Option enum (declaration index OptionEnumID) with Sub carrying the inner
// kind (§3).
func OptionOf(inner Kind) Type { return MakeType(KindEnum, inner, KindInvalid, OptionEnumID) }

// IsOption reports whether t is an Option<_> type.
func (t Type) IsOption() bool { return t.Kind() == KindEnum && t.Reserved() == OptionEnumID }

// opoKindNames gives each Kind its opo source-syntax spelling (distinct
// from kindNames' Go-ish debug spelling, e.g. "bol" not "bool"), used by
// TypeOfString to match the language's own keyword set (§4.3's type
// grammar: int/flt/bol/str/void/any/err).
var opoKindNames = [...]string{
	KindInvalid: "invalid",
	KindInt:     "int",
	KindFlt:     "flt",
	KindBool:    "bol",
	KindStr:     "str",
	KindVoid:    "void",
	KindAny:     "any",
	KindArray:   "array",
	KindMap:     "map",
	KindStruct:  "struct",
	KindEnum:    "enum",
	KindFunc:    "fun",
	KindChan:    "chan",
	KindErr:     "err",
}

func (k Kind) opoName() string {
	if int(k) < len(opoKindNames) {
		return opoKindNames[k]
	}
	return "invalid"
}

// TypeOfString renders t for the VM's OP_TYPEOF handler (§4.5; lang/compiler
// has no `typeof` builtin and never emits OP_TYPEOF): primitives by their
// opo keyword, array as
// "[]<sub>", map as "{<key>:<sub>}", channel as "chan<<sub>>", Option as
// "<inner>?", any other enum as the bare word "enum", struct as the bare
// word "struct", function as "fun". This is deliberately not t.String()
// (used for compiler diagnostics), which instead spells out a struct/enum's
// declaration index for a human reading an error message.
func (t Type) TypeOfString() string {
	switch t.Kind() {
	case KindArray:
		return "[]" + t.Sub().opoName()
	case KindMap:
		return fmt.Sprintf("{%s:%s}", t.Key().opoName(), t.Sub().opoName())
	case KindChan:
		return fmt.Sprintf("chan<%s>", t.Sub().opoName())
	case KindFunc:
		return "fun"
	case KindEnum:
		if t.IsOption() {
			return t.Sub().opoName() + "?"
		}
		return "enum"
	case KindStruct:
		return "struct"
	default:
		return t.Kind().opoName()
	}
}

func (t Type) String() string {
	switch t.Kind() {
	case KindArray:
		return fmt.Sprintf("[%s]", t.Sub())
	case KindMap:
		return fmt.Sprintf("{%s:%s}", t.Key(), t.Sub())
	case KindChan:
		return fmt.Sprintf("chan<%s>", t.Sub())
	case KindFunc:
		return "fun"
	case KindEnum:
		if t.IsOption() {
			return fmt.Sprintf("%s?", t.Sub())
		}
		return fmt.Sprintf("enum#%d", t.Reserved())
	case KindStruct:
		return fmt.Sprintf("struct#%d", t.Reserved())
	default:
		return t.Kind().String()
	}
}

// AssignableTo reports whether a value of type t may be used where want is
// expected, per §4.2:
//   - want is `any`, or t equals want exactly;
//   - either side is a func kind and the other is the bare, erased `func`
//     kind (FuncAny) — return-type subtyping is not checked at the call site
//     for first-class function values, an explicit Open Question (§9) this
//     implementation resolves by accepting the mismatch rather than
//     rejecting it;
//   - both are maps with matching or `any` key/value kinds;
//   - both are the same enum id; for Option enums the inner kind must match
//     or either side is `any`.
//
// There is no numeric widening between int and flt, and no array-element
// covariance: [int] is not assignable to [any].
func (t Type) AssignableTo(want Type) bool {
	if want.Kind() == KindAny || t == want {
		return true
	}
	if t.Kind() == KindFunc && want.Kind() == KindFunc {
		return t.Sub() == KindInvalid || want.Sub() == KindInvalid
	}
	if t.Kind() == KindMap && want.Kind() == KindMap {
		keyOK := t.Key() == want.Key() || t.Key() == KindAny || want.Key() == KindAny
		valOK := t.Sub() == want.Sub() || t.Sub() == KindAny || want.Sub() == KindAny
		return keyOK && valOK
	}
	if t.Kind() == KindEnum && want.Kind() == KindEnum && t.Reserved() == want.Reserved() {
		if t.IsOption() {
			return t.Sub() == want.Sub() || t.Sub() == KindAny || want.Sub() == KindAny
		}
		return true
	}
	return false
}
