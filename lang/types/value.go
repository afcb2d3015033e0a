package types

import (
	"fmt"
	"strconv"
)

// Value is opo's runtime value representation: a small tagged union, the Go
// analogue of the original implementation's `Value{type, union{...}}`
// (original_source/src/common.h). Int, Flt and Bool are stored unboxed; every
// other kind is a pointer to a reference-counted Obj.
type Value struct {
	typ Type
	i   int64   // Int, Bool (0/1)
	f   float64 // Flt
	obj *Obj    // Str, Array, Struct, Map, Enum, Chan, Func, Err
}

// Int returns a Value of kind KindInt.
func Int(i int64) Value { return Value{typ: TypeInt, i: i} }

// Flt returns a Value of kind KindFlt.
func Flt(f float64) Value { return Value{typ: TypeFlt, f: f} }

// Bool returns a Value of kind KindBool.
func Bool(b bool) Value {
	var i int64
	if b {
		i = 1
	}
	return Value{typ: TypeBool, i: i}
}

// Str returns a Value of kind KindStr wrapping s.
func Str(s string) Value {
	o := newObj(objString)
	o.Str = s
	return Value{typ: TypeStr, obj: o}
}

// Zero is the uninitialized Value, used to pre-fill locals slots.
var Zero Value

// Void returns the single value of kind KindVoid, produced by statements
// and void-returning calls.
func Void() Value { return Value{typ: TypeVoid} }

// Type returns v's packed Type descriptor.
func (v Value) Type() Type { return v.typ }

// Kind returns the top-level Kind of v.
func (v Value) Kind() Kind { return v.typ.Kind() }

// AsInt returns the underlying int64. The caller must know v.Kind() == KindInt.
func (v Value) AsInt() int64 { return v.i }

// AsFlt returns the underlying float64. The caller must know v.Kind() == KindFlt.
func (v Value) AsFlt() float64 { return v.f }

// AsBool returns the underlying bool. The caller must know v.Kind() == KindBool.
func (v Value) AsBool() bool { return v.i != 0 }

// AsStr returns the underlying string. The caller must know v.Kind() == KindStr.
func (v Value) AsStr() string { return v.obj.Str }

// Obj returns the heap object backing v, or nil if v is unboxed.
func (v Value) Obj() *Obj { return v.obj }

// Retype returns a copy of v tagged with t instead of its own Type,
// leaving the underlying payload untouched. This backs OP_AS_TYPE, the
// only place a value's static type is reinterpreted in place rather than
// producing a new value (§4.4): a `match` arm over `any` narrows the
// already-peeked scrutinee to its checked primitive kind without another
// allocation.
func (v Value) Retype(t Type) Value {
	v.typ = t
	return v
}

// Truth reports whether v is the bool value true; every other value, of any
// kind, is false. There is no implicit truthiness for int/str/array the way
// dynamically-typed scripting languages usually allow: the compiler accepts
// only a bool or an Option as a condition (§4.2), and converts an Option
// with IS_TRUTHY, whose VM handler (lang/vm's truthy) does not call Truth.
func (v Value) Truth() bool {
	return v.Kind() == KindBool && v.i != 0
}

// String renders v using opo's print format (§4.6): ints and floats via
// their ordinary decimal forms, bool as "tru"/"fls", strings unquoted,
// arrays as "[e1, e2, ...]", structs/enums/maps via their own formatting.
func (v Value) String() string {
	switch v.Kind() {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFlt:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		if v.i != 0 {
			return "tru"
		}
		return "fls"
	case KindStr:
		return v.obj.Str
	case KindArray:
		return formatArray(v.obj.Array)
	case KindMap:
		return formatMap(v.obj.Map)
	case KindStruct:
		return formatStruct(v.obj.Struct)
	case KindEnum:
		return formatEnum(v.typ, v.obj.Enum)
	case KindChan:
		return formatChan(v.obj.Chan)
	case KindFunc:
		return fmt.Sprintf("fun %s", v.obj.Func.Name)
	case KindErr:
		return "Error: " + v.obj.Err.Msg
	case KindVoid:
		return "void"
	default:
		return "<invalid>"
	}
}
