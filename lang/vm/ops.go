package vm

import (
	"github.com/opo-lang/opo/lang/compiler"
	"github.com/opo-lang/opo/lang/types"
)

// execAdd implements ADD (§4.4): int+int, flt+flt or str+str, exactly the
// three cases lang/compiler's finishBinary type-checked before emitting it.
// The non-string cases share arithmetic's "both numeric, same kind" shape
// with execArith, but string concatenation allocates a new heap Value and
// needs to release its operands itself, so it is not folded into execArith.
func (m *machine) execAdd() {
	b, a := m.pop(), m.pop()
	switch a.Kind() {
	case types.KindStr:
		m.push(types.Str(a.AsStr() + b.AsStr()))
	case types.KindFlt:
		m.push(types.Flt(a.AsFlt() + b.AsFlt()))
	default:
		m.push(types.Int(a.AsInt() + b.AsInt()))
	}
	a.Release()
	b.Release()
}

// execArith implements SUB/MUL/DIV/MOD (§4.4): two ints or two flts, per
// lang/compiler's numericBinOp. DIV/MOD by zero raise a runtime error
// (§7) rather than producing Inf/NaN or panicking the host Go process,
// matching the original implementation's explicit zero-check.
func (m *machine) execArith(op compiler.Op) {
	b, a := m.pop(), m.pop()
	defer func() { a.Release(); b.Release() }()

	if a.Kind() == types.KindFlt {
		x, y := a.AsFlt(), b.AsFlt()
		switch op {
		case compiler.SUB:
			m.push(types.Flt(x - y))
		case compiler.MUL:
			m.push(types.Flt(x * y))
		case compiler.DIV:
			if y == 0 {
				m.runtimeError("Division by zero")
			}
			m.push(types.Flt(x / y))
		}
		return
	}

	x, y := a.AsInt(), b.AsInt()
	switch op {
	case compiler.SUB:
		m.push(types.Int(x - y))
	case compiler.MUL:
		m.push(types.Int(x * y))
	case compiler.DIV:
		if y == 0 {
			m.runtimeError("Division by zero")
		}
		m.push(types.Int(x / y))
	case compiler.MOD:
		if y == 0 {
			m.runtimeError("Division by zero")
		}
		m.push(types.Int(x % y))
	}
}

// execNeg implements NEG (§4.4): unary negation of an int or flt.
func (m *machine) execNeg() {
	a := m.pop()
	if a.Kind() == types.KindFlt {
		m.push(types.Flt(-a.AsFlt()))
	} else {
		m.push(types.Int(-a.AsInt()))
	}
	a.Release()
}

// execEq implements EQ (§4.4): structural equality, defined only between
// two values of the same Kind (lang/compiler's finishBinary rejects any
// other pairing at compile time). not, when true, additionally negates the
// result; it exists so THROW/other call sites could reuse this helper for
// "!=", though lang/compiler instead emits EQ followed by a separate NOT
// (simpler to disassemble, one opcode per source operator).
func (m *machine) execEq(not bool) {
	b, a := m.pop(), m.pop()
	eq := valuesEqual(a, b)
	if not {
		eq = !eq
	}
	a.Release()
	b.Release()
	m.push(types.Bool(eq))
}

func valuesEqual(a, b types.Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case types.KindInt:
		return a.AsInt() == b.AsInt()
	case types.KindFlt:
		return a.AsFlt() == b.AsFlt()
	case types.KindBool:
		return a.AsBool() == b.AsBool()
	case types.KindStr:
		return a.AsStr() == b.AsStr()
	case types.KindVoid:
		return true
	default:
		// Heap aggregates (array/map/struct/enum/chan/func) compare by
		// identity: the language has no deep-equality operator over them
		// (§4.2 restricts "==" to int/flt/bool/str pairs at the type-check
		// level; this default only guards non-primitive kinds that reach
		// EQ some other way, e.g. two err values).
		return a.Obj() == b.Obj()
	}
}

// execCompare implements LT/GT/LTE/GTE (§4.4): ordering over two ints or
// two flts, per lang/compiler's finishBinary.
func (m *machine) execCompare(op compiler.Op) {
	b, a := m.pop(), m.pop()
	var result bool
	if a.Kind() == types.KindFlt {
		x, y := a.AsFlt(), b.AsFlt()
		switch op {
		case compiler.LT:
			result = x < y
		case compiler.GT:
			result = x > y
		case compiler.LTE:
			result = x <= y
		case compiler.GTE:
			result = x >= y
		}
	} else {
		x, y := a.AsInt(), b.AsInt()
		switch op {
		case compiler.LT:
			result = x < y
		case compiler.GT:
			result = x > y
		case compiler.LTE:
			result = x <= y
		case compiler.GTE:
			result = x >= y
		}
	}
	a.Release()
	b.Release()
	m.push(types.Bool(result))
}

// execIndex implements INDEX (§4.4): `arr.(i)`, `str.(i)` (returns a
// 1-character string) or `map.(k)` read access. An out-of-range array or
// string index, or a missing map key, is a runtime error (§7), not a
// thrown err value — there is no native-call boundary here to deliver one
// through the way INVOKE's errors do.
func (m *machine) execIndex() {
	idx := m.pop()
	recv := m.pop()
	defer func() { idx.Release(); recv.Release() }()

	switch recv.Kind() {
	case types.KindArray:
		i := int(idx.AsInt())
		arr := recv.Obj().Array
		if i < 0 || i >= arr.Len() {
			m.runtimeError("array index %d out of range (len %d)", i, arr.Len())
		}
		v := arr.Get(i)
		v.Retain()
		m.push(v)
	case types.KindStr:
		i := int(idx.AsInt())
		s := recv.AsStr()
		if i < 0 || i >= len(s) {
			m.runtimeError("string index %d out of bounds (length %d)", i, len(s))
		}
		m.push(types.Str(string(s[i])))
	case types.KindMap:
		v, ok := recv.Obj().Map.Get(idx)
		if !ok {
			m.runtimeError("key not found in map")
		}
		v.Retain()
		m.push(v)
	default:
		m.runtimeError("'.( )' requires an array, string or map")
	}
}

// execSetIndex implements SET_INDEX (§4.4): `=>arr.(i) v` or `=>map.(k) v`
// mutation. The operand order on the stack (receiver, key, value, each
// pushed by lang/compiler's mutation()) mirrors GET_MEMBER/SET_MEMBER's own
// push-then-consume shape.
func (m *machine) execSetIndex() {
	val := m.pop()
	idx := m.pop()
	recv := m.pop()
	defer func() { idx.Release(); recv.Release() }()

	switch recv.Kind() {
	case types.KindArray:
		i := int(idx.AsInt())
		arr := recv.Obj().Array
		if i < 0 || i >= arr.Len() {
			m.runtimeError("array index %d out of range (len %d)", i, arr.Len())
		}
		arr.Set(i, val)
		val.Release()
	case types.KindMap:
		recv.Obj().Map.Set(idx, val)
		val.Release()
	default:
		m.runtimeError("'.( )' requires an array or map")
	}
}
