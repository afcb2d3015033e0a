package types

import (
	"strings"

	"github.com/dolthub/swiss"
)

// mapKey is the comparable projection of a Value used as a swiss-table key.
// opo restricts map keys to the primitive kinds (int, str, bool), so a key
// never needs to carry a heap pointer beyond the string payload itself.
type mapKey struct {
	kind Kind
	i    int64
	s    string
}

func toMapKey(v Value) mapKey {
	switch v.Kind() {
	case KindStr:
		return mapKey{kind: KindStr, s: v.AsStr()}
	case KindBool:
		return mapKey{kind: KindBool, i: v.i}
	default:
		return mapKey{kind: KindInt, i: v.i}
	}
}

func fromMapKey(k mapKey) Value {
	switch k.kind {
	case KindStr:
		return Str(k.s)
	case KindBool:
		return Bool(k.i != 0)
	default:
		return Int(k.i)
	}
}

// MapData is the payload of a KindMap Obj: an open-addressed, linear-probing
// hash table (github.com/dolthub/swiss, via the teacher's own
// lang/machine/map.go dependency) carrying opo's statically-typed key/value
// kinds (§3).
type MapData struct {
	KeyKind Kind
	ValKind Kind
	Table   *swiss.Map[mapKey, Value]
}

// NewMap returns a Value wrapping a new, empty map with the given key/value
// kinds and initial capacity hint.
func NewMap(key, val Kind, sizeHint int) Value {
	if sizeHint < 1 {
		sizeHint = 1
	}
	o := newObj(objMap)
	o.Map = &MapData{KeyKind: key, ValKind: val, Table: swiss.NewMap[mapKey, Value](uint32(sizeHint))}
	return Value{typ: MapOf(key, val), obj: o}
}

// Len returns the number of entries.
func (m *MapData) Len() int { return m.Table.Count() }

// Get looks up key and reports whether it was found.
func (m *MapData) Get(key Value) (Value, bool) {
	return m.Table.Get(toMapKey(key))
}

// Set inserts or replaces the value for key, retaining val and, on replace,
// releasing the previous value. It retains key only implicitly (keys are
// primitives, copied by value).
func (m *MapData) Set(key, val Value) {
	k := toMapKey(key)
	if old, ok := m.Table.Get(k); ok {
		old.Release()
	}
	val.Retain()
	m.Table.Put(k, val)
}

// Delete removes key, releasing its value, and reports whether it was present.
func (m *MapData) Delete(key Value) bool {
	k := toMapKey(key)
	if old, ok := m.Table.Get(k); ok {
		old.Release()
		m.Table.Delete(k)
		return true
	}
	return false
}

// Keys returns every key currently in the map, in unspecified order.
func (m *MapData) Keys() []Value {
	keys := make([]Value, 0, m.Table.Count())
	m.Table.Iter(func(k mapKey, _ Value) (stop bool) {
		keys = append(keys, fromMapKey(k))
		return false
	})
	return keys
}

func formatMap(m *MapData) string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	m.Table.Iter(func(k mapKey, v Value) (stop bool) {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(fromMapKey(k).String())
		b.WriteString(" => ")
		b.WriteString(v.String())
		return false
	})
	b.WriteByte('}')
	return b.String()
}
