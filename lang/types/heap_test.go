package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opo-lang/opo/lang/types"
)

// Release on an array recursively releases every element, mirroring the
// original implementation's free_object (§9 design notes).
func TestReleaseArrayRecursivelyReleasesElements(t *testing.T) {
	inner := types.Str("hello")
	arr := types.NewArray(types.KindStr, []types.Value{inner})

	require.Equal(t, int32(2), inner.Obj().RefCount())

	arr.Release()

	require.Equal(t, int32(1), inner.Obj().RefCount())
}

// Release on a struct recursively releases every field.
func TestReleaseStructRecursivelyReleasesFields(t *testing.T) {
	field := types.Str("field")
	s := types.NewStruct(types.StructType(0), []types.Value{field})

	require.Equal(t, int32(2), field.Obj().RefCount())

	s.Release()

	require.Equal(t, int32(1), field.Obj().RefCount())
}

// Release on a map recursively releases every value (not the primitive
// keys, which carry no refcount of their own).
func TestReleaseMapRecursivelyReleasesValues(t *testing.T) {
	val := types.Str("v")
	m := types.NewMap(types.KindStr, types.KindStr, 1)
	m.Obj().Map.Set(types.Str("k"), val)

	require.Equal(t, int32(2), val.Obj().RefCount())

	m.Release()

	require.Equal(t, int32(1), val.Obj().RefCount())
}

// Release on an Option(some v) releases its payload; Option(none) has no
// payload to release and must not panic.
func TestReleaseOptionReleasesPayloadWhenPresent(t *testing.T) {
	payload := types.Str("payload")
	some := types.NewOption(types.KindStr, payload)

	require.Equal(t, int32(2), payload.Obj().RefCount())

	some.Release()

	require.Equal(t, int32(1), payload.Obj().RefCount())

	none := types.NewNone(types.KindInt)
	require.NotPanics(t, func() { none.Release() })
}

// Retain/Release on a primitive (Int/Flt/Bool) is a safe no-op: there is no
// backing Obj to touch.
func TestRetainReleasePrimitiveIsNoop(t *testing.T) {
	v := types.Int(42)
	require.NotPanics(t, func() {
		v.Retain()
		v.Release()
	})
	require.Nil(t, v.Obj())
}

// ArrayData.Set releases the displaced value and retains the new one.
func TestArraySetReleasesOldRetainsNew(t *testing.T) {
	oldVal := types.Str("old")
	newVal := types.Str("new")
	arr := types.NewArray(types.KindStr, []types.Value{oldVal})
	data := arr.Obj().Array

	require.Equal(t, int32(2), oldVal.Obj().RefCount())
	require.Equal(t, int32(1), newVal.Obj().RefCount())

	data.Set(0, newVal)

	require.Equal(t, int32(1), oldVal.Obj().RefCount())
	require.Equal(t, int32(2), newVal.Obj().RefCount())
}

// MapData.Set on an existing key releases the old value it displaces.
func TestMapSetReplaceReleasesOldValue(t *testing.T) {
	oldVal := types.Str("old")
	newVal := types.Str("new")
	m := types.NewMap(types.KindStr, types.KindStr, 1)
	m.Obj().Map.Set(types.Str("k"), oldVal)
	require.Equal(t, int32(2), oldVal.Obj().RefCount())

	m.Obj().Map.Set(types.Str("k"), newVal)

	require.Equal(t, int32(1), oldVal.Obj().RefCount())
	require.Equal(t, int32(2), newVal.Obj().RefCount())
	require.Equal(t, 1, m.Obj().Map.Len())
}
