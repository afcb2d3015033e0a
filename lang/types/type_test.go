package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opo-lang/opo/lang/types"
)

// AssignableTo reflexivity: every type is assignable to itself (§9).
func TestAssignableToReflexivity(t *testing.T) {
	cases := []types.Type{
		types.TypeInt,
		types.TypeFlt,
		types.TypeBool,
		types.TypeStr,
		types.TypeVoid,
		types.TypeErr,
		types.ArrayOf(types.KindInt),
		types.MapOf(types.KindStr, types.KindInt),
		types.ChanOf(types.KindBool),
		types.OptionOf(types.KindInt),
		types.StructType(0),
		types.EnumType(1),
	}
	for _, typ := range cases {
		require.True(t, typ.AssignableTo(typ), "type %s should be assignable to itself", typ)
	}
}

// Anything is assignable to `any`.
func TestAssignableToAnyAcceptsEverything(t *testing.T) {
	cases := []types.Type{
		types.TypeInt, types.TypeStr, types.ArrayOf(types.KindInt), types.OptionOf(types.KindAny),
	}
	for _, typ := range cases {
		require.True(t, typ.AssignableTo(types.TypeAny))
	}
}

// There is no numeric widening: int is not assignable to flt or vice versa.
func TestAssignableToNoNumericWidening(t *testing.T) {
	require.False(t, types.TypeInt.AssignableTo(types.TypeFlt))
	require.False(t, types.TypeFlt.AssignableTo(types.TypeInt))
}

// There is no array-element covariance: [int] is not assignable to [any].
func TestAssignableToNoArrayCovariance(t *testing.T) {
	require.False(t, types.ArrayOf(types.KindInt).AssignableTo(types.ArrayOf(types.KindAny)))
}

// A bare `func` kind (FuncAny) is bidirectionally compatible with any
// concrete function kind.
func TestAssignableToBareFuncMatchesAnyFuncSignature(t *testing.T) {
	concrete := types.FuncType(types.KindInt)
	require.True(t, concrete.AssignableTo(types.FuncAny))
	require.True(t, types.FuncAny.AssignableTo(concrete))
	// Two different concrete return kinds are not interchangeable.
	require.False(t, concrete.AssignableTo(types.FuncType(types.KindStr)))
}

// Maps are assignable when key/value kinds match exactly, or either side
// uses `any` for that slot.
func TestAssignableToMapKeyValueMatching(t *testing.T) {
	strToInt := types.MapOf(types.KindStr, types.KindInt)
	strToAny := types.MapOf(types.KindStr, types.KindAny)
	anyToInt := types.MapOf(types.KindAny, types.KindInt)
	intToInt := types.MapOf(types.KindInt, types.KindInt)

	require.True(t, strToInt.AssignableTo(strToAny))
	require.True(t, strToInt.AssignableTo(anyToInt))
	require.False(t, strToInt.AssignableTo(intToInt))
}

// Option assignability requires matching inner kind, or `any` on either side.
func TestAssignableToOptionInnerKindMatching(t *testing.T) {
	optInt := types.OptionOf(types.KindInt)
	optAny := types.OptionOf(types.KindAny)
	optStr := types.OptionOf(types.KindStr)

	require.True(t, optInt.AssignableTo(optAny))
	require.True(t, optAny.AssignableTo(optInt))
	require.False(t, optInt.AssignableTo(optStr))
}

// Two distinct user-declared enums (including non-Option enums sharing a
// struct-like reserved slot) are never assignable to each other.
func TestAssignableToDistinctEnumsRejected(t *testing.T) {
	require.False(t, types.EnumType(1).AssignableTo(types.EnumType(2)))
	require.False(t, types.EnumType(1).AssignableTo(types.OptionOf(types.KindInt)))
}

// TypeOfString matches §4.5's OP_TYPEOF rendering rules.
func TestTypeOfStringRendering(t *testing.T) {
	require.Equal(t, "int", types.TypeInt.TypeOfString())
	require.Equal(t, "[]int", types.ArrayOf(types.KindInt).TypeOfString())
	require.Equal(t, "{str:int}", types.MapOf(types.KindStr, types.KindInt).TypeOfString())
	require.Equal(t, "chan<bol>", types.ChanOf(types.KindBool).TypeOfString())
	require.Equal(t, "int?", types.OptionOf(types.KindInt).TypeOfString())
	require.Equal(t, "enum", types.EnumType(1).TypeOfString())
	require.Equal(t, "fun", types.FuncAny.TypeOfString())
}
