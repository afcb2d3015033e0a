package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opo-lang/opo/lang/compiler"
)

func compile(t *testing.T, src string) error {
	t.Helper()
	_, err := compiler.Compile("<test>", src, ".", "")
	return err
}

// A match over a user-declared enum must cover every variant (§4.3, §8).
func TestMatchEnumExhaustivenessRejectsMissingVariant(t *testing.T) {
	src := `
enum[a, b(int), c] => E : type;
<> -> void: main [
	E.a => e : E;
	match e [
		a [ 1!! ];
		b(n) [ n!! ]
	]
]`
	err := compile(t, src)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not exhaustive")
	require.Contains(t, err.Error(), "c")
}

func TestMatchEnumExhaustivenessAcceptsEveryVariant(t *testing.T) {
	src := `
enum[a, b(int), c] => E : type;
<> -> void: main [
	E.a => e : E;
	match e [
		a [ 1!! ];
		b(n) [ n!! ];
		c [ 3!! ]
	]
]`
	require.NoError(t, compile(t, src))
}

// A match on an Option must cover both 'some' and 'none'.
func TestMatchOptionRequiresBothVariants(t *testing.T) {
	src := `
<> -> void: main [
	some(1) => o : int?;
	match o [
		some(n) [ n!! ]
	]
]`
	err := compile(t, src)
	require.Error(t, err)
	require.Contains(t, err.Error(), "some")
}

func TestMatchOptionAcceptsBothVariants(t *testing.T) {
	src := `
<> -> void: main [
	some(1) => o : int?;
	match o [
		some(n) [ n!! ];
		none [ 0!! ]
	]
]`
	require.NoError(t, compile(t, src))
}

// A duplicate arm for the same variant is a compile error.
func TestMatchRejectsDuplicateArm(t *testing.T) {
	src := `
enum[a, b] => E : type;
<> -> void: main [
	E.a => e : E;
	match e [
		a [ 1!! ];
		a [ 2!! ];
		b [ 3!! ]
	]
]`
	err := compile(t, src)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate match arm")
}

// Outside a narrowed scope, `.some` is a static error (§4.3 narrowing).
func TestUnguardedOptionSomeIsCompileError(t *testing.T) {
	src := `
<> -> void: main [
	some(1) => o : int?;
	o.some!!
]`
	err := compile(t, src)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsafe unwrap")
}

// Inside the `if`-guarded scope, `.some` succeeds (§4.3, §8 scenario 4).
func TestGuardedOptionSomeCompiles(t *testing.T) {
	src := `
<> -> void: main [
	some(1) => o : int?;
	o ? (o.some!!) : ("none"!!)
]`
	require.NoError(t, compile(t, src))
}

// The guard does not leak past the `if` that established it: a second,
// unrelated use of the same local outside any conditional is still unsafe.
func TestOptionSomeGuardDoesNotLeakPastConditional(t *testing.T) {
	src := `
<> -> void: main [
	some(1) => o : int?;
	o ? (o.some!!) : ("none"!!);
	o.some!!
]`
	err := compile(t, src)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsafe unwrap")
}

// The conditional's branches may be a single statement wrapped in bare
// parens, matching every §8 example's literal surface syntax.
func TestConditionalParenthesizedBranchesCompile(t *testing.T) {
	require.NoError(t, compile(t, `<> -> void: main [ 5 => x : int; (x > 3) ? ("big"!!) : ("small"!!) ]`))
	require.NoError(t, compile(t, `<> -> void: main [ 0 => i : int; (i < 10) @ [ (i == 5) ? (.); i!!; i + 1 => i ] ]`))
}

// A mismatched binary operand type fails compilation with a message
// naming the mismatch.
func TestBinaryTypeMismatchIsCompileError(t *testing.T) {
	err := compile(t, `<> -> void: main [ 1 + "x" !! ]`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "requires")
}

// String indexing (`str.(i)`, §4.4 INDEX) requires an int index and
// yields a str-typed result usable wherever a str is expected.
func TestStringIndexCompiles(t *testing.T) {
	require.NoError(t, compile(t, `<> -> void: main [ "hello" => s : str; s.(0)!! ]`))
}

func TestStringIndexRequiresIntIndex(t *testing.T) {
	err := compile(t, `<> -> void: main [ "hello" => s : str; s.("0")!! ]`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "string index must be an int")
}

// Declaring a local with an initializer of an incompatible type fails.
func TestDeclareTypeMismatchIsCompileError(t *testing.T) {
	err := compile(t, `<> -> void: main [ "hi" => x : int; x!! ]`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot assign")
}
