package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opo-lang/opo/lang/compiler"
	"github.com/opo-lang/opo/lang/vm"
)

// runSource compiles and runs src as the main file of a standalone program,
// returning captured stdout and the process exit code, mirroring how
// internal/maincmd.Run drives the same two calls for `opo run`.
func runSource(t *testing.T, src string) (string, int) {
	t.Helper()
	chunk, err := compiler.Compile("<test>", src, ".", "")
	require.NoError(t, err)
	var out bytes.Buffer
	code := vm.Run(chunk, vm.Config{Stdout: &out})
	return out.String(), code
}

// The seven scenarios are the literal programs and expected stdout §8 lists.

func TestArithmeticAndPrint(t *testing.T) {
	out, code := runSource(t, `<> -> void: main [ (1 + 2 * 3)!! ]`)
	require.Equal(t, vm.ExitOK, code)
	require.Equal(t, "7\n", out)
}

func TestConditional(t *testing.T) {
	out, code := runSource(t, `<> -> void: main [ 5 => x : int; (x > 3) ? ("big"!!) : ("small"!!) ]`)
	require.Equal(t, vm.ExitOK, code)
	require.Equal(t, "big\n", out)
}

func TestWhileLoopWithBreak(t *testing.T) {
	out, code := runSource(t, `<> -> void: main [ 0 => i : int; (i < 10) @ [ (i == 5) ? (.); i!!; i + 1 => i ] ]`)
	require.Equal(t, vm.ExitOK, code)
	require.Equal(t, "0\n1\n2\n3\n4\n", out)
}

func TestOptionNarrowing(t *testing.T) {
	out, code := runSource(t, `<> -> int: f [ ^ 42 ]; <> -> void: main [ some(f()) => o : int?; o ? (o.some!!) : ("none"!!) ]`)
	require.Equal(t, vm.ExitOK, code)
	require.Equal(t, "42\n", out)
}

func TestStructAndMutation(t *testing.T) {
	out, code := runSource(t, `struct[x:int,y:int] => P : type; <> -> void: main [ P(3,4) => p : P; =>p.x 10; p.x!! ]`)
	require.Equal(t, vm.ExitOK, code)
	require.Equal(t, "10\n", out)
}

func TestChannel(t *testing.T) {
	out, code := runSource(t, `<ch: chan<int>> -> void: prod [ ch <- 7 ]; <> -> void: main [ chan<int>(1) => c : chan<int>; go prod(c); (<-c)!! ]`)
	require.Equal(t, vm.ExitOK, code)
	require.Equal(t, "7\n", out)
}

func TestDivisionByZeroCaught(t *testing.T) {
	out, code := runSource(t, `<> -> void: main [ try [ 1 / 0 !! ] catch e [ ("caught: " + str(e))!! ] ]`)
	require.Equal(t, vm.ExitOK, code)
	require.Equal(t, "caught: Division by zero\n", out)
}

// Beyond the seven literal scenarios: an uncaught runtime error reports
// ExitRuntimeError and the §7 "Runtime Error: " message shape on stderr.
func TestUncaughtDivisionByZero(t *testing.T) {
	chunk, err := compiler.Compile("<test>", `<> -> void: main [ 1 / 0 !! ]`, ".", "")
	require.NoError(t, err)
	var out, errOut bytes.Buffer
	code := vm.Run(chunk, vm.Config{Stdout: &out, Stderr: &errOut})
	require.Equal(t, vm.ExitRuntimeError, code)
	require.Contains(t, errOut.String(), "Runtime Error: Division by zero")
	require.Empty(t, out.String())
}

// An array index out of bounds is an uncaught-by-default runtime error too,
// unless the program wraps it in its own try/catch.
func TestArrayIndexOutOfRangeCaught(t *testing.T) {
	out, code := runSource(t, `<> -> void: main [ try [ [1, 2, 3] => a : [int]; a.(5)!! ] catch e [ ("caught"!!) ] ]`)
	require.Equal(t, vm.ExitOK, code)
	require.Equal(t, "caught\n", out)
}

// Exercises a second go task and multiple channel sends within its capacity
// to cover §5's "capacity c admits exactly c non-blocking sends" behavior
// indirectly through a full program rather than lang/types' own unit test.
func TestChannelCapacityDrain(t *testing.T) {
	src := `
<ch: chan<int>> -> void: prod [
	ch <- 1;
	ch <- 2;
	ch <- 3
];
<> -> void: main [
	chan<int>(3) => c : chan<int>;
	go prod(c);
	(<-c)!!;
	(<-c)!!;
	(<-c)!!
]`
	out, code := runSource(t, src)
	require.Equal(t, vm.ExitOK, code)
	require.Equal(t, "1\n2\n3\n", out)
}

// String indexing (§4.4 INDEX) returns a 1-character string, the same
// `str.(i)` form the original vm.c's OP_INDEX supports alongside arrays
// and maps.
func TestStringIndex(t *testing.T) {
	out, code := runSource(t, `<> -> void: main [ "hello" => s : str; s.(1)!! ]`)
	require.Equal(t, vm.ExitOK, code)
	require.Equal(t, "e\n", out)
}

func TestStringIndexOutOfRangeCaught(t *testing.T) {
	out, code := runSource(t, `<> -> void: main [ try [ "hi" => s : str; s.(5)!! ] catch e [ ("caught"!!) ] ]`)
	require.Equal(t, vm.ExitOK, code)
	require.Equal(t, "caught\n", out)
}

func TestCompileErrorExitsNonZeroShape(t *testing.T) {
	_, err := compiler.Compile("<test>", `<> -> void: main [ 1 + "x" !! ]`, ".", "")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "requires"))
}
