// Package natives implements the fixed, ordered native-function dispatch
// table §6 describes: each native is a (name, arity, param_types,
// return_type, fn) record identified by a small integer index that must
// match between lang/compiler (which type-checks call sites against the
// table and emits INVOKE with that index) and lang/vm (whose INVOKE handler
// dispatches on the same index). The table is grounded on the teacher's own
// fixed builtin
// registration pattern (lang/machine/universe.go registers a handful of
// predeclared names at thread init); opo's natives table generalizes that
// to the full §6 list, each entry independently implemented against
// lang/types rather than adapted line-by-line from any single teacher
// function (the teacher has no file I/O, JSON, HTTP, regex or FFI
// builtins to ground those on).
package natives

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/opo-lang/opo/lang/types"
)

// Context carries the host collaborators a native may need: argv, standard
// streams, a random source and an exit hook. The VM constructs exactly one
// Context per Run call, shared by the root Machine and every `go` task
// (Argv/Stdio/exit are process-wide), and passes it to every native Fn
// call.
type Context struct {
	Argv   []string
	Stdout io.Writer
	Stderr io.Writer
	Stdin  *bufio.Reader
	Rand   *rand.Rand
	// Exit requests process termination with the given code (native #10,
	// exit). The VM's Fn wiring panics with a sentinel that vm.Run recovers
	// (inside a `go` task, the task's goroutine recovers it and exits the
	// process with that code), so `exit` unwinds any number of call frames
	// instead of merely returning from the current native.
	Exit func(code int)
}

// Fn is a native's implementation: given the call Context and the already
// type-checked argument Values (in declaration order), it returns the
// result Value or a runtime error (which the VM throws as a plain string
// holding the error's message, the same shape an interpreter-raised fault
// takes, §7).
type Fn func(ctx *Context, args []types.Value) (types.Value, error)

// Native is one fixed entry in the dispatch table.
type Native struct {
	Name       string
	Index      int
	ParamTypes []types.Type
	Variadic   bool // true only for ffiCall (#29): extra args accepted beyond ParamTypes
	ReturnType types.Type
	Fn         Fn
}

// ByName and ByIndex are built once at package init from Table, and are
// what lang/compiler consults to type-check a call and what lang/vm
// consults to dispatch OP_INVOKE against native index i.
var (
	ByName  = map[string]*Native{}
	ByIndex []*Native
)

func reg(n Native) Native {
	return n
}

// Table is the fixed, ordered native registration, index-for-index
// identical to §6's table. Reordering or inserting an entry here without
// updating every other entry's Index is a compiler/VM desync bug; the
// indices are also asserted by natives_test.go.
var Table = []Native{
	reg(Native{Name: "len", Index: 0, ParamTypes: []types.Type{types.TypeAny}, ReturnType: types.TypeInt, Fn: nativeLen}),
	reg(Native{Name: "append", Index: 1, ParamTypes: []types.Type{types.TypeAny, types.TypeAny}, ReturnType: types.TypeAny, Fn: nativeAppend}),
	reg(Native{Name: "str", Index: 2, ParamTypes: []types.Type{types.TypeAny}, ReturnType: types.TypeStr, Fn: nativeStr}),
	reg(Native{Name: "readFile", Index: 3, ParamTypes: []types.Type{types.TypeStr}, ReturnType: types.TypeStr, Fn: nativeReadFile}),
	reg(Native{Name: "writeFile", Index: 4, ParamTypes: []types.Type{types.TypeStr, types.TypeStr}, ReturnType: types.TypeBool, Fn: nativeWriteFile}),
	reg(Native{Name: "args", Index: 5, ParamTypes: nil, ReturnType: types.ArrayOf(types.KindStr), Fn: nativeArgs}),
	reg(Native{Name: "int", Index: 6, ParamTypes: []types.Type{types.TypeAny}, ReturnType: types.TypeInt, Fn: nativeInt}),
	reg(Native{Name: "print", Index: 7, ParamTypes: []types.Type{types.TypeAny}, ReturnType: types.TypeVoid, Fn: nativePrint}),
	reg(Native{Name: "println", Index: 8, ParamTypes: []types.Type{types.TypeAny}, ReturnType: types.TypeVoid, Fn: nativePrintln}),
	reg(Native{Name: "readLine", Index: 9, ParamTypes: nil, ReturnType: types.TypeStr, Fn: nativeReadLine}),
	reg(Native{Name: "exit", Index: 10, ParamTypes: []types.Type{types.TypeInt}, ReturnType: types.TypeVoid, Fn: nativeExit}),
	reg(Native{Name: "clock", Index: 11, ParamTypes: nil, ReturnType: types.TypeFlt, Fn: nativeClock}),
	reg(Native{Name: "system", Index: 12, ParamTypes: []types.Type{types.TypeStr}, ReturnType: types.TypeInt, Fn: nativeSystem}),
	reg(Native{Name: "keys", Index: 13, ParamTypes: []types.Type{types.TypeAny}, ReturnType: types.ArrayOf(types.KindAny), Fn: nativeKeys}),
	reg(Native{Name: "delete", Index: 14, ParamTypes: []types.Type{types.TypeAny, types.TypeAny}, ReturnType: types.TypeVoid, Fn: nativeDelete}),
	reg(Native{Name: "ascii", Index: 15, ParamTypes: []types.Type{types.TypeStr}, ReturnType: types.TypeInt, Fn: nativeAscii}),
	reg(Native{Name: "char", Index: 16, ParamTypes: []types.Type{types.TypeInt}, ReturnType: types.TypeStr, Fn: nativeChar}),
	reg(Native{Name: "has", Index: 17, ParamTypes: []types.Type{types.TypeAny, types.TypeAny}, ReturnType: types.TypeBool, Fn: nativeHas}),
	reg(Native{Name: "error", Index: 18, ParamTypes: []types.Type{types.TypeAny}, ReturnType: types.TypeErr, Fn: nativeError}),
	reg(Native{Name: "time", Index: 19, ParamTypes: nil, ReturnType: types.TypeInt, Fn: nativeTime}),
	reg(Native{Name: "sqrt", Index: 20, ParamTypes: []types.Type{types.TypeFlt}, ReturnType: types.TypeFlt, Fn: nativeSqrt}),
	reg(Native{Name: "sin", Index: 21, ParamTypes: []types.Type{types.TypeFlt}, ReturnType: types.TypeFlt, Fn: mathFn(math.Sin)}),
	reg(Native{Name: "cos", Index: 22, ParamTypes: []types.Type{types.TypeFlt}, ReturnType: types.TypeFlt, Fn: mathFn(math.Cos)}),
	reg(Native{Name: "tan", Index: 23, ParamTypes: []types.Type{types.TypeFlt}, ReturnType: types.TypeFlt, Fn: mathFn(math.Tan)}),
	reg(Native{Name: "log", Index: 24, ParamTypes: []types.Type{types.TypeFlt}, ReturnType: types.TypeFlt, Fn: mathFn(math.Log)}),
	reg(Native{Name: "flt", Index: 25, ParamTypes: []types.Type{types.TypeAny}, ReturnType: types.TypeFlt, Fn: nativeFlt}),
	reg(Native{Name: "rand", Index: 26, ParamTypes: []types.Type{types.TypeFlt, types.TypeFlt}, ReturnType: types.TypeFlt, Fn: nativeRand}),
	reg(Native{Name: "seed", Index: 27, ParamTypes: []types.Type{types.TypeInt}, ReturnType: types.TypeVoid, Fn: nativeSeed}),
	reg(Native{Name: "ffiLoad", Index: 28, ParamTypes: []types.Type{types.TypeStr}, ReturnType: types.TypeErr, Fn: nativeFFIUnsupported}),
	reg(Native{Name: "ffiCall", Index: 29, ParamTypes: []types.Type{types.TypeInt, types.TypeStr, types.TypeStr, types.TypeStr}, Variadic: true, ReturnType: types.TypeErr, Fn: nativeFFIUnsupported}),
	reg(Native{Name: "close", Index: 30, ParamTypes: []types.Type{types.TypeAny}, ReturnType: types.TypeVoid, Fn: nativeClose}),
	reg(Native{Name: "json_stringify", Index: 31, ParamTypes: []types.Type{types.TypeAny}, ReturnType: types.TypeStr, Fn: nativeJSONStringify}),
	reg(Native{Name: "json_parse", Index: 32, ParamTypes: []types.Type{types.TypeStr}, ReturnType: types.TypeAny, Fn: nativeJSONParse}),
	reg(Native{Name: "httpGet", Index: 33, ParamTypes: []types.Type{types.TypeStr}, ReturnType: types.TypeStr, Fn: nativeHTTPGet}),
	reg(Native{Name: "regexMatch", Index: 34, ParamTypes: []types.Type{types.TypeStr, types.TypeStr}, ReturnType: types.TypeBool, Fn: nativeRegexMatch}),
	reg(Native{Name: "fileExists", Index: 35, ParamTypes: []types.Type{types.TypeStr}, ReturnType: types.TypeBool, Fn: nativeFileExists}),
	reg(Native{Name: "removeFile", Index: 36, ParamTypes: []types.Type{types.TypeStr}, ReturnType: types.TypeBool, Fn: nativeRemoveFile}),
	reg(Native{Name: "listDir", Index: 37, ParamTypes: []types.Type{types.TypeStr}, ReturnType: types.ArrayOf(types.KindStr), Fn: nativeListDir}),
}

func init() {
	ByIndex = make([]*Native, len(Table))
	for i := range Table {
		n := &Table[i]
		if n.Index != i {
			panic(fmt.Sprintf("natives: table entry %q has Index %d, want %d", n.Name, n.Index, i))
		}
		ByIndex[i] = n
		ByName[n.Name] = n
	}
}

func mathFn(f func(float64) float64) Fn {
	return func(_ *Context, args []types.Value) (types.Value, error) {
		return types.Flt(f(args[0].AsFlt())), nil
	}
}

func nativeLen(_ *Context, args []types.Value) (types.Value, error) {
	v := args[0]
	switch v.Kind() {
	case types.KindStr:
		return types.Int(int64(len(v.AsStr()))), nil
	case types.KindArray:
		return types.Int(int64(v.Obj().Array.Len())), nil
	case types.KindMap:
		return types.Int(int64(v.Obj().Map.Len())), nil
	default:
		return types.Zero, fmt.Errorf("len: unsupported kind %s", v.Kind())
	}
}

func nativeAppend(_ *Context, args []types.Value) (types.Value, error) {
	arr := args[0]
	if arr.Kind() != types.KindArray {
		return types.Zero, fmt.Errorf("append: first argument must be an array")
	}
	arr.Obj().Array.Append(args[1])
	return arr, nil
}

func nativeStr(_ *Context, args []types.Value) (types.Value, error) {
	return types.Str(args[0].String()), nil
}

func nativeReadFile(_ *Context, args []types.Value) (types.Value, error) {
	b, err := os.ReadFile(args[0].AsStr())
	if err != nil {
		return types.Zero, err
	}
	return types.Str(string(b)), nil
}

func nativeWriteFile(_ *Context, args []types.Value) (types.Value, error) {
	err := os.WriteFile(args[0].AsStr(), []byte(args[1].AsStr()), 0o644)
	return types.Bool(err == nil), nil
}

func nativeArgs(ctx *Context, _ []types.Value) (types.Value, error) {
	elems := make([]types.Value, len(ctx.Argv))
	for i, a := range ctx.Argv {
		elems[i] = types.Str(a)
	}
	return types.NewArray(types.KindStr, elems), nil
}

func nativeInt(_ *Context, args []types.Value) (types.Value, error) {
	v := args[0]
	switch v.Kind() {
	case types.KindInt:
		return v, nil
	case types.KindFlt:
		return types.Int(int64(v.AsFlt())), nil
	case types.KindBool:
		if v.AsBool() {
			return types.Int(1), nil
		}
		return types.Int(0), nil
	case types.KindStr:
		n, err := strconv.ParseInt(strings.TrimSpace(v.AsStr()), 10, 64)
		if err != nil {
			return types.Zero, err
		}
		return types.Int(n), nil
	default:
		return types.Zero, fmt.Errorf("int: unsupported kind %s", v.Kind())
	}
}

func nativeFlt(_ *Context, args []types.Value) (types.Value, error) {
	v := args[0]
	switch v.Kind() {
	case types.KindFlt:
		return v, nil
	case types.KindInt:
		return types.Flt(float64(v.AsInt())), nil
	case types.KindStr:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.AsStr()), 64)
		if err != nil {
			return types.Zero, err
		}
		return types.Flt(f), nil
	default:
		return types.Zero, fmt.Errorf("flt: unsupported kind %s", v.Kind())
	}
}

func nativePrint(ctx *Context, args []types.Value) (types.Value, error) {
	fmt.Fprint(ctx.Stdout, args[0].String())
	return types.Void(), nil
}

func nativePrintln(ctx *Context, args []types.Value) (types.Value, error) {
	fmt.Fprintln(ctx.Stdout, args[0].String())
	return types.Void(), nil
}

func nativeReadLine(ctx *Context, _ []types.Value) (types.Value, error) {
	line, err := ctx.Stdin.ReadString('\n')
	if err != nil && line == "" {
		return types.Str(""), nil
	}
	return types.Str(strings.TrimRight(line, "\r\n")), nil
}

func nativeExit(ctx *Context, args []types.Value) (types.Value, error) {
	ctx.Exit(int(args[0].AsInt()))
	return types.Void(), nil
}

func nativeClock(_ *Context, _ []types.Value) (types.Value, error) {
	return types.Flt(float64(time.Now().UnixNano()) / 1e9), nil
}

func nativeTime(_ *Context, _ []types.Value) (types.Value, error) {
	return types.Int(time.Now().Unix()), nil
}

func nativeSystem(_ *Context, args []types.Value) (types.Value, error) {
	return types.Int(-1), fmt.Errorf("system: shelling out is disabled (%q)", args[0].AsStr())
}

func nativeKeys(_ *Context, args []types.Value) (types.Value, error) {
	m := args[0]
	if m.Kind() != types.KindMap {
		return types.Zero, fmt.Errorf("keys: argument must be a map")
	}
	return types.NewArray(types.KindAny, m.Obj().Map.Keys()), nil
}

func nativeDelete(_ *Context, args []types.Value) (types.Value, error) {
	m := args[0]
	if m.Kind() != types.KindMap {
		return types.Zero, fmt.Errorf("delete: argument must be a map")
	}
	m.Obj().Map.Delete(args[1])
	return types.Void(), nil
}

func nativeAscii(_ *Context, args []types.Value) (types.Value, error) {
	s := args[0].AsStr()
	if len(s) == 0 {
		return types.Zero, fmt.Errorf("ascii: empty string")
	}
	return types.Int(int64(s[0])), nil
}

func nativeChar(_ *Context, args []types.Value) (types.Value, error) {
	return types.Str(string([]byte{byte(args[0].AsInt())})), nil
}

func nativeHas(_ *Context, args []types.Value) (types.Value, error) {
	m := args[0]
	if m.Kind() != types.KindMap {
		return types.Zero, fmt.Errorf("has: argument must be a map")
	}
	_, ok := m.Obj().Map.Get(args[1])
	return types.Bool(ok), nil
}

func nativeError(_ *Context, args []types.Value) (types.Value, error) {
	return types.NewErrValue(args[0]), nil
}

func nativeSqrt(_ *Context, args []types.Value) (types.Value, error) {
	return types.Flt(math.Sqrt(args[0].AsFlt())), nil
}

func nativeRand(ctx *Context, args []types.Value) (types.Value, error) {
	lo, hi := args[0].AsFlt(), args[1].AsFlt()
	return types.Flt(lo + ctx.Rand.Float64()*(hi-lo)), nil
}

func nativeSeed(ctx *Context, args []types.Value) (types.Value, error) {
	ctx.Rand.Seed(args[0].AsInt())
	return types.Void(), nil
}

func nativeFFIUnsupported(_ *Context, _ []types.Value) (types.Value, error) {
	return types.NewErr("ffi not supported"), nil
}

func nativeClose(_ *Context, args []types.Value) (types.Value, error) {
	v := args[0]
	if v.Kind() != types.KindChan {
		return types.Zero, fmt.Errorf("close: argument must be a channel")
	}
	v.Obj().Chan.Close()
	return types.Void(), nil
}

func nativeJSONStringify(_ *Context, args []types.Value) (types.Value, error) {
	b, err := json.Marshal(toJSON(args[0]))
	if err != nil {
		return types.Zero, err
	}
	return types.Str(string(b)), nil
}

func nativeJSONParse(_ *Context, args []types.Value) (types.Value, error) {
	var v any
	if err := json.Unmarshal([]byte(args[0].AsStr()), &v); err != nil {
		return types.Zero, err
	}
	return fromJSON(v), nil
}

func toJSON(v types.Value) any {
	switch v.Kind() {
	case types.KindInt:
		return v.AsInt()
	case types.KindFlt:
		return v.AsFlt()
	case types.KindBool:
		return v.AsBool()
	case types.KindStr:
		return v.AsStr()
	case types.KindArray:
		arr := v.Obj().Array
		out := make([]any, arr.Len())
		for i := 0; i < arr.Len(); i++ {
			out[i] = toJSON(arr.Get(i))
		}
		return out
	case types.KindMap:
		out := map[string]any{}
		for _, k := range v.Obj().Map.Keys() {
			val, _ := v.Obj().Map.Get(k)
			out[k.String()] = toJSON(val)
		}
		return out
	default:
		return nil
	}
}

func fromJSON(v any) types.Value {
	switch t := v.(type) {
	case float64:
		return types.Flt(t)
	case string:
		return types.Str(t)
	case bool:
		return types.Bool(t)
	case nil:
		return types.NewNone(types.KindAny)
	case []any:
		elems := make([]types.Value, len(t))
		for i, e := range t {
			elems[i] = fromJSON(e)
		}
		return types.NewArray(types.KindAny, elems)
	case map[string]any:
		m := types.NewMap(types.KindStr, types.KindAny, len(t))
		for k, val := range t {
			m.Obj().Map.Set(types.Str(k), fromJSON(val))
		}
		return m
	default:
		return types.NewNone(types.KindAny)
	}
}

func nativeHTTPGet(_ *Context, args []types.Value) (types.Value, error) {
	resp, err := http.Get(args[0].AsStr())
	if err != nil {
		return types.Zero, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Zero, err
	}
	return types.Str(string(b)), nil
}

func nativeRegexMatch(_ *Context, args []types.Value) (types.Value, error) {
	re, err := regexp.Compile(args[1].AsStr())
	if err != nil {
		return types.Zero, err
	}
	return types.Bool(re.MatchString(args[0].AsStr())), nil
}

func nativeFileExists(_ *Context, args []types.Value) (types.Value, error) {
	_, err := os.Stat(args[0].AsStr())
	return types.Bool(err == nil), nil
}

func nativeRemoveFile(_ *Context, args []types.Value) (types.Value, error) {
	err := os.Remove(args[0].AsStr())
	return types.Bool(err == nil), nil
}

func nativeListDir(_ *Context, args []types.Value) (types.Value, error) {
	ents, err := os.ReadDir(args[0].AsStr())
	if err != nil {
		return types.Zero, err
	}
	elems := make([]types.Value, len(ents))
	for i, e := range ents {
		elems[i] = types.Str(e.Name())
	}
	return types.NewArray(types.KindStr, elems), nil
}
