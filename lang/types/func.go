package types

// FuncData is the payload of a KindFunc Obj: either a compiled function's
// entry address in the Chunk's code or a native's dispatch index, mirroring
// the original's ObjNative (function pointer + name) and the function
// Value produced by PUSH_FUNC (§4.4).
type FuncData struct {
	Name       string
	Addr       int64 // bytecode address, for compiled functions
	NativeIdx  int   // index into the native table, for natives
	IsNative   bool
	ParamTypes []Type
	ReturnType Type
}

// NewFunc returns a Value of kind KindFunc wrapping a compiled function's
// entry address.
func NewFunc(typ Type, name string, addr int64, paramTypes []Type, ret Type) Value {
	o := newObj(objFunc)
	o.Func = &FuncData{Name: name, Addr: addr, ParamTypes: paramTypes, ReturnType: ret}
	return Value{typ: typ, obj: o}
}

// NewNativeFunc returns a Value of kind KindFunc wrapping a native's
// dispatch index.
func NewNativeFunc(typ Type, name string, nativeIdx int, paramTypes []Type, ret Type) Value {
	o := newObj(objFunc)
	o.Func = &FuncData{Name: name, NativeIdx: nativeIdx, IsNative: true, ParamTypes: paramTypes, ReturnType: ret}
	return Value{typ: typ, obj: o}
}
