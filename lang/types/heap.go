package types

import "sync/atomic"

// objKind identifies the concrete representation behind a heap-allocated
// Value (everything except Int/Flt/Bool, which are stored unboxed in the
// Value struct itself).
type objKind uint8

//nolint:revive
const (
	objString objKind = iota
	objArray
	objStruct
	objMap
	objEnum
	objChan
	objFunc
	objErr
)

const (
	HeapString = objString
	HeapArray  = objArray
	HeapStruct = objStruct
	HeapMap    = objMap
	HeapEnum   = objEnum
	HeapChan   = objChan
	HeapFunc   = objFunc
	HeapErr    = objErr
)

// HeapObjKind is the exported view of a heap object's concrete kind, used by
// diagnostics and tests.
type HeapObjKind = objKind

// Obj is the single heap-object representation behind every non-primitive
// Value: a reference count plus a kind-tagged payload. It is the Go
// analogue of the original implementation's `HeapObject{type, ref_count}`
// header (original_source/src/common.h) generalized to carry its payload
// inline rather than via a separate malloc'd struct per kind. Go's GC still
// owns the memory; refs is a parallel bookkeeping layer so the VM can
// enforce and test the ownership invariants in §5 (a value is retained once
// per live reference and recursively released when its count reaches
// zero).
type Obj struct {
	kind objKind
	refs int32

	Str    string
	Array  *ArrayData
	Struct *StructData
	Map    *MapData
	Enum   *EnumData
	Chan   *ChanData
	Func   *FuncData
	Err    *ErrData
}

// Kind returns the heap object's concrete representation kind.
func (o *Obj) Kind() objKind { return o.kind }

// RefCount returns the current reference count.
func (o *Obj) RefCount() int32 { return atomic.LoadInt32(&o.refs) }

// Retain increments the reference count.
func (o *Obj) Retain() { atomic.AddInt32(&o.refs, 1) }

// Release decrements the reference count and reports whether it reached
// zero.
func (o *Obj) Release() bool {
	return atomic.AddInt32(&o.refs, -1) == 0
}

func newObj(kind objKind) *Obj {
	return &Obj{kind: kind, refs: 1}
}

// Retain increments v's refcount if v is heap-allocated; Int/Flt/Bool and
// the zero Value are no-ops.
func (v Value) Retain() {
	if v.obj != nil {
		v.obj.Retain()
	}
}

// Release decrements v's refcount if v is heap-allocated and, if it reaches
// zero, recursively releases every Value the object transitively holds,
// mirroring the original's free_object.
func (v Value) Release() {
	if v.obj == nil {
		return
	}
	if !v.obj.Release() {
		return
	}
	switch v.obj.kind {
	case objArray:
		for _, e := range v.obj.Array.Elems {
			e.Release()
		}
	case objStruct:
		for _, e := range v.obj.Struct.Fields {
			e.Release()
		}
	case objMap:
		v.obj.Map.Table.Iter(func(_ mapKey, val Value) (stop bool) {
			val.Release()
			return false
		})
	case objEnum:
		if v.obj.Enum.Has {
			v.obj.Enum.Payload.Release()
		}
	case objErr:
		v.obj.Err.Inner.Release()
	case objChan:
		for _, buffered := range v.obj.Chan.buf {
			buffered.Release()
		}
	}
}
