package types

import "strings"

// ArrayData is the payload of a KindArray Obj: a resizable, homogeneously
// typed sequence, grounded on the original's ObjArray (a contiguous Value
// buffer with count/capacity) but backed by a Go slice rather than manual
// capacity doubling.
type ArrayData struct {
	Elem  Kind
	Elems []Value
}

// NewArray returns a Value wrapping a new array of the given element kind
// and initial contents. NewArray retains each element.
func NewArray(elem Kind, elems []Value) Value {
	o := newObj(objArray)
	o.Array = &ArrayData{Elem: elem, Elems: elems}
	for _, e := range elems {
		e.Retain()
	}
	return Value{typ: ArrayOf(elem), obj: o}
}

// Len returns the number of elements.
func (a *ArrayData) Len() int { return len(a.Elems) }

// Get returns the element at i. The caller must ensure 0 <= i < Len().
func (a *ArrayData) Get(i int) Value { return a.Elems[i] }

// Set replaces the element at i, releasing the old value and retaining v.
func (a *ArrayData) Set(i int, v Value) {
	a.Elems[i].Release()
	a.Elems[i] = v
	v.Retain()
}

// Append adds v to the end of the array, retaining it.
func (a *ArrayData) Append(v Value) {
	a.Elems = append(a.Elems, v)
	v.Retain()
}

func formatArray(a *ArrayData) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range a.Elems {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.String())
	}
	b.WriteByte(']')
	return b.String()
}
