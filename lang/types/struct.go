package types

// StructData is the payload of a KindStruct Obj: a fixed-shape sequence of
// fields declared by a `struct` type (§3), grounded on the original's
// ObjStruct (a Value array plus a pointer back to its declaration). Field
// *names* are resolved entirely at compile time (GET_MEMBER/SET_MEMBER
// address fields by index, never by name) and are not carried at runtime,
// consistent with Chunk's "code + strings, no other sections" shape (§3);
// §4.6's print formatter has no struct case, so an unnamed struct value
// formats as the same generic "<obj>" the design notes (§9) describe for
// any non-string/array heap object the formatter doesn't special-case.
type StructData struct {
	Fields []Value
}

// StructDecl describes a struct type's shape, as recorded by the compiler
// when it processes a `struct` declaration. Field order is significant: it
// is both the literal-construction order and the field index used by
// GET_MEMBER/SET_MEMBER.
type StructDecl struct {
	Name       string
	FieldNames []string
	FieldTypes []Type
}

// FieldIndex returns the index of the named field, or -1 if it does not
// exist.
func (d *StructDecl) FieldIndex(name string) int {
	for i, n := range d.FieldNames {
		if n == name {
			return i
		}
	}
	return -1
}

// NewStruct returns a Value wrapping a new struct instance. NewStruct
// retains each field value.
func NewStruct(typ Type, fields []Value) Value {
	o := newObj(objStruct)
	o.Struct = &StructData{Fields: fields}
	for _, f := range fields {
		f.Retain()
	}
	return Value{typ: typ, obj: o}
}

// Get returns the value of the field at index i.
func (s *StructData) Get(i int) Value { return s.Fields[i] }

// Set replaces the field at index i, releasing the old value and retaining v.
func (s *StructData) Set(i int, v Value) {
	s.Fields[i].Release()
	s.Fields[i] = v
	v.Retain()
}

func formatStruct(*StructData) string { return "<obj>" }
