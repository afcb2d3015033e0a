package types

// ErrData is the payload of a KindErr Obj: the value thrown or raised,
// either synthesized by the interpreter (a plain message string, per §7's
// runtime_error) or supplied by a user `throw <expr>` / the `error(any)`
// native (#18). §4.6 formats it as "Error: <inner>".
type ErrData struct {
	Msg   string
	Inner Value // the thrown value; Zero for interpreter-synthesized errors
}

// NewErr wraps msg as an interpreter-synthesized error value.
func NewErr(msg string) Value {
	o := newObj(objErr)
	o.Err = &ErrData{Msg: msg}
	return Value{typ: TypeErr, obj: o}
}

// NewErrValue wraps an arbitrary user value as an error (the `error(any)`
// native, #18, and user `throw <expr>` of a non-err value).
func NewErrValue(v Value) Value {
	o := newObj(objErr)
	o.Err = &ErrData{Msg: v.String(), Inner: v}
	v.Retain()
	return Value{typ: TypeErr, obj: o}
}
