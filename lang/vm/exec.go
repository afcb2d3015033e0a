package vm

import (
	"fmt"
	"math"

	"github.com/opo-lang/opo/lang/compiler"
	"github.com/opo-lang/opo/lang/natives"
	"github.com/opo-lang/opo/lang/types"
)

// run drives the fetch-decode-execute loop from code offset pc until a RET
// unwinds this Machine's last frame (returning nil), or an uncaught throw
// propagates out of the loop entirely (returning a non-nil error, one of
// the two §7 shapes Run/formatUncaught understand). Every opcode here
// mirrors the stack-effect and operand layout lang/compiler/opcode.go and
// the emission sites in lang/compiler document (§4.4).
func (m *machine) run(pc int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if t, ok := r.(throwable); ok {
				// An interpreter-raised fault inside a try block unwinds to
				// its handler like a user throw, and execution resumes there.
				if len(m.tryStack) > 0 {
					err = m.run(m.throw(t.v))
					return
				}
				err = t
				return
			}
			panic(r)
		}
	}()

	code := m.sh.chunk.Code
	strs := m.sh.chunk.Strings

	for {
		if m.sh.maxSteps > 0 {
			m.steps++
			if m.steps > m.sh.maxSteps {
				m.runtimeError("step budget exceeded")
			}
		}

		op := compiler.Op(code[pc])
		next := pc + 1 + compiler.OperandLen(op)

		switch op {
		case compiler.HALT:
			return nil

		case compiler.PUSH_INT:
			m.push(types.Int(compiler.DecodeI64(code, pc+1)))

		case compiler.PUSH_FLT:
			m.push(types.Flt(math.Float64frombits(uint64(compiler.DecodeI64(code, pc+1)))))

		case compiler.PUSH_STR:
			idx := compiler.DecodeU8(code, pc+1)
			m.push(types.Str(strs[idx]))

		case compiler.PUSH_BOOL:
			m.push(types.Bool(compiler.DecodeU8(code, pc+1) != 0))

		case compiler.PUSH_FUNC:
			addr := compiler.DecodeI64(code, pc+1)
			kind := types.Kind(compiler.DecodeU8(code, pc+9))
			name := ""
			if fm := m.sh.addrIndex[addr]; fm != nil {
				name = fm.Name
			}
			m.push(types.NewFunc(types.FuncType(kind), name, addr, nil, types.Simple(kind)))

		case compiler.ADD:
			m.execAdd()
		case compiler.SUB:
			m.execArith(op)
		case compiler.MUL:
			m.execArith(op)
		case compiler.DIV:
			m.execArith(op)
		case compiler.MOD:
			m.execArith(op)
		case compiler.NEG:
			m.execNeg()

		case compiler.EQ:
			m.execEq(false)
		case compiler.LT, compiler.GT, compiler.LTE, compiler.GTE:
			m.execCompare(op)

		case compiler.AND:
			b, a := m.pop(), m.pop()
			m.push(types.Bool(a.AsBool() && b.AsBool()))
		case compiler.OR:
			b, a := m.pop(), m.pop()
			m.push(types.Bool(a.AsBool() || b.AsBool()))
		case compiler.NOT:
			a := m.pop()
			m.push(types.Bool(!a.AsBool()))

		case compiler.PRINT:
			v := m.pop()
			fmt.Fprintln(m.sh.ctx.Stdout, v.String())
			v.Release()

		case compiler.STORE:
			slot := int(compiler.DecodeU8(code, pc+1))
			idx := m.localsBase() + slot
			m.locals[idx].Release()
			m.locals[idx] = m.pop()

		case compiler.LOAD:
			slot := int(compiler.DecodeU8(code, pc+1))
			v := m.locals[m.localsBase()+slot]
			v.Retain()
			m.push(v)

		case compiler.LOAD_G:
			// Never emitted by lang/compiler (every native call resolves
			// directly to INVOKE+index), but implemented for
			// completeness: loads the function value for native index n.
			idx := int(compiler.DecodeU8(code, pc+1))
			n := natives.ByIndex[idx]
			m.push(types.NewNativeFunc(types.FuncType(n.ReturnType.Kind()), n.Name, idx, n.ParamTypes, n.ReturnType))

		case compiler.POP:
			m.pop().Release()

		case compiler.JUMP:
			pc = int(compiler.DecodeI32(code, pc+1))
			continue

		case compiler.JUMP_IF_F:
			target := int(compiler.DecodeI32(code, pc+1))
			cond := m.pop()
			truth := cond.AsBool()
			cond.Release()
			if !truth {
				pc = target
				continue
			}

		case compiler.IS_TRUTHY:
			v := m.pop()
			m.push(types.Bool(truthy(v)))
			v.Release()

		case compiler.CALL:
			addr := int64(compiler.DecodeI32(code, pc+1))
			fm := m.sh.addrIndex[addr]
			if fm == nil {
				m.runtimeError("call to unknown function address %d", addr)
			}
			if m.fp+1 >= maxFrames {
				m.runtimeError("stack overflow")
			}
			newFp := m.fp + 1
			localsOff := newFp * compiler.MaxLocals
			for i := fm.NumParams - 1; i >= 0; i-- {
				m.locals[localsOff+i] = m.pop()
			}
			m.frames[newFp] = frame{returnIP: next, localsOff: localsOff, retKind: types.Kind(fm.ReturnKind)}
			m.fp = newFp
			pc = int(addr)
			continue

		case compiler.INVOKE:
			idx := int(compiler.DecodeU8(code, pc+1))
			argc := int(compiler.DecodeU8(code, pc+2))
			n := natives.ByIndex[idx]
			args := make([]types.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = m.pop()
			}
			result, callErr := n.Fn(m.sh.ctx, args)
			if callErr != nil {
				for _, a := range args {
					a.Release()
				}
				pc = m.throw(types.Str(callErr.Error()))
				continue
			}
			resultObj := result.Obj()
			for _, a := range args {
				if resultObj == nil || a.Obj() != resultObj {
					a.Release()
				}
			}
			m.push(result)

		case compiler.GO:
			n := int(compiler.DecodeU8(code, pc+1))
			args := make([]types.Value, n)
			for i := n - 1; i >= 0; i-- {
				args[i] = m.pop()
			}
			fnVal := m.pop()
			addr := fnVal.Obj().Func.Addr
			fnVal.Release()
			fm := m.sh.addrIndex[addr]
			if fm == nil {
				m.runtimeError("go: unknown function address %d", addr)
			}
			m.spawn(addr, fm, args)

		case compiler.RET:
			fr := m.frames[m.fp]
			hasResult := fr.retKind != types.KindVoid
			var result types.Value
			if hasResult {
				result = m.pop()
			}
			base := fr.localsOff
			for i := 0; i < compiler.MaxLocals; i++ {
				m.locals[base+i].Release()
				m.locals[base+i] = types.Zero
			}
			retIP := fr.returnIP
			m.fp--
			if retIP == haltReturn {
				if hasResult {
					result.Release()
				}
				return nil
			}
			if hasResult {
				m.push(result)
			}
			pc = retIP
			continue

		case compiler.TYPEOF:
			v := m.pop()
			s := v.Type().TypeOfString()
			v.Release()
			m.push(types.Str(s))

		case compiler.INDEX:
			m.execIndex()

		case compiler.SET_INDEX:
			m.execSetIndex()

		case compiler.GET_MEMBER:
			idx := int(compiler.DecodeU8(code, pc+1))
			s := m.pop()
			field := s.Obj().Struct.Get(idx)
			field.Retain()
			s.Release()
			m.push(field)

		case compiler.SET_MEMBER:
			idx := int(compiler.DecodeU8(code, pc+1))
			val := m.pop()
			s := m.pop()
			s.Obj().Struct.Set(idx, val)
			val.Release()
			s.Release()

		case compiler.ARRAY:
			typ := types.Type(compiler.DecodeI32(code, pc+1))
			n := int(compiler.DecodeU8(code, pc+5))
			elems := make([]types.Value, n)
			for i := n - 1; i >= 0; i-- {
				elems[i] = m.pop()
			}
			arr := types.NewArray(typ.Sub(), elems)
			for _, e := range elems {
				e.Release()
			}
			m.push(arr)

		case compiler.MAP:
			typ := types.Type(compiler.DecodeI32(code, pc+1))
			n := int(compiler.DecodeU8(code, pc+5))
			pairs := make([]types.Value, 2*n)
			for i := 2*n - 1; i >= 0; i-- {
				pairs[i] = m.pop()
			}
			mv := types.NewMap(typ.Key(), typ.Sub(), n)
			for i := 0; i < n; i++ {
				k, v := pairs[2*i], pairs[2*i+1]
				mv.Obj().Map.Set(k, v)
				k.Release()
				v.Release()
			}
			m.push(mv)

		case compiler.STRUCT:
			// STRUCT's only operand is the field count: the constructed
			// struct's declaration index is never consulted at runtime
			// (GET_MEMBER/SET_MEMBER address fields purely by index, and
			// both TYPEOF and str() format every struct identically,
			// types/type.go's TypeOfString/String), so there is nothing
			// for the VM to tag the Value with beyond KindStruct itself.
			n := int(compiler.DecodeU8(code, pc+1))
			fields := make([]types.Value, n)
			for i := n - 1; i >= 0; i-- {
				fields[i] = m.pop()
			}
			sv := types.NewStruct(types.StructType(0), fields)
			for _, f := range fields {
				f.Release()
			}
			m.push(sv)

		case compiler.ENUM_VARIANT:
			typ := types.Type(compiler.DecodeI32(code, pc+1))
			variant := int(compiler.DecodeU8(code, pc+5))
			has := compiler.DecodeU8(code, pc+6) != 0
			labelIdx := compiler.DecodeU8(code, pc+7)
			var payload types.Value
			if has {
				payload = m.pop()
			}
			ev := types.NewEnum(typ, strs[labelIdx], variant, has, payload)
			if has {
				payload.Release()
			}
			m.push(ev)

		case compiler.CHECK_VARIANT:
			want := int(compiler.DecodeI32(code, pc+1))
			v := m.peek(0)
			m.push(types.Bool(v.Obj().Enum.Variant == want))

		case compiler.CHECK_TYPE:
			want := types.Kind(compiler.DecodeU8(code, pc+1))
			v := m.peek(0)
			m.push(types.Bool(v.Kind() == want))

		case compiler.AS_TYPE:
			typ := types.Type(compiler.DecodeI32(code, pc+1))
			v := m.pop()
			m.push(v.Retype(typ))

		case compiler.GET_ENUM_PAYLOAD:
			// Never emitted (match arms use the destructive
			// EXTRACT_ENUM_PAYLOAD below), implemented for spec fidelity.
			v := m.peek(0)
			p := v.Obj().Enum.Payload
			p.Retain()
			m.push(p)

		case compiler.EXTRACT_ENUM_PAYLOAD:
			v := m.pop()
			p := v.Obj().Enum.Payload
			p.Retain()
			v.Release()
			m.push(p)

		case compiler.TRY:
			handler := int(compiler.DecodeI32(code, pc+1))
			m.tryStack = append(m.tryStack, tryFrame{handlerIP: handler, stackPtr: m.sp, framePtr: m.fp})

		case compiler.END_TRY:
			m.tryStack = m.tryStack[:len(m.tryStack)-1]

		case compiler.THROW:
			v := m.pop()
			pc = m.throw(v)
			continue

		case compiler.CHAN:
			typ := types.Type(compiler.DecodeI32(code, pc+1))
			cap := m.pop()
			n := int(cap.AsInt())
			m.push(types.NewChan(typ.Sub(), n))

		case compiler.SEND:
			val := m.pop()
			ch := m.pop()
			err := ch.Obj().Chan.Send(val)
			val.Release()
			ch.Release()
			if err != nil {
				pc = m.throw(types.Str(err.Error()))
				continue
			}

		case compiler.RECV:
			ch := m.pop()
			v, ok := ch.Obj().Chan.Recv()
			ch.Release()
			if !ok {
				m.push(types.Void())
			} else {
				m.push(v)
			}

		default:
			m.runtimeError("unknown opcode %d", op)
		}

		pc = next
	}
}

// truthy implements IS_TRUTHY's three cases (§4.4): a bool keeps its own
// value; an Option is truthy iff it is some(...); anything else reaching
// this opcode is, by construction of compileTruthiness, always one of
// those two, but a non-void default of true keeps this total rather than
// panicking on future scrutinee kinds.
func truthy(v types.Value) bool {
	switch v.Kind() {
	case types.KindBool:
		return v.AsBool()
	case types.KindEnum:
		if v.Type().IsOption() {
			return v.Obj().Enum.Variant == types.VariantSome
		}
		return true
	case types.KindVoid:
		return false
	default:
		return true
	}
}
