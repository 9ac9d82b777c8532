// Copyright 2024 The letin Authors
// This file is part of letin.

package interp

import (
	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/gc"
	"github.com/letin-run/letin/internal/opcode"
	"github.com/letin-run/letin/internal/value"
)

func asInt(v value.Value) (int64, *errs.RuntimeError) {
	if v.Kind != value.KindInt {
		return 0, errs.New(errs.IncorrectValue)
	}
	return v.I, nil
}

func asFloat(v value.Value) (float64, *errs.RuntimeError) {
	if v.Kind != value.KindFloat {
		return 0, errs.New(errs.IncorrectValue)
	}
	return v.F, nil
}

func boolInt(b bool) value.Value {
	if b {
		return value.Int(1)
	}
	return value.Int(0)
}

// evalOp computes instruction in's result by dispatching on in.Op. Most ops
// take their two operands from in.Arg1/in.Arg2 via resolveArg; constructors
// and calls instead consume the pending-argument region built by preceding
// ARG instructions (see frame.go).
func (ip *Interp) evalOp(ctx *gc.ThreadContext, lb int, in instruction, exn *caughtException) (value.Value, *errs.RuntimeError) {
	op := in.Op

	// Ops that ignore Arg1/Arg2 and instead consume the pending-argument
	// region: constructors and every flavor of call.
	switch {
	case op >= opcode.RIARRAY8 && op <= opcode.RTUPLE:
		return ip.evalConstruct(ctx, op)
	case op == opcode.ICALL || op == opcode.FCALL || op == opcode.RCALL:
		return ip.evalCall(ctx, int(in.Arg1.Value))
	case op == opcode.INCALL || op == opcode.FNCALL || op == opcode.RNCALL:
		return ip.evalNativeCall(ctx, int(in.Arg1.Value))
	case op >= opcode.RUIA8REPLACE && op <= opcode.RUTREPLACE:
		// Needs three operands (aggregate, index, value): carried through the
		// pending-argument region rather than Arg1/Arg2, the same convention
		// used for constructors and calls.
		return evalReplace(op, popPendingArgs(ctx))
	}

	if op == opcode.ERRCODE {
		if exn == nil {
			return value.Value{}, errs.New(errs.NoExpr)
		}
		if exn.code == errs.UserException {
			return value.Int(exn.payload), nil
		}
		return value.Int(int64(exn.code)), nil
	}
	if op == opcode.EXNREF {
		return value.Value{}, errs.New(errs.NoExpr)
	}
	if op == opcode.NOP {
		return ip.resolveArg(ctx, lb, in.Arg1)
	}

	a1, rerr := ip.resolveArg(ctx, lb, in.Arg1)
	if rerr != nil {
		return value.Value{}, rerr
	}

	switch {
	case op >= opcode.IADD && op <= opcode.INEG:
		return evalIntArith(op, a1, ctx, lb, ip, in)
	case op >= opcode.IAND && op <= opcode.ISHR:
		return evalIntBitwise(op, a1, ctx, lb, ip, in)
	case op >= opcode.IEQ && op <= opcode.IGE:
		return evalIntCompare(op, a1, ctx, lb, ip, in)
	case op >= opcode.FADD && op <= opcode.FNEG:
		return evalFloatArith(op, a1, ctx, lb, ip, in)
	case op >= opcode.FEQ && op <= opcode.FGE:
		return evalFloatCompare(op, a1, ctx, lb, ip, in)
	case op == opcode.REQ || op == opcode.RNE:
		return evalRefCompare(op, a1, ctx, lb, ip, in)
	case op == opcode.ITOF:
		i, rerr := asInt(a1)
		if rerr != nil {
			return value.Value{}, rerr
		}
		return value.Float(float64(i)), nil
	case op == opcode.FTOI:
		f, rerr := asFloat(a1)
		if rerr != nil {
			return value.Value{}, rerr
		}
		return value.Int(int64(f)), nil
	case op >= opcode.RIA8NTH && op <= opcode.RTNTH:
		return evalNth(op, a1, ctx, lb, ip, in)
	case op >= opcode.RIA8LEN && op <= opcode.RTLEN:
		return evalLen(a1)
	case op >= opcode.RIA8CONCAT && op <= opcode.RRACONCAT:
		a2, rerr := ip.resolveArg(ctx, lb, in.Arg2)
		if rerr != nil {
			return value.Value{}, rerr
		}
		return evalConcat(op, a1, a2)
	case op == opcode.ISNUM:
		return boolInt(a1.IsNumber()), nil
	case op == opcode.ISREF:
		return boolInt(a1.Kind == value.KindRef), nil
	case op == opcode.ISLAZY:
		return boolInt(a1.IsLazy()), nil
	case op == opcode.ISUNIQUE:
		return boolInt(a1.Kind == value.KindRef && a1.Ref != nil && a1.Ref.Unique()), nil
	case op >= opcode.RUIA8FILL && op <= opcode.RUTFILLR:
		a2, rerr := ip.resolveArg(ctx, lb, in.Arg2)
		if rerr != nil {
			return value.Value{}, rerr
		}
		return evalFill(op, a1, a2)
	case op >= opcode.RUIA8NTH && op <= opcode.RUTNTH:
		a2, rerr := ip.resolveArg(ctx, lb, in.Arg2)
		if rerr != nil {
			return value.Value{}, rerr
		}
		return evalUniqueNth(op, a1, a2)
	case op >= opcode.RUIA8LEN && op <= opcode.RUTLEN:
		return evalLen(a1)
	case op == opcode.IFORCE || op == opcode.FFORCE || op == opcode.RFORCE:
		return ip.threadRuntime(ctx).Force(a1)
	}

	return value.Value{}, errs.New(errs.IncorrectInstr)
}

func evalIntArith(op opcode.Op, a1 value.Value, ctx *gc.ThreadContext, lb int, ip *Interp, in instruction) (value.Value, *errs.RuntimeError) {
	x, rerr := asInt(a1)
	if rerr != nil {
		return value.Value{}, rerr
	}
	if op == opcode.INEG {
		return value.Int(-x), nil
	}
	a2, rerr := ip.resolveArg(ctx, lb, in.Arg2)
	if rerr != nil {
		return value.Value{}, rerr
	}
	y, rerr := asInt(a2)
	if rerr != nil {
		return value.Value{}, rerr
	}
	switch op {
	case opcode.IADD:
		return value.Int(x + y), nil
	case opcode.ISUB:
		return value.Int(x - y), nil
	case opcode.IMUL:
		return value.Int(x * y), nil
	case opcode.IDIV:
		if y == 0 {
			return value.Value{}, errs.New(errs.DivByZero)
		}
		return value.Int(x / y), nil
	case opcode.IMOD:
		if y == 0 {
			return value.Value{}, errs.New(errs.DivByZero)
		}
		return value.Int(x % y), nil
	}
	return value.Value{}, errs.New(errs.IncorrectInstr)
}

func evalIntBitwise(op opcode.Op, a1 value.Value, ctx *gc.ThreadContext, lb int, ip *Interp, in instruction) (value.Value, *errs.RuntimeError) {
	x, rerr := asInt(a1)
	if rerr != nil {
		return value.Value{}, rerr
	}
	if op == opcode.INOT {
		return value.Int(^x), nil
	}
	a2, rerr := ip.resolveArg(ctx, lb, in.Arg2)
	if rerr != nil {
		return value.Value{}, rerr
	}
	y, rerr := asInt(a2)
	if rerr != nil {
		return value.Value{}, rerr
	}
	switch op {
	case opcode.IAND:
		return value.Int(x & y), nil
	case opcode.IOR:
		return value.Int(x | y), nil
	case opcode.IXOR:
		return value.Int(x ^ y), nil
	case opcode.ISHL:
		return value.Int(x << uint(y)), nil
	case opcode.ISHR:
		return value.Int(x >> uint(y)), nil
	}
	return value.Value{}, errs.New(errs.IncorrectInstr)
}

func evalIntCompare(op opcode.Op, a1 value.Value, ctx *gc.ThreadContext, lb int, ip *Interp, in instruction) (value.Value, *errs.RuntimeError) {
	x, rerr := asInt(a1)
	if rerr != nil {
		return value.Value{}, rerr
	}
	a2, rerr := ip.resolveArg(ctx, lb, in.Arg2)
	if rerr != nil {
		return value.Value{}, rerr
	}
	y, rerr := asInt(a2)
	if rerr != nil {
		return value.Value{}, rerr
	}
	switch op {
	case opcode.IEQ:
		return boolInt(x == y), nil
	case opcode.INE:
		return boolInt(x != y), nil
	case opcode.ILT:
		return boolInt(x < y), nil
	case opcode.ILE:
		return boolInt(x <= y), nil
	case opcode.IGT:
		return boolInt(x > y), nil
	case opcode.IGE:
		return boolInt(x >= y), nil
	}
	return value.Value{}, errs.New(errs.IncorrectInstr)
}

func evalFloatArith(op opcode.Op, a1 value.Value, ctx *gc.ThreadContext, lb int, ip *Interp, in instruction) (value.Value, *errs.RuntimeError) {
	x, rerr := asFloat(a1)
	if rerr != nil {
		return value.Value{}, rerr
	}
	if op == opcode.FNEG {
		return value.Float(-x), nil
	}
	a2, rerr := ip.resolveArg(ctx, lb, in.Arg2)
	if rerr != nil {
		return value.Value{}, rerr
	}
	y, rerr := asFloat(a2)
	if rerr != nil {
		return value.Value{}, rerr
	}
	switch op {
	case opcode.FADD:
		return value.Float(x + y), nil
	case opcode.FSUB:
		return value.Float(x - y), nil
	case opcode.FMUL:
		return value.Float(x * y), nil
	case opcode.FDIV:
		return value.Float(x / y), nil
	}
	return value.Value{}, errs.New(errs.IncorrectInstr)
}

func evalFloatCompare(op opcode.Op, a1 value.Value, ctx *gc.ThreadContext, lb int, ip *Interp, in instruction) (value.Value, *errs.RuntimeError) {
	x, rerr := asFloat(a1)
	if rerr != nil {
		return value.Value{}, rerr
	}
	a2, rerr := ip.resolveArg(ctx, lb, in.Arg2)
	if rerr != nil {
		return value.Value{}, rerr
	}
	y, rerr := asFloat(a2)
	if rerr != nil {
		return value.Value{}, rerr
	}
	switch op {
	case opcode.FEQ:
		return boolInt(x == y), nil
	case opcode.FNE:
		return boolInt(x != y), nil
	case opcode.FLT:
		return boolInt(x < y), nil
	case opcode.FLE:
		return boolInt(x <= y), nil
	case opcode.FGT:
		return boolInt(x > y), nil
	case opcode.FGE:
		return boolInt(x >= y), nil
	}
	return value.Value{}, errs.New(errs.IncorrectInstr)
}

// isContentAggregate reports whether t's object holds element/slot content
// that REQ/RNE must never compare instead of pointer identity.
func isContentAggregate(t value.ObjType) bool {
	switch t {
	case value.TypeIArray8, value.TypeIArray16, value.TypeIArray32, value.TypeIArray64,
		value.TypeSFArray, value.TypeDFArray, value.TypeRArray, value.TypeTuple:
		return true
	}
	return false
}

// evalRefCompare implements REQ/RNE: pointer identity only, never content
// equality. Comparing two array/tuple refs is rejected outright with
// INCORRECT_INSTR rather than silently falling back to identity, since a
// caller reaching for REQ/RNE on an aggregate almost certainly wanted
// content comparison.
func evalRefCompare(op opcode.Op, a1 value.Value, ctx *gc.ThreadContext, lb int, ip *Interp, in instruction) (value.Value, *errs.RuntimeError) {
	if a1.Kind != value.KindRef {
		return value.Value{}, errs.New(errs.IncorrectValue)
	}
	a2, rerr := ip.resolveArg(ctx, lb, in.Arg2)
	if rerr != nil {
		return value.Value{}, rerr
	}
	if a2.Kind != value.KindRef {
		return value.Value{}, errs.New(errs.IncorrectValue)
	}
	if (a1.Ref != nil && isContentAggregate(a1.Ref.Type)) || (a2.Ref != nil && isContentAggregate(a2.Ref.Type)) {
		return value.Value{}, errs.New(errs.IncorrectInstr)
	}
	eq := a1.Ref == a2.Ref
	if op == opcode.RNE {
		eq = !eq
	}
	return boolInt(eq), nil
}

// evalConstruct builds a fresh (non-unique) aggregate from the pending
// argument region: RIARRAY*/RSFARRAY/RDFARRAY gather int/float elements
// directly; RRARRAY and RTUPLE gather references, consuming and rejecting a
// live unique element the same way any other shared-container store would.
func (ip *Interp) evalConstruct(ctx *gc.ThreadContext, op opcode.Op) (value.Value, *errs.RuntimeError) {
	elems := popPendingArgs(ctx)
	rt := ip.threadRuntime(ctx)

	switch op {
	case opcode.RIARRAY8, opcode.RIARRAY16, opcode.RIARRAY32, opcode.RIARRAY64:
		width := map[opcode.Op]int{opcode.RIARRAY8: 8, opcode.RIARRAY16: 16, opcode.RIARRAY32: 32, opcode.RIARRAY64: 64}[op]
		data := make([]int64, len(elems))
		for i, e := range elems {
			v, rerr := asInt(e)
			if rerr != nil {
				return value.Value{}, rerr
			}
			data[i] = v
		}
		obj, rerr := rt.Allocate(func() *value.Object { return value.NewIArray(width, data) })
		if rerr != nil {
			return value.Value{}, rerr
		}
		return value.RefValue(obj), nil

	case opcode.RSFARRAY, opcode.RDFARRAY:
		data := make([]float64, len(elems))
		for i, e := range elems {
			v, rerr := asFloat(e)
			if rerr != nil {
				return value.Value{}, rerr
			}
			data[i] = v
		}
		build := func() *value.Object { return value.NewSFArray(data) }
		if op == opcode.RDFARRAY {
			build = func() *value.Object { return value.NewDFArray(data) }
		}
		obj, rerr := rt.Allocate(build)
		if rerr != nil {
			return value.Value{}, rerr
		}
		return value.RefValue(obj), nil

	case opcode.RRARRAY:
		for _, e := range elems {
			if rerr := value.CheckStoreIntoShared(e); rerr != nil {
				return value.Value{}, rerr
			}
		}
		obj, rerr := rt.Allocate(func() *value.Object { return value.NewRArray(elems) })
		if rerr != nil {
			return value.Value{}, rerr
		}
		return value.RefValue(obj), nil

	case opcode.RTUPLE:
		tags := make([]value.Kind, len(elems))
		for i, e := range elems {
			if rerr := value.CheckStoreIntoShared(e); rerr != nil {
				return value.Value{}, rerr
			}
			tags[i] = e.Kind
		}
		obj, rerr := rt.Allocate(func() *value.Object { return value.NewTuple(elems, tags) })
		if rerr != nil {
			return value.Value{}, rerr
		}
		return value.RefValue(obj), nil
	}
	return value.Value{}, errs.New(errs.IncorrectInstr)
}

func (ip *Interp) evalCall(ctx *gc.ThreadContext, funIndex int) (value.Value, *errs.RuntimeError) {
	args := popPendingArgs(ctx)
	return ip.invoke(ctx, funIndex, args)
}

func (ip *Interp) evalNativeCall(ctx *gc.ThreadContext, handlerIndex int) (value.Value, *errs.RuntimeError) {
	args := popPendingArgs(ctx)
	if ip.Native == nil {
		return value.Value{}, errs.New(errs.NoNativeFun)
	}
	return ip.Native.Call(handlerIndex, args, ip.threadRuntime(ctx))
}

func evalNth(op opcode.Op, a1 value.Value, ctx *gc.ThreadContext, lb int, ip *Interp, in instruction) (value.Value, *errs.RuntimeError) {
	a2, rerr := ip.resolveArg(ctx, lb, in.Arg2)
	if rerr != nil {
		return value.Value{}, rerr
	}
	idx, rerr := asInt(a2)
	if rerr != nil {
		return value.Value{}, rerr
	}
	if a1.Kind != value.KindRef || a1.Ref == nil {
		return value.Value{}, errs.New(errs.IncorrectValue)
	}
	o := a1.Ref
	i := int(idx)

	switch op {
	case opcode.RIA8NTH, opcode.RIA16NTH, opcode.RIA32NTH, opcode.RIA64NTH:
		if i < 0 || i >= len(o.Ints) {
			return value.Value{}, errs.New(errs.IndexOutOfBounds)
		}
		return value.Int(o.Ints[i]), nil
	case opcode.RSFANTH, opcode.RDFANTH:
		if i < 0 || i >= len(o.Floats) {
			return value.Value{}, errs.New(errs.IndexOutOfBounds)
		}
		return value.Float(o.Floats[i]), nil
	case opcode.RRANTH:
		if i < 0 || i >= len(o.Refs) {
			return value.Value{}, errs.New(errs.IndexOutOfBounds)
		}
		return o.Refs[i], nil
	case opcode.RTNTH:
		if i < 0 || i >= len(o.Refs) {
			return value.Value{}, errs.New(errs.IndexOutOfBounds)
		}
		return tupleElem(o, i), nil
	}
	return value.Value{}, errs.New(errs.IncorrectInstr)
}

func tupleElem(t *value.Object, i int) value.Value {
	v := t.Refs[i]
	v.Kind = t.ElemTags[i]
	return v
}

func evalLen(a1 value.Value) (value.Value, *errs.RuntimeError) {
	if a1.Kind != value.KindRef || a1.Ref == nil {
		return value.Value{}, errs.New(errs.IncorrectValue)
	}
	return value.Int(int64(a1.Ref.Length)), nil
}

func evalConcat(op opcode.Op, a1, a2 value.Value) (value.Value, *errs.RuntimeError) {
	if a1.Kind != value.KindRef || a1.Ref == nil || a2.Kind != value.KindRef || a2.Ref == nil {
		return value.Value{}, errs.New(errs.IncorrectValue)
	}
	o1, o2 := a1.Ref, a2.Ref
	switch op {
	case opcode.RIA8CONCAT, opcode.RIA16CONCAT, opcode.RIA32CONCAT, opcode.RIA64CONCAT:
		data := append(append([]int64{}, o1.Ints...), o2.Ints...)
		return value.RefValue(value.NewIArray(widthOf(o1.Type), data)), nil
	case opcode.RSFACONCAT, opcode.RDFACONCAT:
		data := append(append([]float64{}, o1.Floats...), o2.Floats...)
		if op == opcode.RSFACONCAT {
			return value.RefValue(value.NewSFArray(data)), nil
		}
		return value.RefValue(value.NewDFArray(data)), nil
	case opcode.RRACONCAT:
		for _, e := range o1.Refs {
			if rerr := value.CheckStoreIntoShared(e); rerr != nil {
				return value.Value{}, rerr
			}
		}
		for _, e := range o2.Refs {
			if rerr := value.CheckStoreIntoShared(e); rerr != nil {
				return value.Value{}, rerr
			}
		}
		data := append(append([]value.Value{}, o1.Refs...), o2.Refs...)
		return value.RefValue(value.NewRArray(data)), nil
	}
	return value.Value{}, errs.New(errs.IncorrectInstr)
}

func widthOf(t value.ObjType) int {
	switch t {
	case value.TypeIArray8:
		return 8
	case value.TypeIArray16:
		return 16
	case value.TypeIArray32:
		return 32
	default:
		return 64
	}
}

// evalFill implements the RU*FILL* family: a1 is the unique aggregate under
// construction, a2 the value to append as its next element. Each fill
// appends one element and sets the object's Length to the new element
// count; no capacity bound is checked.
func evalFill(op opcode.Op, a1, a2 value.Value) (value.Value, *errs.RuntimeError) {
	if a1.Kind != value.KindRef || a1.Ref == nil || !a1.Ref.Unique() {
		return value.Value{}, errs.New(errs.IncorrectValue)
	}
	o := a1.Ref
	switch op {
	case opcode.RUIA8FILL, opcode.RUIA16FILL, opcode.RUIA32FILL, opcode.RUIA64FILL:
		v, rerr := asInt(a2)
		if rerr != nil {
			return value.Value{}, rerr
		}
		o.Ints = append(o.Ints, v)
		o.Length = len(o.Ints)
	case opcode.RUSFAFILL, opcode.RUDFAFILL:
		v, rerr := asFloat(a2)
		if rerr != nil {
			return value.Value{}, rerr
		}
		o.Floats = append(o.Floats, v)
		o.Length = len(o.Floats)
	case opcode.RURAFILL:
		if rerr := value.CheckStoreIntoShared(a2); rerr != nil {
			return value.Value{}, rerr
		}
		o.Refs = append(o.Refs, a2)
		o.Length = len(o.Refs)
	case opcode.RUTFILLI, opcode.RUTFILLF:
		o.Refs = append(o.Refs, a2)
		o.ElemTags = append(o.ElemTags, a2.Kind)
		o.Length = len(o.Refs)
	case opcode.RUTFILLR:
		if a2.Kind == value.KindRef && a2.Ref != nil && a2.Ref.Unique() {
			return value.Value{}, errs.New(errs.AgainUsedUnique)
		}
		o.Refs = append(o.Refs, a2)
		o.ElemTags = append(o.ElemTags, a2.Kind)
		o.Length = len(o.Refs)
	default:
		return value.Value{}, errs.New(errs.IncorrectInstr)
	}
	return a1, nil
}

// evalUniqueNth reads and consumes the addressed slot of a unique aggregate,
// leaving a hole the matching *REPLACE must fill. The hole is represented by
// an out-of-band sentinel the *REPLACE family recognizes: Ints/Floats slots
// are left in place (there is nothing to "cancel" for a plain number) while
// Refs slots are canceled exactly as a tuple slot would be.
func evalUniqueNth(op opcode.Op, a1, a2 value.Value) (value.Value, *errs.RuntimeError) {
	if a1.Kind != value.KindRef || a1.Ref == nil {
		return value.Value{}, errs.New(errs.IncorrectValue)
	}
	idx, rerr := asInt(a2)
	if rerr != nil {
		return value.Value{}, rerr
	}
	o := a1.Ref
	i := int(idx)
	switch op {
	case opcode.RUIA8NTH, opcode.RUIA16NTH, opcode.RUIA32NTH, opcode.RUIA64NTH:
		if i < 0 || i >= len(o.Ints) {
			return value.Value{}, errs.New(errs.IndexOutOfBounds)
		}
		return value.Int(o.Ints[i]), nil
	case opcode.RUSFANTH, opcode.RUDFANTH:
		if i < 0 || i >= len(o.Floats) {
			return value.Value{}, errs.New(errs.IndexOutOfBounds)
		}
		return value.Float(o.Floats[i]), nil
	case opcode.RURANTH:
		if i < 0 || i >= len(o.Refs) {
			return value.Value{}, errs.New(errs.IndexOutOfBounds)
		}
		v := o.Refs[i]
		if v.Kind == value.KindCanceledRef {
			return value.Value{}, errs.New(errs.AgainUsedUnique)
		}
		o.Refs[i] = v.Canceled()
		return v, nil
	case opcode.RUTNTH:
		if i < 0 || i >= len(o.Refs) {
			return value.Value{}, errs.New(errs.IndexOutOfBounds)
		}
		elem := tupleElem(o, i)
		if rerr := value.CancelTupleSlot(o, i); rerr != nil {
			return value.Value{}, rerr
		}
		return elem, nil
	}
	return value.Value{}, errs.New(errs.IncorrectInstr)
}

// evalReplace fills the hole a matching *NTH left in a unique aggregate.
// args is [aggregate, index, value], gathered from the pending-argument
// region by the caller.
func evalReplace(op opcode.Op, args []value.Value) (value.Value, *errs.RuntimeError) {
	if len(args) != 3 {
		return value.Value{}, errs.New(errs.IncorrectArgCount)
	}
	a1, a2, a3 := args[0], args[1], args[2]
	if a1.Kind != value.KindRef || a1.Ref == nil {
		return value.Value{}, errs.New(errs.IncorrectValue)
	}
	idx, rerr := asInt(a2)
	if rerr != nil {
		return value.Value{}, rerr
	}
	o := a1.Ref
	i := int(idx)

	switch op {
	case opcode.RUIA8REPLACE, opcode.RUIA16REPLACE, opcode.RUIA32REPLACE, opcode.RUIA64REPLACE:
		v, rerr := asInt(a3)
		if rerr != nil {
			return value.Value{}, rerr
		}
		if i < 0 || i >= len(o.Ints) {
			return value.Value{}, errs.New(errs.IndexOutOfBounds)
		}
		o.Ints[i] = v
	case opcode.RUSFAREPLACE, opcode.RUDFAREPLACE:
		v, rerr := asFloat(a3)
		if rerr != nil {
			return value.Value{}, rerr
		}
		if i < 0 || i >= len(o.Floats) {
			return value.Value{}, errs.New(errs.IndexOutOfBounds)
		}
		o.Floats[i] = v
	case opcode.RURAREPLACE:
		if i < 0 || i >= len(o.Refs) {
			return value.Value{}, errs.New(errs.IndexOutOfBounds)
		}
		if o.Refs[i].Kind != value.KindCanceledRef {
			return value.Value{}, errs.New(errs.AgainUsedUnique)
		}
		if rerr := value.CheckStoreIntoShared(a3); rerr != nil {
			return value.Value{}, rerr
		}
		o.Refs[i] = a3
	case opcode.RUTREPLACE:
		if i < 0 || i >= len(o.Refs) {
			return value.Value{}, errs.New(errs.IndexOutOfBounds)
		}
		if o.ElemTags[i] != value.KindCanceledRef {
			return value.Value{}, errs.New(errs.AgainUsedUnique)
		}
		if rerr := value.StoreTupleSlot(o, i, a3, false); rerr != nil {
			return value.Value{}, rerr
		}
	default:
		return value.Value{}, errs.New(errs.IncorrectInstr)
	}
	return a1, nil
}
