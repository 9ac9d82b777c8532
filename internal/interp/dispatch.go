// Copyright 2024 The letin Authors
// This file is part of letin.

package interp

import (
	"github.com/letin-run/letin/internal/env"
	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/eval"
	"github.com/letin-run/letin/internal/gc"
	"github.com/letin-run/letin/internal/opcode"
	"github.com/letin-run/letin/internal/value"
)

// caughtException is the exception state visible to ERRCODE/EXNREF while a
// catch handler runs; it is scoped to one function body's dispatch loop, not
// carried in ThreadContext, since introspection only makes sense within the
// handler that just caught it. THROW carries only an int payload (the op's
// declared result, per the instruction set's own description), so there is
// never a live user-exception reference for EXNREF to hand back; it exists
// for symmetry with a richer THROW the bytecode format does not define, and
// always reports NO_EXPR.
type caughtException struct {
	code    errs.Code
	payload int64
}

// tryScope records one active TRY: where its catch handler starts and how
// far to roll back the local-variable count on unwind.
type tryScope struct {
	catchIP       int
	localVarCount int
}

// Invoke runs funIndex with args on a caller-chosen thread context,
// implementing eval.Invoker for callers outside the interpreter (e.g. the
// letin package's Start entry point).
func (ip *Interp) Invoke(ctx *gc.ThreadContext, funIndex int, args []value.Value) (value.Value, *errs.RuntimeError) {
	return ip.invoke(ctx, funIndex, args)
}

func (ip *Interp) invoke(ctx *gc.ThreadContext, funIndex int, args []value.Value) (value.Value, *errs.RuntimeError) {
	if funIndex < 0 || funIndex >= len(ip.Env.Functions) {
		return value.Value{}, errs.New(errs.IncorrectFun)
	}
	fn := ip.Env.Functions[funIndex]
	if len(args) != fn.ArgCount {
		return value.Value{}, errs.New(errs.IncorrectArgCount)
	}

	info := ip.Env.FunInfoFor(funIndex)
	strat := ip.strategyFor(info)
	call := eval.Call{FunIndex: funIndex, ResultKind: info.ResultKind, Args: args}
	rt := ip.threadRuntime(ctx)

	if handled, result, rerr := strat.PreEnter(call, rt); rerr != nil {
		return value.Value{}, rerr
	} else if handled {
		return result, nil
	}

	savedAbp, savedAc := ctx.Abp, ctx.Ac
	savedLVC, savedIP := ctx.LocalVarCount, ctx.IP
	savedAbp2, savedAc2 := ctx.Abp2, ctx.Ac2

	ctx.Abp = ctx.Sec
	for _, a := range args {
		if rerr := pushLocal(ctx, a); rerr != nil {
			return value.Value{}, rerr
		}
	}
	ctx.Ac = len(args)
	ctx.LocalVarCount = 0
	ctx.Abp2, ctx.Ac2 = 0, 0
	ctx.IP = fn.CodeOffset

	result, rerr := ip.runFunction(ctx, fn)

	ctx.Sec = ctx.Abp
	ctx.Abp, ctx.Ac = savedAbp, savedAc
	ctx.LocalVarCount, ctx.IP = savedLVC, savedIP
	ctx.Abp2, ctx.Ac2 = savedAbp2, savedAc2

	if rerr != nil {
		return value.Value{}, rerr
	}
	return strat.PostLeave(call, result, rt)
}

// runFunction dispatches instructions for one invocation of fn until a RET
// is reached (returning its value) or an unhandled error/exception
// propagates past every try-scope in this body. RETRY restarts the loop in
// place (the same Go stack frame, no recursion) rather than calling invoke
// again, giving tail calls of the current function constant stack growth.
func (ip *Interp) runFunction(ctx *gc.ThreadContext, fn env.Function) (value.Value, *errs.RuntimeError) {
	var tryStack []tryScope
	var exn *caughtException
	pendingLocals := 0

	for {
		ctx.Safepoint()

		if ctx.IP < fn.CodeOffset || ctx.IP >= fn.CodeOffset+fn.InstrCount {
			return value.Value{}, errs.New(errs.NoInstr)
		}
		in := ip.Env.Code[ctx.IP]
		lb := localBase(ctx)

		result, retry, handled, rerr := ip.step(ctx, lb, in, &pendingLocals, &tryStack, exn)
		if rerr != nil {
			if scope, ok := popTry(&tryStack, rerr); ok {
				ctx.LocalVarCount = scope.localVarCount
				pendingLocals = 0
				exn = &caughtException{code: rerr.Code, payload: rerr.Payload}
				ctx.IP = scope.catchIP
				continue
			}
			return value.Value{}, rerr
		}
		if handled {
			return result, nil
		}
		if retry {
			pendingLocals = 0
			tryStack = tryStack[:0]
			exn = nil
			ctx.IP = fn.CodeOffset
		}
	}
}

func popTry(tryStack *[]tryScope, _ *errs.RuntimeError) (tryScope, bool) {
	if len(*tryStack) == 0 {
		return tryScope{}, false
	}
	n := len(*tryStack)
	scope := (*tryStack)[n-1]
	*tryStack = (*tryStack)[:n-1]
	return scope, true
}

// step executes exactly one instruction. Its results are: the function's
// return value (meaningful only when handled is true), whether this was
// RETRY (caller restarts the loop at the function's entry), whether it was
// RET (caller should return result), and any error (which may be caught by
// an enclosing try-scope in runFunction rather than propagated further).
func (ip *Interp) step(ctx *gc.ThreadContext, lb int, in opcode.Instruction, pendingLocals *int, tryStack *[]tryScope, exn *caughtException) (value.Value, bool, bool, *errs.RuntimeError) {
	switch in.Instr {
	case opcode.LET:
		v, rerr := ip.evalOp(ctx, lb, in, exn)
		if rerr != nil {
			return value.Value{}, false, false, rerr
		}
		if rerr := pushLocal(ctx, v); rerr != nil {
			return value.Value{}, false, false, rerr
		}
		*pendingLocals++
		ctx.IP++
		return value.Value{}, false, false, nil

	case opcode.LETTUPLE:
		v, rerr := ip.resolveArg(ctx, lb, in.Arg1)
		if rerr != nil {
			return value.Value{}, false, false, rerr
		}
		if v.Kind != value.KindRef || v.Ref == nil || v.Ref.Type != value.TypeTuple {
			return value.Value{}, false, false, errs.New(errs.IncorrectValue)
		}
		t := v.Ref
		if in.LocalVarCount != len(t.Refs) {
			return value.Value{}, false, false, errs.New(errs.IncorrectObject)
		}
		for i := 0; i < in.LocalVarCount; i++ {
			elem := tupleElem(t, i)
			if elem.Kind == value.KindCanceledRef {
				return value.Value{}, false, false, errs.New(errs.AgainUsedUnique)
			}
			if elem.Kind == value.KindRef && elem.Ref != nil && elem.Ref.Unique() {
				if rerr := value.CancelTupleSlot(t, i); rerr != nil {
					return value.Value{}, false, false, rerr
				}
			}
			if rerr := pushLocal(ctx, elem); rerr != nil {
				return value.Value{}, false, false, rerr
			}
			*pendingLocals++
		}
		ctx.IP++
		return value.Value{}, false, false, nil

	case opcode.IN:
		ctx.LocalVarCount += *pendingLocals
		*pendingLocals = 0
		ctx.IP++
		return value.Value{}, false, false, nil

	case opcode.RET:
		v, rerr := ip.evalOp(ctx, lb, in, exn)
		if rerr != nil {
			return value.Value{}, false, false, rerr
		}
		ctx.Rv = v
		return v, false, true, nil

	case opcode.ARG:
		v, rerr := ip.evalOp(ctx, lb, in, exn)
		if rerr != nil {
			return value.Value{}, false, false, rerr
		}
		if rerr := pushPendingArg(ctx, v); rerr != nil {
			return value.Value{}, false, false, rerr
		}
		ctx.IP++
		return value.Value{}, false, false, nil

	case opcode.JC:
		cond, rerr := ip.resolveArg(ctx, lb, in.Arg1)
		if rerr != nil {
			return value.Value{}, false, false, rerr
		}
		nz, rerr := asInt(cond)
		if rerr != nil {
			return value.Value{}, false, false, rerr
		}
		if nz != 0 {
			ctx.IP += int(in.Arg2.Value)
		} else {
			ctx.IP++
		}
		return value.Value{}, false, false, nil

	case opcode.JUMP:
		ctx.IP += int(in.Arg1.Value)
		return value.Value{}, false, false, nil

	case opcode.TRY:
		*tryStack = append(*tryStack, tryScope{
			catchIP:       ctx.IP + int(in.Arg1.Value),
			localVarCount: ctx.LocalVarCount,
		})
		ctx.IP++
		return value.Value{}, false, false, nil

	case opcode.THROW:
		v, rerr := ip.evalOp(ctx, lb, in, exn)
		if rerr != nil {
			return value.Value{}, false, false, rerr
		}
		payload, rerr := asInt(v)
		if rerr != nil {
			return value.Value{}, false, false, rerr
		}
		return value.Value{}, false, false, errs.Throw(payload)

	case opcode.RETRY:
		args := popPendingArgs(ctx)
		copy(ctx.Stack[ctx.Abp:ctx.Abp+len(args)], args)
		ctx.Sec = ctx.Abp + len(args)
		ctx.Ac = len(args)
		ctx.LocalVarCount = 0
		return value.Value{}, true, false, nil
	}
	return value.Value{}, false, false, errs.New(errs.IncorrectInstr)
}
