// Copyright 2024 The letin Authors
// This file is part of letin.

package interp

import (
	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/gc"
	"github.com/letin-run/letin/internal/opcode"
	"github.com/letin-run/letin/internal/value"
)

// A running frame occupies ctx.Stack[abp : sec) as: the function's arguments
// (ctx.Ac of them, starting at ctx.Abp), followed immediately by its bound
// locals (LocalVarCount of them, growing at the current ctx.Sec). Pending
// call/constructor arguments accumulated by ARG sit directly above the
// locals, at [Abp2, Abp2+Ac2). When a call fires, popPendingArgs copies
// them out and invoke pushes that copy as the callee's argument region.

func localBase(ctx *gc.ThreadContext) int { return ctx.Abp + ctx.Ac }

// resolveArg reads one instruction argument's current value. ArgImmediate
// indexes the environment's constant pool when in range (used for floats and
// literal references), falling back to the raw word as a small int literal
// otherwise (the common case: integer constants and function/native-handler
// indices encoded directly in the word).
func (ip *Interp) resolveArg(ctx *gc.ThreadContext, lb int, a opcode.Arg) (value.Value, *errs.RuntimeError) {
	switch a.Type {
	case opcode.ArgLocal:
		i := lb + int(a.Value)
		if i < 0 || i >= ctx.Sec || i >= len(ctx.Stack) {
			return value.Value{}, errs.New(errs.NoLocalVar)
		}
		return ctx.Stack[i], nil
	case opcode.ArgArg:
		i := ctx.Abp + int(a.Value)
		if int(a.Value) < 0 || int(a.Value) >= ctx.Ac {
			return value.Value{}, errs.New(errs.NoArg)
		}
		return ctx.Stack[i], nil
	case opcode.ArgGlobal:
		idx := int(a.Value)
		if idx < 0 || idx >= len(ip.Env.Vars) {
			return value.Value{}, errs.New(errs.NoGlobalVar)
		}
		return ip.Env.Var(idx), nil
	case opcode.ArgImmediate:
		idx := int(a.Value)
		if idx >= 0 && idx < len(ip.Env.Consts) {
			return ip.Env.Consts[idx], nil
		}
		return value.Int(int64(a.Value)), nil
	default:
		return value.Value{}, errs.New(errs.IncorrectInstr)
	}
}

// pushLocal appends v as the next bound local of the current frame.
func pushLocal(ctx *gc.ThreadContext, v value.Value) *errs.RuntimeError {
	if ctx.Sec >= len(ctx.Stack) {
		return errs.New(errs.StackOverflow)
	}
	ctx.Stack[ctx.Sec] = v
	ctx.Sec++
	return nil
}

// pushPendingArg appends v to the pending call/constructor argument region,
// opening the region at the current stack top if this is the first pending
// value since the last call/constructor consumed it.
func pushPendingArg(ctx *gc.ThreadContext, v value.Value) *errs.RuntimeError {
	if ctx.Ac2 == 0 {
		ctx.Abp2 = ctx.Sec
	}
	if ctx.Sec >= len(ctx.Stack) {
		return errs.New(errs.StackOverflow)
	}
	ctx.Stack[ctx.Sec] = v
	ctx.Sec++
	ctx.Ac2++
	return nil
}

// popPendingArgs copies out the accumulated pending-argument region and
// reclaims its stack space, leaving ctx.Sec at the region's base.
func popPendingArgs(ctx *gc.ThreadContext) []value.Value {
	args := make([]value.Value, ctx.Ac2)
	copy(args, ctx.Stack[ctx.Abp2:ctx.Abp2+ctx.Ac2])
	ctx.Sec = ctx.Abp2
	ctx.Abp2, ctx.Ac2 = 0, 0
	return args
}
