// Copyright 2024 The letin Authors
// This file is part of letin.

// Package opcode defines the letin bytecode instruction set: the top-level
// instruction kinds (§4.2 "Instruction set"), the ~120 primitive operations
// selected by an instruction's op subfield, the argument-type tags, and the
// 32-bit instruction encoding. The shapes mirror probe-lang's vm.Opcode
// (uint8 enum + name/operand-count table + String()), generalized to the
// two-level instr/op structure the stack-register hybrid interpreter needs.
package opcode

import "fmt"

// Instr is the top-level instruction selector (the "instr" field of the
// 32-bit word).
type Instr uint8

const (
	// LET binds the result of evaluating op to a new local variable; the
	// local is not visible to subsequent instructions until IN seals it.
	LET Instr = iota
	// IN seals the current let-block: its bound locals become visible.
	IN
	// RET returns the result of op to the caller.
	RET
	// JC is a conditional relative jump: branch when arg1 is nonzero.
	JC
	// JUMP is an unconditional relative jump.
	JUMP
	// ARG pushes the result of op onto the pending-argument region.
	ARG
	// RETRY is a tail call of the current function using the currently
	// pushed arguments: identical to a call except no new frame is pushed.
	RETRY
	// LETTUPLE destructures a tuple, binding LocalVarCount locals.
	LETTUPLE
	// THROW raises an exception; op's result (as an int) is the payload.
	THROW
	// TRY marks the start of a try-scope that catches system errors and
	// user THROWs raised while it is the innermost active scope.
	TRY

	instrCount
)

func (i Instr) String() string {
	switch i {
	case LET:
		return "LET"
	case IN:
		return "IN"
	case RET:
		return "RET"
	case JC:
		return "JC"
	case JUMP:
		return "JUMP"
	case ARG:
		return "ARG"
	case RETRY:
		return "RETRY"
	case LETTUPLE:
		return "LETTUPLE"
	case THROW:
		return "THROW"
	case TRY:
		return "TRY"
	default:
		return fmt.Sprintf("instr(%d)", uint8(i))
	}
}

// ArgType tags how an instruction argument word is to be interpreted, per
// §4.2 "Argument types".
type ArgType uint8

const (
	// ArgLocal indexes a local variable bound in the current frame.
	ArgLocal ArgType = iota
	// ArgArg indexes an argument passed to the current function.
	ArgArg
	// ArgImmediate is a literal value carried directly in the argument word
	// (an int, or an index into the module's constant data for floats/refs).
	ArgImmediate
	// ArgGlobal indexes the environment's global-variable table.
	ArgGlobal
)

func (t ArgType) String() string {
	switch t {
	case ArgLocal:
		return "local"
	case ArgArg:
		return "arg"
	case ArgImmediate:
		return "imm"
	case ArgGlobal:
		return "global"
	default:
		return fmt.Sprintf("argtype(%d)", uint8(t))
	}
}

// Arg is one decoded instruction argument: a type tag plus its raw word.
// Interpreting Value depends on Type (an index for Local/Arg/Global, a
// literal or constant-pool index for Immediate).
type Arg struct {
	Type  ArgType
	Value int32
}

// Instruction is a single decoded bytecode instruction: the 32-bit control
// word (§4.2 "Instruction encoding") plus its two 32-bit argument slots.
type Instruction struct {
	Instr         Instr
	Op            Op
	LocalVarCount int // decoded local_var_count (already +2'd back from storage)
	Arg1          Arg
	Arg2          Arg
}
