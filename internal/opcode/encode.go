// Copyright 2024 The letin Authors
// This file is part of letin.

package opcode

import "fmt"

// Word is a raw 32-bit control word: {instr:8, op:8, arg1_type:4,
// arg2_type:4, local_var_count-2:8}, per §4.2 "Instruction encoding". Each
// Instruction occupies three consecutive Words in the code stream: the
// control word followed by arg1 and arg2, each a plain 32-bit value (an
// index or an immediate, per its ArgType).
type Word uint32

// minLocalVarCount is the bias subtracted before storing local_var_count in
// the 8-bit subfield: LETTUPLE's range (§4.2 "Tie-breaks") starts at 2, so
// storing count-2 lets the 8-bit field reach 257 instead of topping out at
// 255 for a count that is never less than 2. A plain LET/RET/etc. always
// encodes local_var_count as 2 (i.e. stored 0) since it binds at most one
// local and the field is otherwise unused.
const minLocalVarCount = 2

// EncodeControl packs a control word from its five subfields.
func EncodeControl(instr Instr, op Op, arg1Type, arg2Type ArgType, localVarCount int) (Word, error) {
	if instr != LETTUPLE {
		// Only LETTUPLE reads the count; every other instruction stores 0.
		localVarCount = minLocalVarCount
	}
	if localVarCount < minLocalVarCount || localVarCount > minLocalVarCount+0xFF {
		return 0, fmt.Errorf("opcode: local_var_count %d out of encodable range", localVarCount)
	}
	stored := uint32(localVarCount - minLocalVarCount)
	w := uint32(instr) |
		uint32(op)<<8 |
		uint32(arg1Type&0xF)<<16 |
		uint32(arg2Type&0xF)<<20 |
		stored<<24
	return Word(w), nil
}

// DecodeControl unpacks a control word into its five subfields.
func DecodeControl(w Word) (instr Instr, op Op, arg1Type, arg2Type ArgType, localVarCount int) {
	u := uint32(w)
	instr = Instr(u & 0xFF)
	op = Op(u >> 8 & 0xFF)
	arg1Type = ArgType(u >> 16 & 0xF)
	arg2Type = ArgType(u >> 20 & 0xF)
	localVarCount = int(u>>24&0xFF) + minLocalVarCount
	return
}

// Encode packs an Instruction into its three-Word on-stream form.
func Encode(in Instruction) ([3]Word, error) {
	ctrl, err := EncodeControl(in.Instr, in.Op, in.Arg1.Type, in.Arg2.Type, in.LocalVarCount)
	if err != nil {
		return [3]Word{}, err
	}
	return [3]Word{ctrl, Word(uint32(in.Arg1.Value)), Word(uint32(in.Arg2.Value))}, nil
}

// Decode unpacks the three-Word on-stream form into an Instruction.
func Decode(words [3]Word) Instruction {
	instr, op, t1, t2, lvc := DecodeControl(words[0])
	return Instruction{
		Instr:         instr,
		Op:            op,
		LocalVarCount: lvc,
		Arg1:          Arg{Type: t1, Value: int32(words[1])},
		Arg2:          Arg{Type: t2, Value: int32(words[2])},
	}
}
