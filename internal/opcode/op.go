// Copyright 2024 The letin Authors
// This file is part of letin.

package opcode

import "fmt"

// Op selects one of the ~120 primitive operations an instruction's "op"
// subfield may name (§4.2 "Instruction set"). Every Op takes its operands
// from Instruction.Arg1/Arg2 (unused slots are ignored) and produces a
// single result that the enclosing LET/RET/ARG/JC/THROW instruction
// consumes.
type Op uint16

const (
	// ---- Integer arithmetic (wraps mod 2^64, two's complement) -----------
	IADD Op = iota
	ISUB
	IMUL
	IDIV // DIV_BY_ZERO on zero divisor
	IMOD // DIV_BY_ZERO on zero divisor
	INEG

	// ---- Integer bitwise ---------------------------------------------------
	IAND
	IOR
	IXOR
	INOT
	ISHL
	ISHR

	// ---- Integer comparison (result is 0 or 1) -----------------------------
	IEQ
	INE
	ILT
	ILE
	IGT
	IGE

	// ---- Float arithmetic (IEEE 754; div-by-zero yields inf/NaN, never a
	// runtime error) ---------------------------------------------------------
	FADD
	FSUB
	FMUL
	FDIV
	FNEG

	// ---- Float comparison ---------------------------------------------------
	FEQ
	FNE
	FLT
	FLE
	FGT
	FGE

	// ---- Reference identity (REQ/RNE compare pointer identity only; mixing
	// with content comparison is INCORRECT_INSTR) ---------------------------
	REQ
	RNE

	// ---- Conversion ---------------------------------------------------------
	ITOF
	FTOI

	// ---- Array / tuple constructors -----------------------------------------
	RIARRAY8
	RIARRAY16
	RIARRAY32
	RIARRAY64
	RSFARRAY
	RDFARRAY
	RRARRAY
	RTUPLE

	// ---- Indexing (nth element, 0-based; out of range is
	// INDEX_OUT_OF_BOUNDS) -----------------------------------------------------
	RIA8NTH
	RIA16NTH
	RIA32NTH
	RIA64NTH
	RSFANTH
	RDFANTH
	RRANTH
	RTNTH

	// ---- Length --------------------------------------------------------------
	RIA8LEN
	RIA16LEN
	RIA32LEN
	RIA64LEN
	RSFALEN
	RDFALEN
	RRALEN
	RTLEN

	// ---- Concatenation ---------------------------------------------------------
	RIA8CONCAT
	RIA16CONCAT
	RIA32CONCAT
	RIA64CONCAT
	RSFACONCAT
	RDFACONCAT
	RRACONCAT

	// ---- Type query -------------------------------------------------------------
	ISNUM
	ISREF
	ISLAZY
	ISUNIQUE

	// ---- Function call, by declared result value-type ---------------------------
	ICALL
	FCALL
	RCALL

	// ---- Native function call, by declared result value-type ---------------------
	INCALL
	FNCALL
	RNCALL

	// ---- Unique-object array/tuple fill (write-once initialization of a
	// freshly allocated unique aggregate) -------------------------------------------
	RUIA8FILL
	RUIA16FILL
	RUIA32FILL
	RUIA64FILL
	RUSFAFILL
	RUDFAFILL
	RURAFILL
	RUTFILLI
	RUTFILLF
	RUTFILLR // refuses a unique fill value into a shared tuple: AGAIN_USED_UNIQUE

	// ---- Unique-object indexed read (consumes the addressed slot, leaving a
	// hole the matching *REPLACE must fill before the aggregate is usable
	// again) ---------------------------------------------------------------------
	RUIA8NTH
	RUIA16NTH
	RUIA32NTH
	RUIA64NTH
	RUSFANTH
	RUDFANTH
	RURANTH
	RUTNTH

	// ---- Unique-object indexed replace (fills the hole left by the matching
	// *NTH) -------------------------------------------------------------------------
	RUIA8REPLACE
	RUIA16REPLACE
	RUIA32REPLACE
	RUIA64REPLACE
	RUSFAREPLACE
	RUDFAREPLACE
	RURAREPLACE
	RUTREPLACE

	// ---- Unique-object length (read-only; does not consume) ------------------------
	RUIA8LEN
	RUIA16LEN
	RUIA32LEN
	RUIA64LEN
	RUSFALEN
	RUDFALEN
	RURALEN
	RUTLEN

	// ---- Forcing (walks a lazy_ref/locked_lazy_ref to its underlying value;
	// §4.3) ---------------------------------------------------------------------------
	IFORCE
	FFORCE
	RFORCE

	// ---- Exception introspection, read within an active try-catch -------------------
	ERRCODE // the caught system/THROW error code
	EXNREF  // always fails with NO_EXPR: THROW carries only an int payload, never a reference

	// ---- Miscellaneous ---------------------------------------------------------------
	NOP

	opCount
)

// opNames names each Op for disassembly and error messages.
var opNames = [opCount]string{
	IADD: "IADD", ISUB: "ISUB", IMUL: "IMUL", IDIV: "IDIV", IMOD: "IMOD", INEG: "INEG",
	IAND: "IAND", IOR: "IOR", IXOR: "IXOR", INOT: "INOT", ISHL: "ISHL", ISHR: "ISHR",
	IEQ: "IEQ", INE: "INE", ILT: "ILT", ILE: "ILE", IGT: "IGT", IGE: "IGE",
	FADD: "FADD", FSUB: "FSUB", FMUL: "FMUL", FDIV: "FDIV", FNEG: "FNEG",
	FEQ: "FEQ", FNE: "FNE", FLT: "FLT", FLE: "FLE", FGT: "FGT", FGE: "FGE",
	REQ: "REQ", RNE: "RNE",
	ITOF: "ITOF", FTOI: "FTOI",
	RIARRAY8: "RIARRAY8", RIARRAY16: "RIARRAY16", RIARRAY32: "RIARRAY32", RIARRAY64: "RIARRAY64",
	RSFARRAY: "RSFARRAY", RDFARRAY: "RDFARRAY", RRARRAY: "RRARRAY", RTUPLE: "RTUPLE",
	RIA8NTH: "RIA8NTH", RIA16NTH: "RIA16NTH", RIA32NTH: "RIA32NTH", RIA64NTH: "RIA64NTH",
	RSFANTH: "RSFANTH", RDFANTH: "RDFANTH", RRANTH: "RRANTH", RTNTH: "RTNTH",
	RIA8LEN: "RIA8LEN", RIA16LEN: "RIA16LEN", RIA32LEN: "RIA32LEN", RIA64LEN: "RIA64LEN",
	RSFALEN: "RSFALEN", RDFALEN: "RDFALEN", RRALEN: "RRALEN", RTLEN: "RTLEN",
	RIA8CONCAT: "RIA8CONCAT", RIA16CONCAT: "RIA16CONCAT", RIA32CONCAT: "RIA32CONCAT", RIA64CONCAT: "RIA64CONCAT",
	RSFACONCAT: "RSFACONCAT", RDFACONCAT: "RDFACONCAT", RRACONCAT: "RRACONCAT",
	ISNUM: "ISNUM", ISREF: "ISREF", ISLAZY: "ISLAZY", ISUNIQUE: "ISUNIQUE",
	ICALL: "ICALL", FCALL: "FCALL", RCALL: "RCALL",
	INCALL: "INCALL", FNCALL: "FNCALL", RNCALL: "RNCALL",
	RUIA8FILL: "RUIA8FILL", RUIA16FILL: "RUIA16FILL", RUIA32FILL: "RUIA32FILL", RUIA64FILL: "RUIA64FILL",
	RUSFAFILL: "RUSFAFILL", RUDFAFILL: "RUDFAFILL", RURAFILL: "RURAFILL",
	RUTFILLI: "RUTFILLI", RUTFILLF: "RUTFILLF", RUTFILLR: "RUTFILLR",
	RUIA8NTH: "RUIA8NTH", RUIA16NTH: "RUIA16NTH", RUIA32NTH: "RUIA32NTH", RUIA64NTH: "RUIA64NTH",
	RUSFANTH: "RUSFANTH", RUDFANTH: "RUDFANTH", RURANTH: "RURANTH", RUTNTH: "RUTNTH",
	RUIA8REPLACE: "RUIA8REPLACE", RUIA16REPLACE: "RUIA16REPLACE", RUIA32REPLACE: "RUIA32REPLACE", RUIA64REPLACE: "RUIA64REPLACE",
	RUSFAREPLACE: "RUSFAREPLACE", RUDFAREPLACE: "RUDFAREPLACE", RURAREPLACE: "RURAREPLACE", RUTREPLACE: "RUTREPLACE",
	RUIA8LEN: "RUIA8LEN", RUIA16LEN: "RUIA16LEN", RUIA32LEN: "RUIA32LEN", RUIA64LEN: "RUIA64LEN",
	RUSFALEN: "RUSFALEN", RUDFALEN: "RUDFALEN", RURALEN: "RURALEN", RUTLEN: "RUTLEN",
	IFORCE: "IFORCE", FFORCE: "FFORCE", RFORCE: "RFORCE",
	ERRCODE: "ERRCODE", EXNREF: "EXNREF",
	NOP: "NOP",
}

func (op Op) String() string {
	if int(op) >= len(opNames) || opNames[op] == "" {
		return fmt.Sprintf("op(%d)", uint16(op))
	}
	return opNames[op]
}

// Count reports the total number of defined ops, for table-bounds checks by
// package interp.
func Count() int { return int(opCount) }
