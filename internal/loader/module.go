// Copyright 2024 The letin Authors
// This file is part of letin.

// Package loader parses the on-disk module format (§4.5, §6 "Module file")
// and links one or more parsed modules into a live env.Environment: a
// two-pass operation that appends each module's tables at its own base
// offset, builds a combined symbol map, then rewrites every relocation to
// its final, post-concatenation index.
package loader

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/letin-run/letin/internal/env"
	"github.com/letin-run/letin/internal/opcode"
	"github.com/letin-run/letin/internal/value"
)

// Magic is the fixed 8-byte module identifier every module image begins
// with (§6 "Module file").
var Magic = [8]byte{'l', 'e', 't', 'i', 'n', 'm', 'o', 'd'}

// Flag is a bit in the module header's flags word (§4.5 "Module format").
type Flag uint32

const (
	// FlagLibrary means the module declares no entry function.
	FlagLibrary Flag = 1 << iota
	// FlagRelocatable means a relocation table follows the data section; a
	// non-relocatable module may only be loaded first (§4.5 "Linking").
	FlagRelocatable
	// FlagNativeFunSymbols means the symbol table may contain native-function
	// symbols in addition to function/variable symbols.
	FlagNativeFunSymbols
	// FlagFunInfos means a function-info table follows the symbol table.
	FlagFunInfos
)

func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// Header is the fixed-size, 8-byte-aligned module header (§4.5).
type Header struct {
	Magic         [8]byte
	Flags         Flag
	EntryFunIndex uint32
	FunCount      uint32
	VarCount      uint32
	CodeSize      uint32 // number of instructions, not bytes
	DataSize      uint32 // number of data objects
	RelocCount    uint32
	SymbolCount   uint32
	FunInfoCount  uint32
	Reserved      uint32
}

const headerSize = 8 + 10*4 // 48 bytes, already 8-byte aligned

// RawFunction is one module-local function-table entry; Address is an
// instruction index into this module's own Code, rebased to a combined
// CodeOffset when the module is appended during linking.
type RawFunction struct {
	Address    uint32
	ArgCount   uint32
	InstrCount uint32
}

// wireValue is the on-disk encoding of one value.Value appearing in a
// variable's initial value or an rarray/tuple slot: a kind tag followed by a
// kind-specific payload. A ref-kind payload carries a module-local
// data-object index rather than a live pointer — the object graph is only
// resolvable once the whole data section has parsed (and, for a
// RelocVarValue/RelocElem relocation, only after the index has been rebased
// across modules).
type wireValue struct {
	Kind value.Kind
	I    int64   // Int payload, or module-local Data index for a ref kind
	F    float64 // Float payload
}

func readWireValue(r io.Reader) (wireValue, *LoadError) {
	var kind uint8
	if err := readFields(r, &kind); err != nil {
		return wireValue{}, err
	}
	wv := wireValue{Kind: value.Kind(kind)}
	switch wv.Kind {
	case value.KindInt:
		if err := readFields(r, &wv.I); err != nil {
			return wireValue{}, err
		}
	case value.KindFloat:
		var bits uint64
		if err := readFields(r, &bits); err != nil {
			return wireValue{}, err
		}
		wv.F = math.Float64frombits(bits)
	case value.KindRef:
		var idx int32
		if err := readFields(r, &idx); err != nil {
			return wireValue{}, err
		}
		wv.I = int64(idx)
	default:
		return wireValue{}, formatError(fmt.Sprintf("unsupported wire value kind %v", wv.Kind))
	}
	return wv, nil
}

// RawVar is one module-local variable-table entry.
type RawVar struct {
	Value wireValue
}

// NewRawVar builds a RawVar for programmatic module construction (an
// assembler, or a test harness assembling a *Module directly rather than
// through Parse's byte decoding) without reaching into wireValue, which
// stays unexported since every other caller only ever sees it through
// Parse. A ref-kind initial value still has to go through Parse/Data,
// since it names a module-local data-object index that only exists once a
// byte image's data section has been decoded.
func NewRawVar(v value.Value) RawVar {
	if v.Kind == value.KindFloat {
		return RawVar{Value: wireValue{Kind: value.KindFloat, F: v.F}}
	}
	return RawVar{Value: wireValue{Kind: value.KindInt, I: v.I}}
}

// RawObject mirrors one in-memory value.Object closely enough to rebuild it
// once cross-module reference fields have been relocated. Refs holds
// module-local wireValues (so a ref slot's Data index is rebased exactly
// like any other cross-module reference) rather than live pointers.
type RawObject struct {
	Type   value.ObjType
	Flags  value.Flag
	Length int
	Ints   []int64
	Floats []float64
	Refs   []wireValue // rarray elements, or tuple slots (kind doubles as ElemTags[i])
}

// RelocKind identifies which field a Relocation rewrites (§4.5
// "Relocations").
type RelocKind uint8

const (
	RelocArg1 RelocKind = iota
	RelocArg2
	RelocVarValue
	RelocElem
)

func (k RelocKind) String() string {
	switch k {
	case RelocArg1:
		return "arg1"
	case RelocArg2:
		return "arg2"
	case RelocVarValue:
		return "var_value"
	case RelocElem:
		return "elem"
	default:
		return fmt.Sprintf("reloc_kind(%d)", uint8(k))
	}
}

// RelocTarget classifies what kind of table a relocation's resolved index
// names, since that decides both which symbol map (or table base) resolves
// it and which unresolved-symbol error code applies.
type RelocTarget uint8

const (
	TargetFun RelocTarget = iota
	TargetVar
	TargetNativeFun
)

// Relocation is one entry of the relocation table: where to write (Kind plus
// a Kind-specific site), and what to write (either a symbolic lookup by
// name, or the module's own base added to a local index).
type Relocation struct {
	Kind RelocKind

	Symbolic    bool
	SymbolIndex uint32      // index into this module's Symbols, when Symbolic
	LocalIndex  int32       // local index to rebase by module base, when !Symbolic
	Target      RelocTarget // which table the resolved index names

	// Site, interpreted per Kind.
	CodeIndex int // RelocArg1 / RelocArg2: index into this module's Code
	VarIndex  int // RelocVarValue: index into this module's Vars
	ObjIndex  int // RelocElem: index into this module's Data
	ElemIndex int // RelocElem: element offset within Data[ObjIndex]
}

// SymbolKind classifies one entry of a module's symbol table.
type SymbolKind uint8

const (
	SymFunc SymbolKind = iota
	SymVar
	SymNativeFunc
)

// Symbol is one exported (or referenced, for relocation lookups) name and
// the module-local index it designates.
type Symbol struct {
	Kind  SymbolKind
	Name  string
	Index int
}

// Module is one parsed module image, ready for linking.
type Module struct {
	Header    Header
	Functions []RawFunction
	Vars      []RawVar
	Code      []opcode.Instruction
	Data      []RawObject
	Relocs    []Relocation
	Symbols   []Symbol
	FunInfos  []env.FunInfo
}

// Parse reads one module image from r (§6 "Module file"). Any read failure,
// including a section cut short, surfaces as LoadIO; structural
// inconsistencies such as a bad magic number surface as LoadFormat. Symbol
// table indexes are not range-checked here. Both are loading-specific codes, not part of the runtime
// errs.Code taxonomy (§7 "Loading-specific").
func Parse(r io.Reader) (*Module, *LoadError) {
	var hdr Header
	if err := binary.Read(r, binary.BigEndian, &hdr.Magic); err != nil {
		return nil, ioError(err)
	}
	if hdr.Magic != Magic {
		return nil, formatError("bad magic")
	}
	if err := readFields(r, &hdr.Flags, &hdr.EntryFunIndex, &hdr.FunCount, &hdr.VarCount,
		&hdr.CodeSize, &hdr.DataSize, &hdr.RelocCount, &hdr.SymbolCount,
		&hdr.FunInfoCount, &hdr.Reserved); err != nil {
		return nil, err
	}

	m := &Module{Header: hdr}

	m.Functions = make([]RawFunction, hdr.FunCount)
	for i := range m.Functions {
		if err := readFields(r, &m.Functions[i].Address, &m.Functions[i].ArgCount, &m.Functions[i].InstrCount); err != nil {
			return nil, err
		}
	}

	m.Vars = make([]RawVar, hdr.VarCount)
	for i := range m.Vars {
		wv, err := readWireValue(r)
		if err != nil {
			return nil, err
		}
		m.Vars[i] = RawVar{Value: wv}
	}

	m.Code = make([]opcode.Instruction, hdr.CodeSize)
	for i := range m.Code {
		var words [3]opcode.Word
		if err := readFields(r, &words[0], &words[1], &words[2]); err != nil {
			return nil, err
		}
		m.Code[i] = opcode.Decode(words)
	}

	m.Data = make([]RawObject, hdr.DataSize)
	for i := range m.Data {
		obj, lerr := readObject(r)
		if lerr != nil {
			return nil, lerr
		}
		m.Data[i] = obj
	}

	m.Relocs = make([]Relocation, hdr.RelocCount)
	for i := range m.Relocs {
		rel, lerr := readRelocation(r)
		if lerr != nil {
			return nil, lerr
		}
		m.Relocs[i] = rel
	}

	m.Symbols = make([]Symbol, hdr.SymbolCount)
	for i := range m.Symbols {
		sym, lerr := readSymbol(r)
		if lerr != nil {
			return nil, lerr
		}
		m.Symbols[i] = sym
	}

	if hdr.Flags.Has(FlagFunInfos) {
		m.FunInfos = make([]env.FunInfo, hdr.FunInfoCount)
		for i := range m.FunInfos {
			var strategy, resultKind uint8
			if err := readFields(r, &strategy, &resultKind); err != nil {
				return nil, err
			}
			m.FunInfos[i] = env.FunInfo{Strategy: env.StrategyFlags(strategy), ResultKind: value.Kind(resultKind)}
		}
	}

	return m, nil
}

func readObject(r io.Reader) (RawObject, *LoadError) {
	var objType, flags uint16
	var length uint32
	if err := readFields(r, &objType, &flags, &length); err != nil {
		return RawObject{}, err
	}
	o := RawObject{Type: value.ObjType(objType), Flags: value.Flag(flags), Length: int(length)}

	switch o.Type {
	case value.TypeIArray8, value.TypeIArray16, value.TypeIArray32, value.TypeIArray64:
		o.Ints = make([]int64, length)
		for i := range o.Ints {
			if err := readFields(r, &o.Ints[i]); err != nil {
				return RawObject{}, err
			}
		}
	case value.TypeSFArray, value.TypeDFArray:
		o.Floats = make([]float64, length)
		for i := range o.Floats {
			var bits uint64
			if err := readFields(r, &bits); err != nil {
				return RawObject{}, err
			}
			o.Floats[i] = math.Float64frombits(bits)
		}
	case value.TypeRArray, value.TypeTuple:
		o.Refs = make([]wireValue, length)
		for i := range o.Refs {
			wv, err := readWireValue(r)
			if err != nil {
				return RawObject{}, err
			}
			o.Refs[i] = wv
		}
	case value.TypeIO:
		// no payload
	default:
		return RawObject{}, formatError(fmt.Sprintf("unsupported data-section object type %v", o.Type))
	}
	return o, nil
}

func readRelocation(r io.Reader) (Relocation, *LoadError) {
	var kind, symbolic, target uint8
	var symbolIndex uint32
	var localIndex int32
	var codeIndex, varIndex, objIndex, elemIndex int32
	if err := readFields(r, &kind, &symbolic, &symbolIndex, &localIndex, &target, &codeIndex, &varIndex, &objIndex, &elemIndex); err != nil {
		return Relocation{}, err
	}
	return Relocation{
		Kind:        RelocKind(kind),
		Symbolic:    symbolic != 0,
		SymbolIndex: symbolIndex,
		LocalIndex:  localIndex,
		Target:      RelocTarget(target),
		CodeIndex:   int(codeIndex),
		VarIndex:    int(varIndex),
		ObjIndex:    int(objIndex),
		ElemIndex:   int(elemIndex),
	}, nil
}

func readSymbol(r io.Reader) (Symbol, *LoadError) {
	var kind uint8
	var nameLen uint32
	if err := readFields(r, &kind, &nameLen); err != nil {
		return Symbol{}, err
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return Symbol{}, ioError(err)
	}
	var index int32
	if err := readFields(r, &index); err != nil {
		return Symbol{}, err
	}
	return Symbol{Kind: SymbolKind(kind), Name: string(name), Index: int(index)}, nil
}
