// Copyright 2024 The letin Authors
// This file is part of letin.

package loader

import (
	"github.com/letin-run/letin/internal/env"
	"github.com/letin-run/letin/internal/gc"
	"github.com/letin-run/letin/internal/value"
)

// moduleBases records where one module's tables landed in the combined
// environment, so a "local" relocation can rebase a module-local index by
// simple addition (§4.5 "Linking", pass 1).
type moduleBases struct {
	funBase, varBase, codeBase int
}

// LinkResult is the outcome of linking a set of modules: the combined
// environment when every module loaded cleanly, plus every module's
// collected errors (possibly several modules' worth — loading never stops
// at the first failure, per §7 "Loader errors are collected per module").
type LinkResult struct {
	Env    *env.Environment
	Errors []*ModuleErrors // only modules that produced at least one error
	OK     bool
}

// Link appends each module's tables to a fresh environment at its own base
// offset (pass 1), then applies every relocation against the combined
// symbol map (pass 2). Objects in a module's data section are allocated
// immortal through collector, mirroring how literal program data is never
// swept (§3 invariant 4, §4.4 "Allocation"). If any module produced errors,
// Env is nil and OK is false — callers must not observe a partially linked
// environment (§7 "never leaves the environment in a partially-linked
// observable state").
// nativeSymbols seeds the combined environment's NativeFunSymbols map before
// any module is processed — the names a native.Registry has already bound to
// handler indices at VM construction time (§4.6 "native library boundary").
// A module's own NATIVE_FUN_SYMBOLS declarations are additive on top of this
// seed; they never overwrite a name the registry already bound.
func Link(collector *gc.Collector, mods []*Module, nativeSymbols map[string]int) *LinkResult {
	e := env.New()
	for name, idx := range nativeSymbols {
		e.NativeFunSymbols[name] = idx
	}
	bases := make([]moduleBases, len(mods))
	perModule := make([]*ModuleErrors, len(mods))
	moduleObjs := make([][]*value.Object, len(mods))
	entryModule := -1

	for i, m := range mods {
		perModule[i] = &ModuleErrors{Index: i}
		me := perModule[i]

		if !m.Header.Flags.Has(FlagRelocatable) && i != 0 {
			me.add(LoadNoReloc, "non-relocatable module loaded as non-first")
			continue
		}

		b := moduleBases{funBase: len(e.Functions), varBase: len(e.Vars), codeBase: len(e.Code)}
		bases[i] = b

		for _, fn := range m.Functions {
			e.Functions = append(e.Functions, env.Function{
				CodeOffset: b.codeBase + int(fn.Address),
				ArgCount:   int(fn.ArgCount),
				InstrCount: int(fn.InstrCount),
			})
		}
		e.FunInfos = append(e.FunInfos, m.FunInfos...)
		e.Code = append(e.Code, m.Code...)

		objs := buildObjects(collector, e, m.Data)
		moduleObjs[i] = objs
		for _, v := range m.Vars {
			e.Vars = append(e.Vars, wireToValue(v.Value, objs))
		}

		if !m.Header.Flags.Has(FlagLibrary) {
			if entryModule != -1 {
				me.add(LoadEntry, "more than one module declares an entry function")
			} else {
				entryModule = i
				e.HasEntry = true
				e.EntryIndex = b.funBase + int(m.Header.EntryFunIndex)
			}
		}

		// A function or variable symbol named by one of this module's own
		// symbolic relocations is a reference to another module's
		// definition, not a definition.
		referenced := make(map[uint32]bool)
		for _, r := range m.Relocs {
			if r.Symbolic {
				referenced[r.SymbolIndex] = true
			}
		}
		for si, sym := range m.Symbols {
			if (sym.Kind == SymFunc || sym.Kind == SymVar) && referenced[uint32(si)] {
				continue
			}
			switch sym.Kind {
			case SymFunc:
				if _, dup := e.FunSymbols[sym.Name]; dup {
					me.add(LoadFunSym, sym.Name)
					continue
				}
				e.FunSymbols[sym.Name] = b.funBase + sym.Index
			case SymVar:
				if _, dup := e.VarSymbols[sym.Name]; dup {
					me.add(LoadVarSym, sym.Name)
					continue
				}
				e.VarSymbols[sym.Name] = b.varBase + sym.Index
			case SymNativeFunc:
				if !m.Header.Flags.Has(FlagNativeFunSymbols) {
					me.addf(LoadFormat, "native-function symbol %q without NATIVE_FUN_SYMBOLS flag", sym.Name)
					continue
				}
				if _, seeded := e.NativeFunSymbols[sym.Name]; !seeded {
					e.NativeFunSymbols[sym.Name] = sym.Index
				}
			}
		}
	}

	for i, m := range mods {
		me := perModule[i]
		if len(me.Errors) > 0 && moduleObjs[i] == nil {
			// Module was rejected outright in pass 1 (e.g. NO_RELOC); it
			// contributed nothing to link against.
			continue
		}
		b := bases[i]
		for _, rel := range m.Relocs {
			final, ok := resolveRelocTarget(e, m, b, rel, me)
			if !ok {
				continue
			}
			applyRelocation(e, moduleObjs[i], b, rel, final, me)
		}
	}

	result := &LinkResult{Env: e, OK: true}
	for _, me := range perModule {
		if len(me.Errors) > 0 {
			result.Errors = append(result.Errors, me)
			result.OK = false
		}
	}
	if !result.OK {
		result.Env = nil
	}
	return result
}

func resolveRelocTarget(e *env.Environment, m *Module, b moduleBases, rel Relocation, me *ModuleErrors) (int, bool) {
	if rel.Symbolic {
		if int(rel.SymbolIndex) >= len(m.Symbols) {
			me.add(LoadFormat, "relocation symbol index out of range")
			return 0, false
		}
		name := m.Symbols[rel.SymbolIndex].Name
		switch rel.Target {
		case TargetFun:
			if idx, ok := e.FunSymbols[name]; ok {
				return idx, true
			}
			me.add(LoadNoFunSym, name)
		case TargetVar:
			if idx, ok := e.VarSymbols[name]; ok {
				return idx, true
			}
			me.add(LoadNoVarSym, name)
		case TargetNativeFun:
			if idx, ok := e.NativeFunSymbols[name]; ok {
				return idx, true
			}
			me.add(LoadNoNativeFunSym, name)
		}
		return 0, false
	}

	switch rel.Target {
	case TargetFun:
		return b.funBase + int(rel.LocalIndex), true
	case TargetVar:
		return b.varBase + int(rel.LocalIndex), true
	default:
		me.add(LoadFormat, "local relocation cannot target a native function")
		return 0, false
	}
}

func applyRelocation(e *env.Environment, objs []*value.Object, b moduleBases, rel Relocation, final int, me *ModuleErrors) {
	switch rel.Kind {
	case RelocArg1, RelocArg2:
		idx := b.codeBase + rel.CodeIndex
		if idx < 0 || idx >= len(e.Code) {
			me.add(LoadFormat, "instruction relocation site out of range")
			return
		}
		if rel.Kind == RelocArg1 {
			e.Code[idx].Arg1.Value = int32(final)
		} else {
			e.Code[idx].Arg2.Value = int32(final)
		}
	case RelocVarValue:
		idx := b.varBase + rel.VarIndex
		if idx < 0 || idx >= len(e.Vars) {
			me.add(LoadVarIndex, "var_value relocation site out of range")
			return
		}
		e.Vars[idx].I = int64(final)
	case RelocElem:
		if rel.ObjIndex < 0 || rel.ObjIndex >= len(objs) {
			me.add(LoadFormat, "elem relocation names an out-of-range data object")
			return
		}
		obj := objs[rel.ObjIndex]
		if rel.ElemIndex < 0 || rel.ElemIndex >= len(obj.Refs) {
			me.add(LoadFormat, "elem relocation site out of range")
			return
		}
		obj.Refs[rel.ElemIndex].I = int64(final)
	}
}

// wireToValue decodes one wireValue into its live value.Value, resolving a
// ref-kind payload against objs — the module's own data-object list, built
// by buildObjects before any variable or nested object is decoded.
func wireToValue(wv wireValue, objs []*value.Object) value.Value {
	switch wv.Kind {
	case value.KindInt:
		return value.Int(wv.I)
	case value.KindFloat:
		return value.Float(wv.F)
	case value.KindRef:
		idx := int(wv.I)
		if idx < 0 || idx >= len(objs) {
			return value.Error()
		}
		return value.RefValue(objs[idx])
	default:
		return value.Error()
	}
}

// buildObjects allocates one immortal value.Object per module data-section
// entry. A first pass allocates every object (so an rarray/tuple can
// reference another data entry regardless of declaration order), then a
// second pass fills in Refs/ElemTags now that every sibling object exists.
func buildObjects(collector *gc.Collector, e *env.Environment, raws []RawObject) []*value.Object {
	objs := make([]*value.Object, len(raws))
	for i, r := range raws {
		ints := append([]int64(nil), r.Ints...)
		floats := append([]float64(nil), r.Floats...)
		objType, flags, length := r.Type, r.Flags, r.Length
		obj := collector.AllocateImmortal(func() *value.Object {
			return &value.Object{Type: objType, Flags: flags, Length: length, Ints: ints, Floats: floats}
		})
		objs[i] = obj
		e.AddImmortal(obj)
	}
	for i, r := range raws {
		if r.Refs == nil {
			continue
		}
		elems := make([]value.Value, len(r.Refs))
		tags := make([]value.Kind, len(r.Refs))
		for j, wv := range r.Refs {
			elems[j] = wireToValue(wv, objs)
			tags[j] = elems[j].Kind
		}
		objs[i].Refs = elems
		if objs[i].Type == value.TypeTuple {
			objs[i].ElemTags = tags
		}
	}
	return objs
}
