// Copyright 2024 The letin Authors
// This file is part of letin.

package loader

import "fmt"

// LoadCode is the loading-specific error taxonomy (§7 "Loading-specific"):
// distinct from errs.Code because these never arise once a program is
// running, only while parsing and linking module images, and are reported
// per module rather than unwound through a try-scope.
type LoadCode int

const (
	LoadIO LoadCode = iota + 1
	LoadFormat
	LoadNoFunSym
	LoadFunSym
	LoadNoVarSym
	LoadVarSym
	LoadReloc
	LoadEntry
	LoadNoReloc
	LoadFunIndex
	LoadVarIndex
	LoadAlloc
	LoadNoNativeFunSym
)

var loadCodeNames = map[LoadCode]string{
	LoadIO:             "IO",
	LoadFormat:         "FORMAT",
	LoadNoFunSym:       "NO_FUN_SYM",
	LoadFunSym:         "FUN_SYM",
	LoadNoVarSym:       "NO_VAR_SYM",
	LoadVarSym:         "VAR_SYM",
	LoadReloc:          "RELOC",
	LoadEntry:          "ENTRY",
	LoadNoReloc:        "NO_RELOC",
	LoadFunIndex:       "FUN_INDEX",
	LoadVarIndex:       "VAR_INDEX",
	LoadAlloc:          "ALLOC",
	LoadNoNativeFunSym: "NO_NATIVE_FUN_SYM",
}

func (c LoadCode) String() string {
	if n, ok := loadCodeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("load_code(%d)", int(c))
}

// LoadError is one loading-specific failure, optionally naming the symbol or
// site involved.
type LoadError struct {
	Code   LoadCode
	Detail string
}

func (e *LoadError) Error() string {
	if e.Detail == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func newLoadError(code LoadCode, detail string) *LoadError {
	return &LoadError{Code: code, Detail: detail}
}

func ioError(err error) *LoadError          { return newLoadError(LoadIO, err.Error()) }
func formatError(detail string) *LoadError { return newLoadError(LoadFormat, detail) }

// ModuleErrors collects every LoadError produced while parsing or linking
// one module. Loading never stops at the first failing module (§7 "Loader
// errors are collected per module"); each module's errors are gathered
// independently so the caller can report all of them at once.
type ModuleErrors struct {
	Index  int // position of this module in the Link call's input slice
	Errors []*LoadError
}

func (m *ModuleErrors) add(code LoadCode, detail string) {
	m.Errors = append(m.Errors, newLoadError(code, detail))
}

func (m *ModuleErrors) addf(code LoadCode, format string, args ...interface{}) {
	m.add(code, fmt.Sprintf(format, args...))
}
