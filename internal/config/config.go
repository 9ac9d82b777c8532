// Copyright 2024 The letin Authors
// This file is part of letin.

// Package config holds the runtime's tunables as a plain struct, loaded from
// TOML. Front-end/compiler flags and command-line parsing live with the
// (out of scope) driver program, not here.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/naoina/toml"
)

// Config carries the runtime's tunables. Only StackSize (passed to Start by
// cmd/letinvm) and MemoCacheCapacity (used by letin.New) are read outside
// this package; the GC, heap, call-depth and module-cache fields are decoded
// and defaulted but nothing reads them. All fields have sane zero-value-safe defaults applied by
// Default(); a loaded file only needs to override what it cares about.
type Config struct {
	// GC tuning.
	InitialHeapSize  int `toml:"initial_heap_size"`  // bytes reserved before first growth
	HeapGrowthFactor float64 `toml:"heap_growth_factor"` // multiplier applied when a collect does not free enough
	QuiesceTimeout   int `toml:"quiesce_timeout_ms"` // upper bound on a stop-the-world pause, in milliseconds

	// Interpreter tuning.
	StackSize   int `toml:"stack_size"`   // words reserved per thread context's value stack
	MaxCallDepth int `toml:"max_call_depth"` // non-tail-call nesting bound before STACK_OVERFLOW

	// Evaluation-strategy tuning.
	MemoCacheCapacity int `toml:"memo_cache_capacity"` // entries per memoized function's LRU table

	// Loader tuning.
	ModuleCacheBytes int `toml:"module_cache_bytes"` // fastcache size for parsed-module reuse
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		InitialHeapSize:   1 << 20,
		HeapGrowthFactor:  2.0,
		QuiesceTimeout:    5000,
		StackSize:         1 << 16,
		MaxCallDepth:      1 << 14,
		MemoCacheCapacity: 4096,
		ModuleCacheBytes:  1 << 20,
	}
}

// Load reads and decodes a TOML configuration file, starting from Default()
// so an omitted field keeps its default rather than zeroing out.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads TOML from r into a Config seeded with Default().
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}
