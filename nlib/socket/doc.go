// Copyright 2024 The letin Authors
// This file is part of letin.

// Package socket documents, but does not implement, the native socket/IO
// library's contract. A real OS-backed socket library is an explicit
// non-goal; what is load-bearing here is the argument-range-check
// convention any such library must follow when it is eventually wired in
// behind package native's checker/converter/setter DSL.
//
// Naming convention: functions are registered under names prefixed
// "socket." (e.g. "socket.connect", "socket.send", "socket.recv"), taking
// and returning the unique IO effect token (value.NewIO, value.TypeIO)
// threaded through every side-effecting native call per the unique-object
// discipline in internal/value/unique.go.
//
// in_port/in_addr range-check convention: a port or address argument is
// accepted when its value fits the destination wire type (uint16 for a
// port, uint32 for an IPv4 address), inclusive at both ends. Package native
// has no converter with exactly these bounds: its ToInt16 accepts the signed
// range -32768..32767 and its ToUint only rejects negative values. A prior native socket
// library used "<" where ">" was apparently intended for one of these two
// checks; that bug is not replicated here — range acceptance is defined
// purely as "value fits the destination type", with no further special
// casing.
package socket
