// Copyright 2024 The letin Authors
// This file is part of letin.

package loader

import (
	"encoding/binary"
	"io"
)

// readFields reads each of fields (pointers to fixed-size values) in order,
// big-endian, collapsing any failure into a single LoadIO.
func readFields(r io.Reader, fields ...interface{}) *LoadError {
	for _, f := range fields {
		if err := binary.Read(r, binary.BigEndian, f); err != nil {
			return ioError(err)
		}
	}
	return nil
}
