// Package plist implements the AirDrop wire codec: Apple binary
// property lists decoded into (and encoded from) typed Go records.
//
// Field name mapping between the in-memory struct and the on-wire key
// uses the same `plist:"Name"` struct tag howett.net/plist already
// understands; this package only adds the size cap the protocol
// requires and a couple of helpers for the record shapes AirDrop uses.
package plist

import (
	"bytes"
	"fmt"

	"howett.net/plist"
)

// MaxSize is the hard cap on an encoded plist buffer, in either
// direction, per spec: 1 MiB.
const MaxSize = 1 << 20

// Decode parses data, a binary (or XML) property list, into v, which
// must be a pointer to a struct (or map) howett.net/plist can unmarshal
// into. It fails closed if data exceeds MaxSize.
func Decode(data []byte, v any) error {
	if len(data) > MaxSize {
		return fmt.Errorf("plist: input of %d bytes exceeds %d byte cap", len(data), MaxSize)
	}
	_, err := plist.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("plist: decode: %w", err)
	}
	return nil
}

// Encode renders v as a binary property list, failing if the result
// would exceed MaxSize.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := plist.NewBinaryEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("plist: encode: %w", err)
	}
	if buf.Len() > MaxSize {
		return nil, fmt.Errorf("plist: output of %d bytes exceeds %d byte cap", buf.Len(), MaxSize)
	}
	return buf.Bytes(), nil
}
