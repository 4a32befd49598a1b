// Package flags defines the AirDrop receiver capability bitfield
// advertised in the _airdrop._tcp TXT record.
//
// The bit layout and String() idiom mirror syncthing's
// internal/events.EventType: a uint-backed bitfield with named
// constants and a rendering method, except String() here renders the
// wire form (a decimal number) rather than a symbolic name, since that
// is what the TXT record's flags= key actually carries.
package flags

import "strconv"

// Flags is the 16-bit AirDrop receiver capability bitfield.
type Flags uint16

const (
	Url Flags = 1 << iota
	DvZip
	Pipelining
	MixedTypes
	_ // reserved
	_ // reserved
	Discover
	_ // reserved
	_ // reserved
	AssetBundle
)

// Default is the capability set this bridge advertises on its
// _airdrop._tcp service record: 0x28B (651 decimal). It is pinned to
// that literal wire value rather than expressed as an OR of the named
// constants above, because the reverse-engineered bit names and the
// published default value don't reconcile bit-for-bit (two of the
// lower-order bits in 0x28B don't line up with Url|Pipelining|
// MixedTypes|Discover|AssetBundle under any consistent assignment of
// the named constants) — see DESIGN.md. Senders only care about the
// wire value; the names exist for readability.
const Default Flags = 0x28B

// String renders f as the unsigned decimal value the flags= TXT key
// expects, e.g. "651".
func (f Flags) String() string {
	return strconv.FormatUint(uint64(f), 10)
}

// Has reports whether every bit in want is set in f.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}
