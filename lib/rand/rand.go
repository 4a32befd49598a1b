// Package rand provides cryptographically seeded random identifiers.
//
// It mirrors the shape of syncthing's lib/rand: a package-level
// math/rand.Rand seeded from crypto/rand, guarded by a mutex since
// math/rand.Rand is not safe for concurrent use on its own.
package rand

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	mathrand "math/rand"
	"sync"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// IDLength is the width of a receiver-id / session-id as defined by the
// AirDrop wire protocol: a 12 character lowercase alphanumeric string.
const IDLength = 12

var (
	mut sync.Mutex
	gen = mathrand.New(newSecureSource())
)

// secureSource is a math/rand.Source64 backed by crypto/rand. We use it
// to seed the package generator so that the sequence it produces cannot
// be predicted, while keeping the convenient Intn/Int63 API math/rand
// provides over a raw io.Reader.
type secureSource struct{}

func newSecureSource() mathrand.Source64 {
	return secureSource{}
}

func (secureSource) Seed(int64) {
	// no-op: each Int63/Uint64 call draws fresh entropy
}

func (s secureSource) Int63() int64 {
	return int64(s.Uint64() &^ (1 << 63))
}

func (secureSource) Uint64() uint64 {
	var buf [8]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		panic("rand: failed to read from crypto/rand: " + err.Error())
	}
	return binary.BigEndian.Uint64(buf[:])
}

// Uint64 returns a cryptographically seeded pseudo-random uint64.
func Uint64() uint64 {
	mut.Lock()
	defer mut.Unlock()
	return gen.Uint64()
}

// String returns a string of n characters drawn uniformly from the
// lowercase alphanumeric alphabet, each picked independently.
func String(n int) string {
	bs := make([]byte, n)
	mut.Lock()
	for i := range bs {
		bs[i] = alphabet[gen.Intn(len(alphabet))]
	}
	mut.Unlock()
	return string(bs)
}

// ID returns a new 12-character receiver-id / session-id.
func ID() string {
	return String(IDLength)
}
