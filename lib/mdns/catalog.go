package mdns

import (
	"strings"
	"sync"

	"github.com/miekg/dns"
)

// recordTTL is the TTL stamped on every record this responder
// publishes, per spec.md §3.
const recordTTL = 5 * 60

// goodbyeTTL is the TTL used when unregistering a service, announcing
// that cached copies of its records should be dropped immediately.
const goodbyeTTL = 0

// Catalog is the process-wide authoritative zone this responder
// answers queries from. Every record it holds is authoritative and
// answered without recursion. It is a single-writer, many-reader
// structure: writes take an exclusive lock, reads (during query
// resolution) take a shared one, which is enough to guarantee a
// resolving goroutine sees a consistent snapshot of the records for a
// name even while another goroutine registers or unregisters a
// service concurrently.
type Catalog struct {
	mu      sync.RWMutex
	records map[string][]dns.RR // keyed by lowercased owner name
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{records: make(map[string][]dns.RR)}
}

func key(name string) string {
	return strings.ToLower(dns.Fqdn(name))
}

// Add inserts rrs under owner, replacing any existing record of the
// same (name, type, rdata) to keep registration idempotent.
func (c *Catalog) Add(owner string, rrs ...dns.RR) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(owner)
	existing := c.records[k]
	for _, rr := range rrs {
		existing = upsert(existing, rr)
	}
	c.records[k] = existing
}

// upsert replaces any record equal to rr modulo TTL, or appends rr.
func upsert(set []dns.RR, rr dns.RR) []dns.RR {
	for i, have := range set {
		if sameRData(have, rr) {
			set[i] = rr
			return set
		}
	}
	return append(set, rr)
}

// sameRData reports whether a and b are the same record ignoring TTL,
// so that re-registering a service with the same data is a no-op.
func sameRData(a, b dns.RR) bool {
	ah, bh := a.Header(), b.Header()
	if ah.Rrtype != bh.Rrtype || ah.Class != bh.Class || !strings.EqualFold(ah.Name, bh.Name) {
		return false
	}
	aCopy, bCopy := dns.Copy(a), dns.Copy(b)
	aCopy.Header().Ttl, bCopy.Header().Ttl = 0, 0
	return aCopy.String() == bCopy.String()
}

// Remove deletes rrs (matched by name/type/rdata, ignoring TTL) from
// owner. Removing a record that isn't present is a no-op, making
// unregistration idempotent.
func (c *Catalog) Remove(owner string, rrs ...dns.RR) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(owner)
	existing := c.records[k]
	for _, rr := range rrs {
		existing = removeOne(existing, rr)
	}
	if len(existing) == 0 {
		delete(c.records, k)
	} else {
		c.records[k] = existing
	}
}

func removeOne(set []dns.RR, rr dns.RR) []dns.RR {
	out := set[:0]
	for _, have := range set {
		if !sameRData(have, rr) {
			out = append(out, have)
		}
	}
	return out
}

// Lookup returns every authoritative record owned by name whose type
// matches qtype, or dns.TypeANY for all types. It is safe to call
// concurrently with Add/Remove.
func (c *Catalog) Lookup(name string, qtype uint16) []dns.RR {
	c.mu.RLock()
	defer c.mu.RUnlock()

	set := c.records[key(name)]
	if qtype == dns.TypeANY {
		out := make([]dns.RR, len(set))
		copy(out, set)
		return out
	}

	var out []dns.RR
	for _, rr := range set {
		if rr.Header().Rrtype == qtype {
			out = append(out, rr)
		}
	}
	return out
}
