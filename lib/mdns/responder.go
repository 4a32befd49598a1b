// Package mdns implements the mDNS/DNS-SD responder and active
// resolver this bridge uses to make non-Apple devices discoverable by
// AirDrop senders (spec.md §4.4), and to discover Apple receivers in
// turn. It answers only for names it has been explicitly told to
// serve; it never recurses or forwards queries.
package mdns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/airbridge/airdropd/lib/netiface"
	"github.com/miekg/dns"
	"github.com/thejerf/suture/v4"
)

// classQU is the top bit of a question's class field mDNS overloads
// to mean "the sender would also accept a unicast reply" (RFC 6762
// §5.4). It must be stripped before comparing against the class a
// record was registered under.
const classQU = 0x8000

// Responder is a single-zone mDNS/DNS-SD server: it owns a Catalog of
// authoritative records, a socket per (interface, address family) it
// was able to bind, and answers queries it receives on any of them.
type Responder struct {
	log     *slog.Logger
	catalog *Catalog
	sup     *suture.Supervisor

	mu     sync.Mutex
	groups []*socketGroup

	discoMu sync.Mutex
	discos  map[*discoverySink]struct{}
}

// discoverySink receives every inbound mDNS message so active
// discovery (see discover.go) can watch for responses to queries it
// issued, without the responder's query-answering path needing to
// know about it.
type discoverySink chan *dns.Msg

// NewResponder opens sockets on every candidate interface (lib/netiface)
// and both address families present on it, and returns a Responder
// ready to Serve. Interfaces the process has no permission to bind, or
// that have no address of a family, are skipped rather than failing
// the whole responder.
func NewResponder(ctx context.Context, log *slog.Logger) (*Responder, error) {
	if log == nil {
		log = slog.Default()
	}
	r := &Responder{
		log:     log,
		catalog: NewCatalog(),
		sup:     suture.NewSimple("mdns.Responder"),
		discos:  make(map[*discoverySink]struct{}),
	}

	ifaces, err := netiface.Candidates()
	if err != nil {
		return nil, fmt.Errorf("mdns: %w", err)
	}

	var opened int
	for _, ifi := range ifaces {
		addrs, err := ifi.Addrs()
		if err != nil {
			log.WarnContext(ctx, "mdns: list interface addresses failed", "interface", ifi.Name, "error", err)
			continue
		}
		v4, v6 := firstAddrPerFamily(addrs)
		if v4 != nil {
			if sg, err := newSocketGroup(ctx, ifi, familyV4, v4); err != nil {
				log.DebugContext(ctx, "mdns: skip interface", "interface", ifi.Name, "family", 4, "error", err)
			} else {
				r.groups = append(r.groups, sg)
				opened++
			}
		}
		if v6 != nil {
			if sg, err := newSocketGroup(ctx, ifi, familyV6, v6); err != nil {
				log.DebugContext(ctx, "mdns: skip interface", "interface", ifi.Name, "family", 6, "error", err)
			} else {
				r.groups = append(r.groups, sg)
				opened++
			}
		}
	}
	if opened == 0 {
		return nil, errors.New("mdns: no usable interface to bind")
	}

	for _, sg := range r.groups {
		r.sup.Add(&groupReader{responder: r, sg: sg})
	}
	return r, nil
}

func firstAddrPerFamily(addrs []net.Addr) (v4, v6 net.IP) {
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipn.IP
		if ip.IsLoopback() || ip.IsLinkLocalMulticast() {
			continue
		}
		if ip4 := ip.To4(); ip4 != nil {
			if v4 == nil {
				v4 = ip4
			}
			continue
		}
		if v6 == nil {
			v6 = ip
		}
	}
	return v4, v6
}

// Serve runs the responder until ctx is canceled.
func (r *Responder) Serve(ctx context.Context) error {
	return r.sup.Serve(ctx)
}

// Close releases every socket the responder holds.
func (r *Responder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sg := range r.groups {
		sg.Close()
	}
}

// Register publishes svc's records in the catalog with the standard
// 5-minute TTL and announces them unsolicited on every socket, so
// peers that cached nothing yet learn about the service without
// having to ask. Calling Register again with identical data is a
// no-op write to the catalog, but still re-announces.
func (r *Responder) Register(ctx context.Context, svc Service) error {
	r.indexByOwner(svc, recordTTL)
	return r.announce(ctx, svc.records(recordTTL))
}

// Unregister removes svc's records from the catalog and sends a
// goodbye announcement (TTL=0) so listeners flush their caches.
// Unregistering a service that was never registered is a no-op.
func (r *Responder) Unregister(ctx context.Context, svc Service) error {
	if len(r.catalog.Lookup(svc.instanceName(), dns.TypeSRV)) == 0 {
		return nil
	}
	rrs := svc.records(recordTTL)
	for _, owner := range svc.owners() {
		r.catalog.Remove(owner, rrs...)
	}
	return r.announce(ctx, svc.records(goodbyeTTL))
}

// indexByOwner ensures each record in svc's set is filed under every
// owner name a query could legitimately ask for it by (PTR queries
// the service type, SRV/TXT queries the instance, A/AAAA queries the
// host).
func (r *Responder) indexByOwner(svc Service, ttl uint32) {
	rrs := svc.records(ttl)
	for _, rr := range rrs {
		r.catalog.Add(rr.Header().Name, rr)
	}
}

func (r *Responder) announce(ctx context.Context, rrs []dns.RR) error {
	msg := new(dns.Msg)
	msg.Response = true
	msg.Authoritative = true
	msg.Answer = rrs

	buf, err := msg.Pack()
	if err != nil {
		return fmt.Errorf("mdns: pack announcement: %w", err)
	}

	r.mu.Lock()
	groups := append([]*socketGroup(nil), r.groups...)
	r.mu.Unlock()

	var firstErr error
	for _, sg := range groups {
		if err := sg.writeMulticast(buf); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// groupReader is the suture.Service that pumps inbound packets off one
// socketGroup's listener and hands them to the responder.
type groupReader struct {
	responder *Responder
	sg        *socketGroup
}

func (g *groupReader) Serve(ctx context.Context) error {
	buf := make([]byte, maxPacketSize)
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		g.sg.listen.Close()
		close(done)
	}()

	for {
		n, src, ifIndex, err := g.sg.readFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				<-done
				return nil
			default:
				return fmt.Errorf("mdns: read on %s: %w", g.sg.iface.Name, err)
			}
		}
		if ifIndex != 0 && ifIndex != g.sg.iface.Index {
			continue
		}
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		g.responder.handlePacket(ctx, g.sg, pkt, src)
	}
}

func (r *Responder) handlePacket(ctx context.Context, sg *socketGroup, pkt []byte, src net.Addr) {
	msg := new(dns.Msg)
	if err := msg.Unpack(pkt); err != nil {
		r.log.DebugContext(ctx, "mdns: drop unparseable packet", "interface", sg.iface.Name, "error", err)
		return
	}

	if msg.Response {
		r.fanOutToDiscovery(msg)
		return
	}
	r.answerQuery(ctx, sg, msg, src)
}

// answerQuery builds and sends the reply to a single incoming query,
// per spec.md §4.4: union the answers for every question against the
// catalog, drop the whole reply if nothing matched (never answer
// NOERROR with an empty answer section), and honor the per-question
// unicast-response bit.
func (r *Responder) answerQuery(ctx context.Context, sg *socketGroup, query *dns.Msg, src net.Addr) {
	answers, wantUnicast := resolveAnswers(r.catalog, query.Question)
	if len(answers) == 0 {
		return
	}

	reply := new(dns.Msg)
	reply.Response = true
	reply.Authoritative = true
	reply.Answer = answers

	buf, err := reply.Pack()
	if err != nil {
		r.log.WarnContext(ctx, "mdns: pack reply failed", "error", err)
		return
	}
	if len(buf) > maxPacketSize {
		r.log.WarnContext(ctx, "mdns: reply exceeds packet cap, dropping", "size", len(buf))
		return
	}

	if wantUnicast {
		if err := sg.writeUnicast(buf, src); err != nil {
			r.log.DebugContext(ctx, "mdns: unicast reply failed", "error", err)
		}
		return
	}
	if err := sg.writeMulticast(buf); err != nil {
		r.log.DebugContext(ctx, "mdns: multicast reply failed", "error", err)
	}
}

// resolveAnswers matches questions against catalog, stripping and
// honoring the per-question unicast-response (QU) bit along the way.
// It never returns a NOERROR-with-no-answers result: callers should
// simply drop the reply when len(answers) == 0.
func resolveAnswers(catalog *Catalog, questions []dns.Question) (answers []dns.RR, wantUnicast bool) {
	for _, q := range questions {
		qu := q.Qclass&classQU != 0
		qclass := q.Qclass &^ classQU
		if qclass != dns.ClassINET && qclass != dns.ClassANY {
			continue
		}
		matches := catalog.Lookup(q.Name, q.Qtype)
		if len(matches) == 0 {
			continue
		}
		answers = append(answers, matches...)
		if qu {
			wantUnicast = true
		}
	}
	return answers, wantUnicast
}
