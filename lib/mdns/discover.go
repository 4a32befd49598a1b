package mdns

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"
)

// discoverTimeout bounds a single Discover call, per spec.md §4.4: a
// sender that never responds must not hang the caller forever.
const discoverTimeout = 30 * time.Second

// Receiver is one resolved AirDrop receiver found by Discover: the
// DNS-SD instance name, its SRV target/port, and its TXT record,
// which carries the capability flags (lib/flags) and the identifier
// AirDrop's HTTP protocol expects.
type Receiver struct {
	Instance string
	Host     string
	Port     uint16
	TXT      map[string]string
}

// Discover sends a PTR query for serviceType on every open socket,
// walks each PTR answer to its SRV/TXT record, and returns every
// receiver it resolved before ctx is canceled or discoverTimeout
// elapses, whichever comes first.
func (r *Responder) Discover(ctx context.Context, serviceType string) ([]Receiver, error) {
	ctx, cancel := context.WithTimeout(ctx, discoverTimeout)
	defer cancel()

	sink := make(discoverySink, 64)
	r.addSink(&sink)
	defer r.removeSink(&sink)

	if err := r.query(serviceType, dns.TypePTR); err != nil {
		return nil, fmt.Errorf("mdns: discover query: %w", err)
	}

	found := make(map[string]Receiver)
	for {
		select {
		case <-ctx.Done():
			return flatten(found), nil
		case msg, ok := <-sink:
			if !ok {
				return flatten(found), nil
			}
			r.absorb(serviceType, msg, found)
		}
	}
}

func flatten(found map[string]Receiver) []Receiver {
	out := make([]Receiver, 0, len(found))
	for _, rcv := range found {
		out = append(out, rcv)
	}
	return out
}

// absorb folds one inbound response message into found, resolving a
// PTR's target inline if the matching SRV/TXT rode along in the same
// message's additional section (as a compliant responder sends them),
// and issuing follow-up SRV/TXT queries otherwise.
func (r *Responder) absorb(serviceType string, msg *dns.Msg, found map[string]Receiver) {
	all := append(append([]dns.RR{}, msg.Answer...), msg.Extra...)

	instances := make(map[string]bool)
	for _, rr := range all {
		if ptr, ok := rr.(*dns.PTR); ok && dns.Fqdn(rr.Header().Name) == dns.Fqdn(serviceType) {
			instances[dns.Fqdn(ptr.Ptr)] = true
		}
	}
	if len(instances) == 0 {
		return
	}

	for inst := range instances {
		rcv := Receiver{Instance: inst, TXT: map[string]string{}}
		haveSRV, haveTXT := false, false
		for _, rr := range all {
			if dns.Fqdn(rr.Header().Name) != inst {
				continue
			}
			switch v := rr.(type) {
			case *dns.SRV:
				rcv.Host, rcv.Port = v.Target, v.Port
				haveSRV = true
			case *dns.TXT:
				for _, kv := range v.Txt {
					k, val := splitTXT(kv)
					rcv.TXT[k] = val
				}
				haveTXT = true
			}
		}
		if haveSRV && haveTXT {
			found[inst] = rcv
		} else {
			_ = r.query(inst, dns.TypeSRV)
			_ = r.query(inst, dns.TypeTXT)
		}
	}
}

func splitTXT(kv string) (key, val string) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:]
		}
	}
	return kv, ""
}

// query sends a single question on every socket group this responder
// has open.
func (r *Responder) query(name string, qtype uint16) error {
	msg := new(dns.Msg)
	msg.Question = []dns.Question{{Name: dns.Fqdn(name), Qtype: qtype, Qclass: dns.ClassINET}}
	buf, err := msg.Pack()
	if err != nil {
		return err
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

func (r *Responder) addSink(s *discoverySink) {
	r.discoMu.Lock()
	defer r.discoMu.Unlock()
	r.discos[s] = struct{}{}
}

func (r *Responder) removeSink(s *discoverySink) {
	r.discoMu.Lock()
	defer r.discoMu.Unlock()
	delete(r.discos, s)
	close(*s)
}

func (r *Responder) fanOutToDiscovery(msg *dns.Msg) {
	r.discoMu.Lock()
	defer r.discoMu.Unlock()
	for s := range r.discos {
		select {
		case *s <- msg:
		default:
			// slow consumer; drop rather than block the reader loop.
		}
	}
}
