package mdns

import (
	"fmt"
	"net"
	"sort"

	"github.com/miekg/dns"
)

// metaServiceName is the well-known DNS-SD meta-query owner name that
// enumerates known service types on the local network.
const metaServiceName = "_services._dns-sd._udp.local."

// Service describes one DNS-SD service instance this process wants to
// advertise (an AirDrop receiver, or this bridge's own proxy peer
// endpoint registered under _airdrop_proxy._tcp, per spec.md §6).
type Service struct {
	// Type is the DNS-SD service type, e.g. "_airdrop._tcp.local.".
	Type string
	// Instance is the service instance name, unique within Type.
	Instance string
	// Host is the target hostname the SRV record points at.
	Host string
	// Port is the TCP port the service listens on.
	Port uint16
	// Addrs are the host's addresses, used to synthesize A/AAAA glue.
	Addrs []net.IP
	// TXT is the flattened key=value TXT record payload.
	TXT map[string]string
}

// instanceName is the fully qualified "<Instance>.<Type>" owner name
// of the service's PTR target / SRV-TXT owner.
func (s Service) instanceName() string {
	return dns.Fqdn(s.Instance + "." + s.Type)
}

func (s Service) hostName() string {
	return dns.Fqdn(s.Host)
}

// records renders the PTR/SRV/TXT/A/AAAA record set for s, stamped
// with ttl. Order is deterministic so re-registration with identical
// data upserts cleanly in the catalog.
func (s Service) records(ttl uint32) []dns.RR {
	typeName := dns.Fqdn(s.Type)
	inst := s.instanceName()
	host := s.hostName()

	rrs := []dns.RR{
		&dns.PTR{
			Hdr: dns.RR_Header{Name: dns.Fqdn(metaServiceName), Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: ttl},
			Ptr: typeName,
		},
		&dns.PTR{
			Hdr: dns.RR_Header{Name: typeName, Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: ttl},
			Ptr: inst,
		},
		&dns.SRV{
			Hdr:      dns.RR_Header{Name: inst, Rrtype: dns.TypeSRV, Class: dns.ClassINET, Ttl: ttl},
			Priority: 0,
			Weight:   0,
			Port:     s.Port,
			Target:   host,
		},
		&dns.TXT{
			Hdr: dns.RR_Header{Name: inst, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: ttl},
			Txt: flattenTXT(s.TXT),
		},
	}

	addrs := make([]net.IP, len(s.Addrs))
	copy(addrs, s.Addrs)
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].String() < addrs[j].String() })

	for _, ip := range addrs {
		if v4 := ip.To4(); v4 != nil {
			rrs = append(rrs, &dns.A{
				Hdr: dns.RR_Header{Name: host, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttl},
				A:   v4,
			})
			continue
		}
		rrs = append(rrs, &dns.AAAA{
			Hdr:  dns.RR_Header{Name: host, Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: ttl},
			AAAA: ip,
		})
	}
	return rrs
}

// owners returns the distinct owner names s publishes records under,
// so Register/Unregister know which catalog buckets to touch.
func (s Service) owners() []string {
	return []string{dns.Fqdn(metaServiceName), dns.Fqdn(s.Type), s.instanceName(), s.hostName()}
}

func flattenTXT(kv map[string]string) []string {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, kv[k]))
	}
	return out
}
