// Package registry maps receiver-ids to connected peers and drives
// their mDNS advertisements, per spec.md §4.5.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/airbridge/airdropd/lib/flags"
	"github.com/airbridge/airdropd/lib/mdns"
	"github.com/airbridge/airdropd/lib/netiface"
	"github.com/airbridge/airdropd/lib/peer"
	"github.com/puzpuzpuz/xsync/v3"
)

const (
	airdropServiceType      = "_airdrop._tcp.local."
	airdropProxyServiceType = "_airdrop_proxy._tcp.local."
	proxyInstanceName       = "airdropd"
)

// ErrPeerNotFound is returned by Lookup-adjacent callers that need a
// sentinel rather than a boolean.
var ErrPeerNotFound = errors.New("registry: peer not found")

// responder is the slice of *mdns.Responder this package depends on,
// factored out so tests can substitute a fake instead of opening real
// sockets.
type responder interface {
	Register(ctx context.Context, svc mdns.Service) error
	Unregister(ctx context.Context, svc mdns.Service) error
}

// Registry is the concurrent peer-id -> peer map described in
// spec.md §4.5. It is the single place that knows how to turn a
// connected peer into an mDNS service record.
type Registry struct {
	responder  responder
	listenPort uint16

	peers *xsync.MapOf[string, *peer.Peer]
}

// New returns a registry that publishes service records for
// registered peers, and for itself, through responder on listenPort.
func New(responder responder, listenPort uint16) *Registry {
	return &Registry{
		responder:  responder,
		listenPort: listenPort,
		peers:      xsync.NewMapOf[string, *peer.Peer](),
	}
}

// RegisterPeer assigns p's mDNS service record (endpoints drawn from
// every non-loopback unicast address of every AWDL interface at the
// configured listen port) and advertises it. Idempotent on p.ID: a
// second registration with the same id replaces the first's record
// rather than publishing a duplicate.
func (r *Registry) RegisterPeer(ctx context.Context, p *peer.Peer) error {
	svc, err := r.serviceFor(p)
	if err != nil {
		return fmt.Errorf("registry: build service record for %s: %w", p.ID, err)
	}

	r.peers.Store(p.ID, p)

	if err := r.responder.Register(ctx, svc); err != nil {
		return fmt.Errorf("registry: register %s: %w", p.ID, err)
	}
	return nil
}

// UnregisterPeer removes p from the registry and withdraws its mDNS
// record. A no-op if p was never registered.
func (r *Registry) UnregisterPeer(ctx context.Context, p *peer.Peer) error {
	if _, ok := r.peers.LoadAndDelete(p.ID); !ok {
		return nil
	}

	svc, err := r.serviceFor(p)
	if err != nil {
		return fmt.Errorf("registry: build service record for %s: %w", p.ID, err)
	}
	if err := r.responder.Unregister(ctx, svc); err != nil {
		return fmt.Errorf("registry: unregister %s: %w", p.ID, err)
	}
	return nil
}

// Lookup returns the peer registered under id, used by lib/airdrop to
// route a request by the first label of its Host header.
func (r *Registry) Lookup(id string) (*peer.Peer, bool) {
	return r.peers.Load(id)
}

func (r *Registry) serviceFor(p *peer.Peer) (mdns.Service, error) {
	ips, err := addrSource()
	if err != nil {
		return mdns.Service{}, err
	}
	return mdns.Service{
		Type:     airdropServiceType,
		Instance: p.ID,
		Host:     p.ID,
		Port:     r.listenPort,
		Addrs:    ips,
		TXT:      map[string]string{"flags": flags.Default.String()},
	}, nil
}

// AdvertiseSelf publishes the bridge's own _airdrop_proxy._tcp
// service on every multicast interface (not just AWDL, per spec.md
// §4.5), so a companion client can find the HTTPS endpoint without
// prior configuration regardless of which interface it reaches the
// bridge over.
func (r *Registry) AdvertiseSelf(ctx context.Context, port uint16) error {
	ips, err := selfAddrSource()
	if err != nil {
		return fmt.Errorf("registry: advertise self: %w", err)
	}
	svc := mdns.Service{
		Type:     airdropProxyServiceType,
		Instance: proxyInstanceName,
		Host:     proxyInstanceName,
		Port:     port,
		Addrs:    ips,
	}
	if err := r.responder.Register(ctx, svc); err != nil {
		return fmt.Errorf("registry: advertise self: %w", err)
	}
	return nil
}

// addrSource resolves the endpoint addresses a new service record
// should advertise. It is a package variable, not a call to
// netiface.AWDLInterface() baked directly into serviceFor, so tests
// can substitute a fixed address list on hosts with no AWDL interface.
var addrSource = awdlUnicastAddrs

func awdlUnicastAddrs() ([]net.IP, error) {
	ifi, err := netiface.AWDLInterface()
	if err != nil {
		return nil, err
	}
	return unicastAddrsOf(*ifi)
}

// selfAddrSource resolves the addresses AdvertiseSelf publishes under.
// A package variable for the same reason addrSource is: tests swap in
// a fixed address list rather than depending on real interfaces.
var selfAddrSource = allMulticastUnicastAddrs

// allMulticastUnicastAddrs collects unicast addresses across every
// interface lib/mdns binds sockets on, so the proxy record is
// reachable regardless of which interface a companion client uses.
func allMulticastUnicastAddrs() ([]net.IP, error) {
	ifaces, err := netiface.Candidates()
	if err != nil {
		return nil, err
	}
	var ips []net.IP
	for _, ifi := range ifaces {
		addrs, err := unicastAddrsOf(ifi)
		if err != nil {
			continue
		}
		ips = append(ips, addrs...)
	}
	return ips, nil
}

func unicastAddrsOf(ifi net.Interface) ([]net.IP, error) {
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil, err
	}
	var ips []net.IP
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok || ipn.IP.IsLoopback() {
			continue
		}
		ips = append(ips, ipn.IP)
	}
	return ips, nil
}
