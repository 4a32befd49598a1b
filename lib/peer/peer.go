// Package peer factors the Peer type and the Channel interface it
// depends on out of lib/registry, so that lib/registry and
// lib/peerchannel can both depend on this package without depending on
// each other.
package peer

import (
	"context"
	"net"
	"sync"
)

// Channel is the request/reply API the HTTP handlers (lib/airdrop)
// drive against a connected peer. lib/peerchannel implements it.
type Channel interface {
	Ask(ctx context.Context, req AskRequest) (bool, error)
	NotifyUploaded(ctx context.Context, path string) error
	Disconnect()
}

// AskFile describes one file offered in an AskRequest's file list,
// carried transport-agnostically between lib/airdrop (which decodes
// it from a plist) and lib/peerchannel (which re-encodes it as JSON
// for the hub message).
type AskFile struct {
	Name                string
	Type                string
	IsDirectory         bool
	ConvertMediaFormats bool
	BomPath             string
}

// AskRequest is the peer-facing shape of spec.md §3's "Ask request":
// the fields an askRequest hub message carries to the back-end peer.
type AskRequest struct {
	SenderComputerName string
	SenderModelName    string
	SenderID           string
	BundleID           string
	FileIcon           []byte
	Files              []AskFile
	SenderRecordData   []byte
}

// Endpoint is one IP+port a peer's mDNS service record advertises.
type Endpoint struct {
	IP   net.IP
	Port uint16
}

// Peer is a connected back-end device the bridge pretends to be an
// AirDrop receiver on behalf of. It is shared by exactly one channel
// handler and the registry; the channel handler is the sole mutator
// of DisplayName.
type Peer struct {
	ID string

	mu          sync.RWMutex
	displayName string
	endpoints   []Endpoint
	channel     Channel
}

// New creates a peer whose display name initially equals id, per
// spec.md §3.
func New(id string) *Peer {
	return &Peer{ID: id, displayName: id}
}

// SetChannel attaches the Channel driving this peer's request/reply
// traffic. Called once, by lib/peerchannel, right after construction.
func (p *Peer) SetChannel(ch Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channel = ch
}

func (p *Peer) Channel() Channel {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.channel
}

// DisplayName returns the peer's current display name.
func (p *Peer) DisplayName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.displayName
}

// SetDisplayName updates the peer's display name. Only the channel
// handler driving this peer should call it (a `connect` message is
// the one thing that changes it after creation).
func (p *Peer) SetDisplayName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.displayName = name
}

// Endpoints returns the peer's advertised IP+port list.
func (p *Peer) Endpoints() []Endpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Endpoint, len(p.endpoints))
	copy(out, p.endpoints)
	return out
}

// SetEndpoints replaces the peer's advertised IP+port list.
func (p *Peer) SetEndpoints(eps []Endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endpoints = eps
}
