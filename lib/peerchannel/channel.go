// Package peerchannel implements the full-duplex message channel to a
// connected back-end peer (spec.md §4.6): an outbound unbounded queue
// with pending-reply correlation, and inbound dispatch by reply_to or
// by unsolicited message kind.
package peerchannel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/airbridge/airdropd/lib/peer"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/thejerf/suture/v4"
)

// ErrPeerGone is returned to every pending Ask/NotifyUploaded caller
// once the transport disconnects.
var ErrPeerGone = errors.New("peerchannel: peer disconnected")

// Channel drives one connected peer's hub message traffic. It
// implements peer.Channel.
type Channel struct {
	peerID string
	log    *slog.Logger
	conn   *websocket.Conn
	peer   *peer.Peer
	sup    *suture.Supervisor
	out    *outboundQueue

	// deregister is called exactly once, on disconnect, so the
	// channel can remove its peer from the registry without
	// depending on lib/registry directly (avoiding an import the
	// registry->peer->peerchannel graph doesn't otherwise need).
	deregister func(context.Context) error

	mu      sync.Mutex
	pending map[string]chan *Message
	closed  bool
	done    chan struct{}
}

// New wraps conn as the transport for p, ready to Serve. deregister is
// invoked once the channel detects disconnect.
func New(p *peer.Peer, conn *websocket.Conn, log *slog.Logger, deregister func(context.Context) error) *Channel {
	if log == nil {
		log = slog.Default()
	}
	c := &Channel{
		peerID:     p.ID,
		log:        log.With("peer", p.ID),
		conn:       conn,
		peer:       p,
		out:        newOutboundQueue(),
		pending:    make(map[string]chan *Message),
		deregister: deregister,
		done:       make(chan struct{}),
	}
	c.sup = suture.NewSimple(fmt.Sprintf("peerchannel.%s", p.ID))
	c.sup.Add(readerService{c})
	c.sup.Add(writerService{c})
	p.SetChannel(c)
	return c
}

// Serve runs the channel's reader and writer pumps until ctx is
// canceled or the transport disconnects.
func (c *Channel) Serve(ctx context.Context) error {
	return c.sup.Serve(ctx)
}

// Ask sends req as an askRequest and blocks for the peer's
// askResponse, returning whether the transfer was accepted.
func (c *Channel) Ask(ctx context.Context, req peer.AskRequest) (bool, error) {
	reply, err := c.request(ctx, Message{AskRequest: &req})
	if err != nil {
		return false, err
	}
	if reply.AskResponse == nil {
		return false, fmt.Errorf("peerchannel: expected askResponse, got a different reply")
	}
	return reply.AskResponse.Accepted, nil
}

// NotifyUploaded sends a fileUploadRequest for the file now available
// at url and blocks for the peer's ack.
func (c *Channel) NotifyUploaded(ctx context.Context, url string) error {
	_, err := c.request(ctx, Message{
		FileUploadRequest: &FileUploadRequestPayload{Name: filepath.Base(url), URL: url},
	})
	return err
}

// request enqueues msg with a fresh id, records a one-shot pending
// reply, and waits for it, for ctx cancellation, or for the channel to
// close, whichever happens first.
func (c *Channel) request(ctx context.Context, msg Message) (*Message, error) {
	msg.ID = uuid.NewString()

	replyCh := make(chan *Message, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrPeerGone
	}
	c.pending[msg.ID] = replyCh
	c.mu.Unlock()

	c.out.push(msg)

	select {
	case reply := <-replyCh:
		if reply == nil {
			return nil, ErrPeerGone
		}
		return reply, nil
	case <-c.done:
		return nil, ErrPeerGone
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, msg.ID)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// dispatch handles one inbound message: reply correlation for
// messages carrying reply_to, otherwise the small set of unsolicited
// pushes the bridge understands.
func (c *Channel) dispatch(msg *Message) {
	if msg.ReplyTo != "" {
		c.mu.Lock()
		ch, ok := c.pending[msg.ReplyTo]
		if ok {
			delete(c.pending, msg.ReplyTo)
		}
		c.mu.Unlock()
		if !ok {
			c.log.Warn("peerchannel: reply_to references no pending request", "reply_to", msg.ReplyTo)
			return
		}
		ch <- msg
		return
	}

	switch {
	case msg.Connect != nil:
		c.peer.SetDisplayName(msg.Connect.DisplayName)
	default:
		c.log.Warn("peerchannel: unsolicited message of unrecognised kind", "id", msg.ID)
	}
}

// Disconnect tears the channel down: closes the transport, fails
// every pending reply with ErrPeerGone, and deregisters the peer. Safe
// to call more than once; only the first call has effect.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[string]chan *Message)
	c.mu.Unlock()

	close(c.done)
	c.out.close()
	c.conn.Close()

	for _, ch := range pending {
		ch <- nil
	}

	if c.deregister != nil {
		if err := c.deregister(context.Background()); err != nil {
			c.log.Warn("peerchannel: deregister on disconnect failed", "error", err)
		}
	}
}
