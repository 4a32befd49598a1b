package airdrop

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/airbridge/airdropd/lib/peer"
	"github.com/airbridge/airdropd/lib/plist"
	"github.com/julienschmidt/httprouter"
)

type fakeRegistry struct {
	peers map[string]*peer.Peer
}

func (f *fakeRegistry) Lookup(id string) (*peer.Peer, bool) {
	p, ok := f.peers[id]
	return p, ok
}

type fakeChannel struct {
	accepted     bool
	askErr       error
	notifiedURLs []string
	notifyErr    error
	lastAskReq   peer.AskRequest
}

func (f *fakeChannel) Ask(ctx context.Context, req peer.AskRequest) (bool, error) {
	f.lastAskReq = req
	return f.accepted, f.askErr
}

func (f *fakeChannel) NotifyUploaded(ctx context.Context, url string) error {
	f.notifiedURLs = append(f.notifiedURLs, url)
	return f.notifyErr
}

func (f *fakeChannel) Disconnect() {}

func newTestHandlers(t *testing.T, p *peer.Peer) (*Handlers, *httprouter.Router) {
	t.Helper()
	reg := &fakeRegistry{peers: map[string]*peer.Peer{p.ID: p}}
	h := NewHandlers(reg, nil, t.TempDir(), nil)
	router := httprouter.New()
	h.Register(router)
	return h, router
}

func TestRoutingPreludeRejectsUnknownHost(t *testing.T) {
	p := peer.New("knownpeer01")
	_, router := newTestHandlers(t, p)

	req := httptest.NewRequest("POST", "/Discover", nil)
	req.Host = "nosuchpeer.local"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != 404 {
		t.Fatalf("got status %d, want 404", w.Code)
	}
}

func TestDiscoverWithEmptySenderRecord(t *testing.T) {
	p := peer.New("knownpeer01")
	_, router := newTestHandlers(t, p)

	body, err := plist.Encode(plist.DiscoverRequest{})
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}

	req := httptest.NewRequest("POST", "/Discover", bytes.NewReader(body))
	req.Host = "knownpeer01.local"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var resp plist.DiscoverResponse
	if err := plist.Decode(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ReceiverComputerName != "knownpeer01" {
		t.Fatalf("ReceiverComputerName = %q, want peer display name", resp.ReceiverComputerName)
	}
}

func TestAskRejectionReturns406WithEmptyBody(t *testing.T) {
	p := peer.New("knownpeer01")
	fc := &fakeChannel{accepted: false}
	p.SetChannel(fc)
	_, router := newTestHandlers(t, p)

	body, err := plist.Encode(plist.AskRequest{SenderComputerName: "iPhone"})
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}

	req := httptest.NewRequest("POST", "/Ask", bytes.NewReader(body))
	req.Host = "knownpeer01.local"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != 406 {
		t.Fatalf("got status %d, want 406", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body on rejection, got %q", w.Body.String())
	}
}

func TestAskAcceptedReturnsPlist(t *testing.T) {
	p := peer.New("knownpeer01")
	fc := &fakeChannel{accepted: true}
	p.SetChannel(fc)
	_, router := newTestHandlers(t, p)

	body, err := plist.Encode(plist.AskRequest{SenderComputerName: "iPhone"})
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}

	req := httptest.NewRequest("POST", "/Ask", bytes.NewReader(body))
	req.Host = "knownpeer01.local"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("got status %d, want 200", w.Code)
	}
	var resp plist.AskResponse
	if err := plist.Decode(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ReceiverComputerName != "knownpeer01" {
		t.Fatalf("ReceiverComputerName = %q", resp.ReceiverComputerName)
	}
	if fc.lastAskReq.SenderComputerName != "iPhone" {
		t.Fatalf("channel did not receive the forwarded ask request")
	}
}

func TestUploadRejectsWrongContentType(t *testing.T) {
	p := peer.New("knownpeer01")
	_, router := newTestHandlers(t, p)

	req := httptest.NewRequest("POST", "/Upload", bytes.NewReader([]byte("not cpio")))
	req.Host = "knownpeer01.local"
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != 422 {
		t.Fatalf("got status %d, want 422", w.Code)
	}
}
