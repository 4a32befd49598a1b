// Package airdrop implements the HTTPS protocol handlers (C7):
// Discover, Ask, and Upload, and the Host-header routing prelude that
// binds each request to a registered peer (spec.md §4.7).
package airdrop

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/airbridge/airdropd/lib/peer"
	"github.com/airbridge/airdropd/lib/registry"
	"github.com/julienschmidt/httprouter"
)

// lookup is the slice of *registry.Registry this package depends on,
// factored into an interface so handler tests can substitute a fake.
type lookup interface {
	Lookup(id string) (*peer.Peer, bool)
}

// Handlers holds the collaborators the three AirDrop endpoints need.
type Handlers struct {
	registry   lookup
	appleRoot  []byte
	uploadPath string
	log        *slog.Logger
}

// NewHandlers returns handlers that route by peer id against reg,
// verify Discover sender records against appleRoot (a PEM-encoded
// bundle), and land Upload's extracted files under uploadPath.
func NewHandlers(reg lookup, appleRoot []byte, uploadPath string, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{registry: reg, appleRoot: appleRoot, uploadPath: uploadPath, log: log}
}

// Register mounts /Discover, /Ask, /Upload on router.
func (h *Handlers) Register(router *httprouter.Router) {
	router.POST("/Discover", h.withPeer(h.discover))
	router.POST("/Ask", h.withPeer(h.ask))
	router.POST("/Upload", h.withPeer(h.upload))
}

// withPeer implements the shared routing prelude: the Host header's
// first label must name a registered peer, or the request is rejected
// before its body is ever read.
func (h *Handlers) withPeer(next func(http.ResponseWriter, *http.Request, *peer.Peer)) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id := firstLabel(r.Host)
		p, ok := h.registry.Lookup(id)
		if !ok {
			http.NotFound(w, r)
			return
		}
		next(w, r, p)
	}
}

func firstLabel(host string) string {
	host, _, _ = strings.Cut(host, ":")
	label, _, _ := strings.Cut(host, ".")
	return label
}
