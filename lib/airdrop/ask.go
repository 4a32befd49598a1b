package airdrop

import (
	"io"
	"net/http"

	"github.com/airbridge/airdropd/lib/peer"
	"github.com/airbridge/airdropd/lib/plist"
)

// ask implements POST /Ask, per spec.md §4.7: forward to the peer and
// block on its decision; a rejection is a bare 406, never a plist
// body.
func (h *Handlers) ask(w http.ResponseWriter, r *http.Request, p *peer.Peer) {
	body, err := io.ReadAll(io.LimitReader(r.Body, plist.MaxSize+1))
	if err != nil {
		http.Error(w, "read error", http.StatusInternalServerError)
		return
	}

	var req plist.AskRequest
	if err := plist.Decode(body, &req); err != nil {
		h.log.Info("airdrop: malformed Ask body", "peer", p.ID, "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	ch := p.Channel()
	if ch == nil {
		http.Error(w, "peer not connected", http.StatusServiceUnavailable)
		return
	}

	accepted, err := ch.Ask(r.Context(), toPeerAskRequest(req))
	if err != nil {
		h.log.Warn("airdrop: ask failed", "peer", p.ID, "error", err)
		http.Error(w, "upstream error", http.StatusBadGateway)
		return
	}
	if !accepted {
		w.WriteHeader(http.StatusNotAcceptable)
		return
	}

	writePlist(w, plist.AskResponse{
		ReceiverComputerName: p.DisplayName(),
		ReceiverModelName:    p.DisplayName(),
	})
}
