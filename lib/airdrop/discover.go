package airdrop

import (
	"crypto/x509"
	"encoding/json"
	"io"
	"net/http"

	"github.com/airbridge/airdropd/lib/peer"
	"github.com/airbridge/airdropd/lib/plist"
	"github.com/digitorus/pkcs7"
)

// discover implements POST /Discover, per spec.md §4.7: an absent or
// empty sender record is tolerated (this bridge only ever runs in
// Apple's "Everyone" mode, never contact-restricted mode), a present
// one must verify against the bundled Apple root, but its contents
// are never used to filter the sender.
func (h *Handlers) discover(w http.ResponseWriter, r *http.Request, p *peer.Peer) {
	body, err := io.ReadAll(io.LimitReader(r.Body, plist.MaxSize+1))
	if err != nil {
		http.Error(w, "read error", http.StatusInternalServerError)
		return
	}

	var req plist.DiscoverRequest
	if err := plist.Decode(body, &req); err != nil {
		h.log.Info("airdrop: malformed Discover body", "peer", p.ID, "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if len(req.SenderRecordData) > 0 {
		if err := h.verifySenderRecord(req.SenderRecordData); err != nil {
			h.log.Info("airdrop: sender record failed verification", "peer", p.ID, "error", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
	} else {
		h.log.Info("airdrop: Discover with no sender record, Everyone mode tolerates it", "peer", p.ID)
	}

	caps, err := json.Marshal(map[string]int{"Version": 1})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := plist.DiscoverResponse{
		ReceiverComputerName:      p.DisplayName(),
		ReceiverModelName:         p.DisplayName(),
		ReceiverMediaCapabilities: caps,
	}
	writePlist(w, resp)
}

// verifySenderRecord checks the CMS/PKCS7 signature on data against
// the bundled Apple root certificate. The decoded contact-record
// payload is deliberately discarded: contact-restricted filtering is
// a documented non-goal.
func (h *Handlers) verifySenderRecord(data []byte) error {
	p7, err := pkcs7.Parse(data)
	if err != nil {
		return err
	}

	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(h.appleRoot)
	return p7.VerifyWithChain(pool)
}

func writePlist(w http.ResponseWriter, v any) {
	buf, err := plist.Encode(v)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-apple-binary-plist")
	w.Write(buf)
}
