package airdrop

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/airbridge/airdropd/lib/cpio"
	"github.com/airbridge/airdropd/lib/peer"
	"github.com/airbridge/airdropd/lib/rand"
)

const cpioContentType = "application/x-cpio"

// upload implements POST /Upload, per spec.md §4.7: extract the
// gzip-wrapped CPIO body into a scratch directory, relocate every
// regular file under uploadPath where the (out-of-scope) static file
// server exposes it, notify the peer of each one in turn, then clean
// up the scratch directory regardless of outcome.
func (h *Handlers) upload(w http.ResponseWriter, r *http.Request, p *peer.Peer) {
	if r.Header.Get("Content-Type") != cpioContentType {
		http.Error(w, "unsupported content type", http.StatusUnprocessableEntity)
		return
	}

	sessionID := rand.ID()
	scratch := filepath.Join(os.TempDir(), sessionID)
	if err := os.MkdirAll(scratch, 0o700); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer h.cleanup(scratch)

	gz, err := cpio.NewGzipReader(r.Body)
	if err != nil {
		h.log.Warn("airdrop: gzip unwrap failed", "peer", p.ID, "error", err)
		http.Error(w, "bad request", http.StatusInternalServerError)
		return
	}

	files, err := cpio.Extract(r.Context(), gz, scratch)
	if err != nil {
		h.log.Warn("airdrop: cpio extraction failed", "peer", p.ID, "error", err)
		http.Error(w, "extraction failed", http.StatusInternalServerError)
		return
	}

	ch := p.Channel()
	for _, f := range files {
		url, err := h.publish(sessionID, scratch, f)
		if err != nil {
			h.log.Warn("airdrop: publish extracted file failed", "peer", p.ID, "file", f, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if ch == nil {
			continue
		}
		if err := ch.NotifyUploaded(r.Context(), url); err != nil {
			h.log.Warn("airdrop: notify_uploaded failed", "peer", p.ID, "file", f, "error", err)
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

// publish moves an extracted file from the scratch directory into
// uploadPath, preserving its relative layout, and returns the URL
// path the static file server will expose it under.
func (h *Handlers) publish(sessionID, scratch, absPath string) (string, error) {
	rel, err := filepath.Rel(scratch, absPath)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(h.uploadPath, sessionID, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
		return "", err
	}
	if err := os.Rename(absPath, dest); err != nil {
		return "", err
	}
	return "/" + strings.ReplaceAll(filepath.Join(sessionID, rel), string(filepath.Separator), "/"), nil
}

func (h *Handlers) cleanup(scratch string) {
	if err := os.RemoveAll(scratch); err != nil {
		h.log.Warn("airdrop: cleanup of scratch directory failed", "dir", scratch, "error", err)
	}
}

