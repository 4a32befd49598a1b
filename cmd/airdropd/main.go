// Command airdropd wires the bridge's components together: the mDNS
// responder, the service registry, the AirDrop HTTP handlers, and the
// websocket endpoint a back-end peer connects through. It does not
// implement TLS termination, routing dispatch, certificate
// generation, or the static file server — those are external
// collaborators per spec.md §6.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airbridge/airdropd/lib/airdrop"
	"github.com/airbridge/airdropd/lib/mdns"
	"github.com/airbridge/airdropd/lib/netiface"
	"github.com/airbridge/airdropd/lib/peer"
	"github.com/airbridge/airdropd/lib/peerchannel"
	"github.com/airbridge/airdropd/lib/rand"
	"github.com/airbridge/airdropd/lib/registry"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const shutdownGrace = 10 * time.Second

func main() {
	log := slog.Default()

	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		log.Error("airdropd: configuration error", "error", err)
		os.Exit(1)
	}

	appleRoot, err := loadAppleRoot()
	if err != nil {
		log.Error("airdropd: failed to load Apple root certificate", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, appleRoot, log); err != nil {
		log.Error("airdropd: exiting", "error", err)
		os.Exit(1)
	}
}

func run(cfg config, appleRoot []byte, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := netiface.AWDLInterface(); err != nil {
		return fmt.Errorf("startup precondition: %w", err)
	}
	if err := netiface.StartAWDL(); err != nil {
		return fmt.Errorf("startup precondition: %w", err)
	}
	defer netiface.StopAWDL()

	responder, err := mdns.NewResponder(ctx, log)
	if err != nil {
		return fmt.Errorf("mdns responder: %w", err)
	}
	defer responder.Close()

	reg := registry.New(responder, cfg.ListenPort)
	if err := reg.AdvertiseSelf(ctx, cfg.ListenPort); err != nil {
		log.Warn("airdropd: failed to advertise proxy service", "error", err)
	}

	handlers := airdrop.NewHandlers(reg, appleRoot, cfg.UploadPath, log)
	router := httprouter.New()
	handlers.Register(router)
	router.GET("/connect", connectHandler(reg, log))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ListenPort),
		Handler: router,
	}

	errCh := make(chan error, 2)
	go func() { errCh <- responder.Serve(ctx) }()
	go func() {
		var err error
		if cfg.CertFile != "" && cfg.KeyFile != "" {
			err = srv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadAppleRoot() ([]byte, error) {
	path := os.Getenv("AIRDROPD_APPLE_ROOT")
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

var upgrader = websocket.Upgrader{}

// connectHandler upgrades a back-end peer's HTTP connection to a
// websocket, mints its receiver-id, and registers it. The companion
// client discovers this endpoint via the _airdrop_proxy._tcp record
// lib/registry advertises.
func connectHandler(reg *registry.Registry, log *slog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("airdropd: websocket upgrade failed", "error", err)
			return
		}

		id := rand.ID()
		p := peer.New(id)
		ch := peerchannel.New(p, conn, log, func(ctx context.Context) error {
			return reg.UnregisterPeer(ctx, p)
		})

		if err := reg.RegisterPeer(r.Context(), p); err != nil {
			log.Warn("airdropd: failed to register peer", "peer", id, "error", err)
			conn.Close()
			return
		}

		go func() {
			if err := ch.Serve(context.Background()); err != nil {
				log.Warn("airdropd: peer channel exited", "peer", id, "error", err)
			}
		}()
	}
}
