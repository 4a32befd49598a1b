package peerchannel

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
)

// readerService pumps inbound frames off the websocket and dispatches
// them. It is supervised independently of writerService so a write
// failure doesn't starve reads of their chance to observe the
// resulting close, and vice versa.
type readerService struct{ c *Channel }

func (r readerService) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		r.c.conn.Close()
	}()

	for {
		_, data, err := r.c.conn.ReadMessage()
		if err != nil {
			r.c.Disconnect()
			return nil
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			r.c.log.Warn("peerchannel: dropping unparseable frame", "error", err)
			continue
		}
		r.c.dispatch(&msg)
	}
}

// writerService drains the outbound queue and serialises each message
// onto the transport in enqueue order.
type writerService struct{ c *Channel }

func (w writerService) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		w.c.out.close()
	}()

	for {
		msg, ok := w.c.out.pop()
		if !ok {
			return nil
		}
		data, err := json.Marshal(msg)
		if err != nil {
			w.c.log.Warn("peerchannel: dropping unencodable outbound message", "id", msg.ID, "error", err)
			continue
		}
		if err := w.c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			w.c.Disconnect()
			return nil
		}
	}
}
