package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/Mamadi-exe/Snoofit/internal/engine"
)

// LiveMessage is pushed over the live socket: the triggering event, if any,
// and the full state after it.
type LiveMessage struct {
	Event *engine.Event   `json:"event,omitempty"`
	State engine.Snapshot `json:"state"`
}

const liveWriteTimeout = 5 * time.Second

// handleLiveSocket upgrades to a WebSocket that sends the current snapshot
// and then a fresh one after every engine event. Incoming messages are
// ignored.
func handleLiveSocket(logger *slog.Logger, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := playerFrom(r)
		playerID := p.Engine.Player().ID

		ch := broker.Subscribe(playerID)
		defer broker.Unsubscribe(playerID, ch)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		// CloseRead handles control frames and cancels ctx when the peer
		// goes away.
		ctx := conn.CloseRead(r.Context())

		send := func(ev *engine.Event) error {
			wctx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
			defer cancel()
			return wsjson.Write(wctx, conn, LiveMessage{Event: ev, State: p.Engine.Snapshot()})
		}

		if err := send(nil); err != nil {
			logger.Debug("websocket write failed", "error", err)
			return
		}

		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case ev := <-ch:
				if err := send(&ev); err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}
