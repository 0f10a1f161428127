package progress

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"neomentor/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Hub upgrades client connections and relays one run's events to them.
type Hub struct {
	subscriber Subscriber
	upgrader   websocket.Upgrader
	logger     zerolog.Logger
}

// NewHub builds a hub. checkOrigin may be nil to accept any origin.
func NewHub(subscriber Subscriber, checkOrigin func(r *http.Request) bool, logger zerolog.Logger) *Hub {
	return &Hub{
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// Serve streams events of runID to the client until the client disconnects
// or a terminal progress event (100%) has been delivered. The snapshot, when
// non-nil, is sent first so late subscribers see the current state.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, runID string, snapshot *domain.Event) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, closeSub, err := h.subscriber.Subscribe(ctx, runID)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
			time.Now().Add(writeWait))
		return err
	}
	defer closeSub()

	go h.readPump(conn, cancel)

	if snapshot != nil {
		if err := writeEvent(conn, *snapshot); err != nil {
			return nil
		}
		if isFinal(*snapshot) {
			return closeNormal(conn)
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return closeNormal(conn)
			}
			if err := writeEvent(conn, ev); err != nil {
				h.logger.Debug().Err(err).Str("run_id", runID).Msg("ws: write failed")
				return nil
			}
			if isFinal(ev) {
				return closeNormal(conn)
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
func (h *Hub) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, ev domain.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

func closeNormal(conn *websocket.Conn) error {
	return conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"),
		time.Now().Add(writeWait))
}

func isFinal(ev domain.Event) bool {
	if ev.Type != domain.EventProgress {
		return false
	}
	return ev.Progress >= PctCompleted || ev.Stage == "failed" || ev.Stage == "completed"
}
