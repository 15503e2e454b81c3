package events

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/voxlate/internal/service/recording"
	"github.com/zhouzirui/voxlate/pkg/utils"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
)

// Snapshotter supplies the initial state sent to each new subscriber.
type Snapshotter interface {
	Snapshot() recording.Snapshot
}

// snapshotEvent is the first frame on every stream.
type snapshotEvent struct {
	Type     string             `json:"type"`
	Snapshot recording.Snapshot `json:"snapshot"`
}

// Handler serves /events/ws and /events/sse.
type Handler struct {
	broadcaster *Broadcaster
	state       Snapshotter
	upgrader    websocket.Upgrader
	keepAlive   time.Duration
}

func New(b *Broadcaster, state Snapshotter) *Handler {
	return &Handler{
		broadcaster: b,
		state:       state,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		keepAlive: pingInterval,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/events", func(er chi.Router) {
		er.Get("/ws", h.handleWebSocket)
		er.Get("/sse", h.handleSSE)
	})
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Str("component", "events").Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(sub)

	// reader: only control frames are expected; a read error means the client left
	closed := make(chan struct{})
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(v any) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v)
	}
	if err := write(snapshotEvent{Type: "snapshot", Snapshot: h.state.Snapshot()}); err != nil {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case ev, ok := <-sub.C:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if err := write(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(sub)

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := utils.SendSSEEvent(w, flusher, "snapshot", snapshotEvent{Type: "snapshot", Snapshot: h.state.Snapshot()}); err != nil {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(ev.Type), ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "keep-alive"); err != nil {
				return
			}
		}
	}
}
