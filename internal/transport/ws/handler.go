package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/andrewy1n/platypus-academy/internal/apperror"
	"github.com/andrewy1n/platypus-academy/internal/logger"
	"github.com/andrewy1n/platypus-academy/internal/model"
	"github.com/andrewy1n/platypus-academy/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// StreamTracker counts open streams (implemented by metrics.Metrics)
type StreamTracker interface {
	TrackStream() func()
}

// Handler handles WebSocket connections
type Handler struct {
	hub        *Hub
	runSvc     *service.RunService
	sessionSvc *service.SessionService
	tracker    StreamTracker
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, runSvc *service.RunService, sessionSvc *service.SessionService) *Handler {
	return &Handler{
		hub:        hub,
		runSvc:     runSvc,
		sessionSvc: sessionSvc,
	}
}

func (h *Handler) SetTracker(t StreamTracker) { h.tracker = t }

// PipelineWS handles GET /v1/ws/pipelines/{runId}. The run starts when the
// client attaches and is cancelled when it disconnects.
func (h *Handler) PipelineWS(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runId"]
	ticket := r.URL.Query().Get("ticket")

	if ticket == "" {
		http.Error(w, "missing ticket", http.StatusUnauthorized)
		return
	}

	req, err := h.runSvc.Claim(r.Context(), runID, ticket)
	if err != nil {
		http.Error(w, apperror.Message(err), apperror.HTTPStatus(err))
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.FromContext(r.Context()).Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := &Connection{
		RunID: runID,
		Send:  make(chan []byte, 256),
		Hub:   h.hub,
	}

	h.hub.Register(conn)

	// the run outlives this handler; only a disconnect cancels it
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn, cancel)
	go h.stream(ctx, cancel, runID, *req)
}

func (h *Handler) stream(ctx context.Context, cancel context.CancelFunc, runID string, req model.PipelineRequest) {
	defer cancel()
	defer h.hub.CloseRun(runID)
	if h.tracker != nil {
		defer h.tracker.TrackStream()()
	}

	log := logger.FromContext(ctx).With("run_id", runID)
	sink := service.SinkFunc(func(ev model.Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		h.hub.Broadcast(runID, MsgPipelineEvent, ev)
		return nil
	})

	session, err := h.sessionSvc.Create(ctx, req, sink)
	switch {
	case err != nil:
		log.Warn("pipeline stream ended early", "error", err)
		if ctx.Err() == nil {
			h.hub.Broadcast(runID, MsgError, map[string]string{"error": apperror.Message(err)})
		}
	case session != nil:
		log.Info("session created", "session_id", session.ID)
	}
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection, cancel context.CancelFunc) {
	defer func() {
		cancel()
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "run_id", conn.RunID, "error", err)
			}
			break
		}
		// incoming messages are ignored
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"))
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
