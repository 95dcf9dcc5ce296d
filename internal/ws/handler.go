package ws

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/guildhub/guildhub/internal/auth"
	"github.com/guildhub/guildhub/internal/dispatch"
	"github.com/guildhub/guildhub/internal/event"
	"go.uber.org/zap"
)

// Handler upgrades authenticated HTTP requests to WebSocket connections and
// runs the per-connection read loop.
type Handler struct {
	upgrader websocket.Upgrader
	auth     *auth.Authenticator
	router   *dispatch.Router
	logger   *zap.Logger
}

// NewHandler creates a WebSocket handler restricted to the given origins.
func NewHandler(allowedOrigins []string, a *auth.Authenticator, router *dispatch.Router, logger *zap.Logger) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return &Handler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return allowed[r.Header.Get("Origin")]
			},
		},
		auth:   a,
		router: router,
		logger: logger,
	}
}

// ServeHTTP handles GET /ws. Authentication completes before the upgrade;
// no event is ever processed on an unauthenticated connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Authenticate(auth.TokenFromRequest(r))
	if err != nil {
		h.logger.Info("connection rejected", zap.Error(err))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := newConn(wsConn)
	go conn.writeLoop()

	h.router.Connect(user, conn)
	defer func() {
		h.router.Disconnect(user, conn)
		conn.Close()
	}()

	for {
		_, raw, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Info("connection lost", zap.String("user_id", user.ID), zap.Error(err))
			}
			return
		}

		ev, err := event.DecodeInbound(raw)
		if err != nil {
			// Malformed payloads are reported to the origin only.
			if errors.Is(err, event.ErrUnknownEvent) {
				_ = conn.Push(event.NewError("unknown event"))
			} else {
				_ = conn.Push(event.NewError("malformed event payload"))
			}
			continue
		}
		h.router.HandleEvent(user, conn, ev)
	}
}
