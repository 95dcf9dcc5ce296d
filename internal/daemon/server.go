package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/guildhub/guildhub/internal/bus"
	"github.com/guildhub/guildhub/internal/config"
	"github.com/guildhub/guildhub/internal/dispatch"
	"github.com/guildhub/guildhub/internal/store"
	"github.com/guildhub/guildhub/internal/ws"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Server hosts the WebSocket endpoint and the internal collaborator API the
// surrounding HTTP CRUD layer calls into ("is user X online", "push event Y").
type Server struct {
	httpServer *http.Server
	router     *dispatch.Router
	bus        *bus.Bus
	logger     *zap.Logger
}

// NewServer builds the HTTP server and its routes.
func NewServer(cfg *config.Config, logger *zap.Logger, wsHandler *ws.Handler, router *dispatch.Router, b *bus.Bus) *Server {
	s := &Server{
		router: router,
		bus:    b,
		logger: logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.Handle("/ws", wsHandler).Methods("GET")

	internal := r.PathPrefix("/internal").Subrouter()
	internal.HandleFunc("/presence/{userID}", s.handlePresence).Methods("GET")
	internal.HandleFunc("/notify", s.handleNotify).Methods("POST")
	internal.HandleFunc("/enchantment", s.handleEnchantment).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      c.Handler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("http server starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop performs a graceful shutdown.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("http server stopping")
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("forced shutdown", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	writeJSON(w, http.StatusOK, map[string]any{
		"userId": userID,
		"online": s.router.IsOnline(userID),
	})
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type        string `json:"type"`
		RecipientID string `json:"recipientId"`
		SenderID    string `json:"senderId"`
		RelatedID   string `json:"relatedId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.RecipientID == "" || req.SenderID == "" {
		http.Error(w, "recipientId and senderId are required", http.StatusBadRequest)
		return
	}

	switch req.Type {
	case store.NotifConnectionRequest, store.NotifConnectionAccepted:
	default:
		http.Error(w, "unknown notification type", http.StatusBadRequest)
		return
	}

	// The notification must be durable before the collaborator is told it
	// was accepted, so this call is synchronous rather than a bus publish.
	err := s.router.NotifyConnection(req.Type, dispatch.ConnRequest{
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		RequestID:   req.RelatedID,
	})
	if err != nil {
		s.logger.Error("failed to persist notification", zap.Error(err), zap.String("recipient_id", req.RecipientID))
		http.Error(w, "failed to persist notification", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleEnchantment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		Count  int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	s.bus.Publish(bus.Event{
		Kind:      bus.KindEnchantmentUpdated,
		Timestamp: time.Now(),
		Payload:   bus.Enchantment{UserID: req.UserID, Count: req.Count},
	})
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
