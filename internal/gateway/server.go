// Package gateway provides the debug HTTP gateway: telemetry inspection,
// usage queries and live event streaming.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"skein/internal/engine"
	"skein/internal/gateway/handlers"
	"skein/internal/gateway/websocket"
	"skein/internal/insights"
	"skein/internal/telemetry"
	"skein/pkg/logger"
)

// Server represents the debug gateway server.
type Server struct {
	httpServer  *http.Server
	router      *mux.Router
	hub         *websocket.Hub
	watcher     *Watcher
	recorder    *telemetry.Recorder
	engine      *engine.Manager
	addr        string
	startedAt   time.Time
	unsubscribe func()
}

// NewServer creates a gateway server. The watcher is optional.
func NewServer(addr string, recorder *telemetry.Recorder, eng *engine.Manager) *Server {
	router := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		router:   router,
		hub:      websocket.NewHub(),
		recorder: recorder,
		engine:   eng,
		addr:     addr,
	}

	s.setupRoutes()
	return s
}

// SetWatcher attaches a config file watcher started alongside the server.
func (s *Server) SetWatcher(w *Watcher) {
	s.watcher = w
}

// Hub exposes the WebSocket hub for broadcast use.
func (s *Server) Hub() *websocket.Hub {
	return s.hub
}

// setupRoutes configures the server routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/logs", s.handleLogs).Methods(http.MethodGet)
	api.HandleFunc("/logs", s.handleClearLogs).Methods(http.MethodDelete)
	api.HandleFunc("/stats/{session}", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/insights/{session}", s.handleInsights).Methods(http.MethodGet)
	api.HandleFunc("/usage/{session}", s.handleUsage).Methods(http.MethodGet)
	api.HandleFunc("/compress/{session}", s.handleCompress).Methods(http.MethodPost)

	s.router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.ServeWs(s.hub, w, r)
	})
}

// Start starts the HTTP server and wires telemetry events into the hub.
func (s *Server) Start() error {
	s.startedAt = time.Now()
	s.httpServer.Addr = s.addr

	go s.hub.Run()

	if s.recorder != nil {
		s.unsubscribe = s.recorder.Subscribe(func(ev telemetry.Event) {
			session := ev.SessionID
			if ev.Entry != nil {
				session = ev.Entry.SessionID
			}
			if err := s.hub.BroadcastTyped(session, websocket.TypeTelemetry, ev); err != nil {
				logger.Warn().Err(err).Msg("Failed to broadcast telemetry event")
			}
		})
	}

	if s.watcher != nil {
		if err := s.watcher.Start(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start config watcher")
		}
	}

	logger.Info().
		Str("addr", s.addr).
		Msg("Starting gateway server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info().Msg("Shutting down gateway server")

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.watcher != nil {
		s.watcher.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	handlers.SendJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")

	var entries []*telemetry.Entry
	if fromStr, toStr := r.URL.Query().Get("from"), r.URL.Query().Get("to"); fromStr != "" || toStr != "" {
		from, to, err := parseTimeRange(fromStr, toStr)
		if err != nil {
			handlers.SendError(w, http.StatusBadRequest, handlers.ErrCodeInvalidRequest, err.Error())
			return
		}
		entries, err = s.recorder.LogsBetween(sessionID, from, to)
		if err != nil {
			handlers.SendError(w, http.StatusInternalServerError, handlers.ErrCodeInternalError, err.Error())
			return
		}
	} else {
		entries = s.recorder.Logs(sessionID)
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			handlers.SendError(w, http.StatusBadRequest, handlers.ErrCodeInvalidRequest, "limit must be a non-negative integer")
			return
		}
		if limit < len(entries) {
			entries = entries[len(entries)-limit:]
		}
	}

	handlers.SendJSON(w, http.StatusOK, map[string]any{
		"logs":  entries,
		"count": len(entries),
	})
}

func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	s.recorder.Clear(sessionID)
	if sessionID != "" && s.engine != nil {
		s.engine.ClearBookkeeping(sessionID)
	}
	handlers.SendJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

// parseTimeRange resolves optional RFC 3339 bounds; a missing from means the
// zero time, a missing to means now.
func parseTimeRange(fromStr, toStr string) (from, to time.Time, err error) {
	if fromStr != "" {
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return from, to, fmt.Errorf("invalid from time %q: use RFC 3339", fromStr)
		}
	}
	to = time.Now()
	if toStr != "" {
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			return from, to, fmt.Errorf("invalid to time %q: use RFC 3339", toStr)
		}
	}
	return from, to, nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session"]
	handlers.SendJSON(w, http.StatusOK, s.recorder.Stats(sessionID))
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session"]
	stats := s.recorder.Stats(sessionID)
	handlers.SendJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   insights.Messages(stats),
	})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session"]
	usage, err := s.engine.Usage(r.Context(), sessionID)
	if err != nil {
		handlers.SendError(w, http.StatusInternalServerError, handlers.ErrCodeInternalError, err.Error())
		return
	}
	handlers.SendJSON(w, http.StatusOK, usage)
}

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session"]
	report, err := s.engine.Compress(r.Context(), sessionID)
	if err != nil {
		handlers.SendError(w, http.StatusInternalServerError, handlers.ErrCodeInternalError, err.Error())
		return
	}
	handlers.SendJSON(w, http.StatusOK, report)
}
