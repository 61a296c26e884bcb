// Package gateway exposes tooldeck to its host: an HTTP API for tool
// discovery and invocation, a JWT-guarded login for operators, and a
// websocket channel that delivers confirmation prompts to consoles.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mktr-labs/tooldeck/internal/audit"
	"github.com/mktr-labs/tooldeck/internal/config"
	"github.com/mktr-labs/tooldeck/internal/interfaces"
	"github.com/mktr-labs/tooldeck/internal/tools"
)

// AuditSource reads back the invocation journal for the /api/audit route.
type AuditSource interface {
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// Server is the HTTP gateway.
type Server struct {
	cfg        *config.Config
	runner     *tools.Runner
	broker     *ConfirmBroker
	journal    AuditSource
	logger     *slog.Logger
	httpServer *http.Server
	startedAt  time.Time
}

// NewServer creates a gateway server. journal may be nil when auditing is
// disabled.
func NewServer(cfg *config.Config, runner *tools.Runner, broker *ConfirmBroker, journal AuditSource, logger *slog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		runner:  runner,
		broker:  broker,
		journal: journal,
		logger:  logger.With("component", "gateway"),
	}
}

// Handler builds the route table; exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.Handle("/api/tools", s.authMiddleware(http.HandlerFunc(s.handleTools)))
	mux.Handle("/api/tools/invoke", s.authMiddleware(http.HandlerFunc(s.handleInvoke)))
	mux.Handle("/api/audit", s.authMiddleware(http.HandlerFunc(s.handleAudit)))
	mux.Handle("/ws/operator", s.authMiddleware(http.HandlerFunc(s.handleOperatorWS)))

	return s.corsMiddleware(s.loggingMiddleware(mux))
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.startedAt = time.Now()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // invocations and websockets outlive short write deadlines
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("gateway starting", "port", s.cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":               "ok",
		"uptime_secs":          int64(time.Since(s.startedAt).Seconds()),
		"tools":                len(s.runner.Schemas()),
		"pending_confirmation": len(s.broker.Pending()),
	})
}

// handleLogin exchanges the operator password for a JWT.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	if !s.cfg.Auth.Enabled {
		http.Error(w, `{"error":"authentication is disabled"}`, http.StatusNotFound)
		return
	}

	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := CheckPassword(s.cfg.Auth.PasswordHash, body.Password); err != nil {
		s.logger.Warn("operator login rejected", "remote", r.RemoteAddr)
		http.Error(w, `{"error":"bad credentials"}`, http.StatusUnauthorized)
		return
	}

	ttl := time.Duration(s.cfg.Auth.TokenTTLMinutes) * time.Minute
	token, err := GenerateToken("operator", []byte(s.cfg.Auth.JWTSecret), ttl)
	if err != nil {
		http.Error(w, `{"error":"token generation failed"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleTools returns the JSON schemas of all exposed tools.
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tools": s.runner.Schemas(),
	})
}

// handleInvoke executes one tool call synchronously and returns its
// ToolResult. Tool-level failures still produce HTTP 200: the error status
// inside the result is the host's contract.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req interfaces.InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Tool == "" {
		http.Error(w, `{"error":"missing tool name"}`, http.StatusBadRequest)
		return
	}

	result := s.runner.Execute(r.Context(), req)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		http.Error(w, `{"error":"audit journal is disabled"}`, http.StatusNotFound)
		return
	}

	entries, err := s.journal.Recent(r.Context(), 100)
	if err != nil {
		s.logger.Error("audit query failed", "error", err)
		http.Error(w, `{"error":"audit query failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
