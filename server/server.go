// Package server exposes one conversation session per browser WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"senaibot/core"
	"senaibot/session"
	wstransport "senaibot/transports/websocket"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Config struct {
	ListenAddr             string   `json:"listen_addr"`
	Path                   string   `json:"path"`
	LogDir                 string   `json:"log_dir"`              // Empty disables per-session log files.
	AllowLogForwarding     bool     `json:"allow_log_forwarding"` // Lets a browser request its session logs with ?logs=1.
	AllowedOrigins         []string `json:"allowed_origins,omitempty"`
	ReadBufferSize         int      `json:"read_buffer_size"`
	WriteBufferSize        int      `json:"write_buffer_size"`
	ShutdownTimeoutSeconds int      `json:"shutdown_timeout_seconds"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		ListenAddr:             ":8080",
		Path:                   "/ws",
		LogDir:                 "./logs",
		ReadBufferSize:         4096,
		WriteBufferSize:        4096,
		ShutdownTimeoutSeconds: 10,
	}
}

// SessionFactory builds the session for a new connection. The connection is
// both its microphone and its speaker.
type SessionFactory func(ctx context.Context, id string, mic core.Microphone, speaker core.Speaker, logger *core.Logger) (*session.Session, error)

type Server struct {
	config     Config
	transport  wstransport.Config
	newSession SessionFactory
	logger     *core.Logger
	upgrader   websocket.Upgrader

	active   atomic.Int64
	sessions sync.WaitGroup
}

func New(config Config, transport wstransport.Config, newSession SessionFactory, logger *core.Logger) *Server {
	if logger == nil {
		logger = core.GetLogger()
	}
	if config.Path == "" {
		config.Path = DefaultConfig().Path
	}
	s := &Server{
		config:     config,
		transport:  transport,
		newSession: newSession,
		logger:     logger.With(map[string]interface{}{"component": "server"}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.config.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// Handler returns the HTTP routes: the session WebSocket and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// ActiveSessions reports the number of connected sessions.
func (s *Server) ActiveSessions() int {
	return int(s.active.Load())
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.config.ListenAddr, "path", s.config.Path)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	timeout := time.Duration(s.config.ShutdownTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(DefaultConfig().ShutdownTimeoutSeconds) * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.sessions.Wait()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body, _ := sonic.Marshal(map[string]interface{}{
		"status":   "ok",
		"sessions": s.ActiveSessions(),
	})
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	s.sessions.Add(1)
	s.active.Add(1)
	defer func() {
		s.active.Add(-1)
		s.sessions.Done()
	}()

	id := uuid.NewString()
	conn, err := wstransport.NewConn(raw, s.transport, s.logger.With(map[string]interface{}{"session_id": id}))
	if err != nil {
		s.logger.Error("invalid transport config", "error", err)
		raw.Close()
		return
	}
	defer conn.Close()

	logger, closeLogs := s.sessionLogger(id, r, conn)
	defer closeLogs()

	newConversation(id, conn, s.newSession, logger).run()
}

// sessionLogger tees the base logger into the session's log file and, when
// requested and allowed, into the browser.
func (s *Server) sessionLogger(id string, r *http.Request, conn *wstransport.Conn) (*core.Logger, func()) {
	var writers core.MultiLogWriter
	if s.config.LogDir != "" {
		fileWriter, err := core.NewSessionLogWriter(s.config.LogDir, id, r.RemoteAddr)
		if err != nil {
			s.logger.Warn("session log file disabled", "error", err, "session_id", id)
		} else {
			writers = append(writers, fileWriter)
		}
	}
	if s.config.AllowLogForwarding && r.URL.Query().Get("logs") == "1" {
		writers = append(writers, wstransport.NewLogForwarder(conn, id))
	}
	if len(writers) == 0 {
		return s.logger, func() {}
	}
	return core.NewSessionLogger(s.logger, writers), writers.Close
}
