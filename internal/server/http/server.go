// Package http serves the JSON-RPC dispatcher over WebSocket, plus health and
// discovery endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lfsdesk/internal/rpc"
	"github.com/brianly1003/lfsdesk/internal/rpc/handler"
	"github.com/brianly1003/lfsdesk/internal/rpc/transport"
	"github.com/brianly1003/lfsdesk/internal/server/http/middleware"
)

const (
	wsReadBufferSize  = 4096
	wsWriteBufferSize = 4096
	shutdownTimeout   = 10 * time.Second
)

// Info describes the server in discovery and health responses.
type Info struct {
	Name    string
	Version string
}

// Server is the HTTP/WebSocket front of the dispatcher.
type Server struct {
	addr      string
	info      Info
	rpcServer *rpc.Server
	registry  *handler.Registry
	limiter   *middleware.RateLimiter
	debug     bool
	started   time.Time

	router     *mux.Router
	httpServer *http.Server
	listener   net.Listener
	upgrader   websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimiter throttles websocket upgrades per client address.
func WithRateLimiter(l *middleware.RateLimiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithDebug mounts /debug/runtime and pprof.
func WithDebug(enabled bool) Option {
	return func(s *Server) { s.debug = enabled }
}

// WithInfo sets the name and version reported by /health and discovery.
func WithInfo(info Info) Option {
	return func(s *Server) { s.info = info }
}

// New creates a server listening on addr once started.
func New(addr string, rpcServer *rpc.Server, registry *handler.Registry, opts ...Option) *Server {
	s := &Server{
		addr:      addr,
		info:      Info{Name: "lfsdesk", Version: "dev"},
		rpcServer: rpcServer,
		registry:  registry,
		started:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  wsReadBufferSize,
		WriteBufferSize: wsWriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return middleware.IsLocalOrigin(r.Header.Get("Origin"))
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Logging, middleware.CORS)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/rpc/discover", s.handleDiscover).Methods(http.MethodGet, http.MethodOptions)

	if s.debug {
		s.registerDebug(router)
	}

	ws := router.PathPrefix("/ws").Subrouter()
	if s.limiter != nil {
		ws.Use(middleware.RateLimit(s.limiter))
	}
	ws.HandleFunc("", s.handleWebSocket).Methods(http.MethodGet)

	return router
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", ln.Addr().String()).Msg("websocket server listening")

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop closes every client and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("stopping websocket server")

	if err := s.rpcServer.Stop(); err != nil {
		log.Warn().Err(err).Msg("error stopping rpc clients")
	}
	if s.limiter != nil {
		s.limiter.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
	}
	return s.httpServer.Shutdown(ctx)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	Version       string `json:"version"`
	Clients       int    `json:"clients"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     int64  `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Service:       s.info.Name,
		Version:       s.info.Version,
		Clients:       s.rpcServer.ClientCount(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Timestamp:     time.Now().Unix(),
	})
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "rpc registry not available"})
		return
	}
	spec := s.registry.GenerateOpenRPC(handler.OpenRPCInfo{
		Title:       s.info.Name,
		Description: "Git LFS lock commands over JSON-RPC 2.0",
		Version:     s.info.Version,
	})
	respondJSON(w, http.StatusOK, spec)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	t := transport.NewWebSocketTransport(conn)
	log.Info().Str("client_id", t.ID()).Str("remote_addr", r.RemoteAddr).Msg("client connected")

	// The request context ends when the handler returns; the client lives until it hangs up.
	err = s.rpcServer.ServeTransport(context.WithoutCancel(r.Context()), t)

	log.Info().Str("client_id", t.ID()).AnErr("reason", err).Msg("client disconnected")
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}
