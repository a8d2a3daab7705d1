// Package api serves the poller's health and status over HTTP.
package api

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"
)

// Server wraps the HTTP API and its config/state
type Server struct {
	Source StatusSource
	Addr   string
	Logger *log.Logger
	Config *Config
	server *http.Server
}

type Config struct {
	ListenAddr string   `mapstructure:"listen_addr"`
	AuthTokens []string `mapstructure:"auth_tokens"`
}

func NewServer(source StatusSource, config Config, logger *log.Logger) *Server {
	return &Server{
		Source: source,
		Addr:   config.ListenAddr,
		Config: &config,
		Logger: logger,
	}
}

// Handler builds the API routes. /healthz is always open; /api/ requires a
// bearer token when any are configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	// Health endpoint
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	protected := http.NewServeMux()
	RegisterStatusHandlers(protected, s.Source)

	if len(s.Config.AuthTokens) > 0 {
		mux.Handle("/api/", TokenAuthMiddleware(s.Config.AuthTokens, protected))
	} else {
		mux.Handle("/api/", protected)
	}
	return mux
}

// Start serves until ctx is cancelled. A clean shutdown returns nil.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.Logger.Printf("[ ] Status API listening on %s", ln.Addr())
	err := s.server.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
