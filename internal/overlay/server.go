// Package overlay serves the live session view to streaming software over
// HTTP on the loopback interface.
package overlay

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/verte-zerg/switchlife/internal/logger"
	"github.com/verte-zerg/switchlife/internal/model"
	"github.com/verte-zerg/switchlife/internal/monitor"
)

//go:embed static
var assets embed.FS

// ErrRunning is returned by Start when the server is already listening.
var ErrRunning = errors.New("overlay server is already running")

const (
	defaultPushInterval = 100 * time.Millisecond
	writeTimeout        = 2 * time.Second
	shutdownTimeout     = 2 * time.Second
	followInterval      = 500 * time.Millisecond
)

// Server exposes the latest snapshot at /api/stats, the overlay page at /
// and a push stream at /ws.
type Server struct {
	shared   *monitor.Shared
	log      logger.Logger
	upgrader websocket.Upgrader
	interval atomic.Int64

	mu   sync.Mutex
	srv  *http.Server
	ln   net.Listener
	port uint16
	done chan struct{}
}

// New creates a stopped server reading from shared.
func New(shared *monitor.Shared, log logger.Logger) *Server {
	if log == nil {
		log = logger.New("[overlay]")
	}
	s := &Server{
		shared: shared,
		log:    log,
		upgrader: websocket.Upgrader{
			// Browser sources load the page from file:// or another port.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.interval.Store(int64(defaultPushInterval))
	return s
}

// Handler returns the HTTP routes without binding a listener.
func (s *Server) Handler() http.Handler {
	return s.handler(nil)
}

// handler builds the routes. Streams end when done is closed; a nil done
// keeps them open until the client leaves.
func (s *Server) handler(done <-chan struct{}) http.Handler {
	static, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	files := http.FileServer(http.FS(static))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		s.handleWS(w, r, done)
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, static, "overlay.html")
	})
	mux.Handle("GET /", files)
	return mux
}

// SetPushInterval changes how often /ws clients receive a snapshot.
func (s *Server) SetPushInterval(d time.Duration) {
	if d <= 0 {
		d = defaultPushInterval
	}
	s.interval.Store(int64(d))
}

// Start binds 127.0.0.1:port and serves in the background. Port 0 picks a
// free port.
func (s *Server) Start(port uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return ErrRunning
	}
	addr := net.JoinHostPort("127.0.0.1", fmt.Sprint(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	done := make(chan struct{})
	srv := &http.Server{
		Handler:           s.handler(done),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.srv, s.ln, s.port, s.done = srv, ln, port, done
	s.log.Info("listening on http://%s", ln.Addr())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("serve: %v", err)
		}
	}()
	return nil
}

// Stop shuts the server down and disconnects stream clients. Stopping a
// stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv, s.ln, s.done = nil, nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	close(done)
	err := srv.Shutdown(ctx)
	s.log.Info("stopped")
	return err
}

// Running reports whether the server is listening.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv != nil
}

// Addr returns the bound address, or "" when stopped.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Reconcile starts, stops or restarts the server so it matches cfg.
func (s *Server) Reconcile(ctx context.Context, cfg model.AppConfig) error {
	s.SetPushInterval(time.Duration(cfg.OverlayPollIntervalMs) * time.Millisecond)
	if !cfg.OverlayEnabled {
		return s.stopWithTimeout(ctx)
	}
	s.mu.Lock()
	running, port := s.srv != nil, s.port
	s.mu.Unlock()
	if running && port == cfg.OverlayPort {
		return nil
	}
	if running {
		if err := s.stopWithTimeout(ctx); err != nil {
			s.log.Warn("restart: %v", err)
		}
	}
	return s.Start(cfg.OverlayPort)
}

func (s *Server) stopWithTimeout(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return s.Stop(ctx)
}

// Follow reconciles against the published config until ctx is done, then
// stops the server.
func (s *Server) Follow(ctx context.Context) {
	var (
		last    model.AppConfig
		applied bool
	)
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()
	for {
		cfg := s.shared.Load().Config
		if !applied || cfg != last {
			if err := s.Reconcile(ctx, cfg); err != nil {
				s.log.Error("%v", err)
			}
			last, applied = cfg, true
		}
		select {
		case <-ctx.Done():
			if err := s.stopWithTimeout(ctx); err != nil {
				s.log.Warn("shutdown: %v", err)
			}
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(s.shared.Load()); err != nil {
		s.log.Debug("write stats: %v", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, done <-chan struct{}) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("upgrade: %v", err)
		return
	}
	defer conn.Close()

	// Reads only surface the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var (
		lastPublished time.Time
		sent          bool
	)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
				time.Now().Add(writeTimeout))
			return
		case <-closed:
			return
		case <-timer.C:
		}
		snap := s.shared.Load()
		if !sent || !snap.PublishedAt.Equal(lastPublished) {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				s.log.Debug("ws write: %v", err)
				return
			}
			lastPublished, sent = snap.PublishedAt, true
		}
		timer.Reset(time.Duration(s.interval.Load()))
	}
}
