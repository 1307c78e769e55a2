// Package server is folio's development server. It serves the dist tree
// without caching, injects a live-reload client into every HTML page and
// tells connected browsers to reload after each rebuild.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/folio/internal/build"
	folioerrors "github.com/conneroisu/folio/internal/errors"
	"github.com/conneroisu/folio/internal/logging"
)

// Reserved URL paths. They live under a prefix no build output uses.
const (
	WebSocketPath = "/_folio/ws"
	StatusPath    = "/_folio/status"
)

// Options configures a Server.
type Options struct {
	// Root is the directory being served.
	Root       string
	Host       string
	Port       int
	LiveReload bool
}

// UpdateMessage is sent to browsers over the live-reload socket.
type UpdateMessage struct {
	Type      string    `json:"type"`
	Target    string    `json:"target,omitempty"`
	Content   string    `json:"content,omitempty"`
	BuildID   string    `json:"build_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Message types.
const (
	MessageReload = "reload"
	MessageCSS    = "css"
	MessageError  = "error"
)

// Server serves the build output.
type Server struct {
	opts    Options
	logger  logging.Logger
	metrics *build.BuildMetrics

	httpServer  *http.Server
	serverMutex sync.RWMutex

	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *websocket.Conn
	done         chan struct{}

	reportMutex sync.RWMutex
	report      *build.Report

	shutdownOnce sync.Once
}

// New creates a Server and starts its live-reload hub. metrics may be nil.
func New(opts Options, metrics *build.BuildMetrics, logger logging.Logger) *Server {
	s := &Server{
		opts:       opts,
		logger:     logger.WithComponent("server"),
		metrics:    metrics,
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
	go s.runWebSocketHub()

	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, s.handleWebSocket)
	mux.HandleFunc(StatusPath, s.handleStatus)
	mux.HandleFunc("/", s.handleStatic)

	return s.logRequests(mux)
}

// Start listens on the configured address and serves until ctx is done or
// Shutdown is called. A listen failure is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return folioerrors.NewNetworkError(folioerrors.ErrCodeServerStart, "cannot listen on "+addr, err).
			WithComponent("server")
	}

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "serving", "root", s.opts.Root, "url", "http://"+ln.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return folioerrors.NewNetworkError(folioerrors.ErrCodeServerStart, "server stopped", err).
			WithComponent("server")
	}
	return nil
}

// Shutdown closes every live-reload connection and stops the HTTP server.
// It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "shutting down")
		close(s.done)

		s.clientsMutex.Lock()
		for conn, client := range s.clients {
			close(client.send)
			conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		s.clients = make(map[*websocket.Conn]*Client)
		s.clientsMutex.Unlock()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}

// NotifyBuild records report for the status page and tells browsers what to
// do: reload the stylesheets after a styles-only rebuild, reload the page
// after any other successful rebuild, or log the failure.
func (s *Server) NotifyBuild(report *build.Report) {
	s.reportMutex.Lock()
	s.report = report
	s.reportMutex.Unlock()

	msg := UpdateMessage{
		Type:      MessageReload,
		Target:    report.Targets.String(),
		BuildID:   report.ID,
		Timestamp: time.Now(),
	}
	switch {
	case !report.OK():
		msg.Type = MessageError
		msg.Content = report.Summary()
	case report.Targets == build.Styles:
		msg.Type = MessageCSS
	}

	s.Broadcast(msg)
}

// Broadcast sends msg to every connected browser.
func (s *Server) Broadcast(msg UpdateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn(context.Background(), err, "cannot encode update message")
		data = []byte(`{"type":"reload"}`)
	}

	select {
	case s.broadcast <- data:
	case <-s.done:
	}
}

// LastReport returns the most recent build report, or nil.
func (s *Server) LastReport() *build.Report {
	s.reportMutex.RLock()
	defer s.reportMutex.RUnlock()

	return s.report
}

// ClientCount returns the number of connected live-reload clients.
func (s *Server) ClientCount() int {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()

	return len(s.clients)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	setNoCache(w)

	upath := path.Clean("/" + r.URL.Path)
	name := filepath.Join(s.opts.Root, filepath.FromSlash(upath))

	info, err := os.Stat(name)
	if err != nil {
		s.notFound(w, r)
		return
	}
	if info.IsDir() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		name = filepath.Join(name, "index.html")
		if info, err = os.Stat(name); err != nil || info.IsDir() {
			s.notFound(w, r)
			return
		}
	}

	if s.opts.LiveReload && strings.EqualFold(filepath.Ext(name), ".html") {
		s.serveHTML(w, r, name)
		return
	}
	http.ServeFile(w, r, name)
}

func (s *Server) serveHTML(w http.ResponseWriter, r *http.Request, name string) {
	data, err := os.ReadFile(name)
	if err != nil {
		s.notFound(w, r)
		return
	}

	body := injectLiveReload(data)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func setNoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}
