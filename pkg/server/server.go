package server

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/eneky/projet-ui/internal/errors"
	"github.com/eneky/projet-ui/pkg/middleware"
	"github.com/eneky/projet-ui/pkg/page"
)

// WebSocketPath is where the thin client connects.
const WebSocketPath = "/_ui/ws"

// visitorMaxAge keeps the visitor cookie for a year.
const visitorMaxAge = 365 * 24 * 60 * 60

// Server serves the pages and runs one Session per connected tab.
type Server struct {
	cfg         *Config
	pages       *Pages
	router      chi.Router
	upgrader    websocket.Upgrader
	proxy       *httputil.ReverseProxy
	middlewares []middleware.Middleware

	mu       sync.Mutex
	sessions map[string]*Session

	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server and loads its pages.
func New(cfg *Config) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.withDefaults()
	logger := cfg.Logger.With("component", "server")

	pages, err := LoadPages(cfg.PagesDir, cfg.Logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		pages:    pages,
		sessions: make(map[string]*Session),
		logger:   logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	if cfg.Upstream != nil {
		s.proxy = httputil.NewSingleHostReverseProxy(cfg.Upstream)
		s.proxy.ErrorLog = slog.NewLogLogger(logger.Handler(), slog.LevelWarn)
	}

	s.middlewares = []middleware.Middleware{middleware.Logging(cfg.Logger)}
	if cfg.Tracing {
		s.middlewares = append(s.middlewares, middleware.OpenTelemetry())
	}
	if cfg.Metrics != nil {
		s.middlewares = append(s.middlewares, cfg.Metrics.Middleware())
	}

	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get(ClientPath, s.serveClient)
	r.Head(ClientPath, s.serveClient)
	r.Get(WebSocketPath, s.handleWebSocket)
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics.Handler())
	}
	if s.cfg.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.StaticDir))))
	}
	r.Get("/*", s.servePage)
	r.NotFound(s.forward)
	r.MethodNotAllowed(s.forward)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Pages returns the loaded pages.
func (s *Server) Pages() *Pages { return s.pages }

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func newID() string {
	return ulid.Make().String()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	host := strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
	return strings.EqualFold(host, r.Host)
}

// visitor returns the visitor id, issuing a cookie when the browser has none.
func (s *Server) visitor(w http.ResponseWriter, r *http.Request) string {
	if ck, err := r.Cookie(s.cfg.VisitorCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	id := newID()
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.VisitorCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   visitorMaxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// servePage renders a page with hydration ids and the client script.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	pg, ok := s.pages.Lookup(r.URL.Path)
	if !ok {
		s.forward(w, r)
		return
	}

	doc, err := page.Parse(bytes.NewReader(pg.Source), r.URL)
	if err != nil {
		s.logger.Error("page does not parse", "page", pg.Name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		s.logger.Error("page render failed", "page", pg.Name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.visitor(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(injectClient(buf.Bytes(), pg.Version))
}

// forward hands requests that are not pages to the upstream application.
func (s *Server) forward(w http.ResponseWriter, r *http.Request) {
	if s.proxy == nil {
		http.NotFound(w, r)
		return
	}
	s.proxy.ServeHTTP(w, r)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	var visitor string
	if ck, err := r.Cookie(s.cfg.VisitorCookie); err == nil {
		visitor = ck.Value
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		s.recordError("upgrade")
		return
	}

	hello, err := s.handshake(conn)
	if err != nil {
		s.logger.Warn("handshake failed", "error", err)
		s.recordError("handshake")
		s.closeConn(conn, websocket.ClosePolicyViolation, "handshake failed")
		return
	}

	if pg, ok := s.pages.Lookup(pathOnly(hello.Path)); ok && hello.Version != "" && hello.Version != pg.Version {
		s.reload(conn)
		return
	}

	sess, err := s.newSession(conn, r, hello, visitor)
	if err != nil {
		s.logger.Warn("session rejected", "error", err)
		s.reload(conn)
		return
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	sess.logger.Debug("session started", "visitor", visitor)

	sess.start()
}

func (s *Server) handshake(conn *websocket.Conn) (ClientMessage, error) {
	conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return ClientMessage{}, errors.New("E404").Wrap(err)
	}
	msg, err := DecodeMessage(data)
	if err != nil {
		return msg, errors.New("E404").Wrap(err)
	}
	if msg.Type != TypeHello {
		return msg, errors.New("E404").WithDetail("first message was " + msg.Type)
	}
	return msg, nil
}

// reload tells the browser its page is stale and closes the connection.
func (s *Server) reload(conn *websocket.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(ServerMessage{Reload: true})
	s.closeConn(conn, websocket.CloseNormalClosure, "reload")
}

func (s *Server) closeConn(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
	_ = conn.Close()
}

func pathOnly(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		return p[:i]
	}
	return p
}

func (s *Server) recordError(kind string) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordWebSocketError(kind)
	}
}

func (s *Server) removeSession(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
}

// Run serves until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if s.cfg.WatchPages {
		go func() {
			if err := s.pages.Watch(ctx); err != nil {
				s.logger.Warn("page watching disabled", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.cfg.Address, "pages", s.pages.Len())
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return errors.New("E204").WithDetail("listening on " + s.cfg.Address).Wrap(err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every session, then stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}
