package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/eneky/projet-ui/internal/errors"
	"github.com/eneky/projet-ui/pkg/app"
	"github.com/eneky/projet-ui/pkg/features/form"
	"github.com/eneky/projet-ui/pkg/loop"
	"github.com/eneky/projet-ui/pkg/middleware"
	"github.com/eneky/projet-ui/pkg/page"
	"github.com/eneky/projet-ui/pkg/theme"
)

const (
	// sendBuffer is the number of outgoing frames a slow browser may lag.
	sendBuffer = 64
	writeWait  = 10 * time.Second
)

// Session is one connected browser tab. Its document and components are
// only touched from its loop.
type Session struct {
	id      string
	visitor string
	path    string

	srv     *Server
	conn    *websocket.Conn
	loop    *loop.Loop
	doc     *page.Document
	deps    app.Deps
	utils   *app.Utils
	limiter *rate.Limiter
	handler middleware.Handler
	metrics *middleware.SessionMetrics

	send      chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	logger    *slog.Logger
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Visitor returns the visitor id of the browser.
func (s *Session) Visitor() string { return s.visitor }

// Document returns the page document. Use it from the loop only.
func (s *Session) Document() *page.Document { return s.doc }

// Utils returns the page utilities, nil until the page has booted. Use it
// from the loop only.
func (s *Session) Utils() *app.Utils { return s.utils }

// Dispatch runs fn on the session loop. Patches fn records are sent once it
// returns.
func (s *Session) Dispatch(fn func()) { s.loop.Dispatch(fn) }

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// cookieClient adds the browser's login cookie to intercepted submissions.
type cookieClient struct {
	client  *http.Client
	cookies []*http.Cookie
}

func (c cookieClient) Do(req *http.Request) (*http.Response, error) {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	return c.client.Do(req)
}

func (srv *Server) newSession(conn *websocket.Conn, r *http.Request, hello ClientMessage, visitor string) (*Session, error) {
	cfg := srv.cfg
	pageURL, err := pageURL(r, hello.Path)
	if err != nil {
		return nil, errors.New("E404").WithDetail("invalid page path " + hello.Path).Wrap(err)
	}
	pg, ok := srv.pages.Lookup(pageURL.Path)
	if !ok {
		return nil, errors.New("E404").WithDetail("no page for " + pageURL.Path)
	}
	doc, err := page.Parse(bytes.NewReader(pg.Source), pageURL)
	if err != nil {
		return nil, errors.New("E404").WithDetail("page " + pg.Name + " does not parse").Wrap(err)
	}
	doc.LoadStorage(hello.Storage)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:      newID(),
		visitor: visitor,
		path:    pageURL.Path,
		srv:     srv,
		conn:    conn,
		doc:     doc,
		send:    make(chan []byte, sendBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.logger = srv.logger.With("session", s.id, "path", s.path)
	s.loop = loop.New(s.logger)
	s.loop.AfterEach = s.flush

	if cfg.EventsPerSecond > 0 {
		burst := cfg.EventBurst
		if burst <= 0 {
			burst = int(cfg.EventsPerSecond)
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.EventsPerSecond), burst)
	}

	client := cookieClient{client: &http.Client{Timeout: cfg.SubmitTimeout}}
	if cfg.ForwardCookie && cfg.SessionCookie != "" {
		if ck, err := r.Cookie(cfg.SessionCookie); err == nil {
			client.cookies = append(client.cookies, &http.Cookie{Name: ck.Name, Value: ck.Value})
		}
	}

	opts := app.Options{
		Client:          client,
		Store:           cfg.Store,
		Visitor:         visitor,
		PreferStored:    cfg.PreferStoredTheme,
		ToastDurations:  cfg.ToastDurations,
		FallbackTimeout: cfg.FallbackTimeout,
		Logger:          s.logger,
	}
	if cfg.Metrics != nil {
		s.metrics = cfg.Metrics.Session()
		opts.Observers = app.Observers{Toasts: s.metrics, Overlays: s.metrics, Forms: s.metrics}
	}
	s.deps = app.NewDeps(doc, s.loop, opts)
	s.deps.SavedTheme = hello.Storage[theme.StorageKey]
	s.handler = middleware.Chain(s.route, srv.middlewares...)
	return s, nil
}

// pageURL rebuilds the page address the browser is showing.
func pageURL(r *http.Request, p string) (*url.URL, error) {
	ref, err := url.Parse(p)
	if err != nil {
		return nil, err
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	base := &url.URL{Scheme: scheme, Host: r.Host, Path: "/"}
	u := base.ResolveReference(ref)
	u.Fragment = ""
	return u, nil
}

// start loads the stored theme, boots the page and runs the session until
// the connection ends.
func (s *Session) start() {
	ctx, cancel := context.WithTimeout(s.ctx, theme.SaveTimeout)
	if err := s.deps.Theme.Load(ctx); err != nil {
		s.logger.Warn("failed to load stored theme", "error", err)
	}
	cancel()

	go s.loop.Run(s.ctx)
	s.loop.Dispatch(func() {
		s.utils = app.Boot(s.doc, s.deps)
		if s.srv.cfg.OnBoot != nil {
			s.srv.cfg.OnBoot(s)
		}
	})

	go s.writeLoop()
	s.readLoop()
}

func (s *Session) readLoop() {
	defer s.Close()

	pongWait := 2 * s.srv.cfg.PingInterval
	s.conn.SetReadLimit(s.srv.cfg.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Warn("read error", "error", err)
				s.recordError("read")
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := DecodeMessage(data)
		if err != nil {
			s.logger.Warn("bad client message", "error", err)
			s.recordError("decode")
			continue
		}
		if msg.Type == TypeHello {
			s.logger.Debug("ignoring repeated hello")
			continue
		}
		if s.limiter != nil && !s.limiter.Allow() {
			s.logger.Warn("event dropped", "type", msg.Type, "error", errors.New("E403"))
			s.recordError("rate_limit")
			continue
		}

		ev := &middleware.Event{
			Type:    msg.Type,
			HID:     msg.HID,
			Path:    s.path,
			Session: s.id,
			Visitor: s.visitor,
			Value:   msg.Value,
			Fields:  msg.Fields,
		}
		s.loop.Dispatch(func() {
			_ = s.handler(s.ctx, ev)
		})
	}
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(s.srv.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn("write error", "error", err)
				s.recordError("write")
				s.Close()
				return
			}

		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.recordError("ping")
				s.Close()
				return
			}

		case <-s.ctx.Done():
			return
		}
	}
}

// flush sends the patches recorded by the last callback.
func (s *Session) flush() {
	patches := s.doc.TakePatches()
	if len(patches) == 0 {
		return
	}
	data, err := json.Marshal(ServerMessage{Patches: patches})
	if err != nil {
		s.logger.Error("failed to encode patches", "error", err)
		return
	}
	select {
	case s.send <- data:
		if s.srv.cfg.Metrics != nil {
			s.srv.cfg.Metrics.RecordPatches(len(patches))
		}
	case <-s.ctx.Done():
	default:
		s.logger.Warn("browser too slow, closing session", "pending", len(s.send))
		s.recordError("backpressure")
		go s.Close()
	}
}

// route handles one event on the loop.
func (s *Session) route(ctx context.Context, ev *middleware.Event) error {
	defer func() { ev.Patches = s.doc.Pending() }()

	target := s.doc.ByHID(ev.HID)
	if target == nil {
		return unknownTarget(ev)
	}

	switch ev.Type {
	case TypeClick:
		if s.deps.Toasts.Dismiss(ev.HID) {
			return nil
		}
		if s.deps.Theme.IsToggle(target) {
			s.deps.Theme.Toggle()
			return nil
		}
		return unknownTarget(ev)

	case TypeSubmit:
		if target.Tag != "form" {
			return unknownTarget(ev)
		}
		form.Apply(s.doc, target, ev.Fields)
		if s.deps.Submitter.Intercepts(target) {
			s.deps.Submitter.Submit(ctx, target)
			return nil
		}
		s.deps.Enhancer.Submitted(target)

	case TypeBlur:
		s.doc.SetValue(target, ev.Value)
		if s.deps.Validator.Watches(target) {
			s.deps.Validator.Blur(target)
		}

	case TypeInput:
		s.doc.SetValue(target, ev.Value)
		if s.deps.Validator.Watches(target) {
			s.deps.Validator.Input(target)
		}

	default:
		return errors.New("E401").WithDetail("event type " + ev.Type)
	}
	return nil
}

func unknownTarget(ev *middleware.Event) error {
	return errors.New("E402").WithDetail(ev.Type + " on element " + ev.HID + " not found")
}

func (s *Session) recordError(kind string) {
	if s.srv.cfg.Metrics != nil {
		s.srv.cfg.Metrics.RecordWebSocketError(kind)
	}
}

// Close ends the session. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.loop.Close()
		_ = s.conn.Close()
		s.deps.Theme.Flush()
		if s.metrics != nil {
			s.metrics.Close()
		}
		s.srv.removeSession(s)
		s.logger.Debug("session closed")
	})
}
