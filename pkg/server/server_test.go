package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eneky/projet-ui/pkg/features/form"
	"github.com/eneky/projet-ui/pkg/middleware"
	"github.com/eneky/projet-ui/pkg/page"
	"github.com/eneky/projet-ui/pkg/pref"
)

const loginPage = `<!DOCTYPE html>
<html><head><title>Login</title></head>
<body>
<button id="theme-toggle"><svg viewBox="0 0 24 24"></svg></button>
<div class="alert-error">Bad password</div>
<form id="login" action="/login" method="post" data-submit="intercept" data-success-message="Welcome back">
  <input id="email" name="email" type="email" required>
  <button type="submit">Sign in</button>
</form>
<form id="search" action="/search" method="get">
  <input name="q">
  <button type="submit">Go</button>
</form>
</body></html>`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writePages(t *testing.T, pages map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range pages {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(src), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestServer(t *testing.T, mutate func(*Config)) (*Server, *httptest.Server) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PagesDir = writePages(t, map[string]string{
		"index.html":       loginPage,
		"about/index.html": `<html><body><p>About</p></body></html>`,
	})
	cfg.Logger = quietLogger()
	if mutate != nil {
		mutate(cfg)
	}
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		ts.Close()
	})
	return srv, ts
}

// client is a browser tab driven by the test.
type client struct {
	t    *testing.T
	conn *websocket.Conn
	doc  *page.Document
}

func fetch(t *testing.T, ts *httptest.Server, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func connect(t *testing.T, ts *httptest.Server, path string, storage map[string]string, cookies ...*http.Cookie) *client {
	t.Helper()
	resp, body := fetch(t, ts, path)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s = %d", path, resp.StatusCode)
	}
	doc, err := page.Parse(strings.NewReader(body), &url.URL{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	script := doc.Query(`script[data-version]`)
	if script == nil {
		t.Fatalf("served page has no client script:\n%s", body)
	}

	header := http.Header{}
	var parts []string
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	if len(parts) > 0 {
		header.Set("Cookie", strings.Join(parts, "; "))
	}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+WebSocketPath, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	c := &client{t: t, conn: conn, doc: doc}
	c.send(ClientMessage{Type: TypeHello, Path: path, Version: script.Attr("data-version"), Storage: storage})
	return c
}

func (c *client) send(msg ClientMessage) {
	c.t.Helper()
	if err := c.conn.WriteJSON(msg); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *client) hid(sel string) string {
	c.t.Helper()
	n := c.doc.Query(sel)
	if n == nil {
		c.t.Fatalf("no element matches %q", sel)
	}
	return n.HID
}

// await reads frames until a patch satisfies match.
func (c *client) await(what string, match func(page.Patch) bool) page.Patch {
	c.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = c.conn.SetReadDeadline(deadline)
		var msg ServerMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.t.Fatalf("waiting for %s: %v", what, err)
		}
		for _, p := range msg.Patches {
			if match(p) {
				return p
			}
		}
	}
}

func htmlContains(s string) func(page.Patch) bool {
	return func(p page.Patch) bool { return strings.Contains(p.HTML, s) }
}

func TestServePage(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, body := fetch(t, ts, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(body, `data-hid="`) {
		t.Error("page should carry hydration ids")
	}
	if !strings.Contains(body, `<script src="/_ui/client.js" data-version="`) {
		t.Error("page should load the client")
	}
	if i, j := strings.Index(body, "client.js"), strings.Index(body, "</body>"); i > j {
		t.Error("client script should be inside the body")
	}

	var visitor *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "projet_visitor" {
			visitor = c
		}
	}
	if visitor == nil || len(visitor.Value) != 26 || !visitor.HttpOnly {
		t.Errorf("visitor cookie = %+v, want an HttpOnly ulid", visitor)
	}

	if resp, _ := fetch(t, ts, "/about"); resp.StatusCode != http.StatusOK {
		t.Errorf("/about = %d, want 200", resp.StatusCode)
	}
	if resp, _ := fetch(t, ts, "/missing"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("/missing = %d, want 404", resp.StatusCode)
	}
}

func TestServePage_SameHIDsEachTime(t *testing.T) {
	_, ts := newTestServer(t, nil)
	_, a := fetch(t, ts, "/")
	_, b := fetch(t, ts, "/")
	if a != b {
		t.Error("the same page should render identically, or sessions could not find its elements")
	}
}

func TestServeClient(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, body := fetch(t, ts, ClientPath)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "WebSocket") {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/javascript") {
		t.Errorf("Content-Type = %q", ct)
	}
	etag := resp.Header.Get("ETag")
	if etag != clientETag {
		t.Fatalf("ETag = %q", etag)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+ClientPath, nil)
	req.Header.Set("If-None-Match", `W/`+etag)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotModified {
		t.Errorf("conditional GET = %d, want 304", resp2.StatusCode)
	}
}

func TestEtagMatches(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{`"abc"`, true},
		{`W/"abc"`, true},
		{`"x", "abc"`, true},
		{`"x"`, false},
		{`*`, true},
	}
	for _, tt := range tests {
		if got := etagMatches(tt.header, `"abc"`); got != tt.want {
			t.Errorf("etagMatches(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestForward(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, err := http.Post(ts.URL+"/login", "application/x-www-form-urlencoded", strings.NewReader("a=b"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("POST without upstream = %d, want 404", resp.StatusCode)
	}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", r.Method+" "+r.URL.Path)
	}))
	defer upstream.Close()
	target, _ := url.Parse(upstream.URL)
	_, proxied := newTestServer(t, func(c *Config) { c.Upstream = target })

	resp, err = http.Post(proxied.URL+"/login", "application/x-www-form-urlencoded", strings.NewReader("a=b"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Upstream"); got != "POST /login" {
		t.Errorf("upstream saw %q", got)
	}
	if resp, _ := fetch(t, proxied, "/api/items"); resp.Header.Get("X-Upstream") != "GET /api/items" {
		t.Error("unknown GET paths should go upstream")
	}
}

func TestStaticFiles(t *testing.T) {
	static := t.TempDir()
	os.WriteFile(filepath.Join(static, "app.css"), []byte("body{}"), 0644)
	_, ts := newTestServer(t, func(c *Config) { c.StaticDir = static })

	if resp, body := fetch(t, ts, "/static/app.css"); resp.StatusCode != http.StatusOK || body != "body{}" {
		t.Errorf("static file = %d %q", resp.StatusCode, body)
	}
}

func TestNew_MissingPagesDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PagesDir = filepath.Join(t.TempDir(), "nope")
	cfg.Logger = quietLogger()
	if _, err := New(cfg); err == nil || !strings.Contains(err.Error(), "E203") {
		t.Errorf("New() = %v, want E203", err)
	}
}

func TestSession_FlashMessageBecomesToast(t *testing.T) {
	_, ts := newTestServer(t, nil)
	c := connect(t, ts, "/", nil)

	c.await("error toast", htmlContains("Bad password"))
}

func TestSession_ThemeToggle(t *testing.T) {
	store := pref.NewMemoryStore()
	srv, ts := newTestServer(t, func(c *Config) { c.Store = store })
	c := connect(t, ts, "/", nil, &http.Cookie{Name: "projet_visitor", Value: "v1"})

	c.send(ClientMessage{Type: TypeClick, HID: c.hid("#theme-toggle")})
	c.await("storage patch", func(p page.Patch) bool {
		return p.Op == page.OpStorage && p.Key == "theme" && p.Value == "dark"
	})

	// Closing sessions waits for store writes.
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec, ok, err := store.Get(context.Background(), "v1/theme")
	if err != nil || !ok || string(rec.Value) != `"dark"` {
		t.Errorf("stored theme = %s, %v, %v", rec.Value, ok, err)
	}
}

func TestSession_StoredThemeAppliedOnNewDevice(t *testing.T) {
	store := pref.NewMemoryStore()
	pref.Save(context.Background(), store, "v2/theme", "dark", time.Now())
	_, ts := newTestServer(t, func(c *Config) { c.Store = store })

	c := connect(t, ts, "/", map[string]string{}, &http.Cookie{Name: "projet_visitor", Value: "v2"})
	root := c.doc.Root().HID
	c.await("dark class", func(p page.Patch) bool {
		return p.Op == page.OpSetAttr && p.HID == root && p.Key == "class" && p.Value == "dark"
	})
}

func TestSession_InterceptedSubmit(t *testing.T) {
	var (
		mu        sync.Mutex
		gotBody   string
		gotCookie string
	)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotBody = string(body)
		if ck, err := r.Cookie("session"); err == nil {
			gotCookie = ck.Value
		}
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()
	target, _ := url.Parse(upstream.URL)

	_, ts := newTestServer(t, func(c *Config) {
		c.Upstream = target
		c.ForwardCookie = true
	})
	c := connect(t, ts, "/", nil, &http.Cookie{Name: "session", Value: "s3cr3t"})

	c.send(ClientMessage{
		Type:   TypeSubmit,
		HID:    c.hid("#login"),
		Fields: url.Values{"email": {"ada@example.com"}},
	})
	c.await("overlay", htmlContains("Sending..."))
	c.await("success toast", htmlContains("Welcome back"))

	mu.Lock()
	defer mu.Unlock()
	if gotBody != "email=ada%40example.com" {
		t.Errorf("upstream body = %q", gotBody)
	}
	if gotCookie != "s3cr3t" {
		t.Errorf("upstream session cookie = %q, want forwarded", gotCookie)
	}
}

func TestSession_PassiveSubmitShowsOverlay(t *testing.T) {
	_, ts := newTestServer(t, nil)
	c := connect(t, ts, "/", nil)

	searchForm := c.hid("#search")
	c.send(ClientMessage{Type: TypeSubmit, HID: searchForm, Fields: url.Values{"q": {"go"}}})
	c.await("overlay", func(p page.Patch) bool {
		return p.Op == page.OpInner && strings.Contains(p.HTML, form.DefaultSubmitText)
	})
}

func TestSession_BlurAndInput(t *testing.T) {
	_, ts := newTestServer(t, nil)
	c := connect(t, ts, "/", nil)
	email := c.hid("#email")

	c.send(ClientMessage{Type: TypeBlur, HID: email, Value: ""})
	errPatch := c.await("field error", func(p page.Patch) bool {
		return p.Op == page.OpInsertAfter && p.HID == email && strings.Contains(p.HTML, form.ErrorClass)
	})
	if !strings.Contains(errPatch.HTML, `role="alert"`) {
		t.Errorf("error element = %s", errPatch.HTML)
	}

	c.send(ClientMessage{Type: TypeInput, HID: email, Value: "a"})
	c.await("error cleared", func(p page.Patch) bool { return p.Op == page.OpRemove })
}

func TestSession_OnBoot(t *testing.T) {
	_, ts := newTestServer(t, func(c *Config) {
		c.OnBoot = func(s *Session) {
			if s.Utils() == nil || s.Visitor() != "v9" {
				return
			}
			s.Utils().ShowInfo("Maintenance tonight")
		}
	})
	c := connect(t, ts, "/", nil, &http.Cookie{Name: "projet_visitor", Value: "v9"})
	c.await("info toast", htmlContains("Maintenance tonight"))
}

func TestSession_DispatchFlushesPatches(t *testing.T) {
	booted := make(chan *Session, 1)
	_, ts := newTestServer(t, func(c *Config) {
		c.OnBoot = func(s *Session) { booted <- s }
	})
	c := connect(t, ts, "/about", nil)

	var sess *Session
	select {
	case sess = <-booted:
	case <-time.After(3 * time.Second):
		t.Fatal("session did not boot")
	}
	sess.Dispatch(func() {
		doc := sess.Document()
		doc.SetAttr(doc.Body(), "data-state", "ready")
	})
	c.await("dispatched patch", func(p page.Patch) bool { return p.Key == "data-state" && p.Value == "ready" })
}

func TestSession_RateLimit(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(middleware.WithRegistry(reg))
	_, ts := newTestServer(t, func(c *Config) {
		c.Metrics = metrics
		c.EventsPerSecond = 0.001
		c.EventBurst = 1
	})
	c := connect(t, ts, "/", nil)
	toggle := c.hid("#theme-toggle")

	c.send(ClientMessage{Type: TypeClick, HID: toggle})
	c.send(ClientMessage{Type: TypeClick, HID: toggle})

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if counterValue(t, reg, "projet_ui_websocket_errors_total", "rate_limit") == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("second event should be dropped by the rate limiter")
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestSession_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, ts := newTestServer(t, func(c *Config) {
		c.Metrics = middleware.NewMetrics(middleware.WithRegistry(reg))
	})
	c := connect(t, ts, "/", nil)
	c.await("error toast", htmlContains("Bad password"))

	_, body := fetch(t, ts, "/metrics")
	for _, want := range []string{"projet_ui_active_sessions 1", `projet_ui_toasts_total{severity="error"} 1`} {
		if !strings.Contains(body, want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}

func TestHandshake_StaleVersionReloads(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+WebSocketPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.WriteJSON(ClientMessage{Type: TypeHello, Path: "/", Version: "000000000000"})
	var msg ServerMessage
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if !msg.Reload {
		t.Errorf("stale page should be reloaded, got %+v", msg)
	}
}

func TestHandshake_RequiresHello(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+WebSocketPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.WriteJSON(ClientMessage{Type: TypeClick, HID: "h1"})
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Errorf("read error = %v, want policy violation close", err)
	}
	if srv.SessionCount() != 0 {
		t.Error("no session should be registered")
	}
}

func TestCheckOrigin(t *testing.T) {
	_, ts := newTestServer(t, func(c *Config) { c.AllowedOrigins = []string{"https://app.example"} })
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + WebSocketPath

	for origin, ok := range map[string]bool{
		"https://evil.example": false,
		"https://app.example":  true,
		ts.URL:                 true,
	} {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {origin}})
		if (err == nil) != ok {
			t.Errorf("origin %s: err = %v, want allowed=%v", origin, err, ok)
		}
		if conn != nil {
			conn.Close()
		}
	}
}

func TestSession_CloseRemovesSession(t *testing.T) {
	booted := make(chan *Session, 1)
	srv, ts := newTestServer(t, func(c *Config) {
		c.OnBoot = func(s *Session) { booted <- s }
	})
	c := connect(t, ts, "/about", nil)

	var sess *Session
	select {
	case sess = <-booted:
	case <-time.After(3 * time.Second):
		t.Fatal("session did not boot")
	}
	if srv.SessionCount() != 1 {
		t.Fatalf("SessionCount = %d, want 1", srv.SessionCount())
	}

	c.conn.Close()
	select {
	case <-sess.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("session should end with its connection")
	}
	deadline := time.Now().Add(time.Second)
	for srv.SessionCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if srv.SessionCount() != 0 {
		t.Error("closed session should be removed")
	}
}

func TestServerMessageJSON(t *testing.T) {
	data, err := json.Marshal(ServerMessage{Patches: []page.Patch{{Op: page.OpRemove, HID: "h3"}}})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte(`{"patches":[{"op":"remove","hid":"h3"}]}`)) {
		t.Errorf("frame = %s", data)
	}
}
