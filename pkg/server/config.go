package server

import (
	"log/slog"
	"net/url"
	"time"

	"github.com/eneky/projet-ui/pkg/middleware"
	"github.com/eneky/projet-ui/pkg/pref"
	"github.com/eneky/projet-ui/pkg/toast"
)

// Config configures a Server.
type Config struct {
	// Address is the listen address (host:port).
	Address string

	// PagesDir holds the HTML pages. Required.
	PagesDir string

	// WatchPages reloads pages when files change.
	WatchPages bool

	// StaticDir, when set, is served under /static/.
	StaticDir string

	// Upstream receives every request that is not a page, such as form
	// posts. Nil answers them with 404.
	Upstream *url.URL

	// AllowedOrigins lists the origins accepted for the websocket. Empty
	// accepts same-host requests only.
	AllowedOrigins []string

	// EventsPerSecond and EventBurst limit inbound events per session.
	// Zero disables the limit.
	EventsPerSecond float64
	EventBurst      int

	// MaxMessageSize bounds one client frame.
	MaxMessageSize int64

	// PingInterval is the websocket keepalive period.
	PingInterval time.Duration

	// HandshakeTimeout bounds the wait for the hello message.
	HandshakeTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// VisitorCookie names the cookie identifying a browser across sessions.
	VisitorCookie string

	// SessionCookie names the application's login cookie. With
	// ForwardCookie it is copied onto intercepted form submissions.
	SessionCookie string
	ForwardCookie bool

	// ToastDurations overrides the default toast lifetimes.
	ToastDurations map[toast.Type]time.Duration

	// FallbackTimeout releases overlays of forms that did not navigate away.
	FallbackTimeout time.Duration

	// SubmitTimeout bounds one intercepted submission.
	SubmitTimeout time.Duration

	// Store persists the theme per visitor. Nil keeps it in the browser.
	Store pref.Store
	// PreferStoredTheme lets a stored theme override the browser's value.
	PreferStoredTheme bool

	// Metrics, when set, instruments events and serves /metrics.
	Metrics *middleware.Metrics

	// Tracing adds an OpenTelemetry span per event.
	Tracing bool

	// OnBoot runs on the session loop once a page has booted.
	OnBoot func(*Session)

	Logger *slog.Logger
}

// DefaultConfig returns a Config with default settings.
func DefaultConfig() *Config {
	return &Config{
		Address:          "localhost:8001",
		PagesDir:         "pages",
		EventsPerSecond:  20,
		EventBurst:       40,
		MaxMessageSize:   64 * 1024,
		PingInterval:     30 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		VisitorCookie:    "projet_visitor",
		SessionCookie:    "session",
		FallbackTimeout:  10 * time.Second,
		SubmitTimeout:    30 * time.Second,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	out := *c
	d := DefaultConfig()
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.PagesDir == "" {
		out.PagesDir = d.PagesDir
	}
	if out.MaxMessageSize == 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	if out.PingInterval == 0 {
		out.PingInterval = d.PingInterval
	}
	if out.HandshakeTimeout == 0 {
		out.HandshakeTimeout = d.HandshakeTimeout
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}
	if out.VisitorCookie == "" {
		out.VisitorCookie = d.VisitorCookie
	}
	if out.SubmitTimeout == 0 {
		out.SubmitTimeout = d.SubmitTimeout
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return &out
}
