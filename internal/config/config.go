package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eneky/projet-ui/internal/errors"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "projet.json"

	// DefaultAddress is the default listen address.
	DefaultAddress = "localhost:8001"

	// DefaultPagesDir is the default directory of served HTML pages.
	DefaultPagesDir = "pages"

	// DefaultVisitorCookie names the cookie carrying the visitor id.
	DefaultVisitorCookie = "projet_visitor"
)

// Store backends for theme preferences.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreS3     = "s3"
)

// Which side wins when the browser and the store disagree on the theme.
const (
	PreferBrowser = "browser"
	PreferStore   = "store"
)

// candidates are tried in order by Load.
var candidates = []string{ConfigFileName, "projet.yaml", "projet.yml"}

// Duration is a time.Duration written as a Go duration string ("5s") or,
// in JSON, as a number of milliseconds.
type Duration struct {
	time.Duration
}

// Dur wraps d.
func Dur(d time.Duration) Duration { return Duration{d} }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var ms float64
	if err := json.Unmarshal(data, &ms); err == nil {
		d.Duration = time.Duration(ms * float64(time.Millisecond))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string or milliseconds: %s", data)
	}
	return d.parse(s)
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if ms, err := strconv.ParseFloat(node.Value, 64); err == nil && node.Tag != "!!str" {
		d.Duration = time.Duration(ms * float64(time.Millisecond))
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// Config represents the complete projet.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	Server   ServerConfig   `json:"server" yaml:"server"`
	Pages    PagesConfig    `json:"pages" yaml:"pages"`
	Toast    ToastConfig    `json:"toast" yaml:"toast"`
	Loading  LoadingConfig  `json:"loading" yaml:"loading"`
	Theme    ThemeConfig    `json:"theme" yaml:"theme"`
	Tailwind TailwindConfig `json:"tailwind" yaml:"tailwind"`
	Auth     AuthConfig     `json:"auth" yaml:"auth"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig configures the HTTP and websocket server.
type ServerConfig struct {
	// Address is the listen address (host:port).
	Address string `json:"address,omitempty" yaml:"address,omitempty"`

	// Upstream is the application backend. Requests that are not pages,
	// such as form posts, are proxied to it. Empty disables the proxy.
	Upstream string `json:"upstream,omitempty" yaml:"upstream,omitempty"`

	// AllowedOrigins lists extra websocket origins. The request host is
	// always allowed.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`

	// EventsPerSecond and EventBurst limit inbound events per session.
	EventsPerSecond float64 `json:"eventsPerSecond,omitempty" yaml:"eventsPerSecond,omitempty"`
	EventBurst      int     `json:"eventBurst,omitempty" yaml:"eventBurst,omitempty"`

	// MaxMessageSize caps one websocket message in bytes.
	MaxMessageSize int64 `json:"maxMessageSize,omitempty" yaml:"maxMessageSize,omitempty"`

	// PingInterval is how often idle websockets are pinged.
	PingInterval Duration `json:"pingInterval,omitempty" yaml:"pingInterval,omitempty"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout Duration `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`

	// VisitorCookie names the cookie carrying the visitor id.
	VisitorCookie string `json:"visitorCookie,omitempty" yaml:"visitorCookie,omitempty"`

	// Metrics exposes /metrics.
	Metrics bool `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
}

// PagesConfig configures the served pages.
type PagesConfig struct {
	// Dir holds the HTML pages. "/" serves Dir/index.html and "/a/b"
	// serves Dir/a/b.html or Dir/a/b/index.html.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Watch reloads pages when files change.
	Watch bool `json:"watch,omitempty" yaml:"watch,omitempty"`

	// Static is an optional directory served under /static/.
	Static string `json:"static,omitempty" yaml:"static,omitempty"`
}

// ToastConfig overrides toast lifetimes per severity.
type ToastConfig struct {
	Success Duration `json:"success,omitempty" yaml:"success,omitempty"`
	Error   Duration `json:"error,omitempty" yaml:"error,omitempty"`
	Warning Duration `json:"warning,omitempty" yaml:"warning,omitempty"`
	Info    Duration `json:"info,omitempty" yaml:"info,omitempty"`
}

// LoadingConfig configures busy overlays and submissions.
type LoadingConfig struct {
	// FallbackTimeout releases the overlay of a passive form.
	FallbackTimeout Duration `json:"fallbackTimeout,omitempty" yaml:"fallbackTimeout,omitempty"`

	// SubmitTimeout bounds one intercepted form submission.
	SubmitTimeout Duration `json:"submitTimeout,omitempty" yaml:"submitTimeout,omitempty"`
}

// ThemeConfig configures where theme preferences are stored.
type ThemeConfig struct {
	// Store is memory, file or s3.
	Store string `json:"store,omitempty" yaml:"store,omitempty"`

	// File is the JSON file used by the file store.
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	S3 S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`

	// Prefer is browser or store. With store, a saved server-side theme
	// overrides the browser's own value.
	Prefer string `json:"prefer,omitempty" yaml:"prefer,omitempty"`
}

// S3Config configures the s3 store.
type S3Config struct {
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty" yaml:"pathStyle,omitempty"`
}

// TailwindConfig configures the standalone Tailwind CLI.
type TailwindConfig struct {
	// Enabled runs Tailwind alongside serve.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Version pins the Tailwind CLI release.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Config is the generated tailwind.config.js path.
	Config string `json:"config,omitempty" yaml:"config,omitempty"`

	// Input is the input CSS file.
	Input string `json:"input,omitempty" yaml:"input,omitempty"`

	// Output is the generated CSS file.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// Content lists the globs scanned for class names.
	Content []string `json:"content,omitempty" yaml:"content,omitempty"`
}

// AuthConfig describes how the backend session is carried into
// intercepted submissions.
type AuthConfig struct {
	// CookieName is the backend session cookie.
	CookieName string `json:"cookieName,omitempty" yaml:"cookieName,omitempty"`

	// ForwardCookie copies the session cookie from the websocket handshake
	// onto intercepted submissions.
	ForwardCookie bool `json:"forwardCookie,omitempty" yaml:"forwardCookie,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         DefaultAddress,
			EventsPerSecond: 20,
			EventBurst:      40,
			MaxMessageSize:  64 * 1024,
			PingInterval:    Dur(30 * time.Second),
			ShutdownTimeout: Dur(10 * time.Second),
			VisitorCookie:   DefaultVisitorCookie,
			Metrics:         true,
			LogLevel:        "info",
		},
		Pages: PagesConfig{
			Dir:   DefaultPagesDir,
			Watch: true,
		},
		Toast: ToastConfig{
			Success: Dur(5 * time.Second),
			Error:   Dur(7 * time.Second),
			Warning: Dur(6 * time.Second),
			Info:    Dur(5 * time.Second),
		},
		Loading: LoadingConfig{
			FallbackTimeout: Dur(10 * time.Second),
			SubmitTimeout:   Dur(30 * time.Second),
		},
		Theme: ThemeConfig{
			Store:  StoreMemory,
			File:   ".projet/prefs.json",
			S3:     S3Config{Prefix: "prefs"},
			Prefer: PreferBrowser,
		},
		Tailwind: TailwindConfig{
			Version: "v3.4.17",
			Config:  "tailwind.config.js",
			Input:   "styles/input.css",
			Output:  "static/css/output.css",
			Content: []string{"pages/**/*.html"},
		},
		Auth: AuthConfig{
			CookieName:    "session",
			ForwardCookie: true,
		},
	}
}

// Load reads the configuration from dir, trying projet.json, projet.yaml
// and projet.yml in that order.
func Load(dir string) (*Config, error) {
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E100").
		WithDetail("No projet.json or projet.yaml found in " + dir).
		WithSuggestion("Run 'projet-ui init' or create projet.json manually")
}

// LoadFile reads a configuration file. The format follows the extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No config file at " + path)
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, parseError(path, data, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E101").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check the YAML indentation")
		}
	default:
		return nil, errors.New("E103").
			WithDetail("Unsupported config extension: " + filepath.Ext(path))
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

// parseError points at the offending byte of a JSON syntax error.
func parseError(path string, data []byte, err error) error {
	e := errors.New("E101").
		WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
		WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
	var syntax *json.SyntaxError
	if stderrors.As(err, &syntax) {
		e = e.WithOffset(path, data, syntax.Offset)
	}
	return e
}

// Save writes the configuration back to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path, as YAML when path ends in
// .yaml or .yml and as indented JSON otherwise.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E104").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E104").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the configuration was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills fields a file left empty.
func (c *Config) applyDefaults() {
	d := New()
	if c.Server.Address == "" {
		c.Server.Address = d.Server.Address
	}
	if c.Server.EventsPerSecond == 0 {
		c.Server.EventsPerSecond = d.Server.EventsPerSecond
	}
	if c.Server.EventBurst == 0 {
		c.Server.EventBurst = d.Server.EventBurst
	}
	if c.Server.MaxMessageSize == 0 {
		c.Server.MaxMessageSize = d.Server.MaxMessageSize
	}
	if c.Server.PingInterval.Duration == 0 {
		c.Server.PingInterval = d.Server.PingInterval
	}
	if c.Server.ShutdownTimeout.Duration == 0 {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
	if c.Server.VisitorCookie == "" {
		c.Server.VisitorCookie = d.Server.VisitorCookie
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = d.Server.LogLevel
	}
	if c.Pages.Dir == "" {
		c.Pages.Dir = d.Pages.Dir
	}
	if c.Toast.Success.Duration == 0 {
		c.Toast.Success = d.Toast.Success
	}
	if c.Toast.Error.Duration == 0 {
		c.Toast.Error = d.Toast.Error
	}
	if c.Toast.Warning.Duration == 0 {
		c.Toast.Warning = d.Toast.Warning
	}
	if c.Toast.Info.Duration == 0 {
		c.Toast.Info = d.Toast.Info
	}
	if c.Loading.FallbackTimeout.Duration == 0 {
		c.Loading.FallbackTimeout = d.Loading.FallbackTimeout
	}
	if c.Loading.SubmitTimeout.Duration == 0 {
		c.Loading.SubmitTimeout = d.Loading.SubmitTimeout
	}
	if c.Theme.Store == "" {
		c.Theme.Store = d.Theme.Store
	}
	if c.Theme.File == "" {
		c.Theme.File = d.Theme.File
	}
	if c.Theme.Prefer == "" {
		c.Theme.Prefer = d.Theme.Prefer
	}
	if c.Tailwind.Version == "" {
		c.Tailwind.Version = d.Tailwind.Version
	}
	if c.Tailwind.Config == "" {
		c.Tailwind.Config = d.Tailwind.Config
	}
	if c.Tailwind.Input == "" {
		c.Tailwind.Input = d.Tailwind.Input
	}
	if c.Tailwind.Output == "" {
		c.Tailwind.Output = d.Tailwind.Output
	}
	if c.Tailwind.Content == nil {
		c.Tailwind.Content = d.Tailwind.Content
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = d.Auth.CookieName
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if _, port, err := net.SplitHostPort(c.Server.Address); err != nil {
		return invalid("server.address", c.Server.Address, "use host:port, for example localhost:8001")
	} else if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return invalid("server.address", c.Server.Address, "port must be between 0 and 65535")
	}
	if c.Server.Upstream != "" {
		u, err := url.Parse(c.Server.Upstream)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid("server.upstream", c.Server.Upstream, "use an absolute URL such as http://127.0.0.1:8000")
		}
	}
	if c.Server.EventsPerSecond < 0 || c.Server.EventBurst < 0 {
		return invalid("server.eventsPerSecond", fmt.Sprint(c.Server.EventsPerSecond), "rate limits cannot be negative")
	}
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("server.logLevel", c.Server.LogLevel, "use debug, info, warn or error")
	}
	for name, d := range map[string]Duration{
		"toast.success": c.Toast.Success,
		"toast.error":   c.Toast.Error,
		"toast.warning": c.Toast.Warning,
		"toast.info":    c.Toast.Info,
	} {
		if d.Duration < 0 {
			return invalid(name, d.String(), "durations cannot be negative")
		}
	}
	switch c.Theme.Store {
	case StoreMemory, StoreFile:
	case StoreS3:
		if c.Theme.S3.Bucket == "" {
			return invalid("theme.s3.bucket", "", "the s3 store needs a bucket")
		}
	default:
		return errors.New("E302").WithDetail("Unknown theme.store: " + c.Theme.Store)
	}
	switch c.Theme.Prefer {
	case PreferBrowser, PreferStore:
	default:
		return invalid("theme.prefer", c.Theme.Prefer, "use browser or store")
	}
	return nil
}

func invalid(field, value, hint string) error {
	return errors.New("E102").
		WithDetail(fmt.Sprintf("%s: invalid value %q", field, value)).
		WithSuggestion(hint)
}

// ToastDurations returns the toast lifetimes keyed by severity name.
func (c *Config) ToastDurations() map[string]time.Duration {
	return map[string]time.Duration{
		"success": c.Toast.Success.Duration,
		"error":   c.Toast.Error.Duration,
		"warning": c.Toast.Warning.Duration,
		"info":    c.Toast.Info.Duration,
	}
}

// resolve makes path relative to the config directory.
func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// PagesPath returns the absolute pages directory.
func (c *Config) PagesPath() string { return c.resolve(c.Pages.Dir) }

// StaticPath returns the static directory, empty when unset.
func (c *Config) StaticPath() string { return c.resolve(c.Pages.Static) }

// ThemeFilePath returns the file store path.
func (c *Config) ThemeFilePath() string { return c.resolve(c.Theme.File) }

// TailwindConfigPath returns the tailwind.config.js path.
func (c *Config) TailwindConfigPath() string { return c.resolve(c.Tailwind.Config) }

// TailwindInputPath returns the input CSS path.
func (c *Config) TailwindInputPath() string { return c.resolve(c.Tailwind.Input) }

// TailwindOutputPath returns the generated CSS path.
func (c *Config) TailwindOutputPath() string { return c.resolve(c.Tailwind.Output) }

// Exists reports whether dir contains a configuration file.
func Exists(dir string) bool {
	for _, name := range candidates {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up from startDir to the first directory holding a
// configuration file.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E100").
				WithDetail("No projet.json found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'projet-ui init' to create one")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads the configuration of the project containing the
// working directory. Without one, the defaults are returned.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindProjectRoot(wd)
	if err != nil {
		cfg := New()
		cfg.configPath = filepath.Join(wd, ConfigFileName)
		return cfg, nil
	}
	return Load(root)
}
