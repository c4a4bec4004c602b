package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eneky/projet-ui/internal/config"
	"github.com/eneky/projet-ui/internal/errors"
	"github.com/eneky/projet-ui/internal/tailwind"
	"github.com/eneky/projet-ui/pkg/pref"
	"github.com/eneky/projet-ui/pkg/toast"
)

func TestServerConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.New()
	if err := cfg.SaveTo(filepath.Join(dir, config.ConfigFileName)); err != nil {
		t.Fatal(err)
	}
	cfg.Server.Upstream = "http://localhost:5000"
	cfg.Toast.Info = config.Dur(0)

	out, err := serverConfig(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.PagesDir != filepath.Join(dir, "pages") {
		t.Errorf("PagesDir = %q", out.PagesDir)
	}
	if out.Upstream == nil || out.Upstream.Host != "localhost:5000" {
		t.Errorf("Upstream = %v", out.Upstream)
	}
	if out.ToastDurations[toast.TypeError] != 7*time.Second {
		t.Errorf("error toast duration = %v", out.ToastDurations[toast.TypeError])
	}
	if _, ok := out.ToastDurations[toast.TypeInfo]; ok {
		t.Error("zero duration should fall back to the default")
	}
	if out.Metrics == nil {
		t.Error("metrics are enabled by default")
	}
	if !out.ForwardCookie || out.SessionCookie != "session" {
		t.Errorf("cookie forwarding = %v %q", out.ForwardCookie, out.SessionCookie)
	}
	if _, ok := out.Store.(*pref.MemoryStore); !ok {
		t.Errorf("Store = %T, want *pref.MemoryStore", out.Store)
	}
	if out.PreferStoredTheme {
		t.Error("the browser theme wins by default")
	}

	cfg.Theme.Prefer = config.PreferStore
	out, err = serverConfig(cfg, nil)
	if err != nil {
		t.Fatalf("serverConfig: %v", err)
	}
	if !out.PreferStoredTheme {
		t.Error("theme.prefer=store should prefer the stored theme")
	}
}

func TestServerConfigBadUpstream(t *testing.T) {
	cfg := config.New()
	cfg.Server.Upstream = "localhost:5000/x"
	_, err := serverConfig(cfg, nil)
	if !errors.HasCode(err, "E102") {
		t.Fatalf("err = %v, want E102", err)
	}
}

func TestBuildStore(t *testing.T) {
	dir := t.TempDir()
	cfg := config.New()
	if err := cfg.SaveTo(filepath.Join(dir, config.ConfigFileName)); err != nil {
		t.Fatal(err)
	}

	cfg.Theme.Store = config.StoreFile
	store, err := buildStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*pref.FileStore); !ok {
		t.Errorf("file store = %T", store)
	}

	cfg.Theme.Store = config.StoreS3
	cfg.Theme.S3.Bucket = "prefs"
	cfg.Theme.S3.Region = "eu-west-3"
	store, err = buildStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*pref.S3Store); !ok {
		t.Errorf("s3 store = %T", store)
	}

	cfg.Theme.Store = "redis"
	if _, err := buildStore(cfg); !errors.HasCode(err, "E302") {
		t.Errorf("unknown store err = %v, want E302", err)
	}
}

func TestServeOptionsApply(t *testing.T) {
	cfg := config.New()
	serveOptions{addr: ":9000", pages: "site", upstream: "http://app", noWatch: true}.apply(cfg)
	if cfg.Server.Address != ":9000" || cfg.Pages.Dir != "site" || cfg.Server.Upstream != "http://app" || cfg.Pages.Watch {
		t.Errorf("flags not applied: %+v %+v", cfg.Server, cfg.Pages)
	}

	cfg = config.New()
	serveOptions{}.apply(cfg)
	if cfg.Server.Address != config.DefaultAddress || !cfg.Pages.Watch {
		t.Error("empty flags should keep the config")
	}
}

func TestInitProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site")
	if err := initProject(dir, false); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "site" {
		t.Errorf("Name = %q", cfg.Name)
	}
	page, err := os.ReadFile(filepath.Join(dir, "pages", "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(page), `id="theme-toggle"`) {
		t.Error("starter page lacks the theme toggle")
	}
	if _, err := os.Stat(cfg.TailwindInputPath()); err != nil {
		t.Errorf("input css: %v", err)
	}

	if err := initProject(dir, false); !errors.HasCode(err, "E104") {
		t.Errorf("second init err = %v, want E104", err)
	}
	if err := initProject(dir, true); err != nil {
		t.Errorf("forced init: %v", err)
	}
}

func TestVersionShort(t *testing.T) {
	cmd := versionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--short"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != version {
		t.Errorf("version = %q, want %q", got, version)
	}
}

func TestWritePalette(t *testing.T) {
	var out bytes.Buffer
	writePalette(&out, tailwind.DefaultPalette())
	for _, want := range []string{"Light", "Dark", "accent", "#2563EB", "dark-bg", "Marianne"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("palette output lacks %q", want)
		}
	}
}

func TestSetupTracingDisabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	shutdown, enabled, err := setupTracing(t.Context(), "", true)
	if err != nil {
		t.Fatal(err)
	}
	if enabled {
		t.Error("tracing enabled without an endpoint")
	}
	if err := shutdown(t.Context()); err != nil {
		t.Error(err)
	}
}
