// Package tailwind manages the Tailwind CSS standalone binary and the
// project's tailwind.config.js.
package tailwind

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/eneky/projet-ui/internal/errors"
)

const (
	// Version is the Tailwind CSS version used when the config does not pin
	// one. The v3 line still reads tailwind.config.js.
	Version = "v3.4.17"

	// GitHubReleaseURL is the base URL for downloading Tailwind binaries.
	GitHubReleaseURL = "https://github.com/tailwindlabs/tailwindcss/releases/download"

	// DefaultBinDir is the default directory for storing the binary.
	DefaultBinDir = ".projet/bin"
)

// Binary represents the Tailwind CSS standalone binary.
type Binary struct {
	// Version is the Tailwind version.
	Version string

	// BinDir is the directory where the binary is stored.
	BinDir string

	// DownloadBaseURL is the base URL for downloading Tailwind binaries.
	// If empty, GitHubReleaseURL is used.
	DownloadBaseURL string

	// HTTPClient is used for downloads. If nil, a default client is used.
	HTTPClient *http.Client

	path string
	mu   sync.Mutex
}

// NewBinary creates a Binary for version, stored under ~/.projet/bin.
// An empty version selects Version.
func NewBinary(version string) *Binary {
	if version == "" {
		version = Version
	}
	return &Binary{
		Version:         version,
		BinDir:          defaultBinDir(),
		DownloadBaseURL: GitHubReleaseURL,
	}
}

func defaultBinDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", DefaultBinDir)
	}
	return filepath.Join(home, DefaultBinDir)
}

// Path returns the path to an installed binary without downloading it.
func (b *Binary) Path() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.path != "" {
		return b.path, nil
	}

	path, err := b.binaryPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", errors.New("E200").
			WithDetail("Tailwind binary not found at " + path).
			WithSuggestion("Run 'projet-ui tailwind build' to download it")
	}
	b.path = path
	return path, nil
}

// EnsureInstalled downloads the binary if it doesn't exist and returns its
// path. progress, when set, receives human readable status lines.
func (b *Binary) EnsureInstalled(ctx context.Context, progress func(msg string)) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path, err := b.binaryPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		b.path = path
		return path, nil
	}

	if err := b.download(ctx, path, progress); err != nil {
		return "", err
	}
	b.path = path
	return path, nil
}

// IsInstalled checks if the binary is installed.
func (b *Binary) IsInstalled() bool {
	path, err := b.binaryPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// binaryPath is per-version so upgrades don't keep using an older binary.
func (b *Binary) binaryPath() (string, error) {
	name := binaryName()
	if name == "" {
		return "", errors.New("E202").
			WithDetail("No Tailwind CSS binary for " + PlatformName()).
			WithSuggestion("Disable tailwind in projet.json and build the stylesheet with npx tailwindcss")
	}
	return filepath.Join(b.BinDir, b.Version, name), nil
}

func (b *Binary) downloadURL() string {
	base := b.DownloadBaseURL
	if base == "" {
		base = GitHubReleaseURL
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), b.Version, binaryName())
}

func downloadError(url string, err error) error {
	return errors.New("E200").
		WithDetail("Downloading " + url + " failed").
		WithSuggestion("Check your network connection or set tailwind.version to a published release").
		Wrap(err)
}

func (b *Binary) download(ctx context.Context, path string, progress func(msg string)) error {
	url := b.downloadURL()
	report := func(format string, args ...any) {
		if progress != nil {
			progress(fmt.Sprintf(format, args...))
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return downloadError(url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return downloadError(url, err)
	}

	client := b.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	resp, err := client.Do(req)
	if err != nil {
		return downloadError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return downloadError(url, fmt.Errorf("download failed with status %d", resp.StatusCode))
	}

	if resp.ContentLength > 0 {
		report("Downloading Tailwind CSS %s (%s)...", b.Version, humanize.Bytes(uint64(resp.ContentLength)))
	} else {
		report("Downloading Tailwind CSS %s...", b.Version)
	}

	// Write to a temp file, then rename.
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return downloadError(url, err)
	}

	written, err := io.Copy(f, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return downloadError(url, err)
	}
	report("Downloaded %s", humanize.Bytes(uint64(written)))

	if err := os.Chmod(tmpPath, 0755); err != nil {
		os.Remove(tmpPath)
		return downloadError(url, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return downloadError(url, err)
	}

	report("Installed to %s", path)
	return nil
}

// Runner runs the Tailwind CLI for one project.
type Runner struct {
	binary     *Binary
	projectDir string
	logger     *slog.Logger

	// Stdout and Stderr receive the CLI output. They default to os.Stdout
	// and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer

	mu      sync.Mutex
	cmd     *exec.Cmd
	running bool
	done    chan struct{}
}

// RunnerConfig configures one Tailwind invocation.
type RunnerConfig struct {
	// InputPath is the input CSS file path.
	InputPath string

	// OutputPath is the output CSS file path.
	OutputPath string

	// ConfigPath is the tailwind.config.js path. If empty, Tailwind uses its
	// default config resolution.
	ConfigPath string

	// Minify enables CSS minification.
	Minify bool

	// Progress receives download status lines.
	Progress func(msg string)
}

// NewRunner creates a runner executing in projectDir.
func NewRunner(binary *Binary, projectDir string) *Runner {
	return &Runner{
		binary:     binary,
		projectDir: projectDir,
		logger:     slog.Default().With("component", "tailwind"),
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
}

func (cfg RunnerConfig) args() []string {
	args := []string{"-i", cfg.InputPath, "-o", cfg.OutputPath}
	if cfg.ConfigPath != "" {
		args = append(args, "-c", cfg.ConfigPath)
	}
	if cfg.Minify {
		args = append(args, "--minify")
	}
	return args
}

// Build compiles the stylesheet once.
func (r *Runner) Build(ctx context.Context, cfg RunnerConfig) error {
	path, err := r.binary.EnsureInstalled(ctx, cfg.Progress)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(r.resolve(cfg.OutputPath)), 0755); err != nil {
		return errors.New("E201").Wrap(err)
	}

	cmd := exec.CommandContext(ctx, path, cfg.args()...)
	cmd.Dir = r.projectDir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return errors.New("E201").
			WithDetail("tailwindcss " + strings.Join(cfg.args(), " ")).
			WithSuggestion("Check " + cfg.InputPath + " and the tailwind config for syntax errors").
			Wrap(err)
	}
	r.logger.Info("stylesheet built", "output", cfg.OutputPath, "duration", time.Since(start))
	return nil
}

func (r *Runner) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.projectDir, p)
}

// StartWatch starts Tailwind in watch mode. It is a no-op when already
// running.
func (r *Runner) StartWatch(ctx context.Context, cfg RunnerConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	path, err := r.binary.EnsureInstalled(ctx, cfg.Progress)
	if err != nil {
		return err
	}

	// --watch=always keeps the CLI alive when stdin closes. The process is
	// not tied to ctx; Stop ends it.
	r.cmd = exec.Command(path, append(cfg.args(), "--watch=always")...)
	r.cmd.Dir = r.projectDir
	r.cmd.Stdout = r.Stdout
	r.cmd.Stderr = r.Stderr

	if err := r.cmd.Start(); err != nil {
		r.cmd = nil
		return errors.New("E201").WithDetail("failed to start tailwind").Wrap(err)
	}

	r.running = true
	r.done = make(chan struct{})
	r.logger.Info("tailwind watching", "input", cfg.InputPath, "output", cfg.OutputPath)

	cmd := r.cmd
	done := r.done
	go func() {
		_ = cmd.Wait()
		r.mu.Lock()
		if r.cmd == cmd {
			r.running = false
			r.cmd = nil
		}
		r.mu.Unlock()
		close(done)
	}()

	return nil
}

// Stop stops the watcher and waits briefly for it to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	cmd := r.cmd
	done := r.done
	running := r.running
	r.mu.Unlock()

	if !running || cmd == nil || cmd.Process == nil {
		return
	}

	_ = cmd.Process.Kill()
	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}
}

// IsRunning returns whether the watcher is running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
