package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/eneky/projet-ui/internal/errors"
)

// Page is one HTML file of the pages directory.
type Page struct {
	// Name is the slash separated path relative to the pages directory.
	Name string
	// Source is the file content.
	Source []byte
	// Version identifies the content. A session is only accepted for the
	// version the browser was served.
	Version string
}

// Pages holds the HTML pages served by the server.
type Pages struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	pages map[string]*Page
}

// LoadPages reads every .html file under dir.
func LoadPages(dir string, logger *slog.Logger) (*Pages, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pages{dir: dir, logger: logger.With("component", "pages")}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload rereads the pages directory.
func (p *Pages) Reload() error {
	info, err := os.Stat(p.dir)
	if err != nil || !info.IsDir() {
		return errors.New("E203").
			WithDetail("Pages directory " + p.dir + " does not exist").
			WithSuggestion("Create it or set pages.dir in projet.json")
	}

	pages := make(map[string]*Page)
	err = filepath.WalkDir(p.dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(file) != ".html" {
			return nil
		}
		src, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(p.dir, file)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		pages[name] = &Page{Name: name, Source: src, Version: version(src)}
		return nil
	})
	if err != nil {
		return errors.New("E203").WithDetail("Reading " + p.dir + " failed").Wrap(err)
	}

	p.mu.Lock()
	p.pages = pages
	p.mu.Unlock()
	p.logger.Debug("pages loaded", "dir", p.dir, "count", len(pages))
	return nil
}

func version(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:6])
}

// Len returns the number of loaded pages.
func (p *Pages) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.pages)
}

// Lookup maps a URL path to a page: "/" is index.html, "/login" is
// login.html or login/index.html.
func (p *Pages) Lookup(urlPath string) (*Page, bool) {
	clean := strings.TrimPrefix(path.Clean("/"+urlPath), "/")

	var names []string
	switch {
	case clean == "":
		names = []string{"index.html"}
	case strings.HasSuffix(clean, ".html"):
		names = []string{clean}
	default:
		names = []string{clean + ".html", clean + "/index.html"}
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, name := range names {
		if pg, ok := p.pages[name]; ok {
			return pg, true
		}
	}
	return nil, false
}

// Watch reloads the pages whenever a file under the directory changes. It
// returns when ctx is done.
func (p *Pages) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := p.addDirs(watcher); err != nil {
		return err
	}

	// Editors write in bursts; reload once things settle.
	const settle = 50 * time.Millisecond
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			pending = time.After(settle)

		case <-pending:
			pending = nil
			if err := p.Reload(); err != nil {
				p.logger.Warn("failed to reload pages", "error", err)
				continue
			}
			p.logger.Info("pages reloaded", "count", p.Len())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("pages watcher error", "error", err)
		}
	}
}

func (p *Pages) addDirs(w *fsnotify.Watcher) error {
	return filepath.WalkDir(p.dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(file)
		}
		return nil
	})
}

// clientTag is the script element added to every served page.
func clientTag(version string) []byte {
	return []byte(`<script src="` + ClientPath + `" data-version="` + version + `" defer></script>`)
}

// injectClient adds the client script before </body>, or at the end of
// the page when it has no closing body tag.
func injectClient(html []byte, version string) []byte {
	tag := clientTag(version)
	i := bytes.LastIndex(bytes.ToLower(html), []byte("</body>"))
	if i < 0 {
		return append(append([]byte{}, html...), tag...)
	}
	out := make([]byte, 0, len(html)+len(tag))
	out = append(out, html[:i]...)
	out = append(out, tag...)
	return append(out, html[i:]...)
}
