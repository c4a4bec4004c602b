package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPagesLookup(t *testing.T) {
	dir := writePages(t, map[string]string{
		"index.html":          "<html></html>",
		"login.html":          "<html>login</html>",
		"account/index.html":  "<html>account</html>",
		"account/signup.html": "<html>signup</html>",
		"notes.txt":           "ignored",
	})
	p, err := LoadPages(dir, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 4 {
		t.Errorf("Len = %d, want 4", p.Len())
	}

	tests := map[string]string{
		"/":                 "index.html",
		"":                  "index.html",
		"/login":            "login.html",
		"/login.html":       "login.html",
		"/account":          "account/index.html",
		"/account/":         "account/index.html",
		"/account/signup":   "account/signup.html",
		"/account/../login": "login.html",
		"/../../etc/passwd": "",
		"/notes.txt":        "",
	}
	for path, want := range tests {
		pg, ok := p.Lookup(path)
		if want == "" {
			if ok {
				t.Errorf("Lookup(%q) = %s, want none", path, pg.Name)
			}
			continue
		}
		if !ok || pg.Name != want {
			t.Errorf("Lookup(%q) = %v, %v; want %s", path, pg, ok, want)
		}
	}
}

func TestPagesVersion(t *testing.T) {
	dir := writePages(t, map[string]string{"index.html": "<html>v1</html>"})
	p, _ := LoadPages(dir, quietLogger())
	before, _ := p.Lookup("/")

	os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>v2</html>"), 0644)
	if err := p.Reload(); err != nil {
		t.Fatal(err)
	}
	after, _ := p.Lookup("/")
	if before.Version == after.Version || len(after.Version) != 12 {
		t.Errorf("versions %q -> %q should differ", before.Version, after.Version)
	}
}

func TestPagesWatch(t *testing.T) {
	dir := writePages(t, map[string]string{"index.html": "<html></html>"})
	p, _ := LoadPages(dir, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register the directory.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		os.WriteFile(filepath.Join(dir, "contact.html"), []byte("<html>contact</html>"), 0644)
		if _, ok := p.Lookup("/contact"); ok {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("new page should be picked up")
}

func TestInjectClient(t *testing.T) {
	out := string(injectClient([]byte("<html><body><p>x</p></BODY></html>"), "abc"))
	want := `<p>x</p><script src="/_ui/client.js" data-version="abc" defer></script></BODY>`
	if !strings.Contains(out, want) {
		t.Errorf("injectClient = %s", out)
	}

	out = string(injectClient([]byte("<p>fragment</p>"), "abc"))
	if !strings.HasSuffix(out, `defer></script>`) {
		t.Errorf("page without body should get the script appended: %s", out)
	}
}
