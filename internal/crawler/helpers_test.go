package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/sitemirror/internal/transport"
)

// route is a canned response served by testSite.
type route struct {
	status      int
	contentType string
	location    string
	body        string
}

func htmlPage(body string) route {
	return route{status: http.StatusOK, contentType: "text/html; charset=utf-8", body: body}
}

func asset(contentType, body string) route {
	return route{status: http.StatusOK, contentType: contentType, body: body}
}

func redirectTo(location string) route {
	return route{status: http.StatusFound, location: location}
}

// testSite serves routes and counts requests per path.
// "{{base}}" in a body is replaced with the server origin.
type testSite struct {
	*httptest.Server

	mu   sync.Mutex
	hits map[string]int
}

func newTestSite(t *testing.T, routes map[string]route) *testSite {
	t.Helper()

	site := &testSite{hits: make(map[string]int)}
	site.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.hits[r.URL.Path]++
		site.mu.Unlock()

		rt, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if rt.contentType != "" {
			w.Header().Set("Content-Type", rt.contentType)
		}
		if rt.location != "" {
			w.Header().Set("Location", strings.ReplaceAll(rt.location, "{{base}}", "http://"+r.Host))
		}
		w.WriteHeader(rt.status)
		w.Write([]byte(strings.ReplaceAll(rt.body, "{{base}}", "http://"+r.Host))) //nolint:errcheck
	}))
	t.Cleanup(site.Close)
	return site
}

func (s *testSite) base() string {
	return s.URL + "/"
}

func (s *testSite) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *testSite) client(t *testing.T) *transport.Client {
	t.Helper()
	c, err := transport.NewClient(transport.WithHTTPClient(s.Client()))
	if err != nil {
		t.Fatalf("transport.NewClient() error = %v", err)
	}
	return c
}

// fetcherFunc adapts a function to Fetcher.
type fetcherFunc func(ctx context.Context, rawURL string) (*transport.Response, error)

func (f fetcherFunc) Get(ctx context.Context, rawURL string) (*transport.Response, error) {
	return f(ctx, rawURL)
}

// memStorage is an in-memory Storage.
type memStorage struct {
	mu    sync.Mutex
	files map[string][]byte
	fail  map[string]error
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string][]byte), fail: make(map[string]error)}
}

func (m *memStorage) Write(relPath string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.fail[relPath]; ok {
		return err
	}
	m.files[relPath] = append([]byte(nil), data...)
	return nil
}

func (m *memStorage) file(relPath string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[relPath]
	return data, ok
}
