package worker

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/chrisvdg/trainerproxy/cache"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:8080"

// fakeFetcher answers by request path and records every call
type fakeFetcher struct {
	m         sync.Mutex
	responses map[string]*cache.Response
	gates     map[string]chan struct{}
	offline   bool
	calls     []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: map[string]*cache.Response{},
		gates:     map[string]chan struct{}{},
	}
}

// gate holds every fetch of path until the returned func is called
func (f *fakeFetcher) gate(path string) func() {
	ch := make(chan struct{})
	f.m.Lock()
	f.gates[path] = ch
	f.m.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.m.Lock()
			delete(f.gates, path)
			f.m.Unlock()
			close(ch)
		})
	}
}

func (f *fakeFetcher) set(path string, status int, body string) {
	f.m.Lock()
	defer f.m.Unlock()
	f.responses[path] = cache.NewResponse(status, nil, []byte(body))
}

func (f *fakeFetcher) setOffline(offline bool) {
	f.m.Lock()
	defer f.m.Unlock()
	f.offline = offline
}

func (f *fakeFetcher) Calls() []string {
	f.m.Lock()
	defer f.m.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeFetcher) Fetch(ctx context.Context, req *http.Request) (*cache.Response, error) {
	f.m.Lock()
	f.calls = append(f.calls, req.Method+" "+req.URL.Path)
	gate := f.gates[req.URL.Path]
	f.m.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, errors.Wrapf(ErrNetworkUnavailable, "%s: %s", req.URL, ctx.Err())
		}
	}

	f.m.Lock()
	defer f.m.Unlock()
	if f.offline {
		return nil, errors.Wrapf(ErrNetworkUnavailable, "%s: connection refused", req.URL)
	}
	resp, ok := f.responses[req.URL.Path]
	if !ok {
		return cache.NewResponse(http.StatusNotFound, nil, []byte("not found")), nil
	}

	return resp.Clone(), nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Origin = testOrigin
	cfg.Manifest = []string{"/", "/static/css/style.css", "/static/js/app.js"}
	return cfg
}

func newTestWorker(t *testing.T, cfg Config, f Fetcher) (*Worker, *cache.Registry) {
	reg := cache.New(cache.NewMemoryBackend())
	w, err := New(cfg, reg, f)
	require.NoError(t, err)

	return w, reg
}

func newGet(t *testing.T, rawURL string) *http.Request {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	return req
}

func keyFor(t *testing.T, rawURL string) cache.Key {
	k, ok := cache.KeyForRequest(newGet(t, rawURL))
	require.True(t, ok)
	return k
}

func onlineManifest(f *fakeFetcher) {
	f.set("/", 200, "<html>shell</html>")
	f.set("/static/css/style.css", 200, "body{}")
	f.set("/static/js/app.js", 200, "start()")
	f.set("/api/health", 200, `{"status":"healthy","service":"number-trainer-web"}`)
}
