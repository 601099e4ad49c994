package worker

import (
	"net/url"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize(t *testing.T) {
	w, _ := newTestWorker(t, testConfig(), newFakeFetcher())
	cause := errors.Wrap(ErrNetworkUnavailable, "dial tcp: connection refused")

	tests := []struct {
		name    string
		class   Class
		url     string
		status  int
		content string
		body    string
	}{
		{"health", ClassAPI, "/api/health", 200, "application/json", `"status":"offline"`},
		{"health sub-path", ClassAPI, "/api/health/live", 200, "application/json", `"status":"offline"`},
		{"health lookalike", ClassAPI, "/api/healthz", 503, "application/json", `"error":"Network unavailable"`},
		{"stats", ClassAPI, "/api/stats", 503, "application/json", `"error":"Network unavailable"`},
		{"css", ClassStatic, "/static/css/style.css?v=2", 200, "text/css", "CSS unavailable"},
		{"js", ClassStatic, "/static/js/app.js", 200, "application/javascript", "JS unavailable"},
		{"page", ClassPage, "/", 200, "text/html; charset=utf-8", "Try Again"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			u, err := url.Parse(testOrigin + tt.url)
			require.NoError(t, err)

			resp, err := w.Synthesize(tt.class, u, cause)
			require.NoError(t, err)
			assert.Equal(tt.status, resp.Status)
			assert.Equal(tt.content, resp.Header.Get("Content-Type"))
			assert.Contains(string(resp.Body), tt.body)
		})
	}
}

func TestSynthesizeStaticWithoutStub(t *testing.T) {
	w, _ := newTestWorker(t, testConfig(), newFakeFetcher())
	cause := errors.Wrap(ErrNetworkUnavailable, "connection reset")

	for _, p := range []string{"/static/icons/icon-72.png", "/static/manifest.json", "/static/fonts/app"} {
		u, _ := url.Parse(testOrigin + p)
		resp, err := w.Synthesize(ClassStatic, u, cause)
		assert.Nil(t, resp)
		assert.Equal(t, cause, err)
	}

	u, _ := url.Parse(testOrigin + "/static/icons/icon-72.png")
	_, err := w.Synthesize(ClassStatic, u, nil)
	assert.Equal(t, ErrNetworkUnavailable, err)
}

func TestOfflinePageIsSelfContained(t *testing.T) {
	assert := assert.New(t)
	assert.False(strings.Contains(offlinePage, "src="))
	assert.False(strings.Contains(offlinePage, "href="))
	assert.Contains(offlinePage, "<button")
}
