package worker

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/chrisvdg/trainerproxy/cache"
	"github.com/pkg/errors"
)

// Fetcher is the network as seen by the worker
type Fetcher interface {
	// Fetch performs req and returns a snapshot of the response.
	// Errors wrap ErrNetworkUnavailable.
	Fetch(ctx context.Context, req *http.Request) (*cache.Response, error)
}

// hop-by-hop headers are not forwarded upstream
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// NewHTTPFetcher returns a fetcher sending requests to the backend at target
func NewHTTPFetcher(target string, timeout time.Duration) (*HTTPFetcher, error) {
	if target == "" {
		return nil, errors.New("no proxy target provided")
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse proxy target")
	}

	return &HTTPFetcher{
		target: u,
		http:   &http.Client{Timeout: timeout},
	}, nil
}

// HTTPFetcher rewrites worker origin requests onto the backend
type HTTPFetcher struct {
	target *url.URL
	http   *http.Client
}

// Timeout returns the per request timeout, zero when requests are unbounded
func (f *HTTPFetcher) Timeout() time.Duration {
	return f.http.Timeout
}

// Fetch sends req to the backend
func (f *HTTPFetcher) Fetch(ctx context.Context, req *http.Request) (*cache.Response, error) {
	tURL := f.proxyURL(req.URL)
	targetReq, err := http.NewRequestWithContext(ctx, req.Method, tURL.String(), req.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create target request")
	}
	targetReq.ContentLength = req.ContentLength
	for name, values := range req.Header {
		for _, v := range values {
			targetReq.Header.Add(name, v)
		}
	}
	for _, h := range hopHeaders {
		targetReq.Header.Del(h)
	}

	targetResp, err := f.http.Do(targetReq)
	if err != nil {
		return nil, errors.Wrapf(ErrNetworkUnavailable, "%s %s: %s", req.Method, req.URL, err)
	}
	resp, err := cache.ReadResponse(targetResp)
	if err != nil {
		return nil, errors.Wrapf(ErrNetworkUnavailable, "%s %s: %s", req.Method, req.URL, err)
	}

	return resp, nil
}

// proxyURL keeps path and query of u on the backend base URL
func (f *HTTPFetcher) proxyURL(u *url.URL) *url.URL {
	t := *f.target
	t.Path = path.Join("/", t.Path, u.Path)
	if len(u.Path) > 1 && u.Path[len(u.Path)-1] == '/' {
		t.Path += "/"
	}
	t.RawPath = ""
	t.RawQuery = u.RawQuery

	return &t
}
