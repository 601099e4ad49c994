package worker

import (
	"context"
	"net/http"

	"github.com/chrisvdg/trainerproxy/cache"
	log "github.com/sirupsen/logrus"
)

// networkFirst serves API requests: network, then the stored copy, then a fallback
func (w *Worker) networkFirst(ctx context.Context, req *http.Request) (*Result, error) {
	key, cacheable := cache.KeyForRequest(req)

	resp, err := w.fetcher.Fetch(ctx, req)
	if err == nil {
		if resp.OK() && cacheable {
			w.api.Put(key, resp)
		}
		return &Result{Response: resp, Source: SourceNetwork, Class: ClassAPI}, nil
	}

	log.WithField("url", req.URL.String()).Infof("network failed for API, trying cache: %s", err)
	if cacheable {
		if cached, ok := w.api.Get(key); ok {
			return &Result{Response: cached, Source: SourceCache, Class: ClassAPI}, nil
		}
	}

	return w.fallback(ClassAPI, req, err)
}

// cacheFirst serves static assets: a stored copy never touches the network
func (w *Worker) cacheFirst(ctx context.Context, req *http.Request) (*Result, error) {
	key, cacheable := cache.KeyForRequest(req)
	if cacheable {
		if cached, ok := w.static.Get(key); ok {
			return &Result{Response: cached, Source: SourceCache, Class: ClassStatic}, nil
		}
	}

	resp, err := w.fetcher.Fetch(ctx, req)
	if err != nil {
		log.WithField("url", req.URL.String()).Infof("failed to fetch static asset: %s", err)
		return w.fallback(ClassStatic, req, err)
	}
	if resp.OK() && cacheable {
		w.static.Put(key, resp)
	}

	return &Result{Response: resp, Source: SourceNetwork, Class: ClassStatic}, nil
}

// staleWhileRevalidate serves pages: a stored copy is returned at once while
// a detached fetch refreshes it. Without a stored copy the fetch is awaited.
func (w *Worker) staleWhileRevalidate(ctx context.Context, req *http.Request) (*Result, error) {
	key, cacheable := cache.KeyForRequest(req)

	var cached *cache.Response
	hit := false
	if cacheable {
		cached, hit = w.static.Get(key)
	}

	revalidated := w.revalidate(ctx, req, key, cacheable)
	if hit {
		return &Result{Response: cached, Source: SourceCache, Class: ClassPage}, nil
	}

	select {
	case resp := <-revalidated:
		if resp != nil {
			return &Result{Response: resp, Source: SourceNetwork, Class: ClassPage}, nil
		}
	case <-ctx.Done():
	}

	return w.fallback(ClassPage, req, ErrNetworkUnavailable)
}

// revalidate fetches req in the background and stores a 2xx answer.
// The channel yields the response, or is closed without a value on failure.
// The fetch outlives ctx, it is bounded by the revalidate timeout instead.
func (w *Worker) revalidate(ctx context.Context, req *http.Request, key cache.Key, cacheable bool) <-chan *cache.Response {
	out := make(chan *cache.Response, 1)

	bgCtx := context.WithoutCancel(ctx)
	cancel := func() {}
	if w.cfg.RevalidateTimeout > 0 {
		bgCtx, cancel = context.WithTimeout(bgCtx, w.cfg.RevalidateTimeout)
	}
	bgReq := req.Clone(bgCtx)

	w.bg.Add(1)
	go func() {
		defer w.bg.Done()
		defer cancel()
		defer close(out)

		resp, err := w.fetcher.Fetch(bgCtx, bgReq)
		if err != nil {
			log.WithField("url", bgReq.URL.String()).Infof("network failed for page: %s", err)
			return
		}
		if resp.OK() && cacheable {
			w.static.Put(key, resp)
		}
		out <- resp
	}()

	return out
}

func (w *Worker) fallback(class Class, req *http.Request, cause error) (*Result, error) {
	resp, err := w.Synthesize(class, req.URL, cause)
	if err != nil {
		return nil, err
	}

	return &Result{Response: resp, Source: SourceFallback, Class: class}, nil
}
