package worker

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/chrisvdg/trainerproxy/cache"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Source tells where a response came from
type Source string

const (
	// SourceNetwork is a live backend response
	SourceNetwork Source = "network"
	// SourceCache is a stored response
	SourceCache Source = "cache"
	// SourceFallback is a synthesized offline response
	SourceFallback Source = "fallback"
)

// Result is the outcome of an intercepted request
type Result struct {
	Response *cache.Response
	Source   Source
	Class    Class
}

// New creates a worker for one version of the application.
// The registry is shared by every worker of the process.
func New(cfg Config, registry *cache.Registry, fetcher Fetcher) (*Worker, error) {
	origin, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, errors.New("no cache registry provided")
	}
	if fetcher == nil {
		return nil, errors.New("no fetcher provided")
	}

	return &Worker{
		cfg:      cfg,
		origin:   origin,
		registry: registry,
		fetcher:  fetcher,
		static:   registry.Open(cfg.StaticCacheName()),
		api:      registry.Open(cfg.APICacheName()),
		state:    StateParsed,
	}, nil
}

// Worker is a versioned caching proxy with an install/activate lifecycle
type Worker struct {
	cfg      Config
	origin   *url.URL
	registry *cache.Registry
	fetcher  Fetcher

	static *cache.Store
	api    *cache.Store

	state       State
	m           sync.Mutex
	skipWaiting atomic.Bool

	bg sync.WaitGroup
}

// Version returns the version tag of the worker
func (w *Worker) Version() string {
	return w.cfg.Version
}

// State returns the current lifecycle state
func (w *Worker) State() State {
	w.m.Lock()
	defer w.m.Unlock()
	return w.state
}

// SkipWaiting marks the worker to activate without waiting for old clients
func (w *Worker) SkipWaiting() {
	w.skipWaiting.Store(true)
}

// SkipWaitingRequested reports whether SkipWaiting was called
func (w *Worker) SkipWaitingRequested() bool {
	return w.skipWaiting.Load()
}

// Wait blocks until every background revalidation has finished
func (w *Worker) Wait() {
	w.bg.Wait()
}

func (w *Worker) transition(from, to State) error {
	w.m.Lock()
	defer w.m.Unlock()
	if w.state != from {
		return errors.Errorf("worker %s is %s, expected %s", w.cfg.Version, w.state, from)
	}
	w.state = to
	log.WithField("version", w.cfg.Version).Debugf("worker %s", to)

	return nil
}

func (w *Worker) setState(s State) {
	w.m.Lock()
	defer w.m.Unlock()
	w.state = s
	log.WithField("version", w.cfg.Version).Debugf("worker %s", s)
}

// Install populates the static generation with the asset manifest and
// pre-warms the API generation. Any manifest failure fails the install
// and leaves the static generation untouched.
func (w *Worker) Install(ctx context.Context) error {
	if err := w.transition(StateParsed, StateInstalling); err != nil {
		return err
	}
	logger := log.WithField("version", w.cfg.Version)
	logger.Info("installing worker")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.prewarm(ctx)
	}()
	err := w.precache(ctx)
	wg.Wait()
	if err != nil {
		w.setState(StateRedundant)
		logger.Errorf("installation failed: %s", err)
		return err
	}

	w.setState(StateInstalled)
	if w.cfg.SkipWaiting {
		w.SkipWaiting()
	}
	logger.Info("installation complete")

	return nil
}

type fetched struct {
	key  cache.Key
	resp *cache.Response
	err  error
}

func (w *Worker) precache(ctx context.Context) error {
	log.WithField("store", w.static.Name()).Info("caching static assets")

	results := make([]fetched, len(w.cfg.Manifest))
	var wg sync.WaitGroup
	for i, p := range w.cfg.Manifest {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			results[i] = w.fetchOK(ctx, p)
		}(i, p)
	}
	wg.Wait()

	for i, r := range results {
		if r.err != nil {
			return errors.Wrapf(ErrInstallAssetUnavailable, "%s: %s", w.cfg.Manifest[i], r.err)
		}
	}
	for _, r := range results {
		w.static.Put(r.key, r.resp)
	}

	return nil
}

func (w *Worker) prewarm(ctx context.Context) {
	log.WithField("store", w.api.Name()).Info("pre-caching API endpoints")

	var wg sync.WaitGroup
	for _, p := range w.cfg.Prewarm {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			r := w.fetchOK(ctx, p)
			if r.err != nil {
				log.WithField("url", p).Warnf("failed to cache API endpoint: %s", r.err)
				return
			}
			w.api.Put(r.key, r.resp)
		}(p)
	}
	wg.Wait()
}

// fetchOK GETs p relative to the worker origin and requires a 2xx answer
func (w *Worker) fetchOK(ctx context.Context, p string) fetched {
	ref, err := url.Parse(p)
	if err != nil {
		return fetched{err: errors.Wrapf(err, "failed to parse %q", p)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.origin.ResolveReference(ref).String(), nil)
	if err != nil {
		return fetched{err: errors.Wrap(err, "failed to create request")}
	}
	key, _ := cache.KeyForRequest(req)

	resp, err := w.fetcher.Fetch(ctx, req)
	if err != nil {
		return fetched{err: err}
	}
	if !resp.OK() {
		return fetched{err: errors.Errorf("unexpected status %d", resp.Status)}
	}

	return fetched{key: key, resp: resp}
}

// Activate deletes every cache generation of the application other than
// the two owned by this worker. Deletion failures are logged only.
func (w *Worker) Activate() error {
	if err := w.transition(StateInstalled, StateActivating); err != nil {
		return err
	}
	logger := log.WithField("version", w.cfg.Version)
	logger.Info("activating worker")

	deleted := w.registry.Prune(w.cfg.Prefix, w.cfg.StaticCacheName(), w.cfg.APICacheName())
	logger.Debugf("deleted %d old caches", len(deleted))

	w.setState(StateActivated)
	logger.Info("activation complete")

	return nil
}

func (w *Worker) retire() {
	w.setState(StateRedundant)
}

// Intercepts reports the class of u and whether the worker handles it
func (w *Worker) Intercepts(u *url.URL) (Class, bool) {
	c := Classify(w.origin.ResolveReference(u), w.origin)
	return c, c != ClassPassthrough
}

// Fetch handles an intercepted request. Relative URLs are resolved against
// the worker origin. Cross-origin requests return ErrNotIntercepted.
func (w *Worker) Fetch(ctx context.Context, req *http.Request) (*Result, error) {
	u := w.origin.ResolveReference(req.URL)
	class := Classify(u, w.origin)
	if class == ClassPassthrough {
		return nil, ErrNotIntercepted
	}
	req = req.Clone(ctx)
	req.URL = u
	req.RequestURI = ""

	switch class {
	case ClassAPI:
		return w.networkFirst(ctx, req)
	case ClassStatic:
		return w.cacheFirst(ctx, req)
	case ClassPage:
		return w.staleWhileRevalidate(ctx, req)
	default:
		return nil, errors.Errorf("class %s not supported", class)
	}
}
