package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/chrisvdg/trainerproxy/cache"
	"github.com/chrisvdg/trainerproxy/worker"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// New creates a new server instance
func New(c *Config) (*Server, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	upstream, err := url.Parse(c.ProxyTarget)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse proxy target")
	}
	origin, err := url.Parse(c.Worker.Origin)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse worker origin")
	}
	fetcher, err := worker.NewHTTPFetcher(c.ProxyTarget, c.FetchTimeout)
	if err != nil {
		return nil, err
	}
	backend, err := newBackend(c)
	if err != nil {
		return nil, err
	}

	return &Server{
		c:         c,
		origin:    origin,
		upstream:  upstream,
		registry:  cache.New(backend),
		fetcher:   fetcher,
		container: worker.NewContainer(),
	}, nil
}

func newBackend(c *Config) (cache.Backend, error) {
	switch c.Backend {
	case BackendLevelDB:
		return cache.NewLevelDBBackend(c.CacheDir)
	default:
		return cache.NewMemoryBackend(), nil
	}
}

// Server represents a server instance
type Server struct {
	c         *Config
	origin    *url.URL
	upstream  *url.URL
	registry  *cache.Registry
	fetcher   worker.Fetcher
	container *worker.Container
}

// Install registers the worker for the configured version.
// On failure the server keeps forwarding requests to the backend uncached.
func (s *Server) Install(ctx context.Context) error {
	return s.register(ctx, s.c.Worker.Version)
}

func (s *Server) register(ctx context.Context, version string) error {
	w, err := worker.New(s.c.Worker.WithVersion(version), s.registry, s.fetcher)
	if err != nil {
		return err
	}

	return s.container.Register(ctx, w)
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.SkipClean(true)
	h := newHandlers(s)

	r.HandleFunc("/_worker/status", h.StatusHandler).Methods("GET")
	r.HandleFunc("/_worker/message", h.MessageHandler).Methods("POST")
	r.HandleFunc("/_worker/register", h.RegisterHandler).Methods("POST")
	r.PathPrefix("/").HandlerFunc(h.ProxyHandler)

	return r
}

// Close waits for background revalidation and closes the cache storage
func (s *Server) Close() error {
	s.container.Close()
	return s.registry.Close()
}

// ListenAndServe listens for new requests and serves them
func (s *Server) ListenAndServe() {
	r := s.Handler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tlsEnabled := s.c.TLS.CertFile != "" && s.c.TLS.KeyFile != ""
	if !s.c.TLSOnly {
		go listenAndServe(ctx, cancel, s.c.ListenAddr, r)
	}

	if tlsEnabled {
		go listenAndServeTLS(ctx, cancel, s.c.TLSListenAddr, s.c.TLS, r)
	}

	<-ctx.Done()
}

// listenAndServe serves a plain http webserver
func listenAndServe(ctx context.Context, cancel func(), addr string, handler http.Handler) {
	defer cancel()
	addrStr := getAddrString(addr)
	log.Infof("http server listening on: http://%s", addrStr)
	log.Error(http.ListenAndServe(addr, handler))
}

// listenAndServeTLS serves a tls webserver
func listenAndServeTLS(ctx context.Context, cancel func(), addr string, tls *TLSConfig, handler http.Handler) {
	defer cancel()
	addrStr := getAddrString(addr)
	log.Infof("https server listening on: https://%s", addrStr)
	log.Error(http.ListenAndServeTLS(addr, tls.CertFile, tls.KeyFile, handler))
}

func getAddrString(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = fmt.Sprintf("0.0.0.0%s", addr)
	}
	return addr
}
