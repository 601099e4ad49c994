package server

import (
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/chrisvdg/trainerproxy/worker"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const cacheStatusHeader = "X-Cache-Status"

func newHandlers(s *Server) *handlers {
	return &handlers{
		s:        s,
		upstream: newForwarder(s.upstream),
	}
}

type handlers struct {
	s        *Server
	upstream *httputil.ReverseProxy
}

type workerStatus struct {
	Version string       `json:"version"`
	State   worker.State `json:"state"`
}

type statusResponse struct {
	Controller *workerStatus `json:"controller"`
	Waiting    *workerStatus `json:"waiting"`
	Installing *workerStatus `json:"installing"`
	Stores     []string      `json:"stores"`
}

type registerRequest struct {
	Version string `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ProxyHandler hands the request to the controlling worker.
// Requests the worker does not intercept are forwarded untouched.
func (h *handlers) ProxyHandler(res http.ResponseWriter, req *http.Request) {
	target := h.requestURL(req)
	logger := log.WithFields(log.Fields{"method": req.Method, "url": target.String()})

	w := h.s.container.Controller()
	if w == nil {
		logger.Debug("no controlling worker, forwarding")
		h.forward(res, req, target)
		return
	}

	out := req.Clone(req.Context())
	out.URL = target
	result, err := w.Fetch(req.Context(), out)
	if errors.Is(err, worker.ErrNotIntercepted) {
		logger.Debug("cross-origin request, forwarding")
		h.forward(res, req, target)
		return
	}
	if err != nil {
		logger.Errorf("request failed: %s", err)
		res.Header().Set(cacheStatusHeader, string(worker.SourceFallback))
		http.Error(res, "bad gateway", http.StatusBadGateway)
		return
	}

	logger.WithFields(log.Fields{"class": result.Class, "source": result.Source}).Debug("served")
	res.Header().Set(cacheStatusHeader, string(result.Source))
	if err := result.Response.WriteTo(res); err != nil {
		logger.Error(err)
	}
}

// StatusHandler reports the workers and cache generations
func (h *handlers) StatusHandler(res http.ResponseWriter, req *http.Request) {
	c := h.s.container
	writeJSON(res, http.StatusOK, statusResponse{
		Controller: statusOf(c.Controller()),
		Waiting:    statusOf(c.Waiting()),
		Installing: statusOf(c.Installing()),
		Stores:     h.s.registry.Names(),
	})
}

// MessageHandler delivers a client message such as SKIP_WAITING
func (h *handlers) MessageHandler(res http.ResponseWriter, req *http.Request) {
	var msg worker.Message
	if err := json.NewDecoder(req.Body).Decode(&msg); err != nil {
		writeJSON(res, http.StatusBadRequest, errorResponse{Error: "invalid message"})
		return
	}

	err := h.s.container.PostMessage(msg)
	switch {
	case err == nil:
		res.WriteHeader(http.StatusNoContent)
	case errors.Is(err, worker.ErrUnknownMessage):
		writeJSON(res, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, worker.ErrNoWaitingWorker):
		writeJSON(res, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		log.Errorf("failed to handle message %s: %s", msg.Type, err)
		writeJSON(res, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// RegisterHandler installs a new worker version
func (h *handlers) RegisterHandler(res http.ResponseWriter, req *http.Request) {
	var r registerRequest
	if err := json.NewDecoder(req.Body).Decode(&r); err != nil || r.Version == "" {
		writeJSON(res, http.StatusBadRequest, errorResponse{Error: "version is required"})
		return
	}

	err := h.s.register(req.Context(), r.Version)
	if errors.Is(err, worker.ErrInstallAssetUnavailable) {
		writeJSON(res, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		writeJSON(res, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	h.StatusHandler(res, req)
}

// requestURL returns the absolute URL of req as seen by the worker.
// Only absolute-form request targets can name another origin.
func (h *handlers) requestURL(req *http.Request) *url.URL {
	if req.URL.IsAbs() {
		u := *req.URL
		return &u
	}

	return h.s.origin.ResolveReference(&url.URL{
		Path:     req.URL.Path,
		RawPath:  req.URL.RawPath,
		RawQuery: req.URL.RawQuery,
	})
}

// forward sends req to the backend, or to its own origin when cross-origin
// requests are allowed
func (h *handlers) forward(res http.ResponseWriter, req *http.Request, target *url.URL) {
	if worker.Classify(target, h.s.origin) != worker.ClassPassthrough {
		h.upstream.ServeHTTP(res, req)
		return
	}
	if !h.s.c.AllowCrossOrigin {
		log.WithField("url", target.String()).Warn("refusing cross-origin request")
		http.Error(res, "cross-origin requests are not allowed", http.StatusForbidden)
		return
	}
	newForwarder(&url.URL{Scheme: target.Scheme, Host: target.Host}).ServeHTTP(res, req)
}

func newForwarder(target *url.URL) *httputil.ReverseProxy {
	p := httputil.NewSingleHostReverseProxy(target)
	director := p.Director
	p.Director = func(req *http.Request) {
		director(req)
		req.Host = target.Host
	}
	p.ErrorHandler = func(res http.ResponseWriter, req *http.Request, err error) {
		log.WithField("url", req.URL.String()).Errorf("forwarding failed: %s", err)
		http.Error(res, "bad gateway", http.StatusBadGateway)
	}

	return p
}

func statusOf(w *worker.Worker) *workerStatus {
	if w == nil {
		return nil
	}
	return &workerStatus{Version: w.Version(), State: w.State()}
}

func writeJSON(res http.ResponseWriter, status int, v interface{}) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	if err := json.NewEncoder(res).Encode(v); err != nil {
		log.Errorf("failed to write json response: %s", err)
	}
}
