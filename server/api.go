package server

import (
	"net/http"
	"time"

	"github.com/cyclopcam/spotter/pkg/detect"
	"github.com/cyclopcam/www"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupHttpRoutes() error {
	router := httprouter.New()

	unprotected := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, handle)
	}

	// Per-endpoint limiter, keyed by IP. The detection endpoints run model
	// inference, so they get a budget; the cheap endpoints are unlimited.
	ratelimited := func(method, route string, handle func(w http.ResponseWriter, r *http.Request)) {
		if s.cfg.RateLimit <= 0 {
			www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
				handle(w, r)
			})
			return
		}
		limited := httprate.Limit(s.cfg.RateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limited(http.HandlerFunc(handle)).ServeHTTP(w, r)
		})
	}

	unprotected("GET", "/health", s.httpHealth)
	unprotected("GET", "/ready", s.httpReady)
	unprotected("GET", "/api/ping", s.httpPing)
	router.Handler("GET", "/metrics", promhttp.Handler())

	ratelimited("POST", "/detect", s.httpDetect)
	ratelimited("POST", "/analyze-video", s.httpAnalyzeVideo)

	s.httpRouter = router
	return nil
}

type errorJSON struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func kindToStatus(kind detect.ErrorKind) int {
	switch kind {
	case detect.KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case detect.KindValidation, detect.KindDecode:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// sendError emits our JSON error shape: {"error": ..., "kind": ...}.
// The kind field is the stable part; the message is for humans.
func (s *Server) sendError(w http.ResponseWriter, r *http.Request, err error) {
	kind := detect.KindOf(err)
	status := kindToStatus(kind)
	s.Log.Infof("Failed request %v: %v %v", r.URL.Path, status, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	www.SendJSON(w, &errorJSON{
		Error: err.Error(),
		Kind:  string(kind),
	})
}
