package server

import (
	"net/http"
	"time"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
)

type healthJSON struct {
	Status string `json:"status"`
	Model  string `json:"model"`
	Ready  bool   `json:"ready"`
	Error  string `json:"error,omitempty"`
}

type readyJSON struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

type pingJSON struct {
	Time int64 `json:"time"`
}

// httpHealth is liveness: it always answers 200 once the process is up.
// Unlike readiness, it never fails just because the model is missing, but
// it does carry the readiness state so a caller can see both at once.
func (s *Server) httpHealth(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	h := &healthJSON{
		Status: "ok",
		Model:  s.cfg.ModelName,
	}
	if err := s.IsReady(); err != nil {
		h.Error = err.Error()
	} else {
		h.Ready = true
	}
	www.SendJSON(w, h)
}

// httpReady is readiness: 503 until detection requests can actually be served.
func (s *Server) httpReady(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if err := s.IsReady(); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		www.SendJSON(w, &readyJSON{Error: err.Error()})
		return
	}
	www.SendJSON(w, &readyJSON{Ready: true})
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, &pingJSON{Time: time.Now().Unix()})
}
