package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/spotter/pkg/detect"
	"github.com/cyclopcam/spotter/pkg/nn"
	"github.com/cyclopcam/spotter/pkg/nnremote"
	"github.com/julienschmidt/httprouter"
)

type Server struct {
	Log logs.Log

	cfg      *Config
	detector *detect.Detector // nil when the model failed to initialize
	remote   *nnremote.Detector
	model    nn.ObjectDetector
	modelErr error

	signalIn   chan os.Signal
	httpServer *http.Server
	httpRouter *httprouter.Router
}

// NewServer wires the production detection backend (a remote inference
// server). If the backend cannot be constructed, the server still starts,
// reports not-ready, and rejects detection requests, so that /health keeps
// answering.
func NewServer(logger logs.Log, cfg *Config) (*Server, error) {
	s := &Server{
		Log: logger,
		cfg: cfg,
	}
	remote, err := nnremote.NewDetector(logger, cfg.InferenceURL, cfg.ModelName)
	if err != nil {
		s.modelErr = err
		logger.Errorf("Detection model unavailable: %v", err)
	} else {
		s.remote = remote
		var model nn.ObjectDetector = remote
		if !cfg.ModelConcurrent {
			model = nn.Serialized(model)
		}
		s.attachModel(model)
		if err := remote.CheckHealth(); err != nil {
			// Not fatal: the inference server may come up after us.
			logger.Warnf("Inference server not reachable yet: %v", err)
		}
	}
	if err := s.setupHttpRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewServerWithModel builds a server around an explicit detection backend.
// Tests use this to substitute a scripted model.
func NewServerWithModel(logger logs.Log, cfg *Config, model nn.ObjectDetector) (*Server, error) {
	s := &Server{
		Log: logger,
		cfg: cfg,
	}
	s.attachModel(model)
	if err := s.setupHttpRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) attachModel(model nn.ObjectDetector) {
	if model == nil {
		s.modelErr = fmt.Errorf("model not loaded")
		return
	}
	s.model = model
	s.detector = detect.NewDetector(s.Log, model, detect.Options{
		ConfidenceThreshold: s.cfg.ConfidenceThreshold,
		MaxKeyframes:        s.cfg.MaxKeyframes,
		VideoWorkers:        s.cfg.VideoWorkers,
	})
}

// IsReady reports whether detection requests can currently be served.
func (s *Server) IsReady() error {
	if s.detector == nil {
		if s.modelErr != nil {
			return s.modelErr
		}
		return fmt.Errorf("model not loaded")
	}
	if s.remote != nil {
		return s.remote.CheckHealth()
	}
	return nil
}

// port example: ":5000"
func (s *Server) ListenHTTP(port string) error {
	s.Log.Infof("Listening on %v", port)
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.httpRouter,
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) ListenForKillSignals() {
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		if sig, ok := <-s.signalIn; ok {
			s.Log.Infof("Received OS signal '%v'. Shutting down", sig.String())
			s.Shutdown()
		}
	}()
}

func (s *Server) Shutdown() {
	s.Log.Infof("Shutdown")
	if s.signalIn != nil {
		signal.Stop(s.signalIn)
		close(s.signalIn)
	}
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.Log.Warnf("HTTP server shutdown: %v", err)
		}
	}
	if s.model != nil {
		s.model.Close()
	}
	s.Log.Infof("Shutdown complete")
	s.Log.Close()
}
