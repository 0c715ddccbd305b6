// Package server is the predictor web UI: one HTML form, a JSON endpoint and
// a health check over a loaded obesity.Predictor.
package server

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/delvitaw/obesity/obesity"
	"github.com/delvitaw/obesity/pkg/config"
	"github.com/delvitaw/obesity/pkg/errors"
	"github.com/delvitaw/obesity/pkg/log"
)

//go:embed templates/*.html
var templateFS embed.FS

const shutdownTimeout = 5 * time.Second

var funcs = template.FuncMap{
	"percent": func(p float64) float64 { return 100 * p },
}

// Server serves predictions from the current predictor. The predictor can
// be replaced while requests are in flight.
type Server struct {
	cfg    config.ServerConfig
	logger log.Logger
	engine *gin.Engine

	mu        sync.RWMutex
	predictor *obesity.Predictor
	// Keyed by the whole sample; nil when caching is disabled.
	cache *lru.Cache[obesity.Sample, obesity.Prediction]
}

// New builds the server and its routes.
func New(p *obesity.Predictor, cfg config.ServerConfig, logger log.Logger) (*Server, error) {
	if p == nil {
		return nil, errors.NewValueError("server.New", "predictor is nil")
	}
	if logger == nil {
		logger = log.Nop()
	}
	s := &Server{cfg: cfg, logger: logger, predictor: p}

	if cfg.CacheSize > 0 {
		c, err := lru.New[obesity.Sample, obesity.Prediction](cfg.CacheSize)
		if err != nil {
			return nil, errors.Wrap(err, "prediction cache")
		}
		s.cache = c
	}

	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse templates")
	}

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(logger))
	r.SetHTMLTemplate(tmpl)

	r.GET("/", s.index)
	r.POST("/predict", s.predictForm)
	r.GET("/healthz", s.healthz)
	v1 := r.Group("/api/v1")
	{
		v1.POST("/predict", s.predictJSON)
	}
	s.engine = r
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Predictor returns the predictor currently serving requests.
func (s *Server) Predictor() *obesity.Predictor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.predictor
}

// Swap replaces the predictor and drops cached predictions.
func (s *Server) Swap(p *obesity.Predictor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictor = p
	if s.cache != nil {
		s.cache.Purge()
	}
}

// Reload loads the artifact at path and swaps it in. On error the current
// predictor keeps serving.
func (s *Server) Reload(path string) error {
	p, err := obesity.LoadPredictor(path, s.logger)
	if err != nil {
		return err
	}
	s.Swap(p)
	s.logger.Info("Artifact reloaded", log.PathKey, path, log.ClassesKey, len(p.Classes()))
	return nil
}

// Predict classifies in, answering from the cache when possible. The
// returned bool reports a cache hit.
func (s *Server) Predict(in obesity.Sample) (obesity.Prediction, bool, error) {
	// Held across the prediction so a Swap cannot interleave with Add.
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cache != nil {
		if pred, ok := s.cache.Get(in); ok {
			return pred, true, nil
		}
	}
	pred, err := s.predictor.Predict(in)
	if err != nil {
		return obesity.Prediction{}, false, err
	}
	if s.cache != nil {
		s.cache.Add(in, pred)
	}
	return pred, false, nil
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Predictor listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	s.logger.Info("Predictor stopped")
	return nil
}
