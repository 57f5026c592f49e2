// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server implements the REST app: a dictionary NER model over the
// knowledge base with SNOMED CT subtree filtering, a websocket variant, and
// release download redirects.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/cabinet/internal/knowledge"
	"github.com/pdiddy/cabinet/pkg/types"
)

const bucketCleanupInterval = 30 * time.Minute

// Loader builds a fresh knowledge base, typically by reading package data
// from disk.
type Loader func() (*knowledge.Knowledge, error)

// state is swapped as a unit so the tagger always matches its knowledge base.
type state struct {
	kb     *knowledge.Knowledge
	tagger *Tagger
}

// Server serves the REST app.
type Server struct {
	cfg       types.ServerConfig
	log       logrus.FieldLogger
	router    chi.Router
	limiter   *rateLimiter
	state     atomic.Pointer[state]
	started   time.Time
	http      *http.Server
	scheduler *gocron.Scheduler
}

// New builds a server over kb. log may be nil.
func New(cfg types.ServerConfig, kb *knowledge.Knowledge, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 3
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1000
	}

	s := &Server{
		cfg:     cfg,
		log:     log,
		limiter: newRateLimiter(cfg.RateLimit, cfg.RateBurst),
		started: time.Now(),
	}
	s.Swap(kb)
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              net.JoinHostPort(cfg.Address, cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(metricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.limiter.middleware)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/nlp", s.handleUpper)
	r.Post("/models/ner", s.handleNER)
	r.Handle("/models/ner/ws", s.handleNERSocket())
	r.Get("/releases/{name}", s.handleRelease)
	return r
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Swap replaces the knowledge base served by every handler.
func (s *Server) Swap(kb *knowledge.Knowledge) {
	if kb == nil {
		kb = knowledge.New(nil, nil, nil)
	}
	s.state.Store(&state{kb: kb, tagger: NewTagger(kb.Names())})
	knowledgeConcepts.Set(float64(len(kb.ConceptMap())))
}

// Reload builds a knowledge base with load and swaps it in. On failure the
// current knowledge base keeps serving.
func (s *Server) Reload(load Loader) error {
	kb, err := load()
	if err != nil {
		knowledgeReloads.WithLabelValues("error").Inc()
		return fmt.Errorf("reloading knowledge base: %w", err)
	}
	s.Swap(kb)
	knowledgeReloads.WithLabelValues("ok").Inc()
	s.log.WithField("concepts", len(kb.ConceptMap())).Info("knowledge base reloaded")
	return nil
}

// StartScheduler runs background jobs: periodic knowledge reloads when
// ReloadInterval is positive and load is set, and rate limit bucket cleanup.
func (s *Server) StartScheduler(load Loader) error {
	s.scheduler = gocron.NewScheduler(time.Local)

	if s.cfg.ReloadInterval > 0 && load != nil {
		_, err := s.scheduler.Every(s.cfg.ReloadInterval).SingletonMode().WaitForSchedule().Do(func() {
			if err := s.Reload(load); err != nil {
				s.log.WithError(err).Error("scheduled reload failed")
			}
		})
		if err != nil {
			return fmt.Errorf("scheduling reload: %w", err)
		}
	}

	_, err := s.scheduler.Every(bucketCleanupInterval).WaitForSchedule().Do(func() {
		if n := s.limiter.cleanup(); n > 0 {
			s.log.WithField("removed", n).Debug("rate limit buckets cleaned")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling bucket cleanup: %w", err)
	}

	s.scheduler.StartAsync()
	return nil
}

// ListenAndServe serves until the server is shut down. It returns nil after
// a clean Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.WithField("addr", s.http.Addr).Info("server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

// Shutdown stops the scheduler and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	return s.http.Shutdown(ctx)
}
