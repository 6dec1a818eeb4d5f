// Package server exposes the WOPI host over HTTP. It owns the outermost
// request surface: routing, token extraction, error-to-status mapping, rate
// limiting and graceful shutdown. All protocol decisions live in
// internal/wopi; this package only translates between HTTP and that core.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/learnweb/moodle-assignsubmission-collabora/internal/discovery"
	"github.com/learnweb/moodle-assignsubmission-collabora/internal/logger"
	"github.com/learnweb/moodle-assignsubmission-collabora/internal/ratelimiter"
	"github.com/learnweb/moodle-assignsubmission-collabora/internal/submission"
	"github.com/learnweb/moodle-assignsubmission-collabora/internal/wopi"
	"github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage"
)

// Config carries the HTTP-facing settings.
type Config struct {
	// ListenAddr is the address the server binds to, e.g. ":9980".
	ListenAddr string

	// CallbackURL is the public base URL under which the editor reaches
	// this host. It is embedded as WOPISrc in editor launch URLs and must
	// be reachable from the editor's network, not the browser's.
	CallbackURL string

	// SiteID is reported as OwnerId in every CheckFileInfo response.
	SiteID string

	// ShutdownTimeout bounds graceful shutdown. Zero means 30 seconds.
	ShutdownTimeout time.Duration
}

// Server is the HTTP front of the WOPI host.
type Server struct {
	cfg     Config
	handler *wopi.Handler
	locator *wopi.Locator
	store   storage.Backend
	subs    submission.Resolver
	disc    *discovery.Client
	emitter wopi.EventEmitter
	limiter *ratelimiter.RateLimiter

	httpSrv *http.Server
}

// New wires a server over the given backend and submission resolver. The
// discovery client may be nil, in which case the view endpoint is disabled.
// A nil emitter falls back to logging; a nil limiter means unlimited.
func New(cfg Config, store storage.Backend, subs submission.Resolver, disc *discovery.Client, emitter wopi.EventEmitter, limiter *ratelimiter.RateLimiter) *Server {
	if emitter == nil {
		emitter = wopi.LogEmitter{}
	}
	if limiter == nil {
		limiter = ratelimiter.New(0, 0)
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{
		cfg:     cfg,
		handler: wopi.NewHandler(store, cfg.SiteID),
		locator: wopi.NewLocator(store, subs),
		store:   store,
		subs:    subs,
		disc:    disc,
		emitter: emitter,
		limiter: limiter,
	}

	s.httpSrv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Router builds the HTTP route table. Exposed so tests can drive the server
// through httptest without binding a port.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter().StrictSlash(false)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/view/{submission:[0-9]+}", s.handleView).Methods(http.MethodGet)

	// The WOPI path grammar is parsed by the protocol router, not by mux:
	// the file identifier segment must reach it verbatim.
	r.PathPrefix("/wopi/").HandlerFunc(s.handleWOPI)

	return s.withLogging(s.withRateLimit(r))
}

// Serve runs the server until the context is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		logger.Info("WOPI host listening on %s", s.cfg.ListenAddr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server failed: %w", err)

	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		logger.Info("WOPI host stopped gracefully")
		return ctx.Err()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
