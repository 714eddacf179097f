// Package server exposes the rule engine over HTTP.
//
// Routes:
//
//	POST /render        render one template or macro
//	POST /render/batch  render many templates concurrently
//	GET  /macros        list macros with their inspected parameters
//	GET  /macros/{name} show one macro
//	GET  /rules         list registered rule names
//	GET  /stats         plan cache statistics
//	GET  /healthz       liveness
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/dynsql/internal/engine"
)

// RequestIDHeader carries the request id on requests and responses.
const RequestIDHeader = "X-Request-ID"

// Server is the HTTP render server.
type Server struct {
	engine      *engine.Engine
	addr        string
	watch       bool
	readTimeout time.Duration
	logger      *slog.Logger
}

// Config holds configuration for the server.
type Config struct {
	Engine *engine.Engine
	// Addr is the listen address, e.g. ":8080"
	Addr string
	// Watch reloads macros when the macro directory changes
	Watch bool
	// ReadTimeout bounds reading a request (10s if zero)
	ReadTimeout time.Duration
	Logger      *slog.Logger
}

// New creates a server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 10 * time.Second
	}
	return &Server{
		engine:      cfg.Engine,
		addr:        cfg.Addr,
		watch:       cfg.Watch,
		readTimeout: readTimeout,
		logger:      logger,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		s.requestID,
		s.requestLogger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	h := &handlers{engine: s.engine, logger: s.logger}
	r.Get("/healthz", h.health)
	r.Get("/rules", h.rules)
	r.Get("/stats", h.stats)
	r.Route("/macros", func(r chi.Router) {
		r.Get("/", h.listMacros)
		r.Get("/{name}", h.getMacro)
	})
	r.Route("/render", func(r chi.Router) {
		r.Post("/", h.render)
		r.Post("/batch", h.renderBatch)
	})
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until the context is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting render server", "addr", ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: s.readTimeout,
		ReadTimeout:       s.readTimeout,
	}

	if s.watch {
		eg.Go(func() error {
			return s.engine.WatchMacros(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down render server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// requestID assigns every request a UUID unless the client sent one.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	})
}
