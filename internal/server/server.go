// Package server exposes mdexport over HTTP.
//
// Endpoints:
//   - POST /export/{format}  markdown body in, artifact out as an attachment
//   - GET  /healthz          liveness probe
//
// Each request borrows an exporter from a pool, so captures from concurrent
// requests run on separate browsers.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alnah/go-mdexport"
	"github.com/alnah/go-mdexport/internal/logging"
)

const (
	// MaxBodySize bounds the markdown accepted per request (5MB).
	MaxBodySize = 5 << 20

	// DefaultRequestTimeout bounds a whole request, capture included.
	DefaultRequestTimeout = 60 * time.Second

	// shutdownGrace is how long in-flight exports get to finish on shutdown.
	shutdownGrace = 10 * time.Second
)

// Exporter builds one artifact. *mdexport.Exporter satisfies it.
type Exporter interface {
	Export(ctx context.Context, format mdexport.Format, content, filename string) (*mdexport.Artifact, error)
}

// Pool lends exporters to requests.
type Pool interface {
	Acquire(ctx context.Context) (Exporter, error)
	Release(Exporter)
}

// exporterPool adapts *mdexport.ExporterPool to Pool.
type exporterPool struct {
	p *mdexport.ExporterPool
}

// FromExporterPool wraps an mdexport pool for use by the server.
func FromExporterPool(p *mdexport.ExporterPool) Pool {
	return exporterPool{p: p}
}

func (a exporterPool) Acquire(ctx context.Context) (Exporter, error) {
	e, err := a.p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (a exporterPool) Release(e Exporter) {
	if ex, ok := e.(*mdexport.Exporter); ok {
		a.p.Release(ex)
	}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRequestTimeout bounds each request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithVersion sets the version reported by /healthz.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// Server routes export requests to a pool of exporters.
type Server struct {
	pool    Pool
	logger  *log.Logger
	timeout time.Duration
	version string
	router  chi.Router
}

// New builds a Server and its routes.
func New(pool Pool, opts ...Option) *Server {
	s := &Server{
		pool:    pool,
		logger:  logging.Discard(),
		timeout: DefaultRequestTimeout,
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/healthz", s.handleHealth)
	r.Post("/export/{format}", s.handleExport)

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return logging.WithLogger(context.Background(), s.logger) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: s.version})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := mdexport.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("body exceeds %d bytes", MaxBodySize))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("reading body: %w", err))
		return
	}

	ctx := r.Context()
	a, err := s.export(ctx, format, string(body), r.URL.Query().Get("filename"))
	if err != nil {
		logging.FromContext(ctx).Warn("export failed", "format", format, "err", err)
		writeError(w, statusFor(err), err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", a.MIMEType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	h.Set("Content-Length", strconv.Itoa(a.Size()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Data)
}

// export runs one export on a pooled exporter. The exporter goes back to
// the pool before the response is written.
func (s *Server) export(ctx context.Context, format mdexport.Format, content, filename string) (*mdexport.Artifact, error) {
	e, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Release(e)
	return e.Export(ctx, format, content, filename)
}

// statusFor maps export errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, mdexport.ErrEmptyMarkdown),
		errors.Is(err, mdexport.ErrInvalidFormat),
		errors.Is(err, mdexport.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, mdexport.ErrTargetNotFound):
		return http.StatusNotFound
	case errors.Is(err, mdexport.ErrTaintedImage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, mdexport.ErrPoolClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, mdexport.ErrBrowserConnect):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// logRequests carries a request-scoped logger in the context and logs one
// debug line per request with its status and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		r = r.WithContext(logging.WithLogger(r.Context(), l))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		l.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}
