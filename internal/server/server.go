// Package server exposes dialog sessions over HTTP. Every dialog action is a
// plain form post, so the rendered dialogs work without JavaScript.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/goliatone/go-dialogform/pkg/options"
	"github.com/goliatone/go-dialogform/pkg/orchestrator"
	rendertemplate "github.com/goliatone/go-dialogform/pkg/render/template"
	"github.com/goliatone/go-dialogform/pkg/renderers/html"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const assetsPrefix = "/assets"

// RecordLister lists the stored records of an entity type for the index page.
type RecordLister interface {
	List(entityType string) []map[string]any
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOptionLoaders exposes loaders on /options/{loader}.
func WithOptionLoaders(reg *options.Registry) Option {
	return func(s *Server) {
		s.loaders = reg
	}
}

// WithRecords enables record links on the index page.
func WithRecords(records RecordLister) Option {
	return func(s *Server) {
		s.records = records
	}
}

// WithTheme sets the theme and variant used when a request names none.
func WithTheme(name, variant string) Option {
	return func(s *Server) {
		s.themeName = name
		s.themeVariant = variant
	}
}

// WithRequestTimeout bounds the handling time of one request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Server routes HTTP requests to orchestrator sessions.
type Server struct {
	orch         *orchestrator.Orchestrator
	loaders      *options.Registry
	records      RecordLister
	logger       *zap.Logger
	pages        *rendertemplate.Engine
	metrics      *metrics
	themeName    string
	themeVariant string
	timeout      time.Duration
	router       chi.Router
}

// New builds the server and its routes.
func New(orch *orchestrator.Orchestrator, opts ...Option) (*Server, error) {
	if orch == nil {
		return nil, errors.New("server: orchestrator is required")
	}
	pages, err := rendertemplate.NewEngine(rendertemplate.WithFS(templatesFS))
	if err != nil {
		return nil, fmt.Errorf("server: page templates: %w", err)
	}

	s := &Server{
		orch:    orch,
		logger:  zap.NewNop(),
		pages:   pages,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.metrics = newMetrics(func() float64 { return float64(len(orch.Sessions())) })
	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.instrument)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/", s.handleIndex)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())
	r.Handle(assetsPrefix+"/*", http.StripPrefix(assetsPrefix+"/", http.FileServer(http.FS(html.AssetsFS()))))

	r.Get("/options/{loader}", s.handleOptions)
	r.Head("/options/{loader}", s.handleOptions)

	r.Get("/entities/{entityType}/{entityID}", s.handleOpenRecord)
	r.Post("/dialogs", s.handleCreate)
	r.Route("/dialogs/{session}", func(r chi.Router) {
		r.Get("/", s.handleRender)
		r.Post("/submit", s.handleSubmit)
		r.Post("/edit", s.handleEdit)
		r.Post("/cancel", s.handleCancel)
		r.Post("/close", s.handleClose)
		r.Post("/delete", s.handleDelete)
		r.Post("/tokens/{field}/{token}", s.handleToken)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and closes every open session.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.orch.Close()
	s.logger.Info("http server stopped")
	return err
}
