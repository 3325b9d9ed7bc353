package http

import (
	"net/http"
	"time"

	"github.com/contech-ims/binsight/pkg/service/geocode"
	"github.com/contech-ims/binsight/pkg/service/source"
	"github.com/contech-ims/binsight/pkg/usecase"
	"github.com/contech-ims/binsight/pkg/utils/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	router   *chi.Mux
	usecases *usecase.UseCases
	source   *source.Service
	geocoder *geocode.Service
}

type Options func(*Server)

// WithSource enables the GET /buildings endpoint.
func WithSource(svc *source.Service) Options {
	return func(s *Server) {
		s.source = svc
	}
}

// WithGeocoder enables the GET /geocode endpoint.
func WithGeocoder(svc *geocode.Service) Options {
	return func(s *Server) {
		s.geocoder = svc
	}
}

func New(usecases *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:   r,
		usecases: usecases,
	}
	for _, opt := range opts {
		opt(s)
	}

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Post("/chat", chatHandler(s.usecases.Query))
	r.Get("/health", healthHandler)

	if s.source != nil {
		r.Get("/buildings", buildingsHandler(s.source, s.usecases))
	}
	if s.geocoder != nil {
		r.Get("/geocode", geocodeHandler(s.geocoder))
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
