// Package server exposes the QA service over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/service"
)

// Service is the application surface served over HTTP.
type Service interface {
	Upload(ctx context.Context, docs []domain.Document) (service.UploadResult, error)
	Ask(ctx context.Context, sessionID, question string) (domain.Answer, error)
	Reset(ctx context.Context, sessionID string) error
	History(ctx context.Context, sessionID string) ([]domain.Turn, error)
}

type Server struct {
	*http.Server
	svc            Service
	log            logrus.FieldLogger
	maxUploadBytes int64
}

func New(cfg config.ServerConfig, svc Service, log logrus.FieldLogger) *Server {
	s := &Server{
		svc:            svc,
		log:            log,
		maxUploadBytes: int64(cfg.MaxUploadMB) << 20,
	}
	s.Server = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.routes(cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeoutSecs) * time.Second,
	}
	return s
}

func (s *Server) routes(origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/upload", s.handleUpload)
	r.Post("/ask", s.handleAsk)
	r.Post("/reset", s.handleReset)
	r.Get("/sessions/{id}/history", s.handleHistory)
	r.Get("/health", s.handleHealth)
	return r
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).Round(time.Millisecond),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}
