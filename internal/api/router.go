// Package api exposes the engine and the assistant over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"payrollrag/internal/logger"
)

// RequestIDHeader carries the request id on both request and response.
const RequestIDHeader = "X-Request-ID"

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/search", h.Search)
		r.Get("/records", h.Records)
		r.Get("/stats", h.Stats)
		r.Post("/ask", h.Ask)
		r.Get("/conversations/{id}", h.ExportConversation)
		r.Delete("/conversations/{id}", h.DeleteConversation)
	})

	return r
}

// requestID keeps an incoming X-Request-ID or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Info("%s %s %d %s [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start), r.Header.Get(RequestIDHeader))
	})
}
