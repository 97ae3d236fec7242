package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"lmrelay/internal/handlers"
	"lmrelay/internal/logger"
	"lmrelay/internal/middleware"
)

func New(
	log *zap.Logger,
	chatHandler *handlers.ChatHandler,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(logger.Middleware(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	r.Get("/health", handlers.Health)
	r.Post("/chat", chatHandler.Chat)
	r.Handle("/metrics", metricsHandler)

	return r
}
