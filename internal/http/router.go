package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ragsync/internal/handlers"
	"ragsync/internal/rag"
	"ragsync/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine  rag.Engine
	Indexer handlers.IndexRunner
	Opener  vectorstore.Opener
	Logger  *slog.Logger
}

// Router is the API handler. Wait blocks until a background ingestion
// started through the API has finished.
type Router struct {
	http.Handler
	index *handlers.IndexHandler
}

// Wait blocks until any API-triggered ingestion has finished.
func (rt *Router) Wait() {
	rt.index.Wait()
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) *Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	askHandler := handlers.NewAskHandler(deps.Engine)
	indexHandler := handlers.NewIndexHandler(deps.Indexer)
	healthHandler := handlers.NewHealthHandler(deps.Opener)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Route("/v1", func(r chi.Router) {
			r.Method(http.MethodPost, "/ask", askHandler)
			r.Method(http.MethodPost, "/index", indexHandler)
		})
	})

	return &Router{Handler: r, index: indexHandler}
}
