package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"salescoach-ai/internal/handlers"
	"salescoach-ai/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Fetcher     handlers.DocumentFetcher
	Pipeline    handlers.Indexer
	Retriever   handlers.Retriever
	Chatter     handlers.Chatter
	VectorStore vectorstore.VectorStore
	Folders     map[string]string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORS)

	processHandler := handlers.NewProcessHandler(deps.Fetcher, deps.Pipeline, deps.Folders)
	queryHandler := handlers.NewQueryHandler(deps.Retriever)
	chatHandler := handlers.NewChatHandler(deps.Chatter)
	healthHandler := handlers.NewHealthHandler(deps.VectorStore)

	r.Route("/api", func(r chi.Router) {
		r.Route("/indexing", func(r chi.Router) {
			r.Method(http.MethodPost, "/process", processHandler)
			r.Method(http.MethodPost, "/query", queryHandler)
		})
		r.Method(http.MethodPost, "/chat", chatHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
