package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"salescoach-ai/internal/config"
	"salescoach-ai/internal/contextutil"
	"salescoach-ai/internal/drive"
	"salescoach-ai/internal/http"
	"salescoach-ai/internal/indexer"
	"salescoach-ai/internal/llm"
	"salescoach-ai/internal/rag"
	"salescoach-ai/internal/storage"
	"salescoach-ai/internal/vectorstore"
)

const voyageBaseURL = "https://api.voyageai.com"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	docRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)

	ctx := contextutil.WithLogger(context.Background(), logger)

	var vectorStore vectorstore.VectorStore
	switch cfg.VectorBackend {
	case "pinecone":
		vectorStore = vectorstore.NewPineconeStore(cfg.PineconeAPIKey, cfg.VectorIndexName)
	case "qdrant":
		qs, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.VectorIndexName)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		vectorStore = qs
	default:
		vectorStore = vectorstore.NewMemoryStore()
	}

	if err := vectorStore.EnsureIndex(ctx, cfg.VectorDimension); err != nil {
		log.Fatalf("Failed to ensure vector index: %v", err)
	}
	slog.Info("Vector index ready", "backend", cfg.VectorBackend, "index", cfg.VectorIndexName, "dimension", cfg.VectorDimension)

	var embedder llm.Embedder
	if cfg.VoyageAPIKey != "" {
		embedder = llm.NewEmbeddingsClient(voyageBaseURL, cfg.VoyageAPIKey, cfg.EmbeddingModel, cfg.VectorDimension)
	} else {
		slog.Warn("VOYAGE_API_KEY not set, using deterministic hash embeddings")
		embedder = llm.NewHashEmbedder(cfg.VectorDimension)
	}

	pipeline := indexer.NewPipeline(docRepo, chunkRepo, embedder, vectorStore)

	generator := llm.NewClient("", cfg.AnthropicAPIKey, cfg.GenerationModel)
	engine := rag.NewEngine(embedder, vectorStore, generator)
	slog.Info("RAG engine initialized", "model", cfg.GenerationModel)

	var fetcher *drive.Source
	if cfg.GoogleServiceAccount != "" {
		fetcher, err = drive.NewSource(ctx, cfg.GoogleServiceAccount)
		if err != nil {
			log.Fatalf("Failed to create Drive source: %v", err)
		}
	} else {
		slog.Warn("GOOGLE_SERVICE_ACCOUNT_JSON not set, document fetching disabled")
	}

	deps := &http.Deps{
		Pipeline:    pipeline,
		Retriever:   engine,
		Chatter:     engine,
		VectorStore: vectorStore,
	}
	if fetcher != nil {
		deps.Fetcher = fetcher
		deps.Folders = cfg.FolderIDs()
	}
	router := http.NewRouter(deps)

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
