package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"salescoach-ai/internal/config"
	"salescoach-ai/internal/contextutil"
	"salescoach-ai/internal/drive"
	"salescoach-ai/internal/indexer"
	"salescoach-ai/internal/llm"
	"salescoach-ai/internal/storage"
	"salescoach-ai/internal/vectorstore"
)

const voyageBaseURL = "https://api.voyageai.com"

// ingest fetches every document from the configured Drive folders and indexes
// the ones not already in the vector index, then exits.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if cfg.GoogleServiceAccount == "" {
		log.Fatal("GOOGLE_SERVICE_ACCOUNT_JSON is required")
	}
	folders := cfg.FolderIDs()
	if len(folders) == 0 {
		log.Fatal("At least one of SIMULATION_FOLDER_ID, TECHNICAL_FOLDER_ID, GENERAL_FOLDER_ID is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = contextutil.WithLogger(ctx, logger)

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

	var embedder llm.Embedder
	if cfg.VoyageAPIKey != "" {
		embedder = llm.NewEmbeddingsClient(voyageBaseURL, cfg.VoyageAPIKey, cfg.EmbeddingModel, cfg.VectorDimension)
	} else {
		slog.Warn("VOYAGE_API_KEY not set, using deterministic hash embeddings")
		embedder = llm.NewHashEmbedder(cfg.VectorDimension)
	}

	source, err := drive.NewSource(ctx, cfg.GoogleServiceAccount)
	if err != nil {
		log.Fatalf("Failed to create Drive source: %v", err)
	}

	slog.Info("Fetching documents", "folders", len(folders))
	docs, err := source.FetchAll(ctx, folders)
	if err != nil {
		log.Fatalf("Failed to fetch documents: %v", err)
	}
	slog.Info("Fetched documents", "count", len(docs))

	pipeline := indexer.NewPipeline(
		storage.NewDocumentRepo(db),
		storage.NewChunkRepo(db),
		embedder,
		vectorStore,
	)

	result, err := pipeline.IndexDocuments(ctx, docs)
	if err != nil {
		log.Fatalf("Indexing failed: %v", err)
	}

	slog.Info("Indexing finished",
		"processed", result.Processed,
		"chunks", result.ChunkCount,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	if result.Failed > 0 {
		os.Exit(1)
	}
}
