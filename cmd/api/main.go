package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/studybuddy/ingestion/internal/api"
	"github.com/studybuddy/ingestion/internal/config"
	"github.com/studybuddy/ingestion/internal/embedding"
	"github.com/studybuddy/ingestion/internal/ingest"
	"github.com/studybuddy/ingestion/internal/jobs"
	"github.com/studybuddy/ingestion/internal/llm"
	"github.com/studybuddy/ingestion/internal/queue"
	"github.com/studybuddy/ingestion/internal/store"
	"github.com/studybuddy/ingestion/internal/summarize"
	"github.com/studybuddy/ingestion/pkg/chunker"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		// Serve anyway instead of refusing to start: without a MongoDB
		// connection /health reports mongodb_connected=false and /upload
		// answers 500. A missing EMBED_BASE_URL alone does not block
		// uploads; their embeddings then degrade to zero vectors.
		slog.Warn("incomplete configuration", "error", err)
	}

	ctx := context.Background()

	var st *store.Store
	var svc *ingest.Service
	if cfg.Mongo.URI != "" {
		st, err = store.New(ctx, cfg.Mongo)
		if err != nil {
			slog.Warn("mongodb unavailable, running degraded", "error", err)
		} else {
			defer st.Close(ctx)
			if err := st.EnsureIndexes(ctx); err != nil {
				slog.Warn("ensure indexes failed", "error", err)
			}

			chat := llm.NewClient(cfg.LLM)
			summarizer := summarize.New(chat)
			builder := ingest.NewCardBuilder(chat, summarizer, chunker.Options{
				MaxWords:     cfg.Ingest.ChunkMaxWords,
				MinWords:     cfg.Ingest.ChunkMinWords,
				OverlapWords: cfg.Ingest.ChunkOverlapWords,
			})
			svc = ingest.NewService(ingest.Deps{
				Store:      st,
				Jobs:       jobs.NewManager(st),
				Embedder:   embedding.NewClient(cfg.Embed),
				Builder:    builder,
				Summarizer: summarizer,
				Stager:     st,
				Queue:      queue.NewClient(cfg.Redis),
				Captioner:  chat,
			}, cfg.Ingest)
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, background processing will stall", "error", err)
	}
	defer rdb.Close()

	router := api.NewRouter(st, svc)
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting ingestion API", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
