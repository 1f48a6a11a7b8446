package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/studybuddy/ingestion/internal/config"
	"github.com/studybuddy/ingestion/internal/embedding"
	"github.com/studybuddy/ingestion/internal/ingest"
	"github.com/studybuddy/ingestion/internal/jobs"
	"github.com/studybuddy/ingestion/internal/llm"
	"github.com/studybuddy/ingestion/internal/queue"
	"github.com/studybuddy/ingestion/internal/queue/workers"
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
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := store.New(ctx, cfg.Mongo)
	if err != nil {
		slog.Error("mongodb unavailable", "error", err)
		os.Exit(1)
	}
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
	svc := ingest.NewService(ingest.Deps{
		Store:      st,
		Jobs:       jobs.NewManager(st),
		Embedder:   embedding.NewClient(cfg.Embed),
		Builder:    builder,
		Summarizer: summarizer,
		Captioner:  chat,
	}, cfg.Ingest)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			// Files within a job are sequential; concurrency here only
			// spreads distinct jobs across goroutines.
			Concurrency: 4,
		},
	)

	registry := queue.NewRegistry()
	registry.Register(queue.TypeIngestJob, asynq.HandlerFunc(workers.NewIngestWorker(svc, st).ProcessTask))

	slog.Info("starting ingestion worker", "concurrency", 4)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
