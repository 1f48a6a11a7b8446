package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server Server
	Mongo  Mongo
	Redis  Redis
	Embed  Embed
	LLM    LLM
	Ingest Ingest
}

type Server struct {
	Host string
	Port int
}

type Mongo struct {
	URI             string
	Database        string
	InsertBatchSize int
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Embed struct {
	BaseURL   string
	BatchSize int
}

type LLM struct {
	BaseURL      string
	PrimaryKey   string
	NumberedKeys []string
	SmallModel   string
	LargeModel   string
	CaptionModel string
}

type Ingest struct {
	MaxFilesPerUpload int
	MaxFileMB         int
	ChunkMaxWords     int
	ChunkMinWords     int
	ChunkOverlapWords int
	UseRichPDF        bool
}

// maxNumberedKeys bounds the LLM_API_KEY_1..N scan.
const maxNumberedKeys = 6

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	insertBatch, err := getEnvInt("MONGO_INSERT_BATCH_SIZE", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid MONGO_INSERT_BATCH_SIZE: %w", err)
	}

	embedBatch, err := getEnvInt("EMBED_BATCH_SIZE", 16)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBED_BATCH_SIZE: %w", err)
	}

	maxFiles, err := getEnvInt("MAX_FILES_PER_UPLOAD", 15)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_FILES_PER_UPLOAD: %w", err)
	}

	maxFileMB, err := getEnvInt("MAX_FILE_MB", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_FILE_MB: %w", err)
	}

	maxWords, err := getEnvInt("CHUNK_MAX_WORDS", 450)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_MAX_WORDS: %w", err)
	}

	minWords, err := getEnvInt("CHUNK_MIN_WORDS", 150)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_MIN_WORDS: %w", err)
	}

	overlapWords, err := getEnvInt("CHUNK_OVERLAP_WORDS", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_OVERLAP_WORDS: %w", err)
	}

	var numbered []string
	for i := 1; i <= maxNumberedKeys; i++ {
		if v := os.Getenv(fmt.Sprintf("LLM_API_KEY_%d", i)); v != "" {
			numbered = append(numbered, strings.TrimSpace(v))
		}
	}

	cfg := &Config{
		Server: Server{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Mongo: Mongo{
			URI:             getEnv("MONGO_URI", ""),
			Database:        getEnv("MONGO_DB", "studybuddy"),
			InsertBatchSize: insertBatch,
		},
		Redis: Redis{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Embed: Embed{
			BaseURL:   strings.TrimRight(getEnv("EMBED_BASE_URL", ""), "/"),
			BatchSize: embedBatch,
		},
		LLM: LLM{
			BaseURL:      getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			PrimaryKey:   strings.TrimSpace(os.Getenv("LLM_API_KEY")),
			NumberedKeys: numbered,
			SmallModel:   getEnv("LLM_SMALL_MODEL", "gpt-4o-mini"),
			LargeModel:   getEnv("LLM_LARGE_MODEL", "gpt-4o"),
			CaptionModel: getEnv("CAPTION_MODEL", "gpt-4o-mini"),
		},
		Ingest: Ingest{
			MaxFilesPerUpload: maxFiles,
			MaxFileMB:         maxFileMB,
			ChunkMaxWords:     maxWords,
			ChunkMinWords:     minWords,
			ChunkOverlapWords: overlapWords,
			UseRichPDF:        getEnvBool("PARSER_USE_RICH_PDF", false),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Mongo.URI == "" {
		missing = append(missing, "MONGO_URI")
	}
	if c.Embed.BaseURL == "" {
		missing = append(missing, "EMBED_BASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
