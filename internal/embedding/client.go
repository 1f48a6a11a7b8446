package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/studybuddy/ingestion/internal/config"
	"github.com/studybuddy/ingestion/internal/models"
)

// Client calls a remote embedding service's /embed endpoint in bounded
// batches. A failing batch degrades to zero vectors so positional
// correspondence with the input is never lost; quality recovery is a
// reprocessing concern, not an ingestion one.
type Client struct {
	baseURL   string
	batchSize int
	http      *http.Client
}

func NewClient(cfg config.Embed) *Client {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 16
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		batchSize: batch,
		http:      &http.Client{Timeout: 60 * time.Second},
	}
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += c.batchSize {
		end := i + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		vectors, err := c.embedBatch(ctx, batch)
		if err != nil {
			slog.Warn("remote embedding failed, using zero vectors", "batch_start", i, "error", err)
			vectors = zeroVectors(len(batch))
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post /embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedder returned %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(parsed.Vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(parsed.Vectors), len(texts))
	}
	for _, v := range parsed.Vectors {
		if len(v) != models.VectorDim {
			return nil, fmt.Errorf("embedder returned vector of length %d, expected %d", len(v), models.VectorDim)
		}
	}
	return parsed.Vectors, nil
}

func zeroVectors(n int) [][]float32 {
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = make([]float32, models.VectorDim)
	}
	return vecs
}
