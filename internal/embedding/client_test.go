package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studybuddy/ingestion/internal/config"
	"github.com/studybuddy/ingestion/internal/models"
)

func newTestClient(url string, batch int) *Client {
	return NewClient(config.Embed{BaseURL: url, BatchSize: batch})
}

func embedServer(t *testing.T, handler func(texts []string) ([][]float32, int)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)
		var req struct {
			Texts []string `json:"texts"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		vectors, status := handler(req.Texts)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"vectors": vectors})
	}))
}

func markedVectors(texts []string, mark float32) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, models.VectorDim)
		out[i][0] = mark
	}
	return out
}

func TestEmbed(t *testing.T) {
	ctx := context.Background()

	t.Run("empty input", func(t *testing.T) {
		c := newTestClient("http://unused", 8)
		vecs, err := c.Embed(ctx, nil)
		require.NoError(t, err)
		assert.Nil(t, vecs)
	})

	t.Run("batches preserve order and count", func(t *testing.T) {
		var batchSizes []int
		srv := embedServer(t, func(texts []string) ([][]float32, int) {
			batchSizes = append(batchSizes, len(texts))
			out := markedVectors(texts, 1)
			for i, text := range texts {
				out[i][0] = float32(text[0])
			}
			return out, http.StatusOK
		})
		defer srv.Close()

		inputs := []string{"a", "b", "c", "d", "e"}
		c := newTestClient(srv.URL, 2)
		vecs, err := c.Embed(ctx, inputs)
		require.NoError(t, err)
		require.Len(t, vecs, 5)
		assert.Equal(t, []int{2, 2, 1}, batchSizes)
		for i, v := range vecs {
			assert.Len(t, v, models.VectorDim)
			assert.Equal(t, float32(inputs[i][0]), v[0])
		}
	})

	t.Run("http error degrades to zero vectors", func(t *testing.T) {
		srv := embedServer(t, func(texts []string) ([][]float32, int) {
			return nil, http.StatusInternalServerError
		})
		defer srv.Close()

		c := newTestClient(srv.URL, 8)
		vecs, err := c.Embed(ctx, []string{"a", "b"})
		require.NoError(t, err)
		require.Len(t, vecs, 2)
		for _, v := range vecs {
			require.Len(t, v, models.VectorDim)
			for _, f := range v {
				assert.Zero(t, f)
			}
		}
	})

	t.Run("count mismatch degrades to zero vectors", func(t *testing.T) {
		srv := embedServer(t, func(texts []string) ([][]float32, int) {
			return markedVectors(texts[:1], 1), http.StatusOK
		})
		defer srv.Close()

		c := newTestClient(srv.URL, 8)
		vecs, err := c.Embed(ctx, []string{"a", "b"})
		require.NoError(t, err)
		require.Len(t, vecs, 2)
		assert.Zero(t, vecs[0][0])
	})

	t.Run("wrong dimension degrades to zero vectors", func(t *testing.T) {
		srv := embedServer(t, func(texts []string) ([][]float32, int) {
			out := make([][]float32, len(texts))
			for i := range out {
				out[i] = make([]float32, 3)
			}
			return out, http.StatusOK
		})
		defer srv.Close()

		c := newTestClient(srv.URL, 8)
		vecs, err := c.Embed(ctx, []string{"a"})
		require.NoError(t, err)
		require.Len(t, vecs, 1)
		assert.Len(t, vecs[0], models.VectorDim)
	})

	t.Run("only the failing batch degrades", func(t *testing.T) {
		call := 0
		srv := embedServer(t, func(texts []string) ([][]float32, int) {
			call++
			if call == 1 {
				return nil, http.StatusBadGateway
			}
			return markedVectors(texts, 7), http.StatusOK
		})
		defer srv.Close()

		c := newTestClient(srv.URL, 2)
		vecs, err := c.Embed(ctx, []string{"a", "b", "c"})
		require.NoError(t, err)
		require.Len(t, vecs, 3)
		assert.Zero(t, vecs[0][0])
		assert.Zero(t, vecs[1][0])
		assert.Equal(t, float32(7), vecs[2][0])
	})
}
