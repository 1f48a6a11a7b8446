package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studybuddy/ingestion/internal/models"
)

func chunkWithDim(dim int) models.Chunk {
	return models.Chunk{
		UserID:    "u1",
		ProjectID: "p1",
		Filename:  "f.pdf",
		Content:   "text",
		CardID:    "f-pdf-c0001",
		Embedding: make([]float32, dim),
	}
}

func TestValidateChunks(t *testing.T) {
	t.Run("correct dimension passes", func(t *testing.T) {
		assert.NoError(t, ValidateChunks([]models.Chunk{chunkWithDim(models.VectorDim)}))
	})

	t.Run("wrong dimension fails", func(t *testing.T) {
		err := ValidateChunks([]models.Chunk{chunkWithDim(3)})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidEmbedding)
	})

	t.Run("missing embedding fails", func(t *testing.T) {
		c := chunkWithDim(models.VectorDim)
		c.Embedding = nil
		assert.ErrorIs(t, ValidateChunks([]models.Chunk{c}), ErrInvalidEmbedding)
	})

	t.Run("one bad chunk fails the whole set", func(t *testing.T) {
		err := ValidateChunks([]models.Chunk{
			chunkWithDim(models.VectorDim),
			chunkWithDim(models.VectorDim - 1),
		})
		assert.ErrorIs(t, err, ErrInvalidEmbedding)
	})
}

func TestIsIndexConflict(t *testing.T) {
	assert.False(t, isIndexConflict(nil))
	assert.False(t, isIndexConflict(assert.AnError))
}
