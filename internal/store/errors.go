package store

import "errors"

var (
	// ErrInvalidEmbedding is returned by StoreChunks when any chunk carries
	// an embedding whose length differs from models.VectorDim.
	ErrInvalidEmbedding = errors.New("invalid embedding length")
)
