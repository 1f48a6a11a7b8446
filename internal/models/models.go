package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VectorDim is the embedding dimension produced by the remote embedder
// (all-MiniLM-L6-v2).
const VectorDim = 384

// Chunk is the storage unit: a cleaned span of document text plus the
// metadata downstream retrieval needs. Stored in the "chunks" collection.
type Chunk struct {
	UserID    string    `bson:"user_id" json:"user_id"`
	ProjectID string    `bson:"project_id" json:"project_id"`
	Filename  string    `bson:"filename" json:"filename"`
	TopicName string    `bson:"topic_name" json:"topic_name"`
	Summary   string    `bson:"summary" json:"summary"`
	Content   string    `bson:"content" json:"content"`
	PageSpan  [2]int    `bson:"page_span" json:"page_span"`
	CardID    string    `bson:"card_id" json:"card_id"`
	Embedding []float32 `bson:"embedding" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ChunkDTO is the wire shape of a stored chunk: _id stringified and
// created_at rendered as RFC 3339.
type ChunkDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
	Filename  string `json:"filename"`
	TopicName string `json:"topic_name"`
	Summary   string `json:"summary"`
	Content   string `json:"content"`
	PageSpan  [2]int `json:"page_span"`
	CardID    string `json:"card_id"`
	CreatedAt string `json:"created_at"`
}

// FileSummary is the per-file record in the "files" collection, unique per
// (user, project, filename).
type FileSummary struct {
	UserID    string `bson:"user_id" json:"user_id"`
	ProjectID string `bson:"project_id" json:"project_id"`
	Filename  string `bson:"filename" json:"filename"`
	Summary   string `bson:"summary" json:"summary"`
}

const (
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job tracks the progress of one upload request. The document also carries
// the ordered effective filenames and replace flags so the worker can pick
// the job up from the queue with nothing but the job id.
type Job struct {
	ID        string    `bson:"_id" json:"job_id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	ProjectID string    `bson:"project_id" json:"project_id"`
	Files     []JobFile `bson:"files" json:"files"`
	Total     int       `bson:"total" json:"total"`
	Completed int       `bson:"completed" json:"completed"`
	Status    string    `bson:"status" json:"status"`
	LastError *string   `bson:"last_error" json:"last_error"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// JobFile is one entry of a job's file list. Filename is the effective name
// after the rename map was applied at submit time.
type JobFile struct {
	Filename string             `bson:"filename" json:"filename"`
	Size     int64              `bson:"size" json:"size"`
	Replace  bool               `bson:"replace" json:"replace"`
	BlobID   primitive.ObjectID `bson:"blob_id,omitempty" json:"-"`
}
