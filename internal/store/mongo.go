package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/studybuddy/ingestion/internal/config"
	"github.com/studybuddy/ingestion/internal/models"
)

const (
	collChunks = "chunks"
	collFiles  = "files"
	collJobs   = "jobs"

	uploadsBucket = "uploads"
)

// Store is the Mongo-backed storage gateway. One instance is shared
// process-wide; the driver pools connections internally.
type Store struct {
	client      *mongo.Client
	chunks      *mongo.Collection
	files       *mongo.Collection
	jobs        *mongo.Collection
	uploads     *gridfs.Bucket
	insertBatch int
}

func New(ctx context.Context, cfg config.Mongo) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo uri is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(cfg.Database)
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(uploadsBucket))
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}

	batch := cfg.InsertBatchSize
	if batch <= 0 {
		batch = 200
	}

	return &Store{
		client:      client,
		chunks:      db.Collection(collChunks),
		files:       db.Collection(collFiles),
		jobs:        db.Collection(collJobs),
		uploads:     bucket,
		insertBatch: batch,
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// StoreChunks bulk-inserts chunks in unordered batches. Any chunk with a
// wrong embedding length fails the whole call before anything is written.
func (s *Store) StoreChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := ValidateChunks(chunks); err != nil {
		return err
	}

	now := time.Now().UTC()
	for i := 0; i < len(chunks); i += s.insertBatch {
		end := i + s.insertBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		docs := make([]interface{}, 0, end-i)
		for _, c := range chunks[i:end] {
			if c.CreatedAt.IsZero() {
				c.CreatedAt = now
			}
			docs = append(docs, c)
		}
		if _, err := s.chunks.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false)); err != nil {
			return fmt.Errorf("insert chunk batch: %w", err)
		}
	}
	slog.Info("stored chunks", "count", len(chunks), "filename", chunks[0].Filename)
	return nil
}

// ValidateChunks checks every embedding against models.VectorDim.
func ValidateChunks(chunks []models.Chunk) error {
	for _, c := range chunks {
		if len(c.Embedding) != models.VectorDim {
			return fmt.Errorf("%w: card %s has %d, expected %d",
				ErrInvalidEmbedding, c.CardID, len(c.Embedding), models.VectorDim)
		}
	}
	return nil
}

func (s *Store) UpsertFileSummary(ctx context.Context, userID, projectID, filename, summary string) error {
	_, err := s.files.UpdateOne(ctx,
		bson.M{"user_id": userID, "project_id": projectID, "filename": filename},
		bson.M{"$set": bson.M{"summary": summary}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert file summary: %w", err)
	}
	return nil
}

func (s *Store) ListFiles(ctx context.Context, userID, projectID string) ([]models.FileSummary, error) {
	cur, err := s.files.Find(ctx,
		bson.M{"user_id": userID, "project_id": projectID},
		options.Find().SetSort(bson.D{{Key: "filename", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.FileSummary
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	return out, nil
}

func (s *Store) GetFileChunks(ctx context.Context, userID, projectID, filename string, limit int) ([]models.ChunkDTO, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.chunks.Find(ctx,
		bson.M{"user_id": userID, "project_id": projectID, "filename": filename},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("find chunks: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.ChunkDTO
	for cur.Next(ctx) {
		var doc struct {
			ID           primitive.ObjectID `bson:"_id"`
			models.Chunk `bson:",inline"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode chunk: %w", err)
		}
		out = append(out, models.ChunkDTO{
			ID:        doc.ID.Hex(),
			UserID:    doc.UserID,
			ProjectID: doc.ProjectID,
			Filename:  doc.Filename,
			TopicName: doc.TopicName,
			Summary:   doc.Summary,
			Content:   doc.Content,
			PageSpan:  doc.PageSpan,
			CardID:    doc.CardID,
			CreatedAt: doc.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

// DeleteFileData removes all chunks and the summary for the triple.
// Idempotent: deleting a filename with no stored data is not an error.
func (s *Store) DeleteFileData(ctx context.Context, userID, projectID, filename string) error {
	filter := bson.M{"user_id": userID, "project_id": projectID, "filename": filename}
	if _, err := s.chunks.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if _, err := s.files.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("delete file summary: %w", err)
	}
	return nil
}

// EnsureIndexes creates the composite lookup indexes. A pre-existing index
// with different options is treated as success.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "project_id", Value: 1},
			{Key: "filename", Value: 1},
		},
	}
	for _, coll := range []*mongo.Collection{s.chunks, s.files} {
		if _, err := coll.Indexes().CreateOne(ctx, model); err != nil {
			if isIndexConflict(err) {
				slog.Warn("index already exists with different options", "collection", coll.Name())
				continue
			}
			return fmt.Errorf("create index on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// isIndexConflict reports whether err is IndexOptionsConflict (85) or
// IndexKeySpecsConflict (86).
func isIndexConflict(err error) bool {
	var srvErr mongo.ServerError
	if errors.As(err, &srvErr) {
		return srvErr.HasErrorCode(85) || srvErr.HasErrorCode(86)
	}
	return false
}

// ── Job CRUD ───────────────────────────────────────────────────────────────

func (s *Store) CreateJob(ctx context.Context, job *models.Job) error {
	if _, err := s.jobs.InsertOne(ctx, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// UpdateJob writes only the provided fields (last-write-wins).
func (s *Store) UpdateJob(ctx context.Context, jobID string, fields bson.M) error {
	if len(fields) == 0 {
		return nil
	}
	if _, err := s.jobs.UpdateByID(ctx, jobID, bson.M{"$set": fields}); err != nil {
		return fmt.Errorf("update job %s: %w", jobID, err)
	}
	return nil
}

// GetJob returns nil (no error) for unknown job ids.
func (s *Store) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	err := s.jobs.FindOne(ctx, bson.M{"_id": jobID}).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return &job, nil
}
