package jobs

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/studybuddy/ingestion/internal/models"
)

// Store is the job persistence surface the manager needs.
type Store interface {
	CreateJob(ctx context.Context, job *models.Job) error
	UpdateJob(ctx context.Context, jobID string, fields bson.M) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
}

// Manager owns the per-upload progress records. Updates write only the
// provided fields, last-write-wins.
type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

func (m *Manager) Create(ctx context.Context, job *models.Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.JobStatusProcessing
	}
	return m.store.CreateJob(ctx, job)
}

// Get returns nil for unknown job ids.
func (m *Manager) Get(ctx context.Context, jobID string) (*models.Job, error) {
	return m.store.GetJob(ctx, jobID)
}

// Progress records that `completed` files have finished while the job is
// still running.
func (m *Manager) Progress(ctx context.Context, jobID string, completed int) error {
	return m.store.UpdateJob(ctx, jobID, bson.M{
		"completed": completed,
		"status":    models.JobStatusProcessing,
	})
}

// Complete moves the job to its successful terminal state.
func (m *Manager) Complete(ctx context.Context, jobID string, total int) error {
	return m.store.UpdateJob(ctx, jobID, bson.M{
		"completed": total,
		"status":    models.JobStatusCompleted,
	})
}

// Fail moves the job to its failed terminal state, recording the error.
func (m *Manager) Fail(ctx context.Context, jobID string, completed int, lastError string) error {
	return m.store.UpdateJob(ctx, jobID, bson.M{
		"completed":  completed,
		"status":     models.JobStatusFailed,
		"last_error": lastError,
	})
}
