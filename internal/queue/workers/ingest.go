package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/studybuddy/ingestion/internal/ingest"
	"github.com/studybuddy/ingestion/internal/models"
	"github.com/studybuddy/ingestion/internal/queue"
	"github.com/studybuddy/ingestion/internal/store"
)

// IngestWorker consumes ingest:job tasks: it loads the persisted job,
// streams each staged blob through the pipeline and lets the orchestrator
// write all terminal state into the job record.
type IngestWorker struct {
	svc   *ingest.Service
	store *store.Store
}

func NewIngestWorker(svc *ingest.Service, st *store.Store) *IngestWorker {
	return &IngestWorker{svc: svc, store: st}
}

func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	job, err := w.store.GetJob(ctx, payload.JobID)
	if err != nil {
		// Transient lookup failure: let asynq retry.
		return fmt.Errorf("get job %s: %w", payload.JobID, err)
	}
	if job == nil {
		slog.Warn("ingest task references unknown job", "job_id", payload.JobID)
		return nil
	}
	if job.Status != models.JobStatusProcessing {
		slog.Info("job already terminal, skipping", "job_id", job.ID, "status", job.Status)
		return nil
	}

	slog.Info("picked up ingest job", "job_id", job.ID, "files", job.Total)
	w.svc.ProcessJob(ctx, job, stagedBlobs{w.store})

	// Outcome lives in the job record; a failed job is not retried.
	return nil
}

// stagedBlobs reads blobs out of the uploads bucket and drops them once
// their file is done.
type stagedBlobs struct {
	store *store.Store
}

func (s stagedBlobs) Open(f models.JobFile) ([]byte, error) {
	return s.store.OpenStaged(f.BlobID)
}

func (s stagedBlobs) Release(f models.JobFile) {
	if err := s.store.DeleteStaged(f.BlobID); err != nil {
		slog.Warn("failed to drop staged blob", "filename", f.Filename, "error", err)
	}
}
