package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/studybuddy/ingestion/internal/config"
	"github.com/studybuddy/ingestion/internal/jobs"
	"github.com/studybuddy/ingestion/internal/llm"
	"github.com/studybuddy/ingestion/internal/models"
	"github.com/studybuddy/ingestion/internal/queue"
	"github.com/studybuddy/ingestion/internal/summarize"
	"github.com/studybuddy/ingestion/pkg/textextract"
)

// ErrValidation marks rejected upload requests; the HTTP layer maps it to
// a 400.
var ErrValidation = errors.New("invalid upload")

// Store is the chunk/summary persistence surface the orchestrator writes.
type Store interface {
	StoreChunks(ctx context.Context, chunks []models.Chunk) error
	UpsertFileSummary(ctx context.Context, userID, projectID, filename, summary string) error
	DeleteFileData(ctx context.Context, userID, projectID, filename string) error
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// BlobStager parks submitted blobs until the worker picks the job up.
type BlobStager interface {
	StageUpload(jobID string, index int, filename string, data []byte) (primitive.ObjectID, error)
}

type Enqueuer interface {
	EnqueueIngestJob(payload queue.IngestPayload) error
}

// BlobSource hands the worker one staged blob at a time; Release is called
// once the file reaches a terminal per-file state.
type BlobSource interface {
	Open(f models.JobFile) ([]byte, error)
	Release(f models.JobFile)
}

type UploadFile struct {
	Name string
	Data []byte
}

type UploadRequest struct {
	UserID           string
	ProjectID        string
	Files            []UploadFile
	ReplaceFilenames []string
	RenameMap        map[string]string
}

// Deps wires the orchestrator's collaborators. Stager, Queue and
// Captioner may be nil: without a queue the caller drives ProcessJob
// itself, and captioning is best-effort.
type Deps struct {
	Store      Store
	Jobs       *jobs.Manager
	Embedder   Embedder
	Builder    *CardBuilder
	Summarizer *summarize.Summarizer
	Stager     BlobStager
	Queue      Enqueuer
	Captioner  llm.Captioner
}

// Service coordinates the whole ingestion pipeline: it accepts uploads,
// reconciles duplicates, schedules background processing and drives the
// per-file state machine.
type Service struct {
	deps Deps
	cfg  config.Ingest
}

func NewService(deps Deps, cfg config.Ingest) *Service {
	return &Service{deps: deps, cfg: cfg}
}

// SubmitUpload validates the request, applies the rename map, persists the
// job record and staged blobs, and enqueues background processing. It
// returns as soon as the job record exists.
func (s *Service) SubmitUpload(ctx context.Context, req UploadRequest) (*models.Job, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	replaceSet := make(map[string]bool, len(req.ReplaceFilenames))
	for _, name := range req.ReplaceFilenames {
		replaceSet[name] = true
	}

	job := &models.Job{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		ProjectID: req.ProjectID,
		Total:     len(req.Files),
		Status:    models.JobStatusProcessing,
	}

	for i, f := range req.Files {
		effective := f.Name
		if renamed, ok := req.RenameMap[f.Name]; ok && renamed != "" {
			effective = renamed
		}
		jf := models.JobFile{
			Filename: effective,
			Size:     int64(len(f.Data)),
			Replace:  replaceSet[effective],
		}
		if s.deps.Stager != nil {
			blobID, err := s.deps.Stager.StageUpload(job.ID, i, effective, f.Data)
			if err != nil {
				return nil, fmt.Errorf("stage %s: %w", effective, err)
			}
			jf.BlobID = blobID
		}
		job.Files = append(job.Files, jf)
	}

	if err := s.deps.Jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	if s.deps.Queue != nil {
		err := s.deps.Queue.EnqueueIngestJob(queue.IngestPayload{
			JobID:     job.ID,
			UserID:    job.UserID,
			ProjectID: job.ProjectID,
		})
		if err != nil {
			_ = s.deps.Jobs.Fail(ctx, job.ID, 0, "enqueue failed: "+err.Error())
			return nil, fmt.Errorf("enqueue job %s: %w", job.ID, err)
		}
	}

	slog.Info("upload accepted", "job_id", job.ID, "user_id", job.UserID,
		"project_id", job.ProjectID, "files", job.Total)
	return job, nil
}

func (s *Service) validate(req UploadRequest) error {
	if req.UserID == "" || req.ProjectID == "" {
		return fmt.Errorf("%w: user_id and project_id are required", ErrValidation)
	}
	if len(req.Files) == 0 {
		return fmt.Errorf("%w: at least one file is required", ErrValidation)
	}
	if len(req.Files) > s.cfg.MaxFilesPerUpload {
		return fmt.Errorf("%w: too many files, max %d allowed per upload",
			ErrValidation, s.cfg.MaxFilesPerUpload)
	}
	maxBytes := int64(s.cfg.MaxFileMB) << 20
	for _, f := range req.Files {
		if int64(len(f.Data)) > maxBytes {
			return fmt.Errorf("%w: %s exceeds %d MB limit", ErrValidation, f.Name, s.cfg.MaxFileMB)
		}
		if len(f.Data) == 0 {
			return fmt.Errorf("%w: %s is empty", ErrValidation, f.Name)
		}
	}
	seen := make(map[string]bool, len(req.RenameMap))
	for _, target := range req.RenameMap {
		if seen[target] {
			return fmt.Errorf("%w: duplicate rename target %q", ErrValidation, target)
		}
		seen[target] = true
	}
	return nil
}

// GetJobStatus returns nil for unknown job ids.
func (s *Service) GetJobStatus(ctx context.Context, jobID string) (*models.Job, error) {
	return s.deps.Jobs.Get(ctx, jobID)
}

// ProcessJob runs the per-file state machine for every file of the job,
// sequentially and in submission order. All terminal state lands in the
// job record; a per-file failure aborts the remaining files.
func (s *Service) ProcessJob(ctx context.Context, job *models.Job, src BlobSource) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("ingestion panicked", "job_id", job.ID, "panic", r)
			_ = s.deps.Jobs.Fail(ctx, job.ID, job.Completed, fmt.Sprintf("panic: %v", r))
		}
	}()

	total := len(job.Files)
	for idx, f := range job.Files {
		slog.Info("processing file", "job_id", job.ID, "index", idx+1, "total", total,
			"filename", f.Filename, "bytes", f.Size)

		raw, err := src.Open(f)
		if err == nil {
			err = s.processFile(ctx, job, f, raw)
		}
		src.Release(f)

		if err != nil {
			slog.Error("file processing failed", "job_id", job.ID, "filename", f.Filename, "error", err)
			_ = s.deps.Jobs.Fail(ctx, job.ID, idx+1, err.Error())
			return
		}

		job.Completed = idx + 1
		if job.Completed < total {
			if err := s.deps.Jobs.Progress(ctx, job.ID, job.Completed); err != nil {
				slog.Warn("progress update failed", "job_id", job.ID, "error", err)
			}
		}
	}

	_ = s.deps.Jobs.Complete(ctx, job.ID, total)
	slog.Info("ingestion complete", "job_id", job.ID, "files", total)
}

type fileStage string

const (
	stageReconciling fileStage = "reconciling"
	stagePurging     fileStage = "purging"
	stageParsing     fileStage = "parsing"
	stageChunking    fileStage = "chunking"
	stageEmbedding   fileStage = "embedding"
	stagePersisting  fileStage = "persisting"
	stageDone        fileStage = "done"
)

// processFile advances one file through reconcile, parse, chunk, embed and
// persist. The returned error is prefixed with the stage it died in.
func (s *Service) processFile(ctx context.Context, job *models.Job, f models.JobFile, raw []byte) error {
	stage := stageReconciling
	advance := func(next fileStage) {
		stage = next
		slog.Debug("file stage", "job_id", job.ID, "filename", f.Filename, "stage", string(next))
	}
	fail := func(err error) error {
		return fmt.Errorf("%s %s: %w", stage, f.Filename, err)
	}

	if f.Replace {
		advance(stagePurging)
		if err := s.deps.Store.DeleteFileData(ctx, job.UserID, job.ProjectID, f.Filename); err != nil {
			return fail(err)
		}
		slog.Info("purged prior data", "job_id", job.ID, "filename", f.Filename)
	}

	advance(stageParsing)
	pages, err := textextract.ExtractPages(f.Filename, raw, textextract.Options{UseRichPDF: s.cfg.UseRichPDF})
	if err != nil {
		return fail(err)
	}
	s.captionPages(ctx, pages)

	advance(stageChunking)
	cards := s.deps.Builder.BuildCards(ctx, pages, f.Filename, job.UserID, job.ProjectID)

	if len(cards) > 0 {
		advance(stageEmbedding)
		texts := make([]string, len(cards))
		for i, c := range cards {
			texts[i] = c.Content
		}
		vectors, err := s.deps.Embedder.Embed(ctx, texts)
		if err != nil {
			return fail(err)
		}
		if len(vectors) != len(cards) {
			return fail(fmt.Errorf("got %d vectors for %d cards", len(vectors), len(cards)))
		}
		for i := range cards {
			cards[i].Embedding = vectors[i]
		}
	}

	advance(stagePersisting)
	if len(cards) > 0 {
		if err := s.deps.Store.StoreChunks(ctx, cards); err != nil {
			return fail(err)
		}
	}

	pageTexts := make([]string, len(pages))
	for i, p := range pages {
		pageTexts[i] = p.Text
	}
	summary := s.deps.Summarizer.CheapSummarize(ctx, strings.Join(pageTexts, "\n\n"), 6)
	if err := s.deps.Store.UpsertFileSummary(ctx, job.UserID, job.ProjectID, f.Filename, summary); err != nil {
		return fail(err)
	}

	advance(stageDone)
	return nil
}

// captionPages appends best-effort image captions to their page's text.
// Failures are silent; captioning never blocks ingestion.
func (s *Service) captionPages(ctx context.Context, pages []textextract.Page) {
	if s.deps.Captioner == nil {
		return
	}
	for i := range pages {
		if len(pages[i].Images) == 0 {
			continue
		}
		var lines []string
		for _, img := range pages[i].Images {
			if caption := s.deps.Captioner.CaptionImage(ctx, img); caption != "" {
				lines = append(lines, "[Image] "+caption)
			}
		}
		if len(lines) > 0 {
			pages[i].Text = strings.TrimSpace(pages[i].Text + "\n\n" + strings.Join(lines, "\n"))
		}
	}
}
