package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/studybuddy/ingestion/internal/config"
	"github.com/studybuddy/ingestion/internal/ingest"
	"github.com/studybuddy/ingestion/internal/jobs"
	"github.com/studybuddy/ingestion/internal/models"
	"github.com/studybuddy/ingestion/internal/summarize"
	"github.com/studybuddy/ingestion/pkg/chunker"
)

type memJobStore struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
}

func (s *memJobStore) CreateJob(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memJobStore) UpdateJob(ctx context.Context, jobID string, fields bson.M) error {
	return nil
}

func (s *memJobStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

type nullStore struct{}

func (nullStore) StoreChunks(ctx context.Context, chunks []models.Chunk) error { return nil }
func (nullStore) UpsertFileSummary(ctx context.Context, userID, projectID, filename, summary string) error {
	return nil
}
func (nullStore) DeleteFileData(ctx context.Context, userID, projectID, filename string) error {
	return nil
}

type nullEmbedder struct{}

func (nullEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("unused")
}

func testService(js *memJobStore, maxFiles int) *ingest.Service {
	summarizer := summarize.New(nil)
	return ingest.NewService(ingest.Deps{
		Store:      nullStore{},
		Jobs:       jobs.NewManager(js),
		Embedder:   nullEmbedder{},
		Builder:    ingest.NewCardBuilder(nil, summarizer, chunker.DefaultOptions()),
		Summarizer: summarizer,
	}, config.Ingest{
		MaxFilesPerUpload: maxFiles,
		MaxFileMB:         1,
		ChunkMaxWords:     450,
		ChunkMinWords:     150,
		ChunkOverlapWords: 50,
	})
}

func multipartUpload(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func doUpload(h *UploadHandler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)
	return rec
}

func TestUpload(t *testing.T) {
	t.Run("nil service answers 500", func(t *testing.T) {
		h := NewUploadHandler(nil)
		body, ct := multipartUpload(t, map[string]string{"user_id": "u"}, nil)
		rec := doUpload(h, body, ct)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("missing ids rejected", func(t *testing.T) {
		js := &memJobStore{jobs: map[string]*models.Job{}}
		h := NewUploadHandler(testService(js, 15))
		body, ct := multipartUpload(t, nil, map[string][]byte{"a.pdf": []byte("x")})
		rec := doUpload(h, body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too many files rejected", func(t *testing.T) {
		js := &memJobStore{jobs: map[string]*models.Job{}}
		h := NewUploadHandler(testService(js, 1))
		body, ct := multipartUpload(t,
			map[string]string{"user_id": "u1", "project_id": "p1"},
			map[string][]byte{"a.pdf": []byte("x"), "b.pdf": []byte("y")},
		)
		rec := doUpload(h, body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversize file rejected with filename", func(t *testing.T) {
		js := &memJobStore{jobs: map[string]*models.Job{}}
		h := NewUploadHandler(testService(js, 15))
		body, ct := multipartUpload(t,
			map[string]string{"user_id": "u1", "project_id": "p1"},
			map[string][]byte{"A.pdf": make([]byte, 1<<20+1)},
		)
		rec := doUpload(h, body, ct)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp["error"], "A.pdf exceeds 1 MB limit")
	})

	t.Run("accepted upload returns processing job", func(t *testing.T) {
		js := &memJobStore{jobs: map[string]*models.Job{}}
		h := NewUploadHandler(testService(js, 15))
		body, ct := multipartUpload(t,
			map[string]string{
				"user_id":    "u1",
				"project_id": "p1",
				"rename_map": `{"A.pdf": "B.pdf"}`,
			},
			map[string][]byte{"A.pdf": []byte("%PDF-1.4 data")},
		)
		rec := doUpload(h, body, ct)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp uploadResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.JobID)
		assert.Equal(t, models.JobStatusProcessing, resp.Status)
		assert.Equal(t, 1, resp.TotalFiles)

		stored, err := js.GetJob(context.Background(), resp.JobID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "B.pdf", stored.Files[0].Filename)
	})
}

func TestStatus(t *testing.T) {
	js := &memJobStore{jobs: map[string]*models.Job{}}
	h := NewUploadHandler(testService(js, 15))

	t.Run("missing job_id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Status(rec, httptest.NewRequest(http.MethodGet, "/upload/status", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown job is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Status(rec, httptest.NewRequest(http.MethodGet, "/upload/status?job_id=missing", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("known job reported", func(t *testing.T) {
		errMsg := "boom"
		require.NoError(t, js.CreateJob(context.Background(), &models.Job{
			ID: "j1", Total: 3, Completed: 2,
			Status: models.JobStatusFailed, LastError: &errMsg,
		}))

		rec := httptest.NewRecorder()
		h.Status(rec, httptest.NewRequest(http.MethodGet, "/upload/status?job_id=j1", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp jobStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "j1", resp.JobID)
		assert.Equal(t, models.JobStatusFailed, resp.Status)
		assert.Equal(t, 3, resp.Total)
		assert.Equal(t, 2, resp.Completed)
		require.NotNil(t, resp.LastError)
		assert.Equal(t, "boom", *resp.LastError)
	})
}
