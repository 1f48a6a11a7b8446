package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/studybuddy/ingestion/internal/ingest"
)

type UploadHandler struct {
	svc *ingest.Service
}

func NewUploadHandler(svc *ingest.Service) *UploadHandler {
	return &UploadHandler{svc: svc}
}

type uploadResponse struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	TotalFiles int    `json:"total_files"`
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeError(w, http.StatusInternalServerError, "MongoDB connection not available")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	req := ingest.UploadRequest{
		UserID:    r.FormValue("user_id"),
		ProjectID: r.FormValue("project_id"),
	}

	// Replace/rename directives arrive as JSON strings; malformed values
	// are ignored, matching the lenient submit contract.
	if raw := r.FormValue("replace_filenames"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &req.ReplaceFilenames)
	}
	if raw := r.FormValue("rename_map"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &req.RenameMap)
	}

	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["files"] {
			f, err := fh.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable file "+fh.Filename)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable file "+fh.Filename)
				return
			}
			req.Files = append(req.Files, ingest.UploadFile{Name: fh.Filename, Data: data})
		}
	}

	job, err := h.svc.SubmitUpload(r.Context(), req)
	if err != nil {
		if errors.Is(err, ingest.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		JobID:      job.ID,
		Status:     job.Status,
		TotalFiles: job.Total,
	})
}

type jobStatusResponse struct {
	JobID     string  `json:"job_id"`
	Status    string  `json:"status"`
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	LastError *string `json:"last_error"`
}

func (h *UploadHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeError(w, http.StatusInternalServerError, "MongoDB connection not available")
		return
	}

	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job_id is required")
		return
	}

	job, err := h.svc.GetJobStatus(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}

	writeJSON(w, http.StatusOK, jobStatusResponse{
		JobID:     job.ID,
		Status:    job.Status,
		Total:     job.Total,
		Completed: job.Completed,
		LastError: job.LastError,
	})
}
