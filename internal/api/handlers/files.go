package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/studybuddy/ingestion/internal/models"
)

// FileReader is the read-only slice of the storage gateway the files
// endpoints need.
type FileReader interface {
	ListFiles(ctx context.Context, userID, projectID string) ([]models.FileSummary, error)
	GetFileChunks(ctx context.Context, userID, projectID, filename string, limit int) ([]models.ChunkDTO, error)
}

type FilesHandler struct {
	reader FileReader
}

func NewFilesHandler(reader FileReader) *FilesHandler {
	return &FilesHandler{reader: reader}
}

type fileEntry struct {
	Filename string `json:"filename"`
	Summary  string `json:"summary"`
}

func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusInternalServerError, "MongoDB connection not available")
		return
	}

	userID := r.URL.Query().Get("user_id")
	projectID := r.URL.Query().Get("project_id")
	if userID == "" || projectID == "" {
		writeError(w, http.StatusBadRequest, "user_id and project_id are required")
		return
	}

	files, err := h.reader.ListFiles(r.Context(), userID, projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entries := make([]fileEntry, 0, len(files))
	filenames := make([]string, 0, len(files))
	for _, f := range files {
		entries = append(entries, fileEntry{Filename: f.Filename, Summary: f.Summary})
		filenames = append(filenames, f.Filename)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"files":     entries,
		"filenames": filenames,
	})
}

func (h *FilesHandler) Chunks(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusInternalServerError, "MongoDB connection not available")
		return
	}

	userID := r.URL.Query().Get("user_id")
	projectID := r.URL.Query().Get("project_id")
	filename := r.URL.Query().Get("filename")
	if userID == "" || projectID == "" || filename == "" {
		writeError(w, http.StatusBadRequest, "user_id, project_id and filename are required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}

	chunks, err := h.reader.GetFileChunks(r.Context(), userID, projectID, filename, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if chunks == nil {
		chunks = []models.ChunkDTO{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"chunks": chunks})
}
