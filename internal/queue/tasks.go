package queue

const TypeIngestJob = "ingest:job"

// IngestPayload references a persisted job; the blobs wait in the uploads
// bucket, so the payload stays small.
type IngestPayload struct {
	JobID     string `json:"job_id"`
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
}
