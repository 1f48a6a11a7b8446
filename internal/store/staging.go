package store

import (
	"bytes"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Upload staging. Submitted blobs wait in a GridFS bucket between the
// submit path and the worker; GridFS sidesteps the 16 MB document cap.

func (s *Store) StageUpload(jobID string, index int, filename string, data []byte) (primitive.ObjectID, error) {
	id, err := s.uploads.UploadFromStream(
		filename,
		bytes.NewReader(data),
		options.GridFSUpload().SetMetadata(bson.M{"job_id": jobID, "index": index}),
	)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("stage upload %s: %w", filename, err)
	}
	return id, nil
}

func (s *Store) OpenStaged(blobID primitive.ObjectID) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.uploads.DownloadToStream(blobID, &buf); err != nil {
		return nil, fmt.Errorf("download staged blob %s: %w", blobID.Hex(), err)
	}
	return buf.Bytes(), nil
}

// DeleteStaged drops a staged blob. A blob already removed is not an error.
func (s *Store) DeleteStaged(blobID primitive.ObjectID) error {
	err := s.uploads.Delete(blobID)
	if err != nil && err != gridfs.ErrFileNotFound {
		return fmt.Errorf("delete staged blob %s: %w", blobID.Hex(), err)
	}
	return nil
}
