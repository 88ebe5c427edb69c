package models

import "time"

// FileObject is one entry of a bucket listing. Folders are listed with an
// empty ID.
type FileObject struct {
	Name        string    `json:"name"`
	ID          string    `json:"id"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UploadOptions controls an upload. Without Upsert an upload to an existing
// path is rejected.
type UploadOptions struct {
	Upsert       bool
	ContentType  string
	CacheControl string
}

// UploadResult identifies the stored object.
type UploadResult struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
}
