package models

import "time"

const (
	UploadStatusPending   = "pending"
	UploadStatusCompleted = "completed"
)

// File is the cached catalog view of a stored blob. The blob itself is
// never cached.
type File struct {
	ID           string
	Category     string
	FileName     string
	FileType     string
	FileSize     int64
	UploadStatus string
	CreatedAt    time.Time
}
