package models

import "time"

const (
	UploadStatusPending   = "pending"
	UploadStatusCompleted = "completed"
)

// File describes server-side metadata for an encrypted blob. The ciphertext
// itself lives in object storage under StorageKey.
type File struct {
	ID       string
	OwnerID  string
	Category string
	FileName string
	FileType string
	// FileSize is the ciphertext size in bytes; it counts against the quota.
	FileSize int64

	StorageKey   string
	UploadStatus string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FileFilter narrows ListFiles. Zero values mean "no constraint".
type FileFilter struct {
	Category string
	// FileName and FileType match case-insensitively as substrings.
	FileName  string
	FileType  string
	CreatedOn *time.Time
}

// Page selects a 1-based page of results.
type Page struct {
	Number int
	Size   int
}
