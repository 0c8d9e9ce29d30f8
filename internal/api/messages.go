package api

import "time"

type PingResponse struct {
	Status string `json:"status"`
}

type RegisterRequest struct {
	Username             string `json:"username"`
	Salt                 []byte `json:"salt"`
	KeyHash              []byte `json:"key_hash"`
	EncryptedDEK         []byte `json:"encrypted_dek"`
	RecoverySalt         []byte `json:"recovery_salt"`
	RecoveryKeyHash      []byte `json:"recovery_key_hash"`
	RecoveryEncryptedDEK []byte `json:"recovery_encrypted_dek"`
}

type GetSaltRequest struct {
	Username string `json:"username"`
}

type GetSaltResponse struct {
	Salt []byte `json:"salt"`
}

type LoginRequest struct {
	Username string `json:"username"`
	KeyHash  []byte `json:"key_hash"`
}

// Account is the client-visible account snapshot.
type Account struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Salt             []byte    `json:"salt"`
	EncryptedDEK     []byte    `json:"encrypted_dek"`
	SubscriptionPlan string    `json:"subscription_plan"`
	UploadLimitMB    int64     `json:"upload_limit_mb"`
	IsLocked         bool      `json:"is_locked"`
	DaysLeft         int       `json:"days_left"`
	CreatedAt        time.Time `json:"created_at"`
}

type LoginResponse struct {
	AccessToken  string   `json:"access"`
	RefreshToken string   `json:"refresh"`
	Account      *Account `json:"account"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh"`
}

type TokenResponse struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

type ChangeKeyRequest struct {
	CurrentKeyHash  []byte `json:"current_key_hash"`
	NewSalt         []byte `json:"new_salt"`
	NewKeyHash      []byte `json:"new_key_hash"`
	NewEncryptedDEK []byte `json:"new_encrypted_dek"`
}

type InitiateRecoveryRequest struct {
	Username        string `json:"username"`
	RecoveryKeyHash []byte `json:"recovery_key_hash"`
}

type InitiateRecoveryResponse struct {
	RecoverySalt         []byte    `json:"recovery_salt"`
	RecoveryEncryptedDEK []byte    `json:"recovery_encrypted_dek"`
	Ticket               string    `json:"ticket,omitempty"`
	TicketExpires        time.Time `json:"ticket_expires,omitempty"`
}

type FinalizeRecoveryRequest struct {
	Username        string `json:"username"`
	Ticket          string `json:"ticket"`
	NewSalt         []byte `json:"new_salt"`
	NewKeyHash      []byte `json:"new_key_hash"`
	NewEncryptedDEK []byte `json:"new_encrypted_dek"`
}

type ResetKeyRequest struct {
	Username        string `json:"username"`
	RecoveryKeyHash []byte `json:"recovery_key_hash"`
	NewSalt         []byte `json:"new_salt"`
	NewKeyHash      []byte `json:"new_key_hash"`
	NewEncryptedDEK []byte `json:"new_encrypted_dek"`
}

type AccountRef struct {
	Username string `json:"username"`
}

type ChangePlanRequest struct {
	Username string `json:"username"`
	Plan     string `json:"plan"`
}

// File is encrypted-file metadata. The ciphertext itself is moved through
// presigned object-storage URLs.
type File struct {
	ID           string    `json:"id"`
	Category     string    `json:"category"`
	FileName     string    `json:"file_name"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	UploadStatus string    `json:"upload_status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateFileRequest struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	Category string `json:"category"`
	FileSize int64  `json:"file_size"`
}

type CreateFileResponse struct {
	File      *File  `json:"file"`
	UploadURL string `json:"upload_url"`
}

type FileRef struct {
	ID string `json:"id"`
}

type GetFileResponse struct {
	File        *File  `json:"file"`
	DownloadURL string `json:"download_url,omitempty"`
}

type ListFilesRequest struct {
	Category  string     `json:"category,omitempty"`
	FileName  string     `json:"file_name,omitempty"`
	FileType  string     `json:"file_type,omitempty"`
	CreatedOn *time.Time `json:"created_on,omitempty"`
	Page      int        `json:"page,omitempty"`
	PageSize  int        `json:"page_size,omitempty"`
}

type ListFilesResponse struct {
	Files    []*File `json:"files"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// ListCategoriesResponse lists the distinct categories the caller has used,
// sorted by name.
type ListCategoriesResponse struct {
	Categories []string `json:"categories"`
}
