package model

import "time"

// BackupStatus tracks one upload from start to finish:
// pending, then uploading, then completed or failed.
type BackupStatus string

const (
	BackupStatusPending   BackupStatus = "pending"
	BackupStatusUploading BackupStatus = "uploading"
	BackupStatusCompleted BackupStatus = "completed"
	BackupStatusFailed    BackupStatus = "failed"
)

// Backup records one encrypted upload of the list artifact. ListCount is
// how many lists the artifact held when it was taken.
type Backup struct {
	ID           int64
	Filename     string
	S3Key        string
	SizeBytes    int64
	ListCount    int
	Status       BackupStatus
	ErrorMessage string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Restorable reports whether the backup finished uploading and can be
// downloaded again.
func (b *Backup) Restorable() bool {
	return b != nil && b.Status == BackupStatusCompleted && b.S3Key != ""
}

// Elapsed is how long the upload took, or zero if it has not finished.
func (b *Backup) Elapsed() time.Duration {
	if b.StartedAt == nil || b.CompletedAt == nil {
		return 0
	}
	return b.CompletedAt.Sub(*b.StartedAt)
}
