// Package client implements the bulk media uploader used by the CLI:
// a bounded queue of candidate files pushed one at a time through the
// server's single-file upload endpoint.
package client

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/coldfire85/neurolog/internal/media"
)

// FileStatus is the lifecycle state of a queued file.
type FileStatus string

const (
	StatusQueued    FileStatus = "queued"
	StatusUploading FileStatus = "uploading"
	StatusCompleted FileStatus = "completed"
	StatusError     FileStatus = "error"
)

// Errors surfaced during batch intake.
var (
	ErrBatchSizeExceeded = errors.New("batch exceeds maximum file count")
	ErrDuplicateInQueue  = errors.New("file already queued")
	ErrUnsupportedFile   = errors.New("file type not accepted")
)

// Candidate is a file offered to the queue, before category inference.
type Candidate struct {
	Path     string
	Name     string
	Size     int64
	MIMEType string
}

// QueuedFile is one entry in the upload queue. Progress is advisory only:
// it ticks on a fixed interval while uploading, capped below completion
// until the real response arrives.
type QueuedFile struct {
	ID       string
	Path     string
	Name     string
	Size     int64
	Category media.Category
	Status   FileStatus
	Progress int // 0-100
	URL      string
	FileType string
	Message  string
}

// SkippedFile reports a candidate rejected during batch intake, with the
// reason it was excluded.
type SkippedFile struct {
	Name   string
	Reason error
}

// CompletedFile is handed to the completion callback for every file that
// finished successfully, in original queue order.
type CompletedFile struct {
	URL      string
	FileName string
	Category media.Category
}

// newFileID generates a client-side queue entry token: current time plus
// a short random suffix, unique within one upload session.
func newFileID() string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffix := make([]byte, 6)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			suffix[i] = charset[time.Now().Nanosecond()%len(charset)]
			continue
		}
		suffix[i] = charset[n.Int64()]
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}
