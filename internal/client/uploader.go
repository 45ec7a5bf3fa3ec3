package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coldfire85/neurolog/internal/media"
)

// UploadResponse is what the upload endpoint returns for one file.
type UploadResponse struct {
	URL      string
	FileName string
	Type     string
	FileType string
}

// Uploader sends a single queued file to the server.
type Uploader interface {
	Upload(ctx context.Context, file *QueuedFile) (*UploadResponse, error)
}

const (
	defaultMaxFiles     = 10
	defaultTickInterval = 200 * time.Millisecond
	progressStep        = 7
	progressCap         = 95
)

// BatchUploader queues candidate files and pushes them through the
// single-file upload endpoint strictly one at a time. Each file reaches a
// terminal state before the next begins; terminal states never retry.
type BatchUploader struct {
	mu           sync.Mutex
	uploader     Uploader
	maxFiles     int
	tickInterval time.Duration
	queue        []*QueuedFile

	// OnComplete receives every successfully uploaded file, in original
	// queue order, after the queue drains.
	OnComplete func([]CompletedFile)
	// OnProgress is invoked on every advisory progress change.
	OnProgress func(id string, progress int)
}

// Option configures a BatchUploader.
type Option func(*BatchUploader)

// WithMaxFiles overrides the queue capacity (default 10).
func WithMaxFiles(n int) Option {
	return func(b *BatchUploader) { b.maxFiles = n }
}

// WithTickInterval overrides the advisory progress tick interval.
func WithTickInterval(d time.Duration) Option {
	return func(b *BatchUploader) { b.tickInterval = d }
}

// NewBatchUploader creates a batch uploader that dispatches through u.
func NewBatchUploader(u Uploader, opts ...Option) *BatchUploader {
	b := &BatchUploader{
		uploader:     u,
		maxFiles:     defaultMaxFiles,
		tickInterval: defaultTickInterval,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddFiles offers a batch of candidates to the queue. The whole batch is
// rejected with ErrBatchSizeExceeded when it would overflow the queue; no
// partial admission. Candidates with no acceptable category and duplicates
// (same name and size) already queued are skipped and reported, not
// enqueued.
func (b *BatchUploader) AddFiles(candidates []Candidate) ([]*QueuedFile, []SkippedFile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue)+len(candidates) > b.maxFiles {
		return nil, nil, ErrBatchSizeExceeded
	}

	var added []*QueuedFile
	var skipped []SkippedFile

	for _, cand := range candidates {
		category, ok := media.InferCategory(cand.MIMEType, cand.Name)
		if !ok {
			slog.Warn("skipping unsupported file", "name", cand.Name, "mime", cand.MIMEType)
			skipped = append(skipped, SkippedFile{Name: cand.Name, Reason: ErrUnsupportedFile})
			continue
		}

		if b.isDuplicateLocked(cand.Name, cand.Size) {
			slog.Warn("skipping duplicate file", "name", cand.Name, "size", cand.Size)
			skipped = append(skipped, SkippedFile{Name: cand.Name, Reason: ErrDuplicateInQueue})
			continue
		}

		f := &QueuedFile{
			ID:       newFileID(),
			Path:     cand.Path,
			Name:     cand.Name,
			Size:     cand.Size,
			Category: category,
			Status:   StatusQueued,
		}
		b.queue = append(b.queue, f)
		added = append(added, f)
	}

	return added, skipped, nil
}

func (b *BatchUploader) isDuplicateLocked(name string, size int64) bool {
	for _, f := range b.queue {
		if f.Name == name && f.Size == size {
			return true
		}
	}
	return false
}

// RemoveFile drops a not-yet-uploading file from the queue. Files that
// are uploading or already finished stay.
func (b *BatchUploader) RemoveFile(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, f := range b.queue {
		if f.ID == id && f.Status == StatusQueued {
			b.queue = append(b.queue[:i], b.queue[i+1:]...)
			return true
		}
	}
	return false
}

// ClearAll empties the queue. An in-flight file is left in place.
func (b *BatchUploader) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	var kept []*QueuedFile
	for _, f := range b.queue {
		if f.Status == StatusUploading {
			kept = append(kept, f)
		}
	}
	b.queue = kept
}

// Files returns a snapshot of the queue in order.
func (b *BatchUploader) Files() []QueuedFile {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]QueuedFile, len(b.queue))
	for i, f := range b.queue {
		out[i] = *f
	}
	return out
}

// UploadAll drains the queue sequentially: each file reaches completed or
// error before the next starts. Files completed in a prior run are not
// re-uploaded but still appear in the aggregated result. The per-file
// outcome is independent; one failure never aborts its siblings.
func (b *BatchUploader) UploadAll(ctx context.Context) []CompletedFile {
	for _, f := range b.snapshot() {
		if f.Status == StatusCompleted {
			continue
		}
		b.uploadOne(ctx, f)
	}

	completed := b.completedInOrder()
	if b.OnComplete != nil {
		b.OnComplete(completed)
	}
	return completed
}

func (b *BatchUploader) snapshot() []*QueuedFile {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*QueuedFile(nil), b.queue...)
}

func (b *BatchUploader) uploadOne(ctx context.Context, f *QueuedFile) {
	b.setStatus(f, StatusUploading, 0)

	// Advisory progress ticker, capped until the real response lands.
	done := make(chan struct{})
	var tickerDone sync.WaitGroup
	tickerDone.Add(1)
	go func() {
		defer tickerDone.Done()
		ticker := time.NewTicker(b.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.bumpProgress(f)
			case <-done:
				return
			}
		}
	}()

	resp, err := b.uploader.Upload(ctx, f)

	close(done)
	tickerDone.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		f.Status = StatusError
		f.Progress = 0
		f.Message = err.Error()
		slog.Warn("upload failed", "id", f.ID, "name", f.Name, "error", err)
	} else {
		f.Status = StatusCompleted
		f.Progress = 100
		f.URL = resp.URL
		f.FileType = resp.FileType
		slog.Info("upload completed", "id", f.ID, "name", f.Name, "url", resp.URL)
	}
	b.notifyLocked(f)
}

func (b *BatchUploader) setStatus(f *QueuedFile, status FileStatus, progress int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f.Status = status
	f.Progress = progress
	b.notifyLocked(f)
}

func (b *BatchUploader) bumpProgress(f *QueuedFile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if f.Status != StatusUploading {
		return
	}
	if f.Progress+progressStep <= progressCap {
		f.Progress += progressStep
	} else {
		f.Progress = progressCap
	}
	b.notifyLocked(f)
}

func (b *BatchUploader) notifyLocked(f *QueuedFile) {
	if b.OnProgress != nil {
		b.OnProgress(f.ID, f.Progress)
	}
}

func (b *BatchUploader) completedInOrder() []CompletedFile {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []CompletedFile
	for _, f := range b.queue {
		if f.Status == StatusCompleted {
			out = append(out, CompletedFile{
				URL:      f.URL,
				FileName: f.Name,
				Category: f.Category,
			})
		}
	}
	return out
}
