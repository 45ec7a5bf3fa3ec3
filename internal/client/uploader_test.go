package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/coldfire85/neurolog/internal/media"
)

// fakeUploader records calls and returns scripted outcomes per file name.
type fakeUploader struct {
	mu       sync.Mutex
	delay    time.Duration
	failures map[string]error // by file name
	calls    []string
	inFlight int
	maxSeen  int
}

func (f *fakeUploader) Upload(_ context.Context, file *QueuedFile) (*UploadResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, file.Name)
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	err := f.failures[file.Name]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &UploadResponse{
		URL:      "/uploads/u1/" + file.Category.DirName() + "/" + file.Name,
		FileName: file.Name,
		Type:     string(file.Category),
		FileType: media.ResolveFileType("", file.Name),
	}, nil
}

func imageCandidate(name string, size int64) Candidate {
	return Candidate{Path: "/tmp/" + name, Name: name, Size: size, MIMEType: "image/jpeg"}
}

func TestAddFiles(t *testing.T) {
	t.Run("enqueues acceptable files", func(t *testing.T) {
		b := NewBatchUploader(&fakeUploader{})

		added, skipped, err := b.AddFiles([]Candidate{
			imageCandidate("a.jpg", 100),
			{Path: "/tmp/op.mp4", Name: "op.mp4", Size: 200, MIMEType: "video/mp4"},
			{Path: "/tmp/scan.dcm", Name: "scan.dcm", Size: 300, MIMEType: "application/octet-stream"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(added) != 3 || len(skipped) != 0 {
			t.Fatalf("expected 3 added, 0 skipped; got %d, %d", len(added), len(skipped))
		}

		if added[1].Category != media.CategoryVideo {
			t.Errorf("expected video category, got %s", added[1].Category)
		}
		if added[2].Category != media.CategoryRadiology {
			t.Errorf("expected radiology category for .dcm, got %s", added[2].Category)
		}
		for _, f := range added {
			if f.Status != StatusQueued {
				t.Errorf("expected queued status, got %s", f.Status)
			}
			if f.ID == "" {
				t.Error("expected non-empty file ID")
			}
		}
	})

	t.Run("rejects whole batch over max files", func(t *testing.T) {
		b := NewBatchUploader(&fakeUploader{}, WithMaxFiles(3))

		if _, _, err := b.AddFiles([]Candidate{imageCandidate("a.jpg", 1), imageCandidate("b.jpg", 2)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, _, err := b.AddFiles([]Candidate{imageCandidate("c.jpg", 3), imageCandidate("d.jpg", 4)})
		if !errors.Is(err, ErrBatchSizeExceeded) {
			t.Fatalf("expected ErrBatchSizeExceeded, got %v", err)
		}

		// No partial admission; existing queue untouched
		if got := len(b.Files()); got != 2 {
			t.Errorf("expected queue to stay at 2 files, got %d", got)
		}
	})

	t.Run("skips unsupported mime types", func(t *testing.T) {
		b := NewBatchUploader(&fakeUploader{})

		added, skipped, err := b.AddFiles([]Candidate{
			imageCandidate("a.jpg", 1),
			{Path: "/tmp/notes.txt", Name: "notes.txt", Size: 5, MIMEType: "text/plain"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(added) != 1 || len(skipped) != 1 {
			t.Fatalf("expected 1 added, 1 skipped; got %d, %d", len(added), len(skipped))
		}
		if !errors.Is(skipped[0].Reason, ErrUnsupportedFile) {
			t.Errorf("expected ErrUnsupportedFile, got %v", skipped[0].Reason)
		}
	})

	t.Run("skips duplicates by name and size", func(t *testing.T) {
		b := NewBatchUploader(&fakeUploader{})

		b.AddFiles([]Candidate{imageCandidate("a.jpg", 100)})
		added, skipped, err := b.AddFiles([]Candidate{
			imageCandidate("a.jpg", 100), // duplicate
			imageCandidate("a.jpg", 200), // same name, different size: not a duplicate
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(added) != 1 {
			t.Fatalf("expected 1 added, got %d", len(added))
		}
		if len(skipped) != 1 || !errors.Is(skipped[0].Reason, ErrDuplicateInQueue) {
			t.Fatalf("expected one ErrDuplicateInQueue skip, got %v", skipped)
		}
	})
}

func TestRemoveAndClear(t *testing.T) {
	t.Run("removes queued file", func(t *testing.T) {
		b := NewBatchUploader(&fakeUploader{})
		added, _, _ := b.AddFiles([]Candidate{imageCandidate("a.jpg", 1), imageCandidate("b.jpg", 2)})

		if !b.RemoveFile(added[0].ID) {
			t.Fatal("expected removal to succeed")
		}
		files := b.Files()
		if len(files) != 1 || files[0].Name != "b.jpg" {
			t.Errorf("unexpected queue after removal: %+v", files)
		}
	})

	t.Run("remove of unknown id is a no-op", func(t *testing.T) {
		b := NewBatchUploader(&fakeUploader{})
		b.AddFiles([]Candidate{imageCandidate("a.jpg", 1)})

		if b.RemoveFile("nope") {
			t.Error("expected removal of unknown id to fail")
		}
		if len(b.Files()) != 1 {
			t.Error("queue should be unchanged")
		}
	})

	t.Run("clear empties the queue", func(t *testing.T) {
		b := NewBatchUploader(&fakeUploader{})
		b.AddFiles([]Candidate{imageCandidate("a.jpg", 1), imageCandidate("b.jpg", 2)})

		b.ClearAll()
		if len(b.Files()) != 0 {
			t.Error("expected empty queue after ClearAll")
		}
	})
}

func TestUploadAll(t *testing.T) {
	t.Run("all files reach completed in order", func(t *testing.T) {
		fake := &fakeUploader{}
		b := NewBatchUploader(fake, WithTickInterval(5*time.Millisecond))
		b.AddFiles([]Candidate{
			imageCandidate("a.jpg", 1),
			imageCandidate("b.jpg", 2),
			imageCandidate("c.jpg", 3),
		})

		completed := b.UploadAll(context.Background())

		if len(completed) != 3 {
			t.Fatalf("expected 3 completed, got %d", len(completed))
		}
		for i, want := range []string{"a.jpg", "b.jpg", "c.jpg"} {
			if completed[i].FileName != want {
				t.Errorf("position %d: expected %s, got %s", i, want, completed[i].FileName)
			}
		}
		for _, f := range b.Files() {
			if f.Status != StatusCompleted || f.Progress != 100 || f.URL == "" {
				t.Errorf("file %s: unexpected terminal state %+v", f.Name, f)
			}
		}
	})

	t.Run("never two files uploading at once", func(t *testing.T) {
		fake := &fakeUploader{delay: 10 * time.Millisecond}
		b := NewBatchUploader(fake, WithTickInterval(2*time.Millisecond))
		b.AddFiles([]Candidate{
			imageCandidate("a.jpg", 1),
			imageCandidate("b.jpg", 2),
			imageCandidate("c.jpg", 3),
			imageCandidate("d.jpg", 4),
		})

		b.UploadAll(context.Background())

		if fake.maxSeen != 1 {
			t.Errorf("expected at most 1 in-flight upload, saw %d", fake.maxSeen)
		}
	})

	t.Run("per-file outcomes are independent", func(t *testing.T) {
		fake := &fakeUploader{failures: map[string]error{
			"big.mp4": fmt.Errorf("file too large: video files may not exceed 500MB"),
		}}
		b := NewBatchUploader(fake, WithTickInterval(5*time.Millisecond))
		b.AddFiles([]Candidate{
			imageCandidate("a.jpg", 1),
			{Path: "/tmp/big.mp4", Name: "big.mp4", Size: 2, MIMEType: "video/mp4"},
			imageCandidate("c.jpg", 3),
		})

		completed := b.UploadAll(context.Background())

		if len(completed) != 2 {
			t.Fatalf("expected 2 completed, got %d", len(completed))
		}
		if completed[0].FileName != "a.jpg" || completed[1].FileName != "c.jpg" {
			t.Errorf("successes out of order: %+v", completed)
		}

		files := b.Files()
		if files[1].Status != StatusError || files[1].Progress != 0 {
			t.Errorf("expected failed file in error state with progress 0, got %+v", files[1])
		}
		if files[1].Message == "" || files[1].URL != "" {
			t.Errorf("expected recorded message and no URL, got %+v", files[1])
		}
	})

	t.Run("completed files are not re-uploaded", func(t *testing.T) {
		fake := &fakeUploader{}
		b := NewBatchUploader(fake, WithTickInterval(5*time.Millisecond))
		b.AddFiles([]Candidate{imageCandidate("a.jpg", 1)})

		b.UploadAll(context.Background())
		completed := b.UploadAll(context.Background())

		if len(fake.calls) != 1 {
			t.Errorf("expected exactly 1 endpoint call, got %d", len(fake.calls))
		}
		// Prior completions still appear in the aggregate
		if len(completed) != 1 {
			t.Errorf("expected aggregate to include prior completion, got %d", len(completed))
		}
	})

	t.Run("completion callback receives ordered successes", func(t *testing.T) {
		fake := &fakeUploader{failures: map[string]error{"b.jpg": errors.New("boom")}}
		b := NewBatchUploader(fake, WithTickInterval(5*time.Millisecond))
		b.AddFiles([]Candidate{
			imageCandidate("a.jpg", 1),
			imageCandidate("b.jpg", 2),
			imageCandidate("c.jpg", 3),
		})

		var got []CompletedFile
		b.OnComplete = func(files []CompletedFile) { got = files }

		b.UploadAll(context.Background())

		if len(got) != 2 || got[0].FileName != "a.jpg" || got[1].FileName != "c.jpg" {
			t.Errorf("unexpected callback payload: %+v", got)
		}
	})

	t.Run("progress is monotonic until completion", func(t *testing.T) {
		fake := &fakeUploader{delay: 30 * time.Millisecond}
		b := NewBatchUploader(fake, WithTickInterval(2*time.Millisecond))
		b.AddFiles([]Candidate{imageCandidate("a.jpg", 1)})

		var mu sync.Mutex
		var seen []int
		b.OnProgress = func(_ string, p int) {
			mu.Lock()
			seen = append(seen, p)
			mu.Unlock()
		}

		b.UploadAll(context.Background())

		mu.Lock()
		defer mu.Unlock()
		if len(seen) < 2 {
			t.Fatalf("expected several progress updates, got %v", seen)
		}
		for i := 1; i < len(seen); i++ {
			if seen[i] < seen[i-1] {
				t.Fatalf("progress decreased: %v", seen)
			}
			if seen[i] > 95 && seen[i] != 100 {
				t.Fatalf("progress exceeded cap before completion: %v", seen)
			}
		}
		if seen[len(seen)-1] != 100 {
			t.Errorf("expected final progress 100, got %d", seen[len(seen)-1])
		}
	})
}
