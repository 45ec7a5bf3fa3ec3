package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/coldfire85/neurolog/internal/media"
	"github.com/coldfire85/neurolog/internal/server/database"
)

// OrphanRepo lists and removes media records that were never attached to
// a procedure.
type OrphanRepo interface {
	ListOrphanedMedia(ctx context.Context, before time.Time) ([]*database.MediaFile, error)
	DeleteMedia(ctx context.Context, userID, id string) error
}

// CleanupService periodically removes media that was uploaded but never
// attached to a procedure, from both the database and file storage.
type CleanupService struct {
	repo     OrphanRepo
	store    Store
	interval time.Duration
	ttl      time.Duration
	done     chan struct{}
}

// NewCleanupService creates a new cleanup service. Media older than ttl
// with no procedure linkage is eligible for removal.
func NewCleanupService(repo OrphanRepo, store Store, interval, ttl time.Duration) *CleanupService {
	return &CleanupService{
		repo:     repo,
		store:    store,
		interval: interval,
		ttl:      ttl,
		done:     make(chan struct{}),
	}
}

// Start begins the cleanup loop in a background goroutine.
func (cs *CleanupService) Start(ctx context.Context) {
	slog.Info("cleanup service started", "interval", cs.interval, "orphan_ttl", cs.ttl)

	go func() {
		ticker := time.NewTicker(cs.interval)
		defer ticker.Stop()

		// Run once immediately on start
		cs.runCleanup(ctx)

		for {
			select {
			case <-ticker.C:
				cs.runCleanup(ctx)
			case <-ctx.Done():
				slog.Info("cleanup service stopping")
				close(cs.done)
				return
			}
		}
	}()
}

// Wait blocks until the cleanup service has fully stopped.
func (cs *CleanupService) Wait() {
	<-cs.done
}

func (cs *CleanupService) runCleanup(ctx context.Context) {
	cutoff := time.Now().Add(-cs.ttl)

	orphans, err := cs.repo.ListOrphanedMedia(ctx, cutoff)
	if err != nil {
		slog.Error("failed to list orphaned media", "error", err)
		return
	}

	if len(orphans) == 0 {
		return
	}

	var cleaned, failed int
	for _, m := range orphans {
		if err := cs.store.Delete(m.UserID, media.Category(m.Category), m.StoredName); err != nil {
			slog.Error("failed to delete orphaned file",
				"media_id", m.ID,
				"error", err,
			)
			failed++
			continue
		}

		if err := cs.repo.DeleteMedia(ctx, m.UserID, m.ID); err != nil {
			slog.Error("failed to delete orphaned media record",
				"media_id", m.ID,
				"error", err,
			)
			failed++
			continue
		}

		cleaned++
		slog.Info("removed orphaned media",
			"media_id", m.ID,
			"user", m.UserID,
			"filename", m.FileName,
			"uploaded_at", m.CreatedAt,
		)
	}

	slog.Info("cleanup cycle complete",
		"cleaned", cleaned,
		"failed", failed,
		"total_orphaned", len(orphans),
	)
}
