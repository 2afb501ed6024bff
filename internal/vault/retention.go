package vault

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrCleanRunning is returned when RunAutoClean is invoked while a
// previous run is still in flight
var ErrCleanRunning = errors.New("auto-clean already running")

// CleanResult reports what a retention run removed
type CleanResult struct {
	DeletedCount int `json:"deletedCount"` // receipts removed
	TotalDeleted int `json:"totalDeleted"` // image blobs released
}

// RunAutoClean deletes receipts older than the configured retention
// window and releases their managed image blobs. It runs only on
// explicit invocation and is not reentrant: a call while a run is in
// progress fails with ErrCleanRunning. A disabled policy is a no-op.
//
// The expired receipts are selected and removed in a single pass under
// the store's writer lock, so a save landing mid-clean is never lost.
// Blobs are released only after the kept collection is persisted;
// individual blob-release failures are logged and do not abort the
// batch or resurrect the receipt. Receipts with malformed dates are
// never auto-cleaned.
func (s *Service) RunAutoClean() (CleanResult, error) {
	if !s.cleanMu.TryLock() {
		return CleanResult{}, ErrCleanRunning
	}
	defer s.cleanMu.Unlock()

	settings := s.settings.AutoClean()
	if !settings.Enabled {
		return CleanResult{}, nil
	}

	cutoff := s.timeSource.Now().AddDate(0, 0, -settings.Days)
	old, err := s.records.RemoveReceiptsMatching(func(receipt Receipt) bool {
		t, ok := parseDate(receipt.Date)
		return ok && t.Before(cutoff)
	})
	if err != nil {
		return CleanResult{}, fmt.Errorf("removing expired receipts: %w", err)
	}

	if len(old) == 0 {
		return CleanResult{}, nil
	}

	released := 0
	for _, receipt := range old {
		if receipt.ImageURI == "" || !s.images.IsManaged(receipt.ImageURI) {
			continue
		}
		if err := s.images.Delete(receipt.ImageURI); err != nil {
			slog.Warn("Failed to release image during auto-clean", "ref", receipt.ImageURI, "error", err)
			continue
		}
		released++
	}

	slog.Info("Auto-clean finished", "receipts_deleted", len(old), "images_released", released)
	return CleanResult{DeletedCount: len(old), TotalDeleted: released}, nil
}
