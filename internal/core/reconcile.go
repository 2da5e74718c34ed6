package core

// reconcile.go repairs listings whose child writes did not complete.
//
// The reconciler runs periodically and re-applies the recorded
// pending_features of listings untouched for longer than the grace period:
// every listing in "awaiting_children", and listings in "needs_repair" that
// still hold pending features. A successful retry marks the listing
// "complete" unless an image failure is still recorded, in which case it
// stays in "needs_repair" until an admin uploads the images again. A failed
// retry moves it to "needs_repair" with its features kept for the next pass.
// Individual failures are logged and never stop the loop.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/dealership/internal/domain"
)

// ReconcileConfig holds configuration for the reconciler.
// Zero values fall back to the defaults below.
type ReconcileConfig struct {
	Interval    time.Duration // How often to run (default: 5m)
	GracePeriod time.Duration // Age before a listing counts as stuck (default: 2m)
	BatchSize   int           // Listings per run (default: 50)
}

func (c ReconcileConfig) withDefaults() ReconcileConfig {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = 2 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	return c
}

// ReconcileReport summarizes one reconciler pass.
type ReconcileReport struct {
	Checked     int `json:"checked"`
	Repaired    int `json:"repaired"`
	Failed      int `json:"failed"`
	NeedsRepair int `json:"needs_repair"`
}

// StartReconciler runs a pass immediately, then every Interval, until ctx is
// cancelled.
func (s *Service) StartReconciler(ctx context.Context, cfg ReconcileConfig) {
	cfg = cfg.withDefaults()
	slog.Info("reconciler started",
		"interval", cfg.Interval.String(),
		"grace_period", cfg.GracePeriod.String(),
		"batch_size", cfg.BatchSize,
	)

	s.runReconcileJob(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("reconciler stopped")
			return
		case <-ticker.C:
			s.runReconcileJob(ctx, cfg)
		}
	}
}

func (s *Service) runReconcileJob(ctx context.Context, cfg ReconcileConfig) {
	start := time.Now()
	report, err := s.Reconcile(ctx, cfg)
	s.metrics.ReconcileRun(report.Repaired, report.NeedsRepair, err)
	if err != nil {
		slog.Error("reconcile failed", "error", err)
		return
	}
	if report.Checked > 0 || report.NeedsRepair > 0 {
		slog.Info("reconcile completed",
			"checked", report.Checked,
			"repaired", report.Repaired,
			"failed", report.Failed,
			"needs_repair", report.NeedsRepair,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// Reconcile performs one pass over stuck listings.
func (s *Service) Reconcile(ctx context.Context, cfg ReconcileConfig) (ReconcileReport, error) {
	cfg = cfg.withDefaults()
	var report ReconcileReport

	stale, err := s.listings.ListStale(ctx, s.now().Add(-cfg.GracePeriod), cfg.BatchSize)
	if err != nil {
		return report, fmt.Errorf("list stale listings: %w", err)
	}

	for i := range stale {
		l := &stale[i]
		report.Checked++
		imageErr := imageSyncError(l.SyncError)
		if err := s.applyPendingFeatures(ctx, l, imageErr); err != nil {
			report.Failed++
			slog.Warn("listing repair failed", "listing_id", l.ID, "error", err)
			syncErr := joinSyncErrors(syncErrFeatures+err.Error(), imageErr)
			if recErr := s.listings.RecordSync(ctx, l.ID, domain.SyncNeedsRepair, l.PendingFeatures, syncErr); recErr != nil {
				slog.Error("listing sync state not recorded", "listing_id", l.ID, "error", recErr)
			}
			continue
		}
		report.Repaired++
		slog.Info("listing features repaired",
			"listing_id", l.ID,
			"features", len(l.Features),
			"sync_state", l.SyncState,
		)
	}

	_, report.NeedsRepair, err = s.listings.ListListings(ctx, domain.ListingFilter{
		SyncState: domain.SyncNeedsRepair,
		PageSize:  1,
	})
	if err != nil {
		return report, fmt.Errorf("count listings needing repair: %w", err)
	}
	return report, nil
}

// ListRepairs returns listings whose child writes are incomplete.
func (s *Service) ListRepairs(ctx context.Context, page int) ([]domain.VehicleListing, int, error) {
	return s.listings.ListListings(ctx, domain.ListingFilter{
		SyncState: domain.SyncNeedsRepair,
		Page:      page,
		PageSize:  50,
	})
}

// RepairListing re-applies the recorded features of one listing and marks it
// complete. Images lost during the original request must be uploaded again
// through the edit form.
func (s *Service) RepairListing(ctx context.Context, id string) (*domain.VehicleListing, error) {
	l, err := s.listings.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.SyncState == domain.SyncComplete {
		return l, nil
	}

	if err := s.applyPendingFeatures(ctx, l, ""); err != nil {
		syncErr := joinSyncErrors(syncErrFeatures+err.Error(), imageSyncError(l.SyncError))
		if recErr := s.listings.RecordSync(ctx, l.ID, domain.SyncNeedsRepair, l.PendingFeatures, syncErr); recErr != nil {
			err = errors.Join(err, recErr)
		}
		return nil, fmt.Errorf("repair listing %s: %w", id, err)
	}

	s.recordAudit(ctx, domain.AuditListingRepair, EntityListing, id, map[string]any{
		"features": len(l.Features),
	})
	return l, nil
}

// applyPendingFeatures writes the recorded features. The listing is marked
// complete when imageErr is empty and stays in needs_repair with imageErr
// otherwise. An empty record only counts while awaiting children; a listing
// in needs_repair with no record already has its features.
func (s *Service) applyPendingFeatures(ctx context.Context, l *domain.VehicleListing, imageErr string) error {
	if len(l.PendingFeatures) > 0 || l.SyncState == domain.SyncAwaitingChildren {
		if err := s.listings.ReplaceFeatures(ctx, l.ID, l.PendingFeatures); err != nil {
			return fmt.Errorf("replace features: %w", err)
		}
		l.Features = l.PendingFeatures
	}

	state := domain.SyncComplete
	if imageErr != "" {
		state = domain.SyncNeedsRepair
	}
	if err := s.listings.RecordSync(ctx, l.ID, state, nil, imageErr); err != nil {
		return fmt.Errorf("record sync: %w", err)
	}
	l.SyncState = state
	l.PendingFeatures = nil
	l.SyncError = imageErr
	return nil
}

// Prefixes of the parts of a recorded sync error. The image part is always
// last since images are written after features.
const (
	syncErrFeatures = "features: "
	syncErrImages   = "images: "
)

// imageSyncError returns the image part of a recorded sync error.
func imageSyncError(syncErr string) string {
	if strings.HasPrefix(syncErr, syncErrImages) {
		return syncErr
	}
	if i := strings.Index(syncErr, "; "+syncErrImages); i >= 0 {
		return syncErr[i+2:]
	}
	return ""
}

func joinSyncErrors(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "; ")
}
