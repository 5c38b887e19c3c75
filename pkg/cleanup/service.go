// Package cleanup enforces evidence retention: files older than the
// configured retention are swept on an interval, and every sweep that removes
// something is audited.
package cleanup

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/store"
)

// Service periodically deletes evidence files past their retention.
// Idempotent and safe to restart.
type Service struct {
	config *config.EvidenceConfig
	store  store.Store // audit sink, may be nil
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a cleanup service. The store is optional; without it
// sweeps are not audited.
func NewService(cfg *config.EvidenceConfig, st store.Store) *Service {
	return &Service{
		config: cfg,
		store:  st,
		logger: slog.Default().With("component", "cleanup"),
	}
}

// Start launches the background sweep loop. A zero RetentionDays disables
// the service entirely; evidence is kept forever.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	if s.config.RetentionDays <= 0 {
		s.logger.Info("Evidence retention disabled, cleanup service not started")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("Cleanup service started",
		"evidence_dir", s.config.Dir,
		"retention_days", s.config.RetentionDays,
		"interval", s.config.SweepInterval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	removed, err := s.SweepOnce(ctx)
	if err != nil {
		s.logger.Error("Evidence sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("Evidence swept", "removed", removed)
	}
}

// SweepOnce removes evidence files older than the retention cutoff and
// returns how many were deleted. Empty adapter directories left behind are
// removed too.
func (s *Service) SweepOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-time.Duration(s.config.RetentionDays) * 24 * time.Hour)

	removed := 0
	err := filepath.WalkDir(s.config.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			s.logger.Warn("Failed to remove expired evidence", "path", path, "error", err)
			return nil
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, err
	}

	s.pruneEmptyDirs()

	if removed > 0 && s.store != nil {
		if auditErr := s.store.AppendAudit(ctx, store.AuditEntry{
			Actor:     "cleanup",
			EventType: "evidence.swept",
			Data: map[string]any{
				"removed":        removed,
				"retention_days": s.config.RetentionDays,
			},
		}); auditErr != nil {
			s.logger.Error("Failed to audit evidence sweep", "error", auditErr)
		}
	}
	return removed, nil
}

// pruneEmptyDirs removes now-empty per-adapter directories under the
// evidence root. Best effort.
func (s *Service) pruneEmptyDirs() {
	entries, err := os.ReadDir(s.config.Dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		// Remove fails on non-empty directories, which is what we want.
		_ = os.Remove(filepath.Join(s.config.Dir, entry.Name()))
	}
}
