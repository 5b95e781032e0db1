package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/orafinite/scan-api/config"
	"github.com/orafinite/scan-api/internal/core"
	"github.com/orafinite/scan-api/internal/domain/model"
	"github.com/orafinite/scan-api/internal/observability/metrics"
	"github.com/orafinite/scan-api/internal/observability/statsd"
)

// staleErrorMessage is the error text stamped onto scans the reaper fails.
const staleErrorMessage = "Scan timed out (stale)"

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Registry   core.ReaperRegistry // Required: scan registry
	Config     config.ReaperConfig // Required: reaper configuration
	Logger     *slog.Logger        // Optional: structured logger
	Metrics    statsd.Sink         // Optional: metrics sink (StatsD-compatible)
	TimeSource func() time.Time    // Optional: clock override for tests
}

// ReaperService bounds registry growth.
//
// Each sweep runs two passes in a fixed order:
// - Staleness: active scans older than StaleMaxAge are forced to failed.
//   This always runs first so a stuck scan gets a terminal timestamp before
//   retention ever considers it.
// - Retention: terminal scans whose completion is older than RetentionMaxAge
//   are evicted.
type ReaperService struct {
	registry core.ReaperRegistry
	config   config.ReaperConfig
	logger   *slog.Logger
	metrics  statsd.Sink
	now      func() time.Time
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Registry == nil {
		return nil, errors.New("ReaperRegistry is required")
	}

	now := opts.TimeSource
	if now == nil {
		now = time.Now
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", opts.Config.Interval,
			"stale_max_age", opts.Config.StaleMaxAge,
			"retention_max_age", opts.Config.RetentionMaxAge,
		)
	}

	return &ReaperService{
		registry: opts.Registry,
		config:   opts.Config,
		logger:   logger,
		metrics:  opts.Metrics,
		now:      now,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	// Jitter prevents a thundering herd when multiple instances start together.
	s.waitWithJitter(ctx)
	if ctx.Err() != nil {
		return nil
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// waitWithJitter adds a random delay up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)))

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

// Sweep performs one staleness pass followed by one retention pass.
func (s *ReaperService) Sweep(ctx context.Context) {
	start := s.now()

	staled := s.failStaleScans(ctx)
	purged := s.evictExpiredScans(ctx)

	metrics.EmitReaperSweep(s.metrics, staled, purged, s.now().Sub(start))
}

// failStaleScans forces active scans older than StaleMaxAge to failed.
// The status is re-checked under the registry lock so a scan that went
// terminal between the snapshot and the mutation is left alone.
func (s *ReaperService) failStaleScans(ctx context.Context) int {
	cutoff := s.now().Add(-s.config.StaleMaxAge)
	count := 0

	for _, snap := range s.registry.List() {
		if !snap.Status.Active() || snap.CreatedAt.After(cutoff) {
			continue
		}

		staled := false
		_, err := s.registry.Mutate(snap.ID, func(scan *model.Scan) {
			if !scan.Status.Active() {
				return
			}
			now := s.now().UTC()
			scan.Status = model.ScanStatusFailed
			scan.ErrorMessage = staleErrorMessage
			scan.CompletedAt = &now
			staled = true
		})
		if err != nil || !staled {
			continue
		}
		count++
	}

	if count > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "failed stale scans",
			"count", count,
			"stale_max_age", s.config.StaleMaxAge,
		)
	}
	return count
}

// evictExpiredScans deletes terminal scans past the retention window.
func (s *ReaperService) evictExpiredScans(ctx context.Context) int {
	cutoff := s.now().Add(-s.config.RetentionMaxAge)
	count := 0

	for _, snap := range s.registry.List() {
		if !snap.Status.Terminal() {
			continue
		}
		completed := snap.CreatedAt
		if snap.CompletedAt != nil {
			completed = *snap.CompletedAt
		}
		if completed.After(cutoff) {
			continue
		}
		if s.registry.Delete(snap.ID) {
			count++
		}
	}

	if count > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "evicted expired scans",
			"count", count,
			"retention_max_age", s.config.RetentionMaxAge,
		)
	}
	return count
}
