package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orafinite/scan-api/config"
	"github.com/orafinite/scan-api/internal/core"
	"github.com/orafinite/scan-api/internal/domain/model"
)

type reaperFixture struct {
	svc      *ReaperService
	registry *core.ScanRegistry
	now      time.Time
}

func newReaperFixture(t *testing.T) *reaperFixture {
	t.Helper()

	fx := &reaperFixture{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	registry, err := core.NewScanRegistry(core.ScanRegistryOptions{
		MaxActive:  100,
		TimeSource: func() time.Time { return fx.now },
	})
	require.NoError(t, err)
	fx.registry = registry

	svc, err := NewReaperService(ReaperServiceOptions{
		Registry: registry,
		Config: config.ReaperConfig{
			Interval:        5 * time.Minute,
			StaleMaxAge:     30 * time.Minute,
			RetentionMaxAge: time.Hour,
		},
		TimeSource: func() time.Time { return fx.now },
	})
	require.NoError(t, err)
	fx.svc = svc

	return fx
}

// createScanAt admits a scan with CreatedAt pinned to the fixture clock
// shifted back by age.
func (fx *reaperFixture) createScanAt(t *testing.T, age time.Duration) string {
	t.Helper()
	saved := fx.now
	fx.now = saved.Add(-age)
	scan, err := fx.registry.Create(validStartRequest().Params())
	fx.now = saved
	require.NoError(t, err)
	return scan.ID
}

func (fx *reaperFixture) setStatus(t *testing.T, id string, status model.ScanStatus, completedAgo time.Duration) {
	t.Helper()
	_, err := fx.registry.Mutate(id, func(scan *model.Scan) {
		scan.Status = status
		if status.Terminal() {
			completed := fx.now.Add(-completedAgo)
			scan.CompletedAt = &completed
		}
	})
	require.NoError(t, err)
}

func TestReaperService_RequiresRegistry(t *testing.T) {
	_, err := NewReaperService(ReaperServiceOptions{})
	assert.EqualError(t, err, "ReaperRegistry is required")
}

func TestReaperService_FailsStaleScans(t *testing.T) {
	fx := newReaperFixture(t)

	staleQueued := fx.createScanAt(t, 45*time.Minute)
	staleRunning := fx.createScanAt(t, 31*time.Minute)
	fx.setStatus(t, staleRunning, model.ScanStatusRunning, 0)
	fresh := fx.createScanAt(t, 5*time.Minute)

	fx.svc.Sweep(context.Background())

	for _, id := range []string{staleQueued, staleRunning} {
		snap, err := fx.registry.Get(id)
		require.NoError(t, err)
		assert.Equal(t, model.ScanStatusFailed, snap.Status)
		assert.Equal(t, "Scan timed out (stale)", snap.ErrorMessage)
		require.NotNil(t, snap.CompletedAt)
		assert.Equal(t, fx.now, *snap.CompletedAt)
	}

	snap, err := fx.registry.Get(fresh)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusQueued, snap.Status)
}

func TestReaperService_StaledScanSurvivesSameSweep(t *testing.T) {
	fx := newReaperFixture(t)

	// Older than both the stale and retention cutoffs, but staleness stamps
	// CompletedAt with the current sweep time, so retention keeps it around
	// for a full window.
	id := fx.createScanAt(t, 2*time.Hour)

	fx.svc.Sweep(context.Background())

	snap, err := fx.registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusFailed, snap.Status)

	// Once the retention window elapses it is evicted.
	fx.now = fx.now.Add(time.Hour + time.Minute)
	fx.svc.Sweep(context.Background())

	_, err = fx.registry.Get(id)
	assert.Error(t, err)
}

func TestReaperService_EvictsExpiredTerminalScans(t *testing.T) {
	fx := newReaperFixture(t)

	expired := fx.createScanAt(t, 3*time.Hour)
	fx.setStatus(t, expired, model.ScanStatusCompleted, 2*time.Hour)

	recent := fx.createScanAt(t, 2*time.Hour)
	fx.setStatus(t, recent, model.ScanStatusCancelled, 10*time.Minute)

	fx.svc.Sweep(context.Background())

	_, err := fx.registry.Get(expired)
	assert.Error(t, err, "terminal scan past retention must be evicted")

	snap, err := fx.registry.Get(recent)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusCancelled, snap.Status)
}

func TestReaperService_RetentionFallsBackToCreatedAt(t *testing.T) {
	fx := newReaperFixture(t)

	// A terminal scan with no CompletedAt ages by CreatedAt.
	id := fx.createScanAt(t, 90*time.Minute)
	_, err := fx.registry.Mutate(id, func(scan *model.Scan) {
		scan.Status = model.ScanStatusFailed
	})
	require.NoError(t, err)

	fx.svc.Sweep(context.Background())

	_, err = fx.registry.Get(id)
	assert.Error(t, err)
}

func TestReaperService_SweepIsIdempotent(t *testing.T) {
	fx := newReaperFixture(t)

	id := fx.createScanAt(t, time.Hour)

	fx.svc.Sweep(context.Background())
	first, err := fx.registry.Get(id)
	require.NoError(t, err)

	fx.svc.Sweep(context.Background())
	second, err := fx.registry.Get(id)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.CompletedAt, second.CompletedAt)
	assert.Equal(t, first.ErrorMessage, second.ErrorMessage)
}

func TestReaperService_RunStopsOnCancel(t *testing.T) {
	fx := newReaperFixture(t)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- fx.svc.Run(ctx)
	}()

	// Give the loop a moment to pass the jitter wait, then cancel.
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "graceful shutdown returns nil")
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop after context cancellation")
	}
}
