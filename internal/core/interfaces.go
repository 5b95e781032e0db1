// Package core holds the registry and the ports the service layer depends on.
package core

import (
	"context"
	"time"

	"github.com/orafinite/scan-api/internal/domain/model"
)

// This file contains the port definitions (hexagonal architecture).
// Service implementations depend on these interfaces, not on concrete adapters.

// ScanCallbacks carries the engine-to-orchestrator callback functions that
// stream incremental scan state while a run is in flight. Any callback may be
// nil; the engine must tolerate that.
type ScanCallbacks struct {
	// OnProgress reports overall completion. Progress is 0-100.
	OnProgress func(progress int, probesCompleted, probesTotal int)

	// OnFinding reports one discovered vulnerability as soon as it is detected.
	OnFinding func(finding model.Finding)

	// OnProbeLog reports the execution record of one finished probe.
	OnProbeLog func(log model.ProbeLog)
}

// ScanEngine defines the interface to the probe execution engine.
type ScanEngine interface {
	// IsAvailable checks that the engine can accept work right now.
	IsAvailable(ctx context.Context) error

	// Execute runs the full probe set for the given parameters. It streams
	// incremental state through callbacks and returns its own final view of
	// the run. Implementations poll cancelled between units of work and wind
	// down early when it reports true. Execute never returns an error; engine
	// failures surface as an EngineResult with a failed status.
	Execute(ctx context.Context, params model.ScanParams, callbacks ScanCallbacks, cancelled func() bool) model.EngineResult

	// Retest replays a single attack prompt against a target several times to
	// check whether a previously reported finding reproduces.
	Retest(ctx context.Context, req model.RetestRequest) (*model.RetestResult, error)
}

// ReaperRegistry is the slice of the registry the reaper needs: enumerate,
// transition, evict. *ScanRegistry satisfies it.
type ReaperRegistry interface {
	List() []model.Scan
	Mutate(id string, fn func(*model.Scan)) (model.Scan, error)
	Delete(id string) bool
}

// CacheRepository defines the interface for caching operations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// IncrementWithTTL atomically increments a counter key and applies the TTL
	// when the key is first created. Returns the post-increment value.
	IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}
