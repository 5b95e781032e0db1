package core

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orafinite/scan-api/internal/domain/model"
	apperrors "github.com/orafinite/scan-api/internal/errors"
)

// ScanRegistry is the in-memory home of every scan record the service knows
// about. A single mutex guards the whole map, so admission checks, status
// transitions, and sweeps are all serialized against each other. Callers only
// ever receive snapshots; live records never leave the lock.
type ScanRegistry struct {
	mu         sync.Mutex
	scans      map[string]*model.Scan
	maxActive  int
	timeSource func() time.Time
}

// ScanRegistryOptions groups construction parameters for ScanRegistry.
type ScanRegistryOptions struct {
	// MaxActive caps how many scans may be queued or running at once.
	MaxActive int

	// TimeSource overrides the clock, for tests. Defaults to time.Now.
	TimeSource func() time.Time
}

// NewScanRegistry constructs an empty registry with the given admission ceiling.
func NewScanRegistry(opts ScanRegistryOptions) (*ScanRegistry, error) {
	if opts.MaxActive <= 0 {
		return nil, apperrors.Validation("max active scans must be positive")
	}
	ts := opts.TimeSource
	if ts == nil {
		ts = time.Now
	}
	return &ScanRegistry{
		scans:      make(map[string]*model.Scan),
		maxActive:  opts.MaxActive,
		timeSource: ts,
	}, nil
}

// Create admits a new scan if capacity allows and returns its initial
// snapshot. The admission check and the insert happen under the same lock
// so concurrent submissions can never overshoot the ceiling.
func (r *ScanRegistry) Create(params model.ScanParams) (model.Scan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := 0
	for _, s := range r.scans {
		if s.Status.Active() {
			active++
		}
	}
	if active >= r.maxActive {
		return model.Scan{}, apperrors.CapacityExceededf(
			"maximum concurrent scans reached (%d), try again later", r.maxActive)
	}

	scan := &model.Scan{
		ID:        uuid.NewString(),
		Status:    model.ScanStatusQueued,
		Params:    params,
		Findings:  []model.Finding{},
		ProbeLogs: []model.ProbeLog{},
		CreatedAt: r.timeSource().UTC(),
	}
	r.scans[scan.ID] = scan

	return scan.Snapshot(), nil
}

// Get returns a snapshot of the scan with the given id.
func (r *ScanRegistry) Get(id string) (model.Scan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	scan, ok := r.scans[id]
	if !ok {
		return model.Scan{}, apperrors.NotFoundf("scan %s not found", id)
	}
	return scan.Snapshot(), nil
}

// Mutate runs fn against the live record under the registry lock. fn sees the
// current state and may modify it in place; the post-mutation snapshot is
// returned. fn must not block or call back into the registry.
func (r *ScanRegistry) Mutate(id string, fn func(*model.Scan)) (model.Scan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	scan, ok := r.scans[id]
	if !ok {
		return model.Scan{}, apperrors.NotFoundf("scan %s not found", id)
	}
	fn(scan)
	return scan.Snapshot(), nil
}

// Delete removes a scan record. Returns true if a record was removed.
func (r *ScanRegistry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scans[id]; !ok {
		return false
	}
	delete(r.scans, id)
	return true
}

// List returns snapshots of every scan, newest first.
func (r *ScanRegistry) List() []model.Scan {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Scan, 0, len(r.scans))
	for _, s := range r.scans {
		out = append(out, s.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ActiveCount returns how many scans are currently queued or running.
func (r *ScanRegistry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := 0
	for _, s := range r.scans {
		if s.Status.Active() {
			active++
		}
	}
	return active
}

// Len returns the total number of records, terminal ones included.
func (r *ScanRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scans)
}
