// Package service implements the orchestrator facade and background loops
// that sit between the HTTP layer and the registry/engine.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/orafinite/scan-api/internal/core"
	"github.com/orafinite/scan-api/internal/domain/model"
	apperrors "github.com/orafinite/scan-api/internal/errors"
	"github.com/orafinite/scan-api/internal/observability/metrics"
	"github.com/orafinite/scan-api/internal/observability/statsd"
)

const (
	transitionStarted   = "started"
	transitionCompleted = "completed"
	transitionFailed    = "failed"
	transitionCancelled = "cancelled"

	defaultListLimit = 50
	maxListLimit     = 100
	defaultPerPage   = 20
	maxPerPage       = 100

	reportCachePrefix = "scan:report:"
)

// ScanServiceOptions groups dependencies for ScanService.
type ScanServiceOptions struct {
	Registry  *core.ScanRegistry   // Required: scan registry
	Engine    core.ScanEngine      // Required: probe engine
	Cache     core.CacheRepository // Optional: terminal report cache
	ReportTTL time.Duration        // Optional: report cache TTL
	Logger    *slog.Logger         // Optional: structured logger
	Metrics   statsd.Sink          // Optional: metrics sink (StatsD-compatible)
}

// ScanService is the orchestrator facade.
//
// This service manages:
// - Admission of new scans against the concurrency ceiling
// - One executor goroutine per admitted scan
// - Translation of engine callbacks into registry mutations
// - Reconciliation of the engine's final result with streamed state
// - Read projections (status, logs, results, list) over registry snapshots.
type ScanService struct {
	registry  *core.ScanRegistry
	engine    core.ScanEngine
	cache     core.CacheRepository
	reportTTL time.Duration
	logger    *slog.Logger
	metrics   statsd.Sink

	runCtx    context.Context
	cancelRun context.CancelFunc
	wg        sync.WaitGroup
}

// NewScanService constructs a new ScanService.
func NewScanService(opts ScanServiceOptions) (*ScanService, error) {
	if opts.Registry == nil {
		return nil, errors.New("ScanRegistry is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("ScanEngine is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "scan_service")
	}

	runCtx, cancel := context.WithCancel(context.Background())

	return &ScanService{
		registry:  opts.Registry,
		engine:    opts.Engine,
		cache:     opts.Cache,
		reportTTL: opts.ReportTTL,
		logger:    logger,
		metrics:   opts.Metrics,
		runCtx:    runCtx,
		cancelRun: cancel,
	}, nil
}

// Shutdown cancels every in-flight engine run and waits for the executor
// goroutines to finish, bounded by ctx.
func (s *ScanService) Shutdown(ctx context.Context) error {
	s.cancelRun()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit validates and admits a new scan, then hands it to a background
// executor. The engine availability check runs before admission so a dead
// engine never consumes a registry slot.
func (s *ScanService) Submit(ctx context.Context, req *model.StartScanRequest) (*model.StartScanResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid scan request")
	}

	if err := s.engine.IsAvailable(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "scan engine is not available")
	}

	scan, err := s.registry.Create(req.Params())
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "scan admitted",
			"scan_id", scan.ID,
			"preset", scan.Params.Preset,
			"provider", scan.Params.Target.Provider,
		)
	}
	metrics.EmitScanLifecycle(s.metrics, metrics.ScanMetric{
		Preset:     string(scan.Params.Preset),
		Transition: transitionStarted,
		Result:     metrics.ResultSuccess,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(scan.ID, scan.Params)
	}()

	return &model.StartScanResponse{
		ScanID:                   scan.ID,
		Status:                   scan.Status,
		EstimatedDurationSeconds: int(scan.Params.Preset.EstimatedDuration().Seconds()),
		CreatedAt:                scan.CreatedAt,
	}, nil
}

// execute drives one scan through the engine. It owns the queued -> running
// transition and the final reconciliation; cancellation and the reaper may
// move the scan to a terminal status underneath it, and those wins are
// honored by re-checking status under the registry lock on every mutation.
func (s *ScanService) execute(scanID string, params model.ScanParams) {
	defer func() {
		if r := recover(); r != nil {
			if s.logger != nil {
				s.logger.Error("executor panic", "scan_id", scanID, "panic", r)
			}
			s.finalize(scanID, model.EngineResult{
				Status:       model.EngineFailed,
				ErrorMessage: "internal error while executing scan",
			})
		}
	}()

	// Cancellation may have landed while the scan sat queued.
	started := false
	snap, err := s.registry.Mutate(scanID, func(scan *model.Scan) {
		if scan.Status != model.ScanStatusQueued {
			return
		}
		now := time.Now().UTC()
		scan.Status = model.ScanStatusRunning
		scan.StartedAt = &now
		started = true
	})
	if err != nil || !started {
		if s.logger != nil {
			s.logger.Info("skipping execution", "scan_id", scanID, "status", snap.Status, "error", err)
		}
		return
	}

	isCancelled := func() bool {
		current, getErr := s.registry.Get(scanID)
		if getErr != nil {
			// Evicted mid-run; treat as cancelled so the engine winds down.
			return true
		}
		return current.Status == model.ScanStatusCancelled
	}

	callbacks := core.ScanCallbacks{
		OnProgress: func(progress, completed, total int) {
			_, _ = s.registry.Mutate(scanID, func(scan *model.Scan) {
				// Progress is monotonic; a stale callback never rolls it back.
				if scan.Terminal() || progress < scan.Progress {
					return
				}
				scan.Progress = progress
				scan.ProbesCompleted = completed
				scan.ProbesTotal = total
			})
		},
		OnFinding: func(f model.Finding) {
			// Late findings are appended even after a terminal transition;
			// status is never touched here.
			_, _ = s.registry.Mutate(scanID, func(scan *model.Scan) {
				scan.Findings = append(scan.Findings, f)
			})
		},
		OnProbeLog: func(l model.ProbeLog) {
			_, _ = s.registry.Mutate(scanID, func(scan *model.Scan) {
				scan.ProbeLogs = append(scan.ProbeLogs, l)
			})
		},
	}

	result := s.engine.Execute(s.runCtx, params, callbacks, isCancelled)
	s.finalize(scanID, result)
}

// finalize reconciles the engine's own view of the run with the streamed
// state. Lists merge by longer-wins, never truncating what callbacks already
// delivered. An existing terminal status (cancel or reaper) is left alone.
func (s *ScanService) finalize(scanID string, result model.EngineResult) {
	transitioned := false
	snap, err := s.registry.Mutate(scanID, func(scan *model.Scan) {
		if len(result.Findings) > len(scan.Findings) {
			scan.Findings = result.Findings
		}
		if len(result.ProbeLogs) > len(scan.ProbeLogs) {
			scan.ProbeLogs = result.ProbeLogs
		}

		if scan.Terminal() {
			return
		}
		transitioned = true

		now := time.Now().UTC()
		scan.CompletedAt = &now
		switch result.Status {
		case model.EngineCompleted:
			scan.Status = model.ScanStatusCompleted
			scan.Progress = 100
		case model.EngineCancelled:
			scan.Status = model.ScanStatusCancelled
		default:
			scan.Status = model.ScanStatusFailed
			scan.ErrorMessage = result.ErrorMessage
		}
	})
	if err != nil {
		// Evicted before the engine returned; nothing left to record.
		if s.logger != nil {
			s.logger.Warn("scan vanished before finalize", "scan_id", scanID)
		}
		return
	}

	// Scans that went terminal before the engine drained were already
	// counted by Cancel or the reaper; don't double-count the transition.
	if transitioned {
		s.emitTerminal(snap)
	}
	s.cacheReport(snap)

	if s.logger != nil {
		s.logger.Info("scan finished",
			"scan_id", snap.ID,
			"status", snap.Status,
			"findings", len(snap.Findings),
			"probes", len(snap.ProbeLogs),
		)
	}
}

func (s *ScanService) emitTerminal(snap model.Scan) {
	transition := transitionCompleted
	result := metrics.ResultSuccess
	switch snap.Status {
	case model.ScanStatusFailed:
		transition = transitionFailed
		result = metrics.ResultError
	case model.ScanStatusCancelled:
		transition = transitionCancelled
		result = metrics.ResultNoop
	}

	var duration time.Duration
	if snap.StartedAt != nil && snap.CompletedAt != nil {
		duration = snap.CompletedAt.Sub(*snap.StartedAt)
	}

	metrics.EmitScanLifecycle(s.metrics, metrics.ScanMetric{
		Preset:     string(snap.Params.Preset),
		Transition: transition,
		Result:     result,
		Duration:   duration,
	})
}

// cachedReport is the report payload kept in the cache so terminal results
// stay readable after the reaper evicts the registry record.
type cachedReport struct {
	ScanID      string          `json:"scan_id"`
	Status      model.ScanStatus `json:"status"`
	Findings    []model.Finding `json:"findings"`
	ProbeLogs   []model.ProbeLog `json:"probe_logs"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

func (s *ScanService) cacheReport(snap model.Scan) {
	if s.cache == nil || !snap.Terminal() {
		return
	}

	payload, err := json.Marshal(cachedReport{
		ScanID:      snap.ID,
		Status:      snap.Status,
		Findings:    snap.Findings,
		ProbeLogs:   snap.ProbeLogs,
		CompletedAt: snap.CompletedAt,
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, reportCachePrefix+snap.ID, payload, s.reportTTL); err != nil && s.logger != nil {
		s.logger.Debug("report cache write failed", "scan_id", snap.ID, "error", err)
	}
}

func (s *ScanService) cachedReportFor(ctx context.Context, scanID string) (*cachedReport, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, reportCachePrefix+scanID)
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	var report cachedReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, false
	}
	return &report, true
}

// GetStatus returns the live status projection for one scan.
func (s *ScanService) GetStatus(_ context.Context, scanID string) (*model.ScanStatusResponse, error) {
	snap, err := s.registry.Get(scanID)
	if err != nil {
		return nil, err
	}

	return &model.ScanStatusResponse{
		ScanID:          snap.ID,
		Status:          snap.Status,
		Progress:        snap.Progress,
		ProbesCompleted: snap.ProbesCompleted,
		ProbesTotal:     snap.ProbesTotal,
		FindingsCount:   len(snap.Findings),
		Findings:        snap.Findings,
		ErrorMessage:    snap.ErrorMessage,
		CreatedAt:       snap.CreatedAt,
		StartedAt:       snap.StartedAt,
		CompletedAt:     snap.CompletedAt,
	}, nil
}

// Cancel requests cancellation. Cancelling an already-terminal scan succeeds
// with accepted=false; the engine observes the status change cooperatively.
func (s *ScanService) Cancel(ctx context.Context, scanID string) (*model.CancelScanResponse, error) {
	var already model.ScanStatus
	snap, err := s.registry.Mutate(scanID, func(scan *model.Scan) {
		if scan.Terminal() {
			already = scan.Status
			return
		}
		now := time.Now().UTC()
		scan.Status = model.ScanStatusCancelled
		scan.CompletedAt = &now
	})
	if err != nil {
		return nil, err
	}

	if already != "" {
		return &model.CancelScanResponse{
			Accepted: false,
			Message:  "scan already " + string(already),
		}, nil
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "scan cancelled", "scan_id", scanID)
	}
	s.emitTerminal(snap)
	s.cacheReport(snap)

	return &model.CancelScanResponse{
		Accepted: true,
		Message:  "cancellation requested",
	}, nil
}

// GetLogs returns the probe execution log projection.
func (s *ScanService) GetLogs(_ context.Context, scanID string) (*model.ScanLogsResponse, error) {
	snap, err := s.registry.Get(scanID)
	if err != nil {
		return nil, err
	}

	totals := model.LogTotals{Probes: len(snap.ProbeLogs)}
	for _, l := range snap.ProbeLogs {
		switch l.Status {
		case model.ProbeStatusPassed:
			totals.Passed++
		case model.ProbeStatusFailed:
			totals.Failed++
		case model.ProbeStatusError:
			totals.Errored++
		case model.ProbeStatusUntested:
			totals.Untested++
		}
		totals.PromptsSent += l.PromptsSent
		totals.PromptsFailed += l.PromptsFailed
	}

	return &model.ScanLogsResponse{
		ScanID:    snap.ID,
		Status:    snap.Status,
		ProbeLogs: snap.ProbeLogs,
		Totals:    totals,
	}, nil
}

// GetResults returns the paginated result report for a terminal scan. Reports
// for scans the reaper already evicted are served from the cache when warm.
func (s *ScanService) GetResults(ctx context.Context, scanID string, page, perPage int) (*model.ScanResultsResponse, error) {
	var status model.ScanStatus
	var findings []model.Finding
	var probeLogs []model.ProbeLog
	var completedAt *time.Time

	snap, err := s.registry.Get(scanID)
	switch {
	case err == nil:
		if !snap.Terminal() {
			return nil, apperrors.Conflictf("scan is %s; results are available once it completes", snap.Status)
		}
		status = snap.Status
		findings = snap.Findings
		probeLogs = snap.ProbeLogs
		completedAt = snap.CompletedAt
	case apperrors.IsNotFound(err):
		report, ok := s.cachedReportFor(ctx, scanID)
		if !ok {
			return nil, err
		}
		status = report.Status
		findings = report.Findings
		probeLogs = report.ProbeLogs
		completedAt = report.CompletedAt
	default:
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	summary := buildSummary(findings, probeLogs)
	total := len(findings)
	totalPages := (total + perPage - 1) / perPage

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return &model.ScanResultsResponse{
		ScanID:  scanID,
		Status:  status,
		Summary: summary,
		Findings: findings[start:end],
		Pagination: model.PaginationInfo{
			Page:       page,
			PerPage:    perPage,
			TotalItems: total,
			TotalPages: totalPages,
		},
		CompletedAt: completedAt,
	}, nil
}

// buildSummary aggregates the report header: probe pass/fail counts, the
// severity breakdown, and the risk score (mean severity weight of findings).
func buildSummary(findings []model.Finding, probeLogs []model.ProbeLog) model.ScanSummary {
	summary := model.ScanSummary{TotalProbes: len(probeLogs)}
	for _, l := range probeLogs {
		switch l.Status {
		case model.ProbeStatusPassed:
			summary.Passed++
		case model.ProbeStatusFailed:
			summary.Failed++
		}
	}

	if len(findings) == 0 {
		return summary
	}

	var weightSum float64
	for _, f := range findings {
		weightSum += f.Severity.Weight()
		switch f.Severity {
		case model.SeverityCritical:
			summary.SeverityBreakdown.Critical++
		case model.SeverityHigh:
			summary.SeverityBreakdown.High++
		case model.SeverityMedium:
			summary.SeverityBreakdown.Medium++
		case model.SeverityLow:
			summary.SeverityBreakdown.Low++
		}
	}
	summary.RiskScore = weightSum / float64(len(findings))
	return summary
}

// List returns the most recent scans, newest first.
func (s *ScanService) List(_ context.Context, limit int) ([]model.ScanListItem, error) {
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	scans := s.registry.List()
	if len(scans) > limit {
		scans = scans[:limit]
	}

	out := make([]model.ScanListItem, 0, len(scans))
	for _, snap := range scans {
		out = append(out, model.ScanListItem{
			ScanID:        snap.ID,
			Status:        snap.Status,
			Preset:        snap.Params.Preset,
			Target:        snap.Params.Target.Redacted(),
			Progress:      snap.Progress,
			ProbesTotal:   snap.ProbesTotal,
			FindingsCount: len(snap.Findings),
			ErrorMessage:  snap.ErrorMessage,
			CreatedAt:     snap.CreatedAt,
			CompletedAt:   snap.CompletedAt,
		})
	}
	return out, nil
}

// Retest synchronously replays one attack prompt against a target.
func (s *ScanService) Retest(ctx context.Context, req *model.RetestRequest) (*model.RetestResult, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid retest request")
	}
	if err := s.engine.IsAvailable(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "scan engine is not available")
	}
	return s.engine.Retest(ctx, *req)
}
