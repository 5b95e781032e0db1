// Package model defines the core data types and structures used throughout the scan service.
package model

import (
	"time"
)

// ScanStatus represents the current status of a scan job.
type ScanStatus string

const (
	// ScanStatusQueued indicates a scan was admitted but not yet picked up by the executor.
	ScanStatusQueued ScanStatus = "queued"
	// ScanStatusRunning indicates the engine is currently executing the scan.
	ScanStatusRunning ScanStatus = "running"
	// ScanStatusCompleted indicates the scan finished normally.
	ScanStatusCompleted ScanStatus = "completed"
	// ScanStatusFailed indicates the scan failed or timed out.
	ScanStatusFailed ScanStatus = "failed"
	// ScanStatusCancelled indicates the scan was cancelled by the caller.
	ScanStatusCancelled ScanStatus = "cancelled"
)

// Valid returns true if the ScanStatus is valid.
func (s ScanStatus) Valid() bool {
	switch s {
	case ScanStatusQueued, ScanStatusRunning, ScanStatusCompleted, ScanStatusFailed, ScanStatusCancelled:
		return true
	}
	return false
}

// Terminal returns true if no further status transition is permitted.
func (s ScanStatus) Terminal() bool {
	return s == ScanStatusCompleted || s == ScanStatusFailed || s == ScanStatusCancelled
}

// Active returns true if the scan counts against the concurrency ceiling.
func (s ScanStatus) Active() bool {
	return s == ScanStatusQueued || s == ScanStatusRunning
}

// Severity classifies how serious a finding is.
type Severity string

const (
	// SeverityCritical is the highest severity level.
	SeverityCritical Severity = "critical"
	// SeverityHigh indicates a serious vulnerability.
	SeverityHigh Severity = "high"
	// SeverityMedium indicates a moderate vulnerability.
	SeverityMedium Severity = "medium"
	// SeverityLow indicates a minor vulnerability.
	SeverityLow Severity = "low"
	// SeverityInfo indicates an informational finding.
	SeverityInfo Severity = "info"
)

// Weight returns the risk-score contribution of this severity.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 1.0
	case SeverityHigh:
		return 0.75
	case SeverityMedium:
		return 0.5
	case SeverityLow:
		return 0.25
	default:
		return 0.1
	}
}

// Finding represents one discovered vulnerability reported by a probe.
// Probe class and detector name are kept so the exact check can be re-run later.
type Finding struct {
	ProbeName      string   `json:"probe_name"`
	ProbeClass     string   `json:"probe_class,omitempty"`
	Category       string   `json:"category"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	AttackPrompt   string   `json:"attack_prompt"`
	ModelResponse  string   `json:"model_response"`
	Recommendation string   `json:"recommendation"`
	Confidence     float64  `json:"confidence"`
	DetectorName   string   `json:"detector_name,omitempty"`
}

// ProbeStatus represents the outcome of one probe within a scan.
type ProbeStatus string

const (
	// ProbeStatusRunning indicates the probe is still executing.
	ProbeStatusRunning ProbeStatus = "running"
	// ProbeStatusPassed indicates no prompt triggered a vulnerability.
	ProbeStatusPassed ProbeStatus = "passed"
	// ProbeStatusFailed indicates at least one prompt triggered a vulnerability.
	ProbeStatusFailed ProbeStatus = "failed"
	// ProbeStatusError indicates the probe could not run to completion.
	ProbeStatusError ProbeStatus = "error"
	// ProbeStatusUntested indicates the probe was skipped because its detector was unavailable.
	ProbeStatusUntested ProbeStatus = "untested"
)

// ProbeLog is the execution record for one probe within a scan.
type ProbeLog struct {
	ProbeName      string      `json:"probe_name"`
	ProbeClass     string      `json:"probe_class,omitempty"`
	Status         ProbeStatus `json:"status"`
	StartedAt      time.Time   `json:"started_at"`
	CompletedAt    time.Time   `json:"completed_at"`
	Duration       int64       `json:"duration_ms"`
	PromptsSent    int         `json:"prompts_sent"`
	PromptsPassed  int         `json:"prompts_passed"`
	PromptsFailed  int         `json:"prompts_failed"`
	DetectorName   string      `json:"detector_name,omitempty"`
	DetectorScores []float64   `json:"detector_scores,omitempty"`
	LogLines       []string    `json:"log_lines,omitempty"`
	ErrorMessage   string      `json:"error_message,omitempty"`
}

// Scan represents one submitted scan job with its full lifecycle state.
// All mutation happens inside the registry's exclusion domain; callers only
// ever see snapshots.
type Scan struct {
	ID              string     `json:"id"`
	Status          ScanStatus `json:"status"`
	Params          ScanParams `json:"params"`
	Progress        int        `json:"progress"`
	ProbesCompleted int        `json:"probes_completed"`
	ProbesTotal     int        `json:"probes_total"`
	Findings        []Finding  `json:"findings"`
	ProbeLogs       []ProbeLog `json:"probe_logs"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the scan reached a terminal status.
func (s *Scan) Terminal() bool {
	return s.Status.Terminal()
}

// Snapshot returns a deep copy of the scan so callers never observe a record
// mid-mutation. Slices are copied; Params is immutable after creation and is
// copied by value.
func (s *Scan) Snapshot() Scan {
	out := *s
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	out.Findings = make([]Finding, len(s.Findings))
	copy(out.Findings, s.Findings)
	out.ProbeLogs = make([]ProbeLog, len(s.ProbeLogs))
	for i := range s.ProbeLogs {
		out.ProbeLogs[i] = s.ProbeLogs[i].clone()
	}
	out.Params.Probes = append([]string(nil), s.Params.Probes...)
	return out
}

func (p ProbeLog) clone() ProbeLog {
	out := p
	out.DetectorScores = append([]float64(nil), p.DetectorScores...)
	out.LogLines = append([]string(nil), p.LogLines...)
	return out
}

// ScanParams holds the immutable inputs a scan was submitted with.
type ScanParams struct {
	Target             TargetConfig `json:"target"`
	Preset             ScanPreset   `json:"preset"`
	Probes             []string     `json:"probes,omitempty"`
	MaxPromptsPerProbe int          `json:"max_prompts_per_probe,omitempty"`
}

// EngineResultStatus is the final status reported by the scan engine itself.
type EngineResultStatus string

const (
	// EngineCompleted indicates the engine ran every probe to completion.
	EngineCompleted EngineResultStatus = "completed"
	// EngineFailed indicates the engine hit an internal failure.
	EngineFailed EngineResultStatus = "failed"
	// EngineCancelled indicates the engine observed cancellation and wound down.
	EngineCancelled EngineResultStatus = "cancelled"
)

// EngineResult is the scan engine's own view of a finished run. Callbacks are
// the source of truth for incremental visibility; this is the safety net the
// adapter reconciles against.
type EngineResult struct {
	Status       EngineResultStatus
	Findings     []Finding
	ProbeLogs    []ProbeLog
	ErrorMessage string
}
