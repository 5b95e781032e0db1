package model

import (
	"errors"
	"time"
)

// StartScanRequest represents a request to start a new vulnerability scan.
type StartScanRequest struct {
	Target             TargetConfig `json:"target"`
	Preset             ScanPreset   `json:"preset"`
	Probes             []string     `json:"probes,omitempty"`
	MaxPromptsPerProbe int          `json:"max_prompts_per_probe,omitempty"`
}

// Validate validates the StartScanRequest fields.
func (r *StartScanRequest) Validate() error {
	if r.Preset == "" {
		r.Preset = PresetStandard
	}
	params := ScanParams{
		Target:             r.Target,
		Preset:             r.Preset,
		Probes:             r.Probes,
		MaxPromptsPerProbe: r.MaxPromptsPerProbe,
	}
	if err := params.Validate(); err != nil {
		return err
	}
	// Keep the provider normalization Validate applied to the target.
	r.Target = params.Target
	return nil
}

// Params converts the request into the immutable submission parameters.
func (r *StartScanRequest) Params() ScanParams {
	return ScanParams{
		Target:             r.Target,
		Preset:             r.Preset,
		Probes:             append([]string(nil), r.Probes...),
		MaxPromptsPerProbe: r.MaxPromptsPerProbe,
	}
}

// StartScanResponse is returned immediately after a scan is admitted.
type StartScanResponse struct {
	ScanID                   string     `json:"scan_id"`
	Status                   ScanStatus `json:"status"`
	EstimatedDurationSeconds int        `json:"estimated_duration_seconds"`
	CreatedAt                time.Time  `json:"created_at"`
}

// ScanStatusResponse represents the status information for a specific scan.
type ScanStatusResponse struct {
	ScanID          string     `json:"scan_id"`
	Status          ScanStatus `json:"status"`
	Progress        int        `json:"progress"`
	ProbesCompleted int        `json:"probes_completed"`
	ProbesTotal     int        `json:"probes_total"`
	FindingsCount   int        `json:"findings_count"`
	Findings        []Finding  `json:"findings"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// ScanListItem is the compact per-scan row returned by the list endpoint.
type ScanListItem struct {
	ScanID        string       `json:"scan_id"`
	Status        ScanStatus   `json:"status"`
	Preset        ScanPreset   `json:"preset"`
	Target        TargetConfig `json:"target"`
	Progress      int          `json:"progress"`
	ProbesTotal   int          `json:"probes_total"`
	FindingsCount int          `json:"findings_count"`
	ErrorMessage  string       `json:"error_message,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
}

// CancelScanResponse reports the outcome of a cancel request.
type CancelScanResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// LogTotals aggregates probe log counters for the logs endpoint.
type LogTotals struct {
	Probes        int `json:"probes"`
	Passed        int `json:"passed"`
	Failed        int `json:"failed"`
	Errored       int `json:"errored"`
	Untested      int `json:"untested"`
	PromptsSent   int `json:"prompts_sent"`
	PromptsFailed int `json:"prompts_failed"`
}

// ScanLogsResponse is the read-only projection of a scan's probe logs.
type ScanLogsResponse struct {
	ScanID    string     `json:"scan_id"`
	Status    ScanStatus `json:"status"`
	ProbeLogs []ProbeLog `json:"probe_logs"`
	Totals    LogTotals  `json:"totals"`
}

// SeverityBreakdown counts findings per severity.
type SeverityBreakdown struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// ScanSummary aggregates the outcome of a terminal scan.
type ScanSummary struct {
	TotalProbes       int               `json:"total_probes"`
	Passed            int               `json:"passed"`
	Failed            int               `json:"failed"`
	RiskScore         float64           `json:"risk_score"`
	SeverityBreakdown SeverityBreakdown `json:"severity_breakdown"`
}

// PaginationInfo describes one page of findings.
type PaginationInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// ScanResultsResponse is the paginated results view for a terminal scan.
type ScanResultsResponse struct {
	ScanID      string         `json:"scan_id"`
	Status      ScanStatus     `json:"status"`
	Summary     ScanSummary    `json:"summary"`
	Findings    []Finding      `json:"findings"`
	Pagination  PaginationInfo `json:"pagination"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// ProbeInfo is the catalog entry for one probe.
type ProbeInfo struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	SeverityRange  string   `json:"severity_range"`
	DefaultEnabled bool     `json:"default_enabled"`
	Tags           []string `json:"tags,omitempty"`
	PromptCount    int      `json:"prompt_count"`
}

// ProbeCategoryInfo groups probes for the catalog endpoint.
type ProbeCategoryInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ProbeIDs    []string `json:"probe_ids"`
}

// ProbeCatalogResponse is the full probe catalog.
type ProbeCatalogResponse struct {
	Categories []ProbeCategoryInfo  `json:"categories"`
	Probes     map[string]ProbeInfo `json:"probes"`
}

// RetestRequest asks the engine to re-run one attack prompt to confirm a finding.
type RetestRequest struct {
	ProbeID      string       `json:"probe_id"`
	AttackPrompt string       `json:"attack_prompt"`
	Target       TargetConfig `json:"target"`
	Attempts     int          `json:"attempts,omitempty"`
}

// Validate validates the RetestRequest fields.
func (r *RetestRequest) Validate() error {
	if r.ProbeID == "" {
		return errors.New("probe id is required")
	}
	if r.AttackPrompt == "" {
		return errors.New("attack prompt is required")
	}
	if r.Attempts < 0 || r.Attempts > 10 {
		return errors.New("attempts must be between 0 and 10")
	}
	return r.Target.Validate()
}

// RetestAttempt is the outcome of one retest attempt.
type RetestAttempt struct {
	AttemptNumber int     `json:"attempt_number"`
	Vulnerable    bool    `json:"is_vulnerable"`
	ModelResponse string  `json:"model_response"`
	DetectorScore float64 `json:"detector_score"`
	DurationMS    int64   `json:"duration_ms"`
	ErrorMessage  string  `json:"error_message,omitempty"`
}

// RetestResult is the synchronous result of a retest run.
type RetestResult struct {
	ProbeID          string          `json:"probe_id"`
	ProbeName        string          `json:"probe_name"`
	AttackPrompt     string          `json:"attack_prompt"`
	TotalAttempts    int             `json:"total_attempts"`
	VulnerableCount  int             `json:"vulnerable_count"`
	SafeCount        int             `json:"safe_count"`
	ConfirmationRate float64         `json:"confirmation_rate"`
	Attempts         []RetestAttempt `json:"results"`
	ErrorMessage     string          `json:"error_message,omitempty"`
}
