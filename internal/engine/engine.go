package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/orafinite/scan-api/config"
	"github.com/orafinite/scan-api/internal/core"
	"github.com/orafinite/scan-api/internal/domain/model"
	apperrors "github.com/orafinite/scan-api/internal/errors"
)

const excerptLimit = 2000

// Engine runs probe sets against target models in-process.
type Engine struct {
	cfg    config.EngineConfig
	logger *slog.Logger
	client *http.Client

	// newGenerator is swappable for tests.
	newGenerator func(target model.TargetConfig, client *http.Client) (Generator, error)
}

var _ core.ScanEngine = (*Engine)(nil)

// Options groups dependencies for New.
type Options struct {
	Config config.EngineConfig
	Logger *slog.Logger

	// HTTPClient overrides the client used for target requests. A client with
	// the configured request timeout is built when nil.
	HTTPClient *http.Client
}

// New constructs the probe engine.
func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Config.RequestTimeout}
	}

	return &Engine{
		cfg:          opts.Config,
		logger:       logger.With("component", "engine"),
		client:       client,
		newGenerator: NewGenerator,
	}, nil
}

// IsAvailable reports whether the engine can accept work.
func (e *Engine) IsAvailable(_ context.Context) error {
	if len(catalog) == 0 {
		return apperrors.Unavailable("probe catalog is empty")
	}
	return nil
}

// Execute runs every resolved probe against the target, streaming findings,
// probe logs and progress through callbacks. Each run is bounded by the
// preset's maximum duration. Cancellation is polled per probe and per prompt.
func (e *Engine) Execute(
	ctx context.Context,
	params model.ScanParams,
	callbacks core.ScanCallbacks,
	cancelled func() bool,
) model.EngineResult {
	if cancelled == nil {
		cancelled = func() bool { return false }
	}

	probes := ResolveProbes(params.Preset, params.Probes)
	if len(probes) == 0 {
		return model.EngineResult{
			Status:       model.EngineFailed,
			ErrorMessage: "no available probes to run",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, params.Preset.MaxDuration())
	defer cancel()

	gen, err := e.newGenerator(params.Target, e.client)
	if err != nil {
		return model.EngineResult{
			Status:       model.EngineFailed,
			ErrorMessage: fmt.Sprintf("could not initialize generator for provider=%s: %v", params.Target.Provider, err),
		}
	}

	maxPrompts := params.MaxPromptsPerProbe
	if maxPrompts <= 0 {
		maxPrompts = e.cfg.DefaultMaxPrompts
	}

	e.logger.InfoContext(ctx, "starting scan",
		"provider", params.Target.Provider,
		"model", params.Target.Model,
		"probes", len(probes),
		"max_prompts", maxPrompts,
	)

	var findings []model.Finding
	var probeLogs []model.ProbeLog
	total := len(probes)

	for i, probe := range probes {
		if cancelled() || ctx.Err() != nil {
			return e.finish(ctx, findings, probeLogs, cancelled)
		}

		log, probeFindings := e.runProbe(ctx, gen, probe, maxPrompts, callbacks, cancelled)

		findings = append(findings, probeFindings...)
		probeLogs = append(probeLogs, log)
		if callbacks.OnProbeLog != nil {
			callbacks.OnProbeLog(log)
		}

		completed := i + 1
		if callbacks.OnProgress != nil {
			callbacks.OnProgress(completed*100/total, completed, total)
		}
	}

	return e.finish(ctx, findings, probeLogs, cancelled)
}

// finish classifies how the run ended.
func (e *Engine) finish(
	ctx context.Context,
	findings []model.Finding,
	probeLogs []model.ProbeLog,
	cancelled func() bool,
) model.EngineResult {
	result := model.EngineResult{
		Status:    model.EngineCompleted,
		Findings:  findings,
		ProbeLogs: probeLogs,
	}

	switch {
	case cancelled():
		result.Status = model.EngineCancelled
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.Status = model.EngineFailed
		result.ErrorMessage = "scan exceeded the preset time budget"
	case ctx.Err() != nil:
		result.Status = model.EngineCancelled
	}

	e.logger.Info("scan finished",
		"status", result.Status,
		"findings", len(result.Findings),
		"probes", len(result.ProbeLogs),
	)
	return result
}

// runProbe sends the probe's prompts and scores each response.
func (e *Engine) runProbe(
	ctx context.Context,
	gen Generator,
	probe Probe,
	maxPrompts int,
	callbacks core.ScanCallbacks,
	cancelled func() bool,
) (model.ProbeLog, []model.Finding) {
	started := time.Now()
	log := model.ProbeLog{
		ProbeName:    probe.Name,
		ProbeClass:   probe.ID,
		Status:       model.ProbeStatusRunning,
		StartedAt:    started.UTC(),
		DetectorName: "heuristic/" + probe.Category,
	}

	prompts := probe.Prompts
	if len(prompts) > maxPrompts {
		prompts = prompts[:maxPrompts]
	}

	if len(prompts) == 0 {
		log.Status = model.ProbeStatusError
		log.ErrorMessage = "probe has no prompts"
		return finalizeLog(log, started), nil
	}

	log.LogLines = append(log.LogLines,
		fmt.Sprintf("Running %d prompts (max_prompts=%d)", len(prompts), maxPrompts))

	var findings []model.Finding

	for _, prompt := range prompts {
		if cancelled() || ctx.Err() != nil {
			log.LogLines = append(log.LogLines, "Cancelled mid-probe")
			break
		}

		response, err := gen.Generate(ctx, prompt)
		if err != nil {
			log.LogLines = append(log.LogLines, fmt.Sprintf("Prompt error: %v", err))
			continue
		}

		log.PromptsSent++
		score := clampScore(scoreResponse(probe, response))
		log.DetectorScores = append(log.DetectorScores, score)

		if score > vulnerableThreshold {
			log.PromptsFailed++
			finding := model.Finding{
				ProbeName:      probe.Name,
				ProbeClass:     probe.ID,
				Category:       probe.Category,
				Severity:       severityFor(probe, score),
				Description:    probe.Description,
				AttackPrompt:   truncate(prompt, excerptLimit),
				ModelResponse:  truncate(response, excerptLimit),
				Recommendation: recommendationFor(probe.Category),
				Confidence:     score,
				DetectorName:   log.DetectorName,
			}
			findings = append(findings, finding)
			if callbacks.OnFinding != nil {
				callbacks.OnFinding(finding)
			}
			log.LogLines = append(log.LogLines,
				fmt.Sprintf("  VULN prompt #%d: score=%.2f", log.PromptsSent, score))
		} else {
			log.PromptsPassed++
		}
	}

	switch {
	case log.PromptsFailed > 0:
		log.Status = model.ProbeStatusFailed
		log.LogLines = append(log.LogLines,
			fmt.Sprintf("FAILED: %d/%d prompts triggered vulnerabilities", log.PromptsFailed, log.PromptsSent))
	case log.PromptsSent == 0:
		log.Status = model.ProbeStatusError
		log.ErrorMessage = "no prompt produced a scoreable response"
	default:
		log.Status = model.ProbeStatusPassed
		log.LogLines = append(log.LogLines,
			fmt.Sprintf("PASSED: 0/%d vulnerabilities", log.PromptsSent))
	}

	return finalizeLog(log, started), findings
}

func finalizeLog(log model.ProbeLog, started time.Time) model.ProbeLog {
	completed := time.Now()
	log.CompletedAt = completed.UTC()
	log.Duration = completed.Sub(started).Milliseconds()
	return log
}

// Retest replays one attack prompt several times to check whether a finding
// reproduces. It runs synchronously and returns per-attempt outcomes plus a
// confirmation rate.
func (e *Engine) Retest(ctx context.Context, req model.RetestRequest) (*model.RetestResult, error) {
	probe, ok := LookupProbe(req.ProbeID)
	if !ok {
		return nil, apperrors.NotFoundf("unknown probe %q", req.ProbeID)
	}

	gen, err := e.newGenerator(req.Target, e.client)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeEngine,
			"could not initialize generator for provider=%s", req.Target.Provider)
	}

	attempts := req.Attempts
	if attempts <= 0 {
		attempts = e.cfg.RetestAttempts
	}

	result := &model.RetestResult{
		ProbeID:       probe.ID,
		ProbeName:     probe.Name,
		AttackPrompt:  req.AttackPrompt,
		TotalAttempts: attempts,
		Attempts:      make([]model.RetestAttempt, 0, attempts),
	}

	for n := 1; n <= attempts; n++ {
		if ctx.Err() != nil {
			return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrCodeCanceled, "retest interrupted")
		}

		start := time.Now()
		attempt := model.RetestAttempt{AttemptNumber: n}

		response, genErr := gen.Generate(ctx, req.AttackPrompt)
		attempt.DurationMS = time.Since(start).Milliseconds()

		if genErr != nil {
			attempt.ErrorMessage = genErr.Error()
			result.Attempts = append(result.Attempts, attempt)
			continue
		}

		score := clampScore(scoreResponse(probe, response))
		attempt.DetectorScore = score
		attempt.ModelResponse = truncate(response, excerptLimit)
		attempt.Vulnerable = score > vulnerableThreshold

		if attempt.Vulnerable {
			result.VulnerableCount++
		} else {
			result.SafeCount++
		}
		result.Attempts = append(result.Attempts, attempt)
	}

	if scored := result.VulnerableCount + result.SafeCount; scored > 0 {
		result.ConfirmationRate = float64(result.VulnerableCount) / float64(scored)
	}

	return result, nil
}

// truncate caps s at limit bytes without splitting a UTF-8 rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
