// Package reaper provides the adapter for running the scan reaper loop.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/orafinite/scan-api/config"
	"github.com/orafinite/scan-api/internal/core"
	"github.com/orafinite/scan-api/internal/observability/statsd"
	"github.com/orafinite/scan-api/internal/service"
)

// Runner provides a simple adapter to run the reaper loop.
// It constructs the reaper service and runs the sweep loop.
type Runner struct {
	reaper  *service.ReaperService
	logger  *slog.Logger
	metrics statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Registry core.ReaperRegistry
	Config   config.ReaperConfig
	Logger   *slog.Logger

	// Optional metrics sink
	Metrics statsd.Sink
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	reaper, err := service.NewReaperService(service.ReaperServiceOptions{
		Registry: opts.Registry,
		Config:   opts.Config,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}

	return &Runner{
		reaper:  reaper,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.Registry == nil {
		return errors.New("scan registry is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}
