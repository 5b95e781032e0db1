package metrics

import (
	"time"

	obserrors "github.com/orafinite/scan-api/internal/observability/errors"
	"github.com/orafinite/scan-api/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// ScanMetric captures details about a scan lifecycle event for metric emission.
type ScanMetric struct {
	Preset     string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitScanLifecycle emits standardised scan lifecycle metrics.
func EmitScanLifecycle(sink statsd.Sink, in ScanMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"preset":     in.Preset,
		"transition": in.Transition,
		"result":     in.Result,
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("scan.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("scan.duration", in.Duration, CloneTags(tags))
	}
}

// EmitReaperSweep records the outcome of a single reaper pass.
func EmitReaperSweep(sink statsd.Sink, staled, purged int, took time.Duration) {
	if sink == nil {
		return
	}

	sink.Count("reaper.staled", int64(staled), nil)
	sink.Count("reaper.purged", int64(purged), nil)
	sink.Timing("reaper.sweep", took, nil)
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
