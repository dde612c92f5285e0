// Package policy centralizes the runtime-tunable telemetry knobs (health
// probe cadence, trace sampling rate, event bus buffering) so they can be
// swapped as one immutable snapshot rather than read field-by-field off a
// mutable config under a lock.
package policy

import "time"

// TelemetryPolicy bundles every telemetry knob the engine reads at
// construction time. All durations and ratios are expected to be positive;
// Normalize replaces zero values with the defaults in Default(), except
// Tracing.SamplePercent, which it only clamps to [0, 100].
type TelemetryPolicy struct {
	Health  HealthPolicy
	Tracing TracingPolicy
	Events  EventBusPolicy
}

// HealthPolicy tunes the health evaluator's probe cache and the thresholds a
// pipeline- or resource-level probe would use to grade degraded/unhealthy.
type HealthPolicy struct {
	ProbeTTL                    time.Duration
	PipelineMinSamples          int
	PipelineDegradedRatio       float64
	PipelineUnhealthyRatio      float64
	ResourceDegradedCheckpoint  int
	ResourceUnhealthyCheckpoint int
}

// TracingPolicy tunes the adaptive tracer's base sampling rate and the
// boosts applied when a span reports an error or abnormal latency.
type TracingPolicy struct {
	SamplePercent           float64
	ErrorBoostPercent       float64
	LatencyBoostThresholdMs int64
	LatencyBoostPercent     float64
}

// EventBusPolicy tunes the operational event bus's per-subscriber buffering.
type EventBusPolicy struct {
	MaxSubscriberBuffer int
}

// Default returns the TelemetryPolicy the engine assumes absent an explicit
// override.
func Default() TelemetryPolicy {
	return TelemetryPolicy{
		Health: HealthPolicy{
			ProbeTTL:                    2 * time.Second,
			PipelineMinSamples:          10,
			PipelineDegradedRatio:       0.50,
			PipelineUnhealthyRatio:      0.80,
			ResourceDegradedCheckpoint:  256,
			ResourceUnhealthyCheckpoint: 512,
		},
		Tracing: TracingPolicy{SamplePercent: 20},
		Events:  EventBusPolicy{MaxSubscriberBuffer: 1024},
	}
}

// Normalize returns a copy of p with every out-of-range field clamped to its
// default; it never mutates p itself.
func (p TelemetryPolicy) Normalize() TelemetryPolicy {
	c := p
	if c.Health.ProbeTTL <= 0 {
		c.Health.ProbeTTL = 2 * time.Second
	}
	if c.Health.PipelineMinSamples <= 0 {
		c.Health.PipelineMinSamples = 10
	}
	if c.Health.PipelineDegradedRatio <= 0 {
		c.Health.PipelineDegradedRatio = 0.50
	}
	if c.Health.PipelineUnhealthyRatio <= 0 {
		c.Health.PipelineUnhealthyRatio = 0.80
	}
	if c.Health.ResourceDegradedCheckpoint <= 0 {
		c.Health.ResourceDegradedCheckpoint = 256
	}
	if c.Health.ResourceUnhealthyCheckpoint <= 0 {
		c.Health.ResourceUnhealthyCheckpoint = 512
	}
	if c.Tracing.SamplePercent < 0 {
		c.Tracing.SamplePercent = 0
	}
	if c.Tracing.SamplePercent > 100 {
		c.Tracing.SamplePercent = 100
	}
	if c.Events.MaxSubscriberBuffer <= 0 {
		c.Events.MaxSubscriberBuffer = 1024
	}
	return c
}
