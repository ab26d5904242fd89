package orchestrator

import (
	"github.com/1F47E/go-camreel/internal/metrics"
	"github.com/1F47E/go-camreel/internal/pipeline"
	"github.com/1F47E/go-camreel/internal/sink"
)

type Option func(*Orchestrator)

// WithMetrics replaces the private counters. Snapshots stay empty unless
// the collector also implements metrics.Reader.
func WithMetrics(c metrics.Collector) Option {
	return func(o *Orchestrator) {
		o.metrics = c
	}
}

// WithPipeline replaces the processor built from the config
func WithPipeline(p pipeline.Processor) Option {
	return func(o *Orchestrator) {
		o.proc = p
	}
}

// WithSink shares a sink between orchestrators. Its chunk size must
// match the configured scheme.
func WithSink(s *sink.Sink) Option {
	return func(o *Orchestrator) {
		o.sink = s
	}
}
