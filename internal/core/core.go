package core

import (
	"context"

	"github.com/1F47E/go-camreel/internal/config"
	"github.com/1F47E/go-camreel/internal/metrics"
)

type Options struct {
	FramesDir  string  // where rendered or extracted frames go
	OutDir     string  // where decoded files go
	Video      string  // encode output, empty keeps the frames only
	Redundancy float64 // fountain symbols per data shard
	FPS        int
}

func DefaultOptions() Options {
	return Options{
		FramesDir:  config.PathFramesDir,
		OutDir:     config.PathDecodeDir,
		Video:      config.PathVideoOut,
		Redundancy: 1.5,
		FPS:        10,
	}
}

type Core struct {
	ctx     context.Context
	cfg     config.Config
	opts    Options
	metrics *metrics.Metrics
}

func NewCore(ctx context.Context, cfg config.Config, opts Options) *Core {
	return &Core{
		ctx:     ctx,
		cfg:     cfg,
		opts:    opts,
		metrics: metrics.New(),
	}
}

// Metrics are the decoder counters of every Decode run by this core
func (c *Core) Metrics() *metrics.Metrics {
	return c.metrics
}
