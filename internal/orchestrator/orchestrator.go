package orchestrator

import (
	"context"
	"image"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/1F47E/go-camreel/internal/config"
	"github.com/1F47E/go-camreel/internal/extractor"
	"github.com/1F47E/go-camreel/internal/fountain"
	"github.com/1F47E/go-camreel/internal/job"
	"github.com/1F47E/go-camreel/internal/logger"
	"github.com/1F47E/go-camreel/internal/metrics"
	"github.com/1F47E/go-camreel/internal/pipeline"
	"github.com/1F47E/go-camreel/internal/sink"
	"github.com/1F47E/go-camreel/internal/workers"
)

var ErrInvalidState = errors.New("orchestrator: invalid state transition")

type state int32

const (
	stateCreated state = iota
	stateRunning
	stateStopped
)

// Status is a snapshot for the host UI
type Status struct {
	Threads  int
	Backlog  int
	Busy     int
	InFlight int
	Decoded  int
	Done     []string
	Progress []float64
	Mode     pipeline.ModeResult
	Metrics  metrics.Snapshot
}

// Orchestrator fans camera frames out to a fixed worker pool and feeds
// the decoded symbols into the sink. Submit never blocks: a frame that
// finds the queue full is dropped.
type Orchestrator struct {
	cfg     config.Config
	log     *logrus.Entry
	proc    pipeline.Processor
	sink    *sink.Sink
	metrics metrics.Collector
	threads int

	lifecycle sync.Mutex
	state     atomic.Int32
	extract   atomic.Pointer[workers.Pool]
	decode    atomic.Pointer[workers.Pool] // staged mode only

	seenMu sync.Mutex
	seen   int
}

func New(cfg config.Config, dir string, opts ...Option) (*Orchestrator, error) {
	if err := config.Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "orchestrator: config")
	}
	o := &Orchestrator{
		cfg: cfg,
		log: logger.Scope("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = metrics.New()
	}
	if o.proc == nil {
		p, err := pipeline.New(cfg)
		if err != nil {
			return nil, err
		}
		o.proc = p
	}

	chunk := o.proc.ChunkSize()
	if o.sink == nil {
		o.sink = sink.New(dir, chunk, sink.WithMetrics(o.metrics))
	} else if chunk > 0 {
		if err := o.sink.Reconfigure(chunk); err != nil {
			return nil, err
		}
	}

	o.threads = cfg.NumWorkers()
	if cfg.Decoder.Staged {
		o.threads *= 2
	}
	return o, nil
}

func (o *Orchestrator) Start() error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()
	if state(o.state.Load()) != stateCreated {
		return ErrInvalidState
	}
	ctx := context.Background()
	n := o.cfg.NumWorkers()
	if o.cfg.Decoder.Staged {
		o.decode.Store(workers.NewPool(ctx, "decode", n, o.cfg.Decoder.StageQueueSize))
	}
	o.extract.Store(workers.NewPool(ctx, "frame", n, o.cfg.Decoder.QueueSize))
	o.state.Store(int32(stateRunning))
	o.log.Debugf("started %d threads, mode %s", o.threads, o.cfg.Mode)
	return nil
}

// Stop drains queued and running frames, joins the workers and flushes
// the sink. Stopping twice is a no-op.
func (o *Orchestrator) Stop() error {
	return o.stop(false)
}

// Abort drops the queued frames, waits for the running ones and flushes
// the sink
func (o *Orchestrator) Abort() error {
	return o.stop(true)
}

func (o *Orchestrator) stop(kill bool) error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()
	switch state(o.state.Load()) {
	case stateCreated:
		return ErrInvalidState
	case stateStopped:
		return nil
	}
	o.state.Store(int32(stateStopped))
	pools := []*workers.Pool{o.extract.Load()}
	if p := o.decode.Load(); p != nil {
		pools = append(pools, p)
	}
	for _, p := range pools {
		if kill {
			p.Kill()
		} else {
			p.Stop()
		}
	}
	o.sink.Flush()
	o.log.Debugf("stopped, kill %v", kill)
	return nil
}

// Submit offers a frame to the pool. It returns false when the frame was
// dropped: the queue is full or the orchestrator is not running.
func (o *Orchestrator) Submit(frame job.Frame) bool {
	if state(o.state.Load()) != stateRunning {
		return false
	}
	o.metrics.Inc(metrics.FramesSubmitted)
	img := extractor.Clone(frame.Image)
	pool := o.extract.Load()
	if !pool.TrySubmit(func(context.Context) { o.process(img) }) {
		o.metrics.Inc(metrics.FramesDropped)
		return false
	}
	return true
}

func (o *Orchestrator) process(img image.Image) {
	e, res := o.proc.Extract(img)
	o.metrics.Inc(metrics.FramesScanned)
	o.metrics.Add(metrics.ScanNanos, uint64(res.ScanTime))
	if res.Stage == pipeline.StageNoAnchors {
		return
	}
	o.metrics.Inc(metrics.FramesAnchored)
	o.metrics.Add(metrics.ExtractNanos, uint64(res.ExtractTime))
	if res.Stage != pipeline.StageExtracted {
		return
	}
	o.metrics.Inc(metrics.FramesExtracted)

	if p := o.decode.Load(); p != nil {
		if !p.TrySubmit(func(context.Context) { o.finish(e, res) }) {
			o.metrics.Inc(metrics.FramesDropped)
		}
		return
	}
	o.finish(e, res)
}

func (o *Orchestrator) finish(e pipeline.Extracted, res pipeline.Result) {
	res = o.proc.Decode(e, res)
	o.metrics.Add(metrics.DecodeNanos, uint64(res.DecodeTime))
	o.metrics.Add(metrics.BytesDecoded, uint64(res.Bytes))
	if res.Perfect {
		o.metrics.Inc(metrics.FramesPerfect)
	}
	if res.Stage != pipeline.StageDecoded {
		return
	}
	o.metrics.Inc(metrics.FramesDecoded)

	// auto mode learns the chunk size with its first decoded frame
	if err := o.sink.Reconfigure(len(res.Symbol) - fountain.HeaderSize); err != nil {
		o.log.Errorf("mode %s: %v", res.Mode, err)
		return
	}
	o.sink.Submit(res.Symbol)
}

func (o *Orchestrator) NumThreads() int {
	return o.threads
}

// Backlog is the number of queued frames not yet picked up
func (o *Orchestrator) Backlog() int {
	n := 0
	if p := o.extract.Load(); p != nil {
		n += p.Backlog()
	}
	if p := o.decode.Load(); p != nil {
		n += p.Backlog()
	}
	return n
}

// Busy is the number of frames being processed right now
func (o *Orchestrator) Busy() int {
	n := 0
	if p := o.extract.Load(); p != nil {
		n += p.Busy()
	}
	if p := o.decode.Load(); p != nil {
		n += p.Busy()
	}
	return n
}

func (o *Orchestrator) FilesInFlight() int {
	return o.sink.NumStreams()
}

func (o *Orchestrator) FilesDecoded() int {
	return o.sink.NumDone()
}

// GetDone lists every completed file
func (o *Orchestrator) GetDone() []string {
	return o.sink.GetDone()
}

// PollDone returns the files completed since the previous call
func (o *Orchestrator) PollDone() []string {
	o.seenMu.Lock()
	defer o.seenMu.Unlock()
	done := o.sink.GetDone()
	res := done[o.seen:]
	o.seen = len(done)
	return res
}

func (o *Orchestrator) GetProgress() []float64 {
	return o.sink.GetProgress()
}

func (o *Orchestrator) Mode() pipeline.ModeResult {
	return o.proc.Mode()
}

func (o *Orchestrator) Metrics() metrics.Snapshot {
	if r, ok := o.metrics.(metrics.Reader); ok {
		return r.Snapshot()
	}
	return metrics.Snapshot{}
}

func (o *Orchestrator) Status() Status {
	done := o.GetDone()
	return Status{
		Threads:  o.NumThreads(),
		Backlog:  o.Backlog(),
		Busy:     o.Busy(),
		InFlight: o.FilesInFlight(),
		Decoded:  len(done),
		Done:     done,
		Progress: o.GetProgress(),
		Mode:     o.Mode(),
		Metrics:  o.Metrics(),
	}
}
