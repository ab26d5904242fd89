package pipeline

import (
	"image"
	"time"

	"github.com/pkg/errors"

	"github.com/1F47E/go-camreel/internal/config"
	"github.com/1F47E/go-camreel/internal/ecc"
	"github.com/1F47E/go-camreel/internal/fountain"
	"github.com/1F47E/go-camreel/internal/logger"
)

var log = logger.Scope("pipeline")

// Stage is how far a frame got through the pipeline
type Stage int

const (
	StageNoAnchors Stage = iota
	StageExtractFailed
	StageExtracted
	StageEccFailed
	StageDecoded
)

func (s Stage) String() string {
	switch s {
	case StageNoAnchors:
		return "no anchors"
	case StageExtractFailed:
		return "extract failed"
	case StageExtracted:
		return "extracted"
	case StageEccFailed:
		return "ecc failed"
	case StageDecoded:
		return "decoded"
	}
	return "unknown"
}

// Result of one frame. Symbol is set only at StageDecoded.
type Result struct {
	Stage   Stage
	Mode    string
	Anchors int
	Symbol  []byte
	Bytes   int // payload bytes in blocks that decoded
	Perfect bool

	ScanTime    time.Duration
	ExtractTime time.Duration
	DecodeTime  time.Duration
}

// Extracted is a rectified grid waiting for the decode stage
type Extracted struct {
	Image   *image.NRGBA
	Sharpen bool
}

// ModeResult tells whether a scheme is known yet, and which
type ModeResult struct {
	Detected bool
	Mode     string
}

// Processor turns camera frames into fountain symbols.
// Implementations are safe for concurrent use.
type Processor interface {
	Extract(img image.Image) (Extracted, Result)
	Decode(e Extracted, res Result) Result
	Mode() ModeResult
	// ChunkSize is the fountain shard size of the scheme, 0 while unknown
	ChunkSize() int
}

// Process runs both stages of a frame
func Process(p Processor, img image.Image) Result {
	e, res := p.Extract(img)
	if res.Stage != StageExtracted {
		return res
	}
	return p.Decode(e, res)
}

// New builds the processor for the configured mode
func New(cfg config.Config) (Processor, error) {
	if cfg.Mode == config.ModeAuto {
		return NewDetector(cfg)
	}
	return NewPipeline(cfg)
}

// Pipeline decodes frames of a single scheme
type Pipeline struct {
	mode         string
	strategy     Strategy
	classifier   Classifier
	codec        *ecc.Codec
	chunk        int
	perfectBytes int
}

func NewPipeline(cfg config.Config) (*Pipeline, error) {
	strategy, err := StrategyFor(cfg)
	if err != nil {
		return nil, err
	}
	codec, err := ecc.ForConfig(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "pipeline: mode %s", cfg.Mode)
	}
	chunk, err := ecc.ChunkSize(cfg, fountain.HeaderSize, fountain.ShardAlign)
	if err != nil {
		return nil, errors.Wrapf(err, "pipeline: mode %s", cfg.Mode)
	}
	return &Pipeline{
		mode:         cfg.Mode,
		strategy:     strategy,
		classifier:   strategy.Classifier(cfg),
		codec:        codec,
		chunk:        chunk,
		perfectBytes: cfg.Decoder.PerfectBytes,
	}, nil
}

func (p *Pipeline) Mode() ModeResult {
	return ModeResult{Detected: true, Mode: p.mode}
}

func (p *Pipeline) ChunkSize() int {
	return p.chunk
}

func (p *Pipeline) Extract(img image.Image) (Extracted, Result) {
	res := Result{Mode: p.mode}
	start := time.Now()
	anchors := p.strategy.Scanner.Scan(img)
	res.ScanTime = time.Since(start)
	res.Anchors = len(anchors)
	if len(anchors) < 4 {
		res.Stage = StageNoAnchors
		return Extracted{}, res
	}

	start = time.Now()
	grid, st, err := p.strategy.Extractor.Extract(img, anchors)
	res.ExtractTime = time.Since(start)
	if err != nil {
		log.Debugf("extract: %v", err)
		res.Stage = StageExtractFailed
		return Extracted{}, res
	}
	res.Stage = StageExtracted
	return Extracted{Image: grid, Sharpen: st.NeedsSharpen}, res
}

func (p *Pipeline) Decode(e Extracted, res Result) Result {
	start := time.Now()
	raw := p.classifier.Classify(e.Image, e.Sharpen)
	res = p.correct(raw, res)
	res.DecodeTime = time.Since(start)
	return res
}

// correct runs ecc over a raw frame
func (p *Pipeline) correct(raw []byte, res Result) Result {
	res.Mode = p.mode
	payload, good, err := p.codec.Decode(raw)
	res.Bytes = good
	if p.perfectBytes > 0 {
		res.Perfect = good >= p.perfectBytes
	} else {
		res.Perfect = err == nil
	}
	if err != nil {
		log.Debugf("%s: %v", p.mode, err)
		res.Stage = StageEccFailed
		return res
	}
	res.Stage = StageDecoded
	res.Symbol = payload[:fountain.HeaderSize+p.chunk]
	return res
}
