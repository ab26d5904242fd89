package pipeline

import (
	"image"
	"sync/atomic"
	"time"

	"github.com/1F47E/go-camreel/internal/config"
)

// Detector tries frames against several schemes and pins the first
// one whose ecc fully succeeds. The candidates share one grid geometry,
// so extraction runs once per frame.
type Detector struct {
	candidates []*Pipeline
	pinned     atomic.Pointer[Pipeline]
}

func NewDetector(cfg config.Config) (*Detector, error) {
	d := &Detector{}
	for _, mode := range config.Candidates() {
		c, err := config.ForMode(cfg, mode)
		if err != nil {
			return nil, err
		}
		p, err := NewPipeline(c)
		if err != nil {
			return nil, err
		}
		d.candidates = append(d.candidates, p)
	}
	return d, nil
}

func (d *Detector) Mode() ModeResult {
	if p := d.pinned.Load(); p != nil {
		return ModeResult{Detected: true, Mode: p.mode}
	}
	return ModeResult{Mode: config.ModeAuto}
}

func (d *Detector) ChunkSize() int {
	if p := d.pinned.Load(); p != nil {
		return p.chunk
	}
	return 0
}

func (d *Detector) Extract(img image.Image) (Extracted, Result) {
	if p := d.pinned.Load(); p != nil {
		return p.Extract(img)
	}
	e, res := d.candidates[0].Extract(img)
	res.Mode = config.ModeAuto
	return e, res
}

func (d *Detector) Decode(e Extracted, res Result) Result {
	if p := d.pinned.Load(); p != nil {
		return p.Decode(e, res)
	}

	start := time.Now()
	var last Result
	for _, p := range d.candidates {
		last = p.correct(p.classifier.Classify(e.Image, e.Sharpen), res)
		if last.Stage != StageDecoded {
			continue
		}
		if d.pinned.CompareAndSwap(nil, p) {
			log.Infof("detected mode %s", p.mode)
		} else if pinned := d.pinned.Load(); pinned != p {
			// another worker pinned a different scheme first
			last = pinned.Decode(e, res)
		}
		last.DecodeTime = time.Since(start)
		return last
	}
	last.Mode = config.ModeAuto
	last.DecodeTime = time.Since(start)
	return last
}
