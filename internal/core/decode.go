package core

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	p "github.com/1F47E/go-camreel/internal/core/progress"
	"github.com/1F47E/go-camreel/internal/job"
	"github.com/1F47E/go-camreel/internal/logger"
	"github.com/1F47E/go-camreel/internal/meta"
	"github.com/1F47E/go-camreel/internal/orchestrator"
	"github.com/1F47E/go-camreel/internal/sink"
	"github.com/1F47E/go-camreel/internal/storage"
	"github.com/1F47E/go-camreel/internal/video"
)

var ErrNothingDecoded = errors.New("no file could be decoded")

// 1. extract frames from video, or take a dir of frames as is
// 2. load frames in parallel and feed them to the orchestrator
// 3. stop the orchestrator and report the files the sink completed
func (c *Core) Decode(input string) ([]string, error) {
	log := logger.Scope("core decode")

	dir, cleanup, err := c.frames(input)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	p.ProgressSpinner("Scanning frames...")
	filesList, err := storage.ScanFrames(dir)
	if err != nil {
		return nil, err
	}
	log.Debugf("total frames: %d", len(filesList))

	out := sink.New(c.opts.OutDir, 0,
		sink.WithMetrics(c.metrics),
		sink.WithOnDone(func(path string, m meta.Metadata) {
			log.Infof("%s saved to %s", m.Print(), path)
		}),
	)
	o, err := orchestrator.New(c.cfg, c.opts.OutDir,
		orchestrator.WithMetrics(c.metrics),
		orchestrator.WithSink(out),
	)
	if err != nil {
		return nil, err
	}
	if err := o.Start(); err != nil {
		return nil, err
	}

	p.ProgressReset(len(filesList), "Decoding... ")
	g, ctx := errgroup.WithContext(c.ctx)
	g.SetLimit(o.NumThreads())
	for i, file := range filesList {
		j := job.JobDec{File: file, Idx: i}
		g.Go(func() error {
			img, err := storage.FrameRead(j.File)
			if err != nil {
				log.Warnf("skipping %s: %v", j.File, err)
				p.Add(1)
				return nil
			}
			// frames from disk are not renewable, wait for room instead of dropping
			f := job.Frame{Image: img, Seq: j.Idx}
			for !o.Submit(f) {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Millisecond):
				}
			}
			p.Add(1)
			p.Streams("Decoding... ", o.FilesDecoded(), o.GetProgress())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = o.Abort()
		p.Finish()
		return nil, err
	}
	if err := o.Stop(); err != nil {
		return nil, err
	}
	p.Finish()

	st := o.Status()
	m := st.Metrics
	log.Debugf("frames: %d submitted, %d anchored, %d decoded, %d perfect; scan %s extract %s decode %s",
		m.Submitted, m.Anchored, m.Decoded, m.Perfect, m.ScanTime, m.ExtractTime, m.DecodeTime)
	log.Infof("mode %s, %d files decoded, %d incomplete", st.Mode.Mode, st.Decoded, st.InFlight)
	if st.Decoded == 0 {
		return nil, errors.Wrapf(ErrNothingDecoded, "%d of %d frames passed error correction", m.Decoded, len(filesList))
	}
	return st.Done, nil
}

// frames returns the dir holding the frames of input, extracting a video first
func (c *Core) frames(input string) (string, func(), error) {
	fi, err := os.Stat(input)
	if err != nil {
		return "", nil, errors.Wrap(err, "Error opening input")
	}
	if fi.IsDir() {
		return input, func() {}, nil
	}

	dir, err := storage.CreateFramesDir(c.opts.FramesDir)
	if err != nil {
		return "", nil, errors.Wrap(err, "Error creating frames dir")
	}
	p.ProgressSpinner("Extracting frames...")
	if err := video.ExtractFrames(c.ctx, input, dir); err != nil {
		return "", nil, errors.Wrap(err, "Error extracting frames")
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}
