package core

import (
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	p "github.com/1F47E/go-camreel/internal/core/progress"
	"github.com/1F47E/go-camreel/internal/encoder"
	"github.com/1F47E/go-camreel/internal/fountain"
	"github.com/1F47E/go-camreel/internal/job"
	"github.com/1F47E/go-camreel/internal/logger"
	"github.com/1F47E/go-camreel/internal/meta"
	"github.com/1F47E/go-camreel/internal/storage"
	"github.com/1F47E/go-camreel/internal/video"
	"github.com/1F47E/go-camreel/internal/workers"
)

// Encode renders a file into frames, and into a video when one is set.
// It returns the video path or the frames dir.
func (c *Core) Encode(path string) (string, error) {
	log := logger.Scope("core encode")

	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "Error opening file")
	}
	payload, md, err := meta.Pack(path, content)
	if err != nil {
		return "", err
	}
	log.Debugf("%s packed into %d bytes", md.Print(), len(payload))

	enc, err := encoder.NewFrameEncoder(c.cfg)
	if err != nil {
		return "", err
	}
	fe, err := fountain.NewEncoder(uuid.New().ID(), payload, enc.ChunkSize(), c.opts.Redundancy)
	if err != nil {
		return "", err
	}
	log.Debugf("stream %08x: %d symbols, %d needed", fe.StreamID(), fe.Count(), fe.DataShards())

	dir, err := storage.CreateFramesDir(c.opts.FramesDir)
	if err != nil {
		return "", err
	}

	// ===== START WORKERS
	p.ProgressReset(fe.Count(), "Encoding... ")
	g, ctx := errgroup.WithContext(c.ctx)
	jobs := make(chan job.JobEnc)
	worker := workers.NewWorker(ctx, enc, dir)
	for i := 0; i < c.cfg.NumWorkers(); i++ {
		i := i
		g.Go(func() error {
			return worker.WorkerEncode(i+1, jobs)
		})
	}

	g.Go(func() error {
		defer close(jobs)
		// frames are numbered from 1 for ffmpeg
		j := job.New(1)
		for i := 0; i < fe.Count(); i++ {
			j.Update(fe.Symbol(i), i+1)
			select {
			case jobs <- j:
				p.Add(1)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", err
	}
	p.Finish()
	log.Debug("All workers done")

	if c.opts.Video == "" {
		return dir, nil
	}

	// ====== VIDEO ENCODING
	p.ProgressSpinner("Saving video... ")
	err = video.EncodeFrames(c.ctx, dir, c.opts.Video, c.opts.FPS)
	p.Finish()
	if err != nil {
		return "", errors.Wrap(err, "Error encoding frames into video")
	}
	if err := os.RemoveAll(dir); err != nil {
		log.Warnf("Error removing %s: %v", dir, err)
	}
	log.Debug("Video encoded")
	return c.opts.Video, nil
}
