package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/1F47E/go-camreel/internal/encoder"
	"github.com/1F47E/go-camreel/internal/job"
	"github.com/1F47E/go-camreel/internal/logger"
	"github.com/1F47E/go-camreel/internal/storage"
)

var log = logger.Scope("workers")

// Worker renders fountain symbols into frame files
type Worker struct {
	ctx     context.Context
	encoder *encoder.FrameEncoder
	dir     string
}

func NewWorker(ctx context.Context, enc *encoder.FrameEncoder, dir string) *Worker {
	return &Worker{
		ctx:     ctx,
		encoder: enc,
		dir:     dir,
	}
}

func (w *Worker) WorkerEncode(i int, jobs <-chan job.JobEnc) error {
	name := fmt.Sprintf("WorkerEncode #%d", i)
	log.Debugf("%s started", name)
	defer log.Debugf("%s finished", name)

	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		case j, ok := <-jobs:
			if !ok {
				return nil
			}
			log.Debugf("%s got job %s", name, j.Print())

			now := time.Now()
			img, err := w.encoder.EncodeFrame(j.Symbol)
			if err != nil {
				return errors.Wrapf(err, "%s frame %d", name, j.FrameNum)
			}
			log.Debugf("%s Frame done. Took time: %s", name, time.Since(now))

			now = time.Now()
			if err := storage.SaveFrame(w.dir, j.FrameNum, img); err != nil {
				return errors.Wrapf(err, "%s Error saving frame", name)
			}
			log.Debugf("%s Saving done. Took time: %s", name, time.Since(now))
		}
	}
}
