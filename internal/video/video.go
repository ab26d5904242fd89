package video

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/1F47E/go-camreel/internal/logger"
)

const framePattern = "out_%08d.png"

// call ffmpeg to decode the video into frames
func ExtractFrames(ctx context.Context, filename, dir string) error {
	args := []string{"-y", "-i", filename, filepath.Join(dir, framePattern)}
	return run(ctx, args)
}

// call ffmpeg to encode frames into video. Frames are kept lossless,
// a lossy codec would smear the tiles.
func EncodeFrames(ctx context.Context, dir, out string, fps int) error {
	if fps <= 0 {
		fps = 10
	}
	args := []string{
		"-y",
		"-framerate", fmt.Sprint(fps),
		"-i", filepath.Join(dir, framePattern),
		"-c:v", "prores", "-profile:v", "3", "-pix_fmt", "yuv422p10",
		out,
	}
	return run(ctx, args)
}

func run(ctx context.Context, args []string) error {
	logger.Log.Debugf("Running ffmpeg command: ffmpeg %v", args)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "ffmpeg: %s", tail(out, 512))
	}
	return nil
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}
