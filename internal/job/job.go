package job

import (
	"fmt"
	"image"
)

// job for the frame loader
type JobDec struct {
	File string
	Idx  int
}

// Frame is a captured frame handed to the decoder
type Frame struct {
	Image image.Image
	Seq   int
}

// job for the encoding worker
type JobEnc struct {
	Symbol   []byte
	FrameNum int
}

func New(fn int) JobEnc {
	return JobEnc{FrameNum: fn}
}

func (j *JobEnc) Print() string {
	return fmt.Sprintf("Job: FrameNum: %d, Symbol len: %d", j.FrameNum, len(j.Symbol))
}

func (j *JobEnc) Update(buf []byte, frameNum int) {
	// copy buffer to avoid overwriting of the same buffer
	cp := make([]byte, len(buf))
	_ = copy(cp, buf)
	j.Symbol = cp
	j.FrameNum = frameNum
}
