package cimb

import (
	"image"
)

// Reader walks the cells of one rectified frame in scan order,
// carrying drift from each cell to the next
type Reader struct {
	decoder   *Decoder
	gray      *Plane
	img       *image.NRGBA
	positions []image.Point
	idx       int
	drift     Drift
}

func NewReader(img *image.NRGBA, decoder *Decoder, positions []image.Point, sharpen bool) *Reader {
	gray := NewPlane(img)
	if sharpen {
		gray = gray.Sharpen()
	}
	return &Reader{
		decoder:   decoder,
		gray:      gray,
		img:       img,
		positions: positions,
	}
}

func (r *Reader) Done() bool {
	return r.idx >= len(r.positions)
}

// Read decodes the next cell and returns its scan index and bits
func (r *Reader) Read() (int, uint32) {
	p := r.positions[r.idx]
	cell := Cell{
		Gray:  r.gray,
		Color: r.img,
		X:     p.X - 1 + r.drift.X,
		Y:     p.Y - 1 + r.drift.Y,
	}
	bits, drift := r.decoder.Decode(cell, r.drift)
	r.drift = drift
	idx := r.idx
	r.idx++
	return idx, bits
}

// ReadAll decodes the remaining cells into a frame buffer of frameBytes,
// placing every cell at its logical position from lookup
func (r *Reader) ReadAll(lookup []int, frameBytes int) []byte {
	buf := make([]byte, frameBytes)
	bpc := r.decoder.BitsPerCell()
	for !r.Done() {
		i, bits := r.Read()
		PutBits(buf, lookup[i]*bpc, bpc, bits)
	}
	return buf
}
