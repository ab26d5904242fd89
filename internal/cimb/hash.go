package cimb

import (
	"image"

	"github.com/1F47E/go-camreel/internal/scanner"
)

// CropSize is the cell crop: the tile plus a one pixel ring
const CropSize = TileSize + 2

// Plane is the grayscale copy of a rectified frame
type Plane struct {
	Pix           []uint8
	Width, Height int
}

func NewPlane(img *image.NRGBA) *Plane {
	pix, w, h := scanner.Luminance(img)
	return &Plane{Pix: pix, Width: w, Height: h}
}

func (p *Plane) At(x, y int) uint8 {
	return p.Pix[clamp(y, p.Height)*p.Width+clamp(x, p.Width)]
}

// Sharpen applies a 3x3 sharpen kernel
func (p *Plane) Sharpen() *Plane {
	out := &Plane{Pix: make([]uint8, len(p.Pix)), Width: p.Width, Height: p.Height}
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			v := 5*int(p.At(x, y)) - int(p.At(x-1, y)) - int(p.At(x+1, y)) - int(p.At(x, y-1)) - int(p.At(x, y+1))
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			out.Pix[y*p.Width+x] = uint8(v)
		}
	}
	return out
}

// Cell is a CropSize x CropSize window of a rectified frame.
// X, Y is the top-left of the window, one pixel outside the tile.
type Cell struct {
	Gray  *Plane
	Color *image.NRGBA
	X, Y  int
}

// FuzzyHash computes the average hash of the 9 tile-sized windows of the crop.
// Candidate d is offset by (d%3-1, d/3-1) from the centered window.
func FuzzyHash(c Cell, dark bool) [9]uint64 {
	var px [CropSize * CropSize]int
	sum := 0
	for y := 0; y < CropSize; y++ {
		for x := 0; x < CropSize; x++ {
			v := int(c.Gray.At(c.X+x, c.Y+y))
			px[y*CropSize+x] = v
			sum += v
		}
	}

	// bit set where inked: brighter than the mean on a dark background
	var ink [CropSize * CropSize]bool
	for i, v := range px {
		if dark {
			ink[i] = v*len(px) > sum
		} else {
			ink[i] = v*len(px) < sum
		}
	}

	var res [9]uint64
	for d := 0; d < 9; d++ {
		ox, oy := d%3, d/3
		var h uint64
		for y := 0; y < TileSize; y++ {
			for x := 0; x < TileSize; x++ {
				if ink[(oy+y)*CropSize+ox+x] {
					h |= 1 << uint(y*TileSize+x)
				}
			}
		}
		res[d] = h
	}
	return res
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
