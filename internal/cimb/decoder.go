package cimb

import (
	"math/bits"

	"github.com/1F47E/go-camreel/internal/config"
)

type DecoderOptions struct {
	HashThreshold  int  // stop searching below this many differing bits
	ColorThreshold int  // stop searching below this squared distance
	MaxDrift       int  // bound of the accumulated drift
	Exhaustive     bool // disable both early exits
}

// Decoder classifies cells into symbol and color bits.
// It is read-only after construction and safe for concurrent use.
type Decoder struct {
	symbolBits int
	colorBits  int
	dark       bool
	tiles      *Tiles
	palette    Palette
	opts       DecoderOptions
}

func NewDecoder(symbolBits, colorBits int, palette Palette, dark bool, opts DecoderOptions) *Decoder {
	return &Decoder{
		symbolBits: symbolBits,
		colorBits:  colorBits,
		dark:       dark,
		tiles:      NewTiles(symbolBits),
		palette:    palette,
		opts:       opts,
	}
}

func NewDecoderFromConfig(cfg config.Config) *Decoder {
	return NewDecoder(cfg.Codec.SymbolBits, cfg.Codec.ColorBits, PaletteByName(cfg.Codec.Palette), cfg.Grid.Dark, DecoderOptions{
		HashThreshold:  cfg.Classifier.HashThreshold,
		ColorThreshold: cfg.Classifier.ColorThreshold,
		MaxDrift:       cfg.Classifier.MaxDrift,
		Exhaustive:     cfg.Classifier.Exhaustive,
	})
}

func (d *Decoder) BitsPerCell() int {
	return d.symbolBits + d.colorBits
}

// Decode classifies one cell and returns its bits with the drift for the next cell
func (d *Decoder) Decode(c Cell, drift Drift) (uint32, Drift) {
	symbol, offset, _ := d.DecodeSymbol(FuzzyHash(c, d.dark))
	color := d.DecodeColor(c, offset)
	return symbol | color<<uint(d.symbolBits), drift.Update(offset, d.opts.MaxDrift)
}

// DecodeSymbol finds the closest tile over the 9 candidate windows.
// It returns the symbol, the winning candidate index and its distance.
func (d *Decoder) DecodeSymbol(hashes [9]uint64) (uint32, int, int) {
	best := 1000
	var symbol uint32
	offset := CenterOffset
	for _, o := range driftOrder {
		h := hashes[o]
		for s, t := range d.tiles.tiles {
			dist := bits.OnesCount64(h ^ uint64(t))
			if dist < best {
				best = dist
				symbol = uint32(s)
				offset = o
				if !d.opts.Exhaustive && best < d.opts.HashThreshold {
					return symbol, offset, best
				}
			}
		}
	}
	return symbol, offset, best
}

// DecodeColor matches the mean color of the cell interior against the palette.
// The interior skips a 2px border of the crop and follows the resolved offset.
func (d *Decoder) DecodeColor(c Cell, offset int) uint32 {
	if d.colorBits == 0 {
		return 0
	}
	dx, dy := Offset(offset)
	x0, y0 := c.X+2+dx, c.Y+2+dy
	const side = CropSize - 4

	img := c.Color
	w, h := img.Rect.Dx(), img.Rect.Dy()
	var r, g, b int
	for y := y0; y < y0+side; y++ {
		for x := x0; x < x0+side; x++ {
			i := clamp(y, h)*img.Stride + clamp(x, w)*4
			pr, pg, pb := int(img.Pix[i]), int(img.Pix[i+1]), int(img.Pix[i+2])
			if !d.dark {
				pr, pg, pb = 255-pr, 255-pg, 255-pb
			}
			r += pr
			g += pg
			b += pb
		}
	}
	return d.bestColor(float64(r)/(side*side), float64(g)/(side*side), float64(b)/(side*side))
}

// bestColor scales the brightest channel to 255 before the nearest match
func (d *Decoder) bestColor(r, g, b float64) uint32 {
	peak := r
	if g > peak {
		peak = g
	}
	if b > peak {
		peak = b
	}
	if peak < 1 {
		peak = 1
	}
	adjust := 255 / peak
	r, g, b = r*adjust, g*adjust, b*adjust

	best := -1.0
	var index uint32
	n := 1 << uint(d.colorBits)
	for i := 0; i < n; i++ {
		p := d.palette[i]
		dr, dg, db := r-float64(p.R), g-float64(p.G), b-float64(p.B)
		dist := dr*dr + dg*dg + db*db
		if best < 0 || dist < best {
			best = dist
			index = uint32(i)
			if !d.opts.Exhaustive && best < float64(d.opts.ColorThreshold) {
				break
			}
		}
	}
	return index
}
