package extractor

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/1F47E/go-camreel/internal/config"
	"github.com/1F47E/go-camreel/internal/scanner"
)

type Status struct {
	// NeedsSharpen is set when the grid was captured smaller than its
	// normalized size and the classifier should pre-filter the cells
	NeedsSharpen bool
}

// Deskewer rectifies the quadrilateral between 4 anchors into the
// normalized grid image
type Deskewer struct {
	size   int
	target [4]scanner.Point // anchor centers in the normalized image, clockwise from TL
}

func NewDeskewer(cfg config.Config) *Deskewer {
	size := cfg.ImageSize()
	near := float64(cfg.Grid.Margin) + float64(cfg.AnchorSize())/2
	far := float64(size) - near
	return &Deskewer{
		size: size,
		target: [4]scanner.Point{
			{X: near, Y: near},
			{X: far, Y: near},
			{X: far, Y: far},
			{X: near, Y: far},
		},
	}
}

func (d *Deskewer) Size() int {
	return d.size
}

// Target returns the normalized anchor centers
func (d *Deskewer) Target() Corners {
	return Corners{
		TopLeft:     d.target[0],
		TopRight:    d.target[1],
		BottomRight: d.target[2],
		BottomLeft:  d.target[3],
	}
}

// Deskew resamples the frame into a size x size image
func (d *Deskewer) Deskew(img image.Image, c Corners) (*image.NRGBA, Status, error) {
	var st Status
	area := c.Area()
	if !c.Convex() || area < 1 {
		return nil, st, ErrDegenerate
	}

	bounds := img.Bounds()
	src := toNRGBA(img)
	srcScale := math.Max(float64(bounds.Dx()), float64(bounds.Dy()))
	h, err := solveHomography(d.target, c.points(), float64(d.size), srcScale)
	if err != nil {
		return nil, st, err
	}

	nominal := d.Target().Area()
	st.NeedsSharpen = area < nominal || bounds.Dx() < d.size || bounds.Dy() < d.size

	out := image.NewNRGBA(image.Rect(0, 0, d.size, d.size))
	for y := 0; y < d.size; y++ {
		for x := 0; x < d.size; x++ {
			u, v, ok := h.apply(float64(x)+0.5, float64(y)+0.5)
			i := out.PixOffset(x, y)
			if !ok {
				out.Pix[i+3] = 255
				continue
			}
			sampleBilinear(src, u-0.5-float64(bounds.Min.X), v-0.5-float64(bounds.Min.Y), out.Pix[i:i+4])
		}
	}
	return out, st, nil
}

// sampleBilinear reads src at a fractional position relative to its origin,
// clamping to the border
func sampleBilinear(src *image.NRGBA, fx, fy float64, dst []uint8) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	ax := fx - float64(x0)
	ay := fy - float64(y0)

	x1, y1 := clamp(x0+1, w), clamp(y0+1, h)
	x0, y0 = clamp(x0, w), clamp(y0, h)

	p00 := src.Pix[y0*src.Stride+x0*4:]
	p10 := src.Pix[y0*src.Stride+x1*4:]
	p01 := src.Pix[y1*src.Stride+x0*4:]
	p11 := src.Pix[y1*src.Stride+x1*4:]
	for ch := 0; ch < 3; ch++ {
		top := (1-ax)*float64(p00[ch]) + ax*float64(p10[ch])
		bottom := (1-ax)*float64(p01[ch]) + ax*float64(p11[ch])
		v := (1-ay)*top + ay*bottom
		dst[ch] = uint8(math.Min(255, v+0.5))
	}
	dst[3] = 255
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

// toNRGBA returns img itself when it is already a zero-origin NRGBA
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}

// Clone copies a frame into an owned NRGBA buffer
func Clone(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}
