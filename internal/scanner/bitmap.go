package scanner

import (
	"image"
	"image/color"

	"github.com/makiuchi-d/gozxing"
	"github.com/pkg/errors"
)

// Luminance converts any image into an 8 bit gray plane
func Luminance(img image.Image) ([]uint8, int, int) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	gray := make([]uint8, w*h)

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[(y+bounds.Min.Y-src.Rect.Min.Y)*src.Stride:]
			for x := 0; x < w; x++ {
				i := (x + bounds.Min.X - src.Rect.Min.X) * 4
				gray[y*w+x] = gray8(row[i], row[i+1], row[i+2])
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			copy(gray[y*w:(y+1)*w], src.Pix[(y+bounds.Min.Y-src.Rect.Min.Y)*src.Stride+bounds.Min.X-src.Rect.Min.X:])
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
				gray[y*w+x] = gray8(c.R, c.G, c.B)
			}
		}
	}
	return gray, w, h
}

// gray8 uses the same weights as color.GrayModel
func gray8(r, g, b uint8) uint8 {
	y := (19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16
	return uint8(y)
}

// binarizeGray thresholds a gray plane with the hybrid (local block)
// binarizer. Frames with bright ink on a dark background are inverted
// first, so anchors always come out black.
func binarizeGray(gray []uint8, w, h int, invert bool) (*gozxing.BitMatrix, error) {
	plane := &image.Gray{Pix: make([]uint8, len(gray)), Stride: w, Rect: image.Rect(0, 0, w, h)}
	for i, v := range gray {
		if invert {
			v = 255 - v
		}
		plane.Pix[i] = v
	}
	src := gozxing.NewLuminanceSourceFromImage(plane)
	bmp, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(src))
	if err != nil {
		return nil, errors.Wrap(err, "scanner: binarize")
	}
	matrix, err := bmp.GetBlackMatrix()
	if err != nil {
		return nil, errors.Wrap(err, "scanner: binarize")
	}
	return matrix, nil
}

// darkPaper reports whether most of the frame is dark
func darkPaper(gray []uint8) bool {
	dark := 0
	for _, v := range gray {
		if v < 128 {
			dark++
		}
	}
	return dark*2 > len(gray)
}
