package scanner

import (
	"image"
	"math"
	"sort"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode/detector"
	"github.com/nfnt/resize"

	"github.com/1F47E/go-camreel/internal/logger"
)

var log = logger.Scope("scanner")

type Point struct {
	X, Y float64
}

// Anchor is a detected finder marker. Center uses continuous pixel
// coordinates: the center of pixel (i, j) is (i+0.5, j+0.5).
type Anchor struct {
	Center Point
	Module float64 // estimated ring width in pixels
	Count  int     // rows that confirmed this anchor
}

func (a Anchor) Box() image.Rectangle {
	r := a.Module * 3.5
	return image.Rect(
		int(a.Center.X-r), int(a.Center.Y-r),
		int(math.Ceil(a.Center.X+r)), int(math.Ceil(a.Center.Y+r)),
	)
}

func (a Anchor) aboutEquals(module, x, y float64) bool {
	if math.Abs(y-a.Center.Y) > a.Module || math.Abs(x-a.Center.X) > a.Module {
		return false
	}
	diff := math.Abs(module - a.Module)
	return diff <= 1 || diff <= a.Module
}

type Scanner struct {
	// MaxDimension downscales larger frames before thresholding. 0 disables it.
	MaxDimension int
	// MinCount is the number of confirming rows an anchor needs
	MinCount int
}

func New(maxDimension int) *Scanner {
	return &Scanner{MaxDimension: maxDimension, MinCount: 2}
}

// Scan finds up to 4 anchors in a frame. Fewer than 4 is a normal result.
func (s *Scanner) Scan(img image.Image) []Anchor {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	fx, fy := 1.0, 1.0
	if s.MaxDimension > 0 && (w > s.MaxDimension || h > s.MaxDimension) {
		if w >= h {
			img = resize.Resize(uint(s.MaxDimension), 0, img, resize.Bilinear)
		} else {
			img = resize.Resize(0, uint(s.MaxDimension), img, resize.Bilinear)
		}
		sb := img.Bounds()
		fx = float64(w) / float64(sb.Dx())
		fy = float64(h) / float64(sb.Dy())
		log.Debugf("downscaled %dx%d to %dx%d", w, h, sb.Dx(), sb.Dy())
	}

	gray, gw, gh := Luminance(img)
	dark := darkPaper(gray)
	anchors := s.scanGray(gray, gw, gh, dark)
	if len(anchors) == 0 {
		anchors = s.scanGray(gray, gw, gh, !dark)
	}
	for i := range anchors {
		anchors[i].Center.X = anchors[i].Center.X*fx + float64(bounds.Min.X)
		anchors[i].Center.Y = anchors[i].Center.Y*fy + float64(bounds.Min.Y)
		anchors[i].Module *= fx
	}
	return anchors
}

func (s *Scanner) scanGray(gray []uint8, w, h int, invert bool) []Anchor {
	matrix, err := binarizeGray(gray, w, h, invert)
	if err != nil {
		log.Debugf("%v", err)
		return nil
	}
	return s.scanMatrix(matrix)
}

// scanMatrix runs the finder pattern search over a binarized frame.
// The search stops early once it holds three confirmed patterns, so every
// pass erases what it confirmed and the next pass looks for the rest.
// The matrix is modified.
func (s *Scanner) scanMatrix(matrix *gozxing.BitMatrix) []Anchor {
	var candidates []Anchor
	for pass := 0; pass < maxPasses; pass++ {
		finder := detector.NewFinderPatternFinder(matrix, nil)
		// fewer than 3 patterns is an error for a QR code, not for us
		_, _ = finder.Find(hints)

		found := 0
		for _, p := range finder.GetPossibleCenters() {
			if p.GetCount() < s.MinCount {
				continue
			}
			a := Anchor{
				Center: Point{p.GetX(), p.GetY()},
				Module: p.GetEstimatedModuleSize(),
				Count:  p.GetCount(),
			}
			erase(matrix, a.Box())
			candidates = merge(candidates, a)
			found++
		}
		if found == 0 || len(s.selectBest(candidates)) == 4 {
			break
		}
	}
	return s.selectBest(candidates)
}

const maxPasses = 4

var hints = map[gozxing.DecodeHintType]interface{}{
	gozxing.DecodeHintType_TRY_HARDER: true,
}

func merge(candidates []Anchor, a Anchor) []Anchor {
	for i, c := range candidates {
		if c.aboutEquals(a.Module, a.Center.X, a.Center.Y) {
			if a.Count > c.Count {
				candidates[i] = a
			}
			return candidates
		}
	}
	return append(candidates, a)
}

// erase clears a confirmed anchor, with a pixel of slack around it
func erase(matrix *gozxing.BitMatrix, box image.Rectangle) {
	box = box.Inset(-1).Intersect(image.Rect(0, 0, matrix.GetWidth(), matrix.GetHeight()))
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			matrix.Unset(x, y)
		}
	}
}

// selectBest keeps the 4 strongest candidates of a consistent size.
// Strength is confirmations times module size: a real anchor is crossed
// by more scan rows the larger it is.
func (s *Scanner) selectBest(candidates []Anchor) []Anchor {
	sorted := make([]Anchor, 0, len(candidates))
	for _, c := range candidates {
		if c.Count >= s.MinCount {
			sorted = append(sorted, c)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].strength() > sorted[j].strength()
	})

	best := sorted[0].Module
	res := make([]Anchor, 0, 4)
	for _, c := range sorted {
		if c.Module < best/1.5 || c.Module > best*1.5 {
			continue
		}
		res = append(res, c)
		if len(res) == 4 {
			break
		}
	}
	return res
}

func (a Anchor) strength() float64 {
	return float64(a.Count) * a.Module
}
