package extractor

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/1F47E/go-camreel/internal/scanner"
)

// homography maps normalized grid coordinates to frame coordinates.
// Both sides are scaled to roughly unit range before solving.
type homography struct {
	h        [8]float64
	dstScale float64
	srcScale float64
}

func solveHomography(dst, src [4]scanner.Point, dstScale, srcScale float64) (*homography, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for k := 0; k < 4; k++ {
		x, y := dst[k].X/dstScale, dst[k].Y/dstScale
		u, v := src[k].X/srcScale, src[k].Y/srcScale
		a.SetRow(2*k, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		a.SetRow(2*k+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		b.SetVec(2*k, u)
		b.SetVec(2*k+1, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return nil, errors.Wrap(ErrDegenerate, err.Error())
	}
	res := &homography{dstScale: dstScale, srcScale: srcScale}
	for i := range res.h {
		res.h[i] = h.AtVec(i)
	}
	return res, nil
}

// apply maps a point of the normalized image into the frame
func (m *homography) apply(x, y float64) (float64, float64, bool) {
	x /= m.dstScale
	y /= m.dstScale
	h := m.h
	w := h[6]*x + h[7]*y + 1
	if w == 0 {
		return 0, 0, false
	}
	u := (h[0]*x + h[1]*y + h[2]) / w
	v := (h[3]*x + h[4]*y + h[5]) / w
	return u * m.srcScale, v * m.srcScale, true
}
