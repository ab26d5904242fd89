package extractor

import (
	"math"

	"github.com/pkg/errors"

	"github.com/1F47E/go-camreel/internal/scanner"
)

var (
	ErrNoCorners  = errors.New("extractor: need 4 anchors in distinct corners")
	ErrDegenerate = errors.New("extractor: degenerate quadrilateral")
	ErrRotated    = errors.New("extractor: grid rotated too far")
)

// labels by position turn ambiguous towards 45 degrees
const maxRotation = 40.0

// Corners are the anchor centers of a grid in a camera frame
type Corners struct {
	TopLeft     scanner.Point
	TopRight    scanner.Point
	BottomLeft  scanner.Point
	BottomRight scanner.Point
}

// NewCorners labels 4 anchors by their relative position.
// Grids whose top edge leans maxRotation degrees or more are rejected.
func NewCorners(anchors []scanner.Anchor) (Corners, error) {
	if len(anchors) < 4 {
		return Corners{}, ErrNoCorners
	}
	anchors = anchors[:4]

	tl, tr, bl, br := 0, 0, 0, 0
	for i, a := range anchors {
		p := a.Center
		if p.X+p.Y < anchors[tl].Center.X+anchors[tl].Center.Y {
			tl = i
		}
		if p.X+p.Y > anchors[br].Center.X+anchors[br].Center.Y {
			br = i
		}
		if p.X-p.Y > anchors[tr].Center.X-anchors[tr].Center.Y {
			tr = i
		}
		if p.X-p.Y < anchors[bl].Center.X-anchors[bl].Center.Y {
			bl = i
		}
	}

	seen := map[int]bool{tl: true, tr: true, bl: true, br: true}
	if len(seen) != 4 {
		return Corners{}, ErrNoCorners
	}
	c := Corners{
		TopLeft:     anchors[tl].Center,
		TopRight:    anchors[tr].Center,
		BottomLeft:  anchors[bl].Center,
		BottomRight: anchors[br].Center,
	}
	if math.Abs(c.Rotation()) >= maxRotation {
		return Corners{}, ErrRotated
	}
	return c, nil
}

// Rotation is the angle of the top edge in degrees
func (c Corners) Rotation() float64 {
	dx := c.TopRight.X - c.TopLeft.X
	dy := c.TopRight.Y - c.TopLeft.Y
	return math.Atan2(dy, dx) * 180 / math.Pi
}

// clockwise order: TL, TR, BR, BL
func (c Corners) points() [4]scanner.Point {
	return [4]scanner.Point{c.TopLeft, c.TopRight, c.BottomRight, c.BottomLeft}
}

// Area of the quadrilateral, shoelace formula
func (c Corners) Area() float64 {
	p := c.points()
	var s float64
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		s += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	if s < 0 {
		s = -s
	}
	return s / 2
}

// Convex reports whether all turns go the same way
func (c Corners) Convex() bool {
	p := c.points()
	sign := 0
	for i := 0; i < 4; i++ {
		a, b, d := p[i], p[(i+1)%4], p[(i+2)%4]
		cross := (b.X-a.X)*(d.Y-b.Y) - (b.Y-a.Y)*(d.X-b.X)
		switch {
		case cross > 0:
			if sign < 0 {
				return false
			}
			sign = 1
		case cross < 0:
			if sign > 0 {
				return false
			}
			sign = -1
		default:
			return false
		}
	}
	return true
}
