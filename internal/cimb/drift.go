package cimb

// CenterOffset is the candidate index of the undrifted window
const CenterOffset = 4

// driftOrder visits the center, then edges, then corners
var driftOrder = [9]int{4, 5, 7, 3, 1, 8, 0, 2, 6}

// Offset returns the pixel shift of a candidate index
func Offset(d int) (int, int) {
	return d%3 - 1, d/3 - 1
}

// Drift is the accumulated misalignment carried from cell to cell
type Drift struct {
	X, Y int
}

// Update moves the drift by a candidate offset, refusing to pass limit
func (d Drift) Update(offset, limit int) Drift {
	dx, dy := Offset(offset)
	if x := d.X + dx; x >= -limit && x <= limit {
		d.X = x
	}
	if y := d.Y + dy; y >= -limit && y <= limit {
		d.Y = y
	}
	return d
}
