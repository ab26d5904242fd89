package cimb

import (
	"image"

	"github.com/1F47E/go-camreel/internal/config"
)

// Positions lists the top-left pixel of every data cell in raster order,
// skipping the corner regions reserved for anchors
func Positions(cfg config.Config) []image.Point {
	n, p := cfg.Grid.NumCells, cfg.Grid.CornerPadding
	res := make([]image.Point, 0, cfg.NumValidCells())
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			if (row < p || row >= n-p) && (col < p || col >= n-p) {
				continue
			}
			res = append(res, image.Point{
				X: cfg.Grid.Margin + col*cfg.Grid.CellSpacing,
				Y: cfg.Grid.Margin + row*cfg.Grid.CellSpacing,
			})
		}
	}
	return res
}
