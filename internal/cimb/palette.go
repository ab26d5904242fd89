package cimb

import (
	"image/color"

	"github.com/1F47E/go-camreel/internal/config"
)

// Palette maps color index to the canonical ink color on a dark background.
// Light frames use the inverted colors.
type Palette [8]color.NRGBA

var (
	paletteCurrent = Palette{
		{0, 255, 255, 255},
		{255, 255, 0, 255},
		{255, 0, 255, 255},
		{0, 255, 0, 255},
		{255, 127, 0, 255},
		{0, 127, 255, 255},
		{255, 0, 0, 255},
		{255, 255, 255, 255},
	}
	paletteLegacy = Palette{
		{0, 255, 255, 255},
		{255, 0, 255, 255},
		{255, 255, 0, 255},
		{0, 255, 0, 255},
		{0, 127, 255, 255},
		{255, 0, 0, 255},
		{255, 127, 0, 255},
		{255, 255, 255, 255},
	}
	white = color.NRGBA{255, 255, 255, 255}
)

func PaletteByName(name string) Palette {
	if name == config.PaletteLegacy {
		return paletteLegacy
	}
	return paletteCurrent
}

// Ink returns the color a cell is rendered with
func (p Palette) Ink(index uint32, colorBits int, dark bool) color.NRGBA {
	c := white
	if colorBits > 0 {
		c = p[index]
	}
	if !dark {
		c = color.NRGBA{255 - c.R, 255 - c.G, 255 - c.B, 255}
	}
	return c
}

func Background(dark bool) color.NRGBA {
	if dark {
		return color.NRGBA{0, 0, 0, 255}
	}
	return white
}
