package encoder

import (
	"image"
	"image/color"

	"github.com/pkg/errors"

	"github.com/1F47E/go-camreel/internal/cimb"
	"github.com/1F47E/go-camreel/internal/config"
	"github.com/1F47E/go-camreel/internal/ecc"
	"github.com/1F47E/go-camreel/internal/fountain"
)

// FrameEncoder renders fountain symbols into grid frames.
// It is read-only after construction and safe for concurrent use.
type FrameEncoder struct {
	cfg       config.Config
	size      int
	codec     *ecc.Codec
	chunk     int
	tiles     *cimb.Tiles
	palette   cimb.Palette
	positions []image.Point
	order     []int
	ink       color.NRGBA // anchor ink
	paper     color.NRGBA
}

func NewFrameEncoder(cfg config.Config) (*FrameEncoder, error) {
	if cfg.Mode == config.ModeAuto {
		return nil, errors.New("encoder: auto mode cannot encode, pick a scheme")
	}
	codec, err := ecc.ForConfig(cfg)
	if err != nil {
		return nil, err
	}
	chunk, err := ecc.ChunkSize(cfg, fountain.HeaderSize, fountain.ShardAlign)
	if err != nil {
		return nil, err
	}
	positions := cimb.Positions(cfg)
	paper := cimb.Background(cfg.Grid.Dark)
	return &FrameEncoder{
		cfg:       cfg,
		size:      cfg.ImageSize(),
		codec:     codec,
		chunk:     chunk,
		tiles:     cimb.NewTiles(cfg.Codec.SymbolBits),
		palette:   cimb.PaletteByName(cfg.Codec.Palette),
		positions: positions,
		order:     cimb.Interleave(len(positions), cfg.InterleaveBlockCount(), cfg.Codec.InterleavePartitions),
		ink:       color.NRGBA{255 - paper.R, 255 - paper.G, 255 - paper.B, 255},
		paper:     paper,
	}, nil
}

// Capacity is the largest symbol a frame carries
func (f *FrameEncoder) Capacity() int {
	return f.codec.DataSize()
}

// ChunkSize is the fountain shard size matching this frame layout
func (f *FrameEncoder) ChunkSize() int {
	return f.chunk
}

func (f *FrameEncoder) Size() int {
	return f.size
}

// EncodeFrame protects a symbol with ecc and draws it with the anchors
func (f *FrameEncoder) EncodeFrame(symbol []byte) (*image.NRGBA, error) {
	if len(symbol) > f.codec.DataSize() {
		return nil, errors.Errorf("encoder: symbol is %d bytes, frame carries %d", len(symbol), f.codec.DataSize())
	}
	frame := f.codec.Encode(symbol)

	img := image.NewNRGBA(image.Rect(0, 0, f.size, f.size))
	fill(img, img.Rect, f.paper)
	f.drawAnchors(img)

	bpc := f.cfg.BitsPerCell()
	symbolMask := uint32(1)<<uint(f.cfg.Codec.SymbolBits) - 1
	for logical, physical := range f.order {
		bits := cimb.GetBits(frame, logical*bpc, bpc)
		tile := f.tiles.Tile(bits & symbolMask)
		ink := f.palette.Ink(bits>>uint(f.cfg.Codec.SymbolBits), f.cfg.Codec.ColorBits, f.cfg.Grid.Dark)
		p := f.positions[physical]
		for y := 0; y < cimb.TileSize; y++ {
			for x := 0; x < cimb.TileSize; x++ {
				if tile.Ink(x, y) {
					img.SetNRGBA(p.X+x, p.Y+y, ink)
				}
			}
		}
	}
	return img, nil
}

// drawAnchors paints a 1:1:3:1:1 finder in every corner of the grid
func (f *FrameEncoder) drawAnchors(img *image.NRGBA) {
	m := f.cfg.AnchorModule()
	size := f.cfg.AnchorSize()
	near := f.cfg.Grid.Margin
	far := f.size - near - size
	for _, o := range []image.Point{{near, near}, {far, near}, {near, far}, {far, far}} {
		for a := 0; a < 7; a++ {
			for b := 0; b < 7; b++ {
				ring := max(abs(a-3), abs(b-3))
				if ring == 2 {
					continue
				}
				r := image.Rect(o.X+b*m, o.Y+a*m, o.X+(b+1)*m, o.Y+(a+1)*m)
				fill(img, r, f.ink)
			}
		}
	}
}

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
