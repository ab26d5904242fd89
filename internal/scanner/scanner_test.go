package scanner_test

import (
	"image"
	"math"
	"sort"
	"testing"

	"github.com/1F47E/go-camreel/internal/config"
	"github.com/1F47E/go-camreel/internal/encoder"
	"github.com/1F47E/go-camreel/internal/scanner"
)

func renderFrame(t *testing.T, cfg config.Config) image.Image {
	t.Helper()
	enc, err := encoder.NewFrameEncoder(cfg)
	if err != nil {
		t.Fatal(err)
	}
	symbol := make([]byte, enc.Capacity())
	for i := range symbol {
		symbol[i] = byte(i * 31)
	}
	img, err := enc.EncodeFrame(symbol)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

// sortCenters orders anchors TL, TR, BL, BR
func sortCenters(anchors []scanner.Anchor) []scanner.Point {
	res := make([]scanner.Point, len(anchors))
	for i, a := range anchors {
		res[i] = a.Center
	}
	sort.Slice(res, func(i, j int) bool {
		if math.Abs(res[i].Y-res[j].Y) > 10 {
			return res[i].Y < res[j].Y
		}
		return res[i].X < res[j].X
	})
	return res
}

func TestScanRenderedFrame(t *testing.T) {
	testCases := []struct {
		name   string
		cfg    func() config.Config
		maxDim int
		tol    float64
	}{
		{name: "small dark", cfg: config.Small, tol: 0.6},
		{name: "small light", cfg: func() config.Config {
			c := config.Small()
			c.Grid.Dark = false
			return c
		}, tol: 0.6},
		{name: "default", cfg: config.Default, tol: 0.6},
		{name: "default downscaled", cfg: config.Default, maxDim: 512, tol: 2.5},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg()
			img := renderFrame(t, cfg)
			anchors := scanner.New(tc.maxDim).Scan(img)
			if len(anchors) != 4 {
				t.Fatalf("found %d anchors", len(anchors))
			}
			near := float64(cfg.Grid.Margin) + float64(cfg.AnchorSize())/2
			far := float64(cfg.ImageSize()) - near
			want := []scanner.Point{{X: near, Y: near}, {X: far, Y: near}, {X: near, Y: far}, {X: far, Y: far}}
			for i, p := range sortCenters(anchors) {
				if math.Abs(p.X-want[i].X) > tc.tol || math.Abs(p.Y-want[i].Y) > tc.tol {
					t.Errorf("anchor %d at %+v, want %+v", i, p, want[i])
				}
			}
			module := float64(cfg.AnchorModule())
			for _, a := range anchors {
				if math.Abs(a.Module-module) > module/4 {
					t.Errorf("module %.2f, want %.0f", a.Module, module)
				}
				if a.Count < 2 {
					t.Errorf("count %d", a.Count)
				}
				if d := a.Box().Dx() - cfg.AnchorSize(); d < -3 || d > 3 {
					t.Errorf("box %v", a.Box())
				}
			}
		})
	}
}

func TestScanSubImage(t *testing.T) {
	cfg := config.Small()
	img := renderFrame(t, cfg).(*image.NRGBA)
	// a sub image keeps the coordinates of its parent
	sub := img.SubImage(image.Rect(150, 150, cfg.ImageSize(), cfg.ImageSize()))
	anchors := scanner.New(0).Scan(sub)
	if len(anchors) == 0 {
		t.Fatal("no anchors")
	}
	far := float64(cfg.ImageSize()) - float64(cfg.Grid.Margin) - float64(cfg.AnchorSize())/2
	// strongest first
	if c := anchors[0].Center; math.Abs(c.X-far) > 0.6 || math.Abs(c.Y-far) > 0.6 {
		t.Errorf("center %+v, want %.1f", c, far)
	}
}

func TestScanBlank(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 300, 200))
	if anchors := scanner.New(0).Scan(img); len(anchors) != 0 {
		t.Errorf("found %d anchors", len(anchors))
	}
}
