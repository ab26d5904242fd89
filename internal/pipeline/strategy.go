package pipeline

import (
	"image"

	"github.com/pkg/errors"

	"github.com/1F47E/go-camreel/internal/cimb"
	"github.com/1F47E/go-camreel/internal/config"
	"github.com/1F47E/go-camreel/internal/extractor"
	"github.com/1F47E/go-camreel/internal/scanner"
)

type AnchorScanner interface {
	Scan(img image.Image) []scanner.Anchor
}

// Extractor rectifies the grid framed by the anchors
type Extractor interface {
	Extract(img image.Image, anchors []scanner.Anchor) (*image.NRGBA, extractor.Status, error)
}

// Classifier reads every cell of a rectified grid into a raw ecc frame
type Classifier interface {
	Classify(img *image.NRGBA, sharpen bool) []byte
}

type ClassifierFactory func(cfg config.Config) Classifier

// Strategy is the set of swappable stages of one scheme
type Strategy struct {
	Scanner    AnchorScanner
	Extractor  Extractor
	Classifier ClassifierFactory
}

var strategies = map[string]func(cfg config.Config) Strategy{
	config.ModeB:  gridStrategy,
	config.Mode4C: gridStrategy,
	config.ModeBM: gridStrategy,
}

// StrategyFor selects the stages for a mode tag
func StrategyFor(cfg config.Config) (Strategy, error) {
	build, ok := strategies[cfg.Mode]
	if !ok {
		return Strategy{}, errors.Errorf("pipeline: no strategy for mode %q", cfg.Mode)
	}
	return build(cfg), nil
}

func gridStrategy(cfg config.Config) Strategy {
	return Strategy{
		Scanner:    scanner.New(cfg.Decoder.MaxScanDimension),
		Extractor:  &gridExtractor{deskewer: extractor.NewDeskewer(cfg)},
		Classifier: newCellClassifier,
	}
}

type gridExtractor struct {
	deskewer *extractor.Deskewer
}

func (g *gridExtractor) Extract(img image.Image, anchors []scanner.Anchor) (*image.NRGBA, extractor.Status, error) {
	corners, err := extractor.NewCorners(anchors)
	if err != nil {
		return nil, extractor.Status{}, err
	}
	return g.deskewer.Deskew(img, corners)
}

type cellClassifier struct {
	decoder    *cimb.Decoder
	positions  []image.Point
	lookup     []int
	frameBytes int
}

func newCellClassifier(cfg config.Config) Classifier {
	positions := cimb.Positions(cfg)
	order := cimb.Interleave(len(positions), cfg.InterleaveBlockCount(), cfg.Codec.InterleavePartitions)
	return &cellClassifier{
		decoder:    cimb.NewDecoderFromConfig(cfg),
		positions:  positions,
		lookup:     cimb.InverseLookup(order),
		frameBytes: cfg.FrameBytes(),
	}
}

func (c *cellClassifier) Classify(img *image.NRGBA, sharpen bool) []byte {
	return cimb.NewReader(img, c.decoder, c.positions, sharpen).ReadAll(c.lookup, c.frameBytes)
}
