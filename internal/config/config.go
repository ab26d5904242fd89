package config

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// NOTE: cells are read left to right, top to bottom
const (
	// modes
	ModeB    = "b"  // current 4+2 bit scheme
	Mode4C   = "4c" // legacy 4 color scheme
	ModeBM   = "bm" // monochrome
	ModeAuto = "auto"

	PaletteCurrent = "current"
	PaletteLegacy  = "legacy"

	// meta
	MetadataMaxFilenameLen       = 255
	MetadataEOFMarker            = "/"
	MetadataFilenameCutDelimeter = "--"

	// Path
	PathFramesDir = "tmp/frames"
	PathDecodeDir = "tmp/decoded"
	PathVideoOut  = "tmp/out.mov"
)

type Config struct {
	Mode       string           `yaml:"mode"`
	Grid       GridConfig       `yaml:"grid"`
	Codec      CodecConfig      `yaml:"codec"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Decoder    DecoderConfig    `yaml:"decoder"`
}

// GridConfig is the geometry of a rendered frame, in pixels of the normalized image
type GridConfig struct {
	CellSize      int  `yaml:"cell_size"`      // tile edge, tiles are 8x8
	CellSpacing   int  `yaml:"cell_spacing"`   // tile pitch, cell_size + gap
	NumCells      int  `yaml:"num_cells"`      // cells per row and column
	CornerPadding int  `yaml:"corner_padding"` // cells reserved for each anchor
	Margin        int  `yaml:"margin"`         // quiet zone around the grid
	Dark          bool `yaml:"dark"`           // bright ink on a dark background
}

type CodecConfig struct {
	SymbolBits           int    `yaml:"symbol_bits"`
	ColorBits            int    `yaml:"color_bits"`
	Palette              string `yaml:"palette"`
	EccBytes             int    `yaml:"ecc_bytes"`
	EccBlockSize         int    `yaml:"ecc_block_size"`
	InterleaveBlocks     int    `yaml:"interleave_blocks"` // 0 = one per ecc block
	InterleavePartitions int    `yaml:"interleave_partitions"`
	ChunkSize            int    `yaml:"chunk_size"` // 0 = largest that fits a frame
}

type ClassifierConfig struct {
	HashThreshold  int  `yaml:"hash_threshold"`
	ColorThreshold int  `yaml:"color_threshold"`
	MaxDrift       int  `yaml:"max_drift"`
	Exhaustive     bool `yaml:"exhaustive"`
}

type DecoderConfig struct {
	Workers          int  `yaml:"workers"` // 0 = half of the cpus
	QueueSize        int  `yaml:"queue_size"`
	Staged           bool `yaml:"staged"`
	StageQueueSize   int  `yaml:"stage_queue_size"`
	PerfectBytes     int  `yaml:"perfect_bytes"` // 0 = every ecc block decoded
	MaxScanDimension int  `yaml:"max_scan_dimension"`
}

// Default returns the current scheme at 1024x1024
func Default() Config {
	return Config{
		Mode: ModeB,
		Grid: GridConfig{
			CellSize:      8,
			CellSpacing:   9,
			NumCells:      112,
			CornerPadding: 8,
			Margin:        8,
			Dark:          true,
		},
		Codec: CodecConfig{
			SymbolBits:           4,
			ColorBits:            2,
			Palette:              PaletteCurrent,
			EccBytes:             30,
			EccBlockSize:         155,
			InterleavePartitions: 1,
		},
		Classifier: ClassifierConfig{
			HashThreshold:  8,
			ColorThreshold: 2500,
			MaxDrift:       2,
		},
		Decoder: DecoderConfig{
			QueueSize:      1,
			StageQueueSize: 2,
		},
	}
}

// Small is a 376x376 grid of 40 cells per row, used for previews and tests
func Small() Config {
	c := Default()
	c.Grid.NumCells = 40
	c.Grid.CornerPadding = 4
	return c
}

// ForMode applies the codec profile of a mode tag on top of cfg
func ForMode(cfg Config, mode string) (Config, error) {
	switch mode {
	case ModeB:
		cfg.Codec.SymbolBits = 4
		cfg.Codec.ColorBits = 2
		cfg.Codec.Palette = PaletteCurrent
		cfg.Codec.EccBytes = 30
	case Mode4C:
		cfg.Codec.SymbolBits = 4
		cfg.Codec.ColorBits = 2
		cfg.Codec.Palette = PaletteLegacy
		cfg.Codec.EccBytes = 40
	case ModeBM:
		cfg.Codec.SymbolBits = 4
		cfg.Codec.ColorBits = 0
		cfg.Codec.Palette = PaletteCurrent
		cfg.Codec.EccBytes = 30
	case ModeAuto:
	default:
		return cfg, errors.Errorf("unknown mode %q", mode)
	}
	cfg.Mode = mode
	return cfg, nil
}

// Candidates lists the schemes tried in auto mode, in order
func Candidates() []string {
	return []string{ModeB, Mode4C}
}

// Load reads a YAML configuration file.
// The mode tag is read first so the file can override single profile values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read config file")
	}

	var head struct {
		Mode string `yaml:"mode"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}
	mode := head.Mode
	if mode == "" {
		mode = ModeB
	}
	cfg, err := ForMode(Default(), mode)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}
	if err := Validate(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// ImageSize is the edge of the normalized frame
func (c Config) ImageSize() int {
	return 2*c.Grid.Margin + c.Grid.NumCells*c.Grid.CellSpacing
}

// AnchorModule is the width of one ring of an anchor
func (c Config) AnchorModule() int {
	return (c.Grid.CornerPadding*c.Grid.CellSpacing - 1) / 7
}

func (c Config) AnchorSize() int {
	return 7 * c.AnchorModule()
}

func (c Config) BitsPerCell() int {
	return c.Codec.SymbolBits + c.Codec.ColorBits
}

func (c Config) NumValidCells() int {
	n, p := c.Grid.NumCells, c.Grid.CornerPadding
	return n*n - 4*p*p
}

// FrameBytes is the raw capacity of a frame before error correction
func (c Config) FrameBytes() int {
	return c.NumValidCells() * c.BitsPerCell() / 8
}

func (c Config) EccBlocks() int {
	return (c.FrameBytes() + c.Codec.EccBlockSize - 1) / c.Codec.EccBlockSize
}

func (c Config) InterleaveBlockCount() int {
	if c.Codec.InterleaveBlocks > 0 {
		return c.Codec.InterleaveBlocks
	}
	return c.EccBlocks()
}

func (c Config) NumWorkers() int {
	if c.Decoder.Workers > 0 {
		return c.Decoder.Workers
	}
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	return n
}
