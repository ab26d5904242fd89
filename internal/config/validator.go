package config

import "github.com/pkg/errors"

// Validate checks if the configuration is valid and fills unset defaults
func Validate(cfg *Config) error {
	switch cfg.Mode {
	case ModeB, Mode4C, ModeBM, ModeAuto:
	case "":
		cfg.Mode = ModeB
	default:
		return errors.Errorf("mode must be one of %s, %s, %s, %s", ModeB, Mode4C, ModeBM, ModeAuto)
	}

	// grid
	g := cfg.Grid
	if g.CellSize != 8 {
		return errors.New("grid.cell_size must be 8")
	}
	if g.CellSpacing < g.CellSize+1 {
		return errors.New("grid.cell_spacing must leave at least a 1px gap")
	}
	if g.CornerPadding < 2 {
		return errors.New("grid.corner_padding must be >= 2")
	}
	if g.NumCells <= 2*g.CornerPadding {
		return errors.New("grid.num_cells must be larger than twice the corner padding")
	}
	if g.Margin < 1 {
		return errors.New("grid.margin must be >= 1")
	}

	// codec
	c := cfg.Codec
	if c.SymbolBits < 1 || c.SymbolBits > 6 {
		return errors.New("codec.symbol_bits must be in 1..6")
	}
	if c.ColorBits < 0 || c.ColorBits > 3 {
		return errors.New("codec.color_bits must be in 0..3")
	}
	switch c.Palette {
	case PaletteCurrent, PaletteLegacy:
	case "":
		cfg.Codec.Palette = PaletteCurrent
	default:
		return errors.Errorf("codec.palette must be %s or %s", PaletteCurrent, PaletteLegacy)
	}
	if c.EccBlockSize < 2 || c.EccBlockSize > 255 {
		return errors.New("codec.ecc_block_size must be in 2..255")
	}
	if c.EccBytes < 0 || c.EccBytes >= c.EccBlockSize {
		return errors.New("codec.ecc_bytes must be in 0..ecc_block_size-1")
	}
	if c.InterleaveBlocks < 0 {
		return errors.New("codec.interleave_blocks must be >= 0")
	}
	if c.InterleavePartitions <= 0 {
		cfg.Codec.InterleavePartitions = 1
	}
	if c.ChunkSize < 0 || c.ChunkSize%64 != 0 {
		return errors.New("codec.chunk_size must be a non-negative multiple of 64")
	}
	if cfg.FrameBytes() < c.EccBlockSize {
		return errors.New("grid too small for a single ecc block")
	}

	// classifier
	if cfg.Classifier.HashThreshold < 0 || cfg.Classifier.ColorThreshold < 0 {
		return errors.New("classifier thresholds must be >= 0")
	}
	if cfg.Classifier.MaxDrift < 0 {
		return errors.New("classifier.max_drift must be >= 0")
	}

	// decoder
	if cfg.Decoder.Workers < 0 {
		return errors.New("decoder.workers must be >= 0")
	}
	if cfg.Decoder.QueueSize <= 0 {
		cfg.Decoder.QueueSize = 1
	}
	if cfg.Decoder.StageQueueSize <= 0 {
		cfg.Decoder.StageQueueSize = 2
	}
	if cfg.Decoder.PerfectBytes < 0 || cfg.Decoder.MaxScanDimension < 0 {
		return errors.New("decoder limits must be >= 0")
	}
	return nil
}
