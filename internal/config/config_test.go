package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultGeometry(t *testing.T) {
	cfg := Default()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	testCases := []struct {
		name string
		got  int
		want int
	}{
		{name: "image size", got: cfg.ImageSize(), want: 1024},
		{name: "anchor module", got: cfg.AnchorModule(), want: 10},
		{name: "valid cells", got: cfg.NumValidCells(), want: 12288},
		{name: "frame bytes", got: cfg.FrameBytes(), want: 9216},
		{name: "ecc blocks", got: cfg.EccBlocks(), want: 60},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %d, want %d", tc.got, tc.want)
			}
		})
	}
}

func TestForMode(t *testing.T) {
	testCases := []struct {
		mode      string
		colorBits int
		ecc       int
		palette   string
		wantErr   bool
	}{
		{mode: ModeB, colorBits: 2, ecc: 30, palette: PaletteCurrent},
		{mode: Mode4C, colorBits: 2, ecc: 40, palette: PaletteLegacy},
		{mode: ModeBM, colorBits: 0, ecc: 30, palette: PaletteCurrent},
		{mode: "xx", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.mode, func(t *testing.T) {
			cfg, err := ForMode(Default(), tc.mode)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if cfg.Codec.ColorBits != tc.colorBits || cfg.Codec.EccBytes != tc.ecc || cfg.Codec.Palette != tc.palette {
				t.Errorf("got %+v", cfg.Codec)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(c *Config)
	}{
		{name: "cell size", modify: func(c *Config) { c.Grid.CellSize = 6 }},
		{name: "no gap", modify: func(c *Config) { c.Grid.CellSpacing = 8 }},
		{name: "symbol bits", modify: func(c *Config) { c.Codec.SymbolBits = 7 }},
		{name: "color bits", modify: func(c *Config) { c.Codec.ColorBits = 4 }},
		{name: "ecc too large", modify: func(c *Config) { c.Codec.EccBytes = 155 }},
		{name: "chunk alignment", modify: func(c *Config) { c.Codec.ChunkSize = 100 }},
		{name: "palette", modify: func(c *Config) { c.Codec.Palette = "neon" }},
		{name: "tiny grid", modify: func(c *Config) { c.Grid.NumCells = 10; c.Grid.CornerPadding = 4 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(&cfg)
			if err := Validate(&cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camreel.yaml")
	data := []byte("mode: 4c\ngrid:\n  num_cells: 40\n  corner_padding: 4\ncodec:\n  ecc_bytes: 20\ndecoder:\n  workers: 3\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != Mode4C || cfg.Codec.Palette != PaletteLegacy {
		t.Errorf("profile not applied: %+v", cfg)
	}
	if cfg.Codec.EccBytes != 20 {
		t.Errorf("file value not applied: ecc %d", cfg.Codec.EccBytes)
	}
	if cfg.Grid.NumCells != 40 || cfg.Grid.CellSpacing != 9 {
		t.Errorf("grid: %+v", cfg.Grid)
	}
	if cfg.NumWorkers() != 3 {
		t.Errorf("workers: %d", cfg.NumWorkers())
	}
}
