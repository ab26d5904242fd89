package ecc

import (
	"github.com/pkg/errors"

	"github.com/1F47E/go-camreel/internal/config"
)

// ForConfig builds the frame codec of a configured scheme
func ForConfig(cfg config.Config) (*Codec, error) {
	return New(cfg.FrameBytes(), cfg.Codec.EccBlockSize, cfg.Codec.EccBytes)
}

// ChunkSize is the fountain shard size carried by one frame: the configured
// value, or the largest multiple of align that fits next to a header of
// headerSize bytes.
func ChunkSize(cfg config.Config, headerSize, align int) (int, error) {
	c, err := ForConfig(cfg)
	if err != nil {
		return 0, err
	}
	room := c.DataSize() - headerSize
	if cfg.Codec.ChunkSize > 0 {
		if cfg.Codec.ChunkSize > room {
			return 0, errors.Errorf("ecc: chunk size %d exceeds the %d bytes a frame carries", cfg.Codec.ChunkSize, room)
		}
		return cfg.Codec.ChunkSize, nil
	}
	chunk := room / align * align
	if chunk <= 0 {
		return 0, errors.Errorf("ecc: frame carries %d bytes, too few for a chunk", c.DataSize())
	}
	return chunk, nil
}
