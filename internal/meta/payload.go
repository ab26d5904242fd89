package meta

import (
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

const (
	// MaxContentSize caps the declared size a header may carry
	MaxContentSize = 1 << 30
	// decoder memory floor, small frames still get a minimum window
	minDecoderMemory = 1 << 20
)

var ErrTooLarge = errors.New("meta: declared size too large")

var (
	zOnce    sync.Once
	zEncoder *zstd.Encoder
	zErr     error
)

func encoder() (*zstd.Encoder, error) {
	zOnce.Do(func() {
		zEncoder, zErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	})
	return zEncoder, zErr
}

// decoderLimit bounds decompression memory by the declared content size
func decoderLimit(size uint64) uint64 {
	if size < minDecoderMemory {
		return minDecoderMemory
	}
	return size
}

// Pack builds a stream payload: metadata header followed by the
// zstd compressed content
func Pack(path string, content []byte) ([]byte, Metadata, error) {
	enc, err := encoder()
	if err != nil {
		return nil, Metadata{}, errors.Wrap(err, "meta: zstd")
	}
	m := New(path, content)
	header := m.Marshal()
	return enc.EncodeAll(content, header), m, nil
}

// Unpack reverses Pack and verifies the checksum
func Unpack(payload []byte) (Metadata, []byte, error) {
	m, n, err := Parse(payload)
	if err != nil {
		return Metadata{}, nil, err
	}
	if m.size > MaxContentSize {
		return m, nil, errors.Wrapf(ErrTooLarge, "%d bytes", m.size)
	}
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(decoderLimit(m.size)),
	)
	if err != nil {
		return m, nil, errors.Wrap(err, "meta: zstd")
	}
	defer dec.Close()
	content, err := dec.DecodeAll(payload[n:], make([]byte, 0, m.size))
	if err != nil {
		return m, nil, errors.Wrap(err, "meta: decompress")
	}
	if !m.Validate(content) {
		return m, nil, ErrChecksum
	}
	return m, content, nil
}
