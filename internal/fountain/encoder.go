package fountain

import (
	"math"

	"github.com/klauspost/reedsolomon"
	"github.com/pkg/errors"
)

// ShardAlign is the shard size granularity of the GF(2^16) codec
const ShardAlign = 64

var ErrPayloadTooLarge = errors.New("fountain: payload needs more shards than a header can address")

// Encoder splits a payload into K data shards and extends them with
// parity so that any K of the N symbols rebuild the payload
type Encoder struct {
	header    Header
	shardSize int
	shards    [][]byte
}

func NewEncoder(streamID uint32, payload []byte, shardSize int, redundancy float64) (*Encoder, error) {
	if shardSize <= 0 || shardSize%ShardAlign != 0 {
		return nil, errors.Errorf("fountain: shard size %d is not a positive multiple of %d", shardSize, ShardAlign)
	}
	if len(payload) == 0 {
		return nil, errors.New("fountain: empty payload")
	}
	if redundancy < 1 {
		redundancy = 1
	}
	k := DataShards(len(payload), shardSize)
	n := int(math.Ceil(float64(k)*redundancy)) + 1
	if n > MaxShards {
		n = MaxShards
	}
	if k >= n {
		return nil, ErrPayloadTooLarge
	}

	enc, err := newCodec(k, n)
	if err != nil {
		return nil, err
	}
	shards := make([][]byte, n)
	for i := range shards {
		shards[i] = make([]byte, shardSize)
	}
	for i := 0; i < k; i++ {
		start := i * shardSize
		end := start + shardSize
		if end > len(payload) {
			end = len(payload)
		}
		copy(shards[i], payload[start:end])
	}
	if err := enc.Encode(shards); err != nil {
		return nil, errors.Wrap(err, "fountain: encode")
	}

	return &Encoder{
		header: Header{
			StreamID: streamID,
			Size:     uint32(len(payload)),
			Total:    uint16(n),
		},
		shardSize: shardSize,
		shards:    shards,
	}, nil
}

func newCodec(k, n int) (reedsolomon.Encoder, error) {
	var opts []reedsolomon.Option
	if n > 256 {
		opts = append(opts, reedsolomon.WithLeopardGF16(true))
	}
	enc, err := reedsolomon.New(k, n-k, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "fountain: codec %d/%d", k, n)
	}
	return enc, nil
}

// Count is the number of distinct symbols
func (e *Encoder) Count() int {
	return len(e.shards)
}

func (e *Encoder) DataShards() int {
	return e.header.DataShards(e.shardSize)
}

func (e *Encoder) StreamID() uint32 {
	return e.header.StreamID
}

// Symbol returns header and shard i, i in [0, Count)
func (e *Encoder) Symbol(i int) []byte {
	h := e.header
	h.Index = uint16(i)
	buf := make([]byte, HeaderSize+e.shardSize)
	h.Put(buf)
	copy(buf[HeaderSize:], e.shards[i])
	return buf
}
