package fountain

import (
	"github.com/pkg/errors"
)

// Decoder collects the symbols of one stream. It is not safe for concurrent use.
type Decoder struct {
	header    Header
	shardSize int
	k         int
	shards    [][]byte
	received  int
}

func NewDecoder(h Header, shardSize int) (*Decoder, error) {
	k := h.DataShards(shardSize)
	if k >= int(h.Total) {
		return nil, ErrBadHeader
	}
	return &Decoder{
		header:    h,
		shardSize: shardSize,
		k:         k,
		shards:    make([][]byte, h.Total),
	}, nil
}

func (d *Decoder) StreamID() uint32 {
	return d.header.StreamID
}

func (d *Decoder) Header() Header {
	return d.header
}

// Add stores a symbol. It returns false for a shard already held,
// which makes resubmission harmless.
func (d *Decoder) Add(symbol []byte) (bool, error) {
	h, err := ParseHeader(symbol)
	if err != nil {
		return false, err
	}
	if h.StreamID != d.header.StreamID || h.Size != d.header.Size || h.Total != d.header.Total {
		return false, ErrHeaderMismatch
	}
	if len(symbol) != HeaderSize+d.shardSize {
		return false, errors.Wrapf(ErrShortSymbol, "got %d bytes, want %d", len(symbol), HeaderSize+d.shardSize)
	}
	if d.shards[h.Index] != nil {
		return false, nil
	}
	shard := make([]byte, d.shardSize)
	copy(shard, symbol[HeaderSize:])
	d.shards[h.Index] = shard
	d.received++
	return true, nil
}

func (d *Decoder) Complete() bool {
	return d.received >= d.k
}

func (d *Decoder) Progress() float64 {
	p := float64(d.received) / float64(d.k)
	if p > 1 {
		p = 1
	}
	return p
}

// Reconstruct rebuilds the payload once K shards are held
func (d *Decoder) Reconstruct() ([]byte, error) {
	if !d.Complete() {
		return nil, errors.Errorf("fountain: %d of %d shards", d.received, d.k)
	}
	n := int(d.header.Total)
	enc, err := newCodec(d.k, n)
	if err != nil {
		return nil, err
	}

	shards := make([][]byte, n)
	copy(shards, d.shards)
	if err := enc.ReconstructData(shards); err != nil {
		return nil, errors.Wrap(err, "fountain: reconstruct")
	}
	out := make([]byte, 0, d.k*d.shardSize)
	for i := 0; i < d.k; i++ {
		out = append(out, shards[i]...)
	}
	return out[:d.header.Size], nil
}

// Reset forgets every shard, keeping the stream parameters
func (d *Decoder) Reset() {
	d.shards = make([][]byte, len(d.shards))
	d.received = 0
}
