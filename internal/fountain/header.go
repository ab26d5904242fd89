package fountain

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// HeaderSize prefixes every symbol:
// stream id (4) | payload size (4) | total shards (2) | shard index (2)
const HeaderSize = 12

// MaxShards is the largest total shard count a header can address
const MaxShards = 65535

var (
	ErrShortSymbol    = errors.New("fountain: symbol shorter than header")
	ErrHeaderMismatch = errors.New("fountain: symbol does not belong to this stream")
	ErrBadHeader      = errors.New("fountain: inconsistent header")
)

type Header struct {
	StreamID uint32
	Size     uint32 // payload bytes before splitting
	Total    uint16 // data + parity shards
	Index    uint16
}

func (h Header) Put(buf []byte) {
	binary.BigEndian.PutUint32(buf[0:4], h.StreamID)
	binary.BigEndian.PutUint32(buf[4:8], h.Size)
	binary.BigEndian.PutUint16(buf[8:10], h.Total)
	binary.BigEndian.PutUint16(buf[10:12], h.Index)
}

func ParseHeader(symbol []byte) (Header, error) {
	if len(symbol) < HeaderSize {
		return Header{}, ErrShortSymbol
	}
	h := Header{
		StreamID: binary.BigEndian.Uint32(symbol[0:4]),
		Size:     binary.BigEndian.Uint32(symbol[4:8]),
		Total:    binary.BigEndian.Uint16(symbol[8:10]),
		Index:    binary.BigEndian.Uint16(symbol[10:12]),
	}
	if h.Size == 0 || h.Total < 2 || h.Index >= h.Total {
		return h, ErrBadHeader
	}
	return h, nil
}

// DataShards is K: the number of shards any reconstruction needs
func (h Header) DataShards(shardSize int) int {
	return DataShards(int(h.Size), shardSize)
}

func DataShards(size, shardSize int) int {
	k := (size + shardSize - 1) / shardSize
	if k < 1 {
		k = 1
	}
	return k
}
