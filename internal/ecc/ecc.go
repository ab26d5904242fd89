package ecc

import (
	"github.com/pkg/errors"
	"storj.io/infectious"
)

var ErrUncorrectable = errors.New("ecc: too many errors in block")

type block struct {
	offset int // in the frame
	data   int // in the payload
	k, n   int
	fec    *infectious.FEC
}

// Codec protects a frame with Reed-Solomon blocks of blockSize bytes,
// eccBytes of which are parity. Each byte is one share, so a block
// corrects up to eccBytes/2 corrupted bytes.
type Codec struct {
	frameBytes int
	dataBytes  int
	ecc        int
	blocks     []block
}

func New(frameBytes, blockSize, eccBytes int) (*Codec, error) {
	if blockSize < 2 || blockSize > 256 {
		return nil, errors.Errorf("ecc: block size %d out of range", blockSize)
	}
	if eccBytes < 0 || eccBytes >= blockSize {
		return nil, errors.Errorf("ecc: %d parity bytes do not fit a %d byte block", eccBytes, blockSize)
	}

	c := &Codec{frameBytes: frameBytes, ecc: eccBytes}
	fecs := map[int]*infectious.FEC{}
	for off := 0; off < frameBytes; off += blockSize {
		n := blockSize
		if off+n > frameBytes {
			n = frameBytes - off
		}
		k := n - eccBytes
		if k < 1 {
			// short tail without room for data stays zero
			break
		}
		var fec *infectious.FEC
		if eccBytes > 0 {
			fec = fecs[n]
			if fec == nil {
				var err error
				fec, err = infectious.NewFEC(k, n)
				if err != nil {
					return nil, errors.Wrapf(err, "ecc: new fec %d/%d", k, n)
				}
				fecs[n] = fec
			}
		}
		c.blocks = append(c.blocks, block{offset: off, data: c.dataBytes, k: k, n: n, fec: fec})
		c.dataBytes += k
	}
	if c.dataBytes == 0 {
		return nil, errors.New("ecc: frame has no room for data")
	}
	return c, nil
}

// DataSize is the payload a frame carries after parity
func (c *Codec) DataSize() int {
	return c.dataBytes
}

func (c *Codec) FrameSize() int {
	return c.frameBytes
}

func (c *Codec) Blocks() int {
	return len(c.blocks)
}

// Encode spreads data over the blocks and appends parity to each.
// Short data is zero padded.
func (c *Codec) Encode(data []byte) []byte {
	payload := make([]byte, c.dataBytes)
	copy(payload, data)
	frame := make([]byte, c.frameBytes)
	for _, b := range c.blocks {
		chunk := payload[b.data : b.data+b.k]
		if b.fec == nil {
			copy(frame[b.offset:], chunk)
			continue
		}
		out := frame[b.offset : b.offset+b.n]
		_ = b.fec.Encode(chunk, func(s infectious.Share) {
			out[s.Number] = s.Data[0]
		})
	}
	return frame
}

// Decode corrects every block. It returns the payload, the number of
// payload bytes in blocks that decoded, and ErrUncorrectable if any block failed.
// Failed blocks are left as received.
func (c *Codec) Decode(frame []byte) ([]byte, int, error) {
	if len(frame) < c.frameBytes {
		return nil, 0, errors.Errorf("ecc: frame is %d bytes, want %d", len(frame), c.frameBytes)
	}
	payload := make([]byte, c.dataBytes)
	good := 0
	failed := 0
	shares := make([]infectious.Share, 0, 256)
	for _, b := range c.blocks {
		if b.fec == nil {
			copy(payload[b.data:], frame[b.offset:b.offset+b.k])
			good += b.k
			continue
		}
		raw := make([]byte, b.n)
		copy(raw, frame[b.offset:b.offset+b.n])
		shares = shares[:0]
		for i := range raw {
			shares = append(shares, infectious.Share{Number: i, Data: raw[i : i+1]})
		}
		data, err := b.fec.Decode(nil, shares)
		if err != nil || len(data) != b.k {
			copy(payload[b.data:], frame[b.offset:b.offset+b.k])
			failed++
			continue
		}
		copy(payload[b.data:], data)
		good += b.k
	}
	if failed > 0 {
		return payload, good, errors.Wrapf(ErrUncorrectable, "%d of %d blocks", failed, len(c.blocks))
	}
	return payload, good, nil
}
