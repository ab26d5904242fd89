package cimb

// PutBits writes the low n bits of v at bit offset pos, most significant first.
// Bits past the end of buf are dropped.
func PutBits(buf []byte, pos, n int, v uint32) {
	for k := 0; k < n; k++ {
		idx := pos + k
		if idx >= len(buf)*8 {
			return
		}
		if (v>>uint(n-1-k))&1 == 1 {
			buf[idx/8] |= 0x80 >> uint(idx%8)
		}
	}
}

// GetBits reads n bits at bit offset pos. Bits past the end read as 0.
func GetBits(buf []byte, pos, n int) uint32 {
	var v uint32
	for k := 0; k < n; k++ {
		v <<= 1
		idx := pos + k
		if idx < len(buf)*8 && buf[idx/8]&(0x80>>uint(idx%8)) != 0 {
			v |= 1
		}
	}
	return v
}
