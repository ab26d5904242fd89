package ecc

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func TestCapacity(t *testing.T) {
	testCases := []struct {
		name       string
		frameBytes int
		block      int
		ecc        int
		want       int
	}{
		{name: "exact blocks", frameBytes: 310, block: 155, ecc: 30, want: 250},
		{name: "short tail", frameBytes: 9216, block: 155, ecc: 30, want: 59*125 + 41},
		{name: "tail without room", frameBytes: 180, block: 155, ecc: 30, want: 125},
		{name: "no parity", frameBytes: 100, block: 50, ecc: 0, want: 100},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(tc.frameBytes, tc.block, tc.ecc)
			if err != nil {
				t.Fatal(err)
			}
			if c.DataSize() != tc.want {
				t.Errorf("got %d, want %d", c.DataSize(), tc.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	c, err := New(1152, 155, 30)
	if err != nil {
		t.Fatal(err)
	}
	data := make([]byte, c.DataSize())
	rand.New(rand.NewSource(1)).Read(data)

	frame := c.Encode(data)
	// systematic: data bytes are stored as is
	if !bytes.Equal(frame[:125], data[:125]) {
		t.Error("first block is not systematic")
	}
	got, good, err := c.Decode(frame)
	if err != nil {
		t.Fatal(err)
	}
	if good != c.DataSize() || !bytes.Equal(got, data) {
		t.Error("clean frame did not round trip")
	}
}

func TestCorrectsBelowCapacity(t *testing.T) {
	c, err := New(1152, 155, 30)
	if err != nil {
		t.Fatal(err)
	}
	rnd := rand.New(rand.NewSource(2))
	data := make([]byte, c.DataSize())
	rnd.Read(data)
	frame := c.Encode(data)

	// 15 corrupted bytes in every block
	for _, b := range c.blocks {
		for _, i := range rnd.Perm(b.n)[:15] {
			frame[b.offset+i] ^= byte(1 + rnd.Intn(255))
		}
	}
	got, _, err := c.Decode(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("corrected payload differs")
	}
}

func TestFailsAboveCapacity(t *testing.T) {
	c, err := New(1152, 155, 30)
	if err != nil {
		t.Fatal(err)
	}
	rnd := rand.New(rand.NewSource(3))
	data := make([]byte, c.DataSize())
	rnd.Read(data)
	frame := c.Encode(data)
	for i := range frame {
		frame[i] = byte(rnd.Intn(256))
	}
	_, good, err := c.Decode(frame)
	if !errors.Is(err, ErrUncorrectable) {
		t.Fatalf("expected ErrUncorrectable, got %v", err)
	}
	if good == c.DataSize() {
		t.Error("random frame reported fully decoded")
	}
}
