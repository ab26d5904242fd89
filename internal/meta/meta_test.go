package meta

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestConvertUint64ToBytes(t *testing.T) {
	testCases := []struct {
		name string
		num  uint64
		want []byte
	}{
		{
			name: "Test 1",
			num:  1234567890,
			want: []byte{0, 0, 0, 0, 0x49, 0x96, 0x02, 0xd2},
		},
		{
			name: "Test 2",
			num:  9876543210,
			want: []byte{0, 0, 0, 2, 0x4c, 0xb0, 0x16, 0xea},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := convertUint64ToBytes(tc.num)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHeaderFields(t *testing.T) {
	testCases := []struct {
		name    string
		content []byte
	}{
		{name: "empty", content: nil},
		{name: "small", content: []byte("hello")},
		{name: "large", content: bytes.Repeat([]byte{7}, 9876543)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			payload, m, err := Pack("x/"+tc.name+".bin", tc.content)
			if err != nil {
				t.Fatal(err)
			}
			parsed, _, err := Parse(payload)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(parsed, m) {
				t.Errorf("parsed %+v, want %+v", parsed, m)
			}
			if parsed.Size() != uint64(len(tc.content)) {
				t.Errorf("size %d, want %d", parsed.Size(), len(tc.content))
			}
			got, data, err := Unpack(payload)
			if err != nil {
				t.Fatal(err)
			}
			if got.Checksum() != m.Checksum() || !bytes.Equal(data, tc.content) {
				t.Errorf("unpacked %s", got.Print())
			}
		})
	}
}

func TestEncodeFilename(t *testing.T) {
	long := strings.Repeat("a", 300) + ".txt"
	testCases := []struct {
		name string
		path string
		want string
	}{
		{name: "base name", path: "/tmp/dir/report.pdf", want: "report.pdf"},
		{name: "relative", path: "notes.md", want: "notes.md"},
		{name: "cut", path: long, want: strings.Repeat("a", 249) + "--.txt"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := encodeFilename(tc.path)
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseHeader(t *testing.T) {
	m := New("dir/photo.jpg", []byte("content"))
	header := m.Marshal()
	got, n, err := Parse(append(header, 0xde, 0xad))
	if err != nil {
		t.Fatal(err)
	}
	if n != len(header) {
		t.Errorf("consumed %d, want %d", n, len(header))
	}
	if !reflect.DeepEqual(got, m) {
		t.Errorf("got %+v, want %+v", got, m)
	}
	if _, _, err := Parse(header[:10]); !errors.Is(err, ErrShortHeader) {
		t.Errorf("short header: %v", err)
	}
	if _, _, err := Parse(header[:fixedSize+2]); !errors.Is(err, ErrNoFilename) {
		t.Errorf("missing marker: %v", err)
	}
}

func TestPackUnpack(t *testing.T) {
	content := bytes.Repeat([]byte("the quick brown fox "), 200)
	payload, m, err := Pack("/home/user/fox.txt", content)
	if err != nil {
		t.Fatal(err)
	}
	if len(payload) >= len(content) {
		t.Errorf("payload %d bytes not compressed below %d", len(payload), len(content))
	}

	got, data, err := Unpack(payload)
	if err != nil {
		t.Fatal(err)
	}
	if got.Filename != "fox.txt" || got.Checksum() != m.Checksum() {
		t.Errorf("metadata %s", got.Print())
	}
	if !bytes.Equal(data, content) {
		t.Error("content mismatch")
	}
}

func TestUnpackDetectsCorruption(t *testing.T) {
	payload, _, err := Pack("a.bin", []byte("payload that will be damaged"))
	if err != nil {
		t.Fatal(err)
	}
	// flip the stored checksum
	payload[0] ^= 0xff
	if _, _, err := Unpack(payload); !errors.Is(err, ErrChecksum) {
		t.Errorf("got %v, want ErrChecksum", err)
	}
}

func TestUnpackBoundsDecompression(t *testing.T) {
	enc, err := encoder()
	if err != nil {
		t.Fatal(err)
	}
	// header claims a few bytes, the frame inflates to megabytes
	m := New("bomb.bin", []byte("tiny"))
	payload := enc.EncodeAll(make([]byte, 8<<20), m.Marshal())
	_, data, err := Unpack(payload)
	if err == nil || errors.Is(err, ErrChecksum) {
		t.Errorf("got %v", err)
	}
	if data != nil {
		t.Errorf("decoded %d bytes", len(data))
	}

	m.size = MaxContentSize + 1
	if _, _, err := Unpack(m.Marshal()); !errors.Is(err, ErrTooLarge) {
		t.Errorf("got %v, want ErrTooLarge", err)
	}
}
