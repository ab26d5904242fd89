package storage

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSafeName(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "report.pdf", want: "report.pdf"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: "a/b/c.txt", want: "c.txt"},
		{in: "..", want: "fallback"},
		{in: "", want: "fallback"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			if got := SafeName(tc.in, "fallback"); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSaveDecoded(t *testing.T) {
	dir := t.TempDir()
	testCases := []struct {
		name    string
		tag     string
		content string
		want    string
	}{
		{name: "file.bin", tag: "0000000a", content: "hello", want: "file.bin"},
		{name: "file.bin", tag: "0000000b", content: "other", want: "file_0000000b.bin"},
		{name: "notes", tag: "0000000c", content: "plain", want: "notes"},
		{name: "notes", tag: "0000000d", content: "again", want: "notes_0000000d"},
	}
	for _, tc := range testCases {
		out, err := SaveDecoded(dir, tc.name, tc.tag, []byte(tc.content))
		if err != nil {
			t.Fatal(err)
		}
		if out != filepath.Join(dir, tc.want) {
			t.Errorf("path %s, want %s", out, tc.want)
		}
		data, err := os.ReadFile(out)
		if err != nil || string(data) != tc.content {
			t.Errorf("read back %q, %v", data, err)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != len(testCases) {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestFramesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 2, color.NRGBA{10, 20, 30, 255})
	for i := 2; i >= 1; i-- {
		if err := SaveFrame(dir, i, img); err != nil {
			t.Fatal(err)
		}
	}
	files, err := ScanFrames(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{FramePath(dir, 1), FramePath(dir, 2)}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("got %v, want %v", files, want)
	}
	back, err := FrameRead(files[0])
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := back.At(1, 2).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 {
		t.Errorf("pixel %d %d %d", r>>8, g>>8, b>>8)
	}
	if _, err := ScanFrames(t.TempDir()); err == nil {
		t.Error("empty dir accepted")
	}
}
