// All files related functions
package storage

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
)

const framePrefix = "out_"

func CreateFramesDir(dir string) (string, error) {
	err := os.MkdirAll(dir, os.ModePerm)
	if err != nil {
		return dir, errors.Wrap(err, "Error creating frames dir")
	}
	return dir, nil
}

// ScanFrames lists frame images in dir, sorted by name
func ScanFrames(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot read frames dir")
	}
	filesList := make([]string, 0, len(files))
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(file.Name())) {
		case ".png", ".jpg", ".jpeg":
			filesList = append(filesList, filepath.Join(dir, file.Name()))
		}
	}
	if len(filesList) == 0 {
		return nil, errors.Errorf("No frames found in %s", dir)
	}
	sort.Strings(filesList)
	return filesList, nil
}

func FramePath(dir string, frameNum int) string {
	return filepath.Join(dir, fmt.Sprintf("%s%08d.png", framePrefix, frameNum))
}

func SaveFrame(dir string, frameNum int, img image.Image) error {
	filePath := FramePath(dir, frameNum)
	err := os.MkdirAll(filepath.Dir(filePath), os.ModePerm)
	if err != nil {
		return errors.Wrapf(err, "Cannot create out dir for path %s", filePath)
	}

	imgFile, err := os.Create(filePath)
	if err != nil {
		return errors.Wrap(err, "Cannot create file")
	}
	defer imgFile.Close()
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(imgFile, img); err != nil {
		return errors.Wrap(err, "Cannot encode to file")
	}
	return nil
}

func FrameRead(filename string) (image.Image, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot decode %s", filename)
	}
	return img, nil
}

// SaveDecoded writes data into dir/name atomically. When another file
// already holds the name, tag is added before the extension.
func SaveDecoded(dir, name, tag string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", errors.Wrap(err, "Cannot create decoded dir")
	}
	out := filepath.Join(dir, name)
	if _, err := os.Lstat(out); err == nil {
		ext := filepath.Ext(name)
		out = filepath.Join(dir, fmt.Sprintf("%s_%s%s", strings.TrimSuffix(name, ext), tag, ext))
	}
	if err := renameio.WriteFile(out, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "Cannot write %s", out)
	}
	return out, nil
}

// SafeName reduces a name from untrusted metadata to a plain file name
func SafeName(name, fallback string) string {
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." || name == ".." || name == "" {
		return fallback
	}
	return name
}
