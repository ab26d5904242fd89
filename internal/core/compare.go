package core

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
)

// encode + decode + compare
func (c *Core) Compare(filename string) (bool, error) {
	encoded, err := c.Encode(filename)
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(encoded)

	done, err := c.Decode(encoded)
	if err != nil {
		return false, err
	}
	for _, out := range done {
		defer os.Remove(out)
	}
	if len(done) != 1 {
		return false, errors.Errorf("Error: decoded %d files, want 1", len(done))
	}
	// compare files
	same, err := compareFiles(filename, done[0])
	if err != nil {
		return false, err
	}
	return same, nil
}

// Compare files before and after decoding for test command
func compareFiles(file1, file2 string) (bool, error) {
	b1, err := os.ReadFile(file1)
	if err != nil {
		return false, errors.Wrap(err, "Error reading original")
	}
	b2, err := os.ReadFile(file2)
	if err != nil {
		return false, errors.Wrap(err, "Error reading decoded")
	}
	if len(b1) != len(b2) {
		return false, errors.New("Files are not the same size")
	}
	if !bytes.Equal(b1, b2) {
		for i := range b1 {
			if b1[i] != b2[i] {
				return false, errors.Errorf("Files are not the same at position %d", i)
			}
		}
	}
	return true, nil
}
