package meta

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	cfg "github.com/1F47E/go-camreel/internal/config"
	"github.com/1F47E/go-camreel/internal/logger"
)

// header: checksum (8) | timestamp (8) | size (8) | filename + EOF marker
const fixedSize = 24

var (
	ErrShortHeader = errors.New("meta: header too short")
	ErrNoFilename  = errors.New("meta: filename marker not found")
	ErrChecksum    = errors.New("meta: checksum mismatch")
)

// Metadata describes the file carried by a stream
type Metadata struct {
	Filename  string
	timestamp int64
	checksum  uint64
	size      uint64
}

func New(path string, content []byte) Metadata {
	return Metadata{
		Filename:  encodeFilename(path),
		timestamp: time.Now().Unix(),
		checksum:  generateChecksum(content),
		size:      uint64(len(content)),
	}
}

// Parse reads a header and returns it with the number of bytes it used
func Parse(header []byte) (Metadata, int, error) {
	log := logger.Scope("meta parser")
	if len(header) < fixedSize+1 {
		return Metadata{}, 0, ErrShortHeader
	}

	m := Metadata{
		checksum:  binary.BigEndian.Uint64(header[0:8]),
		timestamp: int64(binary.BigEndian.Uint64(header[8:16])),
		size:      binary.BigEndian.Uint64(header[16:24]),
	}

	// find end of the filename by marker
	limit := len(header)
	if limit > fixedSize+cfg.MetadataMaxFilenameLen+1 {
		limit = fixedSize + cfg.MetadataMaxFilenameLen + 1
	}
	end := bytes.Index(header[fixedSize:limit], []byte(cfg.MetadataEOFMarker))
	if end < 0 {
		return Metadata{}, 0, ErrNoFilename
	}
	m.Filename = string(header[fixedSize : fixedSize+end])
	log.Debugf("parsed %s", m.Print())
	return m, fixedSize + end + len(cfg.MetadataEOFMarker), nil
}

// Marshal encodes the header
func (m *Metadata) Marshal() []byte {
	header := make([]byte, fixedSize, fixedSize+len(m.Filename)+len(cfg.MetadataEOFMarker))
	copy(header[0:8], convertUint64ToBytes(m.checksum))
	copy(header[8:16], convertUint64ToBytes(uint64(m.timestamp)))
	copy(header[16:24], convertUint64ToBytes(m.size))
	header = append(header, m.Filename...)
	header = append(header, cfg.MetadataEOFMarker...)
	return header
}

func (m *Metadata) Print() string {
	return fmt.Sprintf("Filename: %s, Size: %d, Timestamp: %d (%s)", m.Filename, m.size, m.timestamp, m.FormatDatetime())
}

func (m *Metadata) FormatDatetime() string {
	t := time.Unix(m.timestamp, 0)
	return t.Local().Format(time.RFC822)
}

func (m *Metadata) Checksum() uint64 {
	return m.checksum
}

func (m *Metadata) Size() uint64 {
	return m.size
}

// Validate compares content against the recorded size and checksum
func (m *Metadata) Validate(content []byte) bool {
	return uint64(len(content)) == m.size && generateChecksum(content) == m.checksum
}

func generateChecksum(content []byte) uint64 {
	hasher := fnv.New64a()
	_, _ = hasher.Write(content)
	return hasher.Sum64()
}

func convertUint64ToBytes(num uint64) []byte {
	byteArray := make([]byte, 8)
	binary.BigEndian.PutUint64(byteArray, num)
	return byteArray
}

// encodeFilename keeps the base name, cut to fit the header
func encodeFilename(path string) string {
	filename := filepath.Base(path)
	if len(filename) > cfg.MetadataMaxFilenameLen {
		ext := filepath.Ext(filename) // with a dot
		maxLen := cfg.MetadataMaxFilenameLen - len(ext) - len(cfg.MetadataFilenameCutDelimeter)
		filename = filename[:maxLen] + cfg.MetadataFilenameCutDelimeter + ext
	}
	return filename
}
