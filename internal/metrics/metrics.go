package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Counter int

const (
	FramesSubmitted Counter = iota
	FramesDropped
	FramesScanned
	FramesAnchored // scans that found all 4 anchors
	FramesExtracted
	FramesDecoded // frames that passed error correction
	FramesPerfect
	BytesDecoded
	ScanNanos
	ExtractNanos
	DecodeNanos
	SymbolsRejected // symbols whose header disagrees with their stream
	FilesDone
	numCounters
)

var counterInfo = [numCounters]struct{ name, help string }{
	FramesSubmitted: {"camreel_frames_submitted_total", "Frames offered to the decoder"},
	FramesDropped:   {"camreel_frames_dropped_total", "Frames dropped because the queue was full"},
	FramesScanned:   {"camreel_frames_scanned_total", "Frames scanned for anchors"},
	FramesAnchored:  {"camreel_frames_anchored_total", "Frames with all four anchors found"},
	FramesExtracted: {"camreel_frames_extracted_total", "Frames rectified"},
	FramesDecoded:   {"camreel_frames_decoded_total", "Frames that passed error correction"},
	FramesPerfect:   {"camreel_frames_perfect_total", "Frames decoded above the perfect threshold"},
	BytesDecoded:    {"camreel_bytes_decoded_total", "Bytes recovered from error corrected blocks"},
	ScanNanos:       {"camreel_scan_nanoseconds_total", "Time spent scanning for anchors"},
	ExtractNanos:    {"camreel_extract_nanoseconds_total", "Time spent rectifying frames"},
	DecodeNanos:     {"camreel_decode_nanoseconds_total", "Time spent decoding cells and blocks"},
	SymbolsRejected: {"camreel_symbols_rejected_total", "Fountain symbols dropped for a mismatching stream header"},
	FilesDone:       {"camreel_files_done_total", "Files reassembled and saved"},
}

func (c Counter) String() string {
	if c < 0 || c >= numCounters {
		return "unknown"
	}
	return counterInfo[c].name
}

// Collector receives decoder counters.
// Implementations must be safe for concurrent use.
type Collector interface {
	Inc(c Counter)
	Add(c Counter, n uint64)
}

// Reader is implemented by collectors that can report their values
type Reader interface {
	Snapshot() Snapshot
}

// Metrics keeps counters in atomics and exposes them on a private registry
type Metrics struct {
	counters [numCounters]atomic.Uint64
	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	for i := Counter(0); i < numCounters; i++ {
		c := i
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: counterInfo[c].name,
				Help: counterInfo[c].help,
			},
			func() float64 { return float64(m.counters[c].Load()) },
		))
	}
}

func (m *Metrics) Inc(c Counter) {
	m.counters[c].Add(1)
}

func (m *Metrics) Add(c Counter, n uint64) {
	m.counters[c].Add(n)
}

func (m *Metrics) Get(c Counter) uint64 {
	return m.counters[c].Load()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type Snapshot struct {
	Submitted   uint64
	Dropped     uint64
	Scanned     uint64
	Anchored    uint64
	Extracted   uint64
	Decoded     uint64
	Perfect     uint64
	Bytes       uint64
	ScanTime    time.Duration
	ExtractTime time.Duration
	DecodeTime  time.Duration
	Rejected    uint64
	Files       uint64
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Submitted:   m.Get(FramesSubmitted),
		Dropped:     m.Get(FramesDropped),
		Scanned:     m.Get(FramesScanned),
		Anchored:    m.Get(FramesAnchored),
		Extracted:   m.Get(FramesExtracted),
		Decoded:     m.Get(FramesDecoded),
		Perfect:     m.Get(FramesPerfect),
		Bytes:       m.Get(BytesDecoded),
		ScanTime:    time.Duration(m.Get(ScanNanos)),
		ExtractTime: time.Duration(m.Get(ExtractNanos)),
		DecodeTime:  time.Duration(m.Get(DecodeNanos)),
		Rejected:    m.Get(SymbolsRejected),
		Files:       m.Get(FilesDone),
	}
}

// Discard drops every update
type Discard struct{}

func (Discard) Inc(Counter)         {}
func (Discard) Add(Counter, uint64) {}
