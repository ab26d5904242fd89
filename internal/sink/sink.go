package sink

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/1F47E/go-camreel/internal/fountain"
	"github.com/1F47E/go-camreel/internal/logger"
	"github.com/1F47E/go-camreel/internal/meta"
	"github.com/1F47E/go-camreel/internal/metrics"
	"github.com/1F47E/go-camreel/internal/storage"
)

var ErrChunkSizeMismatch = errors.New("sink: chunk size differs from the initialized one")

type Option func(*Sink)

// WithMetrics counts rejected symbols and saved files
func WithMetrics(c metrics.Collector) Option {
	return func(s *Sink) {
		s.metrics = c
	}
}

// WithOnDone registers a callback run by the drainer after a file is saved
func WithOnDone(fn func(path string, m meta.Metadata)) Option {
	return func(s *Sink) {
		s.onDone = fn
	}
}

// Sink reassembles files from fountain symbols of any number of streams.
// Submit never blocks: symbols are queued and whichever producer wins the
// drain lock feeds them to the stream decoders.
type Sink struct {
	dir    string
	chunk  atomic.Int64
	queue  *queue
	log    *logrus.Entry
	onDone  func(string, meta.Metadata)
	metrics metrics.Collector

	// owned by the drainer
	mu      sync.Mutex
	streams map[uint32]*fountain.Decoder
	done    map[uint32]struct{}

	// snapshots for readers
	stats    sync.RWMutex
	doneList []string
	progress map[uint32]float64
}

// New creates a sink writing files into dir. A zero chunkSize leaves the
// sink unconfigured until Reconfigure.
func New(dir string, chunkSize int, opts ...Option) *Sink {
	s := &Sink{
		dir:      dir,
		queue:    newQueue(),
		log:      logger.Scope("sink"),
		streams:  make(map[uint32]*fountain.Decoder),
		done:     make(map[uint32]struct{}),
		progress: make(map[uint32]float64),
		metrics:  metrics.Discard{},
	}
	s.chunk.Store(int64(chunkSize))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) ChunkSize() int {
	return int(s.chunk.Load())
}

// Reconfigure sets the chunk size of an unconfigured sink. Once set it
// can't change, and a different value is rejected with the state kept.
func (s *Sink) Reconfigure(chunkSize int) error {
	if chunkSize <= 0 || chunkSize%fountain.ShardAlign != 0 {
		return errors.Errorf("sink: invalid chunk size %d", chunkSize)
	}
	if s.chunk.CompareAndSwap(0, int64(chunkSize)) {
		return nil
	}
	if cur := s.chunk.Load(); cur != int64(chunkSize) {
		return errors.Wrapf(ErrChunkSizeMismatch, "have %d, got %d", cur, chunkSize)
	}
	return nil
}

// Submit queues a corrected symbol and drains if nobody else is
func (s *Sink) Submit(symbol []byte) {
	s.queue.push(symbol)
	for s.mu.TryLock() {
		s.drain()
		s.mu.Unlock()
		if s.queue.empty() {
			return
		}
	}
}

// Flush drains everything queued, waiting for the lock
func (s *Sink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drain()
}

func (s *Sink) drain() {
	for {
		symbol, ok := s.queue.pop()
		if !ok {
			return
		}
		s.add(symbol)
	}
}

func (s *Sink) add(symbol []byte) {
	chunk := int(s.chunk.Load())
	if chunk == 0 {
		s.log.Debug("symbol before chunk size is known, dropped")
		return
	}
	h, err := fountain.ParseHeader(symbol)
	if err != nil {
		s.log.Debugf("bad symbol: %v", err)
		return
	}
	if _, ok := s.done[h.StreamID]; ok {
		return
	}

	// the first header seen for a stream wins; a later disagreeing one
	// is taken as a miscorrection
	dec := s.streams[h.StreamID]
	if dec == nil {
		dec, err = fountain.NewDecoder(h, chunk)
		if err != nil {
			s.log.Debugf("stream %08x: %v", h.StreamID, err)
			return
		}
		s.streams[h.StreamID] = dec
	} else if dh := dec.Header(); dh.Size != h.Size || dh.Total != h.Total {
		s.metrics.Inc(metrics.SymbolsRejected)
		s.log.Debugf("stream %08x: header %d/%d, have %d/%d, symbol dropped",
			h.StreamID, h.Size, h.Total, dh.Size, dh.Total)
		return
	}

	added, err := dec.Add(symbol)
	if err != nil {
		s.log.Debugf("stream %08x: %v", h.StreamID, err)
		return
	}
	if !added {
		return
	}
	if dec.Complete() {
		s.complete(dec)
		return
	}
	s.stats.Lock()
	s.progress[h.StreamID] = dec.Progress()
	s.stats.Unlock()
}

func (s *Sink) complete(dec *fountain.Decoder) {
	h := dec.Header()
	log := s.log.WithField("stream", fmt.Sprintf("%08x", h.StreamID))

	payload, err := dec.Reconstruct()
	if err != nil {
		log.Warnf("reconstruct: %v", err)
		s.reset(dec)
		return
	}
	m, content, err := meta.Unpack(payload)
	if err != nil {
		log.Warnf("payload rejected, stream reset: %v", err)
		s.reset(dec)
		return
	}
	tag := fmt.Sprintf("%08x", h.StreamID)
	name := storage.SafeName(m.Filename, "stream_"+tag+".bin")
	path, err := storage.SaveDecoded(s.dir, name, tag, content)
	if err != nil {
		// keep the shards, the next new symbol retries the save
		log.Errorf("save %s: %v", name, err)
		return
	}
	log.Infof("decoded %s", path)

	delete(s.streams, h.StreamID)
	s.done[h.StreamID] = struct{}{}
	s.stats.Lock()
	delete(s.progress, h.StreamID)
	s.doneList = append(s.doneList, path)
	s.stats.Unlock()

	s.metrics.Inc(metrics.FilesDone)
	if s.onDone != nil {
		s.onDone(path, m)
	}
}

func (s *Sink) reset(dec *fountain.Decoder) {
	dec.Reset()
	s.stats.Lock()
	s.progress[dec.StreamID()] = 0
	s.stats.Unlock()
}

// GetDone lists completed files in completion order
func (s *Sink) GetDone() []string {
	s.stats.RLock()
	defer s.stats.RUnlock()
	res := make([]string, len(s.doneList))
	copy(res, s.doneList)
	return res
}

func (s *Sink) NumDone() int {
	s.stats.RLock()
	defer s.stats.RUnlock()
	return len(s.doneList)
}

// NumStreams is the number of files in flight
func (s *Sink) NumStreams() int {
	s.stats.RLock()
	defer s.stats.RUnlock()
	return len(s.progress)
}

// GetProgress returns the fraction received of every in-flight file, by stream id
func (s *Sink) GetProgress() []float64 {
	s.stats.RLock()
	defer s.stats.RUnlock()
	ids := make([]uint32, 0, len(s.progress))
	for id := range s.progress {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	res := make([]float64, len(ids))
	for i, id := range ids {
		res[i] = s.progress[id]
	}
	return res
}
