package orchestrator

import (
	"bytes"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/1F47E/go-camreel/internal/cimb"
	"github.com/1F47E/go-camreel/internal/config"
	"github.com/1F47E/go-camreel/internal/encoder"
	"github.com/1F47E/go-camreel/internal/fountain"
	"github.com/1F47E/go-camreel/internal/job"
	"github.com/1F47E/go-camreel/internal/meta"
	"github.com/1F47E/go-camreel/internal/metrics"
	"github.com/1F47E/go-camreel/internal/pipeline"
	"github.com/1F47E/go-camreel/internal/sink"
)

// stalled blocks every frame until release is closed
type stalled struct {
	started chan struct{}
	release chan struct{}
	count   atomic.Int32
}

func (s *stalled) Extract(img image.Image) (pipeline.Extracted, pipeline.Result) {
	s.count.Add(1)
	s.started <- struct{}{}
	<-s.release
	return pipeline.Extracted{}, pipeline.Result{Stage: pipeline.StageNoAnchors}
}

func (s *stalled) Decode(e pipeline.Extracted, res pipeline.Result) pipeline.Result {
	return res
}

func (s *stalled) Mode() pipeline.ModeResult {
	return pipeline.ModeResult{Detected: true, Mode: config.ModeB}
}

func (s *stalled) ChunkSize() int {
	return 896
}

func testConfig(workers int) config.Config {
	cfg := config.Small()
	cfg.Decoder.Workers = workers
	return cfg
}

func blank() job.Frame {
	return job.Frame{Image: image.NewNRGBA(image.Rect(0, 0, 16, 16))}
}

func TestBackpressureDrops(t *testing.T) {
	stub := &stalled{started: make(chan struct{}, 16), release: make(chan struct{})}
	m := metrics.New()
	o, err := New(testConfig(2), t.TempDir(), WithPipeline(stub), WithMetrics(m))
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Start(); err != nil {
		t.Fatal(err)
	}

	// both workers busy
	for i := 0; i < 2; i++ {
		if !o.Submit(blank()) {
			t.Fatalf("frame %d dropped", i)
		}
		<-stub.started
	}
	// one queue slot
	if !o.Submit(blank()) {
		t.Fatal("queued frame dropped")
	}
	if o.Backlog() != 1 {
		t.Errorf("backlog %d", o.Backlog())
	}
	for i := 0; i < 7; i++ {
		if o.Submit(blank()) {
			t.Fatalf("excess frame %d accepted", i)
		}
	}

	close(stub.release)
	if err := o.Stop(); err != nil {
		t.Fatal(err)
	}
	if stub.count.Load() != 3 {
		t.Errorf("processed %d frames, want 3", stub.count.Load())
	}
	snap := o.Metrics()
	if snap.Submitted != 10 || snap.Dropped != 7 || snap.Scanned != 3 {
		t.Errorf("metrics %+v", snap)
	}
}

func TestAbortDropsBacklog(t *testing.T) {
	stub := &stalled{started: make(chan struct{}, 16), release: make(chan struct{})}
	o, err := New(testConfig(2), t.TempDir(), WithPipeline(stub))
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Start(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		o.Submit(blank())
		<-stub.started
	}
	if !o.Submit(blank()) {
		t.Fatal("queued frame dropped")
	}
	if o.Busy() != 2 || o.Status().Busy != 2 {
		t.Errorf("busy %d", o.Busy())
	}

	done := make(chan error)
	go func() { done <- o.Abort() }()
	time.Sleep(50 * time.Millisecond)
	close(stub.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if stub.count.Load() != 2 {
		t.Errorf("processed %d frames, want 2", stub.count.Load())
	}
	if o.Busy() != 0 {
		t.Errorf("busy %d after abort", o.Busy())
	}
	if err := o.Stop(); err != nil {
		t.Errorf("stop after abort: %v", err)
	}
}

func TestLifecycle(t *testing.T) {
	o, err := New(testConfig(1), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if o.Submit(blank()) {
		t.Error("created orchestrator accepted a frame")
	}
	if err := o.Stop(); err != ErrInvalidState {
		t.Errorf("stop before start: %v", err)
	}
	if err := o.Start(); err != nil {
		t.Fatal(err)
	}
	if err := o.Start(); err != ErrInvalidState {
		t.Errorf("second start: %v", err)
	}
	if err := o.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := o.Stop(); err != nil {
		t.Errorf("second stop: %v", err)
	}
	if err := o.Start(); err != ErrInvalidState {
		t.Errorf("restart: %v", err)
	}
	if o.Submit(blank()) {
		t.Error("stopped orchestrator accepted a frame")
	}
}

func TestSinkChunkMismatch(t *testing.T) {
	s := sink.New(t.TempDir(), 128)
	if _, err := New(testConfig(1), t.TempDir(), WithSink(s)); err == nil {
		t.Error("mismatched sink accepted")
	}
	if s.ChunkSize() != 128 {
		t.Errorf("sink chunk changed to %d", s.ChunkSize())
	}
}

type stream struct {
	name    string
	content []byte
	frames  []*image.NRGBA
	cfg     config.Config
}

func newStream(t *testing.T, mode string, size int) *stream {
	t.Helper()
	cfg, err := config.ForMode(config.Small(), mode)
	if err != nil {
		t.Fatal(err)
	}
	content := make([]byte, size)
	rand.New(rand.NewSource(int64(size))).Read(content)
	payload, _, err := meta.Pack("/tmp/input/report.bin", content)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := encoder.NewFrameEncoder(cfg)
	if err != nil {
		t.Fatal(err)
	}
	fe, err := fountain.NewEncoder(rand.Uint32(), payload, enc.ChunkSize(), 1.5)
	if err != nil {
		t.Fatal(err)
	}
	s := &stream{name: "report.bin", content: content, cfg: cfg}
	for i := 0; i < fe.Count(); i++ {
		img, err := enc.EncodeFrame(fe.Symbol(i))
		if err != nil {
			t.Fatal(err)
		}
		s.frames = append(s.frames, img)
	}
	return s
}

// corrupt repaints n random cells of a frame with random tiles and colors
func corrupt(cfg config.Config, img *image.NRGBA, n int, rnd *rand.Rand) {
	positions := cimb.Positions(cfg)
	tiles := cimb.NewTiles(cfg.Codec.SymbolBits)
	palette := cimb.PaletteByName(cfg.Codec.Palette)
	bg := cimb.Background(cfg.Grid.Dark)
	for k := 0; k < n; k++ {
		p := positions[rnd.Intn(len(positions))]
		tile := tiles.Tile(uint32(rnd.Intn(tiles.Len())))
		ink := palette.Ink(uint32(rnd.Intn(1<<uint(cfg.Codec.ColorBits))), cfg.Codec.ColorBits, cfg.Grid.Dark)
		for y := 0; y < cimb.TileSize; y++ {
			for x := 0; x < cimb.TileSize; x++ {
				c := bg
				if tile.Ink(x, y) {
					c = ink
				}
				img.SetNRGBA(p.X+x, p.Y+y, c)
			}
		}
	}
}

func run(t *testing.T, cfg config.Config, dir string, frames []*image.NRGBA) *Orchestrator {
	t.Helper()
	o, err := New(cfg, dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Start(); err != nil {
		t.Fatal(err)
	}
	order := rand.New(rand.NewSource(42)).Perm(len(frames))
	for seq, i := range order {
		f := job.Frame{Image: frames[i], Seq: seq}
		deadline := time.Now().Add(30 * time.Second)
		for !o.Submit(f) {
			if time.Now().After(deadline) {
				t.Fatal("submit timeout")
			}
			time.Sleep(time.Millisecond)
		}
	}
	if err := o.Stop(); err != nil {
		t.Fatal(err)
	}
	return o
}

func checkDecoded(t *testing.T, o *Orchestrator, dir string, s *stream) {
	t.Helper()
	if o.FilesDecoded() != 1 {
		t.Fatalf("decoded %d files, metrics %+v", o.FilesDecoded(), o.Metrics())
	}
	want := []string{filepath.Join(dir, s.name)}
	if got := o.PollDone(); !reflect.DeepEqual(got, want) {
		t.Errorf("poll got %v, want %v", got, want)
	}
	if got := o.PollDone(); len(got) != 0 {
		t.Errorf("second poll got %v", got)
	}
	if got := o.GetDone(); !reflect.DeepEqual(got, want) {
		t.Errorf("done got %v", got)
	}
	data, err := os.ReadFile(want[0])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, s.content) {
		t.Error("decoded content differs")
	}
}

func TestEndToEndShuffled(t *testing.T) {
	s := newStream(t, config.ModeB, 4000)
	dir := t.TempDir()
	o := run(t, testConfig(2), dir, s.frames)
	checkDecoded(t, o, dir, s)
	if o.FilesInFlight() != 0 {
		t.Errorf("in flight %d", o.FilesInFlight())
	}
	st := o.Status()
	if st.Decoded != 1 || st.Threads != 2 || !st.Mode.Detected || st.Metrics.Files != 1 {
		t.Errorf("status %+v", st)
	}
}

func TestEndToEndNoiseBelowCapacity(t *testing.T) {
	s := newStream(t, config.ModeB, 3000)
	rnd := rand.New(rand.NewSource(5))
	for _, img := range s.frames {
		corrupt(s.cfg, img, 5, rnd)
	}
	dir := t.TempDir()
	o := run(t, testConfig(2), dir, s.frames)
	checkDecoded(t, o, dir, s)
}

func TestEndToEndNoiseAboveCapacity(t *testing.T) {
	s := newStream(t, config.ModeB, 3000)
	rnd := rand.New(rand.NewSource(6))
	for _, img := range s.frames {
		corrupt(s.cfg, img, s.cfg.NumValidCells()*6/10, rnd)
	}
	dir := t.TempDir()
	o := run(t, testConfig(2), dir, s.frames)
	if o.FilesDecoded() != 0 || len(o.PollDone()) != 0 {
		t.Fatal("file completed from frames past ecc capacity")
	}
	if _, err := os.Stat(filepath.Join(dir, s.name)); !os.IsNotExist(err) {
		t.Errorf("file written: %v", err)
	}
	if snap := o.Metrics(); snap.Extracted == 0 || snap.Decoded != 0 {
		t.Errorf("metrics %+v", snap)
	}
}

func TestEndToEndAutoDetectLegacy(t *testing.T) {
	s := newStream(t, config.Mode4C, 2500)
	cfg := testConfig(2)
	cfg.Mode = config.ModeAuto
	dir := t.TempDir()
	o := run(t, cfg, dir, s.frames)
	checkDecoded(t, o, dir, s)
	want := pipeline.ModeResult{Detected: true, Mode: config.Mode4C}
	if !reflect.DeepEqual(o.Mode(), want) {
		t.Errorf("mode %+v", o.Mode())
	}
}

func TestEndToEndStaged(t *testing.T) {
	s := newStream(t, config.ModeB, 4000)
	cfg := testConfig(2)
	cfg.Decoder.Staged = true
	cfg.Decoder.StageQueueSize = 64
	dir := t.TempDir()
	o := run(t, cfg, dir, s.frames)
	checkDecoded(t, o, dir, s)
	if o.NumThreads() != 4 {
		t.Errorf("threads %d", o.NumThreads())
	}
}
