// Package trajectory records simulation frames and events to a compressed bundle on disk and
// reads them back.
//
// A bundle is a directory holding:
//
//	manifest.json    bundle metadata
//	frames.bin.zst   zstd stream of length-prefixed little-endian frames
//	events.jsonl.sz  snappy-framed JSON lines, one per event
package trajectory

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	gomath "math"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/surfroll/internal/simulation"
)

// Bundle file names.
const (
	ManifestFile = "manifest.json"
	FramesFile   = "frames.bin.zst"
	EventsFile   = "events.jsonl.sz"
)

// FormatVersion is the bundle layout version written to the manifest.
const FormatVersion = 1

// ErrClosed is returned when writing to a closed Writer.
var ErrClosed = errors.New("trajectory writer closed")

var nameCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Manifest describes a bundle so tooling can locate and interpret its artefacts.
type Manifest struct {
	Version    int     `json:"version"`
	CreatedAt  string  `json:"created_at"`
	Dt         float64 `json:"dt"`
	Every      int     `json:"every"`
	Bodies     int     `json:"bodies"`
	FramesPath string  `json:"frames_path"`
	EventsPath string  `json:"events_path"`
}

// Options configures a Writer.
type Options struct {
	Dt     float64
	Every  int // Record frames whose tick is a multiple of Every
	Bodies int
	Clock  func() time.Time
}

// Writer streams frames and events into a bundle. It implements simulation.Sink and is safe
// for concurrent use.
type Writer struct {
	mu          sync.Mutex
	dir         string
	every       uint64
	frameFile   *os.File
	frameStream *zstd.Encoder
	eventFile   *os.File
	eventStream *snappy.Writer
	frames      int
	closed      bool
}

// NewWriter creates a bundle directory named after name and the creation time under root.
func NewWriter(root, name string, opts Options) (*Writer, Manifest, error) {
	if root == "" {
		return nil, Manifest{}, fmt.Errorf("trajectory root must be provided")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Every < 1 {
		opts.Every = 1
	}

	cleaned := nameCleaner.ReplaceAllString(name, "")
	if cleaned == "" {
		cleaned = "run"
	}
	created := opts.Clock().UTC()
	dir := filepath.Join(root, fmt.Sprintf("%s-%s", cleaned, created.Format("20060102T150405Z")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, Manifest{}, err
	}

	manifest := Manifest{
		Version:    FormatVersion,
		CreatedAt:  created.Format(time.RFC3339Nano),
		Dt:         opts.Dt,
		Every:      opts.Every,
		Bodies:     opts.Bodies,
		FramesPath: FramesFile,
		EventsPath: EventsFile,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, Manifest{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644); err != nil {
		return nil, Manifest{}, err
	}

	frameFile, err := os.Create(filepath.Join(dir, FramesFile))
	if err != nil {
		return nil, Manifest{}, err
	}
	frameStream, err := zstd.NewWriter(frameFile)
	if err != nil {
		frameFile.Close()
		return nil, Manifest{}, err
	}
	eventFile, err := os.Create(filepath.Join(dir, EventsFile))
	if err != nil {
		frameStream.Close()
		frameFile.Close()
		return nil, Manifest{}, err
	}

	return &Writer{
		dir:         dir,
		every:       uint64(opts.Every),
		frameFile:   frameFile,
		frameStream: frameStream,
		eventFile:   eventFile,
		eventStream: snappy.NewBufferedWriter(eventFile),
	}, manifest, nil
}

// Directory returns the bundle directory.
func (w *Writer) Directory() string {
	return w.dir
}

// FrameCount returns the number of frames written so far.
func (w *Writer) FrameCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// WriteFrame records f if its tick falls on the recording cadence.
func (w *Writer) WriteFrame(f simulation.Frame) error {
	if f.Tick%w.every != 0 {
		return nil
	}
	payload := encodeFrame(f)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := w.frameStream.Write(prefix[:]); err != nil {
		return err
	}
	if _, err := w.frameStream.Write(payload); err != nil {
		return err
	}
	w.frames++
	return nil
}

// WriteEvent appends e as one JSON line and flushes it, so events survive a crash.
func (w *Writer) WriteEvent(e simulation.Event) error {
	line, err := json.Marshal(e)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	if _, err := w.eventStream.Write(append(line, '\n')); err != nil {
		return err
	}
	return w.eventStream.Flush()
}

// Close flushes both streams and releases the files. It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	// attempt every close and report the first failure
	var firstErr error
	if err := w.frameStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.frameFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.eventStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.eventFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Frame payload layout, little-endian:
//
//	tick     uint64
//	time     float64
//	count    uint32
//	count x { index uint32, state uint8, triangle int32, position 3 x float64, velocity 3 x float64 }
const (
	frameHeaderSize = 8 + 8 + 4
	bodyRecordSize  = 4 + 1 + 4 + 6*8
)

func encodeFrame(f simulation.Frame) []byte {
	buf := make([]byte, frameHeaderSize+len(f.Bodies)*bodyRecordSize)
	binary.LittleEndian.PutUint64(buf[0:8], f.Tick)
	binary.LittleEndian.PutUint64(buf[8:16], gomath.Float64bits(f.Time))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(f.Bodies)))

	off := frameHeaderSize
	for _, b := range f.Bodies {
		binary.LittleEndian.PutUint32(buf[off:], uint32(b.Index))
		buf[off+4] = byte(b.State)
		binary.LittleEndian.PutUint32(buf[off+5:], uint32(int32(b.Triangle)))
		off += 9
		for _, v := range [6]float64{b.Position.X, b.Position.Y, b.Position.Z, b.Velocity.X, b.Velocity.Y, b.Velocity.Z} {
			binary.LittleEndian.PutUint64(buf[off:], gomath.Float64bits(v))
			off += 8
		}
	}
	return buf
}
