package trajectory

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	gomath "math"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/surfroll/internal/physics"
	"github.com/Faultbox/surfroll/internal/simulation"
	"github.com/Faultbox/surfroll/pkg/math"
)

// ErrCorruptFrame reports a frame whose payload does not match its declared layout.
var ErrCorruptFrame = errors.New("corrupt trajectory frame")

// maxFrameSize bounds a single frame payload when reading untrusted bundles.
const maxFrameSize = 64 << 20

// Reader reads a bundle written by Writer.
type Reader struct {
	dir      string
	manifest Manifest
}

// Open reads the manifest of the bundle in dir.
func Open(dir string) (*Reader, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported trajectory version %d", m.Version)
	}
	return &Reader{dir: dir, manifest: m}, nil
}

// Manifest returns the bundle manifest.
func (r *Reader) Manifest() Manifest {
	return r.manifest
}

// EachFrame decodes frames in order and calls fn for each. Returning an error from fn stops
// the iteration and returns that error.
func (r *Reader) EachFrame(fn func(simulation.Frame) error) error {
	f, err := os.Open(filepath.Join(r.dir, r.manifest.FramesPath))
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	var prefix [4]byte
	for {
		if _, err := io.ReadFull(dec, prefix[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrCorruptFrame, err)
		}
		size := binary.LittleEndian.Uint32(prefix[:])
		if size > maxFrameSize {
			return fmt.Errorf("%w: frame of %d bytes", ErrCorruptFrame, size)
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(dec, payload); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptFrame, err)
		}
		frame, err := decodeFrame(payload)
		if err != nil {
			return err
		}
		if err := fn(frame); err != nil {
			return err
		}
	}
}

// Frames decodes every frame in the bundle.
func (r *Reader) Frames() ([]simulation.Frame, error) {
	var frames []simulation.Frame
	err := r.EachFrame(func(f simulation.Frame) error {
		frames = append(frames, f)
		return nil
	})
	return frames, err
}

// Events decodes every event in the bundle.
func (r *Reader) Events() ([]simulation.Event, error) {
	f, err := os.Open(filepath.Join(r.dir, r.manifest.EventsPath))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []simulation.Event
	scanner := bufio.NewScanner(snappy.NewReader(f))
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e simulation.Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("parsing event %d: %w", len(events), err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func decodeFrame(buf []byte) (simulation.Frame, error) {
	if len(buf) < frameHeaderSize {
		return simulation.Frame{}, fmt.Errorf("%w: %d byte header", ErrCorruptFrame, len(buf))
	}
	f := simulation.Frame{
		Tick: binary.LittleEndian.Uint64(buf[0:8]),
		Time: gomath.Float64frombits(binary.LittleEndian.Uint64(buf[8:16])),
	}
	count := int(binary.LittleEndian.Uint32(buf[16:20]))
	if len(buf) != frameHeaderSize+count*bodyRecordSize {
		return simulation.Frame{}, fmt.Errorf("%w: %d bodies in %d bytes", ErrCorruptFrame, count, len(buf))
	}

	f.Bodies = make([]simulation.BodySample, count)
	off := frameHeaderSize
	for i := range f.Bodies {
		var v [6]float64
		for k := range v {
			v[k] = gomath.Float64frombits(binary.LittleEndian.Uint64(buf[off+9+8*k:]))
		}
		f.Bodies[i] = simulation.BodySample{
			Index:    int(binary.LittleEndian.Uint32(buf[off:])),
			State:    physics.State(buf[off+4]),
			Triangle: int(int32(binary.LittleEndian.Uint32(buf[off+5:]))),
			Position: math.Vec3{X: v[0], Y: v[1], Z: v[2]},
			Velocity: math.Vec3{X: v[3], Y: v[4], Z: v[5]},
		}
		off += bodyRecordSize
	}
	return f, nil
}
