package trajectory

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/surfroll/internal/physics"
	"github.com/Faultbox/surfroll/internal/simulation"
	"github.com/Faultbox/surfroll/internal/terrain"
	"github.com/Faultbox/surfroll/pkg/math"
)

var fixedClock = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

func newTestWriter(t *testing.T, every int) (*Writer, Manifest) {
	t.Helper()
	w, m, err := NewWriter(t.TempDir(), "Test Run!", Options{Dt: 0.01, Every: every, Bodies: 2, Clock: fixedClock})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	return w, m
}

func TestNewWriter_Manifest(t *testing.T) {
	w, m := newTestWriter(t, 3)
	defer w.Close()

	if filepath.Base(w.Directory()) != "TestRun-20260304T050607Z" {
		t.Errorf("unexpected bundle directory %s", w.Directory())
	}

	data, err := os.ReadFile(filepath.Join(w.Directory(), ManifestFile))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var onDisk Manifest
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if onDisk != m {
		t.Errorf("manifest on disk %+v differs from returned %+v", onDisk, m)
	}
	if m.Every != 3 || m.Bodies != 2 || m.Dt != 0.01 {
		t.Errorf("unexpected manifest %+v", m)
	}

	if _, _, err := NewWriter("", "x", Options{}); err == nil {
		t.Error("expected error for empty root")
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	w, _ := newTestWriter(t, 2)

	sample := func(tick uint64) simulation.Frame {
		return simulation.Frame{
			Tick: tick,
			Time: float64(tick) * 0.01,
			Bodies: []simulation.BodySample{
				{Index: 0, State: physics.StateActive, Position: math.Vec3{X: 1, Y: 2, Z: 3}, Velocity: math.Vec3{X: -0.5}, Triangle: 7},
				{Index: 1, State: physics.StateDisabled, Position: math.Vec3{X: -1e9, Y: 0.25}, Triangle: -1},
			},
		}
	}
	for tick := uint64(1); tick <= 6; tick++ {
		if err := w.WriteFrame(sample(tick)); err != nil {
			t.Fatalf("WriteFrame(%d) failed: %v", tick, err)
		}
	}
	event := simulation.Event{Tick: 5, Time: 0.05, Type: simulation.EventDisabled, Body: 1, Position: math.Vec3{X: 2.5}}
	if err := w.WriteEvent(event); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}

	if w.FrameCount() != 3 {
		t.Errorf("expected 3 frames at every=2, got %d", w.FrameCount())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}

	r, err := Open(w.Directory())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	frames, err := r.Frames()
	if err != nil {
		t.Fatalf("Frames failed: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for i, f := range frames {
		want := sample(uint64(2 * (i + 1)))
		if f.Tick != want.Tick || f.Time != want.Time {
			t.Errorf("frame %d: tick/time %d/%v, want %d/%v", i, f.Tick, f.Time, want.Tick, want.Time)
		}
		for j := range want.Bodies {
			if f.Bodies[j] != want.Bodies[j] {
				t.Errorf("frame %d body %d: got %+v, want %+v", i, j, f.Bodies[j], want.Bodies[j])
			}
		}
	}

	events, err := r.Events()
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 || events[0] != event {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestWriter_Closed(t *testing.T) {
	w, _ := newTestWriter(t, 1)
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := w.WriteFrame(simulation.Frame{Tick: 1}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from WriteFrame, got %v", err)
	}
	if err := w.WriteEvent(simulation.Event{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from WriteEvent, got %v", err)
	}
}

func TestWriter_RecordsWorld(t *testing.T) {
	heights := [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}
	vertices, records, err := terrain.BuildGrid(heights, 1, math.Vec3{})
	if err != nil {
		t.Fatalf("BuildGrid failed: %v", err)
	}
	mesh, err := terrain.NewMesh(vertices, records)
	if err != nil {
		t.Fatalf("NewMesh failed: %v", err)
	}
	surface := terrain.NewSurface(mesh, nil)

	body, err := physics.NewBody(physics.Params{
		Position: math.Vec3{X: 1, Y: 0.5, Z: 1},
		Velocity: math.Vec3{X: 5},
		Mass:     1,
		Radius:   0.5,
		Triangle: -1,
	})
	if err != nil {
		t.Fatalf("NewBody failed: %v", err)
	}
	world := simulation.NewWorld(surface, []*physics.Body{body}, simulation.Options{Dt: 0.01, Gravity: physics.DefaultGravity})

	w, _, err := NewWriter(t.TempDir(), "world", Options{Dt: 0.01, Every: 1, Bodies: 1, Clock: fixedClock})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	world.AddSink(w)

	if err := world.Run(context.Background(), 500); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := Open(w.Directory())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	frames, err := r.Frames()
	if err != nil {
		t.Fatalf("Frames failed: %v", err)
	}
	if uint64(len(frames)) != world.TickCount() {
		t.Errorf("expected a frame per tick (%d), got %d", world.TickCount(), len(frames))
	}
	if last := frames[len(frames)-1]; last.Bodies[0].State != physics.StateDisabled {
		t.Errorf("last recorded state should be disabled, got %s", last.Bodies[0].State)
	}

	events, err := r.Events()
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 || events[0].Type != simulation.EventDisabled {
		t.Errorf("expected one disabled event, got %+v", events)
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("expected error for missing manifest")
	}

	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, ManifestFile), []byte(`{"version": 99}`), 0o644)
	if _, err := Open(dir); err == nil || !strings.Contains(err.Error(), "version") {
		t.Errorf("expected version error, got %v", err)
	}
}

func TestReader_CorruptFrame(t *testing.T) {
	w, _ := newTestWriter(t, 1)
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// overwrite the frame stream with a frame claiming two bodies but carrying none
	f, err := os.Create(filepath.Join(w.Directory(), FramesFile))
	if err != nil {
		t.Fatalf("create frames: %v", err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	payload := make([]byte, frameHeaderSize)
	payload[16] = 2
	enc.Write([]byte{byte(len(payload)), 0, 0, 0})
	enc.Write(payload)
	enc.Close()
	f.Close()

	r, err := Open(w.Directory())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := r.Frames(); !errors.Is(err, ErrCorruptFrame) {
		t.Errorf("expected ErrCorruptFrame, got %v", err)
	}
}
