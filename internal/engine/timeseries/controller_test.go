package timeseries

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Faultbox/meshview/internal/engine/loader"
	"github.com/Faultbox/meshview/pkg/vtk"
)

const testPoints = 4

func testFrames(n int) []Frame {
	frames := make([]Frame, n)
	for i := range frames {
		frames[i] = Frame{Path: fmt.Sprintf("frame_%d.vtk", i), Step: i}
	}
	return frames
}

// testParser serves scalar arrays whose first value is the frame step,
// and a wrong-length array for any path containing "bad".
func testParser(path string) (*vtk.Dataset, error) {
	step, err := StepOf(path)
	if err != nil {
		return nil, err
	}
	n := testPoints
	if strings.Contains(path, "bad") {
		n = testPoints + 1
	}
	data := make([]float32, n)
	data[0] = float32(step)
	return &vtk.Dataset{
		Points: make([][3]float32, n),
		PointData: []vtk.Attribute{
			{Name: "p", Kind: vtk.AttrScalar, NumComp: 1, Data: data},
		},
	}, nil
}

func newTestController(n int, opts ...ControllerOption) *Controller {
	opts = append([]ControllerOption{WithParser(testParser)}, opts...)
	return NewController(testFrames(n), testPoints, nil, opts...)
}

func TestController_ScalarsCacheMiss(t *testing.T) {
	c := newTestController(3)

	c.SetFrame(2)
	s := c.Scalars()
	if s == nil {
		t.Fatalf("Scalars() = nil, err = %v", c.Err())
	}
	if s[0] != 2 {
		t.Errorf("scalar[0] = %v, want 2", s[0])
	}
}

func TestController_Prime(t *testing.T) {
	c := newTestController(2)

	if err := c.Prime(0, make([]float32, testPoints)); err != nil {
		t.Fatalf("Prime() error = %v", err)
	}
	if err := c.Prime(0, make([]float32, testPoints+3)); err == nil {
		t.Error("Prime with wrong length must fail")
	}
}

func TestController_PlaybackAdvances(t *testing.T) {
	c := newTestController(4, WithRate(10))
	c.Play()

	if c.State() != Playing {
		t.Fatalf("State() = %v, want playing", c.State())
	}

	// 10 fps: 0.1s per frame
	if changed := c.Tick(0.05); changed {
		t.Error("half a frame interval must not advance")
	}
	if changed := c.Tick(0.05); !changed || c.Frame() != 1 {
		t.Errorf("after full interval: frame = %d, changed = %v", c.Frame(), changed)
	}
	if c.Tick(0.25); c.Frame() != 3 {
		t.Errorf("0.25s at 10fps should land on frame 3, got %d", c.Frame())
	}
}

func TestController_MonotonicUntilWrap(t *testing.T) {
	c := newTestController(5, WithRate(30))
	c.Play()

	prev := c.Frame()
	wraps := 0
	for i := 0; i < 200; i++ {
		c.Tick(0.017)
		cur := c.Frame()
		if cur < prev {
			wraps++
			if cur != 0 {
				t.Fatalf("wrap landed on frame %d, want 0", cur)
			}
		}
		prev = cur
	}
	if wraps == 0 {
		t.Error("playback never wrapped")
	}
	if c.State() != Playing {
		t.Errorf("looping playback stopped: %v", c.State())
	}
}

func TestController_ClampPausesAtEnd(t *testing.T) {
	c := newTestController(3, WithRate(10), WithLoop(false))
	c.Play()

	for i := 0; i < 50; i++ {
		c.Tick(0.1)
	}
	if c.Frame() != 2 {
		t.Errorf("Frame() = %d, want last frame 2", c.Frame())
	}
	if c.State() != Paused {
		t.Errorf("State() = %v, want paused at end", c.State())
	}

	// Play from the end restarts
	c.Play()
	if c.Frame() != 0 || c.State() != Playing {
		t.Errorf("replay: frame = %d state = %v", c.Frame(), c.State())
	}
}

func TestController_Stepping(t *testing.T) {
	c := newTestController(3)

	c.StepBack()
	if c.Frame() != 2 {
		t.Errorf("StepBack from 0 with loop: frame = %d, want 2", c.Frame())
	}
	c.StepForward()
	if c.Frame() != 0 {
		t.Errorf("StepForward wrap: frame = %d, want 0", c.Frame())
	}

	c.ToggleLoop()
	c.StepBack()
	if c.Frame() != 0 {
		t.Errorf("StepBack clamped: frame = %d, want 0", c.Frame())
	}

	c.Play()
	c.StepForward()
	if c.State() != Paused {
		t.Errorf("stepping must pause, got %v", c.State())
	}
}

func TestController_SetRateClamps(t *testing.T) {
	c := newTestController(2)

	c.SetRate(0.01)
	if c.Rate() != MinRate {
		t.Errorf("Rate() = %v, want %v", c.Rate(), MinRate)
	}
	c.SetRate(500)
	if c.Rate() != MaxRate {
		t.Errorf("Rate() = %v, want %v", c.Rate(), MaxRate)
	}
}

func TestController_SetFrameClamps(t *testing.T) {
	c := newTestController(3)

	c.SetFrame(-5)
	if c.Frame() != 0 {
		t.Errorf("Frame() = %d, want 0", c.Frame())
	}
	c.SetFrame(99)
	if c.Frame() != 2 {
		t.Errorf("Frame() = %d, want 2", c.Frame())
	}
}

func TestController_TopologyMismatchRejectsSeries(t *testing.T) {
	frames := testFrames(4)
	frames[2].Path = "frame_bad_2.vtk"
	c := NewController(frames, testPoints, nil, WithParser(testParser))

	// frames before the offender load fine
	c.SetFrame(1)
	if c.Scalars() == nil {
		t.Fatal("frame 1 should load")
	}

	c.SetFrame(2)
	if s := c.Scalars(); s != nil {
		t.Fatal("mismatched frame must not yield scalars")
	}

	var topoErr *TopologyError
	if !errors.As(c.Err(), &topoErr) {
		t.Fatalf("Err() = %v, want TopologyError", c.Err())
	}
	if topoErr.Path != "frame_bad_2.vtk" {
		t.Errorf("error names %q, want the offending file", topoErr.Path)
	}

	// everything is discarded, including previously loaded frames
	if c.State() != Stopped {
		t.Errorf("State() = %v, want stopped", c.State())
	}
	for i, s := range c.scalars {
		if s != nil {
			t.Errorf("frame %d still cached after rejection", i)
		}
	}
	c.Play()
	if c.State() != Stopped {
		t.Error("rejected series must not play")
	}
}

func TestController_BackgroundPrefetch(t *testing.T) {
	pool := loader.New(2, 16, loader.WithParser(testParser))
	defer pool.Close()

	syncCalls := 0
	countingParser := func(path string) (*vtk.Dataset, error) {
		syncCalls++
		return testParser(path)
	}

	c := NewController(testFrames(4), testPoints, pool, WithParser(countingParser))

	deadline := time.After(2 * time.Second)
	for {
		c.Tick(0)
		if c.Err() != nil {
			t.Fatalf("Err() = %v", c.Err())
		}
		if allLoaded(c) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("prefetch never completed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	for i := range c.scalars {
		c.SetFrame(i)
		if s := c.Scalars(); s == nil || s[0] != float32(i) {
			t.Errorf("frame %d scalars = %v", i, s)
		}
	}
	if syncCalls != 0 {
		t.Errorf("prefetched frames hit the synchronous parser %d times", syncCalls)
	}
}

func allLoaded(c *Controller) bool {
	for _, s := range c.scalars {
		if s == nil {
			return false
		}
	}
	return true
}

func TestNewController_PrefetchSubmitNeverBlocks(t *testing.T) {
	gate := make(chan struct{})
	stuck := func(path string) (*vtk.Dataset, error) {
		<-gate
		return testParser(path)
	}

	// the pool follows the series size, so every prefetch job must fit
	// in the queue even while the lone worker is wedged
	frames := testFrames(20)
	pool := loader.New(1, len(frames), loader.WithParser(stuck))
	defer pool.Close()
	defer close(gate)

	done := make(chan struct{})
	go func() {
		NewController(frames, testPoints, pool, WithParser(testParser))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("NewController blocked submitting prefetch jobs")
	}
}

func TestController_RejectionNamesLowestIndexOffender(t *testing.T) {
	frames := testFrames(6)
	frames[1].Path = "frame_bad_1.vtk"
	frames[4].Path = "frame_bad_4.vtk"

	// hold the early offender so the later one finishes first
	gate := make(chan struct{})
	parse := func(path string) (*vtk.Dataset, error) {
		if strings.Contains(path, "bad_1") {
			<-gate
		}
		return testParser(path)
	}

	pool := loader.New(2, 16, loader.WithParser(parse))
	defer pool.Close()

	c := NewController(frames, testPoints, pool, WithParser(testParser))

	waitResolved(t, c, 4)
	if c.Err() != nil {
		t.Fatalf("rejected before frame 1 resolved: %v", c.Err())
	}

	close(gate)
	deadline := time.After(2 * time.Second)
	for c.Err() == nil {
		c.Tick(0)
		select {
		case <-deadline:
			t.Fatal("series never rejected")
		case <-time.After(5 * time.Millisecond):
		}
	}

	var topoErr *TopologyError
	if !errors.As(c.Err(), &topoErr) {
		t.Fatalf("Err() = %v, want TopologyError", c.Err())
	}
	if topoErr.Path != "frame_bad_1.vtk" {
		t.Errorf("error names %q, want frame_bad_1.vtk", topoErr.Path)
	}
}

func waitResolved(t *testing.T, c *Controller, index int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !c.resolved[index] {
		c.Tick(0)
		select {
		case <-deadline:
			t.Fatalf("frame %d never resolved", index)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestController_BackgroundMismatchRejects(t *testing.T) {
	frames := testFrames(4)
	frames[3].Path = "frame_bad_3.vtk"

	pool := loader.New(1, 16, loader.WithParser(testParser))
	defer pool.Close()

	c := NewController(frames, testPoints, pool, WithParser(testParser))

	deadline := time.After(2 * time.Second)
	for c.Err() == nil {
		c.Tick(0)
		select {
		case <-deadline:
			t.Fatal("mismatch never surfaced")
		case <-time.After(5 * time.Millisecond):
		}
	}

	var topoErr *TopologyError
	if !errors.As(c.Err(), &topoErr) {
		t.Fatalf("Err() = %v, want TopologyError", c.Err())
	}
	if topoErr.Path != "frame_bad_3.vtk" {
		t.Errorf("error names %q, want frame_bad_3.vtk", topoErr.Path)
	}
}
