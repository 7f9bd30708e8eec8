package timeseries

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/loader"
	"github.com/Faultbox/meshview/pkg/vtk"
)

// State is the playback state.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Playback rate bounds in frames per second.
const (
	MinRate     = 0.1
	MaxRate     = 60.0
	DefaultRate = 5.0
)

// TopologyError reports a frame whose point data does not line up with
// the topology of the first frame. The whole series is rejected.
type TopologyError struct {
	Path string
	Got  int
	Want int
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("timeseries: %s has %d point values, base topology has %d points",
		e.Path, e.Got, e.Want)
}

// Controller owns stage-two loading and playback for one series. It is
// driven from a single goroutine; the loader pool does the concurrent
// work.
type Controller struct {
	frames     []Frame
	scalars    [][]float32
	pointCount int

	pool  *loader.Pool
	parse func(string) (*vtk.Dataset, error)
	log   *zap.Logger

	// per-frame prefetch bookkeeping: results arrive in worker
	// completion order, but failures must surface in frame order
	resolved []bool
	loadErrs []error
	scanned  int

	cur   int
	state State
	rate  float32
	loop  bool
	acc   float32
	err   error
}

// ControllerOption adjusts controller construction.
type ControllerOption func(*Controller)

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) ControllerOption {
	return func(c *Controller) { c.log = log }
}

// WithParser replaces the synchronous cache-miss parser.
func WithParser(fn func(string) (*vtk.Dataset, error)) ControllerOption {
	return func(c *Controller) { c.parse = fn }
}

// WithRate sets the initial playback rate.
func WithRate(fps float32) ControllerOption {
	return func(c *Controller) { c.rate = clampRate(fps) }
}

// WithLoop sets the initial wrap behavior.
func WithLoop(loop bool) ControllerOption {
	return func(c *Controller) { c.loop = loop }
}

func clampRate(fps float32) float32 {
	if fps < MinRate {
		return MinRate
	}
	if fps > MaxRate {
		return MaxRate
	}
	return fps
}

// NewController wires a discovered series to a loader pool and queues
// background prefetch for every frame. pointCount is the point count of
// the first frame's topology, which every frame must match.
func NewController(frames []Frame, pointCount int, pool *loader.Pool, opts ...ControllerOption) *Controller {
	c := &Controller{
		frames:     frames,
		scalars:    make([][]float32, len(frames)),
		resolved:   make([]bool, len(frames)),
		loadErrs:   make([]error, len(frames)),
		pointCount: pointCount,
		pool:       pool,
		parse:      vtk.Load,
		log:        zap.NewNop(),
		rate:       DefaultRate,
		loop:       true,
	}
	for _, opt := range opts {
		opt(c)
	}

	if pool != nil {
		for i, f := range frames {
			pool.Submit(loader.Job{Path: f.Path, Index: i})
		}
	}
	return c
}

// Prime installs already-known scalars for a frame, typically frame 0
// whose dataset was parsed in full during stage one.
func (c *Controller) Prime(index int, scalars []float32) error {
	if len(scalars) != c.pointCount {
		return &TopologyError{Path: c.frames[index].Path, Got: len(scalars), Want: c.pointCount}
	}
	c.scalars[index] = scalars
	return nil
}

// Tick drains finished background loads and advances playback by dt
// seconds. It reports whether the scalars to display have changed.
func (c *Controller) Tick(dt float32) bool {
	if c.err != nil {
		return false
	}

	changed := c.drain()

	if c.state != Playing || len(c.frames) < 2 {
		return changed
	}

	c.acc += dt * c.rate
	steps := int(c.acc)
	if steps == 0 {
		return changed
	}
	c.acc -= float32(steps)

	next := c.cur + steps
	if next >= len(c.frames) {
		if c.loop {
			next %= len(c.frames)
		} else {
			next = len(c.frames) - 1
			c.state = Paused
		}
	}
	if next != c.cur {
		c.cur = next
		changed = true
	}
	return changed
}

func (c *Controller) drain() bool {
	if c.pool == nil {
		return false
	}

	changed := false
	for {
		r, ok := c.pool.Poll()
		if !ok {
			break
		}
		c.resolved[r.Index] = true
		if r.Err != nil {
			c.loadErrs[r.Index] = fmt.Errorf("timeseries: load %s: %w", r.Path, r.Err)
		} else if err := c.store(r.Index, r.Dataset); err != nil {
			c.loadErrs[r.Index] = err
		} else if r.Index == c.cur {
			changed = true
		}
	}

	// a bad frame only rejects the series once every earlier frame has
	// resolved, so the error always names the lowest-index offender no
	// matter which worker finished first
	for c.scanned < len(c.frames) && c.resolved[c.scanned] {
		if err := c.loadErrs[c.scanned]; err != nil {
			c.fail(err)
			return false
		}
		c.scanned++
	}
	return changed
}

func (c *Controller) store(index int, ds *vtk.Dataset) error {
	if c.scalars[index] != nil {
		return nil
	}
	s, err := frameScalars(ds)
	if err != nil {
		return fmt.Errorf("%w: %s", err, c.frames[index].Path)
	}
	if len(s) != c.pointCount {
		return &TopologyError{Path: c.frames[index].Path, Got: len(s), Want: c.pointCount}
	}
	c.scalars[index] = s
	return nil
}

// fail rejects the whole series. A partially consistent animation is
// worse than none.
func (c *Controller) fail(err error) {
	c.log.Error("series rejected", zap.Error(err))
	c.err = err
	c.state = Stopped
	c.scalars = make([][]float32, len(c.frames))
	c.cur = 0
	c.acc = 0
	if c.pool != nil {
		c.pool.Cancel()
	}
}

// Scalars returns the current frame's scalar array, parsing it
// synchronously when the prefetch has not delivered it yet. It returns
// nil once the series has been rejected.
func (c *Controller) Scalars() []float32 {
	if c.err != nil || len(c.frames) == 0 {
		return nil
	}
	if s := c.scalars[c.cur]; s != nil {
		return s
	}

	ds, err := c.parse(c.frames[c.cur].Path)
	if err != nil {
		c.fail(fmt.Errorf("timeseries: load %s: %w", c.frames[c.cur].Path, err))
		return nil
	}
	if err := c.store(c.cur, ds); err != nil {
		c.fail(err)
		return nil
	}
	return c.scalars[c.cur]
}

// Play starts or resumes playback.
func (c *Controller) Play() {
	if c.err != nil || len(c.frames) < 2 {
		return
	}
	if c.state != Playing && !c.loop && c.cur == len(c.frames)-1 {
		c.cur = 0
	}
	c.state = Playing
}

// Pause freezes playback on the current frame.
func (c *Controller) Pause() {
	if c.state == Playing {
		c.state = Paused
	}
}

// Stop halts playback and rewinds to the first frame.
func (c *Controller) Stop() {
	c.state = Stopped
	c.cur = 0
	c.acc = 0
}

// TogglePlay flips between playing and paused.
func (c *Controller) TogglePlay() {
	if c.state == Playing {
		c.Pause()
	} else {
		c.Play()
	}
}

// SetFrame jumps to the given frame, clamped to the series.
func (c *Controller) SetFrame(i int) {
	if len(c.frames) == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(c.frames) {
		i = len(c.frames) - 1
	}
	c.cur = i
	c.acc = 0
}

// StepForward pauses and advances one frame, wrapping when looping.
func (c *Controller) StepForward() {
	c.step(1)
}

// StepBack pauses and rewinds one frame, wrapping when looping.
func (c *Controller) StepBack() {
	c.step(-1)
}

func (c *Controller) step(delta int) {
	if len(c.frames) == 0 {
		return
	}
	c.Pause()

	next := c.cur + delta
	if c.loop {
		next = ((next % len(c.frames)) + len(c.frames)) % len(c.frames)
	} else if next < 0 {
		next = 0
	} else if next >= len(c.frames) {
		next = len(c.frames) - 1
	}
	c.cur = next
	c.acc = 0
}

// SetRate sets the playback rate, clamped to [MinRate, MaxRate].
func (c *Controller) SetRate(fps float32) {
	c.rate = clampRate(fps)
}

// ToggleLoop flips wrap-around playback.
func (c *Controller) ToggleLoop() {
	c.loop = !c.loop
}

// Frame returns the current frame index.
func (c *Controller) Frame() int { return c.cur }

// Len returns the number of frames.
func (c *Controller) Len() int { return len(c.frames) }

// State returns the playback state.
func (c *Controller) State() State { return c.state }

// Rate returns the playback rate in frames per second.
func (c *Controller) Rate() float32 { return c.rate }

// Looping reports whether playback wraps at the end.
func (c *Controller) Looping() bool { return c.loop }

// Err returns the error that rejected the series, if any.
func (c *Controller) Err() error { return c.err }
