// Package viewer implements the interactive application loop: it wires
// the dataset pipeline to the window, camera and renderer and drives
// time-series playback.
package viewer

import (
	"fmt"
	"os"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/engine/colormap"
	"github.com/Faultbox/meshview/internal/engine/input"
	"github.com/Faultbox/meshview/internal/engine/loader"
	"github.com/Faultbox/meshview/internal/engine/lod"
	"github.com/Faultbox/meshview/internal/engine/mesh"
	"github.com/Faultbox/meshview/internal/engine/renderer"
	"github.com/Faultbox/meshview/internal/engine/timeseries"
	"github.com/Faultbox/meshview/internal/engine/window"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/pkg/math"
	"github.com/Faultbox/meshview/pkg/vtk"
)

const fovY = 0.785 // 45 degrees

// Viewer is the running application.
type Viewer struct {
	cfg     *config.Config
	running bool

	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	cam      *camera.OrbitCamera

	settings colormap.Settings

	// coarse is the triangulated mesh with one vertex per dataset
	// point; frame scalars apply to it directly.
	coarse  *mesh.Mesh
	display *mesh.Mesh
	passes  int

	lodSet   *lod.Set
	lodLevel int

	pool      *loader.Pool
	series    *timeseries.Controller
	watcher   *timeseries.Watcher
	seriesDir string

	seriesFailed bool
	colors       []float32

	// directColors is set when the dataset carries COLOR_SCALARS but
	// no scalar field; it bypasses the colormap entirely.
	directColors []float32
}

// New builds a viewer for a dataset file or a series directory.
func New(cfg *config.Config, path string) (*Viewer, error) {
	v := &Viewer{
		cfg:      cfg,
		passes:   cfg.Viewer.SubdivisionPasses,
		settings: colormap.Settings{Map: colormap.Get(cfg.Viewer.ColorMap)},
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("viewer: %w", err)
	}

	firstFile := path
	var frames []timeseries.Frame
	if info.IsDir() {
		frames, err = timeseries.Discover(path)
		if err != nil {
			return nil, err
		}
		firstFile = frames[0].Path
		v.seriesDir = path
	}

	// stage one: full parse and mesh build of the first frame
	ds, err := vtk.Load(firstFile)
	if err != nil {
		return nil, err
	}
	if err := v.buildMesh(ds); err != nil {
		return nil, err
	}

	if err := v.openWindow(); err != nil {
		return nil, err
	}

	center, size := v.display.Bounds()
	v.cam = camera.New()
	v.cam.FitToBounds(center, size)

	if err := v.uploadDisplay(); err != nil {
		v.Close()
		return nil, err
	}

	// stage two: background scalar loading for the remaining frames
	if len(frames) > 1 {
		v.startSeries(frames, len(ds.Points))
	}
	// watch even a single-frame directory; a solver may still be
	// writing the rest of the series
	if v.seriesDir != "" && cfg.Animation.Watch {
		v.startWatcher()
	}

	logger.Info("viewer ready",
		zap.String("path", path),
		zap.Int("triangles", v.display.TriangleCount()),
		zap.Int("frames", len(frames)),
	)
	return v, nil
}

func (v *Viewer) buildMesh(ds *vtk.Dataset) error {
	res := mesh.Build(ds)
	if res.Dropped > 0 || res.Unsupported > 0 {
		logger.Warn("cells skipped during conversion",
			zap.Int("degenerate", res.Dropped),
			zap.Int("unsupported", res.Unsupported),
		)
	}
	v.coarse = res.Mesh

	v.display = v.coarse
	if v.passes > 0 {
		fine, err := mesh.Subdivide(v.coarse, v.passes)
		if err != nil {
			return err
		}
		v.display = fine
	}

	v.settings.AutoRange(v.display.Scalars())

	if !hasScalarSource(ds) && v.passes == 0 && !v.cfg.Viewer.LOD {
		v.directColors = mesh.VertexColors(v.coarse, ds)
	}

	if v.cfg.Viewer.LOD {
		set, err := lod.Generate(v.display, lod.Config{
			Thresholds: scaleThresholds(v.cfg.Viewer.LODThresholds, v.display),
			Ratio:      v.cfg.Viewer.LODRatio,
		})
		if err != nil {
			return err
		}
		v.lodSet = set
		v.settings.Range = set.Range
	}
	return nil
}

// hasScalarSource reports whether the dataset carries any attribute
// the colormap pipeline can shade from.
func hasScalarSource(ds *vtk.Dataset) bool {
	if ds.PointScalars() != nil || ds.CellScalars() != nil {
		return true
	}
	for i := range ds.PointData {
		if ds.PointData[i].Kind == vtk.AttrVector {
			return true
		}
	}
	return false
}

// scaleThresholds interprets configured thresholds as multiples of the
// dataset size, so the same config works for meshes of any scale.
func scaleThresholds(thresholds []float32, m *mesh.Mesh) []float32 {
	_, size := m.Bounds()
	if size == 0 {
		size = 1
	}
	out := make([]float32, len(thresholds))
	for i, t := range thresholds {
		out[i] = t * size * 0.1
	}
	return out
}

func (v *Viewer) openWindow() error {
	var err error
	v.window, err = window.New(window.Config{
		Title:      "MeshView",
		Width:      v.cfg.Graphics.Width,
		Height:     v.cfg.Graphics.Height,
		Fullscreen: v.cfg.Graphics.Fullscreen,
		VSync:      v.cfg.Graphics.VSync,
		MSAA:       v.cfg.Graphics.MSAA,
	})
	if err != nil {
		return err
	}

	v.renderer, err = renderer.New(renderer.Config{
		Width:  v.cfg.Graphics.Width,
		Height: v.cfg.Graphics.Height,
	})
	if err != nil {
		v.window.Close()
		return err
	}

	v.input = input.New()
	return nil
}

func (v *Viewer) startSeries(frames []timeseries.Frame, pointCount int) {
	v.dropLOD()

	v.pool = loader.New(v.cfg.Viewer.Workers, len(frames),
		loader.WithLogger(logger.Named("loader")))

	v.series = timeseries.NewController(frames, pointCount, v.pool,
		timeseries.WithLogger(logger.Named("timeseries")),
		timeseries.WithRate(v.cfg.Animation.FPS),
		timeseries.WithLoop(v.cfg.Animation.Loop),
	)
	if err := v.series.Prime(0, v.coarse.Scalars()); err != nil {
		logger.Warn("first frame scalars rejected", zap.Error(err))
	}
}

// dropLOD returns the display to full detail; per-frame re-decimation
// is not worth it for an animated series.
func (v *Viewer) dropLOD() {
	if v.lodSet == nil {
		return
	}
	logger.Warn("lod disabled for animated series")
	full := v.lodSet.Levels[0].Mesh
	v.lodSet = nil
	v.lodLevel = 0
	if v.display != full {
		v.display = full
		if err := v.uploadDisplay(); err != nil {
			logger.Error("full detail upload failed", zap.Error(err))
		}
	}
}

func (v *Viewer) startWatcher() {
	w, err := timeseries.Watch(v.seriesDir, logger.Named("watch"))
	if err != nil {
		logger.Warn("series watch unavailable", zap.Error(err))
		return
	}
	v.watcher = w
}

func (v *Viewer) uploadDisplay() error {
	return v.renderer.Upload(v.display, v.displayColors())
}

func (v *Viewer) recolorDisplay() error {
	return v.renderer.Recolor(v.displayColors())
}

func (v *Viewer) displayColors() []float32 {
	if v.directColors != nil && v.display == v.coarse {
		return v.directColors
	}
	v.colors = v.settings.Map.ShadeAll(v.display.Scalars(), v.settings.Range, v.colors)
	return v.colors
}

// Run drives the main loop until quit.
func (v *Viewer) Run() error {
	v.running = true
	lastTime := time.Now()

	for v.running {
		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		if v.input.Update() {
			break
		}
		v.handleEvents()

		if err := v.update(dt); err != nil {
			return err
		}

		v.render()
		v.window.SwapBuffers()
	}
	return nil
}

func (v *Viewer) handleEvents() {
	for _, e := range v.input.Events() {
		switch e.Type {
		case input.EventWindowResize:
			v.renderer.Resize(e.Width, e.Height)

		case input.EventMouseMove:
			if v.input.LeftDown() {
				v.cam.HandleDrag(float32(e.RelX), float32(e.RelY))
			} else if v.input.RightDown() {
				v.cam.HandlePan(float32(-e.RelX), float32(e.RelY))
			}

		case input.EventMouseWheel:
			v.cam.HandleZoom(e.WheelY)

		case input.EventKeyDown:
			v.handleKey(e.Key)
		}
	}
}

func (v *Viewer) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_ESCAPE, sdl.SCANCODE_Q:
		v.running = false

	case sdl.SCANCODE_R:
		center, size := v.display.Bounds()
		v.cam.FitToBounds(center, size)

	case sdl.SCANCODE_W:
		v.renderer.SetWireframe(true)
	case sdl.SCANCODE_F:
		v.renderer.SetWireframe(false)

	case sdl.SCANCODE_C:
		v.cycleColorMap()

	case sdl.SCANCODE_SPACE:
		if v.series != nil {
			v.series.TogglePlay()
		}
	case sdl.SCANCODE_RIGHT:
		if v.series != nil {
			v.series.StepForward()
		}
	case sdl.SCANCODE_LEFT:
		if v.series != nil {
			v.series.StepBack()
		}
	case sdl.SCANCODE_UP:
		if v.series != nil {
			v.series.SetRate(v.series.Rate() * 1.25)
		}
	case sdl.SCANCODE_DOWN:
		if v.series != nil {
			v.series.SetRate(v.series.Rate() / 1.25)
		}
	case sdl.SCANCODE_L:
		if v.series != nil {
			v.series.ToggleLoop()
		}
	}
}

func (v *Viewer) cycleColorMap() {
	names := colormap.Names()
	for i, name := range names {
		if name == v.settings.Map.Name {
			v.settings.Map = colormap.Get(names[(i+1)%len(names)])
			break
		}
	}
	logger.Info("color map changed", zap.String("name", v.settings.Map.Name))
	if err := v.recolorDisplay(); err != nil {
		logger.Error("recolor failed", zap.Error(err))
	}
}

func (v *Viewer) update(dt float32) error {
	if v.watcher != nil {
		select {
		case <-v.watcher.Changed():
			v.rescanSeries()
		default:
		}
	}

	if v.series != nil {
		if v.series.Tick(dt) {
			v.applyFrame()
		}
		if err := v.series.Err(); err != nil && !v.seriesFailed {
			// series rejected; keep showing the static first frame
			v.seriesFailed = true
			logger.Error("animation disabled", zap.Error(err))
		}
	}

	if v.lodSet != nil {
		if level := v.lodSet.Select(v.cam.Distance); level != v.lodLevel {
			v.lodLevel = level
			v.display = v.lodSet.Levels[level].Mesh
			if err := v.uploadDisplay(); err != nil {
				return err
			}
			logger.Debug("lod switched",
				zap.Int("level", level),
				zap.Int("triangles", v.display.TriangleCount()),
			)
		}
	}

	return nil
}

// applyFrame recolors the display mesh with the current frame's
// scalars. Geometry never changes between frames, so only the color
// buffer is rewritten.
func (v *Viewer) applyFrame() {
	scalars := v.series.Scalars()
	if scalars == nil {
		return
	}

	v.coarse.SetScalars(scalars)
	if v.passes > 0 {
		fine, err := mesh.Subdivide(v.coarse, v.passes)
		if err != nil {
			logger.Error("frame refinement failed", zap.Error(err))
			return
		}
		v.display = fine
	} else {
		v.display = v.coarse
	}

	if err := v.recolorDisplay(); err != nil {
		logger.Error("frame recolor failed", zap.Error(err))
	}
}

func (v *Viewer) rescanSeries() {
	frames, err := timeseries.Discover(v.seriesDir)
	if err != nil {
		logger.Warn("series rescan failed", zap.Error(err))
		return
	}
	if v.series != nil && len(frames) == v.series.Len() {
		return
	}
	if v.series == nil && len(frames) < 2 {
		return
	}

	logger.Info("series changed on disk", zap.Int("frames", len(frames)))

	rate := v.cfg.Animation.FPS
	loop := v.cfg.Animation.Loop
	if v.series != nil {
		rate = v.series.Rate()
		loop = v.series.Looping()
	}

	// a pool sized for the old series would wedge Submit once the
	// series outgrows its queues, so every controller gets a fresh one
	if v.pool != nil {
		v.pool.Cancel()
		v.pool.Close()
	}
	v.pool = loader.New(v.cfg.Viewer.Workers, len(frames),
		loader.WithLogger(logger.Named("loader")))

	v.dropLOD()

	v.seriesFailed = false
	v.series = timeseries.NewController(frames, len(v.coarse.Vertices), v.pool,
		timeseries.WithLogger(logger.Named("timeseries")),
		timeseries.WithRate(rate),
		timeseries.WithLoop(loop),
	)
	if err := v.series.Prime(0, v.coarse.Scalars()); err != nil {
		logger.Warn("first frame scalars rejected", zap.Error(err))
	}
}

func (v *Viewer) render() {
	v.renderer.Begin()

	near := v.cam.MinDistance * 0.5
	far := v.cam.MaxDistance * 2
	proj := math.Perspective(fovY, v.renderer.Aspect(), near, far)
	view := v.cam.ViewMatrix()
	lightDir := v.cam.Center.Sub(v.cam.Position()).Normalize()

	v.renderer.Draw(proj, view, lightDir)
}

// Close shuts everything down in reverse order of creation.
func (v *Viewer) Close() {
	if v.watcher != nil {
		v.watcher.Close()
	}
	if v.pool != nil {
		v.pool.Cancel()
		v.pool.Close()
	}
	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}
