// Package timeseries discovers, loads and plays back per-frame scalar
// data for a fixed mesh topology.
//
// Loading runs in two stages. Stage one parses the first frame in full
// and hands its dataset to the mesh pipeline. Stage two loads only the
// scalar arrays of the remaining frames, in the background, and rejects
// any frame whose array length disagrees with the first frame's point
// count.
package timeseries

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chewxy/math32"

	"github.com/Faultbox/meshview/pkg/vtk"
)

var (
	// ErrNoFrames reports an empty or unmatched series directory.
	ErrNoFrames = errors.New("timeseries: no frames found")

	// ErrBadFrameName reports a series file without a trailing integer
	// time step in its name.
	ErrBadFrameName = errors.New("timeseries: frame name has no time step")

	// ErrDuplicateStep reports two files claiming the same time step.
	ErrDuplicateStep = errors.New("timeseries: duplicate time step")

	// ErrNoScalars reports a frame carrying no usable point data.
	ErrNoScalars = errors.New("timeseries: frame has no point scalars")
)

// Frame is one time step of the series.
type Frame struct {
	Path string
	Step int
}

// Discover lists the .vtk and .vtu files under dir and orders them by
// the integer time step embedded in their names. Every file must carry
// a step and no two files may share one.
func Discover(dir string) ([]Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("timeseries: read dir: %w", err)
	}

	var frames []Frame
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".vtk", ".vtu", ".vtp":
		default:
			continue
		}

		path := filepath.Join(dir, e.Name())
		step, err := StepOf(e.Name())
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBadFrameName, path)
		}
		frames = append(frames, Frame{Path: path, Step: step})
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, dir)
	}

	sort.Slice(frames, func(i, j int) bool { return frames[i].Step < frames[j].Step })
	for i := 1; i < len(frames); i++ {
		if frames[i].Step == frames[i-1].Step {
			return nil, fmt.Errorf("%w: %d in %s and %s",
				ErrDuplicateStep, frames[i].Step, frames[i-1].Path, frames[i].Path)
		}
	}
	return frames, nil
}

// StepOf extracts the trailing integer from a file name's stem,
// e.g. "pressure_0042.vtk" -> 42.
func StepOf(name string) (int, error) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	end := len(stem)
	start := end
	for start > 0 && stem[start-1] >= '0' && stem[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, ErrBadFrameName
	}

	step := 0
	for _, c := range stem[start:end] {
		step = step*10 + int(c-'0')
	}
	return step, nil
}

// frameScalars pulls the per-point scalar array out of a frame dataset:
// the first single-component SCALARS attribute, else the magnitude of
// the first VECTORS attribute.
func frameScalars(ds *vtk.Dataset) ([]float32, error) {
	if a := ds.PointScalars(); a != nil {
		out := make([]float32, a.Count())
		for i := range out {
			out[i] = a.ScalarAt(i)
		}
		return out, nil
	}

	for i := range ds.PointData {
		a := &ds.PointData[i]
		if a.Kind != vtk.AttrVector {
			continue
		}
		out := make([]float32, a.Count())
		for j := range out {
			v := a.VectorAt(j)
			out[j] = math32.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
		}
		return out, nil
	}
	return nil, ErrNoScalars
}
