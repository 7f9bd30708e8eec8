// Package lod builds and selects discrete levels of detail for a
// triangle mesh using edge-collapse decimation.
package lod

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Faultbox/meshview/internal/engine/colormap"
	"github.com/Faultbox/meshview/internal/engine/mesh"
)

// ErrNoLevels reports a set built without any usable level.
var ErrNoLevels = errors.New("lod: no levels")

// Level pairs a mesh with the camera distance at which it activates.
type Level struct {
	Threshold float32
	Mesh      *mesh.Mesh
}

// Set is an ordered level-of-detail ladder. Levels are sorted by
// ascending threshold; Levels[0] is the full-resolution mesh at
// threshold 0. All levels share one scalar range so colors stay
// consistent when the active level switches.
type Set struct {
	Levels []Level
	Range  colormap.Range
}

// Config controls ladder generation.
type Config struct {
	// Thresholds holds one activation distance per reduced level,
	// ascending. An empty slice yields a single-level set.
	Thresholds []float32

	// Ratio is the triangle count multiplier applied per level.
	// Values outside (0,1) fall back to DefaultRatio.
	Ratio float32

	// MinTriangles stops the ladder once a level would fall below it.
	MinTriangles int
}

// DefaultRatio halves the triangle count at each level.
const DefaultRatio = 0.5

const defaultMinTriangles = 16

// Generate builds the ladder for m. Levels that cannot be decimated
// further fall back to the previous finer mesh so every threshold stays
// selectable.
func Generate(m *mesh.Mesh, cfg Config) (*Set, error) {
	if m.TriangleCount() == 0 {
		return nil, fmt.Errorf("%w: empty mesh", ErrNoLevels)
	}

	ratio := cfg.Ratio
	if ratio <= 0 || ratio >= 1 {
		ratio = DefaultRatio
	}
	minTris := cfg.MinTriangles
	if minTris <= 0 {
		minTris = defaultMinTriangles
	}

	thresholds := append([]float32(nil), cfg.Thresholds...)
	sort.Slice(thresholds, func(i, j int) bool { return thresholds[i] < thresholds[j] })

	set := &Set{
		Levels: []Level{{Threshold: 0, Mesh: m}},
		Range:  colormap.RangeOf(m.Scalars()),
	}

	prev := m
	target := m.TriangleCount()
	for _, th := range thresholds {
		target = int(float32(target) * ratio)
		if target < minTris {
			target = minTris
		}

		level := prev
		if target < prev.TriangleCount() {
			dec, err := Decimate(prev, target)
			if err == nil {
				level = dec
			}
		}
		set.Levels = append(set.Levels, Level{Threshold: th, Mesh: level})
		prev = level
	}
	return set, nil
}

// Select returns the index of the level active at the given camera
// distance: the coarsest level whose threshold the distance has reached.
func (s *Set) Select(distance float32) int {
	best := 0
	for i, lv := range s.Levels {
		if distance >= lv.Threshold {
			best = i
		}
	}
	return best
}

// Active returns the mesh for the given camera distance.
func (s *Set) Active(distance float32) *mesh.Mesh {
	return s.Levels[s.Select(distance)].Mesh
}
