// Package colormap maps scalar values through named color lookup tables.
// Mapping is a pure function of (scalar, range, map); the active selection
// is carried as an explicit Settings value, never ambient state.
package colormap

import "github.com/chewxy/math32"

// RGB is a color with components in [0,1].
type RGB [3]float32

// Range holds the scalar bounds used for normalization. A degenerate
// range (Min == Max) maps every scalar to the 0-fraction color.
type Range struct {
	Min, Max float32
}

// RangeOf scans scalars and returns their true min/max bounds.
func RangeOf(scalars []float32) Range {
	if len(scalars) == 0 {
		return Range{}
	}
	r := Range{Min: scalars[0], Max: scalars[0]}
	for _, s := range scalars[1:] {
		r.Min = math32.Min(r.Min, s)
		r.Max = math32.Max(r.Max, s)
	}
	return r
}

// Normalize clamps v into the range and maps it to [0,1].
func (r Range) Normalize(v float32) float32 {
	if r.Max <= r.Min {
		return 0
	}
	if v <= r.Min {
		return 0
	}
	if v >= r.Max {
		return 1
	}
	return (v - r.Min) / (r.Max - r.Min)
}

// Map is a named sequence of color control points spaced evenly over
// [0,1].
type Map struct {
	Name   string
	Colors []RGB
}

// Named colormap identifiers.
const (
	Rainbow        = "rainbow"
	Heat           = "heat"
	Viridis        = "viridis"
	HighResRainbow = "rainbow-hr"
)

// Get returns the named colormap; unknown names fall back to Rainbow.
func Get(name string) *Map {
	switch name {
	case Heat:
		return heatMap
	case Viridis:
		return viridisMap
	case HighResRainbow:
		return highResRainbowMap
	default:
		return rainbowMap
	}
}

// Names lists the selectable colormaps in menu order.
func Names() []string {
	return []string{Rainbow, Heat, Viridis, HighResRainbow}
}

// At returns the color at the given fraction, linearly interpolated
// between the two bracketing control points. The fraction is clamped to
// [0,1].
func (m *Map) At(frac float32) RGB {
	if len(m.Colors) == 0 {
		return RGB{1, 1, 1}
	}
	if len(m.Colors) == 1 {
		return m.Colors[0]
	}

	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}

	pos := frac * float32(len(m.Colors)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(m.Colors) {
		return m.Colors[len(m.Colors)-1]
	}

	w := pos - float32(lo)
	a, b := m.Colors[lo], m.Colors[hi]
	return RGB{
		a[0] + (b[0]-a[0])*w,
		a[1] + (b[1]-a[1])*w,
		a[2] + (b[2]-a[2])*w,
	}
}

// Shade maps one scalar through the range and the map.
func (m *Map) Shade(scalar float32, r Range) RGB {
	return m.At(r.Normalize(scalar))
}

// ShadeAll maps a scalar slice into a flat RGB buffer (3 floats per
// scalar), reusing dst when it has the right capacity.
func (m *Map) ShadeAll(scalars []float32, r Range, dst []float32) []float32 {
	need := len(scalars) * 3
	if cap(dst) < need {
		dst = make([]float32, need)
	}
	dst = dst[:need]
	for i, s := range scalars {
		c := m.Shade(s, r)
		dst[i*3] = c[0]
		dst[i*3+1] = c[1]
		dst[i*3+2] = c[2]
	}
	return dst
}

// Settings is the coloring configuration threaded through every recolor
// call. It has a single writer (the consumer loop); the mapper only reads.
type Settings struct {
	Map   *Map
	Range Range

	// RangeOverridden marks a user-supplied range that auto-recompute
	// must not replace until explicitly reset.
	RangeOverridden bool
}

// DefaultSettings returns Rainbow with an empty range.
func DefaultSettings() Settings {
	return Settings{Map: Get(Rainbow)}
}

// AutoRange recomputes the range from the given scalars unless a user
// override is active.
func (s *Settings) AutoRange(scalars []float32) {
	if s.RangeOverridden {
		return
	}
	s.Range = RangeOf(scalars)
}

// OverrideRange installs a user-supplied range kept until ResetRange.
func (s *Settings) OverrideRange(r Range) {
	s.Range = r
	s.RangeOverridden = true
}

// ResetRange clears the override and recomputes from the given scalars.
func (s *Settings) ResetRange(scalars []float32) {
	s.RangeOverridden = false
	s.Range = RangeOf(scalars)
}
