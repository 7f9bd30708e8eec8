package colormap

import "github.com/chewxy/math32"

// Control point tables. Each spans [0,1] with evenly spaced entries;
// intermediate values are interpolated by Map.At.

var rainbowMap = &Map{
	Name: Rainbow,
	Colors: []RGB{
		{0.0, 0.0, 0.6},
		{0.0, 0.0, 0.7},
		{0.0, 0.0, 0.8},
		{0.0, 0.0, 0.9},
		{0.0, 0.0, 1.0},
		{0.0, 0.2, 1.0},
		{0.0, 0.4, 1.0},
		{0.0, 0.6, 1.0},
		{0.0, 0.8, 1.0},
		{0.0, 1.0, 1.0},
		{0.0, 1.0, 0.8},
		{0.0, 1.0, 0.6},
		{0.0, 1.0, 0.4},
		{0.0, 1.0, 0.2},
		{0.0, 1.0, 0.0},
		{0.2, 1.0, 0.0},
		{0.4, 1.0, 0.0},
		{0.6, 1.0, 0.0},
		{0.8, 1.0, 0.0},
		{1.0, 1.0, 0.0},
		{1.0, 0.6, 0.0},
		{1.0, 0.0, 0.0},
	},
}

var heatMap = &Map{
	Name: Heat,
	Colors: []RGB{
		{0.0, 0.0, 0.0},
		{0.1, 0.0, 0.0},
		{0.2, 0.0, 0.0},
		{0.3, 0.0, 0.0},
		{0.4, 0.0, 0.0},
		{0.5, 0.0, 0.0},
		{0.6, 0.0, 0.0},
		{0.7, 0.0, 0.0},
		{0.8, 0.0, 0.0},
		{0.9, 0.0, 0.0},
		{1.0, 0.0, 0.0},
		{1.0, 0.1, 0.0},
		{1.0, 0.2, 0.0},
		{1.0, 0.3, 0.0},
		{1.0, 0.4, 0.0},
		{1.0, 0.5, 0.0},
		{1.0, 0.6, 0.0},
		{1.0, 0.7, 0.0},
		{1.0, 0.8, 0.0},
		{1.0, 0.9, 0.0},
		{1.0, 1.0, 0.0},
		{1.0, 1.0, 1.0},
	},
}

var viridisMap = &Map{
	Name: Viridis,
	Colors: []RGB{
		{0.267004, 0.004874, 0.329415},
		{0.275191, 0.060826, 0.390374},
		{0.282623, 0.140926, 0.457517},
		{0.285109, 0.195242, 0.495702},
		{0.253935, 0.265254, 0.529983},
		{0.230341, 0.318626, 0.545695},
		{0.206756, 0.371758, 0.553117},
		{0.184586, 0.423943, 0.556295},
		{0.163625, 0.471133, 0.558148},
		{0.144544, 0.516775, 0.557885},
		{0.127568, 0.566949, 0.550556},
		{0.131109, 0.616355, 0.533488},
		{0.134692, 0.658636, 0.517649},
		{0.177423, 0.699873, 0.490448},
		{0.266941, 0.748751, 0.440573},
		{0.369214, 0.788888, 0.382914},
		{0.477504, 0.821444, 0.318195},
		{0.590330, 0.851556, 0.248701},
		{0.706680, 0.877588, 0.175630},
		{0.741388, 0.873449, 0.149561},
		{0.865006, 0.897915, 0.145833},
		{0.993248, 0.906157, 0.143936},
	},
}

// highResRainbowMap is a denser rainbow, generated from an HSV sweep so
// banding from sparse control points disappears on fine meshes.
var highResRainbowMap = newHighResRainbow()

func newHighResRainbow() *Map {
	const steps = 64
	colors := make([]RGB, steps)
	for i := range colors {
		// hue 240 (blue) down to 0 (red)
		hue := 240 * (1 - float32(i)/float32(steps-1))
		colors[i] = hsvToRGB(hue, 1, 1)
	}
	return &Map{Name: HighResRainbow, Colors: colors}
}

func hsvToRGB(h, s, v float32) RGB {
	h = math32.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := v * s
	x := c * (1 - math32.Abs(math32.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float32
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return RGB{r + m, g + m, b + m}
}
