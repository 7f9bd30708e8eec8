// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// Config holds all viewer settings.
type Config struct {
	Graphics  GraphicsConfig  `yaml:"graphics"`
	Viewer    ViewerConfig    `yaml:"viewer"`
	Animation AnimationConfig `yaml:"animation"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	MSAA       int  `yaml:"msaa"`
}

// ViewerConfig holds mesh pipeline settings.
type ViewerConfig struct {
	ColorMap string `yaml:"color_map"`

	// SubdivisionPasses refines the mesh before display. Mutually
	// exclusive with LOD.
	SubdivisionPasses int `yaml:"subdivision_passes"`

	LOD           bool      `yaml:"lod"`
	LODThresholds []float32 `yaml:"lod_thresholds"`
	LODRatio      float32   `yaml:"lod_ratio"`

	// Workers is the background parser pool size.
	Workers int `yaml:"workers"`
}

// AnimationConfig holds time-series playback settings.
type AnimationConfig struct {
	FPS  float32 `yaml:"fps"`
	Loop bool    `yaml:"loop"`

	// Watch rescans the series directory when files change.
	Watch bool `yaml:"watch"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			MSAA:       4,
		},
		Viewer: ViewerConfig{
			ColorMap:          "rainbow",
			SubdivisionPasses: 0,
			LOD:               false,
			LODThresholds:     []float32{10, 25, 50},
			LODRatio:          0.5,
			Workers:           4,
		},
		Animation: AnimationConfig{
			FPS:   5,
			Loop:  true,
			Watch: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// ErrExclusiveRefinement reports subdivision and LOD enabled together.
var ErrExclusiveRefinement = errors.New("config: subdivision and lod are mutually exclusive")

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Viewer.SubdivisionPasses > 0 && c.Viewer.LOD {
		return ErrExclusiveRefinement
	}
	if c.Viewer.SubdivisionPasses < 0 {
		return fmt.Errorf("config: subdivision_passes must be >= 0, got %d", c.Viewer.SubdivisionPasses)
	}
	if c.Viewer.Workers < 1 {
		return fmt.Errorf("config: workers must be >= 1, got %d", c.Viewer.Workers)
	}
	if c.Animation.FPS <= 0 {
		return fmt.Errorf("config: animation fps must be positive, got %v", c.Animation.FPS)
	}
	return nil
}
