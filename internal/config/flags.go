package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagColorMap   = flag.String("colormap", "", "Color map name (rainbow, heat, viridis, rainbow-hr)")
	flagSubdivide  = flag.Int("subdivide", -1, "Subdivision passes applied to the mesh")
	flagLOD        = flag.Bool("lod", false, "Enable level-of-detail decimation")
	flagFPS        = flag.Float64("fps", 0, "Animation playback rate in frames per second")
	flagNoLoop     = flag.Bool("no-loop", false, "Stop at the last animation frame instead of looping")
	flagWatch      = flag.Bool("watch", false, "Reload the series when its directory changes")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
	flagWorkers    = flag.Int("workers", 0, "Background parser worker count")

	flagWriteConfig = flag.Bool("write-config", false, "Write the active configuration to the user config directory and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// WriteConfig reports whether --write-config was given.
func WriteConfig() bool {
	return *flagWriteConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagColorMap != "" {
		cfg.Viewer.ColorMap = *flagColorMap
	}
	if *flagSubdivide >= 0 {
		cfg.Viewer.SubdivisionPasses = *flagSubdivide
	}
	if *flagLOD {
		cfg.Viewer.LOD = true
	}
	if *flagFPS > 0 {
		cfg.Animation.FPS = float32(*flagFPS)
	}
	if *flagNoLoop {
		cfg.Animation.Loop = false
	}
	if *flagWatch {
		cfg.Animation.Watch = true
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
	if *flagWorkers > 0 {
		cfg.Viewer.Workers = *flagWorkers
	}
}
