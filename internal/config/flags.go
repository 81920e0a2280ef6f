package config

import "flag"

// Flags holds command-line overrides. Zero values leave the config untouched.
type Flags struct {
	Config      string
	Debug       bool
	Scale       float64
	NoCollision bool
	Textures    string
	Format      string
	Out         string
	Workers     int
}

// RegisterFlags defines the shared flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.Float64Var(&f.Scale, "scale", 0, "Room scale factor")
	fs.BoolVar(&f.NoCollision, "no-collision", false, "Skip the collision block")
	fs.StringVar(&f.Textures, "textures", "", "Texture directory (replaces configured dirs)")
	fs.StringVar(&f.Format, "format", "", "Output format: glb or gltf")
	fs.StringVar(&f.Out, "out", "", "Output directory")
	fs.IntVar(&f.Workers, "j", 0, "Files converted in parallel")
	return f
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Scale > 0 {
		cfg.Import.RoomScale = float32(f.Scale)
	}
	if f.NoCollision {
		cfg.Import.IncludeCollision = false
	}
	if f.Textures != "" {
		cfg.Textures.Dirs = []string{f.Textures}
	}
	if f.Format != "" {
		cfg.Export.Format = f.Format
	}
	if f.Out != "" {
		cfg.Export.OutputDir = f.Out
	}
	if f.Workers > 0 {
		cfg.Export.Workers = f.Workers
	}
}
