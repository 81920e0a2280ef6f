// Package config handles importer configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// Export formats.
const (
	FormatGLB  = "glb"
	FormatGLTF = "gltf"
)

// Config holds all importer settings.
type Config struct {
	Import   ImportConfig   `yaml:"import"`
	Textures TexturesConfig `yaml:"textures"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ImportConfig holds RMesh decoding settings.
type ImportConfig struct {
	RoomScale        float32 `yaml:"room_scale"`
	IncludeCollision bool    `yaml:"include_collision"`
}

// TexturesConfig holds texture search settings.
type TexturesConfig struct {
	Dirs       []string `yaml:"dirs"`       // Directories scanned for textures
	Extensions []string `yaml:"extensions"` // Accepted file extensions
}

// ExportConfig holds output settings.
type ExportConfig struct {
	Format    string `yaml:"format"`     // glb or gltf
	OutputDir string `yaml:"output_dir"` // Where converted files are written
	Collision bool   `yaml:"collision"`  // Keep collision groups in the output
	Workers   int    `yaml:"workers"`    // Files converted in parallel
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Import: ImportConfig{
			RoomScale:        1.0,
			IncludeCollision: true,
		},
		Textures: TexturesConfig{
			Dirs:       []string{"GFX/map"},
			Extensions: []string{".jpg", ".jpeg", ".png", ".bmp", ".tga", ".webp"},
		},
		Export: ExportConfig{
			Format:    FormatGLB,
			OutputDir: ".",
			Collision: true,
			Workers:   4,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	var errs []error
	if c.Import.RoomScale <= 0 {
		errs = append(errs, fmt.Errorf("import.room_scale must be positive, got %v", c.Import.RoomScale))
	}
	if c.Export.Format != FormatGLB && c.Export.Format != FormatGLTF {
		errs = append(errs, fmt.Errorf("export.format must be %q or %q, got %q", FormatGLB, FormatGLTF, c.Export.Format))
	}
	if c.Export.Workers < 1 {
		errs = append(errs, fmt.Errorf("export.workers must be at least 1, got %d", c.Export.Workers))
	}
	return errors.Join(errs...)
}
