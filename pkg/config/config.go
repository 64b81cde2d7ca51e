// Package config provides configuration loading and management for mprviewer.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Resampling parameters
	Resampling struct {
		// Workers specifies how many goroutines service resample requests
		Workers int `yaml:"workers"`

		// OutputWidth and OutputHeight are the default slice dimensions in pixels
		OutputWidth  int `yaml:"outputWidth"`
		OutputHeight int `yaml:"outputHeight"`

		// PixelSpacing is the default physical distance between slice pixels in mm
		PixelSpacing float64 `yaml:"pixelSpacing"`
	} `yaml:"resampling"`

	// Region of interest parameters
	ROI struct {
		// MinVoxels is the smallest region the viewer accepts, in voxels
		MinVoxels int `yaml:"minVoxels"`
	} `yaml:"roi"`

	// Overlay parameters
	Overlay struct {
		// Mode selects the blend style, "tint" or "outline"
		Mode string `yaml:"mode"`

		// Alpha controls tint opacity over the masked anatomy
		Alpha float64 `yaml:"alpha"`
	} `yaml:"overlay"`

	// Output parameters
	Output struct {
		// PreviewDir is the directory slice previews are written to
		PreviewDir string `yaml:"previewDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Resampling.Workers = runtime.NumCPU()
	cfg.Resampling.OutputWidth = 512
	cfg.Resampling.OutputHeight = 512
	cfg.Resampling.PixelSpacing = 1.0

	cfg.ROI.MinVoxels = 8

	cfg.Overlay.Mode = "tint"
	cfg.Overlay.Alpha = 0.4

	cfg.Output.PreviewDir = "previews"
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Resampling.Workers < 1 {
		return fmt.Errorf("resampling.workers must be at least 1, got %d", c.Resampling.Workers)
	}
	if c.Resampling.OutputWidth < 1 || c.Resampling.OutputHeight < 1 {
		return fmt.Errorf("resampling output size must be positive, got %dx%d",
			c.Resampling.OutputWidth, c.Resampling.OutputHeight)
	}
	if c.Resampling.PixelSpacing <= 0 {
		return fmt.Errorf("resampling.pixelSpacing must be positive, got %g", c.Resampling.PixelSpacing)
	}
	if c.ROI.MinVoxels < 1 {
		return fmt.Errorf("roi.minVoxels must be at least 1, got %d", c.ROI.MinVoxels)
	}
	if c.Overlay.Mode != "tint" && c.Overlay.Mode != "outline" {
		return fmt.Errorf("overlay.mode must be \"tint\" or \"outline\", got %q", c.Overlay.Mode)
	}
	if c.Overlay.Alpha < 0 || c.Overlay.Alpha > 1 {
		return fmt.Errorf("overlay.alpha must be in [0,1], got %g", c.Overlay.Alpha)
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
