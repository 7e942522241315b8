// Package config provides configuration loading and management for
// templatealign. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"templatealign/pkg/alignment"
	"templatealign/pkg/resample"
	"templatealign/pkg/segmentation"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Mask extraction parameters
	Segmentation struct {
		// GaussSigma is the pre-threshold Gaussian smoothing standard
		// deviation in voxels; 0 disables smoothing
		GaussSigma float64 `yaml:"gaussSigma"`

		// ThresholdMethod is one of "triangle", "otsu" or "isodata"
		ThresholdMethod string `yaml:"thresholdMethod"`

		// ErosionRadius is the cubic erosion radius applied to the mask;
		// 0 disables erosion
		ErosionRadius int `yaml:"erosionRadius"`
	} `yaml:"segmentation"`

	// Alignment and resampling parameters
	Alignment struct {
		// InterpolationOrder selects resampling: 0 nearest, 1 trilinear
		InterpolationOrder int `yaml:"interpolationOrder"`

		// NumWorkers bounds the goroutines used for resampling
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"alignment"`

	// Downsampling of raw anisotropic stacks before alignment
	Downsample struct {
		// InPlaneFactor divides the x and y extents; 1 disables
		InPlaneFactor int `yaml:"inPlaneFactor"`

		// AxialFactor divides the z extent; 1 disables
		AxialFactor int `yaml:"axialFactor"`
	} `yaml:"downsample"`

	// Output parameters
	Output struct {
		// SaveMask writes the specimen mask next to the aligned volume
		SaveMask bool `yaml:"saveMask"`

		// SaveNIfTI additionally writes the aligned volume as a .nii file
		SaveNIfTI bool `yaml:"saveNifti"`

		// PixelSizes are the voxel dimensions in mm, in (x, y, z) order,
		// recorded in NIfTI headers
		PixelSizes [3]float64 `yaml:"pixelSizes"`

		// Verbose controls per-step progress output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Segmentation.GaussSigma = 3
	cfg.Segmentation.ThresholdMethod = string(segmentation.MethodTriangle)
	cfg.Segmentation.ErosionRadius = 5

	cfg.Alignment.InterpolationOrder = int(resample.Linear)
	cfg.Alignment.NumWorkers = runtime.NumCPU()

	cfg.Downsample.InPlaneFactor = 1
	cfg.Downsample.AxialFactor = 1

	cfg.Output.SaveMask = true
	cfg.Output.SaveNIfTI = true
	cfg.Output.PixelSizes = [3]float64{1, 1, 1}
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file. If the file doesn't
// exist, it returns the default configuration.
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

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
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

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

// AlignerParams converts the configuration into alignment pipeline
// parameters.
func (cfg *Config) AlignerParams() *alignment.Params {
	return &alignment.Params{
		ThresholdMethod:    segmentation.Method(cfg.Segmentation.ThresholdMethod),
		GaussSigma:         cfg.Segmentation.GaussSigma,
		ErosionRadius:      cfg.Segmentation.ErosionRadius,
		InterpolationOrder: resample.Order(cfg.Alignment.InterpolationOrder),
		NumWorkers:         cfg.Alignment.NumWorkers,
		Verbose:            cfg.Output.Verbose,
	}
}
