package variogram

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flywave/go-geoid"
	"gopkg.in/yaml.v3"
)

// Config is the YAML form of Options plus the sample input of the command
// line tool.
type Config struct {
	Variogram struct {
		Estimator     string  `yaml:"estimator"`
		Model         string  `yaml:"model"`
		DistFunc      string  `yaml:"distFunc"`
		BinFunc       string  `yaml:"binFunc"`
		Normalize     *bool   `yaml:"normalize,omitempty"`
		FitMethod     string  `yaml:"fitMethod"`
		UseNugget     bool    `yaml:"useNugget"`
		MaxLag        float64 `yaml:"maxLag"`
		Lags          int     `yaml:"nLags"`
		BinWidth      float64 `yaml:"binWidth"`
		Directional   bool    `yaml:"directional"`
		Azimuth       float64 `yaml:"azimuth"`
		Tolerance     float64 `yaml:"tolerance"`
		MaxIterations int     `yaml:"maxIterations"`
	} `yaml:"variogram"`

	Input struct {
		// GeoJSON is a feature collection whose vertex z values are the samples.
		GeoJSON string `yaml:"geojson"`
		// Raster is a GeoTIFF sampled every RasterStride pixels.
		Raster       string `yaml:"raster"`
		RasterStride int    `yaml:"rasterStride"`

		InputSrs     string     `yaml:"inputSrs"`
		TargetSrs    string     `yaml:"targetSrs"`
		HeightModel  string     `yaml:"heightModel"`
		HeightOffset float64    `yaml:"heightOffset"`
		FilterSize   *[3]uint32 `yaml:"filterSize,omitempty"`
	} `yaml:"input"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	normalize := true
	cfg.Variogram.Estimator = string(Matheron)
	cfg.Variogram.Model = string(Spherical)
	cfg.Variogram.DistFunc = string(Euclidean)
	cfg.Variogram.BinFunc = string(Even)
	cfg.Variogram.Normalize = &normalize
	cfg.Variogram.FitMethod = string(LeastSquares)
	cfg.Variogram.Lags = defaultLags
	cfg.Variogram.Tolerance = defaultTolerance
	cfg.Variogram.MaxIterations = defaultMaxIterations

	cfg.Input.RasterStride = 1
	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
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

// Options converts the variogram section. Names are checked later by New.
func (c *Config) Options() Options {
	v := c.Variogram
	opts := Options{
		Estimator:     EstimatorType(v.Estimator),
		Model:         ModelType(v.Model),
		DistFunc:      DistanceKind(v.DistFunc),
		BinFunc:       BinFunc(v.BinFunc),
		FitMethod:     FitMethod(v.FitMethod),
		UseNugget:     v.UseNugget,
		MaxLag:        v.MaxLag,
		Lags:          v.Lags,
		BinWidth:      v.BinWidth,
		Directional:   v.Directional,
		Azimuth:       v.Azimuth,
		Tolerance:     v.Tolerance,
		MaxIterations: v.MaxIterations,
	}
	if v.Normalize != nil {
		normalize := *v.Normalize
		opts.Normalize = &normalize
	}
	return opts
}

// SourceOptions converts the input section.
func (c *Config) SourceOptions() (SourceOptions, error) {
	in := c.Input
	opts := SourceOptions{
		HeightOffset: in.HeightOffset,
		FilterSize:   in.FilterSize,
	}
	if in.InputSrs != "" {
		srs := in.InputSrs
		opts.InputSrs = &srs
	}
	if in.TargetSrs != "" {
		srs := in.TargetSrs
		opts.TargetSrs = &srs
	}

	switch in.HeightModel {
	case "":
		opts.HeightModel = geoid.UNKNOWN
	case "hae":
		opts.HeightModel = geoid.HAE
	default:
		return SourceOptions{}, fmt.Errorf("%w: height model %q", ErrInvalidParameter, in.HeightModel)
	}
	return opts, nil
}
