package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	variogram "github.com/flywave/go-variogram"
)

func load(cfg *variogram.Config) (*variogram.Variogram, error) {
	opts := cfg.Options()
	switch {
	case cfg.Input.GeoJSON != "":
		fc, err := variogram.LoadGeoJSON(cfg.Input.GeoJSON)
		if err != nil {
			return nil, err
		}
		sopts, err := cfg.SourceOptions()
		if err != nil {
			return nil, err
		}
		return variogram.NewFeatureSource(fc, sopts).Variogram(opts)
	case cfg.Input.Raster != "":
		r, err := variogram.OpenRaster(cfg.Input.Raster)
		if err != nil {
			return nil, err
		}
		sopts, err := cfg.SourceOptions()
		if err != nil {
			return nil, err
		}
		r.SetTargetSrs(sopts.TargetSrs)
		return r.Variogram(cfg.Input.RasterStride, opts)
	default:
		return nil, fmt.Errorf("no input: set input.geojson or input.raster")
	}
}

func main() {
	configPath := flag.String("config", "variogram.yaml", "YAML configuration file")
	geojson := flag.String("geojson", "", "GeoJSON sample file, overrides input.geojson")
	raster := flag.String("raster", "", "GeoTIFF sample file, overrides input.raster")
	model := flag.String("model", "", "Variogram model, overrides variogram.model")
	writeDefault := flag.String("write-config", "", "Write the default configuration to this path and exit")
	asJSON := flag.Bool("json", false, "Print the description and statistics as JSON")
	curve := flag.Int("curve", 0, "Print the fitted model at this many lags")
	flag.Parse()

	if *writeDefault != "" {
		if err := variogram.SaveConfig(variogram.DefaultConfig(), *writeDefault); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		return
	}

	cfg, err := variogram.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *geojson != "" {
		cfg.Input.GeoJSON = *geojson
		cfg.Input.Raster = ""
	}
	if *raster != "" {
		cfg.Input.Raster = *raster
		cfg.Input.GeoJSON = ""
	}
	if *model != "" {
		cfg.Variogram.Model = *model
	}

	v, err := load(cfg)
	if err != nil {
		log.Fatalf("Failed to build variogram: %v", err)
	}
	if err := v.Fit(); err != nil {
		log.Fatalf("Fit failed: %v", err)
	}

	desc, err := v.Describe()
	if err != nil {
		log.Fatalf("Describe failed: %v", err)
	}
	stats, err := v.Statistics()
	if err != nil {
		log.Fatalf("Statistics failed: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Description variogram.Description `json:"description"`
			Statistics  variogram.Statistics  `json:"statistics"`
		}{desc, stats}); err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
	} else {
		fmt.Print(v.String())
		fmt.Printf("RMSE:       %.4f\n", stats.RMSE)
		fmt.Printf("Pearson:    %.4f\n", stats.Pearson)
		fmt.Printf("NS:         %.4f\n", stats.NashSutcliffe)
	}

	if *curve > 0 {
		x, y, err := v.Curve(*curve)
		if err != nil {
			log.Fatalf("Curve failed: %v", err)
		}
		for i := range x {
			fmt.Printf("%g\t%g\n", x[i], y[i])
		}
	}
}
