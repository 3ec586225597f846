// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package config reduces the core's tunable-parameter footprint using
// functional options.
// See: http://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable the reconstruction core reads.
type Config struct {
	CacheFullCount int `yaml:"cache_full_count"`
	CacheLowCount  int `yaml:"cache_low_count"`
	FullSize       int `yaml:"full_size"`
	LowSize        int `yaml:"low_size"`

	RansacTrialsTriangulate int     `yaml:"ransac_trials_triangulate"`
	MeasurementThresholdPx  float64 `yaml:"measurement_threshold_px"`
	MinInliers              int     `yaml:"min_inliers"`
	MinInliersWeaker        int     `yaml:"min_inliers_weaker"`

	NormalKNNK int `yaml:"normal_knn_k"`

	TopoCompactnessThreshold float64 `yaml:"topo_compactness_threshold"`
	TopoCompactnessDelta     float64 `yaml:"topo_compactness_delta"`

	ActLatticeCells    int `yaml:"act_lattice_cells"`
	ActLatticeMinCells int `yaml:"act_lattice_min_cells"`
}

// defaults mirrors every default value named in the configuration table,
// so the core runs sensibly even if nothing is set.
var defaults = Config{
	CacheFullCount: 4,
	CacheLowCount:  32,
	FullSize:       2048,
	LowSize:        256,

	RansacTrialsTriangulate: 200,
	MeasurementThresholdPx:  2.0,
	MinInliers:              3,
	MinInliersWeaker:        2,

	NormalKNNK: 200,

	TopoCompactnessThreshold: 1.0,
	TopoCompactnessDelta:     0.1,

	ActLatticeCells:    4,
	ActLatticeMinCells: 6,
}

// Option defines optional configuration overrides.
//
//	cfg := config.New(
//	    config.CacheCounts(4, 32),
//	    config.TriangulateRANSAC(200, 2.0, 3, 2),
//	)
type Option func(*Config)

// New builds a Config from the defaults with the given overrides applied.
func New(opts ...Option) Config {
	c := defaults
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// CacheCounts sets the Full/Low tier resident budgets.
func CacheCounts(full, low int) Option {
	return func(c *Config) {
		if full > 0 {
			c.CacheFullCount = full
		}
		if low > 0 {
			c.CacheLowCount = low
		}
	}
}

// ImageSizes sets the square resize targets for the Full and Low tiers.
func ImageSizes(full, low int) Option {
	return func(c *Config) {
		if full > 0 {
			c.FullSize = full
		}
		if low > 0 {
			c.LowSize = low
		}
	}
}

// TriangulateRANSAC sets the triangulation RANSAC tunables.
func TriangulateRANSAC(trials int, thresholdPx float64, minInliers, minInliersWeaker int) Option {
	return func(c *Config) {
		if trials > 0 {
			c.RansacTrialsTriangulate = trials
		}
		if thresholdPx > 0 {
			c.MeasurementThresholdPx = thresholdPx
		}
		if minInliers > 0 {
			c.MinInliers = minInliers
		}
		if minInliersWeaker > 0 {
			c.MinInliersWeaker = minInliersWeaker
		}
	}
}

// NormalKNN sets the k-NN neighbourhood size NRM uses for plane fitting.
func NormalKNN(k int) Option {
	return func(c *Config) {
		if k > 0 {
			c.NormalKNNK = k
		}
	}
}

// TopoCompactness sets the mesh-extraction compactness thresholds.
func TopoCompactness(threshold, delta float64) Option {
	return func(c *Config) {
		if threshold > 0 {
			c.TopoCompactnessThreshold = threshold
		}
		if delta > 0 {
			c.TopoCompactnessDelta = delta
		}
	}
}

// ActLattice sets the lattice-test grid size and coverage threshold.
func ActLattice(cells, minCells int) Option {
	return func(c *Config) {
		if cells > 0 {
			c.ActLatticeCells = cells
		}
		if minCells > 0 {
			c.ActLatticeMinCells = minCells
		}
	}
}

// Load reads a YAML configuration file and applies it over the defaults.
// Fields absent from the file keep their default value.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	c := defaults
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return c, nil
}
