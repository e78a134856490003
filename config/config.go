// Package config provides configuration loading and access for the solver.
package config

import (
	_ "embed"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds every parameter the solver needs for one run.
type Config struct {
	Physics    PhysicsConfig    `yaml:"physics"`
	Tank       TankConfig       `yaml:"tank"`
	Run        RunConfig        `yaml:"run"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`

	// Derived holds values computed once after loading; never
	// recomputed mid-run.
	Derived DerivedConfig `yaml:"-"`
}

// PhysicsConfig holds the kernel and fluid constants from spec.md §6.
type PhysicsConfig struct {
	ReferenceDensity      float64 `yaml:"reference_density"`       // rho0
	SmoothingLength       float64 `yaml:"smoothing_length"`        // h
	ScaleK                float64 `yaml:"scale_k"`                 // interaction scale factor
	SpeedOfSoundFactor    float64 `yaml:"speed_of_sound_factor"`   // c = factor * sqrt(2*g*T)
	Gravity               float64 `yaml:"gravity"`                 // magnitude, applied as -gravity on y
	FreeSurfaceThreshold  int     `yaml:"free_surface_threshold"`  // neighbor count below which field rho resets
	VirtualNeighborFloor  int     `yaml:"virtual_neighbor_floor"`  // neighbor count below which virtual rho resets
	DT                    float64 `yaml:"dt"`                      // fixed timestep
}

// TankConfig holds the box geometry and initial particle spacing.
type TankConfig struct {
	Width          float64 `yaml:"width"`           // B
	Height         float64 `yaml:"height"`          // T
	ColumnWidth    float64 `yaml:"column_width"`    // L: initial dam-break column width
	InitialSpacing float64 `yaml:"initial_spacing"` // DELTA
}

// RunConfig holds iteration and restart controls (overridable from the CLI).
type RunConfig struct {
	MinIteration int `yaml:"min_iteration"`
	MaxIteration int `yaml:"max_iteration"`
}

// CheckpointConfig holds checkpoint cadence and output directory.
type CheckpointConfig struct {
	Frequency int    `yaml:"frequency"`
	Dir       string `yaml:"dir"`
}

// DerivedConfig holds values computed once from Physics/Tank after load.
type DerivedConfig struct {
	InteractionRadius float64 // scale_k * h
	SpeedOfSound      float64 // c
	ParticleMass      float64 // uniform mass assigned at init
}

// Load parses the embedded defaults and applies overrides, then derives
// the computed fields. overrides may be nil.
func Load(overrides []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if len(overrides) > 0 {
		if err := yaml.Unmarshal(overrides, cfg); err != nil {
			return nil, fmt.Errorf("parsing config overrides: %w", err)
		}
	}
	cfg.derive()
	return cfg, nil
}

// Default returns the embedded defaults with no overrides applied.
func Default() *Config {
	cfg, err := Load(nil)
	if err != nil {
		// The embedded document is part of the binary; a failure here
		// means the build is broken, not a runtime condition.
		panic(fmt.Sprintf("embedded defaults.yaml is invalid: %v", err))
	}
	return cfg
}

func (c *Config) derive() {
	c.Derived.InteractionRadius = c.Physics.ScaleK * c.Physics.SmoothingLength
	c.Derived.SpeedOfSound = c.Physics.SpeedOfSoundFactor * math.Sqrt(2*c.Physics.Gravity*c.Tank.Height)

	nx := 1 + int(c.Tank.ColumnWidth/c.Tank.InitialSpacing)
	ny := 1 + int(c.Tank.Height/c.Tank.InitialSpacing)
	n := nx * ny
	if n <= 0 {
		n = 1
	}
	c.Derived.ParticleMass = c.Tank.ColumnWidth * c.Tank.Height * c.Physics.ReferenceDensity / float64(n)
}

// SubdomainBounds returns the [lo, hi) x-interval owned by rank out of
// size equal-width subdomains across the tank.
func (c *Config) SubdomainBounds(rank, size int) (lo, hi float64) {
	width := c.Tank.Width / float64(size)
	return float64(rank) * width, float64(rank+1) * width
}
