// Package config carries the render-time knobs listed in spec.md §6,
// replacing the teacher's untyped Usage string/int/bool/float property
// bag (usage.go) with a concretely-typed struct loadable from TOML.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ToneMapOperator selects the tone-mapping curve applied by the
// path-trace pipeline's tone-map pass (spec.md §4.8 step 5).
type ToneMapOperator int

const (
	ToneMapACES ToneMapOperator = iota
	ToneMapReinhard
)

func (o ToneMapOperator) String() string {
	switch o {
	case ToneMapACES:
		return "ACES"
	case ToneMapReinhard:
		return "Reinhard"
	default:
		return "unknown"
	}
}

// OutputBuffer selects which intermediate buffer the debug-visualization
// pass re-shades the swapchain image with (spec.md §4.8, §6).
type OutputBuffer int

const (
	OutputFinal OutputBuffer = iota
	OutputAlbedo
	OutputNormals
	OutputWorldPosition
	OutputRoughness
	OutputMetallic
	OutputEmissive
)

// MaxFramesInFlight is the fixed frame-slot count from spec.md §4.1.
const MaxFramesInFlight = 3

// MaxCommandThreads bounds the thread-local command-pool array (§4.1,
// §5). Matches the teacher's SWAPCHAIN_COUNT-adjacent hardcoded sizing
// style (instance.go's SWAPCHAIN_COUNT = 3).
const MaxCommandThreads = 8

// Config is the renderer's recognized configuration surface (spec.md §6).
type Config struct {
	Exposure            float32         `toml:"exposure"`
	ToneMapOperator     ToneMapOperator `toml:"tone_map_operator"`
	MaxSamples          uint32          `toml:"max_samples"`
	MaxRayBounces       uint32          `toml:"max_ray_bounces"`
	TiledRendering      bool            `toml:"tiled_rendering"`
	CurrentOutputBuffer OutputBuffer    `toml:"current_output_buffer"`
}

// Default matches the original renderer's defaults (ACES at exposure 1,
// four bounces, no tiling, final composite).
func Default() Config {
	return Config{
		Exposure:            1.0,
		ToneMapOperator:     ToneMapACES,
		MaxSamples:          4096,
		MaxRayBounces:       4,
		TiledRendering:      false,
		CurrentOutputBuffer: OutputFinal,
	}
}

// Validate enforces spec.md §6's recognized-knob invariants.
func (c Config) Validate() error {
	if c.Exposure < 0 {
		return fmt.Errorf("config: exposure must be >= 0, got %f", c.Exposure)
	}
	if c.MaxRayBounces < 1 || c.MaxRayBounces > 8 {
		return fmt.Errorf("config: max_ray_bounces must be in [1,8], got %d", c.MaxRayBounces)
	}
	return nil
}

// Load reads a TOML configuration file, applying Default() for any
// field left unset by using Default() as the starting value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg back out as TOML, for tooling that edits settings at runtime.
func Save(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
