package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/bloeys/gglm/gglm"
	"github.com/mandykoh/prism/srgb"
	"github.com/pelletier/go-toml/v2"
)

const (
	Shading_PBR     = "pbr"
	Shading_Lambert = "lambert"
)

type LightConfig struct {
	// Color is 8-bit sRGB
	Color     [3]uint8   `toml:"color"`
	Direction [3]float32 `toml:"direction"`
}

// MaterialConfig overrides variant features of the material with the same
// name. Nil fields keep what the material asked for.
type MaterialConfig struct {
	Shading       string `toml:"shading"`
	NormalMapping *bool  `toml:"normal_mapping"`
	PCF           *bool  `toml:"pcf"`
}

type Config struct {
	Width  int32 `toml:"width"`
	Height int32 `toml:"height"`

	// GLSLVersion is '330 core' on desktop and '320 es' on handhelds
	GLSLVersion string `toml:"glsl_version"`

	Shadows       bool  `toml:"shadows"`
	ShadowMapSize int32 `toml:"shadow_map_size"`

	// MSAASamples of 1 renders single sampled with no resolve pass
	MSAASamples int32 `toml:"msaa_samples"`

	AmbientWeight float32     `toml:"ambient_weight"`
	Light         LightConfig `toml:"light"`
	ClearColor    [3]uint8    `toml:"clear_color"`

	// DefaultShading is used by materials that don't pick a shading family
	DefaultShading string `toml:"default_shading"`
	ParallelUpdate bool   `toml:"parallel_update"`

	Materials map[string]MaterialConfig `toml:"materials"`
}

func Default() Config {
	return Config{
		Width:          1280,
		Height:         720,
		GLSLVersion:    "330 core",
		Shadows:        true,
		ShadowMapSize:  512,
		MSAASamples:    4,
		AmbientWeight:  0.1,
		Light:          LightConfig{Color: [3]uint8{255, 244, 229}, Direction: [3]float32{-0.4, -1, -0.3}},
		ClearColor:     [3]uint8{30, 30, 36},
		DefaultShading: Shading_PBR,
		Materials:      map[string]MaterialConfig{},
	}
}

// Load reads a toml file over the defaults
func Load(path string) (Config, error) {

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config file '%s': %w", path, err)
	}

	return cfg, nil
}

// Parse decodes toml over the defaults. Unknown keys are an error.
func Parse(data []byte) (Config, error) {

	cfg := Default()

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {

		var strictErr *toml.StrictMissingError
		if errors.As(err, &strictErr) {
			return Config{}, errors.New(strictErr.String())
		}

		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			return Config{}, errors.New(decodeErr.String())
		}

		return Config{}, err
	}

	if cfg.Materials == nil {
		cfg.Materials = map[string]MaterialConfig{}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {

	errs := []error{}

	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid render size %dx%d", c.Width, c.Height))
	}

	if c.GLSLVersion != "330 core" && c.GLSLVersion != "320 es" {
		errs = append(errs, fmt.Errorf("glsl_version must be '330 core' or '320 es' but is '%s'", c.GLSLVersion))
	}

	if c.ShadowMapSize <= 0 || c.ShadowMapSize&(c.ShadowMapSize-1) != 0 {
		errs = append(errs, fmt.Errorf("shadow_map_size must be a power of two but is %d", c.ShadowMapSize))
	}

	switch c.MSAASamples {
	case 1, 2, 4, 8:
	default:
		errs = append(errs, fmt.Errorf("msaa_samples must be 1, 2, 4 or 8 but is %d", c.MSAASamples))
	}

	if c.AmbientWeight < 0 || c.AmbientWeight > 1 {
		errs = append(errs, fmt.Errorf("ambient_weight must be in [0, 1] but is %f", c.AmbientWeight))
	}

	if c.Light.Direction == [3]float32{} {
		errs = append(errs, errors.New("light direction must not be zero"))
	}

	if !validShading(c.DefaultShading) || c.DefaultShading == "" {
		errs = append(errs, fmt.Errorf("default_shading must be '%s' or '%s' but is '%s'", Shading_PBR, Shading_Lambert, c.DefaultShading))
	}

	for name, m := range c.Materials {
		if !validShading(m.Shading) {
			errs = append(errs, fmt.Errorf("material '%s' has unknown shading '%s'", name, m.Shading))
		}
	}

	return errors.Join(errs...)
}

func validShading(s string) bool {
	return s == "" || s == Shading_PBR || s == Shading_Lambert
}

// LightColor is the light color in linear space
func (c *Config) LightColor() gglm.Vec3 {
	return gglm.NewVec3(srgb.From8Bit(c.Light.Color[0]), srgb.From8Bit(c.Light.Color[1]), srgb.From8Bit(c.Light.Color[2]))
}

// LightDirection is the normalized direction light travels in
func (c *Config) LightDirection() gglm.Vec3 {
	d := gglm.NewVec3(c.Light.Direction[0], c.Light.Direction[1], c.Light.Direction[2])
	d.Normalize()
	return d
}

// ClearColorLinear is the opaque clear color in linear space
func (c *Config) ClearColorLinear() gglm.Vec4 {
	return gglm.NewVec4(srgb.From8Bit(c.ClearColor[0]), srgb.From8Bit(c.ClearColor[1]), srgb.From8Bit(c.ClearColor[2]), 1)
}

// Material returns the overrides of a material, the zero value if it has none
func (c *Config) Material(name string) MaterialConfig {
	return c.Materials[name]
}
