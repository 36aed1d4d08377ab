package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {

	cfg, err := Parse([]byte(`
glsl_version = "320 es"
shadow_map_size = 1024
msaa_samples = 2
ambient_weight = 0.25

[light]
color = [255, 255, 255]
direction = [0.0, -1.0, 0.0]

[materials.brick]
shading = "lambert"
normal_mapping = false

[materials.metal]
pcf = true
`))
	require.NoError(t, err)

	assert.Equal(t, "320 es", cfg.GLSLVersion)
	assert.Equal(t, int32(1024), cfg.ShadowMapSize)
	assert.Equal(t, int32(2), cfg.MSAASamples)
	assert.InDelta(t, 0.25, cfg.AmbientWeight, 1e-6)

	// Unset keys keep their defaults
	assert.Equal(t, int32(1280), cfg.Width)
	assert.True(t, cfg.Shadows)

	brick := cfg.Material("brick")
	assert.Equal(t, Shading_Lambert, brick.Shading)
	require.NotNil(t, brick.NormalMapping)
	assert.False(t, *brick.NormalMapping)
	assert.Nil(t, brick.PCF)

	metal := cfg.Material("metal")
	require.NotNil(t, metal.PCF)
	assert.True(t, *metal.PCF)

	assert.Equal(t, MaterialConfig{}, cfg.Material("missing"))

	white := cfg.LightColor()
	assert.InDelta(t, 1, white.X(), 1e-4)
	dir := cfg.LightDirection()
	assert.InDelta(t, -1, dir.Y(), 1e-6)
}

func TestSRGBToLinear(t *testing.T) {

	cfg := Default()
	cfg.Light.Color = [3]uint8{0, 128, 255}

	c := cfg.LightColor()
	assert.InDelta(t, 0, c.X(), 1e-6)
	// 128 in sRGB is about 0.216 linear
	assert.InDelta(t, 0.216, c.Y(), 0.01)
	assert.InDelta(t, 1, c.Z(), 1e-4)
}

func TestParseErrors(t *testing.T) {

	for name, src := range map[string]string{
		"unknown key":      `shadow_size = 512`,
		"bad msaa":         `msaa_samples = 3`,
		"bad shadow size":  `shadow_map_size = 500`,
		"bad glsl version": `glsl_version = "450 core"`,
		"bad shading":      "[materials.x]\nshading = \"toon\"",
		"zero light dir":   "[light]\ndirection = [0.0, 0.0, 0.0]",
		"bad ambient":      `ambient_weight = 2.0`,
		"bad syntax":       `msaa_samples = `,
	} {
		_, err := Parse([]byte(src))
		assert.Error(t, err, name)
	}
}

func TestLoad(t *testing.T) {

	path := filepath.Join(t.TempDir(), "spot.toml")
	require.NoError(t, os.WriteFile(path, []byte("msaa_samples = 1\nshadows = false\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int32(1), cfg.MSAASamples)
	assert.False(t, cfg.Shadows)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
