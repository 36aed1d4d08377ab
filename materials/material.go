package materials

import (
	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/resources"
	"github.com/bloeys/spot/shaders"
)

var (
	lastMatId uint32
)

// Defaults are used for uniforms a material doesn't set and the pass doesn't
// supply. Textures never have defaults: a variant that samples a texture
// requires the material to provide it.
var Defaults = map[string]Value{
	"baseColorFactor":   Vec4(gglm.NewVec4(1, 1, 1, 1)),
	"metallicFactor":    Float(1),
	"roughnessFactor":   Float(1),
	"occlusionStrength": Float(1),
	"normalScale":       Float(1),
}

// Material is a shader variant key plus the uniform values that configure it
type Material struct {
	Id     uint32
	Name   string
	Key    shaders.Key
	Params map[string]Value
}

func (m *Material) SetFloat(name string, f float32) {
	m.Params[name] = Float(f)
}

func (m *Material) SetInt32(name string, i int32) {
	m.Params[name] = Int(i)
}

func (m *Material) SetVec3(name string, v gglm.Vec3) {
	m.Params[name] = Vec3(v)
}

func (m *Material) SetVec4(name string, v gglm.Vec4) {
	m.Params[name] = Vec4(v)
}

func (m *Material) SetMat4(name string, v gglm.Mat4) {
	m.Params[name] = Mat4(v)
}

func (m *Material) SetTexture(name string, h resources.TextureHandle) {
	m.Params[name] = Texture(h)
}

func (m *Material) Param(name string) (Value, bool) {
	v, ok := m.Params[name]
	return v, ok
}

// SetFeature turns a variant feature on or off
func (m *Material) SetFeature(f shaders.Features, on bool) {

	if on {
		m.Key = m.Key.With(f)
	} else {
		m.Key = m.Key.Without(f)
	}
}

func getNewMatId() uint32 {
	lastMatId++
	return lastMatId
}

func NewMaterial(matName string, key shaders.Key) *Material {
	return &Material{
		Id:     getNewMatId(),
		Name:   matName,
		Key:    key,
		Params: map[string]Value{},
	}
}
