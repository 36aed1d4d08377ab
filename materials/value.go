package materials

import (
	"fmt"

	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/resources"
	"github.com/bloeys/spot/shaders"
)

type ValueKind uint8

const (
	ValueKind_Unknown ValueKind = iota
	ValueKind_Float
	ValueKind_Int
	ValueKind_Vec2
	ValueKind_Vec3
	ValueKind_Vec4
	ValueKind_Mat3
	ValueKind_Mat4
	ValueKind_Mat4Array
	ValueKind_Texture
)

func (k ValueKind) String() string {

	switch k {
	case ValueKind_Float:
		return "float"
	case ValueKind_Int:
		return "int"
	case ValueKind_Vec2:
		return "vec2"
	case ValueKind_Vec3:
		return "vec3"
	case ValueKind_Vec4:
		return "vec4"
	case ValueKind_Mat3:
		return "mat3"
	case ValueKind_Mat4:
		return "mat4"
	case ValueKind_Mat4Array:
		return "mat4[]"
	case ValueKind_Texture:
		return "texture"
	default:
		return "unknown"
	}
}

// Value is a typed uniform value. Only the field matching Kind is used.
type Value struct {
	Kind ValueKind

	F   float32
	I   int32
	V2  gglm.Vec2
	V3  gglm.Vec3
	V4  gglm.Vec4
	M3  gglm.Mat3
	M4  gglm.Mat4
	M4s []gglm.Mat4
	Tex resources.TextureHandle
}

func Float(f float32) Value {
	return Value{Kind: ValueKind_Float, F: f}
}

func Int(i int32) Value {
	return Value{Kind: ValueKind_Int, I: i}
}

func Vec2(v gglm.Vec2) Value {
	return Value{Kind: ValueKind_Vec2, V2: v}
}

func Vec3(v gglm.Vec3) Value {
	return Value{Kind: ValueKind_Vec3, V3: v}
}

func Vec4(v gglm.Vec4) Value {
	return Value{Kind: ValueKind_Vec4, V4: v}
}

func Mat3(m gglm.Mat3) Value {
	return Value{Kind: ValueKind_Mat3, M3: m}
}

func Mat4(m gglm.Mat4) Value {
	return Value{Kind: ValueKind_Mat4, M4: m}
}

func Mat4Array(ms []gglm.Mat4) Value {
	return Value{Kind: ValueKind_Mat4Array, M4s: ms}
}

func Texture(h resources.TextureHandle) Value {
	return Value{Kind: ValueKind_Texture, Tex: h}
}

// checkFits returns an error if the value can't be uploaded to the uniform
func (v *Value) checkFits(u *shaders.UniformDecl) error {

	if u.IsSampler() {
		if v.Kind != ValueKind_Texture {
			return fmt.Errorf("uniform is a %s but the value is a %s", u.Type, v.Kind)
		}
		return nil
	}

	if u.ArrayLen > 0 {

		if u.Type != "mat4" || v.Kind != ValueKind_Mat4Array {
			return fmt.Errorf("uniform is a %s[%d] but the value is a %s", u.Type, u.ArrayLen, v.Kind)
		}

		if len(v.M4s) > u.ArrayLen {
			return fmt.Errorf("uniform holds %d elements but the value has %d", u.ArrayLen, len(v.M4s))
		}

		return nil
	}

	want := ValueKind_Unknown
	switch u.Type {
	case "float":
		want = ValueKind_Float
	case "int", "bool":
		want = ValueKind_Int
	case "vec2":
		want = ValueKind_Vec2
	case "vec3":
		want = ValueKind_Vec3
	case "vec4":
		want = ValueKind_Vec4
	case "mat3":
		want = ValueKind_Mat3
	case "mat4":
		want = ValueKind_Mat4
	default:
		return fmt.Errorf("uniform type %s is not supported", u.Type)
	}

	if v.Kind != want {
		return fmt.Errorf("uniform is a %s but the value is a %s", u.Type, v.Kind)
	}

	return nil
}
