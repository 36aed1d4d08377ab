package buffers

import (
	"github.com/bloeys/spot/assert"
)

// Semantic says what a vertex element holds. Each semantic is bound to a fixed
// attribute location so shader variants can pick the subset they need without
// caring about the order a mesh was interleaved in.
type Semantic uint8

const (
	Semantic_Unknown Semantic = iota
	Semantic_Position
	Semantic_Normal
	Semantic_UV0
	Semantic_Tangent
	Semantic_Bitangent
	Semantic_Color
)

// Location is the shader attribute location of the semantic
func (s Semantic) Location() uint32 {

	switch s {
	case Semantic_Position:
		return 0
	case Semantic_Normal:
		return 1
	case Semantic_UV0:
		return 2
	case Semantic_Tangent:
		return 3
	case Semantic_Bitangent:
		return 4
	case Semantic_Color:
		return 5
	default:
		assert.T(false, "Unknown semantic passed. Semantic '%d'", s)
		return 0
	}
}

// AttribName is the vertex input name shaders use for the semantic
func (s Semantic) AttribName() string {

	switch s {
	case Semantic_Position:
		return "aPosition"
	case Semantic_Normal:
		return "aNormal"
	case Semantic_UV0:
		return "aUV0"
	case Semantic_Tangent:
		return "aTangent"
	case Semantic_Bitangent:
		return "aBitangent"
	case Semantic_Color:
		return "aColor"
	default:
		return ""
	}
}

// SemanticFromAttribName is the inverse of Semantic.AttribName
func SemanticFromAttribName(name string) Semantic {

	for s := Semantic_Position; s <= Semantic_Color; s++ {
		if s.AttribName() == name {
			return s
		}
	}

	return Semantic_Unknown
}

func (s Semantic) String() string {

	switch s {
	case Semantic_Position:
		return "Position"
	case Semantic_Normal:
		return "Normal"
	case Semantic_UV0:
		return "UV0"
	case Semantic_Tangent:
		return "Tangent"
	case Semantic_Bitangent:
		return "Bitangent"
	case Semantic_Color:
		return "Color"
	default:
		return "Unknown"
	}
}

// Element represents an element that makes up a buffer (e.g. Vec3 at an offset of 12 bytes)
type Element struct {
	Offset   int
	Semantic Semantic
	ElementType
}

// ElementType is the type of an element thats makes up a buffer (e.g. Vec3)
type ElementType uint8

const (
	DataTypeUnknown ElementType = iota

	DataTypeUint32
	DataTypeInt32
	DataTypeFloat32

	DataTypeVec2
	DataTypeVec3
	DataTypeVec4

	DataTypeMat2
	DataTypeMat3
	DataTypeMat4
)

// CompSize returns the size in bytes for one component of the type (e.g. for Vec2 its 4).
func (dt ElementType) CompSize() int32 {

	switch dt {

	case DataTypeUint32:
		fallthrough
	case DataTypeFloat32:
		fallthrough
	case DataTypeInt32:
		fallthrough
	case DataTypeVec2:
		fallthrough
	case DataTypeVec3:
		fallthrough
	case DataTypeVec4:
		fallthrough
	case DataTypeMat2:
		fallthrough
	case DataTypeMat3:
		fallthrough
	case DataTypeMat4:
		return 4

	default:
		assert.T(false, "Unknown data type passed. DataType '%d'", dt)
		return 0
	}
}

// CompCount returns the number of components in the element (e.g. for Vec2 its 2)
func (dt ElementType) CompCount() int32 {

	switch dt {
	case DataTypeUint32:
		fallthrough
	case DataTypeFloat32:
		fallthrough
	case DataTypeInt32:
		return 1

	case DataTypeVec2:
		return 2
	case DataTypeVec3:
		return 3
	case DataTypeVec4:
		return 4

	case DataTypeMat2:
		return 2 * 2
	case DataTypeMat3:
		return 3 * 3
	case DataTypeMat4:
		return 4 * 4

	default:
		assert.T(false, "Unknown data type passed. DataType '%d'", dt)
		return 0
	}
}

// Size returns the total size in bytes (e.g. for vec3 its 3*4=12 bytes)
func (dt ElementType) Size() int32 {
	return dt.CompSize() * dt.CompCount()
}

func (dt ElementType) String() string {

	switch dt {

	case DataTypeUint32:
		return "uint32"
	case DataTypeFloat32:
		return "float32"
	case DataTypeInt32:
		return "int32"

	case DataTypeVec2:
		return "Vec2"
	case DataTypeVec3:
		return "Vec3"
	case DataTypeVec4:
		return "Vec4"

	case DataTypeMat2:
		return "Mat2"
	case DataTypeMat3:
		return "Mat3"
	case DataTypeMat4:
		return "Mat4"

	default:
		return "Unknown"
	}
}

// Layout is an ordered list of interleaved vertex elements
type Layout []Element

// NewLayout computes the offsets of the given elements, packed in order
func NewLayout(elements ...Element) Layout {

	l := make(Layout, len(elements))
	copy(l, elements)

	offset := 0
	for i := 0; i < len(l); i++ {
		l[i].Offset = offset
		offset += int(l[i].Size())
	}

	return l
}

// Stride is the size in bytes of one vertex
func (l Layout) Stride() int32 {

	var stride int32
	for i := 0; i < len(l); i++ {
		stride += l[i].Size()
	}

	return stride
}

// Find returns the element with the given semantic
func (l Layout) Find(s Semantic) (Element, bool) {

	for i := 0; i < len(l); i++ {
		if l[i].Semantic == s {
			return l[i], true
		}
	}

	return Element{}, false
}

func (l Layout) Has(s Semantic) bool {
	_, ok := l.Find(s)
	return ok
}
