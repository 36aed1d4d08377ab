// Package gpu declares the single rendering API abstraction the core talks to.
// Backends (see renderer/rend3dgl) translate these calls to a graphics API;
// gpurec records them for tests.
package gpu

import (
	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/buffers"
)

type TextureFormat uint8

const (
	TextureFormat_Unknown TextureFormat = iota
	TextureFormat_RGBA8
	TextureFormat_SRGBA8
	TextureFormat_RGBA16F
	TextureFormat_Depth16
	TextureFormat_Depth24
)

func (f TextureFormat) IsDepth() bool {
	return f == TextureFormat_Depth16 || f == TextureFormat_Depth24
}

func (f TextureFormat) IsColor() bool {
	return f == TextureFormat_RGBA8 || f == TextureFormat_SRGBA8 || f == TextureFormat_RGBA16F
}

// BytesPerPixel is the size of one pixel of uploaded data
func (f TextureFormat) BytesPerPixel() int {

	switch f {
	case TextureFormat_RGBA8, TextureFormat_SRGBA8:
		return 4
	case TextureFormat_RGBA16F:
		return 8
	case TextureFormat_Depth16:
		return 2
	case TextureFormat_Depth24:
		return 4
	default:
		return 0
	}
}

func (f TextureFormat) String() string {

	switch f {
	case TextureFormat_RGBA8:
		return "RGBA8"
	case TextureFormat_SRGBA8:
		return "SRGBA8"
	case TextureFormat_RGBA16F:
		return "RGBA16F"
	case TextureFormat_Depth16:
		return "Depth16"
	case TextureFormat_Depth24:
		return "Depth24"
	default:
		return "Unknown"
	}
}

type TextureKind uint8

const (
	TextureKind_2D TextureKind = iota
	TextureKind_Cube
)

func (k TextureKind) String() string {
	if k == TextureKind_Cube {
		return "Cube"
	}
	return "2D"
}

type TextureDesc struct {
	Name    string
	Kind    TextureKind
	Format  TextureFormat
	Width   int32
	Height  int32
	Samples int32

	// Pixels is nil for render targets. 2D textures have one entry, cubemaps
	// six in the order +X, -X, +Y, -Y, +Z, -Z.
	Pixels [][]byte

	// ClampToBorder makes samples outside the texture read as fully lit depth,
	// used by shadow maps.
	ClampToBorder bool
}

type FramebufferDesc struct {
	Name   string
	Width  int32
	Height int32

	// Texture ids of the attachments. Zero means no attachment.
	ColorTex uint32
	DepthTex uint32
	Samples  int32
}

type VertexArrayDesc struct {
	Name     string
	Layout   buffers.Layout
	Usage    buffers.BufUsage
	Vertices []float32
	Indices  []uint32
}

type SubDraw struct {
	BaseVertex int32
	BaseIndex  uint32
	IndexCount int32
}

// PassState is the fixed function state a pass renders with
type PassState struct {
	ClearColor    gglm.Vec4
	DoClearColor  bool
	DoClearDepth  bool
	DepthTest     bool
	DepthLessEq   bool
	CullBackFaces bool
	Blend         bool
}

type Limits struct {
	MaxTextureSize  int32
	MaxSamples      int32
	MaxTextureUnits int32
}

// Device is implemented by rendering backends. Ids returned by the Create*
// calls are backend object names; zero is never a valid id.
type Device interface {
	Limits() Limits

	// CreateProgram compiles and links a program. The returned error carries
	// the compiler/linker diagnostic.
	CreateProgram(name, vertSrc, fragSrc string) (uint32, error)
	DeleteProgram(id uint32)

	CreateTexture(desc TextureDesc) (uint32, error)
	DeleteTexture(id uint32)

	CreateFramebuffer(desc FramebufferDesc) (uint32, error)
	DeleteFramebuffer(id uint32)

	CreateVertexArray(desc VertexArrayDesc) (uint32, error)
	DeleteVertexArray(id uint32)

	// BeginPass binds the framebuffer (0 is the default one), sets the
	// viewport and applies the state, clearing as requested.
	BeginPass(fbo uint32, width, height int32, state PassState)

	UseProgram(id uint32)
	BindTexture(unit int32, kind TextureKind, samples int32, id uint32)

	SetUnifInt32(prog uint32, name string, val int32)
	SetUnifFloat32(prog uint32, name string, val float32)
	SetUnifVec2(prog uint32, name string, val *gglm.Vec2)
	SetUnifVec3(prog uint32, name string, val *gglm.Vec3)
	SetUnifVec4(prog uint32, name string, val *gglm.Vec4)
	SetUnifMat3(prog uint32, name string, val *gglm.Mat3)
	SetUnifMat4(prog uint32, name string, val *gglm.Mat4)
	SetUnifMat4Array(prog uint32, name string, vals []gglm.Mat4)

	// DrawElements draws an indexed sub range of the vertex array. An
	// instance count above 1 issues a single instanced draw.
	DrawElements(vao uint32, sub SubDraw, instances int32)
	DrawArrays(vao uint32, first, count int32)
}
