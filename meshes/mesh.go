package meshes

import (
	"errors"
	"fmt"

	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/assert"
	"github.com/bloeys/spot/buffers"
	"github.com/chewxy/math32"
)

type SubMesh struct {
	BaseVertex int32
	BaseIndex  uint32
	IndexCount int32
}

// AABB is an axis aligned bounding box
type AABB struct {
	Min gglm.Vec3
	Max gglm.Vec3
}

func (b *AABB) Center() gglm.Vec3 {
	return gglm.NewVec3(
		(b.Min.X()+b.Max.X())*0.5,
		(b.Min.Y()+b.Max.Y())*0.5,
		(b.Min.Z()+b.Max.Z())*0.5,
	)
}

// Radius of the sphere enclosing the box
func (b *AABB) Radius() float32 {
	dx := b.Max.X() - b.Min.X()
	dy := b.Max.Y() - b.Min.Y()
	dz := b.Max.Z() - b.Min.Z()
	return math32.Sqrt(dx*dx+dy*dy+dz*dz) * 0.5
}

// Corners returns the 8 corners of the box
func (b *AABB) Corners() [8]gglm.Vec3 {

	var out [8]gglm.Vec3
	for i := 0; i < 8; i++ {

		x := b.Min.X()
		if i&1 != 0 {
			x = b.Max.X()
		}

		y := b.Min.Y()
		if i&2 != 0 {
			y = b.Max.Y()
		}

		z := b.Min.Z()
		if i&4 != 0 {
			z = b.Max.Z()
		}

		out[i] = gglm.NewVec3(x, y, z)
	}

	return out
}

// Extend grows the box to contain p
func (b *AABB) Extend(p *gglm.Vec3) {
	b.Min.Data[0] = math32.Min(b.Min.Data[0], p.Data[0])
	b.Min.Data[1] = math32.Min(b.Min.Data[1], p.Data[1])
	b.Min.Data[2] = math32.Min(b.Min.Data[2], p.Data[2])
	b.Max.Data[0] = math32.Max(b.Max.Data[0], p.Data[0])
	b.Max.Data[1] = math32.Max(b.Max.Data[1], p.Data[1])
	b.Max.Data[2] = math32.Max(b.Max.Data[2], p.Data[2])
}

// EmptyAABB returns an inverted box that any Extend call will replace
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: gglm.NewVec3(inf, inf, inf),
		Max: gglm.NewVec3(-inf, -inf, -inf),
	}
}

func (b *AABB) IsEmpty() bool {
	return b.Min.X() > b.Max.X()
}

// MeshData is decoded geometry handed to the core by the asset collaborator.
//
// Vertices are interleaved following Layout. When SubMeshes is empty the whole
// index buffer is drawn as one sub mesh.
type MeshData struct {
	Name      string
	Layout    buffers.Layout
	Vertices  []float32
	Indices   []uint32
	SubMeshes []SubMesh
}

// Mesh is the GPU side of a MeshData, owned by the resource store.
type Mesh struct {
	Name string

	/*
		Vao attributes are bound by semantic, not by layout order:
			- Loc0: Position
			- Loc1: Normal
			- Loc2: UV0
			- Loc3: Tangent
			- Loc4: Bitangent
			- Loc5: Color

		A mesh only has the attributes its layout declares, and a shader variant
		that reads a missing one fails to bind.
	*/
	Vao       uint32
	Layout    buffers.Layout
	SubMeshes []SubMesh
	Bounds    AABB
}

func (m *MeshData) VertexCount() int {

	stride := m.Layout.Stride() / 4
	if stride == 0 {
		return 0
	}

	return len(m.Vertices) / int(stride)
}

// Validate checks the data is self consistent before it is uploaded
func (m *MeshData) Validate() error {

	if len(m.Layout) == 0 {
		return fmt.Errorf("mesh '%s' has an empty vertex layout", m.Name)
	}

	if !m.Layout.Has(buffers.Semantic_Position) {
		return fmt.Errorf("mesh '%s' has no position element in its vertex layout", m.Name)
	}

	floatsPerVertex := int(m.Layout.Stride() / 4)
	if len(m.Vertices) == 0 || len(m.Vertices)%floatsPerVertex != 0 {
		return fmt.Errorf("mesh '%s' has %d floats of vertex data which is not a multiple of the vertex size (%d floats)", m.Name, len(m.Vertices), floatsPerVertex)
	}

	if len(m.Indices) == 0 || len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh '%s' has %d indices, expected a non-zero multiple of 3", m.Name, len(m.Indices))
	}

	vertCount := uint32(m.VertexCount())
	for _, sm := range m.subMeshesOrDefault() {

		if int(sm.BaseIndex)+int(sm.IndexCount) > len(m.Indices) {
			return fmt.Errorf("sub mesh of mesh '%s' reads indices [%d, %d) but there are only %d", m.Name, sm.BaseIndex, int(sm.BaseIndex)+int(sm.IndexCount), len(m.Indices))
		}

		for i := sm.BaseIndex; i < sm.BaseIndex+uint32(sm.IndexCount); i++ {
			if m.Indices[i]+uint32(sm.BaseVertex) >= vertCount {
				return fmt.Errorf("mesh '%s' index %d references vertex %d but there are only %d vertices", m.Name, i, m.Indices[i]+uint32(sm.BaseVertex), vertCount)
			}
		}
	}

	return nil
}

func (m *MeshData) subMeshesOrDefault() []SubMesh {

	if len(m.SubMeshes) > 0 {
		return m.SubMeshes
	}

	return []SubMesh{{BaseVertex: 0, BaseIndex: 0, IndexCount: int32(len(m.Indices))}}
}

// Bounds computes the box containing every vertex position
func (m *MeshData) Bounds() AABB {

	b := EmptyAABB()

	posElem, ok := m.Layout.Find(buffers.Semantic_Position)
	if !ok {
		return b
	}

	floatsPerVertex := int(m.Layout.Stride() / 4)
	posOffset := posElem.Offset / 4
	for i := 0; i+floatsPerVertex <= len(m.Vertices); i += floatsPerVertex {
		p := gglm.NewVec3(m.Vertices[i+posOffset], m.Vertices[i+posOffset+1], m.Vertices[i+posOffset+2])
		b.Extend(&p)
	}

	return b
}

// NewMesh fills the CPU side fields of a mesh. The vao is set by whoever uploads it.
func NewMesh(data *MeshData) (Mesh, error) {

	if err := data.Validate(); err != nil {
		return Mesh{}, err
	}

	return Mesh{
		Name:      data.Name,
		Layout:    data.Layout,
		SubMeshes: data.subMeshesOrDefault(),
		Bounds:    data.Bounds(),
	}, nil
}

// Attributes are per vertex arrays to be interleaved into a MeshData.
// Positions are required, the rest are optional but must match its length.
type Attributes struct {
	Positions  []gglm.Vec3
	Normals    []gglm.Vec3
	UV0s       []gglm.Vec2
	Tangents   []gglm.Vec3
	Bitangents []gglm.Vec3
	Colors     []gglm.Vec4
}

// Interleave builds a MeshData from separate attribute arrays
func Interleave(name string, attribs Attributes, indices []uint32) (MeshData, error) {

	if len(attribs.Positions) == 0 {
		return MeshData{}, errors.New("no positions sent to interleave for mesh " + name)
	}

	elems := []buffers.Element{{Semantic: buffers.Semantic_Position, ElementType: buffers.DataTypeVec3}}
	arrs := []arrToInterleave{{V3s: attribs.Positions}}

	if len(attribs.Normals) > 0 {
		elems = append(elems, buffers.Element{Semantic: buffers.Semantic_Normal, ElementType: buffers.DataTypeVec3})
		arrs = append(arrs, arrToInterleave{V3s: attribs.Normals})
	}

	if len(attribs.UV0s) > 0 {
		elems = append(elems, buffers.Element{Semantic: buffers.Semantic_UV0, ElementType: buffers.DataTypeVec2})
		arrs = append(arrs, arrToInterleave{V2s: attribs.UV0s})
	}

	if len(attribs.Tangents) > 0 {
		elems = append(elems, buffers.Element{Semantic: buffers.Semantic_Tangent, ElementType: buffers.DataTypeVec3})
		arrs = append(arrs, arrToInterleave{V3s: attribs.Tangents})
	}

	if len(attribs.Bitangents) > 0 {
		elems = append(elems, buffers.Element{Semantic: buffers.Semantic_Bitangent, ElementType: buffers.DataTypeVec3})
		arrs = append(arrs, arrToInterleave{V3s: attribs.Bitangents})
	}

	if len(attribs.Colors) > 0 {
		elems = append(elems, buffers.Element{Semantic: buffers.Semantic_Color, ElementType: buffers.DataTypeVec4})
		arrs = append(arrs, arrToInterleave{V4s: attribs.Colors})
	}

	for i := 1; i < len(arrs); i++ {
		if arrs[i].len() != len(attribs.Positions) {
			return MeshData{}, fmt.Errorf("mesh '%s' element %s has %d entries but there are %d positions", name, elems[i].Semantic, arrs[i].len(), len(attribs.Positions))
		}
	}

	return MeshData{
		Name:     name,
		Layout:   buffers.NewLayout(elems...),
		Vertices: interleave(arrs...),
		Indices:  indices,
	}, nil
}

type arrToInterleave struct {
	V2s []gglm.Vec2
	V3s []gglm.Vec3
	V4s []gglm.Vec4
}

func (a *arrToInterleave) len() int {
	if len(a.V2s) > 0 {
		return len(a.V2s)
	} else if len(a.V3s) > 0 {
		return len(a.V3s)
	}
	return len(a.V4s)
}

func (a *arrToInterleave) get(i int) []float32 {

	assert.T(len(a.V2s) == 0 || len(a.V3s) == 0, "One array should be set in arrToInterleave, but multiple arrays are set")
	assert.T(len(a.V2s) == 0 || len(a.V4s) == 0, "One array should be set in arrToInterleave, but multiple arrays are set")
	assert.T(len(a.V3s) == 0 || len(a.V4s) == 0, "One array should be set in arrToInterleave, but multiple arrays are set")

	if len(a.V2s) > 0 {
		return a.V2s[i].Data[:]
	} else if len(a.V3s) > 0 {
		return a.V3s[i].Data[:]
	} else {
		return a.V4s[i].Data[:]
	}
}

func interleave(arrs ...arrToInterleave) []float32 {

	assert.T(len(arrs) > 0, "No input sent to interleave")

	elementCount := arrs[0].len()

	//Calculate final size of the float buffer
	totalSize := 0
	for i := 0; i < len(arrs); i++ {

		if len(arrs[i].V2s) > 0 {
			totalSize += len(arrs[i].V2s) * 2
		} else if len(arrs[i].V3s) > 0 {
			totalSize += len(arrs[i].V3s) * 3
		} else {
			totalSize += len(arrs[i].V4s) * 4
		}
	}

	out := make([]float32, 0, totalSize)
	for i := 0; i < elementCount; i++ {
		for arrToUse := 0; arrToUse < len(arrs); arrToUse++ {
			out = append(out, arrs[arrToUse].get(i)...)
		}
	}

	return out
}
