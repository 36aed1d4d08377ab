package meshes

import (
	"testing"

	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/buffers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterleave(t *testing.T) {

	md, err := Interleave("tri", Attributes{
		Positions: []gglm.Vec3{gglm.NewVec3(0, 0, 0), gglm.NewVec3(1, 0, 0), gglm.NewVec3(0, 1, 0)},
		UV0s:      []gglm.Vec2{gglm.NewVec2(0, 0), gglm.NewVec2(1, 0), gglm.NewVec2(0, 1)},
	}, []uint32{0, 1, 2})
	require.NoError(t, err)

	assert.Equal(t, int32(20), md.Layout.Stride())
	assert.Equal(t, 3, md.VertexCount())
	assert.Equal(t, []float32{
		0, 0, 0, 0, 0,
		1, 0, 0, 1, 0,
		0, 1, 0, 0, 1,
	}, md.Vertices)

	uv, ok := md.Layout.Find(buffers.Semantic_UV0)
	require.True(t, ok)
	assert.Equal(t, 12, uv.Offset)
	assert.False(t, md.Layout.Has(buffers.Semantic_Normal))
}

func TestInterleaveLengthMismatch(t *testing.T) {

	_, err := Interleave("bad", Attributes{
		Positions: []gglm.Vec3{gglm.NewVec3(0, 0, 0), gglm.NewVec3(1, 0, 0)},
		Normals:   []gglm.Vec3{gglm.NewVec3(0, 1, 0)},
	}, []uint32{0, 1, 0})
	assert.Error(t, err)

	_, err = Interleave("empty", Attributes{}, nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {

	quad := FullscreenQuad()
	assert.NoError(t, quad.Validate())

	noPos := quad
	noPos.Layout = buffers.NewLayout(buffers.Element{Semantic: buffers.Semantic_UV0, ElementType: buffers.DataTypeVec2})
	assert.Error(t, noPos.Validate())

	badCount := quad
	badCount.Indices = []uint32{0, 1}
	assert.Error(t, badCount.Validate())

	outOfRange := quad
	outOfRange.Indices = []uint32{0, 1, 4}
	assert.Error(t, outOfRange.Validate())

	badSub := quad
	badSub.SubMeshes = []SubMesh{{BaseIndex: 3, IndexCount: 6}}
	assert.Error(t, badSub.Validate())
}

func TestBounds(t *testing.T) {

	box := Box("box", gglm.NewVec3(1, 2, 3))
	b := box.Bounds()

	assert.InDelta(t, -1, b.Min.X(), 1e-6)
	assert.InDelta(t, 2, b.Max.Y(), 1e-6)
	assert.InDelta(t, -3, b.Min.Z(), 1e-6)

	c := b.Center()
	assert.InDelta(t, 0, c.X(), 1e-6)
	assert.InDelta(t, 0, c.Y(), 1e-6)

	empty := EmptyAABB()
	assert.True(t, empty.IsEmpty())
	p := gglm.NewVec3(1, 1, 1)
	empty.Extend(&p)
	assert.False(t, empty.IsEmpty())
	assert.Equal(t, empty.Min, empty.Max)
}

func TestPrimitives(t *testing.T) {

	for _, md := range []MeshData{
		FullscreenQuad(),
		SkyboxCube(),
		Box("box", gglm.NewVec3(1, 1, 1)),
		Plane("plane", 10, 10),
		GrassBlade(0.1, 0.5),
	} {
		assert.NoError(t, md.Validate(), md.Name)
	}

	box := Box("box", gglm.NewVec3(1, 1, 1))
	assert.Equal(t, 24, box.VertexCount())
	assert.True(t, box.Layout.Has(buffers.Semantic_Tangent))
}
