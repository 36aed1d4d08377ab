package meshes

import (
	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/buffers"
)

// FullscreenQuad covers clip space and carries uvs. It is what the blit
// passes draw.
func FullscreenQuad() MeshData {

	return MeshData{
		Name: "fullscreen-quad",
		Layout: buffers.NewLayout(
			buffers.Element{Semantic: buffers.Semantic_Position, ElementType: buffers.DataTypeVec3},
			buffers.Element{Semantic: buffers.Semantic_UV0, ElementType: buffers.DataTypeVec2},
		),
		Vertices: []float32{
			-1, -1, 0, 0, 0,
			1, -1, 0, 1, 0,
			1, 1, 0, 1, 1,
			-1, 1, 0, 0, 1,
		},
		Indices: []uint32{0, 1, 2, 2, 3, 0},
	}
}

// SkyboxCube is a unit cube with positions only, wound to be seen from inside
func SkyboxCube() MeshData {

	return MeshData{
		Name: "skybox-cube",
		Layout: buffers.NewLayout(
			buffers.Element{Semantic: buffers.Semantic_Position, ElementType: buffers.DataTypeVec3},
		),
		Vertices: []float32{
			-1, -1, -1,
			1, -1, -1,
			1, 1, -1,
			-1, 1, -1,
			-1, -1, 1,
			1, -1, 1,
			1, 1, 1,
			-1, 1, 1,
		},
		Indices: []uint32{
			// -Z
			0, 2, 1, 0, 3, 2,
			// +Z
			4, 5, 6, 4, 6, 7,
			// -X
			0, 4, 7, 0, 7, 3,
			// +X
			1, 2, 6, 1, 6, 5,
			// -Y
			0, 1, 5, 0, 5, 4,
			// +Y
			3, 7, 6, 3, 6, 2,
		},
	}
}

// Box is a lit box of the given half extents with normals, uvs and tangents
func Box(name string, halfExtents gglm.Vec3) MeshData {

	type face struct {
		n, t gglm.Vec3
	}

	faces := [6]face{
		{n: gglm.NewVec3(1, 0, 0), t: gglm.NewVec3(0, 0, -1)},
		{n: gglm.NewVec3(-1, 0, 0), t: gglm.NewVec3(0, 0, 1)},
		{n: gglm.NewVec3(0, 1, 0), t: gglm.NewVec3(1, 0, 0)},
		{n: gglm.NewVec3(0, -1, 0), t: gglm.NewVec3(1, 0, 0)},
		{n: gglm.NewVec3(0, 0, 1), t: gglm.NewVec3(1, 0, 0)},
		{n: gglm.NewVec3(0, 0, -1), t: gglm.NewVec3(-1, 0, 0)},
	}

	attribs := Attributes{
		Positions: make([]gglm.Vec3, 0, 24),
		Normals:   make([]gglm.Vec3, 0, 24),
		UV0s:      make([]gglm.Vec2, 0, 24),
		Tangents:  make([]gglm.Vec3, 0, 24),
	}
	indices := make([]uint32, 0, 36)

	uvs := [4]gglm.Vec2{
		gglm.NewVec2(0, 0),
		gglm.NewVec2(1, 0),
		gglm.NewVec2(1, 1),
		gglm.NewVec2(0, 1),
	}

	for _, f := range faces {

		n := f.n
		t := f.t
		b := gglm.Cross(&n, &t)

		base := uint32(len(attribs.Positions))
		for i := 0; i < 4; i++ {

			su := float32(-1)
			if i == 1 || i == 2 {
				su = 1
			}

			sv := float32(-1)
			if i >= 2 {
				sv = 1
			}

			p := gglm.NewVec3(
				(n.X()+t.X()*su+b.X()*sv)*halfExtents.X(),
				(n.Y()+t.Y()*su+b.Y()*sv)*halfExtents.Y(),
				(n.Z()+t.Z()*su+b.Z()*sv)*halfExtents.Z(),
			)

			attribs.Positions = append(attribs.Positions, p)
			attribs.Normals = append(attribs.Normals, n)
			attribs.UV0s = append(attribs.UV0s, uvs[i])
			attribs.Tangents = append(attribs.Tangents, t)
		}

		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}

	md, err := Interleave(name, attribs, indices)
	if err != nil {
		panic(err)
	}

	return md
}

// Plane is a y-up plane of the given size centered on the origin
func Plane(name string, width, depth float32) MeshData {

	hw := width * 0.5
	hd := depth * 0.5

	up := gglm.NewVec3(0, 1, 0)
	right := gglm.NewVec3(1, 0, 0)

	md, err := Interleave(name, Attributes{
		Positions: []gglm.Vec3{
			gglm.NewVec3(-hw, 0, hd),
			gglm.NewVec3(hw, 0, hd),
			gglm.NewVec3(hw, 0, -hd),
			gglm.NewVec3(-hw, 0, -hd),
		},
		Normals:  []gglm.Vec3{up, up, up, up},
		UV0s:     []gglm.Vec2{gglm.NewVec2(0, 0), gglm.NewVec2(1, 0), gglm.NewVec2(1, 1), gglm.NewVec2(0, 1)},
		Tangents: []gglm.Vec3{right, right, right, right},
	}, []uint32{0, 1, 2, 2, 3, 0})
	if err != nil {
		panic(err)
	}

	return md
}

// GrassBlade is a thin double sided card rooted at the origin, meant to be
// drawn instanced.
func GrassBlade(width, height float32) MeshData {

	hw := width * 0.5
	fwd := gglm.NewVec3(0, 0, 1)

	md, err := Interleave("grass-blade", Attributes{
		Positions: []gglm.Vec3{
			gglm.NewVec3(-hw, 0, 0),
			gglm.NewVec3(hw, 0, 0),
			gglm.NewVec3(hw*0.3, height, 0),
			gglm.NewVec3(-hw*0.3, height, 0),
		},
		Normals: []gglm.Vec3{fwd, fwd, fwd, fwd},
		UV0s:    []gglm.Vec2{gglm.NewVec2(0, 0), gglm.NewVec2(1, 0), gglm.NewVec2(1, 1), gglm.NewVec2(0, 1)},
	}, []uint32{0, 1, 2, 2, 3, 0, 0, 2, 1, 2, 0, 3})
	if err != nil {
		panic(err)
	}

	return md
}
