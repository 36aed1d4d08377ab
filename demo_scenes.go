package main

import (
	"slices"

	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/engine"
	"github.com/bloeys/spot/gpu"
	"github.com/bloeys/spot/meshes"
	"github.com/bloeys/spot/scene"
	"github.com/bloeys/spot/shaders"
	"github.com/chewxy/math32"
)

var demoScenes = map[string]func() *engine.SceneDesc{
	"boxes": func() *engine.SceneDesc {
		b := newDemoBuilder()
		b.boxes()
		return b.desc
	},
	"grass": func() *engine.SceneDesc {
		b := newDemoBuilder()
		b.grass()
		return b.desc
	},
	"all": func() *engine.SceneDesc {
		b := newDemoBuilder()
		b.boxes()
		b.grass()
		return b.desc
	},
}

func demoSceneNames() []string {

	names := make([]string, 0, len(demoScenes))
	for k := range demoScenes {
		names = append(names, k)
	}
	slices.Sort(names)

	return names
}

type demoBuilder struct {
	desc *engine.SceneDesc
}

// newDemoBuilder starts every demo with a sun, a ground plane and a sky
func newDemoBuilder() *demoBuilder {

	b := &demoBuilder{desc: &engine.SceneDesc{Skybox: engine.None}}

	sun := engine.NewNodeDesc("sun", engine.None)
	sun.Light = &scene.DirLight{Color: gglm.NewVec3(1, 0.96, 0.9), Dir: gglm.NewVec3(-0.4, -1, -0.3)}
	b.node(sun)

	ground := b.material("ground", shaders.Base_Lambert, gglm.NewVec4(0.35, 0.33, 0.3, 1))
	groundNode := engine.NewNodeDesc("ground", engine.None)
	groundNode.Mesh = b.mesh(meshes.Plane("ground", 40, 40))
	groundNode.Material = ground
	groundNode.NoShadows = true
	b.node(groundNode)

	b.desc.Textures = append(b.desc.Textures, skyCubemap(16))
	b.desc.Skybox = len(b.desc.Textures) - 1

	return b
}

func (b *demoBuilder) node(n engine.NodeDesc) int {
	b.desc.Nodes = append(b.desc.Nodes, n)
	return len(b.desc.Nodes) - 1
}

func (b *demoBuilder) mesh(md meshes.MeshData) int {
	b.desc.Meshes = append(b.desc.Meshes, md)
	return len(b.desc.Meshes) - 1
}

func (b *demoBuilder) material(name, shading string, color gglm.Vec4) int {

	md := engine.NewMaterialDesc(name)
	md.Shading = shading
	md.BaseColorFactor = color
	b.desc.Materials = append(b.desc.Materials, md)
	return len(b.desc.Materials) - 1
}

// boxes is a spinning pivot carrying a ring of pbr boxes of varying roughness
func (b *demoBuilder) boxes() {

	boxMesh := b.mesh(meshes.Box("box", gglm.NewVec3(0.5, 0.5, 0.5)))

	pivot := engine.NewNodeDesc("box-pivot", engine.None)
	pivot.Transform.Pos = gglm.NewVec3(0, 0.5, 0)

	var angle float32
	pivot.Animate = func(n *scene.Node, dt float32) error {
		angle += dt * 0.3
		n.Transform.SetEuler(0, angle, 0)
		return nil
	}
	pivotIdx := b.node(pivot)

	const count = 6
	for i := 0; i < count; i++ {

		t := float32(i) / (count - 1)
		mat := b.material("box-pbr", "", gglm.NewVec4(0.9, 0.2+0.6*t, 0.2, 1))
		b.desc.Materials[mat].Name = "box-pbr-" + string(rune('a'+i))
		b.desc.Materials[mat].RoughnessFactor = 0.15 + 0.8*t
		b.desc.Materials[mat].MetallicFactor = 1 - t

		box := engine.NewNodeDesc(b.desc.Materials[mat].Name, pivotIdx)
		box.Mesh = boxMesh
		box.Material = mat

		yaw := float32(i) / count * 2 * math32.Pi
		sin, cos := math32.Sincos(yaw)
		box.Transform.Pos = gglm.NewVec3(3*cos, 0.25*float32(i%2), 3*sin)
		box.Transform.SetEuler(0, yaw, 0)
		b.node(box)
	}
}

// grass is a field of instanced blades placed by the engine at load
func (b *demoBuilder) grass() {

	field := engine.NewNodeDesc("grass-field", engine.None)
	field.Mesh = b.mesh(meshes.GrassBlade(0.06, 0.45))
	field.Material = b.material("grass", shaders.Base_Grass, gglm.NewVec4(0.25, 0.6, 0.2, 1))
	field.Transform.Pos = gglm.NewVec3(0, 0, -6)
	field.Grass = &scene.GrassField{
		Rows:     48,
		Cols:     48,
		Spacing:  0.12,
		Jitter:   0.45,
		MinScale: 0.6,
		MaxScale: 1.4,
		Seed:     42,
	}

	b.node(field)
}

// skyCubemap is a vertical gradient from horizon haze to a deep blue zenith
func skyCubemap(size int32) gpu.TextureDesc {

	horizon := [3]float32{200, 215, 230}
	zenith := [3]float32{40, 90, 170}
	ground := [3]float32{70, 70, 75}

	lerp := func(a, b [3]float32, t float32) [3]float32 {
		return [3]float32{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t, a[2] + (b[2]-a[2])*t}
	}

	face := func(f int) []byte {

		px := make([]byte, 0, size*size*4)
		for y := int32(0); y < size; y++ {
			for x := int32(0); x < size; x++ {

				// Faces order is +x -x +y -y +z -z, and rows start at the top
				var c [3]float32
				switch f {
				case 2:
					c = zenith
				case 3:
					c = ground
				default:
					t := 1 - float32(y)/float32(size-1)
					if t >= 0.5 {
						c = lerp(horizon, zenith, (t-0.5)*2)
					} else {
						c = lerp(ground, horizon, t*2)
					}
				}

				px = append(px, byte(c[0]), byte(c[1]), byte(c[2]), 255)
			}
		}

		return px
	}

	pixels := make([][]byte, 6)
	for i := range pixels {
		pixels[i] = face(i)
	}

	return gpu.TextureDesc{
		Name:   "sky",
		Kind:   gpu.TextureKind_Cube,
		Format: gpu.TextureFormat_SRGBA8,
		Width:  size,
		Height: size,
		Pixels: pixels,
	}
}
