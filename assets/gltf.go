package assets

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/buffers"
	"github.com/bloeys/spot/engine"
	"github.com/bloeys/spot/gpu"
	"github.com/bloeys/spot/logging"
	"github.com/bloeys/spot/meshes"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"golang.org/x/image/draw"
)

// LoadGLTF decodes a .gltf or .glb file into a scene description
func LoadGLTF(path string) (*engine.SceneDesc, error) {

	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gltf file '%s': %w", path, err)
	}

	desc, err := FromDocument(doc, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to decode gltf file '%s': %w", path, err)
	}

	logging.InfoLog.Printf("Loaded gltf '%s'. Nodes=%d, Meshes=%d, Materials=%d, Textures=%d\n", path, len(desc.Nodes), len(desc.Meshes), len(desc.Materials), len(desc.Textures))
	return desc, nil
}

type texRole uint8

const (
	texRole_Linear texRole = iota
	texRole_Color
)

// FromDocument converts a decoded document. dir resolves image uris that
// point to files.
func FromDocument(doc *gltf.Document, dir string) (*engine.SceneDesc, error) {

	d := decoder{
		doc:      doc,
		dir:      dir,
		desc:     &engine.SceneDesc{Skybox: engine.None},
		texIndex: map[int]int{},
		primMesh: map[[2]int]int{},
	}

	// Base color textures hold srgb data, everything else is linear
	roles := map[int]texRole{}
	for _, gm := range doc.Materials {
		if pbr := gm.PBRMetallicRoughness; pbr != nil && pbr.BaseColorTexture != nil {
			roles[pbr.BaseColorTexture.Index] = texRole_Color
		}
	}
	d.roles = roles

	for i, gm := range doc.Materials {

		md, err := d.material(i, gm)
		if err != nil {
			return nil, err
		}

		d.desc.Materials = append(d.desc.Materials, md)
	}

	for _, root := range d.roots() {
		if err := d.node(root, engine.None, map[int]bool{}); err != nil {
			return nil, err
		}
	}

	d.dropUnusableNormalMaps()
	return d.desc, nil
}

// dropUnusableNormalMaps removes normal maps from materials drawn on meshes
// without tangents, since those variants would fail to bind
func (d *decoder) dropUnusableNormalMaps() {

	for _, nd := range d.desc.Nodes {

		if nd.Mesh == engine.None {
			continue
		}

		md := &d.desc.Materials[nd.Material]
		if md.NormalTexture == engine.None || d.desc.Meshes[nd.Mesh].Layout.Has(buffers.Semantic_Tangent) {
			continue
		}

		logging.WarnLog.Printf("Material '%s' has a normal map but mesh '%s' has no tangents. Normal mapping is disabled for it\n", md.Name, d.desc.Meshes[nd.Mesh].Name)
		md.NormalTexture = engine.None
	}
}

type decoder struct {
	doc  *gltf.Document
	dir  string
	desc *engine.SceneDesc

	roles map[int]texRole

	// texIndex maps gltf textures to desc textures
	texIndex map[int]int

	// primMesh maps (mesh, primitive) to desc meshes so instanced gltf meshes upload once
	primMesh map[[2]int]int

	defaultMat int
	hasDefault bool
}

func (d *decoder) roots() []int {

	if d.doc.Scene != nil && *d.doc.Scene < len(d.doc.Scenes) {
		return d.doc.Scenes[*d.doc.Scene].Nodes
	}

	// No default scene, use every parentless node
	hasParent := make([]bool, len(d.doc.Nodes))
	for _, gn := range d.doc.Nodes {
		for _, c := range gn.Children {
			if c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}

	roots := []int{}
	for i := range d.doc.Nodes {
		if !hasParent[i] {
			roots = append(roots, i)
		}
	}

	return roots
}

// node appends the gltf node and its subtree, parents first
func (d *decoder) node(idx, parent int, visiting map[int]bool) error {

	if idx < 0 || idx >= len(d.doc.Nodes) {
		return fmt.Errorf("node index %d is out of range", idx)
	}

	if visiting[idx] {
		return fmt.Errorf("node %d is its own ancestor", idx)
	}
	visiting[idx] = true
	defer delete(visiting, idx)

	gn := d.doc.Nodes[idx]
	name := gn.Name
	if name == "" {
		name = fmt.Sprintf("node_%d", idx)
	}

	nd := engine.NewNodeDesc(name, parent)
	m := nodeMatrix(gn)
	nd.Transform.Matrix = &m

	self := len(d.desc.Nodes)
	d.desc.Nodes = append(d.desc.Nodes, nd)

	if gn.Mesh != nil {

		if *gn.Mesh >= len(d.doc.Meshes) {
			return fmt.Errorf("node '%s' has mesh index %d which is out of range", name, *gn.Mesh)
		}

		gm := d.doc.Meshes[*gn.Mesh]
		for pi, prim := range gm.Primitives {

			meshIdx, err := d.primitive(*gn.Mesh, pi, gm.Name, prim)
			if err != nil {
				return err
			}

			matIdx, err := d.primitiveMaterial(prim)
			if err != nil {
				return err
			}

			// One primitive draws on the node itself, more get a child each
			if len(gm.Primitives) == 1 {
				d.desc.Nodes[self].Mesh = meshIdx
				d.desc.Nodes[self].Material = matIdx
				continue
			}

			child := engine.NewNodeDesc(fmt.Sprintf("%s_prim%d", name, pi), self)
			child.Mesh = meshIdx
			child.Material = matIdx
			d.desc.Nodes = append(d.desc.Nodes, child)
		}
	}

	for _, c := range gn.Children {
		if err := d.node(c, self, visiting); err != nil {
			return err
		}
	}

	return nil
}

var identityMatrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// nodeMatrix is the local matrix of a node, from either its matrix or its TRS
func nodeMatrix(gn *gltf.Node) gglm.Mat4 {

	m := gglm.NewMat4Diag(1)
	if gn.Matrix != identityMatrix && gn.Matrix != ([16]float64{}) {

		for c := 0; c < 4; c++ {
			for r := 0; r < 4; r++ {
				m.Data[c][r] = float32(gn.Matrix[c*4+r])
			}
		}

		return m
	}

	t := gn.TranslationOrDefault()
	s := gn.ScaleOrDefault()
	q := gn.RotationOrDefault()

	x, y, z, w := float32(q[0]), float32(q[1]), float32(q[2]), float32(q[3])

	// Columns of the rotation matrix, each scaled by its axis scale
	cols := [3][3]float32{
		{1 - 2*(y*y+z*z), 2 * (x*y + w*z), 2 * (x*z - w*y)},
		{2 * (x*y - w*z), 1 - 2*(x*x+z*z), 2 * (y*z + w*x)},
		{2 * (x*z + w*y), 2 * (y*z - w*x), 1 - 2*(x*x+y*y)},
	}

	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			m.Data[c][r] = cols[c][r] * float32(s[c])
		}
	}

	m.Data[3][0] = float32(t[0])
	m.Data[3][1] = float32(t[1])
	m.Data[3][2] = float32(t[2])
	return m
}

func (d *decoder) primitiveMaterial(prim *gltf.Primitive) (int, error) {

	if prim.Material != nil {

		if *prim.Material >= len(d.desc.Materials) {
			return 0, fmt.Errorf("primitive has material index %d which is out of range", *prim.Material)
		}

		return *prim.Material, nil
	}

	if !d.hasDefault {
		d.defaultMat = len(d.desc.Materials)
		d.hasDefault = true
		d.desc.Materials = append(d.desc.Materials, engine.NewMaterialDesc("gltf-default"))
	}

	return d.defaultMat, nil
}

func (d *decoder) primitive(mesh, prim int, meshName string, p *gltf.Primitive) (int, error) {

	if idx, ok := d.primMesh[[2]int{mesh, prim}]; ok {
		return idx, nil
	}

	if p.Mode != gltf.PrimitiveTriangles {
		return 0, fmt.Errorf("mesh '%s' primitive %d uses mode %d but only triangles are supported", meshName, prim, p.Mode)
	}

	name := fmt.Sprintf("%s_p%d", meshName, prim)
	if meshName == "" {
		name = fmt.Sprintf("mesh%d_p%d", mesh, prim)
	}

	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return 0, fmt.Errorf("mesh '%s' has no POSITION attribute", name)
	}

	positions, err := modeler.ReadPosition(d.doc, d.doc.Accessors[posIdx], nil)
	if err != nil {
		return 0, fmt.Errorf("mesh '%s' positions: %w", name, err)
	}

	attribs := meshes.Attributes{Positions: make([]gglm.Vec3, len(positions))}
	for i, v := range positions {
		attribs.Positions[i] = gglm.NewVec3(v[0], v[1], v[2])
	}

	if idx, ok := p.Attributes[gltf.NORMAL]; ok {

		normals, err := modeler.ReadNormal(d.doc, d.doc.Accessors[idx], nil)
		if err != nil {
			return 0, fmt.Errorf("mesh '%s' normals: %w", name, err)
		}

		attribs.Normals = make([]gglm.Vec3, len(normals))
		for i, v := range normals {
			attribs.Normals[i] = gglm.NewVec3(v[0], v[1], v[2])
		}
	}

	if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {

		uvs, err := modeler.ReadTextureCoord(d.doc, d.doc.Accessors[idx], nil)
		if err != nil {
			return 0, fmt.Errorf("mesh '%s' uvs: %w", name, err)
		}

		attribs.UV0s = make([]gglm.Vec2, len(uvs))
		for i, v := range uvs {
			attribs.UV0s[i] = gglm.NewVec2(v[0], v[1])
		}
	}

	if idx, ok := p.Attributes[gltf.TANGENT]; ok {

		tangents, err := modeler.ReadTangent(d.doc, d.doc.Accessors[idx], nil)
		if err != nil {
			return 0, fmt.Errorf("mesh '%s' tangents: %w", name, err)
		}

		attribs.Tangents = make([]gglm.Vec3, len(tangents))
		for i, v := range tangents {
			attribs.Tangents[i] = gglm.NewVec3(v[0], v[1], v[2])
		}
	}

	var indices []uint32
	if p.Indices != nil {

		indices, err = modeler.ReadIndices(d.doc, d.doc.Accessors[*p.Indices], nil)
		if err != nil {
			return 0, fmt.Errorf("mesh '%s' indices: %w", name, err)
		}

	} else {

		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	md, err := meshes.Interleave(name, attribs, indices)
	if err != nil {
		return 0, err
	}

	idx := len(d.desc.Meshes)
	d.desc.Meshes = append(d.desc.Meshes, md)
	d.primMesh[[2]int{mesh, prim}] = idx
	return idx, nil
}

func (d *decoder) material(i int, gm *gltf.Material) (engine.MaterialDesc, error) {

	name := gm.Name
	if name == "" {
		name = fmt.Sprintf("material_%d", i)
	}

	md := engine.NewMaterialDesc(name)

	if pbr := gm.PBRMetallicRoughness; pbr != nil {

		cf := pbr.BaseColorFactorOrDefault()
		md.BaseColorFactor = gglm.NewVec4(float32(cf[0]), float32(cf[1]), float32(cf[2]), float32(cf[3]))
		md.MetallicFactor = float32(pbr.MetallicFactorOrDefault())
		md.RoughnessFactor = float32(pbr.RoughnessFactorOrDefault())

		if pbr.BaseColorTexture != nil {

			idx, err := d.texture(pbr.BaseColorTexture.Index)
			if err != nil {
				return md, err
			}
			md.BaseColorTexture = idx
		}

		if pbr.MetallicRoughnessTexture != nil {

			idx, err := d.texture(pbr.MetallicRoughnessTexture.Index)
			if err != nil {
				return md, err
			}
			md.MetallicRoughnessTexture = idx
		}
	}

	if nt := gm.NormalTexture; nt != nil && nt.Index != nil {

		idx, err := d.texture(*nt.Index)
		if err != nil {
			return md, err
		}

		md.NormalTexture = idx
		md.NormalScale = float32(nt.ScaleOrDefault())
	}

	if ot := gm.OcclusionTexture; ot != nil && ot.Index != nil {

		idx, err := d.texture(*ot.Index)
		if err != nil {
			return md, err
		}

		md.OcclusionTexture = idx
		md.OcclusionStrength = float32(ot.StrengthOrDefault())
	}

	return md, nil
}

// texture decodes a gltf texture once and returns its desc index
func (d *decoder) texture(gIdx int) (int, error) {

	if idx, ok := d.texIndex[gIdx]; ok {
		return idx, nil
	}

	if gIdx < 0 || gIdx >= len(d.doc.Textures) {
		return 0, fmt.Errorf("texture index %d is out of range", gIdx)
	}

	gt := d.doc.Textures[gIdx]
	if gt.Source == nil || *gt.Source >= len(d.doc.Images) {
		return 0, fmt.Errorf("texture %d has no image source", gIdx)
	}

	img := d.doc.Images[*gt.Source]
	name := img.Name
	if name == "" {
		name = fmt.Sprintf("gltf_img_%d", *gt.Source)
	}

	raw, err := d.imageBytes(img)
	if err != nil {
		return 0, fmt.Errorf("image '%s': %w", name, err)
	}

	format := gpu.TextureFormat_RGBA8
	if d.roles[gIdx] == texRole_Color {
		format = gpu.TextureFormat_SRGBA8
	}

	td, err := DecodeImage(name, raw, format)
	if err != nil {
		return 0, err
	}

	idx := len(d.desc.Textures)
	d.desc.Textures = append(d.desc.Textures, td)
	d.texIndex[gIdx] = idx
	return idx, nil
}

func (d *decoder) imageBytes(img *gltf.Image) ([]byte, error) {

	switch {
	case img.BufferView != nil:
		// Binary glb, the image lives in a buffer view
		return modeler.ReadBufferView(d.doc, d.doc.BufferViews[*img.BufferView])

	case img.IsEmbeddedResource():
		return img.MarshalData()

	case img.URI != "":
		return os.ReadFile(filepath.Join(d.dir, img.URI))

	default:
		return nil, fmt.Errorf("image has neither a buffer view nor a uri")
	}
}

// DecodeImage decodes a png or jpeg into a single face RGBA texture
func DecodeImage(name string, data []byte, format gpu.TextureFormat) (gpu.TextureDesc, error) {

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return gpu.TextureDesc{}, fmt.Errorf("failed to decode image '%s': %w", name, err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return gpu.TextureDesc{
		Name:   name,
		Kind:   gpu.TextureKind_2D,
		Format: format,
		Width:  int32(bounds.Dx()),
		Height: int32(bounds.Dy()),
		Pixels: [][]byte{rgba.Pix},
	}, nil
}
