package engine

import (
	"errors"
	"fmt"

	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/gpu"
	"github.com/bloeys/spot/logging"
	"github.com/bloeys/spot/materials"
	"github.com/bloeys/spot/meshes"
	"github.com/bloeys/spot/resources"
	"github.com/bloeys/spot/scene"
	"github.com/bloeys/spot/shaders"
)

// None is the index used for missing optional references
const None = -1

// NodeDesc is one decoded node. Nodes refer to their parent by index and a
// parent must come before its children, which keeps the graph a tree.
type NodeDesc struct {
	Name      string
	Parent    int
	Transform scene.Transform

	Mesh     int
	Material int

	Light     *scene.DirLight
	NoShadows bool

	// Instances draws the mesh many times in one draw. Grass, when set,
	// generates them instead.
	Instances []gglm.Mat4
	Grass     *scene.GrassField

	Animate scene.AnimateFunc
}

func NewNodeDesc(name string, parent int) NodeDesc {
	return NodeDesc{
		Name:      name,
		Parent:    parent,
		Transform: scene.NewTransform(),
		Mesh:      None,
		Material:  None,
	}
}

// MaterialDesc is a decoded PBR metallic-roughness material. Texture fields
// index SceneDesc.Textures.
type MaterialDesc struct {
	Name string

	// Shading is a shaders.Base_* family. Empty uses the configured default.
	Shading string

	BaseColorFactor   gglm.Vec4
	MetallicFactor    float32
	RoughnessFactor   float32
	NormalScale       float32
	OcclusionStrength float32

	BaseColorTexture         int
	MetallicRoughnessTexture int
	NormalTexture            int
	OcclusionTexture         int
}

func NewMaterialDesc(name string) MaterialDesc {
	return MaterialDesc{
		Name:                     name,
		BaseColorFactor:          gglm.NewVec4(1, 1, 1, 1),
		MetallicFactor:           1,
		RoughnessFactor:          1,
		NormalScale:              1,
		OcclusionStrength:        1,
		BaseColorTexture:         None,
		MetallicRoughnessTexture: None,
		NormalTexture:            None,
		OcclusionTexture:         None,
	}
}

type SceneDesc struct {
	Nodes     []NodeDesc
	Meshes    []meshes.MeshData
	Materials []MaterialDesc
	Textures  []gpu.TextureDesc

	// Skybox indexes a cubemap in Textures
	Skybox int
}

// Scene is a scene graph plus the resources created for it
type Scene struct {
	Graph *scene.Scene
	Nodes []*scene.Node

	Meshes    []resources.MeshHandle
	Textures  []resources.TextureHandle
	Materials []*materials.Material
}

// CreateScene uploads the scene resources, builds the graph and compiles
// every shader variant the scene will draw with. On error everything created
// so far is released.
func (e *Engine) CreateScene(desc *SceneDesc) (sc *Scene, err error) {

	sc = &Scene{Graph: scene.New()}
	sc.Graph.ParallelUpdate = e.Config.ParallelUpdate

	defer func() {
		if err != nil {
			e.DestroyScene(sc)
			sc = nil
		}
	}()

	for i := range desc.Textures {

		h, err := e.Store.CreateTexture(desc.Textures[i])
		if err != nil {
			return sc, err
		}

		sc.Textures = append(sc.Textures, h)
	}

	for i := range desc.Meshes {

		h, err := e.Store.CreateMesh(&desc.Meshes[i])
		if err != nil {
			return sc, fmt.Errorf("scene mesh %d: %w", i, err)
		}

		sc.Meshes = append(sc.Meshes, h)
	}

	for i := range desc.Materials {

		mat, err := e.newMaterial(&desc.Materials[i], sc.Textures)
		if err != nil {
			return sc, err
		}

		e.Materials.Add(mat)
		sc.Materials = append(sc.Materials, mat)
	}

	if err := e.buildGraph(desc, sc); err != nil {
		return sc, err
	}

	if desc.Skybox != None && len(desc.Textures) > 0 {

		if desc.Skybox < 0 || desc.Skybox >= len(sc.Textures) {
			return sc, fmt.Errorf("skybox texture index %d is out of range", desc.Skybox)
		}

		e.Renderer.SetSkybox(sc.Textures[desc.Skybox])
	}

	if err := e.precompile(sc); err != nil {
		return sc, err
	}

	logging.InfoLog.Printf("Created scene. Nodes=%d, Meshes=%d, Materials=%d, Textures=%d, ShaderVariants=%d\n",
		sc.Graph.NodeCount(), len(sc.Meshes), len(sc.Materials), len(sc.Textures), e.Registry.Len())

	return sc, nil
}

func (e *Engine) buildGraph(desc *SceneDesc, sc *Scene) error {

	sc.Nodes = make([]*scene.Node, 0, len(desc.Nodes))
	for i := range desc.Nodes {

		nd := &desc.Nodes[i]
		if nd.Parent != None && (nd.Parent < 0 || nd.Parent >= i) {
			return fmt.Errorf("node %d '%s' has parent %d which is not an earlier node", i, nd.Name, nd.Parent)
		}

		n := scene.NewNode(nd.Name)
		n.Transform = nd.Transform
		n.Light = nd.Light
		n.CastShadows = !nd.NoShadows
		n.Animate = nd.Animate
		n.Instances = nd.Instances

		if nd.Mesh != None {

			if nd.Mesh < 0 || nd.Mesh >= len(sc.Meshes) {
				return fmt.Errorf("node %d '%s' has mesh index %d which is out of range", i, nd.Name, nd.Mesh)
			}

			if nd.Material < 0 || nd.Material >= len(sc.Materials) {
				return fmt.Errorf("node %d '%s' has a mesh but material index %d is out of range", i, nd.Name, nd.Material)
			}

			n.Mesh = sc.Meshes[nd.Mesh]
			n.Material = sc.Materials[nd.Material].Id
		}

		if nd.Grass != nil {

			instances, err := scene.GrassInstances(*nd.Grass)
			if err != nil {
				return fmt.Errorf("node %d '%s': %w", i, nd.Name, err)
			}

			n.Instances = instances
		}

		parent := sc.Graph.Root
		if nd.Parent != None {
			parent = sc.Nodes[nd.Parent]
		}

		parent.AddChild(n)
		sc.Nodes = append(sc.Nodes, n)
	}

	return nil
}

// newMaterial picks the shader variant of a material from its textures and
// the config overrides, then sets its parameters
func (e *Engine) newMaterial(md *MaterialDesc, textures []resources.TextureHandle) (*materials.Material, error) {

	over := e.Config.Material(md.Name)

	base := md.Shading
	if base != shaders.Base_Unlit && base != shaders.Base_Grass {

		if over.Shading != "" {
			base = over.Shading
		} else if base == "" {
			base = e.Config.DefaultShading
		}
	}

	switch base {
	case shaders.Base_PBR, shaders.Base_Lambert, shaders.Base_Unlit, shaders.Base_Grass:
	default:
		return nil, fmt.Errorf("material '%s' has unknown shading '%s'", md.Name, base)
	}

	tex := func(idx int, what string) (resources.TextureHandle, bool, error) {

		if idx == None {
			return resources.TextureHandle{}, false, nil
		}

		if idx < 0 || idx >= len(textures) {
			return resources.TextureHandle{}, false, fmt.Errorf("material '%s' %s texture index %d is out of range", md.Name, what, idx)
		}

		return textures[idx], true, nil
	}

	key := shaders.NewKey(base)
	if e.Config.Shadows && base != shaders.Base_Unlit {
		key = key.With(shaders.Feature_Shadow)
		if over.PCF == nil || *over.PCF {
			key = key.With(shaders.Feature_ShadowPCF)
		}
	}

	mat := materials.NewMaterial(md.Name, key)
	mat.SetVec4("baseColorFactor", md.BaseColorFactor)
	mat.SetFloat("metallicFactor", md.MetallicFactor)
	mat.SetFloat("roughnessFactor", md.RoughnessFactor)
	mat.SetFloat("normalScale", md.NormalScale)
	mat.SetFloat("occlusionStrength", md.OcclusionStrength)

	slots := []struct {
		idx     int
		what    string
		uniform string
		feature shaders.Features
		enabled bool
	}{
		{md.BaseColorTexture, "base color", "baseColorTexture", shaders.Feature_BaseColorMap, true},
		{md.NormalTexture, "normal", "normalTexture", shaders.Feature_NormalMap, base != shaders.Base_Unlit && base != shaders.Base_Grass && (over.NormalMapping == nil || *over.NormalMapping)},
		{md.MetallicRoughnessTexture, "metallic roughness", "metallicRoughnessTexture", shaders.Feature_MetallicRoughnessMap, base == shaders.Base_PBR},
		{md.OcclusionTexture, "occlusion", "occlusionTexture", shaders.Feature_OcclusionMap, base == shaders.Base_PBR},
	}

	errs := []error{}
	for _, s := range slots {

		h, ok, err := tex(s.idx, s.what)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		// A missing texture keeps the variant without the map
		if !ok || !s.enabled {
			continue
		}

		mat.SetTexture(s.uniform, h)
		mat.SetFeature(s.feature, true)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return mat, nil
}

// precompile resolves every variant the scene draws with so compilation
// errors surface at load instead of mid frame
func (e *Engine) precompile(sc *Scene) error {

	haveShadows := e.Renderer.Settings.ShadowsEnabled()
	seen := map[shaders.Key]bool{}

	resolve := func(k shaders.Key) error {

		if seen[k] {
			return nil
		}
		seen[k] = true

		_, err := e.Registry.Resolve(k)
		return err
	}

	for item := range sc.Graph.DrawItems(nil) {

		mat, err := e.Materials.Get(item.Material)
		if err != nil {
			return err
		}

		key := mat.Key
		depthKey := shaders.NewKey(shaders.Base_Depth)
		if item.IsInstanced() {
			key = key.With(shaders.Feature_Instanced)
			depthKey = depthKey.With(shaders.Feature_Instanced)
		}

		// Variants that can't bind without shadows fail at draw time with a
		// binding error naming the material
		if key, ok := key.ForShadows(haveShadows); ok {
			if err := resolve(key); err != nil {
				return err
			}
		}

		if haveShadows && item.Node.CastShadows {
			if err := resolve(depthKey); err != nil {
				return err
			}
		}
	}

	if !e.Renderer.Skybox().IsZero() {
		return resolve(shaders.NewKey(shaders.Base_Skybox))
	}

	return nil
}

// DestroyScene releases the scene resources. The scene must not be used after.
func (e *Engine) DestroyScene(sc *Scene) {

	if sc == nil {
		return
	}

	for _, m := range sc.Materials {
		e.Materials.Remove(m.Id)
	}

	for _, h := range sc.Meshes {
		e.Store.ReleaseMesh(h)
	}

	for _, h := range sc.Textures {
		if h == e.Renderer.Skybox() {
			e.Renderer.SetSkybox(resources.TextureHandle{})
		}
		e.Store.ReleaseTexture(h)
	}

	sc.Materials = nil
	sc.Meshes = nil
	sc.Textures = nil
	sc.Graph = scene.New()
	sc.Nodes = nil
}
