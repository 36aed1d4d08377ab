package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/camera"
	"github.com/bloeys/spot/config"
	"github.com/bloeys/spot/gpu"
	"github.com/bloeys/spot/gpu/gpurec"
	"github.com/bloeys/spot/logging"
	"github.com/bloeys/spot/meshes"
	"github.com/bloeys/spot/scene"
	"github.com/bloeys/spot/shaders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logging.Silence()
}

func testConfig() config.Config {

	cfg := config.Default()
	cfg.Width = 64
	cfg.Height = 32
	cfg.ShadowMapSize = 128
	return cfg
}

func newEngine(t *testing.T, cfg config.Config) (*Engine, *gpurec.Recorder) {

	rec := gpurec.New()
	e, err := New(rec, cfg)
	require.NoError(t, err)
	return e, rec
}

func newCamera() *camera.Camera {

	pos := gglm.NewVec3(0, 2, 8)
	fwd := gglm.NewVec3(0, 0, -1)
	up := gglm.NewVec3(0, 1, 0)
	return camera.NewPerspective(&pos, &fwd, &up, 0.1, 100, 60*gglm.Deg2Rad, 2)
}

func normalTexture() gpu.TextureDesc {
	return gpu.TextureDesc{
		Name:   "crate-normal",
		Kind:   gpu.TextureKind_2D,
		Format: gpu.TextureFormat_RGBA8,
		Width:  2,
		Height: 2,
		Pixels: [][]byte{make([]byte, 2*2*4)},
	}
}

// boxDesc is a sun, a pivot with a crate under it and a ground plane that
// doesn't cast shadows
func boxDesc() *SceneDesc {

	crate := NewMaterialDesc("crate")
	crate.Shading = shaders.Base_PBR

	ground := NewMaterialDesc("ground")
	ground.Shading = shaders.Base_Lambert

	sun := NewNodeDesc("sun", None)
	sun.Light = &scene.DirLight{Color: gglm.NewVec3(1, 1, 1), Dir: gglm.NewVec3(0, -1, -1)}

	pivot := NewNodeDesc("pivot", None)

	crateNode := NewNodeDesc("crate", 1)
	crateNode.Mesh = 0
	crateNode.Material = 0

	groundNode := NewNodeDesc("ground", None)
	groundNode.Mesh = 1
	groundNode.Material = 1
	groundNode.NoShadows = true

	return &SceneDesc{
		Meshes: []meshes.MeshData{
			meshes.Box("box", gglm.NewVec3(0.5, 0.5, 0.5)),
			meshes.Plane("plane", 10, 10),
		},
		Materials: []MaterialDesc{crate, ground},
		Nodes:     []NodeDesc{sun, pivot, crateNode, groundNode},
		Skybox:    None,
	}
}

func TestCreateSceneBuildsGraph(t *testing.T) {

	e, _ := newEngine(t, testConfig())
	sc, err := e.CreateScene(boxDesc())
	require.NoError(t, err)

	require.Len(t, sc.Nodes, 4)
	assert.Equal(t, 5, sc.Graph.NodeCount())
	assert.Same(t, sc.Nodes[2], sc.Nodes[1].Children[0])
	assert.True(t, sc.Nodes[2].HasMesh())
	assert.False(t, sc.Nodes[3].CastShadows)
	assert.Len(t, sc.Graph.Lights(), 1)

	crate := sc.Materials[0]
	assert.Equal(t, shaders.Base_PBR, crate.Key.Base)
	assert.True(t, crate.Key.Features.Has(shaders.Feature_ShadowPCF))
	assert.False(t, crate.Key.Features.Has(shaders.Feature_NormalMap))
}

func TestConfigOverridesShading(t *testing.T) {

	noPCF := false
	cfg := testConfig()
	cfg.Materials["crate"] = config.MaterialConfig{Shading: config.Shading_Lambert, PCF: &noPCF}

	e, _ := newEngine(t, cfg)
	sc, err := e.CreateScene(boxDesc())
	require.NoError(t, err)

	key := sc.Materials[0].Key
	assert.Equal(t, shaders.Base_Lambert, key.Base)
	assert.True(t, key.Features.Has(shaders.Feature_Shadow))
	assert.False(t, key.Features.Has(shaders.Feature_ShadowPCF))
}

func TestNormalMapNeedsTexture(t *testing.T) {

	desc := boxDesc()
	desc.Textures = []gpu.TextureDesc{normalTexture()}
	desc.Materials[0].NormalTexture = 0

	e, _ := newEngine(t, testConfig())
	sc, err := e.CreateScene(desc)
	require.NoError(t, err)
	assert.True(t, sc.Materials[0].Key.Features.Has(shaders.Feature_NormalMap))
	assert.False(t, sc.Materials[1].Key.Features.Has(shaders.Feature_NormalMap))

	require.NoError(t, e.RenderFrame(sc, newCamera(), 1.0/60))
	assert.Equal(t, 2, e.Renderer.Stats.MainDraws)

	// Disabled by config even though the texture is there
	off := false
	cfg := testConfig()
	cfg.Materials["crate"] = config.MaterialConfig{NormalMapping: &off}

	e2, _ := newEngine(t, cfg)
	sc2, err := e2.CreateScene(desc)
	require.NoError(t, err)
	assert.False(t, sc2.Materials[0].Key.Features.Has(shaders.Feature_NormalMap))
}

func TestShadowsDisabled(t *testing.T) {

	cfg := testConfig()
	cfg.Shadows = false

	e, _ := newEngine(t, cfg)
	sc, err := e.CreateScene(boxDesc())
	require.NoError(t, err)

	for _, m := range sc.Materials {
		assert.False(t, m.Key.Features.Has(shaders.Feature_Shadow), m.Name)
	}

	require.NoError(t, e.RenderFrame(sc, newCamera(), 1.0/60))
	assert.Equal(t, 0, e.Renderer.Stats.ShadowDraws)
	assert.Equal(t, 2, e.Renderer.Stats.MainDraws)
	assert.True(t, e.Renderer.ShadowMap().IsZero())
}

func TestRenderFrameAdvances(t *testing.T) {

	e, _ := newEngine(t, testConfig())
	sc, err := e.CreateScene(boxDesc())
	require.NoError(t, err)

	cam := newCamera()
	require.NoError(t, e.RenderFrame(sc, cam, 0.5))
	require.NoError(t, e.RenderFrame(sc, cam, 0.5))

	assert.Equal(t, uint64(2), e.Frame())
	assert.Equal(t, 1, e.Renderer.Stats.ShadowDraws)
	assert.Equal(t, 2, e.Renderer.Stats.MainDraws)
	assert.Equal(t, 1, e.Renderer.Stats.ResolveBlits)
	assert.Equal(t, 1, e.Renderer.Stats.PresentBlits)
}

func TestAnimateRunsEachFrame(t *testing.T) {

	desc := boxDesc()
	desc.Nodes[1].Animate = func(n *scene.Node, dt float32) error {
		n.Transform.Pos.Data[0] += dt
		return nil
	}

	e, _ := newEngine(t, testConfig())
	sc, err := e.CreateScene(desc)
	require.NoError(t, err)

	require.NoError(t, e.RenderFrame(sc, newCamera(), 0.25))
	require.NoError(t, e.RenderFrame(sc, newCamera(), 0.25))

	crateWorld := sc.Nodes[2].World()
	assert.InDelta(t, 0.5, scene.Translation(&crateWorld).X(), 1e-5)

	desc.Nodes[1].Animate = func(n *scene.Node, dt float32) error {
		return errors.New("boom")
	}

	e2, _ := newEngine(t, testConfig())
	sc2, err := e2.CreateScene(desc)
	require.NoError(t, err)
	assert.ErrorContains(t, e2.RenderFrame(sc2, newCamera(), 0.1), "boom")
}

func TestGrassNodeIsInstanced(t *testing.T) {

	grass := NewMaterialDesc("grass")
	grass.Shading = shaders.Base_Grass

	field := NewNodeDesc("field", None)
	field.Mesh = 0
	field.Material = 0
	field.Grass = &scene.GrassField{Rows: 4, Cols: 5, Spacing: 0.2, Jitter: 0.3, MinScale: 0.8, MaxScale: 1.2, Seed: 7}

	desc := &SceneDesc{
		Meshes:    []meshes.MeshData{meshes.GrassBlade(0.05, 0.4)},
		Materials: []MaterialDesc{grass},
		Nodes:     []NodeDesc{field},
		Skybox:    None,
	}

	e, rec := newEngine(t, testConfig())
	sc, err := e.CreateScene(desc)
	require.NoError(t, err)
	require.Len(t, sc.Nodes[0].Instances, 20)

	// Precompiled at load, so rendering compiles no new grass variant
	grassPrograms := func() int {

		count := 0
		for _, c := range rec.Filter(gpurec.Op_CreateProgram) {
			if strings.HasPrefix(c.Name, shaders.Base_Grass) {
				count++
			}
		}
		return count
	}

	compiled := grassPrograms()
	assert.Equal(t, 1, compiled)
	require.NoError(t, e.RenderFrame(sc, newCamera(), 1.0/60))
	assert.Equal(t, compiled, grassPrograms())

	assert.Equal(t, 1, e.Renderer.Stats.InstancedDraws)
	assert.Equal(t, 1, e.Renderer.Stats.MainDraws)
}

func TestCompilationErrorSurfacesAtLoad(t *testing.T) {

	e, rec := newEngine(t, testConfig())
	rec.FailCompile = func(name, vert, frag string) error {
		if strings.HasPrefix(name, shaders.Base_PBR) {
			return errors.New("0:12: error: something broke")
		}
		return nil
	}

	before := e.Store.Counts()
	_, err := e.CreateScene(boxDesc())

	var ce *shaders.CompilationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, shaders.Base_PBR, ce.Key.Base)

	assert.Equal(t, before, e.Store.Counts())
	assert.Equal(t, 0, e.Materials.Len())
}

func TestBadDescriptionsAreRejected(t *testing.T) {

	e, _ := newEngine(t, testConfig())
	before := e.Store.Counts()

	desc := boxDesc()
	desc.Nodes[2].Parent = 3
	_, err := e.CreateScene(desc)
	assert.ErrorContains(t, err, "not an earlier node")

	desc = boxDesc()
	desc.Nodes[2].Material = None
	_, err = e.CreateScene(desc)
	assert.ErrorContains(t, err, "material index")

	desc = boxDesc()
	desc.Materials[0].BaseColorTexture = 5
	_, err = e.CreateScene(desc)
	assert.ErrorContains(t, err, "out of range")

	desc = boxDesc()
	desc.Materials[0].Shading = "toon"
	_, err = e.CreateScene(desc)
	assert.ErrorContains(t, err, "unknown shading")

	assert.Equal(t, before, e.Store.Counts())
	assert.Equal(t, 0, e.Materials.Len())
}

func TestDestroySceneReleasesResources(t *testing.T) {

	e, _ := newEngine(t, testConfig())
	before := e.Store.Counts()

	desc := boxDesc()
	desc.Textures = []gpu.TextureDesc{normalTexture()}
	desc.Materials[0].NormalTexture = 0

	sc, err := e.CreateScene(desc)
	require.NoError(t, err)
	assert.Equal(t, before.Meshes+2, e.Store.Counts().Meshes)
	assert.Equal(t, before.Textures+1, e.Store.Counts().Textures)

	e.DestroyScene(sc)
	assert.Equal(t, before, e.Store.Counts())
	assert.Equal(t, 0, e.Materials.Len())
}

func TestResizeKeepsCameraAspect(t *testing.T) {

	e, rec := newEngine(t, testConfig())
	cam := newCamera()

	require.NoError(t, e.Resize(200, 100, cam))
	assert.Equal(t, int32(200), e.Config.Width)
	assert.InDelta(t, 2, cam.AspectRatio, 1e-6)

	require.NoError(t, e.Resize(100, 100, cam))
	assert.InDelta(t, 1, cam.AspectRatio, 1e-6)

	// Minimized windows report a zero size
	calls := len(rec.Calls)
	require.NoError(t, e.Resize(0, 0, cam))
	assert.Equal(t, calls, len(rec.Calls))
	assert.Equal(t, int32(100), e.Config.Width)
}

func TestDestroyReleasesEverything(t *testing.T) {

	e, rec := newEngine(t, testConfig())
	_, err := e.CreateScene(boxDesc())
	require.NoError(t, err)

	e.Destroy()
	assert.Empty(t, rec.Programs)
	assert.Empty(t, rec.Textures)
	assert.Empty(t, rec.Framebuffers)
	assert.Empty(t, rec.VertexArrays)
}
