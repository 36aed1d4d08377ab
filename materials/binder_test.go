package materials

import (
	"testing"

	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/gpu"
	"github.com/bloeys/spot/gpu/gpurec"
	"github.com/bloeys/spot/logging"
	"github.com/bloeys/spot/meshes"
	"github.com/bloeys/spot/resources"
	"github.com/bloeys/spot/shaders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logging.Silence()
}

type fixture struct {
	rec    *gpurec.Recorder
	store  *resources.Store
	reg    *shaders.Registry
	binder Binder
}

func newFixture() *fixture {

	rec := gpurec.New()
	store := resources.NewStore(rec)

	return &fixture{
		rec:    rec,
		store:  store,
		reg:    shaders.NewRegistry(rec, shaders.DefaultSources(), "330 core"),
		binder: Binder{Store: store},
	}
}

func (f *fixture) texture(t *testing.T, name string, samples int32) resources.TextureHandle {

	h, err := f.store.CreateTexture(gpu.TextureDesc{Name: name, Format: gpu.TextureFormat_RGBA8, Width: 4, Height: 4, Samples: samples})
	require.NoError(t, err)
	return h
}

func frameUniforms(shadowMap resources.TextureHandle) Implicit {

	id := gglm.NewMat4Diag(1)
	return Implicit{
		"model":          Mat4(id),
		"normalMatrix":   Mat3(gglm.NewMat3Diag(1)),
		"view":           Mat4(id),
		"proj":           Mat4(id),
		"lightSpace":     Mat4(id),
		"cameraPosition": Vec3(gglm.NewVec3(0, 0, 5)),
		"lightColor":     Vec3(gglm.NewVec3(1, 1, 1)),
		"lightDirection": Vec3(gglm.NewVec3(0, -1, 0)),
		"ambientWeight":  Float(0.1),
		"shadowMap":      Texture(shadowMap),
	}
}

func TestMissingNormalMapIsBindingError(t *testing.T) {

	f := newFixture()

	prog, err := f.reg.Resolve(shaders.NewKey(shaders.Base_PBR, shaders.Feature_NormalMap))
	require.NoError(t, err)

	mat := NewMaterial("brick", prog.Key)
	err = f.binder.Bind(f.rec, mat, prog, frameUniforms(resources.TextureHandle{}))

	var be *BindingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "brick", be.Material)
	assert.Equal(t, mat.Id, be.MaterialId)
	assert.Equal(t, "normalTexture", be.Uniform)
	assert.Equal(t, prog.Key, be.Key)
	assert.Contains(t, err.Error(), "pbr{NORMAL_MAP}")

	// Nothing is uploaded for a draw that can't be fully bound
	assert.Equal(t, 0, f.rec.Count(gpurec.Op_UseProgram))
	assert.Equal(t, 0, f.rec.Count(gpurec.Op_SetUniform))
	assert.Equal(t, 0, f.rec.Count(gpurec.Op_BindTexture))
}

func TestDefaultsApplied(t *testing.T) {

	f := newFixture()

	prog, err := f.reg.Resolve(shaders.NewKey(shaders.Base_PBR, shaders.Feature_NormalMap))
	require.NoError(t, err)

	mat := NewMaterial("brick", prog.Key)
	mat.SetTexture("normalTexture", f.texture(t, "brick-normal", 1))
	mat.SetFloat("roughnessFactor", 0.5)

	require.NoError(t, f.binder.Bind(f.rec, mat, prog, frameUniforms(resources.TextureHandle{})))

	unifs := f.rec.Uniforms[prog.Id]
	assert.Equal(t, gglm.NewVec4(1, 1, 1, 1), unifs["baseColorFactor"])
	assert.Equal(t, float32(1), unifs["metallicFactor"])
	assert.Equal(t, float32(0.5), unifs["roughnessFactor"])
	assert.Equal(t, float32(1), unifs["normalScale"])
	assert.Equal(t, int32(0), unifs["normalTexture"])
	assert.Equal(t, 1, f.rec.Count(gpurec.Op_BindTexture))
}

func TestMaterialOverridesImplicit(t *testing.T) {

	f := newFixture()

	prog, err := f.reg.Resolve(shaders.NewKey(shaders.Base_Lambert))
	require.NoError(t, err)

	mat := NewMaterial("dim", prog.Key)
	mat.SetFloat("ambientWeight", 0.5)

	require.NoError(t, f.binder.Bind(f.rec, mat, prog, frameUniforms(resources.TextureHandle{})))
	assert.Equal(t, float32(0.5), f.rec.Uniforms[prog.Id]["ambientWeight"])
}

func TestUnknownUniform(t *testing.T) {

	f := newFixture()

	prog, err := f.reg.Resolve(shaders.NewKey(shaders.Base_PBR))
	require.NoError(t, err)

	implicit := frameUniforms(resources.TextureHandle{})
	delete(implicit, "cameraPosition")

	err = f.binder.Bind(f.rec, NewMaterial("m", prog.Key), prog, implicit)
	var be *BindingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "cameraPosition", be.Uniform)
}

func TestTypeMismatch(t *testing.T) {

	f := newFixture()

	prog, err := f.reg.Resolve(shaders.NewKey(shaders.Base_Unlit))
	require.NoError(t, err)

	mat := NewMaterial("m", prog.Key)
	mat.SetFloat("baseColorFactor", 1)

	err = f.binder.Bind(f.rec, mat, prog, frameUniforms(resources.TextureHandle{}))
	var be *BindingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "baseColorFactor", be.Uniform)
}

func TestStaleTextureIsBindingError(t *testing.T) {

	f := newFixture()

	prog, err := f.reg.Resolve(shaders.NewKey(shaders.Base_Unlit, shaders.Feature_BaseColorMap))
	require.NoError(t, err)

	tex := f.texture(t, "albedo", 1)
	mat := NewMaterial("m", prog.Key)
	mat.SetTexture("baseColorTexture", tex)
	require.NoError(t, f.store.ReleaseTexture(tex))

	err = f.binder.Bind(f.rec, mat, prog, frameUniforms(resources.TextureHandle{}))

	var be *BindingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "baseColorTexture", be.Uniform)
	assert.Equal(t, tex.String(), be.Texture)

	var stale *resources.StaleHandleError
	assert.ErrorAs(t, err, &stale)
}

func TestSamplerKindChecked(t *testing.T) {

	f := newFixture()

	prog, err := f.reg.Resolve(shaders.NewKey(shaders.Base_Blit))
	require.NoError(t, err)

	mat := NewMaterial("blit", prog.Key)
	mat.SetTexture("source", f.texture(t, "msaa-color", 4))

	err = f.binder.Bind(f.rec, mat, prog, nil)
	var be *BindingError
	require.ErrorAs(t, err, &be)

	msProg, err := f.reg.Resolve(shaders.NewKey(shaders.Base_Blit, shaders.Feature_Multisample))
	require.NoError(t, err)
	mat.SetInt32("samples", 4)
	require.NoError(t, f.binder.Bind(f.rec, mat, msProg, nil))

	binds := f.rec.Filter(gpurec.Op_BindTexture)
	require.Len(t, binds, 1)
	assert.Equal(t, int32(4), binds[0].Samples)
}

func TestEveryDrawRebinds(t *testing.T) {

	f := newFixture()

	shadowMap, err := f.store.CreateTexture(gpu.TextureDesc{Name: "shadow", Format: gpu.TextureFormat_Depth24, Width: 64, Height: 64})
	require.NoError(t, err)

	prog, err := f.reg.Resolve(shaders.NewKey(shaders.Base_Lambert, shaders.Feature_Shadow, shaders.Feature_BaseColorMap))
	require.NoError(t, err)

	mat := NewMaterial("m", prog.Key)
	mat.SetTexture("baseColorTexture", f.texture(t, "albedo", 1))

	for i := 0; i < 3; i++ {
		require.NoError(t, f.binder.Bind(f.rec, mat, prog, frameUniforms(shadowMap)))
	}

	assert.Equal(t, 3, f.rec.Count(gpurec.Op_UseProgram))
	assert.Equal(t, 6, f.rec.Count(gpurec.Op_BindTexture))
	assert.Equal(t, 3*len(prog.Uniforms), f.rec.Count(gpurec.Op_SetUniform))

	units := map[int32]bool{}
	for _, c := range f.rec.Filter(gpurec.Op_BindTexture)[:2] {
		units[c.Unit] = true
	}
	assert.Equal(t, map[int32]bool{0: true, 1: true}, units)
}

func TestCheckLayout(t *testing.T) {

	f := newFixture()

	prog, err := f.reg.Resolve(shaders.NewKey(shaders.Base_Lambert, shaders.Feature_NormalMap))
	require.NoError(t, err)
	mat := NewMaterial("m", prog.Key)

	box := meshes.Box("box", gglm.NewVec3(1, 1, 1))
	boxHandle, err := f.store.CreateMesh(&box)
	require.NoError(t, err)
	boxMesh, err := f.store.Mesh(boxHandle)
	require.NoError(t, err)
	assert.NoError(t, CheckLayout(boxMesh, mat, prog))

	blade := meshes.GrassBlade(0.1, 1)
	bladeHandle, err := f.store.CreateMesh(&blade)
	require.NoError(t, err)
	bladeMesh, err := f.store.Mesh(bladeHandle)
	require.NoError(t, err)

	err = CheckLayout(bladeMesh, mat, prog)
	var be *BindingError
	require.ErrorAs(t, err, &be)
	assert.Contains(t, be.Reason, "Tangent")
}

func TestTableAndFeatures(t *testing.T) {

	tbl := NewTable()
	m := NewMaterial("m", shaders.NewKey(shaders.Base_Lambert))
	id := tbl.Add(m)

	got, err := tbl.Get(id)
	require.NoError(t, err)
	assert.Same(t, m, got)

	m.SetFeature(shaders.Feature_ShadowPCF, true)
	assert.True(t, m.Key.Features.Has(shaders.Feature_Shadow))

	m.SetFeature(shaders.Feature_Shadow, false)
	assert.Equal(t, shaders.NewKey(shaders.Base_Lambert), m.Key)

	tbl.Remove(id)
	_, err = tbl.Get(id)
	assert.Error(t, err)
}
