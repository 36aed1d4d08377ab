package shaders

import (
	"strconv"
	"testing"
	"testing/fstest"

	"github.com/bloeys/spot/gpu/gpurec"
	"github.com/bloeys/spot/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logging.Silence()
}

func newTestRegistry() (*Registry, *gpurec.Recorder) {
	rec := gpurec.New()
	return NewRegistry(rec, DefaultSources(), "330 core"), rec
}

func TestKeyEqualityIsSetBased(t *testing.T) {

	a := NewKey(Base_PBR, Feature_Shadow, Feature_NormalMap, Feature_Instanced)
	b := NewKey(Base_PBR, Feature_Instanced, Feature_NormalMap, Feature_Shadow)
	assert.Equal(t, a, b)

	c := NewKey(Base_PBR, Feature_Shadow|Feature_NormalMap|Feature_Instanced)
	assert.Equal(t, a, c)

	// PCF implies the plain shadow flag
	assert.Equal(t, NewKey(Base_PBR, Feature_ShadowPCF), NewKey(Base_PBR, Feature_Shadow, Feature_ShadowPCF))

	i1 := NewKey(Base_PBR).WithInclude("shadow", "pcf").WithInclude("occlusion", "map")
	i2 := NewKey(Base_PBR).WithInclude("occlusion", "map").WithInclude("shadow", "pcf")
	assert.Equal(t, i1, i2)
	assert.NotEqual(t, NewKey(Base_PBR), i1)

	assert.Equal(t, "pbr{NORMAL_MAP,SHADOW}", NewKey(Base_PBR, Feature_Shadow, Feature_NormalMap).String())
	assert.Equal(t, "pbr{}[occlusion=map,shadow=pcf]", i1.String())
}

func TestParseKey(t *testing.T) {

	k, err := ParseKey(Base_Lambert, []string{"normal_map", "SHADOW"}, map[string]string{"shadow": "pcf"})
	require.NoError(t, err)
	assert.Equal(t, NewKey(Base_Lambert, Feature_NormalMap, Feature_Shadow).WithInclude("shadow", "pcf"), k)

	_, err = ParseKey(Base_Lambert, []string{"BLOOM"}, nil)
	assert.Error(t, err)
}

func TestResolveCaches(t *testing.T) {

	r, rec := newTestRegistry()

	shadowNormal := NewKey(Base_PBR, Feature_Shadow, Feature_NormalMap)

	p1, err := r.Resolve(shadowNormal)
	require.NoError(t, err)

	p2, err := r.Resolve(NewKey(Base_PBR, Feature_NormalMap, Feature_Shadow))
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, rec.Count(gpurec.Op_CreateProgram))

	p3, err := r.Resolve(NewKey(Base_PBR, Feature_Shadow))
	require.NoError(t, err)
	assert.NotSame(t, p1, p3)
	assert.NotEqual(t, p1.Id, p3.Id)
	assert.Equal(t, 2, rec.Count(gpurec.Op_CreateProgram))
	assert.Equal(t, 2, r.Len())

	r.Release()
	assert.Equal(t, 2, rec.Count(gpurec.Op_DeleteProgram))
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, rec.Programs)
}

func TestComposeIsDeterministic(t *testing.T) {

	r, _ := newTestRegistry()
	key := NewKey(Base_PBR, Feature_ShadowPCF, Feature_NormalMap, Feature_OcclusionMap, Feature_Instanced)

	s1, err := r.Compose(key)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		s2, err := r.Compose(key)
		require.NoError(t, err)
		assert.Equal(t, s1.Vert, s2.Vert)
		assert.Equal(t, s1.Frag, s2.Frag)
	}
}

func TestComposeSelectsFragments(t *testing.T) {

	r, _ := newTestRegistry()

	src, err := r.Compose(NewKey(Base_PBR, Feature_ShadowPCF, Feature_OcclusionMap))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"pbr.glsl",
		"transform.glsl",
		"base_color.glsl",
		"metallic_roughness.glsl",
		"normal.glsl",
		"occlusion-map.glsl",
		"shadow-pcf.glsl",
	}, src.Fragments)

	assert.Contains(t, src.Vert, "#version 330 core\n")
	assert.Contains(t, src.Frag, "#define SHADOW\n")
	assert.Contains(t, src.Frag, "#define SHADOW_PCF\n")
	assert.Contains(t, src.Frag, "#define MAX_INSTANCES 64\n")
	assert.NotContains(t, src.Frag, "#include")
	assert.NotContains(t, src.Vert, "#ifdef")
	assert.NotContains(t, src.Vert, "aTangent")

	// An explicit include wins over the feature rule
	src, err = r.Compose(NewKey(Base_PBR, Feature_ShadowPCF).WithInclude("shadow", "test"))
	require.NoError(t, err)
	assert.Contains(t, src.Fragments, "shadow-test.glsl")
	assert.NotContains(t, src.Fragments, "shadow-pcf.glsl")

	src, err = r.Compose(NewKey(Base_PBR, Feature_NormalMap))
	require.NoError(t, err)
	assert.Contains(t, src.Vert, "aTangent")
	assert.Contains(t, src.Fragments, "normal-map.glsl")
}

func TestComposeGLES(t *testing.T) {

	r := NewRegistry(gpurec.New(), DefaultSources(), "320 es")
	src, err := r.Compose(NewKey(Base_Blit, Feature_Multisample))
	require.NoError(t, err)

	assert.Contains(t, src.Frag, "#version 320 es\nprecision highp float;\n")
	assert.Contains(t, src.Fragments, "source-ms.glsl")
}

func TestReflection(t *testing.T) {

	r, _ := newTestRegistry()

	p, err := r.Resolve(NewKey(Base_PBR, Feature_Shadow, Feature_NormalMap, Feature_Instanced))
	require.NoError(t, err)

	names := map[string]UniformDecl{}
	for _, u := range p.Uniforms {
		names[u.Name] = u
	}

	for _, n := range []string{"model", "instances", "view", "proj", "lightSpace", "cameraPosition", "lightColor",
		"lightDirection", "ambientWeight", "baseColorFactor", "metallicFactor", "roughnessFactor", "normalTexture", "normalScale", "shadowMap"} {
		assert.Contains(t, names, n)
	}

	assert.NotContains(t, names, "normalMatrix")
	assert.NotContains(t, names, "occlusionTexture")

	inst := names["instances"]
	assert.Equal(t, "mat4", inst.Type)
	assert.Equal(t, MaxInstances, inst.ArrayLen)

	sm := names["shadowMap"]
	assert.True(t, sm.IsSampler())
	assert.False(t, sm.IsMultisampleSampler())

	attribs := map[string]uint32{}
	for _, a := range p.Attribs {
		attribs[a.Name] = a.Location
	}
	assert.Equal(t, map[string]uint32{"aPosition": 0, "aNormal": 1, "aUV0": 2, "aTangent": 3}, attribs)
}

func TestEveryBuiltinComposes(t *testing.T) {

	r, _ := newTestRegistry()

	keys := []Key{
		NewKey(Base_Unlit),
		NewKey(Base_Unlit, Feature_BaseColorMap),
		NewKey(Base_Lambert),
		NewKey(Base_Lambert, Feature_ShadowPCF, Feature_NormalMap, Feature_BaseColorMap),
		NewKey(Base_PBR, Feature_ShadowPCF, Feature_NormalMap, Feature_BaseColorMap, Feature_MetallicRoughnessMap, Feature_OcclusionMap),
		NewKey(Base_Grass, Feature_Shadow, Feature_Instanced),
		NewKey(Base_Depth),
		NewKey(Base_Depth, Feature_Instanced),
		NewKey(Base_Skybox),
		NewKey(Base_Blit),
		NewKey(Base_Blit, Feature_Multisample),
	}

	for _, k := range keys {
		_, err := r.Resolve(k)
		assert.NoError(t, err, k.String())
	}

	assert.Equal(t, len(keys), r.Len())
}

func TestMissingFragmentIsFatal(t *testing.T) {

	r, rec := newTestRegistry()

	key := NewKey(Base_PBR).WithInclude("shadow", "vsm")
	_, err := r.Resolve(key)

	var ce *CompilationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, key, ce.Key)
	assert.Equal(t, "shadow-vsm.glsl", ce.Fragment)
	assert.Equal(t, ShaderType_Fragment, ce.Stage)
	assert.Contains(t, err.Error(), "pbr{}[shadow=vsm]")

	// Stays failed without retrying, and no other variant is substituted
	_, err2 := r.Resolve(key)
	assert.Same(t, err, err2)
	assert.Equal(t, 0, rec.Count(gpurec.Op_CreateProgram))
	assert.Equal(t, 0, r.Len())

	_, err = r.Resolve(NewKey("toon"))
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "toon.glsl", ce.Fragment)
}

func TestCompilerDiagnosticNamesFragment(t *testing.T) {

	src := fstest.MapFS{
		"flat.glsl": {Data: []byte("//shader:vertex\nvoid main()\n{\n}\n//shader:fragment\nout vec4 c;\n#include tint\nvoid main()\n{\n    c = tint();\n}\n")},
		"include/tint.glsl": {Data: []byte("vec4 tint()\n{\n    return vec4(1.0) +;\n}\n")},
	}

	rec := gpurec.New()
	r := NewRegistry(rec, src, "330 core")

	composed, err := r.Compose(NewKey("flat"))
	require.NoError(t, err)

	// Find the composed line holding the broken statement
	badLine := 0
	for i := 1; ; i++ {
		origin := composed.Origin(ShaderType_Fragment, i)
		if origin == "" {
			break
		}
		if origin == "tint.glsl" && badLine == 0 {
			badLine = i + 2
		}
	}
	require.NotZero(t, badLine)

	rec.FailCompile = func(name, vert, frag string) error {
		return &StageError{Stage: ShaderType_Fragment, Log: "0:" + strconv.Itoa(badLine) + "(24): error: syntax error, unexpected ';'"}
	}

	_, err = r.Resolve(NewKey("flat"))
	var ce *CompilationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "tint.glsl", ce.Fragment)
	assert.Equal(t, ShaderType_Fragment, ce.Stage)
	assert.Contains(t, ce.Diagnostic, "unexpected ';'")
}

func TestConditionalErrors(t *testing.T) {

	src := fstest.MapFS{
		"bad.glsl":  {Data: []byte("//shader:vertex\n#ifdef SHADOW\nvoid main(){}\n//shader:fragment\nvoid main(){}\n")},
		"loop.glsl": {Data: []byte("//shader:vertex\n#include a\nvoid main(){}\n//shader:fragment\nvoid main(){}\n")},
		"include/a.glsl": {Data: []byte("#include a\n")},
	}

	r := NewRegistry(gpurec.New(), src, "330 core")

	_, err := r.Compose(NewKey("bad"))
	var ce *CompilationError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Diagnostic, "unterminated")

	// A fragment including itself is pasted once, not recursed
	_, err = r.Compose(NewKey("loop"))
	assert.NoError(t, err)
}

func TestForShadows(t *testing.T) {

	lambert := NewKey(Base_Lambert, Feature_ShadowPCF)
	k, ok := lambert.ForShadows(false)
	assert.True(t, ok)
	assert.Equal(t, NewKey(Base_Lambert), k)

	pbr := NewKey(Base_PBR, Feature_Shadow)
	_, ok = pbr.ForShadows(false)
	assert.False(t, ok)

	k, ok = pbr.ForShadows(true)
	assert.True(t, ok)
	assert.Equal(t, pbr, k)
}
