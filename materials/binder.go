package materials

import (
	"fmt"

	"github.com/bloeys/spot/buffers"
	"github.com/bloeys/spot/gpu"
	"github.com/bloeys/spot/meshes"
	"github.com/bloeys/spot/resources"
	"github.com/bloeys/spot/shaders"
)

// Implicit are the uniforms a pass supplies to every draw, like camera
// matrices, the light and time.
type Implicit map[string]Value

// Binder uploads the complete uniform and texture state of a draw. Nothing is
// carried over between draws: every Bind sets every uniform the program
// declares and binds textures to units starting from 0.
type Binder struct {
	Store *resources.Store
}

type boundUnif struct {
	decl *shaders.UniformDecl
	val  Value
	tex  resources.Texture
}

// Bind resolves every uniform of the program from, in order, the material
// params, the implicit pass uniforms and Defaults. Nothing is uploaded unless
// all of them resolve.
func (b *Binder) Bind(dev gpu.Device, mat *Material, prog *shaders.Program, implicit Implicit) error {

	fail := func(unif, tex, reason string, err error) error {
		return &BindingError{
			Material:   mat.Name,
			MaterialId: mat.Id,
			Key:        prog.Key,
			Uniform:    unif,
			Texture:    tex,
			Reason:     reason,
			Err:        err,
		}
	}

	maxUnits := dev.Limits().MaxTextureUnits
	texUnits := int32(0)

	bound := make([]boundUnif, 0, len(prog.Uniforms))
	for i := 0; i < len(prog.Uniforms); i++ {

		decl := &prog.Uniforms[i]

		v, ok := mat.Params[decl.Name]
		if !ok {
			v, ok = implicit[decl.Name]
		}

		if !ok {
			v, ok = Defaults[decl.Name]
		}

		if !ok {

			reason := "uniform has no value in the material, the pass uniforms or the defaults"
			if decl.IsSampler() {
				reason = "variant requires a " + decl.Type + " texture but the material has none"
			}

			return fail(decl.Name, "", reason, nil)
		}

		if err := v.checkFits(decl); err != nil {
			return fail(decl.Name, "", "value does not fit the uniform", err)
		}

		bu := boundUnif{decl: decl, val: v}
		if v.Kind != ValueKind_Texture {
			bound = append(bound, bu)
			continue
		}

		tex, err := b.Store.Texture(v.Tex)
		if err != nil {
			return fail(decl.Name, v.Tex.String(), "texture is not in the resource store", err)
		}

		if err := checkSamplerFits(decl, &tex); err != nil {
			return fail(decl.Name, v.Tex.String(), err.Error(), nil)
		}

		if texUnits >= maxUnits {
			return fail(decl.Name, v.Tex.String(), fmt.Sprintf("variant samples more than the %d texture units the device has", maxUnits), nil)
		}

		texUnits++
		bu.tex = tex
		bound = append(bound, bu)
	}

	dev.UseProgram(prog.Id)

	unit := int32(0)
	for i := 0; i < len(bound); i++ {

		bu := &bound[i]
		name := bu.decl.Name
		switch bu.val.Kind {
		case ValueKind_Float:
			dev.SetUnifFloat32(prog.Id, name, bu.val.F)
		case ValueKind_Int:
			dev.SetUnifInt32(prog.Id, name, bu.val.I)
		case ValueKind_Vec2:
			dev.SetUnifVec2(prog.Id, name, &bu.val.V2)
		case ValueKind_Vec3:
			dev.SetUnifVec3(prog.Id, name, &bu.val.V3)
		case ValueKind_Vec4:
			dev.SetUnifVec4(prog.Id, name, &bu.val.V4)
		case ValueKind_Mat3:
			dev.SetUnifMat3(prog.Id, name, &bu.val.M3)
		case ValueKind_Mat4:
			dev.SetUnifMat4(prog.Id, name, &bu.val.M4)
		case ValueKind_Mat4Array:
			dev.SetUnifMat4Array(prog.Id, name, bu.val.M4s)
		case ValueKind_Texture:
			dev.BindTexture(unit, bu.tex.Kind, bu.tex.Samples, bu.tex.Id)
			dev.SetUnifInt32(prog.Id, name, unit)
			unit++
		}
	}

	return nil
}

func checkSamplerFits(decl *shaders.UniformDecl, tex *resources.Texture) error {

	switch {
	case decl.Type == "samplerCube":
		if tex.Kind != gpu.TextureKind_Cube {
			return fmt.Errorf("samplerCube needs a cubemap but texture '%s' is %s", tex.Name, tex.Kind)
		}
	case decl.IsMultisampleSampler():
		if tex.Kind != gpu.TextureKind_2D || !tex.IsMultisampled() {
			return fmt.Errorf("%s needs a multisampled 2D texture but texture '%s' has %d samples", decl.Type, tex.Name, tex.Samples)
		}
	default:
		if tex.Kind != gpu.TextureKind_2D || tex.IsMultisampled() {
			return fmt.Errorf("%s needs a single sampled 2D texture but texture '%s' is %s with %d samples", decl.Type, tex.Name, tex.Kind, tex.Samples)
		}
	}

	return nil
}

// CheckLayout makes sure the mesh provides every vertex input of the program
// at the location the program reads it from.
func CheckLayout(mesh *meshes.Mesh, mat *Material, prog *shaders.Program) error {

	for _, a := range prog.Attribs {

		s := buffers.SemanticFromAttribName(a.Name)
		if s == buffers.Semantic_Unknown || s.Location() != a.Location {
			return &BindingError{
				Material:   mat.Name,
				MaterialId: mat.Id,
				Key:        prog.Key,
				Reason:     fmt.Sprintf("vertex input '%s' at location %d does not match any vertex semantic", a.Name, a.Location),
			}
		}

		if !mesh.Layout.Has(s) {
			return &BindingError{
				Material:   mat.Name,
				MaterialId: mat.Id,
				Key:        prog.Key,
				Reason:     fmt.Sprintf("mesh '%s' has no %s vertex data but the variant reads '%s'", mesh.Name, s, a.Name),
			}
		}
	}

	return nil
}
