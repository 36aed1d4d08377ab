package shaders

// ShadowPolicy says what a shading family does when no shadow map is available
type ShadowPolicy uint8

const (
	// ShadowPolicy_FullyLit drops the shadow features and shades as if nothing
	// occludes the light.
	ShadowPolicy_FullyLit ShadowPolicy = iota
	// ShadowPolicy_Required treats the shadow map as a required input, so a
	// shadowed variant without one fails to bind.
	ShadowPolicy_Required
)

const (
	Base_Unlit   = "unlit"
	Base_Lambert = "lambert"
	Base_PBR     = "pbr"
	Base_Grass   = "grass"
	Base_Depth   = "depth"
	Base_Skybox  = "skybox"
	Base_Blit    = "blit"
)

var shadowPolicies = map[string]ShadowPolicy{
	Base_PBR: ShadowPolicy_Required,
}

func ShadowPolicyOf(base string) ShadowPolicy {
	return shadowPolicies[base]
}

// ForShadows adapts a material key to whether this frame has a shadow map.
// The returned bool is false when the key needs one and there is none.
func (k Key) ForShadows(haveShadowMap bool) (Key, bool) {

	if haveShadowMap || !k.Features.Has(Feature_Shadow) {
		return k, true
	}

	if ShadowPolicyOf(k.Base) == ShadowPolicy_Required {
		return k, false
	}

	return k.Without(Feature_Shadow), true
}
