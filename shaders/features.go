package shaders

import (
	"fmt"
	"math/bits"
	"slices"
	"strings"
)

// Features is a set of variant feature flags. Each enabled flag becomes a
// '#define NAME' in the composed source and may select include fragments.
type Features uint32

const (
	Feature_Shadow Features = 1 << iota
	// Feature_ShadowPCF filters the shadow test with a 3x3 kernel. It implies Feature_Shadow.
	Feature_ShadowPCF
	Feature_NormalMap
	Feature_BaseColorMap
	Feature_MetallicRoughnessMap
	Feature_OcclusionMap
	Feature_Instanced
	Feature_Multisample

	featureCount = iota
)

var featureNames = [featureCount]string{
	"SHADOW",
	"SHADOW_PCF",
	"NORMAL_MAP",
	"BASE_COLOR_MAP",
	"METALLIC_ROUGHNESS_MAP",
	"OCCLUSION_MAP",
	"INSTANCED",
	"MULTISAMPLE",
}

func (f Features) Has(x Features) bool {
	return f&x == x
}

func (f Features) With(x Features) Features {
	return (f | x).normalized()
}

func (f Features) Without(x Features) Features {
	f &^= x
	if x&Feature_Shadow != 0 {
		f &^= Feature_ShadowPCF
	}
	return f
}

func (f Features) Len() int {
	return bits.OnesCount32(uint32(f))
}

func (f Features) normalized() Features {
	if f&Feature_ShadowPCF != 0 {
		f |= Feature_Shadow
	}
	return f
}

// Names returns the define names of the enabled flags in a fixed order
func (f Features) Names() []string {

	names := make([]string, 0, f.Len())
	for i := 0; i < featureCount; i++ {
		if f&(1<<i) != 0 {
			names = append(names, featureNames[i])
		}
	}

	return names
}

// String lists the flags sorted by name, for example '{NORMAL_MAP,SHADOW}'
func (f Features) String() string {

	names := f.Names()
	slices.Sort(names)
	return "{" + strings.Join(names, ",") + "}"
}

func ParseFeature(name string) (Features, error) {

	upper := strings.ToUpper(strings.TrimSpace(name))
	for i := 0; i < featureCount; i++ {
		if featureNames[i] == upper {
			return 1 << i, nil
		}
	}

	return 0, fmt.Errorf("unknown shader feature '%s'", name)
}

func ParseFeatures(names ...string) (Features, error) {

	var f Features
	for _, n := range names {

		x, err := ParseFeature(n)
		if err != nil {
			return 0, err
		}

		f |= x
	}

	return f.normalized(), nil
}
