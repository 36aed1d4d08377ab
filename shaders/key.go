package shaders

import (
	"fmt"
	"slices"
	"strings"
)

// Key identifies a shader variant. Keys are comparable and equal keys always
// compose to the same source, so the registry caches by key alone.
//
// Flag order never matters: keys built from the same set of flags are equal.
type Key struct {
	Base     string
	Features Features

	// includes holds explicit include overrides as sorted 'slot=variant' pairs
	// joined by ';'. It is a string so that Key stays comparable.
	includes string
}

func NewKey(base string, flags ...Features) Key {

	var f Features
	for _, x := range flags {
		f |= x
	}

	return Key{Base: base, Features: f.normalized()}
}

func (k Key) With(flags Features) Key {
	k.Features = k.Features.With(flags)
	return k
}

func (k Key) Without(flags Features) Key {
	k.Features = k.Features.Without(flags)
	return k
}

// WithInclude forces the fragment used for an include slot, overriding the
// one picked by the feature flags. An empty variant selects the slot's
// default fragment.
func (k Key) WithInclude(slot, variant string) Key {

	incs := k.Includes()
	incs[slot] = variant

	pairs := make([]string, 0, len(incs))
	for s, v := range incs {
		pairs = append(pairs, s+"="+v)
	}
	slices.Sort(pairs)

	k.includes = strings.Join(pairs, ";")
	return k
}

// Includes returns the explicit include overrides of the key
func (k Key) Includes() map[string]string {

	out := map[string]string{}
	if k.includes == "" {
		return out
	}

	for _, pair := range strings.Split(k.includes, ";") {
		slot, variant, _ := strings.Cut(pair, "=")
		out[slot] = variant
	}

	return out
}

func (k Key) Include(slot string) (variant string, ok bool) {
	variant, ok = k.Includes()[slot]
	return variant, ok
}

// String formats the key like 'pbr{NORMAL_MAP,SHADOW}[shadow=pcf]'
func (k Key) String() string {

	if k.includes == "" {
		return k.Base + k.Features.String()
	}

	return fmt.Sprintf("%s%s[%s]", k.Base, k.Features.String(), strings.ReplaceAll(k.includes, ";", ","))
}

// ParseKey parses a key from a base name, flag names and 'slot=variant' includes
func ParseKey(base string, flags []string, includes map[string]string) (Key, error) {

	f, err := ParseFeatures(flags...)
	if err != nil {
		return Key{}, fmt.Errorf("shader key '%s': %w", base, err)
	}

	k := NewKey(base, f)
	for slot, variant := range includes {
		if strings.ContainsAny(slot, "=;") || strings.ContainsAny(variant, "=;") {
			return Key{}, fmt.Errorf("shader key '%s': invalid include '%s=%s'", base, slot, variant)
		}
		k = k.WithInclude(slot, variant)
	}

	return k, nil
}
