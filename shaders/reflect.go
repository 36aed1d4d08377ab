package shaders

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type UniformDecl struct {
	Name string
	Type string

	// ArrayLen is zero for non array uniforms
	ArrayLen int
}

func (u *UniformDecl) IsSampler() bool {
	return strings.HasPrefix(u.Type, "sampler")
}

func (u *UniformDecl) IsMultisampleSampler() bool {
	return strings.HasPrefix(u.Type, "sampler2DMS")
}

type AttribDecl struct {
	Name     string
	Type     string
	Location uint32
}

var (
	blockCommentRgx = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRgx  = regexp.MustCompile(`//[^\n]*`)

	unifRgx   = regexp.MustCompile(`(?m)^\s*uniform\s+(?:(?:lowp|mediump|highp)\s+)?(\w+)\s+(\w+)\s*(?:\[\s*(\w+)\s*\])?\s*;`)
	attribRgx = regexp.MustCompile(`(?m)^\s*layout\s*\(\s*location\s*=\s*(\d+)\s*\)\s*in\s+(?:(?:lowp|mediump|highp)\s+)?(\w+)\s+(\w+)\s*;`)
	defineRgx = regexp.MustCompile(`(?m)^\s*#define\s+(\w+)\s+(\d+)\s*$`)
)

func stripComments(src string) string {
	return lineCommentRgx.ReplaceAllString(blockCommentRgx.ReplaceAllString(src, " "), "")
}

// reflectUniforms lists the uniforms declared by a composed stage
func reflectUniforms(src string) ([]UniformDecl, error) {

	src = stripComments(src)

	intDefines := map[string]int{}
	for _, m := range defineRgx.FindAllStringSubmatch(src, -1) {
		v, _ := strconv.Atoi(m[2])
		intDefines[m[1]] = v
	}

	matches := unifRgx.FindAllStringSubmatch(src, -1)
	out := make([]UniformDecl, 0, len(matches))
	for _, m := range matches {

		u := UniformDecl{Type: m[1], Name: m[2]}
		if m[3] != "" {

			if n, err := strconv.Atoi(m[3]); err == nil {
				u.ArrayLen = n
			} else if n, ok := intDefines[m[3]]; ok {
				u.ArrayLen = n
			} else {
				return nil, fmt.Errorf("uniform '%s' has array size '%s' which isn't a number or a known define", u.Name, m[3])
			}
		}

		out = append(out, u)
	}

	return out, nil
}

// reflectAttribs lists the vertex inputs declared by a composed vertex stage
func reflectAttribs(src string) []AttribDecl {

	src = stripComments(src)

	matches := attribRgx.FindAllStringSubmatch(src, -1)
	out := make([]AttribDecl, 0, len(matches))
	for _, m := range matches {
		loc, _ := strconv.Atoi(m[1])
		out = append(out, AttribDecl{Location: uint32(loc), Type: m[2], Name: m[3]})
	}

	return out
}

// mergeUniforms joins the uniforms of both stages. A name declared in both
// stages must have the same type.
func mergeUniforms(vert, frag []UniformDecl) ([]UniformDecl, error) {

	out := make([]UniformDecl, 0, len(vert)+len(frag))
	index := map[string]int{}

	for _, list := range [2][]UniformDecl{vert, frag} {
		for _, u := range list {

			if i, ok := index[u.Name]; ok {

				if out[i].Type != u.Type || out[i].ArrayLen != u.ArrayLen {
					return nil, fmt.Errorf("uniform '%s' is declared as '%s' and as '%s'", u.Name, out[i].Type, u.Type)
				}

				continue
			}

			index[u.Name] = len(out)
			out = append(out, u)
		}
	}

	return out, nil
}
