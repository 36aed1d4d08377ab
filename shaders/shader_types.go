package shaders

import (
	"bytes"
	"errors"
)

type ShaderType int32

const (
	ShaderType_Unknown ShaderType = iota
	ShaderType_Vertex
	ShaderType_Fragment
)

func (s ShaderType) String() string {

	switch s {
	case ShaderType_Vertex:
		return "vertex"
	case ShaderType_Fragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// SplitCombined splits a combined shader file into its stages. Stages start
// with a '//shader:vertex' or '//shader:fragment' line.
func SplitCombined(combinedSrc []byte) (vert, frag []byte, err error) {

	shaderSources := bytes.Split(combinedSrc, []byte("//shader:"))
	if len(shaderSources) < 2 {
		return nil, nil, errors.New("failed to read combined shader. The minimum shader types to have are '//shader:vertex' and '//shader:fragment'")
	}

	for i := 0; i < len(shaderSources); i++ {

		src := shaderSources[i]

		//This can happen when the shader type is at the start of the file
		if len(bytes.TrimSpace(src)) == 0 {
			continue
		}

		if bytes.HasPrefix(src, []byte("vertex")) {
			vert = src[6:]
		} else if bytes.HasPrefix(src, []byte("fragment")) {
			frag = src[8:]
		} else if i == 0 {
			// Anything before the first stage marker, like a license or notes
			continue
		} else {
			return nil, nil, errors.New("unknown shader type. Must be '//shader:vertex' or '//shader:fragment'")
		}
	}

	if vert == nil {
		return nil, nil, errors.New("no valid vertex shader found. Please put '//shader:vertex' before your vertex shader")
	}

	if frag == nil {
		return nil, nil, errors.New("no valid fragment shader found. Please put '//shader:fragment' before your fragment shader")
	}

	return vert, frag, nil
}
