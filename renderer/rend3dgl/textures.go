package rend3dgl

import (
	"fmt"
	"unsafe"

	"github.com/bloeys/spot/gpu"
	"github.com/bloeys/spot/logging"
	"github.com/go-gl/gl/v4.1-core/gl"
)

func textureTarget(kind gpu.TextureKind, samples int32) uint32 {

	if kind == gpu.TextureKind_Cube {
		return gl.TEXTURE_CUBE_MAP
	}

	if samples > 1 {
		return gl.TEXTURE_2D_MULTISAMPLE
	}

	return gl.TEXTURE_2D
}

// glFormat returns the internal format, pixel format and pixel type
func glFormat(f gpu.TextureFormat) (int32, uint32, uint32) {

	switch f {
	case gpu.TextureFormat_RGBA8:
		return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE
	case gpu.TextureFormat_SRGBA8:
		return gl.SRGB8_ALPHA8, gl.RGBA, gl.UNSIGNED_BYTE
	case gpu.TextureFormat_RGBA16F:
		return gl.RGBA16F, gl.RGBA, gl.HALF_FLOAT
	case gpu.TextureFormat_Depth16:
		return gl.DEPTH_COMPONENT16, gl.DEPTH_COMPONENT, gl.UNSIGNED_SHORT
	case gpu.TextureFormat_Depth24:
		return gl.DEPTH_COMPONENT24, gl.DEPTH_COMPONENT, gl.UNSIGNED_INT
	default:
		logging.ErrLog.Panicf("unknown texture format. Format=%s\n", f)
		return 0, 0, 0
	}
}

// checkAlloc turns an out of memory state left by the last calls into an error
func checkAlloc(what string) error {

	glErr := gl.GetError()
	if glErr == gl.NO_ERROR {
		return nil
	}

	// Drain so the next check starts clean
	for gl.GetError() != gl.NO_ERROR {
	}

	if glErr == gl.OUT_OF_MEMORY {
		return fmt.Errorf("out of gpu memory while creating %s", what)
	}

	return fmt.Errorf("OpenGL error %d while creating %s", glErr, what)
}

func (r *Rend3DGL) CreateTexture(desc gpu.TextureDesc) (uint32, error) {

	internalFormat, pixelFormat, pixelType := glFormat(desc.Format)
	target := textureTarget(desc.Kind, desc.Samples)

	// Clear stale errors so they aren't blamed on this texture
	for gl.GetError() != gl.NO_ERROR {
	}

	var texId uint32
	gl.GenTextures(1, &texId)
	if texId == 0 {
		return 0, fmt.Errorf("failed to generate texture '%s'. GlError=%d", desc.Name, gl.GetError())
	}

	gl.BindTexture(target, texId)

	switch target {
	case gl.TEXTURE_2D_MULTISAMPLE:
		gl.TexImage2DMultisample(target, desc.Samples, uint32(internalFormat), desc.Width, desc.Height, true)

	case gl.TEXTURE_CUBE_MAP:
		for i := uint32(0); i < 6; i++ {
			gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+i, 0, internalFormat, desc.Width, desc.Height, 0, pixelFormat, pixelType, facePtr(desc.Pixels, int(i)))
		}

	default:
		gl.TexImage2D(target, 0, internalFormat, desc.Width, desc.Height, 0, pixelFormat, pixelType, facePtr(desc.Pixels, 0))
	}

	// Multisampled textures have no sampler state
	if target != gl.TEXTURE_2D_MULTISAMPLE {

		filter := int32(gl.LINEAR)
		if desc.Format.IsDepth() {
			filter = gl.NEAREST
		}

		gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, filter)
		gl.TexParameteri(target, gl.TEXTURE_MAG_FILTER, filter)

		wrap := int32(gl.CLAMP_TO_EDGE)
		if desc.ClampToBorder {
			wrap = gl.CLAMP_TO_BORDER
			borderColor := [4]float32{1, 1, 1, 1}
			gl.TexParameterfv(target, gl.TEXTURE_BORDER_COLOR, &borderColor[0])
		} else if desc.Kind == gpu.TextureKind_2D && !desc.Format.IsDepth() {
			wrap = gl.REPEAT
		}

		gl.TexParameteri(target, gl.TEXTURE_WRAP_S, wrap)
		gl.TexParameteri(target, gl.TEXTURE_WRAP_T, wrap)
		if target == gl.TEXTURE_CUBE_MAP {
			gl.TexParameteri(target, gl.TEXTURE_WRAP_R, wrap)
		}
	}

	gl.BindTexture(target, 0)

	if err := checkAlloc("texture '" + desc.Name + "'"); err != nil {
		gl.DeleteTextures(1, &texId)
		return 0, err
	}

	r.textures[texId] = texInfo{target: target, format: desc.Format}
	return texId, nil
}

func facePtr(pixels [][]byte, face int) unsafe.Pointer {

	if face >= len(pixels) || len(pixels[face]) == 0 {
		return nil
	}

	return gl.Ptr(&pixels[face][0])
}

func (r *Rend3DGL) DeleteTexture(id uint32) {
	delete(r.textures, id)
	gl.DeleteTextures(1, &id)
}

func (r *Rend3DGL) CreateFramebuffer(desc gpu.FramebufferDesc) (uint32, error) {

	var fboId uint32
	gl.GenFramebuffers(1, &fboId)
	if fboId == 0 {
		return 0, fmt.Errorf("failed to generate framebuffer '%s'. GlError=%d", desc.Name, gl.GetError())
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, fboId)

	attach := func(attachment, texId uint32) error {

		info, ok := r.textures[texId]
		if !ok {
			return fmt.Errorf("framebuffer '%s' attachment texture %d doesn't exist", desc.Name, texId)
		}

		gl.FramebufferTexture2D(gl.FRAMEBUFFER, attachment, info.target, texId, 0)
		return nil
	}

	var err error
	if desc.ColorTex != 0 {
		err = attach(gl.COLOR_ATTACHMENT0, desc.ColorTex)
	} else {
		// Depth only
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	}

	if err == nil && desc.DepthTex != 0 {
		err = attach(gl.DEPTH_ATTACHMENT, desc.DepthTex)
	}

	if err == nil {
		if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
			err = fmt.Errorf("framebuffer '%s' is incomplete. Status=%d", desc.Name, status)
		}
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, r.BoundFboId)

	if err != nil {
		gl.DeleteFramebuffers(1, &fboId)
		return 0, err
	}

	return fboId, nil
}

func (r *Rend3DGL) DeleteFramebuffer(id uint32) {

	if id == r.BoundFboId {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		r.BoundFboId = 0
	}

	gl.DeleteFramebuffers(1, &id)
}
