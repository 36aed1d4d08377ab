// Package rend3dgl is the OpenGL backend of gpu.Device. It needs a current
// OpenGL 4.1 core context on the calling thread.
package rend3dgl

import (
	"github.com/bloeys/spot/gpu"
	"github.com/bloeys/spot/logging"
	"github.com/go-gl/gl/v4.1-core/gl"
)

var _ gpu.Device = &Rend3DGL{}

type texInfo struct {
	target uint32
	format gpu.TextureFormat
}

type vaoInfo struct {
	vbo uint32
	ibo uint32
}

type Rend3DGL struct {
	BoundVaoId  uint32
	BoundProgId uint32
	BoundFboId  uint32

	limits gpu.Limits

	unifLocs map[uint32]map[string]int32
	textures map[uint32]texInfo
	vaos     map[uint32]vaoInfo
}

func (r *Rend3DGL) Limits() gpu.Limits {
	return r.limits
}

func (r *Rend3DGL) BeginPass(fbo uint32, width, height int32, state gpu.PassState) {

	if fbo != r.BoundFboId {
		gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
		r.BoundFboId = fbo
	}

	gl.Viewport(0, 0, width, height)

	setCap(gl.DEPTH_TEST, state.DepthTest)
	setCap(gl.CULL_FACE, state.CullBackFaces)
	setCap(gl.BLEND, state.Blend)

	if state.DepthLessEq {
		gl.DepthFunc(gl.LEQUAL)
	} else {
		gl.DepthFunc(gl.LESS)
	}

	var clearBits uint32
	if state.DoClearColor {
		c := &state.ClearColor
		gl.ClearColor(c.X(), c.Y(), c.Z(), c.W())
		clearBits |= gl.COLOR_BUFFER_BIT
	}

	if state.DoClearDepth {
		gl.DepthMask(true)
		clearBits |= gl.DEPTH_BUFFER_BIT
	}

	if clearBits != 0 {
		gl.Clear(clearBits)
	}
}

func setCap(c uint32, enabled bool) {

	if enabled {
		gl.Enable(c)
	} else {
		gl.Disable(c)
	}
}

func (r *Rend3DGL) UseProgram(id uint32) {

	if id == r.BoundProgId {
		return
	}

	gl.UseProgram(id)
	r.BoundProgId = id
}

func (r *Rend3DGL) BindTexture(unit int32, kind gpu.TextureKind, samples int32, id uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(textureTarget(kind, samples), id)
}

func (r *Rend3DGL) bindVao(vao uint32) {

	if vao == r.BoundVaoId {
		return
	}

	gl.BindVertexArray(vao)
	r.BoundVaoId = vao
}

func (r *Rend3DGL) DrawElements(vao uint32, sub gpu.SubDraw, instances int32) {

	r.bindVao(vao)

	// The offset is in bytes, indices are uint32
	offset := uintptr(sub.BaseIndex) * 4
	if instances > 1 {
		gl.DrawElementsInstancedBaseVertexWithOffset(gl.TRIANGLES, sub.IndexCount, gl.UNSIGNED_INT, offset, instances, sub.BaseVertex)
		return
	}

	gl.DrawElementsBaseVertexWithOffset(gl.TRIANGLES, sub.IndexCount, gl.UNSIGNED_INT, offset, sub.BaseVertex)
}

func (r *Rend3DGL) DrawArrays(vao uint32, first, count int32) {
	r.bindVao(vao)
	gl.DrawArrays(gl.TRIANGLES, first, count)
}

// FrameEnd forgets the cached bindings. Call it if anything outside the
// device touches OpenGL state, like a UI overlay.
func (r *Rend3DGL) FrameEnd() {
	r.BoundVaoId = 0
	r.BoundProgId = 0
	r.BoundFboId = 0
}

// NewRend3DGL queries the device limits. The OpenGL context must be current.
func NewRend3DGL() *Rend3DGL {

	var maxTexSize, maxSamples, maxUnits int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxTexSize)
	gl.GetIntegerv(gl.MAX_SAMPLES, &maxSamples)
	gl.GetIntegerv(gl.MAX_TEXTURE_IMAGE_UNITS, &maxUnits)

	logging.InfoLog.Printf("OpenGL %s on %s. MaxTextureSize=%d, MaxSamples=%d, MaxTextureUnits=%d\n",
		gl.GoStr(gl.GetString(gl.VERSION)),
		gl.GoStr(gl.GetString(gl.RENDERER)),
		maxTexSize,
		maxSamples,
		maxUnits,
	)

	return &Rend3DGL{
		limits: gpu.Limits{
			MaxTextureSize:  maxTexSize,
			MaxSamples:      maxSamples,
			MaxTextureUnits: maxUnits,
		},
		unifLocs: map[uint32]map[string]int32{},
		textures: map[uint32]texInfo{},
		vaos:     map[uint32]vaoInfo{},
	}
}
