package rend3dgl

import (
	"fmt"

	"github.com/bloeys/spot/buffers"
	"github.com/bloeys/spot/gpu"
	"github.com/bloeys/spot/logging"
	"github.com/go-gl/gl/v4.1-core/gl"
)

func glUsage(b buffers.BufUsage) uint32 {

	switch b {
	case buffers.BufUsage_Static_Draw:
		return gl.STATIC_DRAW
	case buffers.BufUsage_Dynamic_Draw:
		return gl.DYNAMIC_DRAW
	case buffers.BufUsage_Stream_Draw:
		return gl.STREAM_DRAW
	default:
		logging.ErrLog.Panicf("Unknown buffer usage '%s'\n", b)
		return 0
	}
}

func glType(dt buffers.ElementType) uint32 {

	switch dt {
	case buffers.DataTypeUint32:
		return gl.UNSIGNED_INT
	case buffers.DataTypeInt32:
		return gl.INT
	case buffers.DataTypeFloat32, buffers.DataTypeVec2, buffers.DataTypeVec3, buffers.DataTypeVec4,
		buffers.DataTypeMat2, buffers.DataTypeMat3, buffers.DataTypeMat4:
		return gl.FLOAT
	default:
		logging.ErrLog.Panicf("Unknown data type '%s'\n", dt)
		return 0
	}
}

// CreateVertexArray uploads interleaved vertices and their indices. Every
// element is bound at the attribute location of its semantic.
func (r *Rend3DGL) CreateVertexArray(desc gpu.VertexArrayDesc) (uint32, error) {

	if len(desc.Vertices) == 0 || len(desc.Indices) == 0 {
		return 0, fmt.Errorf("vertex array '%s' has no vertices or indices", desc.Name)
	}

	for gl.GetError() != gl.NO_ERROR {
	}

	var vaoId uint32
	gl.GenVertexArrays(1, &vaoId)
	if vaoId == 0 {
		return 0, fmt.Errorf("failed to create OpenGL vertex array object '%s'", desc.Name)
	}

	info := vaoInfo{}
	gl.GenBuffers(1, &info.vbo)
	gl.GenBuffers(1, &info.ibo)
	if info.vbo == 0 || info.ibo == 0 {
		gl.DeleteVertexArrays(1, &vaoId)
		return 0, fmt.Errorf("failed to create OpenGL buffers for vertex array '%s'", desc.Name)
	}

	// NOTE: VBOs are only bound at 'VertexAttribPointer' (and related) calls
	gl.BindVertexArray(vaoId)
	r.BoundVaoId = vaoId

	usage := glUsage(desc.Usage)

	gl.BindBuffer(gl.ARRAY_BUFFER, info.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(desc.Vertices)*4, gl.Ptr(&desc.Vertices[0]), usage)

	stride := desc.Layout.Stride()
	for i := 0; i < len(desc.Layout); i++ {

		l := &desc.Layout[i]
		loc := l.Semantic.Location()

		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribPointerWithOffset(loc, l.ElementType.CompCount(), glType(l.ElementType), false, stride, uintptr(l.Offset))
	}

	// The element buffer binding is part of the vao state
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, info.ibo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(desc.Indices)*4, gl.Ptr(&desc.Indices[0]), usage)

	gl.BindVertexArray(0)
	r.BoundVaoId = 0

	if err := checkAlloc("vertex array '" + desc.Name + "'"); err != nil {
		r.deleteVao(vaoId, info)
		return 0, err
	}

	r.vaos[vaoId] = info
	return vaoId, nil
}

func (r *Rend3DGL) deleteVao(id uint32, info vaoInfo) {
	gl.DeleteBuffers(1, &info.vbo)
	gl.DeleteBuffers(1, &info.ibo)
	gl.DeleteVertexArrays(1, &id)
}

func (r *Rend3DGL) DeleteVertexArray(id uint32) {

	if id == r.BoundVaoId {
		gl.BindVertexArray(0)
		r.BoundVaoId = 0
	}

	info := r.vaos[id]
	delete(r.vaos, id)
	r.deleteVao(id, info)
}
