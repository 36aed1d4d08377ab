// Package gpurec provides a gpu.Device that records every call instead of
// talking to a graphics API. It lets the pipeline run headless in tests.
package gpurec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/gpu"
)

var _ gpu.Device = &Recorder{}

type Op string

const (
	Op_CreateProgram     Op = "CreateProgram"
	Op_DeleteProgram     Op = "DeleteProgram"
	Op_CreateTexture     Op = "CreateTexture"
	Op_DeleteTexture     Op = "DeleteTexture"
	Op_CreateFramebuffer Op = "CreateFramebuffer"
	Op_DeleteFramebuffer Op = "DeleteFramebuffer"
	Op_CreateVertexArray Op = "CreateVertexArray"
	Op_DeleteVertexArray Op = "DeleteVertexArray"
	Op_BeginPass         Op = "BeginPass"
	Op_UseProgram        Op = "UseProgram"
	Op_BindTexture       Op = "BindTexture"
	Op_SetUniform        Op = "SetUniform"
	Op_DrawElements      Op = "DrawElements"
	Op_DrawArrays        Op = "DrawArrays"
)

// Call is one recorded device call. Only the fields meaningful for the op are set.
type Call struct {
	Op        Op
	Id        uint32
	Name      string
	Unit      int32
	Samples   int32
	Instances int32
	Count     int32
	Width     int32
	Height    int32
	Value     any
}

type Program struct {
	Name string
	Vert string
	Frag string
}

type Recorder struct {
	mu sync.Mutex

	Calls []Call

	Programs     map[uint32]Program
	Textures     map[uint32]gpu.TextureDesc
	Framebuffers map[uint32]gpu.FramebufferDesc
	VertexArrays map[uint32]gpu.VertexArrayDesc

	// Uniforms holds the last value set for each (program, uniform name)
	Uniforms map[uint32]map[string]any

	DeviceLimits gpu.Limits

	// FailCompile, when set, is consulted by CreateProgram and a non-nil
	// return is reported as the compiler diagnostic.
	FailCompile func(name, vert, frag string) error

	// FailTexture, when set, makes CreateTexture fail like a driver out of memory
	FailTexture func(desc gpu.TextureDesc) error

	lastId uint32
}

func New() *Recorder {
	return &Recorder{
		Programs:     map[uint32]Program{},
		Textures:     map[uint32]gpu.TextureDesc{},
		Framebuffers: map[uint32]gpu.FramebufferDesc{},
		VertexArrays: map[uint32]gpu.VertexArrayDesc{},
		Uniforms:     map[uint32]map[string]any{},
		DeviceLimits: gpu.Limits{
			MaxTextureSize:  4096,
			MaxSamples:      8,
			MaxTextureUnits: 16,
		},
	}
}

func (r *Recorder) record(c Call) {
	r.Calls = append(r.Calls, c)
}

func (r *Recorder) nextId() uint32 {
	r.lastId++
	return r.lastId
}

func (r *Recorder) Limits() gpu.Limits {
	return r.DeviceLimits
}

func (r *Recorder) CreateProgram(name, vertSrc, fragSrc string) (uint32, error) {

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailCompile != nil {
		if err := r.FailCompile(name, vertSrc, fragSrc); err != nil {
			r.record(Call{Op: Op_CreateProgram, Name: name})
			return 0, err
		}
	}

	id := r.nextId()
	r.Programs[id] = Program{Name: name, Vert: vertSrc, Frag: fragSrc}
	r.record(Call{Op: Op_CreateProgram, Id: id, Name: name})
	return id, nil
}

func (r *Recorder) DeleteProgram(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Programs, id)
	r.record(Call{Op: Op_DeleteProgram, Id: id})
}

func (r *Recorder) CreateTexture(desc gpu.TextureDesc) (uint32, error) {

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailTexture != nil {
		if err := r.FailTexture(desc); err != nil {
			return 0, err
		}
	}

	if desc.Width <= 0 || desc.Height <= 0 {
		return 0, fmt.Errorf("invalid texture size %dx%d", desc.Width, desc.Height)
	}

	id := r.nextId()
	r.Textures[id] = desc
	r.record(Call{Op: Op_CreateTexture, Id: id, Name: desc.Name, Width: desc.Width, Height: desc.Height, Samples: desc.Samples})
	return id, nil
}

func (r *Recorder) DeleteTexture(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Textures, id)
	r.record(Call{Op: Op_DeleteTexture, Id: id})
}

func (r *Recorder) CreateFramebuffer(desc gpu.FramebufferDesc) (uint32, error) {

	r.mu.Lock()
	defer r.mu.Unlock()

	if desc.ColorTex == 0 && desc.DepthTex == 0 {
		return 0, errors.New("framebuffer has no attachments")
	}

	id := r.nextId()
	r.Framebuffers[id] = desc
	r.record(Call{Op: Op_CreateFramebuffer, Id: id, Name: desc.Name, Width: desc.Width, Height: desc.Height, Samples: desc.Samples})
	return id, nil
}

func (r *Recorder) DeleteFramebuffer(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Framebuffers, id)
	r.record(Call{Op: Op_DeleteFramebuffer, Id: id})
}

func (r *Recorder) CreateVertexArray(desc gpu.VertexArrayDesc) (uint32, error) {

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextId()
	r.VertexArrays[id] = desc
	r.record(Call{Op: Op_CreateVertexArray, Id: id, Name: desc.Name, Count: int32(len(desc.Indices))})
	return id, nil
}

func (r *Recorder) DeleteVertexArray(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.VertexArrays, id)
	r.record(Call{Op: Op_DeleteVertexArray, Id: id})
}

func (r *Recorder) BeginPass(fbo uint32, width, height int32, state gpu.PassState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: Op_BeginPass, Id: fbo, Width: width, Height: height, Value: state})
}

func (r *Recorder) UseProgram(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: Op_UseProgram, Id: id})
}

func (r *Recorder) BindTexture(unit int32, kind gpu.TextureKind, samples int32, id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: Op_BindTexture, Id: id, Unit: unit, Samples: samples, Value: kind})
}

func (r *Recorder) setUniform(prog uint32, name string, val any) {

	r.mu.Lock()
	defer r.mu.Unlock()

	progUnifs, ok := r.Uniforms[prog]
	if !ok {
		progUnifs = map[string]any{}
		r.Uniforms[prog] = progUnifs
	}

	progUnifs[name] = val
	r.record(Call{Op: Op_SetUniform, Id: prog, Name: name, Value: val})
}

func (r *Recorder) SetUnifInt32(prog uint32, name string, val int32) {
	r.setUniform(prog, name, val)
}

func (r *Recorder) SetUnifFloat32(prog uint32, name string, val float32) {
	r.setUniform(prog, name, val)
}

func (r *Recorder) SetUnifVec2(prog uint32, name string, val *gglm.Vec2) {
	r.setUniform(prog, name, *val)
}

func (r *Recorder) SetUnifVec3(prog uint32, name string, val *gglm.Vec3) {
	r.setUniform(prog, name, *val)
}

func (r *Recorder) SetUnifVec4(prog uint32, name string, val *gglm.Vec4) {
	r.setUniform(prog, name, *val)
}

func (r *Recorder) SetUnifMat3(prog uint32, name string, val *gglm.Mat3) {
	r.setUniform(prog, name, *val)
}

func (r *Recorder) SetUnifMat4(prog uint32, name string, val *gglm.Mat4) {
	r.setUniform(prog, name, *val)
}

func (r *Recorder) SetUnifMat4Array(prog uint32, name string, vals []gglm.Mat4) {
	cp := make([]gglm.Mat4, len(vals))
	copy(cp, vals)
	r.setUniform(prog, name, cp)
}

func (r *Recorder) DrawElements(vao uint32, sub gpu.SubDraw, instances int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: Op_DrawElements, Id: vao, Count: sub.IndexCount, Instances: instances})
}

func (r *Recorder) DrawArrays(vao uint32, first, count int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: Op_DrawArrays, Id: vao, Count: count})
}

// Count returns how many calls of the given op were recorded
func (r *Recorder) Count(op Op) int {

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for i := 0; i < len(r.Calls); i++ {
		if r.Calls[i].Op == op {
			n++
		}
	}

	return n
}

// Filter returns the recorded calls of the given op, in order
func (r *Recorder) Filter(op Op) []Call {

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Call, 0)
	for i := 0; i < len(r.Calls); i++ {
		if r.Calls[i].Op == op {
			out = append(out, r.Calls[i])
		}
	}

	return out
}

// Reset drops the recorded calls but keeps created objects
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = r.Calls[:0]
}
