package rend3dgl

import (
	"errors"
	"strings"
	_ "unsafe"

	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/logging"
	"github.com/bloeys/spot/shaders"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// @TODO: This noescape magic is to avoid heap allocations done when
// passing vectors or matrices into cgo via set uniform calls.

func glShaderType(t shaders.ShaderType) uint32 {

	switch t {
	case shaders.ShaderType_Vertex:
		return gl.VERTEX_SHADER
	case shaders.ShaderType_Fragment:
		return gl.FRAGMENT_SHADER
	default:
		logging.ErrLog.Panicf("Unknown shader type '%d'\n", t)
		return 0
	}
}

// CreateProgram compiles and links a program. Compile and link failures are
// returned as *shaders.StageError carrying the driver log.
func (r *Rend3DGL) CreateProgram(name, vertSrc, fragSrc string) (uint32, error) {

	vertId, err := compileShader(vertSrc, shaders.ShaderType_Vertex)
	if err != nil {
		return 0, err
	}

	fragId, err := compileShader(fragSrc, shaders.ShaderType_Fragment)
	if err != nil {
		gl.DeleteShader(vertId)
		return 0, err
	}

	progId := gl.CreateProgram()
	if progId == 0 {
		gl.DeleteShader(vertId)
		gl.DeleteShader(fragId)
		return 0, errors.New("failed to create shader program")
	}

	gl.AttachShader(progId, vertId)
	gl.AttachShader(progId, fragId)
	gl.LinkProgram(progId)

	// Shaders are only needed until the program is linked
	gl.DeleteShader(vertId)
	gl.DeleteShader(fragId)

	if err := getProgramLinkErrors(progId); err != nil {
		gl.DeleteProgram(progId)
		return 0, err
	}

	logging.InfoLog.Printf("Compiled shader variant '%s'. Id=%d\n", name, progId)
	r.unifLocs[progId] = map[string]int32{}
	return progId, nil
}

func compileShader(src string, shaderType shaders.ShaderType) (uint32, error) {

	shaderId := gl.CreateShader(glShaderType(shaderType))
	if shaderId == 0 {
		return 0, &shaders.StageError{Stage: shaderType, Log: "failed to create OpenGl shader"}
	}

	//Load shader source and compile
	shaderCStr, shaderFree := gl.Strs(src + "\x00")
	defer shaderFree()
	gl.ShaderSource(shaderId, 1, shaderCStr, nil)

	gl.CompileShader(shaderId)
	if err := getShaderCompileErrors(shaderId, shaderType); err != nil {
		gl.DeleteShader(shaderId)
		return 0, err
	}

	return shaderId, nil
}

func getShaderCompileErrors(shaderId uint32, shaderType shaders.ShaderType) error {

	var compiledSuccessfully int32
	gl.GetShaderiv(shaderId, gl.COMPILE_STATUS, &compiledSuccessfully)
	if compiledSuccessfully == gl.TRUE {
		return nil
	}

	var logLength int32
	gl.GetShaderiv(shaderId, gl.INFO_LOG_LENGTH, &logLength)

	log := gl.Str(strings.Repeat("\x00", int(logLength)))
	gl.GetShaderInfoLog(shaderId, logLength, nil, log)

	return &shaders.StageError{Stage: shaderType, Log: gl.GoStr(log)}
}

func getProgramLinkErrors(progId uint32) error {

	var linkedSuccessfully int32
	gl.GetProgramiv(progId, gl.LINK_STATUS, &linkedSuccessfully)
	if linkedSuccessfully == gl.TRUE {
		return nil
	}

	var logLength int32
	gl.GetProgramiv(progId, gl.INFO_LOG_LENGTH, &logLength)

	log := gl.Str(strings.Repeat("\x00", int(logLength)))
	gl.GetProgramInfoLog(progId, logLength, nil, log)

	return &shaders.StageError{Stage: shaders.ShaderType_Unknown, Log: gl.GoStr(log)}
}

func (r *Rend3DGL) DeleteProgram(id uint32) {

	if id == r.BoundProgId {
		r.BoundProgId = 0
	}

	delete(r.unifLocs, id)
	gl.DeleteProgram(id)
}

// unifLoc returns the cached location of a uniform. Uniforms the driver
// optimized away are -1, which OpenGL ignores on upload.
func (r *Rend3DGL) unifLoc(prog uint32, uniformName string) int32 {

	progLocs, ok := r.unifLocs[prog]
	if !ok {
		progLocs = map[string]int32{}
		r.unifLocs[prog] = progLocs
	}

	loc, ok := progLocs[uniformName]
	if ok {
		return loc
	}

	name := gl.Str(uniformName + "\x00")
	loc = gl.GetUniformLocation(prog, name)
	progLocs[uniformName] = loc
	return loc
}

func (r *Rend3DGL) SetUnifInt32(prog uint32, name string, val int32) {
	gl.ProgramUniform1i(prog, r.unifLoc(prog, name), val)
}

func (r *Rend3DGL) SetUnifFloat32(prog uint32, name string, val float32) {
	gl.ProgramUniform1f(prog, r.unifLoc(prog, name), val)
}

func (r *Rend3DGL) SetUnifVec2(prog uint32, name string, vec2 *gglm.Vec2) {
	internalSetUnifVec2(prog, r.unifLoc(prog, name), vec2)
}

//go:noescape
//go:linkname internalSetUnifVec2 github.com/bloeys/spot/renderer/rend3dgl.SetUnifVec2
func internalSetUnifVec2(shaderProgId uint32, unifLoc int32, vec2 *gglm.Vec2)

func SetUnifVec2(shaderProgId uint32, unifLoc int32, vec2 *gglm.Vec2) {
	gl.ProgramUniform2fv(shaderProgId, unifLoc, 1, &vec2.Data[0])
}

func (r *Rend3DGL) SetUnifVec3(prog uint32, name string, vec3 *gglm.Vec3) {
	internalSetUnifVec3(prog, r.unifLoc(prog, name), vec3)
}

//go:noescape
//go:linkname internalSetUnifVec3 github.com/bloeys/spot/renderer/rend3dgl.SetUnifVec3
func internalSetUnifVec3(shaderProgId uint32, unifLoc int32, vec3 *gglm.Vec3)

func SetUnifVec3(shaderProgId uint32, unifLoc int32, vec3 *gglm.Vec3) {
	gl.ProgramUniform3fv(shaderProgId, unifLoc, 1, &vec3.Data[0])
}

func (r *Rend3DGL) SetUnifVec4(prog uint32, name string, vec4 *gglm.Vec4) {
	internalSetUnifVec4(prog, r.unifLoc(prog, name), vec4)
}

//go:noescape
//go:linkname internalSetUnifVec4 github.com/bloeys/spot/renderer/rend3dgl.SetUnifVec4
func internalSetUnifVec4(shaderProgId uint32, unifLoc int32, vec4 *gglm.Vec4)

func SetUnifVec4(shaderProgId uint32, unifLoc int32, vec4 *gglm.Vec4) {
	gl.ProgramUniform4fv(shaderProgId, unifLoc, 1, &vec4.Data[0])
}

func (r *Rend3DGL) SetUnifMat3(prog uint32, name string, mat3 *gglm.Mat3) {
	internalSetUnifMat3(prog, r.unifLoc(prog, name), mat3)
}

//go:noescape
//go:linkname internalSetUnifMat3 github.com/bloeys/spot/renderer/rend3dgl.SetUnifMat3
func internalSetUnifMat3(shaderProgId uint32, unifLoc int32, mat3 *gglm.Mat3)

func SetUnifMat3(shaderProgId uint32, unifLoc int32, mat3 *gglm.Mat3) {
	gl.ProgramUniformMatrix3fv(shaderProgId, unifLoc, 1, false, &mat3.Data[0][0])
}

func (r *Rend3DGL) SetUnifMat4(prog uint32, name string, mat4 *gglm.Mat4) {
	internalSetUnifMat4(prog, r.unifLoc(prog, name), mat4)
}

//go:noescape
//go:linkname internalSetUnifMat4 github.com/bloeys/spot/renderer/rend3dgl.SetUnifMat4
func internalSetUnifMat4(shaderProgId uint32, unifLoc int32, mat4 *gglm.Mat4)

func SetUnifMat4(shaderProgId uint32, unifLoc int32, mat4 *gglm.Mat4) {
	gl.ProgramUniformMatrix4fv(shaderProgId, unifLoc, 1, false, &mat4.Data[0][0])
}

// SetUnifMat4Array uploads to name[0] onwards
func (r *Rend3DGL) SetUnifMat4Array(prog uint32, name string, mats []gglm.Mat4) {

	if len(mats) == 0 {
		return
	}

	gl.ProgramUniformMatrix4fv(prog, r.unifLoc(prog, name), int32(len(mats)), false, &mats[0].Data[0][0])
}
