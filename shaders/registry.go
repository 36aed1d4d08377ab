package shaders

import (
	"embed"
	"errors"
	"io/fs"
	"regexp"
	"strconv"
	"sync"

	"github.com/bloeys/spot/logging"
)

//go:embed glsl
var glslFiles embed.FS

// DefaultSources returns the built in templates and include fragments
func DefaultSources() fs.FS {

	sub, err := fs.Sub(glslFiles, "glsl")
	if err != nil {
		logging.ErrLog.Panicln("Failed to open embedded shader sources. Err: ", err)
	}

	return sub
}

// Compiler turns composed source into a gpu program. gpu.Device satisfies it.
type Compiler interface {
	CreateProgram(name, vertSrc, fragSrc string) (uint32, error)
	DeleteProgram(id uint32)
}

// Program is a compiled variant along with what its source declares
type Program struct {
	Id       uint32
	Key      Key
	Uniforms []UniformDecl
	Attribs  []AttribDecl
	Source   Source
}

func (p *Program) Uniform(name string) (UniformDecl, bool) {

	for i := 0; i < len(p.Uniforms); i++ {
		if p.Uniforms[i].Name == name {
			return p.Uniforms[i], true
		}
	}

	return UniformDecl{}, false
}

// Registry compiles variants on first use and caches them by key. It owns the
// programs it creates until Release is called.
type Registry struct {
	Compiler Compiler
	Composer Composer

	mu       sync.Mutex
	programs map[Key]*Program

	// Failed keys stay failed, resolving them again returns the same error
	failed map[Key]error
}

func NewRegistry(c Compiler, src fs.FS, glslVersion string) *Registry {
	return &Registry{
		Compiler: c,
		Composer: Composer{Src: src, GLSLVersion: glslVersion},
		programs: map[Key]*Program{},
		failed:   map[Key]error{},
	}
}

// Resolve returns the program of a key, compiling it if this is the first
// request for that key. Equal keys always return the same *Program.
func (r *Registry) Resolve(key Key) (*Program, error) {

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.programs[key]; ok {
		return p, nil
	}

	if err, ok := r.failed[key]; ok {
		return nil, err
	}

	p, err := r.build(key)
	if err != nil {
		r.failed[key] = err
		logging.ErrLog.Println(err)
		return nil, err
	}

	r.programs[key] = p
	logging.InfoLog.Printf("Compiled shader variant %s (program %d, %d uniforms)\n", key, p.Id, len(p.Uniforms))
	return p, nil
}

func (r *Registry) build(key Key) (*Program, error) {

	src, err := r.Composer.Compose(key)
	if err != nil {
		return nil, err
	}

	vertUnifs, err := reflectUniforms(src.Vert)
	if err != nil {
		return nil, &CompilationError{Key: key, Fragment: src.Fragments[0], Stage: ShaderType_Vertex, Diagnostic: err.Error()}
	}

	fragUnifs, err := reflectUniforms(src.Frag)
	if err != nil {
		return nil, &CompilationError{Key: key, Fragment: src.Fragments[0], Stage: ShaderType_Fragment, Diagnostic: err.Error()}
	}

	unifs, err := mergeUniforms(vertUnifs, fragUnifs)
	if err != nil {
		return nil, &CompilationError{Key: key, Fragment: src.Fragments[0], Diagnostic: err.Error()}
	}

	id, err := r.Compiler.CreateProgram(key.String(), src.Vert, src.Frag)
	if err != nil {
		return nil, compilerError(&src, err)
	}

	return &Program{
		Id:       id,
		Key:      key,
		Uniforms: unifs,
		Attribs:  reflectAttribs(src.Vert),
		Source:   src,
	}, nil
}

// Matches the line number in the common driver log formats,
// like '0:12(5): error', '0(12) : error' and 'ERROR: 0:12:'
var diagLineRgx = regexp.MustCompile(`\b0[:(](\d+)`)

// compilerError traces a compiler diagnostic back to the fragment that
// produced the failing line.
func compilerError(src *Source, err error) error {

	ce := &CompilationError{
		Key:        src.Key,
		Fragment:   src.Fragments[0],
		Diagnostic: err.Error(),
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		return ce
	}

	ce.Stage = stageErr.Stage
	ce.Diagnostic = stageErr.Log
	if stageErr.Stage == ShaderType_Unknown {
		return ce
	}

	m := diagLineRgx.FindStringSubmatch(stageErr.Log)
	if m == nil {
		return ce
	}

	line, _ := strconv.Atoi(m[1])
	if origin := src.Origin(stageErr.Stage, line); origin != "" && origin != headerOrigin {
		ce.Fragment = origin
	}

	return ce
}

// Compose returns the source a key composes to without compiling it
func (r *Registry) Compose(key Key) (Source, error) {
	return r.Composer.Compose(key)
}

// Len is the number of compiled programs
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.programs)
}

// Release deletes every program the registry compiled
func (r *Registry) Release() {

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.programs {
		r.Compiler.DeleteProgram(p.Id)
	}

	logging.InfoLog.Printf("Released %d shader variants\n", len(r.programs))
	r.programs = map[Key]*Program{}
	r.failed = map[Key]error{}
}
