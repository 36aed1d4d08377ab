package shaders

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"
)

const (
	// MaxInstances is the size of the per instance transform array of
	// instanced variants. Larger instance sets are drawn in chunks.
	MaxInstances = 64

	maxIncludeDepth = 8

	headerOrigin = "<header>"
)

type slotRule struct {
	feature Features
	variant string
}

// slotRules pick the fragment of an include slot from the key features. The
// first matching rule wins, and with no match the slot uses '<slot>.glsl'.
var slotRules = map[string][]slotRule{
	"shadow": {
		{feature: Feature_ShadowPCF, variant: "pcf"},
		{feature: Feature_Shadow, variant: "test"},
	},
	"normal":             {{feature: Feature_NormalMap, variant: "map"}},
	"base_color":         {{feature: Feature_BaseColorMap, variant: "map"}},
	"metallic_roughness": {{feature: Feature_MetallicRoughnessMap, variant: "map"}},
	"occlusion":          {{feature: Feature_OcclusionMap, variant: "map"}},
	"transform":          {{feature: Feature_Instanced, variant: "instanced"}},
	"source":             {{feature: Feature_Multisample, variant: "ms"}},
}

// Source is a fully composed variant, ready to hand to a compiler
type Source struct {
	Key  Key
	Vert string
	Frag string

	// Fragments lists every file that went into the source, template first
	Fragments []string

	vertOrigins []string
	fragOrigins []string
}

// Origin returns the file that produced the given 1-based line of a stage
func (s *Source) Origin(stage ShaderType, line int) string {

	origins := s.vertOrigins
	if stage == ShaderType_Fragment {
		origins = s.fragOrigins
	}

	if line < 1 || line > len(origins) {
		return ""
	}

	return origins[line-1]
}

// Composer builds variant sources out of a template per shading family and a
// library of include fragments.
//
// Layout of Src:
//   - '<base>.glsl' is a combined template split by '//shader:' markers
//   - 'include/<slot>.glsl' is the default fragment of a slot
//   - 'include/<slot>-<variant>.glsl' are the alternatives
//
// Templates and fragments may use '#include <slot>' and '#ifdef'/'#ifndef'/
// '#else'/'#endif' on feature names. Conditionals are resolved here so the
// composed source only holds what the variant uses.
type Composer struct {
	Src fs.FS

	// GLSLVersion goes on the '#version' line, like '330 core' or '320 es'
	GLSLVersion string
}

// IncludeFile returns the fragment file the key selects for a slot
func IncludeFile(key Key, slot string) string {

	variant, ok := key.Include(slot)
	if !ok {
		for _, r := range slotRules[slot] {
			if key.Features.Has(r.feature) {
				variant = r.variant
				break
			}
		}
	}

	if variant == "" {
		return slot + ".glsl"
	}

	return slot + "-" + variant + ".glsl"
}

func (c *Composer) Compose(key Key) (Source, error) {

	templateFile := key.Base + ".glsl"
	combined, err := fs.ReadFile(c.Src, templateFile)
	if err != nil {
		return Source{}, &CompilationError{Key: key, Fragment: templateFile, Diagnostic: "shader template not found: " + err.Error()}
	}

	vert, frag, err := SplitCombined(combined)
	if err != nil {
		return Source{}, &CompilationError{Key: key, Fragment: templateFile, Diagnostic: err.Error()}
	}

	out := Source{Key: key, Fragments: []string{templateFile}}
	seen := map[string]bool{templateFile: true}

	for _, stage := range [2]ShaderType{ShaderType_Vertex, ShaderType_Fragment} {

		st := &composeState{
			c:        c,
			key:      key,
			stage:    stage,
			defines:  defines(key),
			included: map[string]bool{},
		}
		st.header()

		src := vert
		if stage == ShaderType_Fragment {
			src = frag
		}

		if err := st.expand(templateFile, string(src), 0); err != nil {
			return Source{}, err
		}

		for _, f := range st.files {
			if !seen[f] {
				seen[f] = true
				out.Fragments = append(out.Fragments, f)
			}
		}

		if stage == ShaderType_Vertex {
			out.Vert = st.out.String()
			out.vertOrigins = st.origins
		} else {
			out.Frag = st.out.String()
			out.fragOrigins = st.origins
		}
	}

	return out, nil
}

func defines(key Key) map[string]string {

	d := map[string]string{
		"MAX_INSTANCES": strconv.Itoa(MaxInstances),
	}

	for _, n := range key.Features.Names() {
		d[n] = ""
	}

	return d
}

type composeState struct {
	c        *Composer
	key      Key
	stage    ShaderType
	defines  map[string]string
	included map[string]bool
	files    []string

	out     strings.Builder
	origins []string
}

func (st *composeState) emit(line, origin string) {
	st.out.WriteString(line)
	st.out.WriteByte('\n')
	st.origins = append(st.origins, origin)
}

func (st *composeState) header() {

	st.emit("#version "+st.c.GLSLVersion, headerOrigin)
	if strings.HasSuffix(st.c.GLSLVersion, " es") {
		st.emit("precision highp float;", headerOrigin)
		st.emit("precision highp int;", headerOrigin)
		st.emit("precision highp sampler2DMS;", headerOrigin)
	}

	names := make([]string, 0, len(st.defines))
	for n := range st.defines {
		names = append(names, n)
	}
	slices.Sort(names)

	for _, n := range names {
		if v := st.defines[n]; v != "" {
			st.emit("#define "+n+" "+v, headerOrigin)
		} else {
			st.emit("#define "+n, headerOrigin)
		}
	}
}

func (st *composeState) fail(file string, line int, msg string) error {
	return &CompilationError{
		Key:        st.key,
		Fragment:   file,
		Stage:      st.stage,
		Diagnostic: fmt.Sprintf("line %d: %s", line, msg),
	}
}

type condFrame struct {
	parentActive bool
	taken        bool
	seenElse     bool
}

func (st *composeState) expand(file, src string, depth int) error {

	if depth > maxIncludeDepth {
		return &CompilationError{Key: st.key, Fragment: file, Stage: st.stage, Diagnostic: fmt.Sprintf("includes nested deeper than %d", maxIncludeDepth)}
	}

	stack := make([]condFrame, 0, 4)
	active := true

	lines := strings.Split(src, "\n")
	for i, line := range lines {

		lineNum := i + 1
		dir, arg := directive(line)

		switch dir {
		case "ifdef", "ifndef":

			if arg == "" {
				return st.fail(file, lineNum, "#"+dir+" without a name")
			}

			_, defined := st.defines[arg]
			taken := defined == (dir == "ifdef")

			stack = append(stack, condFrame{parentActive: active, taken: taken})
			active = active && taken
			continue

		case "else":

			if len(stack) == 0 {
				return st.fail(file, lineNum, "#else without #ifdef")
			}

			top := &stack[len(stack)-1]
			if top.seenElse {
				return st.fail(file, lineNum, "duplicate #else")
			}

			top.seenElse = true
			active = top.parentActive && !top.taken
			continue

		case "endif":

			if len(stack) == 0 {
				return st.fail(file, lineNum, "#endif without #ifdef")
			}

			active = stack[len(stack)-1].parentActive
			stack = stack[:len(stack)-1]
			continue
		}

		if !active {
			continue
		}

		if dir == "include" {

			if arg == "" {
				return st.fail(file, lineNum, "#include without a slot name")
			}

			if err := st.include(arg, depth); err != nil {
				return err
			}

			continue
		}

		// Trailing empty element of a file ending in a newline
		if i == len(lines)-1 && line == "" {
			continue
		}

		st.emit(line, file)
	}

	if len(stack) > 0 {
		return st.fail(file, len(lines), "unterminated #ifdef")
	}

	return nil
}

func (st *composeState) include(slot string, depth int) error {

	name := IncludeFile(st.key, slot)

	// A fragment is only pasted once per stage
	if st.included[name] {
		return nil
	}
	st.included[name] = true

	src, err := fs.ReadFile(st.c.Src, "include/"+name)
	if err != nil {

		diag := "include fragment could not be read: " + err.Error()
		if errors.Is(err, fs.ErrNotExist) {
			diag = "include fragment for slot '" + slot + "' not found"
		}

		return &CompilationError{Key: st.key, Fragment: name, Stage: st.stage, Diagnostic: diag}
	}

	st.files = append(st.files, name)
	return st.expand(name, string(src), depth+1)
}

// directive returns the name and argument of a preprocessor line handled by
// the composer. Other lines, including other directives, return an empty name.
func directive(line string) (name, arg string) {

	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return "", ""
	}

	fields := strings.Fields(strings.TrimSpace(trimmed[1:]))
	if len(fields) == 0 {
		return "", ""
	}

	switch fields[0] {
	case "ifdef", "ifndef", "include":
		if len(fields) > 1 {
			arg = strings.Trim(fields[1], "\"<>")
		}
		return fields[0], arg
	case "else", "endif":
		return fields[0], ""
	default:
		return "", ""
	}
}
