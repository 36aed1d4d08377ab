package shaders

import "fmt"

// CompilationError is returned when a variant fails to compose, compile or
// link. It is fatal for that key: the registry never falls back to another variant.
type CompilationError struct {
	Key Key

	// Fragment is the template or include file the error was traced to
	Fragment   string
	Stage      ShaderType
	Diagnostic string
}

func (e *CompilationError) Error() string {

	if e.Stage == ShaderType_Unknown {
		return fmt.Sprintf("shader variant %s failed to build in '%s': %s", e.Key, e.Fragment, e.Diagnostic)
	}

	return fmt.Sprintf("shader variant %s failed to build in '%s' (%s stage): %s", e.Key, e.Fragment, e.Stage, e.Diagnostic)
}

// StageError is what compilers return when a single stage fails to compile.
// Link failures use ShaderType_Unknown.
type StageError struct {
	Stage ShaderType
	Log   string
}

func (e *StageError) Error() string {

	if e.Stage == ShaderType_Unknown {
		return "program link failed: " + e.Log
	}

	return e.Stage.String() + " shader compilation failed: " + e.Log
}
