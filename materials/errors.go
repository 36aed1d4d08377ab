package materials

import (
	"fmt"
	"strings"

	"github.com/bloeys/spot/shaders"
)

// BindingError is returned when a draw can't be fully bound: a uniform has no
// value, a value has the wrong type, or a referenced resource is missing.
type BindingError struct {
	Material   string
	MaterialId uint32
	Key        shaders.Key
	Uniform    string

	// Texture is the handle of the offending texture, if any
	Texture string
	Reason  string
	Err     error
}

func (e *BindingError) Error() string {

	b := strings.Builder{}
	fmt.Fprintf(&b, "failed to bind material '%s' (id=%d) to shader variant %s", e.Material, e.MaterialId, e.Key)

	if e.Uniform != "" {
		fmt.Fprintf(&b, ", uniform '%s'", e.Uniform)
	}

	if e.Texture != "" {
		fmt.Fprintf(&b, ", texture %s", e.Texture)
	}

	b.WriteString(": ")
	b.WriteString(e.Reason)

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

func (e *BindingError) Unwrap() error {
	return e.Err
}
