package resources

import (
	"fmt"

	"github.com/bloeys/spot/gpu"
)

// StaleHandleError is returned when a handle refers to a resource that was
// released, or the slot was reused by a newer resource.
type StaleHandleError struct {
	Kind       string
	Index      uint32
	Generation uint32

	// Current is the generation the slot is at now, zero if the slot never existed
	Current uint32
}

func (e *StaleHandleError) Error() string {

	if e.Current == 0 {
		return fmt.Sprintf("%s handle %d@%d does not refer to any resource", e.Kind, e.Index, e.Generation)
	}

	return fmt.Sprintf("%s handle %d@%d is stale, slot is now at generation %d", e.Kind, e.Index, e.Generation, e.Current)
}

// ExhaustionError is returned when a resource can't be created within the
// device limits or the device ran out of memory.
type ExhaustionError struct {
	Resource string
	Width    int32
	Height   int32
	Samples  int32
	Format   gpu.TextureFormat
	Reason   string
	Err      error
}

func (e *ExhaustionError) Error() string {

	msg := fmt.Sprintf("failed to create %s (%dx%d, %d samples, format %s): %s", e.Resource, e.Width, e.Height, e.Samples, e.Format, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ExhaustionError) Unwrap() error {
	return e.Err
}
