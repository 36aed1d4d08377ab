package resources

import "fmt"

// Handle is a generational index into a store arena. The zero handle is never valid.
type Handle struct {
	index uint32
	gen   uint32
}

func (h Handle) IsZero() bool {
	return h.gen == 0
}

func (h Handle) Index() uint32 {
	return h.index
}

func (h Handle) Generation() uint32 {
	return h.gen
}

func (h Handle) String() string {
	return fmt.Sprintf("%d@%d", h.index, h.gen)
}

type TextureHandle struct{ Handle }
type MeshHandle struct{ Handle }
type FramebufferHandle struct{ Handle }

type slot[T any] struct {
	gen   uint32
	alive bool
	val   T
}

// arena stores values behind generational handles. Removing a value bumps
// the slot generation so any handle still pointing at it goes stale.
type arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

func (a *arena[T]) insert(v T) Handle {

	a.live++

	if len(a.free) > 0 {
		idx := a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]

		s := &a.slots[idx]
		s.alive = true
		s.val = v
		return Handle{index: idx, gen: s.gen}
	}

	a.slots = append(a.slots, slot[T]{gen: 1, alive: true, val: v})
	return Handle{index: uint32(len(a.slots) - 1), gen: 1}
}

// get returns the slot value and the generation the slot is currently at
func (a *arena[T]) get(h Handle) (*T, uint32, bool) {

	if h.IsZero() || int(h.index) >= len(a.slots) {
		return nil, 0, false
	}

	s := &a.slots[h.index]
	if !s.alive || s.gen != h.gen {
		return nil, s.gen, false
	}

	return &s.val, s.gen, true
}

func (a *arena[T]) remove(h Handle) (T, bool) {

	var zero T
	v, _, ok := a.get(h)
	if !ok {
		return zero, false
	}

	out := *v

	s := &a.slots[h.index]
	s.alive = false
	s.val = zero
	s.gen++
	a.free = append(a.free, h.index)
	a.live--

	return out, true
}

func (a *arena[T]) each(f func(h Handle, v *T)) {

	for i := range a.slots {

		s := &a.slots[i]
		if !s.alive {
			continue
		}

		f(Handle{index: uint32(i), gen: s.gen}, &s.val)
	}
}
