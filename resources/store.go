package resources

import (
	"fmt"
	"sync"

	"github.com/bloeys/spot/buffers"
	"github.com/bloeys/spot/gpu"
	"github.com/bloeys/spot/logging"
	"github.com/bloeys/spot/meshes"
)

type Texture struct {
	Id      uint32
	Name    string
	Kind    gpu.TextureKind
	Format  gpu.TextureFormat
	Width   int32
	Height  int32
	Samples int32

	// LastWriteFrame is the index of the last frame a pass rendered into this
	// texture. Zero means never written.
	LastWriteFrame uint64
}

func (t *Texture) IsMultisampled() bool {
	return t.Samples > 1
}

type Framebuffer struct {
	Id      uint32
	Name    string
	Width   int32
	Height  int32
	Samples int32
	Color   TextureHandle
	Depth   TextureHandle
}

// Store owns every gpu object the core renders with and hands out generational
// handles to them. Creation and release take an exclusive lock, lookups a shared one.
type Store struct {
	Dev gpu.Device

	mu       sync.RWMutex
	textures arena[Texture]
	meshes   arena[meshes.Mesh]
	fbos     arena[Framebuffer]
}

func NewStore(dev gpu.Device) *Store {
	return &Store{Dev: dev}
}

func (s *Store) CreateTexture(desc gpu.TextureDesc) (TextureHandle, error) {

	if desc.Samples < 1 {
		desc.Samples = 1
	}

	if err := s.checkTextureDesc(&desc); err != nil {
		return TextureHandle{}, err
	}

	id, err := s.Dev.CreateTexture(desc)
	if err != nil {
		return TextureHandle{}, &ExhaustionError{
			Resource: "texture '" + desc.Name + "'",
			Width:    desc.Width,
			Height:   desc.Height,
			Samples:  desc.Samples,
			Format:   desc.Format,
			Reason:   "device allocation failed",
			Err:      err,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.textures.insert(Texture{
		Id:      id,
		Name:    desc.Name,
		Kind:    desc.Kind,
		Format:  desc.Format,
		Width:   desc.Width,
		Height:  desc.Height,
		Samples: desc.Samples,
	})

	return TextureHandle{h}, nil
}

func (s *Store) checkTextureDesc(desc *gpu.TextureDesc) error {

	if desc.Format == gpu.TextureFormat_Unknown {
		return fmt.Errorf("texture '%s' has an unknown format", desc.Name)
	}

	if desc.Width <= 0 || desc.Height <= 0 {
		return fmt.Errorf("texture '%s' has invalid size %dx%d", desc.Name, desc.Width, desc.Height)
	}

	limits := s.Dev.Limits()
	exhausted := func(reason string) error {
		return &ExhaustionError{
			Resource: "texture '" + desc.Name + "'",
			Width:    desc.Width,
			Height:   desc.Height,
			Samples:  desc.Samples,
			Format:   desc.Format,
			Reason:   reason,
		}
	}

	if desc.Width > limits.MaxTextureSize || desc.Height > limits.MaxTextureSize {
		return exhausted(fmt.Sprintf("exceeds the max texture size of %d", limits.MaxTextureSize))
	}

	if desc.Samples > limits.MaxSamples {
		return exhausted(fmt.Sprintf("exceeds the max sample count of %d", limits.MaxSamples))
	}

	if desc.Samples > 1 && (desc.Kind != gpu.TextureKind_2D || desc.Pixels != nil) {
		return fmt.Errorf("texture '%s' is multisampled but only 2D render targets can be", desc.Name)
	}

	if desc.Pixels == nil {
		return nil
	}

	faces := 1
	if desc.Kind == gpu.TextureKind_Cube {
		faces = 6
		if desc.Width != desc.Height {
			return fmt.Errorf("cubemap '%s' faces must be square but are %dx%d", desc.Name, desc.Width, desc.Height)
		}
	}

	if len(desc.Pixels) != faces {
		return fmt.Errorf("texture '%s' of kind %s expects %d faces of pixel data but got %d", desc.Name, desc.Kind, faces, len(desc.Pixels))
	}

	expected := int(desc.Width) * int(desc.Height) * desc.Format.BytesPerPixel()
	for i := 0; i < len(desc.Pixels); i++ {
		if len(desc.Pixels[i]) != expected {
			return fmt.Errorf("texture '%s' face %d has %d bytes of pixel data but expected %d", desc.Name, i, len(desc.Pixels[i]), expected)
		}
	}

	return nil
}

// Texture returns a copy of the texture behind the handle
func (s *Store) Texture(h TextureHandle) (Texture, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, cur, ok := s.textures.get(h.Handle)
	if !ok {
		return Texture{}, s.stale("texture", h.Handle, cur)
	}

	return *t, nil
}

// MarkWritten records that a pass of the given frame rendered into the texture
func (s *Store) MarkWritten(h TextureHandle, frame uint64) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	t, cur, ok := s.textures.get(h.Handle)
	if !ok {
		return s.stale("texture", h.Handle, cur)
	}

	t.LastWriteFrame = frame
	return nil
}

func (s *Store) ReleaseTexture(h TextureHandle) error {

	s.mu.Lock()
	t, ok := s.textures.remove(h.Handle)
	if !ok {
		_, cur, _ := s.textures.get(h.Handle)
		s.mu.Unlock()
		return s.stale("texture", h.Handle, cur)
	}
	s.mu.Unlock()

	s.Dev.DeleteTexture(t.Id)
	return nil
}

// CreateFramebuffer creates a render target over already created textures.
// Either attachment may be zero but not both.
func (s *Store) CreateFramebuffer(name string, color, depth TextureHandle) (FramebufferHandle, error) {

	if color.IsZero() && depth.IsZero() {
		return FramebufferHandle{}, fmt.Errorf("framebuffer '%s' has no attachments", name)
	}

	desc := gpu.FramebufferDesc{Name: name}
	fb := Framebuffer{Name: name, Color: color, Depth: depth}

	attach := func(h TextureHandle, wantDepth bool) (uint32, error) {

		if h.IsZero() {
			return 0, nil
		}

		t, err := s.Texture(h)
		if err != nil {
			return 0, err
		}

		if t.Format.IsDepth() != wantDepth {
			return 0, fmt.Errorf("framebuffer '%s' attachment '%s' has format %s which doesn't fit its attachment point", name, t.Name, t.Format)
		}

		if desc.Width == 0 {
			desc.Width, desc.Height, desc.Samples = t.Width, t.Height, t.Samples
		} else if desc.Width != t.Width || desc.Height != t.Height || desc.Samples != t.Samples {
			return 0, fmt.Errorf("framebuffer '%s' attachments differ in size or sample count", name)
		}

		return t.Id, nil
	}

	var err error
	if desc.ColorTex, err = attach(color, false); err != nil {
		return FramebufferHandle{}, err
	}

	if desc.DepthTex, err = attach(depth, true); err != nil {
		return FramebufferHandle{}, err
	}

	id, err := s.Dev.CreateFramebuffer(desc)
	if err != nil {
		return FramebufferHandle{}, &ExhaustionError{
			Resource: "framebuffer '" + name + "'",
			Width:    desc.Width,
			Height:   desc.Height,
			Samples:  desc.Samples,
			Reason:   "device failed to create the framebuffer",
			Err:      err,
		}
	}

	fb.Id = id
	fb.Width = desc.Width
	fb.Height = desc.Height
	fb.Samples = desc.Samples

	s.mu.Lock()
	defer s.mu.Unlock()

	return FramebufferHandle{s.fbos.insert(fb)}, nil
}

func (s *Store) Framebuffer(h FramebufferHandle) (Framebuffer, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	fb, cur, ok := s.fbos.get(h.Handle)
	if !ok {
		return Framebuffer{}, s.stale("framebuffer", h.Handle, cur)
	}

	return *fb, nil
}

// ReleaseFramebuffer deletes the framebuffer but not its attachments
func (s *Store) ReleaseFramebuffer(h FramebufferHandle) error {

	s.mu.Lock()
	fb, ok := s.fbos.remove(h.Handle)
	if !ok {
		_, cur, _ := s.fbos.get(h.Handle)
		s.mu.Unlock()
		return s.stale("framebuffer", h.Handle, cur)
	}
	s.mu.Unlock()

	s.Dev.DeleteFramebuffer(fb.Id)
	return nil
}

func (s *Store) CreateMesh(data *meshes.MeshData) (MeshHandle, error) {

	mesh, err := meshes.NewMesh(data)
	if err != nil {
		return MeshHandle{}, err
	}

	vao, err := s.Dev.CreateVertexArray(gpu.VertexArrayDesc{
		Name:     data.Name,
		Layout:   data.Layout,
		Usage:    buffers.BufUsage_Static_Draw,
		Vertices: data.Vertices,
		Indices:  data.Indices,
	})
	if err != nil {
		return MeshHandle{}, fmt.Errorf("failed to upload mesh '%s': %w", data.Name, err)
	}

	mesh.Vao = vao

	s.mu.Lock()
	defer s.mu.Unlock()

	return MeshHandle{s.meshes.insert(mesh)}, nil
}

// Mesh returns the mesh behind the handle. The returned mesh is shared and must not be modified.
func (s *Store) Mesh(h MeshHandle) (*meshes.Mesh, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, cur, ok := s.meshes.get(h.Handle)
	if !ok {
		return nil, s.stale("mesh", h.Handle, cur)
	}

	return m, nil
}

func (s *Store) ReleaseMesh(h MeshHandle) error {

	s.mu.Lock()
	m, ok := s.meshes.remove(h.Handle)
	if !ok {
		_, cur, _ := s.meshes.get(h.Handle)
		s.mu.Unlock()
		return s.stale("mesh", h.Handle, cur)
	}
	s.mu.Unlock()

	s.Dev.DeleteVertexArray(m.Vao)
	return nil
}

type Counts struct {
	Textures     int
	Meshes       int
	Framebuffers int
}

func (s *Store) Counts() Counts {

	s.mu.RLock()
	defer s.mu.RUnlock()

	return Counts{
		Textures:     s.textures.live,
		Meshes:       s.meshes.live,
		Framebuffers: s.fbos.live,
	}
}

// Destroy releases every object still alive in the store, framebuffers first
func (s *Store) Destroy() {

	s.mu.Lock()
	defer s.mu.Unlock()

	counts := Counts{Textures: s.textures.live, Meshes: s.meshes.live, Framebuffers: s.fbos.live}

	// Removing bumps generations so handles from before the destroy stay stale
	s.fbos.each(func(h Handle, fb *Framebuffer) {
		s.Dev.DeleteFramebuffer(fb.Id)
		s.fbos.remove(h)
	})

	s.textures.each(func(h Handle, t *Texture) {
		s.Dev.DeleteTexture(t.Id)
		s.textures.remove(h)
	})

	s.meshes.each(func(h Handle, m *meshes.Mesh) {
		s.Dev.DeleteVertexArray(m.Vao)
		s.meshes.remove(h)
	})

	logging.InfoLog.Printf("Released resource store. Framebuffers=%d, Textures=%d, Meshes=%d\n", counts.Framebuffers, counts.Textures, counts.Meshes)
}

func (s *Store) stale(kind string, h Handle, current uint32) error {
	return &StaleHandleError{Kind: kind, Index: h.index, Generation: h.gen, Current: current}
}
