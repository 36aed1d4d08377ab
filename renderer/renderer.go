package renderer

import (
	"errors"
	"fmt"

	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/camera"
	"github.com/bloeys/spot/gpu"
	"github.com/bloeys/spot/logging"
	"github.com/bloeys/spot/materials"
	"github.com/bloeys/spot/resources"
	"github.com/bloeys/spot/scene"
	"github.com/bloeys/spot/shaders"
)

type State uint8

const (
	State_Idle State = iota
	State_ShadowPass
	State_MainPass
)

func (s State) String() string {

	switch s {
	case State_Idle:
		return "Idle"
	case State_ShadowPass:
		return "ShadowPass"
	case State_MainPass:
		return "MainPass"
	default:
		return "Unknown"
	}
}

var ErrFrameInProgress = errors.New("renderer: a frame is already being rendered")

// FrameContext is everything a frame needs that changes from frame to frame.
// It is passed to Render instead of being kept as renderer state.
type FrameContext struct {
	// Index must grow by at least one every frame and never be zero
	Index  uint64
	Time   float32
	Dt     float32
	Camera *camera.Camera
}

type Settings struct {
	Width  int32
	Height int32

	// ShadowMapSize of zero disables the shadow pass
	ShadowMapSize int32
	MSAASamples   int32
	AmbientWeight float32
	ClearColor    gglm.Vec4

	// The light used when the scene has no light node
	LightColor gglm.Vec3
	LightDir   gglm.Vec3
}

func (s *Settings) ShadowsEnabled() bool {
	return s.ShadowMapSize > 0
}

// Stats are the counts of the last rendered frame
type Stats struct {
	ShadowDraws    int
	MainDraws      int
	InstancedDraws int
	ResolveBlits   int
	PresentBlits   int
}

// Renderer sequences the passes of a frame. Each frame goes
// Idle -> ShadowPass -> MainPass -> Idle, and the main pass only starts after
// every shadow draw has been issued.
type Renderer struct {
	Dev       gpu.Device
	Store     *resources.Store
	Registry  *shaders.Registry
	Materials *materials.Table
	Binder    materials.Binder
	Settings  Settings

	Stats Stats

	state      State
	lightSpace gglm.Mat4
	targets    targets

	quad     resources.MeshHandle
	skyCube  resources.MeshHandle
	skybox   resources.TextureHandle
	depthMat *materials.Material
	skyMat   *materials.Material
	blitMat  *materials.Material
}

func New(dev gpu.Device, store *resources.Store, reg *shaders.Registry, mats *materials.Table, settings Settings) (*Renderer, error) {

	if settings.MSAASamples < 1 {
		settings.MSAASamples = 1
	}

	r := &Renderer{
		Dev:        dev,
		Store:      store,
		Registry:   reg,
		Materials:  mats,
		Binder:     materials.Binder{Store: store},
		Settings:   settings,
		lightSpace: gglm.NewMat4Diag(1),
		depthMat:   materials.NewMaterial("shadow-depth", shaders.NewKey(shaders.Base_Depth)),
		skyMat:     materials.NewMaterial("skybox", shaders.NewKey(shaders.Base_Skybox)),
		blitMat:    materials.NewMaterial("blit", shaders.NewKey(shaders.Base_Blit)),
	}

	if err := r.createStaticMeshes(); err != nil {
		return nil, err
	}

	if err := r.createTargets(); err != nil {
		r.Destroy()
		return nil, err
	}

	return r, nil
}

func (r *Renderer) State() State {
	return r.state
}

// LightSpace is the light view-projection of the last shadow pass
func (r *Renderer) LightSpace() gglm.Mat4 {
	return r.lightSpace
}

// ShadowMap is the depth texture the shadow pass renders into. It is zero
// when shadows are disabled.
func (r *Renderer) ShadowMap() resources.TextureHandle {
	return r.targets.shadowDepth
}

func (r *Renderer) Skybox() resources.TextureHandle {
	return r.skybox
}

// SetSkybox sets the cubemap drawn behind the scene. A zero handle disables it.
func (r *Renderer) SetSkybox(h resources.TextureHandle) {
	r.skybox = h
	r.skyMat.SetTexture("skybox", h)
}

// Resize recreates the screen sized render targets
func (r *Renderer) Resize(width, height int32) error {

	if r.state != State_Idle {
		return ErrFrameInProgress
	}

	if width == r.Settings.Width && height == r.Settings.Height {
		return nil
	}

	r.releaseTargets()
	r.Settings.Width = width
	r.Settings.Height = height
	return r.createTargets()
}

// Render draws one frame of the scene. The scene must already be updated for
// this frame. Any error is fatal for the frame and leaves the renderer Idle.
func (r *Renderer) Render(sc *scene.Scene, ctx *FrameContext) error {

	if r.state != State_Idle {
		return ErrFrameInProgress
	}

	if ctx.Camera == nil {
		return fmt.Errorf("renderer: frame %d has no camera", ctx.Index)
	}

	if ctx.Index == 0 {
		return fmt.Errorf("renderer: frame index must not be zero")
	}

	r.Stats = Stats{}
	defer func() { r.state = State_Idle }()

	light := r.light(sc)

	r.state = State_ShadowPass
	if r.Settings.ShadowsEnabled() {
		if err := r.shadowPass(sc, ctx, &light); err != nil {
			return err
		}
	}

	r.state = State_MainPass
	if err := r.mainPass(sc, ctx, &light); err != nil {
		return err
	}

	if err := r.resolve(ctx); err != nil {
		return err
	}

	return r.present(ctx)
}

// light returns the first light of the scene or the configured one
func (r *Renderer) light(sc *scene.Scene) scene.Light {

	lights := sc.Lights()
	if len(lights) > 0 {
		if len(lights) > 1 {
			logging.WarnLog.Printf("Scene has %d lights but only the first directional light is used\n", len(lights))
		}
		return lights[0]
	}

	dir := r.Settings.LightDir
	dir.Normalize()
	return scene.Light{Color: r.Settings.LightColor, Dir: dir}
}

func (r *Renderer) mainPass(sc *scene.Scene, ctx *FrameContext, light *scene.Light) error {

	haveShadows := r.Settings.ShadowsEnabled()
	if haveShadows {

		shadowTex, err := r.Store.Texture(r.targets.shadowDepth)
		if err != nil {
			return err
		}

		if shadowTex.LastWriteFrame != ctx.Index {
			return fmt.Errorf("renderer: main pass of frame %d would sample a shadow map last written in frame %d", ctx.Index, shadowTex.LastWriteFrame)
		}
	}

	fb, err := r.Store.Framebuffer(r.targets.mainFbo())
	if err != nil {
		return err
	}

	r.Dev.BeginPass(fb.Id, fb.Width, fb.Height, gpu.PassState{
		ClearColor:    r.Settings.ClearColor,
		DoClearColor:  true,
		DoClearDepth:  true,
		DepthTest:     true,
		CullBackFaces: true,
		Blend:         true,
	})

	cam := ctx.Camera
	implicit := materials.Implicit{
		"view":           materials.Mat4(cam.ViewMat),
		"proj":           materials.Mat4(cam.ProjMat),
		"cameraPosition": materials.Vec3(cam.Pos),
		"billboard":      materials.Mat3(cam.Billboard()),
		"lightSpace":     materials.Mat4(r.lightSpace),
		"lightColor":     materials.Vec3(light.Color),
		"lightDirection": materials.Vec3(light.Dir),
		"ambientWeight":  materials.Float(r.Settings.AmbientWeight),
		"time":           materials.Float(ctx.Time),
	}

	if haveShadows {
		implicit["shadowMap"] = materials.Texture(r.targets.shadowDepth)
	}

	for item := range sc.DrawItems(nil) {

		mat, err := r.Materials.Get(item.Material)
		if err != nil {
			return err
		}

		key := mat.Key
		if item.IsInstanced() {
			key = key.With(shaders.Feature_Instanced)
		}

		key, ok := key.ForShadows(haveShadows)
		if !ok {
			return &materials.BindingError{
				Material:   mat.Name,
				MaterialId: mat.Id,
				Key:        key,
				Uniform:    "shadowMap",
				Reason:     "shading family requires a shadow map but shadows are disabled",
			}
		}

		draws, err := r.drawItem(&item, mat, key, implicit)
		if err != nil {
			return err
		}

		r.Stats.MainDraws += draws
	}

	if err := r.drawSkybox(implicit); err != nil {
		return err
	}

	return r.markWritten(ctx.Index, fb.Color, fb.Depth)
}

// drawItem binds and draws every sub mesh of one item, returning the number
// of draw calls issued. Instanced items upload at most MaxInstances
// transforms per draw.
func (r *Renderer) drawItem(item *scene.DrawItem, mat *materials.Material, key shaders.Key, implicit materials.Implicit) (int, error) {

	prog, err := r.Registry.Resolve(key)
	if err != nil {
		return 0, err
	}

	mesh, err := r.Store.Mesh(item.Mesh)
	if err != nil {
		return 0, &materials.BindingError{
			Material:   mat.Name,
			MaterialId: mat.Id,
			Key:        key,
			Reason:     "draw item mesh is not in the resource store",
			Err:        err,
		}
	}

	if err := materials.CheckLayout(mesh, mat, prog); err != nil {
		return 0, err
	}

	implicit["model"] = materials.Mat4(item.World)
	implicit["normalMatrix"] = materials.Mat3(scene.NormalMatrix(&item.World))

	if !key.Features.Has(shaders.Feature_Instanced) {

		if err := r.Binder.Bind(r.Dev, mat, prog, implicit); err != nil {
			return 0, err
		}

		for _, sm := range mesh.SubMeshes {
			r.Dev.DrawElements(mesh.Vao, gpu.SubDraw(sm), 1)
		}

		return len(mesh.SubMeshes), nil
	}

	instances := item.Instances
	if len(instances) == 0 {
		instances = []gglm.Mat4{gglm.NewMat4Diag(1)}
	}

	draws := 0
	for start := 0; start < len(instances); start += shaders.MaxInstances {

		chunk := instances[start:min(start+shaders.MaxInstances, len(instances))]
		implicit["instances"] = materials.Mat4Array(chunk)

		if err := r.Binder.Bind(r.Dev, mat, prog, implicit); err != nil {
			return draws, err
		}

		for _, sm := range mesh.SubMeshes {
			r.Dev.DrawElements(mesh.Vao, gpu.SubDraw(sm), int32(len(chunk)))
			draws++
		}

		r.Stats.InstancedDraws++
	}

	return draws, nil
}

func (r *Renderer) drawSkybox(implicit materials.Implicit) error {

	if r.skybox.IsZero() {
		return nil
	}

	prog, err := r.Registry.Resolve(r.skyMat.Key)
	if err != nil {
		return err
	}

	mesh, err := r.Store.Mesh(r.skyCube)
	if err != nil {
		return err
	}

	fb, err := r.Store.Framebuffer(r.targets.mainFbo())
	if err != nil {
		return err
	}

	// Same target, no clear. The cube is pushed to the far plane so a depth
	// of exactly 1 must still pass.
	r.Dev.BeginPass(fb.Id, fb.Width, fb.Height, gpu.PassState{
		DepthTest:   true,
		DepthLessEq: true,
	})

	if err := r.Binder.Bind(r.Dev, r.skyMat, prog, implicit); err != nil {
		return err
	}

	for _, sm := range mesh.SubMeshes {
		r.Dev.DrawElements(mesh.Vao, gpu.SubDraw(sm), 1)
	}

	return nil
}

func (r *Renderer) markWritten(frame uint64, hs ...resources.TextureHandle) error {

	for _, h := range hs {

		if h.IsZero() {
			continue
		}

		if err := r.Store.MarkWritten(h, frame); err != nil {
			return err
		}
	}

	return nil
}

// Destroy releases the render targets and the meshes the renderer owns
func (r *Renderer) Destroy() {

	r.releaseTargets()

	if !r.quad.IsZero() {
		r.Store.ReleaseMesh(r.quad)
		r.quad = resources.MeshHandle{}
	}

	if !r.skyCube.IsZero() {
		r.Store.ReleaseMesh(r.skyCube)
		r.skyCube = resources.MeshHandle{}
	}
}
