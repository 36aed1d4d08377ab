package renderer

import (
	"github.com/bloeys/spot/gpu"
	"github.com/bloeys/spot/logging"
	"github.com/bloeys/spot/materials"
	"github.com/bloeys/spot/meshes"
	"github.com/bloeys/spot/resources"
	"github.com/bloeys/spot/shaders"
)

// targets are the offscreen framebuffers of a frame. When multisampling the
// main pass renders into ms and is resolved into scene, otherwise it renders
// into scene directly. scene is then presented to the default framebuffer.
type targets struct {
	shadowDepth resources.TextureHandle
	shadowFbo   resources.FramebufferHandle

	msColor resources.TextureHandle
	msDepth resources.TextureHandle
	msFbo   resources.FramebufferHandle

	sceneColor resources.TextureHandle
	sceneDepth resources.TextureHandle
	sceneFbo   resources.FramebufferHandle
}

func (t *targets) multisampled() bool {
	return !t.msFbo.IsZero()
}

// mainFbo is the framebuffer the main pass draws into
func (t *targets) mainFbo() resources.FramebufferHandle {

	if t.multisampled() {
		return t.msFbo
	}

	return t.sceneFbo
}

func (r *Renderer) createStaticMeshes() error {

	quad := meshes.FullscreenQuad()
	h, err := r.Store.CreateMesh(&quad)
	if err != nil {
		return err
	}
	r.quad = h

	cube := meshes.SkyboxCube()
	h, err = r.Store.CreateMesh(&cube)
	if err != nil {
		return err
	}
	r.skyCube = h

	return nil
}

func (r *Renderer) createTargets() error {

	s := &r.Settings
	t := &r.targets

	var err error
	createTex := func(name string, format gpu.TextureFormat, width, height, samples int32, clampToBorder bool) resources.TextureHandle {

		if err != nil {
			return resources.TextureHandle{}
		}

		var h resources.TextureHandle
		h, err = r.Store.CreateTexture(gpu.TextureDesc{
			Name:          name,
			Kind:          gpu.TextureKind_2D,
			Format:        format,
			Width:         width,
			Height:        height,
			Samples:       samples,
			ClampToBorder: clampToBorder,
		})

		return h
	}

	createFbo := func(name string, color, depth resources.TextureHandle) resources.FramebufferHandle {

		if err != nil {
			return resources.FramebufferHandle{}
		}

		var h resources.FramebufferHandle
		h, err = r.Store.CreateFramebuffer(name, color, depth)
		return h
	}

	if s.ShadowsEnabled() {
		t.shadowDepth = createTex("shadow-depth", gpu.TextureFormat_Depth24, s.ShadowMapSize, s.ShadowMapSize, 1, true)
		t.shadowFbo = createFbo("shadow", resources.TextureHandle{}, t.shadowDepth)
	}

	if s.MSAASamples > 1 {
		t.msColor = createTex("ms-color", gpu.TextureFormat_RGBA8, s.Width, s.Height, s.MSAASamples, false)
		t.msDepth = createTex("ms-depth", gpu.TextureFormat_Depth24, s.Width, s.Height, s.MSAASamples, false)
		t.msFbo = createFbo("ms", t.msColor, t.msDepth)
	}

	t.sceneColor = createTex("scene-color", gpu.TextureFormat_RGBA8, s.Width, s.Height, 1, false)
	t.sceneDepth = createTex("scene-depth", gpu.TextureFormat_Depth24, s.Width, s.Height, 1, false)
	t.sceneFbo = createFbo("scene", t.sceneColor, t.sceneDepth)

	if err != nil {
		return err
	}

	logging.InfoLog.Printf("Created render targets. Size=%dx%d, MSAA=%d, ShadowMap=%d\n", s.Width, s.Height, s.MSAASamples, s.ShadowMapSize)
	return nil
}

func (r *Renderer) releaseTargets() {

	t := &r.targets
	for _, fb := range []resources.FramebufferHandle{t.shadowFbo, t.msFbo, t.sceneFbo} {
		if !fb.IsZero() {
			r.Store.ReleaseFramebuffer(fb)
		}
	}

	for _, tex := range []resources.TextureHandle{t.shadowDepth, t.msColor, t.msDepth, t.sceneColor, t.sceneDepth} {
		if !tex.IsZero() {
			r.Store.ReleaseTexture(tex)
		}
	}

	r.targets = targets{}
}

// resolve averages the multisampled main pass color into the single sampled
// scene target. It does nothing without multisampling.
func (r *Renderer) resolve(ctx *FrameContext) error {

	if !r.targets.multisampled() {
		return nil
	}

	src, err := r.Store.Texture(r.targets.msColor)
	if err != nil {
		return err
	}

	r.blitMat.SetInt32("samples", src.Samples)
	if err := r.blit(ctx, r.targets.msColor, r.targets.sceneFbo); err != nil {
		return err
	}

	r.Stats.ResolveBlits++
	return nil
}

// present draws the scene target to the default framebuffer
func (r *Renderer) present(ctx *FrameContext) error {

	if err := r.blit(ctx, r.targets.sceneColor, resources.FramebufferHandle{}); err != nil {
		return err
	}

	r.Stats.PresentBlits++
	return nil
}

// blit draws src over the whole of dst with the blit shader. A zero dst is
// the default framebuffer. The source must have been written this frame.
func (r *Renderer) blit(ctx *FrameContext, src resources.TextureHandle, dst resources.FramebufferHandle) error {

	tex, err := r.Store.Texture(src)
	if err != nil {
		return err
	}

	if tex.LastWriteFrame != ctx.Index {
		return &materials.BindingError{
			Material:   r.blitMat.Name,
			MaterialId: r.blitMat.Id,
			Key:        r.blitMat.Key,
			Uniform:    "source",
			Texture:    src.String(),
			Reason:     "blit source was not rendered this frame",
		}
	}

	r.blitMat.SetFeature(shaders.Feature_Multisample, tex.IsMultisampled())
	r.blitMat.SetTexture("source", src)

	prog, err := r.Registry.Resolve(r.blitMat.Key)
	if err != nil {
		return err
	}

	mesh, err := r.Store.Mesh(r.quad)
	if err != nil {
		return err
	}

	fboId, width, height := uint32(0), r.Settings.Width, r.Settings.Height
	var written resources.TextureHandle
	if !dst.IsZero() {

		fb, err := r.Store.Framebuffer(dst)
		if err != nil {
			return err
		}

		fboId, width, height = fb.Id, fb.Width, fb.Height
		written = fb.Color
	}

	r.Dev.BeginPass(fboId, width, height, gpu.PassState{
		ClearColor:   r.Settings.ClearColor,
		DoClearColor: true,
	})

	if err := r.Binder.Bind(r.Dev, r.blitMat, prog, nil); err != nil {
		return err
	}

	for _, sm := range mesh.SubMeshes {
		r.Dev.DrawElements(mesh.Vao, gpu.SubDraw(sm), 1)
	}

	return r.markWritten(ctx.Index, written)
}
