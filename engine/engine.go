package engine

import (
	"fmt"

	"github.com/bloeys/spot/camera"
	"github.com/bloeys/spot/config"
	"github.com/bloeys/spot/gpu"
	"github.com/bloeys/spot/logging"
	"github.com/bloeys/spot/materials"
	"github.com/bloeys/spot/renderer"
	"github.com/bloeys/spot/resources"
	"github.com/bloeys/spot/shaders"
)

// Engine ties the rendering core together and drives frames
type Engine struct {
	Config    config.Config
	Dev       gpu.Device
	Store     *resources.Store
	Registry  *shaders.Registry
	Materials *materials.Table
	Renderer  *renderer.Renderer

	frame uint64
	time  float32
}

// New creates the engine and its render targets. dev must stay usable until
// Destroy returns.
func New(dev gpu.Device, cfg config.Config) (*Engine, error) {

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	e := &Engine{
		Config:    cfg,
		Dev:       dev,
		Store:     resources.NewStore(dev),
		Registry:  shaders.NewRegistry(dev, shaders.DefaultSources(), cfg.GLSLVersion),
		Materials: materials.NewTable(),
	}

	settings := renderer.Settings{
		Width:         cfg.Width,
		Height:        cfg.Height,
		MSAASamples:   cfg.MSAASamples,
		AmbientWeight: cfg.AmbientWeight,
		ClearColor:    cfg.ClearColorLinear(),
		LightColor:    cfg.LightColor(),
		LightDir:      cfg.LightDirection(),
	}

	if cfg.Shadows {
		settings.ShadowMapSize = cfg.ShadowMapSize
	}

	rend, err := renderer.New(dev, e.Store, e.Registry, e.Materials, settings)
	if err != nil {
		e.Store.Destroy()
		return nil, err
	}
	e.Renderer = rend

	logging.InfoLog.Printf("Engine created. Size=%dx%d, GLSL=%s, Shadows=%v, MSAA=%d\n", cfg.Width, cfg.Height, cfg.GLSLVersion, cfg.Shadows, cfg.MSAASamples)
	return e, nil
}

// Frame is the index of the last rendered frame
func (e *Engine) Frame() uint64 {
	return e.frame
}

// RenderFrame advances time, updates the scene and renders it. Errors are
// fatal: nothing is retried and the frame is not presented.
func (e *Engine) RenderFrame(sc *Scene, cam *camera.Camera, dt float32) error {

	e.frame++
	e.time += dt

	if err := sc.Graph.Update(dt); err != nil {
		return fmt.Errorf("frame %d: scene update failed: %w", e.frame, err)
	}

	ctx := renderer.FrameContext{
		Index:  e.frame,
		Time:   e.time,
		Dt:     dt,
		Camera: cam,
	}

	return e.Renderer.Render(sc.Graph, &ctx)
}

// Resize changes the render resolution, keeping the aspect of cam in sync if given
func (e *Engine) Resize(width, height int32, cam *camera.Camera) error {

	if width <= 0 || height <= 0 {
		return nil
	}

	if err := e.Renderer.Resize(width, height); err != nil {
		return err
	}

	e.Config.Width = width
	e.Config.Height = height

	if cam != nil {
		cam.AspectRatio = float32(width) / float32(height)
		cam.Update()
	}

	return nil
}

// Destroy releases every gpu object the engine created, scenes included
func (e *Engine) Destroy() {
	e.Renderer.Destroy()
	e.Registry.Release()
	e.Store.Destroy()
}
