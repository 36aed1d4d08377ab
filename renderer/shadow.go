package renderer

import (
	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/gpu"
	"github.com/bloeys/spot/materials"
	"github.com/bloeys/spot/meshes"
	"github.com/bloeys/spot/scene"
	"github.com/bloeys/spot/shaders"
	"github.com/chewxy/math32"
)

func (r *Renderer) shadowPass(sc *scene.Scene, ctx *FrameContext, light *scene.Light) error {

	bounds, err := r.casterBounds(sc)
	if err != nil {
		return err
	}

	r.lightSpace = LightSpaceMat(light.Dir, &bounds)

	fb, err := r.Store.Framebuffer(r.targets.shadowFbo)
	if err != nil {
		return err
	}

	// No culling so thin and open casters still write depth
	r.Dev.BeginPass(fb.Id, fb.Width, fb.Height, gpu.PassState{
		DoClearDepth: true,
		DepthTest:    true,
	})

	implicit := materials.Implicit{
		"lightSpace": materials.Mat4(r.lightSpace),
	}

	for item := range sc.DrawItems(scene.ShadowCasters) {

		key := r.depthMat.Key
		if item.IsInstanced() {
			key = key.With(shaders.Feature_Instanced)
		}

		draws, err := r.drawItem(&item, r.depthMat, key, implicit)
		if err != nil {
			return err
		}

		r.Stats.ShadowDraws += draws
	}

	return r.markWritten(ctx.Index, fb.Depth)
}

// casterBounds is the world space box around every shadow caster, instances
// included. It is empty when nothing casts shadows.
func (r *Renderer) casterBounds(sc *scene.Scene) (meshes.AABB, error) {

	bounds := meshes.EmptyAABB()
	for item := range sc.DrawItems(scene.ShadowCasters) {

		mesh, err := r.Store.Mesh(item.Mesh)
		if err != nil {
			return bounds, err
		}

		if mesh.Bounds.IsEmpty() {
			continue
		}

		corners := mesh.Bounds.Corners()
		extend := func(world *gglm.Mat4) {
			for i := 0; i < len(corners); i++ {
				p := scene.TransformPoint(world, &corners[i])
				bounds.Extend(&p)
			}
		}

		if !item.IsInstanced() {
			extend(&item.World)
			continue
		}

		for i := 0; i < len(item.Instances); i++ {
			world := scene.MulMat4(&item.World, &item.Instances[i])
			extend(&world)
		}
	}

	return bounds, nil
}

// LightSpaceMat returns an orthographic view-projection looking along dir
// that encloses the bounding sphere of bounds. An empty box is treated as a
// unit sphere at the origin.
func LightSpaceMat(dir gglm.Vec3, bounds *meshes.AABB) gglm.Mat4 {

	center := gglm.NewVec3(0, 0, 0)
	radius := float32(1)
	if !bounds.IsEmpty() {
		center = bounds.Center()
		radius = math32.Max(bounds.Radius(), 0.01)
	}

	dir.Normalize()

	up := gglm.NewVec3(0, 1, 0)
	if gglm.Abs32(gglm.DotVec3(&dir, &up)) > 0.99 {
		up.SetXY(1, 0)
	}

	// Sit two radii back so the sphere spans [radius, 3*radius] in depth
	eye := *center.Clone().Add(dir.Clone().Scale(-2 * radius))

	projMat := gglm.Ortho(-radius, radius, -radius, radius, radius*0.5, radius*3.5).Mat4
	viewMat := gglm.LookAtRH(&eye, &center, &up).Mat4

	return *projMat.Mul(&viewMat)
}
