package camera

import (
	"github.com/bloeys/gglm/gglm"
	"github.com/chewxy/math32"
)

type Type int32

const (
	Type_Unknown Type = iota
	Type_Perspective
	Type_Orthographic
)

type Camera struct {
	Type Type

	Pos     gglm.Vec3
	Forward gglm.Vec3
	WorldUp gglm.Vec3

	NearClip float32
	FarClip  float32

	// Perspective only
	Fov         float32
	AspectRatio float32

	// Orthographic only, half the height of the view volume
	OrthoSize float32

	ViewMat gglm.Mat4
	ProjMat gglm.Mat4
}

// Update recalculates the view and projection matrices
func (c *Camera) Update() {

	c.Forward.Normalize()

	viewTrMat := gglm.LookAtRH(&c.Pos, c.Pos.Clone().Add(&c.Forward), &c.WorldUp)
	c.ViewMat = viewTrMat.Mat4

	if c.Type == Type_Perspective {
		projMat := gglm.Perspective(c.Fov, c.AspectRatio, c.NearClip, c.FarClip)
		c.ProjMat = *projMat.Clone()
	} else {
		halfW := c.OrthoSize * c.AspectRatio
		c.ProjMat = gglm.Ortho(-halfW, halfW, -c.OrthoSize, c.OrthoSize, c.NearClip, c.FarClip).Mat4
	}
}

// UpdateRotation sets the forward vector from pitch and yaw in radians, then updates
func (c *Camera) UpdateRotation(pitch, yaw float32) {

	c.Forward.Data = [3]float32{
		math32.Cos(yaw) * math32.Cos(pitch),
		math32.Sin(pitch),
		math32.Sin(yaw) * math32.Cos(pitch),
	}

	c.Update()
}

// Billboard is a rotation about the world Y axis that turns +Z to face the camera
func (c *Camera) Billboard() gglm.Mat3 {

	angle := math32.Atan2(-c.Forward.X(), -c.Forward.Z())
	sin, cos := math32.Sincos(angle)

	// Column major
	return gglm.Mat3{
		Data: [3][3]float32{
			{cos, 0, -sin},
			{0, 1, 0},
			{sin, 0, cos},
		},
	}
}

func NewPerspective(pos, forward, worldUp *gglm.Vec3, nearClip, farClip, fovRadians, aspectRatio float32) *Camera {

	cam := &Camera{
		Type:        Type_Perspective,
		Pos:         *pos,
		Forward:     *forward,
		WorldUp:     *worldUp,
		NearClip:    nearClip,
		FarClip:     farClip,
		Fov:         fovRadians,
		AspectRatio: aspectRatio,
	}

	cam.Update()
	return cam
}

func NewOrthographic(pos, forward, worldUp *gglm.Vec3, nearClip, farClip, orthoSize, aspectRatio float32) *Camera {

	cam := &Camera{
		Type:        Type_Orthographic,
		Pos:         *pos,
		Forward:     *forward,
		WorldUp:     *worldUp,
		NearClip:    nearClip,
		FarClip:     farClip,
		OrthoSize:   orthoSize,
		AspectRatio: aspectRatio,
	}

	cam.Update()
	return cam
}
