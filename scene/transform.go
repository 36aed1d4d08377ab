package scene

import (
	"github.com/bloeys/gglm/gglm"
)

// Transform is a node's local transform. When Matrix is set it is used as is
// and Pos/Rot/Scale are ignored.
type Transform struct {
	Pos   gglm.Vec3
	Rot   gglm.Quat
	Scale gglm.Vec3

	Matrix *gglm.Mat4
}

func NewTransform() Transform {
	return Transform{
		Rot:   gglm.NewQuatEuler(0, 0, 0),
		Scale: gglm.NewVec3(1, 1, 1),
	}
}

// SetEuler sets the rotation from euler angles in radians
func (t *Transform) SetEuler(x, y, z float32) {
	t.Rot = gglm.NewQuatEuler(x, y, z)
}

// Mat returns the local matrix, translation * rotation * scale
func (t *Transform) Mat() gglm.Mat4 {

	if t.Matrix != nil {
		return *t.Matrix
	}

	rot := t.Rot
	if rot == (gglm.Quat{}) {
		rot = gglm.NewQuatEuler(0, 0, 0)
	}

	translationMat := gglm.NewTranslationMat(t.Pos.X(), t.Pos.Y(), t.Pos.Z())
	rotMat := gglm.NewRotMatQuat(&rot)
	scaleMat := gglm.NewScaleMat(t.Scale.X(), t.Scale.Y(), t.Scale.Z())

	return translationMat.Mul(rotMat.Mul(&scaleMat)).Mat4
}

// MulMat4 returns a*b
func MulMat4(a, b *gglm.Mat4) gglm.Mat4 {
	out := *a
	return *out.Mul(b)
}

// TransformDir applies the rotation and scale part of m to a direction
func TransformDir(m *gglm.Mat4, d *gglm.Vec3) gglm.Vec3 {

	// Column major, Data[col][row]
	return gglm.NewVec3(
		m.Data[0][0]*d.X()+m.Data[1][0]*d.Y()+m.Data[2][0]*d.Z(),
		m.Data[0][1]*d.X()+m.Data[1][1]*d.Y()+m.Data[2][1]*d.Z(),
		m.Data[0][2]*d.X()+m.Data[1][2]*d.Y()+m.Data[2][2]*d.Z(),
	)
}

// TransformPoint applies m to a point
func TransformPoint(m *gglm.Mat4, p *gglm.Vec3) gglm.Vec3 {

	d := TransformDir(m, p)
	return gglm.NewVec3(d.X()+m.Data[3][0], d.Y()+m.Data[3][1], d.Z()+m.Data[3][2])
}

// Translation returns the translation part of m
func Translation(m *gglm.Mat4) gglm.Vec3 {
	return gglm.NewVec3(m.Data[3][0], m.Data[3][1], m.Data[3][2])
}

// NormalMatrix is the inverse transpose of the upper 3x3 of m
func NormalMatrix(m *gglm.Mat4) gglm.Mat3 {
	trMat := gglm.TrMat{Mat4: *m}
	return trMat.Clone().InvertAndTranspose().ToMat3()
}
