package scene

import (
	"math/rand/v2"

	"github.com/bloeys/gglm/gglm"
	"github.com/chewxy/math32"
	"golang.org/x/sync/errgroup"
)

type GrassField struct {
	Rows    int
	Cols    int
	Spacing float32

	// Jitter is how far, as a fraction of Spacing, a blade may move off its grid cell
	Jitter float32

	MinScale float32
	MaxScale float32
	Seed     uint64
}

// GrassInstances places blades on a jittered grid centered on the origin,
// with random yaw and height. Rows are computed in parallel and the result
// only depends on the field settings.
func GrassInstances(field GrassField) ([]gglm.Mat4, error) {

	if field.Rows <= 0 || field.Cols <= 0 {
		return nil, nil
	}

	if field.MaxScale < field.MinScale {
		field.MinScale, field.MaxScale = field.MaxScale, field.MinScale
	}

	out := make([]gglm.Mat4, field.Rows*field.Cols)

	halfW := float32(field.Cols-1) * field.Spacing * 0.5
	halfD := float32(field.Rows-1) * field.Spacing * 0.5

	g := errgroup.Group{}
	for row := 0; row < field.Rows; row++ {

		g.Go(func() error {

			rng := rand.New(rand.NewPCG(field.Seed, uint64(row)))
			for col := 0; col < field.Cols; col++ {

				jx := (rng.Float32()*2 - 1) * field.Jitter * field.Spacing
				jz := (rng.Float32()*2 - 1) * field.Jitter * field.Spacing
				yaw := rng.Float32() * 2 * math32.Pi
				scale := field.MinScale + rng.Float32()*(field.MaxScale-field.MinScale)

				t := NewTransform()
				t.Pos = gglm.NewVec3(float32(col)*field.Spacing-halfW+jx, 0, float32(row)*field.Spacing-halfD+jz)
				t.SetEuler(0, yaw, 0)
				t.Scale = gglm.NewVec3(1, scale, 1)

				out[row*field.Cols+col] = t.Mat()
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
