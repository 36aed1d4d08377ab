package main

import (
	"testing"

	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/camera"
	"github.com/bloeys/spot/config"
	"github.com/bloeys/spot/engine"
	"github.com/bloeys/spot/gpu/gpurec"
	"github.com/bloeys/spot/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logging.Silence()
}

func TestDemoScenesRender(t *testing.T) {

	for _, name := range demoSceneNames() {

		t.Run(name, func(t *testing.T) {

			cfg := config.Default()
			cfg.Width = 64
			cfg.Height = 36

			e, err := engine.New(gpurec.New(), cfg)
			require.NoError(t, err)
			defer e.Destroy()

			desc, err := sceneDesc(&runOptions{Scene: name})
			require.NoError(t, err)

			sc, err := e.CreateScene(desc)
			require.NoError(t, err)

			pos := gglm.NewVec3(0, 3, 9)
			fwd := gglm.NewVec3(0, -0.3, -1)
			up := gglm.NewVec3(0, 1, 0)
			cam := camera.NewPerspective(&pos, fwd.Normalize(), &up, 0.1, 200, 60*gglm.Deg2Rad, 64.0/36)

			for i := 0; i < 3; i++ {
				require.NoError(t, e.RenderFrame(sc, cam, 1.0/60))
			}

			assert.Positive(t, e.Renderer.Stats.MainDraws)
			assert.Positive(t, e.Renderer.Stats.ShadowDraws)
			assert.Equal(t, 1, e.Renderer.Stats.PresentBlits)
		})
	}

	_, err := sceneDesc(&runOptions{Scene: "nope"})
	assert.ErrorContains(t, err, "unknown demo scene")
}
