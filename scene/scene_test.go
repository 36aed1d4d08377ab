package scene

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/gpu/gpurec"
	"github.com/bloeys/spot/logging"
	"github.com/bloeys/spot/meshes"
	"github.com/bloeys/spot/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logging.Silence()
}

// mul is a plain column major 4x4 multiply, independent of gglm
func mul(a, b *gglm.Mat4) gglm.Mat4 {

	var out gglm.Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a.Data[k][row] * b.Data[col][k]
			}
			out.Data[col][row] = sum
		}
	}

	return out
}

func assertMatEqual(t *testing.T, expected, actual *gglm.Mat4, msgAndArgs ...any) {

	t.Helper()
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			assert.InDelta(t, expected.Data[col][row], actual.Data[col][row], 1e-4, msgAndArgs...)
		}
	}
}

func testMesh(t *testing.T) resources.MeshHandle {

	store := resources.NewStore(gpurec.New())
	box := meshes.Box("box", gglm.NewVec3(0.5, 0.5, 0.5))
	h, err := store.CreateMesh(&box)
	require.NoError(t, err)
	return h
}

// randomTree builds a tree with the given node count under a new scene's root
func randomTree(rng *rand.Rand, count int, mesh resources.MeshHandle) *Scene {

	s := New()
	nodes := []*Node{s.Root}

	for i := 0; i < count; i++ {

		n := NewNode("n")
		n.Transform.Pos = gglm.NewVec3(rng.Float32()*10-5, rng.Float32()*10-5, rng.Float32()*10-5)
		n.Transform.SetEuler(rng.Float32()*3, rng.Float32()*3, rng.Float32()*3)
		n.Transform.Scale = gglm.NewVec3(0.5+rng.Float32(), 0.5+rng.Float32(), 0.5+rng.Float32())

		if rng.IntN(3) != 0 {
			n.Mesh = mesh
			n.Material = 1
		}

		parent := nodes[rng.IntN(len(nodes))]
		parent.AddChild(n)
		nodes = append(nodes, n)
	}

	return s
}

func TestWorldIsParentTimesLocal(t *testing.T) {

	rng := rand.New(rand.NewPCG(1, 2))
	mesh := testMesh(t)

	for trial := 0; trial < 20; trial++ {

		s := randomTree(rng, 30, mesh)
		s.Root.Transform.Pos = gglm.NewVec3(1, 2, 3)
		require.NoError(t, s.Update(0.016))

		identity := gglm.NewMat4Diag(1)
		var check func(n *Node, parentWorld *gglm.Mat4)
		check = func(n *Node, parentWorld *gglm.Mat4) {

			local := n.Transform.Mat()
			expected := mul(parentWorld, &local)
			world := n.World()
			assertMatEqual(t, &expected, &world, "trial %d node %s", trial, n.Name)

			for _, c := range n.Children {
				check(c, &world)
			}
		}

		check(s.Root, &identity)
	}
}

func TestTransformMatIsTRS(t *testing.T) {

	tr := NewTransform()
	tr.Pos = gglm.NewVec3(1, 2, 3)
	tr.Scale = gglm.NewVec3(2, 2, 2)

	m := tr.Mat()
	p := gglm.NewVec3(1, 0, 0)
	got := TransformPoint(&m, &p)

	assert.InDelta(t, 3, got.X(), 1e-5)
	assert.InDelta(t, 2, got.Y(), 1e-5)
	assert.InDelta(t, 3, got.Z(), 1e-5)

	raw := gglm.NewMat4Diag(3)
	tr.Matrix = &raw
	assert.Equal(t, raw, tr.Mat())
}

func TestChildTranslationScenario(t *testing.T) {

	mesh := testMesh(t)

	s := New()
	child := NewNode("child")
	child.Transform.Pos = gglm.NewVec3(0, 1, 0)
	child.Mesh = mesh
	child.Material = 7
	s.Root.AddChild(child)

	require.NoError(t, s.Update(0))

	items := make([]DrawItem, 0)
	for it := range s.DrawItems(nil) {
		items = append(items, it)
	}

	require.Len(t, items, 1)
	assert.Equal(t, uint32(7), items[0].Material)
	assert.Equal(t, mesh, items[0].Mesh)

	pos := Translation(&items[0].World)
	assert.InDelta(t, 0, pos.X(), 1e-6)
	assert.InDelta(t, 1, pos.Y(), 1e-6)
	assert.InDelta(t, 0, pos.Z(), 1e-6)
}

func TestDrawItemCountMatchesMeshNodes(t *testing.T) {

	rng := rand.New(rand.NewPCG(3, 4))
	mesh := testMesh(t)

	for trial := 0; trial < 10; trial++ {

		s := randomTree(rng, 1+rng.IntN(50), mesh)
		require.NoError(t, s.Update(0))

		withMesh := 0
		s.Root.Walk(func(n *Node) bool {
			if n.HasMesh() {
				withMesh++
			}
			return true
		})

		count := 0
		for range s.DrawItems(nil) {
			count++
		}
		assert.Equal(t, withMesh, count)

		// Restartable, the second walk sees the same items
		again := 0
		for range s.DrawItems(nil) {
			again++
		}
		assert.Equal(t, count, again)
	}
}

func TestShadowCasterFilter(t *testing.T) {

	mesh := testMesh(t)

	s := New()
	caster := NewNode("caster")
	caster.Mesh = mesh
	receiver := NewNode("receiver")
	receiver.Mesh = mesh
	receiver.CastShadows = false
	pivot := NewNode("pivot")
	pivot.AddChild(caster)
	s.Root.AddChild(pivot, receiver)

	require.NoError(t, s.Update(0))

	names := []string{}
	for it := range s.DrawItems(ShadowCasters) {
		names = append(names, it.Node.Name)
	}
	assert.Equal(t, []string{"caster"}, names)

	// Stopping early is fine
	for range s.DrawItems(nil) {
		break
	}
}

func TestParallelUpdateMatchesSerial(t *testing.T) {

	mesh := testMesh(t)

	build := func() *Scene {
		s := randomTree(rand.New(rand.NewPCG(9, 9)), 200, mesh)
		s.Root.Walk(func(n *Node) bool {
			n.Animate = func(n *Node, dt float32) error {
				n.Transform.Pos.Data[1] += dt
				return nil
			}
			return true
		})
		return s
	}

	serial := build()
	parallel := build()
	parallel.ParallelUpdate = true

	for i := 0; i < 3; i++ {
		require.NoError(t, serial.Update(0.5))
		require.NoError(t, parallel.Update(0.5))
	}

	sw := []gglm.Mat4{}
	for it := range serial.DrawItems(nil) {
		sw = append(sw, it.World)
	}

	pw := []gglm.Mat4{}
	for it := range parallel.DrawItems(nil) {
		pw = append(pw, it.World)
	}

	require.Equal(t, len(sw), len(pw))
	for i := range sw {
		assertMatEqual(t, &sw[i], &pw[i])
	}
}

func TestAnimateRunsBeforeTransforms(t *testing.T) {

	s := New()
	child := NewNode("child")
	s.Root.AddChild(child)

	s.Root.Animate = func(n *Node, dt float32) error {
		n.Transform.Pos = gglm.NewVec3(0, 5, 0)
		return nil
	}

	require.NoError(t, s.Update(0))
	w := child.World()
	assert.InDelta(t, 5, Translation(&w).Y(), 1e-6)

	boom := errors.New("boom")
	child.Animate = func(n *Node, dt float32) error { return boom }
	assert.ErrorIs(t, s.Update(0), boom)
}

func TestLights(t *testing.T) {

	s := New()
	sun := NewNode("sun")
	sun.Light = &DirLight{Color: gglm.NewVec3(1, 1, 1), Dir: gglm.NewVec3(0, 0, -1)}
	sun.Transform.SetEuler(-gglm.Deg2Rad*90, 0, 0)
	s.Root.AddChild(sun)

	require.NoError(t, s.Update(0))

	lights := s.Lights()
	require.Len(t, lights, 1)
	assert.InDelta(t, 1, lights[0].Dir.X()*lights[0].Dir.X()+lights[0].Dir.Y()*lights[0].Dir.Y()+lights[0].Dir.Z()*lights[0].Dir.Z(), 1e-5)
	assert.Equal(t, 2, s.NodeCount())
}

func TestGrassInstances(t *testing.T) {

	field := GrassField{Rows: 8, Cols: 6, Spacing: 0.25, Jitter: 0.4, MinScale: 0.8, MaxScale: 1.2, Seed: 42}

	a, err := GrassInstances(field)
	require.NoError(t, err)
	require.Len(t, a, 48)

	b, err := GrassInstances(field)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	for i := range a {
		p := Translation(&a[i])
		assert.InDelta(t, 0, p.Y(), 1e-6)
		assert.LessOrEqual(t, p.X(), float32(0.25*2.5+0.1+1e-3))
	}

	none, err := GrassInstances(GrassField{})
	require.NoError(t, err)
	assert.Empty(t, none)
}
