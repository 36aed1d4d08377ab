package scene

import (
	"iter"
	"runtime"

	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/resources"
	"golang.org/x/sync/errgroup"
)

type DrawItem struct {
	Node      *Node
	World     gglm.Mat4
	Mesh      resources.MeshHandle
	Material  uint32
	Instances []gglm.Mat4
}

func (d *DrawItem) IsInstanced() bool {
	return len(d.Instances) > 0
}

// Light is a light in world space
type Light struct {
	Node  *Node
	Color gglm.Vec3
	Dir   gglm.Vec3
}

type Scene struct {
	Root *Node

	// ParallelUpdate updates the subtrees under Root on separate goroutines
	ParallelUpdate bool
}

func New() *Scene {
	return &Scene{Root: NewNode("root")}
}

// Update runs the animation callbacks and then recomputes world transforms,
// parents before children. Root has an identity parent.
//
// With ParallelUpdate each child subtree of Root is updated on its own
// goroutine, and Update returns only after all of them are done.
func (s *Scene) Update(dt float32) error {

	if s.Root == nil {
		return nil
	}

	identity := gglm.NewMat4Diag(1)

	if !s.ParallelUpdate || len(s.Root.Children) < 2 {

		if err := animate(s.Root, dt); err != nil {
			return err
		}

		updateWorld(s.Root, &identity)
		return nil
	}

	if s.Root.Animate != nil {
		if err := s.Root.Animate(s.Root, dt); err != nil {
			return err
		}
	}

	rootLocal := s.Root.Transform.Mat()
	s.Root.world = MulMat4(&identity, &rootLocal)

	g := errgroup.Group{}
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, c := range s.Root.Children {

		g.Go(func() error {

			if err := animate(c, dt); err != nil {
				return err
			}

			updateWorld(c, &s.Root.world)
			return nil
		})
	}

	return g.Wait()
}

func animate(n *Node, dt float32) error {

	if n.Animate != nil {
		if err := n.Animate(n, dt); err != nil {
			return err
		}
	}

	for _, c := range n.Children {
		if err := animate(c, dt); err != nil {
			return err
		}
	}

	return nil
}

func updateWorld(n *Node, parentWorld *gglm.Mat4) {

	local := n.Transform.Mat()
	n.world = MulMat4(parentWorld, &local)

	for _, c := range n.Children {
		updateWorld(c, &n.world)
	}
}

// DrawItems lazily walks the graph and yields a draw item for every node
// with a mesh that passes filter. A nil filter accepts all. The sequence can
// be ranged over many times and never modifies the graph.
func (s *Scene) DrawItems(filter func(n *Node) bool) iter.Seq[DrawItem] {

	return func(yield func(DrawItem) bool) {

		if s.Root == nil {
			return
		}

		var walk func(n *Node) bool
		walk = func(n *Node) bool {

			if n.HasMesh() && (filter == nil || filter(n)) {

				ok := yield(DrawItem{
					Node:      n,
					World:     n.world,
					Mesh:      n.Mesh,
					Material:  n.Material,
					Instances: n.Instances,
				})

				if !ok {
					return false
				}
			}

			for _, c := range n.Children {
				if !walk(c) {
					return false
				}
			}

			return true
		}

		walk(s.Root)
	}
}

// ShadowCasters is a DrawItems filter for the shadow pass
func ShadowCasters(n *Node) bool {
	return n.CastShadows
}

// Lights returns the lights of the scene with world space directions
func (s *Scene) Lights() []Light {

	lights := make([]Light, 0, 1)
	if s.Root == nil {
		return lights
	}

	s.Root.Walk(func(n *Node) bool {

		if n.Light == nil {
			return true
		}

		dir := TransformDir(&n.world, &n.Light.Dir)
		dir.Normalize()

		lights = append(lights, Light{Node: n, Color: n.Light.Color, Dir: dir})
		return true
	})

	return lights
}

// NodeCount is the number of nodes in the graph, Root included
func (s *Scene) NodeCount() int {

	count := 0
	if s.Root != nil {
		s.Root.Walk(func(n *Node) bool {
			count++
			return true
		})
	}

	return count
}
